package class

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/gigamonkey/help/core"
	"github.com/gigamonkey/help/core/user"
)

var (
	// errors
	ErrNotFound        = errors.New("class not found")
	ErrClassExists     = errors.New("a class with this id already exists")
	ErrNotMember       = errors.New("not a member of this class")
	ErrNoRoster        = errors.New("no roster source configured")
	ErrAlreadyImported = errors.New("this course has already been imported")
	ErrNotImported     = errors.New("this class was not imported from a roster")
)

type (
	Repository interface {
		CreateClass(ctx context.Context, cls Class, exec ...core.DBExecutor) (Class, error)
		GetClass(ctx context.Context, id string, exec ...core.DBExecutor) (Class, error)
		ClassByGoogleID(ctx context.Context, googleID string) (Class, error)
		GoogleIDs(ctx context.Context) ([]string, error)
		Memberships(ctx context.Context, email string) ([]Membership, error)
		GetMember(ctx context.Context, email, classID string) (Member, error)
		// AddMember does nothing when the email is already a member of the class.
		AddMember(ctx context.Context, m Member, exec ...core.DBExecutor) error
		RemoveMember(ctx context.Context, email, classID string, exec ...core.DBExecutor) error
		Members(ctx context.Context, classID string, role Role, exec ...core.DBExecutor) ([]Member, error)
	}

	// RosterSource lists the courses of the authenticated teacher and their students.
	RosterSource interface {
		Courses(ctx context.Context) ([]Course, error)
		Course(ctx context.Context, id string) (Course, error)
		Students(ctx context.Context, courseID string) ([]RosterStudent, error)
	}

	UserEnsurer interface {
		Ensure(ctx context.Context, email, googleName string, exec ...core.DBExecutor) (user.User, error)
	}

	HelpCounter interface {
		CountByRequester(ctx context.Context, classID string) (map[string]int, error)
	}

	// JournalTimes returns the creation times (unix seconds) of journal entries per email.
	JournalTimes interface {
		EntryTimes(ctx context.Context, classID string) (map[string][]int64, error)
	}

	Deps struct {
		DB       core.DB
		Repo     Repository
		Users    UserEnsurer
		Roster   RosterSource
		Help     HelpCounter
		Journal  JournalTimes
		Location *time.Location
	}

	Service struct {
		deps Deps
	}
)

func NewService(deps Deps) *Service {
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	return &Service{deps: deps}
}

func (svc *Service) Get(ctx context.Context, id string) (Class, error) {
	return svc.deps.Repo.GetClass(ctx, id)
}

func (svc *Service) Memberships(ctx context.Context, email string) ([]Membership, error) {
	return svc.deps.Repo.Memberships(ctx, email)
}

// Member returns the membership of email in classID, or ErrNotMember.
func (svc *Service) Member(ctx context.Context, email, classID string) (Member, error) {
	return svc.deps.Repo.GetMember(ctx, email, classID)
}

func (svc *Service) Create(ctx context.Context, id, name, teacherEmail string) (Class, error) {
	cls := Class{ID: core.Slugify(id), Name: core.CleanString(name)}
	if cls.ID == "" {
		cls.ID = core.Slugify(name)
	}
	if cls.ID == "" || cls.Name == "" {
		return Class{}, core.NewValidationError(errors.New("class id and name are required"))
	}
	if err := svc.checkIDFree(ctx, cls.ID); err != nil {
		return Class{}, err
	}

	err := core.WithTx(ctx, svc.deps.DB, func(tx core.DBExecutor) error {
		var err error
		if cls, err = svc.deps.Repo.CreateClass(ctx, cls, tx); err != nil {
			return err
		}
		return svc.addMember(ctx, tx, cls.ID, teacherEmail, "", RoleTeacher)
	})
	return cls, errors.Wrap(err, "creating class")
}

// Courses lists the roster courses of the configured teacher.
func (svc *Service) Courses(ctx context.Context) ([]Course, error) {
	if svc.deps.Roster == nil {
		return nil, ErrNoRoster
	}
	courses, err := svc.deps.Roster.Courses(ctx)
	return courses, errors.Wrap(err, "listing roster courses")
}

func (svc *Service) ImportedGoogleIDs(ctx context.Context) ([]string, error) {
	return svc.deps.Repo.GoogleIDs(ctx)
}

// ImportCourse creates a class from a roster course with teacherEmail as its teacher
// and the course students as members, all in one transaction.
func (svc *Service) ImportCourse(ctx context.Context, googleID, teacherEmail string) (Class, error) {
	if svc.deps.Roster == nil {
		return Class{}, ErrNoRoster
	}
	if _, err := svc.deps.Repo.ClassByGoogleID(ctx, googleID); err == nil {
		return Class{}, core.NewValidationError(ErrAlreadyImported)
	} else if errors.Cause(err) != ErrNotFound {
		return Class{}, errors.Wrap(err, "finding class by google id")
	}

	course, err := svc.deps.Roster.Course(ctx, googleID)
	if err != nil {
		return Class{}, errors.Wrap(err, "fetching roster course")
	}
	students, err := svc.deps.Roster.Students(ctx, googleID)
	if err != nil {
		return Class{}, errors.Wrap(err, "fetching roster students")
	}

	name := course.ClassName()
	cls := Class{ID: core.Slugify(name), Name: name}
	cls.GoogleID.SetValid(googleID)
	if err = svc.checkIDFree(ctx, cls.ID); err != nil {
		return Class{}, err
	}

	err = core.WithTx(ctx, svc.deps.DB, func(tx core.DBExecutor) error {
		if cls, err = svc.deps.Repo.CreateClass(ctx, cls, tx); err != nil {
			return err
		}
		if err := svc.addMember(ctx, tx, cls.ID, teacherEmail, "", RoleTeacher); err != nil {
			return err
		}
		for _, s := range students {
			if err := svc.addMember(ctx, tx, cls.ID, s.Email, s.FullName, RoleStudent); err != nil {
				return err
			}
		}
		return nil
	})
	return cls, errors.Wrap(err, "importing course")
}

// ResyncCourse brings the students of an imported class in line with its roster course.
func (svc *Service) ResyncCourse(ctx context.Context, classID string) error {
	if svc.deps.Roster == nil {
		return ErrNoRoster
	}
	cls, err := svc.deps.Repo.GetClass(ctx, classID)
	if err != nil {
		return err
	}
	if !cls.GoogleID.Valid {
		return core.NewValidationError(ErrNotImported)
	}
	students, err := svc.deps.Roster.Students(ctx, cls.GoogleID.String)
	if err != nil {
		return errors.Wrap(err, "fetching roster students")
	}
	return svc.syncStudents(ctx, classID, students, true /* prune */)
}

// AddStudents adds students to a class, keeping current members.
func (svc *Service) AddStudents(ctx context.Context, classID string, students []RosterStudent) error {
	if _, err := svc.deps.Repo.GetClass(ctx, classID); err != nil {
		return err
	}
	return svc.syncStudents(ctx, classID, students, false /* prune */)
}

func (svc *Service) syncStudents(ctx context.Context, classID string, students []RosterStudent, prune bool) error {
	err := core.WithTx(ctx, svc.deps.DB, func(tx core.DBExecutor) error {
		current, err := svc.deps.Repo.Members(ctx, classID, RoleStudent, tx)
		if err != nil {
			return err
		}

		keep := make(map[string]bool, len(students))
		for _, s := range students {
			if err := svc.addMember(ctx, tx, classID, s.Email, s.FullName, RoleStudent); err != nil {
				return err
			}
			keep[core.CleanString(s.Email, true /* lower */)] = true
		}

		if !prune {
			return nil
		}
		for _, m := range current {
			if !keep[m.Email] {
				if err := svc.deps.Repo.RemoveMember(ctx, m.Email, classID, tx); err != nil {
					return err
				}
			}
		}
		return nil
	})
	return errors.Wrap(err, "syncing students")
}

func (svc *Service) checkIDFree(ctx context.Context, id string) error {
	_, err := svc.deps.Repo.GetClass(ctx, id)
	switch {
	case err == nil:
		return core.NewValidationError(ErrClassExists, core.FieldError{Field: "id", Error: ErrClassExists.Error()})
	case errors.Cause(err) != ErrNotFound:
		return errors.Wrap(err, "finding class")
	}
	return nil
}

func (svc *Service) addMember(ctx context.Context, tx core.DBExecutor, classID, email, googleName string, role Role) error {
	usr, err := svc.deps.Users.Ensure(ctx, email, googleName, tx)
	if err != nil {
		return errors.Wrap(err, "ensuring user")
	}
	return svc.deps.Repo.AddMember(ctx, Member{Email: usr.Email, ClassID: classID, Role: role}, tx)
}

// StudentStats summarizes the activity of every student of the class. Journal days
// are distinct calendar days in the service location.
func (svc *Service) StudentStats(ctx context.Context, classID string, ordering []core.DBOrdering) ([]StudentStats, error) {
	students, err := svc.deps.Repo.Members(ctx, classID, RoleStudent)
	if err != nil {
		return nil, errors.Wrap(err, "listing students")
	}

	helpCounts := map[string]int{}
	if svc.deps.Help != nil {
		if helpCounts, err = svc.deps.Help.CountByRequester(ctx, classID); err != nil {
			return nil, err
		}
	}
	entryTimes := map[string][]int64{}
	if svc.deps.Journal != nil {
		if entryTimes, err = svc.deps.Journal.EntryTimes(ctx, classID); err != nil {
			return nil, err
		}
	}

	stats := make([]StudentStats, 0, len(students))
	for _, m := range students {
		times := entryTimes[m.Email]
		stats = append(stats, StudentStats{
			Email:          m.Email,
			Name:           m.Name,
			Role:           m.Role,
			JournalEntries: len(times),
			JournalDays:    countDays(times, svc.deps.Location),
			HelpRequests:   helpCounts[m.Email],
		})
	}
	sort.SliceStable(stats, statsLess(stats, ordering))
	return stats, nil
}

func countDays(times []int64, loc *time.Location) int {
	days := make(map[string]struct{}, len(times))
	for _, ts := range times {
		days[time.Unix(ts, 0).In(loc).Format("2006-01-02")] = struct{}{}
	}
	return len(days)
}
