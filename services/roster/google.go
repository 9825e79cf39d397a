package rostersvc

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/classroom/v1"
	"google.golang.org/api/option"

	"github.com/gigamonkey/help/core"
	"github.com/gigamonkey/help/core/class"
)

var googleScopes = []string{
	classroom.ClassroomCoursesReadonlyScope,
	classroom.ClassroomRostersReadonlyScope,
	classroom.ClassroomProfileEmailsScope,
}

// googleSource reads courses and students from Google Classroom as the teacher
// owning the configured refresh token.
type googleSource struct {
	svc *classroom.Service
}

var _ class.RosterSource = (*googleSource)(nil)

func NewGoogleSource(ctx context.Context, conf *core.Config) (class.RosterSource, error) {
	oconf := &oauth2.Config{
		ClientID:     conf.Google.ClientID,
		ClientSecret: conf.Google.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       googleScopes,
	}
	ts := oconf.TokenSource(ctx, &oauth2.Token{RefreshToken: conf.Google.RefreshToken})

	svc, err := classroom.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, errors.Wrap(err, "creating classroom service")
	}
	return &googleSource{svc: svc}, nil
}

func (src *googleSource) Courses(ctx context.Context) ([]class.Course, error) {
	courses := make([]class.Course, 0)
	call := src.svc.Courses.List().TeacherId("me").CourseStates("ACTIVE")
	err := call.Pages(ctx, func(page *classroom.ListCoursesResponse) error {
		for _, c := range page.Courses {
			courses = append(courses, toCourse(c))
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "listing google courses")
	}
	return courses, nil
}

func (src *googleSource) Course(ctx context.Context, id string) (class.Course, error) {
	c, err := src.svc.Courses.Get(id).Context(ctx).Do()
	if err != nil {
		return class.Course{}, errors.Wrap(err, "getting google course")
	}
	return toCourse(c), nil
}

func (src *googleSource) Students(ctx context.Context, courseID string) ([]class.RosterStudent, error) {
	students := make([]class.RosterStudent, 0)
	err := src.svc.Courses.Students.List(courseID).Pages(ctx, func(page *classroom.ListStudentsResponse) error {
		for _, s := range page.Students {
			if s.Profile == nil || s.Profile.EmailAddress == "" {
				continue
			}
			rs := class.RosterStudent{Email: s.Profile.EmailAddress}
			if s.Profile.Name != nil {
				rs.FullName = s.Profile.Name.FullName
			}
			students = append(students, rs)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "listing google course students")
	}
	return students, nil
}

func toCourse(c *classroom.Course) class.Course {
	return class.Course{ID: c.Id, Name: c.Name, Section: c.Section}
}
