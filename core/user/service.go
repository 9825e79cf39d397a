package user

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/gigamonkey/help/core"
)

var (
	// errors
	ErrNotFound         = errors.New("user not found")
	ErrUserExists       = errors.New("a user with this email already exists")
	ErrInvalidResetLink = errors.New("the reset password link is no longer valid")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers []User, exec ...core.DBExecutor) error
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name, User.GoogleName or User.Email.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]User, error)
		GetUser(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (User, error)
		UpdateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		// EnsureUser inserts usr unless its email is known and refreshes the roster name otherwise.
		EnsureUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
	}

	// Directory holds the statically configured facts about identities.
	Directory interface {
		IsAdmin(email string) bool
		// NameOverride returns the display name configured for email, if any.
		NameOverride(email string) (string, bool)
	}

	Service interface {
		Create(ctx context.Context, nu NewUser) (User, error)
		Ensure(ctx context.Context, email, googleName string, exec ...core.DBExecutor) (User, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		UpdateProfile(ctx context.Context, usr User, data UpdateProfile) (User, error)
		SetPassword(ctx context.Context, email, pwd string) (User, error)
		SetLastLogin(ctx context.Context, usr User) (User, error)
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, data ResetUserPassword) error
		DisplayName(ctx context.Context, email string) (string, bool, error)
		IsAdmin(usr User) bool
	}

	service struct {
		repo    Repository
		dir     Directory
		mailSvc core.EmailService
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(repo Repository, dir Directory, mailSvc core.EmailService) Service {
	return &service{
		repo:    repo,
		dir:     dir,
		mailSvc: mailSvc,
	}
}

func (svc *service) checkUniqueness(ctx context.Context, email string, exclUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, exclUsers); err != nil {
		if err == ErrUserExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *service) Create(ctx context.Context, nu NewUser) (User, error) {
	if err := nu.Validate(); err != nil {
		return User{}, err
	}
	if err := svc.checkUniqueness(ctx, nu.Email); err != nil {
		return User{}, err
	}

	now := time.Now().UTC()
	usr := User{
		Email:     nu.Email,
		Name:      nu.Name,
		IsAdmin:   nu.IsAdmin || svc.isConfiguredAdmin(nu.Email),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

// Ensure returns the user with email, creating it when unknown.
func (svc *service) Ensure(ctx context.Context, email, googleName string, exec ...core.DBExecutor) (User, error) {
	email = core.CleanString(email, true /* lower */)
	now := time.Now().UTC()
	usr := User{
		Email:      email,
		GoogleName: core.CleanString(googleName),
		IsAdmin:    svc.isConfiguredAdmin(email),
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if name, ok := svc.nameOverride(email); ok {
		usr.Name = name
	}
	return svc.repo.EnsureUser(ctx, usr, exec...)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

func (svc *service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *service) UpdateProfile(ctx context.Context, usr User, data UpdateProfile) (User, error) {
	if err := data.Validate(); err != nil {
		return User{}, err
	}
	usr.Name = data.Name
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) SetPassword(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = null.TimeFrom(time.Now().UTC())
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return ErrNotFound
	}
	go svc.sendPasswordResetMail(usr)
	return nil
}

func (svc *service) sendPasswordResetMail(usr User) {
	token := MakeToken(usr)
	name := usr.DisplayName()
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: name, Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: passwordResetData{
			Name:  name,
			UID:   EncodeUID(usr),
			Token: token,
		},
	})
}

func (svc *service) ResetPassword(ctx context.Context, data ResetUserPassword) error {
	if err := data.Validate(); err != nil {
		return err
	}

	id, err := decodeUID(data.UID)
	if err != nil {
		return core.NewValidationError(ErrInvalidResetLink)
	}
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return core.NewValidationError(ErrInvalidResetLink)
		}
		return errors.Wrap(err, "finding user by ID")
	}
	if err = verifyToken(usr, data.Token); err != nil {
		return core.NewValidationError(ErrInvalidResetLink)
	}

	if err = usr.SetPassword(data.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return err
}

// DisplayName resolves the name shown for email: a configured override first, then the stored user.
func (svc *service) DisplayName(ctx context.Context, email string) (string, bool, error) {
	if name, ok := svc.nameOverride(email); ok {
		return name, true, nil
	}
	usr, err := svc.repo.GetUser(ctx, GetFilter{Email: strings.ToLower(email)})
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return "", false, nil
		}
		return "", false, err
	}
	name := usr.DisplayName()
	return name, name != "", nil
}

func (svc *service) IsAdmin(usr User) bool {
	return usr.IsAdmin || svc.isConfiguredAdmin(usr.Email)
}

func (svc *service) isConfiguredAdmin(email string) bool {
	return svc.dir != nil && svc.dir.IsAdmin(email)
}

func (svc *service) nameOverride(email string) (string, bool) {
	if svc.dir == nil {
		return "", false
	}
	return svc.dir.NameOverride(email)
}

// ConfigDirectory is a Directory backed by the admins and displayNames settings.
type ConfigDirectory struct {
	conf *core.Config
}

func NewConfigDirectory(conf *core.Config) ConfigDirectory {
	return ConfigDirectory{conf: conf}
}

func (d ConfigDirectory) IsAdmin(email string) bool {
	return d.conf.IsAdminEmail(email)
}

func (d ConfigDirectory) NameOverride(email string) (string, bool) {
	name, ok := d.conf.DisplayNames[core.CleanString(email, true /* lower */)]
	return name, ok && name != ""
}
