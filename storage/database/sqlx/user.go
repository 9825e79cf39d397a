package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gigamonkey/help/core"
	"github.com/gigamonkey/help/core/user"
)

const userColumns = "id, email, name, google_name, is_admin, is_active, password_hash, created_at, updated_at, last_login"

// orderable user columns
var userOrderings = map[string]bool{
	"email":      true,
	"name":       true,
	"is_admin":   true,
	"is_active":  true,
	"created_at": true,
	"last_login": true,
}

type userRepository struct {
	exec core.DBExecutor
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{exec: exec}
}

func (repo userRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

// trapNoRowsErr maps "no rows" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, op string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return core.NewStorageError(op, err)
}

func (repo userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)
	q := `SELECT COUNT(*) FROM users WHERE email = ?`
	args := []interface{}{email}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		inQ, inArgs, err := sqlx.In(` AND id NOT IN (?)`, ids)
		if err != nil {
			return core.NewStorageError("checking user uniqueness", err)
		}
		q += inQ
		args = append(args, inArgs...)
	}

	var cnt int
	if err := sqlx.GetContext(ctx, exe, &cnt, exe.Rebind(q), args...); err != nil {
		return core.NewStorageError("checking user uniqueness", err)
	}
	if cnt > 0 {
		return user.ErrUserExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	exe := repo.getExec(exec)
	usr.ID = uuid.New().String()
	q := `INSERT INTO users (` + userColumns + `)
		VALUES (:id, :email, :name, :google_name, :is_admin, :is_active, :password_hash, :created_at, :updated_at, :last_login)`
	if _, err := sqlx.NamedExecContext(ctx, exe, q, usr); err != nil {
		return user.User{}, core.NewStorageError("inserting user", err)
	}
	return usr, nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	exe := repo.getExec(exec)

	var where []string
	var args []interface{}
	if filter != nil {
		// users with Name, GoogleName or Email matching the search keyword
		if filter.Search != "" {
			val := "%" + strings.ToLower(filter.Search) + "%"
			where = append(where, "(LOWER(name) LIKE ? OR LOWER(google_name) LIKE ? OR LOWER(email) LIKE ?)")
			args = append(args, val, val, val)
		}
		if filter.IsAdmin != nil {
			where = append(where, "is_admin = ?")
			args = append(args, *filter.IsAdmin)
		}
	}

	q := `SELECT ` + userColumns + ` FROM users`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += orderBy(ordering, userOrderings, "email ASC")

	users := []user.User{}
	if err := sqlx.SelectContext(ctx, exe, &users, exe.Rebind(q), args...); err != nil {
		return nil, core.NewStorageError("querying users", err)
	}
	return users, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	exe := repo.getExec(exec)

	var q string
	var arg interface{}
	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return user.User{}, user.ErrNotFound
		}
		q, arg = `SELECT `+userColumns+` FROM users WHERE id = ?`, filter.ID
	case filter.Email != "":
		q, arg = `SELECT `+userColumns+` FROM users WHERE email = ?`, filter.Email
	default:
		return user.User{}, user.ErrNotFound
	}

	var usr user.User
	if err := sqlx.GetContext(ctx, exe, &usr, exe.Rebind(q), arg); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user")
	}
	return usr, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	exe := repo.getExec(exec)
	q := `UPDATE users SET
		email = :email, name = :name, google_name = :google_name, is_admin = :is_admin, is_active = :is_active,
		password_hash = :password_hash, updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, exe, q, usr)
	if err != nil {
		return user.User{}, core.NewStorageError("updating user", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo userRepository) EnsureUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	exe := repo.getExec(exec)

	existing, err := repo.GetUser(ctx, user.GetFilter{Email: usr.Email}, exe)
	switch {
	case err == user.ErrNotFound:
		return repo.CreateUser(ctx, usr, exe)
	case err != nil:
		return user.User{}, err
	}

	// keep the roster name current; everything else belongs to the user
	if usr.GoogleName != "" && usr.GoogleName != existing.GoogleName {
		existing.GoogleName = usr.GoogleName
		existing.UpdatedAt = usr.UpdatedAt
		return repo.UpdateUser(ctx, existing, exe)
	}
	return existing, nil
}

// orderBy renders an ORDER BY clause from the allowed orderings, falling back to def.
func orderBy(ordering []core.DBOrdering, allowed map[string]bool, def string) string {
	orderList := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		if allowed[ord.Field] {
			orderList = append(orderList, ord.String())
		}
	}
	if len(orderList) == 0 {
		return " ORDER BY " + def
	}
	return " ORDER BY " + strings.Join(orderList, ", ")
}
