package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/gigamonkey/help/core"
	"github.com/gigamonkey/help/core/class"
)

const memberSelect = `SELECT m.email, m.class_id, m.role,
		COALESCE(NULLIF(u.name, ''), u.google_name, '') AS name
	FROM class_members AS m
	LEFT JOIN users AS u ON u.email = m.email`

type classRepository struct {
	exec core.DBExecutor
}

var _ class.Repository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(exec core.DBExecutor) *classRepository {
	return &classRepository{exec: exec}
}

func (repo classRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func (repo classRepository) CreateClass(ctx context.Context, cls class.Class, exec ...core.DBExecutor) (class.Class, error) {
	q := `INSERT INTO classes (id, name, google_id) VALUES (:id, :name, :google_id)`
	if _, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, cls); err != nil {
		return class.Class{}, core.NewStorageError("inserting class", err)
	}
	return cls, nil
}

func (repo classRepository) GetClass(ctx context.Context, id string, exec ...core.DBExecutor) (class.Class, error) {
	exe := repo.getExec(exec)
	var cls class.Class
	if err := sqlx.GetContext(ctx, exe, &cls, exe.Rebind(`SELECT id, name, google_id FROM classes WHERE id = ?`), id); err != nil {
		if err == sql.ErrNoRows {
			return class.Class{}, class.ErrNotFound
		}
		return class.Class{}, core.NewStorageError("finding class", err)
	}
	return cls, nil
}

func (repo classRepository) ClassByGoogleID(ctx context.Context, googleID string) (class.Class, error) {
	var cls class.Class
	q := repo.exec.Rebind(`SELECT id, name, google_id FROM classes WHERE google_id = ?`)
	if err := sqlx.GetContext(ctx, repo.exec, &cls, q, googleID); err != nil {
		if err == sql.ErrNoRows {
			return class.Class{}, class.ErrNotFound
		}
		return class.Class{}, core.NewStorageError("finding class by google id", err)
	}
	return cls, nil
}

func (repo classRepository) GoogleIDs(ctx context.Context) ([]string, error) {
	ids := []string{}
	q := `SELECT google_id FROM classes WHERE google_id IS NOT NULL ORDER BY google_id`
	if err := sqlx.SelectContext(ctx, repo.exec, &ids, q); err != nil {
		return nil, core.NewStorageError("listing google ids", err)
	}
	return ids, nil
}

func (repo classRepository) Memberships(ctx context.Context, email string) ([]class.Membership, error) {
	q := `SELECT c.id, c.name, c.google_id, m.role
		FROM class_members AS m
		JOIN classes AS c ON c.id = m.class_id
		WHERE m.email = ?
		ORDER BY c.name ASC`
	items := []class.Membership{}
	if err := sqlx.SelectContext(ctx, repo.exec, &items, repo.exec.Rebind(q), email); err != nil {
		return nil, core.NewStorageError("listing memberships", err)
	}
	return items, nil
}

func (repo classRepository) GetMember(ctx context.Context, email, classID string) (class.Member, error) {
	var m class.Member
	q := repo.exec.Rebind(memberSelect + ` WHERE m.email = ? AND m.class_id = ?`)
	if err := sqlx.GetContext(ctx, repo.exec, &m, q, email, classID); err != nil {
		if err == sql.ErrNoRows {
			return class.Member{}, class.ErrNotMember
		}
		return class.Member{}, core.NewStorageError("finding class member", err)
	}
	return m, nil
}

func (repo classRepository) AddMember(ctx context.Context, m class.Member, exec ...core.DBExecutor) error {
	q := `INSERT INTO class_members (email, class_id, role) VALUES (:email, :class_id, :role)
		ON CONFLICT (email, class_id) DO NOTHING`
	if _, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, m); err != nil {
		return core.NewStorageError("adding class member", err)
	}
	return nil
}

func (repo classRepository) RemoveMember(ctx context.Context, email, classID string, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)
	q := exe.Rebind(`DELETE FROM class_members WHERE email = ? AND class_id = ?`)
	if _, err := exe.ExecContext(ctx, q, email, classID); err != nil {
		return core.NewStorageError("removing class member", err)
	}
	return nil
}

func (repo classRepository) Members(ctx context.Context, classID string, role class.Role, exec ...core.DBExecutor) ([]class.Member, error) {
	exe := repo.getExec(exec)
	q := exe.Rebind(memberSelect + ` WHERE m.class_id = ? AND m.role = ? ORDER BY name ASC, m.email ASC`)
	items := []class.Member{}
	if err := sqlx.SelectContext(ctx, exe, &items, q, classID, role); err != nil {
		return nil, core.NewStorageError("listing class members", err)
	}
	return items, nil
}
