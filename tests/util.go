package testutil

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/gigamonkey/help/core"
	"github.com/gigamonkey/help/core/class"
	"github.com/gigamonkey/help/core/user"
	"github.com/gigamonkey/help/services/logger"
	"github.com/gigamonkey/help/storage/database"
)

var dbSeq int64

// PrepareDB opens a fresh, migrated in-memory sqlite database closed at the end of the test.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()

	conf := *core.Conf
	conf.Database.Engine = database.EngineSqlite
	conf.Database.Path = fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", atomic.AddInt64(&dbSeq, 1))

	db, err := database.Open(&conf)
	if err != nil {
		t.Fatalf("database.Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db, "up"); err != nil {
		t.Fatalf("database.Migrate() failed: %v", err)
	}
	return db
}

// NewLogger returns a core.Logger that discards everything.
func NewLogger() core.Logger {
	std := logrus.New()
	std.Out = io.Discard
	l := logsvc.NewRollbarLogger(std, core.Conf)
	l.Enable(false)
	return l
}

// FixedClock returns a clock stuck at ts (unix seconds) and a func to move it.
func FixedClock(ts int64) (core.Clock, func(to int64)) {
	now := ts
	clock := func() time.Time { return time.Unix(atomic.LoadInt64(&now), 0) }
	return clock, func(to int64) { atomic.StoreInt64(&now, to) }
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd string,
	isAdmin, isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Email:     email,
		IsAdmin:   isAdmin,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

// CreateClass inserts a class and its members, given as email to role.
func CreateClass(t *testing.T, repo class.Repository, id, name string, members map[string]class.Role) class.Class {
	t.Helper()

	cls, err := repo.CreateClass(context.Background(), class.Class{ID: id, Name: name})
	if err != nil {
		t.Fatalf("createClass() failed: %v", err)
	}
	for email, role := range members {
		AddMember(t, repo, id, email, role)
	}
	return cls
}

func AddMember(t *testing.T, repo class.Repository, classID, email string, role class.Role) {
	t.Helper()

	m := class.Member{Email: email, ClassID: classID, Role: role}
	if err := repo.AddMember(context.Background(), m); err != nil {
		t.Fatalf("addMember() failed: %v", err)
	}
}
