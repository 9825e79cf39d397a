package sqlxrepos_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/gigamonkey/help/core"
	"github.com/gigamonkey/help/core/class"
	"github.com/gigamonkey/help/core/user"
	"github.com/gigamonkey/help/storage/database/sqlx"
	"github.com/gigamonkey/help/tests"
)

func newClassRepos(t *testing.T) (core.DB, class.Repository, user.Repository) {
	db := testutil.PrepareDB(t)
	return db, sqlxrepos.NewClassRepository(db), sqlxrepos.NewUserRepository(db)
}

func TestClassRepository_Classes(t *testing.T) {
	ctx := context.Background()
	_, repo, _ := newClassRepos(t)

	csa := class.Class{ID: "csa", Name: "AP CSA", GoogleID: null.StringFrom("42")}
	_, err := repo.CreateClass(ctx, csa)
	require.NoError(t, err)
	testutil.CreateClass(t, repo, "itp", "Intro", nil)

	got, err := repo.GetClass(ctx, "csa")
	require.NoError(t, err)
	assert.Equal(t, csa, got)

	_, err = repo.GetClass(ctx, "lol")
	assert.Equal(t, class.ErrNotFound, err)

	got, err = repo.ClassByGoogleID(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "csa", got.ID)
	_, err = repo.ClassByGoogleID(ctx, "43")
	assert.Equal(t, class.ErrNotFound, err)

	ids, err := repo.GoogleIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"42"}, ids)

	// duplicate ids are a storage error
	_, err = repo.CreateClass(ctx, class.Class{ID: "csa", Name: "Other"})
	assert.IsType(t, &core.StorageError{}, err)
}

func TestClassRepository_Members(t *testing.T) {
	ctx := context.Background()
	db, repo, usrRepo := newClassRepos(t)

	testutil.CreateClass(t, repo, "csa", "AP CSA", map[string]class.Role{
		"tess@test.cd": class.RoleTeacher,
		"ben@test.cd":  class.RoleStudent,
		"ann@test.cd":  class.RoleStudent,
	})
	testutil.CreateClass(t, repo, "itp", "Intro", map[string]class.Role{"ann@test.cd": class.RoleHelper})
	testutil.CreateUser(t, usrRepo, "Ann", "ann@test.cd", "", false, true)

	// adding twice keeps the first role
	require.NoError(t, repo.AddMember(ctx, class.Member{Email: "ann@test.cd", ClassID: "csa", Role: class.RoleTeacher}))

	m, err := repo.GetMember(ctx, "ann@test.cd", "csa")
	require.NoError(t, err)
	assert.Equal(t, class.Member{Email: "ann@test.cd", ClassID: "csa", Role: class.RoleStudent, Name: "Ann"}, m)

	_, err = repo.GetMember(ctx, "tess@test.cd", "itp")
	assert.Equal(t, class.ErrNotMember, err)

	students, err := repo.Members(ctx, "csa", class.RoleStudent)
	require.NoError(t, err)
	require.Len(t, students, 2)
	// users without a name sort first
	assert.Equal(t, "ben@test.cd", students[0].Email)
	assert.Equal(t, "", students[0].Name)
	assert.Equal(t, "ann@test.cd", students[1].Email)

	memberships, err := repo.Memberships(ctx, "ann@test.cd")
	require.NoError(t, err)
	assert.Equal(t, []class.Membership{
		{Class: class.Class{ID: "csa", Name: "AP CSA"}, Role: class.RoleStudent},
		{Class: class.Class{ID: "itp", Name: "Intro"}, Role: class.RoleHelper},
	}, memberships)

	// removal inside a transaction
	err = core.WithTx(ctx, db, func(tx core.DBExecutor) error {
		return repo.RemoveMember(ctx, "ben@test.cd", "csa", tx)
	})
	require.NoError(t, err)
	students, err = repo.Members(ctx, "csa", class.RoleStudent)
	require.NoError(t, err)
	assert.Len(t, students, 1)
}
