package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/gigamonkey/help/apps/api/echo"
	"github.com/gigamonkey/help/core/class"
	"github.com/gigamonkey/help/core/help"
	"github.com/gigamonkey/help/core/journal"
	"github.com/gigamonkey/help/tests"
)

func Test_classApi_memberships(t *testing.T) {
	app := setup(t)
	testutil.CreateClass(t, classRepo, "csa", "AP CSA", nil)
	testutil.CreateClass(t, classRepo, "itp", "Intro", nil)

	ann := getToken(t, createMember(t, "Ann", "ann@test.cd", "csa", class.RoleStudent))
	testutil.AddMember(t, classRepo, "itp", "ann@test.cd", class.RoleHelper)
	nobody := getToken(t, createMember(t, "Nob", "nob@test.cd", "", ""))

	csa := class.Membership{Class: class.Class{ID: "csa", Name: "AP CSA"}, Role: class.RoleStudent}
	itp := class.Membership{Class: class.Class{ID: "itp", Name: "Intro"}, Role: class.RoleHelper}

	runHTTPTests(t, app, []httpTest{
		{name: "auth required", path: "/v1/classes", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "no classes", path: "/v1/classes", token: nobody, wantCode: http.StatusOK, wantData: marchallList(t)},
		{name: "ordered by name", path: "/v1/classes", token: ann, wantCode: http.StatusOK, wantData: marchallList(t, csa, itp)},
		{name: "retrieve", path: "/v1/c/itp", token: ann, wantCode: http.StatusOK, wantData: marchallObj(t, itp)},
		{name: "retrieve non member", path: "/v1/c/itp", token: nobody, wantCode: http.StatusNotFound},
		{name: "retrieve unknown", path: "/v1/c/lol", token: ann, wantCode: http.StatusNotFound},
	})
}

func Test_classApi_create(t *testing.T) {
	app := setup(t)
	admin := getToken(t, testutil.CreateUser(t, usrRepo, "Root", "root@test.cd", "Passw0rd!x", true, true))
	user := getToken(t, createMember(t, "Ann", "ann@test.cd", "", ""))
	testutil.CreateClass(t, classRepo, "csa", "AP CSA", nil)

	runHTTPTests(t, app, []httpTest{
		{name: "auth required", method: http.MethodPost, path: "/v1/classes", wantCode: http.StatusUnauthorized},
		{
			name: "admin only", method: http.MethodPost, path: "/v1/classes", token: user,
			body: marchallObj(t, NewClassRequest{Name: "Intro"}), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "name required", method: http.MethodPost, path: "/v1/classes", token: admin,
			body: marchallObj(t, NewClassRequest{Name: " "}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"name": "this field is required"}),
		},
		{
			name: "bad teacher email", method: http.MethodPost, path: "/v1/classes", token: admin,
			body: marchallObj(t, NewClassRequest{Name: "Intro", TeacherEmail: "lol"}), wantCode: http.StatusBadRequest,
		},
		{
			name: "id taken", method: http.MethodPost, path: "/v1/classes", token: admin,
			body: marchallObj(t, NewClassRequest{ID: "CSA", Name: "Other"}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"id": class.ErrClassExists.Error()}),
		},
		{
			name: "google courses without a roster", path: "/v1/classes/google", token: admin,
			wantCode: http.StatusServiceUnavailable, wantData: marchallObj(t, httpErr{Error: class.ErrNoRoster.Error()}),
		},
	})

	t.Run("created with the admin as teacher", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/classes", admin, marchallObj(t, NewClassRequest{Name: "Intro to Programming"}))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var cls class.Class
		decode(t, rec, &cls)
		assert.Equal(t, "intro-to-programming", cls.ID)
		assert.Equal(t, "Intro to Programming", cls.Name)

		m, err := classRepo.GetMember(req.Context(), "root@test.cd", cls.ID)
		require.NoError(t, err)
		assert.Equal(t, class.RoleTeacher, m.Role)
	})

	t.Run("created for another teacher", func(t *testing.T) {
		body := marchallObj(t, NewClassRequest{ID: "bio", Name: "Biology", TeacherEmail: "Tess@Test.cd"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/classes", admin, body)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		// the teacher gets a passwordless account
		usr, err := usrSvc.GetByEmail(req.Context(), "tess@test.cd")
		require.NoError(t, err)
		assert.Empty(t, usr.PasswordHash)

		m, err := classRepo.GetMember(req.Context(), "tess@test.cd", "bio")
		require.NoError(t, err)
		assert.Equal(t, class.RoleTeacher, m.Role)
	})
}

func Test_classApi_studentStats(t *testing.T) {
	app := setup(t)
	testutil.CreateClass(t, classRepo, "csa", "AP CSA", nil)
	teacher := getToken(t, createMember(t, "Tess", "tess@test.cd", "csa", class.RoleTeacher))
	helper := getToken(t, createMember(t, "Hal", "hal@test.cd", "csa", class.RoleHelper))
	ann := getToken(t, createMember(t, "Ann", "ann@test.cd", "csa", class.RoleStudent))
	ben := getToken(t, createMember(t, "Ben", "ben@test.cd", "csa", class.RoleStudent))

	post := func(path, token string, body []byte) {
		t.Helper()
		req, rec := newAuthRequest(http.MethodPost, path, token, body)
		app.ServeHTTP(rec, req)
		require.Less(t, rec.Code, 300, rec.Body.String())
	}

	// two entries on the same day, one a day later
	setNow(1600000000)
	post("/v1/c/csa/journal", ben, marchallObj(t, journal.NewEntry{Text: "one"}))
	post("/v1/c/csa/journal", ben, marchallObj(t, journal.NewEntry{Text: "two"}))
	setNow(1600000000 + 86400)
	post("/v1/c/csa/journal", ben, marchallObj(t, journal.NewEntry{Text: "three"}))
	post("/v1/c/csa/help", ann, marchallObj(t, help.NewRequest{Problem: "X"}))
	post("/v1/c/csa/help", ann, marchallObj(t, help.NewRequest{Problem: "Y"}))

	annStats := class.StudentStats{Email: "ann@test.cd", Name: "Ann", Role: class.RoleStudent, HelpRequests: 2}
	benStats := class.StudentStats{Email: "ben@test.cd", Name: "Ben", Role: class.RoleStudent, JournalEntries: 3, JournalDays: 2}

	runHTTPTests(t, app, []httpTest{
		{name: "teachers only", path: "/v1/c/csa/students", token: helper, wantCode: http.StatusForbidden},
		{name: "default by name", path: "/v1/c/csa/students", token: teacher, wantCode: http.StatusOK, wantData: marchallList(t, annStats, benStats)},
		{name: "by journal entries desc", path: "/v1/c/csa/students?ordering=-journal_entries", token: teacher, wantCode: http.StatusOK, wantData: marchallList(t, benStats, annStats)},
		{name: "unknown fields ignored", path: "/v1/c/csa/students?ordering=password,help_requests", token: teacher, wantCode: http.StatusOK, wantData: marchallList(t, benStats, annStats)},
	})
}
