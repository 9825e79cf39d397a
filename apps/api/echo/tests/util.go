package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/gigamonkey/help/apps/api/echo"
	"github.com/gigamonkey/help/core"
	"github.com/gigamonkey/help/core/class"
	"github.com/gigamonkey/help/core/help"
	"github.com/gigamonkey/help/core/journal"
	"github.com/gigamonkey/help/core/user"
	"github.com/gigamonkey/help/services/email"
	"github.com/gigamonkey/help/storage/database/sqlx"
	"github.com/gigamonkey/help/tests"
)

var (
	usrRepo   user.Repository
	usrSvc    user.Service
	classRepo class.Repository
	setNow    func(int64)

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
)

func setup(t *testing.T) Server {
	// set up DB & repos
	db := testutil.PrepareDB(t)
	clock, moveClock := testutil.FixedClock(1600000000)
	setNow = moveClock

	usrRepo = sqlxrepos.NewUserRepository(db)
	classRepo = sqlxrepos.NewClassRepository(db)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock()
	usrSvc = user.NewServiceMock(usrRepo, user.NewConfigDirectory(core.Conf), mailSvc)
	logger := testutil.NewLogger()
	helpSvc := help.NewService(sqlxrepos.NewHelpRepository(db, clock), usrSvc, mailSvc, logger)
	journalSvc := journal.NewService(db, sqlxrepos.NewJournalRepository(db, clock), core.Conf.Location())
	classSvc := class.NewService(class.Deps{
		DB:       db,
		Repo:     classRepo,
		Users:    usrSvc,
		Help:     helpSvc,
		Journal:  journalSvc,
		Location: core.Conf.Location(),
	})

	// set up server
	return NewServer(
		&Options{
			DisableReqLogs: true,
			Logger:         logger,
			UserSvc:        usrSvc,
			HelpSvc:        helpSvc,
			ClassSvc:       classSvc,
			JournalSvc:     journalSvc,
		},
	)
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(usr, usrSvc.IsAdmin(usr))
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

// nolint
func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	assert.Equal(t, tt.wantCode, rec.Code, "code")
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

// runHTTPTests serves every test case against app, one subtest each.
func runHTTPTests(t *testing.T, app Server, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

// decode unmarshals the body of rec into v.
func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("json.Unmarshal(%q) failed: %v", rec.Body.String(), err)
	}
}

// createMember creates an active user with a password and adds them to the class.
func createMember(t *testing.T, name, email string, classID string, role class.Role) user.User {
	usr := testutil.CreateUser(t, usrRepo, name, email, "Passw0rd!x", false, true)
	if classID != "" {
		testutil.AddMember(t, classRepo, classID, email, role)
	}
	return usr
}
