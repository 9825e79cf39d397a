package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/gigamonkey/help/core"
)

func TestMakeVerifyToken(t *testing.T) {
	core.Conf.SecretKey = "secret"
	core.Conf.PasswordResetTimeoutDelta = 3 * 24 * time.Hour

	now := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	tokenClock = func() time.Time { return now }
	defer func() { tokenClock = nil }()

	usr := User{
		ID:        "9f1c2c9e-7c55-4d7e-9a55-3d5b0d1b6c11",
		Name:      "T",
		Email:     "t@test.test",
		IsActive:  true,
		LastLogin: null.TimeFrom(now.Add(-time.Hour)),
	}
	require.NoError(t, usr.SetPassword("pwd"))
	token := MakeToken(usr)

	changedPassword := usr
	require.NoError(t, changedPassword.SetPassword("another pwd"))
	loggedIn := usr
	loggedIn.LastLogin = null.TimeFrom(now)
	otherEmail := usr
	otherEmail.Email = "u@test.test"

	tests := []struct {
		name    string
		usr     User
		token   string
		after   time.Duration
		wantErr error
	}{
		{name: "no token", usr: usr, wantErr: errInvalidToken},
		{name: "no separator", usr: usr, token: "lmaooolol", wantErr: errInvalidToken},
		{name: "no expiry", usr: usr, token: ".sig", wantErr: errInvalidToken},
		{name: "bad expiry", usr: usr, token: "$$.sig", wantErr: errInvalidToken},
		{name: "bad signature", usr: usr, token: token + "x", wantErr: errInvalidToken},
		{name: "password changed", usr: changedPassword, token: token, wantErr: errInvalidToken},
		{name: "logged in since", usr: loggedIn, token: token, wantErr: errInvalidToken},
		{name: "email changed", usr: otherEmail, token: token, wantErr: errInvalidToken},
		{name: "expired", usr: usr, token: token, after: 3*24*time.Hour + time.Second, wantErr: errTokenExpired},
		{name: "last valid second", usr: usr, token: token, after: 3 * 24 * time.Hour},
		{name: "valid", usr: usr, token: token},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokenClock = func() time.Time { return now.Add(tt.after) }
			assert.Equal(t, tt.wantErr, verifyToken(tt.usr, tt.token))
		})
	}
}

func TestEncodeDecodeUID(t *testing.T) {
	usr := User{ID: "9f1c2c9e-7c55-4d7e-9a55-3d5b0d1b6c11"}
	id, err := decodeUID(EncodeUID(usr))
	require.NoError(t, err)
	assert.Equal(t, usr.ID, id)

	_, err = decodeUID("***")
	assert.Error(t, err)
}
