package user

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gigamonkey/help/core"
)

// Password reset links carry the user id and a token "<expiry>.<signature>", the expiry being unix
// seconds in base 36. The signature covers the user's id, email, password hash and last login, so
// a new password or a login voids every outstanding link.

var (
	resetKeySalt = []byte("gigamonkey/help password reset")
	tokenClock   core.Clock // mockable

	errInvalidToken = errors.New("invalid token")
	errTokenExpired = errors.New("token expired")
)

// EncodeUID encodes the ID of usr for a reset link.
func EncodeUID(usr User) string {
	return base64.RawURLEncoding.EncodeToString([]byte(usr.ID))
}

func decodeUID(uid string) (string, error) {
	id, err := base64.RawURLEncoding.DecodeString(uid)
	return string(id), err
}

// MakeToken returns a password reset token for usr, valid for Conf.PasswordResetTimeoutDelta.
func MakeToken(usr User) string {
	expires := tokenClock.UnixNow() + int64(core.Conf.PasswordResetTimeoutDelta/time.Second)
	return signResetToken(usr, expires)
}

func verifyToken(usr User, token string) error {
	sep := strings.IndexByte(token, '.')
	if sep <= 0 {
		return errInvalidToken
	}
	expires, err := strconv.ParseInt(token[:sep], 36, 64)
	if err != nil {
		return errInvalidToken
	}
	if !hmac.Equal([]byte(signResetToken(usr, expires)), []byte(token)) {
		return errInvalidToken
	}
	if tokenClock.UnixNow() > expires {
		return errTokenExpired
	}
	return nil
}

func signResetToken(usr User, expires int64) string {
	exp := strconv.FormatInt(expires, 36)

	key := make([]byte, 0, len(resetKeySalt)+len(core.Conf.SecretKey))
	key = append(append(key, resetKeySalt...), core.Conf.SecretKey...)
	mac := hmac.New(sha256.New, key)

	var lastLogin string
	if usr.LastLogin.Valid {
		lastLogin = strconv.FormatInt(usr.LastLogin.Time.Unix(), 10)
	}
	for _, part := range []string{usr.ID, usr.Email, string(usr.PasswordHash), lastLogin, exp} {
		mac.Write([]byte(part))
		mac.Write([]byte{0})
	}
	return exp + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
