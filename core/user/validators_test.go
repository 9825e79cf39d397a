package user

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/gigamonkey/help/core"
)

func fieldErrors(err error) map[string]string {
	errs := map[string]string{}
	if vErrs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range vErrs {
			errs[e.Field()] = e.Translate(core.Translator)
		}
	}
	return errs
}

func TestNewUser_Validate(t *testing.T) {
	tests := []struct {
		name string
		pwd  string
		want string // password error, empty when valid
	}{
		{name: "too short", pwd: "Ab1!", want: pwdMinLenText},
		{name: "whitespace", pwd: "Passw0rd !", want: pwdNoSpaceText},
		{name: "all numeric", pwd: "1234567890", want: pwdNotAllNumText},
		{name: "similar to email", pwd: "annlee@test.cd", want: pwdAttrSimText},
		{name: "similar to name", pwd: "AnnaLeeee", want: pwdAttrSimText},
		{name: "valid", pwd: "Passw0rd!x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nu := NewUser{Email: " AnnLee@Test.cd ", Name: "Anna Lee", Password: tt.pwd, PasswordConfirm: tt.pwd}
			err := nu.Validate()
			assert.Equal(t, "annlee@test.cd", nu.Email)
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.want, fieldErrors(err)["password"])
		})
	}
}

func TestResetUserPassword_Validate(t *testing.T) {
	rp := ResetUserPassword{Token: "t", UID: "u", Password: "Passw0rd!x", PasswordConfirm: "lol"}
	errs := fieldErrors(rp.Validate())
	assert.Contains(t, errs, "password_confirm")

	rp.PasswordConfirm = rp.Password
	assert.NoError(t, rp.Validate())

	rp = ResetUserPassword{Token: "t", UID: "u", Password: "short", PasswordConfirm: "short"}
	assert.Equal(t, pwdMinLenText, fieldErrors(rp.Validate())["password"])
}

func TestUpdateProfile_Validate(t *testing.T) {
	up := UpdateProfile{Name: "  "}
	assert.Equal(t, "this field is required", fieldErrors(up.Validate())["name"])

	up = UpdateProfile{Name: " Ann "}
	assert.NoError(t, up.Validate())
	assert.Equal(t, "Ann", up.Name)
}
