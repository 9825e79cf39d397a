package rostersvc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gigamonkey/help/core/class"
)

const roster = `[
	{"courseId": "42", "userId": "1", "profile": {"id": "1", "emailAddress": "ann@test.cd", "name": {"givenName": "Ann", "familyName": "Lee", "fullName": "Ann Lee"}}},
	{"courseId": "42", "userId": "2", "profile": {"id": "2", "name": {"fullName": "Hidden Email"}}},
	{"courseId": "42", "userId": "3", "profile": {"id": "3", "emailAddress": "ben@test.cd", "name": {"fullName": "Ben Ode"}}}
]`

func TestReadStudents(t *testing.T) {
	students, err := ReadStudents(strings.NewReader(roster))
	require.NoError(t, err)
	assert.Equal(t, []class.RosterStudent{
		{Email: "ann@test.cd", FullName: "Ann Lee"},
		{Email: "ben@test.cd", FullName: "Ben Ode"},
	}, students)

	_, err = ReadStudents(strings.NewReader(`{"lol": 1}`))
	assert.Error(t, err)
}
