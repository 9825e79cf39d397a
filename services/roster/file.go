package rostersvc

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"

	"github.com/gigamonkey/help/core/class"
)

// rosterEntry is one student as exported from the Classroom students listing.
type rosterEntry struct {
	Profile struct {
		EmailAddress string `json:"emailAddress"`
		Name         struct {
			FullName string `json:"fullName"`
		} `json:"name"`
	} `json:"profile"`
}

// ReadStudents decodes a JSON array of Classroom student resources.
func ReadStudents(r io.Reader) ([]class.RosterStudent, error) {
	var entries []rosterEntry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, errors.Wrap(err, "decoding roster")
	}

	students := make([]class.RosterStudent, 0, len(entries))
	for _, e := range entries {
		if e.Profile.EmailAddress == "" {
			continue
		}
		students = append(students, class.RosterStudent{Email: e.Profile.EmailAddress, FullName: e.Profile.Name.FullName})
	}
	return students, nil
}
