package class

import (
	"github.com/volatiletech/null/v8"

	"github.com/gigamonkey/help/core"
)

type Role string

const (
	RoleTeacher Role = "teacher"
	RoleHelper  Role = "helper"
	RoleStudent Role = "student"
)

// CanHelp reports whether the role may work the help queue.
func (r Role) CanHelp() bool {
	return r == RoleTeacher || r == RoleHelper
}

func (r Role) IsTeacher() bool {
	return r == RoleTeacher
}

type Class struct {
	ID       string      `json:"id" db:"id"`
	Name     string      `json:"name" db:"name"`
	GoogleID null.String `json:"google_id" db:"google_id"`
}

type Member struct {
	Email   string `json:"email" db:"email"`
	ClassID string `json:"class_id" db:"class_id"`
	Role    Role   `json:"role" db:"role"`
	Name    string `json:"name" db:"name"` // display name, read only
}

// Membership is a class seen from one of its members.
type Membership struct {
	Class
	Role Role `json:"role" db:"role"`
}

// Course is a class as known by the roster source.
type Course struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Section string `json:"section"`
}

// ClassName is the name a class imported from c gets.
func (c Course) ClassName() string {
	if c.Section == "" {
		return c.Name
	}
	return c.Name + " - " + c.Section
}

type RosterStudent struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

type StudentStats struct {
	Email          string `json:"email"`
	Name           string `json:"name"`
	Role           Role   `json:"role"`
	JournalEntries int    `json:"journal_entries"`
	JournalDays    int    `json:"journal_days"`
	HelpRequests   int    `json:"help_requests"`
}

// statsFields are the StudentStats fields a listing can be ordered by.
var statsFields = map[string]func(a, b StudentStats) int{
	"email":           func(a, b StudentStats) int { return compareStrings(a.Email, b.Email) },
	"name":            func(a, b StudentStats) int { return compareStrings(a.Name, b.Name) },
	"journal_entries": func(a, b StudentStats) int { return a.JournalEntries - b.JournalEntries },
	"journal_days":    func(a, b StudentStats) int { return a.JournalDays - b.JournalDays },
	"help_requests":   func(a, b StudentStats) int { return a.HelpRequests - b.HelpRequests },
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// statsLess builds a less func from ordering, defaulting to name then email.
func statsLess(stats []StudentStats, ordering []core.DBOrdering) func(i, j int) bool {
	ordering = append(ordering, core.DBOrdering{Field: "name", Ascending: true}, core.DBOrdering{Field: "email", Ascending: true})
	return func(i, j int) bool {
		for _, ord := range ordering {
			cmp, ok := statsFields[ord.Field]
			if !ok {
				continue
			}
			c := cmp(stats[i], stats[j])
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	}
}
