package journal

import (
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/gigamonkey/help/core"
)

type Entry struct {
	ID        int64       `json:"id" db:"id"`
	Email     string      `json:"email" db:"email"`
	ClassID   string      `json:"class_id" db:"class_id"`
	Text      string      `json:"text" db:"text"`
	CreatedAt int64       `json:"created_at" db:"created_at"` // unix seconds
	PromptID  null.Int64  `json:"prompt_id" db:"prompt_id"`
	Prompt    null.String `json:"prompt" db:"prompt"` // prompt text, read only
}

type Prompt struct {
	ID        int64      `json:"id" db:"id"`
	ClassID   string     `json:"class_id" db:"class_id"`
	Text      string     `json:"text" db:"text"`
	CreatedAt int64      `json:"created_at" db:"created_at"`
	ClosedAt  null.Int64 `json:"closed_at" db:"closed_at"`
}

func (p Prompt) IsOpen() bool { return !p.ClosedAt.Valid }

// Response is one student's answer to a prompt.
type Response struct {
	Prompt string `json:"prompt" db:"prompt"`
	Name   string `json:"name" db:"name"`
	Email  string `json:"email" db:"email"`
	Text   string `json:"text" db:"text"`
}

// Day groups consecutive entries written on the same local date, prompted or not.
type Day struct {
	Date     string  `json:"date"` // yyyy-mm-dd
	Nice     string  `json:"nice"`
	Prompted bool    `json:"prompted"`
	Entries  []Entry `json:"entries"`
}

type Journal struct {
	Days    []Day    `json:"days"`
	Prompts []Prompt `json:"prompts"` // open prompts not yet answered
}

type PromptLists struct {
	Open []Prompt `json:"open"`
	Old  []Prompt `json:"old"`
}

type PromptResponse struct {
	PromptID int64  `json:"prompt_id" validate:"required"`
	Text     string `json:"text" validate:"required"`
}

// NewEntry is either a free journal entry or a set of prompt responses.
type NewEntry struct {
	Text      string           `json:"text"`
	Responses []PromptResponse `json:"responses" validate:"omitempty,dive"`
}

func (ne *NewEntry) Validate() error {
	ne.Text = core.CleanString(ne.Text)
	responses := ne.Responses[:0]
	for _, r := range ne.Responses {
		if r.Text = core.CleanString(r.Text); r.Text != "" {
			responses = append(responses, r)
		}
	}
	ne.Responses = responses

	if ne.Text == "" && len(ne.Responses) == 0 {
		return core.NewValidationError(errors.New("nothing to write"), core.FieldError{Field: "text", Error: "this field is required"})
	}
	return core.Validate.Struct(ne)
}

type NewPrompt struct {
	Text string `json:"text" validate:"required"`
}

func (np *NewPrompt) Validate() error {
	np.Text = core.CleanString(np.Text)
	return core.Validate.Struct(np)
}

// GroupEntries groups entries, given newest first, into days. Days stay newest
// first; entries inside a day are oldest first.
func GroupEntries(entries []Entry, loc *time.Location) []Day {
	days := []Day{}
	var current *Day
	for _, e := range entries {
		t := time.Unix(e.CreatedAt, 0).In(loc)
		date := t.Format("2006-01-02")
		prompted := e.PromptID.Valid

		if current == nil || current.Date != date || current.Prompted != prompted {
			days = append(days, Day{Date: date, Nice: t.Format("Monday, January 2, 2006"), Prompted: prompted})
			current = &days[len(days)-1]
		}
		current.Entries = append([]Entry{e}, current.Entries...)
	}
	return days
}

// SplitPrompts separates open prompts from closed ones. Closed prompts are
// deduplicated by text, the first one in prompts order winning.
func SplitPrompts(prompts []Prompt) PromptLists {
	lists := PromptLists{Open: []Prompt{}, Old: []Prompt{}}
	seen := make(map[string]bool)
	for _, p := range prompts {
		if p.IsOpen() {
			lists.Open = append(lists.Open, p)
		}
		if !seen[p.Text] {
			seen[p.Text] = true
			if !p.IsOpen() {
				lists.Old = append(lists.Old, p)
			}
		}
	}
	return lists
}
