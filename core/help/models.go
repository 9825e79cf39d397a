package help

import (
	"encoding/json"

	"github.com/volatiletech/null/v8"

	"github.com/gigamonkey/help/core"
)

// Status is derived from the lifecycle timestamps of a HelpRequest. It is never stored.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusDiscarded  Status = "discarded"
)

var AllStatuses = []Status{StatusQueued, StatusInProgress, StatusDone, StatusDiscarded}

func (s Status) String() string { return string(s) }

// HelpRequest is one student's request for help in a class.
// Requester and Helper are user emails; CreatedAt and the lifecycle fields are unix seconds.
type HelpRequest struct {
	ID          int64       `json:"id" db:"id"`
	Requester   string      `json:"requester" db:"requester"`
	Name        null.String `json:"name" db:"-"`
	ClassID     string      `json:"class_id" db:"class_id"`
	Problem     string      `json:"problem" db:"problem"`
	Tried       string      `json:"tried" db:"tried"`
	CreatedAt   int64       `json:"created_at" db:"created_at"`
	Helper      null.String `json:"helper" db:"helper"`
	StartTime   null.Int64  `json:"start_time" db:"start_time"`
	EndTime     null.Int64  `json:"end_time" db:"end_time"`
	DiscardTime null.Int64  `json:"discard_time" db:"discard_time"`
}

// Status applies the precedence discarded > done > in progress > queued.
func (r HelpRequest) Status() Status {
	switch {
	case r.DiscardTime.Valid:
		return StatusDiscarded
	case r.EndTime.Valid:
		return StatusDone
	case r.StartTime.Valid:
		return StatusInProgress
	default:
		return StatusQueued
	}
}

func (r HelpRequest) MarshalJSON() ([]byte, error) {
	type helpRequest HelpRequest
	return json.Marshal(struct {
		helpRequest
		Status Status `json:"status"`
	}{helpRequest(r), r.Status()})
}

// NewRequest contains what a student submits when asking for help.
type NewRequest struct {
	Problem string `json:"problem" validate:"required"`
	Tried   string `json:"tried"`
}

func (nr *NewRequest) Validate() error {
	nr.Problem = core.CleanString(nr.Problem)
	nr.Tried = core.CleanString(nr.Tried)
	return core.Validate.Struct(nr)
}

type takenEmailData struct {
	Name    string
	Helper  string
	ClassID string
	Problem string
}
