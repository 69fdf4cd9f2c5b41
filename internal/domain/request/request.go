// Package request defines wiki creation requests and their comment threads.
package request

import "time"

// Status is the lifecycle state of a creation request.
type Status string

// Request statuses. Pending is the only non-terminal state.
const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDeclined Status = "declined"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusDeclined:
		return true
	}
	return false
}

// Request is one submitted wiki creation request. At most one pending request
// exists per DBName at any time.
type Request struct {
	ID          int64     `json:"id"`
	DBName      string    `json:"dbname"`
	Sitename    string    `json:"sitename"`
	Language    string    `json:"language"`
	Category    string    `json:"category"`
	Private     bool      `json:"private"`
	URL         string    `json:"url"`
	Requester   string    `json:"requester"`
	Reason      string    `json:"reason"`
	Status      Status    `json:"status"`
	Comment     string    `json:"comment"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// SubmitData holds the caller-supplied fields of a new request. DBName is the
// raw candidate identifier before sanitisation.
type SubmitData struct {
	DBName   string `json:"dbname"`
	Sitename string `json:"sitename"`
	Language string `json:"language"`
	Category string `json:"category"`
	Private  bool   `json:"private"`
	Reason   string `json:"reason"`
}

// Comment is one append-only entry in a request's discussion thread. Comments
// are never mutated or deleted and remain writable after resolution.
type Comment struct {
	RequestID int64     `json:"request_id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
