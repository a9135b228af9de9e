package models

import "time"

// History actions recorded by the worker.
const (
	HistoryActionExpired = "REQUEST_EXPIRED"
)

// RequestHistory is an audit entry appended when a request is expired,
// capturing the prior enrollment attachment.
type RequestHistory struct {
	ID           string    `db:"id" json:"id"`
	RequestID    string    `db:"request_id" json:"request_id"`
	Action       string    `db:"action" json:"action"`
	StatusID     string    `db:"status_id" json:"status_id"`
	EnrollmentID *string   `db:"enrollment_id" json:"enrollment_id,omitempty"`
	Note         *string   `db:"note" json:"note,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
