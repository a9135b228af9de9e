package models

import "time"

// Enrollment captures a student's registration to a class. The request is the
// authority; the worker mirrors terminal request transitions onto it.
type Enrollment struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	ClassID   *string   `db:"class_id" json:"class_id,omitempty"`
	StatusID  string    `db:"status_id" json:"status_id"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// EnrollmentMutation describes a synchronized enrollment update derived from a
// request transition.
type EnrollmentMutation struct {
	EnrollmentID string
	StatusID     string
	ClearClass   bool
}
