package models

import "time"

// AcademicRequest represents a student's suspension or dropout workflow
// instance. The worker advances its status and stamps processed_at; it never
// deletes requests.
type AcademicRequest struct {
	ID             string     `db:"id" json:"id"`
	StudentID      string     `db:"student_id" json:"student_id"`
	TypeID         string     `db:"type_id" json:"type_id"`
	StatusID       string     `db:"status_id" json:"status_id"`
	EnrollmentID   *string    `db:"enrollment_id" json:"enrollment_id,omitempty"`
	SuspendStart   *time.Time `db:"suspend_start" json:"suspend_start,omitempty"`
	SuspendEnd     *time.Time `db:"suspend_end" json:"suspend_end,omitempty"`
	ExpectedReturn *time.Time `db:"expected_return" json:"expected_return,omitempty"`
	EffectiveDate  *time.Time `db:"effective_date" json:"effective_date,omitempty"`
	ReasonCategory *string    `db:"reason_category" json:"reason_category,omitempty"`
	Reason         *string    `db:"reason" json:"reason,omitempty"`
	ProcessedAt    *time.Time `db:"processed_at" json:"processed_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// RequestDetail enriches AcademicRequest with student metadata needed for
// notification dispatch.
type RequestDetail struct {
	AcademicRequest
	StudentName  string  `db:"student_name" json:"student_name"`
	StudentEmail *string `db:"student_email" json:"student_email,omitempty"`
}

// DateField selects which request date column an eligibility predicate
// compares against "today".
type DateField string

const (
	DateFieldSuspendStart  DateField = "suspend_start"
	DateFieldSuspendEnd    DateField = "suspend_end"
	DateFieldEffectiveDate DateField = "effective_date"
)

// DateOp is the comparison operator of an eligibility predicate.
type DateOp string

const (
	DateOpEqual    DateOp = "="
	DateOpBefore   DateOp = "<"
	DateOpAtOrPast DateOp = "<="
)

// EligibilityFilter scopes the filtered read used to resolve which requests
// are eligible for one transition kind.
type EligibilityFilter struct {
	TypeID   string
	StatusID string
	Field    DateField
	Op       DateOp
	Date     time.Time
	Limit    int
}
