package models

// LookupCategory groups symbolic codes resolved against the lookup table.
type LookupCategory string

const (
	LookupRequestType      LookupCategory = "REQUEST_TYPE"
	LookupRequestStatus    LookupCategory = "REQUEST_STATUS"
	LookupEnrollmentStatus LookupCategory = "ENROLLMENT_STATUS"
)

// RequestType is the closed enumeration of academic request categories.
type RequestType string

const (
	RequestTypeSuspension RequestType = "SUSPENSION"
	RequestTypeDropout    RequestType = "DROPOUT"
)

// RequestStatus is the closed enumeration of request lifecycle states.
type RequestStatus string

const (
	RequestStatusPending        RequestStatus = "PENDING"
	RequestStatusApproved       RequestStatus = "APPROVED"
	RequestStatusSuspended      RequestStatus = "SUSPENDED"
	RequestStatusAwaitingReturn RequestStatus = "AWAITING_RETURN"
	RequestStatusAutoDroppedOut RequestStatus = "AUTO_DROPPED_OUT"
	RequestStatusCompleted      RequestStatus = "COMPLETED"
	RequestStatusExpired        RequestStatus = "EXPIRED"
)

// EnrollmentStatus is the closed enumeration of enrollment states the worker
// synchronizes as a side effect of request transitions.
type EnrollmentStatus string

const (
	EnrollmentStatusEnrolled  EnrollmentStatus = "ENROLLED"
	EnrollmentStatusSuspended EnrollmentStatus = "SUSPENDED"
	EnrollmentStatusDropped   EnrollmentStatus = "DROPPED"
)

// Lookup maps a symbolic code within a category to the store's identifier.
type Lookup struct {
	ID       string         `db:"id" json:"id"`
	Category LookupCategory `db:"category" json:"category"`
	Code     string         `db:"code" json:"code"`
	Name     string         `db:"name" json:"name"`
}
