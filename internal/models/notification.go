package models

import "time"

// NotificationSeverity labels dispatched notifications.
type NotificationSeverity string

const (
	SeverityInfo     NotificationSeverity = "INFO"
	SeverityWarning  NotificationSeverity = "WARNING"
	SeverityCritical NotificationSeverity = "CRITICAL"
)

// Notification is a dispatched in-app notification row.
type Notification struct {
	ID          string               `db:"id" json:"id"`
	RecipientID string               `db:"recipient_id" json:"recipient_id"`
	Title       string               `db:"title" json:"title"`
	Message     string               `db:"message" json:"message"`
	Severity    NotificationSeverity `db:"severity" json:"severity"`
	CreatedAt   time.Time            `db:"created_at" json:"created_at"`
}

// RunSummary reports the outcome of one batch run of a lifecycle job.
type RunSummary struct {
	Job                string    `json:"job"`
	RunDate            time.Time `json:"run_date"`
	Eligible           int       `json:"eligible"`
	Transitioned       int       `json:"transitioned"`
	Skipped            int       `json:"skipped"`
	NotificationsSent  int       `json:"notifications_sent"`
	NotificationErrors int       `json:"notification_errors"`
}
