package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/CETS-Org/cets-worker/internal/models"
)

// NotificationRepository persists dispatched in-app notifications.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Send inserts a notification row for the recipient.
func (r *NotificationRepository) Send(ctx context.Context, recipientID, title, message string, severity models.NotificationSeverity) error {
	notification := models.Notification{
		ID:          uuid.NewString(),
		RecipientID: recipientID,
		Title:       title,
		Message:     message,
		Severity:    severity,
		CreatedAt:   time.Now().UTC(),
	}
	const query = `INSERT INTO notifications (id, recipient_id, title, message, severity, created_at)
        VALUES (:id, :recipient_id, :title, :message, :severity, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, notification); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}
