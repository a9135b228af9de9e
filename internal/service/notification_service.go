package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/CETS-Org/cets-worker/internal/models"
)

// Notifier delivers an in-app notification, fire-and-forget per record.
type Notifier interface {
	Send(ctx context.Context, recipientID, title, message string, severity models.NotificationSeverity) error
}

// Mailer delivers an email; failures never abort the surrounding workflow.
type Mailer interface {
	SendEmail(ctx context.Context, address, subject, body string) error
}

// NotificationService builds per-kind payloads and hands them to the send
// capabilities, isolating failures per record.
type NotificationService struct {
	notifier Notifier
	mailer   Mailer
	logger   *zap.Logger
}

// NewNotificationService constructs the dispatcher. mailer may be nil.
func NewNotificationService(notifier Notifier, mailer Mailer, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{notifier: notifier, mailer: mailer, logger: logger}
}

// Dispatch sends the notification for one transitioned record. The returned
// error reports delivery failure only; the transition itself is already
// persisted.
func (s *NotificationService) Dispatch(ctx context.Context, kind TransitionKind, detail models.RequestDetail) error {
	title, message, severity := buildPayload(kind, detail)
	if title == "" {
		return nil
	}

	if err := s.notifier.Send(ctx, detail.StudentID, title, message, severity); err != nil {
		s.logger.Error("notification send failed",
			zap.String("kind", string(kind)),
			zap.String("request_id", detail.ID),
			zap.Error(err),
		)
		return err
	}

	if s.mailer != nil && detail.StudentEmail != nil && mailWorthy(kind) {
		if err := s.mailer.SendEmail(ctx, *detail.StudentEmail, title, message); err != nil {
			s.logger.Error("mail send failed",
				zap.String("kind", string(kind)),
				zap.String("request_id", detail.ID),
				zap.Error(err),
			)
		}
	}
	return nil
}

// DispatchWarning sends one attendance warning.
func (s *NotificationService) DispatchWarning(ctx context.Context, student models.StudentAbsence, className string, totalSessions int) error {
	title := "Attendance warning"
	message := fmt.Sprintf("You have been absent %d of %d sessions in class %s. Further absences may lead to exclusion.",
		student.AbsentCount, totalSessions, className)

	if err := s.notifier.Send(ctx, student.StudentID, title, message, models.SeverityWarning); err != nil {
		s.logger.Error("attendance warning send failed",
			zap.String("student_id", student.StudentID),
			zap.Error(err),
		)
		return err
	}

	if s.mailer != nil && student.StudentEmail != nil {
		if err := s.mailer.SendEmail(ctx, *student.StudentEmail, title, message); err != nil {
			s.logger.Error("attendance warning mail failed",
				zap.String("student_id", student.StudentID),
				zap.Error(err),
			)
		}
	}
	return nil
}

func buildPayload(kind TransitionKind, detail models.RequestDetail) (title, message string, severity models.NotificationSeverity) {
	switch kind {
	case KindActivateSuspension:
		return "Suspension started",
			fmt.Sprintf("Your suspension is active as of %s. Enrollment is paused until %s.",
				formatDate(detail.SuspendStart), formatDate(detail.SuspendEnd)),
			models.SeverityInfo
	case KindEndSuspension:
		return "Suspension period ended",
			fmt.Sprintf("Your suspension ended on %s. Please confirm your return to resume enrollment.",
				formatDate(detail.SuspendEnd)),
			models.SeverityInfo
	case KindReturnReminder:
		return "Return date approaching",
			fmt.Sprintf("Your suspension ends on %s. Contact the registrar to confirm your return.",
				formatDate(detail.SuspendEnd)),
			models.SeverityInfo
	case KindAutoDropout:
		return "Enrollment closed",
			fmt.Sprintf("Your suspension ended on %s and no return was confirmed within the grace period. Your enrollment has been closed.",
				formatDate(detail.SuspendEnd)),
			models.SeverityCritical
	case KindCompleteDropout:
		return "Dropout completed",
			fmt.Sprintf("Your dropout request took effect on %s. Your enrollment has been closed.",
				formatDate(detail.EffectiveDate)),
			models.SeverityInfo
	case KindExpireRequests:
		return "Request expired",
			"Your pending request passed its effective date without approval and has been expired.",
			models.SeverityInfo
	default:
		return "", "", models.SeverityInfo
	}
}

func mailWorthy(kind TransitionKind) bool {
	switch kind {
	case KindActivateSuspension, KindAutoDropout, KindReturnReminder:
		return true
	default:
		return false
	}
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "(unknown)"
	}
	return t.Format("2006-01-02")
}
