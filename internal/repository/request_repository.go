package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/CETS-Org/cets-worker/internal/models"
)

// RequestRepository handles persistence of academic requests.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository constructs the repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

const requestColumns = `r.id, r.student_id, r.type_id, r.status_id, r.enrollment_id,
        r.suspend_start, r.suspend_end, r.expected_return, r.effective_date,
        r.reason_category, r.reason, r.processed_at, r.created_at, r.updated_at`

// FindByID returns a request by its ID.
func (r *RequestRepository) FindByID(ctx context.Context, id string) (*models.AcademicRequest, error) {
	const query = `SELECT id, student_id, type_id, status_id, enrollment_id,
        suspend_start, suspend_end, expected_return, effective_date,
        reason_category, reason, processed_at, created_at, updated_at
        FROM academic_requests WHERE id = $1`
	var request models.AcademicRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// ListEligible returns requests matching the type, status and date predicate
// of one transition kind, joined with student metadata for notifications.
func (r *RequestRepository) ListEligible(ctx context.Context, filter models.EligibilityFilter) ([]models.RequestDetail, error) {
	op, err := dateOpSQL(filter.Op)
	if err != nil {
		return nil, err
	}
	field, err := dateFieldSQL(filter.Field)
	if err != nil {
		return nil, err
	}
	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 500
	}

	query := fmt.Sprintf(`SELECT %s, s.full_name AS student_name, s.email AS student_email
        FROM academic_requests r
        JOIN students s ON s.id = r.student_id
        WHERE r.type_id = $1 AND r.status_id = $2 AND %s %s $3::date
        ORDER BY r.created_at ASC LIMIT %d`, requestColumns, field, op, limit)

	var requests []models.RequestDetail
	if err := r.db.SelectContext(ctx, &requests, query, filter.TypeID, filter.StatusID, filter.Date); err != nil {
		return nil, fmt.Errorf("list eligible requests: %w", err)
	}
	return requests, nil
}

// ListPendingBefore returns pending requests of any type whose effective date
// lapsed before the given day.
func (r *RequestRepository) ListPendingBefore(ctx context.Context, statusID string, day time.Time, limit int) ([]models.RequestDetail, error) {
	if limit <= 0 || limit > 1000 {
		limit = 500
	}
	query := fmt.Sprintf(`SELECT %s, s.full_name AS student_name, s.email AS student_email
        FROM academic_requests r
        JOIN students s ON s.id = r.student_id
        WHERE r.status_id = $1 AND r.effective_date < $2::date
        ORDER BY r.created_at ASC LIMIT %d`, requestColumns, limit)

	var requests []models.RequestDetail
	if err := r.db.SelectContext(ctx, &requests, query, statusID, day); err != nil {
		return nil, fmt.Errorf("list pending requests: %w", err)
	}
	return requests, nil
}

// ApplyTransition persists a request status change together with its derived
// enrollment mutation and optional history entry in a single transaction.
func (r *RequestRepository) ApplyTransition(ctx context.Context, request *models.AcademicRequest, enrollment *models.EnrollmentMutation, history *models.RequestHistory) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transition: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const updateRequest = `UPDATE academic_requests
        SET status_id = $2, processed_at = COALESCE($3, processed_at), updated_at = $4
        WHERE id = $1`
	if _, err := tx.ExecContext(ctx, updateRequest, request.ID, request.StatusID, request.ProcessedAt, request.UpdatedAt); err != nil {
		return fmt.Errorf("update request %s: %w", request.ID, err)
	}

	if enrollment != nil {
		if enrollment.ClearClass {
			const updateEnrollment = `UPDATE enrollments SET status_id = $2, class_id = NULL, updated_at = $3 WHERE id = $1`
			if _, err := tx.ExecContext(ctx, updateEnrollment, enrollment.EnrollmentID, enrollment.StatusID, request.UpdatedAt); err != nil {
				return fmt.Errorf("update enrollment %s: %w", enrollment.EnrollmentID, err)
			}
		} else {
			const updateEnrollment = `UPDATE enrollments SET status_id = $2, updated_at = $3 WHERE id = $1`
			if _, err := tx.ExecContext(ctx, updateEnrollment, enrollment.EnrollmentID, enrollment.StatusID, request.UpdatedAt); err != nil {
				return fmt.Errorf("update enrollment %s: %w", enrollment.EnrollmentID, err)
			}
		}
	}

	if history != nil {
		const insertHistory = `INSERT INTO request_history (id, request_id, action, status_id, enrollment_id, note, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`
		if _, err := tx.ExecContext(ctx, insertHistory, history.ID, history.RequestID, history.Action, history.StatusID, history.EnrollmentID, history.Note, history.CreatedAt); err != nil {
			return fmt.Errorf("insert request history: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transition: %w", err)
	}
	return nil
}

func dateFieldSQL(field models.DateField) (string, error) {
	switch field {
	case models.DateFieldSuspendStart:
		return "r.suspend_start", nil
	case models.DateFieldSuspendEnd:
		return "r.suspend_end", nil
	case models.DateFieldEffectiveDate:
		return "r.effective_date", nil
	default:
		return "", fmt.Errorf("unknown date field %q", field)
	}
}

func dateOpSQL(op models.DateOp) (string, error) {
	switch op {
	case models.DateOpEqual:
		return "=", nil
	case models.DateOpBefore:
		return "<", nil
	case models.DateOpAtOrPast:
		return "<=", nil
	default:
		return "", fmt.Errorf("unknown date op %q", op)
	}
}

// IsNotFound reports whether the error is a missing-row lookup failure,
// however deeply wrapped.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
