package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/CETS-Org/cets-worker/internal/models"
)

// AttendanceRepository provides the aggregate reads for the attendance
// warning sweep.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// ListClassGroups returns classes holding at least one active enrollment,
// optionally scoped to a term.
func (r *AttendanceRepository) ListClassGroups(ctx context.Context, enrolledStatusID, termID string) ([]models.ClassGroup, error) {
	query := `SELECT DISTINCT c.id AS class_id, c.name AS class_name
        FROM enrollments e
        JOIN classes c ON c.id = e.class_id
        WHERE e.status_id = $1`
	args := []interface{}{enrolledStatusID}
	if termID != "" {
		query += fmt.Sprintf(" AND c.term_id = $%d", len(args)+1)
		args = append(args, termID)
	}
	query += " ORDER BY class_name ASC"

	var groups []models.ClassGroup
	if err := r.db.SelectContext(ctx, &groups, query, args...); err != nil {
		return nil, fmt.Errorf("list class groups: %w", err)
	}
	return groups, nil
}

// CountSessions returns the number of non-deleted class meetings.
func (r *AttendanceRepository) CountSessions(ctx context.Context, classID string) (int, error) {
	const query = `SELECT COUNT(*) FROM class_sessions WHERE class_id = $1 AND deleted_at IS NULL`
	var total int
	if err := r.db.GetContext(ctx, &total, query, classID); err != nil {
		return 0, fmt.Errorf("count class sessions: %w", err)
	}
	return total, nil
}

// ListAbsences returns per-student absence counts over active enrollments in
// the class.
func (r *AttendanceRepository) ListAbsences(ctx context.Context, classID, enrolledStatusID string) ([]models.StudentAbsence, error) {
	const query = `SELECT s.id AS student_id, s.full_name AS student_name, s.email AS student_email,
        COUNT(a.id) FILTER (WHERE a.status = 'ABSENT') AS absent_count
        FROM enrollments e
        JOIN students s ON s.id = e.student_id
        LEFT JOIN attendance_records a ON a.enrollment_id = e.id
        WHERE e.class_id = $1 AND e.status_id = $2
        GROUP BY s.id, s.full_name, s.email
        ORDER BY s.full_name ASC`
	var absences []models.StudentAbsence
	if err := r.db.SelectContext(ctx, &absences, query, classID, enrolledStatusID); err != nil {
		return nil, fmt.Errorf("list class absences: %w", err)
	}
	return absences, nil
}
