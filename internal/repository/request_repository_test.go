package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/CETS-Org/cets-worker/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestRequestRepositoryListEligible(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	today := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "student_id", "type_id", "status_id", "enrollment_id",
		"suspend_start", "suspend_end", "expected_return", "effective_date",
		"reason_category", "reason", "processed_at", "created_at", "updated_at",
		"student_name", "student_email",
	}).AddRow("req-1", "stu-1", "type-susp", "status-appr", "enr-1",
		today, nil, nil, nil, nil, nil, nil, today, today, "Alice", "alice@example.com")

	mock.ExpectQuery(`SELECT .+ FROM academic_requests r\s+JOIN students s ON s\.id = r\.student_id\s+WHERE r\.type_id = \$1 AND r\.status_id = \$2 AND r\.suspend_start = \$3::date`).
		WithArgs("type-susp", "status-appr", today).
		WillReturnRows(rows)

	requests, err := repo.ListEligible(context.Background(), models.EligibilityFilter{
		TypeID:   "type-susp",
		StatusID: "status-appr",
		Field:    models.DateFieldSuspendStart,
		Op:       models.DateOpEqual,
		Date:     today,
	})
	require.NoError(t, err)
	require.Len(t, requests, 1)
	require.Equal(t, "req-1", requests[0].ID)
	require.Equal(t, "Alice", requests[0].StudentName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryListEligibleRejectsUnknownField(t *testing.T) {
	db, _, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	_, err := repo.ListEligible(context.Background(), models.EligibilityFilter{
		TypeID:   "t",
		StatusID: "s",
		Field:    models.DateField("created_at"),
		Op:       models.DateOpEqual,
	})
	require.Error(t, err)
}

func TestIsNotFoundMatchesWrappedErrors(t *testing.T) {
	require.True(t, IsNotFound(sql.ErrNoRows))
	require.True(t, IsNotFound(fmt.Errorf("find request r1: %w", sql.ErrNoRows)))
	require.False(t, IsNotFound(errors.New("connection refused")))
	require.False(t, IsNotFound(nil))
}

func TestRequestRepositoryApplyTransition(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	now := time.Date(2024, 6, 1, 0, 5, 0, 0, time.UTC)
	request := &models.AcademicRequest{ID: "req-1", StatusID: "status-susp", ProcessedAt: &now, UpdatedAt: now}
	enrollment := &models.EnrollmentMutation{EnrollmentID: "enr-1", StatusID: "enr-susp"}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE academic_requests`).
		WithArgs("req-1", "status-susp", &now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE enrollments SET status_id = \$2, updated_at = \$3 WHERE id = \$1`).
		WithArgs("enr-1", "enr-susp", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.ApplyTransition(context.Background(), request, enrollment, nil)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryApplyTransitionClearsClass(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	now := time.Date(2024, 6, 1, 0, 5, 0, 0, time.UTC)
	request := &models.AcademicRequest{ID: "req-2", StatusID: "status-drop", UpdatedAt: now}
	enrollment := &models.EnrollmentMutation{EnrollmentID: "enr-2", StatusID: "enr-drop", ClearClass: true}
	note := "expired before approval"
	history := &models.RequestHistory{ID: "hist-1", RequestID: "req-2", Action: models.HistoryActionExpired, StatusID: "status-drop", Note: &note, CreatedAt: now}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE academic_requests`).
		WithArgs("req-2", "status-drop", nil, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE enrollments SET status_id = \$2, class_id = NULL, updated_at = \$3 WHERE id = \$1`).
		WithArgs("enr-2", "enr-drop", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO request_history`).
		WithArgs("hist-1", "req-2", models.HistoryActionExpired, "status-drop", nil, &note, now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.ApplyTransition(context.Background(), request, enrollment, history)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
