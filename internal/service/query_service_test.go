package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/CETS-Org/cets-worker/internal/models"
)

func newRefTable(types map[models.RequestType]string, statuses map[models.RequestStatus]string, enrollment map[models.EnrollmentStatus]string) *RefTable {
	return &RefTable{types: types, statuses: statuses, enrollmentStatus: enrollment}
}

func testRefTable() *RefTable {
	return newRefTable(
		map[models.RequestType]string{
			models.RequestTypeSuspension: "t-susp",
			models.RequestTypeDropout:    "t-drop",
		},
		map[models.RequestStatus]string{
			models.RequestStatusPending:        "st-pending",
			models.RequestStatusApproved:       "st-approved",
			models.RequestStatusSuspended:      "st-suspended",
			models.RequestStatusAwaitingReturn: "st-awaiting",
			models.RequestStatusAutoDroppedOut: "st-autodrop",
			models.RequestStatusCompleted:      "st-completed",
			models.RequestStatusExpired:        "st-expired",
		},
		map[models.EnrollmentStatus]string{
			models.EnrollmentStatusEnrolled:  "en-enrolled",
			models.EnrollmentStatusSuspended: "en-suspended",
			models.EnrollmentStatusDropped:   "en-dropped",
		},
	)
}

type mockRequestLister struct {
	filter        *models.EligibilityFilter
	pendingStatus string
	pendingDay    time.Time
	details       []models.RequestDetail
}

func (m *mockRequestLister) ListEligible(ctx context.Context, filter models.EligibilityFilter) ([]models.RequestDetail, error) {
	m.filter = &filter
	return m.details, nil
}

func (m *mockRequestLister) ListPendingBefore(ctx context.Context, statusID string, day time.Time, limit int) ([]models.RequestDetail, error) {
	m.pendingStatus = statusID
	m.pendingDay = day
	return m.details, nil
}

func newQueryService(lister *mockRequestLister) *QueryService {
	return NewQueryService(lister, testRefTable(), QueryConfig{GraceDays: 14, ReminderLeadDays: 3, BatchLimit: 100}, zap.NewNop())
}

func TestQueryServiceActivatePredicate(t *testing.T) {
	lister := &mockRequestLister{details: []models.RequestDetail{{}}}
	svc := newQueryService(lister)
	today := time.Date(2026, 3, 10, 15, 4, 0, 0, time.UTC)

	details, err := svc.Eligible(context.Background(), KindActivateSuspension, today)
	require.NoError(t, err)
	assert.Len(t, details, 1)

	require.NotNil(t, lister.filter)
	assert.Equal(t, "t-susp", lister.filter.TypeID)
	assert.Equal(t, "st-approved", lister.filter.StatusID)
	assert.Equal(t, models.DateFieldSuspendStart, lister.filter.Field)
	assert.Equal(t, models.DateOpEqual, lister.filter.Op)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), lister.filter.Date)
	assert.Equal(t, 100, lister.filter.Limit)
}

func TestQueryServiceEndPredicate(t *testing.T) {
	lister := &mockRequestLister{}
	svc := newQueryService(lister)
	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	_, err := svc.Eligible(context.Background(), KindEndSuspension, today)
	require.NoError(t, err)

	assert.Equal(t, "st-suspended", lister.filter.StatusID)
	assert.Equal(t, models.DateFieldSuspendEnd, lister.filter.Field)
	assert.Equal(t, models.DateOpBefore, lister.filter.Op)
	assert.Equal(t, today, lister.filter.Date)
}

func TestQueryServiceReminderLeadsBy(t *testing.T) {
	lister := &mockRequestLister{}
	svc := newQueryService(lister)
	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	_, err := svc.Eligible(context.Background(), KindReturnReminder, today)
	require.NoError(t, err)

	assert.Equal(t, models.DateOpEqual, lister.filter.Op)
	assert.Equal(t, today.AddDate(0, 0, 3), lister.filter.Date)
}

func TestQueryServiceAutoDropoutGracePeriod(t *testing.T) {
	lister := &mockRequestLister{}
	svc := newQueryService(lister)
	today := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)

	_, err := svc.Eligible(context.Background(), KindAutoDropout, today)
	require.NoError(t, err)

	assert.Equal(t, "st-awaiting", lister.filter.StatusID)
	assert.Equal(t, models.DateOpAtOrPast, lister.filter.Op)
	assert.Equal(t, today.AddDate(0, 0, -14), lister.filter.Date)
}

func TestQueryServiceCompleteDropoutPredicate(t *testing.T) {
	lister := &mockRequestLister{}
	svc := newQueryService(lister)
	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	_, err := svc.Eligible(context.Background(), KindCompleteDropout, today)
	require.NoError(t, err)

	assert.Equal(t, "t-drop", lister.filter.TypeID)
	assert.Equal(t, models.DateFieldEffectiveDate, lister.filter.Field)
	assert.Equal(t, models.DateOpEqual, lister.filter.Op)
}

func TestQueryServiceExpiryUsesPendingQuery(t *testing.T) {
	lister := &mockRequestLister{details: []models.RequestDetail{{}, {}}}
	svc := newQueryService(lister)
	today := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	details, err := svc.Eligible(context.Background(), KindExpireRequests, today)
	require.NoError(t, err)
	assert.Len(t, details, 2)
	assert.Equal(t, "st-pending", lister.pendingStatus)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), lister.pendingDay)
	assert.Nil(t, lister.filter)
}

func TestQueryServiceUnmappedCodeYieldsEmpty(t *testing.T) {
	lister := &mockRequestLister{details: []models.RequestDetail{{}}}
	refs := newRefTable(nil, nil, nil)
	svc := NewQueryService(lister, refs, QueryConfig{}, zap.NewNop())

	details, err := svc.Eligible(context.Background(), KindActivateSuspension, time.Now())
	require.NoError(t, err)
	assert.Empty(t, details)
	assert.Nil(t, lister.filter)
}
