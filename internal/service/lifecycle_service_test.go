package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/CETS-Org/cets-worker/internal/models"
)

type mockEligibility struct {
	details []models.RequestDetail
	err     error
}

func (m *mockEligibility) Eligible(ctx context.Context, kind TransitionKind, today time.Time) ([]models.RequestDetail, error) {
	return m.details, m.err
}

type mockApplier struct {
	skip    map[string]bool
	errFor  map[string]error
	applied []string
}

func (m *mockApplier) Apply(ctx context.Context, kind TransitionKind, requestID string, now time.Time) (*TransitionOutcome, error) {
	if err := m.errFor[requestID]; err != nil {
		return nil, err
	}
	if m.skip[requestID] {
		return nil, nil
	}
	m.applied = append(m.applied, requestID)
	return &TransitionOutcome{Request: &models.AcademicRequest{ID: requestID}}, nil
}

type mockDispatcher struct {
	errFor     map[string]error
	dispatched []string
}

func (m *mockDispatcher) Dispatch(ctx context.Context, kind TransitionKind, detail models.RequestDetail) error {
	if err := m.errFor[detail.ID]; err != nil {
		return err
	}
	m.dispatched = append(m.dispatched, detail.ID)
	return nil
}

type mockRecorder struct {
	recorded []models.RunSummary
}

func (m *mockRecorder) Record(summary models.RunSummary) {
	m.recorded = append(m.recorded, summary)
}

func detailWithID(id string) models.RequestDetail {
	return models.RequestDetail{AcademicRequest: models.AcademicRequest{ID: id, StudentID: "s-" + id}}
}

func TestLifecycleServiceRunKind(t *testing.T) {
	queries := &mockEligibility{details: []models.RequestDetail{detailWithID("r1"), detailWithID("r2")}}
	applier := &mockApplier{}
	dispatcher := &mockDispatcher{}
	recorder := &mockRecorder{}
	svc := NewLifecycleService(queries, applier, dispatcher, recorder, zap.NewNop())

	summary, err := svc.RunKind(context.Background(), KindActivateSuspension, time.Now())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Eligible)
	assert.Equal(t, 2, summary.Transitioned)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 2, summary.NotificationsSent)
	assert.Equal(t, []string{"r1", "r2"}, applier.applied)
	assert.Equal(t, []string{"r1", "r2"}, dispatcher.dispatched)
	require.Len(t, recorder.recorded, 1)
	assert.Equal(t, string(KindActivateSuspension), recorder.recorded[0].Job)
}

func TestLifecycleServiceCountsSkips(t *testing.T) {
	queries := &mockEligibility{details: []models.RequestDetail{detailWithID("r1"), detailWithID("r2")}}
	applier := &mockApplier{skip: map[string]bool{"r1": true}}
	dispatcher := &mockDispatcher{}
	svc := NewLifecycleService(queries, applier, dispatcher, nil, zap.NewNop())

	summary, err := svc.RunKind(context.Background(), KindEndSuspension, time.Now())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Transitioned)
	assert.Equal(t, []string{"r2"}, dispatcher.dispatched)
}

func TestLifecycleServiceNotificationErrorIsIsolated(t *testing.T) {
	queries := &mockEligibility{details: []models.RequestDetail{detailWithID("r1"), detailWithID("r2")}}
	applier := &mockApplier{}
	dispatcher := &mockDispatcher{errFor: map[string]error{"r1": fmt.Errorf("channel down")}}
	svc := NewLifecycleService(queries, applier, dispatcher, nil, zap.NewNop())

	summary, err := svc.RunKind(context.Background(), KindAutoDropout, time.Now())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Transitioned)
	assert.Equal(t, 1, summary.NotificationErrors)
	assert.Equal(t, 1, summary.NotificationsSent)
}

func TestLifecycleServicePersistenceErrorAborts(t *testing.T) {
	queries := &mockEligibility{details: []models.RequestDetail{detailWithID("r1"), detailWithID("r2")}}
	applier := &mockApplier{errFor: map[string]error{"r1": fmt.Errorf("tx failed")}}
	dispatcher := &mockDispatcher{}
	recorder := &mockRecorder{}
	svc := NewLifecycleService(queries, applier, dispatcher, recorder, zap.NewNop())

	_, err := svc.RunKind(context.Background(), KindCompleteDropout, time.Now())
	require.Error(t, err)

	assert.Empty(t, dispatcher.dispatched)
	require.Len(t, recorder.recorded, 1)
	assert.Equal(t, 0, recorder.recorded[0].Transitioned)
}

func TestLifecycleServiceQueryErrorPropagates(t *testing.T) {
	queries := &mockEligibility{err: fmt.Errorf("db down")}
	svc := NewLifecycleService(queries, &mockApplier{}, &mockDispatcher{}, nil, zap.NewNop())

	_, err := svc.RunKind(context.Background(), KindExpireRequests, time.Now())
	require.Error(t, err)
}
