package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/CETS-Org/cets-worker/internal/models"
	"github.com/CETS-Org/cets-worker/pkg/jobs"
)

func TestSummaryServiceSnapshotFiltersByDay(t *testing.T) {
	svc := NewSummaryService(t.TempDir(), 1, zap.NewNop())
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	svc.mu.Lock()
	svc.summaries = []models.RunSummary{
		{Job: "suspension-activate", RunDate: day, Transitioned: 2},
		{Job: "request-expiry", RunDate: day.AddDate(0, 0, -1), Transitioned: 1},
	}
	svc.mu.Unlock()

	rows := svc.Snapshot(day)
	require.Len(t, rows, 1)
	assert.Equal(t, "suspension-activate", rows[0].Job)
}

func TestSummaryServiceExportWritesFiles(t *testing.T) {
	dir := t.TempDir()
	svc := NewSummaryService(dir, 1, zap.NewNop())
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	svc.mu.Lock()
	svc.summaries = []models.RunSummary{{Job: "dropout-complete", RunDate: day, Eligible: 3, Transitioned: 3, NotificationsSent: 3}}
	svc.mu.Unlock()

	err := svc.handleExport(context.Background(), jobs.Job{Type: jobTypeSummaryExport, Payload: day})
	require.NoError(t, err)

	csvBytes, err := os.ReadFile(filepath.Join(dir, "lifecycle-2026-03-10.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(csvBytes), "dropout-complete")

	pdfInfo, err := os.Stat(filepath.Join(dir, "lifecycle-2026-03-10.pdf"))
	require.NoError(t, err)
	assert.Greater(t, pdfInfo.Size(), int64(0))
}

func TestSummaryServiceExportSkipsEmptyDay(t *testing.T) {
	dir := t.TempDir()
	svc := NewSummaryService(dir, 1, zap.NewNop())

	err := svc.handleExport(context.Background(), jobs.Job{Type: jobTypeSummaryExport, Payload: time.Now()})
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSummaryServiceExportRejectsBadPayload(t *testing.T) {
	svc := NewSummaryService(t.TempDir(), 1, zap.NewNop())

	err := svc.handleExport(context.Background(), jobs.Job{Type: jobTypeSummaryExport, Payload: "not a date"})
	require.Error(t, err)
}
