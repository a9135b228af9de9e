package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/CETS-Org/cets-worker/internal/models"
	"github.com/CETS-Org/cets-worker/pkg/export"
	"github.com/CETS-Org/cets-worker/pkg/jobs"
)

const jobTypeSummaryExport = "summary_export"

// SummaryService accumulates per-job run summaries and exports the day's
// collection to CSV and PDF through the background queue.
type SummaryService struct {
	queue      *jobs.Queue
	storageDir string
	logger     *zap.Logger

	mu        sync.Mutex
	summaries []models.RunSummary
}

// NewSummaryService constructs the service; Start must be called before
// exports run.
func NewSummaryService(storageDir string, retries int, logger *zap.Logger) *SummaryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &SummaryService{storageDir: storageDir, logger: logger}
	s.queue = jobs.NewQueue("summary-export", s.handleExport, jobs.QueueConfig{
		Workers:    1,
		MaxRetries: retries,
		Logger:     logger,
	})
	return s
}

// Start launches the export worker.
func (s *SummaryService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the export worker.
func (s *SummaryService) Stop() {
	s.queue.Stop()
}

// Record appends one run summary and schedules an export of the day's sheet.
func (s *SummaryService) Record(summary models.RunSummary) {
	s.mu.Lock()
	s.summaries = append(s.summaries, summary)
	day := summary.RunDate
	s.mu.Unlock()

	job := jobs.Job{
		ID:      uuid.NewString(),
		Type:    jobTypeSummaryExport,
		Payload: day,
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("summary export enqueue failed", zap.Error(err))
	}
}

// Snapshot returns a copy of the summaries recorded for the given day.
func (s *SummaryService) Snapshot(day time.Time) []models.RunSummary {
	day = DateOnly(day)
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.RunSummary
	for _, summary := range s.summaries {
		if DateOnly(summary.RunDate).Equal(day) {
			out = append(out, summary)
		}
	}
	return out
}

func (s *SummaryService) handleExport(_ context.Context, job jobs.Job) error {
	day, ok := job.Payload.(time.Time)
	if !ok {
		return fmt.Errorf("summary export: unexpected payload %T", job.Payload)
	}

	rows := s.Snapshot(day)
	if len(rows) == 0 {
		return nil
	}

	table := export.Table{
		Headers: []string{"Job", "Eligible", "Transitioned", "Skipped", "Notified", "Notify Errors"},
	}
	for _, summary := range rows {
		table.Rows = append(table.Rows, []string{
			summary.Job,
			strconv.Itoa(summary.Eligible),
			strconv.Itoa(summary.Transitioned),
			strconv.Itoa(summary.Skipped),
			strconv.Itoa(summary.NotificationsSent),
			strconv.Itoa(summary.NotificationErrors),
		})
	}

	if err := os.MkdirAll(s.storageDir, 0o755); err != nil {
		return fmt.Errorf("create summary dir: %w", err)
	}

	stamp := DateOnly(day).Format("2006-01-02")

	csvBytes, err := export.RenderCSV(table)
	if err != nil {
		return err
	}
	csvPath := filepath.Join(s.storageDir, fmt.Sprintf("lifecycle-%s.csv", stamp))
	if err := os.WriteFile(csvPath, csvBytes, 0o644); err != nil {
		return fmt.Errorf("write summary csv: %w", err)
	}

	pdfBytes, err := export.RenderPDF(table, fmt.Sprintf("Lifecycle Run Summary %s", stamp))
	if err != nil {
		return err
	}
	pdfPath := filepath.Join(s.storageDir, fmt.Sprintf("lifecycle-%s.pdf", stamp))
	if err := os.WriteFile(pdfPath, pdfBytes, 0o644); err != nil {
		return fmt.Errorf("write summary pdf: %w", err)
	}

	s.logger.Info("summary exported",
		zap.String("csv", csvPath),
		zap.String("pdf", pdfPath),
		zap.Int("rows", len(rows)),
	)
	return nil
}
