package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/CETS-Org/cets-worker/internal/models"
)

type eligibilityResolver interface {
	Eligible(ctx context.Context, kind TransitionKind, today time.Time) ([]models.RequestDetail, error)
}

type transitionApplier interface {
	Apply(ctx context.Context, kind TransitionKind, requestID string, now time.Time) (*TransitionOutcome, error)
}

type dispatcher interface {
	Dispatch(ctx context.Context, kind TransitionKind, detail models.RequestDetail) error
}

type summaryRecorder interface {
	Record(summary models.RunSummary)
}

// LifecycleService is the body of one lifecycle worker: resolve today's
// eligible records for a kind, apply the transition to each, dispatch
// notifications, and report a run summary.
type LifecycleService struct {
	queries     eligibilityResolver
	transitions transitionApplier
	notifier    dispatcher
	summaries   summaryRecorder
	logger      *zap.Logger
}

// NewLifecycleService constructs the orchestrator. summaries may be nil.
func NewLifecycleService(queries eligibilityResolver, transitions transitionApplier, notifier dispatcher, summaries summaryRecorder, logger *zap.Logger) *LifecycleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LifecycleService{
		queries:     queries,
		transitions: transitions,
		notifier:    notifier,
		summaries:   summaries,
		logger:      logger,
	}
}

// RunKind executes one batch for the kind. Records are processed
// sequentially; a missing record is skipped, a persistence failure aborts the
// batch and propagates so the worker loop can back off and retry.
func (s *LifecycleService) RunKind(ctx context.Context, kind TransitionKind, now time.Time) (models.RunSummary, error) {
	today := DateOnly(now)
	summary := models.RunSummary{Job: string(kind), RunDate: today}

	details, err := s.queries.Eligible(ctx, kind, today)
	if err != nil {
		return summary, err
	}
	summary.Eligible = len(details)

	for _, detail := range details {
		outcome, err := s.transitions.Apply(ctx, kind, detail.ID, now)
		if err != nil {
			s.logger.Error("transition persistence failed",
				zap.String("kind", string(kind)),
				zap.String("request_id", detail.ID),
				zap.Error(err),
			)
			s.record(summary)
			return summary, err
		}
		if outcome == nil {
			summary.Skipped++
			continue
		}
		summary.Transitioned++

		if err := s.notifier.Dispatch(ctx, kind, detail); err != nil {
			summary.NotificationErrors++
		} else {
			summary.NotificationsSent++
		}
	}

	s.logger.Info("lifecycle batch finished",
		zap.String("kind", string(kind)),
		zap.Int("eligible", summary.Eligible),
		zap.Int("transitioned", summary.Transitioned),
		zap.Int("skipped", summary.Skipped),
		zap.Int("notifications_sent", summary.NotificationsSent),
		zap.Int("notification_errors", summary.NotificationErrors),
	)
	s.record(summary)
	return summary, nil
}

func (s *LifecycleService) record(summary models.RunSummary) {
	if s.summaries != nil {
		s.summaries.Record(summary)
	}
}
