package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/CETS-Org/cets-worker/internal/models"
)

// TransitionKind names one scheduled lifecycle job: a (query, mutation,
// notification) triple.
type TransitionKind string

const (
	KindActivateSuspension TransitionKind = "suspension-activate"
	KindEndSuspension      TransitionKind = "suspension-end"
	KindReturnReminder     TransitionKind = "return-reminder"
	KindAutoDropout        TransitionKind = "auto-dropout"
	KindCompleteDropout    TransitionKind = "dropout-complete"
	KindExpireRequests     TransitionKind = "request-expiry"
)

// LifecycleKinds lists every scheduled transition kind in execution order.
var LifecycleKinds = []TransitionKind{
	KindActivateSuspension,
	KindEndSuspension,
	KindReturnReminder,
	KindAutoDropout,
	KindCompleteDropout,
	KindExpireRequests,
}

type requestLister interface {
	ListEligible(ctx context.Context, filter models.EligibilityFilter) ([]models.RequestDetail, error)
	ListPendingBefore(ctx context.Context, statusID string, day time.Time, limit int) ([]models.RequestDetail, error)
}

// QueryConfig carries the date-predicate tuning knobs.
type QueryConfig struct {
	GraceDays        int
	ReminderLeadDays int
	BatchLimit       int
}

// QueryService resolves which requests are eligible for a given transition
// kind on a given day.
type QueryService struct {
	requests requestLister
	refs     *RefTable
	cfg      QueryConfig
	logger   *zap.Logger
}

// NewQueryService constructs the query service.
func NewQueryService(requests requestLister, refs *RefTable, cfg QueryConfig, logger *zap.Logger) *QueryService {
	if cfg.GraceDays <= 0 {
		cfg.GraceDays = 14
	}
	if cfg.ReminderLeadDays <= 0 {
		cfg.ReminderLeadDays = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryService{requests: requests, refs: refs, cfg: cfg, logger: logger}
}

// Eligible returns the requests the kind's transition applies to today.
// A required code missing from the lookup table yields an empty set with a
// warning rather than failing the job.
func (s *QueryService) Eligible(ctx context.Context, kind TransitionKind, today time.Time) ([]models.RequestDetail, error) {
	today = DateOnly(today)

	if kind == KindExpireRequests {
		statusID, ok := s.refs.RequestStatus(models.RequestStatusPending)
		if !ok {
			s.warnUnmapped(kind, string(models.RequestStatusPending))
			return nil, nil
		}
		return s.requests.ListPendingBefore(ctx, statusID, today, s.cfg.BatchLimit)
	}

	var (
		typeCode   models.RequestType
		statusCode models.RequestStatus
		field      models.DateField
		op         models.DateOp
		date       time.Time
	)

	switch kind {
	case KindActivateSuspension:
		typeCode, statusCode = models.RequestTypeSuspension, models.RequestStatusApproved
		field, op, date = models.DateFieldSuspendStart, models.DateOpEqual, today
	case KindEndSuspension:
		typeCode, statusCode = models.RequestTypeSuspension, models.RequestStatusSuspended
		field, op, date = models.DateFieldSuspendEnd, models.DateOpBefore, today
	case KindReturnReminder:
		typeCode, statusCode = models.RequestTypeSuspension, models.RequestStatusSuspended
		field, op = models.DateFieldSuspendEnd, models.DateOpEqual
		date = today.AddDate(0, 0, s.cfg.ReminderLeadDays)
	case KindAutoDropout:
		typeCode, statusCode = models.RequestTypeSuspension, models.RequestStatusAwaitingReturn
		field, op = models.DateFieldSuspendEnd, models.DateOpAtOrPast
		date = today.AddDate(0, 0, -s.cfg.GraceDays)
	case KindCompleteDropout:
		typeCode, statusCode = models.RequestTypeDropout, models.RequestStatusApproved
		field, op, date = models.DateFieldEffectiveDate, models.DateOpEqual, today
	default:
		s.logger.Warn("unknown transition kind", zap.String("kind", string(kind)))
		return nil, nil
	}

	typeID, ok := s.refs.RequestType(typeCode)
	if !ok {
		s.warnUnmapped(kind, string(typeCode))
		return nil, nil
	}
	statusID, ok := s.refs.RequestStatus(statusCode)
	if !ok {
		s.warnUnmapped(kind, string(statusCode))
		return nil, nil
	}

	return s.requests.ListEligible(ctx, models.EligibilityFilter{
		TypeID:   typeID,
		StatusID: statusID,
		Field:    field,
		Op:       op,
		Date:     date,
		Limit:    s.cfg.BatchLimit,
	})
}

func (s *QueryService) warnUnmapped(kind TransitionKind, code string) {
	s.logger.Warn("lookup code unmapped, yielding empty batch",
		zap.String("kind", string(kind)),
		zap.String("code", code),
	)
}

// DateOnly truncates a timestamp to its calendar day in UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
