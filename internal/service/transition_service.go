package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/CETS-Org/cets-worker/internal/models"
	"github.com/CETS-Org/cets-worker/internal/repository"
)

type requestStore interface {
	FindByID(ctx context.Context, id string) (*models.AcademicRequest, error)
	ApplyTransition(ctx context.Context, request *models.AcademicRequest, enrollment *models.EnrollmentMutation, history *models.RequestHistory) error
}

type enrollmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
}

// TransitionOutcome describes the applied mutation set for one record.
type TransitionOutcome struct {
	Request    *models.AcademicRequest
	Enrollment *models.EnrollmentMutation
	History    *models.RequestHistory
}

type enrollmentEffect struct {
	status     models.EnrollmentStatus
	clearClass bool
}

type transitionRule struct {
	from       models.RequestStatus
	to         models.RequestStatus
	enrollment *enrollmentEffect
	stamp      bool
	history    bool
}

// One rule per mutating kind. KindReturnReminder is intentionally absent:
// it is a read-only notification trigger. AwaitingReturn has no automated
// outgoing edge other than auto-dropout; return confirmation stays manual.
var transitionRules = map[TransitionKind]transitionRule{
	KindActivateSuspension: {
		from:       models.RequestStatusApproved,
		to:         models.RequestStatusSuspended,
		enrollment: &enrollmentEffect{status: models.EnrollmentStatusSuspended},
		stamp:      true,
	},
	KindEndSuspension: {
		from: models.RequestStatusSuspended,
		to:   models.RequestStatusAwaitingReturn,
	},
	KindAutoDropout: {
		from:       models.RequestStatusAwaitingReturn,
		to:         models.RequestStatusAutoDroppedOut,
		enrollment: &enrollmentEffect{status: models.EnrollmentStatusDropped, clearClass: true},
		stamp:      true,
	},
	KindCompleteDropout: {
		from:       models.RequestStatusApproved,
		to:         models.RequestStatusCompleted,
		enrollment: &enrollmentEffect{status: models.EnrollmentStatusDropped, clearClass: true},
		stamp:      true,
	},
	KindExpireRequests: {
		from:    models.RequestStatusPending,
		to:      models.RequestStatusExpired,
		stamp:   true,
		history: true,
	},
}

// TransitionService applies one state transition to one record, updating the
// request and synchronizing its linked enrollment in a single save.
type TransitionService struct {
	requests    requestStore
	enrollments enrollmentReader
	refs        *RefTable
	logger      *zap.Logger
}

// NewTransitionService constructs the transition service.
func NewTransitionService(requests requestStore, enrollments enrollmentReader, refs *RefTable, logger *zap.Logger) *TransitionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransitionService{requests: requests, enrollments: enrollments, refs: refs, logger: logger}
}

// Apply advances the record through the kind's transition. A nil outcome with
// nil error means the record was skipped (vanished, already advanced, or an
// unmapped lookup code); persistence failures propagate to the caller.
func (s *TransitionService) Apply(ctx context.Context, kind TransitionKind, requestID string, now time.Time) (*TransitionOutcome, error) {
	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		if repository.IsNotFound(err) {
			s.logger.Warn("request vanished before transition, skipping",
				zap.String("kind", string(kind)),
				zap.String("request_id", requestID),
			)
			return nil, nil
		}
		return nil, err
	}

	if kind == KindReturnReminder {
		// Read-only trigger: the date predicate is re-evaluated daily and
		// the record is left untouched.
		return &TransitionOutcome{Request: request}, nil
	}

	rule, ok := transitionRules[kind]
	if !ok {
		s.logger.Warn("no transition rule for kind", zap.String("kind", string(kind)))
		return nil, nil
	}

	syncEnrollment := rule.enrollment != nil && request.EnrollmentID != nil
	if syncEnrollment {
		if _, err := s.enrollments.FindByID(ctx, *request.EnrollmentID); err != nil {
			if !repository.IsNotFound(err) {
				return nil, err
			}
			s.logger.Warn("linked enrollment vanished, sync skipped",
				zap.String("kind", string(kind)),
				zap.String("request_id", request.ID),
				zap.String("enrollment_id", *request.EnrollmentID),
			)
			syncEnrollment = false
		}
	}

	outcome, ok := s.buildOutcome(kind, rule, request, now, syncEnrollment)
	if !ok {
		return nil, nil
	}

	if err := s.requests.ApplyTransition(ctx, outcome.Request, outcome.Enrollment, outcome.History); err != nil {
		return nil, err
	}
	return outcome, nil
}

// buildOutcome is the pure part of a transition: (request, rule, now) to the
// mutation set, without touching storage.
func (s *TransitionService) buildOutcome(kind TransitionKind, rule transitionRule, request *models.AcademicRequest, now time.Time, syncEnrollment bool) (*TransitionOutcome, bool) {
	fromID, ok := s.refs.RequestStatus(rule.from)
	if !ok {
		s.warnUnmapped(kind, string(rule.from))
		return nil, false
	}
	toID, ok := s.refs.RequestStatus(rule.to)
	if !ok {
		s.warnUnmapped(kind, string(rule.to))
		return nil, false
	}
	if request.StatusID != fromID {
		s.logger.Warn("request no longer in source status, skipping",
			zap.String("kind", string(kind)),
			zap.String("request_id", request.ID),
		)
		return nil, false
	}

	updated := *request
	updated.StatusID = toID
	updated.UpdatedAt = now
	if rule.stamp && updated.ProcessedAt == nil {
		stamp := now
		updated.ProcessedAt = &stamp
	}

	outcome := &TransitionOutcome{Request: &updated}

	if rule.enrollment != nil && request.EnrollmentID == nil {
		s.logger.Warn("request has no linked enrollment, sync skipped",
			zap.String("kind", string(kind)),
			zap.String("request_id", request.ID),
		)
	}
	if syncEnrollment {
		if statusID, ok := s.refs.EnrollmentStatus(rule.enrollment.status); ok {
			outcome.Enrollment = &models.EnrollmentMutation{
				EnrollmentID: *request.EnrollmentID,
				StatusID:     statusID,
				ClearClass:   rule.enrollment.clearClass,
			}
		} else {
			s.warnUnmapped(kind, string(rule.enrollment.status))
			return nil, false
		}
	}

	if rule.history {
		outcome.History = &models.RequestHistory{
			ID:           uuid.NewString(),
			RequestID:    request.ID,
			Action:       models.HistoryActionExpired,
			StatusID:     toID,
			EnrollmentID: request.EnrollmentID,
			CreatedAt:    now,
		}
	}

	return outcome, true
}

func (s *TransitionService) warnUnmapped(kind TransitionKind, code string) {
	s.logger.Warn("lookup code unmapped, transition skipped",
		zap.String("kind", string(kind)),
		zap.String("code", code),
	)
}
