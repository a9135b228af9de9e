package service

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/CETS-Org/cets-worker/internal/models"
	"github.com/CETS-Org/cets-worker/pkg/dedup"
)

type attendanceReader interface {
	ListClassGroups(ctx context.Context, enrolledStatusID, termID string) ([]models.ClassGroup, error)
	CountSessions(ctx context.Context, classID string) (int, error)
	ListAbsences(ctx context.Context, classID, enrolledStatusID string) ([]models.StudentAbsence, error)
}

type warningDispatcher interface {
	DispatchWarning(ctx context.Context, student models.StudentAbsence, className string, totalSessions int) error
}

// WarningConfig tunes the attendance sweep.
type WarningConfig struct {
	MinRatio float64
	MaxRatio float64
	Cooldown time.Duration
	TermID   string
}

// SweepResult summarizes one attendance warning pass.
type SweepResult struct {
	Classes      int
	Students     int
	Warned       int
	Deduplicated int
	Escalations  int
	SendErrors   int
}

// WarningService scans active classes and warns students whose absence count
// falls inside the configured band. Warnings repeat only after the cooldown
// unless the absence count grows, which changes the dedup key.
type WarningService struct {
	attendance attendanceReader
	refs       *RefTable
	store      dedup.Store
	notifier   warningDispatcher
	cfg        WarningConfig
	logger     *zap.Logger
}

// NewWarningService constructs the sweep.
func NewWarningService(attendance attendanceReader, refs *RefTable, store dedup.Store, notifier warningDispatcher, cfg WarningConfig, logger *zap.Logger) *WarningService {
	if cfg.MinRatio <= 0 {
		cfg.MinRatio = 0.1
	}
	if cfg.MaxRatio <= 0 {
		cfg.MaxRatio = 0.5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WarningService{
		attendance: attendance,
		refs:       refs,
		store:      store,
		notifier:   notifier,
		cfg:        cfg,
		logger:     logger,
	}
}

// Sweep runs one pass over every active class.
func (s *WarningService) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	enrolledID, ok := s.refs.EnrollmentStatus(models.EnrollmentStatusEnrolled)
	if !ok {
		s.logger.Warn("enrolled status code unmapped, sweep skipped")
		return result, nil
	}

	groups, err := s.attendance.ListClassGroups(ctx, enrolledID, s.cfg.TermID)
	if err != nil {
		return result, err
	}
	result.Classes = len(groups)

	for _, group := range groups {
		if err := s.sweepClass(ctx, group, enrolledID, &result); err != nil {
			return result, err
		}
	}

	s.logger.Info("attendance sweep finished",
		zap.Int("classes", result.Classes),
		zap.Int("students", result.Students),
		zap.Int("warned", result.Warned),
		zap.Int("deduplicated", result.Deduplicated),
		zap.Int("escalations", result.Escalations),
		zap.Int("send_errors", result.SendErrors),
	)
	return result, nil
}

func (s *WarningService) sweepClass(ctx context.Context, group models.ClassGroup, enrolledID string, result *SweepResult) error {
	total, err := s.attendance.CountSessions(ctx, group.ClassID)
	if err != nil {
		return err
	}
	if total == 0 {
		return nil
	}

	minAbsent := int(math.Ceil(float64(total) * s.cfg.MinRatio))
	maxAbsent := int(math.Floor(float64(total) * s.cfg.MaxRatio))

	absences, err := s.attendance.ListAbsences(ctx, group.ClassID, enrolledID)
	if err != nil {
		return err
	}
	result.Students += len(absences)

	for _, student := range absences {
		if student.AbsentCount < minAbsent {
			continue
		}
		if student.AbsentCount > maxAbsent {
			// Past the warning band; exclusion handling belongs to the
			// registrar workflow, not this sweep.
			result.Escalations++
			s.logger.Info("absence count above warning band",
				zap.String("student_id", student.StudentID),
				zap.String("class_id", group.ClassID),
				zap.Int("absent", student.AbsentCount),
				zap.Int("max", maxAbsent),
			)
			continue
		}

		key := dedup.Key(student.StudentID, group.ClassID, student.AbsentCount)
		seen, err := s.store.Seen(ctx, key)
		if err != nil {
			// Favor delivery over suppression when the store misbehaves.
			s.logger.Warn("dedup check failed, sending anyway",
				zap.String("key", key), zap.Error(err))
		} else if seen {
			result.Deduplicated++
			continue
		}

		if err := s.notifier.DispatchWarning(ctx, student, group.ClassName, total); err != nil {
			result.SendErrors++
			continue
		}
		result.Warned++

		if err := s.store.Mark(ctx, key, s.cfg.Cooldown); err != nil {
			s.logger.Warn("dedup mark failed", zap.String("key", key), zap.Error(err))
		}
	}
	return nil
}
