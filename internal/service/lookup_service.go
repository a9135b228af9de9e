package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/CETS-Org/cets-worker/internal/models"
)

type lookupReader interface {
	ListByCategory(ctx context.Context, category models.LookupCategory) ([]models.Lookup, error)
}

// RefTable holds the one-time resolution of symbolic status/type codes into
// the identifiers used by the store. Codes missing at startup stay unmapped;
// queries needing them degrade to empty result sets.
type RefTable struct {
	types            map[models.RequestType]string
	statuses         map[models.RequestStatus]string
	enrollmentStatus map[models.EnrollmentStatus]string
}

// RequestType returns the identifier for a request type code.
func (t *RefTable) RequestType(code models.RequestType) (string, bool) {
	id, ok := t.types[code]
	return id, ok
}

// RequestStatus returns the identifier for a request status code.
func (t *RefTable) RequestStatus(code models.RequestStatus) (string, bool) {
	id, ok := t.statuses[code]
	return id, ok
}

// EnrollmentStatus returns the identifier for an enrollment status code.
func (t *RefTable) EnrollmentStatus(code models.EnrollmentStatus) (string, bool) {
	id, ok := t.enrollmentStatus[code]
	return id, ok
}

// LookupService loads the lookup table into a typed RefTable at startup.
type LookupService struct {
	repo   lookupReader
	logger *zap.Logger
}

// NewLookupService constructs the lookup service.
func NewLookupService(repo lookupReader, logger *zap.Logger) *LookupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LookupService{repo: repo, logger: logger}
}

// Resolve loads every category and warns about unmapped codes from the closed
// enumerations instead of failing startup.
func (s *LookupService) Resolve(ctx context.Context) (*RefTable, error) {
	table := &RefTable{
		types:            make(map[models.RequestType]string),
		statuses:         make(map[models.RequestStatus]string),
		enrollmentStatus: make(map[models.EnrollmentStatus]string),
	}

	typeLookups, err := s.repo.ListByCategory(ctx, models.LookupRequestType)
	if err != nil {
		return nil, fmt.Errorf("load request types: %w", err)
	}
	byCode := indexByCode(typeLookups)
	for _, code := range []models.RequestType{models.RequestTypeSuspension, models.RequestTypeDropout} {
		if id, ok := byCode[string(code)]; ok {
			table.types[code] = id
		} else {
			s.logger.Warn("request type code unmapped", zap.String("code", string(code)))
		}
	}

	statusLookups, err := s.repo.ListByCategory(ctx, models.LookupRequestStatus)
	if err != nil {
		return nil, fmt.Errorf("load request statuses: %w", err)
	}
	byCode = indexByCode(statusLookups)
	for _, code := range []models.RequestStatus{
		models.RequestStatusPending, models.RequestStatusApproved, models.RequestStatusSuspended,
		models.RequestStatusAwaitingReturn, models.RequestStatusAutoDroppedOut,
		models.RequestStatusCompleted, models.RequestStatusExpired,
	} {
		if id, ok := byCode[string(code)]; ok {
			table.statuses[code] = id
		} else {
			s.logger.Warn("request status code unmapped", zap.String("code", string(code)))
		}
	}

	enrollmentLookups, err := s.repo.ListByCategory(ctx, models.LookupEnrollmentStatus)
	if err != nil {
		return nil, fmt.Errorf("load enrollment statuses: %w", err)
	}
	byCode = indexByCode(enrollmentLookups)
	for _, code := range []models.EnrollmentStatus{
		models.EnrollmentStatusEnrolled, models.EnrollmentStatusSuspended, models.EnrollmentStatusDropped,
	} {
		if id, ok := byCode[string(code)]; ok {
			table.enrollmentStatus[code] = id
		} else {
			s.logger.Warn("enrollment status code unmapped", zap.String("code", string(code)))
		}
	}

	return table, nil
}

// indexByCode keys by upper-cased code; stored codes may differ in case from
// the closed enumerations.
func indexByCode(lookups []models.Lookup) map[string]string {
	index := make(map[string]string, len(lookups))
	for _, l := range lookups {
		index[strings.ToUpper(l.Code)] = l.ID
	}
	return index
}
