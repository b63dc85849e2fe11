package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-fees-api/internal/dto"
	"github.com/noah-isme/school-fees-api/internal/models"
	"github.com/noah-isme/school-fees-api/internal/repository"
	"github.com/noah-isme/school-fees-api/pkg/config"
	appErrors "github.com/noah-isme/school-fees-api/pkg/errors"
)

const feeRateStatsCacheKey = "feerates:stats"

type feeRateStore interface {
	Create(ctx context.Context, rate *models.FeeRate) error
	FindByID(ctx context.Context, id string) (*models.FeeRate, error)
	FindActiveBySchool(ctx context.Context, schoolID string) (*models.FeeRate, error)
	List(ctx context.Context, filter models.FeeRateFilter) ([]models.FeeRate, int, error)
	Reject(ctx context.Context, params repository.RejectTransitionParams) error
	Activate(ctx context.Context, id, schoolID string, expectedStatus models.FeeRateStatus, expectedVersion int, now time.Time) error
	Stats(ctx context.Context) (*models.FeeRateStats, error)
}

type feeRateSchoolStore interface {
	FindByID(ctx context.Context, id string) (*models.School, error)
}

// FeeRateService drives the bilateral approval workflow for platform
// service-fee rates. A proposal by one side always waits on the other side's
// decision; activation supersedes the previously active rate atomically.
type FeeRateService struct {
	repo      feeRateStore
	schools   feeRateSchoolStore
	audit     auditLogger
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       config.FeeRatesConfig
}

// NewFeeRateService constructs the service. Cache and audit may be nil.
func NewFeeRateService(repo feeRateStore, schools feeRateSchoolStore, audit auditLogger, cache *CacheService, validate *validator.Validate, logger *zap.Logger, cfg config.FeeRatesConfig) *FeeRateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &FeeRateService{
		repo:      repo,
		schools:   schools,
		audit:     audit,
		cache:     cache,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// Propose creates a new fee rate proposal. The proposal starts pending the
// opposite party's decision: a platform admin's proposal waits on the school,
// a school admin's proposal waits on the platform.
func (s *FeeRateService) Propose(ctx context.Context, req dto.CreateFeeRateRequest, actor *models.JWTClaims) (*models.FeeRate, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid fee rate payload")
	}
	if req.FeePercentage < 0 || req.FeePercentage > 100 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "fee_percentage must be between 0 and 100")
	}
	if err := s.authorizeSchool(actor, req.SchoolID); err != nil {
		return nil, err
	}
	if _, err := s.schools.FindByID(ctx, req.SchoolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load school")
	}

	rate := &models.FeeRate{
		SchoolID:       req.SchoolID,
		FeePercentage:  req.FeePercentage,
		Status:         models.InitialFeeRateStatus(actor.Role),
		ProposedBy:     actor.UserID,
		ProposedByRole: actor.Role,
		Notes:          optionalString(req.Notes),
	}
	if err := s.repo.Create(ctx, rate); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to create fee rate")
	}

	s.invalidateStats(ctx)
	s.emitRateAudit(ctx, actor.UserID, models.AuditActionRatePropose, rate)
	s.logger.Info("fee rate proposed",
		zap.String("rate_id", rate.ID),
		zap.String("school_id", rate.SchoolID),
		zap.Float64("fee_percentage", rate.FeePercentage),
		zap.String("status", string(rate.Status)),
	)
	return rate, nil
}

// Approve moves a pending rate to active via the activation swap. The party
// that did not propose must be the one approving.
func (s *FeeRateService) Approve(ctx context.Context, id string, actor *models.JWTClaims) (*models.FeeRate, error) {
	rate, err := s.loadForDecision(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.repo.Activate(ctx, rate.ID, rate.SchoolID, rate.Status, rate.Version, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrConcurrentModification
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to activate fee rate")
	}

	rate.Status = models.FeeRateStatusActive
	rate.ActivatedAt = &now
	rate.UpdatedAt = now
	rate.Version++

	s.invalidateStats(ctx)
	s.emitRateAudit(ctx, actor.UserID, models.AuditActionRateApprove, rate)
	s.logger.Info("fee rate activated",
		zap.String("rate_id", rate.ID),
		zap.String("school_id", rate.SchoolID),
		zap.String("approved_by", actor.UserID),
	)
	return rate, nil
}

// Reject moves a pending rate to the rejecting party's terminal state.
func (s *FeeRateService) Reject(ctx context.Context, id string, req dto.RejectFeeRateRequest, actor *models.JWTClaims) (*models.FeeRate, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rejection payload")
	}
	rate, err := s.loadForDecision(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	newStatus := models.FeeRateStatusRejectedByAdmin
	if actor.Role == models.RoleSchoolAdmin {
		newStatus = models.FeeRateStatusRejectedBySchool
	}
	now := time.Now().UTC()
	reason := optionalString(req.Reason)
	if err := s.repo.Reject(ctx, repository.RejectTransitionParams{
		ID:              rate.ID,
		ExpectedStatus:  rate.Status,
		ExpectedVersion: rate.Version,
		NewStatus:       newStatus,
		RejectedAt:      now,
		RejectionReason: reason,
	}); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrConcurrentModification
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to reject fee rate")
	}

	rate.Status = newStatus
	rate.RejectedAt = &now
	rate.RejectionReason = reason
	rate.UpdatedAt = now
	rate.Version++

	s.invalidateStats(ctx)
	s.emitRateAudit(ctx, actor.UserID, models.AuditActionRateReject, rate)
	s.logger.Info("fee rate rejected",
		zap.String("rate_id", rate.ID),
		zap.String("school_id", rate.SchoolID),
		zap.String("status", string(newStatus)),
	)
	return rate, nil
}

// Get returns a rate by ID enforcing school scope.
func (s *FeeRateService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.FeeRate, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	rate, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load fee rate")
	}
	if err := s.authorizeSchool(actor, rate.SchoolID); err != nil {
		return nil, err
	}
	return rate, nil
}

// List returns rates matching the query, newest first. School admins only see
// their own school regardless of the requested filter.
func (s *FeeRateService) List(ctx context.Context, query dto.FeeRateQuery, actor *models.JWTClaims) ([]models.FeeRate, int, error) {
	if actor == nil {
		return nil, 0, appErrors.ErrUnauthorized
	}
	if query.Status != "" && !query.Status.Valid() {
		return nil, 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status: %s", query.Status))
	}
	filter := models.FeeRateFilter{
		SchoolID: query.SchoolID,
		Status:   query.Status,
		Page:     query.Page,
		PageSize: query.PageSize,
	}
	if actor.Role == models.RoleSchoolAdmin {
		if actor.SchoolID == nil {
			return nil, 0, appErrors.ErrForbidden
		}
		filter.SchoolID = *actor.SchoolID
	}
	rates, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to list fee rates")
	}
	return rates, total, nil
}

// ActiveRate returns the school's effective rate, or NotFound when the school
// has no active rate configured.
func (s *FeeRateService) ActiveRate(ctx context.Context, schoolID string) (*models.FeeRate, error) {
	rate, err := s.repo.FindActiveBySchool(ctx, schoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no active fee rate for school")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load active fee rate")
	}
	return rate, nil
}

// Stats returns workflow counters, serving from cache when warm.
func (s *FeeRateService) Stats(ctx context.Context) (*models.FeeRateStats, error) {
	if s.cache != nil {
		var cached models.FeeRateStats
		if hit, err := s.cache.Get(ctx, feeRateStatsCacheKey, &cached); err != nil {
			s.logger.Warn("fee rate stats cache read failed", zap.Error(err))
		} else if hit {
			return &cached, nil
		}
	}
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to aggregate fee rate stats")
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, feeRateStatsCacheKey, stats, s.cfg.StatsCacheTTL); err != nil {
			s.logger.Warn("fee rate stats cache write failed", zap.Error(err))
		}
	}
	return stats, nil
}

// loadForDecision fetches the rate and checks the actor may decide on it in
// its current state. Terminal states fail before role checks so callers learn
// the record already settled.
func (s *FeeRateService) loadForDecision(ctx context.Context, id string, actor *models.JWTClaims) (*models.FeeRate, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	rate, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load fee rate")
	}
	if !rate.Status.Pending() {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("fee rate is %s", rate.Status))
	}
	if err := s.authorizeSchool(actor, rate.SchoolID); err != nil {
		return nil, err
	}
	switch rate.Status {
	case models.FeeRateStatusPendingSchool:
		if actor.Role != models.RoleSchoolAdmin {
			return nil, appErrors.ErrUnauthorizedTransition
		}
	case models.FeeRateStatusPendingAdmin:
		if actor.Role != models.RolePlatformAdmin {
			return nil, appErrors.ErrUnauthorizedTransition
		}
	}
	return rate, nil
}

// authorizeSchool enforces school scoping: platform admins reach any school,
// school admins only their own.
func (s *FeeRateService) authorizeSchool(actor *models.JWTClaims, schoolID string) error {
	switch actor.Role {
	case models.RolePlatformAdmin:
		return nil
	case models.RoleSchoolAdmin:
		if actor.SchoolID != nil && *actor.SchoolID == schoolID {
			return nil
		}
		return appErrors.ErrForbidden
	default:
		return appErrors.ErrForbidden
	}
}

func (s *FeeRateService) invalidateStats(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, feeRateStatsCacheKey); err != nil {
		s.logger.Warn("fee rate stats cache invalidation failed", zap.Error(err))
	}
}

func (s *FeeRateService) emitRateAudit(ctx context.Context, userID, action string, rate *models.FeeRate) {
	if s.audit == nil {
		return
	}
	payload, err := json.Marshal(rate)
	if err != nil {
		payload = []byte("{}")
	}
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "fee_rate",
		ResourceID: &rate.ID,
		NewValues:  payload,
	}); err != nil {
		s.logger.Warn("audit log write failed", zap.String("action", action), zap.Error(err))
	}
}
