package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/school-fees-api/internal/dto"
	"github.com/noah-isme/school-fees-api/internal/models"
	appErrors "github.com/noah-isme/school-fees-api/pkg/errors"
)

type dashboardFeeRateProvider interface {
	Stats(ctx context.Context) (*models.FeeRateStats, error)
	ActiveRate(ctx context.Context, schoolID string) (*models.FeeRate, error)
	List(ctx context.Context, query dto.FeeRateQuery, actor *models.JWTClaims) ([]models.FeeRate, int, error)
}

type dashboardPaymentSummarizer interface {
	Summary(ctx context.Context, schoolID string, from, to *time.Time) (*models.PaymentSummary, error)
}

type dashboardSchoolCounter interface {
	CountActive(ctx context.Context) (int, error)
}

type dashboardStudentCounter interface {
	CountBySchool(ctx context.Context, schoolID string) (int, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
}

// DashboardService composes summary payloads for the admin and school views.
type DashboardService struct {
	feeRates dashboardFeeRateProvider
	payments dashboardPaymentSummarizer
	schools  dashboardSchoolCounter
	students dashboardStudentCounter
	cache    *CacheService
	logger   *zap.Logger
	now      func() time.Time
	cfg      DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	FeeRates dashboardFeeRateProvider
	Payments dashboardPaymentSummarizer
	Schools  dashboardSchoolCounter
	Students dashboardStudentCounter
	Cache    *CacheService
	Logger   *zap.Logger
	Config   DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		feeRates: params.FeeRates,
		payments: params.Payments,
		schools:  params.Schools,
		students: params.Students,
		cache:    params.Cache,
		logger:   logger,
		now:      time.Now,
		cfg:      cfg,
	}
}

// Admin returns the platform summary and indicates cache utilisation.
func (s *DashboardService) Admin(ctx context.Context, actor *models.JWTClaims) (*dto.AdminDashboardResponse, bool, error) {
	if actor == nil {
		return nil, false, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RolePlatformAdmin {
		return nil, false, appErrors.ErrForbidden
	}
	const cacheKey = "dash:admin"
	if s.cache != nil {
		var cached dto.AdminDashboardResponse
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
			s.logger.Warn("dashboard cache read failed", zap.String("key", cacheKey), zap.Error(err))
		} else if hit {
			return &cached, true, nil
		}
	}

	summary, err := s.composeAdminSummary(ctx)
	if err != nil {
		return nil, false, err
	}
	s.persistCache(ctx, cacheKey, summary)
	return summary, false, nil
}

// School returns a school admin's summary and indicates cache utilisation.
func (s *DashboardService) School(ctx context.Context, schoolID string, actor *models.JWTClaims) (*dto.SchoolDashboardResponse, bool, error) {
	if actor == nil {
		return nil, false, appErrors.ErrUnauthorized
	}
	if actor.Role == models.RoleSchoolAdmin {
		if actor.SchoolID == nil {
			return nil, false, appErrors.ErrForbidden
		}
		schoolID = *actor.SchoolID
	}
	if schoolID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "school_id is required")
	}
	cacheKey := fmt.Sprintf("dash:school:%s", schoolID)
	if s.cache != nil {
		var cached dto.SchoolDashboardResponse
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
			s.logger.Warn("dashboard cache read failed", zap.String("key", cacheKey), zap.Error(err))
		} else if hit {
			return &cached, true, nil
		}
	}

	summary, err := s.composeSchoolSummary(ctx, schoolID, actor)
	if err != nil {
		return nil, false, err
	}
	s.persistCache(ctx, cacheKey, summary)
	return summary, false, nil
}

func (s *DashboardService) composeAdminSummary(ctx context.Context) (*dto.AdminDashboardResponse, error) {
	stats, err := s.feeRates.Stats(ctx)
	if err != nil {
		return nil, err
	}
	allTime, err := s.payments.Summary(ctx, "", nil, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to summarise payments")
	}
	since := s.now().UTC().AddDate(0, 0, -30)
	recent, err := s.payments.Summary(ctx, "", &since, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to summarise recent payments")
	}
	activeSchools, err := s.schools.CountActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to count schools")
	}
	return &dto.AdminDashboardResponse{
		FeeRates:      *stats,
		Collections:   *allTime,
		Last30Days:    *recent,
		ActiveSchools: activeSchools,
	}, nil
}

func (s *DashboardService) composeSchoolSummary(ctx context.Context, schoolID string, actor *models.JWTClaims) (*dto.SchoolDashboardResponse, error) {
	allTime, err := s.payments.Summary(ctx, schoolID, nil, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to summarise payments")
	}
	since := s.now().UTC().AddDate(0, 0, -30)
	recent, err := s.payments.Summary(ctx, schoolID, &since, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to summarise recent payments")
	}
	studentCount, err := s.students.CountBySchool(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to count students")
	}

	summary := &dto.SchoolDashboardResponse{
		SchoolID:     schoolID,
		Collections:  *allTime,
		Last30Days:   *recent,
		StudentCount: studentCount,
	}

	active, err := s.feeRates.ActiveRate(ctx, schoolID)
	if err == nil {
		summary.ActiveFeeRate = active
	} else {
		var appErr *appErrors.Error
		if !errors.As(err, &appErr) || appErr.Code != appErrors.ErrNotFound.Code {
			return nil, err
		}
	}

	pending, _, err := s.feeRates.List(ctx, dto.FeeRateQuery{SchoolID: schoolID, Status: models.FeeRateStatusPendingSchool, PageSize: 1}, actor)
	if err != nil {
		return nil, err
	}
	if len(pending) > 0 {
		summary.PendingFeeRate = &pending[0]
	}
	return summary, nil
}

func (s *DashboardService) persistCache(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
}
