package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-fees-api/internal/dto"
	"github.com/noah-isme/school-fees-api/internal/models"
	appErrors "github.com/noah-isme/school-fees-api/pkg/errors"
)

type schoolStore interface {
	List(ctx context.Context, filter models.SchoolFilter) ([]models.School, int, error)
	FindByID(ctx context.Context, id string) (*models.School, error)
	ExistsByCode(ctx context.Context, code, excludeID string) (bool, error)
	Create(ctx context.Context, school *models.School) error
	Update(ctx context.Context, school *models.School) error
	Deactivate(ctx context.Context, id string) error
}

// SchoolService manages the school registry. Only platform admins mutate it;
// school admins may read their own school.
type SchoolService struct {
	repo      schoolStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSchoolService constructs the service.
func NewSchoolService(repo schoolStore, validate *validator.Validate, logger *zap.Logger) *SchoolService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SchoolService{repo: repo, validator: validate, logger: logger}
}

// List returns schools matching the query. Platform admins only.
func (s *SchoolService) List(ctx context.Context, query dto.SchoolQuery, actor *models.JWTClaims) ([]models.School, int, error) {
	if actor == nil {
		return nil, 0, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RolePlatformAdmin {
		return nil, 0, appErrors.ErrForbidden
	}
	schools, total, err := s.repo.List(ctx, models.SchoolFilter{
		Search:   query.Search,
		Active:   query.Active,
		Page:     query.Page,
		PageSize: query.PageSize,
	})
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to list schools")
	}
	return schools, total, nil
}

// Get returns a school. School admins may only read their own.
func (s *SchoolService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.School, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role == models.RoleSchoolAdmin && (actor.SchoolID == nil || *actor.SchoolID != id) {
		return nil, appErrors.ErrForbidden
	}
	school, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load school")
	}
	return school, nil
}

// Create onboards a new school with a unique code.
func (s *SchoolService) Create(ctx context.Context, req dto.CreateSchoolRequest, actor *models.JWTClaims) (*models.School, error) {
	if err := s.requirePlatformAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid school payload")
	}
	exists, err := s.repo.ExistsByCode(ctx, req.Code, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to check school code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "school code already in use")
	}
	school := &models.School{
		Code:    req.Code,
		Name:    req.Name,
		Email:   req.Email,
		Phone:   optionalString(req.Phone),
		Address: optionalString(req.Address),
		Active:  true,
	}
	if err := s.repo.Create(ctx, school); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to create school")
	}
	s.logger.Info("school created", zap.String("school_id", school.ID), zap.String("code", school.Code))
	return school, nil
}

// Update edits a school profile. The code is immutable after creation.
func (s *SchoolService) Update(ctx context.Context, id string, req dto.UpdateSchoolRequest, actor *models.JWTClaims) (*models.School, error) {
	if err := s.requirePlatformAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid school payload")
	}
	school, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load school")
	}
	school.Name = req.Name
	school.Email = req.Email
	school.Phone = optionalString(req.Phone)
	school.Address = optionalString(req.Address)
	if err := s.repo.Update(ctx, school); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to update school")
	}
	return school, nil
}

// Deactivate soft-deletes a school. Historical data stays intact.
func (s *SchoolService) Deactivate(ctx context.Context, id string, actor *models.JWTClaims) error {
	if err := s.requirePlatformAdmin(actor); err != nil {
		return err
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load school")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to deactivate school")
	}
	s.logger.Info("school deactivated", zap.String("school_id", id))
	return nil
}

func (s *SchoolService) requirePlatformAdmin(actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Role != models.RolePlatformAdmin {
		return appErrors.ErrForbidden
	}
	return nil
}
