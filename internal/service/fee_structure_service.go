package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-fees-api/internal/dto"
	"github.com/noah-isme/school-fees-api/internal/models"
	appErrors "github.com/noah-isme/school-fees-api/pkg/errors"
)

type feeStructureStore interface {
	CreateWithInstallments(ctx context.Context, structure *models.FeeStructure, installments []models.Installment) error
	FindByID(ctx context.Context, id string) (*models.FeeStructure, error)
	ListInstallments(ctx context.Context, structureID string) ([]models.Installment, error)
	List(ctx context.Context, filter models.FeeStructureFilter) ([]models.FeeStructure, int, error)
	UpdateDraft(ctx context.Context, structure *models.FeeStructure, installments []models.Installment) error
	Publish(ctx context.Context, id string) (int64, error)
}

// FeeStructureService implements the fee plan wizard: totals are split into
// installment schedules per plan type, drafts stay editable, publishing
// freezes the structure.
type FeeStructureService struct {
	repo      feeStructureStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFeeStructureService constructs the service.
func NewFeeStructureService(repo feeStructureStore, validate *validator.Validate, logger *zap.Logger) *FeeStructureService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &FeeStructureService{repo: repo, validator: validate, logger: logger}
}

// Create validates the wizard input, derives the installment schedule and
// stores both in one transaction.
func (s *FeeStructureService) Create(ctx context.Context, req dto.CreateFeeStructureRequest, actor *models.JWTClaims) (*dto.FeeStructureResponse, error) {
	if err := s.authorize(actor, req.SchoolID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid fee structure payload")
	}
	if req.DiscountPercent < 0 || req.DiscountPercent > 100 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "discount_percent must be between 0 and 100")
	}
	if !req.PlanType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown plan type: %s", req.PlanType))
	}

	structure := &models.FeeStructure{
		SchoolID:        req.SchoolID,
		Name:            req.Name,
		AcademicYear:    req.AcademicYear,
		TotalAmount:     discountedTotal(req.TotalAmount, req.DiscountPercent),
		Currency:        strings.ToUpper(req.Currency),
		PlanType:        req.PlanType,
		DiscountPercent: req.DiscountPercent,
		Status:          models.FeeStructureStatusDraft,
	}
	installments, err := buildInstallments(structure.TotalAmount, req.PlanType, req.InstallmentCount, req.StartDate, req.CustomInstallments)
	if err != nil {
		return nil, err
	}
	structure.InstallmentCount = len(installments)

	if err := s.repo.CreateWithInstallments(ctx, structure, installments); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to create fee structure")
	}
	s.logger.Info("fee structure created",
		zap.String("structure_id", structure.ID),
		zap.String("school_id", structure.SchoolID),
		zap.String("plan_type", string(structure.PlanType)),
		zap.Int("installments", len(installments)),
	)
	return &dto.FeeStructureResponse{FeeStructure: *structure, Installments: installments}, nil
}

// Get returns a structure with its installment schedule.
func (s *FeeStructureService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*dto.FeeStructureResponse, error) {
	structure, err := s.load(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	installments, err := s.repo.ListInstallments(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load installments")
	}
	return &dto.FeeStructureResponse{FeeStructure: *structure, Installments: installments}, nil
}

// List returns structures matching the query. School admins are pinned to
// their own school.
func (s *FeeStructureService) List(ctx context.Context, query dto.FeeStructureQuery, actor *models.JWTClaims) ([]models.FeeStructure, int, error) {
	if actor == nil {
		return nil, 0, appErrors.ErrUnauthorized
	}
	filter := models.FeeStructureFilter{
		SchoolID:     query.SchoolID,
		AcademicYear: query.AcademicYear,
		Status:       query.Status,
		Page:         query.Page,
		PageSize:     query.PageSize,
	}
	if actor.Role == models.RoleSchoolAdmin {
		if actor.SchoolID == nil {
			return nil, 0, appErrors.ErrForbidden
		}
		filter.SchoolID = *actor.SchoolID
	}
	structures, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to list fee structures")
	}
	return structures, total, nil
}

// Update rewrites a draft structure and its schedule. Published structures
// cannot change.
func (s *FeeStructureService) Update(ctx context.Context, id string, req dto.UpdateFeeStructureRequest, actor *models.JWTClaims) (*dto.FeeStructureResponse, error) {
	structure, err := s.load(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if structure.Status != models.FeeStructureStatusDraft {
		return nil, appErrors.Clone(appErrors.ErrFinalized, "published fee structures cannot be modified")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid fee structure payload")
	}
	if req.DiscountPercent < 0 || req.DiscountPercent > 100 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "discount_percent must be between 0 and 100")
	}
	if !req.PlanType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown plan type: %s", req.PlanType))
	}

	structure.Name = req.Name
	structure.TotalAmount = discountedTotal(req.TotalAmount, req.DiscountPercent)
	structure.PlanType = req.PlanType
	structure.DiscountPercent = req.DiscountPercent
	installments, err := buildInstallments(structure.TotalAmount, req.PlanType, req.InstallmentCount, req.StartDate, req.CustomInstallments)
	if err != nil {
		return nil, err
	}
	structure.InstallmentCount = len(installments)

	if err := s.repo.UpdateDraft(ctx, structure, installments); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrFinalized, "fee structure was published concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to update fee structure")
	}
	return &dto.FeeStructureResponse{FeeStructure: *structure, Installments: installments}, nil
}

// Publish freezes a draft structure.
func (s *FeeStructureService) Publish(ctx context.Context, id string, actor *models.JWTClaims) (*models.FeeStructure, error) {
	structure, err := s.load(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if structure.Status != models.FeeStructureStatusDraft {
		return nil, appErrors.Clone(appErrors.ErrFinalized, "fee structure already published")
	}
	rows, err := s.repo.Publish(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to publish fee structure")
	}
	if rows == 0 {
		return nil, appErrors.Clone(appErrors.ErrFinalized, "fee structure was published concurrently")
	}
	structure.Status = models.FeeStructureStatusPublished
	s.logger.Info("fee structure published", zap.String("structure_id", id))
	return structure, nil
}

func (s *FeeStructureService) load(ctx context.Context, id string, actor *models.JWTClaims) (*models.FeeStructure, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	structure, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load fee structure")
	}
	if err := s.authorize(actor, structure.SchoolID); err != nil {
		return nil, err
	}
	return structure, nil
}

func (s *FeeStructureService) authorize(actor *models.JWTClaims, schoolID string) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Role == models.RolePlatformAdmin {
		return nil
	}
	if actor.Role == models.RoleSchoolAdmin && actor.SchoolID != nil && *actor.SchoolID == schoolID {
		return nil
	}
	return appErrors.ErrForbidden
}

func discountedTotal(total, discountPercent float64) float64 {
	cents := int64(math.Round(total * 100))
	discounted := cents - int64(math.Round(float64(cents)*discountPercent/100))
	return float64(discounted) / 100
}

// buildInstallments splits the (already discounted) total into a schedule.
// Equal splits are computed in cents with the remainder folded into the last
// installment so the schedule always sums to the total exactly.
func buildInstallments(total float64, plan models.PlanType, count int, start time.Time, custom []dto.CustomInstallmentInput) ([]models.Installment, error) {
	switch plan {
	case models.PlanTypeOneTime:
		return []models.Installment{{Sequence: 1, Label: "Full payment", Amount: total, DueDate: start}}, nil
	case models.PlanTypeMonthly:
		if count <= 0 {
			count = 12
		}
		return equalSplit(total, count, start, 1, "Month"), nil
	case models.PlanTypeTermly:
		if count <= 0 {
			count = 3
		}
		return equalSplit(total, count, start, 4, "Term"), nil
	case models.PlanTypeCustom:
		if len(custom) == 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "custom plans require at least one installment")
		}
		var sumCents int64
		installments := make([]models.Installment, 0, len(custom))
		for i, in := range custom {
			sumCents += int64(math.Round(in.Amount * 100))
			installments = append(installments, models.Installment{
				Sequence: i + 1,
				Label:    in.Label,
				Amount:   in.Amount,
				DueDate:  in.DueDate,
			})
		}
		if sumCents != int64(math.Round(total*100)) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "custom installments must sum to the total amount")
		}
		return installments, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown plan type: %s", plan))
	}
}

func equalSplit(total float64, count int, start time.Time, monthStep int, labelPrefix string) []models.Installment {
	totalCents := int64(math.Round(total * 100))
	base := totalCents / int64(count)
	installments := make([]models.Installment, count)
	var allocated int64
	for i := 0; i < count; i++ {
		amount := base
		if i == count-1 {
			amount = totalCents - allocated
		}
		allocated += amount
		installments[i] = models.Installment{
			Sequence: i + 1,
			Label:    fmt.Sprintf("%s %d", labelPrefix, i+1),
			Amount:   float64(amount) / 100,
			DueDate:  start.AddDate(0, i*monthStep, 0),
		}
	}
	return installments
}
