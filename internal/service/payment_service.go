package service

import (
	"context"
	"database/sql"
	"encoding/json"
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

type paymentStore interface {
	Create(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, id string) (*models.Payment, error)
	List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int, error)
	Void(ctx context.Context, id, reason string) (int64, error)
	Summary(ctx context.Context, schoolID string, from, to *time.Time) (*models.PaymentSummary, error)
	NextReceiptNumber(ctx context.Context, schoolID string) (int64, error)
}

type paymentStudentStore interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type paymentSchoolStore interface {
	FindByID(ctx context.Context, id string) (*models.School, error)
}

// activeRateResolver yields the school's effective platform fee rate.
type activeRateResolver interface {
	ActiveRate(ctx context.Context, schoolID string) (*models.FeeRate, error)
}

// PaymentService records offline payments. Each payment is stamped with the
// school's active platform fee at recording time and assigned a sequential
// per-school receipt number.
type PaymentService struct {
	repo      paymentStore
	students  paymentStudentStore
	schools   paymentSchoolStore
	rates     activeRateResolver
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPaymentService constructs the service. The audit sink may be nil.
func NewPaymentService(repo paymentStore, students paymentStudentStore, schools paymentSchoolStore, rates activeRateResolver, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &PaymentService{
		repo:      repo,
		students:  students,
		schools:   schools,
		rates:     rates,
		audit:     audit,
		validator: validate,
		logger:    logger,
	}
}

// Record validates and stores a payment, stamping the platform fee.
func (s *PaymentService) Record(ctx context.Context, req dto.CreatePaymentRequest, actor *models.JWTClaims) (*models.Payment, error) {
	if err := s.authorize(actor, req.SchoolID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}
	if !req.Method.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown payment method: %s", req.Method))
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load student")
	}
	if student.SchoolID != req.SchoolID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student does not belong to the school")
	}
	if !student.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student is deactivated")
	}

	school, err := s.schools.FindByID(ctx, req.SchoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load school")
	}

	feePercent, feeAmount, err := s.platformFee(ctx, req.SchoolID, req.Amount)
	if err != nil {
		return nil, err
	}
	sequence, err := s.repo.NextReceiptNumber(ctx, req.SchoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to allocate receipt number")
	}

	paidAt := time.Now().UTC()
	if req.PaidAt != nil {
		paidAt = req.PaidAt.UTC()
	}
	payment := &models.Payment{
		SchoolID:           req.SchoolID,
		StudentID:          req.StudentID,
		FeeStructureID:     optionalString(req.FeeStructureID),
		InstallmentID:      optionalString(req.InstallmentID),
		Amount:             req.Amount,
		Currency:           strings.ToUpper(req.Currency),
		Method:             req.Method,
		Reference:          optionalString(req.Reference),
		PlatformFeePercent: feePercent,
		PlatformFeeAmount:  feeAmount,
		ReceiptNumber:      fmt.Sprintf("RCP-%s-%06d", strings.ToUpper(school.Code), sequence),
		RecordedBy:         actor.UserID,
		PaidAt:             paidAt,
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to record payment")
	}

	s.emitPaymentAudit(ctx, actor.UserID, models.AuditActionPaymentRecord, payment)
	s.logger.Info("payment recorded",
		zap.String("payment_id", payment.ID),
		zap.String("school_id", payment.SchoolID),
		zap.String("receipt_number", payment.ReceiptNumber),
		zap.Float64("amount", payment.Amount),
		zap.Float64("platform_fee", payment.PlatformFeeAmount),
	)
	return payment, nil
}

// Get returns a payment enforcing school scope.
func (s *PaymentService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Payment, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load payment")
	}
	if err := s.authorize(actor, payment.SchoolID); err != nil {
		return nil, err
	}
	return payment, nil
}

// List returns payments matching the query. School admins are pinned to
// their own school.
func (s *PaymentService) List(ctx context.Context, query dto.PaymentQuery, actor *models.JWTClaims) ([]models.Payment, int, error) {
	if actor == nil {
		return nil, 0, appErrors.ErrUnauthorized
	}
	filter := models.PaymentFilter{
		SchoolID:  query.SchoolID,
		StudentID: query.StudentID,
		Method:    query.Method,
		From:      query.From,
		To:        query.To,
		Voided:    query.Voided,
		Page:      query.Page,
		PageSize:  query.PageSize,
	}
	if actor.Role == models.RoleSchoolAdmin {
		if actor.SchoolID == nil {
			return nil, 0, appErrors.ErrForbidden
		}
		filter.SchoolID = *actor.SchoolID
	}
	payments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to list payments")
	}
	return payments, total, nil
}

// Void cancels a payment. Voided rows stay listed for the audit trail.
func (s *PaymentService) Void(ctx context.Context, id string, req dto.VoidPaymentRequest, actor *models.JWTClaims) (*models.Payment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid void payload")
	}
	payment, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if payment.Voided {
		return nil, appErrors.Clone(appErrors.ErrConflict, "payment already voided")
	}
	rows, err := s.repo.Void(ctx, id, req.Reason)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to void payment")
	}
	if rows == 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, "payment already voided")
	}
	payment.Voided = true
	payment.VoidReason = &req.Reason

	s.emitPaymentAudit(ctx, actor.UserID, models.AuditActionPaymentVoid, payment)
	s.logger.Info("payment voided", zap.String("payment_id", id), zap.String("reason", req.Reason))
	return payment, nil
}

// Summary aggregates collections for a school over an optional period.
func (s *PaymentService) Summary(ctx context.Context, schoolID string, from, to *time.Time, actor *models.JWTClaims) (*models.PaymentSummary, error) {
	if err := s.authorize(actor, schoolID); err != nil {
		return nil, err
	}
	summary, err := s.repo.Summary(ctx, schoolID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to summarise payments")
	}
	return summary, nil
}

// platformFee resolves the school's active rate. No active rate means no fee.
func (s *PaymentService) platformFee(ctx context.Context, schoolID string, amount float64) (float64, float64, error) {
	rate, err := s.rates.ActiveRate(ctx, schoolID)
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Code == appErrors.ErrNotFound.Code {
			return 0, 0, nil
		}
		return 0, 0, err
	}
	feeCents := int64(math.Round(amount * rate.FeePercentage))
	return rate.FeePercentage, float64(feeCents) / 100, nil
}

func (s *PaymentService) authorize(actor *models.JWTClaims, schoolID string) error {
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

func (s *PaymentService) emitPaymentAudit(ctx context.Context, userID, action string, payment *models.Payment) {
	if s.audit == nil {
		return
	}
	payload, err := json.Marshal(payment)
	if err != nil {
		payload = []byte("{}")
	}
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "payment",
		ResourceID: &payment.ID,
		NewValues:  payload,
	}); err != nil {
		s.logger.Warn("audit log write failed", zap.String("action", action), zap.Error(err))
	}
}
