package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-fees-api/internal/dto"
	"github.com/noah-isme/school-fees-api/internal/models"
	"github.com/noah-isme/school-fees-api/pkg/config"
	appErrors "github.com/noah-isme/school-fees-api/pkg/errors"
	"github.com/noah-isme/school-fees-api/pkg/export"
)

type receiptTemplateStore interface {
	ListBySchool(ctx context.Context, schoolID string) ([]models.ReceiptTemplate, error)
	FindByID(ctx context.Context, id string) (*models.ReceiptTemplate, error)
	FindDefaultBySchool(ctx context.Context, schoolID string) (*models.ReceiptTemplate, error)
	Create(ctx context.Context, template *models.ReceiptTemplate) error
	Update(ctx context.Context, template *models.ReceiptTemplate) error
	SetDefault(ctx context.Context, id, schoolID string) error
	Delete(ctx context.Context, id string) error
}

type receiptPaymentLoader interface {
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Payment, error)
}

type receiptStudentStore interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type receiptSchoolStore interface {
	FindByID(ctx context.Context, id string) (*models.School, error)
}

type receiptRenderer interface {
	Render(doc export.ReceiptDocument) ([]byte, error)
}

// ReceiptService manages per-school receipt templates and renders PDF
// receipts for recorded payments.
type ReceiptService struct {
	templates receiptTemplateStore
	payments  receiptPaymentLoader
	students  receiptStudentStore
	schools   receiptSchoolStore
	renderer  receiptRenderer
	validator *validator.Validate
	logger    *zap.Logger
	cfg       config.ReceiptsConfig
}

// NewReceiptService constructs the service.
func NewReceiptService(templates receiptTemplateStore, payments receiptPaymentLoader, students receiptStudentStore, schools receiptSchoolStore, renderer receiptRenderer, validate *validator.Validate, logger *zap.Logger, cfg config.ReceiptsConfig) *ReceiptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if renderer == nil {
		renderer = export.NewReceiptRenderer()
	}
	return &ReceiptService{
		templates: templates,
		payments:  payments,
		students:  students,
		schools:   schools,
		renderer:  renderer,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// ListTemplates returns a school's templates.
func (s *ReceiptService) ListTemplates(ctx context.Context, schoolID string, actor *models.JWTClaims) ([]models.ReceiptTemplate, error) {
	if err := s.authorize(actor, schoolID); err != nil {
		return nil, err
	}
	templates, err := s.templates.ListBySchool(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to list receipt templates")
	}
	return templates, nil
}

// CreateTemplate stores a new template, optionally promoting it to default.
func (s *ReceiptService) CreateTemplate(ctx context.Context, req dto.CreateReceiptTemplateRequest, actor *models.JWTClaims) (*models.ReceiptTemplate, error) {
	if err := s.authorize(actor, req.SchoolID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid receipt template payload")
	}
	template := &models.ReceiptTemplate{
		SchoolID:   req.SchoolID,
		Name:       req.Name,
		HeaderText: req.HeaderText,
		FooterText: req.FooterText,
		ShowLogo:   req.ShowLogo,
	}
	if err := s.templates.Create(ctx, template); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to create receipt template")
	}
	if req.IsDefault {
		if err := s.templates.SetDefault(ctx, template.ID, template.SchoolID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to set default template")
		}
		template.IsDefault = true
	}
	return template, nil
}

// UpdateTemplate edits a template's content.
func (s *ReceiptService) UpdateTemplate(ctx context.Context, id string, req dto.UpdateReceiptTemplateRequest, actor *models.JWTClaims) (*models.ReceiptTemplate, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid receipt template payload")
	}
	template, err := s.loadTemplate(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	template.Name = req.Name
	template.HeaderText = req.HeaderText
	template.FooterText = req.FooterText
	template.ShowLogo = req.ShowLogo
	if err := s.templates.Update(ctx, template); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to update receipt template")
	}
	return template, nil
}

// SetDefaultTemplate promotes a template to the school's single default.
func (s *ReceiptService) SetDefaultTemplate(ctx context.Context, id string, actor *models.JWTClaims) (*models.ReceiptTemplate, error) {
	template, err := s.loadTemplate(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if err := s.templates.SetDefault(ctx, template.ID, template.SchoolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrConcurrentModification
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to set default template")
	}
	template.IsDefault = true
	return template, nil
}

// DeleteTemplate removes a template. The default template cannot be deleted.
func (s *ReceiptService) DeleteTemplate(ctx context.Context, id string, actor *models.JWTClaims) error {
	template, err := s.loadTemplate(ctx, id, actor)
	if err != nil {
		return err
	}
	if template.IsDefault {
		return appErrors.Clone(appErrors.ErrConflict, "default template cannot be deleted")
	}
	if err := s.templates.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to delete receipt template")
	}
	return nil
}

// RenderReceipt produces the PDF receipt for a payment using the school's
// default template, or built-in defaults when none is configured.
func (s *ReceiptService) RenderReceipt(ctx context.Context, paymentID string, actor *models.JWTClaims) ([]byte, string, error) {
	payment, err := s.payments.Get(ctx, paymentID, actor)
	if err != nil {
		return nil, "", err
	}
	if payment.Voided {
		return nil, "", appErrors.Clone(appErrors.ErrConflict, "receipts are not issued for voided payments")
	}
	school, err := s.schools.FindByID(ctx, payment.SchoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load school")
	}
	student, err := s.students.FindByID(ctx, payment.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load student")
	}

	headerText := ""
	footerText := s.cfg.FooterNotice
	if template, err := s.templates.FindDefaultBySchool(ctx, payment.SchoolID); err == nil {
		headerText = template.HeaderText
		if template.FooterText != "" {
			footerText = template.FooterText
		}
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, "", appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load receipt template")
	}

	doc := export.ReceiptDocument{
		SchoolName:    school.Name,
		HeaderText:    headerText,
		FooterText:    footerText,
		ReceiptNumber: payment.ReceiptNumber,
		IssuedAt:      payment.PaidAt.Format("02 Jan 2006 15:04"),
		Lines: []export.ReceiptLine{
			{Label: "Student", Value: student.FullName},
			{Label: "Admission no.", Value: student.AdmissionNumber},
			{Label: "Method", Value: string(payment.Method)},
		},
		TotalLabel: "Total paid",
		TotalValue: fmt.Sprintf("%s %.2f", payment.Currency, payment.Amount),
	}
	if payment.Reference != nil {
		doc.Lines = append(doc.Lines, export.ReceiptLine{Label: "Reference", Value: *payment.Reference})
	}

	pdf, err := s.renderer.Render(doc)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render receipt")
	}
	filename := fmt.Sprintf("receipt-%s.pdf", payment.ReceiptNumber)
	return pdf, filename, nil
}

func (s *ReceiptService) loadTemplate(ctx context.Context, id string, actor *models.JWTClaims) (*models.ReceiptTemplate, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	template, err := s.templates.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load receipt template")
	}
	if err := s.authorize(actor, template.SchoolID); err != nil {
		return nil, err
	}
	return template, nil
}

func (s *ReceiptService) authorize(actor *models.JWTClaims, schoolID string) error {
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
