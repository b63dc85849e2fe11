package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-fees-api/internal/dto"
	"github.com/noah-isme/school-fees-api/internal/models"
	"github.com/noah-isme/school-fees-api/pkg/config"
	appErrors "github.com/noah-isme/school-fees-api/pkg/errors"
	"github.com/noah-isme/school-fees-api/pkg/export"
)

type receiptTemplateRepoStub struct {
	templates map[string]*models.ReceiptTemplate
}

func newReceiptTemplateRepoStub() *receiptTemplateRepoStub {
	return &receiptTemplateRepoStub{templates: make(map[string]*models.ReceiptTemplate)}
}

func (m *receiptTemplateRepoStub) ListBySchool(ctx context.Context, schoolID string) ([]models.ReceiptTemplate, error) {
	var result []models.ReceiptTemplate
	for _, tpl := range m.templates {
		if tpl.SchoolID == schoolID {
			result = append(result, *tpl)
		}
	}
	return result, nil
}

func (m *receiptTemplateRepoStub) FindByID(ctx context.Context, id string) (*models.ReceiptTemplate, error) {
	if tpl, ok := m.templates[id]; ok {
		copy := *tpl
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *receiptTemplateRepoStub) FindDefaultBySchool(ctx context.Context, schoolID string) (*models.ReceiptTemplate, error) {
	for _, tpl := range m.templates {
		if tpl.SchoolID == schoolID && tpl.IsDefault {
			copy := *tpl
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *receiptTemplateRepoStub) Create(ctx context.Context, template *models.ReceiptTemplate) error {
	if template.ID == "" {
		template.ID = uuid.NewString()
	}
	m.templates[template.ID] = template
	return nil
}

func (m *receiptTemplateRepoStub) Update(ctx context.Context, template *models.ReceiptTemplate) error {
	if _, ok := m.templates[template.ID]; !ok {
		return sql.ErrNoRows
	}
	m.templates[template.ID] = template
	return nil
}

func (m *receiptTemplateRepoStub) SetDefault(ctx context.Context, id, schoolID string) error {
	target, ok := m.templates[id]
	if !ok || target.SchoolID != schoolID {
		return sql.ErrNoRows
	}
	for _, tpl := range m.templates {
		if tpl.SchoolID == schoolID {
			tpl.IsDefault = tpl.ID == id
		}
	}
	return nil
}

func (m *receiptTemplateRepoStub) Delete(ctx context.Context, id string) error {
	if _, ok := m.templates[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.templates, id)
	return nil
}

type receiptPaymentStub struct {
	payment *models.Payment
}

func (m *receiptPaymentStub) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Payment, error) {
	if m.payment == nil || m.payment.ID != id {
		return nil, appErrors.ErrNotFound
	}
	copy := *m.payment
	return &copy, nil
}

type receiptStudentStub struct {
	student *models.Student
}

func (m *receiptStudentStub) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if m.student == nil || m.student.ID != id {
		return nil, sql.ErrNoRows
	}
	copy := *m.student
	return &copy, nil
}

type receiptSchoolStub struct {
	school *models.School
}

func (m *receiptSchoolStub) FindByID(ctx context.Context, id string) (*models.School, error) {
	if m.school == nil || m.school.ID != id {
		return nil, sql.ErrNoRows
	}
	copy := *m.school
	return &copy, nil
}

type rendererStub struct {
	lastDoc export.ReceiptDocument
}

func (m *rendererStub) Render(doc export.ReceiptDocument) ([]byte, error) {
	m.lastDoc = doc
	return []byte("%PDF-stub"), nil
}

func TestReceiptTemplateDefaultSwap(t *testing.T) {
	repo := newReceiptTemplateRepoStub()
	schoolID := uuid.NewString()
	svc := NewReceiptService(repo, nil, nil, nil, &rendererStub{}, nil, nil, config.ReceiptsConfig{})

	first, err := svc.CreateTemplate(context.Background(), dto.CreateReceiptTemplateRequest{
		SchoolID:  schoolID,
		Name:      "Standard",
		IsDefault: true,
	}, schoolAdmin(schoolID))
	require.NoError(t, err)
	require.True(t, first.IsDefault)

	second, err := svc.CreateTemplate(context.Background(), dto.CreateReceiptTemplateRequest{
		SchoolID: schoolID,
		Name:     "Compact",
	}, schoolAdmin(schoolID))
	require.NoError(t, err)
	require.False(t, second.IsDefault)

	_, err = svc.SetDefaultTemplate(context.Background(), second.ID, schoolAdmin(schoolID))
	require.NoError(t, err)
	require.True(t, repo.templates[second.ID].IsDefault)
	require.False(t, repo.templates[first.ID].IsDefault)
}

func TestReceiptTemplateDefaultCannotBeDeleted(t *testing.T) {
	repo := newReceiptTemplateRepoStub()
	schoolID := uuid.NewString()
	svc := NewReceiptService(repo, nil, nil, nil, &rendererStub{}, nil, nil, config.ReceiptsConfig{})

	tpl, err := svc.CreateTemplate(context.Background(), dto.CreateReceiptTemplateRequest{
		SchoolID:  schoolID,
		Name:      "Standard",
		IsDefault: true,
	}, platformAdmin())
	require.NoError(t, err)

	err = svc.DeleteTemplate(context.Background(), tpl.ID, platformAdmin())
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	require.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestReceiptTemplateForeignSchoolForbidden(t *testing.T) {
	repo := newReceiptTemplateRepoStub()
	svc := NewReceiptService(repo, nil, nil, nil, &rendererStub{}, nil, nil, config.ReceiptsConfig{})

	_, err := svc.CreateTemplate(context.Background(), dto.CreateReceiptTemplateRequest{
		SchoolID: uuid.NewString(),
		Name:     "Standard",
	}, schoolAdmin(uuid.NewString()))
	require.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestRenderReceiptUsesDefaultTemplate(t *testing.T) {
	repo := newReceiptTemplateRepoStub()
	schoolID := uuid.NewString()
	school := &models.School{ID: schoolID, Code: "HTP", Name: "Hilltop Primary"}
	student := &models.Student{ID: uuid.NewString(), SchoolID: schoolID, AdmissionNumber: "ADM-001", FullName: "Jane Doe"}
	payment := &models.Payment{
		ID:            uuid.NewString(),
		SchoolID:      schoolID,
		StudentID:     student.ID,
		Amount:        150.0,
		Currency:      "KES",
		Method:        models.PaymentMethodCash,
		ReceiptNumber: "RCP-HTP-000001",
		PaidAt:        time.Now().UTC(),
	}
	renderer := &rendererStub{}
	svc := NewReceiptService(repo,
		&receiptPaymentStub{payment: payment},
		&receiptStudentStub{student: student},
		&receiptSchoolStub{school: school},
		renderer, nil, nil, config.ReceiptsConfig{FooterNotice: "Keep this receipt safe."})

	_, err := svc.CreateTemplate(context.Background(), dto.CreateReceiptTemplateRequest{
		SchoolID:   schoolID,
		Name:       "Standard",
		HeaderText: "Hilltop Primary School",
		FooterText: "Thank you for your payment.",
		IsDefault:  true,
	}, platformAdmin())
	require.NoError(t, err)

	pdf, filename, err := svc.RenderReceipt(context.Background(), payment.ID, platformAdmin())
	require.NoError(t, err)
	require.NotEmpty(t, pdf)
	require.Equal(t, "receipt-RCP-HTP-000001.pdf", filename)
	require.Equal(t, "Hilltop Primary School", renderer.lastDoc.HeaderText)
	require.Equal(t, "Thank you for your payment.", renderer.lastDoc.FooterText)
	require.Equal(t, "KES 150.00", renderer.lastDoc.TotalValue)
}

func TestRenderReceiptFallsBackWithoutTemplate(t *testing.T) {
	schoolID := uuid.NewString()
	school := &models.School{ID: schoolID, Code: "HTP", Name: "Hilltop Primary"}
	student := &models.Student{ID: uuid.NewString(), SchoolID: schoolID, AdmissionNumber: "ADM-001", FullName: "Jane Doe"}
	payment := &models.Payment{
		ID:            uuid.NewString(),
		SchoolID:      schoolID,
		StudentID:     student.ID,
		Amount:        75.5,
		Currency:      "KES",
		Method:        models.PaymentMethodBank,
		ReceiptNumber: "RCP-HTP-000002",
		PaidAt:        time.Now().UTC(),
	}
	renderer := &rendererStub{}
	svc := NewReceiptService(newReceiptTemplateRepoStub(),
		&receiptPaymentStub{payment: payment},
		&receiptStudentStub{student: student},
		&receiptSchoolStub{school: school},
		renderer, nil, nil, config.ReceiptsConfig{FooterNotice: "Keep this receipt safe."})

	_, _, err := svc.RenderReceipt(context.Background(), payment.ID, platformAdmin())
	require.NoError(t, err)
	require.Empty(t, renderer.lastDoc.HeaderText)
	require.Equal(t, "Keep this receipt safe.", renderer.lastDoc.FooterText)
}

func TestRenderReceiptRejectsVoidedPayment(t *testing.T) {
	schoolID := uuid.NewString()
	payment := &models.Payment{
		ID:       uuid.NewString(),
		SchoolID: schoolID,
		Voided:   true,
	}
	svc := NewReceiptService(newReceiptTemplateRepoStub(),
		&receiptPaymentStub{payment: payment},
		&receiptStudentStub{}, &receiptSchoolStub{},
		&rendererStub{}, nil, nil, config.ReceiptsConfig{})

	_, _, err := svc.RenderReceipt(context.Background(), payment.ID, platformAdmin())
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	require.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}
