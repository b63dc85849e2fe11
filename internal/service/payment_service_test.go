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
	appErrors "github.com/noah-isme/school-fees-api/pkg/errors"
)

type paymentRepoStub struct {
	payments map[string]*models.Payment
	sequence int64
	voided   map[string]bool
}

func newPaymentRepoStub() *paymentRepoStub {
	return &paymentRepoStub{payments: make(map[string]*models.Payment), voided: make(map[string]bool)}
}

func (m *paymentRepoStub) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	m.payments[payment.ID] = payment
	return nil
}

func (m *paymentRepoStub) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	if payment, ok := m.payments[id]; ok {
		copy := *payment
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *paymentRepoStub) List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int, error) {
	result := make([]models.Payment, 0, len(m.payments))
	for _, payment := range m.payments {
		if filter.SchoolID != "" && payment.SchoolID != filter.SchoolID {
			continue
		}
		result = append(result, *payment)
	}
	return result, len(result), nil
}

func (m *paymentRepoStub) Void(ctx context.Context, id, reason string) (int64, error) {
	payment, ok := m.payments[id]
	if !ok || payment.Voided {
		return 0, nil
	}
	payment.Voided = true
	payment.VoidReason = &reason
	return 1, nil
}

func (m *paymentRepoStub) Summary(ctx context.Context, schoolID string, from, to *time.Time) (*models.PaymentSummary, error) {
	return &models.PaymentSummary{}, nil
}

func (m *paymentRepoStub) NextReceiptNumber(ctx context.Context, schoolID string) (int64, error) {
	m.sequence++
	return m.sequence, nil
}

type studentStoreStub struct {
	students map[string]*models.Student
}

func (m *studentStoreStub) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if student, ok := m.students[id]; ok {
		return student, nil
	}
	return nil, sql.ErrNoRows
}

type schoolStoreStub struct {
	schools map[string]*models.School
}

func (m *schoolStoreStub) FindByID(ctx context.Context, id string) (*models.School, error) {
	if school, ok := m.schools[id]; ok {
		return school, nil
	}
	return nil, sql.ErrNoRows
}

type rateResolverStub struct {
	rate *models.FeeRate
}

func (m *rateResolverStub) ActiveRate(ctx context.Context, schoolID string) (*models.FeeRate, error) {
	if m.rate == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no active fee rate for school")
	}
	return m.rate, nil
}

type paymentFixture struct {
	svc       *PaymentService
	repo      *paymentRepoStub
	rates     *rateResolverStub
	audit     *auditStub
	schoolID  string
	studentID string
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()
	schoolID := uuid.NewString()
	studentID := uuid.NewString()
	repo := newPaymentRepoStub()
	rates := &rateResolverStub{}
	audit := &auditStub{}
	students := &studentStoreStub{students: map[string]*models.Student{
		studentID: {ID: studentID, SchoolID: schoolID, AdmissionNumber: "ADM-001", FullName: "Jane Doe", Active: true},
	}}
	schools := &schoolStoreStub{schools: map[string]*models.School{
		schoolID: {ID: schoolID, Code: "htp", Name: "Hilltop Primary", Active: true},
	}}
	svc := NewPaymentService(repo, students, schools, rates, audit, nil, nil)
	return &paymentFixture{svc: svc, repo: repo, rates: rates, audit: audit, schoolID: schoolID, studentID: studentID}
}

func (f *paymentFixture) record(t *testing.T, amount float64) *models.Payment {
	t.Helper()
	payment, err := f.svc.Record(context.Background(), dto.CreatePaymentRequest{
		SchoolID:  f.schoolID,
		StudentID: f.studentID,
		Amount:    amount,
		Currency:  "kes",
		Method:    models.PaymentMethodCash,
	}, platformAdmin())
	require.NoError(t, err)
	return payment
}

func TestPaymentRecordStampsActiveRate(t *testing.T) {
	f := newPaymentFixture(t)
	f.rates.rate = &models.FeeRate{FeePercentage: 2.5, Status: models.FeeRateStatusActive}

	payment := f.record(t, 10000)
	require.Equal(t, 2.5, payment.PlatformFeePercent)
	require.Equal(t, 250.0, payment.PlatformFeeAmount)
	require.Equal(t, "KES", payment.Currency)
	require.Equal(t, models.AuditActionPaymentRecord, f.audit.logs[0].Action)
}

func TestPaymentRecordWithoutActiveRate(t *testing.T) {
	f := newPaymentFixture(t)

	payment := f.record(t, 10000)
	require.Zero(t, payment.PlatformFeePercent)
	require.Zero(t, payment.PlatformFeeAmount)
}

func TestPaymentRecordFeeRounding(t *testing.T) {
	f := newPaymentFixture(t)
	f.rates.rate = &models.FeeRate{FeePercentage: 1.75, Status: models.FeeRateStatusActive}

	// 33.33 * 1.75% = 0.583275 -> 58 cents.
	payment := f.record(t, 33.33)
	require.Equal(t, 0.58, payment.PlatformFeeAmount)
}

func TestPaymentReceiptNumberSequence(t *testing.T) {
	f := newPaymentFixture(t)

	first := f.record(t, 100)
	second := f.record(t, 200)
	require.Equal(t, "RCP-HTP-000001", first.ReceiptNumber)
	require.Equal(t, "RCP-HTP-000002", second.ReceiptNumber)
}

func TestPaymentRecordStudentChecks(t *testing.T) {
	f := newPaymentFixture(t)

	_, err := f.svc.Record(context.Background(), dto.CreatePaymentRequest{
		SchoolID:  f.schoolID,
		StudentID: uuid.NewString(),
		Amount:    100,
		Currency:  "KES",
		Method:    models.PaymentMethodCash,
	}, platformAdmin())
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	require.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)

	foreign := uuid.NewString()
	_, err = f.svc.Record(context.Background(), dto.CreatePaymentRequest{
		SchoolID:  foreign,
		StudentID: f.studentID,
		Amount:    100,
		Currency:  "KES",
		Method:    models.PaymentMethodCash,
	}, platformAdmin())
	require.Error(t, err)
}

func TestPaymentRecordUnknownMethod(t *testing.T) {
	f := newPaymentFixture(t)

	_, err := f.svc.Record(context.Background(), dto.CreatePaymentRequest{
		SchoolID:  f.schoolID,
		StudentID: f.studentID,
		Amount:    100,
		Currency:  "KES",
		Method:    "barter",
	}, platformAdmin())
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestPaymentVoid(t *testing.T) {
	f := newPaymentFixture(t)
	payment := f.record(t, 500)

	voided, err := f.svc.Void(context.Background(), payment.ID, dto.VoidPaymentRequest{Reason: "duplicate entry"}, platformAdmin())
	require.NoError(t, err)
	require.True(t, voided.Voided)
	require.Equal(t, "duplicate entry", *voided.VoidReason)

	_, err = f.svc.Void(context.Background(), payment.ID, dto.VoidPaymentRequest{Reason: "again"}, platformAdmin())
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	require.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestPaymentListScopedForSchoolAdmin(t *testing.T) {
	f := newPaymentFixture(t)
	f.record(t, 100)

	payments, total, err := f.svc.List(context.Background(), dto.PaymentQuery{SchoolID: uuid.NewString()}, schoolAdmin(f.schoolID))
	require.NoError(t, err)
	require.Equal(t, 1, total)
	for _, payment := range payments {
		require.Equal(t, f.schoolID, payment.SchoolID)
	}
}

func TestPaymentRecordForeignSchoolForbidden(t *testing.T) {
	f := newPaymentFixture(t)

	_, err := f.svc.Record(context.Background(), dto.CreatePaymentRequest{
		SchoolID:  f.schoolID,
		StudentID: f.studentID,
		Amount:    100,
		Currency:  "KES",
		Method:    models.PaymentMethodCash,
	}, schoolAdmin(uuid.NewString()))
	require.ErrorIs(t, err, appErrors.ErrForbidden)
}
