package service

import (
	"context"
	"database/sql"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-fees-api/internal/dto"
	"github.com/noah-isme/school-fees-api/internal/models"
	appErrors "github.com/noah-isme/school-fees-api/pkg/errors"
)

type feeStructureRepoStub struct {
	structures   map[string]*models.FeeStructure
	installments map[string][]models.Installment
}

func newFeeStructureRepoStub() *feeStructureRepoStub {
	return &feeStructureRepoStub{
		structures:   make(map[string]*models.FeeStructure),
		installments: make(map[string][]models.Installment),
	}
}

func (m *feeStructureRepoStub) CreateWithInstallments(ctx context.Context, structure *models.FeeStructure, installments []models.Installment) error {
	if structure.ID == "" {
		structure.ID = uuid.NewString()
	}
	m.structures[structure.ID] = structure
	m.installments[structure.ID] = installments
	return nil
}

func (m *feeStructureRepoStub) FindByID(ctx context.Context, id string) (*models.FeeStructure, error) {
	if structure, ok := m.structures[id]; ok {
		copy := *structure
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *feeStructureRepoStub) ListInstallments(ctx context.Context, structureID string) ([]models.Installment, error) {
	return m.installments[structureID], nil
}

func (m *feeStructureRepoStub) List(ctx context.Context, filter models.FeeStructureFilter) ([]models.FeeStructure, int, error) {
	result := make([]models.FeeStructure, 0, len(m.structures))
	for _, structure := range m.structures {
		if filter.SchoolID != "" && structure.SchoolID != filter.SchoolID {
			continue
		}
		result = append(result, *structure)
	}
	return result, len(result), nil
}

func (m *feeStructureRepoStub) UpdateDraft(ctx context.Context, structure *models.FeeStructure, installments []models.Installment) error {
	current, ok := m.structures[structure.ID]
	if !ok || current.Status != models.FeeStructureStatusDraft {
		return sql.ErrNoRows
	}
	m.structures[structure.ID] = structure
	m.installments[structure.ID] = installments
	return nil
}

func (m *feeStructureRepoStub) Publish(ctx context.Context, id string) (int64, error) {
	structure, ok := m.structures[id]
	if !ok || structure.Status != models.FeeStructureStatusDraft {
		return 0, nil
	}
	structure.Status = models.FeeStructureStatusPublished
	return 1, nil
}

func newFeeStructureFixture(t *testing.T) (*FeeStructureService, *feeStructureRepoStub, string) {
	t.Helper()
	repo := newFeeStructureRepoStub()
	return NewFeeStructureService(repo, nil, nil), repo, uuid.NewString()
}

func installmentSum(installments []models.Installment) float64 {
	var cents int64
	for _, in := range installments {
		cents += int64(math.Round(in.Amount * 100))
	}
	return float64(cents) / 100
}

func TestFeeStructureMonthlySplitFoldsRemainder(t *testing.T) {
	svc, _, schoolID := newFeeStructureFixture(t)
	start := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	// 1000.00 over 12 months: 11 x 83.33 + 1 x 83.37.
	resp, err := svc.Create(context.Background(), dto.CreateFeeStructureRequest{
		SchoolID:     schoolID,
		Name:         "Term fees 2026",
		AcademicYear: "2026",
		TotalAmount:  1000,
		Currency:     "kes",
		PlanType:     models.PlanTypeMonthly,
		StartDate:    start,
	}, platformAdmin())
	require.NoError(t, err)
	require.Len(t, resp.Installments, 12)
	require.Equal(t, 83.33, resp.Installments[0].Amount)
	require.Equal(t, 83.37, resp.Installments[11].Amount)
	require.Equal(t, 1000.0, installmentSum(resp.Installments))
	require.Equal(t, start.AddDate(0, 11, 0), resp.Installments[11].DueDate)
	require.Equal(t, "KES", resp.Currency)
	require.Equal(t, models.FeeStructureStatusDraft, resp.Status)
}

func TestFeeStructureTermlyDefaultsToThreeTerms(t *testing.T) {
	svc, _, schoolID := newFeeStructureFixture(t)
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	resp, err := svc.Create(context.Background(), dto.CreateFeeStructureRequest{
		SchoolID:     schoolID,
		Name:         "Annual fees",
		AcademicYear: "2026",
		TotalAmount:  900,
		Currency:     "KES",
		PlanType:     models.PlanTypeTermly,
		StartDate:    start,
	}, platformAdmin())
	require.NoError(t, err)
	require.Len(t, resp.Installments, 3)
	require.Equal(t, "Term 1", resp.Installments[0].Label)
	require.Equal(t, start.AddDate(0, 8, 0), resp.Installments[2].DueDate)
	require.Equal(t, 300.0, resp.Installments[1].Amount)
}

func TestFeeStructureOneTimePlan(t *testing.T) {
	svc, _, schoolID := newFeeStructureFixture(t)

	resp, err := svc.Create(context.Background(), dto.CreateFeeStructureRequest{
		SchoolID:     schoolID,
		Name:         "Registration",
		AcademicYear: "2026",
		TotalAmount:  150,
		Currency:     "KES",
		PlanType:     models.PlanTypeOneTime,
		StartDate:    time.Now().UTC(),
	}, platformAdmin())
	require.NoError(t, err)
	require.Len(t, resp.Installments, 1)
	require.Equal(t, "Full payment", resp.Installments[0].Label)
	require.Equal(t, 150.0, resp.Installments[0].Amount)
}

func TestFeeStructureDiscountAppliedBeforeSplit(t *testing.T) {
	svc, _, schoolID := newFeeStructureFixture(t)

	resp, err := svc.Create(context.Background(), dto.CreateFeeStructureRequest{
		SchoolID:        schoolID,
		Name:            "Scholarship tier",
		AcademicYear:    "2026",
		TotalAmount:     1000,
		Currency:        "KES",
		PlanType:        models.PlanTypeOneTime,
		DiscountPercent: 10,
		StartDate:       time.Now().UTC(),
	}, platformAdmin())
	require.NoError(t, err)
	require.Equal(t, 900.0, resp.TotalAmount)
	require.Equal(t, 900.0, resp.Installments[0].Amount)
}

func TestFeeStructureCustomPlanMustSumToTotal(t *testing.T) {
	svc, _, schoolID := newFeeStructureFixture(t)
	due := time.Now().UTC()

	_, err := svc.Create(context.Background(), dto.CreateFeeStructureRequest{
		SchoolID:     schoolID,
		Name:         "Custom plan",
		AcademicYear: "2026",
		TotalAmount:  500,
		Currency:     "KES",
		PlanType:     models.PlanTypeCustom,
		StartDate:    due,
		CustomInstallments: []dto.CustomInstallmentInput{
			{Label: "Deposit", Amount: 200, DueDate: due},
			{Label: "Balance", Amount: 250, DueDate: due.AddDate(0, 1, 0)},
		},
	}, platformAdmin())
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)

	resp, err := svc.Create(context.Background(), dto.CreateFeeStructureRequest{
		SchoolID:     schoolID,
		Name:         "Custom plan",
		AcademicYear: "2026",
		TotalAmount:  500,
		Currency:     "KES",
		PlanType:     models.PlanTypeCustom,
		StartDate:    due,
		CustomInstallments: []dto.CustomInstallmentInput{
			{Label: "Deposit", Amount: 200, DueDate: due},
			{Label: "Balance", Amount: 300, DueDate: due.AddDate(0, 1, 0)},
		},
	}, platformAdmin())
	require.NoError(t, err)
	require.Len(t, resp.Installments, 2)
	require.Equal(t, "Deposit", resp.Installments[0].Label)
}

func TestFeeStructurePublishFreezes(t *testing.T) {
	svc, repo, schoolID := newFeeStructureFixture(t)

	resp, err := svc.Create(context.Background(), dto.CreateFeeStructureRequest{
		SchoolID:     schoolID,
		Name:         "Annual fees",
		AcademicYear: "2026",
		TotalAmount:  600,
		Currency:     "KES",
		PlanType:     models.PlanTypeTermly,
		StartDate:    time.Now().UTC(),
	}, platformAdmin())
	require.NoError(t, err)

	published, err := svc.Publish(context.Background(), resp.ID, platformAdmin())
	require.NoError(t, err)
	require.Equal(t, models.FeeStructureStatusPublished, published.Status)
	require.Equal(t, models.FeeStructureStatusPublished, repo.structures[resp.ID].Status)

	_, err = svc.Publish(context.Background(), resp.ID, platformAdmin())
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	require.Equal(t, appErrors.ErrFinalized.Code, appErr.Code)

	_, err = svc.Update(context.Background(), resp.ID, dto.UpdateFeeStructureRequest{
		Name:        "Renamed",
		TotalAmount: 700,
		PlanType:    models.PlanTypeTermly,
		StartDate:   time.Now().UTC(),
	}, platformAdmin())
	appErr, ok = err.(*appErrors.Error)
	require.True(t, ok)
	require.Equal(t, appErrors.ErrFinalized.Code, appErr.Code)
}

func TestFeeStructureSchoolAdminScope(t *testing.T) {
	svc, _, schoolID := newFeeStructureFixture(t)

	_, err := svc.Create(context.Background(), dto.CreateFeeStructureRequest{
		SchoolID:     schoolID,
		Name:         "Annual fees",
		AcademicYear: "2026",
		TotalAmount:  600,
		Currency:     "KES",
		PlanType:     models.PlanTypeOneTime,
		StartDate:    time.Now().UTC(),
	}, schoolAdmin(uuid.NewString()))
	require.ErrorIs(t, err, appErrors.ErrForbidden)
}
