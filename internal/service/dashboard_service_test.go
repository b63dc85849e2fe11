package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-fees-api/internal/dto"
	"github.com/noah-isme/school-fees-api/internal/models"
	appErrors "github.com/noah-isme/school-fees-api/pkg/errors"
)

type dashboardFeeRateStub struct {
	stats   models.FeeRateStats
	active  *models.FeeRate
	pending []models.FeeRate
}

func (m *dashboardFeeRateStub) Stats(ctx context.Context) (*models.FeeRateStats, error) {
	stats := m.stats
	return &stats, nil
}

func (m *dashboardFeeRateStub) ActiveRate(ctx context.Context, schoolID string) (*models.FeeRate, error) {
	if m.active == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no active fee rate for school")
	}
	return m.active, nil
}

func (m *dashboardFeeRateStub) List(ctx context.Context, query dto.FeeRateQuery, actor *models.JWTClaims) ([]models.FeeRate, int, error) {
	return m.pending, len(m.pending), nil
}

type dashboardPaymentStub struct {
	calls []string
}

func (m *dashboardPaymentStub) Summary(ctx context.Context, schoolID string, from, to *time.Time) (*models.PaymentSummary, error) {
	m.calls = append(m.calls, schoolID)
	summary := &models.PaymentSummary{PaymentCount: 5, TotalCollected: 1000}
	if from != nil {
		summary = &models.PaymentSummary{PaymentCount: 2, TotalCollected: 400}
	}
	return summary, nil
}

type dashboardSchoolStub struct{ count int }

func (m *dashboardSchoolStub) CountActive(ctx context.Context) (int, error) { return m.count, nil }

type dashboardStudentStub struct{ count int }

func (m *dashboardStudentStub) CountBySchool(ctx context.Context, schoolID string) (int, error) {
	return m.count, nil
}

func newDashboardFixture(rates *dashboardFeeRateStub) (*DashboardService, *dashboardPaymentStub) {
	payments := &dashboardPaymentStub{}
	svc := NewDashboardService(DashboardServiceParams{
		FeeRates: rates,
		Payments: payments,
		Schools:  &dashboardSchoolStub{count: 7},
		Students: &dashboardStudentStub{count: 320},
	})
	return svc, payments
}

func TestDashboardAdminSummary(t *testing.T) {
	rates := &dashboardFeeRateStub{stats: models.FeeRateStats{ActiveCount: 4, PendingCount: 2}}
	svc, payments := newDashboardFixture(rates)

	summary, cacheHit, err := svc.Admin(context.Background(), platformAdmin())
	require.NoError(t, err)
	require.False(t, cacheHit)
	require.Equal(t, 4, summary.FeeRates.ActiveCount)
	require.Equal(t, 7, summary.ActiveSchools)
	require.Equal(t, 5, summary.Collections.PaymentCount)
	require.Equal(t, 2, summary.Last30Days.PaymentCount)
	// Platform-wide summaries query with no school filter.
	require.Equal(t, []string{"", ""}, payments.calls)
}

func TestDashboardAdminForbiddenForSchoolAdmin(t *testing.T) {
	svc, _ := newDashboardFixture(&dashboardFeeRateStub{})

	_, _, err := svc.Admin(context.Background(), schoolAdmin(uuid.NewString()))
	require.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestDashboardSchoolSummary(t *testing.T) {
	schoolID := uuid.NewString()
	active := &models.FeeRate{ID: uuid.NewString(), SchoolID: schoolID, Status: models.FeeRateStatusActive, FeePercentage: 2}
	pending := models.FeeRate{ID: uuid.NewString(), SchoolID: schoolID, Status: models.FeeRateStatusPendingSchool}
	rates := &dashboardFeeRateStub{active: active, pending: []models.FeeRate{pending}}
	svc, payments := newDashboardFixture(rates)

	summary, cacheHit, err := svc.School(context.Background(), "ignored", schoolAdmin(schoolID))
	require.NoError(t, err)
	require.False(t, cacheHit)
	// School admins are always pinned to their own school.
	require.Equal(t, schoolID, summary.SchoolID)
	require.Equal(t, []string{schoolID, schoolID}, payments.calls)
	require.Equal(t, 320, summary.StudentCount)
	require.Equal(t, active.ID, summary.ActiveFeeRate.ID)
	require.Equal(t, pending.ID, summary.PendingFeeRate.ID)
}

func TestDashboardSchoolWithoutActiveRate(t *testing.T) {
	schoolID := uuid.NewString()
	svc, _ := newDashboardFixture(&dashboardFeeRateStub{})

	summary, _, err := svc.School(context.Background(), schoolID, platformAdmin())
	require.NoError(t, err)
	require.Nil(t, summary.ActiveFeeRate)
	require.Nil(t, summary.PendingFeeRate)
}

func TestDashboardSchoolRequiresSchoolID(t *testing.T) {
	svc, _ := newDashboardFixture(&dashboardFeeRateStub{})

	_, _, err := svc.School(context.Background(), "", platformAdmin())
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}
