package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-fees-api/internal/models"
)

func newFeeRateRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func feeRateRows(rate *models.FeeRate) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "school_id", "fee_percentage", "status", "proposed_by", "proposed_by_role", "notes",
		"version", "created_at", "updated_at", "activated_at", "rejected_at", "rejection_reason", "superseded_at",
	}).AddRow(
		rate.ID, rate.SchoolID, rate.FeePercentage, rate.Status, rate.ProposedBy, rate.ProposedByRole, rate.Notes,
		rate.Version, rate.CreatedAt, rate.UpdatedAt, rate.ActivatedAt, rate.RejectedAt, rate.RejectionReason, rate.SupersededAt,
	)
}

func TestFeeRateRepositoryCreateAndFind(t *testing.T) {
	db, mock, cleanup := newFeeRateRepoMock(t)
	defer cleanup()

	repo := NewFeeRateRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO fee_rates")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	rate := &models.FeeRate{
		SchoolID:       "school-1",
		FeePercentage:  2.5,
		Status:         models.FeeRateStatusPendingSchool,
		ProposedBy:     "admin-1",
		ProposedByRole: models.RolePlatformAdmin,
	}
	require.NoError(t, repo.Create(context.Background(), rate))
	require.NotEmpty(t, rate.ID)
	require.Equal(t, 1, rate.Version)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, school_id, fee_percentage")).
		WithArgs(rate.ID).
		WillReturnRows(feeRateRows(rate))

	found, err := repo.FindByID(context.Background(), rate.ID)
	require.NoError(t, err)
	require.Equal(t, rate.ID, found.ID)
	require.Equal(t, models.FeeRateStatusPendingSchool, found.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRateRepositoryActivateSwapsInTransaction(t *testing.T) {
	db, mock, cleanup := newFeeRateRepoMock(t)
	defer cleanup()

	repo := NewFeeRateRepository(db)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE fee_rates SET status = $1, superseded_at = $2")).
		WithArgs(models.FeeRateStatusExpired, now, "school-1", models.FeeRateStatusActive, "rate-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE fee_rates SET status = $1, activated_at = $2")).
		WithArgs(models.FeeRateStatusActive, now, "rate-2", models.FeeRateStatusPendingSchool, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Activate(context.Background(), "rate-2", "school-1", models.FeeRateStatusPendingSchool, 1, now)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRateRepositoryActivateRollsBackOnStaleVersion(t *testing.T) {
	db, mock, cleanup := newFeeRateRepoMock(t)
	defer cleanup()

	repo := NewFeeRateRepository(db)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE fee_rates SET status = $1, superseded_at = $2")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE fee_rates SET status = $1, activated_at = $2")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Activate(context.Background(), "rate-2", "school-1", models.FeeRateStatusPendingSchool, 1, now)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRateRepositoryRejectStaleVersion(t *testing.T) {
	db, mock, cleanup := newFeeRateRepoMock(t)
	defer cleanup()

	repo := NewFeeRateRepository(db)
	now := time.Now().UTC()
	reason := "too high"

	mock.ExpectExec(regexp.QuoteMeta("UPDATE fee_rates")).
		WithArgs(models.FeeRateStatusRejectedBySchool, now, &reason, "rate-1", models.FeeRateStatusPendingSchool, 3).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Reject(context.Background(), RejectTransitionParams{
		ID:              "rate-1",
		ExpectedStatus:  models.FeeRateStatusPendingSchool,
		ExpectedVersion: 3,
		NewStatus:       models.FeeRateStatusRejectedBySchool,
		RejectedAt:      now,
		RejectionReason: &reason,
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRateRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newFeeRateRepoMock(t)
	defer cleanup()

	repo := NewFeeRateRepository(db)
	rate := &models.FeeRate{
		ID: "rate-1", SchoolID: "school-1", FeePercentage: 2, Status: models.FeeRateStatusActive,
		ProposedBy: "admin-1", ProposedByRole: models.RolePlatformAdmin, Version: 2,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, school_id, fee_percentage")).
		WithArgs("school-1", models.FeeRateStatusActive).
		WillReturnRows(feeRateRows(rate))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("school-1", models.FeeRateStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	rates, total, err := repo.List(context.Background(), models.FeeRateFilter{
		SchoolID: "school-1",
		Status:   models.FeeRateStatusActive,
	})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, rates, 1)
	require.Equal(t, "rate-1", rates[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRateRepositoryStats(t *testing.T) {
	db, mock, cleanup := newFeeRateRepoMock(t)
	defer cleanup()

	repo := NewFeeRateRepository(db)
	rows := sqlmock.NewRows([]string{"active_count", "pending_count", "avg_fee_percentage", "schools_configured_count"}).
		AddRow(4, 2, 2.25, 4)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT")).
		WithArgs(models.FeeRateStatusActive, models.FeeRateStatusPendingSchool, models.FeeRateStatusPendingAdmin).
		WillReturnRows(rows)

	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, stats.ActiveCount)
	require.Equal(t, 2, stats.PendingCount)
	require.NoError(t, mock.ExpectationsWereMet())
}
