package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-fees-api/internal/models"
)

const feeRateColumns = `id, school_id, fee_percentage, status, proposed_by, proposed_by_role, notes, version,
       created_at, updated_at, activated_at, rejected_at, rejection_reason, superseded_at`

// FeeRateRepository persists fee rate proposals and their workflow state.
// Rows are never deleted; terminal records stay for history.
type FeeRateRepository struct {
	db *sqlx.DB
}

// NewFeeRateRepository constructs the repository.
func NewFeeRateRepository(db *sqlx.DB) *FeeRateRepository {
	return &FeeRateRepository{db: db}
}

// Create inserts a new fee rate proposal in its initial state.
func (r *FeeRateRepository) Create(ctx context.Context, rate *models.FeeRate) error {
	if rate.ID == "" {
		rate.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if rate.CreatedAt.IsZero() {
		rate.CreatedAt = now
	}
	rate.UpdatedAt = now
	if rate.Version == 0 {
		rate.Version = 1
	}

	const query = `INSERT INTO fee_rates
	(id, school_id, fee_percentage, status, proposed_by, proposed_by_role, notes, version, created_at, updated_at)
	VALUES (:id, :school_id, :fee_percentage, :status, :proposed_by, :proposed_by_role, :notes, :version, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, rate); err != nil {
		return fmt.Errorf("create fee rate: %w", err)
	}
	return nil
}

// FindByID loads a fee rate by identifier.
func (r *FeeRateRepository) FindByID(ctx context.Context, id string) (*models.FeeRate, error) {
	query := fmt.Sprintf(`SELECT %s FROM fee_rates WHERE id = $1`, feeRateColumns)
	var rate models.FeeRate
	if err := r.db.GetContext(ctx, &rate, query, id); err != nil {
		return nil, err
	}
	return &rate, nil
}

// FindActiveBySchool returns the school's currently active rate, if any.
func (r *FeeRateRepository) FindActiveBySchool(ctx context.Context, schoolID string) (*models.FeeRate, error) {
	query := fmt.Sprintf(`SELECT %s FROM fee_rates WHERE school_id = $1 AND status = $2 LIMIT 1`, feeRateColumns)
	var rate models.FeeRate
	if err := r.db.GetContext(ctx, &rate, query, schoolID, models.FeeRateStatusActive); err != nil {
		return nil, err
	}
	return &rate, nil
}

// List returns fee rates matching the filter, newest first.
func (r *FeeRateRepository) List(ctx context.Context, filter models.FeeRateFilter) ([]models.FeeRate, int, error) {
	base := "FROM fee_rates WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.SchoolID != "" {
		conditions = append(conditions, fmt.Sprintf("school_id = $%d", len(args)+1))
		args = append(args, filter.SchoolID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", feeRateColumns, base, size, offset)

	var rates []models.FeeRate
	if err := r.db.SelectContext(ctx, &rates, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list fee rates: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count fee rates: %w", err)
	}

	return rates, total, nil
}

// RejectTransitionParams groups the fields stamped on a rejection.
type RejectTransitionParams struct {
	ID              string
	ExpectedStatus  models.FeeRateStatus
	ExpectedVersion int
	NewStatus       models.FeeRateStatus
	RejectedAt      time.Time
	RejectionReason *string
}

// Reject applies a rejection transition guarded by the expected state and
// version. sql.ErrNoRows signals the record moved on since it was read.
func (r *FeeRateRepository) Reject(ctx context.Context, params RejectTransitionParams) error {
	const query = `UPDATE fee_rates
	SET status = $1, rejected_at = $2, rejection_reason = $3, updated_at = $2, version = version + 1
	WHERE id = $4 AND status = $5 AND version = $6`
	result, err := r.db.ExecContext(ctx, query,
		params.NewStatus,
		params.RejectedAt,
		params.RejectionReason,
		params.ID,
		params.ExpectedStatus,
		params.ExpectedVersion,
	)
	if err != nil {
		return fmt.Errorf("reject fee rate: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check fee rate reject rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Activate promotes the rate to active and expires any previously active rate
// for the same school inside a single transaction, so no reader ever observes
// zero or two active rates. The conditional update on the promoted row makes
// the whole swap an optimistic-concurrency check: sql.ErrNoRows means the rate
// was mutated since it was read and the transaction is rolled back untouched.
func (r *FeeRateRepository) Activate(ctx context.Context, id, schoolID string, expectedStatus models.FeeRateStatus, expectedVersion int, now time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin activate tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`UPDATE fee_rates SET status = $1, superseded_at = $2, updated_at = $2, version = version + 1 WHERE school_id = $3 AND status = $4 AND id <> $5`,
		models.FeeRateStatusExpired, now, schoolID, models.FeeRateStatusActive, id,
	); err != nil {
		return fmt.Errorf("expire superseded rate: %w", err)
	}

	var result sql.Result
	result, err = tx.ExecContext(ctx,
		`UPDATE fee_rates SET status = $1, activated_at = $2, updated_at = $2, version = version + 1 WHERE id = $3 AND status = $4 AND version = $5`,
		models.FeeRateStatusActive, now, id, expectedStatus, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("activate fee rate: %w", err)
	}
	var rows int64
	rows, err = result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check fee rate activate rows: %w", err)
	}
	if rows == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit activate tx: %w", err)
	}
	return nil
}

// Stats aggregates workflow counters for dashboard consumption.
func (r *FeeRateRepository) Stats(ctx context.Context) (*models.FeeRateStats, error) {
	const query = `SELECT
	COUNT(*) FILTER (WHERE status = $1) AS active_count,
	COUNT(*) FILTER (WHERE status IN ($2, $3)) AS pending_count,
	COALESCE(AVG(fee_percentage) FILTER (WHERE status = $1), 0) AS avg_fee_percentage,
	COUNT(DISTINCT school_id) FILTER (WHERE status = $1) AS schools_configured_count
	FROM fee_rates`
	var stats models.FeeRateStats
	if err := r.db.GetContext(ctx, &stats, query,
		models.FeeRateStatusActive, models.FeeRateStatusPendingSchool, models.FeeRateStatusPendingAdmin,
	); err != nil {
		return nil, fmt.Errorf("fee rate stats: %w", err)
	}
	return &stats, nil
}
