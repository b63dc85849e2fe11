package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-fees-api/internal/models"
)

const feeStructureColumns = `id, school_id, name, academic_year, total_amount, currency, plan_type, installment_count, discount_percent, status, created_at, updated_at`

// FeeStructureRepository persists fee structures and their derived installments.
type FeeStructureRepository struct {
	db *sqlx.DB
}

// NewFeeStructureRepository constructs the repository.
func NewFeeStructureRepository(db *sqlx.DB) *FeeStructureRepository {
	return &FeeStructureRepository{db: db}
}

// CreateWithInstallments inserts the structure and its installment rows in one transaction.
func (r *FeeStructureRepository) CreateWithInstallments(ctx context.Context, structure *models.FeeStructure, installments []models.Installment) error {
	if structure.ID == "" {
		structure.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if structure.CreatedAt.IsZero() {
		structure.CreatedAt = now
	}
	structure.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin fee structure tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertStructure = `INSERT INTO fee_structures
	(id, school_id, name, academic_year, total_amount, currency, plan_type, installment_count, discount_percent, status, created_at, updated_at)
	VALUES (:id, :school_id, :name, :academic_year, :total_amount, :currency, :plan_type, :installment_count, :discount_percent, :status, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertStructure, structure); err != nil {
		return fmt.Errorf("create fee structure: %w", err)
	}

	const insertInstallment = `INSERT INTO installments (id, fee_structure_id, sequence, label, amount, due_date, created_at)
	VALUES (:id, :fee_structure_id, :sequence, :label, :amount, :due_date, :created_at)`
	for i := range installments {
		if installments[i].ID == "" {
			installments[i].ID = uuid.NewString()
		}
		installments[i].FeeStructureID = structure.ID
		if installments[i].CreatedAt.IsZero() {
			installments[i].CreatedAt = now
		}
		if _, err = tx.NamedExecContext(ctx, insertInstallment, installments[i]); err != nil {
			return fmt.Errorf("create installment %d: %w", installments[i].Sequence, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit fee structure tx: %w", err)
	}
	return nil
}

// FindByID loads a structure by identifier.
func (r *FeeStructureRepository) FindByID(ctx context.Context, id string) (*models.FeeStructure, error) {
	query := fmt.Sprintf(`SELECT %s FROM fee_structures WHERE id = $1`, feeStructureColumns)
	var structure models.FeeStructure
	if err := r.db.GetContext(ctx, &structure, query, id); err != nil {
		return nil, err
	}
	return &structure, nil
}

// ListInstallments returns the payment plan rows for a structure in order.
func (r *FeeStructureRepository) ListInstallments(ctx context.Context, structureID string) ([]models.Installment, error) {
	const query = `SELECT id, fee_structure_id, sequence, label, amount, due_date, created_at FROM installments WHERE fee_structure_id = $1 ORDER BY sequence ASC`
	var installments []models.Installment
	if err := r.db.SelectContext(ctx, &installments, query, structureID); err != nil {
		return nil, fmt.Errorf("list installments: %w", err)
	}
	return installments, nil
}

// List returns structures matching the filter, newest first.
func (r *FeeStructureRepository) List(ctx context.Context, filter models.FeeStructureFilter) ([]models.FeeStructure, int, error) {
	base := "FROM fee_structures WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.SchoolID != "" {
		conditions = append(conditions, fmt.Sprintf("school_id = $%d", len(args)+1))
		args = append(args, filter.SchoolID)
	}
	if filter.AcademicYear != "" {
		conditions = append(conditions, fmt.Sprintf("academic_year = $%d", len(args)+1))
		args = append(args, filter.AcademicYear)
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", feeStructureColumns, base, size, offset)

	var structures []models.FeeStructure
	if err := r.db.SelectContext(ctx, &structures, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list fee structures: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count fee structures: %w", err)
	}

	return structures, total, nil
}

// UpdateDraft replaces a draft structure and its installments atomically.
func (r *FeeStructureRepository) UpdateDraft(ctx context.Context, structure *models.FeeStructure, installments []models.Installment) error {
	structure.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin fee structure update tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const updateStructure = `UPDATE fee_structures SET name = :name, academic_year = :academic_year, total_amount = :total_amount, currency = :currency, plan_type = :plan_type, installment_count = :installment_count, discount_percent = :discount_percent, updated_at = :updated_at WHERE id = :id AND status = 'draft'`
	if _, err = tx.NamedExecContext(ctx, updateStructure, structure); err != nil {
		return fmt.Errorf("update fee structure: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM installments WHERE fee_structure_id = $1`, structure.ID); err != nil {
		return fmt.Errorf("clear installments: %w", err)
	}

	const insertInstallment = `INSERT INTO installments (id, fee_structure_id, sequence, label, amount, due_date, created_at)
	VALUES (:id, :fee_structure_id, :sequence, :label, :amount, :due_date, :created_at)`
	now := time.Now().UTC()
	for i := range installments {
		if installments[i].ID == "" {
			installments[i].ID = uuid.NewString()
		}
		installments[i].FeeStructureID = structure.ID
		if installments[i].CreatedAt.IsZero() {
			installments[i].CreatedAt = now
		}
		if _, err = tx.NamedExecContext(ctx, insertInstallment, installments[i]); err != nil {
			return fmt.Errorf("replace installment %d: %w", installments[i].Sequence, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit fee structure update tx: %w", err)
	}
	return nil
}

// Publish freezes a draft structure. Returns the number of rows moved.
func (r *FeeStructureRepository) Publish(ctx context.Context, id string) (int64, error) {
	const query = `UPDATE fee_structures SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	result, err := r.db.ExecContext(ctx, query, models.FeeStructureStatusPublished, time.Now().UTC(), id, models.FeeStructureStatusDraft)
	if err != nil {
		return 0, fmt.Errorf("publish fee structure: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check publish rows: %w", err)
	}
	return rows, nil
}
