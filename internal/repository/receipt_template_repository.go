package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-fees-api/internal/models"
)

const receiptTemplateColumns = `id, school_id, name, header_text, footer_text, show_logo, is_default, created_at, updated_at`

// ReceiptTemplateRepository persists per-school receipt templates.
type ReceiptTemplateRepository struct {
	db *sqlx.DB
}

// NewReceiptTemplateRepository constructs the repository.
func NewReceiptTemplateRepository(db *sqlx.DB) *ReceiptTemplateRepository {
	return &ReceiptTemplateRepository{db: db}
}

// ListBySchool returns a school's templates, default first.
func (r *ReceiptTemplateRepository) ListBySchool(ctx context.Context, schoolID string) ([]models.ReceiptTemplate, error) {
	query := fmt.Sprintf(`SELECT %s FROM receipt_templates WHERE school_id = $1 ORDER BY is_default DESC, created_at DESC`, receiptTemplateColumns)
	var templates []models.ReceiptTemplate
	if err := r.db.SelectContext(ctx, &templates, query, schoolID); err != nil {
		return nil, fmt.Errorf("list receipt templates: %w", err)
	}
	return templates, nil
}

// FindByID loads a template by identifier.
func (r *ReceiptTemplateRepository) FindByID(ctx context.Context, id string) (*models.ReceiptTemplate, error) {
	query := fmt.Sprintf(`SELECT %s FROM receipt_templates WHERE id = $1`, receiptTemplateColumns)
	var template models.ReceiptTemplate
	if err := r.db.GetContext(ctx, &template, query, id); err != nil {
		return nil, err
	}
	return &template, nil
}

// FindDefaultBySchool returns the school's default template when set.
func (r *ReceiptTemplateRepository) FindDefaultBySchool(ctx context.Context, schoolID string) (*models.ReceiptTemplate, error) {
	query := fmt.Sprintf(`SELECT %s FROM receipt_templates WHERE school_id = $1 AND is_default = TRUE LIMIT 1`, receiptTemplateColumns)
	var template models.ReceiptTemplate
	if err := r.db.GetContext(ctx, &template, query, schoolID); err != nil {
		return nil, err
	}
	return &template, nil
}

// Create inserts a new template record.
func (r *ReceiptTemplateRepository) Create(ctx context.Context, template *models.ReceiptTemplate) error {
	if template.ID == "" {
		template.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if template.CreatedAt.IsZero() {
		template.CreatedAt = now
	}
	template.UpdatedAt = now

	const query = `INSERT INTO receipt_templates (id, school_id, name, header_text, footer_text, show_logo, is_default, created_at, updated_at)
	VALUES (:id, :school_id, :name, :header_text, :footer_text, :show_logo, :is_default, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, template); err != nil {
		return fmt.Errorf("create receipt template: %w", err)
	}
	return nil
}

// Update modifies template content fields.
func (r *ReceiptTemplateRepository) Update(ctx context.Context, template *models.ReceiptTemplate) error {
	template.UpdatedAt = time.Now().UTC()
	const query = `UPDATE receipt_templates SET name = :name, header_text = :header_text, footer_text = :footer_text, show_logo = :show_logo, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, template); err != nil {
		return fmt.Errorf("update receipt template: %w", err)
	}
	return nil
}

// SetDefault marks the provided template as the school default and clears the
// rest in a single transaction, mirroring the fee rate activation swap.
func (r *ReceiptTemplateRepository) SetDefault(ctx context.Context, id, schoolID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set default tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx, `UPDATE receipt_templates SET is_default = FALSE, updated_at = $1 WHERE school_id = $2 AND is_default = TRUE AND id <> $3`, now, schoolID, id); err != nil {
		return fmt.Errorf("clear default templates: %w", err)
	}

	var result sql.Result
	result, err = tx.ExecContext(ctx, `UPDATE receipt_templates SET is_default = TRUE, updated_at = $1 WHERE id = $2 AND school_id = $3`, now, id, schoolID)
	if err != nil {
		return fmt.Errorf("set default template: %w", err)
	}
	var rows int64
	rows, err = result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check set default rows: %w", err)
	}
	if rows == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit set default tx: %w", err)
	}
	return nil
}

// Delete removes a template permanently.
func (r *ReceiptTemplateRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM receipt_templates WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete receipt template: %w", err)
	}
	return nil
}
