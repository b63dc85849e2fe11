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

const paymentColumns = `id, school_id, student_id, fee_structure_id, installment_id, amount, currency, method, reference,
       platform_fee_percent, platform_fee_amount, receipt_number, voided, void_reason, recorded_by, paid_at, created_at`

// PaymentRepository persists recorded payments.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs the repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create inserts a new payment row.
func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = now
	}
	if payment.PaidAt.IsZero() {
		payment.PaidAt = now
	}

	const query = `INSERT INTO payments
	(id, school_id, student_id, fee_structure_id, installment_id, amount, currency, method, reference, platform_fee_percent, platform_fee_amount, receipt_number, voided, void_reason, recorded_by, paid_at, created_at)
	VALUES (:id, :school_id, :student_id, :fee_structure_id, :installment_id, :amount, :currency, :method, :reference, :platform_fee_percent, :platform_fee_amount, :receipt_number, :voided, :void_reason, :recorded_by, :paid_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, payment); err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// FindByID loads a payment by identifier.
func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE id = $1`, paymentColumns)
	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, query, id); err != nil {
		return nil, err
	}
	return &payment, nil
}

// List returns payments matching the filter, newest first.
func (r *PaymentRepository) List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int, error) {
	base := "FROM payments WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.SchoolID != "" {
		conditions = append(conditions, fmt.Sprintf("school_id = $%d", len(args)+1))
		args = append(args, filter.SchoolID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Method != "" {
		conditions = append(conditions, fmt.Sprintf("method = $%d", len(args)+1))
		args = append(args, filter.Method)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("paid_at >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("paid_at < $%d", len(args)+1))
		args = append(args, *filter.To)
	}
	if filter.Voided != nil {
		conditions = append(conditions, fmt.Sprintf("voided = $%d", len(args)+1))
		args = append(args, *filter.Voided)
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY paid_at DESC LIMIT %d OFFSET %d", paymentColumns, base, size, offset)

	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}

	return payments, total, nil
}

// Void marks a payment as voided; already voided rows are left untouched.
func (r *PaymentRepository) Void(ctx context.Context, id, reason string) (int64, error) {
	const query = `UPDATE payments SET voided = TRUE, void_reason = $2 WHERE id = $1 AND voided = FALSE`
	result, err := r.db.ExecContext(ctx, query, id, reason)
	if err != nil {
		return 0, fmt.Errorf("void payment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check void rows: %w", err)
	}
	return rows, nil
}

// Summary aggregates non-voided collections, optionally scoped to a school and period.
func (r *PaymentRepository) Summary(ctx context.Context, schoolID string, from, to *time.Time) (*models.PaymentSummary, error) {
	base := `SELECT COUNT(*) AS payment_count,
	COALESCE(SUM(amount), 0) AS total_collected,
	COALESCE(SUM(platform_fee_amount), 0) AS total_platform_fees
	FROM payments WHERE voided = FALSE`
	var args []interface{}
	if schoolID != "" {
		args = append(args, schoolID)
		base += fmt.Sprintf(" AND school_id = $%d", len(args))
	}
	if from != nil {
		args = append(args, *from)
		base += fmt.Sprintf(" AND paid_at >= $%d", len(args))
	}
	if to != nil {
		args = append(args, *to)
		base += fmt.Sprintf(" AND paid_at < $%d", len(args))
	}

	var summary models.PaymentSummary
	if err := r.db.GetContext(ctx, &summary, base, args...); err != nil {
		return nil, fmt.Errorf("payment summary: %w", err)
	}
	return &summary, nil
}

// NextReceiptNumber reserves the next receipt sequence value for a school.
func (r *PaymentRepository) NextReceiptNumber(ctx context.Context, schoolID string) (int64, error) {
	const query = `INSERT INTO receipt_sequences (school_id, last_value) VALUES ($1, 1)
	ON CONFLICT (school_id) DO UPDATE SET last_value = receipt_sequences.last_value + 1
	RETURNING last_value`
	var seq int64
	if err := r.db.GetContext(ctx, &seq, query, schoolID); err != nil {
		return 0, fmt.Errorf("next receipt number: %w", err)
	}
	return seq, nil
}
