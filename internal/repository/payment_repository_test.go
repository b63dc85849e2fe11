package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-fees-api/internal/models"
)

func paymentRows(payment *models.Payment) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "school_id", "student_id", "fee_structure_id", "installment_id", "amount", "currency", "method",
		"reference", "platform_fee_percent", "platform_fee_amount", "receipt_number", "voided", "void_reason",
		"recorded_by", "paid_at", "created_at",
	}).AddRow(
		payment.ID, payment.SchoolID, payment.StudentID, payment.FeeStructureID, payment.InstallmentID,
		payment.Amount, payment.Currency, payment.Method, payment.Reference, payment.PlatformFeePercent,
		payment.PlatformFeeAmount, payment.ReceiptNumber, payment.Voided, payment.VoidReason,
		payment.RecordedBy, payment.PaidAt, payment.CreatedAt,
	)
}

func TestPaymentRepositoryCreateStampsDefaults(t *testing.T) {
	db, mock, cleanup := newFeeRateRepoMock(t)
	defer cleanup()

	repo := NewPaymentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO payments")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	payment := &models.Payment{
		SchoolID:      "school-1",
		StudentID:     "student-1",
		Amount:        150.0,
		Currency:      "KES",
		Method:        models.PaymentMethodCash,
		ReceiptNumber: "RCP-HTP-000001",
		RecordedBy:    "admin-1",
	}
	require.NoError(t, repo.Create(context.Background(), payment))
	require.NotEmpty(t, payment.ID)
	require.False(t, payment.PaidAt.IsZero())
	require.False(t, payment.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newFeeRateRepoMock(t)
	defer cleanup()

	repo := NewPaymentRepository(db)
	now := time.Now().UTC()
	payment := &models.Payment{
		ID:            "payment-1",
		SchoolID:      "school-1",
		StudentID:     "student-1",
		Amount:        150.0,
		Currency:      "KES",
		Method:        models.PaymentMethodMobileMoney,
		ReceiptNumber: "RCP-HTP-000001",
		RecordedBy:    "admin-1",
		PaidAt:        now,
		CreatedAt:     now,
	}
	voided := false

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, school_id, student_id")).
		WithArgs("school-1", models.PaymentMethodMobileMoney, voided).
		WillReturnRows(paymentRows(payment))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM payments")).
		WithArgs("school-1", models.PaymentMethodMobileMoney, voided).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	payments, total, err := repo.List(context.Background(), models.PaymentFilter{
		SchoolID: "school-1",
		Method:   models.PaymentMethodMobileMoney,
		Voided:   &voided,
	})
	require.NoError(t, err)
	require.Len(t, payments, 1)
	require.Equal(t, 1, total)
	require.Equal(t, "payment-1", payments[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryVoidSkipsAlreadyVoided(t *testing.T) {
	db, mock, cleanup := newFeeRateRepoMock(t)
	defer cleanup()

	repo := NewPaymentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE payments SET voided = TRUE")).
		WithArgs("payment-1", "duplicate entry").
		WillReturnResult(sqlmock.NewResult(0, 0))

	rows, err := repo.Void(context.Background(), "payment-1", "duplicate entry")
	require.NoError(t, err)
	require.Zero(t, rows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositorySummaryScopes(t *testing.T) {
	db, mock, cleanup := newFeeRateRepoMock(t)
	defer cleanup()

	repo := NewPaymentRepository(db)
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) AS payment_count")).
		WithArgs("school-1", from).
		WillReturnRows(sqlmock.NewRows([]string{"payment_count", "total_collected", "total_platform_fees"}).
			AddRow(3, 450.0, 11.25))

	summary, err := repo.Summary(context.Background(), "school-1", &from, nil)
	require.NoError(t, err)
	require.Equal(t, 3, summary.PaymentCount)
	require.Equal(t, 450.0, summary.TotalCollected)
	require.Equal(t, 11.25, summary.TotalPlatformFees)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryNextReceiptNumber(t *testing.T) {
	db, mock, cleanup := newFeeRateRepoMock(t)
	defer cleanup()

	repo := NewPaymentRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO receipt_sequences")).
		WithArgs("school-1").
		WillReturnRows(sqlmock.NewRows([]string{"last_value"}).AddRow(7))

	seq, err := repo.NextReceiptNumber(context.Background(), "school-1")
	require.NoError(t, err)
	require.EqualValues(t, 7, seq)
	require.NoError(t, mock.ExpectationsWereMet())
}
