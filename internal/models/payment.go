package models

import "time"

// PaymentMethod enumerates supported offline payment channels.
type PaymentMethod string

const (
	PaymentMethodCash        PaymentMethod = "cash"
	PaymentMethodBank        PaymentMethod = "bank_transfer"
	PaymentMethodMobileMoney PaymentMethod = "mobile_money"
)

// Valid reports whether the value is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBank, PaymentMethodMobileMoney:
		return true
	}
	return false
}

// Payment records money received from a student against a fee structure.
// The platform fee fields are stamped from the school's active fee rate at
// recording time so later rate changes never rewrite history.
type Payment struct {
	ID                 string        `db:"id" json:"id"`
	SchoolID           string        `db:"school_id" json:"school_id"`
	StudentID          string        `db:"student_id" json:"student_id"`
	FeeStructureID     *string       `db:"fee_structure_id" json:"fee_structure_id,omitempty"`
	InstallmentID      *string       `db:"installment_id" json:"installment_id,omitempty"`
	Amount             float64       `db:"amount" json:"amount"`
	Currency           string        `db:"currency" json:"currency"`
	Method             PaymentMethod `db:"method" json:"method"`
	Reference          *string       `db:"reference" json:"reference,omitempty"`
	PlatformFeePercent float64       `db:"platform_fee_percent" json:"platform_fee_percent"`
	PlatformFeeAmount  float64       `db:"platform_fee_amount" json:"platform_fee_amount"`
	ReceiptNumber      string        `db:"receipt_number" json:"receipt_number"`
	Voided             bool          `db:"voided" json:"voided"`
	VoidReason         *string       `db:"void_reason" json:"void_reason,omitempty"`
	RecordedBy         string        `db:"recorded_by" json:"recorded_by"`
	PaidAt             time.Time     `db:"paid_at" json:"paid_at"`
	CreatedAt          time.Time     `db:"created_at" json:"created_at"`
}

// PaymentFilter constrains payment listings.
type PaymentFilter struct {
	SchoolID  string
	StudentID string
	Method    PaymentMethod
	From      *time.Time
	To        *time.Time
	Voided    *bool
	Page      int
	PageSize  int
}

// PaymentSummary aggregates collections for a school over a period.
type PaymentSummary struct {
	PaymentCount      int     `db:"payment_count" json:"payment_count"`
	TotalCollected    float64 `db:"total_collected" json:"total_collected"`
	TotalPlatformFees float64 `db:"total_platform_fees" json:"total_platform_fees"`
}
