package dto

import (
	"time"

	"github.com/noah-isme/school-fees-api/internal/models"
)

// CreatePaymentRequest records an offline payment.
type CreatePaymentRequest struct {
	SchoolID       string               `json:"school_id" validate:"required,uuid4"`
	StudentID      string               `json:"student_id" validate:"required,uuid4"`
	FeeStructureID string               `json:"fee_structure_id" validate:"omitempty,uuid4"`
	InstallmentID  string               `json:"installment_id" validate:"omitempty,uuid4"`
	Amount         float64              `json:"amount" validate:"required,gt=0"`
	Currency       string               `json:"currency" validate:"required,len=3"`
	Method         models.PaymentMethod `json:"method" validate:"required"`
	Reference      string               `json:"reference" validate:"omitempty,max=100"`
	PaidAt         *time.Time           `json:"paid_at"`
}

// VoidPaymentRequest cancels a recorded payment with a reason.
type VoidPaymentRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// PaymentQuery mirrors supported listing filters.
type PaymentQuery struct {
	SchoolID  string
	StudentID string
	Method    models.PaymentMethod
	From      *time.Time
	To        *time.Time
	Voided    *bool
	Page      int
	PageSize  int
}
