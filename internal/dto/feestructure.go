package dto

import (
	"time"

	"github.com/noah-isme/school-fees-api/internal/models"
)

// CustomInstallmentInput is a caller-defined installment row for custom plans.
type CustomInstallmentInput struct {
	Label   string    `json:"label" validate:"required,max=100"`
	Amount  float64   `json:"amount" validate:"required,gt=0"`
	DueDate time.Time `json:"due_date" validate:"required"`
}

// CreateFeeStructureRequest payload for the fee structure wizard.
type CreateFeeStructureRequest struct {
	SchoolID           string                   `json:"school_id" validate:"required,uuid4"`
	Name               string                   `json:"name" validate:"required,max=150"`
	AcademicYear       string                   `json:"academic_year" validate:"required,max=20"`
	TotalAmount        float64                  `json:"total_amount" validate:"required,gt=0"`
	Currency           string                   `json:"currency" validate:"required,len=3"`
	PlanType           models.PlanType          `json:"plan_type" validate:"required"`
	InstallmentCount   int                      `json:"installment_count"`
	DiscountPercent    float64                  `json:"discount_percent"`
	StartDate          time.Time                `json:"start_date" validate:"required"`
	CustomInstallments []CustomInstallmentInput `json:"custom_installments" validate:"omitempty,dive"`
}

// UpdateFeeStructureRequest payload for editing a draft structure.
type UpdateFeeStructureRequest struct {
	Name               string                   `json:"name" validate:"required,max=150"`
	TotalAmount        float64                  `json:"total_amount" validate:"required,gt=0"`
	PlanType           models.PlanType          `json:"plan_type" validate:"required"`
	InstallmentCount   int                      `json:"installment_count"`
	DiscountPercent    float64                  `json:"discount_percent"`
	StartDate          time.Time                `json:"start_date" validate:"required"`
	CustomInstallments []CustomInstallmentInput `json:"custom_installments" validate:"omitempty,dive"`
}

// FeeStructureQuery mirrors supported listing filters.
type FeeStructureQuery struct {
	SchoolID     string
	AcademicYear string
	Status       models.FeeStructureStatus
	Page         int
	PageSize     int
}

// FeeStructureResponse bundles a structure with its derived installments.
type FeeStructureResponse struct {
	models.FeeStructure
	Installments []models.Installment `json:"installments"`
}
