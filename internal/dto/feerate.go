package dto

import "github.com/noah-isme/school-fees-api/internal/models"

// CreateFeeRateRequest payload for proposing a platform service-fee rate.
type CreateFeeRateRequest struct {
	SchoolID      string  `json:"school_id" validate:"required,uuid4"`
	FeePercentage float64 `json:"fee_percentage"`
	Notes         string  `json:"notes" validate:"omitempty,max=500"`
}

// RejectFeeRateRequest carries the optional rejection reason.
type RejectFeeRateRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

// FeeRateQuery mirrors supported listing filters.
type FeeRateQuery struct {
	SchoolID string
	Status   models.FeeRateStatus
	Page     int
	PageSize int
}
