package dto

import "github.com/noah-isme/school-fees-api/internal/models"

// AdminDashboardResponse is the platform operator's summary payload.
type AdminDashboardResponse struct {
	FeeRates      models.FeeRateStats   `json:"fee_rates"`
	Collections   models.PaymentSummary `json:"collections"`
	Last30Days    models.PaymentSummary `json:"last_30_days"`
	ActiveSchools int                   `json:"active_schools"`
}

// SchoolDashboardResponse is a school admin's summary payload.
type SchoolDashboardResponse struct {
	SchoolID       string                `json:"school_id"`
	Collections    models.PaymentSummary `json:"collections"`
	Last30Days     models.PaymentSummary `json:"last_30_days"`
	StudentCount   int                   `json:"student_count"`
	ActiveFeeRate  *models.FeeRate       `json:"active_fee_rate,omitempty"`
	PendingFeeRate *models.FeeRate       `json:"pending_fee_rate,omitempty"`
}
