package models

import "time"

// PlanType enumerates how a fee structure total is split into installments.
type PlanType string

const (
	PlanTypeMonthly PlanType = "monthly"
	PlanTypeTermly  PlanType = "termly"
	PlanTypeOneTime PlanType = "one_time"
	PlanTypeCustom  PlanType = "custom"
)

// Valid reports whether the value is a known plan type.
func (p PlanType) Valid() bool {
	switch p {
	case PlanTypeMonthly, PlanTypeTermly, PlanTypeOneTime, PlanTypeCustom:
		return true
	}
	return false
}

// FeeStructureStatus captures the publication lifecycle of a structure.
type FeeStructureStatus string

const (
	FeeStructureStatusDraft     FeeStructureStatus = "draft"
	FeeStructureStatusPublished FeeStructureStatus = "published"
)

// FeeStructure defines what a school charges for an academic year and how
// the amount is split into installments.
type FeeStructure struct {
	ID               string             `db:"id" json:"id"`
	SchoolID         string             `db:"school_id" json:"school_id"`
	Name             string             `db:"name" json:"name"`
	AcademicYear     string             `db:"academic_year" json:"academic_year"`
	TotalAmount      float64            `db:"total_amount" json:"total_amount"`
	Currency         string             `db:"currency" json:"currency"`
	PlanType         PlanType           `db:"plan_type" json:"plan_type"`
	InstallmentCount int                `db:"installment_count" json:"installment_count"`
	DiscountPercent  float64            `db:"discount_percent" json:"discount_percent"`
	Status           FeeStructureStatus `db:"status" json:"status"`
	CreatedAt        time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `db:"updated_at" json:"updated_at"`
}

// Installment is a derived due amount within a fee structure's payment plan.
type Installment struct {
	ID             string    `db:"id" json:"id"`
	FeeStructureID string    `db:"fee_structure_id" json:"fee_structure_id"`
	Sequence       int       `db:"sequence" json:"sequence"`
	Label          string    `db:"label" json:"label"`
	Amount         float64   `db:"amount" json:"amount"`
	DueDate        time.Time `db:"due_date" json:"due_date"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// FeeStructureFilter constrains fee structure listings.
type FeeStructureFilter struct {
	SchoolID     string
	AcademicYear string
	Status       FeeStructureStatus
	Page         int
	PageSize     int
}
