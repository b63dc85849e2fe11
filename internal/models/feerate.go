package models

import "time"

// FeeRateStatus enumerates the approval workflow states for a fee rate.
type FeeRateStatus string

const (
	FeeRateStatusPendingSchool    FeeRateStatus = "pending_school"
	FeeRateStatusPendingAdmin     FeeRateStatus = "pending_admin"
	FeeRateStatusActive           FeeRateStatus = "active"
	FeeRateStatusRejectedBySchool FeeRateStatus = "rejected_by_school"
	FeeRateStatusRejectedByAdmin  FeeRateStatus = "rejected_by_admin"
	FeeRateStatusExpired          FeeRateStatus = "expired"
)

// Pending reports whether the status still awaits a decision.
func (s FeeRateStatus) Pending() bool {
	return s == FeeRateStatusPendingSchool || s == FeeRateStatusPendingAdmin
}

// Terminal reports whether no user transition is defined out of the status.
func (s FeeRateStatus) Terminal() bool {
	switch s {
	case FeeRateStatusActive, FeeRateStatusRejectedBySchool, FeeRateStatusRejectedByAdmin, FeeRateStatusExpired:
		return true
	}
	return false
}

// Valid reports whether the value is a known workflow state.
func (s FeeRateStatus) Valid() bool {
	switch s {
	case FeeRateStatusPendingSchool, FeeRateStatusPendingAdmin, FeeRateStatusActive,
		FeeRateStatusRejectedBySchool, FeeRateStatusRejectedByAdmin, FeeRateStatusExpired:
		return true
	}
	return false
}

// InitialFeeRateStatus returns the state a new proposal starts in.
// A platform admin's proposal awaits the school's counter-approval and vice versa.
func InitialFeeRateStatus(proposer UserRole) FeeRateStatus {
	if proposer == RolePlatformAdmin {
		return FeeRateStatusPendingSchool
	}
	return FeeRateStatusPendingAdmin
}

// FeeRate is a proposed or effective platform service-fee percentage for a school.
// Rows are never deleted; terminal states are retained for history.
type FeeRate struct {
	ID              string        `db:"id" json:"id"`
	SchoolID        string        `db:"school_id" json:"school_id"`
	FeePercentage   float64       `db:"fee_percentage" json:"fee_percentage"`
	Status          FeeRateStatus `db:"status" json:"status"`
	ProposedBy      string        `db:"proposed_by" json:"proposed_by"`
	ProposedByRole  UserRole      `db:"proposed_by_role" json:"proposed_by_role"`
	Notes           *string       `db:"notes" json:"notes,omitempty"`
	Version         int           `db:"version" json:"version"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
	ActivatedAt     *time.Time    `db:"activated_at" json:"activated_at,omitempty"`
	RejectedAt      *time.Time    `db:"rejected_at" json:"rejected_at,omitempty"`
	RejectionReason *string       `db:"rejection_reason" json:"rejection_reason,omitempty"`
	SupersededAt    *time.Time    `db:"superseded_at" json:"superseded_at,omitempty"`
}

// FeeRateFilter constrains fee rate listings.
type FeeRateFilter struct {
	SchoolID string
	Status   FeeRateStatus
	Page     int
	PageSize int
}

// FeeRateStats summarises workflow state for the admin dashboard.
type FeeRateStats struct {
	ActiveCount            int     `db:"active_count" json:"active_count"`
	PendingCount           int     `db:"pending_count" json:"pending_count"`
	AvgFeePercentage       float64 `db:"avg_fee_percentage" json:"avg_fee_percentage"`
	SchoolsConfiguredCount int     `db:"schools_configured_count" json:"schools_configured_count"`
}
