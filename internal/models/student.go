package models

import "time"

// Student represents a learner enrolled at a school.
type Student struct {
	ID              string    `db:"id" json:"id"`
	SchoolID        string    `db:"school_id" json:"school_id"`
	AdmissionNumber string    `db:"admission_number" json:"admission_number"`
	FullName        string    `db:"full_name" json:"full_name"`
	ClassName       *string   `db:"class_name" json:"class_name,omitempty"`
	GuardianName    *string   `db:"guardian_name" json:"guardian_name,omitempty"`
	GuardianPhone   *string   `db:"guardian_phone" json:"guardian_phone,omitempty"`
	Active          bool      `db:"active" json:"active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter captures filtering criteria for listing students.
type StudentFilter struct {
	SchoolID  string
	ClassName string
	Search    string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
