package models

import "time"

// ReceiptTemplate customises how a school's payment receipts render.
// At most one template per school is the default at any time.
type ReceiptTemplate struct {
	ID         string    `db:"id" json:"id"`
	SchoolID   string    `db:"school_id" json:"school_id"`
	Name       string    `db:"name" json:"name"`
	HeaderText string    `db:"header_text" json:"header_text"`
	FooterText string    `db:"footer_text" json:"footer_text"`
	ShowLogo   bool      `db:"show_logo" json:"show_logo"`
	IsDefault  bool      `db:"is_default" json:"is_default"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
