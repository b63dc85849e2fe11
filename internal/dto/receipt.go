package dto

// CreateReceiptTemplateRequest payload for adding a receipt template.
type CreateReceiptTemplateRequest struct {
	SchoolID   string `json:"school_id" validate:"required,uuid4"`
	Name       string `json:"name" validate:"required,max=100"`
	HeaderText string `json:"header_text" validate:"omitempty,max=500"`
	FooterText string `json:"footer_text" validate:"omitempty,max=500"`
	ShowLogo   bool   `json:"show_logo"`
	IsDefault  bool   `json:"is_default"`
}

// UpdateReceiptTemplateRequest payload for editing a receipt template.
type UpdateReceiptTemplateRequest struct {
	Name       string `json:"name" validate:"required,max=100"`
	HeaderText string `json:"header_text" validate:"omitempty,max=500"`
	FooterText string `json:"footer_text" validate:"omitempty,max=500"`
	ShowLogo   bool   `json:"show_logo"`
}
