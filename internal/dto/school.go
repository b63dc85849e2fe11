package dto

// CreateSchoolRequest payload for onboarding a school.
type CreateSchoolRequest struct {
	Code    string `json:"code" validate:"required,alphanum,min=2,max=20"`
	Name    string `json:"name" validate:"required,max=150"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"omitempty,max=30"`
	Address string `json:"address" validate:"omitempty,max=300"`
}

// UpdateSchoolRequest payload for editing a school profile.
type UpdateSchoolRequest struct {
	Name    string `json:"name" validate:"required,max=150"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"omitempty,max=30"`
	Address string `json:"address" validate:"omitempty,max=300"`
}

// SchoolQuery mirrors supported listing filters.
type SchoolQuery struct {
	Search   string
	Active   *bool
	Page     int
	PageSize int
}
