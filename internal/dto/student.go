package dto

// CreateStudentRequest payload for enrolling a student.
type CreateStudentRequest struct {
	SchoolID        string `json:"school_id" validate:"required,uuid4"`
	AdmissionNumber string `json:"admission_number" validate:"required,max=50"`
	FullName        string `json:"full_name" validate:"required,max=150"`
	ClassName       string `json:"class_name" validate:"omitempty,max=50"`
	GuardianName    string `json:"guardian_name" validate:"omitempty,max=150"`
	GuardianPhone   string `json:"guardian_phone" validate:"omitempty,max=30"`
}

// UpdateStudentRequest payload for editing a student record.
type UpdateStudentRequest struct {
	AdmissionNumber string `json:"admission_number" validate:"required,max=50"`
	FullName        string `json:"full_name" validate:"required,max=150"`
	ClassName       string `json:"class_name" validate:"omitempty,max=50"`
	GuardianName    string `json:"guardian_name" validate:"omitempty,max=150"`
	GuardianPhone   string `json:"guardian_phone" validate:"omitempty,max=30"`
}

// StudentQuery mirrors supported listing filters.
type StudentQuery struct {
	SchoolID  string
	ClassName string
	Search    string
	Active    *bool
	Page      int
	PageSize  int
}
