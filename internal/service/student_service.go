package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-fees-api/internal/dto"
	"github.com/noah-isme/school-fees-api/internal/models"
	appErrors "github.com/noah-isme/school-fees-api/pkg/errors"
)

type studentStore interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ExistsByAdmissionNumber(ctx context.Context, schoolID, admissionNumber, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Deactivate(ctx context.Context, id string) error
}

// StudentService manages per-school student rosters. Admission numbers are
// unique within a school.
type StudentService struct {
	repo      studentStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the service.
func NewStudentService(repo studentStore, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &StudentService{repo: repo, validator: validate, logger: logger}
}

// List returns students matching the query. School admins are pinned to
// their own school.
func (s *StudentService) List(ctx context.Context, query dto.StudentQuery, actor *models.JWTClaims) ([]models.Student, int, error) {
	if actor == nil {
		return nil, 0, appErrors.ErrUnauthorized
	}
	filter := models.StudentFilter{
		SchoolID:  query.SchoolID,
		ClassName: query.ClassName,
		Search:    query.Search,
		Active:    query.Active,
		Page:      query.Page,
		PageSize:  query.PageSize,
	}
	if actor.Role == models.RoleSchoolAdmin {
		if actor.SchoolID == nil {
			return nil, 0, appErrors.ErrForbidden
		}
		filter.SchoolID = *actor.SchoolID
	}
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to list students")
	}
	return students, total, nil
}

// Get returns a student enforcing school scope.
func (s *StudentService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Student, error) {
	return s.load(ctx, id, actor)
}

// Create enrolls a student after checking admission-number uniqueness.
func (s *StudentService) Create(ctx context.Context, req dto.CreateStudentRequest, actor *models.JWTClaims) (*models.Student, error) {
	if err := s.authorize(actor, req.SchoolID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	exists, err := s.repo.ExistsByAdmissionNumber(ctx, req.SchoolID, req.AdmissionNumber, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to check admission number")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "admission number already in use")
	}
	student := &models.Student{
		SchoolID:        req.SchoolID,
		AdmissionNumber: req.AdmissionNumber,
		FullName:        req.FullName,
		ClassName:       optionalString(req.ClassName),
		GuardianName:    optionalString(req.GuardianName),
		GuardianPhone:   optionalString(req.GuardianPhone),
		Active:          true,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to create student")
	}
	s.logger.Info("student enrolled",
		zap.String("student_id", student.ID),
		zap.String("school_id", student.SchoolID),
	)
	return student, nil
}

// Update edits a student record.
func (s *StudentService) Update(ctx context.Context, id string, req dto.UpdateStudentRequest, actor *models.JWTClaims) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student, err := s.load(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if req.AdmissionNumber != student.AdmissionNumber {
		exists, err := s.repo.ExistsByAdmissionNumber(ctx, student.SchoolID, req.AdmissionNumber, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to check admission number")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrConflict, "admission number already in use")
		}
	}
	student.AdmissionNumber = req.AdmissionNumber
	student.FullName = req.FullName
	student.ClassName = optionalString(req.ClassName)
	student.GuardianName = optionalString(req.GuardianName)
	student.GuardianPhone = optionalString(req.GuardianPhone)
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to update student")
	}
	return student, nil
}

// Deactivate removes a student from the active roster. The record remains
// for payment history.
func (s *StudentService) Deactivate(ctx context.Context, id string, actor *models.JWTClaims) error {
	if _, err := s.load(ctx, id, actor); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to deactivate student")
	}
	s.logger.Info("student deactivated", zap.String("student_id", id))
	return nil
}

func (s *StudentService) load(ctx context.Context, id string, actor *models.JWTClaims) (*models.Student, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load student")
	}
	if err := s.authorize(actor, student.SchoolID); err != nil {
		return nil, err
	}
	return student, nil
}

func (s *StudentService) authorize(actor *models.JWTClaims, schoolID string) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Role == models.RolePlatformAdmin {
		return nil
	}
	if actor.Role == models.RoleSchoolAdmin && actor.SchoolID != nil && *actor.SchoolID == schoolID {
		return nil
	}
	return appErrors.ErrForbidden
}
