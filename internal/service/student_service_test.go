package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-fees-api/internal/dto"
	"github.com/noah-isme/school-fees-api/internal/models"
	appErrors "github.com/noah-isme/school-fees-api/pkg/errors"
)

type studentRepoStub struct {
	students map[string]*models.Student
}

func newStudentRepoStub() *studentRepoStub {
	return &studentRepoStub{students: make(map[string]*models.Student)}
}

func (m *studentRepoStub) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	result := make([]models.Student, 0, len(m.students))
	for _, student := range m.students {
		if filter.SchoolID != "" && student.SchoolID != filter.SchoolID {
			continue
		}
		result = append(result, *student)
	}
	return result, len(result), nil
}

func (m *studentRepoStub) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if student, ok := m.students[id]; ok {
		copy := *student
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *studentRepoStub) ExistsByAdmissionNumber(ctx context.Context, schoolID, admissionNumber, excludeID string) (bool, error) {
	for _, student := range m.students {
		if student.ID != excludeID && student.SchoolID == schoolID && student.AdmissionNumber == admissionNumber {
			return true, nil
		}
	}
	return false, nil
}

func (m *studentRepoStub) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	m.students[student.ID] = student
	return nil
}

func (m *studentRepoStub) Update(ctx context.Context, student *models.Student) error {
	if _, ok := m.students[student.ID]; !ok {
		return sql.ErrNoRows
	}
	m.students[student.ID] = student
	return nil
}

func (m *studentRepoStub) Deactivate(ctx context.Context, id string) error {
	student, ok := m.students[id]
	if !ok {
		return sql.ErrNoRows
	}
	student.Active = false
	return nil
}

func TestStudentCreateEnforcesAdmissionNumberUniqueness(t *testing.T) {
	repo := newStudentRepoStub()
	svc := NewStudentService(repo, nil, nil)
	schoolID := uuid.NewString()

	_, err := svc.Create(context.Background(), dto.CreateStudentRequest{
		SchoolID:        schoolID,
		AdmissionNumber: "ADM-001",
		FullName:        "Jane Doe",
	}, platformAdmin())
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), dto.CreateStudentRequest{
		SchoolID:        schoolID,
		AdmissionNumber: "ADM-001",
		FullName:        "John Doe",
	}, platformAdmin())
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	require.Equal(t, appErrors.ErrConflict.Code, appErr.Code)

	// The same admission number is fine at a different school.
	_, err = svc.Create(context.Background(), dto.CreateStudentRequest{
		SchoolID:        uuid.NewString(),
		AdmissionNumber: "ADM-001",
		FullName:        "John Doe",
	}, platformAdmin())
	require.NoError(t, err)
}

func TestStudentUpdateAllowsKeepingOwnAdmissionNumber(t *testing.T) {
	repo := newStudentRepoStub()
	svc := NewStudentService(repo, nil, nil)
	schoolID := uuid.NewString()

	student, err := svc.Create(context.Background(), dto.CreateStudentRequest{
		SchoolID:        schoolID,
		AdmissionNumber: "ADM-001",
		FullName:        "Jane Doe",
	}, platformAdmin())
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), student.ID, dto.UpdateStudentRequest{
		AdmissionNumber: "ADM-001",
		FullName:        "Jane A. Doe",
	}, platformAdmin())
	require.NoError(t, err)
	require.Equal(t, "Jane A. Doe", updated.FullName)
}

func TestStudentScopedForSchoolAdmin(t *testing.T) {
	repo := newStudentRepoStub()
	svc := NewStudentService(repo, nil, nil)
	schoolID := uuid.NewString()

	student, err := svc.Create(context.Background(), dto.CreateStudentRequest{
		SchoolID:        schoolID,
		AdmissionNumber: "ADM-001",
		FullName:        "Jane Doe",
	}, schoolAdmin(schoolID))
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), student.ID, schoolAdmin(uuid.NewString()))
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	students, total, err := svc.List(context.Background(), dto.StudentQuery{SchoolID: uuid.NewString()}, schoolAdmin(schoolID))
	require.NoError(t, err)
	require.Equal(t, 1, total)
	for _, st := range students {
		require.Equal(t, schoolID, st.SchoolID)
	}
}

func TestStudentDeactivate(t *testing.T) {
	repo := newStudentRepoStub()
	svc := NewStudentService(repo, nil, nil)
	schoolID := uuid.NewString()

	student, err := svc.Create(context.Background(), dto.CreateStudentRequest{
		SchoolID:        schoolID,
		AdmissionNumber: "ADM-002",
		FullName:        "John Doe",
	}, platformAdmin())
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(context.Background(), student.ID, platformAdmin()))
	require.False(t, repo.students[student.ID].Active)
}
