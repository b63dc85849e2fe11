package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-fees-api/internal/dto"
	"github.com/noah-isme/school-fees-api/internal/models"
	appErrors "github.com/noah-isme/school-fees-api/pkg/errors"
)

type schoolRepoStub struct {
	schools map[string]*models.School
}

func newSchoolRepoStub() *schoolRepoStub {
	return &schoolRepoStub{schools: make(map[string]*models.School)}
}

func (m *schoolRepoStub) List(ctx context.Context, filter models.SchoolFilter) ([]models.School, int, error) {
	result := make([]models.School, 0, len(m.schools))
	for _, school := range m.schools {
		result = append(result, *school)
	}
	return result, len(result), nil
}

func (m *schoolRepoStub) FindByID(ctx context.Context, id string) (*models.School, error) {
	if school, ok := m.schools[id]; ok {
		copy := *school
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *schoolRepoStub) ExistsByCode(ctx context.Context, code, excludeID string) (bool, error) {
	for _, school := range m.schools {
		if school.ID != excludeID && strings.EqualFold(school.Code, code) {
			return true, nil
		}
	}
	return false, nil
}

func (m *schoolRepoStub) Create(ctx context.Context, school *models.School) error {
	if school.ID == "" {
		school.ID = uuid.NewString()
	}
	m.schools[school.ID] = school
	return nil
}

func (m *schoolRepoStub) Update(ctx context.Context, school *models.School) error {
	if _, ok := m.schools[school.ID]; !ok {
		return sql.ErrNoRows
	}
	m.schools[school.ID] = school
	return nil
}

func (m *schoolRepoStub) Deactivate(ctx context.Context, id string) error {
	school, ok := m.schools[id]
	if !ok {
		return sql.ErrNoRows
	}
	school.Active = false
	return nil
}

func TestSchoolCreateRejectsDuplicateCode(t *testing.T) {
	repo := newSchoolRepoStub()
	svc := NewSchoolService(repo, nil, nil)

	first, err := svc.Create(context.Background(), dto.CreateSchoolRequest{
		Code:  "HTP",
		Name:  "Hilltop Primary",
		Email: "office@hilltop.example",
	}, platformAdmin())
	require.NoError(t, err)
	require.True(t, first.Active)

	_, err = svc.Create(context.Background(), dto.CreateSchoolRequest{
		Code:  "HTP",
		Name:  "Another School",
		Email: "admin@other.example",
	}, platformAdmin())
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	require.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestSchoolMutationsRequirePlatformAdmin(t *testing.T) {
	svc := NewSchoolService(newSchoolRepoStub(), nil, nil)

	_, err := svc.Create(context.Background(), dto.CreateSchoolRequest{
		Code:  "HTP",
		Name:  "Hilltop Primary",
		Email: "office@hilltop.example",
	}, schoolAdmin(uuid.NewString()))
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	_, _, err = svc.List(context.Background(), dto.SchoolQuery{}, schoolAdmin(uuid.NewString()))
	require.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestSchoolUpdateKeepsCodeImmutable(t *testing.T) {
	repo := newSchoolRepoStub()
	svc := NewSchoolService(repo, nil, nil)

	school, err := svc.Create(context.Background(), dto.CreateSchoolRequest{
		Code:  "HTP",
		Name:  "Hilltop Primary",
		Email: "office@hilltop.example",
	}, platformAdmin())
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), school.ID, dto.UpdateSchoolRequest{
		Name:  "Hilltop Academy",
		Email: "office@hilltop.example",
	}, platformAdmin())
	require.NoError(t, err)
	require.Equal(t, "HTP", updated.Code)
	require.Equal(t, "Hilltop Academy", updated.Name)
}

func TestSchoolGetScopedForSchoolAdmin(t *testing.T) {
	repo := newSchoolRepoStub()
	svc := NewSchoolService(repo, nil, nil)

	school, err := svc.Create(context.Background(), dto.CreateSchoolRequest{
		Code:  "HTP",
		Name:  "Hilltop Primary",
		Email: "office@hilltop.example",
	}, platformAdmin())
	require.NoError(t, err)

	found, err := svc.Get(context.Background(), school.ID, schoolAdmin(school.ID))
	require.NoError(t, err)
	require.Equal(t, school.ID, found.ID)

	_, err = svc.Get(context.Background(), school.ID, schoolAdmin(uuid.NewString()))
	require.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestSchoolDeactivate(t *testing.T) {
	repo := newSchoolRepoStub()
	svc := NewSchoolService(repo, nil, nil)

	school, err := svc.Create(context.Background(), dto.CreateSchoolRequest{
		Code:  "HTP",
		Name:  "Hilltop Primary",
		Email: "office@hilltop.example",
	}, platformAdmin())
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(context.Background(), school.ID, platformAdmin()))
	require.False(t, repo.schools[school.ID].Active)
}
