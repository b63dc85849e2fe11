package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-fees-api/internal/models"
	appErrors "github.com/noah-isme/school-fees-api/pkg/errors"
)

type userRepoStub struct {
	users map[string]*models.User
	logs  []*models.AuditLog
}

func newUserRepoStub() *userRepoStub {
	return &userRepoStub{users: make(map[string]*models.User)}
}

func (m *userRepoStub) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	result := make([]models.User, 0, len(m.users))
	for _, user := range m.users {
		if filter.Role != nil && user.Role != *filter.Role {
			continue
		}
		result = append(result, *user)
	}
	return result, len(result), nil
}

func (m *userRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := m.users[id]; ok {
		copy := *user
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *userRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			copy := *user
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *userRepoStub) Create(ctx context.Context, user *models.User) error {
	m.users[user.ID] = user
	return nil
}

func (m *userRepoStub) Update(ctx context.Context, user *models.User) error {
	if _, ok := m.users[user.ID]; !ok {
		return sql.ErrNoRows
	}
	m.users[user.ID] = user
	return nil
}

func (m *userRepoStub) Delete(ctx context.Context, id string) error {
	user, ok := m.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	user.Active = false
	return nil
}

func (m *userRepoStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.logs = append(m.logs, log)
	return nil
}

func TestUserCreateCrossValidatesRoleAndSchool(t *testing.T) {
	repo := newUserRepoStub()
	svc := NewUserService(repo, nil, nil)
	meta := models.LoginRequest{IP: "127.0.0.1", UserAgent: "tests"}

	_, err := svc.Create(context.Background(), CreateUserRequest{
		Email:    "bursar@hilltop.example",
		FullName: "School Bursar",
		Role:     models.RoleSchoolAdmin,
		Password: "secret123",
		Active:   true,
	}, uuid.NewString(), meta)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)

	_, err = svc.Create(context.Background(), CreateUserRequest{
		Email:    "ops@platform.example",
		FullName: "Platform Ops",
		Role:     models.RolePlatformAdmin,
		SchoolID: uuid.NewString(),
		Password: "secret123",
		Active:   true,
	}, uuid.NewString(), meta)
	appErr, ok = err.(*appErrors.Error)
	require.True(t, ok)
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)

	user, err := svc.Create(context.Background(), CreateUserRequest{
		Email:    "Bursar@Hilltop.example",
		FullName: "School Bursar",
		Role:     models.RoleSchoolAdmin,
		SchoolID: uuid.NewString(),
		Password: "secret123",
		Active:   true,
	}, uuid.NewString(), meta)
	require.NoError(t, err)
	require.Equal(t, "bursar@hilltop.example", user.Email)
	require.NotNil(t, user.SchoolID)
	require.NotEmpty(t, repo.logs)
	require.Equal(t, models.AuditActionUserCreate, repo.logs[len(repo.logs)-1].Action)
}

func TestUserCreateRejectsDuplicateEmail(t *testing.T) {
	repo := newUserRepoStub()
	svc := NewUserService(repo, nil, nil)
	meta := models.LoginRequest{}

	req := CreateUserRequest{
		Email:    "ops@platform.example",
		FullName: "Platform Ops",
		Role:     models.RolePlatformAdmin,
		Password: "secret123",
		Active:   true,
	}
	_, err := svc.Create(context.Background(), req, uuid.NewString(), meta)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), req, uuid.NewString(), meta)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	require.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestUserUpdateRecordsAudit(t *testing.T) {
	repo := newUserRepoStub()
	svc := NewUserService(repo, nil, nil)
	meta := models.LoginRequest{}

	user, err := svc.Create(context.Background(), CreateUserRequest{
		Email:    "ops@platform.example",
		FullName: "Platform Ops",
		Role:     models.RolePlatformAdmin,
		Password: "secret123",
		Active:   true,
	}, uuid.NewString(), meta)
	require.NoError(t, err)

	inactive := false
	updated, err := svc.Update(context.Background(), user.ID, UpdateUserRequest{
		FullName: "Platform Operations",
		Role:     models.RolePlatformAdmin,
		Active:   &inactive,
	}, uuid.NewString(), meta)
	require.NoError(t, err)
	require.Equal(t, "Platform Operations", updated.FullName)
	require.False(t, updated.Active)
	require.Equal(t, models.AuditActionUserUpdate, repo.logs[len(repo.logs)-1].Action)
}

func TestUserDeleteSoftDeletes(t *testing.T) {
	repo := newUserRepoStub()
	svc := NewUserService(repo, nil, nil)
	meta := models.LoginRequest{}

	user, err := svc.Create(context.Background(), CreateUserRequest{
		Email:    "ops@platform.example",
		FullName: "Platform Ops",
		Role:     models.RolePlatformAdmin,
		Password: "secret123",
		Active:   true,
	}, uuid.NewString(), meta)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), user.ID, uuid.NewString(), meta))
	require.False(t, repo.users[user.ID].Active)
	require.Equal(t, models.AuditActionUserDelete, repo.logs[len(repo.logs)-1].Action)

	err = svc.Delete(context.Background(), uuid.NewString(), uuid.NewString(), meta)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	require.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestUserListPaginationDefaults(t *testing.T) {
	repo := newUserRepoStub()
	svc := NewUserService(repo, nil, nil)

	_, err := svc.Create(context.Background(), CreateUserRequest{
		Email:    "ops@platform.example",
		FullName: "Platform Ops",
		Role:     models.RolePlatformAdmin,
		Password: "secret123",
		Active:   true,
	}, uuid.NewString(), models.LoginRequest{})
	require.NoError(t, err)

	users, pagination, err := svc.List(context.Background(), models.UserFilter{})
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, 1, pagination.Page)
	require.Equal(t, 20, pagination.PageSize)
	require.Equal(t, 1, pagination.TotalCount)
}
