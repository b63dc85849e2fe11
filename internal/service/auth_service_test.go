package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/school-fees-api/internal/models"
	appErrors "github.com/noah-isme/school-fees-api/pkg/errors"
)

type authRepoStub struct {
	users         map[string]*models.User
	refreshTokens map[string]*models.RefreshToken
	logs          []*models.AuditLog
	passwordHash  map[string]string
}

func newAuthRepoStub() *authRepoStub {
	return &authRepoStub{
		users:         make(map[string]*models.User),
		refreshTokens: make(map[string]*models.RefreshToken),
		passwordHash:  make(map[string]string),
	}
}

func (m *authRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			copy := *user
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *authRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := m.users[id]; ok {
		copy := *user
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *authRepoStub) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	if user, ok := m.users[id]; ok {
		user.LastLogin = &ts
		return nil
	}
	return sql.ErrNoRows
}

func (m *authRepoStub) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	user, ok := m.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	user.PasswordHash = passwordHash
	return nil
}

func (m *authRepoStub) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	for _, token := range m.refreshTokens {
		if token.UserID == userID {
			token.Revoked = true
		}
	}
	return nil
}

func (m *authRepoStub) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	m.refreshTokens[token.Token] = token
	return nil
}

func (m *authRepoStub) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if stored, ok := m.refreshTokens[token]; ok {
		copy := *stored
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *authRepoStub) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, token := range m.refreshTokens {
		if token.ID == id {
			token.Revoked = true
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *authRepoStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.logs = append(m.logs, log)
	return nil
}

func (m *authRepoStub) addUser(t *testing.T, email, password string, role models.UserRole, schoolID *string, active bool) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		FullName:     "Test User",
		Role:         role,
		SchoolID:     schoolID,
		Active:       active,
		PasswordHash: string(hash),
	}
	m.users[user.ID] = user
	return user
}

func authFixture(repo *authRepoStub) *AuthService {
	return NewAuthService(repo, nil, nil, AuthConfig{
		AccessTokenSecret:  "unit-test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "school-fees-api",
	})
}

func TestLoginIssuesTokensWithSchoolClaim(t *testing.T) {
	repo := newAuthRepoStub()
	schoolID := uuid.NewString()
	user := repo.addUser(t, "admin@hilltop.example", "secret123", models.RoleSchoolAdmin, &schoolID, true)
	svc := authFixture(repo)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@hilltop.example",
		Password: "secret123",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)
	require.Equal(t, user.ID, resp.User.ID)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)
	require.Equal(t, models.RoleSchoolAdmin, claims.Role)
	require.NotNil(t, claims.SchoolID)
	require.Equal(t, schoolID, *claims.SchoolID)

	require.NotEmpty(t, repo.logs)
	require.Equal(t, models.AuditActionLogin, repo.logs[len(repo.logs)-1].Action)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	repo := newAuthRepoStub()
	repo.addUser(t, "admin@hilltop.example", "secret123", models.RolePlatformAdmin, nil, true)
	svc := authFixture(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@hilltop.example",
		Password: "wrong",
	})
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	require.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)

	// Unknown email yields the same error so callers can't probe accounts.
	_, err = svc.Login(context.Background(), models.LoginRequest{
		Email:    "nobody@hilltop.example",
		Password: "secret123",
	})
	appErr, ok = err.(*appErrors.Error)
	require.True(t, ok)
	require.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	repo := newAuthRepoStub()
	repo.addUser(t, "admin@hilltop.example", "secret123", models.RolePlatformAdmin, nil, false)
	svc := authFixture(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@hilltop.example",
		Password: "secret123",
	})
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	require.Equal(t, appErrors.ErrInactiveAccount.Code, appErr.Code)
}

func TestRefreshRotatesToken(t *testing.T) {
	repo := newAuthRepoStub()
	repo.addUser(t, "admin@hilltop.example", "secret123", models.RolePlatformAdmin, nil, true)
	svc := authFixture(repo)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@hilltop.example",
		Password: "secret123",
	})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{
		RefreshToken: login.RefreshToken,
	})
	require.NoError(t, err)
	require.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)
	require.True(t, repo.refreshTokens[login.RefreshToken].Revoked)

	// A revoked token cannot be replayed.
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{
		RefreshToken: login.RefreshToken,
	})
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	require.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestLogoutRejectsForeignToken(t *testing.T) {
	repo := newAuthRepoStub()
	repo.addUser(t, "admin@hilltop.example", "secret123", models.RolePlatformAdmin, nil, true)
	svc := authFixture(repo)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@hilltop.example",
		Password: "secret123",
	})
	require.NoError(t, err)

	err = svc.Logout(context.Background(), login.RefreshToken, uuid.NewString(), models.LoginRequest{})
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	require.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestChangePasswordRevokesSessions(t *testing.T) {
	repo := newAuthRepoStub()
	user := repo.addUser(t, "admin@hilltop.example", "secret123", models.RolePlatformAdmin, nil, true)
	svc := authFixture(repo)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@hilltop.example",
		Password: "secret123",
	})
	require.NoError(t, err)

	err = svc.ChangePassword(context.Background(), user.ID, models.ChangePasswordRequest{
		OldPassword: "wrong",
		NewPassword: "brandnew1",
	})
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	require.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

	require.NoError(t, svc.ChangePassword(context.Background(), user.ID, models.ChangePasswordRequest{
		OldPassword: "secret123",
		NewPassword: "brandnew1",
	}))
	require.True(t, repo.refreshTokens[login.RefreshToken].Revoked)

	_, err = svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@hilltop.example",
		Password: "brandnew1",
	})
	require.NoError(t, err)
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	repo := newAuthRepoStub()
	repo.addUser(t, "admin@hilltop.example", "secret123", models.RolePlatformAdmin, nil, true)
	svc := authFixture(repo)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@hilltop.example",
		Password: "secret123",
	})
	require.NoError(t, err)

	other := NewAuthService(repo, nil, nil, AuthConfig{
		AccessTokenSecret: "a-different-secret",
		AccessTokenExpiry: 15 * time.Minute,
	})
	_, err = other.ValidateToken(login.AccessToken)
	require.Error(t, err)
}
