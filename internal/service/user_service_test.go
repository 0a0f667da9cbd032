package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/lms-console-api/internal/models"
	appErrors "github.com/noah-isme/lms-console-api/pkg/errors"
)

type mockUserAdminRepo struct {
	users        map[string]*models.User
	emails       map[string]string
	created      *models.User
	updated      *models.User
	deactivated  []string
	revoked      []string
	passwordHash string
}

func (m *mockUserAdminRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	out := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (m *mockUserAdminRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (m *mockUserAdminRepo) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	owner, ok := m.emails[email]
	return ok && owner != excludeID, nil
}

func (m *mockUserAdminRepo) Create(ctx context.Context, user *models.User) error {
	user.ID = "generated"
	m.created = user
	return nil
}

func (m *mockUserAdminRepo) Update(ctx context.Context, user *models.User) error {
	m.updated = user
	return nil
}

func (m *mockUserAdminRepo) Deactivate(ctx context.Context, id string) error {
	m.deactivated = append(m.deactivated, id)
	return nil
}

func (m *mockUserAdminRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	m.passwordHash = passwordHash
	return nil
}

func (m *mockUserAdminRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revoked = append(m.revoked, userID)
	return nil
}

func newUserService(repo *mockUserAdminRepo) *UserService {
	return NewUserService(repo, validator.New(), zap.NewNop())
}

func boolPtr(b bool) *bool {
	return &b
}

func TestUserCreateNormalizesEmail(t *testing.T) {
	repo := &mockUserAdminRepo{users: map[string]*models.User{}, emails: map[string]string{}}
	svc := newUserService(repo)

	user, err := svc.Create(context.Background(), CreateUserRequest{
		Email:    "  New.Teacher@Example.COM ",
		Password: "password123",
		FullName: "New Teacher",
		Role:     models.RoleTeacher,
	})
	require.NoError(t, err)
	assert.Equal(t, "new.teacher@example.com", user.Email)
	assert.True(t, user.Active)
	assert.NotEqual(t, "password123", user.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("password123")))
}

func TestUserCreateDuplicateEmailConflicts(t *testing.T) {
	repo := &mockUserAdminRepo{
		users:  map[string]*models.User{},
		emails: map[string]string{"taken@example.com": "u-1"},
	}
	svc := newUserService(repo)

	_, err := svc.Create(context.Background(), CreateUserRequest{
		Email:    "taken@example.com",
		Password: "password123",
		FullName: "Dup",
		Role:     models.RoleTeacher,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestUserCreateRejectsUnknownRole(t *testing.T) {
	svc := newUserService(&mockUserAdminRepo{})

	_, err := svc.Create(context.Background(), CreateUserRequest{
		Email:    "new@example.com",
		Password: "password123",
		FullName: "New",
		Role:     "STUDENT",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUserUpdateDeactivationRevokesSessions(t *testing.T) {
	repo := &mockUserAdminRepo{
		users:  map[string]*models.User{"u-1": {ID: "u-1", Email: "t@example.com", FullName: "T", Role: models.RoleTeacher, Active: true}},
		emails: map[string]string{"t@example.com": "u-1"},
	}
	svc := newUserService(repo)

	user, err := svc.Update(context.Background(), "u-1", UpdateUserRequest{
		Email:    "t@example.com",
		FullName: "T",
		Role:     models.RoleTeacher,
		Active:   boolPtr(false),
	})
	require.NoError(t, err)
	assert.False(t, user.Active)
	assert.Equal(t, []string{"u-1"}, repo.revoked)
}

func TestUserUpdateKeepingActiveDoesNotRevoke(t *testing.T) {
	repo := &mockUserAdminRepo{
		users:  map[string]*models.User{"u-1": {ID: "u-1", Email: "t@example.com", FullName: "T", Role: models.RoleTeacher, Active: true}},
		emails: map[string]string{"t@example.com": "u-1"},
	}
	svc := newUserService(repo)

	_, err := svc.Update(context.Background(), "u-1", UpdateUserRequest{
		Email:    "t@example.com",
		FullName: "Renamed",
		Role:     models.RoleTeacher,
		Active:   boolPtr(true),
	})
	require.NoError(t, err)
	assert.Empty(t, repo.revoked)
}

func TestUserDeleteDeactivatesAndRevokes(t *testing.T) {
	repo := &mockUserAdminRepo{
		users: map[string]*models.User{"u-1": {ID: "u-1", Email: "t@example.com", Active: true}},
	}
	svc := newUserService(repo)

	require.NoError(t, svc.Delete(context.Background(), "u-1"))
	assert.Equal(t, []string{"u-1"}, repo.deactivated)
	assert.Equal(t, []string{"u-1"}, repo.revoked)
}

func TestUserResetPassword(t *testing.T) {
	repo := &mockUserAdminRepo{
		users: map[string]*models.User{"u-1": {ID: "u-1", Email: "t@example.com", Active: true}},
	}
	svc := newUserService(repo)

	require.NoError(t, svc.ResetPassword(context.Background(), "u-1", ResetPasswordRequest{NewPassword: "fresh-password"}))
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.passwordHash), []byte("fresh-password")))
	assert.Equal(t, []string{"u-1"}, repo.revoked)

	err := svc.ResetPassword(context.Background(), "u-1", ResetPasswordRequest{NewPassword: "short"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
