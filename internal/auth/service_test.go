package auth

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/security"
)

var testJWT = config.JWTConfig{
	Secret:                 "test-secret",
	Issuer:                 "storefront-test",
	ExpirationMinutes:      15,
	RefreshTokenTTLMinutes: 60,
}

var testPassword = config.PasswordConfig{
	ArgonMemoryKB:    1024,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

type fakeUsers struct {
	byEmail map[string]*models.User
}

func (f *fakeUsers) add(t *testing.T, email, password string, role enums.UserRole, active bool) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password, testPassword)
	require.NoError(t, err)
	user := &models.User{ID: uuid.New(), Email: email, PasswordHash: hash, Role: role, IsActive: active}
	f.byEmail[email] = user
	return user
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if user, ok := f.byEmail[email]; ok {
		clone := *user
		return &clone, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUsers) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	for _, user := range f.byEmail {
		if user.ID == id {
			clone := *user
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUsers) UpdateLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	for _, user := range f.byEmail {
		if user.ID == id {
			user.LastLoginAt = &at
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memoryStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redislib.Nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryStore) AccessSessionKey(accessID string) string { return "session:" + accessID }

func newTestService(t *testing.T) (Service, *fakeUsers, *memoryStore) {
	t.Helper()
	users := &fakeUsers{byEmail: map[string]*models.User{}}
	store := &memoryStore{data: map[string]string{}}
	manager, err := session.NewManager(store, testJWT)
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{UserRepo: users, SessionManager: manager, JWTConfig: testJWT})
	require.NoError(t, err)
	return svc, users, store
}

func TestLoginAdmin(t *testing.T) {
	svc, users, store := newTestService(t)
	admin := users.add(t, "admin@shop.test", "s3cret!", enums.UserRoleAdmin, true)

	resp, err := svc.Login(context.Background(), LoginRequest{Email: "  Admin@Shop.test ", Password: "s3cret!"})
	require.NoError(t, err)
	require.NotNil(t, resp.User)
	assert.Equal(t, admin.ID, resp.User.ID)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.NotNil(t, users.byEmail["admin@shop.test"].LastLoginAt)

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, enums.UserRoleAdmin, claims.Role)
	assert.Equal(t, resp.RefreshToken, store.data["session:"+claims.ID])
}

func TestLoginRejectsCustomer(t *testing.T) {
	svc, users, _ := newTestService(t)
	users.add(t, "buyer@shop.test", "pw", enums.UserRoleCustomer, true)

	_, err := svc.Login(context.Background(), LoginRequest{Email: "buyer@shop.test", Password: "pw"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestLoginInvalidCredentials(t *testing.T) {
	svc, users, _ := newTestService(t)
	users.add(t, "admin@shop.test", "right", enums.UserRoleAdmin, true)
	users.add(t, "off@shop.test", "right", enums.UserRoleAdmin, false)

	cases := []LoginRequest{
		{Email: "admin@shop.test", Password: "wrong"},
		{Email: "nobody@shop.test", Password: "right"},
		{Email: "off@shop.test", Password: "right"},
		{Email: "", Password: ""},
	}
	for _, req := range cases {
		_, err := svc.Login(context.Background(), req)
		require.Error(t, err, req.Email)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized), req.Email)
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	svc, users, store := newTestService(t)
	users.add(t, "admin@shop.test", "pw", enums.UserRoleAdmin, true)
	ctx := context.Background()

	login, err := svc.Login(ctx, LoginRequest{Email: "admin@shop.test", Password: "pw"})
	require.NoError(t, err)

	pair, err := svc.Refresh(ctx, login.AccessToken, RefreshRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, pair.RefreshToken)
	assert.Len(t, store.data, 1)

	_, err = svc.Refresh(ctx, login.AccessToken, RefreshRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestLogoutRevokesSession(t *testing.T) {
	svc, users, store := newTestService(t)
	users.add(t, "admin@shop.test", "pw", enums.UserRoleAdmin, true)
	ctx := context.Background()

	login, err := svc.Login(ctx, LoginRequest{Email: "admin@shop.test", Password: "pw"})
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, login.AccessToken))
	assert.Empty(t, store.data)

	err = svc.Logout(ctx, "not-a-jwt")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestMe(t *testing.T) {
	svc, users, _ := newTestService(t)
	admin := users.add(t, "admin@shop.test", "pw", enums.UserRoleAdmin, true)

	dto, err := svc.Me(context.Background(), admin.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin@shop.test", dto.Email)

	_, err = svc.Me(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
