package users

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

func setupUsersTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Exec(`
CREATE TABLE users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  name TEXT NOT NULL DEFAULT '',
  role TEXT NOT NULL DEFAULT 'customer',
  is_active INTEGER NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`).Error)
	return db
}

func TestRepositoryCreateAndFind(t *testing.T) {
	repo := NewRepository(setupUsersTestDB(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, CreateUserDTO{Email: " Admin@Shop.Example ", PasswordHash: "hash", Name: "Ana", Role: enums.UserRoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, "admin@shop.example", created.Email)
	assert.True(t, created.IsActive)

	byEmail, err := repo.FindByEmail(ctx, "ADMIN@shop.example")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)
	assert.Equal(t, enums.UserRoleAdmin, byEmail.Role)

	byID, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", byID.Name)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, err = repo.Create(ctx, CreateUserDTO{Email: "admin@shop.example", PasswordHash: "x"})
	assert.Error(t, err)
}

func TestRepositoryUpdates(t *testing.T) {
	repo := NewRepository(setupUsersTestDB(t))
	ctx := context.Background()
	created, err := repo.Create(ctx, CreateUserDTO{Email: "c@shop.example", PasswordHash: "old"})
	require.NoError(t, err)
	assert.Equal(t, enums.UserRoleCustomer, created.Role)

	at := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateLastLogin(ctx, created.ID, at))
	require.NoError(t, repo.UpdatePassword(ctx, created.ID, "new"))

	found, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, found.LastLoginAt)
	assert.True(t, found.LastLoginAt.Equal(at))
	assert.Equal(t, "new", found.PasswordHash)

	dto := FromModel(found)
	assert.Equal(t, found.Email, dto.Email)
	assert.Nil(t, FromModel(nil))
}
