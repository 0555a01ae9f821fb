package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

type adminStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
}

// ensureAdmin creates the admin account, or resets its password when it
// already exists. Existing non-admin accounts are left untouched.
func ensureAdmin(ctx context.Context, store adminStore, email, name, passwordHash string) (*models.User, bool, error) {
	existing, err := store.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role != enums.UserRoleAdmin {
			return nil, false, fmt.Errorf("user %s exists with role %s", existing.Email, existing.Role)
		}
		if err := store.UpdatePassword(ctx, existing.ID, passwordHash); err != nil {
			return nil, false, fmt.Errorf("reset admin password: %w", err)
		}
		return existing, false, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return nil, false, fmt.Errorf("lookup user: %w", err)
	}

	created, err := store.Create(ctx, users.CreateUserDTO{
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		Role:         enums.UserRoleAdmin,
	})
	if err != nil {
		return nil, false, fmt.Errorf("create admin: %w", err)
	}
	return created, true, nil
}
