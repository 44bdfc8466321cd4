// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/storefront/internal/model"
)

// UserRepository stores accounts and their active refresh sessions.
type UserRepository interface {
	// FindByEmail loads a user by email, compared case-insensitively. Returns errs.ErrNotFound if absent.
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	// FindByID loads a user by ID. Returns errs.ErrNotFound if absent.
	FindByID(ctx context.Context, id int64) (*model.User, error)
	// Create assigns the next ID, stamps timestamps and persists a user with no sessions.
	// Email uniqueness is the caller's concern.
	Create(ctx context.Context, email, name, passwordHash string, roles []string) (*model.User, error)
	// AddRefreshJTI records jti as active; no-op if present or user unknown.
	AddRefreshJTI(ctx context.Context, userID int64, jti string) error
	// RemoveRefreshJTI revokes jti; no-op if absent or user unknown.
	RemoveRefreshJTI(ctx context.Context, userID int64, jti string) error
	// ClearRefreshJTIs revokes every session of the user; no-op if user unknown.
	ClearRefreshJTIs(ctx context.Context, userID int64) error
}
