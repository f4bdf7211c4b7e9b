package repository

import (
	"context"

	"github.com/jacksonwyt/byldur-sub000/internal/domain"
)

// UserRepository defines storage for user accounts.
type UserRepository interface {
	// FindByUsername looks a user up by username, returning
	// ErrUserNotFound when absent.
	FindByUsername(ctx context.Context, username string) (*domain.User, error)

	// FindByID looks a user up by ID, returning ErrUserNotFound when
	// absent.
	FindByID(ctx context.Context, id uint) (*domain.User, error)

	// Save creates the user when ID is zero, otherwise updates it.
	Save(ctx context.Context, user *domain.User) error
}
