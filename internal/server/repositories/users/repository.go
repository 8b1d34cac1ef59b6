// Package users declares the user directory contract and its storage
// backends.
package users

import (
	"context"

	"github.com/dmitrijs2005/authservice/internal/server/models"
)

// Repository is the user directory.
type Repository interface {
	// ExistsByEmail reports whether a user with exactly this email exists.
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// FindByEmail returns common.ErrNotFound when no user matches.
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// FindByID returns common.ErrNotFound when no user matches.
	FindByID(ctx context.Context, id string) (*models.User, error)

	// Create persists a new user with a caller-assigned ID. A duplicate
	// email (or ID) yields common.ErrConflict.
	Create(ctx context.Context, user *models.User) error

	// Update writes user if its Version still matches the stored one and
	// then increments user.Version. A stale version yields
	// common.ErrConflict, a missing row common.ErrNotFound.
	Update(ctx context.Context, user *models.User) error
}
