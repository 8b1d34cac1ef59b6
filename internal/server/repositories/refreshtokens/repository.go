// Package refreshtokens declares the refresh token store contract and its
// storage backends.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/authservice/internal/server/models"
)

// Repository persists refresh tokens.
type Repository interface {
	// Create stores a new token. A duplicate token string yields common.ErrConflict.
	Create(ctx context.Context, token *models.RefreshToken) error

	// FindByToken returns common.ErrNotFound when the token is absent.
	FindByToken(ctx context.Context, token string) (*models.RefreshToken, error)

	// Update persists the revoked flag of an existing record. Once stored
	// as revoked a record stays revoked. A missing record yields
	// common.ErrNotFound.
	Update(ctx context.Context, token *models.RefreshToken) error

	// DeleteByUserID removes every token of the user and returns the count.
	DeleteByUserID(ctx context.Context, userID string) (int64, error)

	// DeleteAllExpired removes every token with ExpiryDate <= cutoff,
	// revoked or not, and returns the count.
	DeleteAllExpired(ctx context.Context, cutoff time.Time) (int64, error)
}
