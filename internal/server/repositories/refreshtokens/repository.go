// Package refreshtokens declares the server-side repository contract for
// refresh tokens and its SQL and Redis implementations.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Repository defines operations for storing, retrieving, and revoking
// refresh tokens.
type Repository interface {
	// Create stores a freshly issued token. ID and CreatedAt are supplied by
	// the caller.
	Create(ctx context.Context, token *models.RefreshToken) error

	// Find looks up a token by its bearer string. Rows past their expiry are
	// still returned; callers decide on expiry. Absent tokens yield
	// common.ErrorNotFound.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete removes a token. Deleting a non-existent token is not an error.
	Delete(ctx context.Context, token string) error

	// DeleteAllForAccount removes every token owned by the account.
	DeleteAllForAccount(ctx context.Context, accountID string) (int64, error)

	// DeleteExpired removes tokens whose expiry is at or before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
