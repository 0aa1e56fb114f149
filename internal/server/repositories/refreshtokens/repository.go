// Package refreshtokens declares the server-side repository contract for
// refresh tokens.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/migrainelog/internal/server/models"
)

// Repository issues and redeems refresh tokens. Tokens are single use.
type Repository interface {
	// Create stores token for userID, valid until expires.
	Create(ctx context.Context, userID string, token string, expires time.Time) error

	// Consume deletes token and returns the row it held, or
	// common.ErrorNotFound when no such token exists.
	Consume(ctx context.Context, token string) (*models.RefreshToken, error)

	// PurgeExpired drops the user's tokens that expired before now.
	PurgeExpired(ctx context.Context, userID string, now time.Time) (int64, error)
}
