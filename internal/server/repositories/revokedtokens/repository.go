// Package revokedtokens stores ids of session tokens revoked before their
// expiry (logout). Rows are only needed until the token would have expired.
package revokedtokens

import (
	"context"
	"time"
)

type Repository interface {
	// Revoke records tokenID as revoked until expiresAt. Revoking twice is not an error.
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	// DeleteExpired removes entries whose token has expired anyway.
	DeleteExpired(ctx context.Context) (int64, error)
}
