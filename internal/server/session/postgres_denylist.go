package session

import (
	"context"
	"time"

	"github.com/dmitrijs2005/docchat/internal/dbx"
	"github.com/dmitrijs2005/docchat/internal/logging"
	"github.com/dmitrijs2005/docchat/internal/server/repositories/repomanager"
)

// PostgresDenylist stores revocations in the revoked_tokens table.
type PostgresDenylist struct {
	db          dbx.DBTX
	repomanager repomanager.RepositoryManager
}

func NewPostgresDenylist(db dbx.DBTX, m repomanager.RepositoryManager) *PostgresDenylist {
	return &PostgresDenylist{db: db, repomanager: m}
}

func (d *PostgresDenylist) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if !expiresAt.After(time.Now()) {
		return nil
	}
	return d.repomanager.RevokedTokens(d.db).Revoke(ctx, tokenID, expiresAt)
}

func (d *PostgresDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	return d.repomanager.RevokedTokens(d.db).IsRevoked(ctx, tokenID)
}

// RunJanitor deletes expired rows every interval until ctx is done.
func (d *PostgresDenylist) RunJanitor(ctx context.Context, interval time.Duration, logger logging.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := d.repomanager.RevokedTokens(d.db).DeleteExpired(ctx)
			if err != nil {
				logger.Warn(ctx, "revoked token cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Debug(ctx, "revoked tokens purged", "count", n)
			}
		}
	}
}
