package revokedtokens

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/docchat/internal/dbx"
)

// PostgresRepository implements Repository over dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	query := `
		INSERT INTO revoked_tokens (token_id, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (token_id) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, tokenID, expiresAt); err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE token_id = $1 AND expires_at > now())`

	var revoked bool
	if err := r.db.QueryRowContext(ctx, query, tokenID).Scan(&revoked); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return revoked, nil
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return res.RowsAffected()
}
