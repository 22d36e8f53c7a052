// Package session holds the server-side revocation lists for session
// tokens. Tokens stay stateless; a list only remembers ids of tokens that
// were logged out before they expired.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDenylist keeps one key per revoked token id, expiring together with
// the token itself.
type RedisDenylist struct {
	client *redis.Client
	prefix string
}

// NewRedisDenylist connects to redisURL and pings it.
func NewRedisDenylist(ctx context.Context, redisURL string) (*RedisDenylist, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisDenylistWithClient(client), nil
}

func NewRedisDenylistWithClient(client *redis.Client) *RedisDenylist {
	return &RedisDenylist{client: client, prefix: "revoked:"}
}

func (d *RedisDenylist) key(tokenID string) string {
	return d.prefix + tokenID
}

// Revoke stores tokenID until expiresAt. Already expired tokens are skipped.
func (d *RedisDenylist) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := d.client.Set(ctx, d.key(tokenID), 1, ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (d *RedisDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	err := d.client.Get(ctx, d.key(tokenID)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup revoked token: %w", err)
	}
	return true, nil
}

func (d *RedisDenylist) Close() error {
	return d.client.Close()
}
