package auth

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/docchat/internal/common"
	"github.com/dmitrijs2005/docchat/internal/logging"
)

// Operation is a protected unit of work. The verified claims are available
// through ClaimsFromContext.
type Operation func(ctx context.Context) error

// Guarded is an Operation wrapped by the Gate; it receives the raw token
// the transport extracted ("" when none was sent).
type Guarded func(ctx context.Context, token string) error

// TokenVerifier is the part of TokenService the Gate needs.
type TokenVerifier interface {
	Verify(token string) (*Claims, error)
}

// Denylist answers whether a token id was revoked before its expiry.
type Denylist interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// RevocationStore is a Denylist that also records revocations.
type RevocationStore interface {
	Denylist
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
}

type claimsKey struct{}

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext returns the claims attached by the Gate.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok && c != nil
}

// Gate admits operations only for callers holding a valid session token.
// It keeps no per-request state and is safe for concurrent use.
type Gate struct {
	tokens   TokenVerifier
	denylist Denylist
	logger   logging.Logger
}

type GateOption func(*Gate)

// WithDenylist makes the Gate reject tokens whose id is on d. Lookup errors
// reject the token.
func WithDenylist(d Denylist) GateOption {
	return func(g *Gate) { g.denylist = d }
}

func NewGate(tokens TokenVerifier, logger logging.Logger, opts ...GateOption) *Gate {
	g := &Gate{tokens: tokens, logger: logger.With("module", "auth.gate")}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Authenticate verifies token and returns its claims or
// common.ErrorUnauthorized. The reason is logged, never returned.
func (g *Gate) Authenticate(ctx context.Context, token string) (*Claims, error) {
	if token == "" {
		return nil, common.ErrorUnauthorized
	}

	claims, err := g.tokens.Verify(token)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			g.logger.Debug(ctx, "session token expired")
		} else {
			g.logger.Warn(ctx, "session token rejected", "error", err)
		}
		return nil, common.ErrorUnauthorized
	}

	if g.denylist != nil && claims.ID != "" {
		revoked, err := g.denylist.IsRevoked(ctx, claims.ID)
		if err != nil {
			g.logger.Error(ctx, "revocation lookup failed", "error", err)
			return nil, common.ErrorUnauthorized
		}
		if revoked {
			g.logger.Debug(ctx, "session token revoked", "user_id", claims.UserID)
			return nil, common.ErrorUnauthorized
		}
	}

	return claims, nil
}

// RequireAuth wraps op so it only runs for a valid token, with the claims
// attached to its context.
func (g *Gate) RequireAuth(op Operation) Guarded {
	return func(ctx context.Context, token string) error {
		claims, err := g.Authenticate(ctx, token)
		if err != nil {
			return err
		}
		return op(WithClaims(ctx, claims))
	}
}

// RequireRole is RequireAuth plus a role check; a valid token with another
// role yields common.ErrorForbidden.
func (g *Gate) RequireRole(role Role, op Operation) Guarded {
	return g.RequireAuth(func(ctx context.Context) error {
		claims, _ := ClaimsFromContext(ctx)
		if claims.Role != role {
			g.logger.Info(ctx, "role check failed", "user_id", claims.UserID, "required", string(role))
			return common.ErrorForbidden
		}
		return op(ctx)
	})
}
