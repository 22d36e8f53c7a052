package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/docchat/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Role is the authorization level carried in a session token.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// ParseRole converts s to a Role; ok is false for unknown names.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.Valid()
}

// Identity is what a session token asserts about its bearer.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}

// Claims is the JWT payload: the identity plus the registered claims
// (exp, iat, jti, sub).
type Claims struct {
	Identity
	jwt.RegisteredClaims
}

// TokenService signs and verifies HS256 session tokens with a fixed secret.
type TokenService struct {
	secret []byte
	now    func() time.Time
}

// NewTokenService copies secret. An empty secret is a configuration error.
func NewTokenService(secret []byte) (*TokenService, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: token signing secret is empty", common.ErrConfiguration)
	}
	s := make([]byte, len(secret))
	copy(s, secret)
	return &TokenService{secret: s, now: time.Now}, nil
}

// Issue returns a signed token for id that expires ttl from now.
func (s *TokenService) Issue(id Identity, ttl time.Duration) (string, error) {
	if id.UserID == "" {
		return "", errors.New("issue token: empty user id")
	}
	if !id.Role.Valid() {
		return "", fmt.Errorf("issue token: unknown role %q", id.Role)
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Identity: id,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})

	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

// Verify checks the signature and expiry of tokenString and returns its
// claims. Every failure is common.ErrInvalidToken; an otherwise good token
// past its expiry is common.ErrTokenExpired, which wraps it.
func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}
	if !token.Valid || claims.UserID == "" || !claims.Role.Valid() {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
