// Package common contains shared constants and sentinel errors used across
// the docchat server components.
package common

const (
	// TokenCookieName is the cookie that carries the session token.
	TokenCookieName = "token"

	// AuthorizationHeaderName is consulted when the cookie is absent.
	AuthorizationHeaderName = "Authorization"

	// BearerPrefix precedes the token in the Authorization header.
	BearerPrefix = "Bearer "

	// AuthorizationMetadataKey is the gRPC metadata key carrying "Bearer <token>".
	AuthorizationMetadataKey = "authorization"
)
