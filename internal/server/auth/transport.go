package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/docchat/internal/common"
)

// CookieOptions controls the session cookie attributes.
type CookieOptions struct {
	Secure bool
	MaxAge time.Duration
	Path   string
}

// DefaultCookieOptions: http-only, same-site strict, path "/", seven days,
// secure only in production.
func DefaultCookieOptions(production bool) CookieOptions {
	return CookieOptions{
		Secure: production,
		MaxAge: 7 * 24 * time.Hour,
		Path:   "/",
	}
}

// ExtractFromRequest returns the session token from the "token" cookie or,
// only when there is no such cookie, from an "Authorization: Bearer" header.
func ExtractFromRequest(r *http.Request) (string, bool) {
	if c, err := r.Cookie(common.TokenCookieName); err == nil && c.Value != "" {
		return c.Value, true
	}
	return ParseBearer(r.Header.Get(common.AuthorizationHeaderName))
}

// ParseBearer extracts the token from a "Bearer <token>" header value.
func ParseBearer(value string) (string, bool) {
	token, ok := strings.CutPrefix(value, common.BearerPrefix)
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

// SetTokenCookie writes the session cookie carrying token.
func SetTokenCookie(w http.ResponseWriter, token string, opts CookieOptions) {
	http.SetCookie(w, tokenCookie(token, int(opts.MaxAge/time.Second), opts))
}

// ClearTokenCookie tells the client to drop the session cookie.
func ClearTokenCookie(w http.ResponseWriter, opts CookieOptions) {
	http.SetCookie(w, tokenCookie("", -1, opts))
}

func tokenCookie(value string, maxAge int, opts CookieOptions) *http.Cookie {
	path := opts.Path
	if path == "" {
		path = "/"
	}
	return &http.Cookie{
		Name:     common.TokenCookieName,
		Value:    value,
		Path:     path,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}
