package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFromRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		cookie string
		header string
		want   string
		found  bool
	}{
		{name: "none"},
		{name: "cookie only", cookie: "c-tok", want: "c-tok", found: true},
		{name: "header only", header: "Bearer h-tok", want: "h-tok", found: true},
		{name: "cookie wins", cookie: "c-tok", header: "Bearer h-tok", want: "c-tok", found: true},
		{name: "non bearer scheme", header: "Basic dXNlcjpwYXNz"},
		{name: "bearer without token", header: "Bearer "},
		{name: "lowercase scheme", header: "bearer h-tok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != "" {
				r.AddCookie(&http.Cookie{Name: "token", Value: tt.cookie})
			}
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			got, ok := ExtractFromRequest(r)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetTokenCookie(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	SetTokenCookie(w, "tok", DefaultCookieOptions(true))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, "token", c.Name)
	assert.Equal(t, "tok", c.Value)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, int((7 * 24 * time.Hour).Seconds()), c.MaxAge)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
}

func TestSetTokenCookie_NotSecureOutsideProduction(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	SetTokenCookie(w, "tok", DefaultCookieOptions(false))
	assert.False(t, w.Result().Cookies()[0].Secure)
}

func TestClearTokenCookie(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	ClearTokenCookie(w, DefaultCookieOptions(false))

	assert.Contains(t, w.Header().Get("Set-Cookie"), "Max-Age=0")
	c := w.Result().Cookies()[0]
	assert.Equal(t, "token", c.Name)
	assert.Empty(t, c.Value)
	assert.True(t, c.HttpOnly)
}
