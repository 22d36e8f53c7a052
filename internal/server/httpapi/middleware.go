package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/docchat/internal/logging"
	"github.com/dmitrijs2005/docchat/internal/server/auth"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// RequireAuth runs the rest of the chain through the gate. Handlers find
// the verified claims with auth.ClaimsFromContext.
func RequireAuth(g *auth.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		guarded(c, g.RequireAuth(next(c)))
	}
}

// RequireRole is RequireAuth restricted to role.
func RequireRole(g *auth.Gate, role auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		guarded(c, g.RequireRole(role, next(c)))
	}
}

func next(c *gin.Context) auth.Operation {
	return func(ctx context.Context) error {
		c.Request = c.Request.WithContext(ctx)
		c.Next()
		return nil
	}
}

func guarded(c *gin.Context, op auth.Guarded) {
	token, _ := auth.ExtractFromRequest(c.Request)
	if err := op(c.Request.Context(), token); err != nil {
		respondError(c, err, "")
	}
}

// CORS answers preflight requests and allows credentials for the listed
// origins. Requests from other origins get no CORS headers.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.ToLower(strings.TrimRight(o, "/"))] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		_, ok := allowed[strings.ToLower(origin)]
		if origin != "" && ok {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+requestIDHeader)
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		}

		if c.Request.Method == http.MethodOptions && origin != "" {
			if !ok {
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RequestLogger tags each request with an id and logs it once finished.
func RequestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)

		c.Next()

		args := []any{
			"request_id", id,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		}
		if len(c.Errors) > 0 {
			args = append(args, "error", c.Errors.String())
		}

		ctx := c.Request.Context()
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Error(ctx, "request", args...)
		case c.Writer.Status() >= http.StatusBadRequest:
			logger.Warn(ctx, "request", args...)
		default:
			logger.Info(ctx, "request", args...)
		}
	}
}

// Recovery turns a handler panic into a 500 envelope.
func Recovery(logger logging.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error(c.Request.Context(), "handler panic", "panic", recovered, "path", c.Request.URL.Path)
		respondFail(c, http.StatusInternalServerError, msgInternal)
	})
}
