package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	pkgAuth "github.com/polkiloo/pulperia/internal/pkg/auth"
)

// HealthPath is the unauthenticated liveness route.
const HealthPath = "/api/healthz"

// RequestLogger logs every request once it completes. Server errors are logged
// at error level, probes at debug, and the caller is attached when known.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []slog.Attr{
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
		}
		if v, ok := c.Get(ActorContextKey); ok {
			if p, ok := v.(pkgAuth.Principal); ok {
				attrs = append(attrs, slog.String("actor", p.ID), slog.String("role", string(p.Role)))
			}
		}

		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case c.FullPath() == HealthPath:
			level = slog.LevelDebug
		}
		logger.LogAttrs(c.Request.Context(), level, "http request", attrs...)
	}
}
