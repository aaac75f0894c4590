package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	pkgAuth "github.com/polkiloo/pulperia/internal/pkg/auth"
)

// SessionHandler upgrades authenticated requests to live sessions.
type SessionHandler struct {
	facade SessionFacade
	logger *slog.Logger
}

// NewSessionHandler constructs SessionHandler.
func NewSessionHandler(facade SessionFacade, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{facade: facade, logger: logger}
}

// Serve handles GET /api/ws. The upgrader writes its own error response.
func (h *SessionHandler) Serve(c *gin.Context) {
	actor := CurrentActor(c)
	err := h.facade.ServeSession(c.Writer, c.Request, pkgAuth.Principal(actor))
	if err != nil {
		h.logger.Warn("websocket session failed",
			slog.String("user", actor.ID),
			slog.String("error", err.Error()),
		)
	}
	c.Abort()
}

// HealthHandler reports readiness.
type HealthHandler struct {
	facade HealthFacade
}

// NewHealthHandler constructs HealthHandler.
func NewHealthHandler(facade HealthFacade) *HealthHandler {
	return &HealthHandler{facade: facade}
}

// Check handles GET /api/healthz.
func (h *HealthHandler) Check(c *gin.Context) {
	if err := h.facade.HealthCheck(c.Request.Context()); err != nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	c.Status(http.StatusOK)
}
