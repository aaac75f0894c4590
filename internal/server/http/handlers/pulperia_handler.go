package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/pulperia/internal/domain/model"
	"github.com/polkiloo/pulperia/internal/server/http/dto"
)

// PulperiaHandler manages storefront availability.
type PulperiaHandler struct {
	facade PulperiaFacade
}

// NewPulperiaHandler constructs PulperiaHandler.
func NewPulperiaHandler(facade PulperiaFacade) *PulperiaHandler {
	return &PulperiaHandler{facade: facade}
}

// SetStatus handles PUT /api/pulperias/me/status.
func (h *PulperiaHandler) SetStatus(c *gin.Context) {
	var req dto.PulperiaStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	p, err := h.facade.SetPulperiaOpen(c.Request.Context(), CurrentActor(c), *req.Open)
	if err != nil {
		c.Status(statusFor(err))
		return
	}
	c.JSON(http.StatusOK, toPulperiaResponse(*p))
}

// Status handles GET /api/pulperias/:id/status.
func (h *PulperiaHandler) Status(c *gin.Context) {
	p, err := h.facade.PulperiaStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Status(statusFor(err))
		return
	}
	c.JSON(http.StatusOK, toPulperiaResponse(*p))
}

func toPulperiaResponse(p model.Pulperia) dto.PulperiaResponse {
	return dto.PulperiaResponse{VendorID: p.VendorID, Open: p.Open, UpdatedAt: p.UpdatedAt}
}
