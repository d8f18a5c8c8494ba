package settings

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/inr99/academy/pkg/response"
)

// Handler serves /api/admin/settings.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a settings handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the routes on an ADMIN-only group.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.GET("/settings", h.Get)
	g.PUT("/settings", h.Update)
}

// Get handles GET /api/admin/settings.
func (h *Handler) Get(c *gin.Context) {
	s, err := h.svc.Get(c.Request.Context())
	if err != nil {
		h.logger.Error("get settings", zap.Error(err))
		response.Internal(c, "failed to load settings")
		return
	}
	response.OK(c, s)
}

// Update handles PUT /api/admin/settings.
func (h *Handler) Update(c *gin.Context) {
	var req Update
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	s, err := h.svc.Update(c.Request.Context(), req)
	switch {
	case err == nil:
		response.OKMessage(c, s, "settings updated")
	case errors.Is(err, ErrInvalidEmail), errors.Is(err, ErrInvalidPrice):
		response.BadRequest(c, err.Error())
	default:
		h.logger.Error("update settings", zap.Error(err))
		response.Internal(c, "failed to update settings")
	}
}
