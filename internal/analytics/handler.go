package analytics

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/inr99/academy/pkg/response"
)

// Handler handles GET /api/admin/analytics.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates an analytics handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the route on an ADMIN-only group.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.GET("/analytics", h.Summary)
}

// Summary handles GET /api/admin/analytics?days=N.
func (h *Handler) Summary(c *gin.Context) {
	days := ParseDays(c.Query("days"))
	out, err := h.svc.Summary(c.Request.Context(), days)
	if err != nil {
		h.logger.Error("analytics summary", zap.Int("days", days), zap.Error(err))
		response.Internal(c, "failed to load analytics")
		return
	}
	response.OK(c, out)
}
