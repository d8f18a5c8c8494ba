package instructors

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/inr99/academy/internal/auth"
	"github.com/inr99/academy/pkg/response"
)

// Handler serves /api/instructor/profile.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates an instructor profile handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the routes on a group restricted to INSTRUCTOR and ADMIN.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.GET("/profile", h.Get)
	g.PUT("/profile", h.Update)
}

// Get handles GET /api/instructor/profile.
func (h *Handler) Get(c *gin.Context) {
	userID, ok := auth.CurrentUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}
	p, err := h.svc.Get(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err, "failed to load profile")
		return
	}
	response.OK(c, p)
}

// Update handles PUT /api/instructor/profile.
func (h *Handler) Update(c *gin.Context) {
	userID, ok := auth.CurrentUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}
	var req Update
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	p, err := h.svc.Update(c.Request.Context(), userID, req)
	if err != nil {
		h.fail(c, err, "failed to update profile")
		return
	}
	response.OKMessage(c, p, "profile updated")
}

func (h *Handler) fail(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, ErrUserNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrInvalidWebsite), errors.Is(err, ErrInvalidYears):
		response.BadRequest(c, err.Error())
	default:
		h.logger.Error(msg, zap.Error(err))
		response.Internal(c, msg)
	}
}
