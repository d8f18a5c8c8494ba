package attendance

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inr99/academy/internal/auth"
	"github.com/inr99/academy/pkg/response"
)

// JoinRequest is the optional body of POST /api/live-sessions/:id/attendance.
type JoinRequest struct {
	DeviceInfo string `json:"deviceInfo" binding:"max=512"`
	IPAddress  string `json:"ipAddress" binding:"omitempty,ip"`
}

// Handler serves the attendance routes of a live session.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates an attendance handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the routes on a JWT-protected live-sessions group.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.GET("/:id/attendance", h.List)
	g.POST("/:id/attendance", h.Join)
	g.PUT("/:id/attendance", h.Leave)
}

func (h *Handler) params(c *gin.Context) (sessionID, userID uuid.UUID, ok bool) {
	userID, ok = auth.CurrentUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return uuid.Nil, uuid.Nil, false
	}
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return uuid.Nil, uuid.Nil, false
	}
	return sessionID, userID, true
}

// List handles GET /api/live-sessions/:id/attendance?status=.
func (h *Handler) List(c *gin.Context) {
	sessionID, _, ok := h.params(c)
	if !ok {
		return
	}
	res, err := h.svc.List(c.Request.Context(), sessionID, c.Query("status"))
	if err != nil {
		h.fail(c, err, "failed to list attendance")
		return
	}
	response.OK(c, res)
}

// Join handles POST /api/live-sessions/:id/attendance.
func (h *Handler) Join(c *gin.Context) {
	sessionID, userID, ok := h.params(c)
	if !ok {
		return
	}
	var req JoinRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "invalid request: "+err.Error())
			return
		}
	}
	if req.IPAddress == "" {
		req.IPAddress = c.ClientIP()
	}
	if req.DeviceInfo == "" {
		req.DeviceInfo = c.Request.UserAgent()
	}

	res, err := h.svc.Join(c.Request.Context(), sessionID, userID, JoinInput{DeviceInfo: req.DeviceInfo, IPAddress: req.IPAddress})
	if err != nil {
		h.fail(c, err, "failed to join session")
		return
	}
	if res.AlreadyJoined {
		response.OKMessage(c, res, "already joined")
		return
	}
	c.JSON(http.StatusCreated, response.Body{Success: true, Data: res, Message: "joined session"})
}

// Leave handles PUT /api/live-sessions/:id/attendance.
func (h *Handler) Leave(c *gin.Context) {
	sessionID, userID, ok := h.params(c)
	if !ok {
		return
	}
	att, err := h.svc.Leave(c.Request.Context(), sessionID, userID)
	if err != nil {
		h.fail(c, err, "failed to leave session")
		return
	}
	response.OKMessage(c, att, "left session")
}

func (h *Handler) fail(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrSessionNotJoinable),
		errors.Is(err, ErrSessionFull),
		errors.Is(err, ErrNotJoined),
		errors.Is(err, ErrInvalidStatus):
		response.BadRequest(c, err.Error())
	default:
		h.logger.Error(msg, zap.String("session_id", c.Param("id")), zap.Error(err))
		response.Internal(c, msg)
	}
}
