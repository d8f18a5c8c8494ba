package recordings

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inr99/academy/internal/auth"
	"github.com/inr99/academy/pkg/response"
)

// Handler serves recording reads for authenticated users.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a recordings handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the routes on an authenticated /api group.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.GET("/live-sessions/:id/recordings", h.ListBySession)
	g.GET("/recordings/:id/download-url", h.DownloadURL)
}

// ListBySession handles GET /api/live-sessions/:id/recordings.
func (h *Handler) ListBySession(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	list, err := h.svc.List(c.Request.Context(), caller, sessionID)
	if err != nil {
		fail(c, h.logger, err, "failed to list recordings")
		return
	}
	response.OK(c, list)
}

// DownloadURL handles GET /api/recordings/:id/download-url.
func (h *Handler) DownloadURL(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	recordingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid recording id")
		return
	}
	d, err := h.svc.DownloadURL(c.Request.Context(), caller, recordingID)
	if err != nil {
		fail(c, h.logger, err, "failed to generate download URL")
		return
	}
	response.OK(c, d)
}

func callerFrom(c *gin.Context) (Caller, bool) {
	id, ok := auth.CurrentUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return Caller{}, false
	}
	return Caller{ID: id, Role: auth.CurrentRole(c)}, true
}

func fail(c *gin.Context, logger *zap.Logger, err error, msg string) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrSessionNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrForbidden):
		response.Forbidden(c, err.Error())
	case errors.Is(err, ErrNotReady), errors.Is(err, ErrUnidentified), errors.Is(err, ErrInvalidFileURL):
		response.BadRequest(c, err.Error())
	case errors.Is(err, ErrStorageDisabled), errors.Is(err, ErrQueueDisabled):
		response.ServiceUnavailable(c, err.Error())
	default:
		logger.Error(msg, zap.Error(err))
		response.Internal(c, msg)
	}
}
