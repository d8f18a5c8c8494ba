package livesessions

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inr99/academy/internal/auth"
	"github.com/inr99/academy/internal/middleware"
	"github.com/inr99/academy/pkg/response"
)

// CreateRequest is the body for POST /api/live-sessions.
type CreateRequest struct {
	Title           string          `json:"title" binding:"required,max=200"`
	Description     string          `json:"description"`
	CourseID        *string         `json:"courseId"`
	ScheduledAt     time.Time       `json:"scheduledAt" binding:"required"`
	Duration        int             `json:"duration" binding:"omitempty,gt=0"`
	MaxParticipants *int            `json:"maxParticipants" binding:"omitempty,gt=0"`
	IsRecorded      bool            `json:"isRecorded"`
	Metadata        json.RawMessage `json:"metadata"`
	MeetingURL      string          `json:"meetingUrl" binding:"omitempty,url"`
}

// UpdateRequest is the body for PUT /api/live-sessions/:id.
type UpdateRequest struct {
	Title           *string         `json:"title" binding:"omitempty,max=200"`
	Description     *string         `json:"description"`
	ScheduledAt     *time.Time      `json:"scheduledAt"`
	Duration        *int            `json:"duration"`
	Status          *string         `json:"status"`
	MaxParticipants NullableInt     `json:"maxParticipants"`
	IsRecorded      *bool           `json:"isRecorded"`
	Metadata        json.RawMessage `json:"metadata"`
	MeetingURL      *string         `json:"meetingUrl" binding:"omitempty,url"`
}

// NullableInt tells an absent field apart from an explicit null.
type NullableInt struct {
	Set   bool
	Value *int
}

// UnmarshalJSON runs only when the key is present, null included.
func (n *NullableInt) UnmarshalJSON(b []byte) error {
	n.Set = true
	if string(b) == "null" {
		n.Value = nil
		return nil
	}
	var v int
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

// Handler serves live session CRUD.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a live session handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the routes on a JWT-protected /api/live-sessions group.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.GET("", h.List)
	g.POST("", middleware.RequireHost(), h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

func caller(c *gin.Context) (Caller, bool) {
	id, ok := auth.CurrentUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return Caller{}, false
	}
	return Caller{ID: id, Role: auth.CurrentRole(c)}, true
}

func sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return uuid.Nil, false
	}
	return id, true
}

// Create handles POST /api/live-sessions.
func (h *Handler) Create(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	s, err := h.svc.Create(c.Request.Context(), who, CreateInput{
		Title:           req.Title,
		Description:     req.Description,
		CourseID:        req.CourseID,
		ScheduledAt:     req.ScheduledAt,
		Duration:        req.Duration,
		MaxParticipants: req.MaxParticipants,
		IsRecorded:      req.IsRecorded,
		Metadata:        req.Metadata,
		MeetingURL:      req.MeetingURL,
	})
	if err != nil {
		h.fail(c, err, "failed to create session")
		return
	}
	response.Created(c, s)
}

// List handles GET /api/live-sessions?status=&courseId=&hostId=&upcoming=1&page=&limit=.
func (h *Handler) List(c *gin.Context) {
	q := ListQuery{
		Status:   c.Query("status"),
		CourseID: c.Query("courseId"),
		Upcoming: c.Query("upcoming") == "1" || c.Query("upcoming") == "true",
		Page:     response.ParsePage(c),
	}
	if v := c.Query("hostId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			response.BadRequest(c, "invalid hostId")
			return
		}
		q.HostID = &id
	}
	page, err := h.svc.List(c.Request.Context(), q)
	if err != nil {
		h.fail(c, err, "failed to list sessions")
		return
	}
	response.OK(c, page)
}

// Get handles GET /api/live-sessions/:id.
func (h *Handler) Get(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	id, ok := sessionID(c)
	if !ok {
		return
	}
	d, err := h.svc.Get(c.Request.Context(), id, who.ID)
	if err != nil {
		h.fail(c, err, "failed to load session")
		return
	}
	response.OK(c, d)
}

// Update handles PUT /api/live-sessions/:id (host or admin).
func (h *Handler) Update(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	id, ok := sessionID(c)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	s, err := h.svc.Update(c.Request.Context(), id, who, UpdateInput{
		Title:                req.Title,
		Description:          req.Description,
		ScheduledAt:          req.ScheduledAt,
		Duration:             req.Duration,
		Status:               req.Status,
		MaxParticipants:      req.MaxParticipants.Value,
		ClearMaxParticipants: req.MaxParticipants.Set && req.MaxParticipants.Value == nil,
		IsRecorded:           req.IsRecorded,
		Metadata:             req.Metadata,
		MeetingURL:           req.MeetingURL,
	})
	if err != nil {
		h.fail(c, err, "failed to update session")
		return
	}
	response.OK(c, s)
}

// Delete handles DELETE /api/live-sessions/:id (host or admin).
func (h *Handler) Delete(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	id, ok := sessionID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id, who); err != nil {
		h.fail(c, err, "failed to delete session")
		return
	}
	response.NoContent(c)
}

func (h *Handler) fail(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrForbidden):
		response.Forbidden(c, err.Error())
	case errors.Is(err, ErrSessionClosed),
		errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrCourseNotFound),
		errors.Is(err, ErrInvalidInput):
		response.BadRequest(c, err.Error())
	default:
		h.logger.Error(msg, zap.String("session_id", c.Param("id")), zap.Error(err))
		response.Internal(c, msg)
	}
}
