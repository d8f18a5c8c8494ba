package auth

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/inr99/academy/pkg/ratelimit"
	"github.com/inr99/academy/pkg/response"
)

// RegisterRequest is the body for POST /api/auth/register.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name" binding:"required,max=120"`
}

// LoginRequest is the body for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	svc     *Service
	limiter ratelimit.Limiter
	logger  *zap.Logger
}

// NewHandler creates an auth handler. A nil limiter disables login throttling.
func NewHandler(svc *Service, limiter ratelimit.Limiter, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, limiter: limiter, logger: logger}
}

// Register handles POST /api/auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	sess, err := h.svc.Register(c.Request.Context(), req.Email, req.Password, req.Name)
	switch {
	case err == nil:
		response.Created(c, sess)
	case errors.Is(err, ErrEmailTaken), errors.Is(err, ErrPasswordTooShort):
		response.BadRequest(c, err.Error())
	case errors.Is(err, ErrRegistrationClosed):
		response.Forbidden(c, err.Error())
	default:
		h.logger.Error("register failed", zap.Error(err))
		response.Internal(c, "failed to register")
	}
}

// Login handles POST /api/auth/login. Attempts are throttled per client IP.
func (h *Handler) Login(c *gin.Context) {
	ctx := c.Request.Context()
	key := c.ClientIP()
	if h.limiter != nil {
		res, err := h.limiter.Allow(ctx, key)
		if err != nil {
			// fail open when the limiter store is unreachable
			h.logger.Warn("login rate limiter unavailable", zap.Error(err))
		} else if !res.Allowed {
			response.TooManyRequests(c, res.RetryAfter, "too many login attempts, try again later")
			return
		}
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	sess, err := h.svc.Login(ctx, req.Email, req.Password)
	switch {
	case err == nil:
		if h.limiter != nil {
			if err := h.limiter.Reset(ctx, key); err != nil {
				h.logger.Warn("reset login rate limit", zap.Error(err))
			}
		}
		response.OK(c, sess)
	case errors.Is(err, ErrInvalidCredentials):
		response.Unauthorized(c, err.Error())
	case errors.Is(err, ErrAccountDisabled):
		response.Forbidden(c, err.Error())
	default:
		h.logger.Error("login failed", zap.Error(err))
		response.Internal(c, "failed to login")
	}
}

// Me handles GET /api/auth/me.
func (h *Handler) Me(c *gin.Context) {
	userID, ok := CurrentUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}
	user, err := h.svc.Me(c.Request.Context(), userID)
	if errors.Is(err, ErrUserNotFound) {
		response.NotFound(c, "user not found")
		return
	}
	if err != nil {
		h.logger.Error("load current user", zap.Error(err))
		response.Internal(c, "failed to load user")
		return
	}
	response.OK(c, user.ToPublic())
}
