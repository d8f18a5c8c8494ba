package recordings

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inr99/academy/pkg/response"
)

// RecordingReadyPayload is the body of the provider's recording-ready callback.
type RecordingReadyPayload struct {
	ProviderRecordingID string `json:"provider_recording_id"`
	SessionID           string `json:"session_id"`
	RecordingID         string `json:"recording_id"`
	FileURL             string `json:"file_url" binding:"required"`
	Duration            int    `json:"duration" binding:"gte=0"`
	FileSize            int64  `json:"file_size" binding:"gte=0"`
}

// WebhookHandler receives provider callbacks. Mount it behind middleware.WebhookSecret.
type WebhookHandler struct {
	svc    *Service
	logger *zap.Logger
}

// NewWebhookHandler creates a webhook handler.
func NewWebhookHandler(svc *Service, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{svc: svc, logger: logger}
}

// RecordingReady handles POST /api/webhooks/recording-ready.
func (h *WebhookHandler) RecordingReady(c *gin.Context) {
	var body RecordingReadyPayload
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	in := ReadyInput{
		ProviderRecordingID: body.ProviderRecordingID,
		FileURL:             body.FileURL,
		Duration:            body.Duration,
		FileSize:            body.FileSize,
	}
	if body.RecordingID != "" {
		id, err := uuid.Parse(body.RecordingID)
		if err != nil {
			response.BadRequest(c, "invalid recording_id")
			return
		}
		in.RecordingID = &id
	}
	if body.SessionID != "" {
		id, err := uuid.Parse(body.SessionID)
		if err != nil {
			response.BadRequest(c, "invalid session_id")
			return
		}
		in.SessionID = &id
	}

	rec, err := h.svc.Ready(c.Request.Context(), in)
	if err != nil {
		fail(c, h.logger, err, "failed to process recording")
		return
	}
	response.OK(c, gin.H{"recordingId": rec.ID, "status": rec.Status})
}
