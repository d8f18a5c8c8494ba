package models

import (
	"time"

	"github.com/google/uuid"
)

// Recording lifecycle: recording -> processing -> completed | failed.
const (
	RecordingStatusRecording  = "recording"
	RecordingStatusProcessing = "processing"
	RecordingStatusCompleted  = "completed"
	RecordingStatusFailed     = "failed"
)

// SessionRecording is a live session recording copied from the provider to S3.
type SessionRecording struct {
	ID                  uuid.UUID `json:"id"`
	SessionID           uuid.UUID `json:"sessionId"`
	ProviderRecordingID string    `json:"providerRecordingId,omitempty"`
	OriginalURL         string    `json:"originalUrl,omitempty"`
	S3URL               string    `json:"s3Url,omitempty"`
	S3Key               string    `json:"s3Key,omitempty"`
	Duration            int       `json:"duration"`
	FileSize            int64     `json:"fileSize"`
	Status              string    `json:"status"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}
