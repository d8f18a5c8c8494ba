package recordings

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inr99/academy/internal/models"
	"github.com/inr99/academy/pkg/queue"
)

var (
	ErrNotFound        = errors.New("recording not found")
	ErrSessionNotFound = errors.New("live session not found")
	ErrForbidden       = errors.New("not authorized to access this session's recordings")
	ErrNotReady        = errors.New("recording not ready for download")
	ErrStorageDisabled = errors.New("recording storage is not configured")
	ErrUnidentified    = errors.New("provide recording_id, or session_id with provider_recording_id")
	ErrInvalidFileURL  = errors.New("file_url must be an http(s) URL")
	ErrQueueDisabled   = errors.New("job queue is not configured")
)

// SessionAccess describes a caller's relation to a live session.
type SessionAccess struct {
	HostID   uuid.UUID
	Attended bool
}

// Store persists recordings.
type Store interface {
	Create(ctx context.Context, rec *models.SessionRecording) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.SessionRecording, error)
	GetByProviderID(ctx context.Context, providerID string) (*models.SessionRecording, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.SessionRecording, error)
	MarkProcessing(ctx context.Context, id uuid.UUID, originalURL string, duration int, fileSize int64) error
	Access(ctx context.Context, sessionID, userID uuid.UUID) (*SessionAccess, error)
}

// UploadEnqueuer queues the copy to object storage.
type UploadEnqueuer interface {
	EnqueueRecordingUpload(ctx context.Context, payload queue.RecordingUploadPayload) error
}

// Presigner signs download URLs.
type Presigner interface {
	RecordingDownloadURL(ctx context.Context, key string) (string, error)
	PresignExpire() time.Duration
}

// Caller identifies the authenticated user.
type Caller struct {
	ID   uuid.UUID
	Role models.Role
}

// ReadyInput is a provider's recording-ready notification.
type ReadyInput struct {
	ProviderRecordingID string
	RecordingID         *uuid.UUID
	SessionID           *uuid.UUID
	FileURL             string
	Duration            int
	FileSize            int64
}

// Download is a signed, time-limited URL.
type Download struct {
	URL       string `json:"downloadUrl"`
	ExpiresIn int    `json:"expiresIn"` // seconds
}

// Service implements recording intake and access.
type Service struct {
	store   Store
	uploads UploadEnqueuer
	signer  Presigner
	logger  *zap.Logger
}

// NewService creates the recordings service. A nil uploads rejects webhooks and a nil
// signer disables download URLs.
func NewService(store Store, uploads UploadEnqueuer, signer Presigner, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, uploads: uploads, signer: signer, logger: logger}
}

// Ready records the provider file and queues its upload. A recording already
// completed is returned unchanged and nothing is queued.
func (s *Service) Ready(ctx context.Context, in ReadyInput) (*models.SessionRecording, error) {
	u, err := url.Parse(in.FileURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidFileURL
	}
	if s.uploads == nil {
		return nil, ErrQueueDisabled
	}

	rec, err := s.find(ctx, in)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		if in.SessionID == nil {
			return nil, ErrUnidentified
		}
		rec = &models.SessionRecording{
			SessionID:           *in.SessionID,
			ProviderRecordingID: in.ProviderRecordingID,
			OriginalURL:         in.FileURL,
			Duration:            in.Duration,
			FileSize:            in.FileSize,
			Status:              models.RecordingStatusProcessing,
		}
		if err := s.store.Create(ctx, rec); err != nil {
			return nil, fmt.Errorf("create recording: %w", err)
		}
	} else {
		if rec.Status == models.RecordingStatusCompleted {
			return rec, nil
		}
		if err := s.store.MarkProcessing(ctx, rec.ID, in.FileURL, in.Duration, in.FileSize); err != nil {
			return nil, fmt.Errorf("mark processing: %w", err)
		}
		rec.OriginalURL = in.FileURL
		rec.Status = models.RecordingStatusProcessing
	}

	err = s.uploads.EnqueueRecordingUpload(ctx, queue.RecordingUploadPayload{
		RecordingID: rec.ID,
		SessionID:   rec.SessionID,
		OriginalURL: in.FileURL,
	})
	if err != nil {
		return nil, fmt.Errorf("enqueue upload: %w", err)
	}
	s.logger.Info("recording queued for upload", zap.String("recording_id", rec.ID.String()), zap.String("session_id", rec.SessionID.String()))
	return rec, nil
}

func (s *Service) find(ctx context.Context, in ReadyInput) (*models.SessionRecording, error) {
	if in.RecordingID != nil {
		return s.store.GetByID(ctx, *in.RecordingID)
	}
	if in.ProviderRecordingID == "" {
		return nil, nil
	}
	rec, err := s.store.GetByProviderID(ctx, in.ProviderRecordingID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return rec, err
}

// List returns a session's recordings to its host, an ADMIN, or an attendee.
func (s *Service) List(ctx context.Context, caller Caller, sessionID uuid.UUID) ([]models.SessionRecording, error) {
	if err := s.authorize(ctx, caller, sessionID); err != nil {
		return nil, err
	}
	return s.store.ListBySession(ctx, sessionID)
}

// DownloadURL signs a GET URL for a completed recording.
func (s *Service) DownloadURL(ctx context.Context, caller Caller, recordingID uuid.UUID) (*Download, error) {
	rec, err := s.store.GetByID(ctx, recordingID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, caller, rec.SessionID); err != nil {
		return nil, err
	}
	if rec.Status != models.RecordingStatusCompleted || rec.S3Key == "" {
		return nil, ErrNotReady
	}
	if s.signer == nil {
		return nil, ErrStorageDisabled
	}
	link, err := s.signer.RecordingDownloadURL(ctx, rec.S3Key)
	if err != nil {
		return nil, fmt.Errorf("presign: %w", err)
	}
	return &Download{URL: link, ExpiresIn: int(s.signer.PresignExpire().Seconds())}, nil
}

func (s *Service) authorize(ctx context.Context, caller Caller, sessionID uuid.UUID) error {
	access, err := s.store.Access(ctx, sessionID, caller.ID)
	if err != nil {
		return err
	}
	if caller.Role == models.RoleAdmin || access.HostID == caller.ID || access.Attended {
		return nil
	}
	return ErrForbidden
}
