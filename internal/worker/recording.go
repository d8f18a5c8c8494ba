package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inr99/academy/internal/models"
	"github.com/inr99/academy/pkg/queue"
	"github.com/inr99/academy/pkg/storage"
)

// RecordingStore is the persistence the upload job needs.
type RecordingStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.SessionRecording, error)
	Complete(ctx context.Context, id uuid.UUID, s3URL, s3Key string, fileSize int64) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

// Uploader stores a recording object.
type Uploader interface {
	UploadRecording(ctx context.Context, key string, body io.Reader, contentLength int64) (string, error)
}

// RecordingProcessor copies a provider recording to S3.
type RecordingProcessor struct {
	store    RecordingStore
	uploader Uploader
	client   *http.Client
	logger   *zap.Logger
}

// NewRecordingProcessor creates a recording upload processor. A nil client uses http.DefaultClient.
func NewRecordingProcessor(store RecordingStore, uploader Uploader, client *http.Client, logger *zap.Logger) *RecordingProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &RecordingProcessor{store: store, uploader: uploader, client: client, logger: logger}
}

// Process streams the provider file into the recordings bucket and marks the recording completed.
func (p *RecordingProcessor) Process(ctx context.Context, job *queue.Job) error {
	payload, err := recordingPayload(job)
	if err != nil {
		return err
	}
	rec, err := p.store.GetByID(ctx, payload.RecordingID)
	if err != nil {
		return fmt.Errorf("load recording %s: %w", payload.RecordingID, err)
	}
	if rec.Status == models.RecordingStatusCompleted {
		p.logger.Info("recording already completed", zap.String("recording_id", rec.ID.String()))
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, payload.OriginalURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedJob, err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download status: %d", resp.StatusCode)
	}

	key := storage.RecordingKey(rec.SessionID.String(), rec.ID.String())
	counter := &countingReader{r: resp.Body}
	s3URL, err := p.uploader.UploadRecording(ctx, key, counter, resp.ContentLength)
	if err != nil {
		return fmt.Errorf("s3 upload: %w", err)
	}
	if err := p.store.Complete(ctx, rec.ID, s3URL, key, counter.n); err != nil {
		return fmt.Errorf("update recording: %w", err)
	}
	p.logger.Info("recording upload completed",
		zap.String("recording_id", rec.ID.String()),
		zap.String("s3_key", key),
		zap.Int64("bytes", counter.n),
	)
	return nil
}

// Failed marks the recording failed once its job is dead-lettered.
func (p *RecordingProcessor) Failed(ctx context.Context, job *queue.Job) {
	payload, err := recordingPayload(job)
	if err != nil {
		return
	}
	if err := p.store.UpdateStatus(ctx, payload.RecordingID, models.RecordingStatusFailed); err != nil {
		p.logger.Error("mark recording failed", zap.String("recording_id", payload.RecordingID.String()), zap.Error(err))
	}
}

func recordingPayload(job *queue.Job) (*queue.RecordingUploadPayload, error) {
	var payload queue.RecordingUploadPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJob, err)
	}
	if payload.RecordingID == uuid.Nil || payload.OriginalURL == "" {
		return nil, fmt.Errorf("%w: recording_id and original_url are required", ErrMalformedJob)
	}
	return &payload, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(b []byte) (int, error) {
	n, err := c.r.Read(b)
	c.n += int64(n)
	return n, err
}
