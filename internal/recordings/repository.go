package recordings

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inr99/academy/internal/models"
	"github.com/inr99/academy/pkg/database"
)

// Repository handles session_recordings persistence.
type Repository struct {
	db database.DBTX
}

// NewRepository creates a recordings repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

const recordingColumns = `id, session_id, provider_recording_id, original_url, s3_url, s3_key,
	duration, file_size, status, created_at, updated_at`

func scanRecording(row pgx.Row) (*models.SessionRecording, error) {
	var rec models.SessionRecording
	err := row.Scan(&rec.ID, &rec.SessionID, &rec.ProviderRecordingID, &rec.OriginalURL, &rec.S3URL, &rec.S3Key,
		&rec.Duration, &rec.FileSize, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Create inserts rec and fills its id and timestamps. An unknown session yields ErrSessionNotFound.
func (r *Repository) Create(ctx context.Context, rec *models.SessionRecording) error {
	const q = `INSERT INTO session_recordings (session_id, provider_recording_id, original_url, duration, file_size, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, q, rec.SessionID, rec.ProviderRecordingID, rec.OriginalURL, rec.Duration, rec.FileSize, rec.Status).
		Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if database.IsForeignKeyViolation(err) {
		return ErrSessionNotFound
	}
	return err
}

// GetByID returns a recording by id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.SessionRecording, error) {
	return scanRecording(r.db.QueryRow(ctx, `SELECT `+recordingColumns+` FROM session_recordings WHERE id = $1`, id))
}

// GetByProviderID returns the recording the provider knows as providerID.
func (r *Repository) GetByProviderID(ctx context.Context, providerID string) (*models.SessionRecording, error) {
	const q = `SELECT ` + recordingColumns + ` FROM session_recordings
		WHERE provider_recording_id = $1 ORDER BY created_at DESC LIMIT 1`
	return scanRecording(r.db.QueryRow(ctx, q, providerID))
}

// ListBySession returns a session's recordings, newest first.
func (r *Repository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.SessionRecording, error) {
	const q = `SELECT ` + recordingColumns + ` FROM session_recordings WHERE session_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.SessionRecording{}
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *rec)
	}
	return list, rows.Err()
}

// MarkProcessing stores the provider file and moves the recording to processing.
func (r *Repository) MarkProcessing(ctx context.Context, id uuid.UUID, originalURL string, duration int, fileSize int64) error {
	const q = `UPDATE session_recordings
		SET original_url = $1,
			duration = CASE WHEN $2::int > 0 THEN $2::int ELSE duration END,
			file_size = CASE WHEN $3::bigint > 0 THEN $3::bigint ELSE file_size END,
			status = $4, updated_at = NOW()
		WHERE id = $5`
	tag, err := r.db.Exec(ctx, q, originalURL, duration, fileSize, models.RecordingStatusProcessing, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Complete stores the S3 location and marks the recording completed.
func (r *Repository) Complete(ctx context.Context, id uuid.UUID, s3URL, s3Key string, fileSize int64) error {
	const q = `UPDATE session_recordings
		SET s3_url = $1, s3_key = $2,
			file_size = CASE WHEN $3::bigint > 0 THEN $3::bigint ELSE file_size END,
			status = $4, updated_at = NOW()
		WHERE id = $5`
	_, err := r.db.Exec(ctx, q, s3URL, s3Key, fileSize, models.RecordingStatusCompleted, id)
	return err
}

// UpdateStatus sets the recording status.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.db.Exec(ctx, `UPDATE session_recordings SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	return err
}

// Access reports whether the session exists, who hosts it, and whether userID attended it.
func (r *Repository) Access(ctx context.Context, sessionID, userID uuid.UUID) (*SessionAccess, error) {
	const q = `SELECT s.host_id,
			EXISTS (SELECT 1 FROM attendances a WHERE a.session_id = s.id AND a.user_id = $2)
		FROM live_sessions s WHERE s.id = $1`
	var a SessionAccess
	err := r.db.QueryRow(ctx, q, sessionID, userID).Scan(&a.HostID, &a.Attended)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
