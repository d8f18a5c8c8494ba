package livesessions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inr99/academy/internal/models"
	"github.com/inr99/academy/pkg/database"
	"github.com/inr99/academy/pkg/response"
)

// Repository handles live session persistence. The same type serves the pool and a transaction.
type Repository struct {
	db   database.DBTX
	pool *pgxpool.Pool
}

// NewRepository creates a live session repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool, pool: pool}
}

const sessionColumns = `id, title, description, course_id, host_id, scheduled_at, started_at, ended_at,
	duration, status, max_participants, is_recorded, meeting_url, metadata, created_at, updated_at`

func scanSession(row pgx.Row) (*models.LiveSession, error) {
	var s models.LiveSession
	err := row.Scan(&s.ID, &s.Title, &s.Description, &s.CourseID, &s.HostID, &s.ScheduledAt, &s.StartedAt, &s.EndedAt,
		&s.Duration, &s.Status, &s.MaxParticipants, &s.IsRecorded, &s.MeetingURL, &s.Metadata, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts a session and fills its generated fields.
func (r *Repository) Create(ctx context.Context, s *models.LiveSession) error {
	const q = `INSERT INTO live_sessions (title, description, course_id, host_id, scheduled_at, duration, status,
			max_participants, is_recorded, meeting_url, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, q, s.Title, s.Description, s.CourseID, s.HostID, s.ScheduledAt, s.Duration, s.Status,
		s.MaxParticipants, s.IsRecorded, s.MeetingURL, metadataOrEmpty(s.Metadata)).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if database.IsForeignKeyViolation(err) {
		return ErrCourseNotFound
	}
	return err
}

// GetByID returns a session by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.LiveSession, error) {
	return scanSession(r.db.QueryRow(ctx, `SELECT `+sessionColumns+` FROM live_sessions WHERE id = $1`, id))
}

// List returns one page of sessions matching f and the total match count.
func (r *Repository) List(ctx context.Context, f ListFilter, p response.Page) ([]models.LiveSession, int, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != nil {
		add("status = $%d", *f.Status)
	}
	if f.CourseID != nil {
		add("course_id = $%d", *f.CourseID)
	}
	if f.HostID != nil {
		add("host_id = $%d", *f.HostID)
	}
	order := "scheduled_at DESC"
	if f.Upcoming {
		add("scheduled_at >= $%d", f.Now)
		conds = append(conds, "status = 'SCHEDULED'")
		order = "scheduled_at ASC"
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM live_sessions`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := fmt.Sprintf(`SELECT %s FROM live_sessions%s ORDER BY %s LIMIT $%d OFFSET $%d`,
		sessionColumns, where, order, len(args)+1, len(args)+2)
	rows, err := r.db.Query(ctx, q, append(args, p.Limit, p.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	list := []models.LiveSession{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *s)
	}
	return list, total, rows.Err()
}

// LockByID reads a session with SELECT ... FOR UPDATE. Only meaningful inside WithinTx.
func (r *Repository) LockByID(ctx context.Context, id uuid.UUID) (*models.LiveSession, error) {
	return scanSession(r.db.QueryRow(ctx, `SELECT `+sessionColumns+` FROM live_sessions WHERE id = $1 FOR UPDATE`, id))
}

// WithinTx runs fn against a transaction-scoped repository.
func (r *Repository) WithinTx(ctx context.Context, fn func(tx TxStore) error) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&Repository{db: tx})
	})
}

// Update writes every mutable column of s. Callers hold the row lock from LockByID.
func (r *Repository) Update(ctx context.Context, s *models.LiveSession) error {
	const q = `UPDATE live_sessions SET title = $2, description = $3, scheduled_at = $4, started_at = $5, ended_at = $6,
			duration = $7, status = $8, max_participants = $9, is_recorded = $10, meeting_url = $11, metadata = $12,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`
	err := r.db.QueryRow(ctx, q, s.ID, s.Title, s.Description, s.ScheduledAt, s.StartedAt, s.EndedAt,
		s.Duration, s.Status, s.MaxParticipants, s.IsRecorded, s.MeetingURL, metadataOrEmpty(s.Metadata)).
		Scan(&s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// Delete removes a session. Attendance and recordings go with it through ON DELETE CASCADE.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM live_sessions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CourseSummary returns the id, title and slug of a course.
func (r *Repository) CourseSummary(ctx context.Context, courseID string) (*models.CourseSummary, error) {
	var c models.CourseSummary
	err := r.db.QueryRow(ctx, `SELECT id, title, slug FROM courses WHERE id = $1`, courseID).Scan(&c.ID, &c.Title, &c.Slug)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCourseNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Host returns the public view of a user.
func (r *Repository) Host(ctx context.Context, userID uuid.UUID) (*models.UserPublic, error) {
	var u models.UserPublic
	err := r.db.QueryRow(ctx, `SELECT id, email, name, role FROM users WHERE id = $1`, userID).
		Scan(&u.ID, &u.Email, &u.Name, &u.Role)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrHostNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func metadataOrEmpty(m []byte) []byte {
	if len(m) == 0 {
		return []byte("{}")
	}
	return m
}

// ListFilter narrows List. Now is the reference time for Upcoming.
type ListFilter struct {
	Status   *models.SessionStatus
	CourseID *string
	HostID   *uuid.UUID
	Upcoming bool
	Now      time.Time
}
