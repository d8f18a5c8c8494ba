package attendance

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inr99/academy/internal/models"
	"github.com/inr99/academy/pkg/database"
)

// Repository persists attendance with pgx. The same type serves the pool and a transaction.
type Repository struct {
	db   database.DBTX
	pool *pgxpool.Pool
}

// NewRepository creates an attendance repository on the pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool, pool: pool}
}

const (
	sessionInfoColumns = `id, status, host_id, scheduled_at, started_at, duration, max_participants`
	attendanceColumns  = `id, user_id, session_id, status, joined_at, left_at, duration, device_info, ip_address`
)

func scanSessionInfo(row pgx.Row) (*SessionInfo, error) {
	var s SessionInfo
	err := row.Scan(&s.ID, &s.Status, &s.HostID, &s.ScheduledAt, &s.StartedAt, &s.Duration, &s.MaxParticipants)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func scanAttendance(row pgx.Row) (*models.Attendance, error) {
	var a models.Attendance
	err := row.Scan(&a.ID, &a.UserID, &a.SessionID, &a.Status, &a.JoinedAt, &a.LeftAt, &a.Duration, &a.DeviceInfo, &a.IPAddress)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotJoined
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetSession reads the lifecycle fields of a session.
func (r *Repository) GetSession(ctx context.Context, id uuid.UUID) (*SessionInfo, error) {
	return scanSessionInfo(r.db.QueryRow(ctx, `SELECT `+sessionInfoColumns+` FROM live_sessions WHERE id = $1`, id))
}

// LockSession reads the session with SELECT ... FOR UPDATE. Only meaningful inside WithinTx.
func (r *Repository) LockSession(ctx context.Context, id uuid.UUID) (*SessionInfo, error) {
	return scanSessionInfo(r.db.QueryRow(ctx, `SELECT `+sessionInfoColumns+` FROM live_sessions WHERE id = $1 FOR UPDATE`, id))
}

// GetAttendance returns the user's row for the session.
func (r *Repository) GetAttendance(ctx context.Context, sessionID, userID uuid.UUID) (*models.Attendance, error) {
	const q = `SELECT ` + attendanceColumns + ` FROM attendances WHERE session_id = $1 AND user_id = $2`
	return scanAttendance(r.db.QueryRow(ctx, q, sessionID, userID))
}

// CountActive counts PRESENT and LATE rows.
func (r *Repository) CountActive(ctx context.Context, sessionID uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM attendances WHERE session_id = $1 AND status IN ('PRESENT', 'LATE')`,
		sessionID).Scan(&n)
	return n, err
}

// UpsertJoin inserts or resets the (user, session) row for a new join.
func (r *Repository) UpsertJoin(ctx context.Context, a *models.Attendance) (*models.Attendance, error) {
	const q = `INSERT INTO attendances (user_id, session_id, status, joined_at, device_info, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, session_id) DO UPDATE SET
			status = EXCLUDED.status,
			joined_at = EXCLUDED.joined_at,
			left_at = NULL,
			duration = NULL,
			device_info = EXCLUDED.device_info,
			ip_address = EXCLUDED.ip_address
		RETURNING ` + attendanceColumns
	return scanAttendance(r.db.QueryRow(ctx, q, a.UserID, a.SessionID, a.Status, a.JoinedAt, a.DeviceInfo, a.IPAddress))
}

// PromoteToLive flips SCHEDULED to LIVE and stamps started_at. Returns false when the session was not SCHEDULED.
func (r *Repository) PromoteToLive(ctx context.Context, sessionID uuid.UUID, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE live_sessions SET status = 'LIVE', started_at = COALESCE(started_at, $2), updated_at = NOW()
		 WHERE id = $1 AND status = 'SCHEDULED'`,
		sessionID, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// RecordLeave stores the leave outcome.
func (r *Repository) RecordLeave(ctx context.Context, attendanceID uuid.UUID, leftAt time.Time, out LeaveOutcome) (*models.Attendance, error) {
	const q = `UPDATE attendances SET left_at = $2, duration = $3, status = $4
		WHERE id = $1
		RETURNING ` + attendanceColumns
	return scanAttendance(r.db.QueryRow(ctx, q, attendanceID, leftAt, out.Duration, out.Status))
}

// ListBySession returns rows with attendee name and e-mail ordered by join time.
func (r *Repository) ListBySession(ctx context.Context, sessionID uuid.UUID, status *models.AttendanceStatus) ([]models.AttendanceWithUser, error) {
	const q = `SELECT a.id, a.user_id, a.session_id, a.status, a.joined_at, a.left_at, a.duration, a.device_info, a.ip_address,
			u.id, u.email, u.name, u.role
		FROM attendances a
		JOIN users u ON u.id = a.user_id
		WHERE a.session_id = $1 AND ($2::text IS NULL OR a.status = $2)
		ORDER BY a.joined_at ASC`
	var filter *string
	if status != nil {
		s := string(*status)
		filter = &s
	}
	rows, err := r.db.Query(ctx, q, sessionID, filter)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.AttendanceWithUser
	for rows.Next() {
		var a models.AttendanceWithUser
		if err := rows.Scan(&a.ID, &a.UserID, &a.SessionID, &a.Status, &a.JoinedAt, &a.LeftAt, &a.Duration, &a.DeviceInfo, &a.IPAddress,
			&a.User.ID, &a.User.Email, &a.User.Name, &a.User.Role); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// WithinTx runs fn against a transaction-scoped repository.
func (r *Repository) WithinTx(ctx context.Context, fn func(tx TxStore) error) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&Repository{db: tx})
	})
}
