package analytics

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inr99/academy/internal/models"
	"github.com/inr99/academy/pkg/database"
)

// Repository computes the aggregates in PostgreSQL.
type Repository struct {
	db database.DBTX
}

// NewRepository creates an analytics repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// Totals counts platform-wide rows.
func (r *Repository) Totals(ctx context.Context) (*Totals, error) {
	t := Totals{UsersByRole: map[models.Role]int{}, SessionsByStatus: map[models.SessionStatus]int{}}
	const q = `SELECT
			(SELECT COUNT(*) FROM courses),
			(SELECT COUNT(*) FROM courses WHERE is_active),
			(SELECT COUNT(*) FROM attendances),
			(SELECT COUNT(*) FROM subscriptions WHERE status = 'ACTIVE' AND expires_at > NOW()),
			(SELECT COUNT(*) FROM certificates)`
	if err := r.db.QueryRow(ctx, q).Scan(&t.Courses, &t.ActiveCourses, &t.Attendances, &t.ActiveSubscriptions, &t.Certificates); err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var role models.Role
		var n int
		if err := rows.Scan(&role, &n); err != nil {
			rows.Close()
			return nil, err
		}
		t.UsersByRole[role] = n
		t.Users += n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.db.Query(ctx, `SELECT status, COUNT(*) FROM live_sessions GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var st models.SessionStatus
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, err
		}
		t.SessionsByStatus[st] = n
		t.LiveSessions += n
	}
	return &t, rows.Err()
}

// Window counts activity since the given time.
func (r *Repository) Window(ctx context.Context, since time.Time) (*Window, error) {
	var w Window
	const q = `SELECT
			(SELECT COUNT(*) FROM users WHERE created_at >= $1),
			(SELECT COUNT(*) FROM live_sessions WHERE status = 'COMPLETED' AND COALESCE(ended_at, scheduled_at) >= $1),
			(SELECT COUNT(*) FROM certificates WHERE issued_at >= $1)`
	err := r.db.QueryRow(ctx, q, since).Scan(&w.NewUsers, &w.SessionsHeld, &w.CertificatesIssued)
	return &w, err
}

// AverageAttendanceDuration is the mean of all computed attendance durations, 0 when none.
func (r *Repository) AverageAttendanceDuration(ctx context.Context) (float64, error) {
	var avg float64
	err := r.db.QueryRow(ctx, `SELECT COALESCE(AVG(duration), 0)::float8 FROM attendances WHERE duration IS NOT NULL`).Scan(&avg)
	return avg, err
}

// SignupsByDay groups new users by UTC calendar day.
func (r *Repository) SignupsByDay(ctx context.Context, since time.Time) (map[string]int, error) {
	const q = `SELECT to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, COUNT(*)
		FROM users WHERE created_at >= $1
		GROUP BY day`
	rows, err := r.db.Query(ctx, q, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var day string
		var n int
		if err := rows.Scan(&day, &n); err != nil {
			return nil, err
		}
		out[day] = n
	}
	return out, rows.Err()
}
