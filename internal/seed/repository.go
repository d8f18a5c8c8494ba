package seed

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inr99/academy/internal/models"
	"github.com/inr99/academy/pkg/database"
)

// PgRunner runs manifests against PostgreSQL.
type PgRunner struct {
	pool *pgxpool.Pool
}

// NewPgRunner creates a runner on the pool.
func NewPgRunner(pool *pgxpool.Pool) *PgRunner {
	return &PgRunner{pool: pool}
}

// WithinTx runs fn with a writer bound to a new transaction.
func (r *PgRunner) WithinTx(ctx context.Context, fn func(w Writer) error) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&pgWriter{db: tx})
	})
}

type pgWriter struct {
	db database.DBTX
}

func scanID(row pgx.Row, notFound error) (uuid.UUID, error) {
	var id uuid.UUID
	err := row.Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, notFound
	}
	return id, err
}

func (w *pgWriter) EnsureCategory(ctx context.Context, c CategorySpec) (uuid.UUID, error) {
	const q = `INSERT INTO categories (name, slug, description) VALUES ($1, $2, $3)
		ON CONFLICT (slug) DO UPDATE SET slug = EXCLUDED.slug
		RETURNING id`
	return scanID(w.db.QueryRow(ctx, q, c.Name, c.Slug, c.Description), ErrUnknownCategory)
}

func (w *pgWriter) EnsureSubCategory(ctx context.Context, categoryID uuid.UUID, sc SubCategorySpec) error {
	const q = `INSERT INTO sub_categories (category_id, name, slug) VALUES ($1, $2, $3)
		ON CONFLICT (category_id, slug) DO NOTHING`
	_, err := w.db.Exec(ctx, q, categoryID, sc.Name, sc.Slug)
	return err
}

func (w *pgWriter) CategoryID(ctx context.Context, slug string) (uuid.UUID, error) {
	return scanID(w.db.QueryRow(ctx, `SELECT id FROM categories WHERE slug = $1`, slug), ErrUnknownCategory)
}

func (w *pgWriter) SubCategoryID(ctx context.Context, categoryID uuid.UUID, slug string) (uuid.UUID, error) {
	return scanID(w.db.QueryRow(ctx, `SELECT id FROM sub_categories WHERE category_id = $1 AND slug = $2`, categoryID, slug),
		ErrUnknownSubCategory)
}

func (w *pgWriter) UserIDByEmail(ctx context.Context, email string) (uuid.UUID, error) {
	return scanID(w.db.QueryRow(ctx, `SELECT id FROM users WHERE email = LOWER($1)`, email), ErrUnknownInstructor)
}

func (w *pgWriter) UpsertCourse(ctx context.Context, c *models.Course) error {
	const q = `INSERT INTO courses (id, title, slug, description, category_id, sub_category_id, instructor_id, level, price,
			thumbnail_url, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title, slug = EXCLUDED.slug, description = EXCLUDED.description,
			category_id = EXCLUDED.category_id, sub_category_id = EXCLUDED.sub_category_id,
			instructor_id = EXCLUDED.instructor_id, level = EXCLUDED.level, price = EXCLUDED.price,
			thumbnail_url = EXCLUDED.thumbnail_url, is_active = EXCLUDED.is_active, updated_at = NOW()
		RETURNING created_at`
	return w.db.QueryRow(ctx, q, c.ID, c.Title, c.Slug, c.Description, c.CategoryID, c.SubCategoryID, c.InstructorID,
		c.Level, c.Price, c.ThumbnailURL, c.IsActive).Scan(&c.CreatedAt)
}

func (w *pgWriter) DeleteCurriculum(ctx context.Context, courseID string) error {
	if _, err := w.db.Exec(ctx, `DELETE FROM lessons WHERE course_id = $1`, courseID); err != nil {
		return err
	}
	_, err := w.db.Exec(ctx, `DELETE FROM assessments WHERE course_id = $1`, courseID)
	return err
}

func (w *pgWriter) InsertLesson(ctx context.Context, l *models.Lesson, skipExisting bool) (bool, error) {
	q := `INSERT INTO lessons (course_id, title, content, video_url, duration, "order", is_free)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if skipExisting {
		q += ` ON CONFLICT (course_id, "order") DO NOTHING`
	}
	tag, err := w.db.Exec(ctx, q, l.CourseID, l.Title, l.Content, l.VideoURL, l.Duration, l.Order, l.IsFree)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (w *pgWriter) InsertAssessment(ctx context.Context, a *models.Assessment, skipExisting bool) (bool, error) {
	q := `INSERT INTO assessments (course_id, title, type, "order", passing_score, questions)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if skipExisting {
		q += ` ON CONFLICT (course_id, "order") DO NOTHING`
	}
	tag, err := w.db.Exec(ctx, q, a.CourseID, a.Title, a.Type, a.Order, a.PassingScore, []byte(a.Questions))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
