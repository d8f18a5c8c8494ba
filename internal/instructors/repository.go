package instructors

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inr99/academy/internal/models"
	"github.com/inr99/academy/pkg/database"
)

// Repository reads users and upserts instructor_profiles.
type Repository struct {
	db database.DBTX
}

// NewRepository creates an instructor repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// User returns the user row.
func (r *Repository) User(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	err := r.db.QueryRow(ctx, `SELECT id, email, name, role, is_active, created_at, updated_at FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Profile returns the stored profile or nil.
func (r *Repository) Profile(ctx context.Context, userID uuid.UUID) (*models.InstructorProfile, error) {
	var p models.InstructorProfile
	const q = `SELECT user_id, headline, bio, expertise, website, social_links, years_experience, updated_at
		FROM instructor_profiles WHERE user_id = $1`
	err := r.db.QueryRow(ctx, q, userID).
		Scan(&p.UserID, &p.Headline, &p.Bio, &p.Expertise, &p.Website, &p.SocialLinks, &p.YearsExperience, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpsertProfile inserts or replaces the profile and stamps UpdatedAt.
func (r *Repository) UpsertProfile(ctx context.Context, p *models.InstructorProfile) error {
	const q = `INSERT INTO instructor_profiles (user_id, headline, bio, expertise, website, social_links, years_experience, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			headline = EXCLUDED.headline,
			bio = EXCLUDED.bio,
			expertise = EXCLUDED.expertise,
			website = EXCLUDED.website,
			social_links = EXCLUDED.social_links,
			years_experience = EXCLUDED.years_experience,
			updated_at = NOW()
		RETURNING updated_at`
	return r.db.QueryRow(ctx, q, p.UserID, p.Headline, p.Bio, p.Expertise, p.Website, p.SocialLinks, p.YearsExperience).
		Scan(&p.UpdatedAt)
}
