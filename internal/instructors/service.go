package instructors

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/inr99/academy/internal/models"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrInvalidWebsite = errors.New("website must be an http(s) URL")
	ErrInvalidYears   = errors.New("yearsExperience must be between 0 and 80")
)

const maxExpertise = 20

// Profile is the GET/PUT response body.
type Profile struct {
	User    models.UserPublic        `json:"user"`
	Profile models.InstructorProfile `json:"profile"`
}

// Update carries the profile fields a PUT may change; nil leaves the stored value.
type Update struct {
	Headline        *string           `json:"headline" binding:"omitempty,max=160"`
	Bio             *string           `json:"bio" binding:"omitempty,max=5000"`
	Expertise       []string          `json:"expertise"`
	Website         *string           `json:"website"`
	SocialLinks     map[string]string `json:"socialLinks"`
	YearsExperience *int              `json:"yearsExperience"`
}

// Store persists users and their instructor profile.
type Store interface {
	User(ctx context.Context, id uuid.UUID) (*models.User, error)
	// Profile returns nil, nil when the user has no profile yet.
	Profile(ctx context.Context, userID uuid.UUID) (*models.InstructorProfile, error)
	UpsertProfile(ctx context.Context, p *models.InstructorProfile) error
}

// Service reads and updates instructor profiles.
type Service struct {
	store Store
}

// NewService creates the instructor profile service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Get returns the user with their profile, an empty one when none is stored.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	u, err := s.store.User(ctx, userID)
	if err != nil {
		return nil, err
	}
	p, err := s.store.Profile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if p == nil {
		p = &models.InstructorProfile{UserID: userID}
	}
	normalize(p)
	return &Profile{User: u.ToPublic(), Profile: *p}, nil
}

// Update applies u over the stored profile and upserts it.
func (s *Service) Update(ctx context.Context, userID uuid.UUID, u Update) (*Profile, error) {
	if u.Website != nil && strings.TrimSpace(*u.Website) != "" {
		parsed, err := url.Parse(strings.TrimSpace(*u.Website))
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return nil, ErrInvalidWebsite
		}
	}
	if u.YearsExperience != nil && (*u.YearsExperience < 0 || *u.YearsExperience > 80) {
		return nil, ErrInvalidYears
	}

	cur, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	p := cur.Profile
	if u.Headline != nil {
		p.Headline = strings.TrimSpace(*u.Headline)
	}
	if u.Bio != nil {
		p.Bio = strings.TrimSpace(*u.Bio)
	}
	if u.Expertise != nil {
		p.Expertise = cleanExpertise(u.Expertise)
	}
	if u.Website != nil {
		p.Website = strings.TrimSpace(*u.Website)
	}
	if u.SocialLinks != nil {
		p.SocialLinks = u.SocialLinks
	}
	if u.YearsExperience != nil {
		p.YearsExperience = *u.YearsExperience
	}
	if err := s.store.UpsertProfile(ctx, &p); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	cur.Profile = p
	return cur, nil
}

// cleanExpertise trims, drops blanks and case-insensitive duplicates, and caps the list.
func cleanExpertise(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, e := range in {
		e = strings.TrimSpace(e)
		key := strings.ToLower(e)
		if e == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, e)
		if len(out) == maxExpertise {
			break
		}
	}
	return out
}

func normalize(p *models.InstructorProfile) {
	if p.Expertise == nil {
		p.Expertise = []string{}
	}
	if p.SocialLinks == nil {
		p.SocialLinks = map[string]string{}
	}
}
