package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inr99/academy/internal/models"
	"github.com/inr99/academy/pkg/database"
)

var (
	ErrInvalidEmail = errors.New("supportEmail must be a valid email address")
	ErrInvalidPrice = errors.New("subscriptionPrice must be >= 0")
)

// Update carries the fields a PUT may change; nil leaves the stored value.
type Update struct {
	SiteName           *string         `json:"siteName"`
	SupportEmail       *string         `json:"supportEmail"`
	MaintenanceMode    *bool           `json:"maintenanceMode"`
	AllowRegistrations *bool           `json:"allowRegistrations"`
	DefaultCurrency    *string         `json:"defaultCurrency"`
	SubscriptionPrice  *int            `json:"subscriptionPrice"`
	Metadata           json.RawMessage `json:"metadata"`
}

// Store persists the singleton row.
type Store interface {
	Get(ctx context.Context) (*models.PlatformSettings, error)
	Save(ctx context.Context, s *models.PlatformSettings) error
}

// Service reads and writes platform settings.
type Service struct {
	store Store
}

// NewService creates the settings service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Get returns the current settings.
func (s *Service) Get(ctx context.Context) (*models.PlatformSettings, error) {
	return s.store.Get(ctx)
}

// Update validates u, merges it over the stored settings and saves the result.
func (s *Service) Update(ctx context.Context, u Update) (*models.PlatformSettings, error) {
	if u.SupportEmail != nil {
		addr, err := mail.ParseAddress(strings.TrimSpace(*u.SupportEmail))
		if err != nil || addr.Name != "" {
			return nil, ErrInvalidEmail
		}
		u.SupportEmail = &addr.Address
	}
	if u.SubscriptionPrice != nil && *u.SubscriptionPrice < 0 {
		return nil, ErrInvalidPrice
	}

	cur, err := s.store.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if u.SiteName != nil {
		cur.SiteName = strings.TrimSpace(*u.SiteName)
	}
	if u.SupportEmail != nil {
		cur.SupportEmail = *u.SupportEmail
	}
	if u.MaintenanceMode != nil {
		cur.MaintenanceMode = *u.MaintenanceMode
	}
	if u.AllowRegistrations != nil {
		cur.AllowRegistrations = *u.AllowRegistrations
	}
	if u.DefaultCurrency != nil {
		cur.DefaultCurrency = strings.ToUpper(strings.TrimSpace(*u.DefaultCurrency))
	}
	if u.SubscriptionPrice != nil {
		cur.SubscriptionPrice = *u.SubscriptionPrice
	}
	if len(u.Metadata) > 0 {
		cur.Metadata = u.Metadata
	}
	if err := s.store.Save(ctx, cur); err != nil {
		return nil, fmt.Errorf("save settings: %w", err)
	}
	return cur, nil
}

// RegistrationsOpen reports whether self sign-up is allowed.
func (s *Service) RegistrationsOpen(ctx context.Context) (bool, error) {
	cur, err := s.store.Get(ctx)
	if err != nil {
		return false, err
	}
	return cur.AllowRegistrations, nil
}

// Repository is the PostgreSQL Store.
type Repository struct {
	db database.DBTX
}

// NewRepository creates a settings repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

const settingsColumns = `site_name, support_email, maintenance_mode, allow_registrations,
	default_currency, subscription_price, metadata, updated_at`

// Get reads row 1, inserting the defaults if it is missing.
func (r *Repository) Get(ctx context.Context) (*models.PlatformSettings, error) {
	const q = `INSERT INTO platform_settings (id) VALUES (1)
		ON CONFLICT (id) DO UPDATE SET id = platform_settings.id
		RETURNING ` + settingsColumns
	var s models.PlatformSettings
	err := r.db.QueryRow(ctx, q).Scan(&s.SiteName, &s.SupportEmail, &s.MaintenanceMode, &s.AllowRegistrations,
		&s.DefaultCurrency, &s.SubscriptionPrice, &s.Metadata, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Save upserts row 1.
func (r *Repository) Save(ctx context.Context, s *models.PlatformSettings) error {
	metadata := s.Metadata
	if len(metadata) == 0 {
		metadata = json.RawMessage(`{}`)
	}
	const q = `INSERT INTO platform_settings (id, site_name, support_email, maintenance_mode, allow_registrations,
			default_currency, subscription_price, metadata, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (id) DO UPDATE SET
			site_name = EXCLUDED.site_name,
			support_email = EXCLUDED.support_email,
			maintenance_mode = EXCLUDED.maintenance_mode,
			allow_registrations = EXCLUDED.allow_registrations,
			default_currency = EXCLUDED.default_currency,
			subscription_price = EXCLUDED.subscription_price,
			metadata = EXCLUDED.metadata,
			updated_at = NOW()
		RETURNING updated_at`
	return r.db.QueryRow(ctx, q, s.SiteName, s.SupportEmail, s.MaintenanceMode, s.AllowRegistrations,
		s.DefaultCurrency, s.SubscriptionPrice, metadata).Scan(&s.UpdatedAt)
}
