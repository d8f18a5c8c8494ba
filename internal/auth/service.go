package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inr99/academy/internal/models"
	"github.com/inr99/academy/pkg/queue"
	"github.com/inr99/academy/pkg/utils"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrRegistrationClosed = errors.New("registrations are currently closed")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrPasswordTooShort   = fmt.Errorf("password must be at least %d characters", utils.MinPasswordLength)
)

// UserStore is the persistence the auth service needs.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, email, passwordHash, name string, role models.Role) (*models.User, error)
}

// RegistrationPolicy reports whether self sign-up is open.
type RegistrationPolicy interface {
	RegistrationsOpen(ctx context.Context) (bool, error)
}

// EmailEnqueuer queues outbound e-mail.
type EmailEnqueuer interface {
	EnqueueEmail(ctx context.Context, payload queue.EmailPayload) error
}

// Session is a freshly issued token and its owner.
type Session struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expiresAt"`
	User      models.UserPublic `json:"user"`
}

// Service registers and authenticates users.
type Service struct {
	users  UserStore
	policy RegistrationPolicy
	emails EmailEnqueuer
	jwt    *JWTService
	logger *zap.Logger
}

// NewService wires the auth service. policy and emails may be nil.
func NewService(users UserStore, policy RegistrationPolicy, emails EmailEnqueuer, jwt *JWTService, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{users: users, policy: policy, emails: emails, jwt: jwt, logger: logger}
}

// Register creates a STUDENT account and signs the user in.
func (s *Service) Register(ctx context.Context, email, password, name string) (*Session, error) {
	if s.policy != nil {
		open, err := s.policy.RegistrationsOpen(ctx)
		if err != nil {
			return nil, fmt.Errorf("read settings: %w", err)
		}
		if !open {
			return nil, ErrRegistrationClosed
		}
	}
	if len(password) < utils.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user, err := s.users.Create(ctx, strings.TrimSpace(email), hash, strings.TrimSpace(name), models.RoleStudent)
	if err != nil {
		return nil, err
	}

	if s.emails != nil {
		err := s.emails.EnqueueEmail(ctx, queue.EmailPayload{
			Template:       queue.EmailWelcome,
			RecipientEmail: user.Email,
			RecipientName:  user.Name,
		})
		if err != nil {
			s.logger.Warn("welcome email not queued", zap.String("user_id", user.ID.String()), zap.Error(err))
		}
	}
	return s.issue(user)
}

// Login verifies credentials and returns a new token.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !utils.CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}
	return s.issue(user)
}

// Me returns the current user.
func (s *Service) Me(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *Service) issue(user *models.User) (*Session, error) {
	token, expires, err := s.jwt.Generate(user)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Session{Token: token, ExpiresAt: expires, User: user.ToPublic()}, nil
}
