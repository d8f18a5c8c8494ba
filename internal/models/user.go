package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents user role in the platform.
type Role string

const (
	RoleStudent    Role = "STUDENT"
	RoleInstructor Role = "INSTRUCTOR"
	RoleAdmin      Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleInstructor, RoleAdmin:
		return true
	}
	return false
}

// CanHost reports whether the role may create live sessions.
func (r Role) CanHost() bool { return r == RoleInstructor || r == RoleAdmin }

// User represents a platform user.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
	Role  Role      `json:"role"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
		Role:  u.Role,
	}
}

// InstructorProfile is the public profile an instructor maintains.
type InstructorProfile struct {
	UserID          uuid.UUID         `json:"userId"`
	Headline        string            `json:"headline"`
	Bio             string            `json:"bio"`
	Expertise       []string          `json:"expertise"`
	Website         string            `json:"website"`
	SocialLinks     map[string]string `json:"socialLinks"`
	YearsExperience int               `json:"yearsExperience"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}
