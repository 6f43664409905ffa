package models

import (
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleCOS        Role = "cos"
	RolePM         Role = "pm"
	RoleViewer     Role = "viewer"
	RoleHeadOfNIAT Role = "head_of_niat"
)

const DefaultRole = RoleViewer

func (role Role) Valid() bool {
	switch role {
	case RoleAdmin, RoleCOS, RolePM, RoleViewer, RoleHeadOfNIAT:
		return true
	default:
		return false
	}
}

// ParseRole normalizes raw input and falls back to DefaultRole for unknown values.
func ParseRole(raw string) Role {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	if !role.Valid() {
		return DefaultRole
	}
	return role
}

// PasswordReset is the pending reset grant. Token digest and expiry only exist together.
type PasswordReset struct {
	TokenDigest string
	ExpiresAt   time.Time
}

// ValidAt reports whether the grant can still be consumed at now.
func (reset PasswordReset) ValidAt(now time.Time) bool {
	return now.Before(reset.ExpiresAt)
}

type User struct {
	ID                     uint
	Username               string
	PasswordHash           string
	Role                   Role
	CenterID               *string
	Email                  string
	EmailVerified          bool
	EmailVerificationToken *string
	PasswordReset          *PasswordReset
	LastLoginAt            *time.Time
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// MarkEmailVerified flips the verified flag and drops the pending token.
func (user *User) MarkEmailVerified() {
	user.EmailVerified = true
	user.EmailVerificationToken = nil
}

func (user *User) SetVerificationToken(digest string) {
	user.EmailVerificationToken = &digest
}

func (user *User) SetPasswordReset(digest string, expiresAt time.Time) {
	user.PasswordReset = &PasswordReset{TokenDigest: digest, ExpiresAt: expiresAt}
}

func (user *User) ClearPasswordReset() {
	user.PasswordReset = nil
}

func (user User) Clone() User {
	clone := user
	clone.CenterID = cloneString(user.CenterID)
	clone.EmailVerificationToken = cloneString(user.EmailVerificationToken)
	clone.LastLoginAt = cloneTime(user.LastLoginAt)
	if user.PasswordReset != nil {
		reset := *user.PasswordReset
		clone.PasswordReset = &reset
	}
	return clone
}

// PublicUser is the projection handed out of the identity layer: no hash, no tokens.
type PublicUser struct {
	ID            uint       `json:"id"`
	Username      string     `json:"username"`
	Email         string     `json:"email"`
	Role          Role       `json:"role"`
	CenterID      *string    `json:"center_id,omitempty"`
	EmailVerified bool       `json:"email_verified"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func (user User) Public() PublicUser {
	return PublicUser{
		ID:            user.ID,
		Username:      user.Username,
		Email:         user.Email,
		Role:          user.Role,
		CenterID:      cloneString(user.CenterID),
		EmailVerified: user.EmailVerified,
		LastLoginAt:   cloneTime(user.LastLoginAt),
		CreatedAt:     user.CreatedAt,
	}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	copied := make([]string, len(values))
	copy(copied, values)
	return copied
}
