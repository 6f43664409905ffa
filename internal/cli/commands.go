// Package cli holds the operator commands that run against the database directly:
// password reset, manual email verification and role assignment.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/terraincognita07/actiontracker/internal/models"
	"github.com/terraincognita07/actiontracker/internal/services"
	"github.com/terraincognita07/actiontracker/internal/store"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrPasswordMismatch  = errors.New("passwords do not match")
	ErrEmptyPassword     = errors.New("password must not be empty")
	ErrInvalidRole       = errors.New("invalid role")
	errTokenNotDelivered = errors.New("token was not issued")
)

// PasswordReader returns one password typed by the operator.
type PasswordReader func(prompt string) (string, error)

// capturedTokens keeps tokens in process so the command can consume them right away.
// They are never printed.
type capturedTokens struct {
	mu           sync.Mutex
	verification string
	reset        string
}

func (tokens *capturedTokens) SendVerification(_ context.Context, _ models.PublicUser, token string) error {
	tokens.mu.Lock()
	defer tokens.mu.Unlock()
	tokens.verification = token
	return nil
}

func (tokens *capturedTokens) SendPasswordReset(_ context.Context, _ models.PublicUser, token string) error {
	tokens.mu.Lock()
	defer tokens.mu.Unlock()
	tokens.reset = token
	return nil
}

func (tokens *capturedTokens) take(kind string) string {
	tokens.mu.Lock()
	defer tokens.mu.Unlock()
	var token string
	switch kind {
	case "verification":
		token, tokens.verification = tokens.verification, ""
	case "reset":
		token, tokens.reset = tokens.reset, ""
	}
	return token
}

type Commands struct {
	users    services.IdentityUserRepository
	identity *services.IdentityService
	tokens   *capturedTokens
	out      io.Writer
	password PasswordReader
}

func NewCommands(users services.IdentityUserRepository, logger logrus.FieldLogger, out io.Writer, password PasswordReader, options ...services.IdentityOption) *Commands {
	tokens := &capturedTokens{}
	if out == nil {
		out = io.Discard
	}
	return &Commands{
		users:    users,
		identity: services.NewIdentityService(users, tokens, logger, options...),
		tokens:   tokens,
		out:      out,
		password: password,
	}
}

// ResetPassword prompts for a new password twice and applies it through the regular
// reset flow, so any pending grant is consumed the same way a link would be.
func (commands *Commands) ResetPassword(ctx context.Context, email string) error {
	user, err := commands.lookup(ctx, email)
	if err != nil {
		return err
	}

	password, err := commands.readNewPassword()
	if err != nil {
		return err
	}

	if err := commands.identity.RequestPasswordReset(ctx, user.Email); err != nil {
		return fmt.Errorf("request reset: %w", err)
	}
	token := commands.tokens.take("reset")
	if token == "" {
		return fmt.Errorf("request reset: %w", errTokenNotDelivered)
	}
	if err := commands.identity.ResetPassword(ctx, token, password); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	fmt.Fprintf(commands.out, "Password updated for %s\n", user.Email)
	return nil
}

func (commands *Commands) VerifyEmail(ctx context.Context, email string) error {
	user, err := commands.lookup(ctx, email)
	if err != nil {
		return err
	}
	if user.EmailVerified {
		fmt.Fprintf(commands.out, "%s is already verified\n", user.Email)
		return nil
	}

	if err := commands.identity.ResendVerification(ctx, user.Email); err != nil {
		return fmt.Errorf("issue verification: %w", err)
	}
	token := commands.tokens.take("verification")
	if token == "" {
		return fmt.Errorf("issue verification: %w", errTokenNotDelivered)
	}
	if err := commands.identity.VerifyEmail(ctx, token); err != nil {
		return fmt.Errorf("verify email: %w", err)
	}

	fmt.Fprintf(commands.out, "Email verified for %s\n", user.Email)
	return nil
}

func (commands *Commands) AssignRole(ctx context.Context, email string, rawRole string) error {
	role := models.Role(strings.ToLower(strings.TrimSpace(rawRole)))
	if !role.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, rawRole)
	}

	user, err := commands.identity.AssignRole(ctx, email, role)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return fmt.Errorf("%w: %s", ErrUserNotFound, services.NormalizeEmail(email))
		}
		return fmt.Errorf("assign role: %w", err)
	}

	fmt.Fprintf(commands.out, "%s now has role %s\n", user.Email, user.Role)
	return nil
}

func (commands *Commands) lookup(ctx context.Context, email string) (models.User, error) {
	normalized := services.NormalizeAuthEmail(email)
	if normalized == "" {
		return models.User{}, fmt.Errorf("invalid email address %q", email)
	}

	user, err := commands.users.FindByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.User{}, fmt.Errorf("%w: %s", ErrUserNotFound, normalized)
		}
		return models.User{}, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

func (commands *Commands) readNewPassword() (string, error) {
	if commands.password == nil {
		return "", errors.New("password input unavailable")
	}

	first, err := commands.password("New password: ")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if first == "" {
		return "", ErrEmptyPassword
	}
	second, err := commands.password("Repeat password: ")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if first != second {
		return "", ErrPasswordMismatch
	}
	return first, nil
}
