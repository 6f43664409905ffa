package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/terraincognita07/actiontracker/internal/models"
	"github.com/terraincognita07/actiontracker/internal/security"
	"github.com/terraincognita07/actiontracker/internal/store"
	"golang.org/x/crypto/bcrypt"
)

const DefaultPasswordResetTTL = time.Hour

type IdentityUserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, userID uint) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByUsername(ctx context.Context, username string) (models.User, error)
	FindByVerificationToken(ctx context.Context, digest string) (models.User, error)
	FindByResetToken(ctx context.Context, digest string) (models.User, error)
	Update(ctx context.Context, userID uint, mutate func(*models.User) error) (models.User, error)
}

// TokenNotifier delivers raw tokens to the account owner. It is the only place a raw
// token travels after it is issued.
type TokenNotifier interface {
	SendVerification(ctx context.Context, user models.PublicUser, token string) error
	SendPasswordReset(ctx context.Context, user models.PublicUser, token string) error
}

type IdentityEventRecorder interface {
	RecordIdentityEvent(event string)
}

const (
	EventRegistered            = "registered"
	EventEmailVerified         = "email_verified"
	EventLoginSucceeded        = "login_succeeded"
	EventLoginRejected         = "login_rejected"
	EventPasswordResetRequest  = "password_reset_requested"
	EventPasswordResetComplete = "password_reset_completed"
	EventPasswordChanged       = "password_changed"
	EventVerificationResent    = "verification_resent"
)

type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     string
	CenterID *string
}

type IdentityOption func(*IdentityService)

func WithClock(now func() time.Time) IdentityOption {
	return func(service *IdentityService) {
		if now != nil {
			service.now = now
		}
	}
}

func WithPasswordResetTTL(ttl time.Duration) IdentityOption {
	return func(service *IdentityService) {
		if ttl > 0 {
			service.resetTTL = ttl
		}
	}
}

func WithPasswordCost(cost int) IdentityOption {
	return func(service *IdentityService) {
		service.passwordCost = cost
	}
}

func WithEventRecorder(recorder IdentityEventRecorder) IdentityOption {
	return func(service *IdentityService) {
		if recorder != nil {
			service.events = recorder
		}
	}
}

type IdentityService struct {
	users        IdentityUserRepository
	notifier     TokenNotifier
	logger       logrus.FieldLogger
	events       IdentityEventRecorder
	now          func() time.Time
	resetTTL     time.Duration
	passwordCost int

	// registerMu serializes the uniqueness check and insert of Register.
	registerMu sync.Mutex
}

func NewIdentityService(users IdentityUserRepository, notifier TokenNotifier, logger logrus.FieldLogger, options ...IdentityOption) *IdentityService {
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}
	service := &IdentityService{
		users:        users,
		notifier:     notifier,
		logger:       logger,
		events:       noopEvents{},
		now:          time.Now,
		resetTTL:     DefaultPasswordResetTTL,
		passwordCost: bcrypt.DefaultCost,
	}
	for _, option := range options {
		option(service)
	}
	return service
}

func (service *IdentityService) Register(ctx context.Context, input RegisterInput) (models.User, error) {
	email := NormalizeEmail(input.Email)
	username := NormalizeUsername(input.Username)

	passwordHash, err := service.hashPassword(input.Password)
	if err != nil {
		return models.User{}, err
	}
	rawToken, err := security.NewToken()
	if err != nil {
		return models.User{}, fmt.Errorf("generate verification token: %w", err)
	}

	service.registerMu.Lock()
	defer service.registerMu.Unlock()

	if err := service.ensureAvailable(ctx, email, username); err != nil {
		return models.User{}, err
	}

	now := service.now().UTC()
	user := models.User{
		Username:      username,
		PasswordHash:  passwordHash,
		Role:          models.ParseRole(input.Role),
		CenterID:      input.CenterID,
		Email:         email,
		EmailVerified: false,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	user.SetVerificationToken(security.TokenDigest(rawToken))

	if err := service.users.Create(ctx, &user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			if availabilityErr := service.ensureAvailable(ctx, email, username); availabilityErr != nil {
				return models.User{}, availabilityErr
			}
		}
		return models.User{}, storageError(err)
	}

	log := service.logger.WithField("user_id", user.ID)
	log.Info("user registered")
	service.events.RecordIdentityEvent(EventRegistered)

	if err := service.notifier.SendVerification(ctx, user.Public(), rawToken); err != nil {
		log.WithError(err).Warn("verification delivery failed")
	}
	return user.Clone(), nil
}

func (service *IdentityService) ensureAvailable(ctx context.Context, email string, username string) error {
	if _, err := service.users.FindByEmail(ctx, email); err == nil {
		return ErrDuplicateEmail
	} else if !errors.Is(err, store.ErrNotFound) {
		return storageError(err)
	}

	if _, err := service.users.FindByUsername(ctx, username); err == nil {
		return ErrDuplicateUsername
	} else if !errors.Is(err, store.ErrNotFound) {
		return storageError(err)
	}
	return nil
}

func (service *IdentityService) VerifyEmail(ctx context.Context, token string) error {
	digest := security.TokenDigest(token)
	if digest == "" {
		return ErrInvalidToken
	}

	user, err := service.users.FindByVerificationToken(ctx, digest)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidToken
		}
		return storageError(err)
	}

	_, err = service.users.Update(ctx, user.ID, func(current *models.User) error {
		if current.EmailVerificationToken == nil || !security.TokenDigestMatches(*current.EmailVerificationToken, token) {
			return ErrInvalidToken
		}
		current.MarkEmailVerified()
		current.UpdatedAt = service.now().UTC()
		return nil
	})
	if err != nil {
		return service.mapUpdateError(err, ErrInvalidToken)
	}

	service.logger.WithField("user_id", user.ID).Info("email verified")
	service.events.RecordIdentityEvent(EventEmailVerified)
	return nil
}

func (service *IdentityService) Login(ctx context.Context, email string, password string) (models.PublicUser, error) {
	user, err := service.users.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			service.events.RecordIdentityEvent(EventLoginRejected)
			return models.PublicUser{}, ErrInvalidCredentials
		}
		return models.PublicUser{}, storageError(err)
	}
	if !security.PasswordMatches(user.PasswordHash, password) {
		service.events.RecordIdentityEvent(EventLoginRejected)
		return models.PublicUser{}, ErrInvalidCredentials
	}
	if !user.EmailVerified {
		service.events.RecordIdentityEvent(EventLoginRejected)
		return models.PublicUser{}, ErrEmailNotVerified
	}

	updated, err := service.users.Update(ctx, user.ID, func(current *models.User) error {
		now := service.now().UTC()
		current.LastLoginAt = &now
		current.UpdatedAt = now
		return nil
	})
	if err != nil {
		return models.PublicUser{}, service.mapUpdateError(err, ErrInvalidCredentials)
	}

	service.logger.WithField("user_id", updated.ID).Info("user logged in")
	service.events.RecordIdentityEvent(EventLoginSucceeded)
	return updated.Public(), nil
}

// RequestPasswordReset answers the same way whether or not the address is registered.
// Only a failed lookup is reported; anything after it is logged and swallowed.
func (service *IdentityService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := service.users.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return storageError(err)
	}

	log := service.logger.WithField("user_id", user.ID)
	rawToken, err := security.NewToken()
	if err != nil {
		log.WithError(err).Error("generate reset token")
		return nil
	}

	updated, err := service.users.Update(ctx, user.ID, func(current *models.User) error {
		now := service.now().UTC()
		current.SetPasswordReset(security.TokenDigest(rawToken), now.Add(service.resetTTL))
		current.UpdatedAt = now
		return nil
	})
	if err != nil {
		log.WithError(err).Error("store reset grant")
		return nil
	}

	service.events.RecordIdentityEvent(EventPasswordResetRequest)
	if err := service.notifier.SendPasswordReset(ctx, updated.Public(), rawToken); err != nil {
		log.WithError(err).Warn("password reset delivery failed")
	}
	return nil
}

func (service *IdentityService) ResetPassword(ctx context.Context, token string, newPassword string) error {
	digest := security.TokenDigest(token)
	if digest == "" {
		return ErrInvalidOrExpiredToken
	}

	user, err := service.users.FindByResetToken(ctx, digest)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidOrExpiredToken
		}
		return storageError(err)
	}
	if user.PasswordReset == nil || !user.PasswordReset.ValidAt(service.now()) {
		return ErrInvalidOrExpiredToken
	}

	passwordHash, err := service.hashPassword(newPassword)
	if err != nil {
		return err
	}

	_, err = service.users.Update(ctx, user.ID, func(current *models.User) error {
		now := service.now()
		reset := current.PasswordReset
		if reset == nil || !security.TokenDigestMatches(reset.TokenDigest, token) || !reset.ValidAt(now) {
			return ErrInvalidOrExpiredToken
		}
		current.PasswordHash = passwordHash
		current.ClearPasswordReset()
		current.UpdatedAt = now.UTC()
		return nil
	})
	if err != nil {
		return service.mapUpdateError(err, ErrInvalidOrExpiredToken)
	}

	service.logger.WithField("user_id", user.ID).Info("password reset completed")
	service.events.RecordIdentityEvent(EventPasswordResetComplete)
	return nil
}

func (service *IdentityService) ChangePassword(ctx context.Context, userID uint, currentPassword string, newPassword string) error {
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return storageError(err)
	}
	if !security.PasswordMatches(user.PasswordHash, currentPassword) {
		return ErrIncorrectPassword
	}

	passwordHash, err := service.hashPassword(newPassword)
	if err != nil {
		return err
	}

	_, err = service.users.Update(ctx, userID, func(current *models.User) error {
		// A concurrent change since the check invalidates the supplied current password.
		if current.PasswordHash != user.PasswordHash {
			return ErrIncorrectPassword
		}
		current.PasswordHash = passwordHash
		current.UpdatedAt = service.now().UTC()
		return nil
	})
	if err != nil {
		return service.mapUpdateError(err, ErrUserNotFound)
	}

	service.logger.WithField("user_id", userID).Info("password changed")
	service.events.RecordIdentityEvent(EventPasswordChanged)
	return nil
}

func (service *IdentityService) ResendVerification(ctx context.Context, email string) error {
	user, err := service.users.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return storageError(err)
	}
	if user.EmailVerified {
		return ErrAlreadyVerified
	}

	rawToken, err := security.NewToken()
	if err != nil {
		return fmt.Errorf("generate verification token: %w", err)
	}

	updated, err := service.users.Update(ctx, user.ID, func(current *models.User) error {
		if current.EmailVerified {
			return ErrAlreadyVerified
		}
		current.SetVerificationToken(security.TokenDigest(rawToken))
		current.UpdatedAt = service.now().UTC()
		return nil
	})
	if err != nil {
		return service.mapUpdateError(err, ErrUserNotFound)
	}

	service.events.RecordIdentityEvent(EventVerificationResent)
	if err := service.notifier.SendVerification(ctx, updated.Public(), rawToken); err != nil {
		service.logger.WithField("user_id", user.ID).WithError(err).Warn("verification delivery failed")
	}
	return nil
}

func (service *IdentityService) hashPassword(password string) (string, error) {
	passwordHash, err := security.HashPassword(password, service.passwordCost)
	if errors.Is(err, security.ErrPasswordTooLong) {
		return "", ErrPasswordTooLong
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return passwordHash, nil
}

func (service *IdentityService) FindUser(ctx context.Context, userID uint) (models.PublicUser, error) {
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.PublicUser{}, ErrUserNotFound
		}
		return models.PublicUser{}, storageError(err)
	}
	return user.Public(), nil
}

// AssignRole is an operator action; it is not reachable over HTTP.
func (service *IdentityService) AssignRole(ctx context.Context, email string, role models.Role) (models.PublicUser, error) {
	if !role.Valid() {
		return models.PublicUser{}, fmt.Errorf("unknown role %q", role)
	}
	user, err := service.users.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.PublicUser{}, ErrUserNotFound
		}
		return models.PublicUser{}, storageError(err)
	}

	updated, err := service.users.Update(ctx, user.ID, func(current *models.User) error {
		current.Role = role
		current.UpdatedAt = service.now().UTC()
		return nil
	})
	if err != nil {
		return models.PublicUser{}, service.mapUpdateError(err, ErrUserNotFound)
	}

	service.logger.WithFields(logrus.Fields{"user_id": user.ID, "role": role}).Info("role assigned")
	return updated.Public(), nil
}

// mapUpdateError passes domain failures raised inside a mutate callback through and
// reports a vanished row as missing.
func (service *IdentityService) mapUpdateError(err error, missing error) error {
	switch {
	case errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrInvalidOrExpiredToken),
		errors.Is(err, ErrIncorrectPassword),
		errors.Is(err, ErrAlreadyVerified):
		return err
	case errors.Is(err, store.ErrNotFound):
		return missing
	default:
		return storageError(err)
	}
}

type noopEvents struct{}

func (noopEvents) RecordIdentityEvent(string) {}
