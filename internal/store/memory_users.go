package store

import (
	"context"
	"time"

	"github.com/terraincognita07/actiontracker/internal/models"
)

type MemoryUserRepository struct {
	memory *Memory
}

func (repo *MemoryUserRepository) Create(_ context.Context, user *models.User) error {
	repo.memory.mu.Lock()
	defer repo.memory.mu.Unlock()

	user.ID = repo.memory.users.Allocate()
	repo.memory.users.Put(user.ID, *user)
	return nil
}

func (repo *MemoryUserRepository) FindByID(_ context.Context, userID uint) (models.User, error) {
	repo.memory.mu.Lock()
	defer repo.memory.mu.Unlock()

	user, ok := repo.memory.users.Get(userID)
	if !ok {
		return models.User{}, ErrNotFound
	}
	return user, nil
}

func (repo *MemoryUserRepository) FindByEmail(_ context.Context, email string) (models.User, error) {
	return findRow(repo.memory, repo.memory.users, func(user models.User) bool {
		return user.Email == email
	})
}

func (repo *MemoryUserRepository) FindByUsername(_ context.Context, username string) (models.User, error) {
	return findRow(repo.memory, repo.memory.users, func(user models.User) bool {
		return user.Username == username
	})
}

func (repo *MemoryUserRepository) FindByVerificationToken(_ context.Context, digest string) (models.User, error) {
	return findRow(repo.memory, repo.memory.users, func(user models.User) bool {
		return user.EmailVerificationToken != nil && *user.EmailVerificationToken == digest
	})
}

func (repo *MemoryUserRepository) FindByResetToken(_ context.Context, digest string) (models.User, error) {
	return findRow(repo.memory, repo.memory.users, func(user models.User) bool {
		return user.PasswordReset != nil && user.PasswordReset.TokenDigest == digest
	})
}

func (repo *MemoryUserRepository) Update(_ context.Context, userID uint, mutate func(*models.User) error) (models.User, error) {
	return updateRow(repo.memory, repo.memory.users, userID, mutate)
}

// ClearExpiredResets drops every reset grant whose expiry is at or before now.
func (repo *MemoryUserRepository) ClearExpiredResets(_ context.Context, now time.Time) (int64, error) {
	repo.memory.mu.Lock()
	defer repo.memory.mu.Unlock()

	var cleared int64
	for _, user := range repo.memory.users.Scan() {
		if user.PasswordReset == nil || user.PasswordReset.ValidAt(now) {
			continue
		}
		user.ClearPasswordReset()
		repo.memory.users.Put(user.ID, user)
		cleared++
	}
	return cleared, nil
}
