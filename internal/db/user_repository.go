package db

import (
	"context"
	"time"

	"github.com/terraincognita07/actiontracker/internal/models"
	"gorm.io/gorm"
)

// userRecord is the row shape of the users table. The reset grant is a pair of
// nullable columns in SQL and a single optional value in models.User.
type userRecord struct {
	ID                     uint `gorm:"primaryKey"`
	Username               string
	PasswordHash           string
	Role                   string
	CenterID               *string
	Email                  string
	EmailVerified          bool
	EmailVerificationToken *string
	PasswordResetToken     *string
	PasswordResetExpiry    *time.Time
	LastLoginAt            *time.Time
	CreatedAt              time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt              time.Time `gorm:"autoUpdateTime:false"`
}

func (userRecord) TableName() string {
	return "users"
}

func userRecordFromModel(user models.User) userRecord {
	record := userRecord{
		ID:                     user.ID,
		Username:               user.Username,
		PasswordHash:           user.PasswordHash,
		Role:                   string(user.Role),
		CenterID:               user.CenterID,
		Email:                  user.Email,
		EmailVerified:          user.EmailVerified,
		EmailVerificationToken: user.EmailVerificationToken,
		LastLoginAt:            user.LastLoginAt,
		CreatedAt:              user.CreatedAt,
		UpdatedAt:              user.UpdatedAt,
	}
	if user.PasswordReset != nil {
		digest := user.PasswordReset.TokenDigest
		expiresAt := user.PasswordReset.ExpiresAt
		record.PasswordResetToken = &digest
		record.PasswordResetExpiry = &expiresAt
	}
	return record
}

func (record userRecord) toModel() models.User {
	user := models.User{
		ID:                     record.ID,
		Username:               record.Username,
		PasswordHash:           record.PasswordHash,
		Role:                   models.Role(record.Role),
		CenterID:               record.CenterID,
		Email:                  record.Email,
		EmailVerified:          record.EmailVerified,
		EmailVerificationToken: record.EmailVerificationToken,
		LastLoginAt:            record.LastLoginAt,
		CreatedAt:              record.CreatedAt,
		UpdatedAt:              record.UpdatedAt,
	}
	if record.PasswordResetToken != nil && record.PasswordResetExpiry != nil {
		user.SetPasswordReset(*record.PasswordResetToken, *record.PasswordResetExpiry)
	}
	return user
}

type UserRepository struct {
	database *gorm.DB
}

func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{database: database}
}

func (repo *UserRepository) Create(ctx context.Context, user *models.User) error {
	record := userRecordFromModel(*user)
	if err := repo.database.WithContext(ctx).Create(&record).Error; err != nil {
		return translateError(err)
	}
	user.ID = record.ID
	return nil
}

func (repo *UserRepository) FindByID(ctx context.Context, userID uint) (models.User, error) {
	var record userRecord
	if err := repo.database.WithContext(ctx).First(&record, userID).Error; err != nil {
		return models.User{}, translateError(err)
	}
	return record.toModel(), nil
}

func (repo *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return repo.findOne(ctx, "email = ?", email)
}

func (repo *UserRepository) FindByUsername(ctx context.Context, username string) (models.User, error) {
	return repo.findOne(ctx, "username = ?", username)
}

func (repo *UserRepository) FindByVerificationToken(ctx context.Context, digest string) (models.User, error) {
	return repo.findOne(ctx, "email_verification_token = ?", digest)
}

func (repo *UserRepository) FindByResetToken(ctx context.Context, digest string) (models.User, error) {
	return repo.findOne(ctx, "password_reset_token = ?", digest)
}

func (repo *UserRepository) findOne(ctx context.Context, query string, value any) (models.User, error) {
	var record userRecord
	if err := repo.database.WithContext(ctx).Where(query, value).Order("id ASC").First(&record).Error; err != nil {
		return models.User{}, translateError(err)
	}
	return record.toModel(), nil
}

// Update loads, mutates and saves the user inside one transaction.
func (repo *UserRepository) Update(ctx context.Context, userID uint, mutate func(*models.User) error) (models.User, error) {
	var updated models.User
	err := repo.database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record userRecord
		if err := tx.First(&record, userID).Error; err != nil {
			return translateError(err)
		}

		user := record.toModel()
		if err := mutate(&user); err != nil {
			return err
		}
		user.ID = record.ID

		next := userRecordFromModel(user)
		if err := tx.Save(&next).Error; err != nil {
			return translateError(err)
		}
		updated = next.toModel()
		return nil
	})
	if err != nil {
		return models.User{}, err
	}
	return updated, nil
}

func (repo *UserRepository) ClearExpiredResets(ctx context.Context, now time.Time) (int64, error) {
	result := repo.database.WithContext(ctx).
		Model(&userRecord{}).
		Where("password_reset_expiry IS NOT NULL AND password_reset_expiry <= ?", now.UTC()).
		Updates(map[string]any{
			"password_reset_token":  nil,
			"password_reset_expiry": nil,
		})
	if result.Error != nil {
		return 0, translateError(result.Error)
	}
	return result.RowsAffected, nil
}
