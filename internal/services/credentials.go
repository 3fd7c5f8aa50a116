package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ian-seymour/gamma/internal/models"
	"github.com/ian-seymour/gamma/pkg/utils"

	"gorm.io/gorm"
)

type CredentialService struct {
	db     *gorm.DB
	tokens *ResetTokenManager

	dummyOnce sync.Once
	dummyHash string
}

func NewCredentialService(db *gorm.DB, tokens *ResetTokenManager) *CredentialService {
	return &CredentialService{
		db:     db,
		tokens: tokens,
	}
}

func (s *CredentialService) Register(ctx context.Context, email, password string) (*models.User, error) {
	if email == "" || password == "" {
		return nil, ErrInvalidAccount
	}

	var existing models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil, ErrDuplicateEmail
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := models.User{
		Email:        email,
		PasswordHash: hash,
		APIKey:       utils.GenerateAPIKey(),
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}

	return &user, nil
}

// Authenticate answers ErrInvalidCredentials for unknown emails and wrong
// passwords alike, and spends a bcrypt comparison in both cases.
func (s *CredentialService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.GetByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		utils.CheckPasswordHash(password, s.placeholderHash())
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !utils.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *CredentialService) placeholderHash() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = utils.HashPassword("placeholder-password")
	})
	return s.dummyHash
}

func (s *CredentialService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *CredentialService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *CredentialService) GetByAPIKey(ctx context.Context, apiKey string) (*models.User, error) {
	if apiKey == "" {
		return nil, ErrUserNotFound
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("api_key = ?", apiKey).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *CredentialService) UpdatePassword(ctx context.Context, userID uint, password string) error {
	if password == "" {
		return ErrInvalidAccount
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	result := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("password_hash", hash)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *CredentialService) IssueResetToken(user *models.User) (string, error) {
	return s.tokens.Issue(user.ID)
}

// VerifyResetToken resolves a reset token to its user. Tokens for users that
// no longer exist are invalid.
func (s *CredentialService) VerifyResetToken(ctx context.Context, token string) (*models.User, error) {
	userID, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	user, err := s.GetByID(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidResetToken
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *CredentialService) ResetPassword(ctx context.Context, token, password string) (*models.User, error) {
	user, err := s.VerifyResetToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := s.UpdatePassword(ctx, user.ID, password); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteAccount removes the user and their favorites in one transaction.
func (s *CredentialService) DeleteAccount(ctx context.Context, userID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.Favorite{}).Error; err != nil {
			return fmt.Errorf("deleting favorites: %w", err)
		}

		result := tx.Delete(&models.User{}, userID)
		if result.Error != nil {
			return fmt.Errorf("deleting user: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrUserNotFound
		}
		return nil
	})
}
