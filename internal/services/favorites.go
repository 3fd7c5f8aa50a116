package services

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/ian-seymour/gamma/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FavoritesService struct {
	db *gorm.DB
}

func NewFavoritesService(db *gorm.DB) *FavoritesService {
	return &FavoritesService{db: db}
}

// Add saves a location for the user. Cities are compared as given, so callers
// normalize whitespace before calling. The quota and duplicate checks run in the
// same transaction as the insert, with the owner row locked, so concurrent adds
// cannot push a user past the limit.
func (s *FavoritesService) Add(ctx context.Context, userID uint, city string, lat, lon float64) (*models.Favorite, error) {
	if strings.TrimSpace(city) == "" || !validCoordinate(lat, 90) || !validCoordinate(lon, 180) {
		return nil, ErrInvalidFavorite
	}

	favorite := models.Favorite{
		UserID:    userID,
		City:      city,
		Latitude:  lat,
		Longitude: lon,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owner models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&owner, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		var count int64
		if err := tx.Model(&models.Favorite{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
			return err
		}
		if count >= models.MaxFavoritesPerUser {
			return ErrQuotaExceeded
		}

		var duplicates int64
		if err := tx.Model(&models.Favorite{}).Where("user_id = ? AND city = ?", userID, city).Count(&duplicates).Error; err != nil {
			return err
		}
		if duplicates > 0 {
			return ErrDuplicateFavorite
		}

		if err := tx.Create(&favorite).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateFavorite
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &favorite, nil
}

func (s *FavoritesService) Get(ctx context.Context, userID, favoriteID uint) (*models.Favorite, error) {
	var favorite models.Favorite
	if err := s.db.WithContext(ctx).First(&favorite, favoriteID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFavoriteNotFound
		}
		return nil, err
	}
	if favorite.UserID != userID {
		return nil, ErrNotOwner
	}
	return &favorite, nil
}

func (s *FavoritesService) Remove(ctx context.Context, userID, favoriteID uint) (*models.Favorite, error) {
	favorite, err := s.Get(ctx, userID, favoriteID)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Delete(favorite).Error; err != nil {
		return nil, err
	}
	return favorite, nil
}

// List returns the user's favorites in the order they were added.
func (s *FavoritesService) List(ctx context.Context, userID uint) ([]models.Favorite, error) {
	var favorites []models.Favorite
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("id asc").Find(&favorites).Error; err != nil {
		return nil, err
	}
	return favorites, nil
}

func validCoordinate(v, limit float64) bool {
	return !math.IsNaN(v) && v >= -limit && v <= limit
}
