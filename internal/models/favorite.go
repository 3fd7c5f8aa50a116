package models

import (
	"time"
)

// MaxFavoritesPerUser caps how many saved locations a single user may hold.
const MaxFavoritesPerUser = 10

type Favorite struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_favorites_user_city" json:"user_id"`
	City      string    `gorm:"not null;size:120;uniqueIndex:idx_favorites_user_city" json:"city"`
	Latitude  float64   `gorm:"not null" json:"latitude"`
	Longitude float64   `gorm:"not null" json:"longitude"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Favorite) TableName() string {
	return "favorites"
}
