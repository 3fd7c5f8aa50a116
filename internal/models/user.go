package models

import (
	"time"
)

type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Email        string     `gorm:"uniqueIndex;not null;size:120" json:"email"`
	PasswordHash string     `gorm:"not null;size:255" json:"-"`
	APIKey       string     `gorm:"uniqueIndex;size:36" json:"-"`
	CreatedAt    time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	Favorites    []Favorite `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"favorites,omitempty"`
}

func (User) TableName() string {
	return "users"
}
