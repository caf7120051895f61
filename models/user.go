package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents an internal operator account (broker or admin)
type User struct {
	gorm.Model

	// Authentication fields
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	TokenVersion int    `gorm:"default:0" json:"-"`

	// Profile information
	Name      string  `gorm:"not null" json:"name"`
	Role      string  `gorm:"default:'broker'" json:"role"` // broker, admin
	Phone     *string `json:"phone,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`

	// Account status
	IsActive bool `gorm:"default:true" json:"is_active"`

	// Relations
	Settings  *UserSettings `gorm:"foreignKey:UserID" json:"settings,omitempty"`
	Favorites []Favorite    `gorm:"foreignKey:UserID" json:"favorites,omitempty"`
	APIKeys   []APIKey      `gorm:"foreignKey:UserID" json:"api_keys,omitempty"`
}

// RefreshToken stores issued refresh tokens so they can be revoked
type RefreshToken struct {
	gorm.Model
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Token     string    `gorm:"not null;uniqueIndex" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	Revoked   bool      `gorm:"default:false" json:"revoked"`

	User User `json:"-"`
}
