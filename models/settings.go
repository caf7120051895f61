package models

import (
	"gorm.io/gorm"
)

// UserSettings holds per-operator preferences
type UserSettings struct {
	gorm.Model
	UserID uint `gorm:"not null;uniqueIndex" json:"user_id"`

	Theme                string `gorm:"default:'light'" json:"theme"`
	Language             string `gorm:"default:'pt-BR'" json:"language"`
	NotificationsEnabled bool   `gorm:"default:true" json:"notifications_enabled"`

	CompanyName  *string `json:"company_name,omitempty"`
	CompanyPhone *string `json:"company_phone,omitempty"`
	CompanyEmail *string `json:"company_email,omitempty"`
}

// BotSettings is a singleton row (id = 1) controlling the widget
// auto-responder
type BotSettings struct {
	ID             uint   `gorm:"primarykey" json:"id"`
	WelcomeMessage string `gorm:"type:text;not null" json:"welcome_message"`
	AwayMessage    string `gorm:"type:text;not null" json:"away_message"`
	Enabled        bool   `gorm:"default:true" json:"enabled"`
	AwayEnabled    bool   `gorm:"default:true" json:"away_enabled"`
	BusinessStart  int    `gorm:"default:8" json:"business_start"`
	BusinessEnd    int    `gorm:"default:18" json:"business_end"`
}

// APIKey is the shared secret the public widget presents on every request.
// It identifies an installation, not a user.
type APIKey struct {
	gorm.Model
	UserID   uint   `gorm:"index" json:"user_id"`
	Name     string `json:"name"`
	Key      string `gorm:"not null;uniqueIndex" json:"key"`
	IsActive bool   `gorm:"default:true" json:"is_active"`
}

// PushSubscription stores a browser push subscription blob for a user
type PushSubscription struct {
	gorm.Model
	UserID       uint   `gorm:"not null;index" json:"user_id"`
	Subscription string `gorm:"type:text;not null" json:"subscription"`
}

// SeedDefaults creates the singleton bot settings row if it does not exist
func SeedDefaults(db *gorm.DB) error {
	defaults := BotSettings{
		ID:             1,
		WelcomeMessage: "Olá! Como posso te ajudar com esse imóvel?",
		AwayMessage:    "No momento estamos fora do horário. Responderei em breve!",
		Enabled:        true,
		AwayEnabled:    true,
		BusinessStart:  8,
		BusinessEnd:    18,
	}
	return db.FirstOrCreate(&defaults, "id = 1").Error
}
