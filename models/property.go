package models

import (
	"gorm.io/gorm"
)

// Property status values
const (
	PropertyAvailable = "available"
	PropertyReserved  = "reserved"
	PropertySold      = "sold"
)

// Property represents a listing in the brokerage portfolio
type Property struct {
	gorm.Model
	UserID uint `gorm:"index" json:"user_id"` // broker that registered the listing

	Title       string  `gorm:"not null" json:"title"`
	Description string  `gorm:"type:text" json:"description"`
	Price       float64 `gorm:"type:numeric(12,2);not null" json:"price"`
	Status      string  `gorm:"default:'available';index" json:"status"`

	// Location
	Address   string   `json:"address"`
	City      string   `gorm:"index" json:"city"`
	State     string   `json:"state"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	// Attributes
	Bedrooms  int     `gorm:"default:0" json:"bedrooms"`
	Bathrooms int     `gorm:"default:0" json:"bathrooms"`
	Area      float64 `gorm:"type:numeric(10,2)" json:"area"`

	// Relations
	Images    []PropertyImage `gorm:"foreignKey:PropertyID" json:"images,omitempty"`
	Favorites []Favorite      `gorm:"foreignKey:PropertyID" json:"-"`
}

// PropertyImage stores gallery images for a listing
type PropertyImage struct {
	gorm.Model
	PropertyID uint   `gorm:"not null;index" json:"property_id"`
	URL        string `gorm:"not null" json:"url"`
	Position   int    `gorm:"default:0" json:"position"`
	IsCover    bool   `gorm:"default:false" json:"is_cover"`
}

// Favorite marks a property as saved by a user. The unique index keeps
// price alerts from being issued twice for the same user/property pair.
type Favorite struct {
	gorm.Model
	UserID     uint `gorm:"not null;uniqueIndex:idx_fav_user_property" json:"user_id"`
	PropertyID uint `gorm:"not null;uniqueIndex:idx_fav_user_property" json:"property_id"`

	// Relations
	User     User     `json:"-"`
	Property Property `json:"property,omitempty"`
}

// PriceAlert records a price change notification issued to a user that
// favorited the affected property
type PriceAlert struct {
	gorm.Model
	UserID     uint    `gorm:"not null;index" json:"user_id"`
	PropertyID uint    `gorm:"not null;index" json:"property_id"`
	OldPrice   float64 `gorm:"type:numeric(12,2);not null" json:"old_price"`
	NewPrice   float64 `gorm:"type:numeric(12,2);not null" json:"new_price"`
	IsRead     bool    `gorm:"default:false" json:"is_read"`
}
