package models

import (
	"time"

	"gorm.io/gorm"
)

// Lead status values. The status enumeration is fixed; UpdateLead rejects
// anything outside this set.
const (
	LeadStatusNew          = "new"
	LeadStatusInProgress   = "in_progress"
	LeadStatusProposalSent = "proposal_sent"
	LeadStatusClosed       = "closed"
	LeadStatusLost         = "lost"
)

// LeadSourceWidget tags leads captured through the public chat widget
const LeadSourceWidget = "website_widget"

// ValidLeadStatus reports whether s is one of the known lead statuses
func ValidLeadStatus(s string) bool {
	switch s {
	case LeadStatusNew, LeadStatusInProgress, LeadStatusProposalSent, LeadStatusClosed, LeadStatusLost:
		return true
	}
	return false
}

// Lead represents a prospective customer captured from a property inquiry.
// Deduplication is keyed by email: widget intake looks up the stored value
// with an exact match before creating a new record.
type Lead struct {
	gorm.Model

	Name  string `gorm:"not null" json:"name"`
	Email string `gorm:"not null;index" json:"email"`
	Phone string `json:"phone"`

	Status     string `gorm:"default:'new';index" json:"status"`
	Source     string `json:"source"`
	IsArchived bool   `gorm:"default:false" json:"is_archived"`

	// Property of interest
	PropertyID    *uint  `gorm:"index" json:"property_id,omitempty"`
	PropertyTitle string `json:"property_title"`
	PropertyURL   string `json:"property_url"`

	// Origin / attribution
	IP          string `json:"ip"`
	City        string `json:"city"`
	State       string `json:"state"`
	UTMSource   string `json:"utm_source"`
	UTMMedium   string `json:"utm_medium"`
	UTMCampaign string `json:"utm_campaign"`

	// Lifecycle timestamps
	ConvertedAt *time.Time `json:"converted_at,omitempty"`

	// Relations
	Property      *Property      `json:"property,omitempty"`
	Conversations []Conversation `gorm:"foreignKey:LeadID" json:"conversations,omitempty"`
}
