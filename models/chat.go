package models

import (
	"time"

	"gorm.io/gorm"
)

// Message sender categories
const (
	SenderOperator = "operator"
	SenderVisitor  = "visitor"
	SenderSystem   = "system"
)

// Message delivery statuses (sent → delivered → read)
const (
	MessageSent      = "sent"
	MessageDelivered = "delivered"
	MessageRead      = "read"
)

// Message payload types
const (
	MessageTypeText = "text"
	MessageTypeFile = "file"
)

// ValidSenderType reports whether s is a known sender category
func ValidSenderType(s string) bool {
	switch s {
	case SenderOperator, SenderVisitor, SenderSystem:
		return true
	}
	return false
}

// Conversation is a chat thread between a lead/visitor and the brokerage.
// A lead has at most one active (non-archived) conversation at a time,
// enforced by lookup at intake rather than a hard constraint.
type Conversation struct {
	gorm.Model
	LeadID uint `gorm:"not null;index" json:"lead_id"`

	IsArchived  bool  `gorm:"default:false;index" json:"is_archived"`
	IsRead      bool  `gorm:"default:false" json:"is_read"`
	UnreadCount int   `gorm:"default:0" json:"unread_count"`
	AssignedTo  *uint `gorm:"index" json:"assigned_to,omitempty"`

	// Relations
	Lead     Lead      `json:"lead,omitempty"`
	Messages []Message `gorm:"foreignKey:ConversationID" json:"messages,omitempty"`
}

// ApplyVisitorMessage records an inbound visitor message against the
// conversation state: unread goes up by one and the read flag is cleared,
// regardless of the archived flag.
func (c *Conversation) ApplyVisitorMessage() {
	c.UnreadCount++
	c.IsRead = false
	c.UpdatedAt = time.Now().UTC()
}

// MarkRead zeroes the unread counter and sets the read flag. The two always
// change together.
func (c *Conversation) MarkRead() {
	c.UnreadCount = 0
	c.IsRead = true
	c.UpdatedAt = time.Now().UTC()
}

// SetArchived toggles the archived flag without touching read state
func (c *Conversation) SetArchived(archived bool) {
	c.IsArchived = archived
	c.UpdatedAt = time.Now().UTC()
}

// Assign sets or clears the operator assignment
func (c *Conversation) Assign(userID *uint) {
	c.AssignedTo = userID
	c.UpdatedAt = time.Now().UTC()
}

// Message belongs to exactly one conversation. Content is immutable once
// created; only the delivery status and its timestamps transition.
type Message struct {
	gorm.Model
	ConversationID uint `gorm:"not null;index" json:"conversation_id"`

	SenderType  string `gorm:"not null" json:"sender_type"` // operator, visitor, system
	Content     string `gorm:"type:text;not null" json:"content"`
	Status      string `gorm:"default:'sent'" json:"status"`
	MessageType string `gorm:"default:'text'" json:"message_type"`
	FileURL     string `json:"file_url,omitempty"`

	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
}

// MarkMessagesRead flips every unread visitor message in the conversation to
// read with a timestamp. Runs inside the caller's transaction.
func MarkMessagesRead(tx *gorm.DB, conversationID uint) error {
	now := time.Now().UTC()
	return tx.Model(&Message{}).
		Where("conversation_id = ? AND sender_type = ? AND status <> ?",
			conversationID, SenderVisitor, MessageRead).
		Updates(map[string]interface{}{"status": MessageRead, "read_at": now}).Error
}
