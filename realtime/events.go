package realtime

import (
	"encoding/json"
	"time"
)

// Event type identifiers carried on the wire
const (
	EventConnection    = "connection"
	EventPong          = "pong"
	EventUserStatus    = "user_status"
	EventUserTyping    = "user_typing"
	EventNewMessage    = "new_message"
	EventMessagesRead  = "messages_read"
	EventPriceUpdate   = "price_update"
	EventConversation  = "conversation_updated"
)

func marshalEvent(event interface{}) ([]byte, error) {
	return json.Marshal(event)
}

// ConnectionAck is the first frame emitted after a successful handshake
type ConnectionAck struct {
	Type           string `json:"type"`
	Message        string `json:"message"`
	UserID         string `json:"user_id,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// Pong answers an inbound keep-alive ping, echoing the client timestamp
type Pong struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// UserStatus announces presence changes to every connected user
type UserStatus struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
	Online bool   `json:"online"`
}

// UserTyping is rebroadcast to the other subscribers of a conversation
type UserTyping struct {
	Type       string `json:"type"`
	SenderType string `json:"sender_type"`
}

// MessagePayload is the wire form of a persisted chat message
type MessagePayload struct {
	ID             uint      `json:"id"`
	ConversationID uint      `json:"conversation_id"`
	SenderType     string    `json:"sender_type"`
	Content        string    `json:"content"`
	Status         string    `json:"status"`
	MessageType    string    `json:"message_type"`
	FileURL        string    `json:"file_url,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewMessage carries a freshly persisted message to conversation subscribers
type NewMessage struct {
	Type    string         `json:"type"`
	Message MessagePayload `json:"message"`
}

// MessagesRead tells conversation subscribers the operator caught up
type MessagesRead struct {
	Type           string `json:"type"`
	ConversationID uint   `json:"conversation_id"`
}

// ConversationUpdated signals an archive or assignment change so open
// clients can refresh their conversation list
type ConversationUpdated struct {
	Type           string `json:"type"`
	ConversationID uint   `json:"conversation_id"`
	IsArchived     bool   `json:"is_archived"`
	AssignedTo     *uint  `json:"assigned_to,omitempty"`
}

// PriceUpdate notifies a user that a favorited property changed price
type PriceUpdate struct {
	Type string          `json:"type"`
	Data PriceUpdateData `json:"data"`
}

type PriceUpdateData struct {
	PropertyID         uint    `json:"property_id"`
	PropertyTitle      string  `json:"property_title"`
	OldPrice           float64 `json:"old_price"`
	NewPrice           float64 `json:"new_price"`
	PriceChange        float64 `json:"price_change"`
	PriceChangePercent float64 `json:"price_change_percent"`
}
