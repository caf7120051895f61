package controller

import (
	"encoding/json"
	"log"
	"strconv"

	"casalink/models"
	"casalink/realtime"
	"casalink/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"gorm.io/gorm"
)

// CloseSubjectNotFound is the close code sent when the handshake subject
// (user or conversation) does not resolve to an existing record. A hard
// close, not a retryable soft error.
const CloseSubjectNotFound = 4004

type WSController struct {
	DB     *gorm.DB
	Hub    *realtime.Hub
	Logger *log.Logger
}

func NewWSController(db *gorm.DB, hub *realtime.Hub, logger *log.Logger) *WSController {
	return &WSController{
		DB:     db,
		Hub:    hub,
		Logger: logger,
	}
}

// inboundFrame is the only structured client frame the duplex endpoints
// accept. Anything that fails to parse is ignored to preserve liveness.
type inboundFrame struct {
	Type       string `json:"type"`
	Timestamp  int64  `json:"timestamp,omitempty"`
	SenderType string `json:"sender_type,omitempty"`
}

// HandleUserWS services a per-user notification connection: presence,
// price alerts and conversation-list updates.
func (wc *WSController) HandleUserWS(c *websocket.Conn) {
	var user models.User
	if err := wc.DB.First(&user, utils.ParseUint(c.Params("id"))).Error; err != nil {
		_ = c.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(CloseSubjectNotFound, "user not found"))
		_ = c.Close()
		return
	}

	// Register under the canonical decimal form so fan-outs keyed by the
	// stored ID always reach this connection, whatever the path said
	userID := strconv.FormatUint(uint64(user.ID), 10)

	client := realtime.NewClient(c)
	wc.Hub.RegisterUser(userID, client)
	defer func() {
		wc.Hub.UnregisterUser(userID, client)
		_ = c.Close()
	}()

	if err := client.Send(realtime.ConnectionAck{
		Type:    realtime.EventConnection,
		Message: "Conectado para notificações",
		UserID:  userID,
	}); err != nil {
		return
	}

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		if frame.Type == "ping" {
			if err := client.Send(realtime.Pong{
				Type:      realtime.EventPong,
				Timestamp: frame.Timestamp,
			}); err != nil {
				return
			}
		}
	}
}

// HandleConversationWS services a per-conversation chat connection:
// transcript events, typing indicators and read receipts.
func (wc *WSController) HandleConversationWS(c *websocket.Conn) {
	var conversation models.Conversation
	if err := wc.DB.First(&conversation, utils.ParseUint(c.Params("id"))).Error; err != nil {
		_ = c.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(CloseSubjectNotFound, "conversation not found"))
		_ = c.Close()
		return
	}

	conversationID := strconv.FormatUint(uint64(conversation.ID), 10)

	client := realtime.NewClient(c)
	wc.Hub.RegisterConversation(conversationID, client)
	defer func() {
		wc.Hub.UnregisterConversation(conversationID, client)
		_ = c.Close()
	}()

	if err := client.Send(realtime.ConnectionAck{
		Type:           realtime.EventConnection,
		Message:        "Conectado na conversa",
		ConversationID: conversationID,
	}); err != nil {
		return
	}

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		if frame.Type == "typing" {
			senderType := frame.SenderType
			if senderType == "" {
				senderType = "unknown"
			}
			wc.Hub.SendToConversation(conversationID, realtime.UserTyping{
				Type:       realtime.EventUserTyping,
				SenderType: senderType,
			})
		}
	}
}

// Status reports currently-connected keys and the presence set. For
// operational visibility only.
func (wc *WSController) Status(c *fiber.Ctx) error {
	return c.JSON(wc.Hub.Status())
}

// MessagePayload builds the wire form of a persisted message
func MessagePayload(msg *models.Message) realtime.MessagePayload {
	return realtime.MessagePayload{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderType:     msg.SenderType,
		Content:        msg.Content,
		Status:         msg.Status,
		MessageType:    msg.MessageType,
		FileURL:        msg.FileURL,
		CreatedAt:      msg.CreatedAt,
	}
}

// EmitNewMessage fans a persisted message out to the conversation's
// subscribers. Callers must have committed the message first.
func EmitNewMessage(hub *realtime.Hub, msg *models.Message) {
	hub.SendToConversation(strconv.FormatUint(uint64(msg.ConversationID), 10), realtime.NewMessage{
		Type:    realtime.EventNewMessage,
		Message: MessagePayload(msg),
	})
}
