package controller

import (
	"log"
	"strconv"
	"time"

	"casalink/models"
	"casalink/realtime"
	"casalink/utils"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ConversationController struct {
	DB     *gorm.DB
	Hub    *realtime.Hub
	Logger *log.Logger
}

func NewConversationController(db *gorm.DB, hub *realtime.Hub, logger *log.Logger) *ConversationController {
	return &ConversationController{
		DB:     db,
		Hub:    hub,
		Logger: logger,
	}
}

type conversationSummary struct {
	ID            uint       `json:"id"`
	LeadID        uint       `json:"lead_id"`
	LeadName      string     `json:"lead_name"`
	IsArchived    bool       `json:"is_archived"`
	IsRead        bool       `json:"is_read"`
	UnreadCount   int        `json:"unread_count"`
	AssignedTo    *uint      `json:"assigned_to,omitempty"`
	LastMessage   *string    `json:"last_message,omitempty"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// GetConversations lists conversations most-recent-activity-first with a
// preview of the last message
func (cc *ConversationController) GetConversations(c *fiber.Ctx) error {
	query := cc.DB.Preload("Lead").Order("updated_at DESC")

	if archived := c.Query("archived"); archived != "" {
		query = query.Where("is_archived = ?", archived == "true")
	}

	var conversations []models.Conversation
	if err := query.Find(&conversations).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch conversations", err)
	}

	summaries := make([]conversationSummary, 0, len(conversations))
	for i := range conversations {
		conv := &conversations[i]
		summary := conversationSummary{
			ID:          conv.ID,
			LeadID:      conv.LeadID,
			LeadName:    conv.Lead.Name,
			IsArchived:  conv.IsArchived,
			IsRead:      conv.IsRead,
			UnreadCount: conv.UnreadCount,
			AssignedTo:  conv.AssignedTo,
			UpdatedAt:   conv.UpdatedAt,
		}

		var last models.Message
		if err := cc.DB.Where("conversation_id = ?", conv.ID).
			Order("created_at DESC, id DESC").
			First(&last).Error; err == nil {
			summary.LastMessage = utils.Pointer(last.Content)
			summary.LastMessageAt = utils.Pointer(last.CreatedAt)
		}
		summaries = append(summaries, summary)
	}

	return c.JSON(utils.SuccessResponse(summaries))
}

// GetMessages returns the full transcript of one conversation oldest-first
func (cc *ConversationController) GetMessages(c *fiber.Ctx) error {
	conversationID := utils.ParseUint(c.Params("id"))

	var conversation models.Conversation
	if err := cc.DB.First(&conversation, conversationID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Conversation not found", nil)
	}

	var messages []models.Message
	if err := cc.DB.Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&messages).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch messages", err)
	}
	return c.JSON(utils.SuccessResponse(messages))
}

type operatorMessageInput struct {
	Content    string `json:"content" validate:"required"`
	SenderType string `json:"sender_type" validate:"omitempty,oneof=operator system"`
}

// SendMessage posts an operator (or system) message into a conversation and
// fans it out. Operator messages do not touch the unread counter; that
// tracks visitor messages only.
func (cc *ConversationController) SendMessage(c *fiber.Ctx) error {
	var input operatorMessageInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}
	if input.SenderType == "" {
		input.SenderType = models.SenderOperator
	}

	var conversation models.Conversation
	if err := cc.DB.First(&conversation, utils.ParseUint(c.Params("id"))).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Conversation not found", nil)
	}

	msg := models.Message{
		ConversationID: conversation.ID,
		SenderType:     input.SenderType,
		Content:        input.Content,
		Status:         models.MessageSent,
		MessageType:    models.MessageTypeText,
	}

	err := cc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}
		// Keep the list ordering fresh even though read state is untouched
		conversation.UpdatedAt = time.Now().UTC()
		return tx.Save(&conversation).Error
	})
	if err != nil {
		sentry.CaptureException(err)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to send message", err)
	}

	EmitNewMessage(cc.Hub, &msg)
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(MessagePayload(&msg)))
}

// MarkRead zeroes the unread counter, sets the read flag and transitions
// every unread visitor message to "read" with a timestamp. The counter and
// the flag always change together.
func (cc *ConversationController) MarkRead(c *fiber.Ctx) error {
	var conversation models.Conversation
	if err := cc.DB.First(&conversation, utils.ParseUint(c.Params("id"))).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Conversation not found", nil)
	}

	err := cc.DB.Transaction(func(tx *gorm.DB) error {
		conversation.MarkRead()
		if err := tx.Save(&conversation).Error; err != nil {
			return err
		}
		return models.MarkMessagesRead(tx, conversation.ID)
	})
	if err != nil {
		sentry.CaptureException(err)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to mark conversation read", err)
	}

	cc.Hub.SendToConversation(strconv.FormatUint(uint64(conversation.ID), 10), realtime.MessagesRead{
		Type:           realtime.EventMessagesRead,
		ConversationID: conversation.ID,
	})

	return c.JSON(utils.SuccessResponse(conversation))
}

type archiveInput struct {
	Archived bool `json:"archived"`
}

// Archive toggles the archived flag. Read state and the unread counter are
// deliberately left alone.
func (cc *ConversationController) Archive(c *fiber.Ctx) error {
	var input archiveInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	var conversation models.Conversation
	if err := cc.DB.First(&conversation, utils.ParseUint(c.Params("id"))).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Conversation not found", nil)
	}

	conversation.SetArchived(input.Archived)
	if err := cc.DB.Save(&conversation).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update conversation", err)
	}

	cc.emitConversationUpdated(&conversation)
	return c.JSON(utils.SuccessResponse(conversation))
}

type assignInput struct {
	UserID *uint `json:"user_id"`
}

// Assign sets or clears the operator assignment without affecting
// read/unread/archive state
func (cc *ConversationController) Assign(c *fiber.Ctx) error {
	var input assignInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	var conversation models.Conversation
	if err := cc.DB.First(&conversation, utils.ParseUint(c.Params("id"))).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Conversation not found", nil)
	}

	if input.UserID != nil {
		var user models.User
		if err := cc.DB.First(&user, *input.UserID).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "User not found", nil)
		}
	}

	conversation.Assign(input.UserID)
	if err := cc.DB.Save(&conversation).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update conversation", err)
	}

	cc.emitConversationUpdated(&conversation)
	return c.JSON(utils.SuccessResponse(conversation))
}

func (cc *ConversationController) emitConversationUpdated(conversation *models.Conversation) {
	cc.Hub.SendToConversation(strconv.FormatUint(uint64(conversation.ID), 10), realtime.ConversationUpdated{
		Type:           realtime.EventConversation,
		ConversationID: conversation.ID,
		IsArchived:     conversation.IsArchived,
		AssignedTo:     conversation.AssignedTo,
	})
}
