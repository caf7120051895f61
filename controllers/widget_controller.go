package controller

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"casalink/config"
	"casalink/models"
	"casalink/realtime"
	"casalink/utils"

	"github.com/badoux/checkmail"
	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type WidgetController struct {
	DB     *gorm.DB
	Hub    *realtime.Hub
	Logger *log.Logger
}

func NewWidgetController(db *gorm.DB, hub *realtime.Hub, logger *log.Logger) *WidgetController {
	return &WidgetController{
		DB:     db,
		Hub:    hub,
		Logger: logger,
	}
}

type widgetStartInput struct {
	Name          string `json:"name" validate:"required,max=255"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone" validate:"omitempty,max=20"`
	PropertyID    *uint  `json:"property_id"`
	PropertyTitle string `json:"property_title" validate:"omitempty,max=255"`
	PropertyURL   string `json:"property_url" validate:"omitempty,max=500"`
	UTMSource     string `json:"utm_source" validate:"omitempty,max=100"`
	UTMMedium     string `json:"utm_medium" validate:"omitempty,max=100"`
	UTMCampaign   string `json:"utm_campaign" validate:"omitempty,max=100"`
}

// seedMessageContent builds the deterministic first message that opens a
// widget conversation on the visitor's behalf.
func seedMessageContent(input widgetStartInput) string {
	content := fmt.Sprintf("Olá! Meu nome é %s", input.Name)
	if input.PropertyTitle != "" {
		content += fmt.Sprintf(" e tenho interesse no imóvel: %s", input.PropertyTitle)
	}
	if input.PropertyURL != "" {
		content += fmt.Sprintf(" (%s)", input.PropertyURL)
	}
	return content
}

// GetBotSettings loads the singleton auto-responder configuration, falling
// back to defaults when the row is missing
func GetBotSettings(db *gorm.DB) models.BotSettings {
	var bot models.BotSettings
	if err := db.First(&bot, 1).Error; err != nil {
		return models.BotSettings{
			ID:             1,
			WelcomeMessage: "Olá! Como posso te ajudar?",
			AwayMessage:    "Estamos fora do horário. Responderei em breve!",
			Enabled:        true,
			AwayEnabled:    true,
			BusinessStart:  8,
			BusinessEnd:    18,
		}
	}
	return bot
}

// StartChat resolves an anonymous visitor into a lead and an active
// conversation. Everything is persisted in one transaction before any
// fan-out: a new conversation is never announced without its seed message.
func (wc *WidgetController) StartChat(c *fiber.Ctx) error {
	var input widgetStartInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}
	if err := checkmail.ValidateFormat(input.Email); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid email address", err)
	}

	ip := utils.ClientIP(c)
	geo := utils.ResolveGeo(ip)

	var (
		lead         models.Lead
		conversation models.Conversation
		seedMsg      models.Message
		welcomeMsg   *models.Message
		isNew        bool
	)

	bot := GetBotSettings(wc.DB)

	err := wc.DB.Transaction(func(tx *gorm.DB) error {
		// Deduplicate by exact email match on the stored value
		err := tx.Where("email = ?", input.Email).First(&lead).Error
		switch {
		case err == gorm.ErrRecordNotFound:
			lead = models.Lead{
				Name:          input.Name,
				Email:         input.Email,
				Phone:         input.Phone,
				Status:        models.LeadStatusNew,
				Source:        models.LeadSourceWidget,
				PropertyID:    input.PropertyID,
				PropertyTitle: input.PropertyTitle,
				PropertyURL:   input.PropertyURL,
				IP:            ip,
				City:          geo.City,
				State:         geo.State,
				UTMSource:     input.UTMSource,
				UTMMedium:     input.UTMMedium,
				UTMCampaign:   input.UTMCampaign,
			}
			if err := tx.Create(&lead).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			// Merge newly supplied fields; geography is only filled in when
			// it was previously empty.
			if input.PropertyTitle != "" {
				lead.PropertyID = input.PropertyID
				lead.PropertyTitle = input.PropertyTitle
				lead.PropertyURL = input.PropertyURL
			}
			if lead.City == "" && geo.City != "" {
				lead.City = geo.City
				lead.State = geo.State
			}
			if input.UTMSource != "" {
				lead.UTMSource = input.UTMSource
				lead.UTMMedium = input.UTMMedium
				lead.UTMCampaign = input.UTMCampaign
			}
			if err := tx.Save(&lead).Error; err != nil {
				return err
			}
		}

		// Reuse the most recent non-archived conversation if there is one
		err = tx.Where("lead_id = ? AND is_archived = ?", lead.ID, false).
			Order("created_at DESC").
			First(&conversation).Error
		if err == gorm.ErrRecordNotFound {
			isNew = true
			conversation = models.Conversation{
				LeadID:      lead.ID,
				IsArchived:  false,
				IsRead:      false,
				UnreadCount: 1,
			}
			if err := tx.Create(&conversation).Error; err != nil {
				return err
			}

			seedMsg = models.Message{
				ConversationID: conversation.ID,
				SenderType:     models.SenderVisitor,
				Content:        seedMessageContent(input),
				Status:         models.MessageSent,
				MessageType:    models.MessageTypeText,
			}
			if err := tx.Create(&seedMsg).Error; err != nil {
				return err
			}

			if bot.Enabled {
				welcomeMsg = &models.Message{
					ConversationID: conversation.ID,
					SenderType:     models.SenderSystem,
					Content:        bot.WelcomeMessage,
					Status:         models.MessageSent,
					MessageType:    models.MessageTypeText,
				}
				if err := tx.Create(welcomeMsg).Error; err != nil {
					return err
				}
			}
		} else if err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		sentry.CaptureException(err)
		logrus.WithFields(logrus.Fields{"email": input.Email, "ip": ip}).
			WithError(err).Error("widget intake failed")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to start conversation", err)
	}

	if isNew {
		EmitNewMessage(wc.Hub, &seedMsg)
		if welcomeMsg != nil {
			EmitNewMessage(wc.Hub, welcomeMsg)
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"conversation_id": conversation.ID,
		"lead_id":         lead.ID,
	})
}

type widgetMessageInput struct {
	Content string `json:"content" validate:"required"`
}

// messagePreview shortens a message for the WhatsApp notification. Counts
// runes, not bytes, so accented text is never cut mid-character.
func messagePreview(content string) string {
	runes := []rune(content)
	if len(runes) > 100 {
		return string(runes[:100])
	}
	return content
}

// SendMessage persists an inbound visitor message, updates the conversation
// state and fans the message out. The auto-responder may append a single
// system reply through the same persist-then-fan-out path.
func (wc *WidgetController) SendMessage(c *fiber.Ctx) error {
	var input widgetMessageInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var conversation models.Conversation
	if err := wc.DB.First(&conversation, utils.ParseUint(c.Params("conversationID"))).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Conversation not found", nil)
	}

	bot := GetBotSettings(wc.DB)

	msg := models.Message{
		ConversationID: conversation.ID,
		SenderType:     models.SenderVisitor,
		Content:        input.Content,
		Status:         models.MessageSent,
		MessageType:    models.MessageTypeText,
	}

	var reply *models.Message
	if text := utils.AutoResponse(input.Content, bot); text != "" {
		reply = &models.Message{
			ConversationID: conversation.ID,
			SenderType:     models.SenderSystem,
			Content:        text,
			Status:         models.MessageSent,
			MessageType:    models.MessageTypeText,
		}
	}

	err := wc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}
		conversation.ApplyVisitorMessage()
		if err := tx.Save(&conversation).Error; err != nil {
			return err
		}
		if reply != nil {
			if err := tx.Create(reply).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		sentry.CaptureException(err)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to send message", err)
	}

	EmitNewMessage(wc.Hub, &msg)
	if reply != nil {
		EmitNewMessage(wc.Hub, reply)
	}

	// WhatsApp side-channel; never on the critical path
	var lead models.Lead
	if err := wc.DB.First(&lead, conversation.LeadID).Error; err == nil && lead.Phone != "" {
		go func(phone, content string) {
			utils.SendWhatsApp(phone, "Nova mensagem recebida no chat do imóvel: "+messagePreview(content))
		}(lead.Phone, input.Content)
	}

	return c.JSON(utils.SuccessResponse(MessagePayload(&msg)))
}

// Upload stores a visitor-sent file and records it as a file message
func (wc *WidgetController) Upload(c *fiber.Ctx) error {
	var conversation models.Conversation
	if err := wc.DB.First(&conversation, utils.ParseUint(c.Params("conversationID"))).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Conversation not found", nil)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "File is required", err)
	}

	uploadDir := config.AppConfig.UploadDir
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to prepare upload directory", err)
	}

	filename := uuid.New().String() + filepath.Ext(file.Filename)
	if err := c.SaveFile(file, filepath.Join(uploadDir, filename)); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to store file", err)
	}

	content := file.Filename
	if content == "" {
		content = "arquivo"
	}

	msg := models.Message{
		ConversationID: conversation.ID,
		SenderType:     models.SenderVisitor,
		Content:        content,
		Status:         models.MessageSent,
		MessageType:    models.MessageTypeFile,
		FileURL:        "/uploads/widget/" + filename,
	}

	err = wc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}
		conversation.ApplyVisitorMessage()
		return tx.Save(&conversation).Error
	})
	if err != nil {
		sentry.CaptureException(err)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to send file", err)
	}

	EmitNewMessage(wc.Hub, &msg)
	return c.JSON(utils.SuccessResponse(MessagePayload(&msg)))
}

// GetMessages returns the conversation transcript oldest-first
func (wc *WidgetController) GetMessages(c *fiber.Ctx) error {
	conversationID := utils.ParseUint(c.Params("conversationID"))

	var conversation models.Conversation
	if err := wc.DB.First(&conversation, conversationID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Conversation not found", nil)
	}

	var messages []models.Message
	if err := wc.DB.Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&messages).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch messages", err)
	}

	payloads := make([]realtime.MessagePayload, 0, len(messages))
	for i := range messages {
		payloads = append(payloads, MessagePayload(&messages[i]))
	}
	return c.JSON(utils.SuccessResponse(payloads))
}

type pushSubscribeInput struct {
	UserID       uint   `json:"user_id" validate:"required"`
	Subscription string `json:"subscription" validate:"required"`
}

// PushSubscribe stores a browser push subscription for a user
func (wc *WidgetController) PushSubscribe(c *fiber.Ctx) error {
	var input pushSubscribeInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	sub := models.PushSubscription{
		UserID:       input.UserID,
		Subscription: input.Subscription,
	}
	if err := wc.DB.Create(&sub).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to store subscription", err)
	}
	return c.JSON(fiber.Map{"ok": true})
}
