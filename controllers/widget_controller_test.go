package controller

import (
	"strings"
	"testing"
	"unicode/utf8"

	"casalink/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newWidgetApp(t *testing.T, db *gorm.DB) *fiber.App {
	t.Helper()
	wc := NewWidgetController(db, newTestHub(), newTestLogger())

	app := fiber.New()
	app.Post("/start", wc.StartChat)
	app.Post("/conversations/:conversationID/messages", wc.SendMessage)
	app.Get("/conversations/:conversationID/messages", wc.GetMessages)
	return app
}

// disableBot turns both the welcome and away responders off so message
// flow tests are independent of the wall clock
func disableBot(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, db.Model(&models.BotSettings{}).Where("id = ?", 1).
		Updates(map[string]interface{}{"enabled": false, "away_enabled": false}).Error)
}

type startResponse struct {
	ConversationID uint `json:"conversation_id"`
	LeadID         uint `json:"lead_id"`
}

func TestStartChatCreatesLeadConversationAndSeedMessage(t *testing.T) {
	db := newTestDB(t)
	app := newWidgetApp(t, db)

	var out startResponse
	resp := doJSON(t, app, "POST", "/start", fiber.Map{
		"name":           "Maria Souza",
		"email":          "maria@example.com",
		"phone":          "11999998888",
		"property_title": "Apartamento Vila Mariana",
		"property_url":   "https://example.com/imoveis/42",
	}, &out)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.NotZero(t, out.ConversationID)
	require.NotZero(t, out.LeadID)

	var lead models.Lead
	require.NoError(t, db.First(&lead, out.LeadID).Error)
	assert.Equal(t, "Maria Souza", lead.Name)
	assert.Equal(t, models.LeadStatusNew, lead.Status)
	assert.Equal(t, models.LeadSourceWidget, lead.Source)
	assert.Equal(t, "Apartamento Vila Mariana", lead.PropertyTitle)

	var conversation models.Conversation
	require.NoError(t, db.First(&conversation, out.ConversationID).Error)
	assert.Equal(t, out.LeadID, conversation.LeadID)
	assert.Equal(t, 1, conversation.UnreadCount)
	assert.False(t, conversation.IsRead)
	assert.False(t, conversation.IsArchived)

	// Seed message from the visitor plus the bot welcome
	var messages []models.Message
	require.NoError(t, db.Where("conversation_id = ?", conversation.ID).
		Order("id ASC").Find(&messages).Error)
	require.Len(t, messages, 2)
	assert.Equal(t, models.SenderVisitor, messages[0].SenderType)
	assert.Equal(t,
		"Olá! Meu nome é Maria Souza e tenho interesse no imóvel: Apartamento Vila Mariana (https://example.com/imoveis/42)",
		messages[0].Content)
	assert.Equal(t, models.SenderSystem, messages[1].SenderType)
}

func TestStartChatWithoutPropertyOmitsPropertySuffix(t *testing.T) {
	db := newTestDB(t)
	app := newWidgetApp(t, db)

	var out startResponse
	resp := doJSON(t, app, "POST", "/start", fiber.Map{
		"name":  "João",
		"email": "joao@example.com",
	}, &out)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var seed models.Message
	require.NoError(t, db.Where("conversation_id = ? AND sender_type = ?",
		out.ConversationID, models.SenderVisitor).First(&seed).Error)
	assert.Equal(t, "Olá! Meu nome é João", seed.Content)
}

func TestStartChatReusesLeadAndOpenConversation(t *testing.T) {
	db := newTestDB(t)
	app := newWidgetApp(t, db)

	var first startResponse
	doJSON(t, app, "POST", "/start", fiber.Map{
		"name":  "Ana",
		"email": "ana@example.com",
	}, &first)

	var second startResponse
	resp := doJSON(t, app, "POST", "/start", fiber.Map{
		"name":           "Ana Clara",
		"email":          "ana@example.com",
		"property_title": "Casa Moema",
	}, &second)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	assert.Equal(t, first.LeadID, second.LeadID)
	assert.Equal(t, first.ConversationID, second.ConversationID)

	// Returning with a property fills it in on the existing lead
	var lead models.Lead
	require.NoError(t, db.First(&lead, first.LeadID).Error)
	assert.Equal(t, "Casa Moema", lead.PropertyTitle)

	// No second seed or welcome message on reuse
	var count int64
	require.NoError(t, db.Model(&models.Message{}).
		Where("conversation_id = ?", first.ConversationID).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestStartChatArchivedConversationGetsAFreshOne(t *testing.T) {
	db := newTestDB(t)
	app := newWidgetApp(t, db)

	var first startResponse
	doJSON(t, app, "POST", "/start", fiber.Map{
		"name":  "Pedro",
		"email": "pedro@example.com",
	}, &first)

	require.NoError(t, db.Model(&models.Conversation{}).
		Where("id = ?", first.ConversationID).
		Update("is_archived", true).Error)

	var second startResponse
	doJSON(t, app, "POST", "/start", fiber.Map{
		"name":  "Pedro",
		"email": "pedro@example.com",
	}, &second)

	assert.Equal(t, first.LeadID, second.LeadID)
	assert.NotEqual(t, first.ConversationID, second.ConversationID)
}

func TestStartChatRejectsInvalidInput(t *testing.T) {
	db := newTestDB(t)
	app := newWidgetApp(t, db)

	resp := doJSON(t, app, "POST", "/start", fiber.Map{"name": "Sem Email"}, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, app, "POST", "/start", fiber.Map{
		"name":  "Email Ruim",
		"email": "not-an-email",
	}, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var count int64
	require.NoError(t, db.Model(&models.Lead{}).Count(&count).Error)
	assert.Zero(t, count, "rejected intake must not persist anything")
}

func TestWidgetSendMessageBumpsUnreadCount(t *testing.T) {
	db := newTestDB(t)
	disableBot(t, db)
	app := newWidgetApp(t, db)

	var start startResponse
	doJSON(t, app, "POST", "/start", fiber.Map{
		"name":  "Lia",
		"email": "lia@example.com",
	}, &start)

	target := "/conversations/" + itoa(start.ConversationID) + "/messages"
	resp := doJSON(t, app, "POST", target, fiber.Map{"content": "Ainda está disponível?"}, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var conversation models.Conversation
	require.NoError(t, db.First(&conversation, start.ConversationID).Error)
	assert.Equal(t, 2, conversation.UnreadCount) // seed + this message
	assert.False(t, conversation.IsRead)

	// Bot disabled, so no system reply was appended
	var count int64
	require.NoError(t, db.Model(&models.Message{}).
		Where("conversation_id = ? AND sender_type = ?", start.ConversationID, models.SenderSystem).
		Count(&count).Error)
	assert.Zero(t, count)
}

func TestMessagePreviewCountsRunes(t *testing.T) {
	short := "Olá, tudo bem?"
	assert.Equal(t, short, messagePreview(short))

	long := strings.Repeat("ã", 150)
	preview := messagePreview(long)
	assert.Equal(t, strings.Repeat("ã", 100), preview)
	assert.True(t, utf8.ValidString(preview))
}

func TestWidgetSendMessageUnknownConversation(t *testing.T) {
	db := newTestDB(t)
	app := newWidgetApp(t, db)

	resp := doJSON(t, app, "POST", "/conversations/9999/messages", fiber.Map{"content": "oi"}, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
