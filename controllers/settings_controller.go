package controller

import (
	"log"

	"casalink/models"
	"casalink/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SettingsController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewSettingsController(db *gorm.DB, logger *log.Logger) *SettingsController {
	return &SettingsController{
		DB:     db,
		Logger: logger,
	}
}

// GetUserSettings returns the current user's preferences, creating the
// row with defaults on first access
func (sc *SettingsController) GetUserSettings(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	settings := models.UserSettings{UserID: user.ID}
	if err := sc.DB.FirstOrCreate(&settings, "user_id = ?", user.ID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load settings", err)
	}
	return c.JSON(utils.SuccessResponse(settings))
}

type userSettingsInput struct {
	Theme                *string `json:"theme" validate:"omitempty,oneof=light dark"`
	Language             *string `json:"language" validate:"omitempty,max=10"`
	NotificationsEnabled *bool   `json:"notifications_enabled"`
	CompanyName          *string `json:"company_name"`
	CompanyPhone         *string `json:"company_phone"`
	CompanyEmail         *string `json:"company_email" validate:"omitempty,email"`
}

// UpdateUserSettings applies a partial update to the user's preferences
func (sc *SettingsController) UpdateUserSettings(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input userSettingsInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	settings := models.UserSettings{UserID: user.ID}
	if err := sc.DB.FirstOrCreate(&settings, "user_id = ?", user.ID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load settings", err)
	}

	if input.Theme != nil {
		settings.Theme = *input.Theme
	}
	if input.Language != nil {
		settings.Language = *input.Language
	}
	if input.NotificationsEnabled != nil {
		settings.NotificationsEnabled = *input.NotificationsEnabled
	}
	if input.CompanyName != nil {
		settings.CompanyName = input.CompanyName
	}
	if input.CompanyPhone != nil {
		settings.CompanyPhone = input.CompanyPhone
	}
	if input.CompanyEmail != nil {
		settings.CompanyEmail = input.CompanyEmail
	}

	if err := sc.DB.Save(&settings).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to save settings", err)
	}
	return c.JSON(utils.SuccessResponse(settings))
}

// GetBotSettings returns the widget auto-responder configuration
func (sc *SettingsController) GetBotSettings(c *fiber.Ctx) error {
	bot := GetBotSettings(sc.DB)
	return c.JSON(utils.SuccessResponse(bot))
}

type botSettingsInput struct {
	WelcomeMessage *string `json:"welcome_message" validate:"omitempty,min=1"`
	AwayMessage    *string `json:"away_message" validate:"omitempty,min=1"`
	Enabled        *bool   `json:"enabled"`
	AwayEnabled    *bool   `json:"away_enabled"`
	BusinessStart  *int    `json:"business_start" validate:"omitempty,gte=0,lte=23"`
	BusinessEnd    *int    `json:"business_end" validate:"omitempty,gte=1,lte=24"`
}

// UpdateBotSettings updates the singleton auto-responder row
func (sc *SettingsController) UpdateBotSettings(c *fiber.Ctx) error {
	var input botSettingsInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	bot := GetBotSettings(sc.DB)
	if input.WelcomeMessage != nil {
		bot.WelcomeMessage = *input.WelcomeMessage
	}
	if input.AwayMessage != nil {
		bot.AwayMessage = *input.AwayMessage
	}
	if input.Enabled != nil {
		bot.Enabled = *input.Enabled
	}
	if input.AwayEnabled != nil {
		bot.AwayEnabled = *input.AwayEnabled
	}
	if input.BusinessStart != nil {
		bot.BusinessStart = *input.BusinessStart
	}
	if input.BusinessEnd != nil {
		bot.BusinessEnd = *input.BusinessEnd
	}
	if bot.BusinessStart >= bot.BusinessEnd {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "business_start must be before business_end", nil)
	}

	bot.ID = 1
	if err := sc.DB.Save(&bot).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to save bot settings", err)
	}
	return c.JSON(utils.SuccessResponse(bot))
}

// CreateAPIKey issues a new widget installation key
func (sc *SettingsController) CreateAPIKey(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input struct {
		Name string `json:"name" validate:"required,max=100"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	key := models.APIKey{
		UserID:   user.ID,
		Name:     input.Name,
		Key:      uuid.New().String(),
		IsActive: true,
	}
	if err := sc.DB.Create(&key).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create API key", err)
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(key))
}

// GetAPIKeys lists the current user's widget keys
func (sc *SettingsController) GetAPIKeys(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var keys []models.APIKey
	if err := sc.DB.Where("user_id = ?", user.ID).Order("created_at DESC").Find(&keys).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch API keys", err)
	}
	return c.JSON(utils.SuccessResponse(keys))
}

// RevokeAPIKey deactivates a widget key without deleting it
func (sc *SettingsController) RevokeAPIKey(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var key models.APIKey
	if err := sc.DB.Where("id = ? AND user_id = ?", utils.ParseUint(c.Params("id")), user.ID).
		First(&key).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "API key not found", nil)
	}
	key.IsActive = false
	if err := sc.DB.Save(&key).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to revoke API key", err)
	}
	return c.JSON(utils.SuccessResponse(key))
}
