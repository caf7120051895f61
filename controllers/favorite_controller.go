package controller

import (
	"errors"
	"log"

	"casalink/models"
	"casalink/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type FavoriteController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewFavoriteController(db *gorm.DB, logger *log.Logger) *FavoriteController {
	return &FavoriteController{
		DB:     db,
		Logger: logger,
	}
}

// AddFavorite saves a property for the current user. Adding a property
// twice is accepted and returns the existing record.
func (fc *FavoriteController) AddFavorite(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	propertyID := utils.ParseUint(c.Params("propertyId"))

	var property models.Property
	if err := fc.DB.First(&property, propertyID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Property not found", nil)
	}

	var favorite models.Favorite
	err := fc.DB.Where("user_id = ? AND property_id = ?", user.ID, property.ID).First(&favorite).Error
	if err == nil {
		return c.JSON(utils.SuccessResponse(favorite))
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check favorite", err)
	}

	favorite = models.Favorite{UserID: user.ID, PropertyID: property.ID}
	if err := fc.DB.Create(&favorite).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to save favorite", err)
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(favorite))
}

// RemoveFavorite drops a saved property. Removing one that was never
// saved is a no-op.
func (fc *FavoriteController) RemoveFavorite(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	propertyID := utils.ParseUint(c.Params("propertyId"))

	if err := fc.DB.Where("user_id = ? AND property_id = ?", user.ID, propertyID).
		Delete(&models.Favorite{}).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to remove favorite", err)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"removed": true}))
}

// GetFavorites lists the current user's saved properties
func (fc *FavoriteController) GetFavorites(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var favorites []models.Favorite
	if err := fc.DB.Preload("Property").Preload("Property.Images").
		Where("user_id = ?", user.ID).Order("created_at DESC").
		Find(&favorites).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch favorites", err)
	}
	return c.JSON(utils.SuccessResponse(favorites))
}

// GetPriceAlerts lists price change alerts for the current user
func (fc *FavoriteController) GetPriceAlerts(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	query := fc.DB.Where("user_id = ?", user.ID)
	if c.Query("unread") == "true" {
		query = query.Where("is_read = ?", false)
	}

	var alerts []models.PriceAlert
	if err := query.Order("created_at DESC").Limit(100).Find(&alerts).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch alerts", err)
	}
	return c.JSON(utils.SuccessResponse(alerts))
}

// MarkAlertsRead flags all of the current user's alerts as read
func (fc *FavoriteController) MarkAlertsRead(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	if err := fc.DB.Model(&models.PriceAlert{}).
		Where("user_id = ? AND is_read = ?", user.ID, false).
		Update("is_read", true).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update alerts", err)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"updated": true}))
}
