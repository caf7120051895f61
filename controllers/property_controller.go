package controller

import (
	"log"
	"math"
	"strconv"

	"casalink/models"
	"casalink/realtime"
	"casalink/utils"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type PropertyController struct {
	DB     *gorm.DB
	Hub    *realtime.Hub
	Logger *log.Logger
}

func NewPropertyController(db *gorm.DB, hub *realtime.Hub, logger *log.Logger) *PropertyController {
	return &PropertyController{
		DB:     db,
		Hub:    hub,
		Logger: logger,
	}
}

type propertyInput struct {
	Title       string   `json:"title" validate:"required,max=255"`
	Description string   `json:"description"`
	Price       float64  `json:"price" validate:"required,gt=0"`
	Status      string   `json:"status" validate:"omitempty,oneof=available reserved sold"`
	Address     string   `json:"address" validate:"omitempty,max=255"`
	City        string   `json:"city" validate:"omitempty,max=100"`
	State       string   `json:"state" validate:"omitempty,max=100"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Bedrooms    int      `json:"bedrooms" validate:"gte=0"`
	Bathrooms   int      `json:"bathrooms" validate:"gte=0"`
	Area        float64  `json:"area" validate:"gte=0"`
}

// CreateProperty registers a new listing
func (pc *PropertyController) CreateProperty(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input propertyInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	status := input.Status
	if status == "" {
		status = models.PropertyAvailable
	}

	property := models.Property{
		UserID:      user.ID,
		Title:       input.Title,
		Description: input.Description,
		Price:       input.Price,
		Status:      status,
		Address:     input.Address,
		City:        input.City,
		State:       input.State,
		Latitude:    input.Latitude,
		Longitude:   input.Longitude,
		Bedrooms:    input.Bedrooms,
		Bathrooms:   input.Bathrooms,
		Area:        input.Area,
	}
	if err := pc.DB.Create(&property).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create property", err)
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(property))
}

// GetProperties lists properties with simple filters and pagination
func (pc *PropertyController) GetProperties(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := pc.DB.Model(&models.Property{})
	if city := c.Query("city"); city != "" {
		query = query.Where("city = ?", city)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if minPrice := c.Query("min_price"); minPrice != "" {
		if v, err := strconv.ParseFloat(minPrice, 64); err == nil {
			query = query.Where("price >= ?", v)
		}
	}
	if maxPrice := c.Query("max_price"); maxPrice != "" {
		if v, err := strconv.ParseFloat(maxPrice, 64); err == nil {
			query = query.Where("price <= ?", v)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to count properties", err)
	}

	var properties []models.Property
	if err := query.Preload("Images").Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&properties).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch properties", err)
	}

	return c.JSON(utils.PaginatedResponse{Data: properties, Total: total, Page: page, Limit: limit})
}

// GetProperty returns one listing with its gallery
func (pc *PropertyController) GetProperty(c *fiber.Ctx) error {
	var property models.Property
	if err := pc.DB.Preload("Images").First(&property, utils.ParseUint(c.Params("id"))).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Property not found", nil)
	}
	return c.JSON(utils.SuccessResponse(property))
}

type propertyUpdateInput struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	Status      *string  `json:"status"`
	City        *string  `json:"city"`
	State       *string  `json:"state"`
	Bedrooms    *int     `json:"bedrooms"`
	Bathrooms   *int     `json:"bathrooms"`
	Area        *float64 `json:"area"`
}

// UpdateProperty applies a partial update. A price change creates a
// PriceAlert for every user that favorited the listing and fans a
// price_update notification out to their user channels.
func (pc *PropertyController) UpdateProperty(c *fiber.Ctx) error {
	var input propertyUpdateInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	var property models.Property
	if err := pc.DB.First(&property, utils.ParseUint(c.Params("id"))).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Property not found", nil)
	}

	if input.Price != nil && *input.Price <= 0 {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Price must be positive", nil)
	}
	if input.Status != nil {
		switch *input.Status {
		case models.PropertyAvailable, models.PropertyReserved, models.PropertySold:
		default:
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid status", nil)
		}
		property.Status = *input.Status
	}

	oldPrice := property.Price
	priceChanged := input.Price != nil && *input.Price != oldPrice

	if input.Title != nil {
		property.Title = *input.Title
	}
	if input.Description != nil {
		property.Description = *input.Description
	}
	if input.Price != nil {
		property.Price = *input.Price
	}
	if input.City != nil {
		property.City = *input.City
	}
	if input.State != nil {
		property.State = *input.State
	}
	if input.Bedrooms != nil {
		property.Bedrooms = *input.Bedrooms
	}
	if input.Bathrooms != nil {
		property.Bathrooms = *input.Bathrooms
	}
	if input.Area != nil {
		property.Area = *input.Area
	}

	var favorites []models.Favorite
	err := pc.DB.Transaction(func(tx *gorm.DB) error {
		if priceChanged {
			if err := tx.Where("property_id = ?", property.ID).Find(&favorites).Error; err != nil {
				return err
			}
			for _, favorite := range favorites {
				alert := models.PriceAlert{
					UserID:     favorite.UserID,
					PropertyID: property.ID,
					OldPrice:   oldPrice,
					NewPrice:   property.Price,
				}
				if err := tx.Create(&alert).Error; err != nil {
					return err
				}
			}
		}
		return tx.Save(&property).Error
	})
	if err != nil {
		sentry.CaptureException(err)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update property", err)
	}

	if priceChanged {
		change := property.Price - oldPrice
		percent := 0.0
		if oldPrice != 0 {
			percent = math.Round(change/oldPrice*10000) / 100
		}
		event := realtime.PriceUpdate{
			Type: realtime.EventPriceUpdate,
			Data: realtime.PriceUpdateData{
				PropertyID:         property.ID,
				PropertyTitle:      property.Title,
				OldPrice:           oldPrice,
				NewPrice:           property.Price,
				PriceChange:        change,
				PriceChangePercent: percent,
			},
		}
		for _, favorite := range favorites {
			pc.Hub.SendToUser(strconv.FormatUint(uint64(favorite.UserID), 10), event)
		}
		logrus.WithFields(logrus.Fields{
			"property_id": property.ID,
			"old_price":   oldPrice,
			"new_price":   property.Price,
			"notified":    len(favorites),
		}).Info("price change notifications sent")
	}

	return c.JSON(utils.SuccessResponse(property))
}

// DeleteProperty removes a listing (soft delete via gorm.Model)
func (pc *PropertyController) DeleteProperty(c *fiber.Ctx) error {
	var property models.Property
	if err := pc.DB.First(&property, utils.ParseUint(c.Params("id"))).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Property not found", nil)
	}
	if err := pc.DB.Delete(&property).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete property", err)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"deleted": true}))
}
