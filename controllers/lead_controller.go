package controller

import (
	"log"
	"strconv"
	"strings"
	"time"

	"casalink/models"
	"casalink/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type LeadController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewLeadController(db *gorm.DB, logger *log.Logger) *LeadController {
	return &LeadController{
		DB:     db,
		Logger: logger,
	}
}

// CreateLead registers a lead through manual entry
func (lc *LeadController) CreateLead(c *fiber.Ctx) error {
	var input struct {
		Name       string `json:"name" validate:"required,max=255"`
		Email      string `json:"email" validate:"required,email"`
		Phone      string `json:"phone" validate:"omitempty,max=20"`
		Source     string `json:"source" validate:"omitempty,max=100"`
		PropertyID *uint  `json:"property_id"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	// Check if lead already exists
	var existing models.Lead
	if err := lc.DB.Where("email = ?", input.Email).First(&existing).Error; err == nil {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Lead with this email already exists", nil)
	}

	if input.PropertyID != nil {
		var property models.Property
		if err := lc.DB.First(&property, *input.PropertyID).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Property not found", nil)
		}
	}

	source := input.Source
	if source == "" {
		source = "manual"
	}

	lead := models.Lead{
		Name:       input.Name,
		Email:      input.Email,
		Phone:      input.Phone,
		Status:     models.LeadStatusNew,
		Source:     source,
		PropertyID: input.PropertyID,
	}
	if err := lc.DB.Create(&lead).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create lead", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(lead))
}

// GetLeads returns a paginated list of leads with filters
func (lc *LeadController) GetLeads(c *fiber.Ctx) error {
	// Pagination
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	offset := (page - 1) * limit

	query := lc.DB.Model(&models.Lead{})

	if status := c.Query("status"); status != "" {
		if !models.ValidLeadStatus(status) {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid status", nil)
		}
		query = query.Where("status = ?", status)
	}
	if propertyID := c.Query("property_id"); propertyID != "" {
		query = query.Where("property_id = ?", utils.ParseUint(propertyID))
	}
	if archived := c.Query("archived"); archived != "" {
		query = query.Where("is_archived = ?", archived == "true")
	}
	if search := c.Query("search"); search != "" {
		term := "%" + strings.TrimSpace(search) + "%"
		query = query.Where("name ILIKE ? OR email ILIKE ? OR phone ILIKE ?", term, term, term)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to count leads", err)
	}

	var leads []models.Lead
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&leads).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch leads", err)
	}

	return c.JSON(utils.PaginatedResponse{
		Data:  leads,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// GetLead returns one lead with its property of interest and conversations
func (lc *LeadController) GetLead(c *fiber.Ctx) error {
	var lead models.Lead
	if err := lc.DB.Preload("Property").Preload("Conversations").
		First(&lead, utils.ParseUint(c.Params("id"))).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", nil)
	}
	return c.JSON(utils.SuccessResponse(lead))
}

// UpdateLead handles status updates, archival and conversion. The core
// never hard-deletes a lead; archival is the only removal path.
func (lc *LeadController) UpdateLead(c *fiber.Ctx) error {
	var input struct {
		Status     *string `json:"status"`
		IsArchived *bool   `json:"is_archived"`
		Convert    *bool   `json:"convert"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	var lead models.Lead
	if err := lc.DB.First(&lead, utils.ParseUint(c.Params("id"))).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", nil)
	}

	if input.Status != nil {
		if !models.ValidLeadStatus(*input.Status) {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid status", nil)
		}
		lead.Status = *input.Status
	}
	if input.IsArchived != nil {
		lead.IsArchived = *input.IsArchived
	}
	if input.Convert != nil && *input.Convert {
		lead.Status = models.LeadStatusClosed
		lead.ConvertedAt = utils.Pointer(time.Now().UTC())
	}

	if err := lc.DB.Save(&lead).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update lead", err)
	}
	return c.JSON(utils.SuccessResponse(lead))
}
