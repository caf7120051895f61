package controller

import (
	"log"
	"time"

	"casalink/models"
	"casalink/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type DashboardController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewDashboardController(db *gorm.DB, logger *log.Logger) *DashboardController {
	return &DashboardController{
		DB:     db,
		Logger: logger,
	}
}

type dashboardStats struct {
	TotalLeads          int64            `json:"total_leads"`
	LeadsByStatus       map[string]int64 `json:"leads_by_status"`
	UnreadConversations int64            `json:"unread_conversations"`
	TotalProperties     int64            `json:"total_properties"`
	RecentLeads         []models.Lead    `json:"recent_leads"`
	LeadsOverTime       []leadsPerDay    `json:"leads_over_time"`
}

type leadsPerDay struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}

// GetStats aggregates the numbers shown on the broker dashboard
func (dc *DashboardController) GetStats(c *fiber.Ctx) error {
	stats := dashboardStats{
		LeadsByStatus: make(map[string]int64),
	}

	if err := dc.DB.Model(&models.Lead{}).Where("is_archived = ?", false).
		Count(&stats.TotalLeads).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load dashboard", err)
	}

	type statusCount struct {
		Status string
		Count  int64
	}
	var byStatus []statusCount
	if err := dc.DB.Model(&models.Lead{}).
		Select("status, COUNT(*) as count").
		Where("is_archived = ?", false).
		Group("status").Scan(&byStatus).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load dashboard", err)
	}
	for _, row := range byStatus {
		stats.LeadsByStatus[row.Status] = row.Count
	}

	if err := dc.DB.Model(&models.Conversation{}).
		Where("is_read = ? AND is_archived = ?", false, false).
		Count(&stats.UnreadConversations).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load dashboard", err)
	}

	if err := dc.DB.Model(&models.Property{}).Count(&stats.TotalProperties).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load dashboard", err)
	}

	if err := dc.DB.Where("is_archived = ?", false).
		Order("created_at DESC").Limit(5).
		Find(&stats.RecentLeads).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load dashboard", err)
	}

	// Last 30 days of lead volume, grouped by calendar day
	since := time.Now().UTC().AddDate(0, 0, -30)
	var overTime []leadsPerDay
	if err := dc.DB.Model(&models.Lead{}).
		Select("DATE(created_at) as day, COUNT(*) as count").
		Where("created_at >= ?", since).
		Group("DATE(created_at)").Order("day ASC").
		Scan(&overTime).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load dashboard", err)
	}
	stats.LeadsOverTime = overTime

	return c.JSON(utils.SuccessResponse(stats))
}
