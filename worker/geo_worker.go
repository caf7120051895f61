package worker

import (
	"context"
	"log"
	"time"

	"casalink/models"
	"casalink/utils"

	"gorm.io/gorm"
)

// GeoWorker backfills city/state on leads that were captured with an IP
// address but no resolved location. Widget intake resolves geo inline on
// a best effort basis, so a lookup failure there just leaves the fields
// empty for this worker to pick up later.
type GeoWorker struct {
	db     *gorm.DB
	logger *log.Logger
}

func NewGeoWorker(db *gorm.DB, logger *log.Logger) *GeoWorker {
	return &GeoWorker{
		db:     db,
		logger: logger,
	}
}

func (gw *GeoWorker) Start(ctx context.Context) {
	gw.logger.Println("Starting geo backfill worker...")
	ticker := time.NewTicker(10 * time.Minute)

	for {
		select {
		case <-ticker.C:
			gw.backfill()
		case <-ctx.Done():
			gw.logger.Println("Stopping geo backfill worker...")
			ticker.Stop()
			return
		}
	}
}

func (gw *GeoWorker) backfill() {
	var leads []models.Lead
	if err := gw.db.Where("ip != '' AND city = ''").Limit(50).Find(&leads).Error; err != nil {
		gw.logger.Printf("Failed to fetch leads for geo backfill: %v", err)
		return
	}
	if len(leads) == 0 {
		return
	}

	resolved := 0
	for _, lead := range leads {
		geo := utils.ResolveGeo(lead.IP)
		if geo.City == "" {
			continue
		}
		if err := gw.db.Model(&lead).Updates(map[string]interface{}{
			"city":  geo.City,
			"state": geo.State,
		}).Error; err != nil {
			gw.logger.Printf("Failed to update lead %d: %v", lead.ID, err)
			continue
		}
		resolved++
	}
	if resolved > 0 {
		gw.logger.Printf("Geo backfill resolved %d of %d leads", resolved, len(leads))
	}
}
