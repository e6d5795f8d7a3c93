package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/guildhall/tabletop/backend/internal/models"
	"github.com/guildhall/tabletop/backend/internal/services"
)

// HealthHandler provides the health check endpoint.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// CheckHealth returns the health status of all subsystems.
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"

	// Database check
	dbStatus := "ok"
	sqlDB, err := models.GetDB().DB()
	if err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	} else if err := sqlDB.Ping(); err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	}

	// Queue mode
	taskQueue := services.GetTaskQueue()
	queueMode := "sync"
	if taskQueue != nil && taskQueue.IsAsync() {
		queueMode = "async (Redis)"
	}

	// Upcoming registrable tables
	var openCount int64
	models.GetDB().Model(&models.GameTable{}).
		Where("status IN ?", []models.TableStatus{
			models.TableStatusPublished,
			models.TableStatusOpen,
			models.TableStatusFull,
		}).
		Count(&openCount)

	c.JSON(200, gin.H{
		"status":  overall,
		"service": "guildhall",
		"components": gin.H{
			"database":    dbStatus,
			"queue_mode":  queueMode,
			"open_tables": openCount,
		},
	})
}
