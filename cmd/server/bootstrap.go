package main

import (
	"github.com/guildhall/tabletop/backend/internal/config"
	"github.com/guildhall/tabletop/backend/internal/handlers"
	"github.com/guildhall/tabletop/backend/internal/models"
	"github.com/guildhall/tabletop/backend/internal/services"
	"github.com/guildhall/tabletop/backend/internal/utils"
	"github.com/guildhall/tabletop/backend/pkg/logger"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	scheduler           *services.SchedulerService
	taskQueue           services.TaskQueue
	worker              *services.Worker
	authHandler         *handlers.AuthHandler
	tableHandler        *handlers.TableHandler
	registrationHandler *handlers.RegistrationHandler
	healthHandler       *handlers.HealthHandler
}

// bootstrap initializes all application dependencies: database, services, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	// Initialize database
	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto migrate database
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	// Notification delivery
	notificationService := services.NewNotificationService(models.GetDB(), &cfg.Notify)

	// Task queue (Redis-backed if enabled, otherwise sync mode)
	taskQueue := services.InitTaskQueue(cfg)
	if syncQueue, ok := taskQueue.(*services.SyncQueue); ok {
		syncQueue.SetProcessor(notificationService.Deliver)
	}

	// Start async worker if Redis is enabled
	var worker *services.Worker
	if cfg.Redis.Enabled {
		worker = services.InitWorker(&cfg.Redis)
		if worker != nil {
			worker.SetProcessor(notificationService.Deliver)
			worker.Start()
		}
	}

	// Table lifecycle sweeps and log cleanup
	scheduler := services.NewSchedulerService(models.GetDB(), notificationService)
	scheduler.Start()

	// Create default admin user
	authHandler := handlers.NewAuthHandler(models.GetDB(), cfg)
	if err := authHandler.CreateAdminIfNotExists(); err != nil {
		logger.Warn().Err(err).Msg("Failed to create admin user")
	}

	return &appServices{
		scheduler:           scheduler,
		taskQueue:           taskQueue,
		worker:              worker,
		authHandler:         authHandler,
		tableHandler:        handlers.NewTableHandler(models.GetDB()),
		registrationHandler: handlers.NewRegistrationHandler(models.GetDB(), cfg),
		healthHandler:       handlers.NewHealthHandler(),
	}
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.scheduler.Stop()
	logger.Info().Msg("Scheduler stopped")

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		s.taskQueue.Close()
	}
}
