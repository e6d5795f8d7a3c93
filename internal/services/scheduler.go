package services

import (
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/guildhall/tabletop/backend/internal/models"
	"github.com/guildhall/tabletop/backend/pkg/logger"
)

// SchedulerService runs periodic maintenance: moving tables through
// their session lifecycle and pruning old notification logs.
type SchedulerService struct {
	db           *gorm.DB
	notification *NotificationService
	scheduler    *cron.Cron
	now          func() time.Time
}

func NewSchedulerService(db *gorm.DB, notification *NotificationService) *SchedulerService {
	return &SchedulerService{
		db:           db,
		notification: notification,
		now:          time.Now,
	}
}

func (s *SchedulerService) Start() {
	s.scheduler = cron.New()

	if _, err := s.scheduler.AddFunc("* * * * *", func() {
		s.SweepTableStatuses()
	}); err != nil {
		logger.Errorf("[Scheduler] failed to add status sweep: %v", err)
	}

	if _, err := s.scheduler.AddFunc("30 3 * * *", func() {
		removed, err := s.notification.CleanupLogs(0)
		if err != nil {
			logger.Errorf("[Scheduler] log cleanup failed: %v", err)
			return
		}
		if removed > 0 {
			logger.Infof("[Scheduler] pruned %d notification logs", removed)
		}
	}); err != nil {
		logger.Errorf("[Scheduler] failed to add log cleanup: %v", err)
	}

	s.scheduler.Start()
	logger.Infof("[Scheduler] started")
}

func (s *SchedulerService) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

// SweepTableStatuses advances table lifecycle based on the clock. Tables
// whose session has started become in_progress, tables whose session has
// ended become completed. Draft and cancelled tables are never touched.
func (s *SchedulerService) SweepTableStatuses() {
	now := s.now()

	var tables []models.GameTable
	if err := s.db.Where("status IN ?", []models.TableStatus{
		models.TableStatusPublished,
		models.TableStatusOpen,
		models.TableStatusFull,
		models.TableStatusInProgress,
	}).Find(&tables).Error; err != nil {
		logger.Errorf("[Scheduler] status sweep query failed: %v", err)
		return
	}

	for i := range tables {
		table := &tables[i]
		var next models.TableStatus

		switch {
		case table.IsPast(now):
			next = models.TableStatusCompleted
		case table.InProgress(now) && table.Status != models.TableStatusInProgress:
			next = models.TableStatusInProgress
		default:
			continue
		}

		if err := s.db.Model(table).Update("status", next).Error; err != nil {
			logger.Errorf("[Scheduler] failed to advance table %s to %s: %v", table.PublicID, next, err)
			continue
		}
		logger.Info().
			Str("table", table.PublicID).
			Str("status", string(next)).
			Msg("table status advanced")
	}
}
