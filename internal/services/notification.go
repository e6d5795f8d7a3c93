package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/guildhall/tabletop/backend/internal/config"
	"github.com/guildhall/tabletop/backend/internal/models"
	"github.com/guildhall/tabletop/backend/pkg/logger"
	"gorm.io/gorm"
)

// NotificationService delivers registration lifecycle notifications to
// the configured webhook and records the outcome. Delivery is always
// downstream of the task queue; the registration engine never waits on
// it.
type NotificationService struct {
	db     *gorm.DB
	cfg    *config.NotifyConfig
	client *http.Client
}

func NewNotificationService(db *gorm.DB, cfg *config.NotifyConfig) *NotificationService {
	return &NotificationService{
		db:     db,
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Deliver sends one notification and logs the result. Used as the task
// queue processor.
func (s *NotificationService) Deliver(ctx context.Context, task *NotificationTask) error {
	if !s.cfg.Enabled || s.cfg.WebhookURL == "" {
		return nil
	}

	err := s.send(ctx, task)

	entry := models.NotificationLog{
		GameTableID:   task.GameTableID,
		ParticipantID: task.ParticipantID,
		Kind:          task.Kind,
		Delivered:     err == nil,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	if logErr := s.db.Create(&entry).Error; logErr != nil {
		logger.Errorf("[Notification] failed to record notification log: %v", logErr)
	}

	return err
}

func (s *NotificationService) send(ctx context.Context, task *NotificationTask) error {
	var payload interface{}
	switch s.cfg.Format {
	case "discord":
		payload = map[string]string{"content": s.message(task)}
	case "slack":
		payload = map[string]string{"text": s.message(task)}
	default:
		payload = task
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func (s *NotificationService) message(task *NotificationTask) string {
	switch task.Kind {
	case NotifyConfirmed:
		return fmt.Sprintf("✅ %s is confirmed as %s at \"%s\"", task.DisplayName, task.Role, task.TableTitle)
	case NotifyWaitlisted:
		pos := 0
		if task.Position != nil {
			pos = *task.Position
		}
		return fmt.Sprintf("⏳ %s joined the waiting list for \"%s\" (position %d)", task.DisplayName, task.TableTitle, pos)
	case NotifyPromoted:
		return fmt.Sprintf("🎉 %s was promoted from the waiting list at \"%s\"", task.DisplayName, task.TableTitle)
	case NotifyCancelled:
		return fmt.Sprintf("❌ %s cancelled their registration at \"%s\"", task.DisplayName, task.TableTitle)
	default:
		return fmt.Sprintf("%s: %s at \"%s\"", task.Kind, task.DisplayName, task.TableTitle)
	}
}

// CleanupLogs deletes notification logs older than retentionDays.
func (s *NotificationService) CleanupLogs(retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		retentionDays = 30
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	result := s.db.Where("created_at < ?", cutoff).Delete(&models.NotificationLog{})
	return result.RowsAffected, result.Error
}
