package models

import "time"

// NotificationLog records the outcome of a fire-and-forget registration
// notification. The engine never reads these back; they exist for
// operators debugging webhook delivery.
type NotificationLog struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	GameTableID   uint      `gorm:"index;not null" json:"game_table_id"`
	ParticipantID uint      `gorm:"index;not null" json:"participant_id"`
	Kind          string    `gorm:"size:30;not null" json:"kind"` // confirmed, waitlisted, promoted, cancelled
	Delivered     bool      `gorm:"default:false" json:"delivered"`
	Error         string    `gorm:"type:text" json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func (NotificationLog) TableName() string { return "notification_logs" }
