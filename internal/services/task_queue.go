package services

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/hibiken/asynq"
	"github.com/guildhall/tabletop/backend/internal/config"
	"github.com/guildhall/tabletop/backend/pkg/logger"
)

const (
	TaskTypeNotify = "registration:notify"
)

// Notification kinds, matching the lifecycle trigger points.
const (
	NotifyConfirmed  = "confirmed"
	NotifyWaitlisted = "waitlisted"
	NotifyPromoted   = "promoted"
	NotifyCancelled  = "cancelled"
)

// NotificationTask is a fire-and-forget registration notification. The
// registration engine enqueues it after a successful state transition
// and never waits for delivery.
type NotificationTask struct {
	Kind          string `json:"kind"`
	GameTableID   uint   `json:"game_table_id"`
	ParticipantID uint   `json:"participant_id"`
	TableTitle    string `json:"table_title"`
	DisplayName   string `json:"display_name"`
	Role          string `json:"role"`
	Position      *int   `json:"position,omitempty"`
}

// TaskQueue is the boundary between the registration engine and the
// notification fan-out.
type TaskQueue interface {
	Enqueue(task *NotificationTask) error
	IsAsync() bool
	Close() error
}

var (
	globalTaskQueue TaskQueue
	taskQueueOnce   sync.Once
)

// InitTaskQueue initializes the global task queue based on config,
// falling back to in-process delivery when Redis is unavailable.
func InitTaskQueue(cfg *config.Config) TaskQueue {
	taskQueueOnce.Do(func() {
		if cfg.Redis.Enabled {
			queue, err := NewAsyncQueue(&cfg.Redis)
			if err != nil {
				logger.Warnf("[TaskQueue] Redis unavailable, falling back to sync mode: %v", err)
				globalTaskQueue = NewSyncQueue()
			} else {
				logger.Infof("[TaskQueue] Async queue initialized with Redis at %s", cfg.Redis.Addr)
				globalTaskQueue = queue
			}
		} else {
			logger.Infof("[TaskQueue] Sync queue initialized (Redis disabled)")
			globalTaskQueue = NewSyncQueue()
		}
	})
	return globalTaskQueue
}

// GetTaskQueue returns the global task queue instance.
func GetTaskQueue() TaskQueue {
	return globalTaskQueue
}

// AsyncQueue implements TaskQueue on asynq (Redis).
type AsyncQueue struct {
	client *asynq.Client
}

func NewAsyncQueue(cfg *config.RedisConfig) (*AsyncQueue, error) {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	client := asynq.NewClient(redisOpt)

	// Verify the connection before committing to async mode
	inspector := asynq.NewInspector(redisOpt)
	defer inspector.Close()
	if _, err := inspector.Queues(); err != nil {
		client.Close()
		return nil, err
	}

	return &AsyncQueue{client: client}, nil
}

func (q *AsyncQueue) Enqueue(task *NotificationTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}

	t := asynq.NewTask(TaskTypeNotify, payload)
	info, err := q.client.Enqueue(t,
		asynq.Queue("default"),
		asynq.MaxRetry(3),
	)
	if err != nil {
		return err
	}

	logger.Debug().
		Str("task_id", info.ID).
		Str("kind", task.Kind).
		Uint("participant_id", task.ParticipantID).
		Msg("notification enqueued")
	return nil
}

func (q *AsyncQueue) IsAsync() bool { return true }

func (q *AsyncQueue) Close() error { return q.client.Close() }

// SyncQueue implements TaskQueue without Redis: tasks run in a goroutine
// so register/cancel responses never wait on webhook delivery.
type SyncQueue struct {
	mu        sync.RWMutex
	processor func(context.Context, *NotificationTask) error
}

func NewSyncQueue() *SyncQueue {
	return &SyncQueue{}
}

// SetProcessor sets the delivery function. Tasks enqueued before a
// processor is set are dropped with a warning.
func (q *SyncQueue) SetProcessor(processor func(context.Context, *NotificationTask) error) {
	q.mu.Lock()
	q.processor = processor
	q.mu.Unlock()
}

func (q *SyncQueue) Enqueue(task *NotificationTask) error {
	q.mu.RLock()
	processor := q.processor
	q.mu.RUnlock()

	if processor == nil {
		logger.Warnf("[SyncQueue] no processor set, dropping %s notification for participant %d", task.Kind, task.ParticipantID)
		return nil
	}

	go func() {
		if err := processor(context.Background(), task); err != nil {
			logger.Errorf("[SyncQueue] notification delivery failed: %v", err)
		}
	}()
	return nil
}

func (q *SyncQueue) IsAsync() bool { return false }

func (q *SyncQueue) Close() error { return nil }
