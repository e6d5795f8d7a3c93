package services

import (
	"errors"
	"time"

	"github.com/guildhall/tabletop/backend/internal/models"
	"gorm.io/gorm"
)

// WaitingListService keeps each table's waiting list a dense, strictly
// FIFO sequence of positions starting at 1, and promotes the head entry
// when a confirmed slot frees up. Every method runs on the caller's
// transaction: the registration service invokes these inside its
// per-table critical section.
type WaitingListService struct {
	capacity *CapacityService
}

func NewWaitingListService(capacity *CapacityService) *WaitingListService {
	return &WaitingListService{capacity: capacity}
}

// NextPosition returns one past the current maximum position for the
// table, 1 when the list is empty.
func (s *WaitingListService) NextPosition(tx *gorm.DB, tableID uint) (int, error) {
	var maxPos *int
	err := tx.Model(&models.Participant{}).
		Where("game_table_id = ? AND status = ?", tableID, models.StatusWaitingList).
		Select("MAX(waiting_list_position)").
		Scan(&maxPos).Error
	if err != nil {
		return 0, err
	}
	if maxPos == nil {
		return 1, nil
	}
	return *maxPos + 1, nil
}

// Head returns the waiting-list entry with the lowest position, or nil
// when the list is empty.
func (s *WaitingListService) Head(tx *gorm.DB, tableID uint) (*models.Participant, error) {
	var p models.Participant
	err := tx.Where("game_table_id = ? AND status = ?", tableID, models.StatusWaitingList).
		Order("waiting_list_position ASC").
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns the table's waiting list in position order.
func (s *WaitingListService) List(tx *gorm.DB, tableID uint) ([]models.Participant, error) {
	var entries []models.Participant
	err := tx.Where("game_table_id = ? AND status = ?", tableID, models.StatusWaitingList).
		Order("waiting_list_position ASC").
		Find(&entries).Error
	return entries, err
}

// PromoteNext promotes the head entry to confirmed when a slot for its
// role is free. It is idempotent: with no free slot or an empty list it
// changes nothing and returns (nil, nil); calling it twice after one
// slot opened promotes exactly one entry.
func (s *WaitingListService) PromoteNext(tx *gorm.DB, table *models.GameTable, now time.Time) (*models.Participant, error) {
	head, err := s.Head(tx, table.ID)
	if err != nil {
		return nil, err
	}
	if head == nil {
		return nil, nil
	}

	free, err := s.capacity.HasFreeSlot(tx, table, head.Role)
	if err != nil {
		return nil, err
	}
	if !free {
		return nil, nil
	}

	removedPos := *head.WaitingListPosition
	if err := head.Promote(now); err != nil {
		return nil, err
	}
	if err := tx.Save(head).Error; err != nil {
		return nil, err
	}
	if err := s.CompactAfterRemoval(tx, table.ID, removedPos); err != nil {
		return nil, err
	}
	return head, nil
}

// CompactAfterRemoval closes the gap left by a removed entry: every
// waiting-list position greater than removedPosition is decremented.
func (s *WaitingListService) CompactAfterRemoval(tx *gorm.DB, tableID uint, removedPosition int) error {
	return tx.Model(&models.Participant{}).
		Where("game_table_id = ? AND status = ?", tableID, models.StatusWaitingList).
		Where("waiting_list_position > ?", removedPosition).
		UpdateColumn("waiting_list_position", gorm.Expr("waiting_list_position - 1")).Error
}
