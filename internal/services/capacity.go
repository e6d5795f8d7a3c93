package services

import (
	"github.com/guildhall/tabletop/backend/internal/models"
	"gorm.io/gorm"
)

// CapacityService is the read model for "how many confirmed occupants
// does table X have right now". Both eligibility and the registration
// critical section read through it.
type CapacityService struct {
	db *gorm.DB
}

func NewCapacityService(db *gorm.DB) *CapacityService {
	return &CapacityService{db: db}
}

// ConfirmedCount counts confirmed participants of the given role.
func (s *CapacityService) ConfirmedCount(tableID uint, role models.ParticipantRole) (int, error) {
	return s.ConfirmedCountTx(s.db, tableID, role)
}

// ConfirmedCountTx is ConfirmedCount running on the caller's transaction,
// so the registration critical section counts under its row lock.
func (s *CapacityService) ConfirmedCountTx(tx *gorm.DB, tableID uint, role models.ParticipantRole) (int, error) {
	var count int64
	err := tx.Model(&models.Participant{}).
		Where("game_table_id = ?", tableID).
		Where("role = ?", role).
		Where("status = ?", models.StatusConfirmed).
		Count(&count).Error
	return int(count), err
}

// HasFreeSlot reports whether a confirmed slot is free for the role.
// Roles outside the capacity model (GM seats) always have room.
func (s *CapacityService) HasFreeSlot(tx *gorm.DB, table *models.GameTable, role models.ParticipantRole) (bool, error) {
	if !role.CountsAgainstCapacity() {
		return true, nil
	}
	count, err := s.ConfirmedCountTx(tx, table.ID, role)
	if err != nil {
		return false, err
	}
	return count < table.CapacityFor(role), nil
}

// Snapshot summarises a table's occupancy for UI consumption.
type CapacitySnapshot struct {
	ConfirmedPlayers    int `json:"confirmed_players"`
	ConfirmedSpectators int `json:"confirmed_spectators"`
	PendingCount        int `json:"pending_count"`
	WaitingListCount    int `json:"waiting_list_count"`
	MaxPlayers          int `json:"max_players"`
	MaxSpectators       int `json:"max_spectators"`
}

// Snapshot reads the current occupancy of a table.
func (s *CapacityService) Snapshot(table *models.GameTable) (*CapacitySnapshot, error) {
	snap := &CapacitySnapshot{
		MaxPlayers:    table.MaxPlayers,
		MaxSpectators: table.MaxSpectators,
	}

	var err error
	if snap.ConfirmedPlayers, err = s.ConfirmedCount(table.ID, models.RolePlayer); err != nil {
		return nil, err
	}
	if snap.ConfirmedSpectators, err = s.ConfirmedCount(table.ID, models.RoleSpectator); err != nil {
		return nil, err
	}

	var pending, waiting int64
	if err := s.db.Model(&models.Participant{}).
		Where("game_table_id = ? AND status = ?", table.ID, models.StatusPending).
		Count(&pending).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Participant{}).
		Where("game_table_id = ? AND status = ?", table.ID, models.StatusWaitingList).
		Count(&waiting).Error; err != nil {
		return nil, err
	}
	snap.PendingCount = int(pending)
	snap.WaitingListCount = int(waiting)
	return snap, nil
}
