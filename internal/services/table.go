package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/guildhall/tabletop/backend/internal/models"
	"gorm.io/gorm"
)

// TableService manages the game-table aggregate: creation, updates and
// the publish/cancel lifecycle. The registration engine only reads
// tables; all writes go through here.
type TableService struct {
	db       *gorm.DB
	capacity *CapacityService
}

func NewTableService(db *gorm.DB) *TableService {
	return &TableService{db: db, capacity: NewCapacityService(db)}
}

type TableListRequest struct {
	Page       int    `form:"page"`
	PageSize   int    `form:"page_size"`
	Status     string `form:"status"`
	GameSystem string `form:"game_system"`
	Upcoming   bool   `form:"upcoming"`
	// IncludeUnpublished is set for authenticated admin listings only.
	IncludeUnpublished bool `form:"-"`
}

type TableListResponse struct {
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
	Items    []models.GameTable `json:"items"`
}

func (s *TableService) List(req *TableListRequest) (*TableListResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 || req.PageSize > 100 {
		req.PageSize = 20
	}

	query := s.db.Model(&models.GameTable{})
	if !req.IncludeUnpublished {
		query = query.Where("is_published = ?", true)
	}
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.GameSystem != "" {
		query = query.Where("game_system = ?", req.GameSystem)
	}
	if req.Upcoming {
		query = query.Where("starts_at > ?", time.Now())
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var tables []models.GameTable
	offset := (req.Page - 1) * req.PageSize
	if err := query.Order("starts_at ASC").Offset(offset).Limit(req.PageSize).Find(&tables).Error; err != nil {
		return nil, err
	}

	return &TableListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    tables,
	}, nil
}

// GetByPublicID returns a table by its public identifier.
func (s *TableService) GetByPublicID(publicID string) (*models.GameTable, error) {
	var table models.GameTable
	if err := s.db.Where("public_id = ?", publicID).First(&table).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &table, nil
}

type CreateTableRequest struct {
	Title                  string     `json:"title" binding:"required"`
	Description            string     `json:"description"`
	GameSystem             string     `json:"game_system"`
	CampaignID             *uint      `json:"campaign_id"`
	MinPlayers             int        `json:"min_players"`
	MaxPlayers             int        `json:"max_players" binding:"required"`
	MaxSpectators          int        `json:"max_spectators"`
	StartsAt               time.Time  `json:"starts_at" binding:"required"`
	DurationMinutes        int        `json:"duration_minutes" binding:"required"`
	RegistrationType       string     `json:"registration_type"`
	MembersEarlyAccessDays int        `json:"members_early_access_days"`
	RegistrationOpensAt    *time.Time `json:"registration_opens_at"`
	RegistrationClosesAt   *time.Time `json:"registration_closes_at"`
	AutoConfirm            *bool      `json:"auto_confirm"`
	MinimumAge             *int       `json:"minimum_age"`
}

func (s *TableService) Create(req *CreateTableRequest, ownerID uint) (*models.GameTable, error) {
	window, err := models.NewTimeWindow(req.StartsAt, req.DurationMinutes)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err)
	}

	if req.MinPlayers <= 0 {
		req.MinPlayers = 1
	}
	if req.MaxPlayers <= 0 {
		return nil, fmt.Errorf("%w: max_players must be positive", ErrValidation)
	}
	if req.MinPlayers > req.MaxPlayers {
		return nil, fmt.Errorf("%w: min_players cannot exceed max_players", ErrValidation)
	}
	if req.MaxSpectators < 0 {
		return nil, fmt.Errorf("%w: max_spectators cannot be negative", ErrValidation)
	}
	if req.MembersEarlyAccessDays < 0 {
		return nil, fmt.Errorf("%w: members_early_access_days cannot be negative", ErrValidation)
	}

	regType := models.RegistrationType(req.RegistrationType)
	if req.RegistrationType == "" {
		regType = models.RegistrationEveryone
	}
	if !regType.Valid() {
		return nil, fmt.Errorf("%w: unknown registration type %q", ErrValidation, req.RegistrationType)
	}

	autoConfirm := true
	if req.AutoConfirm != nil {
		autoConfirm = *req.AutoConfirm
	}

	table := &models.GameTable{
		PublicID:               uuid.NewString(),
		Title:                  req.Title,
		Description:            req.Description,
		GameSystem:             req.GameSystem,
		CampaignID:             req.CampaignID,
		OwnerID:                ownerID,
		MinPlayers:             req.MinPlayers,
		MaxPlayers:             req.MaxPlayers,
		MaxSpectators:          req.MaxSpectators,
		TimeWindow:             window,
		RegistrationType:       regType,
		MembersEarlyAccessDays: req.MembersEarlyAccessDays,
		RegistrationOpensAt:    req.RegistrationOpensAt,
		RegistrationClosesAt:   req.RegistrationClosesAt,
		AutoConfirm:            autoConfirm,
		MinimumAge:             req.MinimumAge,
		Status:                 models.TableStatusDraft,
	}

	if err := s.db.Create(table).Error; err != nil {
		return nil, err
	}
	return table, nil
}

type UpdateTableRequest struct {
	Title                  *string    `json:"title"`
	Description            *string    `json:"description"`
	GameSystem             *string    `json:"game_system"`
	MinPlayers             *int       `json:"min_players"`
	MaxPlayers             *int       `json:"max_players"`
	MaxSpectators          *int       `json:"max_spectators"`
	StartsAt               *time.Time `json:"starts_at"`
	DurationMinutes        *int       `json:"duration_minutes"`
	RegistrationType       *string    `json:"registration_type"`
	MembersEarlyAccessDays *int       `json:"members_early_access_days"`
	RegistrationOpensAt    *time.Time `json:"registration_opens_at"`
	RegistrationClosesAt   *time.Time `json:"registration_closes_at"`
	AutoConfirm            *bool      `json:"auto_confirm"`
	MinimumAge             *int       `json:"minimum_age"`
}

func (s *TableService) Update(publicID string, req *UpdateTableRequest) (*models.GameTable, error) {
	table, err := s.GetByPublicID(publicID)
	if err != nil {
		return nil, err
	}
	if table.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: table is %s", ErrValidation, table.Status)
	}

	if req.Title != nil {
		table.Title = *req.Title
	}
	if req.Description != nil {
		table.Description = *req.Description
	}
	if req.GameSystem != nil {
		table.GameSystem = *req.GameSystem
	}
	if req.MinPlayers != nil {
		table.MinPlayers = *req.MinPlayers
	}
	if req.MaxPlayers != nil {
		table.MaxPlayers = *req.MaxPlayers
	}
	if req.MaxSpectators != nil {
		table.MaxSpectators = *req.MaxSpectators
	}
	if req.StartsAt != nil {
		table.StartsAt = *req.StartsAt
	}
	if req.DurationMinutes != nil {
		table.DurationMinutes = *req.DurationMinutes
	}
	if req.RegistrationType != nil {
		regType := models.RegistrationType(*req.RegistrationType)
		if !regType.Valid() {
			return nil, fmt.Errorf("%w: unknown registration type %q", ErrValidation, *req.RegistrationType)
		}
		table.RegistrationType = regType
	}
	if req.MembersEarlyAccessDays != nil {
		table.MembersEarlyAccessDays = *req.MembersEarlyAccessDays
	}
	if req.RegistrationOpensAt != nil {
		table.RegistrationOpensAt = req.RegistrationOpensAt
	}
	if req.RegistrationClosesAt != nil {
		table.RegistrationClosesAt = req.RegistrationClosesAt
	}
	if req.AutoConfirm != nil {
		table.AutoConfirm = *req.AutoConfirm
	}
	if req.MinimumAge != nil {
		table.MinimumAge = req.MinimumAge
	}

	if _, err := models.NewTimeWindow(table.StartsAt, table.DurationMinutes); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err)
	}
	if table.MinPlayers > table.MaxPlayers {
		return nil, fmt.Errorf("%w: min_players cannot exceed max_players", ErrValidation)
	}
	if table.MembersEarlyAccessDays < 0 {
		return nil, fmt.Errorf("%w: members_early_access_days cannot be negative", ErrValidation)
	}

	if err := s.db.Save(table).Error; err != nil {
		return nil, err
	}
	return table, nil
}

// Publish makes a draft table visible and registrable.
func (s *TableService) Publish(publicID string) (*models.GameTable, error) {
	table, err := s.GetByPublicID(publicID)
	if err != nil {
		return nil, err
	}
	if table.Status != models.TableStatusDraft {
		return nil, fmt.Errorf("%w: only draft tables can be published", ErrValidation)
	}

	table.IsPublished = true
	table.Status = models.TableStatusPublished
	if err := s.db.Save(table).Error; err != nil {
		return nil, err
	}
	return table, nil
}

// CancelTable cancels the whole session. Participants keep their rows;
// the status change alone closes registration.
func (s *TableService) CancelTable(publicID string) (*models.GameTable, error) {
	table, err := s.GetByPublicID(publicID)
	if err != nil {
		return nil, err
	}
	if table.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: table is already %s", ErrValidation, table.Status)
	}

	table.Status = models.TableStatusCancelled
	if err := s.db.Save(table).Error; err != nil {
		return nil, err
	}
	return table, nil
}

// Participants returns all registrations for a table: confirmed and
// pending first, then the waiting list in position order.
func (s *TableService) Participants(publicID string) ([]models.Participant, error) {
	table, err := s.GetByPublicID(publicID)
	if err != nil {
		return nil, err
	}

	var participants []models.Participant
	err = s.db.Where("game_table_id = ?", table.ID).
		Order("CASE WHEN waiting_list_position IS NULL THEN 0 ELSE 1 END, waiting_list_position ASC, created_at ASC").
		Find(&participants).Error
	return participants, err
}

// Snapshot returns the occupancy summary for a table.
func (s *TableService) Snapshot(publicID string) (*CapacitySnapshot, error) {
	table, err := s.GetByPublicID(publicID)
	if err != nil {
		return nil, err
	}
	return s.capacity.Snapshot(table)
}
