package models

import (
	"time"

	"gorm.io/gorm"
)

// TableStatus is the lifecycle state of a game table.
type TableStatus string

const (
	TableStatusDraft      TableStatus = "draft"
	TableStatusPublished  TableStatus = "published"
	TableStatusOpen       TableStatus = "open"
	TableStatusFull       TableStatus = "full"
	TableStatusInProgress TableStatus = "in_progress"
	TableStatusCompleted  TableStatus = "completed"
	TableStatusCancelled  TableStatus = "cancelled"
)

// Label returns the user-facing name of the status.
func (s TableStatus) Label() string {
	switch s {
	case TableStatusDraft:
		return "Draft"
	case TableStatusPublished:
		return "Published"
	case TableStatusOpen:
		return "Open for registration"
	case TableStatusFull:
		return "Full"
	case TableStatusInProgress:
		return "In progress"
	case TableStatusCompleted:
		return "Completed"
	case TableStatusCancelled:
		return "Cancelled"
	default:
		return string(s)
	}
}

// Color returns the UI badge color for the status.
func (s TableStatus) Color() string {
	switch s {
	case TableStatusDraft:
		return "gray"
	case TableStatusPublished, TableStatusOpen:
		return "green"
	case TableStatusFull:
		return "orange"
	case TableStatusInProgress:
		return "blue"
	case TableStatusCompleted:
		return "purple"
	case TableStatusCancelled:
		return "red"
	default:
		return "gray"
	}
}

// IsRegistrable reports whether the status admits new registrations.
// A full table is still registrable: overflow goes to the waiting list.
func (s TableStatus) IsRegistrable() bool {
	switch s {
	case TableStatusPublished, TableStatusOpen, TableStatusFull:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the table can no longer change state.
func (s TableStatus) IsTerminal() bool {
	return s == TableStatusCompleted || s == TableStatusCancelled
}

// RegistrationType controls who may self-register for a table.
type RegistrationType string

const (
	RegistrationEveryone    RegistrationType = "everyone"
	RegistrationMembersOnly RegistrationType = "members_only"
	RegistrationInvite      RegistrationType = "invite"
)

// Label returns the user-facing name of the registration type.
func (t RegistrationType) Label() string {
	switch t {
	case RegistrationEveryone:
		return "Open to everyone"
	case RegistrationMembersOnly:
		return "Members only"
	case RegistrationInvite:
		return "Invite only"
	default:
		return string(t)
	}
}

// Valid reports whether t is a known registration type.
func (t RegistrationType) Valid() bool {
	switch t {
	case RegistrationEveryone, RegistrationMembersOnly, RegistrationInvite:
		return true
	}
	return false
}

// GameTable is a scheduled game session with fixed seat and spectator
// capacity. It is the aggregate root for its participants.
type GameTable struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	PublicID    string `gorm:"uniqueIndex;size:36;not null" json:"public_id"`
	Title       string `gorm:"size:200;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	GameSystem  string `gorm:"size:100" json:"game_system"`
	CampaignID  *uint  `gorm:"index" json:"campaign_id"`
	OwnerID     uint   `gorm:"index;not null" json:"owner_id"`

	MinPlayers    int `gorm:"not null;default:1" json:"min_players"`
	MaxPlayers    int `gorm:"not null" json:"max_players"`
	MaxSpectators int `gorm:"not null;default:0" json:"max_spectators"`

	TimeWindow `gorm:"embedded"`

	RegistrationType       RegistrationType `gorm:"size:20;not null;default:everyone" json:"registration_type"`
	MembersEarlyAccessDays int              `gorm:"not null;default:0" json:"members_early_access_days"`
	RegistrationOpensAt    *time.Time       `json:"registration_opens_at"`
	RegistrationClosesAt   *time.Time       `json:"registration_closes_at"`
	AutoConfirm            bool             `gorm:"default:true" json:"auto_confirm"`
	MinimumAge             *int             `json:"minimum_age"`

	IsPublished bool        `gorm:"default:false;index" json:"is_published"`
	Status      TableStatus `gorm:"size:20;not null;default:draft;index" json:"status"`

	Participants []Participant `gorm:"foreignKey:GameTableID;constraint:OnDelete:CASCADE" json:"participants,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (GameTable) TableName() string { return "game_tables" }

// RegistrationWindow returns the effective open/close instants; both
// default to the session start when not set explicitly.
func (t *GameTable) RegistrationWindow() (opensAt, closesAt time.Time) {
	opensAt = t.StartsAt
	if t.RegistrationOpensAt != nil {
		opensAt = *t.RegistrationOpensAt
	}
	closesAt = t.StartsAt
	if t.RegistrationClosesAt != nil {
		closesAt = *t.RegistrationClosesAt
	}
	return opensAt, closesAt
}

// EarlyAccessOpensAt returns the instant from which members may register
// ahead of the general opening.
func (t *GameTable) EarlyAccessOpensAt() time.Time {
	opensAt, _ := t.RegistrationWindow()
	return opensAt.AddDate(0, 0, -t.MembersEarlyAccessDays)
}

// CapacityFor returns the confirmed-occupant limit for a role. Game
// masters do not consume seats.
func (t *GameTable) CapacityFor(role ParticipantRole) int {
	switch role {
	case RoleSpectator:
		return t.MaxSpectators
	case RolePlayer:
		return t.MaxPlayers
	default:
		return 0
	}
}
