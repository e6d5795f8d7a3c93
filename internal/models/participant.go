package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Guard errors for participant lifecycle transitions.
var (
	// ErrCannotCancel is returned when a participant is in a state that
	// does not allow cancellation (rejected, no-show).
	ErrCannotCancel = errors.New("registration cannot be cancelled")

	// ErrAlreadyCancelled is the cancel-on-cancelled sub-case of
	// ErrCannotCancel.
	ErrAlreadyCancelled = fmt.Errorf("%w: already cancelled", ErrCannotCancel)

	// ErrInvalidTransition is returned for confirm/reject/promote calls
	// on a participant outside the transition's source state.
	ErrInvalidTransition = errors.New("invalid registration state transition")

	// ErrSessionNotStarted guards the no-show transition.
	ErrSessionNotStarted = errors.New("cannot mark no-show before the session starts")
)

// ParticipantRole is the seat a registration claims at the table.
type ParticipantRole string

const (
	RolePlayer     ParticipantRole = "player"
	RoleSpectator  ParticipantRole = "spectator"
	RoleGameMaster ParticipantRole = "game_master"
	RoleCoGM       ParticipantRole = "co_gm"
)

// Label returns the user-facing name of the role.
func (r ParticipantRole) Label() string {
	switch r {
	case RolePlayer:
		return "Player"
	case RoleSpectator:
		return "Spectator"
	case RoleGameMaster:
		return "Game Master"
	case RoleCoGM:
		return "Co-GM"
	default:
		return string(r)
	}
}

// Valid reports whether r is a known role.
func (r ParticipantRole) Valid() bool {
	switch r {
	case RolePlayer, RoleSpectator, RoleGameMaster, RoleCoGM:
		return true
	}
	return false
}

// CountsAgainstCapacity reports whether confirmed registrations in this
// role consume a capacity slot. GM seats are outside the player limit.
func (r ParticipantRole) CountsAgainstCapacity() bool {
	return r == RolePlayer || r == RoleSpectator
}

// ParticipantStatus is the lifecycle state of a registration.
type ParticipantStatus string

const (
	StatusPending     ParticipantStatus = "pending"
	StatusConfirmed   ParticipantStatus = "confirmed"
	StatusWaitingList ParticipantStatus = "waiting_list"
	StatusCancelled   ParticipantStatus = "cancelled"
	StatusRejected    ParticipantStatus = "rejected"
	StatusNoShow      ParticipantStatus = "no_show"
)

// Label returns the user-facing name of the status.
func (s ParticipantStatus) Label() string {
	switch s {
	case StatusPending:
		return "Pending confirmation"
	case StatusConfirmed:
		return "Confirmed"
	case StatusWaitingList:
		return "On waiting list"
	case StatusCancelled:
		return "Cancelled"
	case StatusRejected:
		return "Rejected"
	case StatusNoShow:
		return "No-show"
	default:
		return string(s)
	}
}

// Color returns the UI badge color for the status.
func (s ParticipantStatus) Color() string {
	switch s {
	case StatusConfirmed:
		return "green"
	case StatusPending:
		return "orange"
	case StatusWaitingList:
		return "blue"
	case StatusCancelled, StatusRejected:
		return "red"
	case StatusNoShow:
		return "gray"
	default:
		return "gray"
	}
}

// IsActive reports whether the registration still occupies the person's
// single slot at the table. Cancelled and rejected registrations free it;
// everything else, including no-show, keeps it.
func (s ParticipantStatus) IsActive() bool {
	return s != StatusCancelled && s != StatusRejected
}

// IsTerminal reports whether no further transition is possible.
func (s ParticipantStatus) IsTerminal() bool {
	return s == StatusCancelled || s == StatusRejected || s == StatusNoShow
}

// Participant is a person's registration record against a game table.
// The identity is either a club account (UserID set) or a guest
// (GuestEmail and CancellationToken set); never both.
type Participant struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	PublicID    string `gorm:"uniqueIndex;size:36;not null" json:"public_id"`
	GameTableID uint   `gorm:"index;not null" json:"game_table_id"`

	UserID *uint `gorm:"index" json:"user_id"`

	GuestName         string `gorm:"size:100" json:"guest_name,omitempty"`
	GuestEmail        string `gorm:"size:255;index" json:"guest_email,omitempty"`
	GuestPhone        string `gorm:"size:50" json:"guest_phone,omitempty"`
	CancellationToken string `gorm:"uniqueIndex;size:64" json:"-"`

	Role   ParticipantRole   `gorm:"size:20;not null;default:player" json:"role"`
	Status ParticipantStatus `gorm:"size:20;not null;default:pending;index" json:"status"`

	// WaitingListPosition is set iff Status is waiting_list. Positions
	// for a table are dense starting at 1.
	WaitingListPosition *int `json:"waiting_list_position"`

	ConfirmedAt *time.Time `json:"confirmed_at"`
	CancelledAt *time.Time `json:"cancelled_at"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Participant) TableName() string { return "participants" }

// IsGuest reports whether this registration belongs to a guest.
func (p *Participant) IsGuest() bool {
	return p.UserID == nil
}

// DisplayName returns the name to show for the registration.
func (p *Participant) DisplayName() string {
	if p.IsGuest() {
		return p.GuestName
	}
	return fmt.Sprintf("user #%d", *p.UserID)
}

// IdentityKey returns the duplicate-detection key: the user id for
// members, the lowercased email for guests.
func (p *Participant) IdentityKey() string {
	if p.UserID != nil {
		return fmt.Sprintf("user:%d", *p.UserID)
	}
	return "email:" + strings.ToLower(p.GuestEmail)
}

// --- Lifecycle transitions ---
//
// These mutate the struct in memory only; persistence and capacity
// guards are the caller's job (RegistrationService runs them inside the
// per-table critical section).

// Confirm moves a pending registration to confirmed.
func (p *Participant) Confirm(now time.Time) error {
	if p.Status != StatusPending {
		return fmt.Errorf("%w: confirm from %s", ErrInvalidTransition, p.Status)
	}
	p.Status = StatusConfirmed
	p.ConfirmedAt = &now
	return nil
}

// Reject moves a pending registration to rejected.
func (p *Participant) Reject() error {
	if p.Status != StatusPending {
		return fmt.Errorf("%w: reject from %s", ErrInvalidTransition, p.Status)
	}
	p.Status = StatusRejected
	return nil
}

// Promote moves a waiting-list registration to confirmed and clears its
// position. Only the waiting-list manager calls this.
func (p *Participant) Promote(now time.Time) error {
	if p.Status != StatusWaitingList {
		return fmt.Errorf("%w: promote from %s", ErrInvalidTransition, p.Status)
	}
	p.Status = StatusConfirmed
	p.WaitingListPosition = nil
	p.ConfirmedAt = &now
	return nil
}

// Cancel moves an active registration to cancelled. Cancelling a
// cancelled registration fails with ErrAlreadyCancelled; rejected and
// no-show registrations cannot be cancelled at all.
func (p *Participant) Cancel(now time.Time) error {
	switch p.Status {
	case StatusCancelled:
		return ErrAlreadyCancelled
	case StatusRejected, StatusNoShow:
		return fmt.Errorf("%w: status is %s", ErrCannotCancel, p.Status)
	}
	p.Status = StatusCancelled
	p.WaitingListPosition = nil
	p.CancelledAt = &now
	return nil
}

// MarkNoShow flags a confirmed or pending registration whose session has
// already started.
func (p *Participant) MarkNoShow(sessionStart, now time.Time) error {
	if p.Status != StatusConfirmed && p.Status != StatusPending {
		return fmt.Errorf("%w: no-show from %s", ErrInvalidTransition, p.Status)
	}
	if now.Before(sessionStart) {
		return ErrSessionNotStarted
	}
	p.Status = StatusNoShow
	return nil
}
