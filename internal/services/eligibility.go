package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/guildhall/tabletop/backend/internal/models"
	"gorm.io/gorm"
)

// EligibilityService decides whether a candidate may register for a
// table. Evaluate only reads; it backs both the can-register probe and
// the mutating register path (which re-runs it inside the per-table
// critical section).
type EligibilityService struct {
	db       *gorm.DB
	capacity *CapacityService
}

func NewEligibilityService(db *gorm.DB, capacity *CapacityService) *EligibilityService {
	return &EligibilityService{db: db, capacity: capacity}
}

// EvaluateOptions tweaks the evaluation for non-self-service callers.
type EvaluateOptions struct {
	// DisallowWaitingList makes a capacity shortfall a hard ErrTableFull
	// instead of an implicit waiting-list placement. Only the manual
	// confirmation path sets it.
	DisallowWaitingList bool
}

// Evaluate runs the ordered eligibility checks; the first failure wins so
// user-facing messages stay deterministic. A nil return means eligible,
// possibly for waiting-list placement, since capacity never blocks
// self-service registration.
func (s *EligibilityService) Evaluate(table *models.GameTable, cand Candidate, role models.ParticipantRole, now time.Time, opts EvaluateOptions) error {
	return s.EvaluateTx(s.db, table, cand, role, now, opts)
}

// EvaluateTx is Evaluate on the caller's transaction, so the duplicate
// check is serialized with the insert it guards.
func (s *EligibilityService) EvaluateTx(tx *gorm.DB, table *models.GameTable, cand Candidate, role models.ParticipantRole, now time.Time, opts EvaluateOptions) error {
	// 1. Table must be published and in a registrable status.
	if !table.IsPublished || !table.Status.IsRegistrable() {
		return ErrRegistrationClosed
	}

	// 2. Invite-only tables bypass self-service entirely.
	if table.RegistrationType == models.RegistrationInvite {
		return ErrInviteOnly
	}

	// 3. Members-only gate.
	if table.RegistrationType == models.RegistrationMembersOnly && !cand.IsMember {
		return ErrMembersOnly
	}

	// 4. Age gate. Unknown age and insufficient age surface as the same
	// error kind with distinct sub-reasons.
	if table.MinimumAge != nil {
		if cand.Age == nil {
			return fmt.Errorf("%w: age unknown", ErrMinimumAge)
		}
		if *cand.Age < *table.MinimumAge {
			return fmt.Errorf("%w: must be at least %d", ErrMinimumAge, *table.MinimumAge)
		}
	}

	// 5. One active registration per identity per table.
	active, err := s.findActive(tx, table.ID, cand.Identity)
	if err != nil {
		return err
	}
	if active != nil {
		return ErrAlreadyRegistered
	}

	// 6. Temporal gate with member early access.
	opensAt, closesAt := table.RegistrationWindow()
	inEarlyAccess := cand.IsMember &&
		table.MembersEarlyAccessDays > 0 &&
		!now.Before(table.EarlyAccessOpensAt()) &&
		now.Before(opensAt)
	if !inEarlyAccess {
		if now.Before(opensAt) {
			return ErrRegistrationNotOpen
		}
		if now.After(closesAt) {
			return ErrRegistrationEnded
		}
	}

	// 7. Capacity never blocks self-service registration; overflow goes
	// to the waiting list. Paths that cannot use the waiting list ask
	// for the hard check.
	if opts.DisallowWaitingList {
		free, err := s.capacity.HasFreeSlot(tx, table, role)
		if err != nil {
			return err
		}
		if !free {
			return ErrTableFull
		}
	}

	return nil
}

// findActive returns the identity's active registration for the table,
// or nil.
func (s *EligibilityService) findActive(tx *gorm.DB, tableID uint, identity Identity) (*models.Participant, error) {
	query := tx.Where("game_table_id = ?", tableID).
		Where("status NOT IN ?", []models.ParticipantStatus{models.StatusCancelled, models.StatusRejected})

	switch id := identity.(type) {
	case MemberIdentity:
		query = query.Where("user_id = ?", id.UserID)
	case GuestIdentity:
		query = query.Where("user_id IS NULL AND LOWER(guest_email) = ?", strings.ToLower(id.Email))
	default:
		return nil, fmt.Errorf("unknown identity type %T", identity)
	}

	var p models.Participant
	err := query.First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
