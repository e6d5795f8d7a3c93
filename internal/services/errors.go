package services

import (
	"errors"
	"fmt"

	"github.com/guildhall/tabletop/backend/internal/models"
)

// Domain errors surfaced by the registration engine. All are
// caller-recoverable; handlers map each to a distinct HTTP response.
var (
	// ErrRegistrationNotOpen means now is before the registration window
	// (and outside any member early-access window).
	ErrRegistrationNotOpen = errors.New("registration has not opened yet")

	// ErrRegistrationClosed means the table does not accept registrations:
	// unpublished, in a non-registrable status, or past the closing time.
	ErrRegistrationClosed = errors.New("registration is closed")

	// ErrRegistrationEnded is the past-the-closing-time sub-case of
	// ErrRegistrationClosed.
	ErrRegistrationEnded = fmt.Errorf("%w: the registration period has ended", ErrRegistrationClosed)

	// ErrInviteOnly means the table only accepts invited participants;
	// self-service registration never passes.
	ErrInviteOnly = errors.New("table is invite only")

	// ErrMembersOnly means the candidate lacks an active membership.
	ErrMembersOnly = errors.New("table is open to members only")

	// ErrMinimumAge covers both "age unknown" and "age too low".
	ErrMinimumAge = errors.New("minimum age requirement not met")

	// ErrAlreadyRegistered means the identity already holds an active
	// registration for the table.
	ErrAlreadyRegistered = errors.New("already registered for this table")

	// ErrTableFull is only produced by paths that disallow waiting-list
	// placement (the manual confirm path). Self-service registration
	// routes overflow to the waiting list instead.
	ErrTableFull = errors.New("table has no free slots")

	// ErrInvalidToken means no participant matches a cancellation token.
	ErrInvalidToken = errors.New("invalid cancellation token")

	// ErrNotFound covers missing tables and participants.
	ErrNotFound = errors.New("not found")

	// ErrForbidden means the actor may not operate on the registration.
	ErrForbidden = errors.New("not allowed to modify this registration")

	// ErrInvalidRole rejects self-service registration for GM roles.
	ErrInvalidRole = errors.New("role cannot self-register")

	// ErrValidation wraps malformed request input.
	ErrValidation = errors.New("invalid request")

	// ErrBusy signals lock contention on the table; callers may retry.
	ErrBusy = errors.New("table is busy, try again")
)

// ReasonCode maps a domain error to its stable machine-readable code,
// used by the can-register probe and error envelopes.
func ReasonCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRegistrationNotOpen):
		return "registration_not_open"
	case errors.Is(err, ErrRegistrationClosed):
		return "registration_closed"
	case errors.Is(err, ErrInviteOnly):
		return "invite_only"
	case errors.Is(err, ErrMembersOnly):
		return "members_only"
	case errors.Is(err, ErrMinimumAge):
		return "minimum_age"
	case errors.Is(err, ErrAlreadyRegistered):
		return "already_registered"
	case errors.Is(err, ErrTableFull):
		return "table_full"
	case errors.Is(err, models.ErrAlreadyCancelled):
		return "already_cancelled"
	case errors.Is(err, models.ErrCannotCancel):
		return "cannot_cancel"
	case errors.Is(err, ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrBusy):
		return "busy"
	default:
		return "error"
	}
}
