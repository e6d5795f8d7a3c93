package services

import (
	"fmt"
	"strings"
)

// Identity is who is registering: a club account or a guest. The two
// cases are modeled as a sealed union so a candidate can never be both
// (or neither) at once.
type Identity interface {
	// Key is the duplicate-detection key, matching
	// models.Participant.IdentityKey.
	Key() string
	sealed()
}

// MemberIdentity identifies a registered club account.
type MemberIdentity struct {
	UserID uint
}

func (m MemberIdentity) Key() string { return fmt.Sprintf("user:%d", m.UserID) }
func (MemberIdentity) sealed()       {}

// GuestIdentity identifies a person without an account, keyed by email.
type GuestIdentity struct {
	Name  string
	Email string
	Phone string
}

func (g GuestIdentity) Key() string { return "email:" + strings.ToLower(g.Email) }
func (GuestIdentity) sealed()       {}

// Candidate bundles an identity with the attributes eligibility checks
// need. Guests are never members and their age is unknown.
type Candidate struct {
	Identity Identity
	IsMember bool
	Age      *int
}

// GuestCandidate builds the candidate for a guest registration.
func GuestCandidate(name, email, phone string) Candidate {
	return Candidate{
		Identity: GuestIdentity{
			Name:  strings.TrimSpace(name),
			Email: strings.TrimSpace(strings.ToLower(email)),
			Phone: strings.TrimSpace(phone),
		},
	}
}
