package services

import (
	"errors"
	"testing"
	"time"

	"github.com/guildhall/tabletop/backend/internal/models"
)

func TestEligibility_ClosedTable(t *testing.T) {
	db := setupTestDB(t)
	svc := NewEligibilityService(db, NewCapacityService(db))

	tests := []struct {
		name   string
		mutate func(*models.GameTable)
	}{
		{"unpublished draft", func(tb *models.GameTable) {
			tb.IsPublished = false
			tb.Status = models.TableStatusDraft
		}},
		{"in progress", func(tb *models.GameTable) { tb.Status = models.TableStatusInProgress }},
		{"completed", func(tb *models.GameTable) { tb.Status = models.TableStatusCompleted }},
		{"cancelled", func(tb *models.GameTable) { tb.Status = models.TableStatusCancelled }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := seedTable(t, db, tt.mutate)
			err := svc.Evaluate(table, memberCandidate(1), models.RolePlayer, baseNow, EvaluateOptions{})
			if !errors.Is(err, ErrRegistrationClosed) {
				t.Errorf("Evaluate() error = %v, want ErrRegistrationClosed", err)
			}
		})
	}
}

func TestEligibility_FullStatusStillRegistrable(t *testing.T) {
	db := setupTestDB(t)
	svc := NewEligibilityService(db, NewCapacityService(db))

	table := seedTable(t, db, func(tb *models.GameTable) { tb.Status = models.TableStatusFull })
	err := svc.Evaluate(table, memberCandidate(1), models.RolePlayer, baseNow, EvaluateOptions{})
	if err != nil {
		t.Errorf("Evaluate() on full table = %v, want nil (waiting list placement)", err)
	}
}

func TestEligibility_InviteOnly(t *testing.T) {
	db := setupTestDB(t)
	svc := NewEligibilityService(db, NewCapacityService(db))

	table := seedTable(t, db, func(tb *models.GameTable) {
		tb.RegistrationType = models.RegistrationInvite
	})
	err := svc.Evaluate(table, memberCandidate(1), models.RolePlayer, baseNow, EvaluateOptions{})
	if !errors.Is(err, ErrInviteOnly) {
		t.Errorf("Evaluate() error = %v, want ErrInviteOnly", err)
	}
}

func TestEligibility_MembersOnly(t *testing.T) {
	db := setupTestDB(t)
	svc := NewEligibilityService(db, NewCapacityService(db))

	table := seedTable(t, db, func(tb *models.GameTable) {
		tb.RegistrationType = models.RegistrationMembersOnly
	})

	guest := GuestCandidate("Alice", "alice@example.com", "")
	if err := svc.Evaluate(table, guest, models.RolePlayer, baseNow, EvaluateOptions{}); !errors.Is(err, ErrMembersOnly) {
		t.Errorf("guest on members-only table: error = %v, want ErrMembersOnly", err)
	}

	if err := svc.Evaluate(table, memberCandidate(1), models.RolePlayer, baseNow, EvaluateOptions{}); err != nil {
		t.Errorf("member on members-only table: error = %v, want nil", err)
	}
}

func TestEligibility_MinimumAge(t *testing.T) {
	db := setupTestDB(t)
	svc := NewEligibilityService(db, NewCapacityService(db))

	table := seedTable(t, db, func(tb *models.GameTable) {
		tb.MinimumAge = intPtr(18)
	})

	tests := []struct {
		name    string
		age     *int
		wantErr bool
	}{
		{"age unknown", nil, true},
		{"too young", intPtr(15), true},
		{"exactly minimum", intPtr(18), false},
		{"above minimum", intPtr(40), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cand := memberCandidate(1)
			cand.Age = tt.age
			err := svc.Evaluate(table, cand, models.RolePlayer, baseNow, EvaluateOptions{})
			if tt.wantErr && !errors.Is(err, ErrMinimumAge) {
				t.Errorf("Evaluate() error = %v, want ErrMinimumAge", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Evaluate() error = %v, want nil", err)
			}
		})
	}
}

func TestEligibility_DuplicateActiveRegistration(t *testing.T) {
	db := setupTestDB(t)
	svc := NewEligibilityService(db, NewCapacityService(db))
	table := seedTable(t, db, nil)

	uid := uint(7)
	seedParticipant(t, db, table.ID, func(p *models.Participant) {
		p.UserID = &uid
		p.Status = models.StatusPending
	})

	err := svc.Evaluate(table, memberCandidate(7), models.RolePlayer, baseNow, EvaluateOptions{})
	if !errors.Is(err, ErrAlreadyRegistered) {
		t.Errorf("Evaluate() error = %v, want ErrAlreadyRegistered", err)
	}

	// a different account is unaffected
	if err := svc.Evaluate(table, memberCandidate(8), models.RolePlayer, baseNow, EvaluateOptions{}); err != nil {
		t.Errorf("other user: error = %v, want nil", err)
	}
}

func TestEligibility_CancelledRegistrationDoesNotBlock(t *testing.T) {
	db := setupTestDB(t)
	svc := NewEligibilityService(db, NewCapacityService(db))
	table := seedTable(t, db, nil)

	uid := uint(7)
	seedParticipant(t, db, table.ID, func(p *models.Participant) {
		p.UserID = &uid
		p.Status = models.StatusCancelled
	})

	if err := svc.Evaluate(table, memberCandidate(7), models.RolePlayer, baseNow, EvaluateOptions{}); err != nil {
		t.Errorf("Evaluate() after cancellation = %v, want nil", err)
	}
}

func TestEligibility_GuestDuplicateByEmailCaseInsensitive(t *testing.T) {
	db := setupTestDB(t)
	svc := NewEligibilityService(db, NewCapacityService(db))
	table := seedTable(t, db, nil)

	seedParticipant(t, db, table.ID, func(p *models.Participant) {
		p.UserID = nil
		p.GuestName = "Alice"
		p.GuestEmail = "alice@example.com"
		p.Status = models.StatusWaitingList
		p.WaitingListPosition = intPtr(1)
	})

	cand := GuestCandidate("Alice", "ALICE@Example.com", "")
	err := svc.Evaluate(table, cand, models.RolePlayer, baseNow, EvaluateOptions{})
	if !errors.Is(err, ErrAlreadyRegistered) {
		t.Errorf("Evaluate() error = %v, want ErrAlreadyRegistered for same email in different case", err)
	}
}

func TestEligibility_TemporalGate(t *testing.T) {
	db := setupTestDB(t)
	svc := NewEligibilityService(db, NewCapacityService(db))

	opens := baseNow.Add(48 * time.Hour)
	closes := baseNow.Add(96 * time.Hour)
	table := seedTable(t, db, func(tb *models.GameTable) {
		tb.RegistrationOpensAt = &opens
		tb.RegistrationClosesAt = &closes
	})

	nonMember := Candidate{Identity: MemberIdentity{UserID: 1}}

	if err := svc.Evaluate(table, nonMember, models.RolePlayer, baseNow, EvaluateOptions{}); !errors.Is(err, ErrRegistrationNotOpen) {
		t.Errorf("before opening: error = %v, want ErrRegistrationNotOpen", err)
	}

	if err := svc.Evaluate(table, nonMember, models.RolePlayer, opens, EvaluateOptions{}); err != nil {
		t.Errorf("at opening instant: error = %v, want nil", err)
	}

	if err := svc.Evaluate(table, nonMember, models.RolePlayer, closes, EvaluateOptions{}); err != nil {
		t.Errorf("at closing instant: error = %v, want nil (inclusive)", err)
	}

	err := svc.Evaluate(table, nonMember, models.RolePlayer, closes.Add(time.Second), EvaluateOptions{})
	if !errors.Is(err, ErrRegistrationEnded) {
		t.Errorf("after closing: error = %v, want ErrRegistrationEnded", err)
	}
	// ErrRegistrationEnded is a sub-case of ErrRegistrationClosed
	if !errors.Is(err, ErrRegistrationClosed) {
		t.Error("ErrRegistrationEnded should wrap ErrRegistrationClosed")
	}
}

func TestEligibility_MemberEarlyAccess(t *testing.T) {
	db := setupTestDB(t)
	svc := NewEligibilityService(db, NewCapacityService(db))

	opens := baseNow.Add(48 * time.Hour)
	closes := baseNow.Add(96 * time.Hour)
	table := seedTable(t, db, func(tb *models.GameTable) {
		tb.RegistrationOpensAt = &opens
		tb.RegistrationClosesAt = &closes
		tb.MembersEarlyAccessDays = 3
	})

	member := memberCandidate(1)
	nonMember := Candidate{Identity: MemberIdentity{UserID: 2}}

	// inside the early-access window members pass, non-members do not
	if err := svc.Evaluate(table, member, models.RolePlayer, baseNow, EvaluateOptions{}); err != nil {
		t.Errorf("member in early access: error = %v, want nil", err)
	}
	if err := svc.Evaluate(table, nonMember, models.RolePlayer, baseNow, EvaluateOptions{}); !errors.Is(err, ErrRegistrationNotOpen) {
		t.Errorf("non-member in early access: error = %v, want ErrRegistrationNotOpen", err)
	}

	// before the early-access window even members wait
	beforeEarly := table.EarlyAccessOpensAt().Add(-time.Minute)
	if err := svc.Evaluate(table, member, models.RolePlayer, beforeEarly, EvaluateOptions{}); !errors.Is(err, ErrRegistrationNotOpen) {
		t.Errorf("member before early access: error = %v, want ErrRegistrationNotOpen", err)
	}
}

func TestEligibility_DisallowWaitingList(t *testing.T) {
	db := setupTestDB(t)
	svc := NewEligibilityService(db, NewCapacityService(db))

	table := seedTable(t, db, func(tb *models.GameTable) { tb.MaxPlayers = 1 })
	seedParticipant(t, db, table.ID, nil) // confirmed player fills the seat

	cand := memberCandidate(9)

	// self-service evaluation tolerates a full table
	if err := svc.Evaluate(table, cand, models.RolePlayer, baseNow, EvaluateOptions{}); err != nil {
		t.Errorf("default options on full table: error = %v, want nil", err)
	}

	err := svc.Evaluate(table, cand, models.RolePlayer, baseNow, EvaluateOptions{DisallowWaitingList: true})
	if !errors.Is(err, ErrTableFull) {
		t.Errorf("DisallowWaitingList on full table: error = %v, want ErrTableFull", err)
	}
}

func TestEligibility_CheckOrder(t *testing.T) {
	db := setupTestDB(t)
	svc := NewEligibilityService(db, NewCapacityService(db))

	// invite-only AND unpublished: the closed check fires first
	table := seedTable(t, db, func(tb *models.GameTable) {
		tb.IsPublished = false
		tb.Status = models.TableStatusDraft
		tb.RegistrationType = models.RegistrationInvite
	})
	if err := svc.Evaluate(table, memberCandidate(1), models.RolePlayer, baseNow, EvaluateOptions{}); !errors.Is(err, ErrRegistrationClosed) {
		t.Errorf("error = %v, want ErrRegistrationClosed to win over ErrInviteOnly", err)
	}

	// invite-only AND members-only candidate: invite wins over membership
	table2 := seedTable(t, db, func(tb *models.GameTable) {
		tb.RegistrationType = models.RegistrationInvite
		tb.MinimumAge = intPtr(18)
	})
	cand := Candidate{Identity: MemberIdentity{UserID: 3}} // not a member, unknown age
	if err := svc.Evaluate(table2, cand, models.RolePlayer, baseNow, EvaluateOptions{}); !errors.Is(err, ErrInviteOnly) {
		t.Errorf("error = %v, want ErrInviteOnly to win over later checks", err)
	}
}
