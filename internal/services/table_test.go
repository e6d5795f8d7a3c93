package services

import (
	"errors"
	"testing"
	"time"

	"github.com/guildhall/tabletop/backend/internal/models"
)

func validCreateRequest() *CreateTableRequest {
	return &CreateTableRequest{
		Title:           "Curse of the Amber Keep",
		GameSystem:      "D&D 5e",
		MaxPlayers:      4,
		StartsAt:        baseNow.Add(7 * 24 * time.Hour),
		DurationMinutes: 240,
	}
}

func TestTableCreate(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTableService(db)

	table, err := svc.Create(validCreateRequest(), 1)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if table.Status != models.TableStatusDraft {
		t.Errorf("status = %s, new tables start as draft", table.Status)
	}
	if table.IsPublished {
		t.Error("new table should not be published")
	}
	if table.PublicID == "" {
		t.Error("PublicID should be assigned")
	}
	if table.MinPlayers != 1 {
		t.Errorf("MinPlayers = %d, want default 1", table.MinPlayers)
	}
	if !table.AutoConfirm {
		t.Error("AutoConfirm should default to true")
	}
	if table.RegistrationType != models.RegistrationEveryone {
		t.Errorf("RegistrationType = %s, want default everyone", table.RegistrationType)
	}
}

func TestTableCreate_Validation(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTableService(db)

	tests := []struct {
		name   string
		mutate func(*CreateTableRequest)
	}{
		{"zero max players", func(r *CreateTableRequest) { r.MaxPlayers = 0 }},
		{"zero duration", func(r *CreateTableRequest) { r.DurationMinutes = 0 }},
		{"negative duration", func(r *CreateTableRequest) { r.DurationMinutes = -30 }},
		{"min above max", func(r *CreateTableRequest) { r.MinPlayers = 6; r.MaxPlayers = 4 }},
		{"negative spectators", func(r *CreateTableRequest) { r.MaxSpectators = -1 }},
		{"negative early access", func(r *CreateTableRequest) { r.MembersEarlyAccessDays = -1 }},
		{"unknown registration type", func(r *CreateTableRequest) { r.RegistrationType = "friends_only" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreateRequest()
			tt.mutate(req)
			if _, err := svc.Create(req, 1); !errors.Is(err, ErrValidation) {
				t.Errorf("Create() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestTablePublish(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTableService(db)

	table, err := svc.Create(validCreateRequest(), 1)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	published, err := svc.Publish(table.PublicID)
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if published.Status != models.TableStatusPublished {
		t.Errorf("status = %s, want published", published.Status)
	}
	if !published.IsPublished {
		t.Error("IsPublished should be set")
	}

	// publishing twice is not a valid transition
	if _, err := svc.Publish(table.PublicID); !errors.Is(err, ErrValidation) {
		t.Errorf("second Publish() error = %v, want ErrValidation", err)
	}
}

func TestTableUpdate(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTableService(db)
	table := seedTable(t, db, nil)

	title := "Rime of the Frostmaiden"
	maxPlayers := 6
	updated, err := svc.Update(table.PublicID, &UpdateTableRequest{
		Title:      &title,
		MaxPlayers: &maxPlayers,
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Title != title {
		t.Errorf("Title = %q, want %q", updated.Title, title)
	}
	if updated.MaxPlayers != 6 {
		t.Errorf("MaxPlayers = %d, want 6", updated.MaxPlayers)
	}
	// untouched fields keep their values
	if updated.GameSystem != table.GameSystem {
		t.Errorf("GameSystem = %q, want unchanged %q", updated.GameSystem, table.GameSystem)
	}
}

func TestTableUpdate_Validation(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTableService(db)
	table := seedTable(t, db, nil)

	badDuration := 0
	if _, err := svc.Update(table.PublicID, &UpdateTableRequest{DurationMinutes: &badDuration}); !errors.Is(err, ErrValidation) {
		t.Errorf("Update() zero duration error = %v, want ErrValidation", err)
	}

	minPlayers := 10
	if _, err := svc.Update(table.PublicID, &UpdateTableRequest{MinPlayers: &minPlayers}); !errors.Is(err, ErrValidation) {
		t.Errorf("Update() min above max error = %v, want ErrValidation", err)
	}

	badType := "friends_only"
	if _, err := svc.Update(table.PublicID, &UpdateTableRequest{RegistrationType: &badType}); !errors.Is(err, ErrValidation) {
		t.Errorf("Update() bad registration type error = %v, want ErrValidation", err)
	}
}

func TestTableUpdate_TerminalBlocked(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTableService(db)
	table := seedTable(t, db, func(tb *models.GameTable) {
		tb.Status = models.TableStatusCancelled
	})

	title := "new title"
	if _, err := svc.Update(table.PublicID, &UpdateTableRequest{Title: &title}); !errors.Is(err, ErrValidation) {
		t.Errorf("Update() on cancelled table error = %v, want ErrValidation", err)
	}
}

func TestTableCancel(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTableService(db)
	table := seedTable(t, db, nil)

	cancelled, err := svc.CancelTable(table.PublicID)
	if err != nil {
		t.Fatalf("CancelTable() error = %v", err)
	}
	if cancelled.Status != models.TableStatusCancelled {
		t.Errorf("status = %s, want cancelled", cancelled.Status)
	}

	if _, err := svc.CancelTable(table.PublicID); !errors.Is(err, ErrValidation) {
		t.Errorf("second CancelTable() error = %v, want ErrValidation", err)
	}
}

func TestTableGetByPublicID_NotFound(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTableService(db)

	if _, err := svc.GetByPublicID("no-such-table"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByPublicID() error = %v, want ErrNotFound", err)
	}
}

func TestTableList_PublishedOnly(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTableService(db)

	seedTable(t, db, nil)
	seedTable(t, db, func(tb *models.GameTable) {
		tb.IsPublished = false
		tb.Status = models.TableStatusDraft
	})

	resp, err := svc.List(&TableListRequest{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if resp.Total != 1 {
		t.Errorf("public list total = %d, want 1", resp.Total)
	}

	resp, err = svc.List(&TableListRequest{IncludeUnpublished: true})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if resp.Total != 2 {
		t.Errorf("admin list total = %d, want 2", resp.Total)
	}
}

func TestTableList_Filters(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTableService(db)

	seedTable(t, db, func(tb *models.GameTable) { tb.GameSystem = "Pathfinder 2e" })
	seedTable(t, db, nil)
	seedTable(t, db, func(tb *models.GameTable) { tb.Status = models.TableStatusFull })

	resp, err := svc.List(&TableListRequest{GameSystem: "Pathfinder 2e"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if resp.Total != 1 {
		t.Errorf("game system filter total = %d, want 1", resp.Total)
	}

	resp, err = svc.List(&TableListRequest{Status: string(models.TableStatusFull)})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if resp.Total != 1 {
		t.Errorf("status filter total = %d, want 1", resp.Total)
	}
}

func TestTableList_Pagination(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTableService(db)

	for i := 0; i < 5; i++ {
		offset := time.Duration(i) * time.Hour
		seedTable(t, db, func(tb *models.GameTable) {
			tb.StartsAt = tb.StartsAt.Add(offset)
		})
	}

	resp, err := svc.List(&TableListRequest{Page: 2, PageSize: 2})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if resp.Total != 5 {
		t.Errorf("total = %d, want 5", resp.Total)
	}
	if len(resp.Items) != 2 {
		t.Errorf("page items = %d, want 2", len(resp.Items))
	}
}

func TestTableParticipants_Ordering(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTableService(db)
	table := seedTable(t, db, nil)

	w2 := seedParticipant(t, db, table.ID, func(p *models.Participant) {
		p.Status = models.StatusWaitingList
		p.WaitingListPosition = intPtr(2)
	})
	confirmed := seedParticipant(t, db, table.ID, nil)
	w1 := seedParticipant(t, db, table.ID, func(p *models.Participant) {
		p.Status = models.StatusWaitingList
		p.WaitingListPosition = intPtr(1)
	})

	participants, err := svc.Participants(table.PublicID)
	if err != nil {
		t.Fatalf("Participants() error = %v", err)
	}
	if len(participants) != 3 {
		t.Fatalf("participants = %d, want 3", len(participants))
	}
	if participants[0].ID != confirmed.ID {
		t.Errorf("first entry ID = %d, want the confirmed participant %d", participants[0].ID, confirmed.ID)
	}
	if participants[1].ID != w1.ID || participants[2].ID != w2.ID {
		t.Errorf("waiting order = %d,%d, want %d,%d", participants[1].ID, participants[2].ID, w1.ID, w2.ID)
	}
}

func TestTableSnapshot(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTableService(db)
	table := seedTable(t, db, nil)
	seedParticipant(t, db, table.ID, nil)

	snap, err := svc.Snapshot(table.PublicID)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if snap.ConfirmedPlayers != 1 {
		t.Errorf("ConfirmedPlayers = %d, want 1", snap.ConfirmedPlayers)
	}
	if snap.MaxPlayers != table.MaxPlayers {
		t.Errorf("MaxPlayers = %d, want %d", snap.MaxPlayers, table.MaxPlayers)
	}
}
