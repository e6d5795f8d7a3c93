package services

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/guildhall/tabletop/backend/internal/models"
)

// baseNow is the pinned clock for service tests.
var baseNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

var testDBSeq atomic.Int64

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.GameTable{}, &models.Participant{}, &models.NotificationLog{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

// seedTable creates a published table that is open for registration at
// baseNow: four player seats, one spectator seat, session a week out.
func seedTable(t *testing.T, db *gorm.DB, mutate func(*models.GameTable)) *models.GameTable {
	t.Helper()

	opens := baseNow.Add(-24 * time.Hour)
	start := baseNow.AddDate(0, 0, 7)
	closes := start

	table := &models.GameTable{
		PublicID:             uuid.NewString(),
		Title:                "Curse of the Amber Keep",
		GameSystem:           "D&D 5e",
		OwnerID:              1,
		MinPlayers:           2,
		MaxPlayers:           4,
		MaxSpectators:        1,
		TimeWindow:           models.TimeWindow{StartsAt: start, DurationMinutes: 240},
		RegistrationType:     models.RegistrationEveryone,
		RegistrationOpensAt:  &opens,
		RegistrationClosesAt: &closes,
		AutoConfirm:          true,
		IsPublished:          true,
		Status:               models.TableStatusOpen,
	}
	if mutate != nil {
		mutate(table)
	}
	if err := db.Create(table).Error; err != nil {
		t.Fatalf("failed to seed table: %v", err)
	}
	return table
}

// seedUser creates an account; memberUntil nil means no membership.
func seedUser(t *testing.T, db *gorm.DB, username string, memberUntil, birthDate *time.Time) *models.User {
	t.Helper()

	user := &models.User{
		PublicID:    uuid.NewString(),
		Username:    username,
		Role:        "user",
		AuthType:    "local",
		MemberUntil: memberUntil,
		BirthDate:   birthDate,
		IsActive:    true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to seed user %s: %v", username, err)
	}
	return user
}

func seedParticipant(t *testing.T, db *gorm.DB, tableID uint, mutate func(*models.Participant)) *models.Participant {
	t.Helper()

	p := &models.Participant{
		PublicID:    uuid.NewString(),
		GameTableID: tableID,
		Role:        models.RolePlayer,
		Status:      models.StatusConfirmed,
	}
	if mutate != nil {
		mutate(p)
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("failed to seed participant: %v", err)
	}
	return p
}

func memberCandidate(userID uint) Candidate {
	return Candidate{Identity: MemberIdentity{UserID: userID}, IsMember: true}
}

func newTestRegistrationService(t *testing.T, db *gorm.DB) *RegistrationService {
	t.Helper()

	svc := NewRegistrationService(db, NewMembershipService(db, nil), NewTableLocker(), nil)
	svc.SetClock(func() time.Time { return baseNow })
	return svc
}

func intPtr(n int) *int { return &n }

func timePtr(ts time.Time) *time.Time { return &ts }
