package services

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/guildhall/tabletop/backend/internal/models"
	"github.com/guildhall/tabletop/backend/internal/utils"
	"github.com/guildhall/tabletop/backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RegistrationService composes eligibility, capacity, the participant
// state machine and the waiting list into the public register/cancel
// operations. Every mutation for a table runs under that table's lock
// plus a row-level lock on the table row inside the transaction, so the
// capacity recount and the insert are a single serialized unit.
type RegistrationService struct {
	db          *gorm.DB
	eligibility *EligibilityService
	capacity    *CapacityService
	waitingList *WaitingListService
	membership  *MembershipService
	locker      *TableLocker
	queue       TaskQueue
	lockTimeout time.Duration
	now         func() time.Time
}

func NewRegistrationService(db *gorm.DB, membership *MembershipService, locker *TableLocker, queue TaskQueue) *RegistrationService {
	capacity := NewCapacityService(db)
	return &RegistrationService{
		db:          db,
		eligibility: NewEligibilityService(db, capacity),
		capacity:    capacity,
		waitingList: NewWaitingListService(capacity),
		membership:  membership,
		locker:      locker,
		queue:       queue,
		lockTimeout: DefaultLockTimeout,
		now:         time.Now,
	}
}

// SetClock overrides the time source. Tests use it to pin "now".
func (s *RegistrationService) SetClock(now func() time.Time) {
	s.now = now
}

type RegisterRequest struct {
	TableID uint                   `json:"-"`
	UserID  uint                   `json:"-"`
	Role    models.ParticipantRole `json:"role"`
}

type RegisterGuestRequest struct {
	TableID uint                   `json:"-"`
	Name    string                 `json:"name" binding:"required"`
	Email   string                 `json:"email" binding:"required,email"`
	Phone   string                 `json:"phone"`
	Role    models.ParticipantRole `json:"role"`
}

// Register books a club account onto a table: confirmed or pending when
// a slot is free, waiting list otherwise.
func (s *RegistrationService) Register(req *RegisterRequest) (*models.Participant, error) {
	if req.Role == "" {
		req.Role = models.RolePlayer
	}
	if err := validateSelfServiceRole(req.Role); err != nil {
		return nil, err
	}

	table, err := s.loadTable(req.TableID)
	if err != nil {
		return nil, err
	}

	cand, err := s.membership.CandidateFor(req.UserID, s.now())
	if err != nil {
		return nil, err
	}

	return s.register(table, cand, req.Role)
}

// RegisterGuest books a person without an account. The created
// participant carries a cancellation token for unauthenticated
// self-service cancellation.
func (s *RegistrationService) RegisterGuest(req *RegisterGuestRequest) (*models.Participant, error) {
	if req.Role == "" {
		req.Role = models.RolePlayer
	}
	if err := validateSelfServiceRole(req.Role); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: guest name is required", ErrValidation)
	}
	if !isValidEmail(req.Email) {
		return nil, fmt.Errorf("%w: guest email is not a valid address", ErrValidation)
	}

	table, err := s.loadTable(req.TableID)
	if err != nil {
		return nil, err
	}

	return s.register(table, GuestCandidate(req.Name, req.Email, req.Phone), req.Role)
}

// register is the serialized recount-and-insert unit shared by both
// registration paths.
func (s *RegistrationService) register(table *models.GameTable, cand Candidate, role models.ParticipantRole) (*models.Participant, error) {
	release, err := s.locker.Acquire(table.ID, s.lockTimeout)
	if err != nil {
		return nil, err
	}
	defer release()

	now := s.now()
	var created *models.Participant
	var notifyKind string

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var locked models.GameTable
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&locked, table.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if err := s.eligibility.EvaluateTx(tx, &locked, cand, role, now, EvaluateOptions{}); err != nil {
			return err
		}

		free, err := s.capacity.HasFreeSlot(tx, &locked, role)
		if err != nil {
			return err
		}

		p := &models.Participant{
			PublicID:    uuid.NewString(),
			GameTableID: locked.ID,
			Role:        role,
		}
		switch id := cand.Identity.(type) {
		case MemberIdentity:
			userID := id.UserID
			p.UserID = &userID
		case GuestIdentity:
			p.GuestName = id.Name
			p.GuestEmail = id.Email
			p.GuestPhone = id.Phone
			token, err := utils.GenerateCancellationToken()
			if err != nil {
				return err
			}
			p.CancellationToken = token
		}

		switch {
		case free && locked.AutoConfirm:
			p.Status = models.StatusConfirmed
			p.ConfirmedAt = &now
			notifyKind = NotifyConfirmed
		case free:
			p.Status = models.StatusPending
		default:
			pos, err := s.waitingList.NextPosition(tx, locked.ID)
			if err != nil {
				return err
			}
			p.Status = models.StatusWaitingList
			p.WaitingListPosition = &pos
			notifyKind = NotifyWaitlisted
		}

		if err := tx.Create(p).Error; err != nil {
			return err
		}
		if err := s.refreshTableStatus(tx, &locked); err != nil {
			return err
		}
		created = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	if notifyKind != "" {
		s.notify(notifyKind, table, created)
	}
	return created, nil
}

// Cancel cancels a registration on behalf of its owner or an admin. If a
// confirmed slot was vacated the waiting-list head is promoted within
// the same critical section.
func (s *RegistrationService) Cancel(participantPublicID string, actorUserID uint, isAdmin bool) (*models.Participant, error) {
	p, err := s.loadParticipant(participantPublicID)
	if err != nil {
		return nil, err
	}

	if !isAdmin {
		if p.UserID == nil || *p.UserID != actorUserID {
			return nil, ErrForbidden
		}
	}

	return s.cancel(p)
}

// CancelByToken cancels a guest registration resolved via its
// cancellation token.
func (s *RegistrationService) CancelByToken(token string) (*models.Participant, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	var p models.Participant
	err := s.db.Where("cancellation_token = ?", token).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	return s.cancel(&p)
}

func (s *RegistrationService) cancel(p *models.Participant) (*models.Participant, error) {
	table, err := s.loadTable(p.GameTableID)
	if err != nil {
		return nil, err
	}

	release, err := s.locker.Acquire(table.ID, s.lockTimeout)
	if err != nil {
		return nil, err
	}
	defer release()

	now := s.now()
	var cancelled models.Participant
	var promoted *models.Participant

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var locked models.GameTable
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&locked, table.ID).Error; err != nil {
			return err
		}

		// Re-read under the lock; the row may have changed since lookup.
		if err := tx.First(&cancelled, p.ID).Error; err != nil {
			return err
		}

		wasConfirmed := cancelled.Status == models.StatusConfirmed
		wasWaiting := cancelled.Status == models.StatusWaitingList
		var removedPos int
		if wasWaiting && cancelled.WaitingListPosition != nil {
			removedPos = *cancelled.WaitingListPosition
		}

		if err := cancelled.Cancel(now); err != nil {
			return err
		}
		if err := tx.Save(&cancelled).Error; err != nil {
			return err
		}

		if wasWaiting {
			// Keep the remaining positions dense.
			if err := s.waitingList.CompactAfterRemoval(tx, locked.ID, removedPos); err != nil {
				return err
			}
		}
		if wasConfirmed {
			promoted, err = s.waitingList.PromoteNext(tx, &locked, now)
			if err != nil {
				return err
			}
		}

		return s.refreshTableStatus(tx, &locked)
	})
	if err != nil {
		return nil, err
	}

	s.notify(NotifyCancelled, table, &cancelled)
	if promoted != nil {
		s.notify(NotifyPromoted, table, promoted)
	}
	return &cancelled, nil
}

// Confirm approves a pending registration. This path cannot fall back to
// the waiting list, so a capacity shortfall is a hard ErrTableFull.
func (s *RegistrationService) Confirm(participantPublicID string) (*models.Participant, error) {
	p, err := s.loadParticipant(participantPublicID)
	if err != nil {
		return nil, err
	}
	table, err := s.loadTable(p.GameTableID)
	if err != nil {
		return nil, err
	}

	release, err := s.locker.Acquire(table.ID, s.lockTimeout)
	if err != nil {
		return nil, err
	}
	defer release()

	now := s.now()
	var confirmed models.Participant

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var locked models.GameTable
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&locked, table.ID).Error; err != nil {
			return err
		}
		if err := tx.First(&confirmed, p.ID).Error; err != nil {
			return err
		}

		free, err := s.capacity.HasFreeSlot(tx, &locked, confirmed.Role)
		if err != nil {
			return err
		}
		if !free {
			return ErrTableFull
		}

		if err := confirmed.Confirm(now); err != nil {
			return err
		}
		if err := tx.Save(&confirmed).Error; err != nil {
			return err
		}
		return s.refreshTableStatus(tx, &locked)
	})
	if err != nil {
		return nil, err
	}

	s.notify(NotifyConfirmed, table, &confirmed)
	return &confirmed, nil
}

// Reject declines a pending registration.
func (s *RegistrationService) Reject(participantPublicID string) (*models.Participant, error) {
	p, err := s.loadParticipant(participantPublicID)
	if err != nil {
		return nil, err
	}

	release, err := s.locker.Acquire(p.GameTableID, s.lockTimeout)
	if err != nil {
		return nil, err
	}
	defer release()

	var rejected models.Participant
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&rejected, p.ID).Error; err != nil {
			return err
		}
		if err := rejected.Reject(); err != nil {
			return err
		}
		return tx.Save(&rejected).Error
	})
	if err != nil {
		return nil, err
	}
	return &rejected, nil
}

// MarkNoShow flags a participant who did not show up. Only valid once
// the session has started; the freed seat is not re-filled because
// registration is closed by then.
func (s *RegistrationService) MarkNoShow(participantPublicID string) (*models.Participant, error) {
	p, err := s.loadParticipant(participantPublicID)
	if err != nil {
		return nil, err
	}
	table, err := s.loadTable(p.GameTableID)
	if err != nil {
		return nil, err
	}

	release, err := s.locker.Acquire(table.ID, s.lockTimeout)
	if err != nil {
		return nil, err
	}
	defer release()

	now := s.now()
	var marked models.Participant
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var locked models.GameTable
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&locked, table.ID).Error; err != nil {
			return err
		}
		if err := tx.First(&marked, p.ID).Error; err != nil {
			return err
		}
		if err := marked.MarkNoShow(locked.StartsAt, now); err != nil {
			return err
		}
		if err := tx.Save(&marked).Error; err != nil {
			return err
		}
		// a no-show frees a confirmed seat
		return s.refreshTableStatus(tx, &locked)
	})
	if err != nil {
		return nil, err
	}
	return &marked, nil
}

// RegistrationProbe is the non-throwing answer to "could this candidate
// register right now".
type RegistrationProbe struct {
	Eligible    bool   `json:"eligible"`
	WaitingList bool   `json:"waiting_list"`
	Reason      string `json:"reason,omitempty"`
	ReasonCode  string `json:"reason_code,omitempty"`
}

// CanRegister evaluates eligibility without side effects, returning the
// reason as data. It only errors when the table itself is missing or the
// store fails.
func (s *RegistrationService) CanRegister(tableID uint, cand Candidate, role models.ParticipantRole) (*RegistrationProbe, error) {
	table, err := s.loadTable(tableID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.eligibility.Evaluate(table, cand, role, now, EvaluateOptions{}); err != nil {
		code := ReasonCode(err)
		if code == "error" {
			return nil, err
		}
		return &RegistrationProbe{Eligible: false, Reason: err.Error(), ReasonCode: code}, nil
	}

	free, err := s.capacity.HasFreeSlot(s.db, table, role)
	if err != nil {
		return nil, err
	}
	return &RegistrationProbe{Eligible: true, WaitingList: !free}, nil
}

// refreshTableStatus keeps the open/full flag in step with confirmed
// player occupancy. Only statuses in the registrable subset flip.
func (s *RegistrationService) refreshTableStatus(tx *gorm.DB, table *models.GameTable) error {
	if !table.Status.IsRegistrable() {
		return nil
	}

	count, err := s.capacity.ConfirmedCountTx(tx, table.ID, models.RolePlayer)
	if err != nil {
		return err
	}

	next := models.TableStatusOpen
	if count >= table.MaxPlayers {
		next = models.TableStatusFull
	}
	if next == table.Status {
		return nil
	}
	table.Status = next
	return tx.Model(&models.GameTable{}).
		Where("id = ?", table.ID).
		UpdateColumn("status", next).Error
}

func (s *RegistrationService) notify(kind string, table *models.GameTable, p *models.Participant) {
	if s.queue == nil {
		return
	}
	task := &NotificationTask{
		Kind:          kind,
		GameTableID:   table.ID,
		ParticipantID: p.ID,
		TableTitle:    table.Title,
		DisplayName:   p.DisplayName(),
		Role:          string(p.Role),
		Position:      p.WaitingListPosition,
	}
	if err := s.queue.Enqueue(task); err != nil {
		// Fire-and-forget: delivery problems never fail the operation.
		logger.Errorf("[Registration] failed to enqueue %s notification: %v", kind, err)
	}
}

func (s *RegistrationService) loadTable(tableID uint) (*models.GameTable, error) {
	var table models.GameTable
	if err := s.db.First(&table, tableID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &table, nil
}

func (s *RegistrationService) loadParticipant(publicID string) (*models.Participant, error) {
	var p models.Participant
	if err := s.db.Where("public_id = ?", publicID).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func validateSelfServiceRole(role models.ParticipantRole) error {
	if role != models.RolePlayer && role != models.RoleSpectator {
		return ErrInvalidRole
	}
	return nil
}

// isValidEmail does a basic structural check.
// isValidEmail accepts only a bare RFC 5322 address with a dotted
// domain; display names and bare hostnames are rejected.
func isValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	domain := email[strings.LastIndex(email, "@")+1:]
	return strings.Contains(domain, ".")
}
