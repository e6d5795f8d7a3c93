package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/guildhall/tabletop/backend/internal/config"
	"github.com/guildhall/tabletop/backend/internal/middleware"
	"github.com/guildhall/tabletop/backend/internal/models"
	"github.com/guildhall/tabletop/backend/internal/services"
	"github.com/guildhall/tabletop/backend/pkg/response"
)

type RegistrationHandler struct {
	registrationService *services.RegistrationService
	membershipService   *services.MembershipService
	tableService        *services.TableService
}

func NewRegistrationHandler(db *gorm.DB, cfg *config.Config) *RegistrationHandler {
	ldap := services.NewLDAPService(&cfg.LDAP)
	membership := services.NewMembershipService(db, ldap)
	return &RegistrationHandler{
		registrationService: services.NewRegistrationService(db, membership, services.NewTableLocker(), services.GetTaskQueue()),
		membershipService:   membership,
		tableService:        services.NewTableService(db),
	}
}

func (h *RegistrationHandler) resolveTable(c *gin.Context) (*models.GameTable, bool) {
	table, err := h.tableService.GetByPublicID(c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return nil, false
	}
	return table, true
}

// Register books the authenticated user onto a table.
// POST /api/tables/:id/register
func (h *RegistrationHandler) Register(c *gin.Context) {
	table, ok := h.resolveTable(c)
	if !ok {
		return
	}

	var req services.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		response.BadRequest(c, err.Error())
		return
	}
	req.TableID = table.ID
	req.UserID = middleware.GetUserID(c)

	participant, err := h.registrationService.Register(&req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Created(c, participant)
}

// RegisterGuest books a person without an account onto a table.
// POST /api/tables/:id/register-guest
func (h *RegistrationHandler) RegisterGuest(c *gin.Context) {
	table, ok := h.resolveTable(c)
	if !ok {
		return
	}

	var req services.RegisterGuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	req.TableID = table.ID

	participant, err := h.registrationService.RegisterGuest(&req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Created(c, participant)
}

// CanRegister answers whether the caller could register right now.
// Always 200 for eligibility outcomes; the reason comes back as data.
// GET /api/tables/:id/can-register?role=player&email=...
func (h *RegistrationHandler) CanRegister(c *gin.Context) {
	table, ok := h.resolveTable(c)
	if !ok {
		return
	}

	role := models.ParticipantRole(c.DefaultQuery("role", string(models.RolePlayer)))

	var cand services.Candidate
	if userID := middleware.GetUserID(c); userID > 0 {
		var err error
		cand, err = h.membershipService.CandidateFor(userID, time.Now())
		if err != nil {
			handleServiceError(c, err)
			return
		}
	} else {
		cand = services.GuestCandidate(c.Query("name"), c.Query("email"), "")
	}

	probe, err := h.registrationService.CanRegister(table.ID, cand, role)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, probe)
}

// Cancel cancels a registration owned by the caller (admins may cancel any).
// POST /api/participants/:id/cancel
func (h *RegistrationHandler) Cancel(c *gin.Context) {
	participant, err := h.registrationService.Cancel(c.Param("id"), middleware.GetUserID(c), middleware.IsAdmin(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, participant)
}

// CancelByToken cancels a guest registration by its emailed token.
// POST /api/registrations/cancel-by-token
func (h *RegistrationHandler) CancelByToken(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	participant, err := h.registrationService.CancelByToken(req.Token)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, participant)
}

// Confirm moves a pending registration to confirmed.
// POST /api/participants/:id/confirm
func (h *RegistrationHandler) Confirm(c *gin.Context) {
	participant, err := h.registrationService.Confirm(c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, participant)
}

// Reject declines a pending registration.
// POST /api/participants/:id/reject
func (h *RegistrationHandler) Reject(c *gin.Context) {
	participant, err := h.registrationService.Reject(c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, participant)
}

// MarkNoShow marks a participant absent once the session has started.
// POST /api/participants/:id/no-show
func (h *RegistrationHandler) MarkNoShow(c *gin.Context) {
	participant, err := h.registrationService.MarkNoShow(c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, participant)
}
