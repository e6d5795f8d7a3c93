package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/guildhall/tabletop/backend/internal/middleware"
	"github.com/guildhall/tabletop/backend/internal/services"
	"github.com/guildhall/tabletop/backend/pkg/response"
)

type TableHandler struct {
	tableService *services.TableService
}

func NewTableHandler(db *gorm.DB) *TableHandler {
	return &TableHandler{tableService: services.NewTableService(db)}
}

// List returns game tables with optional filters.
// GET /api/tables
func (h *TableHandler) List(c *gin.Context) {
	var req services.TableListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	req.IncludeUnpublished = middleware.IsAdmin(c)

	resp, err := h.tableService.List(&req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, resp)
}

// Get returns a single table by its public id.
// GET /api/tables/:id
func (h *TableHandler) Get(c *gin.Context) {
	table, err := h.tableService.GetByPublicID(c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if !table.IsPublished && !middleware.IsAdmin(c) {
		response.NotFound(c, "table not found")
		return
	}
	response.Success(c, table)
}

// Create creates a new table in draft status.
// POST /api/tables
func (h *TableHandler) Create(c *gin.Context) {
	var req services.CreateTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	table, err := h.tableService.Create(&req, middleware.GetUserID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Created(c, table)
}

// Update partially updates a table.
// PUT /api/tables/:id
func (h *TableHandler) Update(c *gin.Context) {
	var req services.UpdateTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	table, err := h.tableService.Update(c.Param("id"), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, table)
}

// Publish makes a draft table visible and registrable.
// POST /api/tables/:id/publish
func (h *TableHandler) Publish(c *gin.Context) {
	table, err := h.tableService.Publish(c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, table)
}

// Cancel cancels a table and its session.
// POST /api/tables/:id/cancel
func (h *TableHandler) Cancel(c *gin.Context) {
	table, err := h.tableService.CancelTable(c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, table)
}

// Participants lists registrations for a table, waiting list last.
// GET /api/tables/:id/participants
func (h *TableHandler) Participants(c *gin.Context) {
	participants, err := h.tableService.Participants(c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, participants)
}

// Snapshot returns confirmed counts against capacity.
// GET /api/tables/:id/capacity
func (h *TableHandler) Snapshot(c *gin.Context) {
	snapshot, err := h.tableService.Snapshot(c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, snapshot)
}
