package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/guildhall/tabletop/backend/internal/models"
	"github.com/guildhall/tabletop/backend/internal/services"
	"github.com/guildhall/tabletop/backend/pkg/logger"
	"github.com/guildhall/tabletop/backend/pkg/response"
)

// handleServiceError maps domain sentinels onto the HTTP envelope.
// Anything unmapped is a 500 and gets logged.
func handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound),
		errors.Is(err, services.ErrInvalidToken):
		response.NotFound(c, err.Error())
	case errors.Is(err, services.ErrForbidden),
		errors.Is(err, services.ErrInviteOnly),
		errors.Is(err, services.ErrMembersOnly),
		errors.Is(err, services.ErrMinimumAge):
		response.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrRegistrationNotOpen),
		errors.Is(err, services.ErrRegistrationClosed),
		errors.Is(err, services.ErrAlreadyRegistered),
		errors.Is(err, services.ErrTableFull),
		errors.Is(err, models.ErrCannotCancel),
		errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrSessionNotStarted):
		response.Conflict(c, err.Error())
	case errors.Is(err, services.ErrBusy):
		response.Unavailable(c, err.Error())
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrInvalidRole),
		errors.Is(err, models.ErrInvalidDuration):
		response.BadRequest(c, err.Error())
	default:
		logger.Errorf("[API] unhandled service error: %v", err)
		response.ServerError(c, "internal error")
	}
}
