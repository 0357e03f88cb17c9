package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/RozoAI/rozo-intents/codec"
	"github.com/RozoAI/rozo-intents/services"
)

// statusForError maps service sentinel errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrIntentNotFound),
		errors.Is(err, services.ErrFillNotFound),
		errors.Is(err, services.ErrChainNotFound):
		return http.StatusNotFound

	case errors.Is(err, services.ErrNotOwner),
		errors.Is(err, services.ErrNotRelayer),
		errors.Is(err, services.ErrNotAssignedRelayer),
		errors.Is(err, services.ErrNotAuthorized),
		errors.Is(err, services.ErrNotMessenger),
		errors.Is(err, services.ErrUntrustedSource):
		return http.StatusForbidden

	case errors.Is(err, services.ErrIntentAlreadyExists),
		errors.Is(err, services.ErrAlreadyFilled),
		errors.Is(err, services.ErrAlreadyInitialized),
		errors.Is(err, services.ErrNotInitialized),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrIntentNotExpired):
		return http.StatusConflict

	case errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrInvalidDeadline),
		errors.Is(err, services.ErrInvalidFee),
		errors.Is(err, services.ErrInsufficientBalance),
		errors.Is(err, codec.ErrInvalidAddress),
		errors.Is(err, codec.ErrInvalidPayload),
		errors.Is(err, codec.ErrAmountOverflow):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// abortWithError writes the canonical error body for a failed service call.
func abortWithError(c *gin.Context, err error) {
	c.JSON(statusForError(err), gin.H{"error": err.Error()})
}
