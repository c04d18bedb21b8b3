package handler

import (
	"errors"
	"net/http"

	"relay-chat/internal/transport/httpdto"
	relay_errors "relay-chat/pkg/errors"

	"github.com/gin-gonic/gin"
)

// respondError maps domain sentinels onto HTTP statuses. Anything
// unrecognized is reported as a 500 without leaking internals.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, relay_errors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
	case errors.Is(err, relay_errors.ErrForbidden):
		c.JSON(http.StatusForbidden, httpdto.NewErrorResponse("forbidden", "FORBIDDEN"))
	case errors.Is(err, relay_errors.ErrNotFound):
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("not found", "NOT_FOUND"))
	case errors.Is(err, relay_errors.ErrAlreadyExists):
		c.JSON(http.StatusConflict, httpdto.NewErrorResponse("already exists", "ALREADY_EXISTS"))
	case errors.Is(err, relay_errors.ErrConflict):
		c.JSON(http.StatusConflict, httpdto.NewErrorResponse("conflict", "CONFLICT"))
	case errors.Is(err, relay_errors.ErrAlreadyDeleted):
		c.JSON(http.StatusConflict, httpdto.NewErrorResponse("already deleted", "ALREADY_DELETED"))
	case errors.Is(err, relay_errors.ErrExpired):
		c.JSON(http.StatusGone, httpdto.NewErrorResponse("window expired", "EXPIRED"))
	case errors.Is(err, relay_errors.ErrEmptyMessage):
		c.JSON(http.StatusUnprocessableEntity, httpdto.NewErrorResponse("message has no content", "EMPTY_MESSAGE"))
	case errors.Is(err, relay_errors.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
	case errors.Is(err, relay_errors.ErrServiceUnavailable):
		c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse("service unavailable", "SERVICE_UNAVAILABLE"))
	default:
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("internal error", "INTERNAL_ERROR"))
	}
}
