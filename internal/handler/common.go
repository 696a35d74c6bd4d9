package handler

import (
	"errors"
	"net/http"

	"clubmail/internal/domain/user"
	"clubmail/internal/transport/httpdto"
	clubmail_errors "clubmail/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func moderatorRole(role string) bool {
	return role == user.RoleAdmin || role == user.RoleModerator
}

func parseUUID(value string) (uuid.UUID, error) {
	if value == "" {
		return uuid.Nil, errors.New("empty id")
	}
	return uuid.Parse(value)
}

// respondError maps domain sentinels onto the HTTP status contract.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, clubmail_errors.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(err.Error(), "INVALID_REQUEST"))
	case errors.Is(err, clubmail_errors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse(err.Error(), "UNAUTHORIZED"))
	case errors.Is(err, clubmail_errors.ErrNotARecipient):
		c.JSON(http.StatusForbidden, httpdto.NewErrorResponse(err.Error(), "NOT_A_RECIPIENT"))
	case errors.Is(err, clubmail_errors.ErrForbidden):
		c.JSON(http.StatusForbidden, httpdto.NewErrorResponse(err.Error(), "FORBIDDEN"))
	case errors.Is(err, clubmail_errors.ErrNotFound):
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse(err.Error(), "NOT_FOUND"))
	case errors.Is(err, clubmail_errors.ErrHasReplies):
		c.JSON(http.StatusConflict, httpdto.NewErrorResponse(err.Error(), "HAS_REPLIES"))
	case errors.Is(err, clubmail_errors.ErrAlreadyExists):
		c.JSON(http.StatusConflict, httpdto.NewErrorResponse(err.Error(), "ALREADY_EXISTS"))
	case errors.Is(err, clubmail_errors.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, httpdto.NewErrorResponse(err.Error(), "RATE_LIMITED"))
	case errors.Is(err, clubmail_errors.ErrStorageUnavailable):
		c.JSON(http.StatusBadGateway, httpdto.NewErrorResponse(err.Error(), "STORAGE_UNAVAILABLE"))
	default:
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("internal error", "INTERNAL_ERROR"))
	}
}
