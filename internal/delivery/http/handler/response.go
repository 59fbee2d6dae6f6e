package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/podlove/podlove-backend/internal/domain"
)

// Response is the JSON envelope every endpoint answers with.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func respondOK(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Message: message, Data: data})
}

func respondCreated(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, Response{Success: true, Message: message, Data: data})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, Response{Success: false, Message: message})
}

// respondDomainError maps domain sentinels onto HTTP statuses. Business
// outcomes get conflict/unprocessable codes with their own messages so
// clients can branch on them; everything unrecognized is a 500.
func respondDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrGroupNotFound):
		respondError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrEmailTaken),
		errors.Is(err, domain.ErrOpenGroupExists),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrScheduleMismatch):
		respondError(c, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInsufficientCandidates),
		errors.Is(err, domain.ErrCapacityMismatch),
		errors.Is(err, domain.ErrEmptyProfileText):
		respondError(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrNotGroupPrimary):
		respondError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		respondError(c, http.StatusBadRequest, err.Error())
	default:
		respondError(c, http.StatusInternalServerError, "internal error")
	}
}

// currentUserID reads the authenticated user id set by the auth
// middleware.
func currentUserID(c *gin.Context) (int, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		respondError(c, http.StatusUnauthorized, "unauthorized")
		return 0, false
	}
	return v.(int), true
}
