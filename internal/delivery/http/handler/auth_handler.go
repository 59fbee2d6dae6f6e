package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/podlove/podlove-backend/internal/usecase/auth"
)

type AuthHandler struct {
	authUseCase *auth.AuthUseCase
}

func NewAuthHandler(authUseCase *auth.AuthUseCase) *AuthHandler {
	return &AuthHandler{authUseCase: authUseCase}
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.authUseCase.Register(c.Request.Context(), &req)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondCreated(c, "account created", resp)
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.authUseCase.Login(c.Request.Context(), &req)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondOK(c, "logged in", resp)
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	user, err := h.authUseCase.Me(c.Request.Context(), userID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondOK(c, "ok", user)
}
