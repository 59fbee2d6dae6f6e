package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/podlove/podlove-backend/internal/usecase/profile"
)

type ProfileHandler struct {
	profileUseCase *profile.ProfileUseCase
}

func NewProfileHandler(profileUseCase *profile.ProfileUseCase) *ProfileHandler {
	return &ProfileHandler{profileUseCase: profileUseCase}
}

// GetMyProfile handles GET /profile/me
func (h *ProfileHandler) GetMyProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	user, err := h.profileUseCase.Get(c.Request.Context(), userID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondOK(c, "ok", user)
}

// UpdateMyProfile handles PUT /profile/me
func (h *ProfileHandler) UpdateMyProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req profile.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.profileUseCase.Update(c.Request.Context(), userID, &req)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondOK(c, "profile updated", user)
}

// DeleteMe handles DELETE /profile/me
func (h *ProfileHandler) DeleteMe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.profileUseCase.Delete(c.Request.Context(), userID); err != nil {
		respondDomainError(c, err)
		return
	}

	respondOK(c, "account deleted", nil)
}

// RebuildEmbeddings handles POST /admin/embeddings/rebuild
func (h *ProfileHandler) RebuildEmbeddings(c *gin.Context) {
	synced, err := h.profileUseCase.RebuildIndex(c.Request.Context())
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondOK(c, "embedding rebuild finished", gin.H{"synced": synced})
}
