package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/podlove/podlove-backend/internal/realtime"
)

type PresenceHandler struct {
	registry realtime.Registry
}

func NewPresenceHandler(registry realtime.Registry) *PresenceHandler {
	return &PresenceHandler{registry: registry}
}

// ConnectRequest identifies the client connection being registered.
type ConnectRequest struct {
	ConnectionID string `json:"connection_id" binding:"required,max=128"`
}

// Connect handles POST /presence/connect
func (h *PresenceHandler) Connect(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.registry.Add(c.Request.Context(), userID, req.ConnectionID); err != nil {
		respondError(c, http.StatusInternalServerError, "failed to register connection")
		return
	}
	respondOK(c, "connected", nil)
}

// Disconnect handles DELETE /presence
func (h *PresenceHandler) Disconnect(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.registry.Remove(c.Request.Context(), userID); err != nil {
		respondError(c, http.StatusInternalServerError, "failed to remove connection")
		return
	}
	respondOK(c, "disconnected", nil)
}
