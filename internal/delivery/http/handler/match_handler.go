package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/podlove/podlove-backend/internal/usecase/match"
)

type MatchHandler struct {
	matchUseCase *match.MatchUseCase
}

func NewMatchHandler(matchUseCase *match.MatchUseCase) *MatchHandler {
	return &MatchHandler{matchUseCase: matchUseCase}
}

// FindMatches handles POST /match/find
func (h *MatchHandler) FindMatches(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req match.FindMatchesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	group, err := h.matchUseCase.FindMatches(c.Request.Context(), userID, &req)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondCreated(c, "podcast group created", group)
}

// Candidates handles GET /match/candidates
func (h *MatchHandler) Candidates(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	topK, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	candidates, err := h.matchUseCase.Candidates(c.Request.Context(), userID, topK)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondOK(c, "ok", candidates)
}
