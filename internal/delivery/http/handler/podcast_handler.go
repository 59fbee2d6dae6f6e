package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/podlove/podlove-backend/internal/usecase/podcast"
)

type PodcastHandler struct {
	podcastUseCase *podcast.PodcastUseCase
}

func NewPodcastHandler(podcastUseCase *podcast.PodcastUseCase) *PodcastHandler {
	return &PodcastHandler{podcastUseCase: podcastUseCase}
}

func groupIDParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("group_id"))
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "invalid group_id")
		return 0, false
	}
	return id, true
}

// GetGroup handles GET /podcast/:group_id
func (h *PodcastHandler) GetGroup(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		return
	}
	groupID, ok := groupIDParam(c)
	if !ok {
		return
	}

	group, err := h.podcastUseCase.GetGroup(c.Request.Context(), groupID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondOK(c, "ok", group)
}

// GetOpenGroup handles GET /podcast/current
func (h *PodcastHandler) GetOpenGroup(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	group, err := h.podcastUseCase.GetOpenGroup(c.Request.Context(), userID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondOK(c, "ok", group)
}

// ListMyGroups handles GET /podcast
func (h *PodcastHandler) ListMyGroups(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	groups, err := h.podcastUseCase.ListUserGroups(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondOK(c, "ok", groups)
}

// SendRequest handles POST /podcast/:group_id/request
func (h *PodcastHandler) SendRequest(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	groupID, ok := groupIDParam(c)
	if !ok {
		return
	}

	group, err := h.podcastUseCase.SendRequest(c.Request.Context(), userID, groupID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondOK(c, "podcast request sent", group)
}

// SetSchedule handles PUT /podcast/:group_id/schedule (admin)
func (h *PodcastHandler) SetSchedule(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		return
	}
	groupID, ok := groupIDParam(c)
	if !ok {
		return
	}

	var req podcast.SetScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	group, err := h.podcastUseCase.SetSchedule(c.Request.Context(), groupID, &req)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondOK(c, "schedule set", group)
}

// Start handles POST /podcast/:group_id/start
func (h *PodcastHandler) Start(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		return
	}
	groupID, ok := groupIDParam(c)
	if !ok {
		return
	}

	var req podcast.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	group, err := h.podcastUseCase.StartPodcast(c.Request.Context(), groupID, &req)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondOK(c, "podcast started", group)
}

// UpdateRecordingRequest carries the recording location.
type UpdateRecordingRequest struct {
	RecordingURL string `json:"recording_url" binding:"required,url"`
}

// UpdateRecording handles PUT /podcast/:group_id/recording
func (h *PodcastHandler) UpdateRecording(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	groupID, ok := groupIDParam(c)
	if !ok {
		return
	}

	var req UpdateRecordingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	group, err := h.podcastUseCase.UpdateRecording(c.Request.Context(), userID, groupID, req.RecordingURL)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondOK(c, "recording saved", group)
}
