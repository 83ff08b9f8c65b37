package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"channel-chat-service/internal/models"
)

// Presence is the tracker surface the handler depends on.
type Presence interface {
	Heartbeat(ctx context.Context, channel, username string)
	MarkOffline(ctx context.Context, channel, username string)
	ActiveUsers(channel string) []models.ActiveUser
}

// PresenceHandler exposes the heartbeat endpoint clients hit on connect, on
// a fixed period, on visibility changes and (best-effort) on unload.
type PresenceHandler struct {
	tracker Presence
}

// NewPresenceHandler builds a PresenceHandler.
func NewPresenceHandler(tracker Presence) *PresenceHandler {
	return &PresenceHandler{tracker: tracker}
}

// PostPresence applies an online heartbeat or an offline signal. Status
// broadcasts are the tracker's concern and happen only on real transitions.
func (h *PresenceHandler) PostPresence(c *gin.Context) {
	var req struct {
		Username    string `json:"username"`
		Status      string `json:"status"`
		ChannelName string `json:"channelName"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ChannelName == "" || req.Username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "channelName and username are required"})
		return
	}

	switch req.Status {
	case models.PresenceOnline:
		h.tracker.Heartbeat(c.Request.Context(), req.ChannelName, req.Username)
	case models.PresenceOffline:
		h.tracker.MarkOffline(c.Request.Context(), req.ChannelName, req.Username)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be online or offline"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetPresence returns the current active-user list for a channel.
func (h *PresenceHandler) GetPresence(c *gin.Context) {
	channel := c.Query("channel")
	if channel == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "channel is required"})
		return
	}

	active := h.tracker.ActiveUsers(channel)
	if active == nil {
		active = []models.ActiveUser{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "activeUsers": active})
}
