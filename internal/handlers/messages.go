package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"channel-chat-service/internal/broadcast"
	"channel-chat-service/internal/models"
	"channel-chat-service/internal/repositories"
)

// MessageHandler manages the durable-message endpoints. Every successful
// write is followed by a bus publish; a publish that fails after the write
// is not surfaced because the store already holds the truth and subscribers
// recover on their next history load.
type MessageHandler struct {
	repo   repositories.MessageRepository
	bus    broadcast.Bus
	logger *zap.SugaredLogger
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(repo repositories.MessageRepository, bus broadcast.Bus, logger *zap.SugaredLogger) *MessageHandler {
	return &MessageHandler{repo: repo, bus: bus, logger: logger}
}

// PostMessage persists a client-originated message and broadcasts it on its
// channel. The message id comes from the client; retried posts with the
// same id return the originally stored row.
func (h *MessageHandler) PostMessage(c *gin.Context) {
	var req struct {
		Channel string         `json:"channel"`
		Message models.Message `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Channel == "" || req.Message.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "channel and message are required"})
		return
	}
	if req.Message.Username == "" || strings.TrimSpace(req.Message.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message username and content are required"})
		return
	}
	if req.Message.Type == "" {
		req.Message.Type = models.MessageText
	}

	stored, err := h.repo.SaveMessage(c.Request.Context(), req.Channel, req.Message)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save message"})
		return
	}

	h.bus.Publish(c.Request.Context(), req.Channel, models.EventNewMessage, stored)

	c.JSON(http.StatusOK, gin.H{"success": true, "message": stored})
}

// GetMessages returns a channel's full history ordered by creation time
// ascending.
func (h *MessageHandler) GetMessages(c *gin.Context) {
	channel := c.Query("channel")
	if channel == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "channel is required"})
		return
	}

	msgs, err := h.repo.ListChannelMessages(c.Request.Context(), channel)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "messages": msgs})
}

// PatchReaction toggles the user's reaction on a message and broadcasts the
// resulting full reaction map on the shared reactions channel.
func (h *MessageHandler) PatchReaction(c *gin.Context) {
	var req struct {
		MessageID string `json:"messageId"`
		Emoji     string `json:"emoji"`
		Username  string `json:"username"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.MessageID == "" || req.Emoji == "" || req.Username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "messageId, emoji and username are required"})
		return
	}

	reactions, err := h.repo.ToggleReaction(c.Request.Context(), req.MessageID, req.Username, req.Emoji)
	if errors.Is(err, repositories.ErrMessageNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update reaction"})
		return
	}

	h.bus.Publish(c.Request.Context(), models.ChannelReactions, models.EventReactionsUpdated, models.ReactionsUpdate{
		MessageID: req.MessageID,
		Reactions: reactions,
	})

	c.JSON(http.StatusOK, gin.H{"success": true, "reactions": reactions})
}

// PatchSeen adds the user to a message's seen-by set. Marking an
// already-seen message succeeds without broadcasting again.
func (h *MessageHandler) PatchSeen(c *gin.Context) {
	var req struct {
		MessageID string `json:"messageId"`
		Username  string `json:"username"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.MessageID == "" || req.Username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "messageId and username are required"})
		return
	}

	seenBy, changed, err := h.repo.MarkSeen(c.Request.Context(), req.MessageID, req.Username)
	if errors.Is(err, repositories.ErrMessageNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update seen status"})
		return
	}

	if changed {
		h.bus.Publish(c.Request.Context(), models.ChannelMessageUpdates, models.EventMessageSeen, models.MessageSeenUpdate{
			MessageID:     req.MessageID,
			MessageSeenBy: seenBy,
			Timestamp:     time.Now().UTC(),
		})
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "messageSeen": true, "messageSeenBy": seenBy})
}
