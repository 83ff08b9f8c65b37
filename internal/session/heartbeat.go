package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"channel-chat-service/internal/models"
)

// PresenceClient posts presence signals for a user in a channel.
type PresenceClient interface {
	UpdatePresence(ctx context.Context, channel, username, status string) error
}

// Heartbeater announces a user online on a fixed period and best-effort
// offline on shutdown. Failures are logged and never surfaced; the server
// side sweep covers a client that dies without saying goodbye.
type Heartbeater struct {
	client   PresenceClient
	channel  string
	username string
	interval time.Duration
	logger   *zap.SugaredLogger
}

// NewHeartbeater builds a Heartbeater beating every interval.
func NewHeartbeater(client PresenceClient, channel, username string, interval time.Duration, logger *zap.SugaredLogger) *Heartbeater {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Heartbeater{
		client:   client,
		channel:  channel,
		username: username,
		interval: interval,
		logger:   logger,
	}
}

// Run sends an immediate online signal, then heartbeats until ctx is
// cancelled, finishing with a fire-and-forget offline signal.
func (h *Heartbeater) Run(ctx context.Context) {
	h.beat(ctx, models.PresenceOnline)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			h.beat(ctx, models.PresenceOnline)
		case <-ctx.Done():
			// The parent context is gone; give the goodbye its own
			// short deadline and don't wait on the outcome.
			offlineCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			h.beat(offlineCtx, models.PresenceOffline)
			return
		}
	}
}

func (h *Heartbeater) beat(ctx context.Context, status string) {
	if err := h.client.UpdatePresence(ctx, h.channel, h.username, status); err != nil {
		h.logger.Debugw("presence update failed", "channel", h.channel, "status", status, "error", err)
	}
}
