package ws

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"channel-chat-service/internal/broadcast"
	"channel-chat-service/internal/observability"
)

// ChannelHandler upgrades websocket connections and subscribes them to a
// named channel on the hub. Channels are open by name: subscribing is the
// only requirement to receive a channel's events.
type ChannelHandler struct {
	hub    *broadcast.Hub
	logger *zap.SugaredLogger
}

// NewChannelHandler constructs a ChannelHandler.
func NewChannelHandler(hub *broadcast.Hub, logger *zap.SugaredLogger) *ChannelHandler {
	return &ChannelHandler{hub: hub, logger: logger}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection and registers the subscriber. The read
// loop exists only to detect the close: the bus never replays missed
// events, clients reconcile gaps through a fresh history load.
func (h *ChannelHandler) Handle(c *gin.Context) {
	channel := c.Query("channel")
	if channel == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "channel is required"})
		return
	}

	ctx, span := otel.Tracer("channel-chat/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := broadcast.ConnInfo{
		ConnID:      uuid.NewString(),
		Username:    c.Query("username"),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	h.hub.Subscribe(channel, conn, info)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	h.logger.Debugw("ws subscribed", "channel", channel, "conn_id", info.ConnID, "username", info.Username)

	go func() {
		defer func() {
			h.hub.Unsubscribe(channel, conn)
			observability.DecWSActive()
			observability.IncWSEvent("ws_disconnect")
			h.logger.Debugw("ws unsubscribed",
				"channel", channel,
				"conn_id", info.ConnID,
				"duration_ms", time.Since(info.ConnectedAt).Milliseconds(),
			)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					observability.IncWSEvent("ws_error")
					h.logger.Debugw("ws read error", "channel", channel, "conn_id", info.ConnID, "error", err)
				}
				return
			}
		}
	}()
}
