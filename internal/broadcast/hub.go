package broadcast

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"channel-chat-service/internal/models"
	"channel-chat-service/internal/observability"
	"channel-chat-service/internal/rabbitmq"
)

// Hub fans events out to the websocket subscribers of each named channel and
// mirrors every publish to the AMQP exchange. It implements Bus.
type Hub struct {
	rooms    map[string]map[*websocket.Conn]*subscriber
	connInfo map[string]map[*websocket.Conn]ConnInfo
	mu       sync.RWMutex
	mirror   rabbitmq.Publisher
	logger   *zap.SugaredLogger
}

// subscriber carries the per-connection write lock. gorilla/websocket
// supports at most one concurrent writer per connection, and publishes
// come from handler goroutines and the presence sweep at the same time.
type subscriber struct {
	writeMu sync.Mutex
}

// NewHub creates an empty hub.
func NewHub(mirror rabbitmq.Publisher, logger *zap.SugaredLogger) *Hub {
	return &Hub{
		rooms:    make(map[string]map[*websocket.Conn]*subscriber),
		connInfo: make(map[string]map[*websocket.Conn]ConnInfo),
		mirror:   mirror,
		logger:   logger,
	}
}

// Subscribe registers a websocket connection on a channel. Channels come
// into existence with their first subscriber.
func (h *Hub) Subscribe(channel string, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[channel]; !ok {
		h.rooms[channel] = make(map[*websocket.Conn]*subscriber)
	}
	h.rooms[channel][conn] = &subscriber{}
	if _, ok := h.connInfo[channel]; !ok {
		h.connInfo[channel] = make(map[*websocket.Conn]ConnInfo)
	}
	h.connInfo[channel][conn] = info
}

// Unsubscribe removes a connection from a channel. The last connection out
// removes the channel's room entirely.
func (h *Hub) Unsubscribe(channel string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[channel]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, channel)
		}
	}
	if infos, ok := h.connInfo[channel]; ok {
		delete(infos, conn)
		if len(infos) == 0 {
			delete(h.connInfo, channel)
		}
	}
}

// Publish delivers an event to every current subscriber of the channel. A
// write failure drops only that connection; publish itself never fails.
func (h *Hub) Publish(ctx context.Context, channel, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Errorw("broadcast payload marshal failed", "channel", channel, "event", event, "error", err)
		return
	}
	envelope := models.Event{Channel: channel, Event: event, Data: data}
	frame, err := json.Marshal(envelope)
	if err != nil {
		h.logger.Errorw("broadcast envelope marshal failed", "channel", channel, "event", event, "error", err)
		return
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.rooms[channel]))
	subs := make([]*subscriber, 0, len(h.rooms[channel]))
	for conn, sub := range h.rooms[channel] {
		conns = append(conns, conn)
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for i, conn := range conns {
		subs[i].writeMu.Lock()
		err := conn.WriteMessage(websocket.TextMessage, frame)
		subs[i].writeMu.Unlock()
		if err != nil {
			h.logger.Warnw("websocket write error", "channel", channel, "error", err)
			conn.Close()
			h.Unsubscribe(channel, conn)
			observability.IncWSEvent("ws_error")
		}
	}
	observability.IncBusPublished(event)

	if h.mirror != nil {
		// Mirror failures are already logged and counted by the publisher.
		_ = h.mirror.Publish(ctx, "chat."+event, envelope)
	}
}

// Info returns the ConnInfo recorded for a subscribed connection.
func (h *Hub) Info(channel string, conn *websocket.Conn) (ConnInfo, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if infos, ok := h.connInfo[channel]; ok {
		info, exists := infos[conn]
		return info, exists
	}
	return ConnInfo{}, false
}
