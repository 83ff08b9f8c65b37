package models

import (
	"encoding/json"
	"time"
)

// Event names carried by the broadcast bus.
const (
	EventNewMessage       = "new-message"
	EventReactionsUpdated = "updated"
	EventMessageSeen      = "message-seen"
	EventUserStatusChange = "user-status-change"
)

// Well-known bus channels for per-message sub-state updates. Message bodies
// are broadcast on their own channel; reaction and seen updates fan out on
// these shared ones.
const (
	ChannelReactions      = "reactions"
	ChannelMessageUpdates = "message-updates"
)

// Event is the envelope every bus subscriber receives.
type Event struct {
	Channel string          `json:"channel"`
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data"`
}

// ReactionsUpdate is the payload of EventReactionsUpdated.
type ReactionsUpdate struct {
	MessageID string      `json:"messageId"`
	Reactions ReactionMap `json:"reactions"`
}

// MessageSeenUpdate is the payload of EventMessageSeen.
type MessageSeenUpdate struct {
	MessageID     string    `json:"messageId"`
	MessageSeenBy UserList  `json:"messageSeenBy"`
	Timestamp     time.Time `json:"timestamp"`
}

// UserStatusChange is the payload of EventUserStatusChange. ActiveUsers is
// the full post-transition list for the channel.
type UserStatusChange struct {
	Username    string       `json:"username"`
	Status      string       `json:"status"`
	Timestamp   time.Time    `json:"timestamp"`
	ActiveUsers []ActiveUser `json:"activeUsers"`
}

// ActiveUser is one entry of a channel's presence list.
type ActiveUser struct {
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
}

// Presence statuses accepted by the presence endpoint.
const (
	PresenceOnline  = "online"
	PresenceOffline = "offline"
)
