package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// MessageType classifies what a message's content refers to.
type MessageType string

const (
	MessageText  MessageType = "text"
	MessageImage MessageType = "image"
	MessageVideo MessageType = "video"
	MessageFile  MessageType = "file"
)

// DeliveryStatus is the sender-local delivery state of a message. It is
// never persisted: anything read back from the store is "sent" by definition.
type DeliveryStatus string

const (
	DeliverySending DeliveryStatus = "sending"
	DeliverySent    DeliveryStatus = "sent"
	DeliveryFailed  DeliveryStatus = "failed"
)

// Message is a single chat message. Its id is generated by the originating
// client before any network call, so retried writes land on the same row.
type Message struct {
	ID        string         `db:"id" json:"id"`
	Channel   string         `db:"channel" json:"channel,omitempty"`
	Username  string         `db:"username" json:"username"`
	Content   string         `db:"content" json:"content"`
	Type      MessageType    `db:"type" json:"type"`
	Caption   string         `db:"caption" json:"caption,omitempty"`
	Reactions ReactionMap    `db:"reactions" json:"reactions,omitempty"`
	SeenBy    UserList       `db:"seen_by" json:"seenBy,omitempty"`
	SeenAt    *time.Time     `db:"seen_at" json:"seenAt,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
	Status    DeliveryStatus `db:"-" json:"status,omitempty"`
}

// ReactionMap maps username to that user's single emoji reaction.
type ReactionMap map[string]string

func (m *ReactionMap) Scan(src any) error {
	if src == nil {
		*m = ReactionMap{}
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("reactions: unexpected type %T", src)
	}
	return json.Unmarshal(b, m)
}

func (m ReactionMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// UserList is a JSONB-backed list of usernames.
type UserList []string

func (l *UserList) Scan(src any) error {
	if src == nil {
		*l = UserList{}
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("user list: unexpected type %T", src)
	}
	return json.Unmarshal(b, l)
}

func (l UserList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// Contains reports whether username is present in the list.
func (l UserList) Contains(username string) bool {
	for _, u := range l {
		if u == username {
			return true
		}
	}
	return false
}

// TypeForMIME maps an uploaded file's MIME type to a message type.
func TypeForMIME(mime string) MessageType {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return MessageImage
	case strings.HasPrefix(mime, "video/"):
		return MessageVideo
	default:
		return MessageFile
	}
}
