// Package session implements the client-side view of one chat channel: the
// reconciliation of locally-originated optimistic messages, store-confirmed
// state and live broadcast events into a single ordered, duplicate-free
// sequence.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"channel-chat-service/internal/media"
	"channel-chat-service/internal/models"
)

var (
	// ErrEmptyMessage rejects sends whose text is empty or whitespace-only.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrNoFile rejects file sends with no content.
	ErrNoFile = errors.New("no file provided")
	// ErrUnknownMessage reports a mutation against a message the view does
	// not contain.
	ErrUnknownMessage = errors.New("unknown message")
)

// Store is the durable message state the session reconciles against.
// Writes are idempotent: message ids are client-generated and sub-state
// updates are conditional, so any call is safe to retry whole.
type Store interface {
	LoadHistory(ctx context.Context, channel string) ([]models.Message, error)
	SaveMessage(ctx context.Context, channel string, msg models.Message) (models.Message, error)
	ToggleReaction(ctx context.Context, messageID, username, emoji string) (models.ReactionMap, error)
	MarkSeen(ctx context.Context, messageID, username string) (models.UserList, error)
}

// FileUpload is a locally-selected file waiting to be sent. PreviewURL is a
// transient local resource shown until the durable URL exists; Release
// frees it and is called on every exit path once the preview is superseded
// or the send has failed.
type FileUpload struct {
	Name        string
	ContentType string
	Content     io.Reader
	PreviewURL  string
	Release     func()
}

// Session is one user's live view of one channel. All methods are safe for
// concurrent use; the broadcast pump and user actions run on different
// goroutines.
type Session struct {
	channel  string
	username string
	store    Store
	uploader media.Uploader
	logger   *zap.SugaredLogger

	mu       sync.Mutex
	messages []models.Message
	index    map[string]int // message id -> position, O(1) dedup

	now func() time.Time
}

// New builds a Session for username on channel.
func New(channel, username string, store Store, uploader media.Uploader, logger *zap.SugaredLogger) *Session {
	return &Session{
		channel:  channel,
		username: username,
		store:    store,
		uploader: uploader,
		logger:   logger,
		index:    make(map[string]int),
		now:      time.Now,
	}
}

// Messages returns a snapshot of the current ordered view.
func (s *Session) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// LoadHistory replaces the view with the channel's persisted history,
// ordered by creation time ascending. Everything persisted is "sent" by
// definition. The view is untouched when the load fails, so a failed call
// is all-or-nothing and retriable.
func (s *Session) LoadHistory(ctx context.Context) ([]models.Message, error) {
	history, err := s.store.LoadHistory(ctx, s.channel)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = s.messages[:0]
	s.index = make(map[string]int, len(history))
	for _, m := range history {
		m.Status = models.DeliverySent
		s.appendLocked(m)
	}
	out := make([]models.Message, len(s.messages))
	copy(out, s.messages)
	return out, nil
}

// Resync reconciles the view with a fresh history load after a broadcast
// gap (the bus has no replay). Local messages still sending or failed are
// kept; everything else is replaced by store truth.
func (s *Session) Resync(ctx context.Context) error {
	history, err := s.store.LoadHistory(ctx, s.channel)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	inHistory := make(map[string]bool, len(history))
	for _, m := range history {
		inHistory[m.ID] = true
	}
	var pending []models.Message
	for _, m := range s.messages {
		if !inHistory[m.ID] && m.Status != models.DeliverySent {
			pending = append(pending, m)
		}
	}

	s.messages = s.messages[:0]
	s.index = make(map[string]int, len(history)+len(pending))
	for _, m := range history {
		m.Status = models.DeliverySent
		s.appendLocked(m)
	}
	for _, m := range pending {
		s.appendLocked(m)
	}
	return nil
}

// SendText optimistically appends a new message to the view, then persists
// it. A persistence failure leaves the message visible in its terminal
// "failed" state; it is never removed and never retried automatically. The
// returned error covers rejected input only.
func (s *Session) SendText(ctx context.Context, text string) (models.Message, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return models.Message{}, ErrEmptyMessage
	}

	msg := models.Message{
		ID:        uuid.NewString(),
		Channel:   s.channel,
		Username:  s.username,
		Content:   trimmed,
		Type:      models.MessageText,
		CreatedAt: s.now(),
		Status:    models.DeliverySending,
	}
	s.append(msg)

	return s.persist(ctx, msg), nil
}

// SendFile shows the local preview immediately, uploads the binary
// out-of-band, swaps in the durable URL, then persists like a text send.
// When the upload fails nothing is persisted or broadcast and the message
// ends "failed".
func (s *Session) SendFile(ctx context.Context, file FileUpload, caption string) (models.Message, error) {
	if file.Content == nil {
		return models.Message{}, ErrNoFile
	}
	defer func() {
		if file.Release != nil {
			file.Release()
		}
	}()

	msg := models.Message{
		ID:        uuid.NewString(),
		Channel:   s.channel,
		Username:  s.username,
		Content:   file.PreviewURL,
		Type:      models.TypeForMIME(file.ContentType),
		Caption:   caption,
		CreatedAt: s.now(),
		Status:    models.DeliverySending,
	}
	s.append(msg)

	result, err := s.uploader.Upload(ctx, file.Name, file.ContentType, file.Content)
	if err != nil {
		s.logger.Warnw("file upload failed", "channel", s.channel, "message_id", msg.ID, "error", err)
		s.setStatus(msg.ID, models.DeliveryFailed)
		msg.Status = models.DeliveryFailed
		return msg, nil
	}

	s.setContent(msg.ID, result.FileURL)
	msg.Content = result.FileURL

	return s.persist(ctx, msg), nil
}

// HandleEvent merges one broadcast event into the view. New-message events
// are deduplicated by id: the originator already holds its optimistic copy,
// and at-least-once delivery may hand anyone the same event twice. Foreign
// messages append in receipt order.
func (s *Session) HandleEvent(ev models.Event) {
	switch ev.Event {
	case models.EventNewMessage:
		var m models.Message
		if err := json.Unmarshal(ev.Data, &m); err != nil {
			s.logger.Warnw("bad new-message payload", "channel", ev.Channel, "error", err)
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, exists := s.index[m.ID]; exists {
			return
		}
		m.Status = models.DeliverySent
		s.appendLocked(m)

	case models.EventReactionsUpdated:
		var u models.ReactionsUpdate
		if err := json.Unmarshal(ev.Data, &u); err != nil {
			s.logger.Warnw("bad reactions payload", "error", err)
			return
		}
		s.setReactions(u.MessageID, u.Reactions)

	case models.EventMessageSeen:
		var u models.MessageSeenUpdate
		if err := json.Unmarshal(ev.Data, &u); err != nil {
			s.logger.Warnw("bad message-seen payload", "error", err)
			return
		}
		s.setSeenBy(u.MessageID, u.MessageSeenBy)
	}
}

// React toggles this user's reaction on a message, apply-then-confirm: the
// local toggle happens immediately and is inverted if the store rejects the
// update. On success the store's full map is adopted as authoritative.
func (s *Session) React(ctx context.Context, messageID, emoji string) error {
	cmd, ok := s.reactionCommand(messageID, emoji)
	if !ok {
		return ErrUnknownMessage
	}
	cmd.Apply()

	reactions, err := s.store.ToggleReaction(ctx, messageID, s.username, emoji)
	if err != nil {
		cmd.Invert()
		s.logger.Warnw("reaction update failed, reverted", "message_id", messageID, "error", err)
		return err
	}

	s.setReactions(messageID, reactions)
	return nil
}

// MarkSeen records that this user has observed a message. Already-seen is a
// local no-op, which keeps at-least-once event delivery from causing
// broadcast storms of redundant seen updates.
func (s *Session) MarkSeen(ctx context.Context, messageID string) error {
	cmd, ok, already := s.seenCommand(messageID)
	if !ok {
		return ErrUnknownMessage
	}
	if already {
		return nil
	}
	cmd.Apply()

	seenBy, err := s.store.MarkSeen(ctx, messageID, s.username)
	if err != nil {
		cmd.Invert()
		s.logger.Warnw("seen update failed, reverted", "message_id", messageID, "error", err)
		return err
	}

	s.setSeenBy(messageID, seenBy)
	return nil
}

// persist writes the optimistic message through the store and settles its
// terminal status.
func (s *Session) persist(ctx context.Context, msg models.Message) models.Message {
	stored, err := s.store.SaveMessage(ctx, s.channel, msg)
	if err != nil {
		s.logger.Warnw("message persist failed", "channel", s.channel, "message_id", msg.ID, "error", err)
		s.setStatus(msg.ID, models.DeliveryFailed)
		msg.Status = models.DeliveryFailed
		return msg
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	idx, exists := s.index[msg.ID]
	if !exists {
		msg.Status = models.DeliverySent
		return msg
	}
	if stored.ID == msg.ID {
		// Adopt the stored row (server timestamp, normalized fields).
		stored.Status = models.DeliverySent
		s.messages[idx] = stored
		return stored
	}
	s.messages[idx].Status = models.DeliverySent
	return s.messages[idx]
}

func (s *Session) append(msg models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(msg)
}

func (s *Session) appendLocked(msg models.Message) {
	s.index[msg.ID] = len(s.messages)
	s.messages = append(s.messages, msg)
}

func (s *Session) setStatus(messageID string, status models.DeliveryStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx, ok := s.index[messageID]; ok {
		s.messages[idx].Status = status
	}
}

func (s *Session) setContent(messageID, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx, ok := s.index[messageID]; ok {
		s.messages[idx].Content = content
	}
}

func (s *Session) setReactions(messageID string, reactions models.ReactionMap) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx, ok := s.index[messageID]; ok {
		s.messages[idx].Reactions = reactions
	}
}

func (s *Session) setSeenBy(messageID string, seenBy models.UserList) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx, ok := s.index[messageID]; ok {
		s.messages[idx].SeenBy = seenBy
	}
}

