package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"channel-chat-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository defines durable message state interactions.
type MessageRepository interface {
	SaveMessage(ctx context.Context, channel string, msg models.Message) (models.Message, error)
	ListChannelMessages(ctx context.Context, channel string) ([]models.Message, error)
	GetMessage(ctx context.Context, messageID string) (models.Message, error)
	ToggleReaction(ctx context.Context, messageID, username, emoji string) (models.ReactionMap, error)
	MarkSeen(ctx context.Context, messageID, username string) (models.UserList, bool, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = `id, channel, username, content, type, caption, reactions, seen_by, seen_at, created_at`

// SaveMessage stores a message under its client-generated id. A second save
// with the same id is a no-op and the originally stored row is returned, so
// retries never produce duplicates.
func (r *MessageRepo) SaveMessage(ctx context.Context, channel string, msg models.Message) (models.Message, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO messages (id, channel, username, content, type, caption)
         VALUES ($1, $2, $3, $4, $5, $6)
         ON CONFLICT (id) DO NOTHING`,
		msg.ID, channel, msg.Username, msg.Content, msg.Type, msg.Caption)
	if err != nil {
		return models.Message{}, err
	}
	return r.GetMessage(ctx, msg.ID)
}

// ListChannelMessages returns a channel's messages ordered by creation time
// ascending.
func (r *MessageRepo) ListChannelMessages(ctx context.Context, channel string) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT `+messageColumns+` FROM messages WHERE channel=$1 ORDER BY created_at ASC`,
		channel)
	return msgs, err
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID string) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg,
		`SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// ToggleReaction sets, replaces or removes the user's single reaction on a
// message and returns the full post-update reaction map. Reacting with the
// emoji already held removes it. The row lock serializes concurrent updates
// from the same user; different users touch different map keys and cannot
// conflict.
func (r *MessageRepo) ToggleReaction(ctx context.Context, messageID, username, emoji string) (models.ReactionMap, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var reactions models.ReactionMap
	err = tx.GetContext(ctx, &reactions,
		`SELECT reactions FROM messages WHERE id=$1 FOR UPDATE`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}

	reactions = toggleReaction(reactions, username, emoji)

	if _, err := tx.ExecContext(ctx,
		`UPDATE messages SET reactions=$2 WHERE id=$1`, messageID, reactions); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return reactions, nil
}

// MarkSeen adds username to the message's seen-by set. Already-seen is a
// successful no-op; the second return reports whether anything changed so
// callers can skip redundant broadcasts.
func (r *MessageRepo) MarkSeen(ctx context.Context, messageID, username string) (models.UserList, bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	var seenBy models.UserList
	err = tx.GetContext(ctx, &seenBy,
		`SELECT seen_by FROM messages WHERE id=$1 FOR UPDATE`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, ErrMessageNotFound
	}
	if err != nil {
		return nil, false, err
	}

	seenBy, changed := addSeen(seenBy, username)
	if !changed {
		return seenBy, false, tx.Commit()
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE messages SET seen_by=$2, seen_at=$3 WHERE id=$1`,
		messageID, seenBy, time.Now().UTC()); err != nil {
		return nil, false, err
	}
	if err := tx.Commit(); err != nil {
		return nil, false, err
	}
	return seenBy, true, nil
}

// toggleReaction applies one user's reaction to the map. The emoji already
// held removes it, any other emoji replaces it.
func toggleReaction(reactions models.ReactionMap, username, emoji string) models.ReactionMap {
	if reactions == nil {
		reactions = models.ReactionMap{}
	}
	if reactions[username] == emoji {
		delete(reactions, username)
	} else {
		reactions[username] = emoji
	}
	return reactions
}

// addSeen adds username to the seen-by set, reporting whether the set
// changed.
func addSeen(seenBy models.UserList, username string) (models.UserList, bool) {
	if seenBy.Contains(username) {
		return seenBy, false
	}
	return append(seenBy, username), true
}
