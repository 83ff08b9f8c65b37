package repositories

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"channel-chat-service/internal/models"
)

func TestToggleReactionPairCancels(t *testing.T) {
	reactions := toggleReaction(nil, "alice", "👍")
	assert.Equal(t, models.ReactionMap{"alice": "👍"}, reactions)

	reactions = toggleReaction(reactions, "alice", "👍")
	assert.Equal(t, models.ReactionMap{}, reactions)
}

func TestToggleReactionReplacesDifferentEmoji(t *testing.T) {
	reactions := models.ReactionMap{"alice": "👍", "bob": "❤️"}

	reactions = toggleReaction(reactions, "alice", "🎉")

	assert.Equal(t, "🎉", reactions["alice"])
	assert.Equal(t, "❤️", reactions["bob"], "other users' reactions must survive")
}

func TestToggleReactionOnePerUser(t *testing.T) {
	reactions := toggleReaction(nil, "alice", "👍")
	reactions = toggleReaction(reactions, "alice", "❤️")
	reactions = toggleReaction(reactions, "alice", "🎉")

	assert.Len(t, reactions, 1)
	assert.Equal(t, "🎉", reactions["alice"])
}

func TestAddSeenIdempotent(t *testing.T) {
	seenBy, changed := addSeen(nil, "alice")
	assert.True(t, changed)
	assert.Equal(t, models.UserList{"alice"}, seenBy)

	seenBy, changed = addSeen(seenBy, "alice")
	assert.False(t, changed)
	assert.Equal(t, models.UserList{"alice"}, seenBy)
}

func TestAddSeenAccumulates(t *testing.T) {
	seenBy, _ := addSeen(models.UserList{"alice"}, "bob")
	assert.Equal(t, models.UserList{"alice", "bob"}, seenBy)
}
