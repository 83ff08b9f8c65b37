package session_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channel-chat-service/internal/models"
	"channel-chat-service/internal/session"
)

func TestHTTPStoreLoadHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/messages", r.URL.Path)
		require.Equal(t, "general", r.URL.Query().Get("channel"))
		json.NewEncoder(w).Encode(map[string]any{
			"success":  true,
			"messages": []models.Message{{ID: "m1"}, {ID: "m2"}},
		})
	}))
	defer srv.Close()

	store := session.NewHTTPStore(srv.URL)
	msgs, err := store.LoadHistory(context.Background(), "general")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "m1", msgs[0].ID)
}

func TestHTTPStoreSaveMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var req struct {
			Channel string         `json:"channel"`
			Message models.Message `json:"message"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "general", req.Channel)
		assert.Equal(t, "m1", req.Message.ID)
		json.NewEncoder(w).Encode(map[string]any{"success": true, "message": req.Message})
	}))
	defer srv.Close()

	store := session.NewHTTPStore(srv.URL)
	stored, err := store.SaveMessage(context.Background(), "general", models.Message{ID: "m1", Username: "alice", Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "m1", stored.ID)
}

func TestHTTPStoreToggleReaction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "/messages", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"success":   true,
			"reactions": models.ReactionMap{"alice": "👍"},
		})
	}))
	defer srv.Close()

	store := session.NewHTTPStore(srv.URL)
	reactions, err := store.ToggleReaction(context.Background(), "m1", "alice", "👍")
	require.NoError(t, err)
	assert.Equal(t, "👍", reactions["alice"])
}

func TestHTTPStoreMarkSeen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/messages/seen", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"success":       true,
			"messageSeen":   true,
			"messageSeenBy": []string{"alice"},
		})
	}))
	defer srv.Close()

	store := session.NewHTTPStore(srv.URL)
	seenBy, err := store.MarkSeen(context.Background(), "m1", "alice")
	require.NoError(t, err)
	assert.Equal(t, models.UserList{"alice"}, seenBy)
}

func TestHTTPStoreNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	store := session.NewHTTPStore(srv.URL)
	_, err := store.ToggleReaction(context.Background(), "ghost", "alice", "👍")
	assert.ErrorIs(t, err, session.ErrUnknownMessage)

	_, err = store.MarkSeen(context.Background(), "ghost", "alice")
	assert.ErrorIs(t, err, session.ErrUnknownMessage)
}

func TestHTTPStoreUpdatePresence(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/presence", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer srv.Close()

	store := session.NewHTTPStore(srv.URL)
	require.NoError(t, store.UpdatePresence(context.Background(), "general", "alice", models.PresenceOnline))
	assert.Equal(t, "general", got["channelName"])
	assert.Equal(t, "alice", got["username"])
	assert.Equal(t, "online", got["status"])
}
