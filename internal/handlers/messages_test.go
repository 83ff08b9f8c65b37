package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"channel-chat-service/internal/mocks"
	"channel-chat-service/internal/models"
	"channel-chat-service/internal/repositories"
)

func setupMessageRouter(handler *MessageHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/messages", handler.PostMessage)
	r.GET("/messages", handler.GetMessages)
	r.PATCH("/messages", handler.PatchReaction)
	r.PATCH("/messages/seen", handler.PatchSeen)
	return r
}

func newMessageHandler(repo *mocks.MessageRepositoryMock, bus *mocks.BusMock) *MessageHandler {
	return NewMessageHandler(repo, bus, zap.NewNop().Sugar())
}

func TestPostMessageSuccess(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	bus := new(mocks.BusMock)
	router := setupMessageRouter(newMessageHandler(repo, bus))

	stored := models.Message{ID: "m1", Channel: "general", Username: "alice", Content: "hi", Type: models.MessageText}
	repo.On("SaveMessage", mock.Anything, "general", mock.Anything).Return(stored, nil).Once()
	bus.On("Publish", mock.Anything, "general", models.EventNewMessage, stored).Once()

	body := bytes.NewBufferString(`{"channel":"general","message":{"id":"m1","username":"alice","content":"hi","type":"text"}}`)
	req := httptest.NewRequest(http.MethodPost, "/messages", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Success bool           `json:"success"`
		Message models.Message `json:"message"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "m1", resp.Message.ID)
	repo.AssertExpectations(t)
	bus.AssertExpectations(t)
}

func TestPostMessageMissingFields(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	bus := new(mocks.BusMock)
	router := setupMessageRouter(newMessageHandler(repo, bus))

	cases := []string{
		`{"message":{"id":"m1","username":"alice","content":"hi"}}`,
		`{"channel":"general"}`,
		`{"channel":"general","message":{"id":"m1","content":"hi"}}`,
		`{"channel":"general","message":{"id":"m1","username":"alice","content":"   "}}`,
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodPost, "/messages", bytes.NewBufferString(c))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, c)
	}
	repo.AssertNotCalled(t, "SaveMessage", mock.Anything, mock.Anything, mock.Anything)
	bus.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPostMessageRepoError(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	bus := new(mocks.BusMock)
	router := setupMessageRouter(newMessageHandler(repo, bus))

	repo.On("SaveMessage", mock.Anything, "general", mock.Anything).
		Return(models.Message{}, assert.AnError).Once()

	body := bytes.NewBufferString(`{"channel":"general","message":{"id":"m1","username":"alice","content":"hi"}}`)
	req := httptest.NewRequest(http.MethodPost, "/messages", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	bus.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGetMessagesSuccess(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	router := setupMessageRouter(newMessageHandler(repo, new(mocks.BusMock)))

	repo.On("ListChannelMessages", mock.Anything, "general").
		Return([]models.Message{{ID: "m1"}, {ID: "m2"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/messages?channel=general", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Success  bool             `json:"success"`
		Messages []models.Message `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Messages, 2)
	repo.AssertExpectations(t)
}

func TestGetMessagesRequiresChannel(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	router := setupMessageRouter(newMessageHandler(repo, new(mocks.BusMock)))

	req := httptest.NewRequest(http.MethodGet, "/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	repo.AssertNotCalled(t, "ListChannelMessages", mock.Anything, mock.Anything)
}

func TestPatchReactionSuccess(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	bus := new(mocks.BusMock)
	router := setupMessageRouter(newMessageHandler(repo, bus))

	reactions := models.ReactionMap{"alice": "👍"}
	repo.On("ToggleReaction", mock.Anything, "m1", "alice", "👍").Return(reactions, nil).Once()
	bus.On("Publish", mock.Anything, models.ChannelReactions, models.EventReactionsUpdated,
		models.ReactionsUpdate{MessageID: "m1", Reactions: reactions}).Once()

	body := bytes.NewBufferString(`{"messageId":"m1","emoji":"👍","username":"alice"}`)
	req := httptest.NewRequest(http.MethodPatch, "/messages", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	repo.AssertExpectations(t)
	bus.AssertExpectations(t)
}

func TestPatchReactionNotFound(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	bus := new(mocks.BusMock)
	router := setupMessageRouter(newMessageHandler(repo, bus))

	repo.On("ToggleReaction", mock.Anything, "ghost", "alice", "👍").
		Return(nil, repositories.ErrMessageNotFound).Once()

	body := bytes.NewBufferString(`{"messageId":"ghost","emoji":"👍","username":"alice"}`)
	req := httptest.NewRequest(http.MethodPatch, "/messages", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	bus.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPatchReactionMissingFields(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	router := setupMessageRouter(newMessageHandler(repo, new(mocks.BusMock)))

	body := bytes.NewBufferString(`{"messageId":"m1"}`)
	req := httptest.NewRequest(http.MethodPatch, "/messages", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	repo.AssertNotCalled(t, "ToggleReaction", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPatchSeenBroadcastsOnlyOnChange(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	bus := new(mocks.BusMock)
	router := setupMessageRouter(newMessageHandler(repo, bus))

	seenBy := models.UserList{"alice"}
	repo.On("MarkSeen", mock.Anything, "m1", "alice").Return(seenBy, true, nil).Once()
	bus.On("Publish", mock.Anything, models.ChannelMessageUpdates, models.EventMessageSeen, mock.Anything).Once()

	body := bytes.NewBufferString(`{"messageId":"m1","username":"alice"}`)
	req := httptest.NewRequest(http.MethodPatch, "/messages/seen", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// Marking again: success, no change, no broadcast.
	repo.On("MarkSeen", mock.Anything, "m1", "alice").Return(seenBy, false, nil).Once()
	req = httptest.NewRequest(http.MethodPatch, "/messages/seen", bytes.NewBufferString(`{"messageId":"m1","username":"alice"}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success       bool     `json:"success"`
		MessageSeen   bool     `json:"messageSeen"`
		MessageSeenBy []string `json:"messageSeenBy"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.True(t, resp.MessageSeen)
	assert.Equal(t, []string{"alice"}, resp.MessageSeenBy)

	bus.AssertNumberOfCalls(t, "Publish", 1)
	repo.AssertExpectations(t)
}

func TestPatchSeenNotFound(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	router := setupMessageRouter(newMessageHandler(repo, new(mocks.BusMock)))

	repo.On("MarkSeen", mock.Anything, "ghost", "alice").
		Return(nil, false, repositories.ErrMessageNotFound).Once()

	body := bytes.NewBufferString(`{"messageId":"ghost","username":"alice"}`)
	req := httptest.NewRequest(http.MethodPatch, "/messages/seen", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
