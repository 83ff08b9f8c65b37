package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"channel-chat-service/internal/mocks"
	"channel-chat-service/internal/models"
)

var _ Presence = (*mocks.PresenceMock)(nil)

func setupPresenceRouter(handler *PresenceHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/presence", handler.PostPresence)
	r.GET("/presence", handler.GetPresence)
	return r
}

func TestPostPresenceOnline(t *testing.T) {
	tracker := new(mocks.PresenceMock)
	router := setupPresenceRouter(NewPresenceHandler(tracker))

	tracker.On("Heartbeat", mock.Anything, "general", "alice").Once()

	body := bytes.NewBufferString(`{"username":"alice","status":"online","channelName":"general"}`)
	req := httptest.NewRequest(http.MethodPost, "/presence", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	tracker.AssertExpectations(t)
}

func TestPostPresenceOffline(t *testing.T) {
	tracker := new(mocks.PresenceMock)
	router := setupPresenceRouter(NewPresenceHandler(tracker))

	tracker.On("MarkOffline", mock.Anything, "general", "alice").Once()

	body := bytes.NewBufferString(`{"username":"alice","status":"offline","channelName":"general"}`)
	req := httptest.NewRequest(http.MethodPost, "/presence", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	tracker.AssertExpectations(t)
}

func TestPostPresenceValidation(t *testing.T) {
	tracker := new(mocks.PresenceMock)
	router := setupPresenceRouter(NewPresenceHandler(tracker))

	cases := []string{
		`{"status":"online","channelName":"general"}`,
		`{"username":"alice","status":"online"}`,
		`{"username":"alice","status":"away","channelName":"general"}`,
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodPost, "/presence", bytes.NewBufferString(c))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, c)
	}
	tracker.AssertNotCalled(t, "Heartbeat", mock.Anything, mock.Anything, mock.Anything)
	tracker.AssertNotCalled(t, "MarkOffline", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetPresence(t *testing.T) {
	tracker := new(mocks.PresenceMock)
	router := setupPresenceRouter(NewPresenceHandler(tracker))

	tracker.On("ActiveUsers", "general").
		Return([]models.ActiveUser{{Username: "alice", Timestamp: time.Unix(10, 0)}}).Once()

	req := httptest.NewRequest(http.MethodGet, "/presence?channel=general", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Success     bool                `json:"success"`
		ActiveUsers []models.ActiveUser `json:"activeUsers"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.ActiveUsers, 1)
	assert.Equal(t, "alice", resp.ActiveUsers[0].Username)
}
