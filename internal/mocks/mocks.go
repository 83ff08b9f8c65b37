package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"channel-chat-service/internal/broadcast"
	"channel-chat-service/internal/media"
	"channel-chat-service/internal/models"
	"channel-chat-service/internal/repositories"
	"channel-chat-service/internal/session"
)

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) SaveMessage(ctx context.Context, channel string, msg models.Message) (models.Message, error) {
	args := m.Called(ctx, channel, msg)
	var stored models.Message
	if val := args.Get(0); val != nil {
		stored = val.(models.Message)
	}
	return stored, args.Error(1)
}

func (m *MessageRepositoryMock) ListChannelMessages(ctx context.Context, channel string) ([]models.Message, error) {
	args := m.Called(ctx, channel)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, messageID string) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ToggleReaction(ctx context.Context, messageID, username, emoji string) (models.ReactionMap, error) {
	args := m.Called(ctx, messageID, username, emoji)
	var reactions models.ReactionMap
	if val := args.Get(0); val != nil {
		reactions = val.(models.ReactionMap)
	}
	return reactions, args.Error(1)
}

func (m *MessageRepositoryMock) MarkSeen(ctx context.Context, messageID, username string) (models.UserList, bool, error) {
	args := m.Called(ctx, messageID, username)
	var seenBy models.UserList
	if val := args.Get(0); val != nil {
		seenBy = val.(models.UserList)
	}
	return seenBy, args.Bool(1), args.Error(2)
}

type BusMock struct {
	mock.Mock
}

func (m *BusMock) Publish(ctx context.Context, channel, event string, payload any) {
	m.Called(ctx, channel, event, payload)
}

type UploaderMock struct {
	mock.Mock
}

func (m *UploaderMock) Upload(ctx context.Context, name, contentType string, content io.Reader) (media.UploadResult, error) {
	args := m.Called(ctx, name, contentType, content)
	var result media.UploadResult
	if val := args.Get(0); val != nil {
		result = val.(media.UploadResult)
	}
	return result, args.Error(1)
}

type StoreMock struct {
	mock.Mock
}

func (m *StoreMock) LoadHistory(ctx context.Context, channel string) ([]models.Message, error) {
	args := m.Called(ctx, channel)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *StoreMock) SaveMessage(ctx context.Context, channel string, msg models.Message) (models.Message, error) {
	args := m.Called(ctx, channel, msg)
	var stored models.Message
	if val := args.Get(0); val != nil {
		stored = val.(models.Message)
	}
	return stored, args.Error(1)
}

func (m *StoreMock) ToggleReaction(ctx context.Context, messageID, username, emoji string) (models.ReactionMap, error) {
	args := m.Called(ctx, messageID, username, emoji)
	var reactions models.ReactionMap
	if val := args.Get(0); val != nil {
		reactions = val.(models.ReactionMap)
	}
	return reactions, args.Error(1)
}

func (m *StoreMock) MarkSeen(ctx context.Context, messageID, username string) (models.UserList, error) {
	args := m.Called(ctx, messageID, username)
	var seenBy models.UserList
	if val := args.Get(0); val != nil {
		seenBy = val.(models.UserList)
	}
	return seenBy, args.Error(1)
}

type PresenceMock struct {
	mock.Mock
}

func (m *PresenceMock) Heartbeat(ctx context.Context, channel, username string) {
	m.Called(ctx, channel, username)
}

func (m *PresenceMock) MarkOffline(ctx context.Context, channel, username string) {
	m.Called(ctx, channel, username)
}

func (m *PresenceMock) ActiveUsers(channel string) []models.ActiveUser {
	args := m.Called(channel)
	var active []models.ActiveUser
	if val := args.Get(0); val != nil {
		active = val.([]models.ActiveUser)
	}
	return active
}

var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ broadcast.Bus = (*BusMock)(nil)
var _ media.Uploader = (*UploaderMock)(nil)
var _ session.Store = (*StoreMock)(nil)
