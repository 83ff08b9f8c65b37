package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"channel-chat-service/internal/models"
)

// HTTPStore implements Store against the service's HTTP surface.
type HTTPStore struct {
	baseURL string
	client  *http.Client
}

// NewHTTPStore constructs an HTTPStore for baseURL (no trailing slash).
func NewHTTPStore(baseURL string) *HTTPStore {
	return &HTTPStore{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// LoadHistory fetches every persisted message of the channel, oldest first.
func (s *HTTPStore) LoadHistory(ctx context.Context, channel string) ([]models.Message, error) {
	endpoint := s.baseURL + "/messages?channel=" + url.QueryEscape(channel)
	var resp struct {
		Messages []models.Message `json:"messages"`
	}
	if err := s.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return resp.Messages, nil
}

// SaveMessage persists the message under its client-generated id.
func (s *HTTPStore) SaveMessage(ctx context.Context, channel string, msg models.Message) (models.Message, error) {
	body := map[string]any{"channel": channel, "message": msg}
	var resp struct {
		Message models.Message `json:"message"`
	}
	if err := s.do(ctx, http.MethodPost, s.baseURL+"/messages", body, &resp); err != nil {
		return models.Message{}, fmt.Errorf("save message: %w", err)
	}
	return resp.Message, nil
}

// ToggleReaction flips the user's reaction and returns the full map.
func (s *HTTPStore) ToggleReaction(ctx context.Context, messageID, username, emoji string) (models.ReactionMap, error) {
	body := map[string]string{"messageId": messageID, "emoji": emoji, "username": username}
	var resp struct {
		Reactions models.ReactionMap `json:"reactions"`
	}
	if err := s.do(ctx, http.MethodPatch, s.baseURL+"/messages", body, &resp); err != nil {
		return nil, fmt.Errorf("toggle reaction: %w", err)
	}
	return resp.Reactions, nil
}

// MarkSeen adds the user to the message's seen-by set.
func (s *HTTPStore) MarkSeen(ctx context.Context, messageID, username string) (models.UserList, error) {
	body := map[string]string{"messageId": messageID, "username": username}
	var resp struct {
		MessageSeenBy models.UserList `json:"messageSeenBy"`
	}
	if err := s.do(ctx, http.MethodPatch, s.baseURL+"/messages/seen", body, &resp); err != nil {
		return nil, fmt.Errorf("mark seen: %w", err)
	}
	return resp.MessageSeenBy, nil
}

// UpdatePresence posts a heartbeat or offline signal for the user.
func (s *HTTPStore) UpdatePresence(ctx context.Context, channel, username, status string) error {
	body := map[string]string{"username": username, "status": status, "channelName": channel}
	if err := s.do(ctx, http.MethodPost, s.baseURL+"/presence", body, nil); err != nil {
		return fmt.Errorf("update presence: %w", err)
	}
	return nil
}

func (s *HTTPStore) do(ctx context.Context, method, endpoint string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrUnknownMessage
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

var _ Store = (*HTTPStore)(nil)
