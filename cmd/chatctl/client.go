package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	chat "petchat/internal/pkg/chat/application/domain"
)

// apiClient talks to the /api/v1 REST surface with a viewer token.
type apiClient struct {
	base  string
	token string
	http  *http.Client
}

func newAPIClient(base, token string) *apiClient {
	return &apiClient{
		base:  strings.TrimRight(base, "/"),
		token: token,
		http:  &http.Client{Timeout: 10 * time.Second},
	}
}

type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+"/api/v1"+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &apiError{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *apiClient) ListConversations(ctx context.Context) ([]chat.ConversationSummary, error) {
	var out struct {
		Conversations []chat.ConversationSummary `json:"conversations"`
	}
	err := c.do(ctx, http.MethodGet, "/conversations", nil, &out)
	return out.Conversations, err
}

func (c *apiClient) CreateConversation(ctx context.Context, shelterID, petID, message string) (*chat.ConversationSummary, error) {
	body := map[string]any{"shelter_id": shelterID, "initial_message": message}
	if petID != "" {
		body["pet_id"] = petID
	}
	var out chat.ConversationSummary
	if err := c.do(ctx, http.MethodPost, "/conversations", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) GetConversation(ctx context.Context, id string) (*chat.ConversationSummary, error) {
	var out chat.ConversationSummary
	if err := c.do(ctx, http.MethodGet, "/conversations/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) GetMessages(ctx context.Context, id string, limit int) ([]chat.Message, error) {
	var out struct {
		Messages []chat.Message `json:"messages"`
	}
	path := fmt.Sprintf("/conversations/%s/messages?limit=%d", url.PathEscape(id), limit)
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out.Messages, err
}

func (c *apiClient) SendMessage(ctx context.Context, id, content string) (*chat.Message, error) {
	var out struct {
		Message chat.Message `json:"message"`
	}
	body := map[string]string{"content": content}
	if err := c.do(ctx, http.MethodPost, "/conversations/"+url.PathEscape(id)+"/messages", body, &out); err != nil {
		return nil, err
	}
	return &out.Message, nil
}

func (c *apiClient) MarkRead(ctx context.Context, id string) (int64, error) {
	var out struct {
		ReadCount int64 `json:"read_count"`
	}
	err := c.do(ctx, http.MethodPost, "/conversations/"+url.PathEscape(id)+"/read", nil, &out)
	return out.ReadCount, err
}

func (c *apiClient) SetStatus(ctx context.Context, id, status string) (*chat.Conversation, error) {
	var out chat.Conversation
	body := map[string]string{"status": status}
	if err := c.do(ctx, http.MethodPatch, "/conversations/"+url.PathEscape(id)+"/status", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) UnreadCount(ctx context.Context) (int, error) {
	var out struct {
		UnreadCount int `json:"unread_count"`
	}
	err := c.do(ctx, http.MethodGet, "/messages/unread-count", nil, &out)
	return out.UnreadCount, err
}

// socketURL maps the API base to the websocket endpoint, passing the token as a query param.
func (c *apiClient) socketURL() (string, error) {
	u, err := url.Parse(c.base + "/api/v1/ws")
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	q := u.Query()
	q.Set("token", c.token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
