// Package rest is the client side of the backend's REST surface: the
// fallback send path when the push channel is down and the history source for
// the polling scheduler.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"chatgogo/client/internal/config"
	"chatgogo/client/internal/models"
)

// Client calls the backend message/room/user services with bearer-token auth.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     zerolog.Logger
}

func New(baseURL, token string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: config.RequestTimeout},
		log:     log,
	}
}

// RecentMessages fetches up to limit recent messages for a room, oldest
// first.
func (c *Client) RecentMessages(ctx context.Context, roomID string, limit int) ([]models.RoomMessagePayload, error) {
	path := "/rooms/" + url.PathEscape(roomID) + "/messages?limit=" + strconv.Itoa(limit)
	var out []models.RoomMessagePayload
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("fetch messages for room %s: %w", roomID, err)
	}
	return out, nil
}

// SendMessage posts a message to a room. The returned payload carries the
// server-issued id and timestamp.
func (c *Client) SendMessage(ctx context.Context, msg models.RoomMessagePayload) (*models.RoomMessagePayload, error) {
	path := "/rooms/" + url.PathEscape(msg.RoomID) + "/messages"
	var out models.RoomMessagePayload
	if err := c.do(ctx, http.MethodPost, path, msg, &out); err != nil {
		return nil, fmt.Errorf("send message to room %s: %w", msg.RoomID, err)
	}
	return &out, nil
}

// Room fetches a room by id.
func (c *Client) Room(ctx context.Context, roomID string) (*models.ChatRoom, error) {
	var out models.ChatRoom
	if err := c.do(ctx, http.MethodGet, "/rooms/"+url.PathEscape(roomID), nil, &out); err != nil {
		return nil, fmt.Errorf("fetch room %s: %w", roomID, err)
	}
	return &out, nil
}

// User fetches a user by id.
func (c *Client) User(ctx context.Context, userID string) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(userID), nil, &out); err != nil {
		return nil, fmt.Errorf("fetch user %s: %w", userID, err)
	}
	return &out, nil
}

// CreateDM creates or finds the DM room between two users.
func (c *Client) CreateDM(ctx context.Context, selfID, otherID string) (*models.ChatRoom, error) {
	body := map[string]string{"user1_id": selfID, "user2_id": otherID}
	var out models.ChatRoom
	if err := c.do(ctx, http.MethodPost, "/dm", body, &out); err != nil {
		return nil, fmt.Errorf("create dm with %s: %w", otherID, err)
	}
	return &out, nil
}

// AnonIDResponse is the payload of the backend's anonymous-identity endpoint.
type AnonIDResponse struct {
	Token  string `json:"token"`
	AnonID string `json:"anon_id"`
}

// FetchAnonID obtains a fresh anonymous identity and JWT from the backend.
func (c *Client) FetchAnonID(ctx context.Context) (*AnonIDResponse, error) {
	var out AnonIDResponse
	if err := c.do(ctx, http.MethodGet, "/anonid", nil, &out); err != nil {
		return nil, fmt.Errorf("fetch anon id: %w", err)
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
