package inbox

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

	"github.com/wolfman30/agency-backoffice/internal/notify"
)

const defaultHTTPTimeout = 10 * time.Second

// Client calls the back-office admin API as one admin.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient targets baseURL (e.g. https://api.example/admin) with a bearer token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
}

func (c *Client) Settings(ctx context.Context) (notify.Settings, error) {
	var out notify.Settings
	err := c.do(ctx, http.MethodGet, "/settings/notifications", nil, &out)
	return out, err
}

func (c *Client) UpdateSettings(ctx context.Context, patch notify.SettingsPatch) (notify.Settings, error) {
	var out notify.Settings
	err := c.do(ctx, http.MethodPut, "/settings/notifications", patch, &out)
	return out, err
}

func (c *Client) List(ctx context.Context) ([]notify.Notification, error) {
	var out struct {
		Notifications []notify.Notification `json:"notifications"`
	}
	if err := c.do(ctx, http.MethodGet, "/notifications", nil, &out); err != nil {
		return nil, err
	}
	return out.Notifications, nil
}

func (c *Client) MarkRead(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/notifications/"+url.PathEscape(id)+"/read", nil, nil)
}

// MarkAllRead returns the ids the server flipped.
func (c *Client) MarkAllRead(ctx context.Context) ([]string, error) {
	var out notify.MarkAllReadResponse
	if err := c.do(ctx, http.MethodPost, "/notifications/read-all", nil, &out); err != nil {
		return nil, err
	}
	return out.IDs, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("inbox: marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("inbox: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("inbox: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("inbox: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("inbox: %s %s: unexpected status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("inbox: unmarshal response: %w", err)
	}
	return nil
}

var _ API = (*Client)(nil)
