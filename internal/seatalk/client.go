// Package seatalk is a minimal client for the SeaTalk open platform:
// app token issuance and single-chat text messages.
package seatalk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/glbot/glbot/internal/config"
)

var (
	// ErrMissingCredentials means the app id or secret is not configured.
	ErrMissingCredentials = errors.New("seatalk: app id/secret not configured")
	// ErrTokenRequest means the token endpoint rejected the request or
	// answered with something other than JSON.
	ErrTokenRequest = errors.New("seatalk: token request failed")
	// ErrTokenResponse means the token endpoint answered without a token.
	ErrTokenResponse = errors.New("seatalk: token response missing token")
)

// tokenRefreshMargin is how much remaining validity still counts as usable.
const tokenRefreshMargin = 60 * time.Second

// Client talks to the SeaTalk open API. The app access token is cached
// in-process and refreshed when it is about to expire.
type Client struct {
	cfg    config.SeaTalkConfig
	client *http.Client
	now    func() time.Time

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func New(cfg config.SeaTalkConfig, opts ...Option) *Client {
	c := &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AppToken returns a valid app access token, fetching a fresh one when the
// cached token has less than tokenRefreshMargin of validity left.
func (c *Client) AppToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.tokenExp.Sub(c.now()) > tokenRefreshMargin {
		return c.token, nil
	}

	appID := strings.TrimSpace(c.cfg.AppID)
	appSecret := strings.TrimSpace(c.cfg.AppSecret)
	if appID == "" || appSecret == "" {
		return "", ErrMissingCredentials
	}

	body, _ := json.Marshal(map[string]string{
		"app_id":     appID,
		"app_secret": appSecret,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenRequest, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenRequest, err)
	}
	defer resp.Body.Close()

	ct := strings.ToLower(resp.Header.Get("Content-Type"))
	slog.Debug("seatalk token fetch", "url", c.cfg.TokenURL, "status", resp.StatusCode, "content_type", ct)
	if resp.StatusCode != http.StatusOK || !strings.Contains(ct, "application/json") {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return "", fmt.Errorf("%w: status=%d body=%q", ErrTokenRequest, resp.StatusCode, snippet)
	}

	var out struct {
		AppAccessToken string `json:"app_access_token"`
		AccessToken    string `json:"access_token"`
		Expire         int    `json:"expire"`
		ExpiresIn      int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenResponse, err)
	}
	token := strings.TrimSpace(out.AppAccessToken)
	if token == "" {
		token = strings.TrimSpace(out.AccessToken)
	}
	if token == "" {
		return "", ErrTokenResponse
	}
	expire := out.Expire
	if expire <= 0 {
		expire = out.ExpiresIn
	}
	if expire <= 0 {
		expire = 3600
	}

	c.token = token
	c.tokenExp = c.now().Add(time.Duration(expire) * time.Second)
	return token, nil
}

// SendText delivers a 1:1 text message to the user identified by employeeCode.
func (c *Client) SendText(ctx context.Context, employeeCode, text string) error {
	token, err := c.AppToken(ctx)
	if err != nil {
		return err
	}

	payload := map[string]any{
		"employee_code": employeeCode,
		"message": map[string]any{
			"tag":  "text",
			"text": map[string]any{"content": text},
		},
	}
	body, _ := json.Marshal(payload)
	url := c.cfg.APIBase + "/messaging/v2/single_chat"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("seatalk: send message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return fmt.Errorf("seatalk: send message status=%d body=%q", resp.StatusCode, snippet)
	}
	return nil
}
