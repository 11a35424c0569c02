package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/guild-tickets/internal/config"
)

// Client is the chat-platform surface the core needs. Calls are made
// only from post-commit effects, never inside a transaction.
type Client interface {
	SendMessage(ctx context.Context, channelID, content string) error
	SendDirectMessage(ctx context.Context, userID, content string) error
	ArchiveChannel(ctx context.Context, channelID string) error
	DeleteChannel(ctx context.Context, channelID string) error
}

// httpClient talks to the platform's REST gateway.
type httpClient struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient builds a Client from configuration. With no base URL the
// returned client logs and drops every call, which keeps local
// development working without a live gateway.
func NewClient(cfg config.GatewayConfig, logger *zap.Logger) Client {
	if cfg.BaseURL == "" {
		logger.Warn("GATEWAY_BASE_URL not provided; channel effects will be dropped")
		return &noopClient{logger: logger}
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &httpClient{
		baseURL: cfg.BaseURL,
		token:   cfg.BotToken,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (c *httpClient) SendMessage(ctx context.Context, channelID, content string) error {
	path := fmt.Sprintf("/channels/%s/messages", url.PathEscape(channelID))
	return c.post(ctx, path, map[string]any{"content": content})
}

func (c *httpClient) SendDirectMessage(ctx context.Context, userID, content string) error {
	path := fmt.Sprintf("/users/%s/messages", url.PathEscape(userID))
	return c.post(ctx, path, map[string]any{"content": content})
}

func (c *httpClient) ArchiveChannel(ctx context.Context, channelID string) error {
	path := fmt.Sprintf("/channels/%s/archive", url.PathEscape(channelID))
	return c.post(ctx, path, nil)
}

func (c *httpClient) DeleteChannel(ctx context.Context, channelID string) error {
	path := fmt.Sprintf("/channels/%s", url.PathEscape(channelID))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req)
}

func (c *httpClient) post(ctx context.Context, path string, body map[string]any) error {
	var payload bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&payload).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &payload)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *httpClient) do(req *http.Request) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bot "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("gateway responded %d for %s %s", resp.StatusCode, req.Method, req.URL.Path)
	}
	return nil
}

type noopClient struct {
	logger *zap.Logger
}

func (c *noopClient) SendMessage(ctx context.Context, channelID, content string) error {
	c.logger.Debug("gateway disabled; dropping message", zap.String("channel_id", channelID))
	return nil
}

func (c *noopClient) SendDirectMessage(ctx context.Context, userID, content string) error {
	c.logger.Debug("gateway disabled; dropping direct message", zap.String("user_id", userID))
	return nil
}

func (c *noopClient) ArchiveChannel(ctx context.Context, channelID string) error {
	c.logger.Debug("gateway disabled; dropping archive", zap.String("channel_id", channelID))
	return nil
}

func (c *noopClient) DeleteChannel(ctx context.Context, channelID string) error {
	c.logger.Debug("gateway disabled; dropping delete", zap.String("channel_id", channelID))
	return nil
}
