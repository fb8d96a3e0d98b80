package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const (
	askAvatarPath     = "/memory/ask-avatar"
	askGameAvatarPath = "/memory/ask-game-avatar"
	askAutoAvatarPath = "/memory/ask-auto-avatar"
)

// Client calls the companion memory/LLM backend. One of the three endpoints
// is invoked per user utterance; the conversation orchestrator enforces that
// at most one call is in flight at a time.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *slog.Logger
}

func NewClient(cfg Config, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: 60 * time.Second},
		log:     log.With("component", "llm_client"),
	}
}

type apiResponse struct {
	Status    int             `json:"status"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
}

func (c *Client) AskInteractive(ctx context.Context, userID string, req AskRequest) (*AskResponse, error) {
	return c.ask(ctx, askAvatarPath, userID, req)
}

func (c *Client) AskGame(ctx context.Context, userID string, req GameAskRequest) (*AskResponse, error) {
	return c.ask(ctx, askGameAvatarPath, userID, req)
}

func (c *Client) AskAutoGreet(ctx context.Context, userID string, req AutoGreetRequest) (*AskResponse, error) {
	return c.ask(ctx, askAutoAvatarPath, userID, req)
}

// Healthy reports whether the memory backend is reachable.
func (c *Client) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("llm backend health status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) ask(ctx context.Context, path, userID string, payload any) (*AskResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	endpoint := c.baseURL + path + "?userId=" + url.QueryEscape(userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("ask failed (%d): %s", resp.StatusCode, truncate(raw, 200))
	}

	var env apiResponse
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	var out AskResponse
	if len(env.Data) > 0 {
		// The interactive endpoint may reply with a bare string.
		if env.Data[0] == '"' {
			var text string
			if err := json.Unmarshal(env.Data, &text); err != nil {
				return nil, err
			}
			out.Text = text
		} else if err := json.Unmarshal(env.Data, &out); err != nil {
			return nil, fmt.Errorf("decode reply: %w", err)
		}
	}

	c.log.Debug("ask completed",
		"path", path,
		"latency_ms", time.Since(start).Milliseconds(),
		"duration_ms", out.DurationMs,
	)
	return &out, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
