package heygen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/careloop/companion-backend/internal/shared"
)

const (
	defaultBaseURL = "https://api.heygen.com"
	defaultVersion = "v2"

	createPath = "/v1/streaming.new"
	startPath  = "/v1/streaming.start"
	stopPath   = "/v1/streaming.stop"
	taskPath   = "/v1/streaming.task"
	tokenPath  = "/v1/streaming.create_token"

	avatarListPath = "/v2/avatars"
)

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
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     log.With("component", "heygen_client"),
	}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	version := req.Version
	if version == "" {
		version = defaultVersion
	}

	body := map[string]any{
		"avatar_id": req.AvatarID,
		"version":   version,
	}
	if req.Voice != nil {
		voice := map[string]any{}
		if req.Voice.VoiceID != "" {
			voice["voice_id"] = req.Voice.VoiceID
		}
		if req.Voice.Rate > 0 {
			voice["rate"] = req.Voice.Rate
		}
		body["voice"] = voice
	}
	if req.DisableIdleTimeout {
		body["disable_idle_timeout"] = true
	}
	if req.ActivityIdleTimeout > 0 {
		body["activity_idle_timeout"] = req.ActivityIdleTimeout
	}

	var data struct {
		SessionID   string `json:"session_id"`
		AvatarID    string `json:"avatar_id"`
		URL         string `json:"url"`
		AccessToken string `json:"access_token"`
	}
	if err := c.post(ctx, createPath, body, &data); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	c.log.Info("avatar session created", "session_id", data.SessionID, "avatar_id", req.AvatarID)
	return &Session{
		ID:          data.SessionID,
		AvatarID:    data.AvatarID,
		URL:         data.URL,
		AccessToken: data.AccessToken,
		Status:      StatusCreated,
	}, nil
}

func (c *Client) StartSession(ctx context.Context, sessionID string) error {
	body := map[string]any{"session_id": sessionID}
	if err := c.post(ctx, startPath, body, nil); err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	return nil
}

func (c *Client) StopSession(ctx context.Context, sessionID string) error {
	body := map[string]any{"session_id": sessionID}
	if err := c.post(ctx, stopPath, body, nil); err != nil {
		return fmt.Errorf("stop session: %w", err)
	}
	c.log.Info("avatar session stopped", "session_id", sessionID)
	return nil
}

func (c *Client) SendTask(ctx context.Context, sessionID, text string) (*TaskResult, error) {
	body := map[string]any{
		"session_id": sessionID,
		"text":       text,
		"task_type":  "repeat",
	}
	var result TaskResult
	if err := c.post(ctx, taskPath, body, &result); err != nil {
		return nil, fmt.Errorf("send task: %w", err)
	}
	return &result, nil
}

func (c *Client) ListAvatars(ctx context.Context) ([]Avatar, error) {
	var data struct {
		Avatars []Avatar `json:"avatars"`
	}
	if err := c.get(ctx, avatarListPath, &data); err != nil {
		return nil, fmt.Errorf("list avatars: %w", err)
	}
	return data.Avatars, nil
}

func (c *Client) AvatarDetails(ctx context.Context, avatarID string) (*Avatar, error) {
	avatars, err := c.ListAvatars(ctx)
	if err != nil {
		return nil, err
	}
	for i := range avatars {
		if avatars[i].ID == avatarID {
			return &avatars[i], nil
		}
	}
	return nil, shared.ErrNotFound
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)

	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode response (%d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode >= 400 || (env.Code != 0 && env.Code != 100) {
		if shared.IsSessionClosed(fmt.Errorf("%s", env.Message)) {
			return fmt.Errorf("%s: %w", env.Message, shared.ErrSessionClosed)
		}
		return fmt.Errorf("remote error (%d): %s", resp.StatusCode, env.Message)
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}
