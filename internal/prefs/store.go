package prefs

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultVoiceRate = 0.95
	DefaultAvatarID  = "June_HR_public"
)

// Preferences holds the per-user conversation settings that survive
// reconnects. Missing fields fall back to defaults on read.
type Preferences struct {
	VoiceRate float64 `json:"voiceRate"`
	AvatarID  string  `json:"avatarId"`
	AutoStart bool    `json:"autoStart"`
	Language  string  `json:"language"`
}

func DefaultPreferences() Preferences {
	return Preferences{
		VoiceRate: DefaultVoiceRate,
		AvatarID:  DefaultAvatarID,
		AutoStart: true,
	}
}

// Store persists preferences in a redis hash per user.
type Store struct {
	client *redis.Client
	log    *slog.Logger
	ttl    time.Duration
}

func NewStore(client *redis.Client, log *slog.Logger) *Store {
	return &Store{
		client: client,
		log:    log.With("component", "prefs-store"),
		ttl:    90 * 24 * time.Hour,
	}
}

func (s *Store) key(userID string) string {
	return fmt.Sprintf("prefs:user:%s", userID)
}

// Get returns the stored preferences merged over defaults. A missing hash
// yields the defaults with no error.
func (s *Store) Get(ctx context.Context, userID string) (Preferences, error) {
	prefs := DefaultPreferences()

	fields, err := s.client.HGetAll(ctx, s.key(userID)).Result()
	if err != nil {
		return prefs, fmt.Errorf("load preferences: %w", err)
	}

	if raw, ok := fields["voice_rate"]; ok {
		if rate, err := strconv.ParseFloat(raw, 64); err == nil && rate > 0 {
			prefs.VoiceRate = rate
		}
	}
	if raw, ok := fields["avatar_id"]; ok && raw != "" {
		prefs.AvatarID = raw
	}
	if raw, ok := fields["auto_start"]; ok {
		prefs.AutoStart = raw == "1"
	}
	if raw, ok := fields["language"]; ok {
		prefs.Language = raw
	}
	return prefs, nil
}

func (s *Store) SetVoiceRate(ctx context.Context, userID string, rate float64) error {
	return s.set(ctx, userID, "voice_rate", strconv.FormatFloat(rate, 'f', -1, 64))
}

func (s *Store) SetAvatar(ctx context.Context, userID, avatarID string) error {
	return s.set(ctx, userID, "avatar_id", avatarID)
}

func (s *Store) SetAutoStart(ctx context.Context, userID string, enabled bool) error {
	value := "0"
	if enabled {
		value = "1"
	}
	return s.set(ctx, userID, "auto_start", value)
}

func (s *Store) SetLanguage(ctx context.Context, userID, language string) error {
	return s.set(ctx, userID, "language", language)
}

func (s *Store) set(ctx context.Context, userID, field, value string) error {
	key := s.key(userID)
	if err := s.client.HSet(ctx, key, field, value).Err(); err != nil {
		return fmt.Errorf("store preference %s: %w", field, err)
	}
	if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
		s.log.Warn("failed to refresh preference ttl", "user_id", userID, "error", err)
	}
	return nil
}
