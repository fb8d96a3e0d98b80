package heygen

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	avatarCacheKey = "heygen:avatar_list"
	cacheDuration  = 24 * time.Hour
)

type cachedAvatarList struct {
	Avatars   []Avatar `json:"avatars"`
	Timestamp int64    `json:"timestamp"`
}

// AvatarCache wraps an AvatarLister with a Redis-backed cache. Entries are
// considered fresh for 24 hours; on upstream failure a stale entry is served
// rather than an error. The cache is an owned, injectable object — state
// lives in Redis, not in package-level variables.
type AvatarCache struct {
	upstream AvatarLister
	redis    *redis.Client
	log      *slog.Logger
	now      func() time.Time
}

func NewAvatarCache(upstream AvatarLister, redisClient *redis.Client, log *slog.Logger) *AvatarCache {
	if log == nil {
		log = slog.Default()
	}
	return &AvatarCache{
		upstream: upstream,
		redis:    redisClient,
		log:      log.With("component", "avatar_cache"),
		now:      time.Now,
	}
}

func (c *AvatarCache) ListAvatars(ctx context.Context) ([]Avatar, error) {
	return c.list(ctx, false)
}

// Refresh bypasses the freshness check and refetches from upstream.
func (c *AvatarCache) Refresh(ctx context.Context) ([]Avatar, error) {
	return c.list(ctx, true)
}

func (c *AvatarCache) AvatarDetails(ctx context.Context, avatarID string) (*Avatar, error) {
	avatars, err := c.ListAvatars(ctx)
	if err != nil {
		return c.upstream.AvatarDetails(ctx, avatarID)
	}
	for i := range avatars {
		if avatars[i].ID == avatarID {
			return &avatars[i], nil
		}
	}
	return c.upstream.AvatarDetails(ctx, avatarID)
}

func (c *AvatarCache) Clear(ctx context.Context) error {
	return c.redis.Del(ctx, avatarCacheKey).Err()
}

func (c *AvatarCache) list(ctx context.Context, forceRefresh bool) ([]Avatar, error) {
	cached := c.load(ctx)

	if !forceRefresh && cached != nil {
		age := c.now().Sub(time.UnixMilli(cached.Timestamp))
		if age < cacheDuration {
			return cached.Avatars, nil
		}
	}

	avatars, err := c.upstream.ListAvatars(ctx)
	if err != nil {
		if cached != nil {
			c.log.Warn("avatar list fetch failed, serving stale cache", "error", err)
			return cached.Avatars, nil
		}
		return nil, err
	}

	entry := cachedAvatarList{Avatars: avatars, Timestamp: c.now().UnixMilli()}
	if data, err := json.Marshal(entry); err == nil {
		if err := c.redis.Set(ctx, avatarCacheKey, data, 0).Err(); err != nil {
			c.log.Warn("failed to store avatar cache", "error", err)
		}
	}

	return avatars, nil
}

func (c *AvatarCache) load(ctx context.Context) *cachedAvatarList {
	data, err := c.redis.Get(ctx, avatarCacheKey).Bytes()
	if err != nil {
		return nil
	}
	var entry cachedAvatarList
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil
	}
	return &entry
}
