package reconciler

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nimasrn/live-commerce/internal/model"
	"github.com/nimasrn/live-commerce/pkg/logger"
	"github.com/nimasrn/live-commerce/pkg/redis"
)

// StatusCache keeps the known statuses of a video between passes.
type StatusCache interface {
	Load(ctx context.Context, videoID string) (Known, error)
	Save(ctx context.Context, videoID string, entries map[string]model.StatusEntry) error
	Clear(ctx context.Context, videoID string) error
}

type MemoryCache struct {
	mu     sync.RWMutex
	videos map[string]Known
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{videos: make(map[string]Known)}
}

// Load returns a copy, callers may keep it across passes.
func (m *MemoryCache) Load(_ context.Context, videoID string) (Known, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src := m.videos[videoID]
	out := make(Known, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out, nil
}

func (m *MemoryCache) Save(_ context.Context, videoID string, entries map[string]model.StatusEntry) error {
	if len(entries) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	known, ok := m.videos[videoID]
	if !ok {
		known = make(Known, len(entries))
		m.videos[videoID] = known
	}
	for k, v := range entries {
		known[k] = v
	}
	return nil
}

func (m *MemoryCache) Clear(_ context.Context, videoID string) error {
	m.mu.Lock()
	delete(m.videos, videoID)
	m.mu.Unlock()
	return nil
}

// RedisCache stores one hash per video, field = commenter id, value = JSON entry.
type RedisCache struct {
	redis redis.RedisAdapter
	ttl   time.Duration
}

func NewRedisCache(r redis.RedisAdapter, ttl time.Duration) *RedisCache {
	return &RedisCache{redis: r, ttl: ttl}
}

func statusKey(videoID string) string {
	return "live:status:" + videoID
}

func (c *RedisCache) Load(ctx context.Context, videoID string) (Known, error) {
	raw, err := c.redis.HGetAll(ctx, statusKey(videoID))
	if err != nil {
		return nil, err
	}
	out := make(Known, len(raw))
	for id, v := range raw {
		var entry model.StatusEntry
		if err := json.Unmarshal([]byte(v), &entry); err != nil {
			logger.Warn("dropping unreadable status cache entry", "video_id", videoID, "commenter_id", id, "error", err)
			continue
		}
		out[id] = entry
	}
	return out, nil
}

func (c *RedisCache) Save(ctx context.Context, videoID string, entries map[string]model.StatusEntry) error {
	if len(entries) == 0 {
		return nil
	}
	fields := make(map[string]interface{}, len(entries))
	for id, entry := range entries {
		b, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		fields[id] = string(b)
	}
	return c.redis.HSetWithTTL(ctx, statusKey(videoID), fields, c.ttl)
}

func (c *RedisCache) Clear(ctx context.Context, videoID string) error {
	return c.redis.Del(ctx, statusKey(videoID))
}
