package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nimasrn/live-commerce/internal/model"
	"github.com/nimasrn/live-commerce/pkg/logger"
	"github.com/nimasrn/live-commerce/pkg/redis"
)

const defaultNotificationLimit = 50

// NotificationService publishes dashboard toasts to a capped redis stream.
type NotificationService struct {
	redis  redis.RedisAdapter
	stream string
	maxLen int64
	now    func() time.Time
}

func NewNotificationService(r redis.RedisAdapter, stream string, maxLen int64) *NotificationService {
	return &NotificationService{
		redis:  r,
		stream: stream,
		maxLen: maxLen,
		now:    time.Now,
	}
}

func (s *NotificationService) Notify(ctx context.Context, n model.Notification) error {
	if n.Level == "" {
		n.Level = model.NotificationInfo
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}

	switch n.Level {
	case model.NotificationError:
		logger.Error(n.Title, "message", n.Message, "video_id", n.VideoID)
	case model.NotificationWarn:
		logger.Warn(n.Title, "message", n.Message, "video_id", n.VideoID)
	default:
		logger.Info(n.Title, "message", n.Message, "video_id", n.VideoID)
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	_, err = s.redis.XAdd(ctx, s.stream, map[string]interface{}{"payload": string(payload)}, s.maxLen)
	if err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// Latest returns the newest notifications first.
func (s *NotificationService) Latest(ctx context.Context, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	if s.maxLen > 0 && int64(limit) > s.maxLen {
		limit = int(s.maxLen)
	}
	msgs, err := s.redis.XRevRange(ctx, s.stream, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("read notifications: %w", err)
	}

	out := make([]model.Notification, 0, len(msgs))
	for _, m := range msgs {
		raw, ok := m.Values["payload"].(string)
		if !ok {
			continue
		}
		var n model.Notification
		if err := json.Unmarshal([]byte(raw), &n); err != nil {
			logger.Warn("dropping unreadable notification", "id", m.ID, "error", err)
			continue
		}
		n.ID = m.ID
		out = append(out, n)
	}
	return out, nil
}
