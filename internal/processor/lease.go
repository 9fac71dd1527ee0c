package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/live-commerce/pkg/logger"
	"github.com/nimasrn/live-commerce/pkg/redis"
)

var (
	ErrLeaseHeld          = errors.New("pass lease held by another processor")
	ErrLeaseAcquireFailed = errors.New("failed to acquire pass lease")
)

type LeaseConfig struct {
	// TTL bounds how long a crashed processor can block a video.
	TTL       time.Duration
	KeyPrefix string
}

func DefaultLeaseConfig() LeaseConfig {
	return LeaseConfig{
		TTL:       2 * time.Minute,
		KeyPrefix: "live:lease:",
	}
}

// LeaseService makes passes over one video exclusive across processor instances. The
// in-process Supervisor handles coalescing; the lease only guards against a second
// instance running the same video.
type LeaseService struct {
	redis  redis.RedisAdapter
	config LeaseConfig
}

func NewLeaseService(redisAdapter redis.RedisAdapter, config LeaseConfig) *LeaseService {
	if config.TTL <= 0 {
		config.TTL = DefaultLeaseConfig().TTL
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = DefaultLeaseConfig().KeyPrefix
	}
	return &LeaseService{
		redis:  redisAdapter,
		config: config,
	}
}

type Lease struct {
	VideoID    string
	AcquiredAt time.Time
	token      []byte
	held       bool
}

func (s *LeaseService) Acquire(ctx context.Context, videoID string) (*Lease, error) {
	token := []byte(uuid.NewString())
	acquired, err := s.redis.SetNX(ctx, s.config.KeyPrefix+videoID, token, s.config.TTL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLeaseAcquireFailed, err)
	}
	if !acquired {
		logger.Debug("Pass lease held elsewhere", "video_id", videoID)
		return nil, ErrLeaseHeld
	}

	return &Lease{
		VideoID:    videoID,
		AcquiredAt: time.Now(),
		token:      token,
		held:       true,
	}, nil
}

// Release drops the lease if it is still ours. An expired lease that another instance
// picked up is left alone.
func (s *LeaseService) Release(ctx context.Context, l *Lease) error {
	if l == nil || !l.held {
		return nil
	}
	l.held = false

	deleted, err := s.redis.CompareAndDelete(ctx, s.config.KeyPrefix+l.VideoID, l.token)
	if err != nil {
		logger.Warn("Failed to release pass lease", "video_id", l.VideoID, "error", err)
		return err
	}
	if !deleted {
		logger.Warn("Pass lease expired before release", "video_id", l.VideoID, "held_for", time.Since(l.AcquiredAt))
	}
	return nil
}

func (s *LeaseService) IsHeld(ctx context.Context, videoID string) (bool, error) {
	exists, err := s.redis.Exist(ctx, s.config.KeyPrefix+videoID)
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}
