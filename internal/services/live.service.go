package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	gateway "github.com/nimasrn/live-commerce/internal/gateways"
	"github.com/nimasrn/live-commerce/internal/model"
	"github.com/nimasrn/live-commerce/internal/reconciler"
	"github.com/nimasrn/live-commerce/pkg/logger"
	"github.com/nimasrn/live-commerce/pkg/prom"
	"github.com/nimasrn/live-commerce/pkg/redis"
)

const (
	watchKey          = "live:watch"
	snapshotKeyPrefix = "live:snapshot:"
)

var (
	ErrWatchNotFound    = errors.New("video is not watched")
	ErrSnapshotNotFound = errors.New("no comments computed yet")
	ErrInvalidVideoID   = errors.New("video id is required")
)

type CommentSource interface {
	GetVideo(ctx context.Context, videoID string) (*gateway.Video, error)
	FetchAllComments(ctx context.Context, q gateway.CommentQuery, maxPages int) ([]model.Comment, error)
}

type OrderSource interface {
	FetchOrders(ctx context.Context, postID string, top int) ([]model.Order, error)
}

type Reconciler interface {
	Reconcile(ctx context.Context, videoID string, comments []model.Comment, orders []model.Order, known reconciler.Known) (*reconciler.Result, error)
}

type JobPublisher interface {
	PublishJSON(ctx context.Context, data interface{}, metadata map[string]string) (string, error)
}

type LiveConfig struct {
	CommentPageLimit int
	MaxCommentPages  int
	OrdersTop        int
	SnapshotTTL      time.Duration
}

type LiveService struct {
	redis      redis.RedisAdapter
	comments   CommentSource
	orders     OrderSource
	reconciler Reconciler
	cache      reconciler.StatusCache
	notifier   reconciler.Notifier
	jobs       JobPublisher
	config     LiveConfig
	now        func() time.Time
}

func NewLiveService(
	r redis.RedisAdapter,
	comments CommentSource,
	orders OrderSource,
	rec Reconciler,
	cache reconciler.StatusCache,
	notifier reconciler.Notifier,
	jobs JobPublisher,
	cfg LiveConfig,
) *LiveService {
	if cfg.MaxCommentPages <= 0 {
		cfg.MaxCommentPages = 1
	}
	return &LiveService{
		redis:      r,
		comments:   comments,
		orders:     orders,
		reconciler: rec,
		cache:      cache,
		notifier:   notifier,
		jobs:       jobs,
		config:     cfg,
		now:        time.Now,
	}
}

// Watch starts polling a video and asks for an immediate pass. Watching an already
// watched video resumes it.
func (s *LiveService) Watch(ctx context.Context, pageID, videoID string) (*model.LiveWatch, error) {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return nil, ErrInvalidVideoID
	}

	w, err := s.getWatch(ctx, videoID)
	switch {
	case errors.Is(err, ErrWatchNotFound):
		w = &model.LiveWatch{
			PageID:    strings.TrimSpace(pageID),
			VideoID:   videoID,
			IsLive:    true,
			StartedAt: s.now(),
		}
	case err != nil:
		return nil, err
	default:
		w.Paused = false
		if p := strings.TrimSpace(pageID); p != "" {
			w.PageID = p
		}
	}

	if err := s.saveWatch(ctx, w); err != nil {
		return nil, err
	}
	logger.Info("watching video", "video_id", videoID, "page_id", w.PageID)

	if _, err := s.Enqueue(ctx, videoID); err != nil {
		logger.Warn("failed to enqueue first pass", "video_id", videoID, "error", err)
	}
	return w, nil
}

// Pause stops polling. Nothing is sent to the external platforms.
func (s *LiveService) Pause(ctx context.Context, videoID string) (*model.LiveWatch, error) {
	return s.setPaused(ctx, videoID, true)
}

func (s *LiveService) Resume(ctx context.Context, videoID string) (*model.LiveWatch, error) {
	return s.setPaused(ctx, videoID, false)
}

func (s *LiveService) setPaused(ctx context.Context, videoID string, paused bool) (*model.LiveWatch, error) {
	w, err := s.getWatch(ctx, videoID)
	if err != nil {
		return nil, err
	}
	w.Paused = paused
	if err := s.saveWatch(ctx, w); err != nil {
		return nil, err
	}
	logger.Info("watch updated", "video_id", videoID, "paused", paused)
	return w, nil
}

// Unwatch forgets the video together with its status cache and snapshot.
func (s *LiveService) Unwatch(ctx context.Context, videoID string) error {
	if _, err := s.getWatch(ctx, videoID); err != nil {
		return err
	}
	if err := s.redis.HDel(ctx, watchKey, videoID); err != nil {
		return fmt.Errorf("delete watch: %w", err)
	}
	if err := s.cache.Clear(ctx, videoID); err != nil {
		logger.Warn("failed to clear status cache", "video_id", videoID, "error", err)
	}
	if err := s.redis.Del(ctx, snapshotKeyPrefix+videoID); err != nil {
		logger.Warn("failed to delete snapshot", "video_id", videoID, "error", err)
	}
	logger.Info("video unwatched", "video_id", videoID)
	return nil
}

// Watches lists every watched video, oldest first.
func (s *LiveService) Watches(ctx context.Context) ([]model.LiveWatch, error) {
	raw, err := s.redis.HGetAll(ctx, watchKey)
	if err != nil {
		return nil, fmt.Errorf("list watches: %w", err)
	}
	out := make([]model.LiveWatch, 0, len(raw))
	for id, v := range raw {
		var w model.LiveWatch
		if err := json.Unmarshal([]byte(v), &w); err != nil {
			logger.Warn("dropping unreadable watch", "video_id", id, "error", err)
			continue
		}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].VideoID < out[j].VideoID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out, nil
}

// Enqueue publishes a reconcile job for a watched video.
func (s *LiveService) Enqueue(ctx context.Context, videoID string) (string, error) {
	w, err := s.getWatch(ctx, videoID)
	if err != nil {
		return "", err
	}
	job := model.LiveJob{
		Type:        model.JobReconcile,
		VideoID:     w.VideoID,
		PageID:      w.PageID,
		RequestedAt: s.now(),
	}
	id, err := s.jobs.PublishJSON(ctx, job, map[string]string{"type": string(job.Type), "video_id": job.VideoID})
	if err != nil {
		return "", fmt.Errorf("enqueue reconcile: %w", err)
	}
	return id, nil
}

// RunPass fetches the comments and orders of a watched video, reconciles them against the
// customers table and stores the decorated view. Fetch and persistence failures are
// reported as notifications; the pass still produces a snapshot unless no comment at all
// could be read.
func (s *LiveService) RunPass(ctx context.Context, videoID string) (*model.LiveSnapshot, error) {
	started := s.now()

	w, err := s.getWatch(ctx, videoID)
	if err != nil {
		return nil, err
	}

	if isLive, ok := s.refreshLiveState(ctx, videoID); ok {
		w.IsLive = isLive
	}

	comments, err := s.comments.FetchAllComments(ctx, gateway.CommentQuery{
		PageID:  w.PageID,
		VideoID: w.VideoID,
		Limit:   s.config.CommentPageLimit,
		Order:   gateway.OrderFor(w.IsLive),
	}, s.config.MaxCommentPages)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.notify(ctx, videoID, model.NotificationError, "Không tải được bình luận", err)
		if len(comments) == 0 {
			return nil, fmt.Errorf("fetch comments: %w", err)
		}
	}

	orders, err := s.orders.FetchOrders(ctx, w.PostID(), s.config.OrdersTop)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.notify(ctx, videoID, model.NotificationWarn, "Không tải được đơn hàng", err)
		orders = nil
	}

	known, err := s.cache.Load(ctx, videoID)
	if err != nil {
		logger.Warn("status cache unavailable, resolving every commenter", "video_id", videoID, "error", err)
		known = reconciler.Known{}
	}

	res, err := s.reconciler.Reconcile(ctx, videoID, comments, orders, known)
	if err != nil {
		return nil, err
	}

	// an Unwatch during the pass wins: nothing is written back for the video
	if _, err := s.getWatch(ctx, videoID); err != nil {
		return nil, err
	}

	if err := s.cache.Save(ctx, videoID, res.Cacheable); err != nil {
		logger.Warn("failed to save status cache", "video_id", videoID, "error", err)
	}

	snap := &model.LiveSnapshot{
		VideoID:    videoID,
		Comments:   reconciler.Decorate(comments, res.Statuses, orders),
		Stats:      res.Stats,
		Orders:     len(orders),
		ComputedAt: s.now(),
	}
	if err := s.saveSnapshot(ctx, snap); err != nil {
		logger.Warn("failed to save snapshot", "video_id", videoID, "error", err)
	}

	prom.AddCommenters("cache", res.Stats.CacheHits)
	prom.AddCommenters("records", res.Stats.FromRecords)
	prom.AddCommenters("orders", res.Stats.FromOrders)
	prom.AddCommenters("needs_info", res.Stats.NeedsInfo)
	prom.AddCommenters("strangers", res.Stats.Strangers)
	if res.PersistErr != nil {
		prom.IncUpsertFailures()
	}

	logger.Debug("pass finished",
		"video_id", videoID,
		"comments", res.Stats.Comments,
		"looked_up", res.Stats.Looked,
		"upserted", res.Stats.Upserted,
		"orders", len(orders),
		"duration", s.now().Sub(started))

	return snap, nil
}

// refreshLiveState keeps the read order in line with the broadcast state and reports it.
// Only is_live is written, onto a fresh read of the watch, so a Pause or Unwatch made while
// the video was being looked up stands. A failed lookup keeps the previous state.
func (s *LiveService) refreshLiveState(ctx context.Context, videoID string) (isLive bool, ok bool) {
	video, err := s.comments.GetVideo(ctx, videoID)
	if err != nil {
		logger.Warn("failed to read video status", "video_id", videoID, "error", err)
		return false, false
	}
	isLive = video.IsLive()

	current, err := s.getWatch(ctx, videoID)
	if err != nil {
		if !errors.Is(err, ErrWatchNotFound) {
			logger.Warn("failed to re-read watch", "video_id", videoID, "error", err)
		}
		return isLive, true
	}
	if current.IsLive == isLive {
		return isLive, true
	}
	current.IsLive = isLive
	if err := s.saveWatch(ctx, current); err != nil {
		logger.Warn("failed to update watch", "video_id", videoID, "error", err)
	}
	return isLive, true
}

// Snapshot returns the last decorated comment view of a video.
func (s *LiveService) Snapshot(ctx context.Context, videoID string) (*model.LiveSnapshot, error) {
	raw, err := s.redis.Get(ctx, snapshotKeyPrefix+videoID)
	if err != nil {
		if errors.Is(err, redis.NilError) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var snap model.LiveSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

func (s *LiveService) saveSnapshot(ctx context.Context, snap *model.LiveSnapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, snapshotKeyPrefix+snap.VideoID, b, s.config.SnapshotTTL)
}

func (s *LiveService) getWatch(ctx context.Context, videoID string) (*model.LiveWatch, error) {
	raw, err := s.redis.HGet(ctx, watchKey, videoID)
	if err != nil {
		if errors.Is(err, redis.NilError) {
			return nil, ErrWatchNotFound
		}
		return nil, fmt.Errorf("read watch: %w", err)
	}
	var w model.LiveWatch
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("decode watch: %w", err)
	}
	return &w, nil
}

func (s *LiveService) saveWatch(ctx context.Context, w *model.LiveWatch) error {
	b, err := json.Marshal(w)
	if err != nil {
		return err
	}
	if err := s.redis.HSet(ctx, watchKey, w.VideoID, string(b)); err != nil {
		return fmt.Errorf("save watch: %w", err)
	}
	return nil
}

func (s *LiveService) notify(ctx context.Context, videoID string, level model.NotificationLevel, title string, err error) {
	if s.notifier == nil {
		logger.Error(title, "video_id", videoID, "error", err)
		return
	}
	nerr := s.notifier.Notify(ctx, model.Notification{
		Level:     level,
		Title:     title,
		Message:   err.Error(),
		VideoID:   videoID,
		CreatedAt: s.now(),
	})
	if nerr != nil {
		logger.Warn("failed to publish notification", "video_id", videoID, "error", nerr)
	}
}
