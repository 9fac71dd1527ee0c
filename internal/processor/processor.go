package processor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nimasrn/live-commerce/internal/model"
	"github.com/nimasrn/live-commerce/internal/queue"
	"github.com/nimasrn/live-commerce/internal/reconciler"
	"github.com/nimasrn/live-commerce/internal/services"
	"github.com/nimasrn/live-commerce/pkg/logger"
	"github.com/nimasrn/live-commerce/pkg/prom"
	"github.com/nimasrn/live-commerce/pkg/redis"
	"github.com/nimasrn/live-commerce/pkg/worker"
)

const HealthInterval = time.Second * 30
const MetricsInterval = time.Second * 30
const ShutdownTimeout = time.Minute

// LiveRunner is the part of the live service the processor drives.
type LiveRunner interface {
	Watches(ctx context.Context) ([]model.LiveWatch, error)
	RunPass(ctx context.Context, videoID string) (*model.LiveSnapshot, error)
}

// Processor interface for different job processors
type Processor interface {
	Process(ctx context.Context, message *queue.Message) error
	GetType() string
}

type Config struct {
	Queue        queue.QueueConfig
	Consumers    int
	Workers      int
	WorkerBuffer int
	PollInterval time.Duration
	PassTimeout  time.Duration
}

// ProcessorService polls every watched video and consumes reconcile jobs. Both paths end in
// the Supervisor, so a video never has two passes in flight in this process; the lease
// covers other processes.
type ProcessorService struct {
	adapter    redis.RedisAdapter
	live       LiveRunner
	lease      *LeaseService
	supervisor *reconciler.Supervisor
	queues     []*queue.Queue
	processors map[string]Processor
	metrics    *ServiceMetrics
	config     Config
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	worker     *worker.WorkerManager
}

type triggerKey struct{}

func NewProcessorService(adapter redis.RedisAdapter, live LiveRunner, lease *LeaseService, cfg Config) *ProcessorService {
	if cfg.Consumers <= 0 {
		cfg.Consumers = 1
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.WorkerBuffer <= 0 {
		cfg.WorkerBuffer = cfg.Workers * 16
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.PassTimeout <= 0 {
		cfg.PassTimeout = 2 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &ProcessorService{
		adapter:    adapter,
		live:       live,
		lease:      lease,
		processors: make(map[string]Processor),
		metrics:    NewServiceMetrics(),
		config:     cfg,
		ctx:        ctx,
		cancel:     cancel,
		worker:     worker.NewWorkerManager(cfg.WorkerBuffer, cfg.Workers, nil),
	}
	s.supervisor = reconciler.NewSupervisor(s.runPass, reconciler.SupervisorConfig{
		Base:        ctx,
		PassTimeout: cfg.PassTimeout,
	})
	return s
}

// RegisterProcessor registers a processor for its job type
func (s *ProcessorService) RegisterProcessor(processor Processor) {
	s.processors[processor.GetType()] = processor
	logger.Info("Registered processor", "type", processor.GetType())
}

// Trigger asks for a pass over videoID. A pass already running for the video absorbs the
// request; it then reruns once when it finishes.
func (s *ProcessorService) Trigger(ctx context.Context, videoID, trigger string) error {
	ran, err := s.supervisor.Trigger(context.WithValue(ctx, triggerKey{}, trigger), videoID)
	if !ran {
		s.metrics.RecordSkipped()
		logger.Debug("Pass coalesced", "video_id", videoID, "trigger", trigger)
	}
	return err
}

// runPass is the Supervisor's PassFunc.
func (s *ProcessorService) runPass(ctx context.Context, videoID string) error {
	trigger, _ := ctx.Value(triggerKey{}).(string)
	if trigger == "" {
		trigger = "poll"
	}

	if s.lease != nil {
		l, err := s.lease.Acquire(ctx, videoID)
		if errors.Is(err, ErrLeaseHeld) {
			s.metrics.RecordSkipped()
			return nil
		}
		if err != nil {
			s.metrics.RecordFailure()
			return err
		}
		defer func() {
			_ = s.lease.Release(context.Background(), l)
		}()
	}

	start := time.Now()
	_, err := s.live.RunPass(ctx, videoID)
	if err != nil {
		if errors.Is(err, services.ErrWatchNotFound) {
			logger.Info("Skipping pass for unwatched video", "video_id", videoID, "trigger", trigger)
			return nil
		}
		s.metrics.RecordFailure()
		logger.Error("Pass failed", "video_id", videoID, "trigger", trigger, "error", err)
		return err
	}

	duration := time.Since(start)
	s.metrics.RecordSuccess(duration)
	prom.ObservePass(trigger, duration)
	return nil
}

// Start starts the processor service
func (s *ProcessorService) Start() error {
	logger.Info("Starting Processor Service...")

	s.worker.SetWorker(s.workerHandler)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.worker.Start(); err != nil {
			logger.Info("Worker manager stopped", "reason", err)
		}
	}()

	for i := 0; i < s.config.Consumers; i++ {
		queueConfig := s.config.Queue
		queueConfig.ConsumerName = fmt.Sprintf("%s-instance-%d", queueConfig.ConsumerName, i)

		q, err := queue.NewQueue(s.adapter, queueConfig)
		if err != nil {
			return fmt.Errorf("failed to create queue %d: %w", i, err)
		}

		if err := q.Consume(s.messageHandler); err != nil {
			return fmt.Errorf("failed to start consumer %d: %w", i, err)
		}

		s.queues = append(s.queues, q)
		logger.Info("Started consumer instance", "instance", i)
	}

	s.wg.Add(3)
	go s.poller()
	go s.metricsReporter()
	go s.healthChecker()

	logger.Info("Processor Service started",
		"consumers", len(s.queues),
		"workers", s.config.Workers,
		"poll_interval", s.config.PollInterval)
	return nil
}

type passJob struct {
	videoID string
}

// poller feeds every active watch to the worker pool once per interval.
func (s *ProcessorService) poller() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.pollOnce()
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *ProcessorService) pollOnce() {
	watches, err := s.live.Watches(s.ctx)
	if err != nil {
		logger.Error("Failed to list watches", "error", err)
		return
	}

	active, paused := 0, 0
	for _, w := range watches {
		if w.Paused {
			paused++
			continue
		}
		active++
		if s.supervisor.Busy(w.VideoID) {
			continue
		}
		if err := s.worker.TryEnqueue(&passJob{videoID: w.VideoID}); err != nil {
			logger.Warn("Worker pool full, skipping poll", "video_id", w.VideoID)
		}
	}
	prom.SetWatchedVideos("active", active)
	prom.SetWatchedVideos("paused", paused)
}

func (s *ProcessorService) metricsReporter() {
	defer s.wg.Done()

	ticker := time.NewTicker(MetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.reportMetrics()
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *ProcessorService) reportMetrics() {
	stats := s.metrics.GetStats()

	logger.Info("Metrics",
		"total_passes", stats["total_passes"],
		"total_failed", stats["total_failed"],
		"total_skipped", stats["total_skipped"],
		"rate_per_second", stats["rate_per_second"],
		"avg_duration_ms", stats["avg_duration_ms"],
		"uptime_seconds", stats["uptime_seconds"],
		"worker_backlog", s.worker.GetUnreadCount())

	if len(s.queues) > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if qStats, err := s.queues[0].GetStats(ctx); err == nil {
			logger.Info("Queue stats", "queue", s.queues[0].Name(), "total", qStats.TotalMessages, "pending", qStats.PendingMessages)
		}
	}
}

func (s *ProcessorService) healthChecker() {
	defer s.wg.Done()

	ticker := time.NewTicker(HealthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.performHealthCheck()
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *ProcessorService) performHealthCheck() {
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()

	if err := s.adapter.Ping(ctx); err != nil {
		logger.Error("HEALTH CHECK FAILED: Redis connection error", "error", err)
		return
	}

	if len(s.queues) > 0 {
		stats, err := s.queues[0].GetStats(ctx)
		if err != nil {
			logger.Warn("HEALTH CHECK WARNING: Queue stats unavailable", "error", err)
		} else if stats.PendingMessages > 1000 {
			logger.Warn("HEALTH CHECK WARNING: Queue has high lag", "pending_messages", stats.PendingMessages)
		}
	}

	logger.Debug("HEALTH CHECK: OK - Service healthy")
}

// Stop gracefully stops the service
func (s *ProcessorService) Stop() {
	logger.Info("Shutting down Processor Service...")

	s.cancel()

	timeout := ShutdownTimeout
	stopChan := make(chan bool, len(s.queues))

	for i, q := range s.queues {
		go func(index int, queue *queue.Queue) {
			if err := queue.Stop(timeout); err != nil {
				logger.Error("Error stopping queue", "queue", index, "error", err)
			}
			stopChan <- true
		}(i, q)
	}

	for range s.queues {
		select {
		case <-stopChan:
		case <-time.After(timeout + 5*time.Second):
			logger.Warn("Timeout waiting for queues to stop")
		}
	}

	s.worker.Exit()
	s.wg.Wait()

	s.reportMetrics()

	logger.Info("Processor Service stopped")
}

type jobResult struct {
	msg        *queue.Message
	resultChan chan error
	ctx        context.Context
}

// messageHandler receives messages from queue and enqueues to worker pool
func (s *ProcessorService) messageHandler(ctx context.Context, msg *queue.Message) error {
	resultChan := make(chan error, 1)

	msgCtx, cancel := context.WithTimeout(ctx, s.config.PassTimeout+time.Second)
	defer cancel()

	job := &jobResult{
		msg:        msg,
		resultChan: resultChan,
		ctx:        msgCtx,
	}

	s.worker.Enqueue(job)

	select {
	case err := <-resultChan:
		return err
	case <-msgCtx.Done():
		return fmt.Errorf("timeout waiting for worker to process message: %w", msgCtx.Err())
	}
}

// workerHandler runs polls and queue jobs in the worker pool
func (s *ProcessorService) workerHandler(workerIndex int, job interface{}) {
	switch j := job.(type) {
	case *passJob:
		_ = s.Trigger(s.ctx, j.videoID, "poll")
	case *jobResult:
		s.handleJob(workerIndex, j)
	default:
		logger.Error("Invalid job type in worker", "worker", workerIndex)
	}
}

func (s *ProcessorService) handleJob(workerIndex int, jobRes *jobResult) {
	msg := jobRes.msg

	select {
	case <-jobRes.ctx.Done():
		logger.Warn("Job context cancelled before processing started", "worker", workerIndex)
		return
	default:
	}

	log := logger.With("worker", workerIndex, "message_id", msg.ID, "type", msg.Type())

	var resultErr error
	p, ok := s.processors[msg.Type()]
	switch {
	case !ok:
		log.Warn("No processor found")
		prom.IncJobs(msg.Type(), "unknown")
		// ACK - unknown type won't succeed on retry
	default:
		err := p.Process(jobRes.ctx, msg)
		switch {
		case err == nil:
			prom.IncJobs(msg.Type(), "ok")
		case errors.Is(err, ErrInvalidJob):
			log.Error("Dropping invalid job", "error", err)
			prom.IncJobs(msg.Type(), "invalid")
		default:
			log.Error("Failed to process job", "error", err)
			prom.IncJobs(msg.Type(), "error")
			resultErr = err
		}
	}

	select {
	case jobRes.resultChan <- resultErr:
	case <-jobRes.ctx.Done():
		logger.Warn("Context cancelled while sending result, message handler timed out", "worker", workerIndex)
	}
}
