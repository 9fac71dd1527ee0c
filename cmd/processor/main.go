package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nimasrn/live-commerce/internal/config"
	gateway "github.com/nimasrn/live-commerce/internal/gateways"
	"github.com/nimasrn/live-commerce/internal/model"
	"github.com/nimasrn/live-commerce/internal/processor"
	"github.com/nimasrn/live-commerce/internal/queue"
	"github.com/nimasrn/live-commerce/internal/reconciler"
	"github.com/nimasrn/live-commerce/internal/repository"
	"github.com/nimasrn/live-commerce/internal/services"
	"github.com/nimasrn/live-commerce/pkg/logger"
	"github.com/nimasrn/live-commerce/pkg/pg"
	"github.com/nimasrn/live-commerce/pkg/prom"
	"github.com/nimasrn/live-commerce/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}
	cfg := config.Get()
	defer logger.Sync()
	logger.Info("starting processor", "version", version, "commit", commit, "date", date)

	pgDebug := false
	if cfg.AppEnv == "dev" {
		pgDebug = true
	}
	db, err := pg.CreateReadWrite(cfg.PostgresRead(), cfg.PostgresWrite(), pgDebug)
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	redisAdap, err := redis.NewRedisAdapter("default", cfg.RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{cfg.RedisAddr},
		ClientName: "default",
		DB:         cfg.RedisDatabase,
		Username:   cfg.RedisUsername,
		Password:   cfg.RedisPassword,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	var hostname string
	hostname, err = os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	queueConf := queue.QueueConfig{
		Name:              cfg.QueueName,
		ConsumerGroup:     cfg.QueueConsumerGroup,
		ConsumerName:      cfg.QueueConsumerName,
		MaxRetries:        cfg.QueueMaxRetries,
		VisibilityTimeout: cfg.QueueVisibilityTimeout,
		PollInterval:      cfg.QueuePollInterval,
		BatchSize:         cfg.QueueBatchSize,
		MaxLen:            cfg.QueueMaxLen,
		EnableDLQ:         cfg.QueueEnableDLQ,
	}
	if queueConf.ConsumerName == "" {
		queueConf.ConsumerName = fmt.Sprintf("%s-%d", hostname, os.Getpid())
	}
	jobs, err := queue.NewQueue(redisAdap, queueConf)
	if err != nil {
		logger.Error("failed creating queue", "error", err)
		return
	}

	customerRepo := repository.NewCustomerRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	settingsService := services.NewSettingsService(settingsRepo, services.SettingsDefaults{
		TPOS: model.TPOSConfig{BaseURL: cfg.TPOSBaseURL, BearerToken: cfg.TPOSBearerToken},
	})
	notificationService := services.NewNotificationService(redisAdap, cfg.NotificationStream, cfg.NotificationStreamLen)

	clientConf := gateway.ClientConfig{Timeout: cfg.HttpClientTimeout}
	facebook := gateway.NewFacebookClient(gateway.FacebookConfig{
		BaseURL:     cfg.FacebookGraphURL,
		Version:     cfg.FacebookGraphVersion,
		AccessToken: cfg.FacebookPageToken,
		Client:      clientConf,
	})
	tpos := gateway.NewTPOSClient(settingsService.TPOSCredentials, clientConf)

	liveService := services.NewLiveService(
		redisAdap,
		facebook,
		tpos,
		reconciler.New(customerRepo, tpos, notificationService),
		reconciler.NewRedisCache(redisAdap, cfg.LiveStatusCacheTTL),
		notificationService,
		jobs,
		services.LiveConfig{
			CommentPageLimit: cfg.FacebookCommentPageLimit,
			MaxCommentPages:  cfg.FacebookMaxCommentPages,
			OrdersTop:        cfg.TPOSOrdersTop,
			SnapshotTTL:      cfg.LiveSnapshotTTL,
		},
	)

	lease := processor.NewLeaseService(redisAdap, processor.LeaseConfig{TTL: cfg.LiveLeaseTTL})
	service := processor.NewProcessorService(redisAdap, liveService, lease, processor.Config{
		Queue:        queueConf,
		Consumers:    1,
		Workers:      cfg.LiveWorkers,
		PollInterval: cfg.LivePollInterval,
		PassTimeout:  cfg.LiveLeaseTTL,
	})
	service.RegisterProcessor(processor.NewReconcileProcessor(service.Trigger))

	err = prom.Create(hostname, cfg.AppEnv, cfg.PromNamespace)
	if err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}

	go func() {
		prom.ListenAndServer(cfg.PromListenAddr, "/metrics")
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	if err := service.Start(); err != nil {
		logger.Error("failed to start processor", "error", err)
		return
	}

	select {
	case <-c:
		service.Stop()
	}
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--env=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	return ""
}
