package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nimasrn/live-commerce/internal/config"
	gateway "github.com/nimasrn/live-commerce/internal/gateways"
	"github.com/nimasrn/live-commerce/internal/handlers"
	"github.com/nimasrn/live-commerce/internal/model"
	"github.com/nimasrn/live-commerce/internal/printer"
	"github.com/nimasrn/live-commerce/internal/queue"
	"github.com/nimasrn/live-commerce/internal/reconciler"
	"github.com/nimasrn/live-commerce/internal/repository"
	"github.com/nimasrn/live-commerce/internal/services"
	"github.com/nimasrn/live-commerce/internal/storage"
	xhttp "github.com/nimasrn/live-commerce/pkg/http"
	"github.com/nimasrn/live-commerce/pkg/logger"
	"github.com/nimasrn/live-commerce/pkg/pg"
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
	logger.Info("starting api", "version", version, "commit", commit, "date", date)

	s := xhttp.NewServer(xhttp.DefaultServerOption.
		WithTimeouts(cfg.HttpServerReadTimeout, cfg.HttpServerWriteTimeout).
		WithBuffers(cfg.HttpServerReadBufferSize, cfg.HttpServerWriteBufferSize))
	s.Use(xhttp.RecoverMiddleware)
	s.Use(xhttp.RequestIDMiddleware)
	s.Use(xhttp.CORSMiddleware(cfg.HttpCorsAllowOrigin))
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.CompressMiddleware(6))
	s.Use(xhttp.TimeoutMiddleware(s.RequestTimeout()))
	s.Router = xhttp.CreateDefaultRouter()

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

	jobs, err := queue.NewQueue(redisAdap, queue.QueueConfig{
		Name:              cfg.QueueName,
		ConsumerGroup:     cfg.QueueConsumerGroup,
		ConsumerName:      cfg.QueueConsumerName,
		MaxRetries:        cfg.QueueMaxRetries,
		VisibilityTimeout: cfg.QueueVisibilityTimeout,
		PollInterval:      cfg.QueuePollInterval,
		BatchSize:         cfg.QueueBatchSize,
		MaxLen:            cfg.QueueMaxLen,
		EnableDLQ:         cfg.QueueEnableDLQ,
	})
	if err != nil {
		logger.Error("failed creating queue", "error", err)
		return
	}

	// repositories
	customerRepo := repository.NewCustomerRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	// services
	settingsService := services.NewSettingsService(settingsRepo, services.SettingsDefaults{
		TPOS: model.TPOSConfig{BaseURL: cfg.TPOSBaseURL, BearerToken: cfg.TPOSBearerToken},
		Printer: model.PrinterSettings{
			Name:     cfg.PrinterName,
			IP:       cfg.PrinterIP,
			Port:     cfg.PrinterPort,
			Codepage: cfg.PrinterCodepage,
		},
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

	// passes only run in the processor; the api uses the watch list and snapshots
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
	customerService := services.NewCustomerService(customerRepo)
	printOpts := printer.DefaultOptions()
	printService := services.NewPrintService(settingsService, printer.NewSender(cfg.PrinterDialTimeout), printOpts)
	uploadService := services.NewUploadService(newObjectStore(cfg))
	healthService := services.NewHealthService(map[string]services.Pinger{
		"postgres": db,
		"redis":    redisAdap,
	})

	// v1 handlers
	g := s.Router.Group("/api/v1")
	handlers.RegisterHealthRoutes(g, handlers.NewHealthHandler(healthService))
	handlers.RegisterLiveRoutes(g, handlers.NewLiveHandler(liveService))
	handlers.RegisterCustomerRoutes(g, handlers.NewCustomerHandler(customerService))
	handlers.RegisterBillRoutes(g, handlers.NewBillHandler(printService))
	handlers.RegisterUploadRoutes(g, handlers.NewUploadHandler(uploadService))
	handlers.RegisterNotificationRoutes(g, handlers.NewNotificationHandler(notificationService))
	handlers.RegisterSettingsRoutes(g, handlers.NewSettingsHandler(settingsService))

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		var err = s.ListenAndServe(cfg.HttpListenAddr)
		if err != nil {
			logger.Error("error in running http-server", "error", err)
		}
	}()

	<-c
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		logger.Error("http-server shutdown", "error", err)
	}
}

// newObjectStore returns nil when no bucket is configured; uploads then answer 503.
func newObjectStore(cfg *config.Config) services.ObjectStore {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := storage.NewS3Storage(ctx, storage.Config{
		Endpoint:     cfg.S3Endpoint,
		Region:       cfg.S3Region,
		Bucket:       cfg.S3Bucket,
		AccessKey:    cfg.S3AccessKey,
		SecretKey:    cfg.S3SecretKey,
		PublicURL:    cfg.S3PublicURL,
		UsePathStyle: cfg.S3UsePathStyle,
	})
	if err != nil {
		if errors.Is(err, storage.ErrStorageNotConfigured) {
			logger.Warn("object storage disabled, uploads will be rejected")
		} else {
			logger.Error("failed to create object storage", "error", err)
		}
		return nil
	}
	if err := store.EnsureBucket(ctx); err != nil {
		logger.Warn("failed to ensure upload bucket", "bucket", cfg.S3Bucket, "error", err)
	}
	return store
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
