package config

import (
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/nimasrn/live-commerce/pkg/logger"
	"github.com/nimasrn/live-commerce/pkg/pg"
	"github.com/pkg/errors"
)

const ConfigTagName = "env"

var config *Config

// Config holds every configuration value of the service. Only this struct must be used
// to read configuration, no direct access to env or any other config source should be made.
type Config struct {
	AppEnv     string `env:"APP_ENV,default=dev"`
	AppName    string `env:"APP_NAME,default=live_commerce"`
	AppDebug   bool   `env:"APP_DEBUG,default=true"`
	AppBaseUrl string `env:"APP_BASE_URL"`

	HttpListenAddr            string        `env:"HTTP_LISTEN_ADDR,default=:8080"`
	HttpServerReadTimeout     int           `env:"HTTP_SERVER_READ_TIMEOUT"`
	HttpServerWriteTimeout    int           `env:"HTTP_SERVER_WRITE_TIMEOUT"`
	HttpServerReadBufferSize  int           `env:"HTTP_SERVER_READ_BUFFER_SIZE"`
	HttpServerWriteBufferSize int           `env:"HTTP_SERVER_WRITE_BUFFER_SIZE"`
	HttpCorsAllowOrigin       string        `env:"HTTP_CORS_ALLOW_ORIGIN,default=*"`
	HttpClientTimeout         time.Duration `env:"HTTP_CLIENT_TIMEOUT,default=10s"`

	PostgresReadHost     string `env:"POSTGRES_READ_HOST"`
	PostgresReadPort     string `env:"POSTGRES_READ_PORT"`
	PostgresReadUser     string `env:"POSTGRES_READ_USER"`
	PostgresReadPassword string `env:"POSTGRES_READ_PASSWORD"`
	PostgresReadDatabase string `env:"POSTGRES_READ_DBNAME"`

	PostgresWriteHost     string `env:"POSTGRES_WRITE_HOST"`
	PostgresWritePort     string `env:"POSTGRES_WRITE_PORT"`
	PostgresWriteUser     string `env:"POSTGRES_WRITE_USER"`
	PostgresWritePassword string `env:"POSTGRES_WRITE_PASSWORD"`
	PostgresWriteDatabase string `env:"POSTGRES_WRITE_DBNAME"`

	RedisAddr               string `env:"REDIS_ADDR"`
	RedisUsername           string `env:"REDIS_USER"`
	RedisPassword           string `env:"REDIS_PASS"`
	RedisDatabase           int    `env:"REDIS_DATABASE"`
	RedisUniversalKeyPrefix string `env:"REDIS_UNIVERSAL_KEY_PREFIX"`

	PromNamespace  string `env:"PROM_NAMESPACE,default=live_commerce"`
	PromListenAddr string `env:"PROM_LISTEN_ADDR,default=:9100"`

	LogLevel []string `env:"LOG_LEVEL"`

	QueueName              string        `env:"QUEUE_NAME,default=live:jobs"`
	QueueConsumerGroup     string        `env:"QUEUE_CONSUMER_GROUP,default=processors"`
	QueueConsumerName      string        `env:"QUEUE_CONSUMER_NAME"`
	QueueMaxRetries        int           `env:"QUEUE_MAX_RETRIES,default=3"`
	QueueVisibilityTimeout time.Duration `env:"QUEUE_VISIBILITY_TIMEOUT,default=2m"`
	QueuePollInterval      time.Duration `env:"QUEUE_POLL_INTERVAL,default=500ms"`
	QueueBatchSize         int64         `env:"QUEUE_BATCH_SIZE,default=10"`
	QueueMaxLen            int64         `env:"QUEUE_MAX_LEN,default=10000"`
	QueueEnableDLQ         bool          `env:"QUEUE_ENABLE_DLQ,default=true"`

	FacebookGraphURL         string `env:"FACEBOOK_GRAPH_URL,default=https://graph.facebook.com"`
	FacebookGraphVersion     string `env:"FACEBOOK_GRAPH_VERSION,default=v18.0"`
	FacebookPageToken        string `env:"FACEBOOK_PAGE_TOKEN"`
	FacebookCommentPageLimit int    `env:"FACEBOOK_COMMENT_PAGE_LIMIT,default=100"`
	FacebookMaxCommentPages  int    `env:"FACEBOOK_MAX_COMMENT_PAGES,default=20"`

	TPOSBaseURL     string `env:"TPOS_BASE_URL"`
	TPOSBearerToken string `env:"TPOS_BEARER_TOKEN"`
	TPOSOrdersTop   int    `env:"TPOS_ORDERS_TOP,default=500"`

	LivePollInterval   time.Duration `env:"LIVE_POLL_INTERVAL,default=5s"`
	LiveWorkers        int           `env:"LIVE_WORKERS,default=4"`
	LiveStatusCacheTTL time.Duration `env:"LIVE_STATUS_CACHE_TTL,default=12h"`
	LiveSnapshotTTL    time.Duration `env:"LIVE_SNAPSHOT_TTL,default=24h"`
	LiveLeaseTTL       time.Duration `env:"LIVE_LEASE_TTL,default=2m"`

	PrinterName        string        `env:"PRINTER_NAME,default=default"`
	PrinterIP          string        `env:"PRINTER_IP"`
	PrinterPort        int           `env:"PRINTER_PORT,default=9100"`
	PrinterCodepage    int           `env:"PRINTER_CODEPAGE,default=0"`
	PrinterDialTimeout time.Duration `env:"PRINTER_DIAL_TIMEOUT,default=5s"`

	S3Endpoint     string `env:"S3_ENDPOINT"`
	S3Region       string `env:"S3_REGION,default=us-east-1"`
	S3Bucket       string `env:"S3_BUCKET"`
	S3AccessKey    string `env:"S3_ACCESS_KEY"`
	S3SecretKey    string `env:"S3_SECRET_KEY"`
	S3PublicURL    string `env:"S3_PUBLIC_URL"`
	S3UsePathStyle bool   `env:"S3_USE_PATH_STYLE,default=true"`

	NotificationStream    string `env:"NOTIFICATION_STREAM,default=notifications"`
	NotificationStreamLen int64  `env:"NOTIFICATION_STREAM_LEN,default=500"`
}

func Load(path string) error {
	logger.Info("loading configs..", "path", path)
	c := &Config{}
	var err error
	if path != "" {
		logger.Info("trying to publish env from file", "path", path)
		err = godotenv.Load(path)
		if err != nil {
			return errors.Wrapf(err, "failed to load configuration file %s", path)
		}
	}

	_, err = env.UnmarshalFromEnviron(c)
	if err != nil {
		return errors.Wrap(err, "failed to map env variables to Configuration object")
	}

	config = c
	return nil
}

// Set replaces the loaded configuration. Used by tests and tools that build one in code.
func Set(c *Config) {
	config = c
}

func Get() *Config {
	if config == nil {
		logger.Panic("Config is not initialized")
	}
	return config
}

func (c *Config) PostgresRead() pg.Config {
	return pg.Config{
		User:     c.PostgresReadUser,
		Host:     c.PostgresReadHost,
		Port:     c.PostgresReadPort,
		Password: c.PostgresReadPassword,
		Database: c.PostgresReadDatabase,
	}
}

func (c *Config) PostgresWrite() pg.Config {
	return pg.Config{
		User:     c.PostgresWriteUser,
		Host:     c.PostgresWriteHost,
		Port:     c.PostgresWritePort,
		Password: c.PostgresWritePassword,
		Database: c.PostgresWriteDatabase,
	}
}
