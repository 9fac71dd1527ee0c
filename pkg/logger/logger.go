package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger interface {
	Info(msg string, values ...any)
	Warn(msg string, values ...any)
	Error(msg string, values ...any)
	Debug(msg string, values ...any)
	Panic(message string, values ...any)
	Fatal(error error, values ...any)
	Printf(format string, args ...interface{})
}

func init() {
	var config zap.Config

	env := os.Getenv("LOG_ENV")
	if env == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
	}

	// LOG_LEVEL may carry a comma separated list (the config struct reads it as []string),
	// the first valid entry wins.
	for _, lvl := range strings.Split(os.Getenv("LOG_LEVEL"), ",") {
		var l zapcore.Level
		if err := l.UnmarshalText([]byte(strings.TrimSpace(lvl))); err == nil && lvl != "" {
			config.Level = zap.NewAtomicLevelAt(l)
			break
		}
	}

	_, err := NewLogger(config)
	if err != nil {
		panic(err)
	}
}

func Info(msg string, values ...any) {
	GetLogger().Info(msg, values...)
}

func Warn(msg string, values ...any) {
	GetLogger().Warn(msg, values...)
}

func Error(msg string, values ...any) {
	GetLogger().Error(msg, values...)
}

func Debug(msg string, values ...any) {
	GetLogger().Debug(msg, values...)
}

func Panic(msg string, values ...any) {
	GetLogger().Panic(msg, values...)
}

func Fatal(error error, values ...any) {
	GetLogger().Fatal(error, values...)
}

// With returns a logger that prefixes every entry with the given key/value pairs.
func With(values ...any) *ZapLogger {
	return GetLogger().With(values...)
}

// Sync flushes buffered entries. Mains defer it right after config is loaded.
func Sync() {
	_ = GetLogger().Sync()
}
