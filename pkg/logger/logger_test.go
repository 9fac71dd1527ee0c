package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	prev := zapLogger
	zapLogger = &ZapLogger{log: zap.New(core).Sugar()}
	t.Cleanup(func() { zapLogger = prev })
	return logs
}

func TestPackageHelpersUseCurrentLogger(t *testing.T) {
	logs := observed(t)

	Info("pass finished", "video_id", "vid1", "comments", 5)
	Warn("order feed down", "video_id", "vid1")

	require.Equal(t, 2, logs.Len())
	first := logs.All()[0]
	assert.Equal(t, "pass finished", first.Message)
	assert.Equal(t, zapcore.InfoLevel, first.Level)
	assert.Equal(t, "vid1", first.ContextMap()["video_id"])
	assert.Equal(t, int64(5), first.ContextMap()["comments"])
	assert.Equal(t, zapcore.WarnLevel, logs.All()[1].Level)
}

func TestWithCarriesFields(t *testing.T) {
	logs := observed(t)

	log := With("worker", 2)
	log.Error("job failed", "message_id", "1-0")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, int64(2), fields["worker"])
	assert.Equal(t, "1-0", fields["message_id"])
}

func TestPrintfLogsAtInfo(t *testing.T) {
	logs := observed(t)

	GetLogger().Printf("[xhttp] route %s %s", "GET", "/api/v1/live")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "[xhttp] route GET /api/v1/live", logs.All()[0].Message)
}
