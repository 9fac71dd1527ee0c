package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FromEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	content := "TPOS_BASE_URL=https://tpos.example\n" +
		"LIVE_POLL_INTERVAL=3s\n" +
		"POSTGRES_WRITE_HOST=db-writer\n" +
		"POSTGRES_WRITE_PORT=5433\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Cleanup(func() {
		for _, k := range []string{"TPOS_BASE_URL", "LIVE_POLL_INTERVAL", "POSTGRES_WRITE_HOST", "POSTGRES_WRITE_PORT"} {
			_ = os.Unsetenv(k)
		}
	})

	require.NoError(t, Load(path))

	c := Get()
	assert.Equal(t, "https://tpos.example", c.TPOSBaseURL)
	assert.Equal(t, 3*time.Second, c.LivePollInterval)
	assert.Equal(t, "db-writer", c.PostgresWrite().Host)
	assert.Equal(t, "5433", c.PostgresWrite().Port)
}

func TestLoad_MissingFile(t *testing.T) {
	err := Load(filepath.Join(t.TempDir(), "nope.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load configuration file")
}
