package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, 8000, cfg.Backend.Port)
	assert.Equal(t, 2*time.Second, cfg.Poller.Interval)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.False(t, cfg.Review.PersistDecisions)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := "backend:\n  base_url: http://scoring:9000\npoller:\n  interval: 5s\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))
	t.Setenv("TRIAGE_REVIEW_PERSIST_DECISIONS", "true")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "http://scoring:9000", cfg.Backend.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Poller.Interval)
	assert.True(t, cfg.Review.PersistDecisions)
}

func TestLoadConfigRequiresSecretWithAuth(t *testing.T) {
	t.Setenv("TRIAGE_AUTH_ENABLED", "true")
	_, err := LoadConfig(t.TempDir())
	assert.Error(t, err)
}
