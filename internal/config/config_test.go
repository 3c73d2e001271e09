package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("missing file yields defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		assert.Equal(t, 30, cfg.TimeoutSeconds)
		assert.Equal(t, 2, cfg.PollIntervalSeconds)
		assert.True(t, cfg.FollowRedirects)
		assert.Equal(t, "warn", cfg.LogLevel)
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
data_dir: /tmp/quiver-test
timeout_seconds: 5
log_level: debug
hooks:
  pre_request: 'vars.set("A", "1");'
`), 0o644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "/tmp/quiver-test", cfg.DataDir)
		assert.Equal(t, 5*time.Second, cfg.Timeout())
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, `vars.set("A", "1");`, cfg.Hooks.PreRequest)
		assert.Equal(t, 2, cfg.PollIntervalSeconds, "unset fields keep their defaults")
	})

	t.Run("non-positive intervals are corrected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("timeout_seconds: -1\npoll_interval_seconds: 0\n"), 0o644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 30, cfg.TimeoutSeconds)
		assert.Equal(t, 2, cfg.PollIntervalSeconds)
	})

	t.Run("malformed yaml errors", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("timeout_seconds: [nope"), 0o644))

		_, err := Load(path)
		assert.Error(t, err)
	})
}
