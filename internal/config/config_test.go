package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "8888", c.Server.Port)
	assert.Equal(t, int64(10*1024*1024), c.Server.MaxUploadBytes)
	assert.Equal(t, "file", c.Storage.Backend)
	assert.Equal(t, "data/statbuddy_prefs.json", c.Storage.Path)
	assert.Equal(t, "local", c.Signal.Transport)
	assert.Equal(t, []string{"localhost:9092"}, c.Signal.Kafka.Brokers)
	assert.Equal(t, 15*time.Second, c.Notification.RefreshInterval)
	assert.False(t, c.Library.RequireMembership)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statbuddy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9000"
storage:
  backend: redis
  redis:
    addr: cache:6379
    prefix: sb
notification:
  refresh_interval: 30s
library:
  require_membership: true
`), 0644))

	t.Setenv("STATBUDDY_SERVER_PORT", "9100")
	t.Setenv("STATBUDDY_SIGNAL_TRANSPORT", "kafka")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9100", c.Server.Port)
	assert.Equal(t, "redis", c.Storage.Backend)
	assert.Equal(t, "cache:6379", c.Storage.Redis.Addr)
	assert.Equal(t, "sb", c.Storage.Redis.Prefix)
	assert.Equal(t, "kafka", c.Signal.Transport)
	assert.Equal(t, 30*time.Second, c.Notification.RefreshInterval)
	assert.True(t, c.Library.RequireMembership)
	assert.Equal(t, "uploads", c.Server.UploadsDir)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
