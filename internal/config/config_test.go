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
	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, 300*time.Millisecond, cfg.Debounce.Delay)
	assert.Equal(t, 500*time.Millisecond, cfg.Throttle.Cooldown)
	assert.Equal(t, 1024, cfg.Throttle.MaxKeys)
	assert.Equal(t, DriverNone, cfg.Store.Driver)
	assert.Equal(t, "localhost:6379", cfg.Store.Addr)
	assert.Equal(t, "ratefunc:", cfg.Store.Prefix)
	assert.Equal(t, 65536, cfg.Store.MaxKeys)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "path", cfg.Server.VaryBy)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ratefunc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
debounce:
  delay: 1s
throttle:
  cooldown: 2s
store:
  driver: memory
  max_keys: 10
logging:
  level: debug
`), 0o600))
	t.Setenv("RATEFUNC_THROTTLE_COOLDOWN", "750ms")
	t.Setenv("RATEFUNC_SERVER_ADDR", ":8080")

	cfg, err := Load(New(), path)
	require.NoError(t, err)

	assert.Equal(t, time.Second, cfg.Debounce.Delay)
	assert.Equal(t, 750*time.Millisecond, cfg.Throttle.Cooldown, "env overrides the file")
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, 10, cfg.Store.MaxKeys)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  any
	}{
		{"negative delay", "debounce.delay", -time.Second},
		{"negative cooldown", "throttle.cooldown", "-1ms"},
		{"negative shutdown timeout", "server.shutdown_timeout", -time.Second},
		{"unknown driver", "store.driver", "memcached"},
		{"unknown vary_by", "server.vary_by", "header"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.Set(tt.key, tt.val)
			_, err := Load(v, "")
			require.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}
