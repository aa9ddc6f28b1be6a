package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yikakia/visitcounter/core/counter"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 5*time.Second, cfg.TTL())
	assert.Equal(t, 3*time.Second, cfg.CleanupInterval())
	assert.Equal(t, cfg.TTL(), cfg.FlushInterval())
	assert.Equal(t, 2*time.Second, cfg.StoreTimeout())

	// 没有节点不能启动
	assert.ErrorIs(t, cfg.Validate(), counter.ErrConfiguration)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeFile(t, `
backing_nodes:
  - redis://10.0.0.1:6379
  - redis://10.0.0.2:6379
local_ttl_seconds: 10
flush_interval_seconds: 2
routing: rendezvous
listen_addr: ":9000"
`)
	t.Setenv("STORE_TIMEOUT_MS", "250")
	t.Setenv("LISTEN_ADDR", ":9100")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"redis://10.0.0.1:6379", "redis://10.0.0.2:6379"}, cfg.BackingNodes)
	assert.Equal(t, 10*time.Second, cfg.TTL())
	assert.Equal(t, 3*time.Second, cfg.CleanupInterval())
	assert.Equal(t, 2*time.Second, cfg.FlushInterval())
	assert.Equal(t, 250*time.Millisecond, cfg.StoreTimeout())
	assert.Equal(t, RoutingRendezvous, cfg.Routing)
	assert.Equal(t, ":9100", cfg.ListenAddr)
}

func TestLoadFromEnv_Nodes(t *testing.T) {
	t.Run("backing nodes", func(t *testing.T) {
		t.Setenv("BACKING_NODES", " redis://a:6379, ,valkey://b:6379 ")
		cfg := Default()
		require.NoError(t, cfg.LoadFromEnv())
		assert.Equal(t, []string{"redis://a:6379", "valkey://b:6379"}, cfg.BackingNodes)
	})
	t.Run("legacy redis nodes", func(t *testing.T) {
		t.Setenv("REDIS_NODES", "localhost:6379,localhost:6380")
		cfg := Default()
		require.NoError(t, cfg.LoadFromEnv())
		assert.Equal(t, []string{"localhost:6379", "localhost:6380"}, cfg.BackingNodes)
	})
	t.Run("backing nodes wins", func(t *testing.T) {
		t.Setenv("REDIS_NODES", "localhost:6379")
		t.Setenv("BACKING_NODES", "mem://a")
		cfg := Default()
		require.NoError(t, cfg.LoadFromEnv())
		assert.Equal(t, []string{"mem://a"}, cfg.BackingNodes)
	})
}

func TestParseNodes(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"blanks", " , ,", nil},
		{"single", "redis://a:6379", []string{"redis://a:6379"}},
		{"trim", " redis://a:6379 ,redis://b:6379, ", []string{"redis://a:6379", "redis://b:6379"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseNodes(tc.in))
		})
	}
}

func TestLoadFromEnv_WriteThrough(t *testing.T) {
	for _, val := range []string{"1", "true", "TRUE", "t"} {
		t.Run(val, func(t *testing.T) {
			t.Setenv("WRITE_THROUGH", val)
			cfg := Default()
			require.NoError(t, cfg.LoadFromEnv())
			assert.True(t, cfg.WriteThrough)
		})
	}

	t.Run("false", func(t *testing.T) {
		t.Setenv("WRITE_THROUGH", "0")
		cfg := Default()
		cfg.WriteThrough = true
		require.NoError(t, cfg.LoadFromEnv())
		assert.False(t, cfg.WriteThrough)
	})

	t.Run("invalid", func(t *testing.T) {
		t.Setenv("WRITE_THROUGH", "yes")
		cfg := Default()
		err := cfg.LoadFromEnv()
		assert.ErrorIs(t, err, counter.ErrConfiguration)
		assert.Contains(t, err.Error(), "WRITE_THROUGH")
		assert.False(t, cfg.WriteThrough)
	})
}

func TestLoadFromEnv_InvalidInteger(t *testing.T) {
	t.Setenv("LOCAL_TTL_SECONDS", "five")
	cfg := Default()
	err := cfg.LoadFromEnv()
	assert.ErrorIs(t, err, counter.ErrConfiguration)
	assert.Contains(t, err.Error(), "LOCAL_TTL_SECONDS")
}

func TestLoadFromFile(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")))

	bad := writeFile(t, "backing_nodes: [unclosed")
	assert.ErrorIs(t, cfg.LoadFromFile(bad), counter.ErrConfiguration)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := Default()
		cfg.BackingNodes = []string{"mem://a"}
		return cfg
	}
	require.NoError(t, func() error { c := valid(); return c.Validate() }())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"no nodes", func(c *Config) { c.BackingNodes = nil }},
		{"zero ttl", func(c *Config) { c.LocalTTLSeconds = 0 }},
		{"zero cleanup", func(c *Config) { c.CleanupIntervalSeconds = 0 }},
		{"negative flush", func(c *Config) { c.FlushIntervalSeconds = -1 }},
		{"zero store timeout", func(c *Config) { c.StoreTimeoutMillis = 0 }},
		{"zero attempts", func(c *Config) { c.IncrementAttempts = 0 }},
		{"unknown routing", func(c *Config) { c.Routing = "ring" }},
		{"empty listen addr", func(c *Config) { c.ListenAddr = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), counter.ErrConfiguration)
		})
	}
}
