package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("ENTITY_STORE", "")
	t.Setenv("SESSION_STORE", "")
	t.Setenv("RECOGNIZER", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, StoreNeo4j, cfg.EntityStore)
	assert.Equal(t, "bolt://127.0.0.1:7687", cfg.Neo4jURI)
	assert.Equal(t, SessionsMemory, cfg.SessionStore)
	assert.Equal(t, RecognizerProse, cfg.Recognizer)
	assert.Zero(t, cfg.SessionMaxCount)
	assert.Zero(t, cfg.SessionTTL)
	assert.Contains(t, cfg.CORSOrigins, "*")
	assert.Positive(t, cfg.WorkerPoolSize)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("ENTITY_STORE", "memory")
	t.Setenv("SESSION_TTL", "90s")
	t.Setenv("SESSION_SWEEP_INTERVAL", "15")
	t.Setenv("SESSION_MAX_COUNT", "25")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test ,")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, StoreMemory, cfg.EntityStore)
	assert.Equal(t, 90*time.Second, cfg.SessionTTL)
	assert.Equal(t, 15*time.Second, cfg.SessionSweepInterval)
	assert.Equal(t, 25, cfg.SessionMaxCount)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			EntityStore:    StoreMemory,
			SessionStore:   SessionsMemory,
			Recognizer:     RecognizerProse,
			MaxFileSize:    1024,
			WorkerPoolSize: 2,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"unknown store", func(c *Config) { c.EntityStore = "sqlite" }, "ENTITY_STORE"},
		{"unknown sessions", func(c *Config) { c.SessionStore = "disk" }, "SESSION_STORE"},
		{"gemini without key", func(c *Config) { c.Recognizer = RecognizerGemini }, "GEMINI_API_KEY"},
		{"async without redis", func(c *Config) { c.AsyncExtraction = true }, "ASYNC_EXTRACTION"},
		{"async with memory store", func(c *Config) {
			c.AsyncExtraction = true
			c.SessionStore = SessionsRedis
		}, "ENTITY_STORE"},
		{"async with shared stores", func(c *Config) {
			c.AsyncExtraction = true
			c.SessionStore = SessionsRedis
			c.EntityStore = StoreMongo
		}, ""},
		{"negative capacity", func(c *Config) { c.SessionMaxCount = -1 }, "SESSION_MAX_COUNT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRedisOptions(t *testing.T) {
	opt, err := RedisOptions(&Config{RedisURL: "localhost:6380", RedisDB: 2})
	require.NoError(t, err)
	assert.Equal(t, "localhost:6380", opt.Addr)
	assert.Equal(t, 2, opt.DB)

	opt, err = RedisOptions(&Config{RedisURL: "redis://:secret@cache.internal:6379/3"})
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:6379", opt.Addr)
	assert.Equal(t, "secret", opt.Password)
	assert.Equal(t, 3, opt.DB)
}
