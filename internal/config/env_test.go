package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/knowledge-assistant/internal/core"
)

func validConfig() *Config {
	return &Config{
		StoreBackend:  "badger",
		BadgerPath:    "/tmp/badger",
		EmbedProvider: "openai",
		EmbedDim:      1536,
		EmbedTimeout:  time.Second,
		ChunkSize:     400,
		ChunkOverlap:  50,
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{"CHUNK_SIZE", "EMBED_PROVIDER", "EMBED_TIMEOUT"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg := LoadConfig()
	assert.Equal(t, 400, cfg.ChunkSize)
	assert.Equal(t, 30*time.Second, cfg.EmbedTimeout)
	assert.Equal(t, "openai", cfg.EmbedProvider)
}

func TestLoadConfig_ReadsEnvironment(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "800")
	t.Setenv("CHUNK_OVERLAP", "100")
	t.Setenv("EMBED_PROVIDER", "Gemini")
	t.Setenv("EMBED_TIMEOUT", "5s")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")

	cfg := LoadConfig()
	assert.Equal(t, 800, cfg.ChunkSize)
	assert.Equal(t, 100, cfg.ChunkOverlap)
	assert.Equal(t, "gemini", cfg.EmbedProvider)
	assert.Equal(t, 5*time.Second, cfg.EmbedTimeout)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CorsOrigins)
}

func TestLoadConfig_BadIntFallsBack(t *testing.T) {
	t.Setenv("EMBED_DIM", "lots")
	assert.Equal(t, 1536, LoadConfig().EmbedDim)
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"overlap equals size", func(c *Config) { c.ChunkOverlap = c.ChunkSize }},
		{"overlap exceeds size", func(c *Config) { c.ChunkOverlap = c.ChunkSize + 1 }},
		{"negative overlap", func(c *Config) { c.ChunkOverlap = -1 }},
		{"zero chunk size", func(c *Config) { c.ChunkSize = 0 }},
		{"zero dimension", func(c *Config) { c.EmbedDim = 0 }},
		{"unknown provider", func(c *Config) { c.EmbedProvider = "cohere" }},
		{"unknown store", func(c *Config) { c.StoreBackend = "mongo" }},
		{"postgres without url", func(c *Config) { c.StoreBackend = "postgres"; c.DatabaseURL = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrConfiguration)
		})
	}
}

func TestHasCredential(t *testing.T) {
	assert.False(t, HasCredential(""))
	assert.False(t, HasCredential("   "))
	assert.False(t, HasCredential("api-key-here"))
	assert.True(t, HasCredential("sk-live"))
}
