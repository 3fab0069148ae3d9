package relay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 4096, cfg.ChunkSize)
	assert.Equal(t, 100, cfg.QueueCapacity)
	assert.Equal(t, 10, cfg.MinFillBeforeStart)
	assert.Equal(t, 15*time.Second, cfg.StallWindow())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero chunk size", func(c *Config) { c.ChunkSize = 0 }},
		{"zero capacity", func(c *Config) { c.QueueCapacity = 0 }},
		{"warm-up above capacity", func(c *Config) { c.MinFillBeforeStart = c.QueueCapacity + 1 }},
		{"zero poll timeout", func(c *Config) { c.PollTimeout = 0 }},
		{"zero stall cutoff", func(c *Config) { c.StallCutoff = 0 }},
		{"zero warm-up interval", func(c *Config) { c.WarmupInterval = 0 }},
		{"negative progress", func(c *Config) { c.ProgressEvery = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
