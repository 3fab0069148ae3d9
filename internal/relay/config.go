package relay

import (
	"fmt"
	"time"
)

// Config holds the relay knobs. Only the ratio between PollTimeout and
// StallCutoff matters for stall detection; absolute values can be scaled.
type Config struct {
	ChunkSize          int           `yaml:"chunk_size_bytes"`
	QueueCapacity      int           `yaml:"queue_capacity"`
	MinFillBeforeStart int           `yaml:"min_fill_before_start"`
	PollTimeout        time.Duration `yaml:"poll_timeout"`
	StallCutoff        int           `yaml:"stall_cutoff_count"`
	WarmupInterval     time.Duration `yaml:"warmup_poll_interval"`
	ProgressEvery      int           `yaml:"progress_every"`
}

// DefaultConfig returns the values used for live radio: 4KB chunks,
// 100 chunks of buffer, 10 chunks of warm-up and a 15s stall window.
func DefaultConfig() Config {
	return Config{
		ChunkSize:          4 * 1024,
		QueueCapacity:      100,
		MinFillBeforeStart: 10,
		PollTimeout:        100 * time.Millisecond,
		StallCutoff:        150,
		WarmupInterval:     100 * time.Millisecond,
		ProgressEvery:      100,
	}
}

// StallWindow is the silence after which the pump gives up.
func (c Config) StallWindow() time.Duration {
	return c.PollTimeout * time.Duration(c.StallCutoff)
}

// Validate checks the relay configuration
func (c Config) Validate() error {
	if c.ChunkSize < 1 {
		return fmt.Errorf("chunk_size_bytes must be positive, got %d", c.ChunkSize)
	}
	if c.QueueCapacity < 1 {
		return fmt.Errorf("queue_capacity must be positive, got %d", c.QueueCapacity)
	}
	if c.MinFillBeforeStart < 0 || c.MinFillBeforeStart > c.QueueCapacity {
		return fmt.Errorf("min_fill_before_start must be between 0 and queue_capacity (%d), got %d",
			c.QueueCapacity, c.MinFillBeforeStart)
	}
	if c.PollTimeout <= 0 {
		return fmt.Errorf("poll_timeout must be positive, got %s", c.PollTimeout)
	}
	if c.StallCutoff < 1 {
		return fmt.Errorf("stall_cutoff_count must be at least 1, got %d", c.StallCutoff)
	}
	if c.WarmupInterval <= 0 {
		return fmt.Errorf("warmup_poll_interval must be positive, got %s", c.WarmupInterval)
	}
	if c.ProgressEvery < 0 {
		return fmt.Errorf("progress_every cannot be negative, got %d", c.ProgressEvery)
	}
	return nil
}
