package dispatcher

import (
	"time"
)

// Config controls sweep cadence, batch sizes and the claim lease.
type Config struct {
	RunInterval  time.Duration
	BatchSize    int
	ClaimLease   time.Duration
	MaxAttempts  int
	SweepTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		RunInterval:  24 * time.Hour,
		BatchSize:    50,
		ClaimLease:   5 * time.Minute,
		MaxAttempts:  30,
		SweepTimeout: 10 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.ClaimLease <= 0 {
		c.ClaimLease = defaults.ClaimLease
	}
	if c.SweepTimeout <= 0 {
		c.SweepTimeout = defaults.SweepTimeout
	}
	// MaxAttempts 0 means retry forever; negative values are treated
	// the same way.
	if c.MaxAttempts < 0 {
		c.MaxAttempts = 0
	}
	return c
}
