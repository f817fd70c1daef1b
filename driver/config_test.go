package driver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ardnew/hashspi/pkg"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 2, cfg.LowWater)
	assert.Equal(t, 4, cfg.HighWater)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		ok     bool
	}{
		{"default", func(*Config) {}, true},
		{"no chips", func(c *Config) { c.Chips = 0 }, false},
		{"too many chips", func(c *Config) { c.Chips = 257 }, false},
		{"disabled out of range", func(c *Config) { c.Disabled = []int{c.Chips} }, false},
		{"disabled in range", func(c *Config) { c.Disabled = []int{0, 3} }, true},
		{"zero low water", func(c *Config) { c.LowWater = 0 }, false},
		{"high below low", func(c *Config) { c.HighWater = 1 }, false},
		{"high equals low", func(c *Config) { c.HighWater = c.LowWater }, true},
		{"negative interval", func(c *Config) { c.RequestInterval = -time.Millisecond }, false},
		{"zero interval", func(c *Config) { c.RequestInterval = 0 }, true},
		{"zero tx idle", func(c *Config) { c.TxIdle = 0 }, false},
		{"zero poll timeout", func(c *Config) { c.PollTimeout = 0 }, false},
		{"zero status interval", func(c *Config) { c.StatusInterval = 0 }, false},
		{"negative jitter", func(c *Config) { c.StatusJitter = -1 }, false},
		{"zero retries", func(c *Config) { c.DetectRetries = 0 }, false},
		{"zero batch", func(c *Config) { c.PoolBatch = 0 }, false},
		{"negative limit", func(c *Config) { c.JobLimit = -1 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, pkg.ErrInvalidParameter)
			}
		})
	}
}

func TestConfig_Enabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Chips = 4
	cfg.Disabled = []int{2}

	assert.True(t, cfg.Enabled(0))
	assert.True(t, cfg.Enabled(3))
	assert.False(t, cfg.Enabled(2))
	assert.False(t, cfg.Enabled(4))
	assert.False(t, cfg.Enabled(-1))
}
