package driver

import (
	"fmt"
	"slices"
	"time"

	"github.com/ardnew/hashspi/bus"
	"github.com/ardnew/hashspi/pkg"
)

// Default configuration values.
const (
	DefaultChips           = 32
	DefaultLowWater        = 2
	DefaultHighWater       = 4
	DefaultRequestInterval = 2 * time.Millisecond
	DefaultTxIdle          = time.Millisecond
	DefaultPollHit         = time.Millisecond
	DefaultPollIdle        = 10 * time.Millisecond
	DefaultPollTimeout     = time.Second
	DefaultReconcileIdle   = time.Millisecond
	DefaultStatusInterval  = time.Second
	DefaultStatusJitter    = 250 * time.Millisecond
	DefaultPoolBatch       = 64
)

// Config is the read-only startup configuration of a Driver.
type Config struct {
	Chips     int   // Chip addresses probed on the chain
	Disabled  []int // Chips never probed or scheduled
	LowWater  int   // Phase 1 fill target per chip
	HighWater int   // Phase 2 fill target per chip

	RequestInterval time.Duration // Minimum gap between job submits
	TxIdle          time.Duration // Transmitter sleep when nothing is due
	PollHit         time.Duration // Poller delay after a pass that found results
	PollIdle        time.Duration // Poller delay after an empty pass
	PollTimeout     time.Duration // Longest wait for one result read
	ReconcileIdle   time.Duration // Reconciler sleep when the reply queue is empty
	StatusInterval  time.Duration // Per-chip status read period
	StatusJitter    time.Duration // Random extra delay added to StatusInterval

	DetectRetries int  // Signature reads per chip
	SkipInit      bool // Do not run the chip initialisation sequence

	PoolBatch    int // Nodes added per pool growth
	JobLimit     int // Job pool cap (0 = unbounded)
	RequestLimit int // Request pool cap (0 = unbounded)
	ReplyLimit   int // Reply pool cap (0 = unbounded)
	PendingDepth int // Jobs pulled ahead into pending (0 = active chips x HighWater)
}

// DefaultConfig returns the configuration for the reference board.
func DefaultConfig() Config {
	return Config{
		Chips:           DefaultChips,
		LowWater:        DefaultLowWater,
		HighWater:       DefaultHighWater,
		RequestInterval: DefaultRequestInterval,
		TxIdle:          DefaultTxIdle,
		PollHit:         DefaultPollHit,
		PollIdle:        DefaultPollIdle,
		PollTimeout:     DefaultPollTimeout,
		ReconcileIdle:   DefaultReconcileIdle,
		StatusInterval:  DefaultStatusInterval,
		StatusJitter:    DefaultStatusJitter,
		DetectRetries:   bus.DefaultDetectRetries,
		PoolBatch:       DefaultPoolBatch,
	}
}

// Enabled reports whether chip is in the enable mask.
func (c *Config) Enabled(chip int) bool {
	return chip >= 0 && chip < c.Chips && !slices.Contains(c.Disabled, chip)
}

// Validate checks the configuration for values the driver cannot run with.
func (c *Config) Validate() error {
	if c.Chips < 1 || c.Chips > 256 {
		return fmt.Errorf("%w: chips must be 1..256, got %d", pkg.ErrInvalidParameter, c.Chips)
	}
	for _, chip := range c.Disabled {
		if chip < 0 || chip >= c.Chips {
			return fmt.Errorf("%w: disabled chip %d out of range", pkg.ErrInvalidParameter, chip)
		}
	}
	if c.LowWater < 1 {
		return fmt.Errorf("%w: low water must be >= 1, got %d", pkg.ErrInvalidParameter, c.LowWater)
	}
	if c.HighWater < c.LowWater {
		return fmt.Errorf("%w: high water %d below low water %d", pkg.ErrInvalidParameter, c.HighWater, c.LowWater)
	}
	durations := []struct {
		name string
		d    time.Duration
	}{
		{"request interval", c.RequestInterval},
		{"status jitter", c.StatusJitter},
	}
	for _, d := range durations {
		if d.d < 0 {
			return fmt.Errorf("%w: %s must not be negative", pkg.ErrInvalidParameter, d.name)
		}
	}
	positive := []struct {
		name string
		d    time.Duration
	}{
		{"tx idle", c.TxIdle},
		{"poll hit", c.PollHit},
		{"poll idle", c.PollIdle},
		{"poll timeout", c.PollTimeout},
		{"reconcile idle", c.ReconcileIdle},
		{"status interval", c.StatusInterval},
	}
	for _, d := range positive {
		if d.d <= 0 {
			return fmt.Errorf("%w: %s must be positive", pkg.ErrInvalidParameter, d.name)
		}
	}
	if c.DetectRetries < 1 {
		return fmt.Errorf("%w: detect retries must be >= 1", pkg.ErrInvalidParameter)
	}
	if c.PoolBatch < 1 {
		return fmt.Errorf("%w: pool batch must be >= 1", pkg.ErrInvalidParameter)
	}
	if c.JobLimit < 0 || c.RequestLimit < 0 || c.ReplyLimit < 0 || c.PendingDepth < 0 {
		return fmt.Errorf("%w: limits must not be negative", pkg.ErrInvalidParameter)
	}
	return nil
}
