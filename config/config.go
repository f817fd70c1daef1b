package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ardnew/hashspi/bus/hal"
	"github.com/ardnew/hashspi/bus/hal/sim"
	"github.com/ardnew/hashspi/driver"
	"github.com/ardnew/hashspi/pkg"
	"github.com/ardnew/hashspi/supply"
)

// Bus kinds.
const (
	BusSim    = "sim"
	BusSpidev = "spidev"
)

// Supply kinds.
const (
	SupplyMemory = "memory"
	SupplyRedis  = "redis"
)

// Scan loop defaults.
const (
	DefaultFillInterval  = 5 * time.Millisecond
	DefaultStatsInterval = 5 * time.Second
)

// Config is the top-level hashspi.yml configuration.
type Config struct {
	Driver DriverConfig `yaml:"driver"`
	Bus    BusConfig    `yaml:"bus"`
	Supply SupplyConfig `yaml:"supply"`
	Log    LogConfig    `yaml:"log"`
}

// DriverConfig mirrors driver.Config plus the scan loop cadence.
type DriverConfig struct {
	Chips     int   `yaml:"chips"`
	Disabled  []int `yaml:"disabled,omitempty"`
	LowWater  int   `yaml:"low_water"`
	HighWater int   `yaml:"high_water"`

	RequestInterval time.Duration `yaml:"request_interval"`
	TxIdle          time.Duration `yaml:"tx_idle"`
	PollHit         time.Duration `yaml:"poll_hit"`
	PollIdle        time.Duration `yaml:"poll_idle"`
	PollTimeout     time.Duration `yaml:"poll_timeout"`
	ReconcileIdle   time.Duration `yaml:"reconcile_idle"`
	StatusInterval  time.Duration `yaml:"status_interval"`
	StatusJitter    time.Duration `yaml:"status_jitter"`

	DetectRetries int  `yaml:"detect_retries"`
	SkipInit      bool `yaml:"skip_init,omitempty"`

	PoolBatch    int `yaml:"pool_batch"`
	JobLimit     int `yaml:"job_limit,omitempty"`
	RequestLimit int `yaml:"request_limit,omitempty"`
	ReplyLimit   int `yaml:"reply_limit,omitempty"`
	PendingDepth int `yaml:"pending_depth,omitempty"`

	FillInterval  time.Duration `yaml:"fill_interval"`  // How often the scan loop calls FillQueues
	StatsInterval time.Duration `yaml:"stats_interval"` // How often the scan loop reports
}

// BusConfig selects and parameterises the bus transport.
type BusConfig struct {
	Kind    string    `yaml:"kind"`
	Device  string    `yaml:"device"`
	SpeedHz uint32    `yaml:"speed_hz"`
	Mode    uint8     `yaml:"mode"`
	Bits    uint8     `yaml:"bits"`
	Sim     SimConfig `yaml:"sim"`
}

// SimConfig parameterises the simulated chain. Its chip count follows
// driver.chips.
type SimConfig struct {
	Cores        int `yaml:"cores"`
	QueueDepth   int `yaml:"queue_depth"`
	JobTicks     int `yaml:"job_ticks"`
	NoncesPerJob int `yaml:"nonces_per_job"`
	BadEvery     int `yaml:"bad_every,omitempty"`
}

// SupplyConfig selects where work comes from and results go.
type SupplyConfig struct {
	Kind     string      `yaml:"kind"`
	WorkSize int         `yaml:"work_size"`       // Generated work size (memory)
	Limit    uint64      `yaml:"limit,omitempty"` // Work units to generate (memory, 0 = unlimited)
	Seed     uint64      `yaml:"seed,omitempty"`
	Redis    RedisConfig `yaml:"redis"`
}

// RedisConfig locates the Redis server.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	d := driver.DefaultConfig()
	h := hal.DefaultConfig()
	s := sim.DefaultConfig()
	return &Config{
		Driver: DriverConfig{
			Chips:           s.Chips,
			LowWater:        d.LowWater,
			HighWater:       d.HighWater,
			RequestInterval: d.RequestInterval,
			TxIdle:          d.TxIdle,
			PollHit:         d.PollHit,
			PollIdle:        d.PollIdle,
			PollTimeout:     d.PollTimeout,
			ReconcileIdle:   d.ReconcileIdle,
			StatusInterval:  d.StatusInterval,
			StatusJitter:    d.StatusJitter,
			DetectRetries:   d.DetectRetries,
			PoolBatch:       d.PoolBatch,
			FillInterval:    DefaultFillInterval,
			StatsInterval:   DefaultStatsInterval,
		},
		Bus: BusConfig{
			Kind:    BusSim,
			Device:  h.Device,
			SpeedHz: h.SpeedHz,
			Mode:    h.Mode,
			Bits:    h.Bits,
			Sim: SimConfig{
				Cores:        s.Cores,
				QueueDepth:   s.QueueDepth,
				JobTicks:     s.JobTicks,
				NoncesPerJob: s.NoncesPerJob,
			},
		},
		Supply: SupplyConfig{
			Kind:     SupplyMemory,
			WorkSize: supply.DefaultWorkSize,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: supply.DefaultPrefix,
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	pkg.LogDebug(pkg.ComponentConfig, "configuration loaded",
		"chips", cfg.Driver.Chips,
		"bus", cfg.Bus.Kind,
		"supply", cfg.Supply.Kind)
	return cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	d := c.ToDriver()
	if err := d.Validate(); err != nil {
		return fmt.Errorf("driver: %w", err)
	}
	if c.Driver.FillInterval <= 0 || c.Driver.StatsInterval <= 0 {
		return fmt.Errorf("driver: %w: fill and stats intervals must be positive", pkg.ErrInvalidParameter)
	}

	switch c.Bus.Kind {
	case BusSim:
		if c.Bus.Sim.Cores < 1 || c.Bus.Sim.NoncesPerJob < 0 || c.Bus.Sim.BadEvery < 0 {
			return fmt.Errorf("bus: %w: invalid sim parameters", pkg.ErrInvalidParameter)
		}
	case BusSpidev:
		if c.Bus.Device == "" {
			return fmt.Errorf("bus: %w: device is required", pkg.ErrInvalidParameter)
		}
		if c.Bus.SpeedHz == 0 {
			return fmt.Errorf("bus: %w: speed_hz must be positive", pkg.ErrInvalidParameter)
		}
	default:
		return fmt.Errorf("bus: %w: unknown kind '%s' (valid: %s, %s)", pkg.ErrInvalidParameter, c.Bus.Kind, BusSim, BusSpidev)
	}

	switch c.Supply.Kind {
	case SupplyMemory:
	case SupplyRedis:
		if c.Supply.Redis.Addr == "" || c.Supply.Redis.Prefix == "" {
			return fmt.Errorf("supply: %w: redis addr and prefix are required", pkg.ErrInvalidParameter)
		}
	default:
		return fmt.Errorf("supply: %w: unknown kind '%s' (valid: %s, %s)", pkg.ErrInvalidParameter, c.Supply.Kind, SupplyMemory, SupplyRedis)
	}

	if _, err := pkg.ParseLogLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if _, err := pkg.ParseLogFormat(c.Log.Format); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}

// ToDriver returns the driver section as a driver.Config.
func (c *Config) ToDriver() driver.Config {
	d := c.Driver
	return driver.Config{
		Chips:           d.Chips,
		Disabled:        d.Disabled,
		LowWater:        d.LowWater,
		HighWater:       d.HighWater,
		RequestInterval: d.RequestInterval,
		TxIdle:          d.TxIdle,
		PollHit:         d.PollHit,
		PollIdle:        d.PollIdle,
		PollTimeout:     d.PollTimeout,
		ReconcileIdle:   d.ReconcileIdle,
		StatusInterval:  d.StatusInterval,
		StatusJitter:    d.StatusJitter,
		DetectRetries:   d.DetectRetries,
		SkipInit:        d.SkipInit,
		PoolBatch:       d.PoolBatch,
		JobLimit:        d.JobLimit,
		RequestLimit:    d.RequestLimit,
		ReplyLimit:      d.ReplyLimit,
		PendingDepth:    d.PendingDepth,
	}
}

// ToHAL returns the link parameters of the bus section.
func (c *Config) ToHAL() hal.Config {
	return hal.Config{
		Device:  c.Bus.Device,
		SpeedHz: c.Bus.SpeedHz,
		Mode:    c.Bus.Mode,
		Bits:    c.Bus.Bits,
	}
}

// ToSim returns the simulated chain parameters.
func (c *Config) ToSim() sim.Config {
	return sim.Config{
		Chips:        c.Driver.Chips,
		Cores:        c.Bus.Sim.Cores,
		QueueDepth:   c.Bus.Sim.QueueDepth,
		JobTicks:     c.Bus.Sim.JobTicks,
		NoncesPerJob: c.Bus.Sim.NoncesPerJob,
		BadEvery:     c.Bus.Sim.BadEvery,
	}
}
