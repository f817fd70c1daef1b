package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"

	"github.com/ardnew/hashspi/bus/hal"
	"github.com/ardnew/hashspi/bus/hal/sim"
	"github.com/ardnew/hashspi/bus/hal/spidev"
	"github.com/ardnew/hashspi/config"
	"github.com/ardnew/hashspi/driver"
	"github.com/ardnew/hashspi/pkg"
	"github.com/ardnew/hashspi/supply"
)

// workSupply is what the run command needs from a supply backend.
type workSupply interface {
	driver.WorkSource
	supply.Sink
	Counters() supply.Counters
}

// openBus opens the transport named by the bus section together with the
// nonce checker that matches it.
func openBus(c *config.Config) (hal.Transport, supply.Checker, error) {
	switch c.Bus.Kind {
	case config.BusSim:
		s := c.ToSim()
		return sim.New(s), sim.Checker{NoncesPerJob: s.NoncesPerJob}, nil
	case config.BusSpidev:
		b, err := spidev.Open(c.ToHAL())
		if err != nil {
			return nil, nil, err
		}
		// Real chips produce nonces only the result consumer can verify
		pkg.LogWarn(pkg.ComponentDriver, "nonces are forwarded unchecked", "device", c.Bus.Device)
		return b, supply.CheckerFunc(func([]byte, uint32) bool { return true }), nil
	default:
		return nil, nil, fmt.Errorf("%w: bus kind %q", pkg.ErrInvalidParameter, c.Bus.Kind)
	}
}

// openSupply opens the supply backend. The returned closer releases it.
func openSupply(ctx context.Context, c *config.Config) (workSupply, io.Closer, error) {
	switch c.Supply.Kind {
	case config.SupplyMemory:
		m := supply.NewMemory(c.Supply.WorkSize, c.Supply.Limit, c.Supply.Seed)
		return m, closerFunc(func() error { return nil }), nil
	case config.SupplyRedis:
		r, err := openRedis(ctx, c)
		if err != nil {
			return nil, nil, err
		}
		return r, r, nil
	default:
		return nil, nil, fmt.Errorf("%w: supply kind %q", pkg.ErrInvalidParameter, c.Supply.Kind)
	}
}

// openRedis connects to the configured Redis server and checks it answers.
func openRedis(ctx context.Context, c *config.Config) (*supply.Redis, error) {
	rc := c.Supply.Redis
	r, err := supply.NewRedis(&redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	}, rc.Prefix)
	if err != nil {
		return nil, err
	}
	if err := r.Ping(ctx); err != nil {
		r.Close()
		return nil, fmt.Errorf("redis %s: %w", rc.Addr, err)
	}
	return r, nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
