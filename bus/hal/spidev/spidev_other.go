//go:build !linux || !(arm || arm64 || amd64 || 386 || riscv64)

package spidev

import (
	"context"
	"fmt"

	"github.com/ardnew/hashspi/bus/hal"
	"github.com/ardnew/hashspi/pkg"
)

// Bus is unavailable on this platform.
type Bus struct{}

var _ hal.Transport = (*Bus)(nil)

// Open always fails on this platform.
func Open(cfg hal.Config) (*Bus, error) {
	return nil, fmt.Errorf("%w: spidev %s", pkg.ErrNotSupported, cfg.Device)
}

// Transact implements hal.Transport.
func (b *Bus) Transact(ctx context.Context, tx []byte, rxLen int) (int, []byte, error) {
	return 0, nil, pkg.ErrNotSupported
}

// Close implements hal.Transport.
func (b *Bus) Close() error {
	return nil
}
