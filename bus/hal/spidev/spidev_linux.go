//go:build linux && (arm || arm64 || amd64 || 386 || riscv64)

package spidev

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/ardnew/hashspi/bus/hal"
	"github.com/ardnew/hashspi/pkg"
)

// transfer matches the kernel's struct spi_ioc_transfer.
type transfer struct {
	txBuf       uint64
	rxBuf       uint64
	length      uint32
	speedHz     uint32
	delayUsecs  uint16
	bitsPerWord uint8
	csChange    uint8
	txNbits     uint8
	rxNbits     uint8
	wordDelay   uint8
	pad         uint8
}

// Bus is a spidev-backed transport.
type Bus struct {
	cfg hal.Config

	mu     sync.Mutex
	fd     int
	closed bool
}

var _ hal.Transport = (*Bus)(nil)

// Open opens and configures the spidev device named in cfg.
func Open(cfg hal.Config) (*Bus, error) {
	fd, err := unix.Open(cfg.Device, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Device, err)
	}

	mode := cfg.Mode
	bits := cfg.Bits
	speed := cfg.SpeedHz
	if err := ioctlRaw(fd, ioctlWrMode, uintptr(unsafe.Pointer(&mode))); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("set mode %d: %w", mode, err)
	}
	if err := ioctlRaw(fd, ioctlWrBits, uintptr(unsafe.Pointer(&bits))); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("set bits per word %d: %w", bits, err)
	}
	if err := ioctlRaw(fd, ioctlWrSpeedHz, uintptr(unsafe.Pointer(&speed))); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("set speed %d Hz: %w", speed, err)
	}

	pkg.LogInfo(pkg.ComponentHAL, "spidev opened",
		"device", cfg.Device,
		"speed", speed,
		"mode", mode)
	return &Bus{cfg: cfg, fd: fd}, nil
}

// Transact implements hal.Transport. The receive buffer is the same length
// as tx; rxLen larger than that is clocked with zero padding.
func (b *Bus) Transact(ctx context.Context, tx []byte, rxLen int) (int, []byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}
	size := max(len(tx), rxLen)
	if size == 0 {
		return 0, nil, nil
	}

	out := tx
	if len(out) < size {
		out = make([]byte, size)
		copy(out, tx)
	}
	rx := make([]byte, size)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0, nil, pkg.ErrClosed
	}

	xfer := transfer{
		txBuf:       uint64(uintptr(unsafe.Pointer(&out[0]))),
		rxBuf:       uint64(uintptr(unsafe.Pointer(&rx[0]))),
		length:      uint32(size),
		speedHz:     b.cfg.SpeedHz,
		bitsPerWord: b.cfg.Bits,
	}
	n, err := ioctlRetval(b.fd, ioctlMessage1, uintptr(unsafe.Pointer(&xfer)))
	runtime.KeepAlive(out)
	runtime.KeepAlive(rx)
	if err != nil {
		return 0, nil, err
	}
	return n, rx, nil
}

// Close implements hal.Transport.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return unix.Close(b.fd)
}

// ioctlRaw performs a raw ioctl syscall.
func ioctlRaw(fd int, req uintptr, arg uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, arg)
	if errno != 0 {
		return errno
	}
	return nil
}

// ioctlRetval performs an ioctl syscall and returns the result value.
func ioctlRetval(fd int, req uintptr, arg uintptr) (int, error) {
	r, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, arg)
	if errno != 0 {
		return int(r), errno
	}
	return int(r), nil
}
