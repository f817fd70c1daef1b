package bus

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/ardnew/hashspi/bus/hal"
	"github.com/ardnew/hashspi/pkg"
)

// ReadCoreEnable reads the core-enable bitmap of chip.
func ReadCoreEnable(ctx context.Context, t hal.Transport, chip uint8) (CoreMap, error) {
	var (
		buf [MaxFrame]byte
		m   CoreMap
	)
	f := ReadFrame(chip, RegCoreEnable)
	resp, _, err := Exchange(ctx, t, &f, buf[:])
	if err != nil {
		return m, err
	}
	if len(resp) < CoreMapSize {
		return m, fmt.Errorf("%w: core map of %d bytes", pkg.ErrShortTransfer, len(resp))
	}
	copy(m[:], resp)
	return m, nil
}

// WriteCoreEnable writes the core-enable bitmap of chip.
func WriteCoreEnable(ctx context.Context, t hal.Transport, chip uint8, m CoreMap) error {
	var buf [MaxFrame]byte
	f := WriteFrame(chip, RegCoreEnable, m[:])
	_, _, err := Exchange(ctx, t, &f, buf[:])
	return err
}

// WriteControl writes the control register of chip.
func WriteControl(ctx context.Context, t hal.Transport, chip uint8, bits uint8) error {
	var buf [MaxFrame]byte
	f := WriteFrame(chip, RegControl, []byte{bits})
	_, _, err := Exchange(ctx, t, &f, buf[:])
	return err
}

// WriteNonceRange writes the per-core nonce stride of chip.
func WriteNonceRange(ctx context.Context, t hal.Transport, chip uint8, stride uint32) error {
	var (
		buf     [MaxFrame]byte
		payload [NonceRangeSize]byte
	)
	binary.LittleEndian.PutUint32(payload[:], stride)
	f := WriteFrame(chip, RegNonceRange, payload[:])
	_, _, err := Exchange(ctx, t, &f, buf[:])
	return err
}

// InitChip brings a detected chip into a known state: reset, every
// available core enabled, nonce space split across the cores. It returns
// the number of enabled cores.
func InitChip(ctx context.Context, t hal.Transport, chip uint8) (int, error) {
	if err := WriteControl(ctx, t, chip, CtrlReset|CtrlFlushQueue); err != nil {
		return 0, fmt.Errorf("reset chip %d: %w", chip, err)
	}
	avail, err := ReadCoreEnable(ctx, t, chip)
	if err != nil {
		return 0, fmt.Errorf("read cores of chip %d: %w", chip, err)
	}
	cores := avail.Count()
	if cores == 0 {
		return 0, fmt.Errorf("%w: chip %d reports no cores", pkg.ErrNoChip, chip)
	}
	if err := WriteCoreEnable(ctx, t, chip, AllCores(cores)); err != nil {
		return 0, fmt.Errorf("enable cores of chip %d: %w", chip, err)
	}
	if err := WriteNonceRange(ctx, t, chip, NonceStride(cores)); err != nil {
		return 0, fmt.Errorf("nonce range of chip %d: %w", chip, err)
	}
	pkg.LogDebug(pkg.ComponentBus, "chip initialised", "chip", chip, "cores", cores)
	return cores, nil
}
