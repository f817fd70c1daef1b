package hal

import (
	"context"
)

// Transport performs full-duplex transactions on the chip bus.
type Transport interface {
	// Transact clocks tx out on the bus and returns the number of bytes
	// the transport acknowledged together with the bytes clocked in.
	// rxLen is the number of bytes the caller expects back; rx may be
	// shorter or longer than that and the caller decides what to keep.
	// A negative controller status is reported as a non-nil error.
	// Transact blocks until the transaction completes.
	Transact(ctx context.Context, tx []byte, rxLen int) (n int, rx []byte, err error)

	// Close releases the underlying device. The transport must not be
	// used afterwards.
	Close() error
}

// Config describes the link parameters a transport is opened with.
type Config struct {
	Device  string // Device node, e.g. /dev/spidev0.0
	SpeedHz uint32 // Clock rate
	Mode    uint8  // Clock polarity/phase
	Bits    uint8  // Bits per word
}

// DefaultConfig returns the link parameters used by the reference board.
func DefaultConfig() Config {
	return Config{
		Device:  "/dev/spidev0.0",
		SpeedHz: 8_000_000,
		Mode:    0,
		Bits:    8,
	}
}
