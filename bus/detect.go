package bus

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ardnew/hashspi/bus/hal"
	"github.com/ardnew/hashspi/pkg"
)

// DefaultDetectRetries is the number of signature reads attempted per chip.
const DefaultDetectRetries = 3

// Detect reads the signature of chip up to retries times.
//
// It returns nil once the chip answers with [Signature]. An all-zero answer
// means nothing is at that address and returns [pkg.ErrNoChip] at once.
// Any other answer, or a transport failure, is retried; when every attempt
// fails the last error is returned ([pkg.ErrSignature] for a mismatch).
func Detect(ctx context.Context, t hal.Transport, chip uint8, retries int) error {
	if retries < 1 {
		retries = 1
	}
	var (
		buf     [MaxFrame]byte
		lastErr error
	)
	f := ReadFrame(chip, RegSignature)
	for attempt := 1; attempt <= retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		resp, _, err := Exchange(ctx, t, &f, buf[:])
		if err != nil {
			lastErr = err
			pkg.LogDebug(pkg.ComponentBus, "signature read failed",
				"chip", chip,
				"attempt", attempt,
				"error", err)
			continue
		}
		if len(resp) > SignatureSize {
			resp = resp[:SignatureSize]
		}
		switch {
		case bytes.Equal(resp, Signature[:]):
			return nil
		case len(resp) == SignatureSize && isZero(resp):
			return fmt.Errorf("%w: chip %d", pkg.ErrNoChip, chip)
		default:
			lastErr = fmt.Errorf("%w: chip %d answered % X", pkg.ErrSignature, chip, resp)
			pkg.LogDebug(pkg.ComponentBus, "signature mismatch",
				"chip", chip,
				"attempt", attempt,
				"signature", fmt.Sprintf("% X", resp))
		}
	}
	return lastErr
}

// Probe runs Detect for chips 0..chips-1 and returns which answered. Chips
// outside enable are skipped and reported absent.
func Probe(ctx context.Context, t hal.Transport, chips int, enable func(chip int) bool, retries int) []bool {
	present := make([]bool, chips)
	for chip := 0; chip < chips; chip++ {
		if enable != nil && !enable(chip) {
			continue
		}
		err := Detect(ctx, t, uint8(chip), retries)
		switch {
		case err == nil:
			present[chip] = true
			pkg.LogInfo(pkg.ComponentBus, "chip detected", "chip", chip)
		case ctx.Err() != nil:
			return present
		default:
			pkg.LogInfo(pkg.ComponentBus, "chip absent", "chip", chip, "error", err)
		}
	}
	return present
}

func isZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
