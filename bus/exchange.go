package bus

import (
	"context"
	"errors"
	"fmt"

	"github.com/ardnew/hashspi/bus/hal"
	"github.com/ardnew/hashspi/pkg"
)

// Exchange performs one frame on the transport using buf as the transmit
// buffer (buf must hold MaxFrame bytes). It returns the response region of
// the clocked-in bytes, which may be shorter or longer than f.RespLen when
// the transport returns fewer or more bytes than asked for.
//
// A transport error is wrapped with [pkg.ErrTransport]; fewer bytes
// acknowledged than the frame size is [pkg.ErrShortTransfer]. Frames larger
// than MaxFrame are rejected with [pkg.ErrOversize], and access against the
// register's direction with [pkg.ErrInvalidParameter], before touching the
// bus.
func Exchange(ctx context.Context, t hal.Transport, f *Frame, buf []byte) ([]byte, pkg.TransferStatus, error) {
	if err := f.Validate(); err != nil {
		if errors.Is(err, pkg.ErrOversize) {
			return nil, pkg.TransferStatusOversize, err
		}
		return nil, pkg.TransferStatusError, err
	}
	size := f.MarshalTo(buf)
	if size == 0 {
		return nil, pkg.TransferStatusOversize, fmt.Errorf("%w: buffer of %d bytes", pkg.ErrOversize, len(buf))
	}

	n, rx, err := t.Transact(ctx, buf[:size], size)
	if err != nil {
		return nil, pkg.TransferStatusError, fmt.Errorf("%w: chip %d %s: %v", pkg.ErrTransport, f.Chip, f.Register, err)
	}
	if n < size {
		return nil, pkg.TransferStatusShort, fmt.Errorf("%w: chip %d %s: %d of %d bytes", pkg.ErrShortTransfer, f.Chip, f.Register, n, size)
	}

	off := f.RespOffset()
	if off > len(rx) {
		off = len(rx)
	}
	return rx[off:], pkg.TransferStatusOK, nil
}
