package pkg

import "errors"

// Bus and driver errors.
var (
	// ErrShortTransfer indicates fewer bytes were clocked than requested.
	ErrShortTransfer = errors.New("short transfer")

	// ErrTransport indicates the transport reported a negative status.
	ErrTransport = errors.New("transport error")

	// ErrOversize indicates a request larger than the bus frame allows.
	ErrOversize = errors.New("request exceeds maximum frame size")

	// ErrNoChip indicates no chip answered at the address.
	ErrNoChip = errors.New("chip not present")

	// ErrSignature indicates a chip answered with the wrong signature.
	ErrSignature = errors.New("chip signature mismatch")

	// ErrPoolExhausted indicates a capped pool has no free nodes left.
	ErrPoolExhausted = errors.New("pool exhausted")

	// ErrAlreadyRunning indicates the driver is already running.
	ErrAlreadyRunning = errors.New("already running")

	// ErrNotRunning indicates the driver is not running.
	ErrNotRunning = errors.New("not running")

	// ErrInvalidParameter indicates an invalid parameter was provided.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrClosed indicates use of a closed transport or collaborator.
	ErrClosed = errors.New("closed")

	// ErrNotSupported indicates an unsupported platform or feature.
	ErrNotSupported = errors.New("not supported")
)

// TransferStatus represents the outcome of one bus transaction.
type TransferStatus int

// Transfer status values.
const (
	TransferStatusOK       TransferStatus = iota // All bytes clocked
	TransferStatusShort                          // Fewer bytes clocked than requested
	TransferStatusError                          // Transport returned an error
	TransferStatusOversize                       // Rejected before reaching the bus
)

// String returns a string representation of the transfer status.
func (s TransferStatus) String() string {
	switch s {
	case TransferStatusOK:
		return "ok"
	case TransferStatusShort:
		return "short"
	case TransferStatusError:
		return "error"
	case TransferStatusOversize:
		return "oversize"
	default:
		return "unknown"
	}
}

// Error returns the corresponding error for the transfer status.
func (s TransferStatus) Error() error {
	switch s {
	case TransferStatusOK:
		return nil
	case TransferStatusShort:
		return ErrShortTransfer
	case TransferStatusOversize:
		return ErrOversize
	default:
		return ErrTransport
	}
}
