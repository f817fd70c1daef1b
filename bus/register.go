package bus

import "fmt"

// Register addresses a chip register. Bit 7 of the encoded byte is the
// read flag and is never part of the register number.
type Register uint8

// Chip registers.
const (
	RegSignature  Register = 0x00 // Read: fixed chip signature
	RegStatus     Register = 0x01 // Read: temperature, queue depth, ready results
	RegCoreEnable Register = 0x04 // Read/write: per-core enable bitmap
	RegNonceRange Register = 0x08 // Write: nonce stride between cores
	RegControl    Register = 0x0A // Write: reset/flush control bits
	RegJobSubmit  Register = 0x20 // Write: queue one job
	RegResult     Register = 0x30 // Read: harvested result records
)

// ReadFlag marks a read in the encoded register byte.
const ReadFlag = 0x80

// Response sizes of the readable registers.
const (
	SignatureSize  = 4
	StatusSize     = 8
	CoreMapSize    = 16
	ResultSize     = 8                        // One result record
	ResultBatch    = 4                        // Records per result read
	ResultReadSize = ResultSize * ResultBatch // Bytes per result read
)

// Write payload sizes.
const (
	NonceRangeSize = 4
	ControlSize    = 1
	TaskIDSize     = 2
	MaxJobData     = 64 // Work bytes following the task id
)

// Control register bits.
const (
	CtrlReset      = 0x01 // Reset core state and drop results
	CtrlFlushQueue = 0x02 // Drop queued jobs
)

// MaxCores is the largest core count the core map can describe.
const MaxCores = CoreMapSize * 8

// Signature is the value every chip answers to a signature read.
var Signature = [SignatureSize]byte{0x44, 0x8A, 0xAC, 0xB1}

// String returns the register name.
func (r Register) String() string {
	switch r {
	case RegSignature:
		return "signature"
	case RegStatus:
		return "status"
	case RegCoreEnable:
		return "core-enable"
	case RegNonceRange:
		return "nonce-range"
	case RegControl:
		return "control"
	case RegJobSubmit:
		return "job-submit"
	case RegResult:
		return "result"
	default:
		return fmt.Sprintf("reg(0x%02X)", uint8(r))
	}
}

// Readable reports whether the register may be read.
func (r Register) Readable() bool {
	switch r {
	case RegSignature, RegStatus, RegCoreEnable, RegResult:
		return true
	}
	return false
}

// Writable reports whether the register may be written.
func (r Register) Writable() bool {
	switch r {
	case RegCoreEnable, RegNonceRange, RegControl, RegJobSubmit:
		return true
	}
	return false
}

// ReadSize returns the response size of a readable register, or 0.
func (r Register) ReadSize() int {
	switch r {
	case RegSignature:
		return SignatureSize
	case RegStatus:
		return StatusSize
	case RegCoreEnable:
		return CoreMapSize
	case RegResult:
		return ResultReadSize
	default:
		return 0
	}
}
