package bus

import (
	"encoding/binary"
	"fmt"

	"github.com/ardnew/hashspi/pkg"
)

// Frame layout.
const (
	HeaderSize = 4
	MaxData    = TaskIDSize + MaxJobData
	MaxFrame   = HeaderSize + MaxData
)

// Frame is one logical bus transaction.
type Frame struct {
	Chip     uint8
	Register Register
	Read     bool
	Payload  []byte // Bytes written after the header
	RespLen  int    // Bytes expected back at the end of the frame
}

// ReadFrame returns a read of reg on chip with the register's response size.
func ReadFrame(chip uint8, reg Register) Frame {
	return Frame{Chip: chip, Register: reg, Read: true, RespLen: reg.ReadSize()}
}

// WriteFrame returns a write of payload to reg on chip.
func WriteFrame(chip uint8, reg Register, payload []byte) Frame {
	return Frame{Chip: chip, Register: reg, Payload: payload}
}

// DataLen returns the length of the data phase.
func (f *Frame) DataLen() int {
	return max(len(f.Payload), f.RespLen)
}

// Size returns the full transfer length in bytes.
func (f *Frame) Size() int {
	return HeaderSize + f.DataLen()
}

// RespOffset returns the offset of the response within the clocked-in bytes.
func (f *Frame) RespOffset() int {
	return f.Size() - f.RespLen
}

// Validate checks the frame against the register map and size limits.
func (f *Frame) Validate() error {
	if f.Size() > MaxFrame {
		return fmt.Errorf("%w: %s frame of %d bytes (max %d)", pkg.ErrOversize, f.Register, f.Size(), MaxFrame)
	}
	if f.Read && !f.Register.Readable() {
		return fmt.Errorf("%w: register %s is not readable", pkg.ErrInvalidParameter, f.Register)
	}
	if !f.Read && !f.Register.Writable() {
		return fmt.Errorf("%w: register %s is not writable", pkg.ErrInvalidParameter, f.Register)
	}
	return nil
}

// MarshalTo writes the frame into buf, zero-padding the data phase.
// Returns the number of bytes written, or 0 if buf is too small.
func (f *Frame) MarshalTo(buf []byte) int {
	size := f.Size()
	if len(buf) < size {
		return 0
	}
	reg := uint8(f.Register) &^ ReadFlag
	if f.Read {
		reg |= ReadFlag
	}
	buf[0] = f.Chip
	buf[1] = reg
	binary.LittleEndian.PutUint16(buf[2:4], uint16(f.DataLen()))
	n := copy(buf[HeaderSize:size], f.Payload)
	clear(buf[HeaderSize+n : size])
	return size
}

// ParseFrame decodes a frame header and data phase. For writes the payload
// aliases data. Returns false if data is shorter than the header or the
// length it declares.
func ParseFrame(data []byte, out *Frame) bool {
	if len(data) < HeaderSize {
		return false
	}
	n := int(binary.LittleEndian.Uint16(data[2:4]))
	if len(data) < HeaderSize+n {
		return false
	}
	out.Chip = data[0]
	out.Read = data[1]&ReadFlag != 0
	out.Register = Register(data[1] &^ ReadFlag)
	if out.Read {
		out.Payload = nil
		out.RespLen = n
	} else {
		out.Payload = data[HeaderSize : HeaderSize+n]
		out.RespLen = 0
	}
	return true
}

// EncodeJob writes a job-submit payload (task id followed by work data) into
// buf. Returns the payload length, or 0 if data is too large or buf too small.
func EncodeJob(buf []byte, taskID uint16, data []byte) int {
	if len(data) > MaxJobData || len(buf) < TaskIDSize+len(data) {
		return 0
	}
	binary.LittleEndian.PutUint16(buf[0:2], taskID)
	copy(buf[TaskIDSize:], data)
	return TaskIDSize + len(data)
}

// DecodeJob splits a job-submit payload into task id and work data.
func DecodeJob(payload []byte) (taskID uint16, data []byte, ok bool) {
	if len(payload) < TaskIDSize {
		return 0, nil, false
	}
	return binary.LittleEndian.Uint16(payload[0:2]), payload[TaskIDSize:], true
}
