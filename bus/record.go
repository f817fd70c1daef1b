package bus

import (
	"encoding/binary"
	"math/bits"
)

// Result flag bits.
const (
	ResultNoNonce = 0x01 // Core finished the job without a nonce
)

// Result is one harvested result record:
//
//	[core][flags][task lo][task hi][nonce (LE, 4 bytes)]
//
// The first two bytes are the record's status bytes.
type Result struct {
	Core   uint8
	Flags  uint8
	TaskID uint16
	Nonce  uint32
}

// NoNonce reports whether the record closes a job without a nonce.
func (r *Result) NoNonce() bool {
	return r.Flags&ResultNoNonce != 0
}

// Empty reports whether both status bytes are zero. The chip returns this
// pattern when no result is pending; a genuine nonce from core 0 with no
// flags set looks exactly the same and is treated as empty too.
func (r *Result) Empty() bool {
	return r.Core == 0 && r.Flags == 0
}

// ParseResult decodes one result record. Returns false if data is too short.
func ParseResult(data []byte, out *Result) bool {
	if len(data) < ResultSize {
		return false
	}
	out.Core = data[0]
	out.Flags = data[1]
	out.TaskID = binary.LittleEndian.Uint16(data[2:4])
	out.Nonce = binary.LittleEndian.Uint32(data[4:8])
	return true
}

// MarshalTo writes the record into buf. Returns ResultSize, or 0 if buf is
// too small.
func (r *Result) MarshalTo(buf []byte) int {
	if len(buf) < ResultSize {
		return 0
	}
	buf[0] = r.Core
	buf[1] = r.Flags
	binary.LittleEndian.PutUint16(buf[2:4], r.TaskID)
	binary.LittleEndian.PutUint32(buf[4:8], r.Nonce)
	return ResultSize
}

// Status is the decoded status register.
type Status struct {
	Temp   uint8  // Die temperature, degrees C
	Queued uint8  // Jobs waiting in the chip buffer
	Ready  uint8  // Result records waiting to be read
	Cores  uint16 // Cores currently enabled
	Flags  uint8
}

// ParseStatus decodes a status read. Returns false if data is too short.
func ParseStatus(data []byte, out *Status) bool {
	if len(data) < StatusSize {
		return false
	}
	out.Temp = data[0]
	out.Queued = data[1]
	out.Ready = data[2]
	out.Cores = binary.LittleEndian.Uint16(data[3:5])
	out.Flags = data[5]
	return true
}

// MarshalTo writes the status record into buf. Returns StatusSize, or 0 if
// buf is too small.
func (s *Status) MarshalTo(buf []byte) int {
	if len(buf) < StatusSize {
		return 0
	}
	buf[0] = s.Temp
	buf[1] = s.Queued
	buf[2] = s.Ready
	binary.LittleEndian.PutUint16(buf[3:5], s.Cores)
	buf[5] = s.Flags
	buf[6], buf[7] = 0, 0
	return StatusSize
}

// CoreMap is the per-core enable bitmap, core 0 in bit 0 of byte 0.
type CoreMap [CoreMapSize]byte

// AllCores returns a map with the first n cores enabled.
func AllCores(n int) CoreMap {
	var m CoreMap
	for i := 0; i < n && i < MaxCores; i++ {
		m.Set(i, true)
	}
	return m
}

// Enabled reports whether core i is enabled.
func (m *CoreMap) Enabled(i int) bool {
	if i < 0 || i >= MaxCores {
		return false
	}
	return m[i/8]&(1<<(i%8)) != 0
}

// Set enables or disables core i.
func (m *CoreMap) Set(i int, on bool) {
	if i < 0 || i >= MaxCores {
		return
	}
	if on {
		m[i/8] |= 1 << (i % 8)
	} else {
		m[i/8] &^= 1 << (i % 8)
	}
}

// Count returns the number of enabled cores.
func (m *CoreMap) Count() int {
	n := 0
	for _, b := range m {
		n += bits.OnesCount8(b)
	}
	return n
}

// NonceStride returns the per-core nonce stride that splits the 32-bit
// nonce space evenly across cores.
func NonceStride(cores int) uint32 {
	if cores <= 1 {
		return 0
	}
	return uint32((uint64(1) << 32) / uint64(cores))
}
