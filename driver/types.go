package driver

import (
	"time"

	"github.com/google/uuid"

	"github.com/ardnew/hashspi/bus"
)

// Work is one unit of search work from the job supply. It is read-only once
// handed to the driver.
type Work struct {
	ID   uuid.UUID
	Data []byte // Bytes written to the chip after the task id
}

// NewWork returns work with a fresh id.
func NewWork(data []byte) *Work {
	return &Work{ID: uuid.New(), Data: data}
}

// Job is a unit of work as the driver tracks it: pending, then dispatched to
// one chip until it is completed or discarded.
type Job struct {
	Work      *Work
	TaskID    uint16 // 0 = unassigned
	Chip      int
	Submitted time.Time
	Accepted  int // Valid nonces found so far
	Urgent    bool
}

// Request is one queued bus transaction.
type Request struct {
	Chip     uint8
	Read     bool
	Register bus.Register
	Payload  [bus.MaxData]byte
	Size     int    // Bytes of Payload in use
	TaskID   uint16 // Job the request carries (job submits only)
	Urgent   bool
	seq      uint32 // Result-read sequence, matched by the poller
}

// Frame returns the bus frame for the request. The payload aliases r.
func (r *Request) Frame() bus.Frame {
	if r.Read {
		return bus.ReadFrame(r.Chip, r.Register)
	}
	return bus.WriteFrame(r.Chip, r.Register, r.Payload[:r.Size])
}

// Reply is one harvested result record.
type Reply struct {
	Chip    uint8
	Core    uint8
	TaskID  uint16
	Nonce   uint32
	NoNonce bool
}

// Outcome classifies a reconciled reply.
type Outcome int

// Reconciliation outcomes.
const (
	OutcomeGoodNonce Outcome = iota // Valid nonce for an open job
	OutcomeNoNonce                  // Job finished without a nonce
	OutcomeBadNonce                 // Nonce failed validation (hardware error)
	OutcomeBadWork                  // Task id matches no job on the chip
	OutcomeNoWork                   // Chip had no jobs at all
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeGoodNonce:
		return "good-nonce"
	case OutcomeNoNonce:
		return "no-nonce"
	case OutcomeBadNonce:
		return "bad-nonce"
	case OutcomeBadWork:
		return "bad-work"
	case OutcomeNoWork:
		return "no-work"
	default:
		return "unknown"
	}
}

// WorkSource supplies work and is told what became of it.
type WorkSource interface {
	// NextWork returns the next unit of work, or false if none is ready.
	NextWork() (*Work, bool)

	// Discarded is called for a job dropped without completing: pulled but
	// never dispatched, rejected, or still held when the driver stops.
	Discarded(job Job)

	// Completed is called when a dispatched job is retired because the
	// chip has moved past it.
	Completed(job Job)
}

// Validator checks nonces and forwards the valid ones.
type Validator interface {
	// Valid reports whether nonce solves job's work.
	Valid(job *Job, nonce uint32) bool

	// Submit forwards a valid nonce.
	Submit(job Job, nonce uint32)
}
