package supply

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ardnew/hashspi/driver"
)

// Checker decides whether a nonce solves a unit of work.
type Checker interface {
	Check(data []byte, nonce uint32) bool
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(data []byte, nonce uint32) bool

// Check calls f.
func (f CheckerFunc) Check(data []byte, nonce uint32) bool {
	return f(data, nonce)
}

// Sink receives accepted nonces.
type Sink interface {
	Accept(ctx context.Context, r Result) error
}

// Result is one accepted nonce.
type Result struct {
	WorkID uuid.UUID `json:"work_id"`
	Chip   int       `json:"chip"`
	TaskID uint16    `json:"task_id"`
	Nonce  uint32    `json:"nonce"`
	Found  time.Time `json:"found"`
}

// WorkRecord is the serialized form of driver.Work.
type WorkRecord struct {
	ID   uuid.UUID `json:"id"`
	Data []byte    `json:"data"`
}

// JobRecord is the serialized outcome of one job.
type JobRecord struct {
	WorkID    uuid.UUID `json:"work_id"`
	Chip      int       `json:"chip"`
	TaskID    uint16    `json:"task_id"`
	Accepted  int       `json:"accepted"`
	Submitted time.Time `json:"submitted,omitempty"`
}

// Counters tally what a work source has seen.
type Counters struct {
	Pulled    uint64
	Completed uint64
	Discarded uint64
	Accepted  uint64
}

func encodeWork(w *driver.Work) ([]byte, error) {
	data, err := json.Marshal(WorkRecord{ID: w.ID, Data: w.Data})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal work: %w", err)
	}
	return data, nil
}

func decodeWork(data []byte) (*driver.Work, error) {
	var rec WorkRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal work: %w", err)
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	return &driver.Work{ID: rec.ID, Data: rec.Data}, nil
}

func jobRecord(j driver.Job) JobRecord {
	rec := JobRecord{
		Chip:      j.Chip,
		TaskID:    j.TaskID,
		Accepted:  j.Accepted,
		Submitted: j.Submitted,
	}
	if j.Work != nil {
		rec.WorkID = j.Work.ID
	}
	return rec
}
