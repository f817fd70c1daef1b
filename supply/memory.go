package supply

import (
	"context"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/ardnew/hashspi/driver"
)

// DefaultWorkSize is the work size generated by Memory.
const DefaultWorkSize = 44

// Memory generates random work on demand and keeps results in process. It
// is safe for concurrent use.
type Memory struct {
	size  int
	limit uint64 // Work units to generate (0 = unlimited)

	mu      sync.Mutex
	rng     *rand.ChaCha8
	results []Result
	keep    int

	pulled    atomic.Uint64
	completed atomic.Uint64
	discarded atomic.Uint64
	accepted  atomic.Uint64
}

// NewMemory returns a source of random work of size bytes. A positive limit
// caps the number of units generated. The seed makes the work repeatable.
func NewMemory(size int, limit uint64, seed uint64) *Memory {
	if size < 1 {
		size = DefaultWorkSize
	}
	var key [32]byte
	for i := range key {
		key[i] = byte(seed >> (8 * (i % 8)))
	}
	return &Memory{
		size:  size,
		limit: limit,
		rng:   rand.NewChaCha8(key),
		keep:  DefaultHistory,
	}
}

// NextWork implements driver.WorkSource.
func (m *Memory) NextWork() (*driver.Work, bool) {
	for {
		n := m.pulled.Load()
		if m.limit > 0 && n >= m.limit {
			return nil, false
		}
		if m.pulled.CompareAndSwap(n, n+1) {
			break
		}
	}
	data := make([]byte, m.size)
	m.mu.Lock()
	for i := 0; i < len(data); i += 8 {
		v := m.rng.Uint64()
		for j := i; j < min(i+8, len(data)); j++ {
			data[j] = byte(v)
			v >>= 8
		}
	}
	m.mu.Unlock()
	return driver.NewWork(data), true
}

// Completed implements driver.WorkSource.
func (m *Memory) Completed(driver.Job) {
	m.completed.Add(1)
}

// Discarded implements driver.WorkSource.
func (m *Memory) Discarded(driver.Job) {
	m.discarded.Add(1)
}

// Accept implements Sink.
func (m *Memory) Accept(_ context.Context, r Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.results) >= m.keep {
		m.results = append(m.results[:0], m.results[len(m.results)-m.keep/2:]...)
	}
	m.results = append(m.results, r)
	m.accepted.Add(1)
	return nil
}

// Results returns a copy of the retained results, oldest first.
func (m *Memory) Results() []Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Result(nil), m.results...)
}

// Counters returns what this source has seen.
func (m *Memory) Counters() Counters {
	return Counters{
		Pulled:    m.pulled.Load(),
		Completed: m.completed.Load(),
		Discarded: m.discarded.Load(),
		Accepted:  m.accepted.Load(),
	}
}
