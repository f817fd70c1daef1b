package driver

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ardnew/hashspi/bus/hal/sim"
	"github.com/ardnew/hashspi/pool"
)

// testSource hands out queued work, generating more when gen is set.
type testSource struct {
	mu        sync.Mutex
	queue     []*Work
	gen       bool
	made      int
	discarded []Job
	completed []Job
}

func newTestSource(n int) *testSource {
	s := &testSource{}
	s.add(n)
	return s
}

func (s *testSource) add(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		s.queue = append(s.queue, s.makeLocked())
	}
}

func (s *testSource) makeLocked() *Work {
	s.made++
	return NewWork([]byte(fmt.Sprintf("work-%06d", s.made)))
}

func (s *testSource) NextWork() (*Work, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		if !s.gen {
			return nil, false
		}
		return s.makeLocked(), true
	}
	w := s.queue[0]
	s.queue = s.queue[1:]
	return w, true
}

func (s *testSource) Discarded(j Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discarded = append(s.discarded, j)
}

func (s *testSource) Completed(j Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed = append(s.completed, j)
}

func (s *testSource) counts() (discarded, completed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.discarded), len(s.completed)
}

type submission struct {
	job   Job
	nonce uint32
}

// testValidator accepts nonces for which valid returns true.
type testValidator struct {
	mu        sync.Mutex
	valid     func(j *Job, nonce uint32) bool
	submitted []submission
}

func acceptAll() *testValidator {
	return &testValidator{valid: func(*Job, uint32) bool { return true }}
}

func simValidator(noncesPerJob int) *testValidator {
	k := sim.Checker{NoncesPerJob: noncesPerJob}
	return &testValidator{valid: func(j *Job, nonce uint32) bool {
		return k.Check(j.Work.Data, nonce)
	}}
}

func (v *testValidator) Valid(j *Job, nonce uint32) bool {
	return v.valid(j, nonce)
}

func (v *testValidator) Submit(j Job, nonce uint32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.submitted = append(v.submitted, submission{j, nonce})
}

func (v *testValidator) count() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.submitted)
}

// fastConfig returns a configuration with short intervals for live tests.
func fastConfig(chips int) Config {
	cfg := DefaultConfig()
	cfg.Chips = chips
	cfg.RequestInterval = 50 * time.Microsecond
	cfg.TxIdle = 100 * time.Microsecond
	cfg.PollHit = 100 * time.Microsecond
	cfg.PollIdle = 500 * time.Microsecond
	cfg.PollTimeout = 200 * time.Millisecond
	cfg.ReconcileIdle = 100 * time.Microsecond
	cfg.StatusInterval = 5 * time.Millisecond
	cfg.StatusJitter = time.Millisecond
	return cfg
}

// newOffline returns a driver whose chips are marked present without
// starting any worker, so queues can be inspected directly.
func newOffline(t *testing.T, cfg Config, src WorkSource, val Validator) *Driver {
	t.Helper()
	d, err := New(cfg, sim.New(sim.Config{Chips: cfg.Chips}), src, val)
	require.NoError(t, err)
	for _, c := range d.chips {
		if cfg.Enabled(int(c.id)) {
			c.present = true
			c.cores = 32
		}
	}
	return d
}

// queued returns the transmit queue oldest first.
func queued(d *Driver) []Request {
	var out []Request
	d.txq.Update(func(l *pool.List[Request]) {
		for n := l.Back(); n != nil; n = n.Prev() {
			out = append(out, n.Value)
		}
	})
	return out
}

// tableIDs returns the task ids of a chip table, newest first.
func tableIDs(d *Driver, chip int) []uint16 {
	var out []uint16
	d.chips[chip].table.Update(func(l *pool.List[Job]) {
		for n := l.Front(); n != nil; n = n.Next() {
			out = append(out, n.Value.TaskID)
		}
	})
	return out
}
