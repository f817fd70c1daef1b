package driver

import (
	"sync/atomic"

	"github.com/ardnew/hashspi/bus"
	"github.com/ardnew/hashspi/pkg"
	"github.com/ardnew/hashspi/pool"
)

// chipCounters are the running counters of one chip.
type chipCounters struct {
	nonces     atomic.Uint64
	good       atomic.Uint64
	bad        atomic.Uint64
	noNonce    atomic.Uint64
	badWork    atomic.Uint64
	noWork     atomic.Uint64
	completed  atomic.Uint64
	dispatched atomic.Uint64
	txErrors   atomic.Uint64
	shortTx    atomic.Uint64

	coreGood [bus.MaxCores]atomic.Uint64
	coreBad  [bus.MaxCores]atomic.Uint64
}

func (c *chipCounters) outcome(o Outcome, core uint8) {
	switch o {
	case OutcomeGoodNonce:
		c.good.Add(1)
		if int(core) < bus.MaxCores {
			c.coreGood[core].Add(1)
		}
	case OutcomeBadNonce:
		c.bad.Add(1)
		if int(core) < bus.MaxCores {
			c.coreBad[core].Add(1)
		}
	case OutcomeNoNonce:
		c.noNonce.Add(1)
	case OutcomeBadWork:
		c.badWork.Add(1)
	case OutcomeNoWork:
		c.noWork.Add(1)
	}
}

func (c *chipCounters) txError(st pkg.TransferStatus) {
	c.txErrors.Add(1)
	if st == pkg.TransferStatusShort {
		c.shortTx.Add(1)
	}
}

// ChipStats is a snapshot of one chip's counters and state.
type ChipStats struct {
	Chip    int
	Present bool
	Cores   int

	Nonces     uint64 // Replies carrying a nonce
	Good       uint64
	Bad        uint64 // Hardware errors
	NoNonce    uint64
	BadWork    uint64
	NoWork     uint64
	Completed  uint64
	Dispatched uint64
	TxErrors   uint64
	ShortTx    uint64

	TableLen  int
	Stale     int
	Occupancy int

	// Per-core counts, indexed by core number, sized to the busiest core.
	CoreGood []uint64
	CoreBad  []uint64

	Telemetry ChipTelemetry
}

// Stats is a snapshot of the driver.
type Stats struct {
	Chips    []ChipStats // Present chips only
	Pools    []pool.Stats
	Pending  int
	TxQueue  int
	Replies  int
	Accepted uint64 // Valid nonces since start
	Oversize uint64 // Work rejected as too large for a frame
}

func snapshotCores(counters *[bus.MaxCores]atomic.Uint64) []uint64 {
	last := -1
	for i := range counters {
		if counters[i].Load() != 0 {
			last = i
		}
	}
	out := make([]uint64, last+1)
	for i := range out {
		out[i] = counters[i].Load()
	}
	return out
}

func (d *Driver) chipStats(c *chip) ChipStats {
	k := &d.counters[c.id]
	s := ChipStats{
		Chip:       int(c.id),
		Present:    c.present,
		Cores:      c.cores,
		Nonces:     k.nonces.Load(),
		Good:       k.good.Load(),
		Bad:        k.bad.Load(),
		NoNonce:    k.noNonce.Load(),
		BadWork:    k.badWork.Load(),
		NoWork:     k.noWork.Load(),
		Completed:  k.completed.Load(),
		Dispatched: k.dispatched.Load(),
		TxErrors:   k.txErrors.Load(),
		ShortTx:    k.shortTx.Load(),
		CoreGood:   snapshotCores(&k.coreGood),
		CoreBad:    snapshotCores(&k.coreBad),
		Telemetry:  c.getTelemetry(),
	}
	c.table.Update(func(l *pool.List[Job]) {
		s.TableLen = l.Len()
		s.Stale = c.stale
		s.Occupancy = occupancyLocked(l, c.stale)
	})
	return s
}

// Stats returns a snapshot of the driver counters, queues and pools.
func (d *Driver) Stats() Stats {
	s := Stats{
		Pools: []pool.Stats{
			d.jobs.Stats(),
			d.requests.Stats(),
			d.replies.Stats(),
		},
		Pending:  d.pending.Len(),
		TxQueue:  d.txq.Len(),
		Replies:  d.replyq.Len(),
		Accepted: d.acceptedTotal.Load(),
		Oversize: d.oversize.Load(),
	}
	for _, c := range d.chips {
		if c.present {
			s.Chips = append(s.Chips, d.chipStats(c))
		}
	}
	return s
}

// DrainAcceptedNonceCount returns the number of valid nonces found since the
// previous call and resets the count.
func (d *Driver) DrainAcceptedNonceCount() uint64 {
	return d.accepted.Swap(0)
}
