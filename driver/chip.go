package driver

import (
	"sync"
	"time"

	"github.com/ardnew/hashspi/bus"
	"github.com/ardnew/hashspi/pool"
)

// ChipTelemetry is the latest status a chip reported.
type ChipTelemetry struct {
	Updated time.Time
	Status  bus.Status
}

// chip is the driver-side state of one chip address.
type chip struct {
	id      uint8
	present bool // Fixed once the driver starts
	cores   int

	// table holds the chip's dispatched jobs, newest at the head.
	table *pool.Store[Job]

	// stale counts the table entries dispatched before the last flush.
	// Guarded by the table lock.
	stale int

	telemetryMu sync.Mutex
	telemetry   ChipTelemetry

	// Transmitter only.
	nextStatus time.Time
}

func newChip(id int, jobs *pool.Pool[Job]) *chip {
	return &chip{
		id:    uint8(id),
		table: pool.NewStore("chip table", jobs),
	}
}

// occupancy returns the number of live in-flight jobs on the chip.
func (c *chip) occupancy() int {
	var n int
	c.table.Update(func(l *pool.List[Job]) {
		n = occupancyLocked(l, c.stale)
	})
	return n
}

func occupancyLocked(l *pool.List[Job], stale int) int {
	return max(l.Len()-stale, 0)
}

// staleCount returns the number of stale table entries.
func (c *chip) staleCount() int {
	var n int
	c.table.Update(func(*pool.List[Job]) { n = c.stale })
	return n
}

// lookup returns the table entry for taskID. Caller holds the table lock.
func lookup(l *pool.List[Job], taskID uint16) *pool.Node[Job] {
	for n := l.Front(); n != nil; n = n.Next() {
		if n.Value.TaskID == taskID {
			return n
		}
	}
	return nil
}

// find returns a copy of the table entry for taskID. Nodes are never handed
// out, since another goroutine may retire the entry once the lock drops.
func (c *chip) find(taskID uint16) (job Job, found, empty bool) {
	c.table.Update(func(l *pool.List[Job]) {
		if l.Len() == 0 {
			empty = true
			return
		}
		if n := lookup(l, taskID); n != nil {
			job, found = n.Value, true
		}
	})
	return job, found, empty
}

// retireOlder unlinks every entry older than the one for taskID, oldest
// first, and returns that entry. Every removed entry consumes one stale
// count while any remain. Nothing is removed when taskID is not in l.
// Caller holds the table lock.
func (c *chip) retireOlder(l *pool.List[Job], taskID uint16) (*pool.Node[Job], []*pool.Node[Job]) {
	match := lookup(l, taskID)
	if match == nil {
		return nil, nil
	}
	var removed []*pool.Node[Job]
	for n := l.Back(); n != match; {
		prev := n.Prev()
		l.Unlink(n)
		removed = append(removed, n)
		if c.stale > 0 {
			c.stale--
		}
		n = prev
	}
	return match, removed
}

func (c *chip) setTelemetry(s bus.Status, at time.Time) {
	c.telemetryMu.Lock()
	defer c.telemetryMu.Unlock()
	c.telemetry = ChipTelemetry{Updated: at, Status: s}
}

func (c *chip) getTelemetry() ChipTelemetry {
	c.telemetryMu.Lock()
	defer c.telemetryMu.Unlock()
	return c.telemetry
}
