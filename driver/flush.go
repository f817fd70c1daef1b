package driver

import (
	"github.com/ardnew/hashspi/bus"
	"github.com/ardnew/hashspi/pkg"
	"github.com/ardnew/hashspi/pool"
)

// Flush abandons the current work: the pending queue is discarded, every
// job on a chip is counted as stale, queued job submits are dropped and each
// chip is sent an urgent reset.
//
// Jobs already on a chip stay in its table and may still report valid
// nonces until newer replies retire them. Flush holds the pending lock and
// the transmit queue lock together so no job is both discarded and sent.
func (d *Driver) Flush() {
	d.fill.Lock()
	defer d.fill.Unlock()

	var (
		discarded []*pool.Node[Job]
		dropped   []*pool.Node[Request]
		resets    int
	)
	d.pending.Update(func(pl *pool.List[Job]) {
		discarded = pl.DetachAll()

		for _, c := range d.chips {
			if !c.present {
				continue
			}
			c.table.Update(func(l *pool.List[Job]) {
				c.stale = l.Len()
			})
		}

		d.txq.Update(func(tl *pool.List[Request]) {
			for n := tl.Front(); n != nil; {
				next := n.Next()
				if n.Value.Register == bus.RegJobSubmit && !n.Value.Urgent {
					tl.Unlink(n)
					dropped = append(dropped, n)
				}
				n = next
			}
			for _, c := range d.chips {
				if !c.present {
					continue
				}
				n, err := d.requests.Acquire()
				if err != nil {
					pkg.LogWarn(pkg.ComponentScheduler, "cannot queue chip reset",
						"chip", c.id,
						"error", err)
					continue
				}
				r := &n.Value
				*r = Request{
					Chip:     c.id,
					Register: bus.RegControl,
					Urgent:   true,
				}
				r.Payload[0] = bus.CtrlReset | bus.CtrlFlushQueue
				r.Size = bus.ControlSize
				tl.PushFront(n)
				resets++
			}
		})
	})

	for _, n := range dropped {
		d.requests.Release(n)
	}
	d.discard(discarded)
	kick(d.txKick)

	pkg.LogInfo(pkg.ComponentScheduler, "work flushed",
		"discarded", len(discarded),
		"dropped", len(dropped),
		"resets", resets)
}
