package driver

import (
	"fmt"
	"time"

	"github.com/ardnew/hashspi/bus"
	"github.com/ardnew/hashspi/pkg"
	"github.com/ardnew/hashspi/pool"
)

// Fill phases, run in order for every chip before the next phase starts.
const (
	phaseUrgent = iota // Empty chip gets one urgent job
	phaseLow           // Fill to LowWater
	phaseHigh          // Fill to HighWater once at or below LowWater
	numPhases
)

// QueueWork adds work to the pending queue ahead of the next fill pass.
func (d *Driver) QueueWork(w *Work) error {
	if w == nil {
		return fmt.Errorf("%w: nil work", pkg.ErrInvalidParameter)
	}
	n, err := d.jobs.Acquire()
	if err != nil {
		return err
	}
	n.Value = Job{Work: w}
	d.pending.PushFront(n)
	return nil
}

// FillQueues runs one scheduling pass over the present chips and returns
// the number of jobs dispatched. The pending queue is first topped up from
// the work source.
func (d *Driver) FillQueues() int {
	d.fill.Lock()
	defer d.fill.Unlock()

	var active []*chip
	for _, c := range d.chips {
		if c.present {
			active = append(active, c)
		}
	}
	if len(active) == 0 {
		return 0
	}
	d.feed(len(active))

	dispatched := 0
	for phase := phaseUrgent; phase < numPhases; phase++ {
		for _, c := range active {
			dispatched += d.fillChip(c, phase)
		}
	}
	return dispatched
}

// feed pulls work from the source until the pending queue reaches its depth.
func (d *Driver) feed(active int) {
	depth := d.cfg.PendingDepth
	if depth == 0 {
		depth = active * d.cfg.HighWater
	}
	for d.pending.Len() < depth {
		n := d.pull()
		if n == nil {
			return
		}
		d.pending.PushFront(n)
	}
}

// pull takes one job from the work source, or nil.
func (d *Driver) pull() *pool.Node[Job] {
	n, err := d.jobs.Acquire()
	if err != nil {
		pkg.LogDebug(pkg.ComponentScheduler, "cannot pull work", "error", err)
		return nil
	}
	w, ok := d.source.NextWork()
	if !ok || w == nil {
		d.jobs.Release(n)
		return nil
	}
	n.Value = Job{Work: w}
	return n
}

// nextJob returns the oldest pending job, pulling from the source directly
// when the pending queue is empty.
func (d *Driver) nextJob() *pool.Node[Job] {
	if n := d.pending.PopBack(); n != nil {
		return n
	}
	return d.pull()
}

// fillChip runs one phase for c.
func (d *Driver) fillChip(c *chip, phase int) int {
	occ := c.occupancy()
	var (
		target int
		urgent bool
	)
	switch phase {
	case phaseUrgent:
		if occ != 0 {
			return 0
		}
		target, urgent = 1, true
	case phaseLow:
		target = d.cfg.LowWater
	case phaseHigh:
		if occ > d.cfg.LowWater {
			return 0
		}
		target = d.cfg.HighWater
	}

	n := 0
	for ; occ < target; occ++ {
		if !d.dispatch(c, urgent) {
			break
		}
		n++
	}
	return n
}

// dispatch assigns the next pending job to c. It returns false when there is
// no work or no request node to carry it.
func (d *Driver) dispatch(c *chip, urgent bool) bool {
	for {
		job := d.nextJob()
		if job == nil {
			return false
		}
		if len(job.Value.Work.Data) > bus.MaxJobData {
			d.reject(job)
			continue
		}

		req := d.acquireRequest(pkg.ComponentScheduler)
		if req == nil {
			d.pending.PushBack(job)
			return false
		}

		var id uint16
		c.table.Update(func(l *pool.List[Job]) {
			id = d.tasks.Next()
			for tableHas(l, id) {
				id = d.tasks.Next()
			}
			job.Value.TaskID = id
			job.Value.Chip = int(c.id)
			job.Value.Submitted = time.Now()
			job.Value.Urgent = urgent
			l.PushFront(job)
		})

		r := &req.Value
		*r = Request{
			Chip:     c.id,
			Register: bus.RegJobSubmit,
			TaskID:   id,
			Urgent:   urgent,
		}
		r.Size = bus.EncodeJob(r.Payload[:], id, job.Value.Work.Data)
		d.enqueue(req)
		d.counters[c.id].dispatched.Add(1)

		pkg.LogDebug(pkg.ComponentScheduler, "job dispatched",
			"chip", c.id,
			"task", id,
			"work", job.Value.Work.ID,
			"urgent", urgent)
		return true
	}
}

// reject discards a job that cannot be encoded into a frame.
func (d *Driver) reject(job *pool.Node[Job]) {
	d.oversize.Add(1)
	pkg.LogWarn(pkg.ComponentScheduler, "work rejected",
		"error", pkg.ErrOversize,
		"work", job.Value.Work.ID,
		"size", len(job.Value.Work.Data),
		"max", bus.MaxJobData)
	d.discard([]*pool.Node[Job]{job})
}

func tableHas(l *pool.List[Job], id uint16) bool {
	for n := l.Front(); n != nil; n = n.Next() {
		if n.Value.TaskID == id {
			return true
		}
	}
	return false
}
