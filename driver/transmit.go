package driver

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/ardnew/hashspi/bus"
	"github.com/ardnew/hashspi/pkg"
	"github.com/ardnew/hashspi/pool"
)

// pollResult tells the poller how a result read went. The records are
// already on the reply queue when it is sent.
type pollResult struct {
	chip uint8
	seq  uint32
	hits int
	err  error
}

// transmitLoop is the bus owner. Each wake it sends at most one queued
// request, or failing that one due status read, then sleeps.
func (d *Driver) transmitLoop(ctx context.Context) {
	defer d.wg.Done()

	var (
		buf  [bus.MaxFrame]byte
		last time.Time // Last job submit
	)
	now := time.Now()
	for _, c := range d.chips {
		c.nextStatus = now.Add(d.statusDelay())
	}

	for ctx.Err() == nil {
		n, wait := d.nextRequest(last)
		if n != nil {
			if n.Value.Register == bus.RegJobSubmit {
				last = time.Now()
			}
			d.transmit(ctx, n, buf[:])
			continue
		}
		if d.readStatus(ctx, buf[:]) {
			continue
		}
		if !sleep(ctx, min(wait, d.cfg.TxIdle), d.txKick) {
			return
		}
	}
}

// nextRequest unlinks the oldest queued request if it may be sent now.
// Job submits wait for the request interval unless an urgent request is
// queued. When nothing can be sent it returns how long to wait.
func (d *Driver) nextRequest(last time.Time) (*pool.Node[Request], time.Duration) {
	var (
		out  *pool.Node[Request]
		wait = d.cfg.TxIdle
	)
	d.txq.Update(func(l *pool.List[Request]) {
		tail := l.Back()
		if tail == nil {
			return
		}
		if tail.Value.Register == bus.RegJobSubmit && !urgentQueued(l) {
			if rem := d.cfg.RequestInterval - time.Since(last); rem > 0 {
				wait = rem
				return
			}
		}
		l.Unlink(tail)
		out = tail
	})
	return out, wait
}

func urgentQueued(l *pool.List[Request]) bool {
	for n := l.Front(); n != nil; n = n.Next() {
		if n.Value.Urgent {
			return true
		}
	}
	return false
}

// transmit performs one queued request and routes its outcome.
func (d *Driver) transmit(ctx context.Context, n *pool.Node[Request], buf []byte) {
	defer d.requests.Release(n)

	r := &n.Value
	f := r.Frame()
	resp, st, err := bus.Exchange(ctx, d.bus, &f, buf)
	if err != nil {
		d.counters[r.Chip].txError(st)
		if st == pkg.TransferStatusOversize {
			d.oversize.Add(1)
		}
		pkg.LogWarn(pkg.ComponentTransmit, "request failed",
			"chip", r.Chip,
			"register", r.Register,
			"status", st,
			"error", err)
	}

	switch r.Register {
	case bus.RegResult:
		// Harvest here so records popped off the chip are queued even when
		// the poller has stopped waiting for this read.
		res := pollResult{chip: r.Chip, seq: r.seq, err: err}
		if err == nil {
			res.hits = d.harvest(d.chips[r.Chip], resp)
		}
		d.deliver(res)
	case bus.RegJobSubmit:
		if err == nil {
			pkg.LogDebug(pkg.ComponentTransmit, "job sent",
				"chip", r.Chip,
				"task", r.TaskID,
				"urgent", r.Urgent)
		}
	case bus.RegControl:
		if err == nil {
			pkg.LogInfo(pkg.ComponentTransmit, "chip reset", "chip", r.Chip)
		}
	}
}

// deliver tells the poller a result read finished, replacing any notice
// the poller gave up waiting for.
func (d *Driver) deliver(res pollResult) {
	for {
		select {
		case d.polled <- res:
			return
		default:
		}
		select {
		case <-d.polled:
		default:
		}
	}
}

// readStatus reads the status of the first chip whose refresh is due.
func (d *Driver) readStatus(ctx context.Context, buf []byte) bool {
	now := time.Now()
	for _, c := range d.chips {
		if !c.present || now.Before(c.nextStatus) {
			continue
		}
		c.nextStatus = now.Add(d.statusDelay())

		f := bus.ReadFrame(c.id, bus.RegStatus)
		resp, st, err := bus.Exchange(ctx, d.bus, &f, buf)
		if err != nil {
			d.counters[c.id].txError(st)
			pkg.LogDebug(pkg.ComponentTransmit, "status read failed",
				"chip", c.id,
				"error", err)
			return true
		}
		var s bus.Status
		if !bus.ParseStatus(resp, &s) {
			pkg.LogDebug(pkg.ComponentTransmit, "short status reply",
				"chip", c.id,
				"len", len(resp))
			return true
		}
		c.setTelemetry(s, now)
		return true
	}
	return false
}

// statusDelay returns the status period plus jitter.
func (d *Driver) statusDelay() time.Duration {
	delay := d.cfg.StatusInterval
	if d.cfg.StatusJitter > 0 {
		delay += rand.N(d.cfg.StatusJitter)
	}
	return delay
}

// sleep waits for delay, a wakeup on kick (if not nil) or cancellation.
// It returns false once ctx is done.
func sleep(ctx context.Context, delay time.Duration, kick <-chan struct{}) bool {
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
	case <-kick:
	}
	return ctx.Err() == nil
}
