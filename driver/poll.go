package driver

import (
	"context"
	"time"

	"github.com/ardnew/hashspi/bus"
	"github.com/ardnew/hashspi/pkg"
)

// pollLoop reads results from every present chip, then waits PollHit if
// anything was found and PollIdle otherwise.
func (d *Driver) pollLoop(ctx context.Context) {
	defer d.wg.Done()

	for {
		hits := 0
		for _, c := range d.chips {
			if !c.present {
				continue
			}
			n, ok := d.pollChip(ctx, c)
			if !ok {
				return
			}
			hits += n
		}
		delay := d.cfg.PollIdle
		if hits > 0 {
			delay = d.cfg.PollHit
		}
		if !sleep(ctx, delay, nil) {
			return
		}
	}
}

// pollChip queues one result read for c and waits for the transmitter to
// perform it. It returns the number of replies queued, and false once ctx
// is done. A read that outlives the wait is still harvested by the
// transmitter.
func (d *Driver) pollChip(ctx context.Context, c *chip) (int, bool) {
	n := d.acquireRequest(pkg.ComponentPoller)
	if n == nil {
		return 0, ctx.Err() == nil
	}
	d.pollSeq++
	seq := d.pollSeq
	n.Value = Request{
		Chip:     c.id,
		Read:     true,
		Register: bus.RegResult,
		seq:      seq,
	}
	d.enqueue(n)

	timer := time.NewTimer(d.cfg.PollTimeout)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return 0, false
		case <-timer.C:
			pkg.LogWarn(pkg.ComponentPoller, "result read timed out", "chip", c.id)
			return 0, true
		case res := <-d.polled:
			if res.seq != seq || res.chip != c.id {
				continue
			}
			return res.hits, true
		}
	}
}

// harvest queues every genuine record in a result-read payload.
//
// A record whose status bytes are both zero is dropped as "no result". A
// real nonce from core 0 with no flags is indistinguishable from it and is
// lost the same way.
func (d *Driver) harvest(c *chip, data []byte) int {
	switch {
	case len(data) > bus.ResultReadSize:
		pkg.LogDebug(pkg.ComponentPoller, "wide result reply trimmed",
			"chip", c.id,
			"len", len(data))
		data = data[:bus.ResultReadSize]
	case len(data) < bus.ResultReadSize:
		pkg.LogWarn(pkg.ComponentPoller, "short result reply",
			"chip", c.id,
			"len", len(data),
			"want", bus.ResultReadSize)
	}

	hits := 0
	var rec bus.Result
	for off := 0; off+bus.ResultSize <= len(data); off += bus.ResultSize {
		if !bus.ParseResult(data[off:], &rec) || rec.Empty() {
			continue
		}
		n, err := d.replies.Acquire()
		if err != nil {
			pkg.LogWarn(pkg.ComponentPoller, "reply dropped",
				"chip", c.id,
				"task", rec.TaskID,
				"error", err)
			continue
		}
		n.Value = Reply{
			Chip:    c.id,
			Core:    rec.Core,
			TaskID:  rec.TaskID,
			Nonce:   rec.Nonce,
			NoNonce: rec.NoNonce(),
		}
		d.replyq.PushFront(n)
		hits++
	}
	if hits > 0 {
		kick(d.rxKick)
	}
	return hits
}
