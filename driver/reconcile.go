package driver

import (
	"context"

	"github.com/ardnew/hashspi/pkg"
	"github.com/ardnew/hashspi/pool"
)

// reconcileLoop drains the reply queue oldest first.
func (d *Driver) reconcileLoop(ctx context.Context) {
	defer d.wg.Done()

	for ctx.Err() == nil {
		n := d.replyq.PopBack()
		if n == nil {
			if !sleep(ctx, d.cfg.ReconcileIdle, d.rxKick) {
				return
			}
			continue
		}
		r := n.Value
		d.replies.Release(n)
		d.Reconcile(r)
	}
}

// Reconcile classifies one reply against its chip's job table. It is safe
// to call concurrently with the reconcile worker and with itself.
//
// A reply for a known job retires every older job of the chip, except when
// the nonce fails validation; the matched job stays open either way.
func (d *Driver) Reconcile(r Reply) Outcome {
	c := d.chip(int(r.Chip))
	if c == nil {
		pkg.LogWarn(pkg.ComponentReconcile, "reply from inactive chip",
			"chip", r.Chip,
			"task", r.TaskID)
		return OutcomeBadWork
	}
	k := &d.counters[c.id]
	k.nonces.Add(1)

	o := d.classify(c, r)
	k.outcome(o, r.Core)

	switch o {
	case OutcomeBadNonce:
		pkg.LogDebug(pkg.ComponentReconcile, "hardware error",
			"chip", r.Chip,
			"core", r.Core,
			"task", r.TaskID,
			"nonce", r.Nonce)
	case OutcomeBadWork, OutcomeNoWork:
		pkg.LogDebug(pkg.ComponentReconcile, "unmatched reply",
			"chip", r.Chip,
			"task", r.TaskID,
			"outcome", o)
	}
	return o
}

// classify looks the reply up by task id under the table lock each time it
// touches the table, so a job retired between steps by a concurrent call
// is never touched again.
func (d *Driver) classify(c *chip, r Reply) Outcome {
	snapshot, found, empty := c.find(r.TaskID)
	switch {
	case empty:
		return OutcomeNoWork
	case !found:
		return OutcomeBadWork
	}

	if r.NoNonce {
		var (
			match   *pool.Node[Job]
			removed []*pool.Node[Job]
		)
		c.table.Update(func(l *pool.List[Job]) {
			match, removed = c.retireOlder(l, r.TaskID)
		})
		if match == nil {
			return OutcomeBadWork
		}
		d.complete(c, removed)
		return OutcomeNoNonce
	}

	// Validate outside the table lock.
	if !d.validator.Valid(&snapshot, r.Nonce) {
		return OutcomeBadNonce
	}

	var (
		match   *pool.Node[Job]
		removed []*pool.Node[Job]
	)
	c.table.Update(func(l *pool.List[Job]) {
		match, removed = c.retireOlder(l, r.TaskID)
		if match != nil {
			match.Value.Accepted++
			snapshot = match.Value
		}
	})
	if match == nil {
		// Retired while validating; its work is already completed.
		return OutcomeBadWork
	}
	d.accepted.Add(1)
	d.acceptedTotal.Add(1)
	d.validator.Submit(snapshot, r.Nonce)
	d.complete(c, removed)

	pkg.LogDebug(pkg.ComponentReconcile, "nonce accepted",
		"chip", r.Chip,
		"core", r.Core,
		"task", r.TaskID,
		"work", snapshot.Work.ID,
		"nonce", r.Nonce)
	return OutcomeGoodNonce
}

// complete reports retired jobs to the work source and recycles them.
func (d *Driver) complete(c *chip, removed []*pool.Node[Job]) {
	for _, n := range removed {
		d.source.Completed(n.Value)
		d.jobs.Release(n)
	}
	d.counters[c.id].completed.Add(uint64(len(removed)))
}
