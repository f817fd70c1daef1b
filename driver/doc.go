// Package driver dispatches search work to the chips of a serial bus chain
// and reconciles the results they report.
//
// # Architecture
//
// Three goroutines run for the lifetime of a started [Driver]:
//
//   - the transmitter, the only code that touches the bus once the driver
//     is running; it sends queued requests oldest first, paces job submits,
//     and interleaves a jittered status read per chip
//   - the poller, which keeps asking each chip for result records and
//     queues every genuine record as a Reply
//   - the reconciler, which matches replies against the chip's job table,
//     validates nonces and retires superseded jobs
//
// A higher-level scan loop feeds the driver by calling [Driver.FillQueues]
// periodically and [Driver.Flush] when the work it handed out is obsolete.
//
// # Data flow
//
//	WorkSource -> pending -> FillQueues -> chip table + transmit queue
//	transmit queue -> bus -> chip
//	chip -> poller -> reply queue -> reconciler -> Validator / WorkSource
//
// Jobs, requests and replies are pooled nodes (see package pool). Each
// container has its own lock; no lock is held across a bus transaction.
// When more than one lock is needed they are taken in this order:
// fill pass, pending queue, chip table, transmit queue, pools.
//
// # Task ids
//
// Every dispatched job gets a 16-bit task id from a wrapping counter that
// skips zero. Within a chip, ids are dispatched and transmitted in counter
// order, so a chip table is always newest first. When a reply for a job is
// reconciled every older entry of that table is provably finished and is
// completed and recycled.
package driver
