package driver

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/ardnew/hashspi/bus"
	"github.com/ardnew/hashspi/bus/hal"
	"github.com/ardnew/hashspi/pkg"
	"github.com/ardnew/hashspi/pool"
)

// Driver owns a chip chain on one bus and runs the dispatch pipeline.
type Driver struct {
	id        uuid.UUID
	cfg       Config
	bus       hal.Transport
	source    WorkSource
	validator Validator

	jobs     *pool.Pool[Job]
	requests *pool.Pool[Request]
	replies  *pool.Pool[Reply]

	pending *pool.Store[Job]
	txq     *pool.Store[Request]
	replyq  *pool.Store[Reply]

	chips    []*chip
	counters []chipCounters

	// fill serialises fill passes and flushes; it guards tasks.
	fill  sync.Mutex
	tasks taskIDs

	accepted      atomic.Uint64 // Drained by DrainAcceptedNonceCount
	acceptedTotal atomic.Uint64
	oversize      atomic.Uint64

	// Transmitter wakeup, signalled on every enqueue.
	txKick chan struct{}
	// Reconciler wakeup, signalled on every reply.
	rxKick chan struct{}
	// Result-read payloads from the transmitter to the poller.
	polled  chan pollResult
	pollSeq uint32 // Poller only

	running  bool
	starting bool // Detection in progress
	mutex    sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a driver for the chain on t. Nothing touches the bus until
// Start.
func New(cfg Config, t hal.Transport, source WorkSource, validator Validator) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if t == nil || source == nil || validator == nil {
		return nil, fmt.Errorf("%w: transport, work source and validator are required", pkg.ErrInvalidParameter)
	}

	d := &Driver{
		id:        uuid.New(),
		cfg:       cfg,
		bus:       t,
		source:    source,
		validator: validator,
		jobs:      pool.New[Job]("jobs", cfg.PoolBatch, cfg.JobLimit),
		requests:  pool.New[Request]("requests", cfg.PoolBatch, cfg.RequestLimit),
		replies:   pool.New[Reply]("replies", cfg.PoolBatch, cfg.ReplyLimit),
		tasks:     newTaskIDs(),
		counters:  make([]chipCounters, cfg.Chips),
		txKick:    make(chan struct{}, 1),
		rxKick:    make(chan struct{}, 1),
		polled:    make(chan pollResult, 1),
	}
	d.pending = pool.NewStore("pending", d.jobs)
	d.txq = pool.NewStore("transmit", d.requests)
	d.replyq = pool.NewStore("replies", d.replies)
	d.chips = make([]*chip, cfg.Chips)
	for i := range d.chips {
		d.chips[i] = newChip(i, d.jobs)
	}
	return d, nil
}

// ID returns the driver instance id used in log records.
func (d *Driver) ID() uuid.UUID {
	return d.id
}

// Config returns the driver configuration.
func (d *Driver) Config() Config {
	return d.cfg
}

// Start detects and initialises the chips, then starts the transmitter,
// poller and reconciler. It fails with [pkg.ErrNoChip] if no enabled chip
// answers.
func (d *Driver) Start(ctx context.Context) error {
	d.mutex.Lock()
	if d.running || d.starting {
		d.mutex.Unlock()
		return pkg.ErrAlreadyRunning
	}
	d.starting = true
	d.ctx, d.cancel = context.WithCancel(ctx)
	d.mutex.Unlock()

	active, err := d.detect(d.ctx)

	d.mutex.Lock()
	d.starting = false
	if err != nil {
		d.cancel()
		d.mutex.Unlock()
		return err
	}
	d.running = true
	d.mutex.Unlock()

	pkg.LogInfo(pkg.ComponentDriver, "driver started",
		"driver", d.id,
		"chips", active)

	d.wg.Add(3)
	go d.transmitLoop(d.ctx)
	go d.pollLoop(d.ctx)
	go d.reconcileLoop(d.ctx)
	return nil
}

// detect marks the chips that answer their signature read as present and
// every other chip absent.
func (d *Driver) detect(ctx context.Context) (int, error) {
	for _, c := range d.chips {
		c.present = false
	}
	present := bus.Probe(ctx, d.bus, d.cfg.Chips, d.cfg.Enabled, d.cfg.DetectRetries)
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	active := 0
	for i, ok := range present {
		if !ok {
			continue
		}
		c := d.chips[i]
		if !d.cfg.SkipInit {
			cores, err := bus.InitChip(ctx, d.bus, c.id)
			if err != nil {
				pkg.LogWarn(pkg.ComponentDriver, "chip init failed",
					"chip", i,
					"error", err)
				continue
			}
			c.cores = cores
		}
		c.present = true
		active++
	}
	if active == 0 {
		return 0, fmt.Errorf("%w: none of %d addresses answered", pkg.ErrNoChip, d.cfg.Chips)
	}
	return active, nil
}

// Stop cancels the workers, waits for them to exit and recycles every job.
// Pending and in-flight jobs are reported to the work source as discarded.
func (d *Driver) Stop() error {
	d.mutex.Lock()
	if !d.running {
		d.mutex.Unlock()
		return pkg.ErrNotRunning
	}
	d.running = false
	d.cancel()
	d.mutex.Unlock()

	d.wg.Wait()
	d.teardown()

	pkg.LogInfo(pkg.ComponentDriver, "driver stopped", "driver", d.id)
	return nil
}

// IsRunning returns true if the workers are running.
func (d *Driver) IsRunning() bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.running
}

// Active returns the addresses of the chips in use.
func (d *Driver) Active() []int {
	var out []int
	for _, c := range d.chips {
		if c.present {
			out = append(out, int(c.id))
		}
	}
	return out
}

// Telemetry returns the latest status reported by chip.
func (d *Driver) Telemetry(chip int) (ChipTelemetry, bool) {
	c := d.chip(chip)
	if c == nil {
		return ChipTelemetry{}, false
	}
	return c.getTelemetry(), true
}

func (d *Driver) chip(id int) *chip {
	if id < 0 || id >= len(d.chips) || !d.chips[id].present {
		return nil
	}
	return d.chips[id]
}

// teardown returns every node to its pool once the workers have exited.
func (d *Driver) teardown() {
	d.fill.Lock()
	defer d.fill.Unlock()

	var jobs []*pool.Node[Job]
	d.pending.Update(func(l *pool.List[Job]) {
		jobs = append(jobs, l.DetachAll()...)
	})
	for _, c := range d.chips {
		c.table.Update(func(l *pool.List[Job]) {
			jobs = append(jobs, l.DetachAll()...)
			c.stale = 0
		})
	}
	d.txq.Update(func(l *pool.List[Request]) {
		for _, n := range l.DetachAll() {
			d.requests.Release(n)
		}
	})
	d.replyq.Update(func(l *pool.List[Reply]) {
		for _, n := range l.DetachAll() {
			d.replies.Release(n)
		}
	})
	d.discard(jobs)
}

// discard reports detached jobs to the work source and recycles them.
func (d *Driver) discard(jobs []*pool.Node[Job]) {
	for _, n := range jobs {
		d.source.Discarded(n.Value)
		d.jobs.Release(n)
	}
}

// enqueue links a request at the head of the transmit queue and wakes the
// transmitter.
func (d *Driver) enqueue(n *pool.Node[Request]) {
	d.txq.PushFront(n)
	kick(d.txKick)
}

func kick(c chan struct{}) {
	select {
	case c <- struct{}{}:
	default:
	}
}

// acquireRequest takes a request node, logging exhaustion.
func (d *Driver) acquireRequest(component pkg.Component) *pool.Node[Request] {
	n, err := d.requests.Acquire()
	if err != nil {
		pkg.LogWarn(component, "cannot queue request", "error", err)
		return nil
	}
	return n
}
