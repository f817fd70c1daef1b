package sim

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"

	"github.com/ardnew/hashspi/bus"
	"github.com/ardnew/hashspi/pkg"
)

// Chain limits.
const (
	maxResults = 256  // Result records buffered per chip
	maxHistory = 1024 // Task ids remembered per chip
)

// ErrInjected is returned by transactions failed through InjectError.
var ErrInjected = errors.New("injected bus fault")

// Config describes the simulated chain.
type Config struct {
	Chips        int // Addresses on the chain
	Cores        int // Cores per chip
	QueueDepth   int // Jobs a chip buffers
	JobTicks     int // Ticks to finish the head job
	NoncesPerJob int // Valid nonces emitted per job
	BadEvery     int // Every Nth emitted nonce is corrupted (0 = never)
}

// DefaultConfig returns a small chain suitable for demos.
func DefaultConfig() Config {
	return Config{
		Chips:        4,
		Cores:        32,
		QueueDepth:   4,
		JobTicks:     8,
		NoncesPerJob: 2,
	}
}

type job struct {
	taskID uint16
	data   []byte
}

type chip struct {
	present   bool
	signature [bus.SignatureSize]byte
	avail     bus.CoreMap
	enabled   bus.CoreMap
	stride    uint32
	queue     []job
	results   []bus.Result
	ticks     int
	resets    int
	overflow  int
	history   []uint16
}

// Stats counts chain activity.
type Stats struct {
	Transactions int
	Jobs         int // Job-submit writes accepted
	Completed    int // Jobs finished by a chip
	Results      int // Result records emitted
	Faults       int // Injected faults delivered
}

// Chain is a simulated chip chain. It is safe for concurrent use.
type Chain struct {
	mu     sync.Mutex
	cfg    Config
	chips  []*chip
	stats  Stats
	closed bool

	shortNext int // Pending short-transfer faults
	errNext   int // Pending transport-error faults
	wide      int // Extra bytes appended to every reply
	emitted   int
}

// New creates a chain with every chip present and all cores available.
func New(cfg Config) *Chain {
	if cfg.Chips < 1 {
		cfg.Chips = 1
	}
	if cfg.Chips > 256 {
		cfg.Chips = 256
	}
	if cfg.Cores < 1 {
		cfg.Cores = 1
	}
	if cfg.Cores >= bus.MaxCores {
		cfg.Cores = bus.MaxCores - 1
	}
	if cfg.QueueDepth < 1 {
		cfg.QueueDepth = 1
	}
	if cfg.JobTicks < 1 {
		cfg.JobTicks = 1
	}
	c := &Chain{cfg: cfg, chips: make([]*chip, cfg.Chips)}
	for i := range c.chips {
		c.chips[i] = &chip{
			present:   true,
			signature: bus.Signature,
			avail:     bus.AllCores(cfg.Cores),
			enabled:   bus.AllCores(cfg.Cores),
		}
	}
	return c
}

// Config returns the chain configuration.
func (c *Chain) Config() Config {
	return c.cfg
}

// Nonce returns the i-th valid nonce of a job's work data.
func Nonce(data []byte, i int) uint32 {
	h := fnv.New32a()
	h.Write(data)
	h.Write([]byte{byte(i), byte(i >> 8)})
	return h.Sum32()
}

// Transact implements hal.Transport.
func (c *Chain) Transact(ctx context.Context, tx []byte, rxLen int) (int, []byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, nil, pkg.ErrClosed
	}
	c.stats.Transactions++

	if c.errNext > 0 {
		c.errNext--
		c.stats.Faults++
		c.tick()
		return 0, nil, ErrInjected
	}

	if rxLen < len(tx) {
		rxLen = len(tx)
	}
	rx := make([]byte, rxLen, rxLen+c.wide)

	var f bus.Frame
	if bus.ParseFrame(tx, &f) && int(f.Chip) < len(c.chips) && c.chips[f.Chip].present {
		resp := rx[len(tx)-f.RespLen : len(tx)]
		c.handle(c.chips[f.Chip], &f, resp)
	}
	c.tick()

	if c.wide > 0 {
		rx = rx[:rxLen+c.wide]
	}

	n := len(tx)
	if c.shortNext > 0 {
		c.shortNext--
		c.stats.Faults++
		n--
	}
	return n, rx, nil
}

// Close implements hal.Transport.
func (c *Chain) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *Chain) handle(ch *chip, f *bus.Frame, resp []byte) {
	switch {
	case f.Read && f.Register == bus.RegSignature:
		copy(resp, ch.signature[:])

	case f.Read && f.Register == bus.RegStatus:
		st := bus.Status{
			Temp:   uint8(50 + len(ch.queue)),
			Queued: uint8(len(ch.queue)),
			Ready:  uint8(min(len(ch.results), 255)),
			Cores:  uint16(ch.enabled.Count()),
		}
		st.MarshalTo(resp)

	case f.Read && f.Register == bus.RegCoreEnable:
		copy(resp, ch.enabled[:])

	case f.Read && f.Register == bus.RegResult:
		for off := 0; off+bus.ResultSize <= len(resp) && len(ch.results) > 0; off += bus.ResultSize {
			ch.results[0].MarshalTo(resp[off:])
			ch.results = ch.results[1:]
		}

	case f.Register == bus.RegCoreEnable:
		for i := range ch.enabled {
			if i < len(f.Payload) {
				ch.enabled[i] = f.Payload[i] & ch.avail[i]
			}
		}

	case f.Register == bus.RegNonceRange:
		if len(f.Payload) >= bus.NonceRangeSize {
			ch.stride = uint32(f.Payload[0]) | uint32(f.Payload[1])<<8 |
				uint32(f.Payload[2])<<16 | uint32(f.Payload[3])<<24
		}

	case f.Register == bus.RegControl:
		if len(f.Payload) == 0 {
			return
		}
		if f.Payload[0]&bus.CtrlReset != 0 {
			ch.results = nil
			ch.ticks = 0
			ch.resets++
		}
		if f.Payload[0]&bus.CtrlFlushQueue != 0 {
			ch.queue = nil
			ch.ticks = 0
		}

	case f.Register == bus.RegJobSubmit:
		taskID, data, ok := bus.DecodeJob(f.Payload)
		if !ok {
			return
		}
		if len(ch.queue) >= c.cfg.QueueDepth {
			ch.queue = ch.queue[1:]
			ch.overflow++
		}
		ch.queue = append(ch.queue, job{taskID: taskID, data: append([]byte(nil), data...)})
		ch.history = append(ch.history, taskID)
		if len(ch.history) > maxHistory {
			ch.history = append([]uint16(nil), ch.history[len(ch.history)-maxHistory/2:]...)
		}
		c.stats.Jobs++
	}
}

// tick advances every chip by one step. Caller holds c.mu.
func (c *Chain) tick() {
	for _, ch := range c.chips {
		if !ch.present || len(ch.queue) == 0 {
			continue
		}
		ch.ticks++
		if ch.ticks < c.cfg.JobTicks {
			continue
		}
		ch.ticks = 0
		j := ch.queue[0]
		ch.queue = ch.queue[1:]
		c.stats.Completed++

		cores := max(ch.enabled.Count(), 1)
		for i := 0; i < c.cfg.NoncesPerJob; i++ {
			nonce := Nonce(j.data, i)
			c.emitted++
			if c.cfg.BadEvery > 0 && c.emitted%c.cfg.BadEvery == 0 {
				nonce ^= 0xA5A5A5A5
			}
			// Core ids start at 1: core 0 with no flags reads as "no result".
			c.push(ch, bus.Result{Core: uint8(1 + i%cores), TaskID: j.taskID, Nonce: nonce})
		}
		c.push(ch, bus.Result{Core: 1, Flags: bus.ResultNoNonce, TaskID: j.taskID})
	}
}

func (c *Chain) push(ch *chip, r bus.Result) {
	if len(ch.results) >= maxResults {
		ch.results = ch.results[1:]
	}
	ch.results = append(ch.results, r)
	c.stats.Results++
}
