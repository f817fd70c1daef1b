package sim

import "github.com/ardnew/hashspi/bus"

// SetPresent connects or disconnects chip. An absent chip clocks in zeros.
func (c *Chain) SetPresent(chip int, present bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if chip >= 0 && chip < len(c.chips) {
		c.chips[chip].present = present
	}
}

// SetSignature changes the signature chip answers with.
func (c *Chain) SetSignature(chip int, sig [bus.SignatureSize]byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if chip >= 0 && chip < len(c.chips) {
		c.chips[chip].signature = sig
	}
}

// InjectShort makes the next n transactions acknowledge one byte less than
// requested.
func (c *Chain) InjectShort(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shortNext += n
}

// InjectError makes the next n transactions fail with a transport error.
func (c *Chain) InjectError(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errNext += n
}

// SetWideReplies appends extra bytes to every reply.
func (c *Chain) SetWideReplies(extra int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wide = max(extra, 0)
}

// PushResult queues a raw result record on chip, bypassing job processing.
func (c *Chain) PushResult(chip int, r bus.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if chip >= 0 && chip < len(c.chips) {
		c.push(c.chips[chip], r)
	}
}

// Queued returns the number of jobs buffered on chip.
func (c *Chain) Queued(chip int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if chip < 0 || chip >= len(c.chips) {
		return 0
	}
	return len(c.chips[chip].queue)
}

// Submitted returns the task ids written to chip, oldest first.
func (c *Chain) Submitted(chip int) []uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if chip < 0 || chip >= len(c.chips) {
		return nil
	}
	return append([]uint16(nil), c.chips[chip].history...)
}

// Resets returns the number of reset control writes chip received.
func (c *Chain) Resets(chip int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if chip < 0 || chip >= len(c.chips) {
		return 0
	}
	return c.chips[chip].resets
}

// Stride returns the nonce stride last written to chip.
func (c *Chain) Stride(chip int) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if chip < 0 || chip >= len(c.chips) {
		return 0
	}
	return c.chips[chip].stride
}

// Stats returns chain activity counters.
func (c *Chain) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Checker validates nonces produced by the simulated chain.
type Checker struct {
	NoncesPerJob int
}

// Check reports whether nonce is one of the valid nonces of data.
func (k Checker) Check(data []byte, nonce uint32) bool {
	for i := 0; i < k.NoncesPerJob; i++ {
		if Nonce(data, i) == nonce {
			return true
		}
	}
	return false
}
