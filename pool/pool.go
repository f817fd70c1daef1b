package pool

import (
	"sync"

	"github.com/ardnew/hashspi/pkg"
)

// Pool is a grow-only arena of nodes plus the free list that recycles them.
type Pool[T any] struct {
	name  string
	batch int
	limit int // 0 = unbounded

	mu      sync.Mutex
	free    List[T]
	size    int
	growths int
}

// Stats is a point-in-time view of a pool.
type Stats struct {
	Name    string
	Size    int // Nodes in the arena
	Free    int // Nodes on the free list
	Growths int // Batches added after construction
}

// InUse returns the number of nodes outside the free list.
func (s Stats) InUse() int {
	return s.Size - s.Free
}

// New creates a pool that allocates nodes batch at a time, starting with one
// batch. A positive limit caps the arena size.
func New[T any](name string, batch, limit int) *Pool[T] {
	if batch < 1 {
		batch = 1
	}
	if limit < 0 {
		limit = 0
	}
	p := &Pool[T]{
		name:  name,
		batch: batch,
		limit: limit,
	}
	p.free = List[T]{name: name, pool: p}
	p.grow()
	return p
}

// Name returns the pool name.
func (p *Pool[T]) Name() string {
	return p.name
}

// grow adds up to one batch of nodes to the free list. Caller holds p.mu
// (or owns p exclusively). Returns the number of nodes added.
func (p *Pool[T]) grow() int {
	count := p.batch
	if p.limit > 0 && p.size+count > p.limit {
		count = p.limit - p.size
	}
	if count <= 0 {
		return 0
	}
	arena := make([]Node[T], count)
	for i := range arena {
		arena[i].pool = p
		p.free.PushBack(&arena[i])
	}
	p.size += count
	return count
}

// Acquire returns a detached node owned exclusively by the caller.
// The arena grows by one batch when the free list is empty; once the
// capacity cap is reached Acquire returns [pkg.ErrPoolExhausted].
func (p *Pool[T]) Acquire() (*Node[T], error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.free.Len() == 0 {
		if p.grow() == 0 {
			return nil, pkg.ErrPoolExhausted
		}
		p.growths++
		pkg.LogDebug(pkg.ComponentPool, "pool grown",
			"pool", p.name,
			"size", p.size)
	}
	return p.free.PopFront(), nil
}

// MustAcquire is like Acquire but panics when the pool is exhausted.
// Use it only with unbounded pools.
func (p *Pool[T]) MustAcquire() *Node[T] {
	n, err := p.Acquire()
	if err != nil {
		misuse("acquire", p.name, "%v", err)
	}
	return n
}

// Release zeroes the node's value and returns it to the head of the free
// list. The node must be detached and belong to this pool.
func (p *Pool[T]) Release(n *Node[T]) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.free.checkInsert("release", n)
	var zero T
	n.Value = zero
	n.gen++
	p.free.PushFront(n)
}

// Stats returns the pool's current occupancy.
func (p *Pool[T]) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Name:    p.name,
		Size:    p.size,
		Free:    p.free.Len(),
		Growths: p.growths,
	}
}
