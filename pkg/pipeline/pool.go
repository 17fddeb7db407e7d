package pipeline

import "sync"

// DefaultPoolCapacity bounds how many idle pipelines a pool retains.
const DefaultPoolCapacity = 8

// Factory constructs a configured pipeline for the pool.
type Factory func() *Pipeline

// Pool is a bounded object pool of pipelines, for high-frequency scenarios
// (list cells) where allocating a pipeline per render would churn.
type Pool struct {
	mu       sync.Mutex
	free     []*Pipeline
	capacity int
	factory  Factory
}

// NewPool creates a pool that builds pipelines with the factory. A
// non-positive capacity uses DefaultPoolCapacity.
func NewPool(capacity int, factory Factory) *Pool {
	if capacity <= 0 {
		capacity = DefaultPoolCapacity
	}
	return &Pool{capacity: capacity, factory: factory}
}

// Acquire returns a reset pipeline, reusing an idle one when available.
func (p *Pool) Acquire() *Pipeline {
	p.mu.Lock()
	var pl *Pipeline
	if n := len(p.free); n > 0 {
		pl = p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
	}
	p.mu.Unlock()

	if pl == nil {
		pl = p.factory()
	}
	pl.Reset()
	return pl
}

// Release resets the pipeline and returns it to the pool, or drops it when
// the pool is at capacity.
func (p *Pool) Release(pl *Pipeline) {
	if pl == nil {
		return
	}
	pl.Reset()
	p.mu.Lock()
	if len(p.free) < p.capacity {
		p.free = append(p.free, pl)
	}
	p.mu.Unlock()
}

// Idle returns how many pipelines are currently pooled.
func (p *Pool) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}
