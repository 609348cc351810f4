// Package pool reuses device buffers across capture frames so steady-state
// capture performs no per-frame allocation.
package pool

import (
	"sync"

	"depthrig/internal/gpu"
)

// Pool owns idle device buffers keyed by element count. Acquire and Release
// are safe to call concurrently from the capture loop and from transfer
// completion callbacks; a single mutex guards the idle set.
type Pool struct {
	dev gpu.Device

	mu       sync.Mutex
	idle     map[int][]gpu.Buffer
	disposed bool

	allocated int64
	reused    int64
}

// New creates an empty pool allocating from dev.
func New(dev gpu.Device) *Pool {
	return &Pool{
		dev:  dev,
		idle: make(map[int][]gpu.Buffer),
	}
}

// Acquire returns a buffer of exactly elems capacity, reusing an idle one
// when available. The second result is true when the buffer was reused.
func (p *Pool) Acquire(elems int) (gpu.Buffer, bool) {
	p.mu.Lock()
	for {
		list := p.idle[elems]
		if p.disposed || len(list) == 0 {
			break
		}
		b := list[len(list)-1]
		p.idle[elems] = list[:len(list)-1]
		// Capacity must match the request exactly; anything else is
		// discarded rather than partially reused.
		if b.Cap() != elems {
			b.Destroy()
			continue
		}
		p.reused++
		p.mu.Unlock()
		return b, true
	}
	p.allocated++
	p.mu.Unlock()
	return p.dev.NewBuffer(elems), false
}

// Release returns b to the idle set. After Teardown the buffer is destroyed
// instead of pooled.
func (p *Pool) Release(b gpu.Buffer) {
	if b == nil {
		return
	}
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		b.Destroy()
		return
	}
	n := b.Cap()
	p.idle[n] = append(p.idle[n], b)
	p.mu.Unlock()
}

// Teardown destroys all idle buffers and marks the pool disposed. Buffers
// still in flight are destroyed as they come back through Release.
func (p *Pool) Teardown() {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return
	}
	p.disposed = true
	idle := p.idle
	p.idle = make(map[int][]gpu.Buffer)
	p.mu.Unlock()

	for _, list := range idle {
		for _, b := range list {
			b.Destroy()
		}
	}
}

// Stats reports lifetime allocation and reuse counts.
func (p *Pool) Stats() (allocated, reused int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.allocated, p.reused
}
