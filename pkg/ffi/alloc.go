package ffi

import (
	"sync"
	"unsafe"
)

// Allocator hands out blocks that a foreign caller can read.
//
// Alloc returns a block of exactly size bytes; size is always positive.
// Free releases a block returned by Alloc.
type Allocator interface {
	Alloc(size uintptr) (unsafe.Pointer, error)
	Free(p unsafe.Pointer)
}

// AllocStats is a snapshot of a CountingAllocator.
type AllocStats struct {
	Live         int     // blocks allocated and not yet freed
	LiveBytes    uintptr // bytes held by live blocks
	Allocs       uint64  // successful allocations
	Frees        uint64  // frees of live blocks
	InvalidFrees uint64  // frees of unknown or already freed pointers
}

// CountingAllocator wraps an Allocator and tracks every live block.
// Frees of pointers it does not know are counted and not forwarded.
// It is safe for concurrent use.
type CountingAllocator struct {
	inner Allocator

	mu    sync.Mutex
	live  map[unsafe.Pointer]uintptr
	stats AllocStats
}

// NewCountingAllocator returns a CountingAllocator over inner.
func NewCountingAllocator(inner Allocator) *CountingAllocator {
	return &CountingAllocator{
		inner: inner,
		live:  make(map[unsafe.Pointer]uintptr),
	}
}

// Alloc implements Allocator.
func (a *CountingAllocator) Alloc(size uintptr) (unsafe.Pointer, error) {
	p, err := a.inner.Alloc(size)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	a.live[p] = size
	a.stats.Live++
	a.stats.LiveBytes += size
	a.stats.Allocs++
	a.mu.Unlock()
	return p, nil
}

// Free implements Allocator.
func (a *CountingAllocator) Free(p unsafe.Pointer) {
	a.mu.Lock()
	size, ok := a.live[p]
	if !ok {
		a.stats.InvalidFrees++
		a.mu.Unlock()
		return
	}
	delete(a.live, p)
	a.stats.Live--
	a.stats.LiveBytes -= size
	a.stats.Frees++
	a.mu.Unlock()

	a.inner.Free(p)
}

// Stats returns the current counters.
func (a *CountingAllocator) Stats() AllocStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// Size returns the size of a live block.
func (a *CountingAllocator) Size(p unsafe.Pointer) (uintptr, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	size, ok := a.live[p]
	return size, ok
}

// allocationList records the blocks made by one encode so they can be
// returned if the encode fails part way.
type allocationList struct {
	blocks []unsafe.Pointer
}

func (l *allocationList) add(p unsafe.Pointer) {
	l.blocks = append(l.blocks, p)
}

// free releases every recorded block, newest first.
func (l *allocationList) free(a Allocator) {
	for i := len(l.blocks) - 1; i >= 0; i-- {
		a.Free(l.blocks[i])
	}
	l.blocks = l.blocks[:0]
}
