package ffi

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func TestRecordLayout(t *testing.T) {
	for i := 1; i < len(RecordOffsets); i++ {
		assert.Greater(t, RecordOffsets[i], RecordOffsets[i-1], "field %d", i)
	}

	if unsafe.Sizeof(uintptr(0)) != 8 {
		t.Skip("expected offsets are for 64-bit platforms")
	}
	assert.Equal(t, [...]uintptr{0, 8, 16, 24, 32, 40, 48, 56, 64, 72}, RecordOffsets)
	assert.Equal(t, uintptr(88), recordSize)
	assert.Equal(t, uintptr(32), pairSize)
	assert.Equal(t, uintptr(16), unsafe.Sizeof(KeyValueMap{}))
}

func TestCountingAllocator(t *testing.T) {
	counter := NewCountingAllocator(CHeap{})

	p, err := counter.Alloc(16)
	assert.NoError(t, err)
	q, err := counter.Alloc(4)
	assert.NoError(t, err)

	stats := counter.Stats()
	assert.Equal(t, 2, stats.Live)
	assert.Equal(t, uintptr(20), stats.LiveBytes)

	size, ok := counter.Size(q)
	assert.True(t, ok)
	assert.Equal(t, uintptr(4), size)

	counter.Free(p)
	counter.Free(p) // double free is counted, not forwarded
	counter.Free(q)

	stats = counter.Stats()
	assert.Zero(t, stats.Live)
	assert.Zero(t, stats.LiveBytes)
	assert.Equal(t, uint64(2), stats.Allocs)
	assert.Equal(t, uint64(2), stats.Frees)
	assert.Equal(t, uint64(1), stats.InvalidFrees)
}

func TestCHeap_ZeroSize(t *testing.T) {
	p, err := CHeap{}.Alloc(0)
	assert.Nil(t, p)
	assert.ErrorIs(t, err, ErrAllocation)
}

func TestAllocationList_FreesNewestFirst(t *testing.T) {
	var order []unsafe.Pointer
	rec := &recordingAllocator{freed: &order}

	var l allocationList
	a, _ := rec.Alloc(1)
	b, _ := rec.Alloc(1)
	l.add(a)
	l.add(b)
	l.free(rec)

	assert.Equal(t, []unsafe.Pointer{b, a}, order)
	assert.Empty(t, l.blocks)
}

type recordingAllocator struct {
	CHeap
	freed *[]unsafe.Pointer
}

func (r *recordingAllocator) Free(p unsafe.Pointer) {
	*r.freed = append(*r.freed, p)
	r.CHeap.Free(p)
}
