package ffi

/*
#include <stdlib.h>
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// CHeap allocates with the C library's malloc and free, so blocks can be
// read and outlived by C callers.
type CHeap struct{}

// Alloc implements Allocator.
func (CHeap) Alloc(size uintptr) (unsafe.Pointer, error) {
	if size == 0 {
		return nil, fmt.Errorf("%w: zero-sized block", ErrAllocation)
	}
	p := C.malloc(C.size_t(size))
	if p == nil {
		return nil, fmt.Errorf("%w: malloc(%d)", ErrAllocation, size)
	}
	return p, nil
}

// Free implements Allocator.
func (CHeap) Free(p unsafe.Pointer) {
	C.free(p)
}

// cString copies a NUL-terminated C string.
func cString(p *byte) string {
	if p == nil {
		return ""
	}
	return C.GoString((*C.char)(unsafe.Pointer(p)))
}

// cBytes copies n bytes of C memory.
func cBytes(p *byte, n uintptr) []byte {
	if p == nil || n == 0 {
		return nil
	}
	return C.GoBytes(unsafe.Pointer(p), C.int(n))
}
