package main

/*
#include <stdlib.h>
#include "candidateparser.h"
*/
import "C"

import (
	"unsafe"

	"github.com/thesyncim/candidateparser/pkg/ffi"
)

// The helpers below drive the exported functions with C memory, the way a
// C caller does. Tests use them since test files cannot use cgo.

// parseCString copies line into a NUL-terminated C buffer and calls
// parse_ice_candidate_sdp with it.
func parseCString(line string) *ffi.Record {
	cs := C.CString(line)
	defer C.free(unsafe.Pointer(cs))
	return toRecord(parse_ice_candidate_sdp(cs))
}

// parseNull calls parse_ice_candidate_sdp(NULL).
func parseNull() *ffi.Record {
	return toRecord(parse_ice_candidate_sdp(nil))
}

// parseBuffer copies buf into an unterminated C buffer and calls
// parse_ice_candidate_sdp_len with its first n bytes.
func parseBuffer(buf []byte, n int) *ffi.Record {
	if len(buf) == 0 {
		return toRecord(parse_ice_candidate_sdp_len(nil, C.size_t(n)))
	}
	p := C.CBytes(buf)
	defer C.free(p)
	return toRecord(parse_ice_candidate_sdp_len((*C.char)(p), C.size_t(n)))
}

// freeRecord calls free_ice_candidate.
func freeRecord(r *ffi.Record) {
	free_ice_candidate((*C.IceCandidateFFI)(unsafe.Pointer(r)))
}

func toRecord(c *C.IceCandidateFFI) *ffi.Record {
	return (*ffi.Record)(unsafe.Pointer(c))
}
