// Candidate parser C library
//
// Builds the ICE candidate parser as a shared or static C library:
//
//	go build -buildmode=c-shared -o libcandidateparser.so ./cmd/libcandidateparser
//	go build -buildmode=c-archive -o libcandidateparser.a ./cmd/libcandidateparser
//
// The generated libcandidateparser.h includes candidateparser.h, which
// declares the IceCandidateFFI layout, and exports:
//
//	IceCandidateFFI *parse_ice_candidate_sdp(char *sdp);
//	IceCandidateFFI *parse_ice_candidate_sdp_len(char *sdp, size_t len);
//	void free_ice_candidate(IceCandidateFFI *candidate);
//
// Every non-NULL result of the parse functions must be passed to
// free_ice_candidate exactly once, after the caller is done reading it.
// A NULL result means the input was NULL or was not a valid candidate.
//
// Set PION_LOG_DEBUG=candidateparser to log why an input was rejected.
// testdata/example.c shows a complete caller.
package main

/*
#include <string.h>
#include "candidateparser.h"
*/
import "C"

import (
	"fmt"
	"log"
	"math"
	"unsafe"

	"github.com/pion/logging"

	"github.com/thesyncim/candidateparser/pkg/ffi"
)

// The Go mirrors must have exactly the size of the C structs.
var (
	_ [unsafe.Sizeof(C.IceCandidateFFI{}) - unsafe.Sizeof(ffi.Record{})]struct{}
	_ [unsafe.Sizeof(ffi.Record{}) - unsafe.Sizeof(C.IceCandidateFFI{})]struct{}
	_ [unsafe.Sizeof(C.KeyValuePair{}) - unsafe.Sizeof(ffi.KeyValuePair{})]struct{}
	_ [unsafe.Sizeof(ffi.KeyValuePair{}) - unsafe.Sizeof(C.KeyValuePair{})]struct{}
	_ [unsafe.Sizeof(C.KeyValueMap{}) - unsafe.Sizeof(ffi.KeyValueMap{})]struct{}
	_ [unsafe.Sizeof(ffi.KeyValueMap{}) - unsafe.Sizeof(C.KeyValueMap{})]struct{}
)

var marshaller *ffi.Marshaller

func init() {
	if err := checkLayout(); err != nil {
		log.Fatalf("candidateparser: %v", err)
	}

	var err error
	marshaller, err = ffi.NewMarshaller(
		ffi.WithAllocator(ffi.CHeap{}),
		ffi.WithLoggerFactory(logging.NewDefaultLoggerFactory()),
	)
	if err != nil {
		log.Fatalf("candidateparser: %v", err)
	}
}

// checkLayout compares the field offsets of the C IceCandidateFFI with the
// Go Record.
func checkLayout() error {
	var c C.IceCandidateFFI
	offsets := [...]uintptr{
		unsafe.Offsetof(c.foundation),
		unsafe.Offsetof(c.component_id),
		unsafe.Offsetof(c.transport),
		unsafe.Offsetof(c.priority),
		unsafe.Offsetof(c.connection_address),
		unsafe.Offsetof(c.port),
		unsafe.Offsetof(c.candidate_type),
		unsafe.Offsetof(c.rel_addr),
		unsafe.Offsetof(c.rel_port),
		unsafe.Offsetof(c.extensions),
	}
	if offsets != ffi.RecordOffsets {
		return fmt.Errorf("IceCandidateFFI layout %v does not match Go layout %v", offsets, ffi.RecordOffsets)
	}
	return nil
}

//export parse_ice_candidate_sdp
func parse_ice_candidate_sdp(sdp *C.char) *C.IceCandidateFFI {
	if sdp == nil {
		return nil
	}
	return parse(sdp, C.strlen(sdp))
}

//export parse_ice_candidate_sdp_len
func parse_ice_candidate_sdp_len(sdp *C.char, n C.size_t) *C.IceCandidateFFI {
	if sdp == nil {
		return nil
	}
	return parse(sdp, n)
}

//export free_ice_candidate
func free_ice_candidate(candidate *C.IceCandidateFFI) {
	marshaller.Release((*ffi.Record)(unsafe.Pointer(candidate)))
}

func parse(sdp *C.char, n C.size_t) *C.IceCandidateFFI {
	if n > math.MaxInt32 {
		return nil
	}
	// GoBytes never returns nil, so an empty line is a parse failure rather
	// than a null input.
	raw := C.GoBytes(unsafe.Pointer(sdp), C.int(n))

	rec, err := marshaller.Encode(raw)
	if err != nil {
		return nil
	}
	return (*C.IceCandidateFFI)(unsafe.Pointer(rec))
}

func main() {}
