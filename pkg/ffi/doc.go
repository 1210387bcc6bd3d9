// Package ffi marshals parsed ICE candidates into C-readable memory and
// releases them again.
//
// A Record and everything it points to lives on the C heap. Encode builds
// the whole graph in one call and hands it to the caller; Release takes the
// same pointer and frees every block reachable from it. Nothing is retained
// between the two calls, so records are independent and Encode and Release
// may run concurrently on different records.
//
// # Layout
//
// Record mirrors the C struct IceCandidateFFI declared in
// cmd/libcandidateparser/candidateparser.h:
//
//	typedef struct {
//	    const uint8_t *key;
//	    size_t key_len;
//	    const uint8_t *val;
//	    size_t val_len;
//	} KeyValuePair;
//
//	typedef struct {
//	    const KeyValuePair *values;
//	    size_t len;
//	} KeyValueMap;
//
//	typedef struct {
//	    const char *foundation;
//	    uint32_t component_id;
//	    const char *transport;
//	    uint64_t priority;
//	    const char *connection_address;
//	    uint16_t port;
//	    const char *candidate_type;
//	    const char *rel_addr;   // NULL when absent
//	    uint16_t rel_port;      // 0 when absent
//	    KeyValueMap extensions; // values may be NULL when len is 0
//	} IceCandidateFFI;
//
// # Ownership
//
// Every string is a NUL-terminated block of exactly len+1 bytes. Every
// extension key and value is a block of exactly its recorded length, with no
// terminator; a zero-length key or value is a NULL pointer. The extension
// array holds exactly len elements. Release relies on nothing but these
// recorded pointers and lengths.
//
// A nil record from Encode always comes with an error and leaves nothing
// allocated. A non-nil record must be passed to Release exactly once.
//
// # Allocation
//
// CHeap is the production allocator. CountingAllocator wraps any allocator
// and tracks live blocks, which is how tests and the soak runner verify that
// an encode/release cycle returns to its baseline.
//
// # Logging
//
// The Marshaller logs through pion/logging under the "candidateparser"
// scope. With the default factory the level is controlled by the
// PION_LOG_TRACE, PION_LOG_DEBUG, PION_LOG_INFO, PION_LOG_WARN and
// PION_LOG_ERROR environment variables.
package ffi
