package ffi

import "unsafe"

// KeyValuePair matches KeyValuePair in candidateparser.h.
type KeyValuePair struct {
	Key    *byte
	KeyLen uintptr
	Val    *byte
	ValLen uintptr
}

// KeyValueMap matches KeyValueMap in candidateparser.h.
// Len is the number of elements behind Values.
type KeyValueMap struct {
	Values *KeyValuePair
	Len    uintptr
}

// Record matches IceCandidateFFI in candidateparser.h.
type Record struct {
	Foundation        *byte
	ComponentID       uint32
	Transport         *byte
	Priority          uint64
	ConnectionAddress *byte
	Port              uint16
	CandidateType     *byte

	// RelAddr is nil when the candidate has no related address, in which
	// case RelPort is 0.
	RelAddr *byte
	RelPort uint16

	Extensions KeyValueMap
}

const (
	recordSize = unsafe.Sizeof(Record{})
	pairSize   = unsafe.Sizeof(KeyValuePair{})
)

// Offsets of every Record field, in declaration order. The c-shared library
// compares these against the C compiler's layout at startup.
var RecordOffsets = [...]uintptr{
	unsafe.Offsetof(Record{}.Foundation),
	unsafe.Offsetof(Record{}.ComponentID),
	unsafe.Offsetof(Record{}.Transport),
	unsafe.Offsetof(Record{}.Priority),
	unsafe.Offsetof(Record{}.ConnectionAddress),
	unsafe.Offsetof(Record{}.Port),
	unsafe.Offsetof(Record{}.CandidateType),
	unsafe.Offsetof(Record{}.RelAddr),
	unsafe.Offsetof(Record{}.RelPort),
	unsafe.Offsetof(Record{}.Extensions),
}

// pairs returns the extension array as a slice over C memory.
func (m KeyValueMap) pairs() []KeyValuePair {
	if m.Values == nil || m.Len == 0 {
		return nil
	}
	return unsafe.Slice(m.Values, m.Len)
}
