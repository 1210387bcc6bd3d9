package ffi

import (
	"errors"
	"fmt"
	"strings"
	"unsafe"

	"github.com/pion/logging"

	"github.com/thesyncim/candidateparser/pkg/candidate"
)

var (
	// ErrNullInput is returned for a nil input; the parser is not invoked.
	ErrNullInput = errors.New("ffi: null input")

	// ErrParse wraps the parser's error when the input is not a candidate.
	ErrParse = errors.New("ffi: parse failure")

	// ErrEmbeddedNUL is returned when a string field contains a NUL byte and
	// so cannot be represented as a C string.
	ErrEmbeddedNUL = errors.New("ffi: embedded NUL in string field")

	// ErrAllocation is returned when the allocator cannot provide a block.
	ErrAllocation = errors.New("ffi: allocation failed")

	// ErrInputTooLarge is returned for inputs above the configured limit.
	ErrInputTooLarge = errors.New("ffi: input too large")
)

// DefaultMaxInputSize is the default limit on the length of an encoded line.
const DefaultMaxInputSize = 64 << 10

// maxExtensions bounds the extension array so its byte size cannot overflow.
const maxExtensions = (1<<31 - 1) / pairSize

// Option configures a Marshaller.
type Option func(*Marshaller) error

// WithAllocator sets the allocator records are built from.
// Default: CHeap.
func WithAllocator(a Allocator) Option {
	return func(m *Marshaller) error {
		if a == nil {
			return errors.New("allocator must not be nil")
		}
		m.alloc = a
		return nil
	}
}

// WithLoggerFactory sets the factory the Marshaller's logger is created from.
// Default: logging.NewDefaultLoggerFactory().
func WithLoggerFactory(f logging.LoggerFactory) Option {
	return func(m *Marshaller) error {
		if f == nil {
			return errors.New("logger factory must not be nil")
		}
		m.loggerFactory = f
		return nil
	}
}

// WithMaxInputSize limits the length of lines passed to Encode.
// Default: DefaultMaxInputSize.
func WithMaxInputSize(n int) Option {
	return func(m *Marshaller) error {
		if n <= 0 {
			return errors.New("max input size must be positive")
		}
		m.maxInputSize = n
		return nil
	}
}

// Marshaller converts parsed candidates into Records and releases them.
// It holds no per-record state and is safe for concurrent use as long as
// its Allocator is.
type Marshaller struct {
	alloc         Allocator
	loggerFactory logging.LoggerFactory
	log           logging.LeveledLogger
	maxInputSize  int
}

// NewMarshaller creates a Marshaller configured by opts.
//
// Example:
//
//	counter := ffi.NewCountingAllocator(ffi.CHeap{})
//	m, err := ffi.NewMarshaller(ffi.WithAllocator(counter))
//	if err != nil {
//	    return err
//	}
//	rec, err := m.Encode(line)
//	if err != nil {
//	    return err
//	}
//	defer m.Release(rec)
func NewMarshaller(opts ...Option) (*Marshaller, error) {
	m := &Marshaller{
		alloc:        CHeap{},
		maxInputSize: DefaultMaxInputSize,
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	if m.loggerFactory == nil {
		m.loggerFactory = logging.NewDefaultLoggerFactory()
	}
	m.log = m.loggerFactory.NewLogger("candidateparser")
	return m, nil
}

// Encode parses sdp and builds a Record from it.
//
// A nil sdp returns ErrNullInput without parsing. Inputs the parser rejects
// return an error wrapping ErrParse. On any error the returned Record is nil
// and nothing is left allocated.
func (m *Marshaller) Encode(sdp []byte) (*Record, error) {
	if sdp == nil {
		return nil, ErrNullInput
	}
	if len(sdp) > m.maxInputSize {
		m.log.Debugf("rejecting %d byte input, limit is %d", len(sdp), m.maxInputSize)
		return nil, fmt.Errorf("%w: %d bytes", ErrInputTooLarge, len(sdp))
	}

	c, err := candidate.Parse(sdp)
	if err != nil {
		m.log.Debugf("parse failed: %v", err)
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return m.EncodeCandidate(c)
}

// EncodeCandidate builds a Record from an already parsed candidate.
func (m *Marshaller) EncodeCandidate(c *candidate.Candidate) (*Record, error) {
	if c == nil {
		return nil, ErrNullInput
	}

	enc := encoder{alloc: m.alloc}
	rec, err := enc.record(c)
	if err != nil {
		enc.blocks.free(m.alloc)
		m.log.Warnf("encode of candidate %q aborted: %v", c.Foundation, err)
		return nil, err
	}
	m.log.Tracef("encoded candidate %q with %d extensions in %d blocks",
		c.Foundation, len(c.Extensions), len(enc.blocks.blocks))
	return rec, nil
}

// Release frees r and every block it owns. A nil r is a no-op.
//
// r must come from Encode or EncodeCandidate on a Marshaller with the same
// allocator and must not be used afterwards.
func (m *Marshaller) Release(r *Record) {
	if r == nil {
		return
	}

	// Copy the header out before its block goes away.
	rec := *r
	m.alloc.Free(unsafe.Pointer(r))

	m.freeBlock(rec.Foundation)
	m.freeBlock(rec.Transport)
	m.freeBlock(rec.ConnectionAddress)
	m.freeBlock(rec.CandidateType)
	if rec.RelAddr != nil {
		m.freeBlock(rec.RelAddr)
	}

	for _, pair := range rec.Extensions.pairs() {
		m.freeBlock(pair.Key)
		m.freeBlock(pair.Val)
	}
	if rec.Extensions.Values != nil {
		m.alloc.Free(unsafe.Pointer(rec.Extensions.Values))
	}
	m.log.Tracef("released record with %d extensions", rec.Extensions.Len)
}

func (m *Marshaller) freeBlock(p *byte) {
	if p != nil {
		m.alloc.Free(unsafe.Pointer(p))
	}
}

// encoder builds one Record and remembers every block it allocated.
type encoder struct {
	alloc  Allocator
	blocks allocationList
}

func (e *encoder) allocate(size uintptr) (unsafe.Pointer, error) {
	p, err := e.alloc.Alloc(size)
	if err != nil {
		if !errors.Is(err, ErrAllocation) {
			err = fmt.Errorf("%w: %w", ErrAllocation, err)
		}
		return nil, err
	}
	e.blocks.add(p)
	return p, nil
}

// cString copies s into a block of len(s)+1 bytes ending in NUL.
func (e *encoder) cString(field, s string) (*byte, error) {
	if strings.IndexByte(s, 0) >= 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmbeddedNUL, field)
	}
	size := uintptr(len(s)) + 1
	p, err := e.allocate(size)
	if err != nil {
		return nil, err
	}
	dst := unsafe.Slice((*byte)(p), size)
	copy(dst, s)
	dst[len(s)] = 0
	return (*byte)(p), nil
}

// buffer copies b into a block of exactly len(b) bytes.
func (e *encoder) buffer(b []byte) (*byte, uintptr, error) {
	if len(b) == 0 {
		return nil, 0, nil
	}
	size := uintptr(len(b))
	p, err := e.allocate(size)
	if err != nil {
		return nil, 0, err
	}
	copy(unsafe.Slice((*byte)(p), size), b)
	return (*byte)(p), size, nil
}

func (e *encoder) extensions(exts []candidate.Extension) (KeyValueMap, error) {
	n := uintptr(len(exts))
	if n == 0 {
		return KeyValueMap{}, nil
	}
	if n > maxExtensions {
		return KeyValueMap{}, fmt.Errorf("%w: %d extensions", ErrAllocation, n)
	}

	p, err := e.allocate(n * pairSize)
	if err != nil {
		return KeyValueMap{}, err
	}
	pairs := unsafe.Slice((*KeyValuePair)(p), n)
	for i, ext := range exts {
		key, keyLen, err := e.buffer(ext.Key)
		if err != nil {
			return KeyValueMap{}, err
		}
		val, valLen, err := e.buffer(ext.Value)
		if err != nil {
			return KeyValueMap{}, err
		}
		pairs[i] = KeyValuePair{Key: key, KeyLen: keyLen, Val: val, ValLen: valLen}
	}
	return KeyValueMap{Values: (*KeyValuePair)(p), Len: n}, nil
}

func (e *encoder) record(c *candidate.Candidate) (*Record, error) {
	var (
		rec Record
		err error
	)
	if rec.Foundation, err = e.cString("foundation", c.Foundation); err != nil {
		return nil, err
	}
	if rec.Transport, err = e.cString("transport", c.Transport); err != nil {
		return nil, err
	}
	if rec.ConnectionAddress, err = e.cString("connection address", c.ConnectionAddress); err != nil {
		return nil, err
	}
	if rec.CandidateType, err = e.cString("candidate type", c.Type); err != nil {
		return nil, err
	}

	// The related pair is written as a whole: both set, or nil and 0.
	if addr, port, ok := c.Related(); ok {
		if rec.RelAddr, err = e.cString("related address", addr); err != nil {
			return nil, err
		}
		rec.RelPort = port
	}

	if rec.Extensions, err = e.extensions(c.Extensions); err != nil {
		return nil, err
	}

	rec.ComponentID = c.ComponentID
	rec.Priority = c.Priority
	rec.Port = c.Port

	p, err := e.allocate(recordSize)
	if err != nil {
		return nil, err
	}
	r := (*Record)(p)
	*r = rec
	return r, nil
}
