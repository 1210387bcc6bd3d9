// Package candidate parses ICE candidate attributes (RFC 8839 section 5.1)
// into a plain Go value.
//
// The grammar itself is handled by pion/ice. This package normalizes the
// accepted input forms, copies the result out of pion's agent-oriented
// Candidate interface and exposes it as an owned value that the ffi package
// can marshal across the C boundary.
//
// # Input forms
//
// All of the following parse to the same Candidate:
//
//	a=candidate:842163049 1 udp 1686052607 1.2.3.4 46154 typ srflx raddr 10.0.0.17 rport 46154
//	candidate:842163049 1 udp 1686052607 1.2.3.4 46154 typ srflx raddr 10.0.0.17 rport 46154
//	842163049 1 udp 1686052607 1.2.3.4 46154 typ srflx raddr 10.0.0.17 rport 46154
//
// Trailing CRLF and surrounding whitespace are ignored.
//
// # Related address
//
// The related address and port form one optional pair. HasRelated reports
// whether the pair is present; RelAddr and RelPort are zero values otherwise.
//
// # Normalization
//
// Component and priority are taken verbatim from the line (up to 32 and 64
// bits). Some other fields come back normalized by pion rather than as
// written:
//
//   - Transport is lowercased ("UDP" becomes "udp").
//   - An IPv6 zone is dropped from the connection address ("fe80::1%eth0"
//     becomes "fe80::1").
//
// Extensions keep the order they were written in, tcptype included.
package candidate

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrEmptyCandidate is returned when the input holds nothing but an
	// attribute prefix and whitespace.
	ErrEmptyCandidate = errors.New("candidate: empty candidate")

	// ErrMalformedCandidate wraps grammar errors reported by the parser.
	ErrMalformedCandidate = errors.New("candidate: malformed candidate")

	// ErrPortRange is returned when a port does not fit in 16 bits.
	ErrPortRange = errors.New("candidate: port out of range")
)

// Extension is one extension attribute (RFC 8839 extension-att-name and
// extension-att-value) appended after the mandatory candidate fields.
type Extension struct {
	Key   []byte
	Value []byte
}

// Candidate is a parsed ICE candidate.
type Candidate struct {
	Foundation        string
	ComponentID       uint32
	Transport         string
	Priority          uint64
	ConnectionAddress string
	Port              uint16
	Type              string

	// RelAddr and RelPort are only meaningful when HasRelated is set.
	RelAddr    string
	RelPort    uint16
	HasRelated bool

	// Extensions keeps the order in which attributes appeared on the line.
	// Keys are unique.
	Extensions []Extension
}

// Related returns the related address pair, if present.
func (c *Candidate) Related() (addr string, port uint16, ok bool) {
	if !c.HasRelated {
		return "", 0, false
	}
	return c.RelAddr, c.RelPort, true
}

// Extension returns the value of the extension attribute with the given key.
func (c *Candidate) Extension(key string) ([]byte, bool) {
	for _, ext := range c.Extensions {
		if string(ext.Key) == key {
			return ext.Value, true
		}
	}
	return nil, false
}

// Marshal renders the candidate in "candidate:" attribute value form.
func (c *Candidate) Marshal() string {
	var b strings.Builder
	b.WriteString("candidate:")
	b.WriteString(c.Foundation)
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(uint64(c.ComponentID), 10))
	b.WriteByte(' ')
	b.WriteString(c.Transport)
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(c.Priority, 10))
	b.WriteByte(' ')
	b.WriteString(c.ConnectionAddress)
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(uint64(c.Port), 10))
	b.WriteString(" typ ")
	b.WriteString(c.Type)
	if c.HasRelated {
		b.WriteString(" raddr ")
		b.WriteString(c.RelAddr)
		b.WriteString(" rport ")
		b.WriteString(strconv.FormatUint(uint64(c.RelPort), 10))
	}
	for _, ext := range c.Extensions {
		b.WriteByte(' ')
		b.Write(ext.Key)
		b.WriteByte(' ')
		b.Write(ext.Value)
	}
	return b.String()
}

// Equal reports whether two candidates carry the same fields and the same
// extensions in the same order.
func (c *Candidate) Equal(other *Candidate) bool {
	if c == nil || other == nil {
		return c == other
	}
	if c.Foundation != other.Foundation ||
		c.ComponentID != other.ComponentID ||
		c.Transport != other.Transport ||
		c.Priority != other.Priority ||
		c.ConnectionAddress != other.ConnectionAddress ||
		c.Port != other.Port ||
		c.Type != other.Type ||
		c.HasRelated != other.HasRelated ||
		c.RelAddr != other.RelAddr ||
		c.RelPort != other.RelPort ||
		len(c.Extensions) != len(other.Extensions) {
		return false
	}
	for i := range c.Extensions {
		if !bytes.Equal(c.Extensions[i].Key, other.Extensions[i].Key) ||
			!bytes.Equal(c.Extensions[i].Value, other.Extensions[i].Value) {
			return false
		}
	}
	return true
}
