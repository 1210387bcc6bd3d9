package candidate

import (
	"bytes"
	"fmt"
	"math"
	"slices"
	"strconv"

	"github.com/pion/ice/v4"
)

var (
	attributePrefix = []byte("a=")
	candidatePrefix = []byte("candidate:")
)

// Parse parses a single candidate attribute.
//
// Returns ErrEmptyCandidate when there is nothing to parse and an error
// wrapping ErrMalformedCandidate when the grammar does not match.
func Parse(raw []byte) (*Candidate, error) {
	line := trimAttribute(raw)
	if len(line) == 0 {
		return nil, ErrEmptyCandidate
	}

	parsed, err := ice.UnmarshalCandidate(string(line))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedCandidate, err)
	}
	c, err := fromICE(parsed)
	if err != nil {
		return nil, err
	}
	if err := applyLineFields(c, bytes.Fields(line)); err != nil {
		return nil, err
	}
	return c, nil
}

// Field positions of the mandatory candidate-attribute tokens.
const (
	fieldComponent = 1
	fieldPriority  = 3
	fieldFirstExt  = 8 // after "typ <type>"
)

// applyLineFields replaces the values pion narrows with the ones written on
// the line. pion keeps the component in 16 bits and the priority in 32,
// wrapping larger values, and reports a computed priority for 0.
func applyLineFields(c *Candidate, fields [][]byte) error {
	if len(fields) < fieldFirstExt {
		return fmt.Errorf("%w: %d fields", ErrMalformedCandidate, len(fields))
	}

	component, err := strconv.ParseUint(string(fields[fieldComponent]), 10, 32)
	if err != nil {
		return fmt.Errorf("%w: component: %w", ErrMalformedCandidate, err)
	}
	priority, err := strconv.ParseUint(string(fields[fieldPriority]), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: priority: %w", ErrMalformedCandidate, err)
	}
	c.ComponentID = uint32(component)
	c.Priority = priority

	sortByLinePosition(c.Extensions, fields[fieldFirstExt:])
	return nil
}

// sortByLinePosition restores line order. pion reports tcptype ahead of the
// other extensions wherever it was written.
func sortByLinePosition(exts []Extension, tail [][]byte) {
	if len(exts) < 2 {
		return
	}
	pos := make(map[string]int, len(tail)/2)
	for i := 0; i+1 < len(tail); i += 2 {
		if _, ok := pos[string(tail[i])]; !ok {
			pos[string(tail[i])] = i
		}
	}
	slices.SortStableFunc(exts, func(a, b Extension) int {
		return position(pos, a.Key) - position(pos, b.Key)
	})
}

func position(pos map[string]int, key []byte) int {
	if i, ok := pos[string(key)]; ok {
		return i
	}
	return math.MaxInt32
}

// trimAttribute strips whitespace, the "a=" line prefix and the
// "candidate:" attribute name.
func trimAttribute(raw []byte) []byte {
	line := bytes.TrimSpace(raw)
	line = bytes.TrimPrefix(line, attributePrefix)
	line = bytes.TrimPrefix(line, candidatePrefix)
	return bytes.TrimSpace(line)
}

func fromICE(parsed ice.Candidate) (*Candidate, error) {
	port, err := toPort(parsed.Port())
	if err != nil {
		return nil, err
	}

	c := &Candidate{
		Foundation:        parsed.Foundation(),
		ComponentID:       uint32(parsed.Component()),
		Transport:         parsed.NetworkType().NetworkShort(),
		Priority:          uint64(parsed.Priority()),
		ConnectionAddress: parsed.Address(),
		Port:              port,
		Type:              parsed.Type().String(),
	}

	// pion fills a related address for every reflexive or relayed candidate,
	// with an empty address when the line had no raddr.
	if rel := parsed.RelatedAddress(); rel != nil && rel.Address != "" {
		relPort, err := toPort(rel.Port)
		if err != nil {
			return nil, err
		}
		c.RelAddr = rel.Address
		c.RelPort = relPort
		c.HasRelated = true
	}

	c.Extensions = collectExtensions(parsed.Extensions())
	return c, nil
}

// collectExtensions copies pion's extensions into owned byte slices. A key
// that appears twice keeps its first position and its last value.
func collectExtensions(exts []ice.CandidateExtension) []Extension {
	if len(exts) == 0 {
		return nil
	}
	out := make([]Extension, 0, len(exts))
	index := make(map[string]int, len(exts))
	for _, ext := range exts {
		if i, ok := index[ext.Key]; ok {
			out[i].Value = []byte(ext.Value)
			continue
		}
		index[ext.Key] = len(out)
		out = append(out, Extension{
			Key:   []byte(ext.Key),
			Value: []byte(ext.Value),
		})
	}
	return out
}

func toPort(p int) (uint16, error) {
	if p < 0 || p > math.MaxUint16 {
		return 0, fmt.Errorf("%w: %d", ErrPortRange, p)
	}
	return uint16(p), nil
}
