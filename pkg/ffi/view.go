package ffi

import "github.com/thesyncim/candidateparser/pkg/candidate"

// Decode copies a Record back into a Candidate, reading it the way a C
// caller would: strings up to their terminator, extension buffers by their
// recorded lengths. r stays owned by the caller.
func Decode(r *Record) *candidate.Candidate {
	if r == nil {
		return nil
	}

	c := &candidate.Candidate{
		Foundation:        cString(r.Foundation),
		ComponentID:       r.ComponentID,
		Transport:         cString(r.Transport),
		Priority:          r.Priority,
		ConnectionAddress: cString(r.ConnectionAddress),
		Port:              r.Port,
		Type:              cString(r.CandidateType),
	}
	if r.RelAddr != nil {
		c.RelAddr = cString(r.RelAddr)
		c.RelPort = r.RelPort
		c.HasRelated = true
	}

	if pairs := r.Extensions.pairs(); len(pairs) > 0 {
		c.Extensions = make([]candidate.Extension, len(pairs))
		for i, pair := range pairs {
			c.Extensions[i] = candidate.Extension{
				Key:   cBytes(pair.Key, pair.KeyLen),
				Value: cBytes(pair.Val, pair.ValLen),
			}
		}
	}
	return c
}
