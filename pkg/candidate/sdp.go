package candidate

import (
	"errors"
	"fmt"

	"github.com/pion/sdp/v3"
	"github.com/pion/webrtc/v4"
)

// SessionLevel is the MLineIndex of a candidate found outside any media
// section.
const SessionLevel = -1

// MediaCandidate is a candidate together with the media section it belongs
// to.
type MediaCandidate struct {
	Candidate

	// MID is the a=mid of the media section, empty when unknown.
	MID string

	// MLineIndex is the zero-based m-line index, or SessionLevel.
	MLineIndex int
}

// ParseInit parses a trickle ICE signaling message.
//
// An init with an empty candidate string is the end-of-candidates marker and
// returns ErrEmptyCandidate.
func ParseInit(init webrtc.ICECandidateInit) (*MediaCandidate, error) {
	c, err := Parse([]byte(init.Candidate))
	if err != nil {
		return nil, err
	}
	mc := &MediaCandidate{Candidate: *c, MLineIndex: SessionLevel}
	if init.SDPMid != nil {
		mc.MID = *init.SDPMid
	}
	if init.SDPMLineIndex != nil {
		mc.MLineIndex = int(*init.SDPMLineIndex)
	}
	return mc, nil
}

// FromSessionDescription returns every candidate attribute of an SDP blob,
// session level first, then media sections in order.
//
// Candidate attributes that fail to parse are reported together in the
// returned error; the candidates that did parse are still returned.
func FromSessionDescription(raw []byte) ([]MediaCandidate, error) {
	var desc sdp.SessionDescription
	if err := desc.Unmarshal(raw); err != nil {
		return nil, fmt.Errorf("candidate: unmarshal session description: %w", err)
	}

	var (
		out  []MediaCandidate
		errs []error
	)
	collect := func(attrs []sdp.Attribute, mid string, index int) {
		for _, attr := range attrs {
			if attr.Key != sdp.AttrKeyCandidate {
				continue
			}
			c, err := Parse([]byte(attr.Value))
			if err != nil {
				errs = append(errs, fmt.Errorf("m-line %d: %w", index, err))
				continue
			}
			out = append(out, MediaCandidate{Candidate: *c, MID: mid, MLineIndex: index})
		}
	}

	collect(desc.Attributes, "", SessionLevel)
	for i, media := range desc.MediaDescriptions {
		mid, _ := media.Attribute(sdp.AttrKeyMID)
		collect(media.Attributes, mid, i)
	}
	return out, errors.Join(errs...)
}
