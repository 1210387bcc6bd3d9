package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/pion/webrtc/v4"

	"github.com/thesyncim/candidateparser/pkg/candidate"
	"github.com/thesyncim/candidateparser/pkg/ffi"
)

// maxBodySize bounds request bodies. A full offer with many candidates fits
// comfortably.
const maxBodySize = 1 << 20

// ExtensionJSON is one extension attribute as seen by a C caller.
type ExtensionJSON struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// CandidateJSON is a candidate after a round trip through the C record.
type CandidateJSON struct {
	Foundation  string          `json:"foundation"`
	ComponentID uint32          `json:"componentId"`
	Transport   string          `json:"transport"`
	Priority    uint64          `json:"priority"`
	Address     string          `json:"address"`
	Port        uint16          `json:"port"`
	Type        string          `json:"type"`
	RelAddr     string          `json:"relAddr,omitempty"`
	RelPort     uint16          `json:"relPort,omitempty"`
	Extensions  []ExtensionJSON `json:"extensions"`
	MID         string          `json:"mid,omitempty"`
	MLineIndex  int             `json:"mLineIndex"`
}

// Response is the body of every successful parse request.
type Response struct {
	Candidates []CandidateJSON `json:"candidates"`
	// Errors lists candidate lines of an SDP blob that failed to parse.
	Errors []string `json:"errors,omitempty"`
	// LiveBlocks is the number of C blocks still allocated after the
	// request released its records.
	LiveBlocks int `json:"liveBlocks"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleCandidate parses a single trickle ICE candidate posted as an
// RTCIceCandidateInit.
func (s *Server) HandleCandidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var init webrtc.ICECandidateInit
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&init); err != nil {
		s.log.Debugf("Failed to decode candidate init: %v", err)
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid candidate init: %w", err))
		return
	}

	mc, err := candidate.ParseInit(init)
	if err != nil {
		s.log.Debugf("Rejected candidate %q: %v", init.Candidate, err)
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	out, err := s.roundTrip([]candidate.MediaCandidate{*mc})
	if err != nil {
		s.log.Warnf("Failed to marshal candidate %q: %v", init.Candidate, err)
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.response(out, nil))
}

// HandleSessionDescription parses every candidate of a posted
// RTCSessionDescription.
func (s *Server) HandleSessionDescription(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var desc webrtc.SessionDescription
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&desc); err != nil {
		s.log.Debugf("Failed to decode session description: %v", err)
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid session description: %w", err))
		return
	}
	s.serveDescription(w, desc.SDP)
}

// HandleLocal gathers candidates with a local pion PeerConnection and parses
// its offer. It exercises the parser against pion's own candidate encoding.
func (s *Server) HandleLocal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.gatherTimeout)
	defer cancel()

	sdp, err := gatherLocal(ctx)
	if err != nil {
		s.log.Warnf("Local gathering failed: %v", err)
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.serveDescription(w, sdp)
}

func (s *Server) serveDescription(w http.ResponseWriter, sdp string) {
	parsed, parseErr := candidate.FromSessionDescription([]byte(sdp))
	if parseErr != nil && len(parsed) == 0 {
		s.log.Debugf("Rejected session description: %v", parseErr)
		s.writeError(w, http.StatusBadRequest, parseErr)
		return
	}

	out, err := s.roundTrip(parsed)
	if err != nil {
		s.log.Warnf("Failed to marshal candidates: %v", err)
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.response(out, parseErr))
}

// roundTrip encodes each candidate into a C record, reads it back the way a
// C caller would and releases it.
func (s *Server) roundTrip(in []candidate.MediaCandidate) ([]CandidateJSON, error) {
	out := make([]CandidateJSON, 0, len(in))
	for i := range in {
		rec, err := s.marshaller.EncodeCandidate(&in[i].Candidate)
		if err != nil {
			return nil, err
		}
		decoded := ffi.Decode(rec)
		s.marshaller.Release(rec)

		out = append(out, toJSON(decoded, in[i].MID, in[i].MLineIndex))
	}
	return out, nil
}

func (s *Server) response(out []CandidateJSON, parseErr error) Response {
	resp := Response{
		Candidates: out,
		LiveBlocks: s.allocs.Stats().Live,
	}
	if parseErr != nil {
		// errors.Join results unwrap into one error per rejected line.
		if joined, ok := parseErr.(interface{ Unwrap() []error }); ok {
			for _, err := range joined.Unwrap() {
				resp.Errors = append(resp.Errors, err.Error())
			}
		} else {
			resp.Errors = []string{parseErr.Error()}
		}
	}
	return resp
}

func toJSON(c *candidate.Candidate, mid string, mline int) CandidateJSON {
	out := CandidateJSON{
		Foundation:  c.Foundation,
		ComponentID: c.ComponentID,
		Transport:   c.Transport,
		Priority:    c.Priority,
		Address:     c.ConnectionAddress,
		Port:        c.Port,
		Type:        c.Type,
		Extensions:  make([]ExtensionJSON, 0, len(c.Extensions)),
		MID:         mid,
		MLineIndex:  mline,
	}
	if addr, port, ok := c.Related(); ok {
		out.RelAddr = addr
		out.RelPort = port
	}
	for _, ext := range c.Extensions {
		out.Extensions = append(out.Extensions, ExtensionJSON{Key: string(ext.Key), Value: string(ext.Value)})
	}
	return out
}

// gatherLocal creates a data-channel-only offer and waits for ICE gathering
// to complete.
func gatherLocal(ctx context.Context) (string, error) {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		return "", fmt.Errorf("create peer connection: %w", err)
	}
	defer pc.Close()

	// An offer without any m-line gathers nothing.
	if _, err := pc.CreateDataChannel("gather", nil); err != nil {
		return "", fmt.Errorf("create data channel: %w", err)
	}

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return "", fmt.Errorf("create offer: %w", err)
	}

	gatherComplete := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(offer); err != nil {
		return "", fmt.Errorf("set local description: %w", err)
	}

	select {
	case <-gatherComplete:
	case <-ctx.Done():
		return "", fmt.Errorf("gather candidates: %w", ctx.Err())
	}

	local := pc.LocalDescription()
	if local == nil {
		return "", errors.New("no local description after gathering")
	}
	return local.SDP, nil
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Debugf("Failed to write response: %v", err)
	}
}
