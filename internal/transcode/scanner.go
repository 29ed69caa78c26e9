package transcode

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/franz/photo-tidy/internal/catalog"
	"github.com/franz/photo-tidy/internal/report"
	"github.com/franz/photo-tidy/internal/util"
)

// savingsThresholdPercent: a video is worth re-encoding only when the
// estimate is at or below this fraction of the current size. Exactly at the
// threshold counts as eligible.
const savingsThresholdPercent = 95

// ScanState is the scanner lifecycle phase
type ScanState int

const (
	StateIdle ScanState = iota
	StateScanning
	StateComplete
)

// Candidate is a scanned video with its re-encode estimate. Ineligible
// candidates stay listed so the savings threshold can be audited.
type Candidate struct {
	Asset          catalog.Asset
	EstimatedBytes int64
	Eligible       bool
}

// SavingsBytes returns the predicted byte savings for this candidate
func (c *Candidate) SavingsBytes() int64 {
	return c.Asset.SizeBytes - c.EstimatedBytes
}

// candidateState tracks a candidate through the apply lifecycle
type candidateState int

const (
	stateReady candidateState = iota
	stateTranscoding
	stateTranscoded
)

// Scanner finds videos whose re-encode would save enough to be worth it and
// tracks each candidate through transcoding. All accessors are safe to call
// from the presentation layer while a scan or an apply is running.
type Scanner struct {
	mu sync.Mutex

	codec  Codec
	logger *report.EventLogger

	state        ScanState
	scannedSoFar int

	candidates map[catalog.AssetID]*Candidate
	lifecycle  map[catalog.AssetID]candidateState
	order      []catalog.AssetID

	appliedBytes int64
	appliedCount int
}

// NewScanner creates a scanner over the given codec
func NewScanner(codec Codec, logger *report.EventLogger) *Scanner {
	if logger == nil {
		logger = report.NullLogger()
	}
	return &Scanner{
		codec:      codec,
		logger:     logger,
		candidates: make(map[catalog.AssetID]*Candidate),
		lifecycle:  make(map[catalog.AssetID]candidateState),
	}
}

// Scan walks a catalog snapshot and rebuilds the candidate set. Candidates
// currently being transcoded survive the rebuild so a concurrent apply never
// loses track of them.
func (s *Scanner) Scan(ctx context.Context, assets []catalog.Asset) error {
	s.mu.Lock()
	s.state = StateScanning
	s.scannedSoFar = 0
	inFlight := make(map[catalog.AssetID]bool)
	for id, st := range s.lifecycle {
		if st != stateReady {
			inFlight[id] = true
		}
	}
	for id := range s.candidates {
		if !inFlight[id] {
			delete(s.candidates, id)
			delete(s.lifecycle, id)
		}
	}
	s.order = s.order[:0]
	s.mu.Unlock()

	for i := range assets {
		if err := ctx.Err(); err != nil {
			s.mu.Lock()
			s.state = StateIdle
			s.mu.Unlock()
			return catalog.CancelledOrError(err)
		}

		a := assets[i]
		s.mu.Lock()
		s.scannedSoFar++
		s.mu.Unlock()

		if a.Kind != catalog.KindVideo {
			continue
		}

		estimated, err := s.codec.EstimateSize(&a)
		if err != nil {
			// Unprobed or unsupported videos are skipped, never fatal
			util.DebugLog("Skipping %s: %v", a.Path, err)
			continue
		}

		eligible := estimated*100 <= a.SizeBytes*savingsThresholdPercent
		s.logger.LogEstimate(string(a.ID), a.SizeBytes, estimated, eligible)

		s.mu.Lock()
		if _, exists := s.candidates[a.ID]; !exists {
			s.candidates[a.ID] = &Candidate{Asset: a, EstimatedBytes: estimated, Eligible: eligible}
			s.lifecycle[a.ID] = stateReady
		}
		s.mu.Unlock()
	}

	s.mu.Lock()
	eligibleCount := 0
	for id, c := range s.candidates {
		s.order = append(s.order, id)
		if c.Eligible {
			eligibleCount++
		}
	}
	slices.Sort(s.order)
	s.state = StateComplete
	total := len(s.candidates)
	s.mu.Unlock()

	util.InfoLog("Transcode scan complete: %d of %d videos worth re-encoding", eligibleCount, total)
	return nil
}

// Status returns the lifecycle phase and how many assets the current or
// last scan has checked
func (s *Scanner) Status() (ScanState, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.scannedSoFar
}

// FriendlyStatus returns a one-line human description of the scanner
func (s *Scanner) FriendlyStatus() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateScanning:
		return fmt.Sprintf("Scanning: %d checked", s.scannedSoFar)
	case StateComplete:
		ready := s.readySavingsLocked()
		if ready == 0 {
			return "Nothing to transcode"
		}
		return fmt.Sprintf("Ready to recover %s", humanize.IBytes(uint64(ready)))
	default:
		return "Idle"
	}
}

// ShowActivityIndicator reports whether a scan is in flight or any candidate
// is mid-transcode
func (s *Scanner) ShowActivityIndicator() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateScanning {
		return true
	}
	// A claimed candidate stays active until its swap lands or aborts
	for _, st := range s.lifecycle {
		if st != stateReady {
			return true
		}
	}
	return false
}

// ReadySavingsBytes returns the predicted savings over candidates that are
// ready to apply right now
func (s *Scanner) ReadySavingsBytes() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readySavingsLocked()
}

func (s *Scanner) readySavingsLocked() int64 {
	var total int64
	for id, c := range s.candidates {
		if c.Eligible && s.lifecycle[id] == stateReady {
			total += c.SavingsBytes()
		}
	}
	return total
}

// EstimatedEventualSavingsBytes returns the predicted savings over every
// known candidate including those mid-transcode. The estimate only exists
// once a scan has completed; ok is false before that.
func (s *Scanner) EstimatedEventualSavingsBytes() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateComplete {
		return 0, false
	}
	var total int64
	for _, c := range s.candidates {
		if c.Eligible {
			total += c.SavingsBytes()
		}
	}
	return total, true
}

// Scanned returns every scanned video with its estimate, eligible or not, in
// stable id order
func (s *Scanner) Scanned() []Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []Candidate
	for _, id := range s.order {
		if c, ok := s.candidates[id]; ok {
			all = append(all, *c)
		}
	}
	return all
}

// ReadyToApply returns the eligible candidates available for transcoding, in
// stable id order
func (s *Scanner) ReadyToApply() []Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ready []Candidate
	for _, id := range s.order {
		c, ok := s.candidates[id]
		if !ok || !c.Eligible || s.lifecycle[id] != stateReady {
			continue
		}
		ready = append(ready, *c)
	}
	return ready
}

// BriefStatus summarizes the scanner for display
func (s *Scanner) BriefStatus() report.BriefStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return report.Savings(s.state == StateScanning, s.readySavingsLocked())
}

// BeginTranscode moves a candidate into the transcoding state. Returns false
// if the asset is not a ready candidate.
func (s *Scanner) BeginTranscode(id catalog.AssetID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.candidates[id]
	if !ok || !c.Eligible || s.lifecycle[id] != stateReady {
		return false
	}
	s.lifecycle[id] = stateTranscoding
	return true
}

// MarkTranscoded records that a candidate's new file is fully written
func (s *Scanner) MarkTranscoded(id catalog.AssetID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lifecycle[id] == stateTranscoding {
		s.lifecycle[id] = stateTranscoded
	}
}

// MarkApplied removes a candidate whose original has been swapped out and
// accumulates the realized savings
func (s *Scanner) MarkApplied(id catalog.AssetID, savedBytes int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.candidates[id]; !ok {
		return
	}
	delete(s.candidates, id)
	delete(s.lifecycle, id)
	s.appliedBytes += savedBytes
	s.appliedCount++
}

// Abort returns a candidate to the ready state after a failed transcode
func (s *Scanner) Abort(id catalog.AssetID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.candidates[id]; ok {
		s.lifecycle[id] = stateReady
	}
}

// AppliedSavingsBytes returns the realized savings so far
func (s *Scanner) AppliedSavingsBytes() (int64, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appliedBytes, s.appliedCount
}
