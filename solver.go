// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.17
//

package gortkqc

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Confidence of the RTK fixed solution
type FixState int

const (
	NotFixed           FixState = iota
	FixedLowConfidence          // Fixed, but the last fixed epochs had risky DOP
	FixedConfident
)

func (p FixState) String() string {
	switch p {
	case NotFixed:
		return "NotFixed"
	case FixedLowConfidence:
		return "FixedLowConfidence"
	case FixedConfident:
		return "FixedConfident"
	default:
		return "UNKNOWN!"
	}
}

// Solver is the quality-control gate of one solving session. It owns the
// ambiguity tracker and the running state the rules need across epochs.
// All ambiguity mutation goes through Tracker. Not safe for concurrent use;
// each session needs its own Solver.
type Solver struct {
	ID      uuid.UUID   // Session identifier
	Tracker *AmbTracker // Ambiguity state of the session

	opt *QcOpt

	rtkFixed         bool    // Current epoch carries an RTK fixed solution
	riskyNum         int     // Consecutive risky fixed epochs
	resetNum         int     // Number of full RTK resets in the session
	weekNum          int     // Week number of the last epoch
	weekSec          float64 // Second of week of the last epoch
	rangePrecision   float64 // Largest range std seen since the last reset [m]
	dopPhase         PosXYZ  // Per-axis DOP of the phase solution
	stdRtk           PosXYZ  // Per-axis variance of the RTK solution [m^2]
	stdRtkThres      PosXYZ  // Variance floor derived from the phase DOP [m^2]
	newFixedPhaseNum int     // Phases fixed for the first time in this epoch
	stdV             float64 // Unit-weight std of the last adjustment [m]
	toughSatSeed     float64 // Seed of the re-weighting for a tough satellite group
	details          strings.Builder
}

// NewSolver creates a gate with a fresh tracker. Nil options select the defaults.
func NewSolver(opt *QcOpt, trackerOpt *TrackerOpt) *Solver {
	if opt == nil {
		opt = NewQcOpt()
	}
	return &Solver{
		ID:      uuid.New(),
		Tracker: NewAmbTracker(trackerOpt),
		opt:     opt,
	}
}

func (s *Solver) Opt() *QcOpt {
	return s.opt
}

// ------------------------------------
// Running state
// ------------------------------------

func (s *Solver) SetRtkFixed(fixed bool) {
	s.rtkFixed = fixed
}

func (s *Solver) IsRtkFixed() bool {
	return s.rtkFixed
}

// SetPhaseDop sets the per-axis DOP of the phase solution used by IsSafeFixedSolution
func (s *Solver) SetPhaseDop(dop PosXYZ) {
	s.dopPhase = dop
}

// SetRtkStd sets the per-axis variance of the RTK solution and its DOP-derived floor
func (s *Solver) SetRtkStd(std, thres PosXYZ) {
	s.stdRtk = std
	s.stdRtkThres = thres
}

func (s *Solver) SetStdV(stdV float64) {
	s.stdV = stdV
}

func (s *Solver) SetNewFixedPhaseNum(n int) {
	s.newFixedPhaseNum = n
}

func (s *Solver) RiskyNum() int {
	return s.riskyNum
}

func (s *Solver) ResetNum() int {
	return s.resetNum
}

func (s *Solver) RangePrecision() float64 {
	return s.rangePrecision
}

func (s *Solver) ToughSatSeed() float64 {
	return s.toughSatSeed
}

// LastEpoch returns the week number and second of week of the last epoch seen
func (s *Solver) LastEpoch() GTime {
	return GTime{Week: s.weekNum, Sec: s.weekSec}
}

// FixState reports the confidence of the fixed solution
func (s *Solver) FixState() FixState {
	if !s.rtkFixed {
		return NotFixed
	}
	if s.riskyNum > 0 {
		return FixedLowConfidence
	}
	return FixedConfident
}

// ResetFixedRtk drops every ambiguity and the fix state. It is the only
// recovery of the gate and takes effect immediately.
func (s *Solver) ResetFixedRtk() {
	s.Tracker.ClearAll()
	s.rtkFixed = false
	s.riskyNum = 0
	s.rangePrecision = 0
	s.newFixedPhaseNum = 0
	s.resetNum++
	s.EncodeDetails(" reset_fixed_rtk(%d)", s.resetNum)
	PrintD(1, "\t[%s] rtk reset (%d)\n", s.ID, s.resetNum)
}

// SeedToughSatGroup sets the re-weighting seed the estimator uses on its next run
func (s *Solver) SeedToughSatGroup(seed float64) {
	s.toughSatSeed = seed
}

// ------------------------------------
// Details
// ------------------------------------

// EncodeDetails appends an explanation of a decision to the details buffer
func (s *Solver) EncodeDetails(format string, a ...any) {
	fmt.Fprintf(&s.details, format, a...)
	PrintD(3, "\t"+format+"\n", a...)
}

func (s *Solver) Details() string {
	return s.details.String()
}

func (s *Solver) ClearDetails() {
	s.details.Reset()
}
