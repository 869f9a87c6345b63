// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.18
//

// Quality-control rules learned from field data, kept conservative for a
// safety-critical vehicle.

package gortkqc

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Kind of a range observation in a residual vector
type RangeType int

const (
	RangeCode  RangeType = 0 // Pseudorange
	RangePhase RangeType = 1 // Carrier phase
)

func (s *Solver) IsSafeStandardPointPos(stdRover, pdop float64) bool {
	if math.Abs(stdRover) >= s.opt.SppMaxStd || stdRover < 0.0 {
		return false
	}
	if math.Abs(pdop) > s.opt.SppMaxPdop {
		return false
	}
	return true
}

// IsSafeCodeDiffPos rejects the code differential solution, also when the
// delta position was already validated elsewhere.
func (s *Solver) IsSafeCodeDiffPos(dis, stdDif float64, validDeltaPos bool) bool {
	if math.Abs(stdDif) > s.opt.CodeDiffMaxStd || math.Abs(stdDif) < s.opt.CodeDiffMinStd {
		return false
	}
	if dis > s.opt.CodeDiffMaxDist {
		return false
	}
	if validDeltaPos {
		return false
	}
	return true
}

// IsSafeFixedSolution decides whether the current fixed solution may be output.
//
// Too few fixed phases reject the fix and, below the reset limit, reset the
// RTK state. A fix with both high 3-D and high planar phase DOP is risky: it
// is rejected and after MaxRiskyEpochs consecutive risky epochs the RTK state
// is reset. A safe fix clears the risky counter.
func (s *Solver) IsSafeFixedSolution(gnssTypeSize, numFixedPhase int) bool {
	if !s.rtkFixed {
		return false
	}
	if numFixedPhase <= s.opt.MinFixedPhasePerSys*gnssTypeSize {
		info := ""
		if numFixedPhase <= s.opt.ResetFixedPhasePerSys*gnssTypeSize {
			s.ResetFixedRtk()
			info = "reset"
		}
		s.EncodeDetails(" fixed_phase_num not enough for safe solution = %3d with num_sys = %3d %s",
			numFixedPhase, gnssTypeSize, info)
		return false
	}
	dop3D := s.dopPhase.Norm3D()
	levelDop := s.dopPhase.Norm2D()
	if dop3D < s.opt.RiskyDop3D || levelDop < s.opt.RiskyDopLevel {
		s.EncodeDetails(" Safe_fixed_phase(3d_dop, level_dop, num, new) = %6.3f%6.3f%3d%3d",
			dop3D, levelDop, numFixedPhase, s.newFixedPhaseNum)
		s.riskyNum = 0
		return true
	}
	s.EncodeDetails(" Risky_fixed_phase(3d_dop, level_dop, num, new) = %6.3f%6.3f%3d%3d",
		dop3D, levelDop, numFixedPhase, s.newFixedPhaseNum)
	s.riskyNum++
	if s.riskyNum >= s.opt.MaxRiskyEpochs {
		s.riskyNum = 0
		s.ResetFixedRtk()
	}
	return false
}

// WeightOnPostResidual scales down the diagonal weight of observations with
// large post-fit residuals, in stages of multiples of stdV. px is modified in place.
func (s *Solver) WeightOnPostResidual(stdV float64, rangeType []RangeType, postRes mat.Vector, px *mat.Dense) error {
	n := len(rangeType)
	if postRes == nil || postRes.Len() != n {
		return invariantf("residuals do not match %d range types", n)
	}
	if px == nil {
		return invariantf("weight matrix missing for %d range types", n)
	}
	if r, c := px.Dims(); r != n || c != n {
		return invariantf("weight matrix (%d x %d) does not match %d range types", r, c, n)
	}
	for i := 0; i < n; i++ {
		sigma, scale := s.opt.PhaseResSigma, s.opt.PhaseResScale
		if rangeType[i] == RangeCode {
			sigma, scale = s.opt.CodeResSigma, s.opt.CodeResScale
		}
		res := math.Abs(postRes.AtVec(i))
		for k := range sigma {
			if res > sigma[k]*stdV {
				px.Set(i, i, px.At(i, i)*scale[k])
				PrintD(3, "\tweight[%d] x %.2f (res=%.3f, std=%.3f)\n", i, scale[k], res, stdV)
				break
			}
		}
	}
	return nil
}

// RemoveAmbWithAbnormalRes deletes, through the tracker, the ambiguity of every
// phase whose post-fit residual marks a cycle slip. When no phase slipped the
// band references absorb the band residuals instead. phases lists the keys of
// the phase entries of rangeType in order. Returns true if a slip was found.
func (s *Solver) RemoveAmbWithAbnormalRes(
	phases []AmbKey,
	stdV float64,
	rangeType []RangeType,
	postRes mat.Vector,
	bandResSum *BandResidual,
) (bool, error) {
	n := len(rangeType)
	if postRes == nil || postRes.Len() != n {
		return false, invariantf("residuals do not match %d range types", n)
	}
	numPhase := 0
	for _, t := range rangeType {
		if t != RangeCode {
			numPhase++
		}
	}
	if numPhase != len(phases) {
		return false, invariantf("%d phase keys for %d phase residuals", len(phases), numPhase)
	}

	phaseSlipExist := false
	indPhase := 0
	for i := 0; i < n; i++ {
		if rangeType[i] == RangeCode {
			continue
		}
		res := math.Abs(postRes.AtVec(i))
		if res > s.opt.SlipResSigma*stdV || res >= s.opt.SlipResAbs {
			phaseSlipExist = true
			s.Tracker.DeleteSlipAmb(phases[indPhase])
			s.EncodeDetails(" slip(%s res=%.3f std=%.3f)", phases[indPhase], res, stdV)
		}
		indPhase++
	}
	if !phaseSlipExist {
		s.Tracker.ReupdateReferenceAmb(bandResSum)
	}
	return phaseSlipExist, nil
}

func (s *Solver) BoundRangePrecision(stdDif float64) {
	if stdDif > s.rangePrecision {
		s.rangePrecision = stdDif
	}
}

// BoundedRtkStd returns the per-axis std of the RTK solution, not smaller than
// the floor derived from the phase DOP
func (s *Solver) BoundedRtkStd() PosXYZ {
	phaseStd := s.stdRtk.SquareRoot()
	if s.stdRtkThres.Norm3D() > s.stdRtk.Norm3D() {
		phaseStd = s.stdRtkThres.SquareRoot()
	}
	return phaseStd
}

// CheckSatObsForSPP rejects a satellite whose first pseudorange implies an
// impossible signal travel time
func (s *Solver) CheckSatObsForSPP(satObs *SatObs) bool {
	if satObs == nil || len(satObs.BandObs) == 0 {
		return false
	}
	timeDuration := satObs.BandObs[0].PseudoRange / C
	if timeDuration < s.opt.MinTravelTime {
		return false
	}
	if timeDuration > s.opt.MaxTravelTime {
		return false
	}
	return true
}

// IsValidBandObs reports whether two observations form a usable pair: same
// band, and the band is one of the bands to solve
func (s *Solver) IsValidBandObs(bandObs1, bandObs2 BandObs) bool {
	if bandObs1.Band != bandObs2.Band {
		return false
	}
	return s.opt.Bands.Contains(bandObs1.Band)
}

func (s *Solver) CheckBaserObs(std, distance float64) bool {
	if math.Abs(std) > s.opt.BaseMaxStd || std < 0.0 {
		return false
	}
	if math.Abs(distance) > s.opt.BaseMaxDist {
		return false
	}
	return true
}

// EnableGlonassIfbEstimated returns the number of Glonass inter-frequency bias
// parameters to estimate. Fixed to 0: the bias is not estimated, fixed or not.
func (s *Solver) EnableGlonassIfbEstimated() int {
	return 0
}

// WeightScaleOnGnssSystem returns the variance scale of a satellite system
func WeightScaleOnGnssSystem(sys GnssType) float64 {
	switch sys {
	case GpsSys:
		return 1.0
	case BdsSys:
		return 1.0
	case GloSys:
		return 2.25
	default:
		return 25.0
	}
}

// CheckConsecutiveTimeOffset resets the RTK state when the epoch jumps more
// than MaxTimeJump from the last one. The epoch is remembered either way; the
// first epoch of the session is only remembered. A small step back in time is
// noted in the details without a reset. Returns true if a reset happened.
func (s *Solver) CheckConsecutiveTimeOffset(weekNum int, weekSec float64) bool {
	t0 := s.LastEpoch()
	t1 := GTime{Week: weekNum, Sec: weekSec}
	dt := t1.Diff(t0)
	reset := false
	if s.weekNum != 0 || s.weekSec != 0 {
		if math.Abs(dt) > s.opt.MaxTimeJump {
			s.EncodeDetails(" time_jump(%.3f s)", dt)
			s.ResetFixedRtk()
			reset = true
		} else if t1.Less(t0) {
			s.EncodeDetails(" time_back(%.3f s)", dt)
		}
	}
	s.weekSec = weekSec
	s.weekNum = weekNum
	return reset
}

func (s *Solver) IsEnabledCodeDiff(dataOutage, disRover2Baser float64) bool {
	if math.Abs(dataOutage) > s.opt.CodeMaxOutage {
		return false
	}
	if disRover2Baser > s.opt.CodeMaxBase {
		return false
	}
	return true
}

func (s *Solver) IsEnabledPhaseDiff(dataOutage, disRover2Baser float64) bool {
	if math.Abs(dataOutage) > s.opt.PhaseMaxOutage {
		return false
	}
	if disRover2Baser > s.opt.PhaseMaxBase {
		return false
	}
	return true
}

// CheckLambda accepts the integer candidate of the search by ratio and ADOP
func (s *Solver) CheckLambda(ratio, adop float64) bool {
	if ratio < 0.0 {
		return false
	}
	if adop > s.opt.LambdaMaxAdop {
		return false
	}
	return true
}

// IsAbnormalFixedSolutionWithNewPhase reports a fixed solution with a large
// std while new unresolved phases exist
func (s *Solver) IsAbnormalFixedSolutionWithNewPhase(isFixed bool, stdFixed float64, unknownPhaseNum int) bool {
	if unknownPhaseNum <= 0 {
		return false
	}
	if !isFixed {
		return false
	}
	if math.Abs(stdFixed) < s.opt.AbnormalFixedStd {
		return false
	}
	return true
}

// IsNeedRecursion tells the estimator to run again: when more phases are
// unknown than common, or when the fixed solution is abnormal with new
// phases, in which case the tough satellite group is seeded.
func (s *Solver) IsNeedRecursion(isFixed bool, stdFixed float64, unknownPhaseNum, commonPhaseNum int) bool {
	if unknownPhaseNum > commonPhaseNum {
		s.EncodeDetails(" More unknown phase: %d > %d", unknownPhaseNum, commonPhaseNum)
		return true
	}
	if s.IsAbnormalFixedSolutionWithNewPhase(isFixed, stdFixed, unknownPhaseNum) {
		s.EncodeDetails(" abnormal_fixed_solution %6.3f", s.stdV)
		s.SeedToughSatGroup(1.0)
		return true
	}
	return false
}

func (s *Solver) BoundRatio(ratio float64) float64 {
	if ratio > s.opt.RatioBound {
		return 1000.0
	}
	return ratio
}

// StdThresForNewSat returns the position delta [m] allowed when admitting a
// new satellite, by the ratio of the new solution. Doubled when the
// adjustment std is small.
func StdThresForNewSat(newRatio, stdV float64) float64 {
	thresHold := 0.05
	if newRatio < 3 {
		thresHold = 0.002
	} else if newRatio < 5 {
		thresHold = 0.010
	} else if newRatio < 8 {
		thresHold = 0.020
	} else if newRatio < 15 {
		thresHold = 0.025
	}
	if stdV < 0.03 {
		thresHold *= 2.0
	}
	return thresHold
}

// CheckNewsatSolution admits the solution with a newly risen satellite only
// if it stays close to the solution without it
func (s *Solver) CheckNewsatSolution(denu PosENU, thres, disTimeDiff float64) bool {
	if math.Abs(denu.U) > thres*2 || math.Abs(denu.N) > thres || math.Abs(denu.E) > thres {
		s.EncodeDetails(" newsat rejected(denu=%s)", &denu)
		return false
	}
	if math.Abs(disTimeDiff) > s.opt.NewSatMaxTimeDiff {
		return false
	}
	return true
}
