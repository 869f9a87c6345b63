// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

// Runs the quality-control gate over one epoch of estimator output.

package gortkqc

import (
	"math"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

type ElevationInput struct {
	Key  AmbKey  `json:"key"`
	Elev float64 `json:"elev"` // [deg]
}

type PhaseInput struct {
	Key     AmbKey  `json:"key"`
	FloatSD float64 `json:"float_sd"` // Float single-difference ambiguity [cycle]
}

// EpochInput is the output of the float estimator and the integer search for one epoch
type EpochInput struct {
	Week       int              `json:"week"`
	Sec        float64          `json:"sec"`
	Time       *time.Time       `json:"time,omitempty"`    // GPS time as a date, overrides week/sec
	FirstEpoch bool             `json:"first_epoch"`       // Check the signal travel time of SatObs
	SatObs     []SatObs         `json:"sat_obs,omitempty"` // Rover observations
	Elevations []ElevationInput `json:"elevations"`
	Phases     []PhaseInput     `json:"phases"` // Phases without a fixed ambiguity

	Ratio float64 `json:"ratio"` // Ratio test of the integer search
	Adop  float64 `json:"adop"`

	NumSys      int     `json:"num_sys"` // Number of satellite systems used, 0 to count the fixed ones
	PhaseDop    PosXYZ  `json:"phase_dop"`
	RtkStd      PosXYZ  `json:"rtk_std"`       // Variance of the RTK solution [m^2]
	RtkStdThres PosXYZ  `json:"rtk_std_thres"` // Variance floor from the phase DOP [m^2]
	StdV        float64 `json:"std_v"`         // Unit-weight std of the adjustment [m]
	StdFixed    float64 `json:"std_fixed"`     // Std of the fixed solution [m]

	RangeTypes     []RangeType `json:"range_types"` // Kind of each post-fit residual
	PostRes        []float64   `json:"post_res"`    // Post-fit residuals [m]
	ResPhases      []AmbKey    `json:"res_phases"`  // Key of each phase residual in order
	CommonPhaseNum int         `json:"common_phase_num"`
}

// EpochResult carries the decisions of the gate for one epoch
type EpochResult struct {
	Time          GTime     `json:"time"`
	Reset         bool      `json:"reset"` // The RTK state was reset in this epoch
	RejectedSats  []int     `json:"rejected_sats,omitempty"`
	LambdaOK      bool      `json:"lambda_ok"`
	Ratio         float64   `json:"ratio"`
	NewFixed      int       `json:"new_fixed"`
	NumFixed      int       `json:"num_fixed"`
	NumUnresolved int       `json:"num_unresolved"`
	Safe          bool      `json:"safe"` // The fixed solution may be output
	State         FixState  `json:"state"`
	Slip          bool      `json:"slip"`
	Weights       []float64 `json:"weights,omitempty"` // Re-weighted diagonal of the residuals
	NeedRecursion bool      `json:"need_recursion"`
	Std           PosXYZ    `json:"std"` // Per-axis std of the RTK solution [m]
	Details       string    `json:"details"`
}

// ProcessEpoch runs the gate over one epoch and commits the accepted
// ambiguities to the tracker. Quality failures are reported in the result;
// an error is returned only when the input or the tracker is inconsistent.
func (s *Solver) ProcessEpoch(in *EpochInput) (*EpochResult, error) {
	s.ClearDetails()
	resetNum := s.resetNum
	res := &EpochResult{Time: GTime{Week: in.Week, Sec: in.Sec}}
	if in.Time != nil {
		res.Time = *NewGTime(*in.Time)
	}

	s.CheckConsecutiveTimeOffset(res.Time.Week, res.Time.Sec)

	if in.FirstEpoch {
		for i := range in.SatObs {
			if !s.CheckSatObsForSPP(&in.SatObs[i]) {
				res.RejectedSats = append(res.RejectedSats, in.SatObs[i].Prn)
			}
		}
	}

	// Elevations
	s.Tracker.ClearObsHistory()
	for _, e := range in.Elevations {
		s.Tracker.SetElevation(e.Key, e.Elev)
	}
	s.Tracker.DeleteDescendingAmb()

	// Unresolved phases
	floats := make([]float64, 0, len(in.Phases))
	for _, ph := range in.Phases {
		i, ok := s.Tracker.AddUnfixedPhase(ph.Key)
		if !ok || i < len(floats) {
			continue
		}
		floats = append(floats, ph.FloatSD)
	}

	// Integer proposal
	res.Ratio = s.BoundRatio(in.Ratio)
	if n := len(floats); n > 0 {
		integerSD, err := s.Tracker.UpdateSDAmb(mat.NewVecDense(n, floats))
		if err != nil {
			return nil, errors.Wrapf(err, "epoch %s", &res.Time)
		}
		res.LambdaOK = s.CheckLambda(res.Ratio, in.Adop)
		if res.LambdaOK {
			if err := s.Tracker.AddFixedAmb(integerSD); err != nil {
				return nil, errors.Wrapf(err, "epoch %s", &res.Time)
			}
			res.NewFixed = n - s.Tracker.NumUnfixedAmb()
		} else {
			s.EncodeDetails(" lambda rejected(ratio=%.1f adop=%.1f)", res.Ratio, in.Adop)
		}
	}
	s.SetNewFixedPhaseNum(res.NewFixed)

	// Fixed solution
	s.SetRtkFixed(s.Tracker.NumFixedAmb() > 0)
	s.SetPhaseDop(in.PhaseDop)
	s.SetRtkStd(in.RtkStd, in.RtkStdThres)
	s.SetStdV(in.StdV)
	numSys := in.NumSys
	if numSys <= 0 {
		numSys = s.Tracker.NumFixedSys()
	}
	res.Safe = s.IsSafeFixedSolution(numSys, s.Tracker.NumFixedAmb())

	// Post-fit residuals
	if len(in.RangeTypes) > 0 {
		if len(in.PostRes) != len(in.RangeTypes) {
			return nil, errors.Wrapf(invariantf("%d residuals for %d range types", len(in.PostRes), len(in.RangeTypes)),
				"epoch %s", &res.Time)
		}
		postRes := mat.NewVecDense(len(in.PostRes), in.PostRes)
		px := mat.NewDense(len(in.RangeTypes), len(in.RangeTypes), nil)
		for i := range in.RangeTypes {
			px.Set(i, i, 1.0)
		}
		if err := s.WeightOnPostResidual(in.StdV, in.RangeTypes, postRes, px); err != nil {
			return nil, errors.Wrapf(err, "epoch %s", &res.Time)
		}
		res.Weights = make([]float64, len(in.RangeTypes))
		for i := range res.Weights {
			res.Weights[i] = px.At(i, i)
		}

		bandRes := bandResidual(in.RangeTypes, in.PostRes, in.ResPhases)
		slip, err := s.RemoveAmbWithAbnormalRes(in.ResPhases, in.StdV, in.RangeTypes, postRes, bandRes)
		if err != nil {
			return nil, errors.Wrapf(err, "epoch %s", &res.Time)
		}
		res.Slip = slip
	}

	res.NeedRecursion = s.IsNeedRecursion(s.rtkFixed, in.StdFixed, s.Tracker.NumUnfixedAmb(), in.CommonPhaseNum)

	if err := s.Tracker.CheckInvariant(); err != nil {
		return nil, errors.Wrapf(err, "epoch %s", &res.Time)
	}

	res.Reset = s.resetNum != resetNum
	res.NumFixed = s.Tracker.NumFixedAmb()
	res.NumUnresolved = s.Tracker.NumUnfixedAmb()
	res.State = s.FixState()
	res.Std = s.BoundedRtkStd()
	res.Details = s.Details()
	return res, nil
}

// Mean phase residual of each band [cycle]. Entries that do not line up with
// a phase key are left to RemoveAmbWithAbnormalRes to report.
func bandResidual(rangeType []RangeType, postRes []float64, phases []AmbKey) *BandResidual {
	var sum BandResidual
	var num [NBAND]int
	j := 0
	for i, t := range rangeType {
		if t == RangeCode {
			continue
		}
		if j >= len(phases) || i >= len(postRes) {
			break
		}
		b := phases[j].Band
		j++
		if !b.IsValid() {
			continue
		}
		sum[b] += postRes[i] / b.Wavelength()
		num[b]++
	}
	for b := range sum {
		if num[b] > 0 {
			sum[b] /= float64(num[b])
		}
		if math.IsNaN(sum[b]) {
			sum[b] = 0
		}
	}
	return &sum
}
