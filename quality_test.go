// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

package gortkqc

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

var (
	safeDop  = PosXYZ{X: 1, Y: 1, Z: 1}
	riskyDop = PosXYZ{X: 3, Y: 3, Z: 3} // 3-D 5.20, planar 4.24
)

// Solver with n fixed GPS L1 ambiguities and an RTK fixed solution
func newFixedSolver(t *testing.T, n int) *Solver {
	t.Helper()
	s := NewSolver(nil, nil)
	for prn := 1; prn <= n; prn++ {
		require.True(t, s.Tracker.SetFixedAmb(NewAmbKey(GpsL1, prn), float64(prn)))
	}
	s.SetRtkFixed(true)
	return s
}

func TestIsSafeStandardPointPos(t *testing.T) {
	t.Parallel()
	s := NewSolver(nil, nil)
	tests := []struct {
		std, pdop float64
		want      bool
	}{
		{9.99, 10, true},
		{0, 1, true},
		{10, 1, false},
		{-0.1, 1, false},
		{1, 10.01, false},
		{1, -10, true},
		{1, -10.5, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, s.IsSafeStandardPointPos(tt.std, tt.pdop), "std=%v pdop=%v", tt.std, tt.pdop)
	}
}

func TestIsSafeCodeDiffPos(t *testing.T) {
	t.Parallel()
	s := NewSolver(nil, nil)
	tests := []struct {
		dis, std float64
		valid    bool
		want     bool
	}{
		{5, 1, false, true},
		{5, 2.0, false, true},
		{5, 2.01, false, false},
		{5, 0.2, false, true},
		{5, 0.19, false, false},
		{5, -1, false, true},
		{5, -0.1, false, false},
		{5, -2.01, false, false},
		{10, 1, false, true},
		{10.1, 1, false, false},
		{5, 1, true, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, s.IsSafeCodeDiffPos(tt.dis, tt.std, tt.valid), "%+v", tt)
	}
}

func TestIsSafeFixedSolution_NotFixed(t *testing.T) {
	t.Parallel()
	s := NewSolver(nil, nil)
	s.SetPhaseDop(safeDop)
	assert.False(t, s.IsSafeFixedSolution(1, 20))
	assert.Equal(t, NotFixed, s.FixState())
}

func TestIsSafeFixedSolution_FixedPhaseCount(t *testing.T) {
	t.Parallel()

	// Two systems: <= 10 rejects, <= 8 also resets
	tests := []struct {
		num       int
		safe      bool
		wantReset bool
	}{
		{11, true, false},
		{10, false, false},
		{9, false, false},
		{8, false, true},
		{7, false, true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(fmt.Sprint(tt.num), func(t *testing.T) {
			t.Parallel()
			s := newFixedSolver(t, 12)
			s.SetPhaseDop(safeDop)
			assert.Equal(t, tt.safe, s.IsSafeFixedSolution(2, tt.num))
			if tt.wantReset {
				assert.Equal(t, 1, s.ResetNum())
				assert.False(t, s.IsRtkFixed())
				assert.Equal(t, 0, s.Tracker.NumFixedAmb())
				assert.Contains(t, s.Details(), "reset")
			} else {
				assert.Equal(t, 0, s.ResetNum())
				assert.True(t, s.IsRtkFixed())
				assert.Equal(t, 12, s.Tracker.NumFixedAmb())
			}
		})
	}
}

func TestIsSafeFixedSolution_RiskyEpochs(t *testing.T) {
	t.Parallel()
	s := newFixedSolver(t, 12)
	s.SetPhaseDop(riskyDop)

	for i := 1; i <= 4; i++ {
		assert.False(t, s.IsSafeFixedSolution(1, 12))
		assert.Equal(t, i, s.RiskyNum())
		assert.Equal(t, FixedLowConfidence, s.FixState())
	}
	assert.Contains(t, s.Details(), "Risky_fixed_phase")

	// Fifth risky epoch resets
	assert.False(t, s.IsSafeFixedSolution(1, 12))
	assert.Equal(t, 0, s.RiskyNum())
	assert.Equal(t, 1, s.ResetNum())
	assert.Equal(t, NotFixed, s.FixState())
	assert.Equal(t, 0, s.Tracker.NumFixedAmb())

	// Counting starts again
	s.SetRtkFixed(true)
	assert.False(t, s.IsSafeFixedSolution(1, 12))
	assert.Equal(t, 1, s.RiskyNum())
}

func TestIsSafeFixedSolution_SafeClearsRisky(t *testing.T) {
	t.Parallel()
	s := newFixedSolver(t, 12)
	s.SetPhaseDop(riskyDop)
	s.IsSafeFixedSolution(1, 12)
	s.IsSafeFixedSolution(1, 12)
	require.Equal(t, 2, s.RiskyNum())

	s.SetPhaseDop(safeDop)
	assert.True(t, s.IsSafeFixedSolution(1, 12))
	assert.Equal(t, 0, s.RiskyNum())
	assert.Equal(t, FixedConfident, s.FixState())
	assert.Contains(t, s.Details(), "Safe_fixed_phase")
}

func TestIsSafeFixedSolution_DopBoundary(t *testing.T) {
	t.Parallel()
	tests := []struct {
		dop  PosXYZ
		safe bool
	}{
		{PosXYZ{X: 2.9, Y: 2.7, Z: 0}, true}, // 3-D 3.96
		{PosXYZ{X: 1, Y: 1, Z: 5}, true},     // planar 1.41
		{PosXYZ{X: 0, Y: 2.5, Z: 4}, false},  // 3-D 4.72, planar 2.5
		{PosXYZ{X: 4, Y: 0, Z: 0}, false},
	}
	for _, tt := range tests {
		s := newFixedSolver(t, 12)
		s.SetPhaseDop(tt.dop)
		assert.Equal(t, tt.safe, s.IsSafeFixedSolution(1, 12), "dop=%v", tt.dop)
	}
}

func TestWeightOnPostResidual(t *testing.T) {
	t.Parallel()
	s := NewSolver(nil, nil)

	// Stage limits are strict: a residual of exactly N sigma stays in the lower stage
	types := []RangeType{RangeCode, RangeCode, RangeCode, RangeCode, RangeCode, RangeCode, RangeCode,
		RangePhase, RangePhase, RangePhase, RangePhase, RangePhase, RangePhase, RangePhase, RangePhase}
	res := []float64{25, 20, 16, 15, 11, 12, 10,
		4.5, 4, 3.5, 3, 2.5, 12, 2.0, -4.5}
	want := []float64{0.01, 0.3, 0.3, 0.7, 0.7, 0.7, 1,
		0.1, 0.3, 0.3, 0.7, 0.7, 0.1, 1, 0.1}

	n := len(types)
	px := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		px.Set(i, i, 2.0)
	}
	require.NoError(t, s.WeightOnPostResidual(1.0, types, mat.NewVecDense(n, res), px))
	for i := 0; i < n; i++ {
		assert.InDelta(t, 2.0*want[i], px.At(i, i), 1e-12, "residual %d (%v)", i, res[i])
	}
}

func TestWeightOnPostResidual_SizeMismatch(t *testing.T) {
	t.Parallel()
	s := NewSolver(nil, nil)
	types := []RangeType{RangeCode, RangePhase}

	err := s.WeightOnPostResidual(1, types, mat.NewVecDense(3, nil), mat.NewDense(2, 2, nil))
	assert.True(t, IsInvariantViolation(err))
	err = s.WeightOnPostResidual(1, types, mat.NewVecDense(2, nil), mat.NewDense(3, 3, nil))
	assert.True(t, IsInvariantViolation(err))
	err = s.WeightOnPostResidual(1, types, nil, mat.NewDense(2, 2, nil))
	assert.True(t, IsInvariantViolation(err))

	assert.NotPanics(t, func() {
		err = s.WeightOnPostResidual(1, types, mat.NewVecDense(2, nil), nil)
	})
	assert.True(t, IsInvariantViolation(err))
}

// Solver with fixed g01 (reference, 10) and g02 (5), unresolved g03
func newSlipSolver(t *testing.T) *Solver {
	t.Helper()
	s := NewSolver(nil, nil)
	s.Tracker.SetElevation(g01, 60)
	s.Tracker.SetElevation(g02, 40)
	s.Tracker.SetElevation(g03, 30)
	s.Tracker.SetFixedAmb(g01, 10)
	s.Tracker.SetFixedAmb(g02, 5)
	s.Tracker.AddUnfixedPhase(g03)
	s.Tracker.MatrixSD2DD()
	require.Equal(t, []AmbKey{g01}, s.Tracker.References())
	return s
}

func TestRemoveAmbWithAbnormalRes(t *testing.T) {
	t.Parallel()
	types := []RangeType{RangeCode, RangePhase, RangePhase}
	phases := []AmbKey{g02, g03}
	var bandRes BandResidual
	bandRes[GpsL1] = 0.5

	t.Run("absolute slip", func(t *testing.T) {
		t.Parallel()
		s := newSlipSolver(t)
		slip, err := s.RemoveAmbWithAbnormalRes(phases, 0.1, types, mat.NewVecDense(3, []float64{5, 0.01, 0.10}), &bandRes)
		require.NoError(t, err)
		assert.True(t, slip)
		_, ok := s.Tracker.UnfixedAmbIndex(g03)
		assert.False(t, ok)
		_, ok = s.Tracker.GetFixedAmb(g02)
		assert.True(t, ok)
		v, _ := s.Tracker.GetFixedAmb(g01)
		assert.Equal(t, 10.0, v, "reference is not moved when a slip was found")
		assert.Contains(t, s.Details(), "slip(")
	})

	t.Run("sigma slip", func(t *testing.T) {
		t.Parallel()
		s := newSlipSolver(t)
		slip, err := s.RemoveAmbWithAbnormalRes(phases, 0.01, types, mat.NewVecDense(3, []float64{5, -0.06, 0.01}), &bandRes)
		require.NoError(t, err)
		assert.True(t, slip)
		_, ok := s.Tracker.GetFixedAmb(g02)
		assert.False(t, ok)
	})

	t.Run("no slip moves reference", func(t *testing.T) {
		t.Parallel()
		s := newSlipSolver(t)
		slip, err := s.RemoveAmbWithAbnormalRes(phases, 0.1, types, mat.NewVecDense(3, []float64{5, 0.01, 0.02}), &bandRes)
		require.NoError(t, err)
		assert.False(t, slip)
		v, _ := s.Tracker.GetFixedAmb(g01)
		assert.Equal(t, 10.5, v)
	})

	t.Run("phase count mismatch", func(t *testing.T) {
		t.Parallel()
		s := newSlipSolver(t)
		_, err := s.RemoveAmbWithAbnormalRes(phases[:1], 0.1, types, mat.NewVecDense(3, nil), &bandRes)
		assert.True(t, IsInvariantViolation(err))
		_, err = s.RemoveAmbWithAbnormalRes(phases, 0.1, types, mat.NewVecDense(2, nil), &bandRes)
		assert.True(t, IsInvariantViolation(err))
	})
}

func TestCheckConsecutiveTimeOffset(t *testing.T) {
	t.Parallel()
	s := newFixedSolver(t, 3)

	assert.False(t, s.CheckConsecutiveTimeOffset(2200, 100), "first epoch")
	assert.False(t, s.CheckConsecutiveTimeOffset(2200, 105.0))
	assert.Equal(t, 3, s.Tracker.NumFixedAmb())

	assert.True(t, s.CheckConsecutiveTimeOffset(2200, 110.01))
	assert.Equal(t, 1, s.ResetNum())
	assert.Equal(t, 0, s.Tracker.NumFixedAmb())
	assert.Equal(t, GTime{Week: 2200, Sec: 110.01}, s.LastEpoch())

	// Backward jump
	assert.True(t, s.CheckConsecutiveTimeOffset(2200, 100))

	assert.Equal(t, 2, s.ResetNum())

	// Week rollover
	assert.True(t, s.CheckConsecutiveTimeOffset(2200, 604799))
	assert.False(t, s.CheckConsecutiveTimeOffset(2201, 1))
	assert.Equal(t, 3, s.ResetNum())

	// Small step back is noted without a reset
	s.ClearDetails()
	assert.False(t, s.CheckConsecutiveTimeOffset(2201, 0.5))
	assert.Equal(t, 3, s.ResetNum())
	assert.Equal(t, " time_back(-0.500 s)", s.Details())
	s.ClearDetails()
	assert.False(t, s.CheckConsecutiveTimeOffset(2201, 0.5))
	assert.Empty(t, s.Details())
}

func TestCheckBaserObs(t *testing.T) {
	t.Parallel()
	s := NewSolver(nil, nil)
	assert.True(t, s.CheckBaserObs(30, 100))
	assert.True(t, s.CheckBaserObs(1, -100))
	assert.False(t, s.CheckBaserObs(30.1, 1))
	assert.False(t, s.CheckBaserObs(-1, 1))
	assert.False(t, s.CheckBaserObs(1, 100.1))
	assert.False(t, s.CheckBaserObs(1, -100.1))
}

func TestIsEnabledDiff(t *testing.T) {
	t.Parallel()
	s := NewSolver(nil, nil)
	assert.True(t, s.IsEnabledCodeDiff(60, 50000))
	assert.True(t, s.IsEnabledCodeDiff(-60, 50000))
	assert.False(t, s.IsEnabledCodeDiff(60.1, 1))
	assert.False(t, s.IsEnabledCodeDiff(1, 50001))

	assert.True(t, s.IsEnabledPhaseDiff(15, 25000))
	assert.False(t, s.IsEnabledPhaseDiff(-15.1, 1))
	assert.False(t, s.IsEnabledPhaseDiff(1, 25001))
}

func TestCheckLambda(t *testing.T) {
	t.Parallel()
	s := NewSolver(nil, nil)
	assert.True(t, s.CheckLambda(0, 30))
	assert.False(t, s.CheckLambda(-1, 1))
	assert.False(t, s.CheckLambda(3, 30.1))
}

func TestBoundRatio(t *testing.T) {
	t.Parallel()
	s := NewSolver(nil, nil)
	assert.Equal(t, 999.9, s.BoundRatio(999.9))
	assert.Equal(t, 1000.0, s.BoundRatio(999.91))
	assert.Equal(t, 1000.0, s.BoundRatio(1e6))
	assert.Equal(t, 3.2, s.BoundRatio(3.2))
}

func TestStdThresForNewSat(t *testing.T) {
	t.Parallel()
	tests := []struct{ ratio, stdV, want float64 }{
		{2.9, 0.05, 0.002},
		{3, 0.05, 0.010},
		{4.9, 0.05, 0.010},
		{5, 0.05, 0.020},
		{8, 0.05, 0.025},
		{14.9, 0.05, 0.025},
		{15, 0.05, 0.05},
		{2, 0.02, 0.004},
		{20, 0.02, 0.1},
		{20, 0.03, 0.05},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, StdThresForNewSat(tt.ratio, tt.stdV), 1e-12, "%+v", tt)
	}
}

func TestCheckNewsatSolution(t *testing.T) {
	t.Parallel()
	s := NewSolver(nil, nil)
	assert.True(t, s.CheckNewsatSolution(PosENU{E: 0.01, N: -0.01, U: 0.02}, 0.01, 0.05))
	assert.False(t, s.CheckNewsatSolution(PosENU{U: 0.021}, 0.01, 0))
	assert.False(t, s.CheckNewsatSolution(PosENU{N: 0.011}, 0.01, 0))
	assert.False(t, s.CheckNewsatSolution(PosENU{E: -0.011}, 0.01, 0))
	assert.False(t, s.CheckNewsatSolution(PosENU{}, 0.01, -0.051))
	assert.Equal(t, " newsat rejected(denu=0.0000 0.0000 0.0210)"+
		" newsat rejected(denu=0.0000 0.0110 0.0000)"+
		" newsat rejected(denu=-0.0110 0.0000 0.0000)", s.Details())
}

func TestIsNeedRecursion(t *testing.T) {
	t.Parallel()

	s := NewSolver(nil, nil)
	assert.True(t, s.IsNeedRecursion(false, 0, 3, 2))
	assert.Contains(t, s.Details(), "More unknown phase")
	assert.Equal(t, 0.0, s.ToughSatSeed())

	s = NewSolver(nil, nil)
	assert.True(t, s.IsNeedRecursion(true, 0.3, 1, 5))
	assert.Equal(t, 1.0, s.ToughSatSeed())

	s = NewSolver(nil, nil)
	assert.False(t, s.IsNeedRecursion(true, 0.29, 1, 5))
	assert.False(t, s.IsNeedRecursion(false, 1.0, 1, 5))
	assert.False(t, s.IsNeedRecursion(true, 1.0, 0, 5))
	assert.Equal(t, 0.0, s.ToughSatSeed())
}

func TestCheckSatObsForSPP(t *testing.T) {
	t.Parallel()
	s := NewSolver(nil, nil)
	obs := func(pr float64) *SatObs {
		return &SatObs{Prn: 1, BandObs: []BandObs{{Band: GpsL1, PseudoRange: pr}}}
	}
	assert.True(t, s.CheckSatObsForSPP(obs(20e6)))
	assert.True(t, s.CheckSatObsForSPP(obs(36e6)))
	assert.False(t, s.CheckSatObsForSPP(obs(5e6)))
	assert.False(t, s.CheckSatObsForSPP(obs(70e6)))
	assert.False(t, s.CheckSatObsForSPP(&SatObs{Prn: 1}))
	assert.False(t, s.CheckSatObsForSPP(nil))
}

func TestIsValidBandObs(t *testing.T) {
	t.Parallel()
	s := NewSolver(nil, nil)
	assert.True(t, s.IsValidBandObs(BandObs{Band: GpsL1}, BandObs{Band: GpsL1}))
	assert.False(t, s.IsValidBandObs(BandObs{Band: GpsL1}, BandObs{Band: GpsL2}))
	assert.False(t, s.IsValidBandObs(BandObs{Band: GpsL5}, BandObs{Band: GpsL5}))

	opt := NewQcOpt()
	opt.Bands = BandVar{GpsL5}
	s = NewSolver(opt, nil)
	assert.True(t, s.IsValidBandObs(BandObs{Band: GpsL5}, BandObs{Band: GpsL5}))
	assert.False(t, s.IsValidBandObs(BandObs{Band: GpsL1}, BandObs{Band: GpsL1}))
}

func TestWeightScaleOnGnssSystem(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 1.0, WeightScaleOnGnssSystem(GpsSys))
	assert.Equal(t, 1.0, WeightScaleOnGnssSystem(BdsSys))
	assert.Equal(t, 2.25, WeightScaleOnGnssSystem(GloSys))
	assert.Equal(t, 25.0, WeightScaleOnGnssSystem(GalSys))
	assert.Equal(t, 25.0, WeightScaleOnGnssSystem(SysUnknown))
	assert.Equal(t, 0, NewSolver(nil, nil).EnableGlonassIfbEstimated())
}

func TestRangePrecisionAndStd(t *testing.T) {
	t.Parallel()
	s := newFixedSolver(t, 1)
	s.BoundRangePrecision(0.3)
	s.BoundRangePrecision(0.1)
	assert.Equal(t, 0.3, s.RangePrecision())
	s.ResetFixedRtk()
	assert.Equal(t, 0.0, s.RangePrecision())

	s.SetRtkStd(PosXYZ{X: 0.04, Y: 0.09, Z: 0.16}, PosXYZ{X: 0.01, Y: 0.01, Z: 0.01})
	assert.InDeltaSlice(t, []float64{0.2, 0.3, 0.4}, xyz(s.BoundedRtkStd()), 1e-12)
	s.SetRtkStd(PosXYZ{X: 0.01, Y: 0.01, Z: 0.01}, PosXYZ{X: 0.04, Y: 0.09, Z: 0.16})
	assert.InDeltaSlice(t, []float64{0.2, 0.3, 0.4}, xyz(s.BoundedRtkStd()), 1e-12)
}

func TestDetails(t *testing.T) {
	t.Parallel()
	s := NewSolver(nil, nil)
	s.EncodeDetails(" a=%d", 1)
	s.EncodeDetails(" b=%s", "x")
	assert.Equal(t, " a=1 b=x", s.Details())
	s.ClearDetails()
	assert.Empty(t, s.Details())
	assert.NotEqual(t, NewSolver(nil, nil).ID, s.ID)
}

func xyz(p PosXYZ) []float64 {
	return []float64{p.X, p.Y, p.Z}
}
