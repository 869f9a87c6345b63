// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.17
//

package gortkqc

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// QcOpt contains the thresholds of the quality-control rules.
// The defaults were tuned on field data to be conservative; a wrong fixed
// solution is worse than a missed one.
type QcOpt struct {
	// Standard point positioning
	SppMaxStd  float64 `json:"spp_max_std"`  // Rover std must be below this [m]
	SppMaxPdop float64 `json:"spp_max_pdop"` // Absolute PDOP must not exceed this

	// Code differential
	CodeDiffMaxStd  float64 `json:"code_diff_max_std"`  // [m]
	CodeDiffMinStd  float64 `json:"code_diff_min_std"`  // [m]
	CodeDiffMaxDist float64 `json:"code_diff_max_dist"` // Distance limit of the code solution check

	// Fixed solution
	MinFixedPhasePerSys   int     `json:"min_fixed_phase_per_sys"`   // Reject when fixed phases <= this * systems
	ResetFixedPhasePerSys int     `json:"reset_fixed_phase_per_sys"` // Reset when fixed phases <= this * systems
	RiskyDop3D            float64 `json:"risky_dop_3d"`              // 3-D phase DOP from which a fix is risky
	RiskyDopLevel         float64 `json:"risky_dop_level"`           // Planar phase DOP from which a fix is risky
	MaxRiskyEpochs        int     `json:"max_risky_epochs"`          // Consecutive risky epochs before a reset

	// Residual re-weighting, thresholds in multiples of sigma
	CodeResSigma   [3]float64 `json:"code_res_sigma"`
	CodeResScale   [3]float64 `json:"code_res_scale"`
	PhaseResSigma  [3]float64 `json:"phase_res_sigma"`
	PhaseResScale  [3]float64 `json:"phase_res_scale"`
	SlipResSigma   float64    `json:"slip_res_sigma"`   // Phase residual above this * sigma is a slip
	SlipResAbs     float64    `json:"slip_res_abs"`     // Phase residual from this [m] is a slip
	BaseMaxStd     float64    `json:"base_max_std"`     // [m]
	BaseMaxDist    float64    `json:"base_max_dist"`    // Distance limit of the base check
	CodeMaxOutage  float64    `json:"code_max_outage"`  // [s]
	CodeMaxBase    float64    `json:"code_max_base"`    // Rover to base distance [m]
	PhaseMaxOutage float64    `json:"phase_max_outage"` // [s]
	PhaseMaxBase   float64    `json:"phase_max_base"`   // Rover to base distance [m]

	// Integer search acceptance
	LambdaMaxAdop float64 `json:"lambda_max_adop"`
	RatioBound    float64 `json:"ratio_bound"` // Ratio above this is reported as 1000

	// New satellites
	NewSatMaxTimeDiff float64 `json:"new_sat_max_time_diff"` // [s]
	AbnormalFixedStd  float64 `json:"abnormal_fixed_std"`    // [m]

	// Time continuity
	MaxTimeJump float64 `json:"max_time_jump"` // [s]

	// First epoch signal travel time [s]
	MinTravelTime float64 `json:"min_travel_time"`
	MaxTravelTime float64 `json:"max_travel_time"`

	// Bands to solve
	Bands BandVar `json:"bands"`
}

// NewQcOpt creates a new QcOpt with the field-tuned default thresholds
func NewQcOpt() *QcOpt {
	return &QcOpt{
		SppMaxStd:             10.0,
		SppMaxPdop:            10.0,
		CodeDiffMaxStd:        2.0,
		CodeDiffMinStd:        0.2,
		CodeDiffMaxDist:       10.0,
		MinFixedPhasePerSys:   5,
		ResetFixedPhasePerSys: 4,
		RiskyDop3D:            4.0,
		RiskyDopLevel:         2.5,
		MaxRiskyEpochs:        5,
		CodeResSigma:          [3]float64{20, 15, 10},
		CodeResScale:          [3]float64{0.01, 0.3, 0.7},
		PhaseResSigma:         [3]float64{4, 3, 2},
		PhaseResScale:         [3]float64{0.1, 0.3, 0.7},
		SlipResSigma:          5.0,
		SlipResAbs:            0.10,
		BaseMaxStd:            30.0,
		BaseMaxDist:           100.0,
		CodeMaxOutage:         60.0,
		CodeMaxBase:           50000,
		PhaseMaxOutage:        15.0,
		PhaseMaxBase:          25000,
		LambdaMaxAdop:         30.0,
		RatioBound:            999.9,
		NewSatMaxTimeDiff:     0.05,
		AbnormalFixedStd:      0.3,
		MaxTimeJump:           5.0,
		MinTravelTime:         0.030, // 20804163.233 m = 69 ms
		MaxTravelTime:         0.200, // 36804163.233 m = 122.7 ms
		Bands:                 BandVar{GpsL1, GpsL2, BdsB1, BdsB2, GloG1, GloG2},
	}
}

// LoadQcOpt reads threshold overrides from a JSON file on top of the defaults.
// Fields omitted from the file keep their default values.
func LoadQcOpt(path string) (*QcOpt, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, errors.Errorf("config file must have .json extension, got %q", ext)
	}
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to stat config file")
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, errors.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	opt := NewQcOpt()
	if err := json.Unmarshal(data, opt); err != nil {
		return nil, errors.Wrapf(err, "failed to parse config file %s", cleanPath)
	}
	if err := opt.Validate(); err != nil {
		return nil, err
	}
	return opt, nil
}

// Validate checks that the thresholds are usable
func (opt *QcOpt) Validate() error {
	if opt.ResetFixedPhasePerSys > opt.MinFixedPhasePerSys {
		return errors.Errorf("reset_fixed_phase_per_sys (%d) > min_fixed_phase_per_sys (%d)",
			opt.ResetFixedPhasePerSys, opt.MinFixedPhasePerSys)
	}
	if opt.MaxRiskyEpochs < 1 {
		return errors.Errorf("max_risky_epochs must be >= 1, got %d", opt.MaxRiskyEpochs)
	}
	if opt.MinTravelTime >= opt.MaxTravelTime {
		return errors.Errorf("min_travel_time (%g) >= max_travel_time (%g)", opt.MinTravelTime, opt.MaxTravelTime)
	}
	for _, s := range [][3]float64{opt.CodeResSigma, opt.PhaseResSigma} {
		if !(s[0] >= s[1] && s[1] >= s[2]) {
			return errors.Errorf("residual sigma stages must be descending, got %v", s)
		}
	}
	for _, b := range opt.Bands {
		if !b.IsValid() {
			return errors.Errorf("invalid band %s", b)
		}
	}
	return nil
}
