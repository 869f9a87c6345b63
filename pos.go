// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.12
//

package gortkqc

import (
	"fmt"
	"math"
)

//-------------------------------------------------------------------
// PosXYZ
//-------------------------------------------------------------------

// Three-component value in the x/y/z axes. Also used for per-axis DOP and variance.
type PosXYZ struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (xyz *PosXYZ) Norm3D() float64 {
	return math.Sqrt(SQ(xyz.X) + SQ(xyz.Y) + SQ(xyz.Z))
}

// Planar (x/y) length
func (xyz *PosXYZ) Norm2D() float64 {
	return math.Sqrt(SQ(xyz.X) + SQ(xyz.Y))
}

// Component-wise square root, e.g. variance to standard deviation
func (xyz *PosXYZ) SquareRoot() PosXYZ {
	return PosXYZ{
		X: math.Sqrt(xyz.X),
		Y: math.Sqrt(xyz.Y),
		Z: math.Sqrt(xyz.Z),
	}
}

func (xyz *PosXYZ) String() string {
	return fmt.Sprintf("%.4f %.4f %.4f", xyz.X, xyz.Y, xyz.Z)
}

//-------------------------------------------------------------------
// PosENU
//-------------------------------------------------------------------

// Local east/north/up offset [m]
type PosENU struct {
	E float64 `json:"e"`
	N float64 `json:"n"`
	U float64 `json:"u"`
}

func (enu *PosENU) String() string {
	return fmt.Sprintf("%.4f %.4f %.4f", enu.E, enu.N, enu.U)
}
