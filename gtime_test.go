// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

package gortkqc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGTime(t *testing.T) {
	t.Parallel()
	dt := time.Date(2024, 1, 1, 0, 0, 0, 500000000, time.UTC)
	gt := NewGTime(dt)
	assert.Equal(t, 2295, gt.Week)
	assert.Equal(t, 86400.5, gt.Sec)
	assert.True(t, dt.Equal(gt.ToTime()))
	assert.Equal(t, "2024/01/01 00:00:00.500", gt.String())

	a := GTime{Week: 2200, Sec: 604799}
	b := GTime{Week: 2201, Sec: 1}
	assert.Equal(t, 2.0, b.Diff(a))
	assert.Equal(t, -2.0, a.Diff(b))
	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
}

func TestPosXYZ(t *testing.T) {
	t.Parallel()
	p := &PosXYZ{X: 3, Y: 4, Z: 12}
	assert.Equal(t, 13.0, p.Norm3D())
	assert.Equal(t, 5.0, p.Norm2D())
	v := &PosXYZ{X: 4, Y: 9, Z: 16}
	assert.Equal(t, PosXYZ{X: 2, Y: 3, Z: 4}, v.SquareRoot())
	assert.Equal(t, "0.0100 -0.0200 0.0300", (&PosENU{E: 0.01, N: -0.02, U: 0.03}).String())
}
