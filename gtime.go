// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.12
//

package gortkqc

import (
	"math"
	"time"
)

// GPS time as week number and seconds of week
type GTime struct {
	Week int     `json:"week"`
	Sec  float64 `json:"sec"`
}

func NewGTime(dt time.Time) *GTime {
	t := dt.Unix()
	t -= time.Date(1980, 1, 6, 0, 0, 0, 0, time.UTC).Unix() // Elapsed seconds since 1980/1/6 00:00:00
	return &GTime{
		Week: int(t / (3600 * 24 * 7)),
		Sec:  float64(t%(3600*24*7)) + float64(dt.Nanosecond())/1000000000,
	}
}

func (p *GTime) ToTime() time.Time {
	o := time.Date(1980, 1, 6, 0, 0, 0, 0, time.UTC).Unix() // GPS time starts from 1980/1/6 00:00:00
	i := int64(math.Trunc(p.Sec))
	t := int64(3600*24*7*p.Week) + i + o
	n := int64((p.Sec - float64(i)) * 1e9)
	return time.Unix(t, n)
}

// Continuous seconds since the start of GPS time
func (p *GTime) Seconds() float64 {
	return float64(p.Week)*SecPerWeek + p.Sec
}

// Signed difference p - b in seconds, valid across week rollover
func (p *GTime) Diff(b GTime) float64 {
	return p.Seconds() - b.Seconds()
}

func (p *GTime) Less(b GTime) bool {
	if p.Week == b.Week {
		return p.Sec < b.Sec
	} else {
		return p.Week < b.Week
	}
}

func (p *GTime) String() string {
	return p.ToTime().UTC().Format("2006/01/02 15:04:05.000")
}
