// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.14
//

package gortkqc

import (
	"fmt"
	"strconv"
	"strings"
)

// Carrier band identifier (numbering follows the receiver driver's band enumeration)
type BandID int

const (
	BandUnknown BandID = iota
	GpsL1
	GpsL2
	GpsL5
	BdsB1
	BdsB2
	BdsB3
	GloG1
	GloG2
	GloG3
)

// Number of slots in a per-band array (every band up to GloG3 has its own slot)
const NBAND = int(GloG3) + 1

var bandNames = [NBAND]string{
	"UNKNOWN", "GPS_L1", "GPS_L2", "GPS_L5", "BDS_B1", "BDS_B2", "BDS_B3", "GLO_G1", "GLO_G2", "GLO_G3",
}

// GNSS system of a band
type GnssType int

const (
	SysUnknown GnssType = iota
	GpsSys
	BdsSys
	GloSys
	GalSys
)

// Check validity of band identifier
func (p BandID) IsValid() bool {
	return p > BandUnknown && p <= GloG3
}

// Extract satellite system from band identifier
func (p BandID) Sys() GnssType {
	switch p {
	case GpsL1, GpsL2, GpsL5:
		return GpsSys
	case BdsB1, BdsB2, BdsB3:
		return BdsSys
	case GloG1, GloG2, GloG3:
		return GloSys
	default:
		return SysUnknown
	}
}

// Carrier frequency of the band [Hz]. Glonass bands use the channel 0 frequency.
func (p BandID) Freq() float64 {
	switch p {
	case GpsL1:
		return L1
	case GpsL2:
		return L2
	case GpsL5:
		return L5
	case BdsB1:
		return B1
	case BdsB2:
		return B2
	case BdsB3:
		return B3
	case GloG1:
		return G1
	case GloG2:
		return G2
	case GloG3:
		return G3
	default:
		return 0
	}
}

// Carrier wavelength of the band [m], 0 for an unknown band
func (p BandID) Wavelength() float64 {
	f := p.Freq()
	if f == 0 {
		return 0
	}
	return C / f
}

func (p BandID) String() string {
	if p < 0 || int(p) >= NBAND {
		return fmt.Sprintf("BAND(%d)", int(p))
	}
	return bandNames[p]
}

func (p BandID) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Accepts band names like "GPS_L1" or the numeric identifier
func (p *BandID) UnmarshalText(text []byte) error {
	s := strings.ToUpper(strings.TrimSpace(string(text)))
	for i, n := range bandNames {
		if s == n {
			*p = BandID(i)
			return nil
		}
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("unknown band %q", string(text))
	}
	*p = BandID(i)
	return nil
}

func (p GnssType) String() string {
	switch p {
	case GpsSys:
		return "GPS"
	case BdsSys:
		return "BDS"
	case GloSys:
		return "GLO"
	case GalSys:
		return "GAL"
	default:
		return "UNKNOWN"
	}
}

// Key of one carrier-phase stream: band and satellite PRN
type AmbKey struct {
	Band BandID `json:"band"`
	Prn  int    `json:"prn"`
}

func NewAmbKey(band BandID, prn int) AmbKey {
	return AmbKey{Band: band, Prn: prn}
}

// Malformed keys (unknown band or PRN out of range) are never stored
func (p AmbKey) IsValid() bool {
	return p.Band.IsValid() && p.Prn > 0 && p.Prn <= MaxPrn
}

// Ordering by band, then PRN
func (p AmbKey) Compare(b AmbKey) int {
	if p.Band != b.Band {
		if p.Band < b.Band {
			return -1
		}
		return 1
	}
	if p.Prn < b.Prn {
		return -1
	} else if p.Prn > b.Prn {
		return 1
	}
	return 0
}

func (p AmbKey) String() string {
	return fmt.Sprintf("%s:%02d", p.Band, p.Prn)
}

// Observation of one band of one satellite, as much as the quality checks need
type BandObs struct {
	Band        BandID  `json:"band"`
	PseudoRange float64 `json:"pseudo_range"` // [m]
}

// Observation of one satellite for one epoch
type SatObs struct {
	Prn     int       `json:"prn"`
	BandObs []BandObs `json:"band_obs"`
}
