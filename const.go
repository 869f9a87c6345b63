// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.12
//

package gortkqc

const (
	C          = 2.99792458e8 // Speed of light [m/s]
	SecPerWeek = 604800.0     // Seconds per GPS week
	MaxPrn     = 64           // Largest PRN accepted in an ambiguity key
	L1         = 1575420000.0 // L1 frequency of G/J [Hz]
	L2         = 1227600000.0 // L2 frequency of G/J [Hz]
	L5         = 1176450000.0 // L5 frequency of G/J [Hz]
	B1         = 1561098000.0 // B1 frequency of Beidou [Hz]
	B2         = 1207140000.0 // B2 frequency of Beidou [Hz]
	B3         = 1268520000.0 // B3 frequency of Beidou [Hz]
	G1         = 1602000000.0 // G1 frequency of Glonass (channel 0) [Hz]
	G2         = 1246000000.0 // G2 frequency of Glonass (channel 0) [Hz]
	G3         = 1202025000.0 // G3 frequency of Glonass [Hz]
)
