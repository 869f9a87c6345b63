// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.14
//

package gortkqc

import (
	"fmt"
	"math"
	"os"
	"strings"

	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/mat"
)

// ------------------------------------
// Mini functions
// ------------------------------------

func SQ(x float64) float64 {
	return x * x
}

// Round to the nearest integer, ties toward +inf (floor(x + 0.5))
func Round(x float64) float64 {
	return math.Floor(x + 0.5)
}

// ------------------------------------
// Debug print function
// ------------------------------------

func PrintMat(X mat.Matrix) {
	r, c := X.Dims()
	fmt.Fprintf(os.Stderr, "(%d x %d)\n", r, c)
	fa := mat.Formatted(X, mat.Prefix(""), mat.Squeeze())
	fmt.Fprintf(os.Stderr, "%v\n", fa)
}

func PrintA(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format, a...)
}

func PrintAIf(cond bool, format string, a ...any) {
	if cond {
		PrintA(format, a...)
	}
}

func PrintB(t GTime, format string, a ...any) {
	fmt.Fprintf(os.Stderr, t.ToTime().UTC().Format("2006-01-02T15:04:05.000000")+"\t"+format, a...)
}

// Debug display level
var DBG_ int

// Debug display
func PrintD(v int, format string, a ...any) {
	PrintAIf(DBG_ >= v, format, a...)
}

func PrintE(err error) {
	fmt.Fprintf(os.Stderr, "err=%s\n", err.Error())
}

// ------------------------------------
// For command argument parsing
// ------------------------------------

// Set of bands to solve, given as "GPS_L1,BDS_B1"
type BandVar []BandID

func (p *BandVar) Set(s string) error {
	*p = []BandID{}
	for _, a := range strings.Split(s, ",") {
		var b BandID
		if err := b.UnmarshalText([]byte(a)); err != nil {
			return err
		}
		if !b.IsValid() {
			return fmt.Errorf("invalid band %q", a)
		}
		*p = append(*p, b)
	}
	return nil
}

func (p *BandVar) String() string {
	s := make([]string, 0, len(*p))
	for _, b := range *p {
		s = append(s, b.String())
	}
	return strings.Join(s, ",")
}

func (p *BandVar) Contains(b BandID) bool {
	return slices.Contains(*p, b)
}

// ------------------------------------
// Others
// ------------------------------------

// Sort the list of ambiguity keys by band, then PRN
func SortedKeys(s []AmbKey) []AmbKey {
	s2 := make([]AmbKey, len(s))
	copy(s2, s)
	slices.SortFunc(s2, func(a, b AmbKey) int {
		return a.Compare(b)
	})
	return s2
}
