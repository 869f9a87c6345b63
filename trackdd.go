// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.16
//

// Implements the single-difference / double-difference bookkeeping of the ambiguity tracker.

package gortkqc

import (
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/mat"
)

// Band-aggregated single-difference ambiguity residual [cycle], indexed by BandID
type BandResidual [NBAND]float64

// MatrixSD2DD builds the transform D from the single-difference ambiguities of
// the unresolved list (in index order) to double differences, together with
// the reference ambiguities refAmb such that
//
//	DD = D * SD - refAmb,  SD = D^-1 * (DD + refAmb)
//
// Per band:
//   - fixed reference with value N: rows are identity, refAmb = N
//   - unresolved reference at index j: row i != j has -1 at column j, row j
//     stays identity, refAmb = 0
//   - no eligible reference (no satellite of the band has a logged elevation
//     reaching ElevMaskRef): the band block stays identity, refAmb = 0
//
// Returns nil matrices when nothing is unresolved.
func (p *AmbTracker) MatrixSD2DD() (*mat.Dense, *mat.VecDense) {
	n := len(p.unresolved)
	if n == 0 {
		return nil, nil
	}
	p.resolveReferences()

	D := mat.NewDense(n, n, nil)
	refAmb := mat.NewVecDense(n, nil)
	for i, key := range p.unresolved {
		D.Set(i, i, 1.0)
		ri := p.referenceIndex(key)
		if ri < 0 {
			continue
		}
		ref := p.reference[ri]
		if v, ok := p.fixed[ref]; ok {
			refAmb.SetVec(i, v)
			continue
		}
		if j := slices.Index(p.unresolved, ref); j >= 0 && j != i {
			D.Set(i, j, -1.0)
		}
	}
	if DBG_ >= 4 {
		PrintA("SD2DD=\n")
		PrintMat(D)
		PrintA("refAmb=\n")
		PrintMat(refAmb)
	}
	return D, refAmb
}

// UpdateSDAmb rounds the float single-difference ambiguities of the
// unresolved list to an integer proposal. Rounding happens in double
// difference against the band reference and the result is given back in
// single difference:
//   - unresolved reference: Round(float)
//   - others: Round(float - refFloat) + refInt, where refFloat and refInt are
//     the fixed value when the reference is fixed
//   - band without reference: Round(float)
//
// floatSD must have one element per unresolved phase.
func (p *AmbTracker) UpdateSDAmb(floatSD mat.Vector) (*mat.VecDense, error) {
	n := len(p.unresolved)
	if floatSD == nil {
		if n == 0 {
			return nil, nil
		}
		return nil, invariantf("float sd missing, num of unresolved phases=%d", n)
	}
	if floatSD.Len() != n {
		return nil, invariantf("float sd size %d != num of unresolved phases %d", floatSD.Len(), n)
	}
	for i, key := range p.unresolved {
		if v := floatSD.AtVec(i); math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.Wrapf(ErrInvalidAmbiguity, "%s: %v", key, v)
		}
	}
	p.resolveReferences()

	integerSD := mat.NewVecDense(n, nil)
	for i, key := range p.unresolved {
		f := floatSD.AtVec(i)
		ri := p.referenceIndex(key)
		if ri < 0 {
			integerSD.SetVec(i, Round(f))
			continue
		}
		ref := p.reference[ri]
		if v, ok := p.fixed[ref]; ok {
			integerSD.SetVec(i, Round(f-v)+v)
			continue
		}
		j := slices.Index(p.unresolved, ref)
		if j == i {
			integerSD.SetVec(i, Round(f))
			continue
		}
		fr := floatSD.AtVec(j)
		integerSD.SetVec(i, Round(f-fr)+Round(fr))
	}
	if DBG_ >= 3 {
		for i, key := range p.unresolved {
			PrintA("\t%s: %10.3f ---> %10.1f\n", key, floatSD.AtVec(i), integerSD.AtVec(i))
		}
	}
	return integerSD, nil
}

// AddFixedAmb commits an accepted integer single-difference vector, one
// element per unresolved phase. Each finite element promotes its phase to
// fixed; NaN leaves the phase unresolved. The vector is checked completely
// before anything is committed.
func (p *AmbTracker) AddFixedAmb(integerSD mat.Vector) error {
	n := len(p.unresolved)
	if integerSD == nil {
		return invariantf("integer sd missing, num of unresolved phases=%d", n)
	}
	if integerSD.Len() != n {
		return invariantf("integer sd size %d != num of unresolved phases %d", integerSD.Len(), n)
	}
	for i, key := range p.unresolved {
		if math.IsInf(integerSD.AtVec(i), 0) {
			return errors.Wrapf(ErrInvalidAmbiguity, "%s: %v", key, integerSD.AtVec(i))
		}
	}

	remain := make([]AmbKey, 0, n)
	for i, key := range p.unresolved {
		v := integerSD.AtVec(i)
		if math.IsNaN(v) {
			remain = append(remain, key)
			continue
		}
		p.fixed[key] = v
	}
	PrintD(2, "\tfixed ambiguities added: %d, unresolved: %d\n", n-len(remain), len(remain))
	p.unresolved = remain
	return nil
}

// ReupdateReferenceAmb moves the fixed ambiguity of each band reference by the
// band residual so that a common bias of the band is absorbed by the
// reference instead of the individual satellites. Returns true if any
// reference was moved.
func (p *AmbTracker) ReupdateReferenceAmb(res *BandResidual) bool {
	if res == nil {
		return false
	}
	updated := false
	for _, ref := range p.reference {
		v, ok := p.fixed[ref]
		if !ok {
			continue
		}
		d := res[ref.Band]
		if d == 0 || math.IsNaN(d) || math.IsInf(d, 0) {
			continue
		}
		p.fixed[ref] = v + d
		PrintD(3, "\treference %s: %.3f -> %.3f\n", ref, v, v+d)
		updated = true
	}
	return updated
}
