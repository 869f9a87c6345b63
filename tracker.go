// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.16
//

// Implements the per-satellite-band ambiguity store kept across epochs.

package gortkqc

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// TrackerOpt contains the elevation thresholds used by the ambiguity tracker
type TrackerOpt struct {
	ElevMaskRef        float64 // Minimum elevation for a reference satellite [deg]
	ElevMaskDescending float64 // Ambiguities of satellites below this elevation are dropped [deg]
}

// NewTrackerOpt creates a new TrackerOpt with default values
func NewTrackerOpt() *TrackerOpt {
	return &TrackerOpt{
		ElevMaskRef:        15, // Same as the default elevation mask of the float solution
		ElevMaskDescending: 10, // Keep fixed ambiguities a little below the mask
	}
}

// AmbTracker keeps the ambiguity state of every tracked band/satellite pair.
//
// A key is either fixed (trusted value in the fixed map) or unresolved (listed
// for the current epoch and addressed by its index in that list), never both.
// Each band has at most one reference satellite, used to form double
// differences. The tracker is not safe for concurrent use; one solving
// session owns one tracker.
type AmbTracker struct {
	opt        *TrackerOpt
	fixed      map[AmbKey]float64 // Fixed ambiguities of all bands including the reference satellites
	unresolved []AmbKey           // Unresolved phases of the current epoch in registration order
	reference  []AmbKey           // Reference satellite of each band
	elevation  map[AmbKey]float64 // Elevation angles [deg]
	halfCycle  []AmbKey           // Phases flagged with a half-cycle offset
}

// NewAmbTracker creates an empty tracker. A nil opt selects the defaults.
func NewAmbTracker(opt *TrackerOpt) *AmbTracker {
	if opt == nil {
		opt = NewTrackerOpt()
	}
	return &AmbTracker{
		opt:       opt,
		fixed:     map[AmbKey]float64{},
		elevation: map[AmbKey]float64{},
	}
}

// ------------------------------------
// Fixed ambiguities
// ------------------------------------

// SetFixedAmb stores val as the fixed ambiguity of key, overwriting any previous
// value. An unresolved entry of the same key is promoted. Returns false for a
// malformed key.
func (p *AmbTracker) SetFixedAmb(key AmbKey, val float64) bool {
	if !p.setLog(key, val, p.fixed) {
		return false
	}
	p.unresolved = removeKey(p.unresolved, key)
	return true
}

func (p *AmbTracker) GetFixedAmb(key AmbKey) (float64, bool) {
	return p.getLog(key, p.fixed)
}

func (p *AmbTracker) NumFixedAmb() int {
	return len(p.fixed)
}

// FixedKeys returns the keys of all fixed ambiguities sorted by band and PRN
func (p *AmbTracker) FixedKeys() []AmbKey {
	return SortedKeys(maps.Keys(p.fixed))
}

// NumFixedSys returns the number of satellite systems among the fixed ambiguities
func (p *AmbTracker) NumFixedSys() int {
	sys := map[GnssType]struct{}{}
	for k := range p.fixed {
		sys[k.Band.Sys()] = struct{}{}
	}
	return len(sys)
}

// ------------------------------------
// Unresolved phases
// ------------------------------------

// AddUnfixedPhase registers key as unresolved for the current epoch and
// returns its index. A key already listed keeps its index. Malformed and
// already-fixed keys are rejected.
func (p *AmbTracker) AddUnfixedPhase(key AmbKey) (int, bool) {
	if !key.IsValid() {
		return -1, false
	}
	if _, ok := p.fixed[key]; ok {
		return -1, false
	}
	if i := slices.Index(p.unresolved, key); i >= 0 {
		return i, true
	}
	p.unresolved = append(p.unresolved, key)
	return len(p.unresolved) - 1, true
}

// UnfixedAmbIndex returns the index of key in the unresolved list. The index
// is valid until the next mutation of the tracker.
func (p *AmbTracker) UnfixedAmbIndex(key AmbKey) (int, bool) {
	i := slices.Index(p.unresolved, key)
	return i, i >= 0
}

func (p *AmbTracker) NumUnfixedAmb() int {
	return len(p.unresolved)
}

func (p *AmbTracker) UnfixedPhase(i int) (AmbKey, bool) {
	if i < 0 || i >= len(p.unresolved) {
		return AmbKey{}, false
	}
	return p.unresolved[i], true
}

// UnfixedPhases returns a copy of the unresolved list in index order
func (p *AmbTracker) UnfixedPhases() []AmbKey {
	return slices.Clone(p.unresolved)
}

// ResetUnfixedPhase empties the unresolved list. Reference satellites that
// were only unresolved are released with it.
func (p *AmbTracker) ResetUnfixedPhase() {
	p.unresolved = nil
	p.reference = slices.DeleteFunc(p.reference, func(k AmbKey) bool {
		_, ok := p.fixed[k]
		return !ok
	})
}

// ------------------------------------
// Elevation
// ------------------------------------

func (p *AmbTracker) Elevation(key AmbKey) (float64, bool) {
	return p.getLog(key, p.elevation)
}

// SetElevation upserts the elevation angle [deg] of key. Malformed keys are
// not stored and return false.
func (p *AmbTracker) SetElevation(key AmbKey, elvDeg float64) bool {
	return p.setLog(key, elvDeg, p.elevation)
}

// ------------------------------------
// Reference satellites
// ------------------------------------

// ReferenceAmb returns the fixed ambiguity of the reference satellite of the
// band of key. False if the band has no reference or it is not fixed yet.
func (p *AmbTracker) ReferenceAmb(key AmbKey) (float64, bool) {
	i := p.referenceIndex(key)
	if i < 0 {
		return 0, false
	}
	return p.getLog(p.reference[i], p.fixed)
}

// References returns the reference satellites sorted by band
func (p *AmbTracker) References() []AmbKey {
	return SortedKeys(p.reference)
}

// resolveReferences makes sure that every band of the unresolved list has a
// reference if one is eligible. A reference that is still tracked is kept.
// Otherwise the highest satellite of the band whose logged elevation reaches
// ElevMaskRef is chosen, fixed satellites first.
func (p *AmbTracker) resolveReferences() {
	bands := []BandID{}
	for _, k := range p.unresolved {
		if !slices.Contains(bands, k.Band) {
			bands = append(bands, k.Band)
		}
	}
	for _, band := range bands {
		i := p.referenceIndex(AmbKey{Band: band})
		if i >= 0 && p.isTracked(p.reference[i]) {
			continue
		}
		if i >= 0 {
			p.reference = slices.Delete(p.reference, i, i+1)
		}
		ref, ok := p.highestInBand(band, p.FixedKeys())
		if !ok {
			ref, ok = p.highestInBand(band, p.unresolved)
		}
		if !ok {
			PrintD(2, "\tno reference satellite for %s\n", band)
			continue
		}
		PrintD(3, "\treference satellite for %s: %s\n", band, ref)
		p.reference = append(p.reference, ref)
	}
}

func (p *AmbTracker) highestInBand(band BandID, keys []AmbKey) (AmbKey, bool) {
	maxElev := p.opt.ElevMaskRef
	var ref AmbKey
	found := false
	for _, k := range keys {
		if k.Band != band {
			continue
		}
		elev, ok := p.elevation[k]
		if !ok || elev < maxElev || (found && elev == maxElev) {
			continue
		}
		maxElev = elev
		ref = k
		found = true
	}
	return ref, found
}

// ------------------------------------
// Deletion
// ------------------------------------

// DeleteSlipAmb forgets everything about key after a cycle slip. The phase
// has to be registered again as a new unresolved ambiguity. Returns false if
// key was not tracked.
func (p *AmbTracker) DeleteSlipAmb(key AmbKey) bool {
	if !p.isTracked(key) {
		return false
	}
	p.deleteLog(key, p.fixed)
	p.deleteLog(key, p.elevation)
	p.unresolved = removeKey(p.unresolved, key)
	p.reference = removeKey(p.reference, key)
	PrintD(2, "\tslip ambiguity deleted: %s\n", key)
	return true
}

// DeleteDescendingAmb drops the ambiguities of satellites that went below
// ElevMaskDescending or have no elevation logged (out of view). Returns true
// if anything was dropped.
func (p *AmbTracker) DeleteDescendingAmb() bool {
	deleted := false
	drop := func(k AmbKey) bool {
		elev, ok := p.elevation[k]
		return !ok || elev < p.opt.ElevMaskDescending
	}
	for _, k := range p.FixedKeys() {
		if drop(k) {
			p.deleteLog(k, p.fixed)
			p.reference = removeKey(p.reference, k)
			PrintD(2, "\tdescending ambiguity deleted: %s\n", k)
			deleted = true
		}
	}
	for _, k := range slices.Clone(p.unresolved) {
		if drop(k) {
			p.unresolved = removeKey(p.unresolved, k)
			p.reference = removeKey(p.reference, k)
			deleted = true
		}
	}
	return deleted
}

// ClearObsHistory clears the per-epoch bookkeeping: unresolved phases and elevations
func (p *AmbTracker) ClearObsHistory() {
	p.ResetUnfixedPhase()
	p.elevation = map[AmbKey]float64{}
}

// ClearAll clears the whole state including fixed ambiguities and references
func (p *AmbTracker) ClearAll() bool {
	p.fixed = map[AmbKey]float64{}
	p.unresolved = nil
	p.reference = nil
	p.elevation = map[AmbKey]float64{}
	p.halfCycle = nil
	return true
}

// ------------------------------------
// Half cycle
// ------------------------------------

// Half-cycle resolution is disabled. Flagged phases are recorded, but
// IsHalfCycle never reports one.

func (p *AmbTracker) ClearHalfCycleRecorder() {
	p.halfCycle = nil
}

func (p *AmbTracker) AddHalfCycleRecorder(key AmbKey) {
	if key.IsValid() && !slices.Contains(p.halfCycle, key) {
		p.halfCycle = append(p.halfCycle, key)
	}
}

func (p *AmbTracker) NumHalfCycle() int {
	return len(p.halfCycle)
}

// IsHalfCycle always returns false: half-cycle resolution is disabled.
func (p *AmbTracker) IsHalfCycle(key AmbKey) bool {
	return false
}

// ------------------------------------
// Invariant
// ------------------------------------

// CheckInvariant verifies the structural invariants of the tracker
func (p *AmbTracker) CheckInvariant() error {
	for i, k := range p.unresolved {
		if _, ok := p.fixed[k]; ok {
			return invariantf("%s is both fixed and unresolved", k)
		}
		if j := slices.Index(p.unresolved, k); j != i {
			return invariantf("%s is listed twice as unresolved (%d, %d)", k, j, i)
		}
	}
	bands := map[BandID]AmbKey{}
	for _, r := range p.reference {
		if prev, ok := bands[r.Band]; ok {
			return invariantf("two references for %s: %s and %s", r.Band, prev, r)
		}
		bands[r.Band] = r
		if !p.isTracked(r) {
			return invariantf("reference %s is neither fixed nor unresolved", r)
		}
	}
	return nil
}

// ------------------------------------
// Helpers
// ------------------------------------

func (p *AmbTracker) getLog(key AmbKey, logger map[AmbKey]float64) (float64, bool) {
	v, ok := logger[key]
	return v, ok
}

func (p *AmbTracker) setLog(key AmbKey, val float64, logger map[AmbKey]float64) bool {
	if !key.IsValid() {
		return false
	}
	logger[key] = val
	return true
}

func (p *AmbTracker) deleteLog(key AmbKey, logger map[AmbKey]float64) bool {
	if _, ok := logger[key]; !ok {
		return false
	}
	delete(logger, key)
	return true
}

// Index in the reference list of the reference of the band of key, -1 if none
func (p *AmbTracker) referenceIndex(key AmbKey) int {
	return slices.IndexFunc(p.reference, func(r AmbKey) bool {
		return r.Band == key.Band
	})
}

func (p *AmbTracker) isTracked(key AmbKey) bool {
	if _, ok := p.fixed[key]; ok {
		return true
	}
	return slices.Contains(p.unresolved, key)
}

func removeKey(s []AmbKey, key AmbKey) []AmbKey {
	if i := slices.Index(s, key); i >= 0 {
		return slices.Delete(s, i, i+1)
	}
	return s
}
