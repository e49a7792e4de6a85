// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.12
//

package gopvt

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrNoEphemeris is returned when no broadcast ephemeris covers the epoch
var ErrNoEphemeris = errors.New("no valid ephemeris")

// Broadcast ephemeris of one satellite, one issue (G, J, E, C)
type Ephe struct {
	Sat  SatType
	Toc  GTime // Reference time for satellite clock error correction
	Toe  GTime // Reference time for satellite orbit calculation
	Tot  GTime // Transmission time
	Iode int

	Af0    float64
	Af1    float64
	Af2    float64
	Crs    float64
	DeltaN float64
	M0     float64
	Cuc    float64
	Ecc    float64
	Cus    float64
	SqrtA  float64
	Cic    float64
	Omega0 float64
	Cis    float64
	I0     float64
	Crc    float64
	Omega  float64
	OmegaD float64
	Idot   float64
	Code   int
	Week   int
	Flag   int
	Sva    int
	Svh    int
	Tgd    float64 // GPS, QZS, GAL(E5a/E1), BDS(B1/B3)
	Tgd2   float64 // GAL(E5b/E1), BDS(B2/B3)
	Iodc   int     // GPS, QZS, BDS
	Fit    float64 // GPS, QZS
}

func (e *Ephe) String() string {
	return fmt.Sprintf("%s toe=%s toc=%s iode=%d svh=%d",
		e.Sat,
		e.Toe.ToTime().UTC().Format("2006/01/02 15:04:05"),
		e.Toc.ToTime().UTC().Format("2006/01/02 15:04:05"),
		e.Iode, e.Svh)
}

// GroupDelay returns the group delay applicable to the primary signal [s]
func (e *Ephe) GroupDelay() float64 {
	if e.Sat.Sys() == 'E' {
		return e.Tgd2 // E1/E5b
	}
	return e.Tgd
}

// Navigation data for each satellite.
// Map with satellite name as key and slice sorted by transmission time (Tot).
type Nav map[SatType][]*Ephe

// GetEphe selects the ephemeris whose ToE is closest to gt, within the
// system's validity window (RTKLIB method).
func (nav *Nav) GetEphe(sat SatType, gt GTime) (*Ephe, error) {
	var diffMax float64
	switch sat.Sys() {
	case 'E':
		diffMax = 14400 // Following RTKLIB's MAXDTOE_GAL
	case 'C':
		diffMax = 21601 // Following RTKLIB's MAXDTOE_CMP
	default:
		diffMax = 7201
	}
	navs, ok := (*nav)[sat]
	if !ok {
		return nil, fmt.Errorf("%s: %w", sat, ErrNoEphemeris)
	}
	j := -1
	for i, eph := range navs {
		d := eph.Toe.Sub(gt)
		// For GALILEO, future ToE is not allowed (RTKLIB does this)
		if sat.Sys() == 'E' && d >= 0 {
			continue
		}
		if math.Abs(d) < diffMax {
			diffMax = math.Abs(d)
			j = i
		}
	}
	if j < 0 {
		return nil, fmt.Errorf("%s at %s: %w", sat, gt, ErrNoEphemeris)
	}
	return navs[j], nil
}

// Display navigation data overview
func (p *Nav) String() string {
	keys := []SatType{}
	for k := range *p {
		keys = append(keys, k)
	}
	keys = Sorted(keys)
	var sb strings.Builder
	for _, sat := range keys {
		navs := (*p)[sat]
		if len(navs) == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("%s: %s - %s (%d)\n", sat,
			navs[0].Toc.ToTime().UTC().Format("2006/01/02 15:04:05"),
			navs[len(navs)-1].Toc.ToTime().UTC().Format("2006/01/02 15:04:05"),
			len(navs)))
	}
	return sb.String()
}

// NavProvider resolves satellite states from broadcast ephemerides.
// Elevation and azimuth are computed from Ref, which the caller moves along
// with the receiver.
type NavProvider struct {
	Nav *Nav
	Ref PosXYZ
}

// Interpolate evaluates the Keplerian orbit at t. order is not used.
func (p *NavProvider) Interpolate(t GTime, sv SatType, order int) (InterpolationResult, bool) {
	eph, err := p.Nav.GetEphe(sv, t)
	if err != nil {
		return InterpolationResult{}, false
	}
	xyz := eph.Pos(t)
	if !xyz.IsFinite() || xyz.IsZero() {
		return InterpolationResult{}, false
	}
	return skyState(xyz, p.Ref), true
}
