// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.12
//

package gopvt

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"
)

// Type representing satellite name like "G10"
type SatType string

// Type representing satellite system like 'G'
type SysType byte

// Extract satellite system from satellite name
func (p SatType) Sys() SysType {
	if len(p) == 0 {
		return 0
	}
	return SysType(p[0])
}

// Check validity of satellite system.
// GLONASS and SBAS are not handled: one receiver clock column cannot absorb
// their inter-system biases.
func (p SysType) IsValid() bool {
	return p == 'G' || p == 'J' || p == 'E' || p == 'C'
}

// Extract satellite number from satellite name
func (p SatType) Num() int {
	if len(p) < 3 {
		return 0
	}
	i, err := strconv.Atoi(string(p[1:3]))
	if err != nil {
		return 0
	}
	return i
}

// Number of carrier frequencies
const NFREQ = 4

// Observation data for one satellite for one epoch
type ObsS struct {
	Pr   [NFREQ]float64  // Pseudorange
	Sn   [NFREQ]float64  // Signal strength
	Freq [NFREQ]float64  // Carrier frequency
	Code [NFREQ]CodeType // Observation code (1C,2X,5I etc.)
}

// Observation data for all satellites in one epoch
type ObsE struct {
	Time GTime             // Epoch time
	DatS map[SatType]*ObsS // Observation data for each satellite
}

// Return map keys as slice
func (p *ObsE) Sats() []SatType {
	s := make([]SatType, 0, len(p.DatS))
	for k := range p.DatS {
		s = append(s, k)
	}
	return s
}

// Observation data for all epochs
type Obs struct {
	DatE    []*ObsE                // Satellite data for each time (sorted by time in ascending order)
	Codes   map[SysType][]CodeType // List of observation codes contained in file
	Skipped int                    // Lines that could not be parsed
}

// Display observation data overview
func (p *Obs) String() string {
	if len(p.DatE) == 0 {
		return "NO DATA"
	}
	sl := map[SysType][]SatType{}
	for _, obse := range p.DatE {
		for sat := range obse.DatS {
			if !slices.Contains(sl[sat.Sys()], sat) {
				sl[sat.Sys()] = append(sl[sat.Sys()], sat)
			}
		}
	}
	var sb strings.Builder
	for _, sys := range []SysType{'G', 'J', 'E', 'C'} {
		a := sl[sys]
		if len(a) == 0 {
			continue
		}
		sort.Slice(a, func(i, j int) bool { return a[i] < a[j] })
		sb.WriteString(fmt.Sprintf("%c(%d):", sys, len(a)))
		for _, b := range a {
			sb.WriteString(" " + string(b[1:]))
		}
		sb.WriteString("; ")
	}
	return fmt.Sprintf("%s - %s (%d epochs) %s",
		p.DatE[0].Time.ToTime().UTC().Format("2006/01/02 15:04:05.000"),
		p.DatE[len(p.DatE)-1].Time.ToTime().UTC().Format("2006/01/02 15:04:05.000"),
		len(p.DatE), strings.TrimSuffix(sb.String(), "; "))
}

// Satellite selection used when building the candidate pool of an epoch
type CandidateOpt struct {
	Sys    []SysType // Satellite systems to use. Empty means all
	ExSats []SatType // Satellites to exclude
	CnMask float64   // Signal strength mask [dB-Hz], 0 disables
}

// Candidates builds the candidate pool of the epoch from the observations
// and the broadcast ephemeris. Satellites without a usable ephemeris, not
// healthy, below the C/N mask or without pseudorange are skipped.
// Clock corrections and group delays are taken from the ephemeris.
func (p *ObsE) Candidates(nav *Nav, opt CandidateOpt, logger *slog.Logger) []*Candidate {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	pool := make([]*Candidate, 0, len(p.DatS))
	for _, sat := range Sorted(p.Sats()) {
		obss := p.DatS[sat]

		if !sat.Sys().IsValid() {
			continue
		}
		if len(opt.Sys) > 0 && !slices.Contains(opt.Sys, sat.Sys()) {
			continue
		}
		if slices.Contains(opt.ExSats, sat) {
			logger.Debug("excluded satellite", "sv", sat)
			continue
		}

		eph, err := nav.GetEphe(sat, p.Time)
		if err != nil {
			logger.Debug("no ephemeris", "sv", sat, "err", err)
			continue
		}

		if opt.CnMask > 0 && obss.Sn[0] < opt.CnMask {
			logger.Debug("below C/N mask", "sv", sat, "cn", obss.Sn[0], "mask", opt.CnMask)
			continue
		}

		svh := eph.Svh
		if sat.Sys() == 'J' { // Ignore health flag for QZSS
			svh &= 0xfffffffe
		}
		if svh != 0 {
			logger.Debug("not healthy", "sv", sat, "svh", eph.Svh)
			continue
		}

		var prs []PseudoRange
		for f := range NFREQ {
			if obss.Pr[f] != 0 && obss.Freq[f] != 0 {
				prs = append(prs, PseudoRange{Value: obss.Pr[f], Frequency: obss.Freq[f]})
			}
		}
		if len(prs) == 0 {
			logger.Debug("no pseudorange", "sv", sat)
			continue
		}

		// Satellite clock evaluated at the approximate transmission time
		tx := p.Time.Add(-prs[0].Value / C)
		bias, drift, rate := eph.Clock(tx)
		var snr *float64
		if obss.Sn[0] > 0 {
			v := obss.Sn[0]
			snr = &v
		}
		c, err := NewCandidate(sat, p.Time, [3]float64{bias, drift, rate}, bias+eph.Relativistic(tx), snr, prs)
		if err != nil {
			logger.Debug("invalid candidate", "sv", sat, "err", err)
			continue
		}
		c.SetGroupDelay(eph.GroupDelay())
		pool = append(pool, c)
	}
	return pool
}
