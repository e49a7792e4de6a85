// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.6
//

package gopvt

import "fmt"

// One code observation
type PseudoRange struct {
	Value     float64 // [m]
	Frequency float64 // Carrier frequency [Hz]
}

// Candidate is the observation of one satellite at one sampling epoch.
// It is immutable once built, except for the sky state attached by the
// Solver while resolving.
type Candidate struct {
	SV SatType // Satellite
	T  GTime   // Sampling epoch

	state       *InterpolationResult
	tgd         *float64      // Total group delay [s]
	clockState  [3]float64    // Satellite clock bias [s], drift [s/s], drift rate [s/s^2]
	clockCorr   float64       // Satellite clock correction [s]
	snr         *float64      // [dB-Hz]
	pseudoRange []PseudoRange // Never empty
}

// NewCandidate builds a candidate. prs must hold at least one observation.
func NewCandidate(sv SatType, t GTime, clockState [3]float64, clockCorr float64, snr *float64, prs []PseudoRange) (*Candidate, error) {
	if len(prs) == 0 {
		return nil, fmt.Errorf("%s: %w", sv, ErrEmptyPseudoRange)
	}
	c := &Candidate{
		SV:          sv,
		T:           t,
		clockState:  clockState,
		clockCorr:   clockCorr,
		pseudoRange: append([]PseudoRange(nil), prs...),
	}
	if snr != nil {
		v := *snr
		c.snr = &v
	}
	return c, nil
}

// SetGroupDelay sets the total group delay [s] of the satellite
func (c *Candidate) SetGroupDelay(tgd float64) {
	c.tgd = &tgd
}

func (c *Candidate) GroupDelay() (float64, bool) {
	if c.tgd == nil {
		return 0, false
	}
	return *c.tgd, true
}

func (c *Candidate) ClockState() [3]float64 {
	return c.clockState
}

// ClockCorr returns the satellite clock correction [s]
func (c *Candidate) ClockCorr() float64 {
	return c.clockCorr
}

func (c *Candidate) SNR() (float64, bool) {
	if c.snr == nil {
		return 0, false
	}
	return *c.snr, true
}

func (c *Candidate) PseudoRanges() []PseudoRange {
	return append([]PseudoRange(nil), c.pseudoRange...)
}

// State returns the sky state attached while resolving
func (c *Candidate) State() (InterpolationResult, bool) {
	if c.state == nil {
		return InterpolationResult{}, false
	}
	return *c.state, true
}

// Clone returns a copy that shares no mutable data with c
func (c *Candidate) Clone() *Candidate {
	c2 := *c
	c2.pseudoRange = append([]PseudoRange(nil), c.pseudoRange...)
	if c.state != nil {
		s := *c.state
		c2.state = &s
	}
	if c.tgd != nil {
		v := *c.tgd
		c2.tgd = &v
	}
	if c.snr != nil {
		v := *c.snr
		c2.snr = &v
	}
	return &c2
}

// PseudoRange selects the observation used for the solution
func (c *Candidate) PseudoRange(cfg *Config) PseudoRange {
	if cfg.PrSelection == PrPrimary {
		for _, pr := range c.pseudoRange {
			if pr.Frequency == cfg.PrimaryFrequency {
				return pr
			}
		}
	}
	return c.pseudoRange[0]
}

// TransmissionTime back-solves the epoch at which the signal left the
// satellite. The result must lie within (0, 1) s before the sampling epoch,
// otherwise an *ImplausibleTransmissionTimeError is returned.
func (c *Candidate) TransmissionTime(cfg *Config) (GTime, error) {
	pr := c.PseudoRange(cfg)
	tx := c.T.Add(-pr.Value / C)
	if cfg.Modeling.SvClockBias {
		tx = tx.Add(-c.clockCorr)
	}
	if cfg.Modeling.SvTotalGroupDelay && c.tgd != nil {
		tx = tx.Add(-*c.tgd)
	}
	dt := c.T.Sub(tx)
	if !(dt > 0 && dt < 1) {
		return GTime{}, &ImplausibleTransmissionTimeError{SV: c.SV, Dt: dt}
	}
	return tx, nil
}
