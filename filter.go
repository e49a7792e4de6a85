// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.9
//

package gopvt

import (
	"log/slog"

	"golang.org/x/exp/slices"
)

// FilterElevation removes, in place and in a single stable pass, every
// candidate whose elevation is below mask [deg]. Candidates without a sky
// state are kept. The returned slice aliases pool.
func FilterElevation(pool []*Candidate, mask float64, logger *slog.Logger) []*Candidate {
	return slices.DeleteFunc(pool, func(c *Candidate) bool {
		if c.state == nil || c.state.Elevation >= mask {
			return false
		}
		if logger != nil {
			logger.Debug("below elevation mask", "sv", c.SV, "epoch", c.T, "elev", c.state.Elevation, "mask", mask)
		}
		return true
	})
}

// FilterEclipse removes, in place and in a single stable pass, every
// candidate in umbra or whose penumbra illumination fraction is below
// minRate. Candidates for which astro fails are removed too.
func FilterEclipse(pool []*Candidate, minRate float64, astro AstroProvider, logger *slog.Logger) []*Candidate {
	return slices.DeleteFunc(pool, func(c *Candidate) bool {
		if c.state == nil {
			return false
		}
		orbit := Orbit{
			Pos:   c.state.SkyPos.Scale(1e-3), // m -> km
			Epoch: c.T,
			Frame: FrameEarthFixed,
		}
		st, err := astro.EclipseState(orbit, FrameSunJ2000, FrameEarthFixed)
		if err != nil {
			if logger != nil {
				logger.Warn("eclipse state failed, dropping", "sv", c.SV, "epoch", c.T, "err", err)
			}
			return true
		}
		eclipsed := false
		switch st.Kind {
		case Umbra:
			eclipsed = true
		case Penumbra:
			eclipsed = st.Fraction < minRate
		}
		if eclipsed && logger != nil {
			logger.Debug("earth eclipsed, dropping", "sv", c.SV, "epoch", c.T, "state", st.Kind, "fraction", st.Fraction)
		}
		return eclipsed
	})
}
