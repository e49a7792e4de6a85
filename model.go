// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.9
//

package gopvt

import (
	"math"
)

// Weighting constants
const (
	MIN_WEIGHT               = 0.001 // Minimum weight value
	MIN_ELEVATION_FOR_WEIGHT = 5.0   // Minimum elevation angle for weight calculation [deg]
)

// One linearized observation
type obsRow struct {
	sv    SatType
	g     [4]float64 // d(range)/d(x, y, z), 1 for the clock
	y     float64    // Prefit residual [m]
	w     float64    // Weight
	tropo TimeDelay  // Slant tropospheric delay applied
}

// buildRow linearizes the observation of c around x0.
//   - y = pr - rho - (-clk*c + tropo) - extref*c + sum(intdelay*c)
//   - g = ((x0-xs)/rho, (y0-ys)/rho, (z0-zs)/rho, 1)
func (s *Solver) buildRow(c *Candidate, x0 PosXYZ, tc TropoComponents, kind DelayKind, stec *float64) obsRow {
	st := c.state
	pr := c.PseudoRange(&s.cfg)
	sp := st.SkyPos

	rho := EucDist(x0, sp)
	models := -c.clockCorr * C

	delay := 0.0
	if kind != DelayNone {
		delay = TropoDelay(st.Elevation, tc.Zwd, tc.Zdd)
	}
	models += delay

	// Slant TEC is accepted in SPP but not applied
	if s.mode == SPP && stec != nil {
		s.logger.Debug("ionospheric estimate ignored", "sv", c.SV, "stec_tecu", *stec)
	}

	y := pr.Value - rho - models
	if s.cfg.ExternalRefDelay != nil {
		y -= *s.cfg.ExternalRefDelay * C
	}
	for _, d := range s.cfg.IntDelay {
		if d.Frequency == pr.Frequency {
			y += d.Delay * C
		}
	}

	r := obsRow{
		sv: c.SV,
		g: [4]float64{
			(x0.X - sp.X) / rho,
			(x0.Y - sp.Y) / rho,
			(x0.Z - sp.Z) / rho,
			1,
		},
		y:     y,
		w:     getWeight(s.cfg.WeightMode, st.Elevation, pr.Frequency),
		tropo: TimeDelay{Kind: kind, Value: delay},
	}
	s.logger.Debug("observation",
		"sv", c.SV, "elev", st.Elevation, "pr", pr.Value, "rho", rho,
		"clk_m", c.clockCorr*C, "tropo", delay, "y", y, "w", r.w)
	return r
}

// getWeight calculates observation weight based on elevation angle [deg]
// and the carrier frequency of the pseudorange.
func getWeight(mode WeightMode, elv, freq float64) (wg float64) {
	if elv <= 0 {
		return 1.0
	}
	el := ToRad(elv)
	switch mode {
	case WeightEqual:
		return 1.0
	case WeightRTKLIB:
		if elv < MIN_ELEVATION_FOR_WEIGHT {
			el = ToRad(MIN_ELEVATION_FOR_WEIGHT)
		}
		if freq <= 0 {
			freq = L1
		}
		varr := SQ(100) * (SQ(0.003) + SQ(0.003)/math.Sin(el))
		wg = varr
		wg += SQ(0.3)               // code bias error std
		wg += SQ(5.0) * SQ(L1/freq) // ionospheric delay (L1) variance
		wg += SQ(3.0)               // tropospheric delay variance
		wg = 1.0 / wg
	case WeightElevation:
		wg = elv / 90.0
	case WeightSinEl:
		const VER_ZNH = 0.8 * 0.8
		wg = math.Sin(el) * math.Sin(el) / VER_ZNH
	default:
		return 1.0
	}
	if wg < MIN_WEIGHT {
		wg = MIN_WEIGHT
	}
	return
}
