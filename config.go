// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.5
//

package gopvt

import (
	"errors"
	"fmt"
	"math"
)

// Modeling toggles which physical effects are compensated.
// IonoDelay, EarthRotation and RelativisticClockCorr are accepted but have
// no effect on the solution; see Config.InertFlags.
type Modeling struct {
	SvClockBias           bool `mapstructure:"sv_clock_bias"`           // Subtract satellite clock correction
	SvTotalGroupDelay     bool `mapstructure:"sv_total_group_delay"`    // Subtract group delay (TGD) when present
	TropoDelay            bool `mapstructure:"tropo_delay"`             // Model tropospheric delay
	IonoDelay             bool `mapstructure:"iono_delay"`              // Not applied
	EarthRotation         bool `mapstructure:"earth_rotation"`          // Not applied
	RelativisticClockCorr bool `mapstructure:"relativistic_clock_corr"` // Not applied
}

// Cable delay of the receiver chain for one carrier frequency
type InternalDelay struct {
	Frequency float64 `mapstructure:"frequency"` // [Hz]
	Delay     float64 `mapstructure:"delay"`     // [s]
}

// Pseudorange selection policy, applied when a candidate carries several
// observations.
type PrSelection string

const (
	PrFirst   PrSelection = "first"   // First observation in the candidate
	PrPrimary PrSelection = "primary" // Observation on Config.PrimaryFrequency, first otherwise
)

// Tropospheric model used when no measured components are supplied
type TropoModel string

const (
	TropoUNB3         TropoModel = "unb3"
	TropoSaastamoinen TropoModel = "saastamoinen"
)

// Observation weighting scheme
type WeightMode int

const (
	WeightEqual     WeightMode = iota // No weighting (equal weights)
	WeightRTKLIB                      // RTKLIB-style variance model
	WeightElevation                   // elevation / 90
	WeightSinEl                       // sin^2(el) / 0.8^2
)

// Config is the part of the processing configuration consumed by the Solver
type Config struct {
	Modeling             Modeling        `mapstructure:"modeling"`
	InterpOrder          int             `mapstructure:"interp_order"`          // Interpolation order handed to the state provider
	MinSvElev            *float64        `mapstructure:"min_sv_elev"`           // Elevation mask [deg]
	MinSvSunlightRate    *float64        `mapstructure:"min_sv_sunlight_rate"`  // Minimum illumination fraction in penumbra [0,1]
	FixedAltitude        *float64        `mapstructure:"fixed_altitude"`        // Fixed ellipsoidal height [m]
	ExternalRefDelay     *float64        `mapstructure:"externalref_delay"`     // Delay of an external reference clock [s]
	IntDelay             []InternalDelay `mapstructure:"int_delay"`             // Frequency dependent cable delays
	PrSelection          PrSelection     `mapstructure:"pr_selection"`          // Pseudorange selection policy
	PrimaryFrequency     float64         `mapstructure:"primary_frequency"`     // [Hz], used by PrPrimary
	WeightMode           WeightMode      `mapstructure:"weight_mode"`           // Observation weighting
	TropoModel           TropoModel      `mapstructure:"tropo_model"`           // unb3 or saastamoinen
	MaxIter              int             `mapstructure:"max_iter"`              // Maximum number of linearization loops
	ConvergenceThreshold float64         `mapstructure:"convergence_threshold"` // Position update threshold [m]
}

// DefaultConfig returns the configuration used when nothing is specified
func DefaultConfig() Config {
	return Config{
		Modeling: Modeling{
			SvClockBias:       true,
			SvTotalGroupDelay: true,
			TropoDelay:        true,
		},
		InterpOrder:          11,
		PrSelection:          PrFirst,
		PrimaryFrequency:     L1,
		WeightMode:           WeightEqual,
		TropoModel:           TropoUNB3,
		MaxIter:              10,
		ConvergenceThreshold: 1e-4,
	}
}

// Validate checks value ranges. Inert flags are not errors.
func (c *Config) Validate() error {
	var errs []error
	if c.InterpOrder < 1 {
		errs = append(errs, fmt.Errorf("interp_order must be positive, got %d", c.InterpOrder))
	}
	if c.MinSvElev != nil && (*c.MinSvElev < -90 || *c.MinSvElev > 90 || math.IsNaN(*c.MinSvElev)) {
		errs = append(errs, fmt.Errorf("min_sv_elev must be within [-90, 90] deg, got %f", *c.MinSvElev))
	}
	if c.MinSvSunlightRate != nil && (*c.MinSvSunlightRate < 0 || *c.MinSvSunlightRate > 1 || math.IsNaN(*c.MinSvSunlightRate)) {
		errs = append(errs, fmt.Errorf("min_sv_sunlight_rate must be within [0, 1], got %f", *c.MinSvSunlightRate))
	}
	if c.FixedAltitude != nil && (math.IsNaN(*c.FixedAltitude) || math.Abs(*c.FixedAltitude) > 1e5) {
		errs = append(errs, fmt.Errorf("fixed_altitude must be within +-100 km, got %f", *c.FixedAltitude))
	}
	for i, d := range c.IntDelay {
		if d.Frequency <= 0 {
			errs = append(errs, fmt.Errorf("int_delay[%d].frequency must be positive, got %f", i, d.Frequency))
		}
	}
	switch c.PrSelection {
	case PrFirst:
	case PrPrimary:
		if c.PrimaryFrequency <= 0 {
			errs = append(errs, fmt.Errorf("primary_frequency must be positive when pr_selection is %q", PrPrimary))
		}
	default:
		errs = append(errs, fmt.Errorf("pr_selection must be %q or %q, got %q", PrFirst, PrPrimary, c.PrSelection))
	}
	if c.WeightMode < WeightEqual || c.WeightMode > WeightSinEl {
		errs = append(errs, fmt.Errorf("weight_mode must be within [0, 3], got %d", c.WeightMode))
	}
	if c.TropoModel != TropoUNB3 && c.TropoModel != TropoSaastamoinen {
		errs = append(errs, fmt.Errorf("tropo_model must be %q or %q, got %q", TropoUNB3, TropoSaastamoinen, c.TropoModel))
	}
	if c.MaxIter < 1 {
		errs = append(errs, fmt.Errorf("max_iter must be positive, got %d", c.MaxIter))
	}
	if c.ConvergenceThreshold <= 0 {
		errs = append(errs, fmt.Errorf("convergence_threshold must be positive, got %f", c.ConvergenceThreshold))
	}
	return errors.Join(errs...)
}

// InertFlags lists the enabled modeling flags that are accepted but not
// applied to the solution.
func (c *Config) InertFlags() []string {
	var s []string
	if c.Modeling.IonoDelay {
		s = append(s, "iono_delay")
	}
	if c.Modeling.EarthRotation {
		s = append(s, "earth_rotation")
	}
	if c.Modeling.RelativisticClockCorr {
		s = append(s, "relativistic_clock_corr")
	}
	return s
}

// minRequired returns the number of candidates needed for the solution type
func minRequired(typ SolutionType, cfg *Config) int {
	if typ == TimeOnly {
		return 1
	}
	if cfg.FixedAltitude != nil {
		return 3
	}
	return 4
}
