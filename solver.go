// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.11
//

// Implements the single point positioning (SPP) resolution pipeline.

package gopvt

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Relative weight of the height pseudo observation when the altitude is fixed
const HEIGHT_CONSTRAINT_WEIGHT = 1e4

// Solver resolves PVT solutions epoch after epoch around an apriori
// position. A Solver must not be used by several goroutines at once.
type Solver struct {
	mode    Mode
	apriori AprioriPosition
	cfg     Config
	states  StateProvider
	astro   AstroProvider
	logger  *slog.Logger
}

// NewSolver validates cfg and builds a Solver. A nil astro selects the
// analytic Sun model, a nil logger discards all output.
func NewSolver(mode Mode, apriori AprioriPosition, cfg Config, states StateProvider, astro AstroProvider, logger *slog.Logger) (*Solver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if states == nil {
		return nil, errors.New("a state provider is required")
	}
	if astro == nil {
		astro = NewAnalyticAstro()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	for _, f := range cfg.InertFlags() {
		logger.Warn("modeling flag is accepted but has no effect", "flag", f)
	}
	if mode == SPP && cfg.MinSvSunlightRate != nil {
		logger.Warn("eclipse filter is of little use with the SPP strategy")
	}
	return &Solver{
		mode:    mode,
		apriori: apriori,
		cfg:     cfg,
		states:  states,
		astro:   astro,
		logger:  logger,
	}, nil
}

func (s *Solver) Mode() Mode {
	return s.mode
}

func (s *Solver) Config() Config {
	return s.cfg
}

func (s *Solver) Apriori() AprioriPosition {
	return s.apriori
}

// SetApriori moves the linearization point, typically to the last fix
func (s *Solver) SetApriori(a AprioriPosition) {
	s.apriori = a
}

// SunVector returns the Sun position relative to the Earth in ECEF [m]
func (s *Solver) SunVector(t GTime) (PosXYZ, error) {
	p, err := s.astro.CelestialPosition(Sun, t, FrameEarthFixed, LightTimeNone)
	if err != nil {
		return PosXYZ{}, err
	}
	return p.Scale(1000), nil
}

// Elect returns the candidates of pool compliant with mode, as copies and
// in their original order. pool is not modified.
func Elect(t GTime, pool []*Candidate, mode Mode, cfg *Config) []*Candidate {
	out := make([]*Candidate, 0, len(pool))
	for _, c := range pool {
		compliant := false
		switch mode {
		case SPP:
			compliant = true
		}
		if compliant {
			out = append(out, c.Clone())
		}
	}
	return out
}

// Resolve computes the solution of type typ at epoch t from pool.
// measTropo overrides the internal tropospheric model; stec [TECu] is
// accepted but not applied.
func (s *Solver) Resolve(t GTime, typ SolutionType, pool []*Candidate, measTropo *TropoComponents, stec *float64) (GTime, *Solution, error) {
	required := minRequired(typ, &s.cfg)
	if len(pool) < required {
		return t, nil, &NotEnoughInputCandidatesError{Type: typ, Got: len(pool), Required: required}
	}
	if !s.apriori.IsDefined() {
		return t, nil, ErrUndefinedApriori
	}

	stats := PoolStats{Input: len(pool)}

	// Election
	elected := Elect(t, pool, s.mode, &s.cfg)
	stats.Elected = len(elected)

	// Sky states at transmission time
	resolved := s.resolveStates(elected)
	stats.Interpolated = len(resolved)

	// Elevation mask
	if s.cfg.MinSvElev != nil {
		n := len(resolved)
		resolved = FilterElevation(resolved, *s.cfg.MinSvElev, s.logger)
		stats.ElevMasked = n - len(resolved)
	}

	// Eclipse filter
	if s.cfg.MinSvSunlightRate != nil {
		n := len(resolved)
		resolved = FilterEclipse(resolved, *s.cfg.MinSvSunlightRate, s.astro, s.logger)
		stats.Eclipsed = n - len(resolved)
	}

	if len(resolved) < required {
		return t, nil, fmt.Errorf("%w: %d < %d", ErrNotEnoughFittingCandidates, len(resolved), required)
	}
	s.logger.Debug("elected candidates", "epoch", t, "n", len(resolved))

	tc, kind := s.tropoComponents(t, measTropo)

	sol, err := s.solve(typ, resolved, tc, kind, stec)
	if err != nil {
		return t, nil, err
	}
	stats.Used = len(sol.SV)
	sol.Stats = stats
	sol.postProcess(&s.cfg)
	return t, sol, nil
}

// resolveStates attaches the sky state at transmission time to each
// candidate. Candidates with an implausible transmission time or without
// state are dropped.
func (s *Solver) resolveStates(pool []*Candidate) []*Candidate {
	out := make([]*Candidate, 0, len(pool))
	for _, c := range pool {
		tx, err := c.TransmissionTime(&s.cfg)
		if err != nil {
			s.logger.Warn("dropping candidate", "sv", c.SV, "epoch", c.T, "err", err)
			continue
		}
		st, ok := s.states.Interpolate(tx, c.SV, s.cfg.InterpOrder)
		if !ok {
			s.logger.Warn("interpolation failed", "sv", c.SV, "epoch", tx)
			continue
		}
		s.logger.Debug("interpolated state", "sv", c.SV, "epoch", tx, "pos", st.SkyPos)
		c.state = &st
		out = append(out, c)
	}
	return out
}

// tropoComponents selects measured, modeled or no tropospheric delay
func (s *Solver) tropoComponents(t GTime, meas *TropoComponents) (TropoComponents, DelayKind) {
	if meas != nil {
		s.logger.Debug("tropo delay (overridden)", "zwd", meas.Zwd, "zdd", meas.Zdd)
		return *meas, DelayMeasured
	}
	if !s.cfg.Modeling.TropoDelay {
		return TropoComponents{}, DelayNone
	}
	llh := s.apriori.Geodetic
	var zdd, zwd float64
	switch s.cfg.TropoModel {
	case TropoSaastamoinen:
		zdd, zwd = SaastamoinenComponents(llh.Lat, llh.Hei)
	default:
		zdd, zwd = UNB3Components(t, ToDeg(llh.Lat), llh.Hei)
	}
	s.logger.Debug("tropo model", "model", s.cfg.TropoModel, "zwd", zwd, "zdd", zdd)
	return TropoComponents{Zwd: zwd, Zdd: zdd}, DelayModeled
}

// solve iterates the linearized least squares until the position update is
// below the convergence threshold.
func (s *Solver) solve(typ SolutionType, pool []*Candidate, tc TropoComponents, kind DelayKind, stec *float64) (*Solution, error) {
	x := s.apriori.ECEF // Receiver position
	clk := 0.0          // Receiver clock bias [m]

	nx := 4 // Number of unknowns
	if typ == TimeOnly {
		nx = 1
	}
	fixed := s.cfg.FixedAltitude != nil && typ != TimeOnly

	for loop := 1; loop <= s.cfg.MaxIter; loop++ {

		// ---------------------------------
		// Setup equations
		// ---------------------------------

		rows := make([]obsRow, len(pool))
		for i, c := range pool {
			rows[i] = s.buildRow(c, x, tc, kind, stec)
		}
		n := len(rows)
		if fixed {
			n++
		}
		G := mat.NewDense(n, nx, nil) // Design matrix
		dr := mat.NewVecDense(n, nil) // Residual vector
		w := make([]float64, n)       // Weights
		wmax := 0.0
		for i, r := range rows {
			if nx == 1 {
				G.Set(i, 0, 1)
			} else {
				for j := 0; j < 4; j++ {
					G.Set(i, j, r.g[j])
				}
			}
			dr.SetVec(i, r.y-clk)
			w[i] = r.w
			wmax = math.Max(wmax, r.w)
		}

		// Height pseudo observation
		if fixed {
			llh := x.ToLLH()
			G.Set(n-1, 0, math.Cos(llh.Lat)*math.Cos(llh.Lon))
			G.Set(n-1, 1, math.Cos(llh.Lat)*math.Sin(llh.Lon))
			G.Set(n-1, 2, math.Sin(llh.Lat))
			dr.SetVec(n-1, *s.cfg.FixedAltitude-llh.Hei)
			w[n-1] = HEIGHT_CONSTRAINT_WEIGHT * wmax
		}

		// ---------------------------------
		// Solve equations (least squares)
		// ---------------------------------

		W := mat.NewDiagDense(n, w)
		logMat(s.logger, "G", G)
		logMat(s.logger, "dr", dr)
		dx, _, err := SolveLS(G, dr, W)
		if err != nil {
			return nil, err
		}
		logMat(s.logger, "dx", dx)

		converged := false
		if nx == 1 {
			clk += dx.AtVec(0)
			converged = math.Abs(dx.AtVec(0)) < s.cfg.ConvergenceThreshold
		} else {
			x = x.Add(PosXYZ{X: dx.AtVec(0), Y: dx.AtVec(1), Z: dx.AtVec(2)})
			clk += dx.AtVec(3)
			converged = math.Abs(dx.AtVec(0)) < s.cfg.ConvergenceThreshold &&
				math.Abs(dx.AtVec(1)) < s.cfg.ConvergenceThreshold &&
				math.Abs(dx.AtVec(2)) < s.cfg.ConvergenceThreshold
		}
		s.logger.Debug("loop", "n", loop, "x", x, "clk", clk)
		if !converged {
			continue
		}

		// DOP of the satellite geometry. The height row only stands in for a
		// fourth satellite when fewer are available.
		var Gs mat.Matrix = G
		if fixed && len(rows) >= nx {
			Gs = G.Slice(0, len(rows), 0, nx)
		}
		dop, err := calcDop(Gs, x)
		if err != nil {
			return nil, err
		}
		sol := newSolution(typ)
		sol.Pos = x
		d := x.Sub(s.apriori.ECEF)
		sol.Delta = [4]float64{d.X, d.Y, d.Z, clk}
		sol.ClockBias = clk / C
		sol.Dop = dop
		sol.Iter = loop
		for i, r := range rows {
			st := pool[i].state
			sol.SV[r.sv] = SVData{
				Tropo:     r.tropo,
				Elevation: st.Elevation,
				Azimuth:   st.Azimuth,
				Residual:  dr.AtVec(i) - dx.AtVec(nx-1),
				Weight:    r.w,
			}
		}
		return sol, nil
	}
	return nil, fmt.Errorf("%w after %d loops", ErrNotConverged, s.cfg.MaxIter)
}
