// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.13
//

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/mkhts/gopvt"
	"github.com/mkhts/gopvt/internal/config"
	"github.com/mkhts/gopvt/internal/logger"
	"github.com/mkhts/gopvt/internal/metrics"
	"github.com/mkhts/gopvt/internal/sink"
)

// Processing state shared by all epochs
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	metrics *metrics.Metrics
	typ     gopvt.SolutionType
	opt     gopvt.CandidateOpt
	ts, te  time.Time
	obs     *gopvt.Obs
	nav     *gopvt.Nav
	states  gopvt.StateProvider
	setRef  func(gopvt.PosXYZ)
	solver  *gopvt.Solver
	out     sink.Sink
}

// Epoch counters of a run
type runStats struct {
	solved  int
	failed  int
	skipped int
}

// Main application processing
func runApplication(ctx context.Context, cfg *config.Config, program string) error {
	log := logger.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	mode, err := gopvt.ParseMode(cfg.Mode)
	if err != nil {
		return err
	}
	typ, err := gopvt.ParseSolutionType(cfg.SolutionType)
	if err != nil {
		return err
	}
	sys, err := cfg.Input.SysTypes()
	if err != nil {
		return err
	}
	ts, te, err := cfg.Input.Window()
	if err != nil {
		return err
	}

	// Load input files
	obs, nav, sp3, err := loadInputFiles(cfg.Input)
	if err != nil {
		return fmt.Errorf("failed to load input files: %w", err)
	}
	log.Debug("obs data", "file", filepath.Base(cfg.Input.Obs), "summary", obs.String(), "skipped_lines", obs.Skipped)
	log.Debug("nav data", "file", filepath.Base(cfg.Input.Nav), "summary", nav.String())

	states, setRef := newStateProvider(nav, sp3)
	apriori, _ := cfg.AprioriPosition()
	setRef(apriori.ECEF)

	solver, err := gopvt.NewSolver(mode, apriori, cfg.Solver, states, nil, log)
	if err != nil {
		return err
	}

	m := metrics.New()
	if cfg.Metrics.Listen != "" {
		stop := serveMetrics(cfg.Metrics.Listen, m, log)
		defer func() { _ = stop() }()
	}

	// Prepare outputs
	out, err := openSinks(ctx, cfg, uuid.NewString())
	if err != nil {
		return fmt.Errorf("failed to prepare output: %w", err)
	}
	defer func() {
		if err := out.Close(); err != nil {
			log.Error("failed to close output", "err", err)
		}
	}()
	if pw, ok := out[0].(*sink.PosWriter); ok && !cfg.Output.NoHeader {
		start, end := obsWindow(obs, ts, te)
		inputs := []string{cfg.Input.Obs, cfg.Input.Nav}
		if cfg.Input.SP3 != "" {
			inputs = append(inputs, cfg.Input.SP3)
		}
		if err := pw.WriteHeader(sink.PosHeader{Program: program, Inputs: inputs, Mode: mode, Type: typ, Start: start, End: end}); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	a := &app{
		cfg:     cfg,
		log:     log,
		metrics: m,
		typ:     typ,
		opt:     gopvt.CandidateOpt{Sys: sys, ExSats: cfg.Input.ExcludedSats(), CnMask: cfg.Input.CnMask},
		ts:      ts,
		te:      te,
		obs:     obs,
		nav:     nav,
		states:  states,
		setRef:  setRef,
		solver:  solver,
		out:     out,
	}

	// Process epochs
	begin := time.Now()
	st := a.processEpochs(ctx)
	log.Info("processing finished", "solved", st.solved, "failed", st.failed, "skipped", st.skipped, "elapsed", time.Since(begin))

	if cfg.Metrics.PushGateway != "" {
		pctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := m.Push(pctx, cfg.Metrics.PushGateway, cfg.Metrics.Job); err != nil {
			log.Error("failed to push metrics", "err", err)
		}
	}
	return nil
}

// Load input files. The SP3 file is optional.
func loadInputFiles(in config.InputConfig) (*gopvt.Obs, *gopvt.Nav, *gopvt.SP3, error) {
	obs, err := readFile(in.Obs, gopvt.ReadObs)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to read observation file: %w", err)
	}
	if len(obs.DatE) == 0 {
		return nil, nil, nil, errors.New("no epoch in observation file")
	}
	nav, err := readFile(in.Nav, gopvt.ReadNav)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to read navigation file: %w", err)
	}
	var sp3 *gopvt.SP3
	if in.SP3 != "" {
		if sp3, err = readFile(in.SP3, gopvt.ReadSP3); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to read sp3 file: %w", err)
		}
	}
	return obs, nav, sp3, nil
}

func readFile[T any](fn string, read func(r io.Reader) (T, error)) (T, error) {
	f, err := os.Open(fn)
	if err != nil {
		var zero T
		return zero, err
	}
	defer f.Close()
	return read(f)
}

// newStateProvider prefers precise orbits. setRef moves the reference
// position used for elevation and azimuth.
func newStateProvider(nav *gopvt.Nav, sp3 *gopvt.SP3) (states gopvt.StateProvider, setRef func(gopvt.PosXYZ)) {
	if sp3 != nil {
		p := &gopvt.SP3Provider{SP3: sp3}
		return p, func(ref gopvt.PosXYZ) { p.Ref = ref }
	}
	p := &gopvt.NavProvider{Nav: nav}
	return p, func(ref gopvt.PosXYZ) { p.Ref = ref }
}

// openSinks opens the configured outputs. The pos writer always comes first.
func openSinks(ctx context.Context, cfg *config.Config, runID string) (sink.Multi, error) {
	var w io.WriteCloser = sink.NopCloser{Writer: os.Stdout}
	if cfg.Output.Pos != "" {
		f, err := os.Create(cfg.Output.Pos)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file: %w", err)
		}
		w = f
	}
	out := sink.Multi{sink.NewPosWriter(w)}

	if cfg.Output.SQLite != "" {
		db, err := sink.OpenSQLite(ctx, cfg.Output.SQLite, runID)
		if err != nil {
			out.Close()
			return nil, err
		}
		out = append(out, db)
	}
	if c := cfg.Output.Influx; c.URL != "" {
		out = append(out, sink.NewInflux(c.URL, c.Token, c.Org, c.Bucket, c.Measurement, runID))
	}
	return out, nil
}

// serveMetrics exposes /metrics until the returned function is called
func serveMetrics(addr string, m *metrics.Metrics, log *slog.Logger) (stop func() error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", "addr", addr, "err", err)
		}
	}()
	log.Info("serving metrics", "addr", addr)
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(ctx)
		if err != nil {
			log.Error("failed to stop metrics server", "addr", addr, "err", err)
		}
		return err
	}
}

// Process epochs until the end of the file or cancellation
func (a *app) processEpochs(ctx context.Context) (st runStats) {
	for _, obse := range a.obs.DatE {
		if ctx.Err() != nil {
			a.log.Info("interrupted", "epoch", obse.Time)
			break
		}

		// Filter epochs
		if !shouldProcessEpoch(obse.Time, a.ts, a.te, a.cfg.Input.Interval) {
			a.metrics.Skipped()
			st.skipped++
			continue
		}

		if err := a.processSingleEpoch(ctx, obse); err != nil {
			a.log.Warn("epoch not resolved", "epoch", obse.Time, "err", err)
			st.failed++
			continue
		}
		st.solved++
	}
	return st
}

// Process single epoch
func (a *app) processSingleEpoch(ctx context.Context, obse *gopvt.ObsE) error {
	pool := obse.Candidates(a.nav, a.opt, a.log)

	// First fix without a configured apriori
	if !a.solver.Apriori().IsDefined() {
		cfg := a.solver.Config()
		apr, err := gopvt.BancroftApriori(pool, a.states, &cfg)
		if err != nil {
			return fmt.Errorf("no apriori position: %w", err)
		}
		a.log.Info("apriori from bancroft", "epoch", obse.Time, "pos", apr.Geodetic)
		a.updateApriori(apr)
	}

	start := time.Now()
	t, sol, err := a.solver.Resolve(obse.Time, a.typ, pool, nil, nil)
	if err != nil {
		a.metrics.ObserveFailure(err, time.Since(start))
		return err
	}
	a.metrics.ObserveSolution(sol, time.Since(start))
	a.log.Debug("solution", "epoch", t, "type", sol.Type, "clk", sol.ClockBias, "ns", len(sol.SV), "iter", sol.Iter)

	// Linearize the next epoch around this fix
	if sol.Type != gopvt.TimeOnly {
		a.updateApriori(gopvt.AprioriFromECEF(sol.Pos))
	}

	if err := a.out.Write(ctx, t, sol); err != nil {
		a.log.Error("failed to write solution", "epoch", t, "err", err)
	}
	return nil
}

func (a *app) updateApriori(apr gopvt.AprioriPosition) {
	a.solver.SetApriori(apr)
	a.setRef(apr.ECEF)
}

// Filter epochs
func shouldProcessEpoch(t gopvt.GTime, ts, te time.Time, ti int) bool {

	// Skip epochs before processing start time
	if t.Before(ts, true) {
		return false
	}

	// Stop after processing end time
	if t.After(te, true) {
		return false
	}

	// Skip epochs that are not divisible by the specified time interval
	if ti > 0 && !t.Divisible(ti) {
		return false
	}

	return true
}

// obsWindow returns the first and last epochs of obs within [ts, te]
func obsWindow(obs *gopvt.Obs, ts, te time.Time) (start, end gopvt.GTime) {
	start = obs.DatE[0].Time
	for _, obse := range obs.DatE {
		if !obse.Time.Before(ts, true) {
			start = obse.Time
			break
		}
	}
	end = obs.DatE[len(obs.DatE)-1].Time
	for _, obse := range obs.DatE {
		if obse.Time.After(te, true) {
			break
		}
		end = obse.Time
	}
	return start, end
}
