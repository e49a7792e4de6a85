// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.13
//

package sink

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/mkhts/gopvt"
	_ "modernc.org/sqlite"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS solutions (
		run_id     TEXT    NOT NULL,
		week       INTEGER NOT NULL,
		tow        REAL    NOT NULL,
		type       TEXT    NOT NULL,
		x          REAL    NOT NULL,
		y          REAL    NOT NULL,
		z          REAL    NOT NULL,
		lat        REAL    NOT NULL,
		lon        REAL    NOT NULL,
		hei        REAL    NOT NULL,
		clock_bias REAL    NOT NULL,
		gdop       REAL    NOT NULL,
		pdop       REAL    NOT NULL,
		hdop       REAL    NOT NULL,
		vdop       REAL    NOT NULL,
		tdop       REAL    NOT NULL,
		ns         INTEGER NOT NULL,
		iter       INTEGER NOT NULL,
		PRIMARY KEY (run_id, week, tow)
	)`,
	`CREATE TABLE IF NOT EXISTS satellites (
		run_id     TEXT    NOT NULL,
		week       INTEGER NOT NULL,
		tow        REAL    NOT NULL,
		sv         TEXT    NOT NULL,
		elevation  REAL    NOT NULL,
		azimuth    REAL    NOT NULL,
		residual   REAL    NOT NULL,
		weight     REAL    NOT NULL,
		tropo      REAL    NOT NULL,
		tropo_kind TEXT    NOT NULL,
		PRIMARY KEY (run_id, week, tow, sv)
	)`,
}

// SolutionRow is one row of the solutions table
type SolutionRow struct {
	RunID     string  `db:"run_id"`
	Week      int     `db:"week"`
	Tow       float64 `db:"tow"`
	Type      string  `db:"type"`
	X         float64 `db:"x"`
	Y         float64 `db:"y"`
	Z         float64 `db:"z"`
	Lat       float64 `db:"lat"` // [deg]
	Lon       float64 `db:"lon"` // [deg]
	Hei       float64 `db:"hei"`
	ClockBias float64 `db:"clock_bias"` // [s]
	GDOP      float64 `db:"gdop"`
	PDOP      float64 `db:"pdop"`
	HDOP      float64 `db:"hdop"`
	VDOP      float64 `db:"vdop"`
	TDOP      float64 `db:"tdop"`
	NS        int     `db:"ns"`
	Iter      int     `db:"iter"`
}

// SatelliteRow is one row of the satellites table
type SatelliteRow struct {
	RunID     string  `db:"run_id"`
	Week      int     `db:"week"`
	Tow       float64 `db:"tow"`
	SV        string  `db:"sv"`
	Elevation float64 `db:"elevation"`
	Azimuth   float64 `db:"azimuth"`
	Residual  float64 `db:"residual"`
	Weight    float64 `db:"weight"`
	Tropo     float64 `db:"tropo"`
	TropoKind string  `db:"tropo_kind"`
}

const insertSolution = `INSERT INTO solutions
	(run_id, week, tow, type, x, y, z, lat, lon, hei, clock_bias, gdop, pdop, hdop, vdop, tdop, ns, iter)
	VALUES (:run_id, :week, :tow, :type, :x, :y, :z, :lat, :lon, :hei, :clock_bias, :gdop, :pdop, :hdop, :vdop, :tdop, :ns, :iter)`

const insertSatellite = `INSERT INTO satellites
	(run_id, week, tow, sv, elevation, azimuth, residual, weight, tropo, tropo_kind)
	VALUES (:run_id, :week, :tow, :sv, :elevation, :azimuth, :residual, :weight, :tropo, :tropo_kind)`

// SQLite stores solutions and per satellite data, keyed by a run id
type SQLite struct {
	db    *sqlx.DB
	runID string
}

// OpenSQLite opens (or creates) the database at path. An empty runID is
// replaced by a random UUID.
func OpenSQLite(ctx context.Context, path, runID string) (*SQLite, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	for _, q := range schema {
		if _, err := db.ExecContext(ctx, q); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}
	if runID == "" {
		runID = uuid.NewString()
	}
	return &SQLite{db: db, runID: runID}, nil
}

func (s *SQLite) RunID() string {
	return s.runID
}

// Write stores the solution and its satellites in one transaction
func (s *SQLite) Write(ctx context.Context, t gopvt.GTime, sol *gopvt.Solution) error {
	var lat, lon, hei float64
	if sol.Type != gopvt.TimeOnly {
		llh := sol.LLH()
		lat, lon, hei = gopvt.ToDeg(llh.Lat), gopvt.ToDeg(llh.Lon), llh.Hei
	}
	row := SolutionRow{
		RunID: s.runID, Week: t.Week, Tow: t.Sec, Type: sol.Type.String(),
		X: sol.Pos.X, Y: sol.Pos.Y, Z: sol.Pos.Z, Lat: lat, Lon: lon, Hei: hei,
		ClockBias: sol.ClockBias,
		GDOP:      sol.Dop[gopvt.GDOP], PDOP: sol.Dop[gopvt.PDOP], HDOP: sol.Dop[gopvt.HDOP],
		VDOP: sol.Dop[gopvt.VDOP], TDOP: sol.Dop[gopvt.TDOP],
		NS: len(sol.SV), Iter: sol.Iter,
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.NamedExecContext(ctx, insertSolution, row); err != nil {
		return fmt.Errorf("failed to insert solution at %s: %w", t, err)
	}
	for _, sv := range sol.Sats() {
		d := sol.SV[sv]
		sr := SatelliteRow{
			RunID: s.runID, Week: t.Week, Tow: t.Sec, SV: string(sv),
			Elevation: d.Elevation, Azimuth: d.Azimuth, Residual: d.Residual, Weight: d.Weight,
			Tropo: d.Tropo.Value, TropoKind: d.Tropo.Kind.String(),
		}
		if _, err := tx.NamedExecContext(ctx, insertSatellite, sr); err != nil {
			return fmt.Errorf("failed to insert %s at %s: %w", sv, t, err)
		}
	}
	return tx.Commit()
}

// Solutions returns the stored solutions of a run in time order
func (s *SQLite) Solutions(ctx context.Context, runID string) ([]SolutionRow, error) {
	var rows []SolutionRow
	err := s.db.SelectContext(ctx, &rows, `SELECT * FROM solutions WHERE run_id = ? ORDER BY week, tow`, runID)
	return rows, err
}

// Satellites returns the satellites of one stored epoch
func (s *SQLite) Satellites(ctx context.Context, runID string, t gopvt.GTime) ([]SatelliteRow, error) {
	var rows []SatelliteRow
	err := s.db.SelectContext(ctx, &rows, `SELECT * FROM satellites WHERE run_id = ? AND week = ? AND tow = ? ORDER BY sv`, runID, t.Week, t.Sec)
	return rows, err
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
