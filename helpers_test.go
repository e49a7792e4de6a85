// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.13
//

package gopvt

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Synthetic sky: satellites fixed in ECEF, seen from a known receiver
type testSky struct {
	truth PosXYZ
	sats  map[SatType]PosXYZ
	miss  map[SatType]bool
}

type testSat struct {
	sv     SatType
	az, el float64 // [deg]
}

var testEpoch = *NewGTime(time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))

var testTruth = PosLLH{Lat: ToRad(35.0), Lon: ToRad(139.0), Hei: 50.0}

// Five well spread satellites, G05 being low
var testGeometry = []testSat{
	{"G01", 0, 80},
	{"G02", 45, 40},
	{"G03", 160, 35},
	{"G04", 280, 30},
	{"G05", 100, 10},
}

func newTestSky(geom []testSat) *testSky {
	return newTestSkyAt(geom, 2.2e7)
}

// newTestSkyAt places every satellite rng [m] away from the receiver
func newTestSkyAt(geom []testSat, rng float64) *testSky {
	s := &testSky{truth: testTruth.ToXYZ(), sats: map[SatType]PosXYZ{}, miss: map[SatType]bool{}}
	for _, g := range geom {
		az, el := ToRad(g.az), ToRad(g.el)
		enu := PosENU{
			E: rng * math.Cos(el) * math.Sin(az),
			N: rng * math.Cos(el) * math.Cos(az),
			U: rng * math.Sin(el),
		}
		s.sats[g.sv] = enu.ToXYZ(s.truth)
	}
	return s
}

func (s *testSky) Interpolate(t GTime, sv SatType, order int) (InterpolationResult, bool) {
	p, ok := s.sats[sv]
	if !ok || s.miss[sv] {
		return InterpolationResult{}, false
	}
	return skyState(p, s.truth), true
}

// pool builds candidates whose pseudoranges match the truth, a receiver
// clock bias clk [s] and an extra slant delay per satellite.
func (s *testSky) pool(t *testing.T, clk float64, extra func(sv SatType, st InterpolationResult) float64) []*Candidate {
	t.Helper()
	var pool []*Candidate
	for _, sv := range Sorted(keys(s.sats)) {
		st := skyState(s.sats[sv], s.truth)
		pr := EucDist(s.sats[sv], s.truth) + clk*C
		if extra != nil {
			pr += extra(sv, st)
		}
		c, err := NewCandidate(sv, testEpoch, [3]float64{}, 0, nil, []PseudoRange{{Value: pr, Frequency: L1}})
		require.NoError(t, err)
		pool = append(pool, c)
	}
	return pool
}

func keys(m map[SatType]PosXYZ) []SatType {
	s := make([]SatType, 0, len(m))
	for k := range m {
		s = append(s, k)
	}
	return s
}

// testConfig disables all models so that the synthetic ranges are exact
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Modeling.TropoDelay = false
	return cfg
}

func ptr(v float64) *float64 {
	return &v
}
