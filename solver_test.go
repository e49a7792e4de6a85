// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.13
//

package gopvt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testClk = 1.5e-4 // Receiver clock bias [s]

func newTestSolver(t *testing.T, cfg Config, apriori PosXYZ, sky StateProvider) *Solver {
	t.Helper()
	s, err := NewSolver(SPP, AprioriFromECEF(apriori), cfg, sky, nil, nil)
	require.NoError(t, err)
	return s
}

func TestResolve_ExactApriori(t *testing.T) {
	assert := assert.New(t)
	sky := newTestSky(testGeometry[:4])
	s := newTestSolver(t, testConfig(), sky.truth, sky)

	tt, sol, err := s.Resolve(testEpoch, PositionVelocityTime, sky.pool(t, testClk, nil), nil, nil)
	require.NoError(t, err)
	assert.Equal(testEpoch, tt)
	assert.Equal(PositionVelocityTime, sol.Type)
	assert.InDelta(0, EucDist(sol.Pos, sky.truth), 1e-3)
	assert.InDelta(testClk, sol.ClockBias, 1e-12)
	assert.InDelta(testClk*C, sol.Delta[3], 1e-3)
	assert.Equal(PosXYZ{}, sol.Vel)
	assert.Len(sol.SV, 4)
	assert.Equal(4, sol.Stats.Used)
	for _, d := range sol.SV {
		assert.InDelta(0, d.Residual, 1e-3)
		assert.Equal(DelayNone, d.Tropo.Kind)
	}
	assert.Greater(sol.Dop[GDOP], sol.Dop[PDOP])
	assert.Greater(sol.Dop[PDOP], sol.Dop[HDOP])
}

func TestResolve_OffsetApriori(t *testing.T) {
	assert := assert.New(t)
	sky := newTestSky(testGeometry)
	apriori := PosENU{E: 800, N: -1200, U: 300}.ToXYZ(sky.truth)
	s := newTestSolver(t, testConfig(), apriori, sky)

	_, sol, err := s.Resolve(testEpoch, PositionVelocityTime, sky.pool(t, testClk, nil), nil, nil)
	require.NoError(t, err)
	assert.InDelta(0, EucDist(sol.Pos, sky.truth), 1e-3)
	assert.InDelta(testClk, sol.ClockBias, 1e-11)
	assert.Greater(sol.Iter, 1)

	d := sky.truth.Sub(apriori)
	assert.InDelta(d.X, sol.Delta[0], 1e-3)
	assert.InDelta(d.Y, sol.Delta[1], 1e-3)
	assert.InDelta(d.Z, sol.Delta[2], 1e-3)

	// The apriori is not moved by Resolve
	assert.Equal(apriori, s.Apriori().ECEF)
}

func TestResolve_ZeroClock(t *testing.T) {
	sky := newTestSkyAt(testGeometry[:4], 2.0e7)
	tests := []struct {
		name    string
		apriori PosXYZ
	}{
		{"exact apriori", sky.truth},
		{"offset apriori", PosENU{E: 100, N: 100, U: 100}.ToXYZ(sky.truth)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSolver(t, testConfig(), tt.apriori, sky)
			_, sol, err := s.Resolve(testEpoch, PositionVelocityTime, sky.pool(t, 0, nil), nil, nil)
			require.NoError(t, err)
			assert.InDelta(t, 0, EucDist(sol.Pos, sky.truth), 1e-6)
			assert.InDelta(t, 0, sol.ClockBias, 1e-14)
		})
	}
}

func TestResolve_NotConverged(t *testing.T) {
	sky := newTestSky(testGeometry)
	cfg := testConfig()
	cfg.MaxIter = 1
	apriori := PosENU{E: 5000, N: 5000}.ToXYZ(sky.truth)
	s := newTestSolver(t, cfg, apriori, sky)

	_, sol, err := s.Resolve(testEpoch, PositionVelocityTime, sky.pool(t, testClk, nil), nil, nil)
	assert.ErrorIs(t, err, ErrNotConverged)
	assert.Nil(t, sol)
}

func TestResolve_FixedAltitude(t *testing.T) {
	assert := assert.New(t)
	sky := newTestSky(testGeometry[:3])
	cfg := testConfig()
	cfg.FixedAltitude = ptr(testTruth.Hei)
	apriori := PosLLH{Lat: testTruth.Lat + ToRad(0.001), Lon: testTruth.Lon - ToRad(0.001), Hei: 0}.ToXYZ()
	s := newTestSolver(t, cfg, apriori, sky)

	_, sol, err := s.Resolve(testEpoch, PositionVelocityTime, sky.pool(t, testClk, nil), nil, nil)
	require.NoError(t, err)
	llh := sol.LLH()
	assert.InDelta(testTruth.Hei, llh.Hei, 1e-4)
	assert.InDelta(0, EucDist(sol.Pos, sky.truth), 1e-3)
	assert.InDelta(testClk, sol.ClockBias, 1e-11)
	assert.Len(sol.SV, 3)
}

func TestResolve_FixedAltitudeDop(t *testing.T) {
	sky := newTestSky(testGeometry)

	free := newTestSolver(t, testConfig(), sky.truth, sky)
	_, want, err := free.Resolve(testEpoch, PositionVelocityTime, sky.pool(t, testClk, nil), nil, nil)
	require.NoError(t, err)

	cfg := testConfig()
	cfg.FixedAltitude = ptr(testTruth.Hei)
	fixed := newTestSolver(t, cfg, sky.truth, sky)
	_, got, err := fixed.Resolve(testEpoch, PositionVelocityTime, sky.pool(t, testClk, nil), nil, nil)
	require.NoError(t, err)

	// The height row must not tighten the satellite geometry
	for _, k := range []string{GDOP, PDOP, HDOP, VDOP, TDOP} {
		assert.InDelta(t, want.Dop[k], got.Dop[k], 1e-9, k)
	}
}

func TestResolve_ElevationMask(t *testing.T) {
	t.Run("low satellite dropped", func(t *testing.T) {
		assert := assert.New(t)
		sky := newTestSky(testGeometry)
		cfg := testConfig()
		cfg.MinSvElev = ptr(15)
		s := newTestSolver(t, cfg, sky.truth, sky)

		_, sol, err := s.Resolve(testEpoch, PositionVelocityTime, sky.pool(t, testClk, nil), nil, nil)
		require.NoError(t, err)
		assert.NotContains(sol.SV, SatType("G05"))
		assert.Len(sol.SV, 4)
		assert.Equal(PoolStats{Input: 5, Elected: 5, Interpolated: 5, ElevMasked: 1, Used: 4}, sol.Stats)
	})

	t.Run("too few left", func(t *testing.T) {
		sky := newTestSky([]testSat{testGeometry[0], testGeometry[1], testGeometry[2], testGeometry[4]})
		cfg := testConfig()
		cfg.MinSvElev = ptr(15)
		s := newTestSolver(t, cfg, sky.truth, sky)

		_, _, err := s.Resolve(testEpoch, PositionVelocityTime, sky.pool(t, testClk, nil), nil, nil)
		assert.ErrorIs(t, err, ErrNotEnoughFittingCandidates)
	})
}

func TestResolve_NotEnoughInput(t *testing.T) {
	tests := []struct {
		name     string
		typ      SolutionType
		fixed    *float64
		n        int
		required int
	}{
		{"pvt", PositionVelocityTime, nil, 3, 4},
		{"fixed altitude", PositionVelocityTime, ptr(10), 2, 3},
		{"time only", TimeOnly, nil, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sky := newTestSky(testGeometry[:tt.n])
			cfg := testConfig()
			cfg.FixedAltitude = tt.fixed
			s := newTestSolver(t, cfg, sky.truth, sky)

			_, sol, err := s.Resolve(testEpoch, tt.typ, sky.pool(t, testClk, nil), nil, nil)
			assert.Nil(t, sol)
			var e *NotEnoughInputCandidatesError
			require.True(t, errors.As(err, &e))
			assert.Equal(t, tt.typ, e.Type)
			assert.Equal(t, tt.n, e.Got)
			assert.Equal(t, tt.required, e.Required)
		})
	}
}

func TestResolve_UndefinedApriori(t *testing.T) {
	sky := newTestSky(testGeometry)
	s := newTestSolver(t, testConfig(), PosXYZ{}, sky)
	_, _, err := s.Resolve(testEpoch, PositionVelocityTime, sky.pool(t, testClk, nil), nil, nil)
	assert.ErrorIs(t, err, ErrUndefinedApriori)
}

func TestResolve_TimeOnly(t *testing.T) {
	assert := assert.New(t)
	sky := newTestSky(testGeometry[:1])
	s := newTestSolver(t, testConfig(), sky.truth, sky)

	_, sol, err := s.Resolve(testEpoch, TimeOnly, sky.pool(t, testClk, nil), nil, nil)
	require.NoError(t, err)
	assert.Equal(TimeOnly, sol.Type)
	assert.Equal(PosXYZ{}, sol.Pos)
	assert.Equal(0.0, sol.Delta[0])
	assert.Equal(0.0, sol.Delta[1])
	assert.Equal(0.0, sol.Delta[2])
	assert.InDelta(testClk, sol.ClockBias, 1e-12)
	assert.Equal(0.0, sol.Dop[HDOP])
	assert.Equal(0.0, sol.Dop[VDOP])
	assert.InDelta(1.0, sol.Dop[TDOP], 1e-12)
}

func TestResolve_PoolUnchanged(t *testing.T) {
	sky := newTestSky(testGeometry)
	s := newTestSolver(t, testConfig(), sky.truth, sky)
	pool := sky.pool(t, testClk, nil)
	first := pool[0]

	_, _, err := s.Resolve(testEpoch, PositionVelocityTime, pool, nil, nil)
	require.NoError(t, err)
	assert.Len(t, pool, 5)
	assert.Same(t, first, pool[0])
	for _, c := range pool {
		_, ok := c.State()
		assert.False(t, ok, c.SV)
	}
}

func TestResolve_DroppedCandidates(t *testing.T) {
	t.Run("interpolation miss", func(t *testing.T) {
		assert := assert.New(t)
		sky := newTestSky(testGeometry)
		sky.miss["G03"] = true
		s := newTestSolver(t, testConfig(), sky.truth, sky)

		_, sol, err := s.Resolve(testEpoch, PositionVelocityTime, sky.pool(t, testClk, nil), nil, nil)
		require.NoError(t, err)
		assert.NotContains(sol.SV, SatType("G03"))
		assert.Equal(4, sol.Stats.Interpolated)
	})

	t.Run("implausible transmission time", func(t *testing.T) {
		assert := assert.New(t)
		sky := newTestSky(testGeometry)
		s := newTestSolver(t, testConfig(), sky.truth, sky)
		pool := sky.pool(t, testClk, nil)
		bad, err := NewCandidate("G09", testEpoch, [3]float64{}, 0, nil, []PseudoRange{{Value: -1000, Frequency: L1}})
		require.NoError(t, err)
		pool = append(pool, bad)

		_, sol, err := s.Resolve(testEpoch, PositionVelocityTime, pool, nil, nil)
		require.NoError(t, err)
		assert.NotContains(sol.SV, SatType("G09"))
		assert.Equal(6, sol.Stats.Input)
		assert.Equal(5, sol.Stats.Interpolated)
	})
}

func TestResolve_Troposphere(t *testing.T) {
	t.Run("measured", func(t *testing.T) {
		assert := assert.New(t)
		sky := newTestSky(testGeometry)
		meas := TropoComponents{Zwd: 0.12, Zdd: 2.31}
		s := newTestSolver(t, testConfig(), sky.truth, sky)
		pool := sky.pool(t, testClk, func(sv SatType, st InterpolationResult) float64 {
			return TropoDelay(st.Elevation, meas.Zwd, meas.Zdd)
		})

		_, sol, err := s.Resolve(testEpoch, PositionVelocityTime, pool, &meas, nil)
		require.NoError(t, err)
		assert.InDelta(0, EucDist(sol.Pos, sky.truth), 1e-3)
		for sv, d := range sol.SV {
			assert.Equal(DelayMeasured, d.Tropo.Kind, sv)
			assert.InDelta(TropoDelay(d.Elevation, meas.Zwd, meas.Zdd), d.Tropo.Value, 1e-9, sv)
		}
	})

	t.Run("modeled", func(t *testing.T) {
		assert := assert.New(t)
		sky := newTestSky(testGeometry)
		cfg := DefaultConfig()
		s := newTestSolver(t, cfg, sky.truth, sky)
		zdd, zwd := UNB3Components(testEpoch, ToDeg(testTruth.Lat), testTruth.Hei)
		pool := sky.pool(t, testClk, func(sv SatType, st InterpolationResult) float64 {
			return TropoDelay(st.Elevation, zwd, zdd)
		})

		_, sol, err := s.Resolve(testEpoch, PositionVelocityTime, pool, nil, nil)
		require.NoError(t, err)
		assert.InDelta(0, EucDist(sol.Pos, sky.truth), 1e-3)
		for sv, d := range sol.SV {
			assert.Equal(DelayModeled, d.Tropo.Kind, sv)
			assert.Greater(d.Tropo.Value, 2.0, sv)
		}
	})
}

func TestResolve_ReferenceDelays(t *testing.T) {
	assert := assert.New(t)
	sky := newTestSky(testGeometry)
	cfg := testConfig()
	cfg.ExternalRefDelay = ptr(1e-6)
	cfg.IntDelay = []InternalDelay{
		{Frequency: L1, Delay: 2e-8},
		{Frequency: L2, Delay: 5e-8}, // Not the observed frequency
	}
	s := newTestSolver(t, cfg, sky.truth, sky)

	_, sol, err := s.Resolve(testEpoch, PositionVelocityTime, sky.pool(t, testClk, nil), nil, nil)
	require.NoError(t, err)
	assert.InDelta(0, EucDist(sol.Pos, sky.truth), 1e-3)
	assert.InDelta(testClk-1e-6+2e-8, sol.ClockBias, 1e-11)
}

func TestResolve_SatelliteClock(t *testing.T) {
	assert := assert.New(t)
	sky := newTestSky(testGeometry)
	s := newTestSolver(t, testConfig(), sky.truth, sky)

	const dts = 3e-5
	var pool []*Candidate
	for _, c := range sky.pool(t, testClk, func(SatType, InterpolationResult) float64 { return -dts * C }) {
		c2, err := NewCandidate(c.SV, c.T, [3]float64{dts, 0, 0}, dts, nil, c.PseudoRanges())
		require.NoError(t, err)
		pool = append(pool, c2)
	}
	_, sol, err := s.Resolve(testEpoch, PositionVelocityTime, pool, nil, nil)
	require.NoError(t, err)
	assert.InDelta(0, EucDist(sol.Pos, sky.truth), 1e-3)
	assert.InDelta(testClk, sol.ClockBias, 1e-11)
}

func TestNewSolver(t *testing.T) {
	sky := newTestSky(testGeometry)

	t.Run("invalid config", func(t *testing.T) {
		cfg := testConfig()
		cfg.MaxIter = 0
		_, err := NewSolver(SPP, AprioriFromECEF(sky.truth), cfg, sky, nil, nil)
		assert.ErrorContains(t, err, "max_iter")
	})

	t.Run("missing state provider", func(t *testing.T) {
		_, err := NewSolver(SPP, AprioriFromECEF(sky.truth), testConfig(), nil, nil, nil)
		assert.Error(t, err)
	})

	t.Run("inert flags accepted", func(t *testing.T) {
		assert := assert.New(t)
		cfg := testConfig()
		cfg.Modeling.IonoDelay = true
		cfg.Modeling.EarthRotation = true
		s, err := NewSolver(SPP, AprioriFromECEF(sky.truth), cfg, sky, nil, nil)
		require.NoError(t, err)
		assert.Equal([]string{"iono_delay", "earth_rotation"}, cfg.InertFlags())

		// Inert flags and slant TEC leave the solution untouched
		stec := 25.0
		_, sol, err := s.Resolve(testEpoch, PositionVelocityTime, sky.pool(t, testClk, nil), nil, &stec)
		require.NoError(t, err)
		assert.InDelta(0, EucDist(sol.Pos, sky.truth), 1e-3)
	})

	t.Run("sun vector", func(t *testing.T) {
		s, err := NewSolver(SPP, AprioriFromECEF(sky.truth), testConfig(), sky, nil, nil)
		require.NoError(t, err)
		v, err := s.SunVector(testEpoch)
		require.NoError(t, err)
		assert.InDelta(t, AUKm*1000, v.Norm(), 0.02*AUKm*1000)
	})
}

func TestElect(t *testing.T) {
	assert := assert.New(t)
	sky := newTestSky(testGeometry)
	pool := sky.pool(t, testClk, nil)
	cfg := testConfig()

	out := Elect(testEpoch, pool, SPP, &cfg)
	require.Len(t, out, len(pool))
	for i := range pool {
		assert.Equal(pool[i].SV, out[i].SV)
		assert.NotSame(pool[i], out[i])
	}
}
