// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.13
//

package gopvt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bancroftSats(sky *testSky, clk float64, svs ...SatType) []BancroftSat {
	var sats []BancroftSat
	for _, sv := range svs {
		p := sky.sats[sv]
		sats = append(sats, BancroftSat{Pos: p, PR: EucDist(p, sky.truth) + clk*C})
	}
	return sats
}

func TestBancroft(t *testing.T) {
	sky := newTestSky(testGeometry)

	tests := []struct {
		name string
		clk  float64
		svs  []SatType
	}{
		{"five satellites", 1.5e-4, []SatType{"G01", "G02", "G03", "G04", "G05"}},
		{"four satellites", 1.5e-4, []SatType{"G01", "G02", "G03", "G04"}},
		{"negative clock", -2e-5, []SatType{"G01", "G02", "G03", "G04", "G05"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos, clk, err := Bancroft(bancroftSats(sky, tt.clk, tt.svs...))
			require.NoError(t, err)
			assert.Less(t, EucDist(pos, sky.truth), 1.0)
			assert.InDelta(t, tt.clk, clk, 1e-8)
		})
	}
}

func TestBancroft_UnequalRanges(t *testing.T) {
	sky := newTestSky(testGeometry)
	for i, sv := range Sorted(keys(sky.sats)) {
		los := sky.sats[sv].Sub(sky.truth)
		f := 0.9 + 0.05*float64(i)
		sky.sats[sv] = sky.truth.Add(PosXYZ{X: f * los.X, Y: f * los.Y, Z: f * los.Z})
	}

	sats := bancroftSats(sky, 3e-4, "G01", "G02", "G03", "G04", "G05")
	pos, clk, err := Bancroft(sats)
	require.NoError(t, err)
	assert.Less(t, EucDist(pos, sky.truth), 1.0)
	assert.InDelta(t, 3e-4, clk, 1e-8)
	assert.Less(t, rangeResidual(sats, pos, clk*C), 1e-3)
}

func TestBancroft_MirrorRoot(t *testing.T) {
	sky := newTestSky(testGeometry)
	sats := bancroftSats(sky, 1.5e-4, "G01", "G02", "G03", "G04", "G05")

	// Same position with the clock shifted by twice the range satisfies the
	// squared equations but not the pseudoranges
	mirror := 1.5e-4 + 2*2.2e7/C
	assert.Greater(t, rangeResidual(sats, sky.truth, mirror*C), 1e7)
	assert.Less(t, rangeResidual(sats, sky.truth, 1.5e-4*C), 1e-3)

	_, clk, err := Bancroft(sats)
	require.NoError(t, err)
	assert.InDelta(t, 1.5e-4, clk, 1e-8)
}

func TestBancroft_NotEnough(t *testing.T) {
	sky := newTestSky(testGeometry)
	_, _, err := Bancroft(bancroftSats(sky, 0, "G01", "G02", "G03"))
	assert.Error(t, err)
}

func TestBancroftApriori(t *testing.T) {
	sky := newTestSky(testGeometry)
	cfg := testConfig()

	a, err := BancroftApriori(sky.pool(t, 1e-4, nil), sky, &cfg)
	require.NoError(t, err)
	assert.True(t, a.IsDefined())
	assert.Less(t, EucDist(a.ECEF, sky.truth), 1.0)
	assert.InDelta(t, testTruth.Hei, a.Geodetic.Hei, 1.0)

	// Missing states leave too few satellites
	sky.miss["G04"] = true
	sky.miss["G05"] = true
	_, err = BancroftApriori(sky.pool(t, 1e-4, nil), sky, &cfg)
	assert.Error(t, err)
}
