// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.9
//

package gopvt

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestSolveLS(t *testing.T) {
	assert := assert.New(t)

	G := mat.NewDense(3, 2, []float64{
		1, 0,
		0, 1,
		1, 1,
	})
	dr := mat.NewVecDense(3, []float64{1, 2, 3.5})
	W := mat.NewDiagDense(3, []float64{1, 1, 1})

	dx, cov, err := SolveLS(G, dr, W)
	require.NoError(t, err)
	assert.InDelta(3.5/3, dx.AtVec(0), 1e-12)
	assert.InDelta(6.5/3, dx.AtVec(1), 1e-12)

	// (G^t G)^-1 = 1/3 [[2, -1], [-1, 2]]
	assert.InDelta(2.0/3, cov.At(0, 0), 1e-12)
	assert.InDelta(-1.0/3, cov.At(0, 1), 1e-12)
}

func TestSolveLS_Weighted(t *testing.T) {
	// A heavily weighted row dominates
	G := mat.NewDense(2, 1, []float64{1, 1})
	dr := mat.NewVecDense(2, []float64{0, 10})
	W := mat.NewDiagDense(2, []float64{1, 1e6})

	dx, _, err := SolveLS(G, dr, W)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, dx.AtVec(0), 1e-4)
}

func TestSolveLS_Errors(t *testing.T) {
	t.Run("underdetermined", func(t *testing.T) {
		G := mat.NewDense(2, 4, []float64{1, 0, 0, 1, 0, 1, 0, 1})
		_, _, err := SolveLS(G, mat.NewVecDense(2, nil), mat.NewDiagDense(2, []float64{1, 1}))
		assert.ErrorIs(t, err, ErrMatrixInversion)
	})
	t.Run("singular", func(t *testing.T) {
		G := mat.NewDense(3, 2, []float64{1, 2, 2, 4, 3, 6})
		_, _, err := SolveLS(G, mat.NewVecDense(3, nil), mat.NewDiagDense(3, []float64{1, 1, 1}))
		assert.ErrorIs(t, err, ErrMatrixInversion)
	})
	t.Run("size mismatch", func(t *testing.T) {
		G := mat.NewDense(3, 2, []float64{1, 0, 0, 1, 1, 1})
		_, _, err := SolveLS(G, mat.NewVecDense(2, nil), mat.NewDiagDense(3, []float64{1, 1, 1}))
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrMatrixInversion)
	})
}

func TestCalcDop(t *testing.T) {
	assert := assert.New(t)

	sky := newTestSky(testGeometry)
	G := mat.NewDense(len(testGeometry), 4, nil)
	for i, s := range testGeometry {
		sp := sky.sats[s.sv]
		rho := EucDist(sky.truth, sp)
		G.Set(i, 0, (sky.truth.X-sp.X)/rho)
		G.Set(i, 1, (sky.truth.Y-sp.Y)/rho)
		G.Set(i, 2, (sky.truth.Z-sp.Z)/rho)
		G.Set(i, 3, 1)
	}

	dop, err := calcDop(G, sky.truth)
	require.NoError(t, err)
	assert.InDelta(SQ(dop[PDOP]), SQ(dop[HDOP])+SQ(dop[VDOP]), 1e-9)
	assert.InDelta(SQ(dop[GDOP]), SQ(dop[PDOP])+SQ(dop[TDOP]), 1e-9)
	for _, k := range []string{GDOP, PDOP, HDOP, VDOP, TDOP} {
		assert.Greater(dop[k], 0.0, k)
		assert.False(math.IsNaN(dop[k]), k)
	}
}

func TestCalcDop_ClockOnly(t *testing.T) {
	G := mat.NewDense(4, 1, []float64{1, 1, 1, 1})
	dop, err := calcDop(G, testTruth.ToXYZ())
	require.NoError(t, err)
	assert.InDelta(t, 0.5, dop[TDOP], 1e-12)
	assert.InDelta(t, 0.5, dop[GDOP], 1e-12)
	assert.Zero(t, dop[PDOP])
}
