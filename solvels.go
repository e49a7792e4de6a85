// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.8
//

package gopvt

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Solve the observation equation using weighted least squares
// - dx = (G^t W G)^-1 G^t W dr
// - Return the error covariance matrix (G^t W G)^-1 as cov
// A singular normal matrix is reported as ErrMatrixInversion.
func SolveLS(G mat.Matrix, dr mat.Vector, W mat.Matrix) (dx mat.Vector, cov mat.Matrix, err error) {

	n1, m1 := G.Dims()
	n2, m2 := W.Dims()
	if n1 != n2 {
		return nil, nil, fmt.Errorf("invalid matrix size. G^T(%d x %d), W(%d x %d)", m1, n1, n2, m2)
	}
	l1 := dr.Len()
	if l1 != m2 {
		return nil, nil, fmt.Errorf("invalid matrix size. W(%d x %d), dr(%d x 1)", n2, m2, l1)
	}
	if n1 < m1 {
		return nil, nil, fmt.Errorf("%w: underdetermined system, %d equations < %d unknowns", ErrMatrixInversion, n1, m1)
	}

	// A (G^t W G)
	var WG mat.Dense
	WG.Mul(W, G)
	var A mat.Dense
	A.Mul(G.T(), &WG)

	// b (G^t W dr)
	var GtW mat.Dense
	GtW.Mul(G.T(), W)
	var b mat.VecDense
	b.MulVec(&GtW, dr)

	// (G^T W G)^-1, also used as the covariance matrix
	var c mat.Dense
	if err = c.Inverse(&A); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMatrixInversion, err)
	}
	cov = &c

	var x mat.VecDense
	x.MulVec(&c, &b)
	dx = &x

	return
}

// Dilution of precision keys
const (
	GDOP = "gdop"
	PDOP = "pdop"
	HDOP = "hdop"
	VDOP = "vdop"
	TDOP = "tdop"
)

// calcDop computes DOP values from the geometry matrix G (n x 4, or n x 1
// for a clock only solution). Horizontal and vertical terms are taken in the
// local frame at pos.
func calcDop(G mat.Matrix, pos PosXYZ) (map[string]float64, error) {
	dop := map[string]float64{GDOP: 0, PDOP: 0, HDOP: 0, VDOP: 0, TDOP: 0}
	var GtG mat.Dense
	GtG.Mul(G.T(), G)
	var Q mat.Dense
	if err := Q.Inverse(&GtG); err != nil {
		return nil, fmt.Errorf("%w: G^T G, %v", ErrMatrixInversion, err)
	}
	_, nx := G.Dims()
	if nx == 1 {
		dop[TDOP] = math.Sqrt(Q.At(0, 0))
		dop[GDOP] = dop[TDOP]
		return dop, nil
	}

	// Rotate the position block into ENU: Qenu = R Qxyz R^T
	llh := pos.ToLLH()
	sl, cl := math.Sin(llh.Lon), math.Cos(llh.Lon)
	sp, cp := math.Sin(llh.Lat), math.Cos(llh.Lat)
	R := mat.NewDense(3, 3, []float64{
		-sl, cl, 0,
		-cl * sp, -sl * sp, cp,
		cl * cp, sl * cp, sp,
	})
	var RQ, Qenu mat.Dense
	RQ.Mul(R, Q.Slice(0, 3, 0, 3))
	Qenu.Mul(&RQ, R.T())

	dop[GDOP] = math.Sqrt(Q.At(0, 0) + Q.At(1, 1) + Q.At(2, 2) + Q.At(3, 3))
	dop[PDOP] = math.Sqrt(Q.At(0, 0) + Q.At(1, 1) + Q.At(2, 2))
	dop[HDOP] = math.Sqrt(Qenu.At(0, 0) + Qenu.At(1, 1))
	dop[VDOP] = math.Sqrt(Qenu.At(2, 2))
	dop[TDOP] = math.Sqrt(Q.At(3, 3))
	return dop, nil
}
