// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.13
//

package gopvt

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Residual [m] under which both Bancroft roots explain the pseudoranges
const BANCROFT_CONSISTENT_RESIDUAL = 10.0

// Input of Bancroft: satellite position [m] and corrected pseudorange [m]
type BancroftSat struct {
	Pos PosXYZ
	PR  float64
}

// Bancroft computes a closed form position [m] and receiver clock bias [s]
// from at least four satellites (Bancroft, 1985). It needs no apriori and is
// used to seed the iterative solver.
//
//   - B = (A^t A)^-1 A^t, A = (x, y, z, pr) per satellite
//   - u = B 1, v = B r with r = <a, a>/2
//   - <u,u> l^2 + 2(<u,v> - 1) l + <v,v> = 0
//   - (x, y, z, -b) = l u + v
//
// Of the two roots, the one matching the pseudoranges is returned, the one
// closer to the Earth's surface when both do.
func Bancroft(sats []BancroftSat) (PosXYZ, float64, error) {
	n := len(sats)
	if n < 4 {
		return PosXYZ{}, 0, errors.New("bancroft needs at least 4 satellites")
	}
	A := mat.NewDense(n, 4, nil)
	r := mat.NewVecDense(n, nil)
	i0 := mat.NewVecDense(n, nil)
	for i, s := range sats {
		A.Set(i, 0, s.Pos.X)
		A.Set(i, 1, s.Pos.Y)
		A.Set(i, 2, s.Pos.Z)
		A.Set(i, 3, s.PR)
		r.SetVec(i, 0.5*minkowski([4]float64{s.Pos.X, s.Pos.Y, s.Pos.Z, s.PR}, [4]float64{s.Pos.X, s.Pos.Y, s.Pos.Z, s.PR}))
		i0.SetVec(i, 1)
	}

	// Generalized inverse
	var AtA, AtAi, B mat.Dense
	AtA.Mul(A.T(), A)
	if err := AtAi.Inverse(&AtA); err != nil {
		return PosXYZ{}, 0, errors.Join(ErrMatrixInversion, err)
	}
	B.Mul(&AtAi, A.T())

	var u, v mat.VecDense
	u.MulVec(&B, i0)
	v.MulVec(&B, r)
	uu := [4]float64{u.AtVec(0), u.AtVec(1), u.AtVec(2), u.AtVec(3)}
	vv := [4]float64{v.AtVec(0), v.AtVec(1), v.AtVec(2), v.AtVec(3)}

	a := minkowski(uu, uu)
	b := minkowski(uu, vv) - 1
	c := minkowski(vv, vv)
	disc := b*b - a*c
	if disc < 0 || a == 0 {
		return PosXYZ{}, 0, errors.New("bancroft has no real solution")
	}
	var pos [2]PosXYZ
	var clk, res, surf [2]float64
	for k, lam := range []float64{(-b + math.Sqrt(disc)) / a, (-b - math.Sqrt(disc)) / a} {
		pos[k] = PosXYZ{X: lam*uu[0] + vv[0], Y: lam*uu[1] + vv[1], Z: lam*uu[2] + vv[2]}
		clk[k] = -(lam*uu[3] + vv[3]) / C
		res[k] = rangeResidual(sats, pos[k], clk[k]*C)
		surf[k] = math.Abs(pos[k].Norm() - Re)
	}

	// The quadratic also admits a mirror root with negative ranges. Keep the
	// root consistent with the pseudoranges; when both are, the one closer
	// to the Earth's surface.
	k := 0
	if math.Max(res[0], res[1]) < BANCROFT_CONSISTENT_RESIDUAL {
		if surf[1] < surf[0] {
			k = 1
		}
	} else if res[1] < res[0] {
		k = 1
	}
	return pos[k], clk[k], nil
}

// RMS of pr - (|sat - pos| + b) [m]
func rangeResidual(sats []BancroftSat, pos PosXYZ, b float64) float64 {
	ss := 0.0
	for _, s := range sats {
		ss += SQ(s.PR - EucDist(s.Pos, pos) - b)
	}
	return math.Sqrt(ss / float64(len(sats)))
}

// Lorentz inner product <a,b> = a1 b1 + a2 b2 + a3 b3 - a4 b4
func minkowski(a, b [4]float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] - a[3]*b[3]
}

// BancroftApriori seeds an apriori position from the pool. Satellite states
// are taken at each candidate's transmission epoch; candidates without a
// state are skipped.
func BancroftApriori(pool []*Candidate, states StateProvider, cfg *Config) (AprioriPosition, error) {
	sats := make([]BancroftSat, 0, len(pool))
	for _, c := range pool {
		tx, err := c.TransmissionTime(cfg)
		if err != nil {
			continue
		}
		st, ok := states.Interpolate(tx, c.SV, cfg.InterpOrder)
		if !ok {
			continue
		}
		sats = append(sats, BancroftSat{Pos: st.SkyPos, PR: c.PseudoRange(cfg).Value + c.clockCorr*C})
	}
	pos, _, err := Bancroft(sats)
	if err != nil {
		return AprioriPosition{}, err
	}
	a := AprioriFromECEF(pos)
	if !a.IsDefined() {
		return a, errors.New("bancroft position is not usable")
	}
	return a, nil
}
