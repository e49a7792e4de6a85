// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.12
//

package gopvt

import (
	"math"
)

// Gravitational constants [m^3/s^2]
const (
	MUe_GPS = 3.986005e14
	MUe_GAL = 3.986004418e14
	OMGe_C  = 7.292115e-5 // Earth rotation angular velocity for Beidou [rad/s]
)

func (e *Ephe) mu() float64 {
	if sys := e.Sat.Sys(); sys == 'E' || sys == 'C' {
		return MUe_GAL
	}
	return MUe_GPS
}

// eccentricAnomaly solves Kepler's equation at tk seconds from ToE
func (e *Ephe) eccentricAnomaly(tk float64) float64 {
	n := math.Sqrt(e.mu())/e.SqrtA/e.SqrtA/e.SqrtA + e.DeltaN
	mk := e.M0 + n*tk
	ek := mk
	for i := 0; i < 10; i++ {
		ek = mk + e.Ecc*math.Sin(ek)
	}
	return ek
}

// Pos returns the satellite position at the transmission time t, in the
// earth fixed frame of the same instant (no Sagnac rotation).
func (e *Ephe) Pos(t GTime) (xyz PosXYZ) {
	dOMGe := OMGe
	if e.Sat.Sys() == 'C' {
		dOMGe = OMGe_C
	}
	tk := t.Sub(e.Toe)
	ek := e.eccentricAnomaly(tk)
	rk := e.SqrtA * e.SqrtA * (1 - e.Ecc*math.Cos(ek))
	vk := math.Atan2(math.Sqrt(1-e.Ecc*e.Ecc)*math.Sin(ek), math.Cos(ek)-e.Ecc)
	pk := vk + e.Omega
	d_uk := e.Cus*math.Sin(2*pk) + e.Cuc*math.Cos(2*pk)
	d_rk := e.Crs*math.Sin(2*pk) + e.Crc*math.Cos(2*pk)
	d_ik := e.Cis*math.Sin(2*pk) + e.Cic*math.Cos(2*pk)
	uk := pk + d_uk
	rk = rk + d_rk
	ik := e.I0 + d_ik + e.Idot*tk
	xk := rk * math.Cos(uk)
	yk := rk * math.Sin(uk)

	toe := e.Toe.Sec
	if e.Sat.Sys() == 'C' {
		toe -= 14 // BDT
	}
	if e.Sat.Sys() == 'C' && (e.Sat.Num() <= 5 || e.Sat.Num() >= 59) { // Beidou geostationary
		omk := e.Omega0 + e.OmegaD*tk - dOMGe*toe
		xg := xk*math.Cos(omk) - yk*math.Sin(omk)*math.Cos(ik)
		yg := xk*math.Sin(omk) + yk*math.Cos(omk)*math.Cos(ik)
		zg := yk * math.Sin(ik)
		sino := math.Sin(dOMGe * tk)
		coso := math.Cos(dOMGe * tk)
		cos5 := math.Cos(-5 * math.Pi / 180.0)
		sin5 := math.Sin(-5 * math.Pi / 180.0)
		xyz.X = xg*coso + yg*sino*cos5 + zg*sino*sin5
		xyz.Y = -xg*sino + yg*coso*cos5 + zg*coso*sin5
		xyz.Z = -yg*sin5 + zg*cos5
		return
	}
	omk := e.Omega0 + (e.OmegaD-dOMGe)*tk - dOMGe*toe
	xyz.X = xk*math.Cos(omk) - yk*math.Sin(omk)*math.Cos(ik)
	xyz.Y = xk*math.Sin(omk) + yk*math.Cos(omk)*math.Cos(ik)
	xyz.Z = yk * math.Sin(ik)
	return
}

// Clock returns the satellite clock bias [s], drift [s/s] and drift rate
// [s/s^2] of the broadcast polynomial at t.
func (e *Ephe) Clock(t GTime) (bias, drift, rate float64) {
	tk := t.Sub(e.Toc)
	bias = e.Af0 + e.Af1*tk + e.Af2*tk*tk
	drift = e.Af1 + 2*e.Af2*tk
	rate = e.Af2
	return
}

// Relativistic returns the periodic relativistic clock term at t [s]
func (e *Ephe) Relativistic(t GTime) float64 {
	ek := e.eccentricAnomaly(t.Sub(e.Toe))
	return -2 * math.Sqrt(e.mu()) / C / C * e.Ecc * e.SqrtA * math.Sin(ek)
}
