// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.4
//

package gopvt

import (
	"fmt"
	"math"
)

//-------------------------------------------------------------------
// PosLLH
//-------------------------------------------------------------------

// Geodetic position on WGS-84. Lat/Lon in radians, Hei in meters.
type PosLLH struct {
	Lat float64
	Lon float64
	Hei float64
}

func (llh PosLLH) ToXYZ() PosXYZ {
	// Ellipsoid parameters
	f := Fe                     // Flattening
	a := Re                     // Semi-major axis
	e := math.Sqrt(f * (2 - f)) // Eccentricity

	sinl := math.Sin(llh.Lat)
	n := a / math.Sqrt(1-e*e*sinl*sinl) // Radius of curvature in the prime vertical
	return PosXYZ{
		X: (n + llh.Hei) * math.Cos(llh.Lat) * math.Cos(llh.Lon),
		Y: (n + llh.Hei) * math.Cos(llh.Lat) * math.Sin(llh.Lon),
		Z: (n*(1-e*e) + llh.Hei) * sinl,
	}
}

// Degrees returns latitude and longitude in degrees
func (llh PosLLH) Degrees() (lat, lon float64) {
	return ToDeg(llh.Lat), ToDeg(llh.Lon)
}

func (llh PosLLH) String() string {
	lat, lon := llh.Degrees()
	return fmt.Sprintf("%.8f %.8f %.4f", lat, lon, llh.Hei)
}

//-------------------------------------------------------------------
// PosXYZ
//-------------------------------------------------------------------

// ECEF position [m] (or [km] where stated)
type PosXYZ struct {
	X float64
	Y float64
	Z float64
}

func (pos PosXYZ) ToLLH() PosLLH {
	// In case of origin
	if pos.X == 0 && pos.Y == 0 && pos.Z == 0 {
		return PosLLH{Lat: 0, Lon: 0, Hei: -Re}
	}

	// Ellipsoid parameters
	f := Fe                     // Flattening
	a := Re                     // Semi-major axis
	b := a * (1 - f)            // Semi-minor axis
	e := math.Sqrt(f * (2 - f)) // Eccentricity

	// Bowring's method
	h := a*a - b*b
	p := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y)
	t := math.Atan2(pos.Z*a, p*b)
	sint := math.Sin(t)
	cost := math.Cos(t)

	lat := math.Atan2(pos.Z+h/b*sint*sint*sint, p-h/a*cost*cost*cost)
	lon := math.Atan2(pos.Y, pos.X)
	n := a / math.Sqrt(1-e*e*math.Sin(lat)*math.Sin(lat))
	var hei float64
	if math.Abs(math.Cos(lat)) > 1e-12 {
		hei = p/math.Cos(lat) - n
	} else {
		hei = math.Abs(pos.Z) - b // Pole
	}
	return PosLLH{Lat: lat, Lon: lon, Hei: hei}
}

// ENU position of pos seen from base
func (pos PosXYZ) ToENU(base PosXYZ) PosENU {
	return base.rotENU(pos.Sub(base))
}

// Rotate an ECEF vector into the local ENU frame at p
func (p PosXYZ) rotENU(v PosXYZ) PosENU {
	llh := p.ToLLH()
	s1 := math.Sin(llh.Lon)
	c1 := math.Cos(llh.Lon)
	s2 := math.Sin(llh.Lat)
	c2 := math.Cos(llh.Lat)
	return PosENU{
		E: -v.X*s1 + v.Y*c1,
		N: -v.X*c1*s2 - v.Y*s1*s2 + v.Z*c2,
		U: v.X*c1*c2 + v.Y*s1*c2 + v.Z*s2,
	}
}

// Elevation of sat seen from usr [rad]
func (usr PosXYZ) Elevation(sat PosXYZ) float64 {
	enu := sat.ToENU(usr)
	return enu.Elevation()
}

// Azimuth of sat seen from usr [rad]
func (usr PosXYZ) Azimuth(sat PosXYZ) float64 {
	enu := sat.ToENU(usr)
	return enu.Azimuth()
}

func (p PosXYZ) Add(b PosXYZ) PosXYZ {
	return PosXYZ{X: p.X + b.X, Y: p.Y + b.Y, Z: p.Z + b.Z}
}

func (p PosXYZ) Sub(b PosXYZ) PosXYZ {
	return PosXYZ{X: p.X - b.X, Y: p.Y - b.Y, Z: p.Z - b.Z}
}

func (p PosXYZ) Scale(k float64) PosXYZ {
	return PosXYZ{X: p.X * k, Y: p.Y * k, Z: p.Z * k}
}

func (p PosXYZ) Dot(b PosXYZ) float64 {
	return p.X*b.X + p.Y*b.Y + p.Z*b.Z
}

func (p PosXYZ) Norm() float64 {
	return math.Sqrt(p.Dot(p))
}

func (p PosXYZ) IsZero() bool {
	return p.X == 0 && p.Y == 0 && p.Z == 0
}

func (p PosXYZ) IsFinite() bool {
	for _, v := range []float64{p.X, p.Y, p.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

//-------------------------------------------------------------------
// PosENU
//-------------------------------------------------------------------

type PosENU struct {
	E float64
	N float64
	U float64
}

func (enu PosENU) ToXYZ(base PosXYZ) PosXYZ {
	llh := base.ToLLH()
	s1 := math.Sin(llh.Lon)
	c1 := math.Cos(llh.Lon)
	s2 := math.Sin(llh.Lat)
	c2 := math.Cos(llh.Lat)
	return PosXYZ{
		X: base.X - enu.E*s1 - enu.N*c1*s2 + enu.U*c1*c2,
		Y: base.Y + enu.E*c1 - enu.N*s1*s2 + enu.U*s1*c2,
		Z: base.Z + enu.N*c2 + enu.U*s2,
	}
}

func (enu PosENU) Elevation() float64 {
	return math.Atan2(enu.U, math.Sqrt(enu.E*enu.E+enu.N*enu.N))
}

func (enu PosENU) Azimuth() float64 {
	az := math.Atan2(enu.E, enu.N)
	if az < 0 {
		az += 2 * math.Pi
	}
	return az
}

//-------------------------------------------------------------------
// AprioriPosition
//-------------------------------------------------------------------

// AprioriPosition is the linearization point of the solver, held both in
// ECEF and geodetic form so the tropospheric model needs no conversion.
type AprioriPosition struct {
	ECEF     PosXYZ
	Geodetic PosLLH
}

func AprioriFromECEF(xyz PosXYZ) AprioriPosition {
	return AprioriPosition{ECEF: xyz, Geodetic: xyz.ToLLH()}
}

func AprioriFromGeodetic(llh PosLLH) AprioriPosition {
	return AprioriPosition{ECEF: llh.ToXYZ(), Geodetic: llh}
}

// IsDefined reports whether the position can be used to linearize
func (a AprioriPosition) IsDefined() bool {
	return !a.ECEF.IsZero() && a.ECEF.IsFinite()
}
