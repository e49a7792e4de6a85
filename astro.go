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

	satellite "github.com/joshuaferrara/go-satellite"
)

// Celestial body
type Body int

const (
	Sun Body = iota
	Earth
	Moon
)

func (b Body) String() string {
	switch b {
	case Sun:
		return "Sun"
	case Earth:
		return "Earth"
	case Moon:
		return "Moon"
	default:
		return "UNKNOWN!"
	}
}

// Reference frame, identified by its center and orientation
type Frame int

const (
	FrameEarthFixed Frame = iota // Earth centered, earth fixed (ECEF)
	FrameEME2000                 // Earth centered, inertial (mean equator and equinox)
	FrameSunJ2000                // Sun centered, inertial
)

// Center returns the body at the origin of the frame
func (f Frame) Center() Body {
	if f == FrameSunJ2000 {
		return Sun
	}
	return Earth
}

func (f Frame) String() string {
	switch f {
	case FrameEarthFixed:
		return "ECEF"
	case FrameEME2000:
		return "EME2000"
	case FrameSunJ2000:
		return "Sun J2000"
	default:
		return "UNKNOWN!"
	}
}

// Light time correction applied to celestial body positions
type LightTimeCorrection int

const (
	LightTimeNone LightTimeCorrection = iota
	LightTimeOneWay
)

// Orbital state of a satellite. Velocity is not used by the shadow model.
type Orbit struct {
	Pos   PosXYZ // [km]
	Vel   PosXYZ // [km/s]
	Epoch GTime
	Frame Frame
}

// Eclipse condition of a satellite
type EclipseKind int

const (
	Visible EclipseKind = iota
	Penumbra
	Umbra
)

func (k EclipseKind) String() string {
	switch k {
	case Visible:
		return "Visible"
	case Penumbra:
		return "Penumbra"
	case Umbra:
		return "Umbra"
	default:
		return "UNKNOWN!"
	}
}

// EclipseState holds the shadow condition and the visible fraction of the
// light source disk: 1 when Visible, 0 in Umbra.
type EclipseState struct {
	Kind     EclipseKind
	Fraction float64
}

// AstroProvider answers celestial body and eclipse queries
type AstroProvider interface {
	// Position of body at t in frame [km]
	CelestialPosition(body Body, t GTime, frame Frame, ltc LightTimeCorrection) (PosXYZ, error)
	// Shadow cast by the center of occulting on the center of light, seen from orbit
	EclipseState(orbit Orbit, light, occulting Frame) (EclipseState, error)
}

// AnalyticAstro is an AstroProvider built on a low precision solar
// ephemeris (Montenbruck & Gill, 3.3.2) and a conical shadow model. Earth
// orientation is a pure GMST rotation.
type AnalyticAstro struct{}

func NewAnalyticAstro() *AnalyticAstro {
	return &AnalyticAstro{}
}

// Sun position in EME2000 [km] at t
func sunEME2000(t GTime) PosXYZ {
	const eps = 23.43929111 * PI / 180 // Obliquity of the ecliptic
	jd := julianDay(t.UTC().Unix())
	tc := (jd - 2451545.0) / 36525.0
	m := ToRad(357.5256 + 35999.049*tc)
	l := ToRad(282.9400) + m + ToRad((6892.0*math.Sin(m)+72.0*math.Sin(2*m))/3600.0) + ToRad(1.3972*tc)
	r := (149.619 - 2.499*math.Cos(m) - 0.021*math.Cos(2*m)) * 1e6
	return PosXYZ{
		X: r * math.Cos(l),
		Y: r * math.Sin(l) * math.Cos(eps),
		Z: r * math.Sin(l) * math.Sin(eps),
	}
}

func julianDay(unix int64) float64 {
	return float64(unix)/SecPerDay + 2440587.5
}

// Rotate an EME2000 vector into ECEF at t
func eciToEcef(v PosXYZ, t GTime) PosXYZ {
	u := t.UTC()
	gmst := satellite.GSTimeFromDate(u.Year(), int(u.Month()), u.Day(), u.Hour(), u.Minute(), u.Second())
	e := satellite.ECIToECEF(satellite.Vector3{X: v.X, Y: v.Y, Z: v.Z}, gmst)
	return PosXYZ{X: e.X, Y: e.Y, Z: e.Z}
}

func (a *AnalyticAstro) CelestialPosition(body Body, t GTime, frame Frame, ltc LightTimeCorrection) (PosXYZ, error) {
	var sun PosXYZ // Sun relative to Earth, EME2000
	switch body {
	case Sun, Earth:
		sun = sunEME2000(t)
		if ltc == LightTimeOneWay {
			sun = sunEME2000(t.Add(-sun.Norm() * 1000 / C))
		}
	default:
		return PosXYZ{}, fmt.Errorf("analytic astro: %s is not supported", body)
	}
	var p PosXYZ // body relative to the frame center, EME2000 axes
	switch {
	case body == frame.Center():
		return PosXYZ{}, nil
	case body == Sun:
		p = sun
	default:
		p = sun.Scale(-1)
	}
	switch frame {
	case FrameEarthFixed:
		return eciToEcef(p, t), nil
	case FrameEME2000, FrameSunJ2000:
		return p, nil
	}
	return PosXYZ{}, fmt.Errorf("analytic astro: unknown frame %d", frame)
}

func (a *AnalyticAstro) EclipseState(orbit Orbit, light, occulting Frame) (EclipseState, error) {
	if light.Center() != Sun || occulting.Center() != Earth {
		return EclipseState{}, fmt.Errorf("analytic astro: only Sun/Earth shadow is supported (light=%s, occulting=%s)", light, occulting)
	}
	sun, err := a.CelestialPosition(Sun, orbit.Epoch, orbit.Frame, LightTimeNone)
	if err != nil {
		return EclipseState{}, err
	}
	var sat PosXYZ
	switch orbit.Frame {
	case FrameEarthFixed, FrameEME2000:
		sat = orbit.Pos
	default:
		return EclipseState{}, fmt.Errorf("analytic astro: orbit frame %s is not supported", orbit.Frame)
	}
	return conicalShadow(sat, sun, ReKm, RSunKm), nil
}

// conicalShadow returns the visibility of the Sun disk from sat, with the
// Earth at the origin. All vectors in km.
func conicalShadow(sat, sun PosXYZ, rOcc, rLight float64) EclipseState {
	toSun := sun.Sub(sat)
	toOcc := sat.Scale(-1)
	ds := toSun.Norm()
	do := toOcc.Norm()
	if do <= rOcc {
		return EclipseState{Kind: Umbra, Fraction: 0}
	}
	a := math.Asin(math.Min(1, rLight/ds)) // Apparent radius of the Sun
	b := math.Asin(math.Min(1, rOcc/do))   // Apparent radius of the Earth
	c := math.Acos(math.Max(-1, math.Min(1, toSun.Dot(toOcc)/(ds*do))))
	switch {
	case c >= a+b:
		return EclipseState{Kind: Visible, Fraction: 1}
	case c <= b-a:
		return EclipseState{Kind: Umbra, Fraction: 0}
	case c <= a-b:
		// Annular: the Earth disk lies inside the Sun disk
		return EclipseState{Kind: Penumbra, Fraction: 1 - (b*b)/(a*a)}
	}
	x := (c*c + a*a - b*b) / (2 * c)
	y := math.Sqrt(math.Max(0, a*a-x*x))
	area := a*a*math.Acos(math.Max(-1, math.Min(1, x/a))) + b*b*math.Acos(math.Max(-1, math.Min(1, (c-x)/b))) - c*y
	f := 1 - area/(math.Pi*a*a)
	return EclipseState{Kind: Penumbra, Fraction: math.Max(0, math.Min(1, f))}
}
