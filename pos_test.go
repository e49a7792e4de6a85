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

	"github.com/stretchr/testify/assert"
)

func TestPosLLH_RoundTrip(t *testing.T) {
	tests := []PosLLH{
		{Lat: ToRad(35.681236), Lon: ToRad(139.767125), Hei: 40},
		{Lat: ToRad(-33.8688), Lon: ToRad(151.2093), Hei: 58},
		{Lat: ToRad(0), Lon: ToRad(0), Hei: 0},
		{Lat: ToRad(78.2232), Lon: ToRad(15.6267), Hei: 1200},
	}
	for _, llh := range tests {
		t.Run(llh.String(), func(t *testing.T) {
			got := llh.ToXYZ().ToLLH()
			assert.InDelta(t, llh.Lat, got.Lat, 1e-10)
			assert.InDelta(t, llh.Lon, got.Lon, 1e-10)
			assert.InDelta(t, llh.Hei, got.Hei, 1e-3)
		})
	}
}

func TestPosXYZ_ToLLH_Special(t *testing.T) {
	assert := assert.New(t)
	eq := PosXYZ{X: Re}
	llh := eq.ToLLH()
	assert.InDelta(0, llh.Lat, 1e-12)
	assert.InDelta(0, llh.Hei, 1e-6)

	pole := PosLLH{Lat: PI / 2, Hei: 100}.ToXYZ()
	llh = pole.ToLLH()
	assert.InDelta(PI/2, llh.Lat, 1e-9)
	assert.InDelta(100, llh.Hei, 1e-3)
}

func TestPosENU(t *testing.T) {
	assert := assert.New(t)
	base := PosLLH{Lat: ToRad(35), Lon: ToRad(139), Hei: 10}.ToXYZ()

	enu := PosENU{E: 120.5, N: -30.25, U: 8}
	back := enu.ToXYZ(base).ToENU(base)
	assert.InDelta(enu.E, back.E, 1e-6)
	assert.InDelta(enu.N, back.N, 1e-6)
	assert.InDelta(enu.U, back.U, 1e-6)

	up := PosENU{U: 2e7}.ToXYZ(base)
	assert.InDelta(PI/2, base.Elevation(up), 1e-9)

	east := PosENU{E: 1e5}.ToXYZ(base)
	assert.InDelta(PI/2, base.Azimuth(east), 1e-9)
	assert.InDelta(0, base.Elevation(east), 1e-9)

	west := PosENU{E: -1e5, U: 1e5}.ToXYZ(base)
	assert.InDelta(3*PI/2, base.Azimuth(west), 1e-9)
	assert.InDelta(PI/4, base.Elevation(west), 1e-9)
}

func TestAprioriPosition(t *testing.T) {
	assert := assert.New(t)
	llh := PosLLH{Lat: ToRad(35), Lon: ToRad(139), Hei: 10}
	a := AprioriFromGeodetic(llh)
	assert.True(a.IsDefined())
	assert.InDelta(0, EucDist(a.ECEF, llh.ToXYZ()), 1e-9)

	b := AprioriFromECEF(a.ECEF)
	assert.InDelta(llh.Lat, b.Geodetic.Lat, 1e-10)
	assert.InDelta(llh.Hei, b.Geodetic.Hei, 1e-3)

	assert.False(AprioriPosition{}.IsDefined())
	assert.False(AprioriFromECEF(PosXYZ{X: math.NaN(), Y: 1, Z: 1}).IsDefined())
	assert.False(AprioriFromECEF(PosXYZ{X: math.Inf(1)}).IsDefined())
}
