// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.6
//

package gopvt

// Satellite state at the transmission epoch
type InterpolationResult struct {
	SkyPos    PosXYZ  // ECEF [m]
	Elevation float64 // [deg]
	Azimuth   float64 // [deg]
}

// StateProvider resolves a satellite's sky state at the transmission epoch.
// ok == false means the state is not available for that satellite at that
// instant; it is not an error.
type StateProvider interface {
	Interpolate(t GTime, sv SatType, order int) (res InterpolationResult, ok bool)
}

// StateProviderFunc adapts a plain function to StateProvider
type StateProviderFunc func(t GTime, sv SatType, order int) (InterpolationResult, bool)

func (f StateProviderFunc) Interpolate(t GTime, sv SatType, order int) (InterpolationResult, bool) {
	return f(t, sv, order)
}

// skyState builds the interpolation result of sat seen from ref
func skyState(sat, ref PosXYZ) InterpolationResult {
	enu := sat.ToENU(ref)
	return InterpolationResult{
		SkyPos:    sat,
		Elevation: ToDeg(enu.Elevation()),
		Azimuth:   ToDeg(enu.Azimuth()),
	}
}
