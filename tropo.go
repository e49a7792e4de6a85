// This code is adapted from RTKLIB (Saastamoinen) and from the UNB3 model of
// the University of New Brunswick.
// The author gratefully acknowledges T.Takasu for his outstanding contribution in developing RTKLIB.
//
// Last modified: 2025.10.6
//

package gopvt

import (
	"math"
)

// Zenith tropospheric delay components [m]
type TropoComponents struct {
	Zwd float64 // Zenith wet delay
	Zdd float64 // Zenith dry (hydrostatic) delay
}

// UNB3 meteorological tables, latitude rows 15, 30, 45, 60, 75 deg.
// Columns: pressure [hPa], temperature [K], water vapour pressure [hPa],
// temperature lapse rate beta [K/m], water vapour lapse rate lambda.
var (
	unb3Avg = [5][5]float64{
		{1013.25, 299.65, 26.31, 6.30e-3, 2.77},
		{1017.25, 294.15, 21.79, 6.05e-3, 3.15},
		{1015.75, 283.15, 11.66, 5.58e-3, 2.57},
		{1011.75, 272.15, 6.78, 5.39e-3, 1.81},
		{1013.00, 263.65, 4.11, 4.53e-3, 1.55},
	}
	unb3Amp = [5][5]float64{
		{0.00, 0.00, 0.00, 0.00e-3, 0.00},
		{-3.75, 7.00, 8.85, 0.25e-3, 0.33},
		{-2.25, 11.00, 7.24, 0.32e-3, 0.46},
		{-1.75, 15.00, 5.36, 0.81e-3, 0.74},
		{-0.50, 14.50, 3.39, 0.62e-3, 0.30},
	}
)

// Interpolate one column of a UNB3 table at |lat| [deg]
func unb3Interp(tbl *[5][5]float64, col int, lat float64) float64 {
	lat = math.Abs(lat)
	if lat <= 15 {
		return tbl[0][col]
	}
	if lat >= 75 {
		return tbl[4][col]
	}
	i := int(lat/15) - 1
	f := (lat - float64(i+1)*15) / 15
	return tbl[i][col] + (tbl[i+1][col]-tbl[i][col])*f
}

// UNB3Components evaluates the UNB3 zenith delays at epoch t for latitude
// lat [deg] and height hei [m]. Returns (zdd, zwd).
func UNB3Components(t GTime, lat, hei float64) (zdd, zwd float64) {
	const (
		k1 = 77.604   // [K/hPa]
		k2 = 382000.0 // [K^2/hPa]
		rd = 287.054  // Gas constant of dry air [J/kg/K]
		gm = 9.784    // Mean gravity [m/s^2]
		g  = 9.80665  // Standard gravity [m/s^2]
	)
	dmin := 28.0 // Day of minimum, northern hemisphere
	if lat < 0 {
		dmin = 211.0
	}
	cosd := math.Cos(2 * math.Pi * (t.DayOfYear() - dmin) / 365.25)
	var v [5]float64
	for i := range v {
		v[i] = unb3Interp(&unb3Avg, i, lat) - unb3Interp(&unb3Amp, i, lat)*cosd
	}
	p, temp, e, beta, lambda := v[0], v[1], v[2], v[3], v[4]

	// Sea level zenith delays
	zd0 := 1e-6 * k1 * rd * p / gm
	zw0 := 1e-6 * k2 * rd / ((lambda+1)*gm - beta*rd) * e / temp

	// Scale to the receiver height
	if hei < 0 {
		hei = 0
	}
	base := 1 - beta*hei/temp
	if base <= 0 {
		return 0, 0
	}
	zdd = math.Pow(base, g/(rd*beta)) * zd0
	zwd = math.Pow(base, (lambda+1)*g/(rd*beta)-1) * zw0
	return
}

// SaastamoinenComponents evaluates the Saastamoinen zenith delays with a
// standard atmosphere at latitude lat [rad] and height hei [m].
// Returns (zdd, zwd).
func SaastamoinenComponents(lat, hei float64) (zdd, zwd float64) {
	const TEMP0 = 15.0 // Temperature at sea level [degC]
	const HUMI = 0.7   // Relative humidity
	if hei < -100.0 || 1e4 < hei {
		return 0, 0
	}
	if hei < 0.0 {
		hei = 0.0
	}
	pres := 1013.25 * math.Pow(1.0-2.2557e-5*hei, 5.2568)
	temp := TEMP0 - 6.5e-3*hei + 273.16
	e := 6.108 * HUMI * math.Exp((17.15*temp-4684.0)/(temp-38.45))
	zdd = 0.0022768 * pres / (1.0 - 0.00266*math.Cos(2.0*lat) - 0.00028*hei/1e3)
	zwd = 0.002277 * (1255.0/temp + 0.05) * e
	return
}

// TropoDelay maps the zenith components to the slant delay [m] at
// elevation el [deg].
func TropoDelay(el, zwd, zdd float64) float64 {
	sinel := math.Sin(ToRad(el))
	return (zwd + zdd) * 1.001 / math.Sqrt(0.002001+sinel*sinel)
}
