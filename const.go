// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.4
//

package gopvt

const (
	PI  = 3.1415926535897932  // Pi
	C   = 2.99792458e8        // Speed of light [m/s]
	Re  = 6378137.0           // Earth's radius [m]
	Fe  = 1.0 / 298.257223563 // Earth's flattening
	LS  = 18                  // Leap seconds (GPST - UTC)
	L1  = 1575420000.0        // L1 frequency of G/J [Hz]
	L2  = 1227600000.0        // L2 frequency of G/J [Hz]
	L5  = 1176450000.0        // L5 frequency of G/J [Hz]
	B1  = 1561098000.0        // B1 frequency of Beidou [Hz]
	E1  = 1575420000.0        // E1 frequency of Galileo [Hz]
	E5b = 1207140000.0        // E5b frequency of Galileo [Hz]
)

// Earth and Sun constants used by the astro model
const (
	OMGe       = 7.2921151467e-5 // Earth rotation angular velocity [rad/s]
	ReKm       = 6378.137        // Earth's equatorial radius [km]
	RSunKm     = 696000.0        // Sun's radius [km]
	AUKm       = 149597870.7     // Astronomical unit [km]
	SecPerDay  = 86400.0         // Seconds per day
	SecPerWeek = 604800.0        // Seconds per week
)
