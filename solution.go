// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.9
//

package gopvt

// Origin of a delay applied to one satellite
type DelayKind int

const (
	DelayNone     DelayKind = iota // Not compensated
	DelayModeled                   // Internal model
	DelayMeasured                  // Supplied by the caller
)

func (k DelayKind) String() string {
	switch k {
	case DelayNone:
		return "none"
	case DelayModeled:
		return "modeled"
	case DelayMeasured:
		return "measured"
	default:
		return "UNKNOWN!"
	}
}

// Delay applied to one satellite [m]
type TimeDelay struct {
	Kind  DelayKind
	Value float64
}

// Per satellite data of a solution
type SVData struct {
	Tropo     TimeDelay
	Elevation float64 // [deg]
	Azimuth   float64 // [deg]
	Residual  float64 // Prefit residual at the last iteration [m]
	Weight    float64
}

// Candidate attrition through the pipeline
type PoolStats struct {
	Input        int // Candidates handed to Resolve
	Elected      int // After mode election
	Interpolated int // With a sky state
	ElevMasked   int // Dropped by the elevation mask
	Eclipsed     int // Dropped by the eclipse filter
	Used         int // In the solution
}

// Solution is the result of one Resolve call
type Solution struct {
	Type      SolutionType
	Pos       PosXYZ             // Receiver position, ECEF [m]. Zero for TimeOnly
	Vel       PosXYZ             // Receiver velocity [m/s]. Not estimated, zero
	Delta     [4]float64         // Correction to the apriori dx, dy, dz and clock bias [m]
	ClockBias float64            // Receiver clock bias [s]
	Dop       map[string]float64 // gdop, pdop, hdop, vdop, tdop
	SV        map[SatType]SVData // Satellites used
	Iter      int                // Number of linearization loops
	Stats     PoolStats
}

func newSolution(typ SolutionType) *Solution {
	return &Solution{
		Type: typ,
		Dop: map[string]float64{
			GDOP: 0,
			PDOP: 0,
			HDOP: 0,
			VDOP: 0,
			TDOP: 0,
		},
		SV: map[SatType]SVData{},
	}
}

// Sats returns the satellites used, sorted
func (s *Solution) Sats() []SatType {
	sats := make([]SatType, 0, len(s.SV))
	for sv := range s.SV {
		sats = append(sats, sv)
	}
	return Sorted(sats)
}

// LLH returns the geodetic position of the solution
func (s *Solution) LLH() PosLLH {
	return s.Pos.ToLLH()
}

// postProcess applies the fixed altitude override and the time only
// specialization.
func (s *Solution) postProcess(cfg *Config) {
	if cfg.FixedAltitude != nil && s.Type != TimeOnly {
		llh := s.Pos.ToLLH()
		llh.Hei = *cfg.FixedAltitude
		s.Pos = llh.ToXYZ()
		// Zero the vertical velocity in the local frame
		enu := s.Pos.rotENU(s.Vel)
		s.Vel = PosENU{E: enu.E, N: enu.N}.ToXYZ(s.Pos).Sub(s.Pos)
	}
	if s.Type == TimeOnly {
		s.Pos = PosXYZ{}
		s.Delta[0], s.Delta[1], s.Delta[2] = 0, 0, 0
		s.Dop[HDOP] = 0
		s.Dop[VDOP] = 0
	}
}
