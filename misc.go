// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.5
//

package gopvt

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// ------------------------------------
// Mini functions
// ------------------------------------

func SQ(x float64) float64 {
	return x * x
}

func EucDist(a, b PosXYZ) float64 {
	return math.Sqrt(SQ(a.X-b.X) + SQ(a.Y-b.Y) + SQ(a.Z-b.Z))
}

func ToDeg(rad float64) float64 {
	return rad / PI * 180.0
}

func ToRad(deg float64) float64 {
	return deg / 180.0 * PI
}

// ------------------------------------
// Debug output
// ------------------------------------

// logMat dumps a matrix at debug level
func logMat(logger *slog.Logger, name string, X mat.Matrix) {
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	r, c := X.Dims()
	fa := mat.Formatted(X, mat.Prefix(""), mat.Squeeze())
	logger.Debug(name, "dims", fmt.Sprintf("%dx%d", r, c), "value", fmt.Sprintf("%v", fa))
}

// ------------------------------------
// Enumerations
// ------------------------------------

// Processing mode. Only SPP exists; the type keeps room for phase based strategies.
type Mode int

const (
	SPP Mode = iota
)

func (p Mode) String() string {
	switch p {
	case SPP:
		return "SPP"
	default:
		return "UNKNOWN!"
	}
}

// ParseMode parses a mode name (case insensitive)
func ParseMode(s string) (Mode, error) {
	switch strings.ToUpper(s) {
	case "SPP", "0":
		return SPP, nil
	}
	return 0, fmt.Errorf("unknown mode %q", s)
}

// Requested solution type
type SolutionType int

const (
	PositionVelocityTime SolutionType = iota // Full fix
	TimeOnly                                 // Receiver clock only, position held at apriori
)

func (p SolutionType) String() string {
	switch p {
	case PositionVelocityTime:
		return "PVT"
	case TimeOnly:
		return "TimeOnly"
	default:
		return "UNKNOWN!"
	}
}

// ParseSolutionType parses "pvt" or "time"
func ParseSolutionType(s string) (SolutionType, error) {
	switch strings.ToLower(s) {
	case "pvt", "":
		return PositionVelocityTime, nil
	case "time", "timeonly", "time_only":
		return TimeOnly, nil
	}
	return 0, fmt.Errorf("unknown solution type %q", s)
}

// ------------------------------------
// Others
// ------------------------------------

var sysOrder = map[byte]int{'G': 0, 'J': 1, 'E': 2, 'R': 3, 'C': 4, 'S': 5}

// Sort the list of satellite names
func Sorted(s []SatType) []SatType {
	s2 := make([]SatType, len(s))
	copy(s2, s)
	sort.Slice(s2, func(i, j int) bool {
		if sysOrder[s2[i][0]] == sysOrder[s2[j][0]] {
			return s2[i] < s2[j]
		}
		return sysOrder[s2[i][0]] < sysOrder[s2[j][0]]
	})
	return s2
}

// ParseSystems parses "G,E" style lists
func ParseSystems(s string) ([]SysType, error) {
	var sys []SysType
	for _, a := range strings.Split(s, ",") {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		t := SysType(a[0])
		if !t.IsValid() {
			return nil, fmt.Errorf("unknown satellite system %q", a)
		}
		sys = append(sys, t)
	}
	return sys, nil
}
