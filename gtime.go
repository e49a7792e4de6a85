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
	"time"
)

// GPS epoch 1980/1/6 00:00:00
var gpsEpoch = time.Date(1980, 1, 6, 0, 0, 0, 0, time.UTC)

// GTime is an epoch in GPS time, held as week number and seconds of week.
// Sec is kept in [0, 604800) by the arithmetic helpers.
type GTime struct {
	Week int
	Sec  float64
}

func NewGTime(dt time.Time) *GTime {
	t := dt.Unix() - gpsEpoch.Unix() // Elapsed seconds since 1980/1/6 00:00:00
	return &GTime{
		Week: int(t / (3600 * 24 * 7)),
		Sec:  float64(t%(3600*24*7)) + float64(dt.Nanosecond())/1e9,
	}
}

// Convert to time.Time (GPS time scale, no leap second applied)
func (p GTime) ToTime() time.Time {
	i := int64(math.Floor(p.Sec))
	t := int64(3600*24*7*p.Week) + i + gpsEpoch.Unix()
	n := int64(math.Round((p.Sec - float64(i)) * 1e9))
	return time.Unix(t, n)
}

// Convert to UTC by removing the leap seconds
func (p GTime) UTC() time.Time {
	return p.Add(-LS).ToTime().UTC()
}

// Add shifts the epoch by sec seconds (may be negative)
func (p GTime) Add(sec float64) GTime {
	return GTime{Week: p.Week, Sec: p.Sec + sec}.normalize()
}

// Sub returns p - b in seconds
func (p GTime) Sub(b GTime) float64 {
	return float64(p.Week-b.Week)*SecPerWeek + (p.Sec - b.Sec)
}

func (p GTime) normalize() GTime {
	for p.Sec < 0 {
		p.Sec += SecPerWeek
		p.Week--
	}
	for p.Sec >= SecPerWeek {
		p.Sec -= SecPerWeek
		p.Week++
	}
	return p
}

// IsZero reports whether the epoch was never set
func (p GTime) IsZero() bool {
	return p.Week == 0 && p.Sec == 0
}

// DayOfYear returns the (fractional) day of year in UTC, starting at 1.0
func (p GTime) DayOfYear() float64 {
	u := p.UTC()
	h := float64(u.Hour())*3600 + float64(u.Minute())*60 + float64(u.Second()) + float64(u.Nanosecond())/1e9
	return float64(u.YearDay()) + h/SecPerDay
}

func (p GTime) Less(b GTime, roundSec bool) bool {
	if p.Week != b.Week {
		return p.Week < b.Week
	}
	if roundSec {
		return math.Round(p.Sec) < math.Round(b.Sec)
	}
	return p.Sec < b.Sec
}

func (p GTime) LessOrEqual(b GTime, roundSec bool) bool {
	return !b.Less(p, roundSec)
}

func (p GTime) Before(t time.Time, roundSec bool) bool {
	return p.Less(*NewGTime(t), roundSec)
}

func (p GTime) After(t time.Time, roundSec bool) bool {
	return NewGTime(t).Less(p, roundSec)
}

func (p GTime) Divisible(sec int) bool {
	return int(math.Round(p.Sec))%sec == 0
}

func (p GTime) String() string {
	return fmt.Sprintf("%s (%d, %.6f)", p.ToTime().UTC().Format("2006/01/02 15:04:05.000000"), p.Week, p.Sec)
}
