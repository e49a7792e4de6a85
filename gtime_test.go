// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.13
//

package gopvt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewGTime(t *testing.T) {
	tests := []struct {
		in   time.Time
		week int
		sec  float64
	}{
		{time.Date(1980, 1, 6, 0, 0, 0, 0, time.UTC), 0, 0},
		{time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC), 2297, 129600},
		{time.Date(2024, 1, 13, 23, 59, 50, 500000000, time.UTC), 2296, 604790.5},
	}
	for _, tt := range tests {
		t.Run(tt.in.String(), func(t *testing.T) {
			g := NewGTime(tt.in)
			assert.Equal(t, tt.week, g.Week)
			assert.InDelta(t, tt.sec, g.Sec, 1e-9)
			assert.True(t, g.ToTime().Equal(tt.in))
		})
	}
}

func TestGTime_Arithmetic(t *testing.T) {
	assert := assert.New(t)
	g := GTime{Week: 2296, Sec: 604790}

	g2 := g.Add(15)
	assert.Equal(2297, g2.Week)
	assert.InDelta(5, g2.Sec, 1e-9)
	assert.InDelta(15, g2.Sub(g), 1e-9)
	assert.InDelta(-15, g.Sub(g2), 1e-9)

	g3 := g2.Add(-20)
	assert.Equal(2296, g3.Week)
	assert.InDelta(604785, g3.Sec, 1e-9)

	assert.True(g.Less(g2, false))
	assert.False(g2.Less(g, false))
	assert.True(g.LessOrEqual(g, false))
	assert.True(GTime{Week: 1, Sec: 10.2}.Less(GTime{Week: 1, Sec: 10.4}, false))
	assert.False(GTime{Week: 1, Sec: 10.2}.Less(GTime{Week: 1, Sec: 10.4}, true))
	assert.True(GTime{Week: 1, Sec: 30}.Divisible(30))
	assert.False(GTime{Week: 1, Sec: 31}.Divisible(30))
	assert.True(GTime{}.IsZero())
}

func TestGTime_UTC(t *testing.T) {
	assert := assert.New(t)
	g := NewGTime(time.Date(2024, 3, 1, 0, 0, 18, 0, time.UTC))
	assert.True(g.UTC().Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.InDelta(61.0, g.DayOfYear(), 1e-9)

	g = NewGTime(time.Date(2024, 1, 1, 12, 0, 18, 0, time.UTC))
	assert.InDelta(1.5, g.DayOfYear(), 1e-9)
}
