// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.9
//

package gopvt

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetWeight(t *testing.T) {
	tests := []struct {
		name string
		mode WeightMode
		elv  float64
		want float64
	}{
		{"equal", WeightEqual, 30, 1},
		{"below horizon", WeightSinEl, -3, 1},
		{"elevation", WeightElevation, 45, 0.5},
		{"sin el zenith", WeightSinEl, 90, 1 / 0.64},
		{"sin el floor", WeightSinEl, 1, MIN_WEIGHT},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, getWeight(tt.mode, tt.elv, L1), 1e-12)
		})
	}
}

func TestGetWeight_RTKLIB(t *testing.T) {
	assert := assert.New(t)

	prev := 0.0
	for _, el := range []float64{5, 10, 30, 60, 90} {
		w := getWeight(WeightRTKLIB, el, L1)
		assert.Greater(w, prev, "el=%f", el)
		prev = w
	}

	// Clamped below the minimum elevation
	assert.Equal(getWeight(WeightRTKLIB, MIN_ELEVATION_FOR_WEIGHT, L1), getWeight(WeightRTKLIB, 2, L1))

	// Lower frequencies carry more ionospheric variance
	assert.Less(getWeight(WeightRTKLIB, 45, L2), getWeight(WeightRTKLIB, 45, L1))
	assert.Equal(getWeight(WeightRTKLIB, 45, L1), getWeight(WeightRTKLIB, 45, 0))

	// Zenith value
	v := SQ(100)*(SQ(0.003)+SQ(0.003)) + SQ(0.3) + SQ(5.0) + SQ(3.0)
	assert.InDelta(1/v, getWeight(WeightRTKLIB, 90, L1), 1e-12)
	assert.False(math.IsNaN(getWeight(WeightRTKLIB, 90, L1)))
}
