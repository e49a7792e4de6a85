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

func TestUNB3Components(t *testing.T) {
	assert := assert.New(t)

	zdd, zwd := UNB3Components(testEpoch, 35, 50)
	assert.InDelta(2.31, zdd, 0.05)
	assert.Greater(zwd, 0.02)
	assert.Less(zwd, 0.3)

	// Delay decreases with height
	zddHigh, zwdHigh := UNB3Components(testEpoch, 35, 3000)
	assert.Less(zddHigh, zdd)
	assert.Less(zwdHigh, zwd)

	// Wetter in summer
	summer := *NewGTime(time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC))
	_, zwdSummer := UNB3Components(summer, 35, 50)
	assert.Greater(zwdSummer, zwd)

	// Seasons are reversed in the southern hemisphere
	_, zwdSouth := UNB3Components(testEpoch, -35, 50)
	assert.Greater(zwdSouth, zwd)

	// No seasonal term at the equator
	zdd1, zwd1 := UNB3Components(testEpoch, 10, 0)
	zdd2, zwd2 := UNB3Components(summer, 10, 0)
	assert.InDelta(zdd1, zdd2, 1e-12)
	assert.InDelta(zwd1, zwd2, 1e-12)
}

func TestSaastamoinenComponents(t *testing.T) {
	assert := assert.New(t)
	zdd, zwd := SaastamoinenComponents(ToRad(35), 0)
	assert.InDelta(2.309, zdd, 0.005)
	assert.InDelta(0.120, zwd, 0.005)

	zdd, zwd = SaastamoinenComponents(ToRad(35), 2e4)
	assert.Zero(zdd)
	assert.Zero(zwd)
}

func TestTropoDelay(t *testing.T) {
	assert := assert.New(t)
	const zwd, zdd = 0.1, 2.3

	assert.InDelta(zwd+zdd, TropoDelay(90, zwd, zdd), 1e-5)
	assert.InDelta((zwd+zdd)*1.001/0.5019, TropoDelay(30, zwd, zdd), 1e-3)

	prev := 0.0
	for el := 90.0; el >= 5; el -= 5 {
		d := TropoDelay(el, zwd, zdd)
		assert.Greater(d, prev, "el=%f", el)
		prev = d
	}
	assert.Less(TropoDelay(5, zwd, zdd), 30.0)
}
