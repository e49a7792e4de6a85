// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.13
//

package gopvt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// SP3-c/d specification
// https://files.igs.org/pub/data/format/sp3d.pdf
//

// Precise orbits read from an SP3 file. Positions are ECEF [m]; a zero
// position marks a missing sample.
type SP3 struct {
	Epochs  []GTime
	Pos     map[SatType][]PosXYZ
	TimeSys string
}

// Interval returns the nominal sample interval [s]
func (p *SP3) Interval() float64 {
	if len(p.Epochs) < 2 {
		return 0
	}
	return p.Epochs[1].Sub(p.Epochs[0])
}

// Read date and time from an SP3 epoch line
//   - *  2024  1 15  0  0  0.00000000
func getSP3Time(l string) (GTime, error) {
	la := strings.Fields(l[1:])
	if len(la) < 6 {
		return GTime{}, fmt.Errorf("not enough fields in epoch line: %q", l)
	}
	var v [5]int
	for i := range v {
		n, err := strconv.Atoi(la[i])
		if err != nil {
			return GTime{}, fmt.Errorf("invalid epoch line %q: %w", l, err)
		}
		v[i] = n
	}
	sec, err := strconv.ParseFloat(la[5], 64)
	if err != nil {
		return GTime{}, fmt.Errorf("invalid epoch line %q: %w", l, err)
	}
	isec := math.Floor(sec)
	t := time.Date(v[0], time.Month(v[1]), v[2], v[3], v[4], int(isec), int(math.Round((sec-isec)*1e9)), time.UTC)
	return *NewGTime(t), nil
}

// ReadSP3 reads the position records of an SP3-c or SP3-d file.
// Velocity and correlation records are skipped, as are satellites of
// unsupported systems.
func ReadSP3(r io.Reader) (*SP3, error) {
	sp3 := &SP3{Pos: map[SatType][]PosXYZ{}, TimeSys: "GPS"}

	first := true
	s := bufio.NewScanner(r)
	for s.Scan() {
		line := s.Text()
		if first {
			if len(line) < 3 || line[0] != '#' || (line[1] != 'c' && line[1] != 'd') {
				return nil, fmt.Errorf("not an SP3-c/d file: %q", line)
			}
			first = false
			continue
		}
		switch {
		case strings.HasPrefix(line, "EOF"):
			return sp3.finish()

		case strings.HasPrefix(line, "%c") && len(line) >= 12 && sp3.TimeSys == "GPS" && len(sp3.Epochs) == 0:
			if ts := strings.TrimSpace(line[9:12]); ts != "" && ts != "ccc" {
				sp3.TimeSys = ts
			}

		case strings.HasPrefix(line, "*"):
			t, err := getSP3Time(line)
			if err != nil {
				return nil, err
			}
			if sp3.TimeSys == "UTC" {
				t = t.Add(LS)
			}
			sp3.Epochs = append(sp3.Epochs, t)

		case strings.HasPrefix(line, "P") && len(sp3.Epochs) > 0:
			if len(line) < 46 {
				continue
			}
			sys := line[1]
			if sys == ' ' {
				sys = 'G'
			}
			num, err := strconv.Atoi(strings.TrimSpace(line[2:4]))
			if err != nil {
				continue
			}
			sat := SatType(fmt.Sprintf("%c%02d", sys, num))
			if !sat.Sys().IsValid() {
				continue
			}
			var v [3]float64
			for j := range v {
				v[j] = parseFloat(line[4+j*14 : 18+j*14])
			}
			pos := PosXYZ{X: v[0] * 1000, Y: v[1] * 1000, Z: v[2] * 1000}
			if math.Abs(v[0]) < 1e-9 || math.Abs(v[0]-999999.999999) < 1e-6 {
				pos = PosXYZ{} // Bad or absent
			}
			k := len(sp3.Epochs) - 1
			for len(sp3.Pos[sat]) < k {
				sp3.Pos[sat] = append(sp3.Pos[sat], PosXYZ{})
			}
			sp3.Pos[sat] = append(sp3.Pos[sat], pos)
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	if first {
		return nil, errors.New("empty SP3 file")
	}
	return sp3.finish()
}

// finish pads every satellite to the number of epochs
func (p *SP3) finish() (*SP3, error) {
	if len(p.Epochs) == 0 {
		return nil, errors.New("no epoch in SP3 file")
	}
	for sat := range p.Pos {
		for len(p.Pos[sat]) < len(p.Epochs) {
			p.Pos[sat] = append(p.Pos[sat], PosXYZ{})
		}
	}
	return p, nil
}

// Polynomial interpolation by Neville's algorithm. y is overwritten.
func interpPol(x, y []float64) float64 {
	n := len(x)
	for j := 1; j < n; j++ {
		for i := 0; i < n-j; i++ {
			y[i] = (x[i+j]*y[i] - x[i]*y[i+1]) / (x[i+j] - x[i])
		}
	}
	return y[0]
}

// SP3Provider resolves satellite states from precise orbits by polynomial
// interpolation of order+1 samples around the requested epoch. Elevation
// and azimuth are computed from Ref.
type SP3Provider struct {
	SP3 *SP3
	Ref PosXYZ
}

// Interpolate returns ok == false outside the table, on a missing sample
// or on a sampling gap within the interpolation window.
func (p *SP3Provider) Interpolate(t GTime, sv SatType, order int) (InterpolationResult, bool) {
	if order < 1 {
		order = 1
	}
	n := order + 1
	ep := p.SP3.Epochs
	pos, ok := p.SP3.Pos[sv]
	if !ok || len(ep) < n || t.Sub(ep[0]) < 0 || t.Sub(ep[len(ep)-1]) > 0 {
		return InterpolationResult{}, false
	}

	// First sample not before t
	index := sort.Search(len(ep), func(i int) bool { return ep[i].Sub(t) >= 0 })
	i := index - n/2
	if i < 0 {
		i = 0
	} else if i+n > len(ep) {
		i = len(ep) - n
	}

	step := p.SP3.Interval()
	x := make([]float64, n)
	y := [3][]float64{make([]float64, n), make([]float64, n), make([]float64, n)}
	for j := 0; j < n; j++ {
		x[j] = ep[i+j].Sub(t)
		if j > 0 && x[j]-x[j-1] > 1.5*step {
			return InterpolationResult{}, false
		}
		q := pos[i+j]
		if q.IsZero() {
			return InterpolationResult{}, false
		}
		// Rotate into the earth fixed frame at t
		sinl := math.Sin(OMGe * x[j])
		cosl := math.Cos(OMGe * x[j])
		y[0][j] = cosl*q.X - sinl*q.Y
		y[1][j] = sinl*q.X + cosl*q.Y
		y[2][j] = q.Z
	}
	sat := PosXYZ{X: interpPol(x, y[0]), Y: interpPol(x, y[1]), Z: interpPol(x, y[2])}
	return skyState(sat, p.Ref), true
}
