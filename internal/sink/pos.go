// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.13
//

package sink

import (
	"context"
	"fmt"
	"io"
	"math"
	"path/filepath"

	"github.com/mkhts/gopvt"
)

// Solution quality flag of the pos file (single point)
const QSingle = 5

// PosHeader describes the run in the pos file header
type PosHeader struct {
	Program string
	Inputs  []string
	Mode    gopvt.Mode
	Type    gopvt.SolutionType
	Start   gopvt.GTime
	End     gopvt.GTime
}

// PosWriter writes solutions in the RTKLIB like pos format
type PosWriter struct {
	w io.WriteCloser
}

func NewPosWriter(w io.WriteCloser) *PosWriter {
	return &PosWriter{w: w}
}

// Print pos file header
func (p *PosWriter) WriteHeader(h PosHeader) error {
	fmt.Fprintf(p.w, "%% program   : %s\n", filepath.Base(h.Program))
	for _, fn := range h.Inputs {
		fmt.Fprintf(p.w, "%% inp file  : %s\n", fn)
	}
	fmt.Fprintf(p.w, "%% pos mode  : %s %s\n", h.Mode, h.Type)
	fmt.Fprintf(p.w, "%% obs start : %s\n", obsTimeStr(h.Start))
	fmt.Fprintf(p.w, "%% obs end   : %s\n", obsTimeStr(h.End))
	_, err := fmt.Fprintf(p.w, "%%  GPST                 latitude(deg) longitude(deg)  height(m)   Q  ns      clk_bias(s)       gdop       pdop       hdop       vdop       tdop\n")
	return err
}

func obsTimeStr(t gopvt.GTime) string {
	return fmt.Sprintf("%s(GPST) (week%d %7.1fs)", t.ToTime().UTC().Format("2006/01/02 15:04:05.000"), t.Week, t.Sec)
}

// Write outputs one solution line. The epoch is rounded to milliseconds.
func (p *PosWriter) Write(ctx context.Context, t gopvt.GTime, sol *gopvt.Solution) error {
	var lat, lon, hei float64
	if sol.Type != gopvt.TimeOnly {
		llh := sol.LLH()
		lat, lon, hei = gopvt.ToDeg(llh.Lat), gopvt.ToDeg(llh.Lon), llh.Hei
	}
	t2 := gopvt.GTime{Week: t.Week, Sec: math.Round(t.Sec*1000) / 1000}
	_, err := fmt.Fprintf(p.w, "%s %13.9f %14.9f %10.4f %3d %3d %16.12f %10.3f %10.3f %10.3f %10.3f %10.3f\n",
		t2.ToTime().UTC().Format("2006/01/02 15:04:05.000"), lat, lon, hei, QSingle, len(sol.SV), sol.ClockBias,
		sol.Dop[gopvt.GDOP], sol.Dop[gopvt.PDOP], sol.Dop[gopvt.HDOP], sol.Dop[gopvt.VDOP], sol.Dop[gopvt.TDOP])
	return err
}

func (p *PosWriter) Close() error {
	return p.w.Close()
}

// NopCloser - WriteCloser that ignores close operations
type NopCloser struct {
	io.Writer
}

func (NopCloser) Close() error { return nil }
