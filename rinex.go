// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.12
//

package gopvt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// RINEX 3.04 specification
// https://files.igs.org/pub/data/format/rinex304.pdf
//

// Type representing observation codes like C1C (3 or 2 characters)
type CodeType string

// Returns observation type (C,L,D,S)
func (p CodeType) T() byte {
	return p[0]
}

// Returns frequency band and attributes of observation (1C,2P,5I etc.)
func (p CodeType) NA() CodeType {
	return p[1:]
}

// Priority and corresponding frequency settings for observation codes used in calculation
var CODE_ASSIGNS = map[SysType]map[CodeType]struct {
	priority int
	freqIdx  int
	freq     float64
}{
	'G': {
		"1C": {0, 0, 1.57542e9}, // L1
		"1P": {1, 0, 1.57542e9},
		"1Y": {2, 0, 1.57542e9},
		"1W": {3, 0, 1.57542e9},
		"1M": {4, 0, 1.57542e9},
		"1N": {5, 0, 1.57542e9},
		"1S": {6, 0, 1.57542e9},
		"1L": {7, 0, 1.57542e9},
		"1X": {8, 0, 1.57542e9},
		"2C": {0, 1, 1.22760e9}, // L2
		"2P": {1, 1, 1.22760e9},
		"2Y": {2, 1, 1.22760e9},
		"2W": {3, 1, 1.22760e9},
		"2M": {4, 1, 1.22760e9},
		"2N": {5, 1, 1.22760e9},
		"2D": {6, 1, 1.22760e9},
		"2L": {7, 1, 1.22760e9},
		"2S": {8, 1, 1.22760e9},
		"2X": {9, 1, 1.22760e9},
		"5I": {0, 2, 1.17645e9}, // L5
		"5Q": {1, 2, 1.17645e9},
		"5X": {2, 2, 1.17645e9},
	},
	'J': {
		"1C": {0, 0, 1.57542e9}, // L1
		"1L": {1, 0, 1.57542e9},
		"1S": {2, 0, 1.57542e9},
		"1X": {3, 0, 1.57542e9},
		"1Z": {4, 0, 1.57542e9},
		"2L": {5, 1, 1.22760e9}, // L2
		"2S": {6, 1, 1.22760e9},
		"2X": {7, 1, 1.22760e9},
		"5I": {8, 2, 1.17645e9}, // L5
		"5Q": {9, 2, 1.17645e9},
		"5X": {10, 2, 1.17645e9},
		"5D": {11, 2, 1.17645e9},
		"5P": {12, 2, 1.17645e9},
		"5Z": {13, 2, 1.17645e9},
	},
	'E': {
		"1C": {0, 0, 1.57542e9}, // E1
		"1A": {1, 0, 1.57542e9},
		"1B": {2, 0, 1.57542e9},
		"1X": {3, 0, 1.57542e9},
		"1Z": {4, 0, 1.57542e9},
		"7X": {5, 1, 1.20714e9}, // E5b
		"7I": {6, 1, 1.20714e9},
		"7Q": {7, 1, 1.20714e9},
		"5X": {8, 2, 1.17645e9}, // E5a
		"5I": {9, 2, 1.17645e9},
		"5Q": {10, 2, 1.17645e9},
		"8I": {11, 3, 1.191795e9}, // E5a+E5b
		"8Q": {12, 3, 1.191795e9},
		"8X": {13, 3, 1.191795e9},
		"6A": {14, 4, 1.27875e9}, // E6
		"6B": {15, 4, 1.27875e9},
		"6C": {16, 4, 1.27875e9},
		"6X": {17, 4, 1.27875e9},
		"6Z": {18, 4, 1.27875e9},
	},
	'C': {
		"2I": {0, 0, 1.561098e9}, // B1-2
		"2Q": {1, 0, 1.561098e9},
		"2X": {2, 0, 1.561098e9},
		"1D": {3, 0, 1.57542e9}, // B1
		"1P": {4, 0, 1.57542e9},
		"1X": {5, 0, 1.57542e9},
		"1A": {6, 0, 1.57542e9},
		"1N": {7, 0, 1.57542e9},
		"7I": {8, 1, 1.20714e9}, // B2b
		"7Q": {9, 1, 1.20714e9},
		"7X": {10, 1, 1.20714e9},
		"7D": {11, 1, 1.20714e9},
		"7P": {12, 1, 1.20714e9},
		"7Z": {13, 1, 1.20714e9},
		"6I": {14, 2, 1.26852e9}, // B3
		"6Q": {15, 2, 1.26852e9},
		"6X": {16, 2, 1.26852e9},
		"6A": {17, 2, 1.26852e9},
		"5D": {18, 3, 1.17645e9}, // B2a
		"5P": {19, 3, 1.17645e9},
		"5X": {20, 3, 1.17645e9},
		"8D": {21, 4, 1.191795e9}, // B2a+B2b
		"8P": {22, 4, 1.191795e9},
		"8X": {23, 4, 1.191795e9},
	},
}

// Extract HEADER LABEL string from observation data file header line
func getHeaderLabel(l string) string {
	if len(l) < 60 {
		return ""
	}
	return strings.TrimSpace(l[60:])
}

// Fix Beidou B1 observation codes in RINEX 3.02
func fixRnx302BeidouCode(la []string) []string {
	la2 := []string{}
	for _, a := range la {
		if a[1:3] == "1I" || a[1:3] == "1Q" || a[1:3] == "1X" {
			// In RINEX 3.04, B1(1561.098 MHz) observation codes {C|L|D|S}1{I|Q|X} have been changed to {C|L|D|S}2{I|Q|X}. Match 3.04.
			la2 = append(la2, a[:1]+"2"+a[2:3])
		} else {
			la2 = append(la2, a)
		}
	}
	return la2
}

// Read date and time from observation data file epoch line
//   - > 2024 01 15 00 00  0.0000000  0 12
func getObsTime(l string) (gt GTime, ns int, err error) {
	la := strings.Fields(l)
	if len(la) < 9 {
		return gt, 0, fmt.Errorf("not enough fields in epoch line: %s (%d)", l, len(la))
	}
	var v [5]int
	for i := range v {
		if v[i], err = strconv.Atoi(la[i+1]); err != nil {
			return gt, 0, fmt.Errorf("invalid epoch line: %s: %w", l, err)
		}
	}
	sec, frac, ok := strings.Cut(la[6], ".")
	if !ok {
		return gt, 0, fmt.Errorf("invalid format in epoch line: %s (%s)", l, la[6])
	}
	isec, err := strconv.Atoi(sec)
	if err != nil {
		return gt, 0, err
	}
	if len(frac) > 9 {
		frac = frac[:9]
	}
	nsec, err := strconv.Atoi(frac + strings.Repeat("0", 9-len(frac)))
	if err != nil {
		return gt, 0, err
	}
	if ns, err = strconv.Atoi(la[8]); err != nil {
		return gt, 0, err
	}
	return *NewGTime(time.Date(v[0], time.Month(v[1]), v[2], v[3], v[4], isec, nsec, time.UTC)), ns, nil
}

// Set values according to observation code
func setValObsS(val float64, sys SysType, code CodeType, out *ObsS) {
	a, ok := CODE_ASSIGNS[sys][code.NA()]
	if !ok || a.freqIdx >= NFREQ {
		return
	}
	if out.Freq[a.freqIdx] != 0 && out.Code[a.freqIdx] != code.NA() { // If a value is already written by another code
		b := CODE_ASSIGNS[sys][out.Code[a.freqIdx]]
		if a.priority > b.priority { // Lower priority, keep the existing value
			return
		}
		out.Pr[a.freqIdx], out.Sn[a.freqIdx] = 0, 0
	}
	out.Freq[a.freqIdx] = a.freq
	out.Code[a.freqIdx] = code.NA()
	switch code.T() {
	case 'C':
		out.Pr[a.freqIdx] = val
	case 'S':
		out.Sn[a.freqIdx] = val
	}
}

// Read each observation value from observation data line
func getObsData(l string, oc map[SysType][]CodeType) (SatType, *ObsS, error) {
	if len(l) < 3 {
		return "", nil, fmt.Errorf("can't read data. the given line is too short: %q", l)
	}
	num, _ := strconv.Atoi(strings.TrimSpace(l[1:3]))
	sat := SatType(fmt.Sprintf("%s%02d", l[:1], num))
	if !sat.Sys().IsValid() {
		return sat, nil, fmt.Errorf("%w '%c'", errUnsupportedSystem, sat.Sys())
	}
	n := len(oc[sat.Sys()])
	if len(l) < n*16+3 { // Fill in blanks if omitted to end of line
		l = l + strings.Repeat(" ", n*16+3-len(l))
	}
	obsS := &ObsS{}
	for i, code := range oc[sat.Sys()] {
		if code.T() != 'C' && code.T() != 'S' {
			continue
		}
		j := 3 + 16*i
		v, err := strconv.ParseFloat(strings.TrimSpace(l[j:j+14]), 64)
		if err != nil {
			continue
		}
		setValObsS(v, sat.Sys(), code, obsS)
	}
	return sat, obsS, nil
}

var errUnsupportedSystem = errors.New("unsupported satellite system")

// checkVersion validates the RINEX VERSION / TYPE header line
func checkVersion(line string, typ byte) error {
	if len(line) < 21 {
		return fmt.Errorf("invalid RINEX VERSION / TYPE line: %q", line)
	}
	ver := strings.TrimSpace(line[:9])
	if !strings.HasPrefix(ver, "3.0") {
		return fmt.Errorf("unsupported RINEX version. RINEX version must be 3.02 to 3.05 (ver=%s)", ver)
	}
	if line[20] != typ {
		return fmt.Errorf("unexpected file type %c, want %c", line[20], typ)
	}
	return nil
}

// ReadObs reads a RINEX 3 observation file. Code and signal strength
// observations of G, J, E and C are kept.
func ReadObs(r io.Reader) (*Obs, error) {

	// Flag indicating header reading is complete
	headerDone := false

	// RINEX version
	var ver string

	// List of observation codes in header
	oc := map[SysType][]CodeType{
		'G': make([]CodeType, 0),
		'J': make([]CodeType, 0),
		'E': make([]CodeType, 0),
		'C': make([]CodeType, 0),
	}

	// Variable to hold satellite data for one epoch during reading
	obsE := &ObsE{}

	// Temporarily store all epoch data in map to eliminate duplicates
	me := map[GTime]*ObsE{}

	skipped := 0

	s := bufio.NewScanner(r)
	for s.Scan() {
		line := s.Text()

		if !headerDone {
			switch getHeaderLabel(line) {
			case "RINEX VERSION / TYPE":
				if err := checkVersion(line, 'O'); err != nil {
					return nil, err
				}
				ver = strings.TrimSpace(line[:9])

			case "SYS / # / OBS TYPES":
				sys := SysType(line[0])
				if _, ok := oc[sys]; !ok {
					continue
				}
				la := strings.Fields(line[6:60])
				if ver == "3.02" && sys == 'C' {
					la = fixRnx302BeidouCode(la)
				}
				for _, code := range la {
					oc[sys] = append(oc[sys], CodeType(code))
				}
				nc, err := strconv.ParseInt(strings.TrimSpace(line[1:6]), 10, 0)
				for err == nil && int(nc) > len(oc[sys]) && s.Scan() { // When codes span several lines
					line = s.Text()
					if len(line) < 60 {
						break
					}
					la = strings.Fields(line[6:60])
					if ver == "3.02" && sys == 'C' {
						la = fixRnx302BeidouCode(la)
					}
					for _, code := range la {
						oc[sys] = append(oc[sys], CodeType(code))
					}
				}

			case "END OF HEADER":
				headerDone = true
			}
			continue
		}

		if len(line) == 0 {
			continue
		}
		switch line[:1] {
		case ">":
			if len(obsE.DatS) > 0 {
				me[obsE.Time] = obsE
			}
			t, ns, err := getObsTime(line)
			if err != nil {
				skipped++
				obsE = &ObsE{}
				continue
			}
			obsE = &ObsE{
				Time: t,
				DatS: make(map[SatType]*ObsS, ns),
			}
		default:
			sat, obsS, err := getObsData(line, oc)
			if err != nil {
				if !errors.Is(err, errUnsupportedSystem) {
					skipped++
				}
				continue
			}
			if obsE.DatS != nil {
				obsE.DatS[sat] = obsS
			}
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	if !headerDone {
		return nil, errors.New("END OF HEADER not found")
	}

	// Set last epoch data
	if len(obsE.DatS) > 0 {
		me[obsE.Time] = obsE
	}

	// Sort data by date and time
	t := make([]GTime, 0, len(me))
	for k := range me {
		t = append(t, k)
	}
	sort.Slice(t, func(i, j int) bool {
		return t[i].Less(t[j], false)
	})

	obs := &Obs{
		DatE:    make([]*ObsE, 0, len(me)),
		Codes:   oc,
		Skipped: skipped,
	}
	for _, a := range t {
		obs.DatE = append(obs.DatE, me[a])
	}
	return obs, nil
}

var (
	navTimeRe = regexp.MustCompile(`^([GJERCS])([0-9 ][0-9]) (\d{4}) ([ \d]{2}) ([ \d]{2}) ([ \d]{2}) ([ \d]{2}) ([ \d]{2})`)
	navDataRe = regexp.MustCompile(`[- +\d]{2}\.\d{12}[DE][-+]\d{2}`)
)

// Read satellite name and ToC from navigation data epoch line
func getNavTime(l string) (gt GTime, sat SatType, err error) {
	ms := navTimeRe.FindStringSubmatch(l)
	if ms == nil {
		return gt, sat, fmt.Errorf("regexp match failed. l=%s", l)
	}
	sys := SysType(ms[1][0])
	var v [7]int
	for i := range v {
		n, err := strconv.Atoi(strings.TrimSpace(ms[i+2]))
		if err != nil {
			return gt, sat, err
		}
		v[i] = n
	}
	sat = SatType(fmt.Sprintf("%c%02d", sys, v[0]))
	if sys == 'C' {
		v[6] += 14 // BDT -> GPST
	}
	gt = *NewGTime(time.Date(v[1], time.Month(v[2]), v[3], v[4], v[5], v[6], 0, time.UTC))
	return
}

// keepWithinHalfWeek moves t by one week so that it lies within half a week of ref
func keepWithinHalfWeek(t *GTime, ref GTime) {
	if d := t.Sub(ref); d < -302400 {
		t.Week++
	} else if d > 302400 {
		t.Week--
	}
}

// ReadNav reads a RINEX 3 navigation file. Ephemerides of G, J, E and C
// are kept, the other systems are skipped.
func ReadNav(r io.Reader) (*Nav, error) {

	headerDone := false

	nav := Nav{}

	// Ephemeris being read, nil while skipping an unsupported system
	var eph *Ephe

	// Current line number being read, counted from satellite name and ToC line
	lineCount := 0

	s := bufio.NewScanner(r)
	for s.Scan() {
		line := s.Text()

		if !headerDone {
			switch getHeaderLabel(line) {
			case "RINEX VERSION / TYPE":
				if err := checkVersion(line, 'N'); err != nil {
					return nil, err
				}
			case "END OF HEADER":
				headerDone = true
			}
			continue
		}

		if !navDataRe.MatchString(line) {
			continue
		}

		switch sys := SysType(line[0]); sys {
		case 'G', 'J', 'E', 'C', 'R', 'S', 'I':
			eph = nil
			lineCount = 0
			if !sys.IsValid() || len(line) < 80 {
				continue
			}
			toc, sat, err := getNavTime(line)
			if err != nil {
				return nil, fmt.Errorf("failed to read time of clock in navigation message: %w", err)
			}
			eph = &Ephe{
				Sat: sat,
				Toc: toc,
				Af0: parseFloat(line[23:42]),
				Af1: parseFloat(line[42:61]),
				Af2: parseFloat(line[61:80]),
			}
		case ' ':
			if eph == nil {
				continue
			}
			if len(line) < 80 {
				line = line + strings.Repeat(" ", 80-len(line))
			}
			v0 := parseFloat(line[4:23])
			v1 := parseFloat(line[23:42])
			v2 := parseFloat(line[42:61])
			v3 := parseFloat(line[61:80])
			lineCount++
			sys := eph.Sat.Sys()
			switch lineCount {
			case 1:
				eph.Iode = int(v0)
				eph.Crs = v1
				eph.DeltaN = v2
				eph.M0 = v3
			case 2:
				eph.Cuc = v0
				eph.Ecc = v1
				eph.Cus = v2
				eph.SqrtA = v3
			case 3:
				if sys == 'C' {
					eph.Toe = GTime{Week: eph.Toc.Week, Sec: v0 + 14} // Week is not read yet
				} else {
					eph.Toe = GTime{Week: eph.Toc.Week, Sec: v0}
				}
				eph.Cic = v1
				eph.Omega0 = v2
				eph.Cis = v3
			case 4:
				eph.I0 = v0
				eph.Crc = v1
				eph.Omega = v2
				eph.OmegaD = v3
			case 5:
				eph.Idot = v0
				eph.Code = int(v1)
				eph.Week = int(v2)
				if sys == 'C' {
					eph.Week += 1356 // BDT Week -> GPS Week
				}
				eph.Toe.Week = eph.Week
				keepWithinHalfWeek(&eph.Toe, eph.Toc)
				eph.Flag = int(v3)
			case 6:
				if sys != 'E' {
					eph.Sva = getURAIndex(v0)
				} else {
					eph.Sva = getSISAIndex(v0)
				}
				eph.Svh = int(v1)
				eph.Tgd = v2
				eph.Iodc = int(v3)
				eph.Tgd2 = v3
			case 7:
				if sys == 'C' {
					eph.Tot = GTime{Week: eph.Week, Sec: v0 + 14}
				} else {
					eph.Tot = GTime{Week: eph.Week, Sec: v0}
				}
				keepWithinHalfWeek(&eph.Tot, eph.Toc)
				switch sys {
				case 'G':
					eph.Fit = v1
				case 'J':
					if v1 == 0.0 {
						eph.Fit = 1
					} else {
						eph.Fit = 2
					}
				case 'C':
					eph.Iodc = int(v1)
				}
				nav[eph.Sat] = append(nav[eph.Sat], eph)
				eph = nil
			}
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	if !headerDone {
		return nil, errors.New("END OF HEADER not found")
	}

	// Sort by transmission time
	for k := range nav {
		sort.SliceStable(nav[k], func(i, j int) bool { return nav[k][i].Tot.Less(nav[k][j].Tot, false) })
	}
	return &nav, nil
}

// Read real values by absorbing variations in exponential notation within RINEX files
func parseFloat(str string) float64 {
	s := strings.TrimSpace(str)
	if strings.ContainsAny(s, "Dd") {
		s = strings.Replace(s, "D", "E", 1)
		s = strings.Replace(s, "d", "e", 1)
	}
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

// Return URA index for specified value
func getURAIndex(x float64) int {
	if x > 0 && x <= 2.4 {
		return 0
	} else if x > 2.4 && x <= 3.4 {
		return 1
	} else if x > 3.4 && x <= 4.85 {
		return 2
	} else if x > 4.85 && x <= 6.85 {
		return 3
	} else if x > 6.85 && x <= 9.65 {
		return 4
	} else if x > 9.65 && x <= 13.65 {
		return 5
	} else if x > 13.65 && x <= 24.0 {
		return 6
	} else if x > 24.0 && x <= 48.0 {
		return 7
	} else if x > 48.0 && x <= 96.0 {
		return 8
	} else if x > 96.0 && x <= 192.0 {
		return 9
	} else if x > 192.0 && x <= 384.0 {
		return 10
	} else if x > 384.0 && x <= 768.0 {
		return 11
	} else if x > 768.0 && x <= 1536.0 {
		return 12
	} else if x > 1536.0 && x <= 3072.0 {
		return 13
	} else if x > 3072.0 && x <= 6144.0 {
		return 14
	} else {
		return 15
	}
}

// Return Galileo SISA index for specified value
func getSISAIndex(x float64) int {
	if x >= 0 && x <= 0.5 {
		return int(x / 0.01)
	} else if x > 0.5 && x <= 1.0 {
		return int((x-0.5)/0.02) + 50
	} else if x > 1.0 && x <= 2.0 {
		return int((x-1.0)/0.04) + 75
	} else if x > 2.0 && x <= 6.0 {
		return int((x-2.0)/0.16) + 100
	} else {
		return 255
	}
}
