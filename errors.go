// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.4
//

package gopvt

import (
	"errors"
	"fmt"
)

var (
	ErrNotEnoughFittingCandidates = errors.New("not enough candidates left after filtering")
	ErrMatrixInversion            = errors.New("failed to invert matrix")
	ErrUndefinedApriori           = errors.New("undefined apriori position")
	ErrEmptyPseudoRange           = errors.New("candidate needs at least one pseudo range observation")
	ErrMissingIonosphericDelay    = errors.New("missing ionospheric delay value") // Reserved
	ErrNotConverged               = errors.New("solution did not converge")
)

// NotEnoughInputCandidatesError is returned by Resolve when the pool is too
// small for the requested solution type, before any filtering.
type NotEnoughInputCandidatesError struct {
	Type     SolutionType
	Got      int
	Required int
}

func (e *NotEnoughInputCandidatesError) Error() string {
	return fmt.Sprintf("not enough input candidates for %s solution: %d < %d", e.Type, e.Got, e.Required)
}

// ImplausibleTransmissionTimeError is returned when the back-solved
// transmission time is not within (0, 1) s before the sampling epoch.
type ImplausibleTransmissionTimeError struct {
	SV SatType
	Dt float64 // Sampling epoch - transmission epoch [s]
}

func (e *ImplausibleTransmissionTimeError) Error() string {
	return fmt.Sprintf("%s: implausible transmission time, dt=%.9f s", e.SV, e.Dt)
}
