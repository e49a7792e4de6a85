// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.13
//

// Package sink writes solutions to a pos file, a SQLite database or an
// InfluxDB bucket.
package sink

import (
	"context"
	"errors"

	"github.com/mkhts/gopvt"
)

// Sink receives the solution of each resolved epoch
type Sink interface {
	Write(ctx context.Context, t gopvt.GTime, sol *gopvt.Solution) error
	Close() error
}

// Multi fans a solution out to several sinks. A failing sink does not stop
// the others.
type Multi []Sink

func (m Multi) Write(ctx context.Context, t gopvt.GTime, sol *gopvt.Solution) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, t, sol); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
