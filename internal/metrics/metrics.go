// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.13
//

// Package metrics records solver activity as Prometheus metrics, exposed
// through an HTTP handler or pushed to a Pushgateway at the end of a run.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/mkhts/gopvt"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics holds the collectors of one run on a private registry
type Metrics struct {
	reg *prometheus.Registry

	epochs     *prometheus.CounterVec
	candidates *prometheus.CounterVec
	iterations prometheus.Histogram
	duration   prometheus.Histogram
	gdop       prometheus.Gauge
	clockBias  prometheus.Gauge
	satellites prometheus.Gauge
}

// New creates and registers the collectors
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		epochs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gopvt_epochs_total",
				Help: "Number of processed epochs by result.",
			},
			[]string{"result"},
		),
		candidates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gopvt_candidates_total",
				Help: "Number of candidates by pipeline stage.",
			},
			[]string{"stage"},
		),
		iterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gopvt_iterations",
			Help:    "Linearization loops per solution.",
			Buckets: prometheus.LinearBuckets(1, 1, 10),
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gopvt_resolve_duration_seconds",
			Help:    "Resolve duration in seconds.",
			Buckets: prometheus.ExponentialBuckets(1e-5, 4, 10),
		}),
		gdop: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gopvt_gdop",
			Help: "GDOP of the last solution.",
		}),
		clockBias: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gopvt_clock_bias_seconds",
			Help: "Receiver clock bias of the last solution.",
		}),
		satellites: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gopvt_satellites",
			Help: "Satellites used in the last solution.",
		}),
	}
	m.reg.MustRegister(m.epochs, m.candidates, m.iterations, m.duration, m.gdop, m.clockBias, m.satellites)
	return m
}

// Registry returns the registry holding the collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// Handler returns the Prometheus metrics HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// ObserveSolution records a successful Resolve
func (m *Metrics) ObserveSolution(sol *gopvt.Solution, d time.Duration) {
	m.epochs.WithLabelValues("solved").Inc()
	m.iterations.Observe(float64(sol.Iter))
	m.duration.Observe(d.Seconds())
	m.gdop.Set(sol.Dop[gopvt.GDOP])
	m.clockBias.Set(sol.ClockBias)
	m.satellites.Set(float64(len(sol.SV)))

	st := sol.Stats
	m.candidates.WithLabelValues("input").Add(float64(st.Input))
	m.candidates.WithLabelValues("elected").Add(float64(st.Elected))
	m.candidates.WithLabelValues("interpolated").Add(float64(st.Interpolated))
	m.candidates.WithLabelValues("elev_masked").Add(float64(st.ElevMasked))
	m.candidates.WithLabelValues("eclipsed").Add(float64(st.Eclipsed))
	m.candidates.WithLabelValues("used").Add(float64(st.Used))
}

// ObserveFailure records a failed Resolve, labelled by cause
func (m *Metrics) ObserveFailure(err error, d time.Duration) {
	m.epochs.WithLabelValues(Reason(err)).Inc()
	m.duration.Observe(d.Seconds())
}

// Skipped records an epoch outside the processing window
func (m *Metrics) Skipped() {
	m.epochs.WithLabelValues("skipped").Inc()
}

// Reason maps a Resolve error to a metric label
func Reason(err error) string {
	var notEnough *gopvt.NotEnoughInputCandidatesError
	switch {
	case errors.As(err, &notEnough):
		return "not_enough_input"
	case errors.Is(err, gopvt.ErrNotEnoughFittingCandidates):
		return "not_enough_fitting"
	case errors.Is(err, gopvt.ErrUndefinedApriori):
		return "undefined_apriori"
	case errors.Is(err, gopvt.ErrMatrixInversion):
		return "matrix_inversion"
	case errors.Is(err, gopvt.ErrNotConverged):
		return "not_converged"
	default:
		return "error"
	}
}

// Push sends all metrics to the Pushgateway at url under job. The request
// is bound to ctx.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return push.New(url, job).Gatherer(m.reg).Client(ctxDoer{ctx: ctx, c: http.DefaultClient}).Push()
}

// ctxDoer issues every request of a Pusher under ctx
type ctxDoer struct {
	ctx context.Context
	c   *http.Client
}

func (d ctxDoer) Do(req *http.Request) (*http.Response, error) {
	return d.c.Do(req.WithContext(d.ctx))
}
