// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fsi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the coupling metrics of one simulation. A nil *Metrics records nothing
type Metrics struct {
	Steps        prometheus.Counter   // number of finalized time steps
	NonConverged prometheus.Counter   // number of steps that reached the iteration cap
	Fallbacks    prometheus.Counter   // number of accelerator updates that reverted to relaxation
	Iterations   prometheus.Histogram // coupling iterations per step
	Residual     prometheus.Gauge     // last normalised interface residual
	MeshResidual prometheus.Gauge     // last normalised mesh velocity residual
	Time         prometheus.Gauge     // current simulation time
}

// NewMetrics registers the coupling metrics in reg. Use constant labels to distinguish instances
func NewMetrics(reg prometheus.Registerer, labels prometheus.Labels) (o *Metrics) {
	f := promauto.With(reg)
	o = new(Metrics)
	o.Steps = f.NewCounter(prometheus.CounterOpts{
		Namespace:   "fsi",
		Subsystem:   "coupling",
		Name:        "steps_total",
		Help:        "Total number of coupled time steps",
		ConstLabels: labels,
	})
	o.NonConverged = f.NewCounter(prometheus.CounterOpts{
		Namespace:   "fsi",
		Subsystem:   "coupling",
		Name:        "nonconverged_steps_total",
		Help:        "Total number of time steps that reached the iteration cap",
		ConstLabels: labels,
	})
	o.Fallbacks = f.NewCounter(prometheus.CounterOpts{
		Namespace:   "fsi",
		Subsystem:   "accelerator",
		Name:        "fallbacks_total",
		Help:        "Total number of accelerator updates that reverted to relaxation",
		ConstLabels: labels,
	})
	o.Iterations = f.NewHistogram(prometheus.HistogramOpts{
		Namespace:   "fsi",
		Subsystem:   "coupling",
		Name:        "iterations",
		Help:        "Coupling iterations per time step",
		Buckets:     []float64{1, 2, 3, 5, 8, 13, 21, 34, 55},
		ConstLabels: labels,
	})
	o.Residual = f.NewGauge(prometheus.GaugeOpts{
		Namespace:   "fsi",
		Subsystem:   "coupling",
		Name:        "residual",
		Help:        "Last normalised interface residual |res|/sqrt(ndofs)",
		ConstLabels: labels,
	})
	o.MeshResidual = f.NewGauge(prometheus.GaugeOpts{
		Namespace:   "fsi",
		Subsystem:   "coupling",
		Name:        "mesh_residual",
		Help:        "Last normalised fluid interface mesh velocity residual",
		ConstLabels: labels,
	})
	o.Time = f.NewGauge(prometheus.GaugeOpts{
		Namespace:   "fsi",
		Subsystem:   "coupling",
		Name:        "time",
		Help:        "Current simulation time",
		ConstLabels: labels,
	})
	return
}

// observe records the result of a finalized step
func (o *Metrics) observe(res StepResult) {
	if o == nil {
		return
	}
	o.Steps.Inc()
	if !res.Converged {
		o.NonConverged.Inc()
	}
	o.Fallbacks.Add(float64(res.Fallbacks))
	o.Iterations.Observe(float64(res.Iterations))
	o.Residual.Set(res.Residual())
	o.MeshResidual.Set(res.MeshResidual)
	o.Time.Set(res.Time)
}
