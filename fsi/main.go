// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fsi

import (
	"context"
	"errors"
	"time"

	"github.com/cpmech/gosl/chk"
	"github.com/yamanatoo/Kratos/comm"
	"github.com/yamanatoo/Kratos/lgr"
	"golang.org/x/sync/errgroup"
)

// ErrStopped is returned by workers that stop because another worker was cancelled or failed
// to record a step
var ErrStopped = errors.New("stopped by another worker")

// Recorder receives the result of every finalized time step
type Recorder interface {
	Record(res StepResult) error
}

// Main holds all data for a coupled simulation
type Main struct {
	Coupled  *Partitioned // coupled solver
	Recorder Recorder     // optional step recorder
	Log      *lgr.Logger  // logger; nil => coupled solver's logger
}

// NewMain returns a new Main structure
func NewMain(coupled *Partitioned, rec Recorder) (o *Main) {
	return &Main{Coupled: coupled, Recorder: rec, Log: coupled.log}
}

// Run runs the time loop. ctx is only checked between time steps; all workers stop at the same
// step boundary
func (o *Main) Run(ctx context.Context) (err error) {

	// exit commands
	cputime := time.Now()
	defer func() { err = o.onexit(cputime, err) }()

	// initialise
	p := o.Coupled
	if err = p.Initialize(); err != nil {
		return
	}
	if err = p.Check(); err != nil {
		return
	}

	// time loop
	var recErr error
	t, step := p.Set.StartTime, 0
	for t < p.Set.EndTime-1e-12*p.Set.TimeStep {
		if err = o.stop(ctx, t, recErr); err != nil {
			return
		}
		step++
		t, err = p.AdvanceInTime(t)
		if err != nil {
			return
		}
		p.SetTimeStep(step)
		if err = p.InitializeSolutionStep(); err != nil {
			return
		}
		if err = p.Predict(); err != nil {
			return
		}
		if err = p.SolveSolutionStep(); err != nil {
			return
		}
		if err = p.FinalizeSolutionStep(); err != nil {
			return
		}
		res := p.Result()
		o.Log.Info(true, "time step finished", "step", step, "time", t, "iterations", res.Iterations, "converged", res.Converged)
		if o.Recorder != nil {
			if e := o.Recorder.Record(res); e != nil {
				recErr = chk.Err("cannot record step %d:\n%w", step, e)
			}
		}
	}
	return recErr
}

// RunEnsemble runs independent simulations concurrently. The first error cancels the others
func RunEnsemble(ctx context.Context, mains []*Main) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, m := range mains {
		m := m
		g.Go(func() error { return m.Run(gctx) })
	}
	return g.Wait()
}

// auxiliary ///////////////////////////////////////////////////////////////////////////////////////

// stop decides collectively whether the time loop stops at time t. The local reason, if any,
// is returned; workers without one return ErrStopped
func (o *Main) stop(ctx context.Context, t float64, recErr error) error {
	local := recErr
	if local == nil && ctx.Err() != nil {
		local = chk.Err("simulation cancelled at t=%g:\n%w", t, ctx.Err())
	}
	flag := 0.0
	if local != nil {
		flag = 1
	}
	if comm.MaxFloat(o.Coupled.comm, flag) == 0 {
		return nil
	}
	if local != nil {
		return local
	}
	return chk.Err("simulation stopped at t=%g: %w", t, ErrStopped)
}

// onexit clears the solvers and logs the elapsed time
func (o *Main) onexit(cputime time.Time, prevErr error) (err error) {
	err = prevErr
	if e := o.Coupled.Clear(); e != nil && err == nil {
		err = e
	}
	if err != nil {
		o.Log.Error(true, "simulation failed", "error", err, "elapsed", time.Since(cputime))
		return
	}
	o.Log.Info(true, "simulation finished", "elapsed", time.Since(cputime))
	return
}
