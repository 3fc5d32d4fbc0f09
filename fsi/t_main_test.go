// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fsi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/fun/dbf"
	gio "github.com/cpmech/gosl/io"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yamanatoo/Kratos/ana"
	"github.com/yamanatoo/Kratos/comm"
	"github.com/yamanatoo/Kratos/inp"
	"github.com/yamanatoo/Kratos/itf"
	"github.com/yamanatoo/Kratos/lgr"
	"github.com/yamanatoo/Kratos/tests"
	"golang.org/x/sync/errgroup"
)

// membrane returns the input of the membrane benchmark with a ramp load on the positive face
func membrane(double bool, strategy string) *inp.Input {
	var in inp.Input
	if double {
		in = input(
			&inp.MapperData{FluidInterface: "Fp", StructureInterface: "S", Face: inp.FacePositive},
			&inp.MapperData{FluidInterface: "Fn", StructureInterface: "S", Face: inp.FaceNegative},
		)
	} else {
		in = input(&inp.MapperData{FluidInterface: "F", StructureInterface: "S"})
	}
	in.Coupling.MaxNlIt = 30
	in.Coupling.CouplingStrategy = inp.StrategyInput{Type: strategy}
	in.Functions = inp.FuncsData{
		{Name: "p", Type: "rmp", Prms: dbf.Params{
			&dbf.P{N: "ca", V: 0}, &dbf.P{N: "cb", V: 9}, &dbf.P{N: "ta", V: 0}, &dbf.P{N: "tb", V: 0.5},
		}},
		{Name: "q", Type: "cte", Prms: dbf.Params{&dbf.P{N: "c", V: 2}}},
	}
	in.Benchmark = inp.BenchmarkData{Nfluid: 5, Nstructure: 5, Load: "p", LoadNeg: "q"}
	return &in
}

// worker allocates the benchmark solvers of one worker and the coupled driver
func worker(tst *testing.T, in *inp.Input, c comm.Communicator, opts ...Option) (*ana.Membrane, *Main, *recorder) {
	set, err := inp.Resolve(*in)
	require.NoError(tst, err)
	m, err := ana.NewMembrane(in, set, c.Rank(), c.Size())
	require.NoError(tst, err)
	fluid, structure, mesh := m.Solvers()
	opts = append([]Option{WithCommunicator(c), WithLogger(lgr.NewText(io.Discard, slog.LevelDebug, c.Rank()))}, opts...)
	p, err := NewPartitioned(set, fluid, structure, mesh, opts...)
	require.NoError(tst, err)
	rec := new(recorder)
	return m, NewMain(p, rec), rec
}

// checkMembrane checks the structure displacement against the analytical solution
func checkMembrane(tst *testing.T, m *ana.Membrane, t, tol float64) {
	_, structure, _ := m.Solvers()
	S, err := structure.GetInterface("S")
	require.NoError(tst, err)
	d := itf.NewField(S, 2)
	require.NoError(tst, structure.GetValues(itf.Displacement, S, d))
	uy := m.Solution(t)
	for i := 0; i < d.Len(); i++ {
		chk.Float64(tst, gio.Sf("rank %d: u_x @ %d", m.Rank, S.Ids[i]), tol, d.At(i)[0], 0)
		chk.Float64(tst, gio.Sf("rank %d: u_y @ %d", m.Rank, S.Ids[i]), tol, d.At(i)[1], uy)
	}
}

func Test_main01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("main01. time loop, recorder and metrics")

	fl, st, me, set := scripted(tst, false)
	st.OnSolve = constant(0, 0.1)
	reg := prometheus.NewRegistry()
	met := NewMetrics(reg, prometheus.Labels{"case": "constant"})
	p, err := NewPartitioned(set, fl, st, me, WithMetrics(met))
	require.NoError(tst, err)
	rec := new(recorder)
	require.NoError(tst, NewMain(p, rec).Run(context.Background()))

	require.Len(tst, rec.results, 4)
	for k, r := range rec.results {
		chk.Int(tst, "step", r.Step, k+1)
		chk.Float64(tst, "time", 1e-15, r.Time, float64(k+1)*0.25)
		assert.True(tst, r.Converged)
	}
	chk.Float64(tst, "steps", 1e-17, testutil.ToFloat64(met.Steps), 4)
	chk.Float64(tst, "non-converged", 1e-17, testutil.ToFloat64(met.NonConverged), 0)
	chk.Float64(tst, "fallbacks", 1e-17, testutil.ToFloat64(met.Fallbacks), 0)
	chk.Float64(tst, "time", 1e-15, testutil.ToFloat64(met.Time), 1)
	chk.Int(tst, "check calls", fl.Count("Check"), 1)
	chk.Int(tst, "clear calls", fl.Count("Clear"), 1)
	chk.Int(tst, "fluid finalizations", fl.Count("Finalize"), 4)

	// non-convergent steps are counted
	fl, st, me, set = scripted(tst, false)
	set.MaxNlIt = 2
	n := 0
	st.OnSolve = func(s *tests.Solver) error {
		n++
		return constant(0, float64(n))(s)
	}
	met = NewMetrics(prometheus.NewRegistry(), nil)
	p, err = NewPartitioned(set, fl, st, me, WithMetrics(met), WithAccelerator(new(tests.Spy)))
	require.NoError(tst, err)
	require.NoError(tst, NewMain(p, nil).Run(context.Background()))
	chk.Float64(tst, "non-converged", 1e-17, testutil.ToFloat64(met.NonConverged), 4)
	chk.Float64(tst, "residual", 1e-15, testutil.ToFloat64(met.Residual), math.Sqrt(0.5))
}

func Test_main02(tst *testing.T) {

	//verbose()
	chk.PrintTitle("main02. cancellation and errors")

	fl, st, me, set := scripted(tst, false)
	p, err := NewPartitioned(set, fl, st, me)
	require.NoError(tst, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = NewMain(p, nil).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		tst.Errorf("cancelled run should return context.Canceled. got %v", err)
	}
	chk.Int(tst, "advances", fl.Count("Advance"), 0)
	chk.Int(tst, "clear calls", fl.Count("Clear"), 1)

	// time mismatch
	fl, st, me, set = scripted(tst, false)
	st.Dt = 0.3
	p, err = NewPartitioned(set, fl, st, me)
	require.NoError(tst, err)
	err = NewMain(p, nil).Run(context.Background())
	if !errors.Is(err, inp.ErrConfig) {
		tst.Errorf("time mismatch should be a configuration error. got %v", err)
	}
	chk.Int(tst, "solves", fl.Count("Solve")+st.Count("Solve")+me.Count("Solve"), 0)
}

func Test_main03(tst *testing.T) {

	//verbose()
	chk.PrintTitle("main03. membrane benchmark ensemble")

	type entry struct {
		double   bool
		strategy string
	}
	entries := []entry{{false, "aitken"}, {false, "iqnils"}, {false, "mvqn"}, {true, "aitken"}, {true, "iqnils"}, {true, "mvqn"}}
	membranes := make([]*ana.Membrane, len(entries))
	mains := make([]*Main, len(entries))
	recs := make([]*recorder, len(entries))
	for k, e := range entries {
		membranes[k], mains[k], recs[k] = worker(tst, membrane(e.double, e.strategy), comm.Serial{})
	}
	require.NoError(tst, RunEnsemble(context.Background(), mains))

	for k, e := range entries {
		key := gio.Sf("double=%v %s", e.double, e.strategy)
		require.Len(tst, recs[k].results, 4)
		for _, r := range recs[k].results {
			gio.Pforan("%s: step %d: %d iterations, residuals = %v\n", key, r.Step, r.Iterations, r.Residuals)
			assert.True(tst, r.Converged, key)
			assert.LessOrEqual(tst, r.Iterations, 8, key)
			chk.Float64(tst, key+": mesh residual", 1e-12, r.MeshResidual, 0)
		}
		checkMembrane(tst, membranes[k], 1.0, 1e-9)
	}
}

func Test_main04(tst *testing.T) {

	//verbose()
	chk.PrintTitle("main04. membrane benchmark on two workers")

	for _, double := range []bool{false, true} {
		comms := comm.NewLocalGroup(2)
		membranes := make([]*ana.Membrane, 2)
		mains := make([]*Main, 2)
		recs := make([]*recorder, 2)
		for rank, c := range comms {
			membranes[rank], mains[rank], recs[rank] = worker(tst, membrane(double, "iqnils"), c)
		}
		var g errgroup.Group
		for _, m := range mains {
			m := m
			g.Go(func() error { return m.Run(context.Background()) })
		}
		require.NoError(tst, g.Wait())

		// serial reference
		_, ref, refRec := worker(tst, membrane(double, "iqnils"), comm.Serial{})
		require.NoError(tst, ref.Run(context.Background()))

		for rank := range comms {
			checkMembrane(tst, membranes[rank], 1.0, 1e-9)
			require.Len(tst, recs[rank].results, len(refRec.results))
			for k, r := range recs[rank].results {
				chk.Int(tst, gio.Sf("rank %d: step %d: iterations", rank, k+1), r.Iterations, refRec.results[k].Iterations)
				chk.Array(tst, gio.Sf("rank %d: step %d: residuals", rank, k+1), 1e-14, r.Residuals, refRec.results[k].Residuals)
			}
		}
	}
}

func Test_main05(tst *testing.T) {

	//verbose()
	chk.PrintTitle("main05. non-matching membrane from file")

	in, err := inp.ReadInput("../inp/data/membrane.json")
	require.NoError(tst, err)
	m, drv, rec := worker(tst, in, comm.Serial{})
	require.NoError(tst, drv.Run(context.Background()))
	require.Len(tst, rec.results, 5)
	for _, r := range rec.results {
		gio.Pforan("step %d: t=%g: %d iterations, residual = %g\n", r.Step, r.Time, r.Iterations, r.Residual())
		assert.True(tst, r.Converged)
		chk.Float64(tst, "mesh residual", 1e-12, r.MeshResidual, 0)
	}
	chk.Int(tst, "fluid points", m.Nf, 9)
	chk.Int(tst, "structure points", m.Ns, 5)
}

// hooked records each step and then calls fn
type hooked struct {
	recorder
	fn func(step int) error
}

func (o *hooked) Record(res StepResult) error {
	o.recorder.Record(res)
	return o.fn(res.Step)
}

func Test_main06(tst *testing.T) {

	//verbose()
	chk.PrintTitle("main06. workers stop together")

	// run runs two workers; rank 0 records through rec0 and uses ctx0
	run := func(ctx0 context.Context, rec0 *hooked) (errs []error, recs []*recorder) {
		comms := comm.NewLocalGroup(2)
		mains := make([]*Main, 2)
		recs = make([]*recorder, 2)
		for rank, c := range comms {
			_, mains[rank], recs[rank] = worker(tst, membrane(false, "aitken"), c)
		}
		mains[0].Recorder = rec0
		recs[0] = &rec0.recorder
		errs = make([]error, 2)
		ctxs := []context.Context{ctx0, context.Background()}
		done := make(chan struct{})
		go func() {
			var g errgroup.Group
			for rank, m := range mains {
				rank, m := rank, m
				g.Go(func() error {
					errs[rank] = m.Run(ctxs[rank])
					return nil
				})
			}
			g.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(30 * time.Second):
			tst.Fatalf("workers did not stop")
		}
		return
	}

	// cancellation seen by rank 0 only
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errs, recs := run(ctx, &hooked{fn: func(step int) error {
		cancel()
		return nil
	}})
	gio.Pforan("errs = %v\n", errs)
	assert.ErrorIs(tst, errs[0], context.Canceled)
	assert.ErrorIs(tst, errs[1], ErrStopped)
	for rank := 0; rank < 2; rank++ {
		chk.Int(tst, gio.Sf("rank %d: steps after cancel", rank), len(recs[rank].results), 1)
	}

	// recorder failure on rank 0
	failure := errors.New("disk full")
	errs, recs = run(context.Background(), &hooked{fn: func(step int) error {
		if step == 2 {
			return failure
		}
		return nil
	}})
	gio.Pforan("errs = %v\n", errs)
	assert.ErrorIs(tst, errs[0], failure)
	assert.Contains(tst, errs[0].Error(), "cannot record step 2")
	assert.ErrorIs(tst, errs[1], ErrStopped)
	for rank := 0; rank < 2; rank++ {
		chk.Int(tst, gio.Sf("rank %d: steps after failure", rank), len(recs[rank].results), 2)
	}

	// a failure at the last step does not block the others
	errs, recs = run(context.Background(), &hooked{fn: func(step int) error {
		if step == 4 {
			return failure
		}
		return nil
	}})
	assert.ErrorIs(tst, errs[0], failure)
	require.NoError(tst, errs[1])
	chk.Int(tst, "rank 1: steps", len(recs[1].results), 4)
}
