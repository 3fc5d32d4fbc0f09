// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fsi

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yamanatoo/Kratos/inp"
	"github.com/yamanatoo/Kratos/itf"
	"github.com/yamanatoo/Kratos/lgr"
	"github.com/yamanatoo/Kratos/tests"
)

// constant sets a constant structure displacement at every solve
func constant(d ...float64) func(s *tests.Solver) error {
	return func(s *tests.Solver) error {
		u := s.Field(itf.Displacement, "S")
		for i := 0; i < u.Len(); i++ {
			u.SetAt(i, d)
		}
		return nil
	}
}

// step runs one time step from t
func step(tst *testing.T, p *Partitioned, t float64, idx int) {
	_, err := p.AdvanceInTime(t)
	require.NoError(tst, err)
	p.SetTimeStep(idx)
	require.NoError(tst, p.InitializeSolutionStep())
	require.NoError(tst, p.Predict())
	require.NoError(tst, p.SolveSolutionStep())
}

func Test_partitioned01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("partitioned01. zero residual converges without update")

	fl, st, me, set := scripted(tst, false)
	st.OnSolve = constant(0, 0.1)
	spy := new(tests.Spy)
	p, err := NewPartitioned(set, fl, st, me, WithAccelerator(spy))
	require.NoError(tst, err)
	require.NoError(tst, p.Initialize())
	chk.Int(tst, "ndofs", p.NumDofs(), 6)

	step(tst, p, 0, 1)
	chk.Array(tst, "iterate", 1e-15, p.State().Iterate, []float64{0, 0.1, 0, 0.1, 0, 0.1})
	res := p.Result()
	io.Pforan("res = %+v\n", res)
	chk.Int(tst, "updates", spy.Updates, 0)
	chk.Int(tst, "iterations", res.Iterations, 1)
	chk.Int(tst, "iteration inits", spy.IterInits, 1)
	chk.Int(tst, "iteration finals", spy.IterFinals, 1)
	assert.True(tst, res.Converged)
	assert.Equal(tst, Converged, p.Context().Phase)
	chk.Float64(tst, "residual", 1e-17, res.Residual(), 0)

	require.NoError(tst, p.FinalizeSolutionStep())
	chk.Int(tst, "finals", spy.Finals, 1)
	assert.Equal(tst, Idle, p.Context().Phase)
	chk.Float64(tst, "time", 1e-17, p.Context().Time, 0.25)
	for _, s := range []*tests.Solver{fl, st} {
		chk.Int(tst, s.Name+": step", s.Info[itf.InfoStep], 1)
		chk.Int(tst, s.Name+": iteration", s.Info[itf.InfoNlIteration], 1)
	}

	// call sequence
	assert.Equal(tst, []string{
		"fluid.Advance", "structure.Advance", "mesh.Advance",
		"fluid.Init", "structure.Init", "mesh.Init",
		"fluid.Predict", "structure.Predict", "structure.Solve", "mesh.Solve",
		"mesh.Solve", "fluid.Solve", "structure.Solve",
		"fluid.Finalize", "structure.Finalize", "mesh.Finalize",
	}, *fl.Log)
}

func Test_partitioned02(tst *testing.T) {

	//verbose()
	chk.PrintTitle("partitioned02. iteration cap")

	fl, st, me, set := scripted(tst, false)
	set.MaxNlIt = 4
	set.SolveMeshAtEachIteration = false
	n := 0
	st.OnSolve = func(s *tests.Solver) error {
		n++
		return constant(0, float64(n))(s)
	}
	var buf bytes.Buffer
	spy := new(tests.Spy)
	p, err := NewPartitioned(set, fl, st, me, WithAccelerator(spy), WithLogger(lgr.NewText(&buf, slog.LevelDebug, 0)))
	require.NoError(tst, err)
	require.NoError(tst, p.Initialize())
	step(tst, p, 0, 1)

	res := p.Result()
	chk.Int(tst, "iterations", res.Iterations, 4)
	chk.Int(tst, "updates", spy.Updates, 4)
	assert.False(tst, res.Converged)
	assert.Equal(tst, MaxIterationsReached, p.Context().Phase)
	chk.Array(tst, "norms", 1e-15, res.Residuals, []float64{math.Sqrt(0.5), math.Sqrt(0.5), math.Sqrt(0.5), math.Sqrt(0.5)})
	for k, r := range spy.Residuals {
		chk.Array(tst, io.Sf("residual %d", k), 1e-15, r, []float64{0, 1, 0, 1, 0, 1})
	}
	chk.Int(tst, "fluid solves", fl.Count("Solve"), 4)
	chk.Int(tst, "structure solves", st.Count("Solve"), 5)
	chk.Int(tst, "mesh solves", me.Count("Solve"), 1)
	chk.Array(tst, "mesh displacement", 1e-15, fl.Field(itf.MeshDisplacement, "F").Values, []float64{0, 5, 0, 5, 0, 5})
	io.Pforan("%s", buf.String())
	assert.True(tst, strings.Contains(buf.String(), "convergence not achieved"))

	// the simulation continues
	require.NoError(tst, p.FinalizeSolutionStep())
	step(tst, p, 0.25, 2)
	chk.Int(tst, "second step iterations", p.Result().Iterations, 4)
	chk.Int(tst, "updates", spy.Updates, 8)
}

func Test_partitioned03(tst *testing.T) {

	//verbose()
	chk.PrintTitle("partitioned03. time mismatch")

	fl, st, me, set := scripted(tst, false)
	st.Dt = 0.35
	p, err := NewPartitioned(set, fl, st, me, WithAccelerator(new(tests.Spy)))
	require.NoError(tst, err)
	require.NoError(tst, p.Initialize())
	_, err = p.AdvanceInTime(0.75)
	io.Pforan("err = %v\n", err)
	if !errors.Is(err, inp.ErrConfig) {
		tst.Errorf("time mismatch should be a configuration error. got %v", err)
	}
	for _, s := range []*tests.Solver{fl, st, me} {
		chk.Int(tst, s.Name+": solves", s.Count("Solve"), 0)
	}

	// mesh
	fl, st, me, set = scripted(tst, false)
	me.Dt = 0.5
	p, err = NewPartitioned(set, fl, st, me)
	require.NoError(tst, err)
	require.NoError(tst, p.Initialize())
	_, err = p.AdvanceInTime(0)
	if !errors.Is(err, inp.ErrConfig) {
		tst.Errorf("mesh time mismatch should be a configuration error. got %v", err)
	}

	// tiny differences are accepted
	fl, st, me, set = scripted(tst, false)
	st.Dt = 0.25 + 1e-15
	p, err = NewPartitioned(set, fl, st, me)
	require.NoError(tst, err)
	require.NoError(tst, p.Initialize())
	t, err := p.AdvanceInTime(0)
	require.NoError(tst, err)
	chk.Float64(tst, "t", 1e-17, t, 0.25)
}

func Test_partitioned04(tst *testing.T) {

	//verbose()
	chk.PrintTitle("partitioned04. initialisation")

	fl, st, me, set := scripted(tst, false)
	fl.MinBuffer, st.MinBuffer, me.MinBuffer = 2, 3, 1
	p, err := NewPartitioned(set, fl, st, me)
	require.NoError(tst, err)
	chk.Int(tst, "minimum buffer size", p.GetMinimumBufferSize(), 3)
	require.NoError(tst, p.Initialize())
	for _, s := range []*tests.Solver{fl, st, me} {
		chk.Int(tst, s.Name+": buffer", s.Buffer, 3)
	}
	assert.NotNil(tst, p.Mapper)
	assert.Equal(tst, "aitken", set.Accelerator.Type)

	// model parts
	fl.Model, st.Model = "fluid domain", "structure domain"
	assert.Equal(tst, "fluid domain", p.GetFluidComputingModelPart())
	assert.Equal(tst, "structure domain", p.GetStructureComputingModelPart())

	// dimension mismatch
	fl, st, me, set = scripted(tst, false)
	fl.Sets["F"] = points(tst, "F", 3, 3, 11)
	p, err = NewPartitioned(set, fl, st, me)
	require.NoError(tst, err)
	err = p.Initialize()
	if !errors.Is(err, inp.ErrConfig) {
		tst.Errorf("dimension mismatch should be a configuration error. got %v", err)
	}

	// missing interface
	fl, st, me, set = scripted(tst, false)
	delete(fl.Sets, "F")
	p, err = NewPartitioned(set, fl, st, me)
	require.NoError(tst, err)
	if err = p.Initialize(); err == nil {
		tst.Errorf("missing fluid interface should fail")
	}

	// unknown scheme
	set.CouplingScheme = "gauss_seidel"
	_, err = NewPartitioned(set, fl, st, me)
	if !errors.Is(err, inp.ErrConfig) {
		tst.Errorf("unknown coupling scheme should be a configuration error. got %v", err)
	}
}

func Test_partitioned05(tst *testing.T) {

	//verbose()
	chk.PrintTitle("partitioned05. double-faced structure")

	st := tests.NewSolver("structure", 0.25, points(tst, "S", 3, 2, 1))
	fl := tests.NewSolver("fluid", 0.25, points(tst, "Fp", 3, 2, 11), points(tst, "Fn", 3, 2, 21))
	me := tests.NewSolver("mesh", 0.25)
	set, err := inp.Resolve(input(
		&inp.MapperData{FluidInterface: "Fp", StructureInterface: "S", Face: inp.FacePositive},
		&inp.MapperData{FluidInterface: "Fn", StructureInterface: "S", Face: inp.FaceNegative},
	))
	require.NoError(tst, err)
	fl.Field(itf.Reaction, "Fp").SetAt(0, []float64{-1, 0, 0})
	fl.Field(itf.Reaction, "Fn").SetAt(0, []float64{0, -1, 0})
	st.OnSolve = func(s *tests.Solver) error {
		u := s.Field(itf.Displacement, "S")
		u.SetAt(0, []float64{0, 0, 0.5})
		u.SetAt(1, []float64{0, 0, 0.25})
		return nil
	}

	p, err := NewPartitioned(set, fl, st, me, WithAccelerator(new(tests.Spy)))
	require.NoError(tst, err)
	require.NoError(tst, p.Initialize())
	chk.Int(tst, "ndofs", p.NumDofs(), 12)
	_, err = p.AdvanceInTime(0)
	require.NoError(tst, err)
	require.NoError(tst, p.InitializeSolutionStep())
	require.NoError(tst, p.Predict())

	chk.Array(tst, "combined load", 1e-15, st.Field(itf.PointLoad, "S").Values, []float64{1, 1, 0, 0, 0, 0})
	for _, name := range []string{"Fp", "Fn"} {
		chk.Array(tst, name+": mesh displacement", 1e-15, fl.Field(itf.MeshDisplacement, name).Values, []float64{0, 0, 0.5, 0, 0, 0.25})
	}
	chk.Array(tst, "iterate", 1e-15, p.State().Iterate, []float64{0, 0, 0.5, 0, 0, 0.25, 0, 0, 0.5, 0, 0, 0.25})

	require.NoError(tst, p.SolveSolutionStep())
	assert.True(tst, p.Result().Converged)
	chk.Int(tst, "iterations", p.Result().Iterations, 1)
}
