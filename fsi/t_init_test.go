// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fsi

import (
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/stretchr/testify/require"
	"github.com/yamanatoo/Kratos/inp"
	"github.com/yamanatoo/Kratos/itf"
	"github.com/yamanatoo/Kratos/tests"
)

func init() {
	io.Verbose = false
}

func verbose() {
	io.Verbose = true
	chk.Verbose = true
}

// input returns the input of a coupled simulation with 4 steps of size 0.25
func input(faces ...*inp.MapperData) inp.Input {
	return inp.Input{
		Fluid:     inp.SubdomainData{EndTime: 1, TimeStep: 0.25},
		Structure: inp.SubdomainData{EndTime: 1, TimeStep: 0.25},
		Coupling:  inp.CouplingInput{MaxNlIt: 10, NlTol: 1e-10, MapperSettings: faces},
	}
}

// points returns a point set with npts points along the x axis
func points(tst *testing.T, name string, ndim, npts, firstId int) *itf.PointSet {
	ids := make([]int, npts)
	X := make([][]float64, npts)
	for i := 0; i < npts; i++ {
		ids[i] = firstId + i
		X[i] = make([]float64, ndim)
		X[i][0] = float64(i) / float64(npts-1)
	}
	s, err := itf.NewPointSet(name, ndim, ids, X)
	require.NoError(tst, err)
	return s
}

// scripted returns scripted fluid, structure and mesh solvers with matching 2D interfaces
// of 3 points; the fluid has faces "Fp" and "Fn" if double, or "F" otherwise
func scripted(tst *testing.T, double bool) (fl, st, me *tests.Solver, set inp.Settings) {
	var err error
	st = tests.NewSolver("structure", 0.25, points(tst, "S", 2, 3, 1))
	me = tests.NewSolver("mesh", 0.25)
	if double {
		fl = tests.NewSolver("fluid", 0.25, points(tst, "Fp", 2, 3, 11), points(tst, "Fn", 2, 3, 21))
		set, err = inp.Resolve(input(
			&inp.MapperData{FluidInterface: "Fp", StructureInterface: "S", Face: inp.FacePositive},
			&inp.MapperData{FluidInterface: "Fn", StructureInterface: "S", Face: inp.FaceNegative},
		))
	} else {
		fl = tests.NewSolver("fluid", 0.25, points(tst, "F", 2, 3, 11))
		set, err = inp.Resolve(input(&inp.MapperData{FluidInterface: "F", StructureInterface: "S"}))
	}
	require.NoError(tst, err)
	var log []string
	fl.Log, st.Log, me.Log = &log, &log, &log
	return
}

// recorder keeps all step results
type recorder struct {
	results []StepResult
}

func (o *recorder) Record(res StepResult) error {
	o.results = append(o.results, res)
	return nil
}
