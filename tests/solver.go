// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package tests implements scripted solvers and accelerators to test the coupling
package tests

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/yamanatoo/Kratos/itf"
)

// Solver is a scripted physics solver. It stores interface values written by SetValues,
// returns stored values (or zero) in GetValues and records every call.
type Solver struct {
	Name      string                   // name used in call records; e.g. "fluid"
	Dt        float64                  // time step added by AdvanceInTime
	MinBuffer int                      // value returned by GetMinimumBufferSize
	Buffer    int                      // value given to SetBufferSize
	Sets      map[string]*itf.PointSet // interfaces
	Values    map[string]*itf.Field    // stored values. key = variable@set
	Info      map[itf.InfoKey]int      // shared process information
	Calls     []string                 // call records; e.g. "fluid.Solve"
	OnSolve   func(o *Solver) error    // optional action of SolveSolutionStep
	OnPredict func(o *Solver) error    // optional action of Predict
	Model     any                      // value returned by GetComputingModelPart
	Log       *[]string                // optional shared call log (ordering among solvers)
	Ncomp     map[itf.Variable]int     // number of components per variable; default = ndim
}

// NewSolver returns a new scripted solver owning the given interfaces
func NewSolver(name string, dt float64, sets ...*itf.PointSet) (o *Solver) {
	o = &Solver{Name: name, Dt: dt, MinBuffer: 1, Sets: make(map[string]*itf.PointSet),
		Values: make(map[string]*itf.Field), Info: make(map[itf.InfoKey]int)}
	for _, s := range sets {
		o.Sets[s.Name] = s
	}
	return
}

// AdvanceInTime returns t + Dt
func (o *Solver) AdvanceInTime(t float64) (float64, error) {
	o.record("Advance")
	return t + o.Dt, nil
}

// Predict runs OnPredict
func (o *Solver) Predict() error {
	o.record("Predict")
	if o.OnPredict != nil {
		return o.OnPredict(o)
	}
	return nil
}

func (o *Solver) InitializeSolutionStep() error { o.record("Init"); return nil }
func (o *Solver) FinalizeSolutionStep() error   { o.record("Finalize"); return nil }
func (o *Solver) Check() error                  { o.record("Check"); return nil }
func (o *Solver) Clear() error                  { o.record("Clear"); return nil }

// SolveSolutionStep runs OnSolve
func (o *Solver) SolveSolutionStep() error {
	o.record("Solve")
	if o.OnSolve != nil {
		return o.OnSolve(o)
	}
	return nil
}

func (o *Solver) GetComputingModelPart() any { return o.Model }
func (o *Solver) GetMinimumBufferSize() int  { return o.MinBuffer }
func (o *Solver) SetBufferSize(n int)        { o.Buffer = n }

// SetInfo writes an entry of the process information
func (o *Solver) SetInfo(key itf.InfoKey, val int) { o.Info[key] = val }

// GetInterface returns the interface named name
func (o *Solver) GetInterface(name string) (*itf.PointSet, error) {
	if s, ok := o.Sets[name]; ok {
		return s, nil
	}
	return nil, chk.Err("%s: cannot find interface %q", o.Name, name)
}

// GetValues copies the stored values into dst; zero if never set
func (o *Solver) GetValues(v itf.Variable, set *itf.PointSet, dst *itf.Field) (err error) {
	if err = dst.Check(set); err != nil {
		return
	}
	if f, ok := o.Values[key(v, set.Name)]; ok {
		return dst.CopyFrom(f)
	}
	dst.Fill(0)
	return
}

// SetValues stores a copy of src
func (o *Solver) SetValues(v itf.Variable, set *itf.PointSet, src *itf.Field) (err error) {
	if err = src.Check(set); err != nil {
		return
	}
	o.Values[key(v, set.Name)] = src.GetCopy()
	return
}

// Field returns the stored field of variable v on interface name; allocating it if necessary
func (o *Solver) Field(v itf.Variable, name string) *itf.Field {
	k := key(v, name)
	if f, ok := o.Values[k]; ok {
		return f
	}
	s := o.Sets[name]
	if s == nil {
		chk.Panic("%s: cannot find interface %q", o.Name, name)
	}
	ncomp := s.Ndim
	if n, ok := o.Ncomp[v]; ok {
		ncomp = n
	}
	o.Values[k] = itf.NewField(s, ncomp)
	return o.Values[k]
}

// Count returns the number of calls with the given record
func (o *Solver) Count(call string) (n int) {
	for _, c := range o.Calls {
		if c == call {
			n++
		}
	}
	return
}

// record appends a call record
func (o *Solver) record(call string) {
	o.Calls = append(o.Calls, call)
	if o.Log != nil {
		*o.Log = append(*o.Log, io.Sf("%s.%s", o.Name, call))
	}
}

// key returns the key of stored values
func key(v itf.Variable, name string) string { return io.Sf("%v@%s", v, name) }
