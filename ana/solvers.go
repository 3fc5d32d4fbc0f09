// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ana

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/fun/dbf"
	"github.com/yamanatoo/Kratos/itf"
)

// clock holds the time stepping data shared by all benchmark solvers
type clock struct {
	t         float64
	dt        float64
	minBuffer int
	buffer    int
	info      map[itf.InfoKey]int
}

func newClock(dt float64, minBuffer int) clock {
	return clock{dt: dt, minBuffer: minBuffer, info: make(map[itf.InfoKey]int)}
}

func (o *clock) AdvanceInTime(t float64) (float64, error) {
	o.t = t + o.dt
	return o.t, nil
}

func (o *clock) Predict() error                   { return nil }
func (o *clock) InitializeSolutionStep() error    { return nil }
func (o *clock) Clear() error                     { return nil }
func (o *clock) GetMinimumBufferSize() int        { return o.minBuffer }
func (o *clock) SetBufferSize(n int)              { o.buffer = n }
func (o *clock) SetInfo(key itf.InfoKey, val int) { o.info[key] = val }

// Info returns an entry of the process information
func (o *clock) Info(key itf.InfoKey) int { return o.info[key] }

// Time returns the current time
func (o *clock) Time() float64 { return o.t }

func (o *clock) Check() error {
	if o.dt <= 0 {
		return chk.Err("time step must be positive. %g is invalid", o.dt)
	}
	if o.buffer < o.minBuffer {
		return chk.Err("buffer size %d is smaller than required %d", o.buffer, o.minBuffer)
	}
	return nil
}

// Structure implements the membrane springs
type Structure struct {
	clock
	K    float64       // stiffness per unit length
	set  *itf.PointSet // interface
	area []float64     // tributary lengths
	disp *itf.Field    // displacements
	load *itf.Field    // point loads
}

// SolveSolutionStep computes the displacements due to the current point loads
func (o *Structure) SolveSolutionStep() error {
	for i, a := range o.area {
		for c := 0; c < 2; c++ {
			o.disp.At(i)[c] = o.load.At(i)[c] / (o.K * a)
		}
	}
	return nil
}

func (o *Structure) FinalizeSolutionStep() error { return nil }
func (o *Structure) GetComputingModelPart() any  { return o }

// GetInterface returns the structure interface
func (o *Structure) GetInterface(name string) (*itf.PointSet, error) {
	if name != o.set.Name {
		return nil, chk.Err("structure has no interface named %q", name)
	}
	return o.set, nil
}

// GetValues reads Displacement or PointLoad
func (o *Structure) GetValues(v itf.Variable, set *itf.PointSet, dst *itf.Field) error {
	switch v {
	case itf.Displacement:
		return dst.CopyFrom(o.disp)
	case itf.PointLoad:
		return dst.CopyFrom(o.load)
	}
	return chk.Err("structure cannot provide %v", v)
}

// SetValues writes PointLoad
func (o *Structure) SetValues(v itf.Variable, set *itf.PointSet, src *itf.Field) error {
	if v != itf.PointLoad {
		return chk.Err("structure cannot receive %v", v)
	}
	return o.load.CopyFrom(src)
}

// face holds the data of one fluid face
type face struct {
	kind string
	set  *itf.PointSet
	area []float64
	n    []float64  // unit normal
	p    dbf.T      // pressure
	u    *itf.Field // mesh displacement
	uOld *itf.Field // mesh displacement at the end of previous step
	w    *itf.Field // mesh velocity
	v    *itf.Field // fluid velocity
	reac *itf.Field // reaction
}

// Fluid implements the pressure loads with feedback on the wall motion
type Fluid struct {
	clock
	C     float64          // feedback coefficient
	faces map[string]*face // faces by interface name
	order []string         // interface names
}

// SolveSolutionStep computes reactions and velocities with the current mesh displacement
func (o *Fluid) SolveSolutionStep() error {
	for _, name := range o.order {
		f := o.faces[name]
		p := f.p.F(o.t, nil)
		for j, a := range f.area {
			u := f.u.At(j)
			un := u[0]*f.n[0] + u[1]*f.n[1]
			for c := 0; c < 2; c++ {
				f.reac.At(j)[c] = -a * (p - o.C*un) * f.n[c]
			}
		}
		f.v.CopyFrom(f.w)
	}
	return nil
}

// FinalizeSolutionStep stores the mesh displacement of the converged step
func (o *Fluid) FinalizeSolutionStep() error {
	for _, f := range o.faces {
		f.uOld.CopyFrom(f.u)
	}
	return nil
}

func (o *Fluid) GetComputingModelPart() any { return o }

// GetInterface returns the fluid interface of a face
func (o *Fluid) GetInterface(name string) (*itf.PointSet, error) {
	f, err := o.face(name)
	if err != nil {
		return nil, err
	}
	return f.set, nil
}

// GetValues reads Reaction, MeshDisplacement, MeshVelocity or Velocity
func (o *Fluid) GetValues(v itf.Variable, set *itf.PointSet, dst *itf.Field) error {
	f, err := o.face(set.Name)
	if err != nil {
		return err
	}
	switch v {
	case itf.Reaction:
		return dst.CopyFrom(f.reac)
	case itf.MeshDisplacement:
		return dst.CopyFrom(f.u)
	case itf.MeshVelocity:
		return dst.CopyFrom(f.w)
	case itf.Velocity:
		return dst.CopyFrom(f.v)
	}
	return chk.Err("fluid cannot provide %v", v)
}

// SetValues writes MeshDisplacement
func (o *Fluid) SetValues(v itf.Variable, set *itf.PointSet, src *itf.Field) error {
	f, err := o.face(set.Name)
	if err != nil {
		return err
	}
	if v != itf.MeshDisplacement {
		return chk.Err("fluid cannot receive %v", v)
	}
	return f.u.CopyFrom(src)
}

func (o *Fluid) face(name string) (*face, error) {
	if f, ok := o.faces[name]; ok {
		return f, nil
	}
	return nil, chk.Err("fluid has no interface named %q", name)
}

// Mesh implements the mesh motion of the fluid domain
type Mesh struct {
	clock
	fluid *Fluid
}

// SolveSolutionStep computes the mesh velocity from the imposed mesh displacement
func (o *Mesh) SolveSolutionStep() error {
	for _, f := range o.fluid.faces {
		for k := range f.w.Values {
			f.w.Values[k] = (f.u.Values[k] - f.uOld.Values[k]) / o.dt
		}
	}
	return nil
}

func (o *Mesh) FinalizeSolutionStep() error { return nil }
func (o *Mesh) GetComputingModelPart() any  { return o.fluid }

// GetInterface returns the fluid interface moved by the mesh solver
func (o *Mesh) GetInterface(name string) (*itf.PointSet, error) { return o.fluid.GetInterface(name) }

// GetValues reads MeshDisplacement or MeshVelocity
func (o *Mesh) GetValues(v itf.Variable, set *itf.PointSet, dst *itf.Field) error {
	if v != itf.MeshDisplacement && v != itf.MeshVelocity {
		return chk.Err("mesh cannot provide %v", v)
	}
	return o.fluid.GetValues(v, set, dst)
}

// SetValues writes MeshDisplacement
func (o *Mesh) SetValues(v itf.Variable, set *itf.PointSet, src *itf.Field) error {
	return o.fluid.SetValues(v, set, src)
}
