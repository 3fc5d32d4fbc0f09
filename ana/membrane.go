// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package ana implements synthetic benchmark solvers with analytical solutions
package ana

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/fun/dbf"
	"github.com/cpmech/gosl/utl"
	"github.com/yamanatoo/Kratos/inp"
	"github.com/yamanatoo/Kratos/itf"
)

// Membrane defines a flexible membrane along y=0, 0 ≤ x ≤ L, loaded by the pressure of one fluid
// (single-faced) or two fluids (double-faced). With tributary lengths a_j:
//
//    structure:  d_i = F_i / (K・a_i)                      (independent springs)
//    fluid:      R_j = -a_j・(p(t) - c・(u_j・n))・n         (pressure with feedback on wall motion)
//    mesh:       w_j = (u_j - u_j_old) / Δt                (mesh velocity; fluid velocity = w)
//
// where n = (0,1) on unique/positive faces and n = (0,-1) on the negative face. With matching
// meshes the coupled solution is uniform:
//
//    u_y = (p⁺ - p⁻) / (K + nfaces・c)
//
// Plain fixed-point iterations diverge if nfaces・c > K.
type Membrane struct {
	L     float64          // length
	K     float64          // stiffness per unit length
	C     float64          // feedback coefficient
	Nf    int              // number of points of each fluid face
	Ns    int              // number of structure points
	Faces []inp.FaceData   // faces
	Loads map[string]dbf.T // pressure functions. key = face kind
	Dt    float64          // time step
	Rank  int              // worker id
	Nproc int              // number of workers
	fluid *Fluid
	struc *Structure
	mesh  *Mesh
}

// NewMembrane returns a new benchmark; its solvers own the points of worker rank among nproc
func NewMembrane(in *inp.Input, set inp.Settings, rank, nproc int) (o *Membrane, err error) {
	b := in.Benchmark
	o = &Membrane{
		L:     inp.Pick(b.Length, 1),
		K:     inp.Pick(b.Stiffness, 10),
		C:     inp.Pick(b.Feedback, 8),
		Nf:    inp.Ipick(b.Nfluid, 11),
		Ns:    inp.Ipick(b.Nstructure, 11),
		Faces: set.Faces,
		Loads: make(map[string]dbf.T),
		Dt:    set.TimeStep,
		Rank:  rank,
		Nproc: nproc,
	}
	if o.Nf < 2 || o.Ns < 2 {
		return nil, chk.Err("membrane requires at least 2 points on each interface. nfluid=%d nstructure=%d: %w", o.Nf, o.Ns, inp.ErrConfig)
	}
	if nproc < 1 || rank < 0 || rank >= nproc {
		return nil, chk.Err("invalid worker %d among %d", rank, nproc)
	}
	for _, f := range set.Faces {
		name := b.Load
		if f.Kind == inp.FaceNegative {
			name = b.LoadNeg
		}
		if o.Loads[f.Kind], err = in.Functions.Get(name); err != nil {
			return nil, chk.Err("cannot get pressure of %q face:\n%w", f.Kind, err)
		}
	}
	if err = o.alloc(set); err != nil {
		return nil, err
	}
	return
}

// Solvers returns the fluid, structure and mesh motion solvers
func (o *Membrane) Solvers() (fluid *Fluid, structure *Structure, mesh *Mesh) {
	return o.fluid, o.struc, o.mesh
}

// Solution returns the vertical displacement of the coupled solution at time t (matching meshes)
func (o *Membrane) Solution(t float64) float64 {
	p := 0.0
	for kind, f := range o.Loads {
		if kind == inp.FaceNegative {
			p -= f.F(t, nil)
		} else {
			p += f.F(t, nil)
		}
	}
	return p / (o.K + float64(len(o.Faces))*o.C)
}

// Partition returns the range [start, end) of the n points owned by worker rank among size
func Partition(n, rank, size int) (start, end int) {
	base, rem := n/size, n%size
	start = rank*base + utl.Imin(rank, rem)
	end = start + base
	if rank < rem {
		end++
	}
	return
}

// auxiliary ///////////////////////////////////////////////////////////////////////////////////////

// alloc allocates the solvers with their local interfaces
func (o *Membrane) alloc(set inp.Settings) (err error) {
	o.struc = &Structure{clock: newClock(o.Dt, set.StructureBufferSize), K: o.K}
	o.struc.set, o.struc.area, err = o.points(set.Faces[0].Structure, o.Ns, 0)
	if err != nil {
		return
	}
	o.struc.disp = itf.NewField(o.struc.set, 2)
	o.struc.load = itf.NewField(o.struc.set, 2)
	o.fluid = &Fluid{clock: newClock(o.Dt, set.FluidBufferSize), C: o.C, faces: make(map[string]*face)}
	for k, f := range set.Faces {
		fc := &face{kind: f.Kind, p: o.Loads[f.Kind], n: []float64{0, 1}}
		if f.Kind == inp.FaceNegative {
			fc.n[1] = -1
		}
		fc.set, fc.area, err = o.points(f.Fluid, o.Nf, 1000*(k+1))
		if err != nil {
			return
		}
		fc.u = itf.NewField(fc.set, 2)
		fc.uOld = itf.NewField(fc.set, 2)
		fc.w = itf.NewField(fc.set, 2)
		fc.v = itf.NewField(fc.set, 2)
		fc.reac = itf.NewField(fc.set, 2)
		o.fluid.faces[f.Fluid] = fc
		o.fluid.order = append(o.fluid.order, f.Fluid)
	}
	o.mesh = &Mesh{clock: newClock(o.Dt, 2), fluid: o.fluid}
	return
}

// points returns the local part of n equally spaced points and their tributary lengths
func (o *Membrane) points(name string, n, firstId int) (set *itf.PointSet, area []float64, err error) {
	start, end := Partition(n, o.Rank, o.Nproc)
	h := o.L / float64(n-1)
	ids := make([]int, 0, end-start)
	X := make([][]float64, 0, end-start)
	for j := start; j < end; j++ {
		ids = append(ids, firstId+j)
		X = append(X, []float64{float64(j) * h, 0})
		a := h
		if j == 0 || j == n-1 {
			a = h / 2
		}
		area = append(area, a)
	}
	set, err = itf.NewPointSet(name, 2, ids, X)
	return
}
