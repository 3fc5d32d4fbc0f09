// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package acc

import (
	"github.com/cpmech/gosl/la"
	"github.com/yamanatoo/Kratos/inp"
	"gonum.org/v1/gonum/mat"
)

// MVQN implements the multi-vector quasi-Newton method with a full inverse Jacobian
type MVQN struct {
	W0         float64 // relaxation factor used when no Jacobian information is available
	BufferSize int     // maximum number of columns of one step
	Persistent bool    // keep the inverse Jacobian across time steps
	CutOffTol  float64 // residual differences with smaller norm are discarded

	mPrev         *mat.Dense // inverse Jacobian of previous steps; nil means -I
	m             *mat.Dense // inverse Jacobian of this step
	cols          window     // columns of this step; newest first
	pendV, pendW  la.Vector  // columns formed by the last update
	rPrev, xtPrev la.Vector  // residual and output of the previous iteration
	stats         Stats
}

// add allocator to database
func init() {
	allocators["mvqn"] = func(dat inp.AcceleratorData) Accelerator {
		return &MVQN{W0: dat.W0, BufferSize: dat.BufferSize, Persistent: dat.Persistent, CutOffTol: dat.CutOffTol}
	}
}

func (o *MVQN) Initialize() error {
	o.mPrev, o.m = nil, nil
	return nil
}

// InitializeSolutionStep clears the columns of the previous step
func (o *MVQN) InitializeSolutionStep() {
	o.cols.clear()
	o.m = nil
	o.rPrev, o.xtPrev = nil, nil
	o.pendV, o.pendW = nil, nil
	if !o.Persistent {
		o.mPrev = nil
	}
}

func (o *MVQN) InitializeNonLinearIteration() {}

// FinalizeNonLinearIteration commits the columns formed by the last update
func (o *MVQN) FinalizeNonLinearIteration() {
	if o.pendV != nil {
		o.cols.push(o.pendV, o.pendW, o.BufferSize)
	}
	o.pendV, o.pendW = nil, nil
}

// FinalizeSolutionStep keeps the inverse Jacobian for the next step if persistent
func (o *MVQN) FinalizeSolutionStep() {
	if o.Persistent && o.m != nil {
		o.mPrev = o.m
	}
}

func (o *MVQN) Stats() Stats {
	o.stats.Columns = len(o.cols.V)
	return o.stats
}

// Jacobian returns the current inverse Jacobian estimate (nil if unavailable)
func (o *MVQN) Jacobian() *mat.Dense {
	if o.m != nil {
		return o.m
	}
	return o.mPrev
}

// UpdateSolution returns x - M r
func (o *MVQN) UpdateSolution(r, x la.Vector) la.Vector {
	o.stats.Updates++
	n := len(r)
	xt := la.NewVector(n)
	la.VecAdd(xt, 1, x, 1, r)
	o.pendV, o.pendW = candidate(r, xt, o.rPrev, o.xtPrev, o.CutOffTol)
	o.rPrev, o.xtPrev = r.GetCopy(), xt

	// previous inverse Jacobian
	base := o.mPrev
	if base != nil {
		if rows, _ := base.Dims(); rows != n {
			base = nil
		}
	}

	// no columns yet
	V, W := o.cols.with(o.pendV, o.pendW, n, o.BufferSize)
	if len(V) == 0 {
		if base == nil {
			return relax(o.W0, r, x)
		}
		return o.apply(base, r, x)
	}

	// M = base + (W - V - base V) V⁺
	Vm, Wm := columns(n, V), columns(n, W)
	Vp, err := pinv(Vm)
	if err != nil {
		o.stats.Fallbacks++
		return relax(o.W0, r, x)
	}
	if base == nil {
		base = mat.NewDense(n, n, nil)
		for i := 0; i < n; i++ {
			base.Set(i, i, -1)
		}
	}
	var R, BV, M mat.Dense
	BV.Mul(base, Vm)
	R.Sub(Wm, Vm)
	R.Sub(&R, &BV)
	M.Mul(&R, Vp)
	M.Add(base, &M)
	if !finite(M.RawMatrix().Data) {
		o.stats.Fallbacks++
		return relax(o.W0, r, x)
	}
	o.m = &M
	return o.apply(o.m, r, x)
}

// apply returns x - M r
func (o *MVQN) apply(M *mat.Dense, r, x la.Vector) la.Vector {
	var Mr mat.VecDense
	Mr.MulVec(M, mat.NewVecDense(len(r), r.GetCopy()))
	res := x.GetCopy()
	for i := range res {
		res[i] -= Mr.AtVec(i)
	}
	return res
}
