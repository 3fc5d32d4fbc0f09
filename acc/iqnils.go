// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package acc

import (
	"github.com/cpmech/gosl/la"
	"github.com/yamanatoo/Kratos/inp"
)

// IQNILS implements the interface quasi-Newton method with inverse Jacobian from a least-squares model
type IQNILS struct {
	W0         float64 // relaxation factor used when no columns are available
	BufferSize int     // maximum number of stored columns
	Persistent bool    // keep columns across time steps
	CutOffTol  float64 // residual differences with smaller norm are discarded

	cols          window    // committed columns; newest first
	pendV, pendW  la.Vector // columns formed by the last update; committed at the end of the iteration
	rPrev, xtPrev la.Vector // residual and output of the previous iteration of this step
	stats         Stats
}

// add allocator to database
func init() {
	allocators["iqnils"] = func(dat inp.AcceleratorData) Accelerator {
		return &IQNILS{W0: dat.W0, BufferSize: dat.BufferSize, Persistent: dat.Persistent, CutOffTol: dat.CutOffTol}
	}
}

func (o *IQNILS) Initialize() error {
	o.cols.clear()
	return nil
}

// InitializeSolutionStep forgets the previous iteration; also the columns if not persistent
func (o *IQNILS) InitializeSolutionStep() {
	o.rPrev, o.xtPrev = nil, nil
	o.pendV, o.pendW = nil, nil
	if !o.Persistent {
		o.cols.clear()
	}
}

func (o *IQNILS) InitializeNonLinearIteration() {}

// FinalizeNonLinearIteration commits the columns formed by the last update
func (o *IQNILS) FinalizeNonLinearIteration() {
	if o.pendV != nil {
		o.cols.push(o.pendV, o.pendW, o.BufferSize)
	}
	o.pendV, o.pendW = nil, nil
}

func (o *IQNILS) FinalizeSolutionStep() {}

func (o *IQNILS) Stats() Stats {
	o.stats.Columns = len(o.cols.V)
	return o.stats
}

// UpdateSolution returns x + W c + r with c = argmin |V c + r|
func (o *IQNILS) UpdateSolution(r, x la.Vector) la.Vector {
	o.stats.Updates++
	n := len(r)
	xt := la.NewVector(n)
	la.VecAdd(xt, 1, x, 1, r)
	o.pendV, o.pendW = candidate(r, xt, o.rPrev, o.xtPrev, o.CutOffTol)
	o.rPrev, o.xtPrev = r.GetCopy(), xt

	V, W := o.cols.with(o.pendV, o.pendW, n, o.BufferSize)
	if len(V) == 0 {
		return relax(o.W0, r, x)
	}
	mr := la.NewVector(n)
	for i := range r {
		mr[i] = -r[i]
	}
	c, err := lstsq(columns(n, V), mr)
	if err != nil {
		o.stats.Fallbacks++
		return relax(o.W0, r, x)
	}
	res := relax(1, r, x)
	for j, cj := range c {
		la.VecAdd(res, 1, res, cj, W[j])
	}
	return res
}
