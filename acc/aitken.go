// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package acc

import (
	"math"

	"github.com/cpmech/gosl/la"
	"github.com/cpmech/gosl/utl"
	"github.com/yamanatoo/Kratos/inp"
)

// Aitken implements dynamic relaxation with Aitken's Δ² factor
type Aitken struct {
	W0, Wmin, Wmax float64 // initial factor and bounds of first factor of each step

	ω     float64   // current factor
	rPrev la.Vector // residual of previous iteration; nil at the beginning of a step
	stats Stats
}

// add allocator to database
func init() {
	allocators["aitken"] = func(dat inp.AcceleratorData) Accelerator {
		return &Aitken{W0: dat.W0, Wmin: dat.Wmin, Wmax: dat.Wmax}
	}
}

func (o *Aitken) Initialize() error {
	o.ω = o.W0
	return nil
}

// InitializeSolutionStep resets the relaxation factor
func (o *Aitken) InitializeSolutionStep() {
	o.ω = o.W0
	o.rPrev = nil
}

func (o *Aitken) InitializeNonLinearIteration() {}
func (o *Aitken) FinalizeNonLinearIteration()   {}
func (o *Aitken) FinalizeSolutionStep()         {}
func (o *Aitken) Stats() Stats                  { return o.stats }

// Factor returns the current relaxation factor
func (o *Aitken) Factor() float64 { return o.ω }

// UpdateSolution returns x + ω r with ω updated by Aitken's formula
func (o *Aitken) UpdateSolution(r, x la.Vector) la.Vector {
	o.stats.Updates++
	if o.rPrev == nil {
		o.ω = utl.Min(utl.Max(o.W0, o.Wmin), o.Wmax)
	} else {
		Δr := la.NewVector(len(r))
		la.VecAdd(Δr, 1, r, -1, o.rPrev)
		den := la.VecDot(Δr, Δr)
		if den > 0 {
			ω := -o.ω * la.VecDot(o.rPrev, Δr) / den
			if math.IsNaN(ω) || math.IsInf(ω, 0) {
				o.stats.Fallbacks++
				ω = o.W0
			}
			o.ω = ω
		}
	}
	o.rPrev = r.GetCopy()
	return relax(o.ω, r, x)
}
