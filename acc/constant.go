// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package acc

import (
	"github.com/cpmech/gosl/la"
	"github.com/yamanatoo/Kratos/inp"
)

// Constant implements relaxation with a fixed factor
type Constant struct {
	W     float64 // relaxation factor
	stats Stats
}

// add allocator to database
func init() {
	allocators["constant"] = func(dat inp.AcceleratorData) Accelerator { return &Constant{W: dat.W0} }
}

func (o *Constant) Initialize() error             { return nil }
func (o *Constant) InitializeSolutionStep()       {}
func (o *Constant) InitializeNonLinearIteration() {}
func (o *Constant) FinalizeNonLinearIteration()   {}
func (o *Constant) FinalizeSolutionStep()         {}
func (o *Constant) Stats() Stats                  { return o.stats }

// UpdateSolution returns x + ω r
func (o *Constant) UpdateSolution(r, x la.Vector) la.Vector {
	o.stats.Updates++
	return relax(o.W, r, x)
}
