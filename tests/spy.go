// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tests

import (
	"github.com/cpmech/gosl/la"
	"github.com/yamanatoo/Kratos/acc"
)

// Spy wraps an accelerator and counts the calls it receives.
// With a nil Inner, UpdateSolution returns x + r (plain fixed-point iterations).
type Spy struct {
	Inner      acc.Accelerator // accelerator doing the actual work; may be nil
	Inits      int             // number of InitializeSolutionStep calls
	Updates    int             // number of UpdateSolution calls
	IterInits  int             // number of InitializeNonLinearIteration calls
	IterFinals int             // number of FinalizeNonLinearIteration calls
	Finals     int             // number of FinalizeSolutionStep calls
	Residuals  []la.Vector     // copies of residuals given to UpdateSolution
}

func (o *Spy) Initialize() error {
	if o.Inner != nil {
		return o.Inner.Initialize()
	}
	return nil
}

func (o *Spy) InitializeSolutionStep() {
	o.Inits++
	if o.Inner != nil {
		o.Inner.InitializeSolutionStep()
	}
}

func (o *Spy) InitializeNonLinearIteration() {
	o.IterInits++
	if o.Inner != nil {
		o.Inner.InitializeNonLinearIteration()
	}
}

func (o *Spy) UpdateSolution(r, x la.Vector) (res la.Vector) {
	o.Updates++
	o.Residuals = append(o.Residuals, r.GetCopy())
	if o.Inner != nil {
		return o.Inner.UpdateSolution(r, x)
	}
	res = la.NewVector(len(x))
	la.VecAdd(res, 1, x, 1, r)
	return
}

func (o *Spy) FinalizeNonLinearIteration() {
	o.IterFinals++
	if o.Inner != nil {
		o.Inner.FinalizeNonLinearIteration()
	}
}

func (o *Spy) FinalizeSolutionStep() {
	o.Finals++
	if o.Inner != nil {
		o.Inner.FinalizeSolutionStep()
	}
}

func (o *Spy) Stats() acc.Stats {
	if o.Inner != nil {
		return o.Inner.Stats()
	}
	return acc.Stats{Updates: o.Updates}
}
