// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package acc implements convergence accelerators for fixed-point coupling iterations
/*
 *   iterate x_k --> solvers --> output x̃_k ; residual r_k = x̃_k - x_k
 *
 *   constant:  x_{k+1} = x_k + ω r_k
 *   aitken:    x_{k+1} = x_k + ω_k r_k ;  ω_k = -ω_{k-1} r_{k-1}・Δr / |Δr|²
 *   iqnils:    x_{k+1} = x_k + W c + r_k ;  c = argmin |V c + r_k|
 *   mvqn:      x_{k+1} = x_k - M r_k ;  M = M_prev + (W - V - M_prev V) V⁺
 *
 *   V: differences of residuals;  W: differences of outputs
 */
package acc

import (
	"math"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/la"
	"github.com/yamanatoo/Kratos/inp"
)

// Accelerator defines convergence accelerators. Implementations keep only their own history;
// the vectors given to UpdateSolution are never modified.
type Accelerator interface {
	Initialize() error                       // called once before the time loop
	InitializeSolutionStep()                 // called at the beginning of each time step
	InitializeNonLinearIteration()           // called at the beginning of each coupling iteration
	UpdateSolution(r, x la.Vector) la.Vector // returns the next iterate given residual r and iterate x
	FinalizeNonLinearIteration()             // called at the end of each coupling iteration
	FinalizeSolutionStep()                   // called at the end of each time step
	Stats() Stats                            // returns counters
}

// Stats holds counters of an accelerator
type Stats struct {
	Updates   int // number of calls to UpdateSolution
	Fallbacks int // number of updates that reverted to ω₀-relaxation
	Columns   int // number of stored columns (quasi-Newton)
}

// New returns a new accelerator
func New(dat inp.AcceleratorData) (o Accelerator, err error) {
	allocator, ok := allocators[dat.Type]
	if !ok {
		return nil, chk.Err("convergence accelerator %q is not available in 'acc' database: %w", dat.Type, inp.ErrConfig)
	}
	return allocator(dat), nil
}

// allocators holds all available accelerators; type => allocator
var allocators = map[string]func(dat inp.AcceleratorData) Accelerator{}

// auxiliary ///////////////////////////////////////////////////////////////////////////////////////

// relax returns x + ω r
func relax(ω float64, r, x la.Vector) (res la.Vector) {
	res = la.NewVector(len(x))
	la.VecAdd(res, 1, x, ω, r)
	return
}

// finite tells whether all values are finite
func finite(v []float64) bool {
	for _, a := range v {
		if math.IsNaN(a) || math.IsInf(a, 0) {
			return false
		}
	}
	return true
}
