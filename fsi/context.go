// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fsi

import "github.com/cpmech/gosl/la"

// Phase defines the state of the coupling within a time step
type Phase int

const (
	Idle                 Phase = iota // between time steps
	Predicting                        // solver predictors and mesh prediction
	Solving                           // mesh, fluid and structure solves of one iteration
	ResidualCheck                     // residual computed; deciding
	Converged                         // residual below tolerance
	NextIteration                     // iterate corrected by the accelerator
	MaxIterationsReached              // iteration cap reached without convergence
)

var phaseNames = []string{"Idle", "Predicting", "Solving", "ResidualCheck", "Converged", "NextIteration", "MaxIterationsReached"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "Unknown"
	}
	return phaseNames[p]
}

// TimeStepContext holds the time stepping data. Only the orchestrator modifies it
type TimeStepContext struct {
	Time      float64 // current time
	Dt        float64 // current time step size
	Step      int     // time step index
	Iteration int     // coupling iteration index (1-based; 0 before the loop)
	Converged bool    // convergence flag of current step
	Phase     Phase   // state of current step
}

// IterationState holds the interface vectors of the coupling iterations of one time step.
// Vectors hold the local values of all fluid faces: [positive; negative] if double-faced.
type IterationState struct {
	Iterate   la.Vector // current iterate: fluid interface mesh displacement
	Previous  la.Vector // iterate of previous iteration
	Projected la.Vector // structure displacement mapped onto the fluid interface
	Residual  la.Vector // Projected - Iterate
	Norms     []float64 // normalised residual norms |res|/sqrt(ndofs) of each iteration
}

// reset clears the state for a new time step
func (o *IterationState) reset(n int) {
	o.Iterate = la.NewVector(n)
	o.Previous = la.NewVector(n)
	o.Projected = la.NewVector(n)
	o.Residual = la.NewVector(n)
	o.Norms = nil
}

// StepResult holds the diagnostics of one time step
type StepResult struct {
	Step         int       `json:"step"          yaml:"step"`
	Time         float64   `json:"time"          yaml:"time"`
	Iterations   int       `json:"iterations"    yaml:"iterations"`
	Converged    bool      `json:"converged"     yaml:"converged"`
	Residuals    []float64 `json:"residuals"     yaml:"residuals"`
	MeshResidual float64   `json:"mesh_residual" yaml:"mesh_residual"`
	Fallbacks    int       `json:"fallbacks"     yaml:"fallbacks"`
}

// Residual returns the last residual norm
func (o StepResult) Residual() float64 {
	if len(o.Residuals) == 0 {
		return 0
	}
	return o.Residuals[len(o.Residuals)-1]
}
