// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package fsi implements the partitioned coupling of fluid and structure solvers
package fsi

import "github.com/yamanatoo/Kratos/itf"

// Solver defines the lifecycle of a physics solver (fluid, structure or mesh motion).
// Every method is a blocking collective among the workers of the solver.
type Solver interface {
	AdvanceInTime(t float64) (float64, error) // advances internal time and returns the new time
	Predict() error                           // predicts the solution of the new step
	InitializeSolutionStep() error            // prepares the new step
	SolveSolutionStep() error                 // solves the current step with the current boundary values
	FinalizeSolutionStep() error              // accepts the current step
	Check() error                             // checks the solver data
	Clear() error                             // releases resources

	GetComputingModelPart() any       // returns the active domain (opaque)
	GetMinimumBufferSize() int        // returns the history depth required by the time integrator
	SetBufferSize(n int)              // sets the history depth
	SetInfo(key itf.InfoKey, val int) // writes an entry of the shared process information

	GetInterface(name string) (*itf.PointSet, error)                   // returns the local points of an interface
	GetValues(v itf.Variable, set *itf.PointSet, dst *itf.Field) error // reads interface values
	SetValues(v itf.Variable, set *itf.PointSet, src *itf.Field) error // writes interface values
}
