// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package itf

// Variable identifies an interface-resident field exchanged with a physics solver
type Variable int

const (
	Displacement     Variable = iota // structure displacement
	PointLoad                        // structure load applied at interface points
	Reaction                         // fluid reaction (traction integrated at points)
	MeshDisplacement                 // fluid mesh displacement
	MeshVelocity                     // fluid mesh velocity
	Velocity                         // fluid velocity
)

var varnames = []string{"DISPLACEMENT", "POINT_LOAD", "REACTION", "MESH_DISPLACEMENT", "MESH_VELOCITY", "VELOCITY"}

func (v Variable) String() string {
	if v < 0 || int(v) >= len(varnames) {
		return "UNKNOWN"
	}
	return varnames[v]
}

// InfoKey identifies an integer entry in the solvers' shared process information
type InfoKey int

const (
	InfoStep        InfoKey = iota // time step index
	InfoNlIteration                // coupling non-linear iteration index (1-based)
)

func (k InfoKey) String() string {
	switch k {
	case InfoStep:
		return "STEP"
	case InfoNlIteration:
		return "CONVERGENCE_ACCELERATOR_ITERATION"
	}
	return "UNKNOWN"
}
