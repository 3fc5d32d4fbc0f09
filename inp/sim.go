// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package inp implements the input data of coupled simulations read from JSON or YAML files
package inp

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/cpmech/gosl/chk"
	"gopkg.in/yaml.v3"
)

// ProblemData holds global data for the coupled simulation
type ProblemData struct {
	Desc      string  `json:"desc"       yaml:"desc"`       // description of simulation
	StartTime *float64 `json:"start_time" yaml:"start_time"` // initial time; nil => use subdomains' start time
	EndTime   float64 `json:"end_time"   yaml:"end_time"`   // final time; 0 => use subdomains' end time
	EchoLevel int     `json:"echo_level" yaml:"echo_level"` // 0: quiet, 1: steps, 2: iterations
}

// SubdomainData holds the time stepping data of one physics solver (fluid or structure)
type SubdomainData struct {
	StartTime         float64 `json:"start_time"          yaml:"start_time"`          // initial time
	EndTime           float64 `json:"end_time"            yaml:"end_time"`            // final time
	TimeStep          float64 `json:"time_step"           yaml:"time_step"`           // time step size
	AutomaticTimeStep bool    `json:"automatic_time_step" yaml:"automatic_time_step"` // adaptive time stepping requested
	BufferSize        int     `json:"buffer_size"         yaml:"buffer_size"`         // minimum history depth requested by the solver
}

// MapperData holds one entry of mapper_settings
type MapperData struct {
	FluidInterface     string `json:"fluid_interface"     yaml:"fluid_interface"`     // name of fluid interface point set
	StructureInterface string `json:"structure_interface" yaml:"structure_interface"` // name of structure interface point set
	Face               string `json:"face"                yaml:"face"`                // "Unique", "Positive" or "Negative"; empty => Unique
}

// MapperInput holds the geometric search parameters of the interface mapper
type MapperInput struct {
	SearchRadiusFactor float64 `json:"search_radius_factor" yaml:"search_radius_factor"` // initial radius = factor × local length
	MaxIterations      int     `json:"max_iterations"       yaml:"max_iterations"`       // max number of radius doublings
	Tolerance          *float64 `json:"tolerance"            yaml:"tolerance"`            // distance below which points coincide
	MaxDonors          int     `json:"max_donors"           yaml:"max_donors"`           // max number of donors per target point
	MissPolicy         string  `json:"miss_policy"          yaml:"miss_policy"`          // "abort" or "nearest"
	RefreshEachStep    bool    `json:"refresh_each_step"    yaml:"refresh_each_step"`    // recompute search with displaced coordinates
}

// StrategyInput holds the convergence accelerator (coupling strategy) data
type StrategyInput struct {
	Type       string  `json:"type"        yaml:"type"`        // "constant", "aitken", "iqnils" or "mvqn"
	W0         float64 `json:"w_0"         yaml:"w_0"`         // (initial) relaxation factor
	Wmin       *float64 `json:"w_min"       yaml:"w_min"`       // aitken: lower bound of first relaxation factor
	Wmax       float64 `json:"w_max"       yaml:"w_max"`       // aitken: upper bound of first relaxation factor
	BufferSize int     `json:"buffer_size" yaml:"buffer_size"` // iqnils/mvqn: max number of stored columns
	Persistent *bool   `json:"persistent"  yaml:"persistent"`  // iqnils/mvqn: keep history across time steps
	CutOffTol  *float64 `json:"cut_off_tol" yaml:"cut_off_tol"` // iqnils/mvqn: drop columns with smaller norm
}

// CouplingInput holds the coupling solver settings
type CouplingInput struct {
	MaxNlIt                  int           `json:"max_nl_it"                    yaml:"max_nl_it"`                    // iteration cap
	NlTol                    float64       `json:"nl_tol"                       yaml:"nl_tol"`                       // residual tolerance
	SolveMeshAtEachIteration *bool         `json:"solve_mesh_at_each_iteration" yaml:"solve_mesh_at_each_iteration"` // default true
	CouplingScheme           string        `json:"coupling_scheme"              yaml:"coupling_scheme"`              // default "dirichlet_neumann"
	ComputeMeshResidual      *bool         `json:"compute_mesh_residual"        yaml:"compute_mesh_residual"`        // default true
	MapperSettings           []*MapperData `json:"mapper_settings"              yaml:"mapper_settings"`              // one (single-faced) or two (double-faced) entries
	Mapper                   MapperInput   `json:"mapper"                       yaml:"mapper"`                       // search parameters
	CouplingStrategy         StrategyInput `json:"coupling_strategy"            yaml:"coupling_strategy"`            // accelerator
}

// BenchmarkData holds the data of the synthetic membrane benchmark solvers (package ana).
// Zero values mean "use default"
type BenchmarkData struct {
	Length     float64 `json:"length"      yaml:"length"`      // length of membrane; default 1
	Nfluid     int     `json:"nfluid"      yaml:"nfluid"`      // number of points of each fluid face; default 11
	Nstructure int     `json:"nstructure"  yaml:"nstructure"`  // number of structure interface points; default 11
	Stiffness  float64 `json:"stiffness"   yaml:"stiffness"`   // membrane stiffness per unit length; default 10
	Feedback   float64 `json:"feedback"    yaml:"feedback"`    // added-mass-like pressure feedback coefficient; default 8
	Load       string  `json:"load"        yaml:"load"`        // name of pressure function on unique/positive face
	LoadNeg    string  `json:"load_neg"    yaml:"load_neg"`    // name of pressure function on negative face
}

// Input holds all data of a coupled simulation as read from file. Zero values mean "use default".
// Input is never modified by this package; see Resolve.
type Input struct {
	ProblemData ProblemData   `json:"problem_data"              yaml:"problem_data"`
	Fluid       SubdomainData `json:"fluid_solver_settings"     yaml:"fluid_solver_settings"`
	Structure   SubdomainData `json:"structure_solver_settings" yaml:"structure_solver_settings"`
	Coupling    CouplingInput `json:"coupling_solver_settings"  yaml:"coupling_solver_settings"`
	Functions   FuncsData     `json:"functions"                 yaml:"functions"` // time functions; e.g. pressure loads
	Benchmark   BenchmarkData `json:"benchmark"                 yaml:"benchmark"` // synthetic membrane benchmark; optional
}

// ReadInput reads an Input from a .json, .yaml or .yml file
func ReadInput(fnpath string) (in *Input, err error) {
	b, err := os.ReadFile(os.ExpandEnv(fnpath))
	if err != nil {
		return nil, chk.Err("cannot read input file %q:\n%v", fnpath, err)
	}
	switch strings.ToLower(filepath.Ext(fnpath)) {
	case ".yaml", ".yml":
		in, err = DecodeYAML(b)
	default:
		in, err = DecodeJSON(b)
	}
	if err != nil {
		return nil, chk.Err("cannot decode input file %q:\n%w", fnpath, err)
	}
	return
}

// DecodeJSON decodes an Input from JSON bytes. Unknown keys are rejected
func DecodeJSON(b []byte) (in *Input, err error) {
	in = new(Input)
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err = dec.Decode(in); err != nil {
		return nil, chk.Err("%v: %w", err, ErrConfig)
	}
	return
}

// DecodeYAML decodes an Input from YAML bytes. Unknown keys are rejected
func DecodeYAML(b []byte) (in *Input, err error) {
	in = new(Input)
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err = dec.Decode(in); err != nil {
		return nil, chk.Err("%v: %w", err, ErrConfig)
	}
	return
}
