// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package inp

import (
	"errors"
	"math"

	"github.com/cpmech/gosl/chk"
	"github.com/go-playground/validator/v10"
)

// ErrConfig indicates an invalid or inconsistent configuration. It is fatal and
// raised before any time stepping begins
var ErrConfig = errors.New("configuration error")

// face kinds
const (
	FaceUnique   = "Unique"
	FacePositive = "Positive"
	FaceNegative = "Negative"
)

// miss policies
const (
	MissAbort   = "abort"
	MissNearest = "nearest"
)

// coupling schemes
const (
	SchemeDirichletNeumann = "dirichlet_neumann"
)

// FaceData holds one resolved mapper entry
type FaceData struct {
	Fluid     string `validate:"required"`
	Structure string `validate:"required"`
	Kind      string `validate:"oneof=Unique Positive Negative"`
}

// MapperParams holds resolved mapper parameters
type MapperParams struct {
	SearchRadiusFactor float64 `validate:"gt=0"`
	MaxIterations      int     `validate:"gte=1"`
	Tolerance          float64 `validate:"gte=0"`
	MaxDonors          int     `validate:"gte=1"`
	MissPolicy         string  `validate:"oneof=abort nearest"`
	RefreshEachStep    bool
}

// AcceleratorData holds resolved convergence accelerator parameters
type AcceleratorData struct {
	Type       string  `validate:"oneof=constant aitken iqnils mvqn"`
	W0         float64 `validate:"gt=0"`
	Wmin       float64 `validate:"gte=0"`
	Wmax       float64 `validate:"gtefield=Wmin"`
	BufferSize int     `validate:"gte=1"`
	Persistent bool
	CutOffTol  float64 `validate:"gte=0"`
}

// Settings holds the resolved configuration of a coupled simulation.
// It is built by Resolve and passed around by value.
type Settings struct {

	// time stepping
	Desc                  string
	StartTime             float64
	EndTime               float64 `validate:"gtfield=StartTime"`
	TimeStep              float64 `validate:"gt=0"`
	TimeStepFromStructure bool // fluid requested automatic time stepping, which is disabled
	EchoLevel             int

	// subdomains
	FluidBufferSize     int `validate:"gte=1"`
	StructureBufferSize int `validate:"gte=1"`

	// coupling
	MaxNlIt                  int     `validate:"gte=1"`
	NlTol                    float64 `validate:"gt=0"`
	SolveMeshAtEachIteration bool
	CouplingScheme           string     `validate:"oneof=dirichlet_neumann"`
	ComputeMeshResidual      bool
	Faces                    []FaceData `validate:"min=1,max=2,dive"`
	Mapper                   MapperParams
	Accelerator              AcceleratorData
}

// DoubleFaced tells whether the structure interface is seen by two fluid faces
func (o Settings) DoubleFaced() bool { return len(o.Faces) == 2 }

// Face returns the face data of the given kind
func (o Settings) Face(kind string) (f FaceData, found bool) {
	for _, f = range o.Faces {
		if f.Kind == kind {
			return f, true
		}
	}
	return FaceData{}, false
}

var validate = validator.New()

// Resolve merges defaults into a copy of the input and checks consistency.
// The input is not modified. Errors wrap ErrConfig.
func Resolve(in Input) (o Settings, err error) {

	// time stepping
	fl, st := in.Fluid, in.Structure
	if fl.StartTime != st.StartTime {
		return o, chk.Err("different initial time among subdomains: fluid=%g structure=%g: %w", fl.StartTime, st.StartTime, ErrConfig)
	}
	if fl.EndTime != st.EndTime {
		return o, chk.Err("different final time among subdomains: fluid=%g structure=%g: %w", fl.EndTime, st.EndTime, ErrConfig)
	}
	o.TimeStep = st.TimeStep
	if fl.AutomaticTimeStep {
		o.TimeStepFromStructure = true
	} else if fl.TimeStep != st.TimeStep {
		return o, chk.Err("different time step among subdomains: fluid=%g structure=%g (no sub-stepping): %w", fl.TimeStep, st.TimeStep, ErrConfig)
	}
	o.Desc = in.ProblemData.Desc
	o.StartTime = fpick(in.ProblemData.StartTime, st.StartTime)
	o.EndTime = Pick(in.ProblemData.EndTime, st.EndTime)
	o.EchoLevel = in.ProblemData.EchoLevel
	o.FluidBufferSize = Ipick(fl.BufferSize, 1)
	o.StructureBufferSize = Ipick(st.BufferSize, 1)

	// coupling
	cp := in.Coupling
	o.MaxNlIt = Ipick(cp.MaxNlIt, 25)
	o.NlTol = Pick(cp.NlTol, 1e-6)
	o.SolveMeshAtEachIteration = bpick(cp.SolveMeshAtEachIteration, true)
	o.ComputeMeshResidual = bpick(cp.ComputeMeshResidual, true)
	o.CouplingScheme = cp.CouplingScheme
	if o.CouplingScheme == "" {
		o.CouplingScheme = SchemeDirichletNeumann
	}

	// faces
	for i, m := range cp.MapperSettings {
		if m == nil {
			return o, chk.Err("mapper_settings[%d] is empty: %w", i, ErrConfig)
		}
	}
	switch len(cp.MapperSettings) {
	case 1:
		m := cp.MapperSettings[0]
		if m.Face != "" && m.Face != FaceUnique {
			return o, chk.Err("single mapper must have face %q; %q is invalid: %w", FaceUnique, m.Face, ErrConfig)
		}
		o.Faces = []FaceData{{Fluid: m.FluidInterface, Structure: m.StructureInterface, Kind: FaceUnique}}
	case 2:
		o.Faces = make([]FaceData, 2)
		for i, m := range cp.MapperSettings {
			o.Faces[i] = FaceData{Fluid: m.FluidInterface, Structure: m.StructureInterface, Kind: m.Face}
		}
		_, hasPos := o.Face(FacePositive)
		_, hasNeg := o.Face(FaceNegative)
		if !hasPos || !hasNeg {
			return o, chk.Err("double-faced structure requires one %q and one %q mapper: %w", FacePositive, FaceNegative, ErrConfig)
		}
		if o.Faces[0].Structure != o.Faces[1].Structure {
			return o, chk.Err("both faces must map to the same structure interface: %q != %q: %w", o.Faces[0].Structure, o.Faces[1].Structure, ErrConfig)
		}
	default:
		return o, chk.Err("number of mappers must be 1 (single-faced) or 2 (double-faced). %d is not supported: %w", len(cp.MapperSettings), ErrConfig)
	}

	// mapper
	mi := cp.Mapper
	o.Mapper = MapperParams{
		SearchRadiusFactor: Pick(mi.SearchRadiusFactor, 2.0),
		MaxIterations:      Ipick(mi.MaxIterations, 200),
		Tolerance:          fpick(mi.Tolerance, 1e-12),
		MaxDonors:          Ipick(mi.MaxDonors, 4),
		MissPolicy:         mi.MissPolicy,
		RefreshEachStep:    mi.RefreshEachStep,
	}
	if o.Mapper.MissPolicy == "" {
		o.Mapper.MissPolicy = MissAbort
	}

	// accelerator
	o.Accelerator, err = ResolveStrategy(cp.CouplingStrategy)
	if err != nil {
		return
	}

	// validate
	if err = validate.Struct(o); err != nil {
		return o, chk.Err("invalid settings:\n%v: %w", err, ErrConfig)
	}
	return
}

// ResolveStrategy merges the defaults of the selected accelerator type into a copy of s
func ResolveStrategy(s StrategyInput) (o AcceleratorData, err error) {
	o.Type = s.Type
	if o.Type == "" {
		o.Type = "aitken"
	}
	w0, persistent := 0.825, false
	switch o.Type {
	case "constant":
		w0 = 0.5
	case "aitken", "iqnils":
	case "mvqn":
		persistent = true
	default:
		return o, chk.Err("unknown convergence accelerator %q. available: constant, aitken, iqnils, mvqn: %w", o.Type, ErrConfig)
	}
	o.W0 = Pick(s.W0, w0)
	o.Wmin = fpick(s.Wmin, 0.01)
	o.Wmax = Pick(s.Wmax, 1.0)
	o.BufferSize = Ipick(s.BufferSize, 10)
	o.Persistent = bpick(s.Persistent, persistent)
	o.CutOffTol = fpick(s.CutOffTol, 1e-8)
	if err = validate.Struct(o); err != nil {
		return o, chk.Err("invalid coupling strategy:\n%v: %w", err, ErrConfig)
	}
	return
}

// auxiliary ///////////////////////////////////////////////////////////////////////////////////////

// Pick returns def if v is zero; i.e. zero means "use default"
func Pick(v, def float64) float64 {
	if math.Abs(v) < 1e-300 {
		return def
	}
	return v
}

// Ipick returns def if v is zero
func Ipick(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func fpick(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func bpick(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
