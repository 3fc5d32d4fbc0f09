// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fsi

import (
	"math"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/la"
	"github.com/yamanatoo/Kratos/acc"
	"github.com/yamanatoo/Kratos/comm"
	"github.com/yamanatoo/Kratos/inp"
	"github.com/yamanatoo/Kratos/itf"
	"github.com/yamanatoo/Kratos/lgr"
	"github.com/yamanatoo/Kratos/mpr"
)

// Partitioned implements the Dirichlet-Neumann coupling of a fluid (with mesh motion) and a structure.
//
//   iterate: fluid interface mesh displacement
//   loop:    mesh → fluid → reaction ⇒ point load → structure → displacement ⇒ projected
//   residual = projected - iterate
//
type Partitioned struct {
	Set       inp.Settings    // resolved settings
	Fluid     Solver          // fluid solver
	Structure Solver          // structure solver
	Mesh      Solver          // mesh motion solver acting on the fluid domain
	Mapper    *mpr.Mapper     // interface mapper; available after Initialize
	Acc       acc.Accelerator // convergence accelerator

	comm    comm.Communicator
	log     *lgr.Logger
	metrics *Metrics

	ctx    TimeStepContext
	state  IterationState
	result StepResult

	fluidSets  []*itf.PointSet // local fluid interface points of each face: [unique] or [positive, negative]
	structSet  *itf.PointSet   // local structure interface points
	ndim       int             // space dimension
	nlocal     int             // local size of iterate
	ndofs      int             // global size of iterate
	bufferSize int             // negotiated buffer size
	fallbacks  int             // accelerator fallbacks before current step
}

// Option modifies a Partitioned solver at construction
type Option func(o *Partitioned)

// WithAccelerator replaces the accelerator selected by the settings
func WithAccelerator(a acc.Accelerator) Option { return func(o *Partitioned) { o.Acc = a } }

// WithCommunicator sets the communicator among workers
func WithCommunicator(c comm.Communicator) Option { return func(o *Partitioned) { o.comm = c } }

// WithLogger sets the logger
func WithLogger(l *lgr.Logger) Option { return func(o *Partitioned) { o.log = l } }

// WithMetrics sets the metrics recorder
func WithMetrics(m *Metrics) Option { return func(o *Partitioned) { o.metrics = m } }

// NewPartitioned returns a new coupled solver
func NewPartitioned(set inp.Settings, fluid, structure, mesh Solver, opts ...Option) (o *Partitioned, err error) {
	if set.CouplingScheme != inp.SchemeDirichletNeumann {
		return nil, chk.Err("coupling scheme %q is not available: %w", set.CouplingScheme, inp.ErrConfig)
	}
	o = &Partitioned{Set: set, Fluid: fluid, Structure: structure, Mesh: mesh, comm: comm.Serial{}, log: lgr.Discard()}
	for _, opt := range opts {
		opt(o)
	}
	if o.Acc == nil {
		o.Acc, err = acc.New(set.Accelerator)
		if err != nil {
			return nil, err
		}
	}
	if set.TimeStepFromStructure {
		o.log.Warn(true, "automatic fluid time stepping cannot be used; setting structure time step as fluid time step", "dt", set.TimeStep)
	}
	o.log.Info(true, "partitioned FSI solver constructed", "accelerator", set.Accelerator.Type, "faces", len(set.Faces))
	return
}

// Initialize negotiates buffer sizes, builds the mapper and initializes the accelerator (collective)
func (o *Partitioned) Initialize() (err error) {

	// buffer size
	o.bufferSize = o.GetMinimumBufferSize()
	o.Fluid.SetBufferSize(o.bufferSize)
	o.Structure.SetBufferSize(o.bufferSize)
	o.Mesh.SetBufferSize(o.bufferSize)

	// interfaces
	o.structSet, err = o.Structure.GetInterface(o.Set.Faces[0].Structure)
	if err != nil {
		return chk.Err("cannot get structure interface:\n%v", err)
	}
	o.ndim = o.structSet.Ndim
	o.fluidSets = make([]*itf.PointSet, 0, 2)
	for _, kind := range o.faceKinds() {
		face, _ := o.Set.Face(kind)
		s, e := o.Fluid.GetInterface(face.Fluid)
		if e != nil {
			return chk.Err("cannot get fluid interface of %q face:\n%v", kind, e)
		}
		if s.Ndim != o.ndim {
			return chk.Err("domain size mismatch: fluid interface %q has dimension %d but structure interface %q has %d: %w",
				s.Name, s.Ndim, o.structSet.Name, o.ndim, inp.ErrConfig)
		}
		o.fluidSets = append(o.fluidSets, s)
	}

	// mapper
	o.Mapper, err = mpr.New(o.Set.Mapper, o.Set.Faces, append([]*itf.PointSet{o.structSet}, o.fluidSets...), o.comm, o.log)
	if err != nil {
		return
	}

	// size of interface vectors
	o.nlocal = 0
	for _, s := range o.fluidSets {
		o.nlocal += s.Len() * o.ndim
	}
	o.ndofs = comm.SumInt(o.comm, o.nlocal)
	o.state.reset(o.nlocal)
	o.log.Info(true, "interface mapper set up", "fluid_dofs", o.ndofs, "double_faced", o.Set.DoubleFaced(), "buffer_size", o.bufferSize)

	// accelerator
	if err = o.Acc.Initialize(); err != nil {
		return chk.Err("cannot initialize convergence accelerator:\n%v", err)
	}
	o.ctx.Time = o.Set.StartTime
	o.ctx.Dt = o.Set.TimeStep
	return
}

// GetMinimumBufferSize returns the maximum of the buffer sizes required by all solvers
func (o *Partitioned) GetMinimumBufferSize() int {
	n := o.Fluid.GetMinimumBufferSize()
	if m := o.Structure.GetMinimumBufferSize(); m > n {
		n = m
	}
	if m := o.Mesh.GetMinimumBufferSize(); m > n {
		n = m
	}
	return n
}

// AdvanceInTime advances fluid, structure and mesh. Their new times must coincide
func (o *Partitioned) AdvanceInTime(t float64) (tnew float64, err error) {
	tf, err := o.Fluid.AdvanceInTime(t)
	if err != nil {
		return
	}
	ts, err := o.Structure.AdvanceInTime(t)
	if err != nil {
		return
	}
	if !sameTime(tf, ts) {
		return t, chk.Err("fluid new time is %g but structure new time is %g. no sub-stepping is available: fluid and structure times must coincide: %w", tf, ts, inp.ErrConfig)
	}
	tm, err := o.Mesh.AdvanceInTime(t)
	if err != nil {
		return
	}
	if !sameTime(tf, tm) {
		return t, chk.Err("fluid new time is %g but mesh new time is %g: %w", tf, tm, inp.ErrConfig)
	}
	o.ctx.Dt = tf - t
	o.ctx.Time = tf
	return tf, nil
}

// SetTimeStep sets the step index in fluid and structure
func (o *Partitioned) SetTimeStep(step int) {
	o.ctx.Step = step
	o.Fluid.SetInfo(itf.InfoStep, step)
	o.Structure.SetInfo(itf.InfoStep, step)
}

// InitializeSolutionStep initializes the step of all solvers and the accelerator
func (o *Partitioned) InitializeSolutionStep() (err error) {
	if o.Set.Mapper.RefreshEachStep {
		if err = o.refreshMapper(); err != nil {
			return
		}
	}
	for _, s := range []Solver{o.Fluid, o.Structure, o.Mesh} {
		if err = s.InitializeSolutionStep(); err != nil {
			return
		}
	}
	o.Acc.InitializeSolutionStep()
	o.state.reset(o.nlocal)
	o.ctx.Iteration = 0
	o.ctx.Converged = false
	o.ctx.Phase = Predicting
	o.result = StepResult{Step: o.ctx.Step, Time: o.ctx.Time}
	o.fallbacks = o.Acc.Stats().Fallbacks
	return
}

// Predict runs the solver predictors and the mesh prediction; i.e. one exchange with frozen loads
func (o *Partitioned) Predict() (err error) {
	o.ctx.Phase = Predicting
	if err = o.Fluid.Predict(); err != nil {
		return
	}
	if err = o.Structure.Predict(); err != nil {
		return
	}
	o.log.Debug(true, "computing mesh prediction", "step", o.ctx.Step, "double_faced", o.Set.DoubleFaced())

	// previous loads => structure
	if err = o.transferLoads(); err != nil {
		return
	}
	if err = o.Structure.SolveSolutionStep(); err != nil {
		return
	}

	// displacement => fluid mesh
	disp, err := o.mapDisplacement()
	if err != nil {
		return
	}
	if err = o.writeFluid(itf.MeshDisplacement, disp); err != nil {
		return
	}
	if err = o.Mesh.SolveSolutionStep(); err != nil {
		return
	}

	// initial iterate
	cur, err := o.readFluid(itf.MeshDisplacement)
	if err != nil {
		return
	}
	o.state.Iterate = concat(cur)
	o.log.Debug(true, "mesh prediction computed", "step", o.ctx.Step)
	return
}

// SolveSolutionStep runs the coupling iterations of the current step
func (o *Partitioned) SolveSolutionStep() (err error) {
	for it := 1; it <= o.Set.MaxNlIt; it++ {

		// tag iteration
		o.ctx.Iteration = it
		o.ctx.Phase = Solving
		o.Fluid.SetInfo(itf.InfoNlIteration, it)
		o.Structure.SetInfo(itf.InfoNlIteration, it)
		o.Acc.InitializeNonLinearIteration()
		o.log.Debug(true, "FSI non-linear iteration", "step", o.ctx.Step, "it", it)

		// mesh and fluid
		if o.Set.SolveMeshAtEachIteration {
			if err = o.Mesh.SolveSolutionStep(); err != nil {
				return
			}
		}
		if err = o.Fluid.SolveSolutionStep(); err != nil {
			return
		}

		// structure
		if err = o.transferLoads(); err != nil {
			return
		}
		if err = o.Structure.SolveSolutionStep(); err != nil {
			return
		}

		// residual
		o.ctx.Phase = ResidualCheck
		proj, e := o.mapDisplacement()
		if e != nil {
			return e
		}
		o.state.Projected = concat(proj)
		la.VecAdd(o.state.Residual, 1, o.state.Projected, -1, o.state.Iterate)
		nrm := o.norm(o.state.Residual)
		o.state.Norms = append(o.state.Norms, nrm)

		// check convergence
		converged := nrm < o.Set.NlTol
		if err = comm.Agree(o.comm, "coupling convergence", converged); err != nil {
			return
		}
		if converged {
			o.ctx.Phase = Converged
			o.ctx.Converged = true
			o.Acc.FinalizeNonLinearIteration()
			o.log.Info(true, "non-linear iteration convergence achieved", "step", o.ctx.Step, "iterations", it, "residual", nrm)
			break
		}
		o.log.Debug(true, "residual computation finished", "step", o.ctx.Step, "it", it, "residual", nrm)

		// correct iterate
		if err = o.correct(); err != nil {
			return
		}
		o.Acc.FinalizeNonLinearIteration()
		o.ctx.Phase = NextIteration
		if it == o.Set.MaxNlIt {
			o.ctx.Phase = MaxIterationsReached
			o.log.Warn(true, "FSI non-linear iteration convergence not achieved", "step", o.ctx.Step, "iterations", it, "residual", nrm)
		}
	}
	o.result.Iterations = o.ctx.Iteration
	o.result.Converged = o.ctx.Converged
	o.result.Residuals = append([]float64{}, o.state.Norms...)
	return
}

// FinalizeSolutionStep computes the mesh residual and finalizes all solvers and the accelerator
func (o *Partitioned) FinalizeSolutionStep() (err error) {
	if o.Set.ComputeMeshResidual {
		o.result.MeshResidual, err = o.meshResidual()
		if err != nil {
			return
		}
		o.log.Info(true, "step residuals", "step", o.ctx.Step, "nl_residual", o.result.Residual(), "mesh_residual", o.result.MeshResidual)
	}
	for _, s := range []Solver{o.Fluid, o.Structure, o.Mesh} {
		if err = s.FinalizeSolutionStep(); err != nil {
			return
		}
	}
	o.Acc.FinalizeSolutionStep()
	o.result.Fallbacks = o.Acc.Stats().Fallbacks - o.fallbacks
	o.ctx.Phase = Idle
	o.metrics.observe(o.result)
	return
}

// Check checks all solvers
func (o *Partitioned) Check() (err error) {
	for _, s := range []Solver{o.Fluid, o.Structure, o.Mesh} {
		if err = s.Check(); err != nil {
			return
		}
	}
	return
}

// Clear clears all solvers
func (o *Partitioned) Clear() (err error) {
	for _, s := range []Solver{o.Fluid, o.Structure, o.Mesh} {
		if err = s.Clear(); err != nil {
			return
		}
	}
	return
}

// GetFluidComputingModelPart returns the fluid domain
func (o *Partitioned) GetFluidComputingModelPart() any { return o.Fluid.GetComputingModelPart() }

// GetStructureComputingModelPart returns the structure domain
func (o *Partitioned) GetStructureComputingModelPart() any { return o.Structure.GetComputingModelPart() }

// Context returns a copy of the time step context
func (o *Partitioned) Context() TimeStepContext { return o.ctx }

// State returns the iteration state of the current step
func (o *Partitioned) State() *IterationState { return &o.state }

// Result returns the diagnostics of the last step
func (o *Partitioned) Result() StepResult { return o.result }

// NumDofs returns the global number of interface values in the iterate
func (o *Partitioned) NumDofs() int { return o.ndofs }

// auxiliary ///////////////////////////////////////////////////////////////////////////////////////

// faceKinds returns the kinds of fluid faces in the order used by interface vectors
func (o *Partitioned) faceKinds() []string {
	if o.Set.DoubleFaced() {
		return []string{inp.FacePositive, inp.FaceNegative}
	}
	return []string{inp.FaceUnique}
}

// transferLoads maps the fluid reactions onto the structure point loads
func (o *Partitioned) transferLoads() (err error) {
	reac, err := o.readFluid(itf.Reaction)
	if err != nil {
		return
	}
	load := itf.NewField(o.structSet, o.ndim)
	if o.Set.DoubleFaced() {
		err = o.Mapper.SumFaces(reac[0], reac[1], false, true, load)
	} else {
		err = o.Mapper.FluidToStructure(reac[0], false, true, load)
	}
	if err != nil {
		return
	}
	return o.Structure.SetValues(itf.PointLoad, o.structSet, load)
}

// mapDisplacement maps the structure displacement onto all fluid faces
func (o *Partitioned) mapDisplacement() (res []*itf.Field, err error) {
	disp := itf.NewField(o.structSet, o.ndim)
	if err = o.Structure.GetValues(itf.Displacement, o.structSet, disp); err != nil {
		return
	}
	res = make([]*itf.Field, len(o.fluidSets))
	for i, s := range o.fluidSets {
		res[i] = itf.NewField(s, o.ndim)
	}
	if o.Set.DoubleFaced() {
		if err = o.Mapper.StructureToPositiveFluid(disp, true, false, res[0]); err != nil {
			return
		}
		err = o.Mapper.StructureToNegativeFluid(disp, true, false, res[1])
		return
	}
	err = o.Mapper.StructureToFluid(disp, true, false, res[0])
	return
}

// readFluid reads a variable on all fluid faces
func (o *Partitioned) readFluid(v itf.Variable) (res []*itf.Field, err error) {
	res = make([]*itf.Field, len(o.fluidSets))
	for i, s := range o.fluidSets {
		res[i] = itf.NewField(s, o.ndim)
		if err = o.Fluid.GetValues(v, s, res[i]); err != nil {
			return
		}
	}
	return
}

// writeFluid writes a variable on all fluid faces
func (o *Partitioned) writeFluid(v itf.Variable, fields []*itf.Field) (err error) {
	for i, s := range o.fluidSets {
		if err = o.Fluid.SetValues(v, s, fields[i]); err != nil {
			return
		}
	}
	return
}

// correct asks the accelerator for a new iterate and applies it to the fluid interface
func (o *Partitioned) correct() (err error) {
	r, offset := comm.Gather(o.comm, o.state.Residual)
	x, _ := comm.Gather(o.comm, o.state.Iterate)
	xnew := o.Acc.UpdateSolution(r, x)
	if len(xnew) != len(x) {
		return chk.Err("accelerator returned %d values; %d expected", len(xnew), len(x))
	}
	o.state.Previous = o.state.Iterate
	o.state.Iterate = la.Vector(xnew[offset : offset+o.nlocal]).GetCopy()
	fields := make([]*itf.Field, len(o.fluidSets))
	for i, s := range o.fluidSets {
		fields[i] = itf.NewField(s, o.ndim)
	}
	split(o.state.Iterate, fields)
	return o.writeFluid(itf.MeshDisplacement, fields)
}

// meshResidual returns the normalised difference between fluid velocity and mesh velocity on the interface
func (o *Partitioned) meshResidual() (nrm float64, err error) {
	vel, err := o.readFluid(itf.Velocity)
	if err != nil {
		return
	}
	mvel, err := o.readFluid(itf.MeshVelocity)
	if err != nil {
		return
	}
	r := concat(vel)
	la.VecAdd(r, 1, r, -1, concat(mvel))
	return o.norm(r), nil
}

// norm returns |r|/sqrt(ndofs) computed over all workers
func (o *Partitioned) norm(r la.Vector) float64 {
	sum := comm.SumFloat(o.comm, la.VecDot(r, r))
	if o.ndofs == 0 {
		return 0
	}
	return math.Sqrt(sum) / math.Sqrt(float64(o.ndofs))
}

// refreshMapper updates the mapper with the current interface coordinates
func (o *Partitioned) refreshMapper() (err error) {
	sets := make([]*itf.PointSet, 0, 3)
	s, err := o.Structure.GetInterface(o.structSet.Name)
	if err != nil {
		return
	}
	sets = append(sets, s)
	for i, f := range o.fluidSets {
		if o.fluidSets[i], err = o.Fluid.GetInterface(f.Name); err != nil {
			return
		}
		sets = append(sets, o.fluidSets[i])
	}
	o.structSet = s
	return o.Mapper.Refresh(sets...)
}

// sameTime compares two times with a relative tolerance
func sameTime(a, b float64) bool {
	return math.Abs(a-b) <= 1e-12*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

// concat joins the values of all fields
func concat(fields []*itf.Field) (res la.Vector) {
	for _, f := range fields {
		res = append(res, f.Values...)
	}
	if res == nil {
		res = la.Vector{}
	}
	return
}

// split distributes v over the fields
func split(v la.Vector, fields []*itf.Field) {
	k := 0
	for _, f := range fields {
		k += copy(f.Values, v[k:])
	}
}
