// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package mpr implements the projection of fields between non-matching interface point sets
package mpr

import (
	"github.com/cpmech/gosl/chk"
	"github.com/yamanatoo/Kratos/comm"
	"github.com/yamanatoo/Kratos/inp"
	"github.com/yamanatoo/Kratos/itf"
	"github.com/yamanatoo/Kratos/lgr"
)

// set holds the local and global views of one registered point set
type set struct {
	name   string
	local  *itf.PointSet
	cloud  *cloud // global points ordered by rank
	offset int    // index of first local point in the global numbering
}

// Mapper projects fields between the fluid and structure sides of the coupling interface.
// All methods that build or refresh operators are collective.
type Mapper struct {
	Prms  inp.MapperParams
	Faces []inp.FaceData

	comm comm.Communicator
	log  *lgr.Logger
	ndim int
	sets map[string]*set
	ops  map[[2]string]*Operator // [target, source] => operator
}

// New registers the point sets of all faces and returns a new mapper.
// Operators are built on first use.
func New(prms inp.MapperParams, faces []inp.FaceData, sets []*itf.PointSet, c comm.Communicator, log *lgr.Logger) (o *Mapper, err error) {
	if len(faces) < 1 || len(faces) > 2 {
		return nil, chk.Err("mapper requires one or two faces. %d is invalid: %w", len(faces), inp.ErrConfig)
	}
	o = &Mapper{Prms: prms, Faces: faces, comm: c, log: log}
	sorted := make([]*itf.PointSet, len(sets))
	copy(sorted, sets)
	sortSets(sorted)
	if err = o.register(sorted); err != nil {
		return nil, err
	}
	for _, f := range faces {
		for _, name := range []string{f.Fluid, f.Structure} {
			if _, ok := o.sets[name]; !ok {
				return nil, chk.Err("interface %q of face %q has not been given to the mapper: %w", name, f.Kind, inp.ErrConfig)
			}
		}
	}
	return
}

// Refresh replaces the coordinates of the given sets (e.g. after mesh motion) and discards all operators
func (o *Mapper) Refresh(sets ...*itf.PointSet) (err error) {
	for _, s := range sets {
		if _, ok := o.sets[s.Name]; !ok {
			return chk.Err("cannot refresh unknown interface %q", s.Name)
		}
	}
	all := make([]*itf.PointSet, 0, len(o.sets))
	for _, s := range o.sets {
		all = append(all, s.local)
	}
	for _, s := range sets {
		for i := range all {
			if all[i].Name == s.Name {
				all[i] = s
			}
		}
	}
	sortSets(all)
	return o.register(all)
}

// DoubleFaced tells whether the structure interface is wetted on both sides
func (o *Mapper) DoubleFaced() bool { return len(o.Faces) == 2 }

// Operator returns the operator mapping onto target from source; building it if necessary (collective)
func (o *Mapper) Operator(target, source string) (op *Operator, err error) {
	key := [2]string{target, source}
	if op = o.ops[key]; op != nil {
		return
	}
	tgt, src := o.sets[target], o.sets[source]
	if tgt == nil || src == nil {
		return nil, chk.Err("cannot find interfaces %q and %q", target, source)
	}
	op, err = buildOperator(o.Prms, tgt, src, o.log)
	if e := comm.Agree(o.comm, "mapper operator built", err == nil); e != nil {
		if err != nil {
			return nil, err
		}
		return nil, chk.Err("mapping %q onto %q failed on another worker:\n%w", source, target, e)
	}
	if err != nil {
		return nil, err
	}
	misses := comm.SumInt(o.comm, op.Misses)
	o.log.Debug(true, "mapper operator built", "target", target, "source", source, "misses", misses)
	o.ops[key] = op
	return
}

// Project maps src, living on srcSet, onto dst, living on tgtSet.
//  keepSign   -- false negates the transferred values
//  distribute -- true performs a conservative transfer of extensive quantities (e.g. point loads);
//                false interpolates intensive quantities (e.g. displacements)
func (o *Mapper) Project(src *itf.Field, srcSet, tgtSet string, keepSign, distribute bool, dst *itf.Field) (err error) {
	s, t := o.sets[srcSet], o.sets[tgtSet]
	if s == nil || t == nil {
		return chk.Err("cannot project from %q to %q: unknown interface", srcSet, tgtSet)
	}
	if err = src.Check(s.local); err != nil {
		return chk.Err("invalid source field:\n%v", err)
	}
	if err = dst.Check(t.local); err != nil {
		return chk.Err("invalid target field:\n%v", err)
	}
	if src.Ncomp != dst.Ncomp {
		return chk.Err("cannot project %d-component field onto %d-component field", src.Ncomp, dst.Ncomp)
	}
	sign := 1.0
	if !keepSign {
		sign = -1
	}
	nc := src.Ncomp

	// intensive: interpolate gathered source values
	if !distribute {
		op, e := o.Operator(tgtSet, srcSet)
		if e != nil {
			return e
		}
		global, _ := comm.Gather(o.comm, src.Values)
		dst.Fill(0)
		for i, row := range op.Rows {
			for _, d := range row {
				for c := 0; c < nc; c++ {
					dst.Values[i*nc+c] += sign * d.Weight * global[d.Index*nc+c]
				}
			}
		}
		return
	}

	// conservative: apply transpose of operator built in the opposite direction
	op, err := o.Operator(srcSet, tgtSet)
	if err != nil {
		return
	}
	acc := make([]float64, len(t.cloud.X)*nc)
	for i, row := range op.Rows {
		for _, d := range row {
			for c := 0; c < nc; c++ {
				acc[d.Index*nc+c] += sign * d.Weight * src.Values[i*nc+c]
			}
		}
	}
	sum := make([]float64, len(acc))
	o.comm.SumAll(sum, acc)
	copy(dst.Values, sum[t.offset*nc:(t.offset+t.local.Len())*nc])
	return
}

// FluidToStructure maps from the unique fluid face onto the structure
func (o *Mapper) FluidToStructure(src *itf.Field, keepSign, distribute bool, dst *itf.Field) error {
	return o.faceProject(inp.FaceUnique, true, src, keepSign, distribute, dst)
}

// StructureToFluid maps from the structure onto the unique fluid face
func (o *Mapper) StructureToFluid(src *itf.Field, keepSign, distribute bool, dst *itf.Field) error {
	return o.faceProject(inp.FaceUnique, false, src, keepSign, distribute, dst)
}

// PositiveFluidToStructure maps from the positive fluid face onto the structure
func (o *Mapper) PositiveFluidToStructure(src *itf.Field, keepSign, distribute bool, dst *itf.Field) error {
	return o.faceProject(inp.FacePositive, true, src, keepSign, distribute, dst)
}

// NegativeFluidToStructure maps from the negative fluid face onto the structure
func (o *Mapper) NegativeFluidToStructure(src *itf.Field, keepSign, distribute bool, dst *itf.Field) error {
	return o.faceProject(inp.FaceNegative, true, src, keepSign, distribute, dst)
}

// StructureToPositiveFluid maps from the structure onto the positive fluid face
func (o *Mapper) StructureToPositiveFluid(src *itf.Field, keepSign, distribute bool, dst *itf.Field) error {
	return o.faceProject(inp.FacePositive, false, src, keepSign, distribute, dst)
}

// StructureToNegativeFluid maps from the structure onto the negative fluid face
func (o *Mapper) StructureToNegativeFluid(src *itf.Field, keepSign, distribute bool, dst *itf.Field) error {
	return o.faceProject(inp.FaceNegative, false, src, keepSign, distribute, dst)
}

// SumFaces maps the positive and negative fluid fields onto the structure and adds them up
func (o *Mapper) SumFaces(pos, neg *itf.Field, keepSign, distribute bool, dst *itf.Field) (err error) {
	if err = o.PositiveFluidToStructure(pos, keepSign, distribute, dst); err != nil {
		return
	}
	tmp := dst.GetCopy()
	if err = o.NegativeFluidToStructure(neg, keepSign, distribute, tmp); err != nil {
		return
	}
	return dst.Add(1, tmp)
}

// auxiliary ///////////////////////////////////////////////////////////////////////////////////////

// faceProject projects between the fluid and structure sets of the face of the given kind
func (o *Mapper) faceProject(kind string, toStructure bool, src *itf.Field, keepSign, distribute bool, dst *itf.Field) (err error) {
	var face *inp.FaceData
	for i := range o.Faces {
		if o.Faces[i].Kind == kind {
			face = &o.Faces[i]
		}
	}
	if face == nil {
		return chk.Err("mapper has no %q face", kind)
	}
	if toStructure {
		return o.Project(src, face.Fluid, face.Structure, keepSign, distribute, dst)
	}
	return o.Project(src, face.Structure, face.Fluid, keepSign, distribute, dst)
}

// register gathers the coordinates of all sets (collective) and clears the operators
func (o *Mapper) register(sets []*itf.PointSet) (err error) {
	o.sets = make(map[string]*set)
	o.ops = make(map[[2]string]*Operator)
	for k, s := range sets {
		if k == 0 {
			o.ndim = s.Ndim
		}
		if s.Ndim != o.ndim {
			return chk.Err("interface %q has dimension %d but %q has %d: %w", s.Name, s.Ndim, sets[0].Name, o.ndim, inp.ErrConfig)
		}
		flat := make([]float64, 0, s.Len()*s.Ndim)
		for _, x := range s.X {
			flat = append(flat, x...)
		}
		global, offset := comm.Gather(o.comm, flat)
		X := make([][]float64, len(global)/s.Ndim)
		for i := range X {
			X[i] = global[i*s.Ndim : (i+1)*s.Ndim]
		}
		o.sets[s.Name] = &set{name: s.Name, local: s, cloud: newCloud(s.Ndim, X), offset: offset / s.Ndim}
	}
	return
}

// sortSets orders sets by name so that all workers register them in the same order
func sortSets(sets []*itf.PointSet) {
	for i := 1; i < len(sets); i++ {
		for j := i; j > 0 && sets[j].Name < sets[j-1].Name; j-- {
			sets[j], sets[j-1] = sets[j-1], sets[j]
		}
	}
}
