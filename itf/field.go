// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package itf

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/la"
)

// Field holds scalar or vector values, one entry per point of an interface set.
//
//   Values = [ v0_x v0_y v0_z | v1_x v1_y v1_z | ... ]   (Ncomp values per point)
//
type Field struct {
	Set    string    // name of owning point set
	Ncomp  int       // number of components per point; 1 means scalar
	Ids    []int     // [npts] point identifiers (same order as in the point set)
	Values la.Vector // [npts*Ncomp] values
}

// NewField allocates a zeroed field over the points of set
func NewField(set *PointSet, ncomp int) (o *Field) {
	if ncomp < 1 {
		chk.Panic("number of components must be positive. %d is invalid", ncomp)
	}
	o = &Field{Set: set.Name, Ncomp: ncomp, Ids: make([]int, set.Len())}
	copy(o.Ids, set.Ids)
	o.Values = la.NewVector(set.Len() * ncomp)
	return
}

// Len returns the number of points
func (o *Field) Len() int { return len(o.Ids) }

// Ndof returns the number of scalar values; i.e. Len()*Ncomp
func (o *Field) Ndof() int { return len(o.Values) }

// At returns the values at point i (slice aliasing the storage)
func (o *Field) At(i int) []float64 {
	return o.Values[i*o.Ncomp : (i+1)*o.Ncomp]
}

// SetAt sets the values at point i
func (o *Field) SetAt(i int, v []float64) {
	copy(o.Values[i*o.Ncomp:(i+1)*o.Ncomp], v)
}

// Fill sets all values to s
func (o *Field) Fill(s float64) {
	o.Values.Fill(s)
}

// Check checks that the field is consistent with the given point set
func (o *Field) Check(set *PointSet) (err error) {
	if o.Len() != set.Len() {
		return chk.Err("field of %q has %d points but set %q has %d", o.Set, o.Len(), set.Name, set.Len())
	}
	if len(o.Values) != o.Len()*o.Ncomp {
		return chk.Err("field of %q is corrupted: %d values for %d points with %d components", o.Set, len(o.Values), o.Len(), o.Ncomp)
	}
	for i, id := range set.Ids {
		if o.Ids[i] != id {
			return chk.Err("field of %q: point %d has id %d but set %q has id %d", o.Set, i, o.Ids[i], set.Name, id)
		}
	}
	return
}

// CopyFrom copies values from another field with the same layout
func (o *Field) CopyFrom(other *Field) (err error) {
	if len(other.Values) != len(o.Values) || other.Ncomp != o.Ncomp {
		return chk.Err("cannot copy field of %q into field of %q: incompatible layouts", other.Set, o.Set)
	}
	copy(o.Values, other.Values)
	return
}

// GetCopy returns a deep copy
func (o *Field) GetCopy() (res *Field) {
	res = &Field{Set: o.Set, Ncomp: o.Ncomp, Ids: make([]int, len(o.Ids))}
	copy(res.Ids, o.Ids)
	res.Values = o.Values.GetCopy()
	return
}

// Add computes o := o + α・other
func (o *Field) Add(α float64, other *Field) (err error) {
	if len(other.Values) != len(o.Values) {
		return chk.Err("cannot add field of %q to field of %q: %d != %d values", other.Set, o.Set, len(other.Values), len(o.Values))
	}
	la.VecAdd(o.Values, 1, o.Values, α, other.Values)
	return
}

// Sum returns the (local) sum of each component over all points
func (o *Field) Sum() (res []float64) {
	res = make([]float64, o.Ncomp)
	for i := 0; i < o.Len(); i++ {
		for j := 0; j < o.Ncomp; j++ {
			res[j] += o.Values[i*o.Ncomp+j]
		}
	}
	return
}

// Norm2 returns the (local) Euclidean norm of all values
func (o *Field) Norm2() float64 {
	return o.Values.Norm()
}
