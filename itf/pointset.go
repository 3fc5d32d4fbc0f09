// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package itf implements the data living on coupling interfaces
package itf

import (
	"math"

	"github.com/cpmech/gosl/chk"
)

// PointSet holds the points of one side of a coupling interface that are owned by this worker.
// The order of points is kept fixed for the whole simulation.
type PointSet struct {
	Name string      // name of interface; e.g. "FluidInterface"
	Ndim int         // space dimension
	Ids  []int       // [npts] point identifiers
	X    [][]float64 // [npts][ndim] coordinates
}

// NewPointSet returns a new point set. ids and coordinates are copied
func NewPointSet(name string, ndim int, ids []int, X [][]float64) (o *PointSet, err error) {
	if ndim < 1 || ndim > 3 {
		return nil, chk.Err("point set %q: space dimension must be 1, 2 or 3. %d is invalid", name, ndim)
	}
	if len(ids) != len(X) {
		return nil, chk.Err("point set %q: number of ids (%d) and coordinates (%d) differ", name, len(ids), len(X))
	}
	o = &PointSet{Name: name, Ndim: ndim, Ids: make([]int, len(ids)), X: make([][]float64, len(X))}
	copy(o.Ids, ids)
	for i, x := range X {
		if len(x) < ndim {
			return nil, chk.Err("point set %q: point %d has %d coordinates; %d required", name, ids[i], len(x), ndim)
		}
		o.X[i] = make([]float64, ndim)
		copy(o.X[i], x[:ndim])
	}
	return
}

// Len returns the number of (local) points
func (o *PointSet) Len() int { return len(o.Ids) }

// Index returns the position of point id in this set or -1 if not found
func (o *PointSet) Index(id int) int {
	for i, pid := range o.Ids {
		if pid == id {
			return i
		}
	}
	return -1
}

// Displaced returns a copy of this set with coordinates moved by u (vector field with Ndim components)
func (o *PointSet) Displaced(u *Field) (res *PointSet, err error) {
	if u.Len() != o.Len() || u.Ncomp != o.Ndim {
		return nil, chk.Err("cannot displace %q: field has %d points with %d components; set has %d points with %d dimensions",
			o.Name, u.Len(), u.Ncomp, o.Len(), o.Ndim)
	}
	res, _ = NewPointSet(o.Name, o.Ndim, o.Ids, o.X)
	for i := range res.X {
		for j := 0; j < o.Ndim; j++ {
			res.X[i][j] += u.Values[i*u.Ncomp+j]
		}
	}
	return
}

// Limits returns the bounding box of the local points. Empty sets return +Inf/-Inf limits
func (o *PointSet) Limits() (xmin, xmax []float64) {
	xmin = make([]float64, o.Ndim)
	xmax = make([]float64, o.Ndim)
	for j := 0; j < o.Ndim; j++ {
		xmin[j], xmax[j] = math.Inf(1), math.Inf(-1)
	}
	for _, x := range o.X {
		for j := 0; j < o.Ndim; j++ {
			xmin[j] = math.Min(xmin[j], x[j])
			xmax[j] = math.Max(xmax[j], x[j])
		}
	}
	return
}
