// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mpr

import (
	"math"

	"github.com/cpmech/gosl/gm"
	"github.com/cpmech/gosl/utl"
)

// cloud holds the global coordinates of one point set and the bins used to search them
type cloud struct {
	ndim int
	X    [][]float64 // [nglobal][ndim] coordinates ordered by rank
	xmin []float64   // padded bounding box
	xmax []float64   // padded bounding box
	bins gm.Bins     // bins work in 2D or 3D; 1D points get a zero second coordinate
}

// newCloud builds the search structure over all points in X
func newCloud(ndim int, X [][]float64) (o *cloud) {
	o = &cloud{ndim: ndim, X: X}
	if len(X) == 0 {
		return
	}

	// limits
	bdim := utl.Imax(ndim, 2)
	o.xmin = make([]float64, bdim)
	o.xmax = make([]float64, bdim)
	for j := 0; j < ndim; j++ {
		o.xmin[j], o.xmax[j] = math.Inf(1), math.Inf(-1)
	}
	for _, x := range X {
		for j := 0; j < ndim; j++ {
			o.xmin[j] = utl.Min(o.xmin[j], x[j])
			o.xmax[j] = utl.Max(o.xmax[j], x[j])
		}
	}
	pad := 1e-3 * o.diagonal()
	if pad == 0 {
		pad = 1
	}

	// bins: about one point per bin
	n := int(math.Ceil(math.Pow(float64(len(X)), 1.0/float64(ndim))))
	ndiv := make([]int, bdim)
	for j := 0; j < bdim; j++ {
		o.xmin[j] -= pad
		o.xmax[j] += pad
		ndiv[j] = 1
		if j < ndim {
			ndiv[j] = utl.Imax(1, n)
		}
	}
	o.bins.Init(o.xmin, o.xmax, ndiv)
	for i, x := range X {
		y := o.point(x)
		bin := o.bins.FindBinByIndex(o.index(o.cell(y)))
		bin.Entries = append(bin.Entries, &gm.BinEntry{ID: i, X: y})
	}
	return
}

// diagonal returns the length of the diagonal of the bounding box
func (o *cloud) diagonal() (l float64) {
	if len(o.X) == 0 {
		return 0
	}
	for j := 0; j < o.ndim; j++ {
		l += math.Pow(o.xmax[j]-o.xmin[j], 2)
	}
	return math.Sqrt(l)
}

// within returns the indices of all points with distance to x not greater than r
func (o *cloud) within(x []float64, r float64) (idx []int, dist []float64) {
	if len(o.X) == 0 {
		return
	}
	lo := make([]float64, o.bins.Ndim)
	hi := make([]float64, o.bins.Ndim)
	for j := 0; j < o.ndim; j++ {
		lo[j], hi[j] = x[j]-r, x[j]+r
		if hi[j] < o.xmin[j] || lo[j] > o.xmax[j] {
			return // search box does not intersect the cloud
		}
	}
	o.visit(o.cell(lo), o.cell(hi), nil, 0, func(e *gm.BinEntry) {
		if d := distance(x, o.X[e.ID]); d <= r {
			idx = append(idx, e.ID)
			dist = append(dist, d)
		}
	})
	return
}

// nearest returns the index of the point closest to x, skipping index skip (use -1 to consider all).
// Rings of bins around the cell of x are visited until no unvisited bin can hold a closer point.
func (o *cloud) nearest(x []float64, skip int) (imin int, dmin float64) {
	imin, dmin = -1, math.Inf(1)
	if len(o.X) == 0 {
		return
	}
	c := o.cell(o.point(x))
	hmin, kmax := math.Inf(1), 0
	for j := 0; j < o.bins.Ndim; j++ {
		hmin = utl.Min(hmin, o.bins.Size[j])
		kmax = utl.Imax(kmax, o.bins.Ndiv[j])
	}
	lo := make([]int, len(c))
	hi := make([]int, len(c))
	for k := 0; k <= kmax; k++ {
		for j := range c {
			lo[j] = utl.Imax(c[j]-k, 0)
			hi[j] = utl.Imin(c[j]+k, o.bins.Ndiv[j]-1)
		}
		o.visit(lo, hi, c, k, func(e *gm.BinEntry) {
			if e.ID == skip {
				return
			}
			if d := distance(x, o.X[e.ID]); d < dmin || (d == dmin && e.ID < imin) {
				imin, dmin = e.ID, d
			}
		})
		if imin >= 0 && dmin <= float64(k)*hmin {
			return
		}
	}
	return
}

// auxiliary ///////////////////////////////////////////////////////////////////////////////////////

// point returns x with the dimension used by the bins
func (o *cloud) point(x []float64) []float64 {
	if len(x) >= o.bins.Ndim {
		return x
	}
	y := make([]float64, o.bins.Ndim)
	copy(y, x)
	return y
}

// cell returns the integer coordinates of the bin containing x, clamped to the grid.
// Entries are placed with cell too, so rounding in the number of divisions cannot misplace them
func (o *cloud) cell(x []float64) (c []int) {
	c = make([]int, o.bins.Ndim)
	for j := range c {
		c[j] = int(math.Floor((x[j] - o.xmin[j]) / o.bins.Size[j]))
		c[j] = utl.Imin(utl.Imax(c[j], 0), o.bins.Ndiv[j]-1)
	}
	return
}

// index returns the bin index of the integer coordinates c
func (o *cloud) index(c []int) (idx int) {
	idx = c[0] + c[1]*o.bins.Ndiv[0]
	if len(c) > 2 {
		idx += c[2] * o.bins.Ndiv[0] * o.bins.Ndiv[1]
	}
	return
}

// visit calls f for every entry of the bins in the box [lo, hi] of integer coordinates.
// With a centre, only bins whose largest offset from it equals ring are visited.
func (o *cloud) visit(lo, hi, centre []int, ring int, f func(e *gm.BinEntry)) {
	c := make([]int, len(lo))
	copy(c, lo)
	for {
		if centre == nil || chebyshev(c, centre) == ring {
			if bin := o.bins.All[o.index(c)]; bin != nil {
				for _, e := range bin.Entries {
					f(e)
				}
			}
		}
		j := 0
		for ; j < len(c); j++ { // next cell
			c[j]++
			if c[j] <= hi[j] {
				break
			}
			c[j] = lo[j]
		}
		if j == len(c) {
			return
		}
	}
}

// chebyshev returns the largest offset between the integer coordinates a and b
func chebyshev(a, b []int) (k int) {
	for j := range a {
		d := a[j] - b[j]
		if d < 0 {
			d = -d
		}
		k = utl.Imax(k, d)
	}
	return
}

// distance returns the Euclidean distance between a and b
func distance(a, b []float64) float64 {
	s := 0.0
	for j := range a {
		s += (a[j] - b[j]) * (a[j] - b[j])
	}
	return math.Sqrt(s)
}
