// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mpr

import (
	"errors"
	"math"
	"sort"

	"github.com/cpmech/gosl/chk"
	"github.com/yamanatoo/Kratos/inp"
	"github.com/yamanatoo/Kratos/lgr"
)

// ErrMappingMiss is returned when a target point has no donor within the maximum search radius
var ErrMappingMiss = errors.New("mapping search miss")

// Donor holds one contribution to a target point
type Donor struct {
	Index  int     // global index of donor point
	Weight float64 // interpolation weight
}

// Operator holds, for each local target point, the donors found in the source set.
// The weights of each row sum up to one.
type Operator struct {
	Target string    // name of target set (rows)
	Source string    // name of source set (donors)
	Rows   [][]Donor // [nlocal target points][ndonors]
	Misses int       // number of rows resolved by the nearest-point fallback
}

// buildOperator searches the donors of each local target point
//  tgt -- target set; rows are its local points and its global cloud gives the local length
//  src -- source set; donors are searched in its global cloud
func buildOperator(prm inp.MapperParams, tgt *set, src *set, log *lgr.Logger) (o *Operator, err error) {
	o = &Operator{Target: tgt.name, Source: src.name, Rows: make([][]Donor, len(tgt.local.X))}
	if len(src.cloud.X) == 0 {
		if len(tgt.local.X) == 0 {
			return
		}
		return nil, chk.Err("cannot map %q onto %q: source set is empty: %w", src.name, tgt.name, ErrMappingMiss)
	}
	for i, x := range tgt.local.X {

		// local length: distance to nearest neighbour within own set
		h := 0.0
		if len(tgt.cloud.X) > 1 {
			_, h = tgt.cloud.nearest(x, tgt.offset+i)
		}
		if h <= prm.Tolerance {
			h = tgt.cloud.diagonal()
		}
		if h <= prm.Tolerance {
			h = src.cloud.diagonal()
		}

		// search with growing radius
		var idx []int
		var dist []float64
		r, searched := prm.SearchRadiusFactor*h, 0.0
		for it := 0; it < prm.MaxIterations; it++ {
			idx, dist = src.cloud.within(x, r)
			searched = r
			if len(idx) > 0 {
				break
			}
			r *= 2
		}

		// miss
		if len(idx) == 0 {
			id := tgt.local.Ids[i]
			if prm.MissPolicy != inp.MissNearest {
				return nil, chk.Err("interface %q: no donor in %q found for point %d within radius %g: %w", tgt.name, src.name, id, searched, ErrMappingMiss)
			}
			jmin, dmin := src.cloud.nearest(x, -1)
			log.Warn(false, "mapper search miss; using nearest donor", "interface", tgt.name, "point", id, "donor", jmin, "distance", dmin)
			o.Rows[i] = []Donor{{Index: jmin, Weight: 1}}
			o.Misses++
			continue
		}
		o.Rows[i] = weights(idx, dist, prm.MaxDonors, prm.Tolerance)
	}
	return
}

// weights computes inverse distance weights of the closest donors. A coincident donor takes it all
func weights(idx []int, dist []float64, maxDonors int, tol float64) (row []Donor) {
	order := make([]int, len(idx))
	for k := range order {
		order[k] = k
	}
	sort.SliceStable(order, func(a, b int) bool {
		if dist[order[a]] == dist[order[b]] {
			return idx[order[a]] < idx[order[b]]
		}
		return dist[order[a]] < dist[order[b]]
	})
	first := order[0]
	if dist[first] <= tol {
		return []Donor{{Index: idx[first], Weight: 1}}
	}
	n := len(order)
	if n > maxDonors {
		n = maxDonors
	}
	row = make([]Donor, n)
	sum := 0.0
	for k := 0; k < n; k++ {
		j := order[k]
		w := 1.0 / math.Pow(dist[j], 2)
		row[k] = Donor{Index: idx[j], Weight: w}
		sum += w
	}
	for k := range row {
		row[k].Weight /= sum
	}
	return
}
