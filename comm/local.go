// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package comm

import (
	"math"
	"sync"

	"github.com/cpmech/gosl/chk"
)

// group holds the shared reduction buffers of in-process workers
type group struct {
	mu      sync.Mutex
	cond    *sync.Cond
	n       int
	arrived int
	gen     int
	bufs    [][]float64
	result  []float64
}

// Local is one in-process worker of a group created by NewLocalGroup.
// Each Local must be driven by its own goroutine.
type Local struct {
	rank int
	g    *group
}

// NewLocalGroup returns n communicators sharing reductions in memory.
// Results are reduced in rank order, so all workers obtain bitwise identical values.
func NewLocalGroup(n int) (res []Communicator) {
	if n < 1 {
		chk.Panic("group size must be positive. %d is invalid", n)
	}
	g := &group{n: n, bufs: make([][]float64, n)}
	g.cond = sync.NewCond(&g.mu)
	res = make([]Communicator, n)
	for i := 0; i < n; i++ {
		res[i] = &Local{rank: i, g: g}
	}
	return
}

func (o *Local) Rank() int { return o.rank }
func (o *Local) Size() int { return o.g.n }

func (o *Local) SumAll(dest, orig []float64) {
	o.reduce(dest, orig, func(a, b float64) float64 { return a + b })
}

func (o *Local) MaxAll(dest, orig []float64) { o.reduce(dest, orig, math.Max) }
func (o *Local) MinAll(dest, orig []float64) { o.reduce(dest, orig, math.Min) }

// reduce blocks until all workers have deposited their data
func (o *Local) reduce(dest, orig []float64, op func(a, b float64) float64) {
	g := o.g
	g.mu.Lock()
	defer g.mu.Unlock()
	gen := g.gen
	g.bufs[o.rank] = append(g.bufs[o.rank][:0], orig...)
	g.arrived++
	if g.arrived == g.n {
		res := make([]float64, len(g.bufs[0]))
		copy(res, g.bufs[0])
		for r := 1; r < g.n; r++ {
			if len(g.bufs[r]) != len(res) {
				chk.Panic("all-reduce called with different lengths: rank 0 has %d and rank %d has %d", len(res), r, len(g.bufs[r]))
			}
			for i := range res {
				res[i] = op(res[i], g.bufs[r][i])
			}
		}
		g.result = res
		g.arrived = 0
		g.gen++
		g.cond.Broadcast()
	} else {
		for gen == g.gen {
			g.cond.Wait()
		}
	}
	copy(dest, g.result)
}
