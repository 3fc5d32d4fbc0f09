// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package comm implements collective operations among the workers of a partitioned simulation
package comm

import (
	"errors"
	"math"

	"github.com/cpmech/gosl/chk"
)

// ErrCollectiveMismatch is returned when workers disagree on a decision that must be identical
var ErrCollectiveMismatch = errors.New("collective operation mismatch")

// Communicator performs all-reduce operations among all workers of one coupled simulation.
// Every method is a blocking collective: all workers must call it in the same order.
type Communicator interface {
	Rank() int                   // this worker id
	Size() int                   // number of workers
	SumAll(dest, orig []float64) // dest := Σ_workers orig
	MaxAll(dest, orig []float64) // dest := max_workers orig
	MinAll(dest, orig []float64) // dest := min_workers orig
}

// Serial is the communicator of a non-distributed run
type Serial struct{}

func (o Serial) Rank() int                   { return 0 }
func (o Serial) Size() int                   { return 1 }
func (o Serial) SumAll(dest, orig []float64) { copy(dest, orig) }
func (o Serial) MaxAll(dest, orig []float64) { copy(dest, orig) }
func (o Serial) MinAll(dest, orig []float64) { copy(dest, orig) }

// SumFloat returns the sum of v over all workers
func SumFloat(c Communicator, v float64) float64 {
	res := []float64{0}
	c.SumAll(res, []float64{v})
	return res[0]
}

// MaxFloat returns the maximum of v over all workers
func MaxFloat(c Communicator, v float64) float64 {
	res := []float64{0}
	c.MaxAll(res, []float64{v})
	return res[0]
}

// SumInt returns the sum of n over all workers
func SumInt(c Communicator, n int) int {
	return int(math.Round(SumFloat(c, float64(n))))
}

// ScanSum returns the inclusive prefix sum of n over workers 0..Rank()
func ScanSum(c Communicator, n int) (res int) {
	loc := make([]float64, c.Size())
	all := make([]float64, c.Size())
	loc[c.Rank()] = float64(n)
	c.SumAll(all, loc)
	for r := 0; r <= c.Rank(); r++ {
		res += int(math.Round(all[r]))
	}
	return
}

// Gather assembles the local slices of all workers into one global slice, ordered by rank.
// It returns the global slice and the offset of the local slice within it.
func Gather(c Communicator, local []float64) (global []float64, offset int) {
	offset = ScanSum(c, len(local)) - len(local)
	total := SumInt(c, len(local))
	buf := make([]float64, total)
	copy(buf[offset:], local)
	global = make([]float64, total)
	c.SumAll(global, buf)
	return
}

// Agree checks that flag has the same value on every worker
func Agree(c Communicator, what string, flag bool) (err error) {
	v := 0.0
	if flag {
		v = 1.0
	}
	lo, hi := []float64{0}, []float64{0}
	c.MinAll(lo, []float64{v})
	c.MaxAll(hi, []float64{v})
	if lo[0] != hi[0] {
		return chk.Err("workers disagree on %q (rank %d has %v): %w", what, c.Rank(), flag, ErrCollectiveMismatch)
	}
	return
}
