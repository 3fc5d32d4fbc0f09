// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package comm

import "github.com/cpmech/gosl/mpi"

// MPI wraps the gosl world communicator
type MPI struct {
	c *mpi.Communicator
}

// NewMPI returns a communicator over all MPI processes; mpi.Start must have been called.
// Returns Serial if MPI is off
func NewMPI() Communicator {
	if !mpi.IsOn() {
		return Serial{}
	}
	return &MPI{c: mpi.NewCommunicator(nil)}
}

func (o *MPI) Rank() int                   { return o.c.Rank() }
func (o *MPI) Size() int                   { return o.c.Size() }
func (o *MPI) SumAll(dest, orig []float64) { o.c.AllReduceSum(dest, orig) }
func (o *MPI) MaxAll(dest, orig []float64) { o.c.AllReduceMax(dest, orig) }
func (o *MPI) MinAll(dest, orig []float64) { o.c.AllReduceMin(dest, orig) }
