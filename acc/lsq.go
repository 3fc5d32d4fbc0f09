// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package acc

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/la"
	"gonum.org/v1/gonum/mat"
)

// columns returns the n×m matrix with the given columns
func columns(n int, cols []la.Vector) (A *mat.Dense) {
	A = mat.NewDense(n, len(cols), nil)
	for j, c := range cols {
		A.SetCol(j, c)
	}
	return
}

// lstsq solves min |A c - b| by QR factorisation; A must have at least as many rows as columns
func lstsq(A *mat.Dense, b la.Vector) (c []float64, err error) {
	n, m := A.Dims()
	var qr mat.QR
	qr.Factorize(A)
	var x mat.VecDense
	if err = qr.SolveVecTo(&x, false, mat.NewVecDense(n, b.GetCopy())); err != nil {
		return nil, chk.Err("least-squares problem with %d columns is singular:\n%v", m, err)
	}
	c = make([]float64, m)
	for j := range c {
		c[j] = x.AtVec(j)
	}
	if !finite(c) {
		return nil, chk.Err("least-squares coefficients are not finite: %v", c)
	}
	return
}

// pinv returns the m×n pseudo-inverse of the n×m matrix A with linearly independent columns
func pinv(A *mat.Dense) (P *mat.Dense, err error) {
	n, m := A.Dims()
	var qr mat.QR
	qr.Factorize(A)
	I := mat.NewDiagDense(n, nil)
	for i := 0; i < n; i++ {
		I.SetDiag(i, 1)
	}
	P = mat.NewDense(m, n, nil)
	if err = qr.SolveTo(P, false, I); err != nil {
		return nil, chk.Err("cannot compute pseudo-inverse of %d×%d matrix:\n%v", n, m, err)
	}
	if !finite(P.RawMatrix().Data) {
		return nil, chk.Err("pseudo-inverse is not finite")
	}
	return
}

// window holds the newest columns first and drops the oldest ones beyond capacity
type window struct {
	V, W []la.Vector // residual and output differences
}

// push inserts a pair at the front and keeps at most nmax pairs (no limit if nmax < 1)
func (o *window) push(v, w la.Vector, nmax int) {
	o.V = append([]la.Vector{v}, o.V...)
	o.W = append([]la.Vector{w}, o.W...)
	if nmax > 0 && len(o.V) > nmax {
		o.V, o.W = o.V[:nmax], o.W[:nmax]
	}
}

// clear removes all pairs
func (o *window) clear() { o.V, o.W = nil, nil }

// with returns the columns with an optional pending pair at the front, capped at n columns
// and at nmax columns if nmax > 0
func (o *window) with(v, w la.Vector, n, nmax int) (V, W []la.Vector) {
	if nmax > 0 && nmax < n {
		n = nmax
	}
	if v != nil {
		V = append(V, v)
		W = append(W, w)
	}
	V = append(V, o.V...)
	W = append(W, o.W...)
	if len(V) > n {
		V, W = V[:n], W[:n]
	}
	return
}

// candidate returns the differences between the current and previous pairs, or nils if the
// residual difference is below tol
func candidate(r, xt, rPrev, xtPrev la.Vector, tol float64) (v, w la.Vector) {
	if rPrev == nil || len(rPrev) != len(r) {
		return nil, nil
	}
	v = la.NewVector(len(r))
	w = la.NewVector(len(r))
	la.VecAdd(v, 1, r, -1, rPrev)
	la.VecAdd(w, 1, xt, -1, xtPrev)
	if v.Norm() < tol {
		return nil, nil
	}
	return
}
