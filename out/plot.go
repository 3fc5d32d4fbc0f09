// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package out

import (
	"math"
	"os"
	"path/filepath"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/yamanatoo/Kratos/fsi"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// constants
var (
	PlotWidth  = 16 * vg.Centimeter // width of figures
	PlotHeight = 10 * vg.Centimeter // height of figures
	MinResid   = 1e-20              // residuals are clipped to this value on log scales
	MaxCurves  = 8                  // maximum number of steps drawn in PlotResiduals
)

// PlotResiduals plots the residual norm versus the coupling iteration of selected steps.
// Steps are chosen evenly among all results; at most MaxCurves.
//  fnpath -- output file; the extension selects the format (.png, .svg, .pdf, .eps)
func PlotResiduals(results []fsi.StepResult, fnpath string) (err error) {
	p := plot.New()
	p.Title.Text = "coupling convergence"
	p.X.Label.Text = "iteration"
	p.Y.Label.Text = "|res|/√n"
	p.Y.Scale = plot.LogScale{}
	p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	var args []interface{}
	for _, k := range selectSteps(len(results), MaxCurves) {
		r := results[k]
		if len(r.Residuals) == 0 {
			continue
		}
		xys := make(plotter.XYs, len(r.Residuals))
		for i, v := range r.Residuals {
			xys[i].X = float64(i + 1)
			xys[i].Y = math.Max(v, MinResid)
		}
		args = append(args, io.Sf("step %d", r.Step), xys)
	}
	if len(args) == 0 {
		return chk.Err("there are no residuals to plot")
	}
	if err = plotutil.AddLinePoints(p, args...); err != nil {
		return chk.Err("cannot add residual curves:\n%v", err)
	}
	return save(p, fnpath)
}

// PlotIterations plots the number of coupling iterations and the final residual versus time
func PlotIterations(results []fsi.StepResult, fnpath string) (err error) {
	if len(results) == 0 {
		return chk.Err("there are no results to plot")
	}
	p := plot.New()
	p.Title.Text = "coupling iterations"
	p.X.Label.Text = "time"
	p.Y.Label.Text = "iterations"
	its := make(plotter.XYs, len(results))
	bad := make(plotter.XYs, 0)
	for i, r := range results {
		its[i].X, its[i].Y = r.Time, float64(r.Iterations)
		if !r.Converged {
			bad = append(bad, plotter.XY{X: r.Time, Y: float64(r.Iterations)})
		}
	}
	line, points, err := plotter.NewLinePoints(its)
	if err != nil {
		return chk.Err("cannot create iterations curve:\n%v", err)
	}
	p.Add(line, points)
	p.Legend.Add("iterations", line, points)
	if len(bad) > 0 {
		sc, e := plotter.NewScatter(bad)
		if e != nil {
			return chk.Err("cannot create non-converged markers:\n%v", e)
		}
		sc.GlyphStyle.Color = plotutil.Color(1)
		sc.GlyphStyle.Radius = vg.Points(4)
		p.Add(sc)
		p.Legend.Add("not converged", sc)
	}
	p.Y.Min = 0
	return save(p, fnpath)
}

// auxiliary ///////////////////////////////////////////////////////////////////////////////////////

// selectSteps returns at most nmax indices evenly spaced in [0, n), always including the last one
func selectSteps(n, nmax int) (idx []int) {
	if n <= nmax {
		for i := 0; i < n; i++ {
			idx = append(idx, i)
		}
		return
	}
	for k := 0; k < nmax; k++ {
		idx = append(idx, (k*(n-1))/(nmax-1))
	}
	return
}

// save saves figure creating the directory if necessary
func save(p *plot.Plot, fnpath string) (err error) {
	if err = os.MkdirAll(filepath.Dir(fnpath), 0o755); err != nil {
		return chk.Err("cannot create directory for %q:\n%v", fnpath, err)
	}
	if err = p.Save(PlotWidth, PlotHeight, fnpath); err != nil {
		return chk.Err("cannot save figure %q:\n%v", fnpath, err)
	}
	return
}
