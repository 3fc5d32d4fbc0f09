// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package out implements the output of coupled simulations: step history, summaries and plots
package out

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/utl"
	"github.com/google/uuid"
	"github.com/yamanatoo/Kratos/fsi"
	"gopkg.in/yaml.v3"
)

// History records the results of all time steps of one simulation
type History struct {
	RunId   string           // unique id of this run
	Desc    string           // description of simulation
	Echo    bool             // print one line per step
	Results []fsi.StepResult // results of all finalized steps
	started time.Time
	mu      sync.Mutex
}

// NewHistory returns a new history with a fresh run id
func NewHistory(desc string, echo bool) (o *History) {
	o = &History{RunId: uuid.NewString(), Desc: desc, Echo: echo, started: time.Now()}
	if o.Echo {
		io.Pf("%8s%14s%8s%12s%16s%16s\n", "step", "time", "iters", "converged", "residual", "mesh residual")
	}
	return
}

// Record appends the result of one step
func (o *History) Record(res fsi.StepResult) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	res.Residuals = append([]float64{}, res.Residuals...)
	o.Results = append(o.Results, res)
	if o.Echo {
		conv := "yes"
		if !res.Converged {
			conv = "NO"
		}
		io.Pf("%8d%14.6g%8d%12s%16.6e%16.6e\n", res.Step, res.Time, res.Iterations, conv, res.Residual(), res.MeshResidual)
	}
	return nil
}

// Summary holds the totals of one simulation
type Summary struct {
	RunId           string           `json:"run_id"            yaml:"run_id"`
	Desc            string           `json:"desc"              yaml:"desc"`
	Elapsed         string           `json:"elapsed"           yaml:"elapsed"`
	Steps           int              `json:"steps"             yaml:"steps"`
	NonConverged    []int            `json:"non_converged"     yaml:"non_converged"`
	TotalIterations int              `json:"total_iterations"  yaml:"total_iterations"`
	MeanIterations  float64          `json:"mean_iterations"   yaml:"mean_iterations"`
	MaxIterations   int              `json:"max_iterations"    yaml:"max_iterations"`
	MaxResidual     float64          `json:"max_residual"      yaml:"max_residual"`
	MaxMeshResidual float64          `json:"max_mesh_residual" yaml:"max_mesh_residual"`
	Fallbacks       int              `json:"fallbacks"         yaml:"fallbacks"`
	Results         []fsi.StepResult `json:"results"           yaml:"results"`
}

// Summary computes the totals
func (o *History) Summary() (s Summary) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s.RunId = o.RunId
	s.Desc = o.Desc
	s.Elapsed = time.Since(o.started).Round(time.Millisecond).String()
	s.Steps = len(o.Results)
	s.NonConverged = []int{}
	for _, r := range o.Results {
		if !r.Converged {
			s.NonConverged = append(s.NonConverged, r.Step)
		}
		s.TotalIterations += r.Iterations
		s.MaxIterations = utl.Imax(s.MaxIterations, r.Iterations)
		s.MaxResidual = utl.Max(s.MaxResidual, r.Residual())
		s.MaxMeshResidual = utl.Max(s.MaxMeshResidual, r.MeshResidual)
		s.Fallbacks += r.Fallbacks
	}
	if s.Steps > 0 {
		s.MeanIterations = float64(s.TotalIterations) / float64(s.Steps)
	}
	s.Results = append([]fsi.StepResult{}, o.Results...)
	return
}

// Save writes the summary to dirout/key.json or dirout/key.yaml, according to enc ("json" or "yaml")
func (o *History) Save(dirout, key, enc string) (fnpath string, err error) {
	s := o.Summary()
	var b []byte
	switch strings.ToLower(enc) {
	case "json", "":
		fnpath = filepath.Join(dirout, key+".json")
		b, err = json.MarshalIndent(s, "", "  ")
	case "yaml", "yml":
		fnpath = filepath.Join(dirout, key+".yaml")
		b, err = yaml.Marshal(s)
	default:
		return "", chk.Err("cannot save summary with encoding %q. use json or yaml", enc)
	}
	if err != nil {
		return "", chk.Err("cannot encode summary:\n%v", err)
	}
	if err = os.MkdirAll(dirout, 0o755); err != nil {
		return "", chk.Err("cannot create output directory %q:\n%v", dirout, err)
	}
	if err = os.WriteFile(fnpath, b, 0o644); err != nil {
		return "", chk.Err("cannot write summary file %q:\n%v", fnpath, err)
	}
	return
}

// ReadSummary reads a summary written by Save
func ReadSummary(fnpath string) (s *Summary, err error) {
	b, err := os.ReadFile(fnpath)
	if err != nil {
		return nil, chk.Err("cannot read summary file %q:\n%v", fnpath, err)
	}
	s = new(Summary)
	switch strings.ToLower(filepath.Ext(fnpath)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, s)
	default:
		err = json.Unmarshal(b, s)
	}
	if err != nil {
		return nil, chk.Err("cannot decode summary file %q:\n%v", fnpath, err)
	}
	return
}
