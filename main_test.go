// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yamanatoo/Kratos/out"
)

func init() {
	io.Verbose = false
}

func verbose() {
	io.Verbose = true
	chk.Verbose = true
}

// execute runs the command line interface with args and returns the standard output
func execute(args ...string) (string, error) {
	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func Test_cli01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("cli01. run with two workers")

	dirout := tst.TempDir()
	_, err := execute("run", "inp/data/piston.yaml", "-v=false", "-w", "2", "--dirout", dirout, "--enc", "yaml", "--plot")
	require.NoError(tst, err)

	s, err := out.ReadSummary(filepath.Join(dirout, "piston.yaml"))
	require.NoError(tst, err)
	io.Pforan("summary: steps=%d iterations=%d\n", s.Steps, s.TotalIterations)
	chk.Int(tst, "steps", s.Steps, 4)
	chk.Ints(tst, "non-converged", s.NonConverged, []int{})
	assert.Equal(tst, "membrane separating two chambers with a pressure difference", s.Desc)
	assert.NotEmpty(tst, s.RunId)
	assert.FileExists(tst, filepath.Join(dirout, "piston_residuals.png"))
	assert.FileExists(tst, filepath.Join(dirout, "piston_iterations.png"))
}

func Test_cli02(tst *testing.T) {

	//verbose()
	chk.PrintTitle("cli02. check and compare")

	res, err := execute("check", "inp/data/shell.yaml", "-v=false")
	require.NoError(tst, err)
	assert.Contains(tst, res, "type: mvqn")
	assert.Contains(tst, res, "kind: Negative")

	res, err = execute("compare", "inp/data/membrane.json", "-v=false")
	require.NoError(tst, err)
	io.Pforan("%s\n", res)
	for _, typ := range []string{"constant", "aitken", "iqnils", "mvqn"} {
		assert.Contains(tst, res, typ)
	}
}

func Test_cli03(tst *testing.T) {

	//verbose()
	chk.PrintTitle("cli03. errors")

	_, err := execute("run", "inp/data/membrane.json", "--enc", "xml")
	assert.ErrorContains(tst, err, "invalid encoding")

	_, err = execute("run", "inp/data/membrane.json", "--log-level", "loud")
	assert.ErrorContains(tst, err, "invalid log level")

	_, err = execute("run", "inp/data/membrane.json", "-v=false", "-w", "0", "--dirout", tst.TempDir())
	assert.ErrorContains(tst, err, "workers")

	_, err = execute("check", "inp/data/missing.json")
	assert.ErrorContains(tst, err, "cannot read input file")

	_, err = execute("run")
	assert.Error(tst, err)
}
