// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package inp

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/fun/dbf"
	"github.com/cpmech/gosl/io"
)

// FuncData holds the definition of a time function; e.g. the pressure driving a benchmark
type FuncData struct {
	Name string     `json:"name" yaml:"name"` // name of function. ex: zero, load, pulse
	Type string     `json:"type" yaml:"type"` // type of function. ex: cte, rmp, cos
	Prms dbf.Params `json:"prms" yaml:"prms"` // parameters
}

// FuncsData holds functions
type FuncsData []*FuncData

// Get returns function by name. An unknown function, or one dbf cannot allocate, gives ErrConfig
func (o FuncsData) Get(name string) (fcn dbf.T, err error) {
	if name == "zero" || name == "none" || name == "" {
		return dbf.New("cte", dbf.Params{&dbf.P{N: "c", V: 0}}), nil
	}
	for _, f := range o {
		if f.Name == name {
			return f.alloc()
		}
	}
	err = chk.Err("cannot find function named %q: %w", name, ErrConfig)
	return
}

// alloc allocates the function; dbf.New panics on unknown types or invalid parameters
func (o *FuncData) alloc() (fcn dbf.T, err error) {
	defer func() {
		if r := recover(); r != nil {
			fcn, err = nil, chk.Err("cannot allocate function %q of type %q:\n%v: %w", o.Name, o.Type, r, ErrConfig)
		}
	}()
	fcn = dbf.New(o.Type, o.Prms)
	if fcn == nil {
		return nil, chk.Err("cannot allocate function %q of type %q: %w", o.Name, o.Type, ErrConfig)
	}
	return
}

// String prints functions
func (o FuncsData) String() string {
	if len(o) == 0 {
		return "functions: []"
	}
	l := "functions:"
	for _, f := range o {
		l += io.Sf("\n  - {name: %q, type: %q, nprms: %d}", f.Name, f.Type, len(f.Prms))
	}
	return l
}
