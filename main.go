// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/mpi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/yamanatoo/Kratos/ana"
	"github.com/yamanatoo/Kratos/comm"
	"github.com/yamanatoo/Kratos/fsi"
	"github.com/yamanatoo/Kratos/inp"
	"github.com/yamanatoo/Kratos/lgr"
	"github.com/yamanatoo/Kratos/out"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

func main() {
	mpi.Start()
	defer mpi.Stop()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		if rank() == 0 {
			io.PfRed("\nERROR: %v\n", err)
		}
		mpi.Stop()
		os.Exit(1)
	}
}

// options holds the flags of all commands
type options struct {
	Verbose     bool   // show messages and step table
	LogLevel    string // debug, info, warn or error
	DirOut      string // output directory
	Enc         string // summary encoding: json or yaml
	Plot        bool   // save convergence plots
	Workers     int    // number of in-process workers (ignored if running with MPI)
	MetricsAddr string // address of /metrics endpoint; empty => disabled
}

// newRootCommand returns the command line interface
func newRootCommand() *cobra.Command {
	opts := new(options)
	cmd := &cobra.Command{
		Use:           "kratos",
		Short:         "partitioned fluid-structure interaction coupling",
		Long:          "Runs Dirichlet-Neumann coupled simulations of the membrane benchmark with interface mapping and convergence acceleration.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := level(opts.LogLevel); err != nil {
				return err
			}
			if opts.Enc != "json" && opts.Enc != "yaml" {
				return chk.Err("invalid encoding %q: must be json or yaml", opts.Enc)
			}
			return nil
		},
	}
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", true, "show messages")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.DirOut, "dirout", "/tmp/kratos", "output directory")
	cmd.PersistentFlags().StringVar(&opts.Enc, "enc", "json", "summary encoding (json|yaml)")
	cmd.AddCommand(newRunCommand(opts), newCompareCommand(opts), newCheckCommand(opts))
	return cmd
}

// newRunCommand returns the command running one simulation
func newRunCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <input.json|input.yaml>",
		Short: "run a coupled simulation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, set, err := load(args[0])
			if err != nil {
				return err
			}
			reg := prometheus.NewRegistry()
			if opts.MetricsAddr != "" && rank() == 0 {
				srv := serveMetrics(opts.MetricsAddr, reg)
				defer srv.Close()
			}
			w := cmd.OutOrStdout()
			if opts.Verbose && rank() == 0 {
				fmt.Fprintf(w, "\n%v\n", io.ArgsTable("INPUT ARGUMENTS",
					"input file", "fnamepath", args[0],
					"accelerator", "type", set.Accelerator.Type,
					"double-faced", "double", set.DoubleFaced(),
					"workers", "workers", opts.Workers,
					"output directory", "dirout", opts.DirOut,
				))
			}
			hist := out.NewHistory(set.Desc, opts.Verbose && rank() == 0)
			if err = run(cmd.Context(), in, set, opts, reg, hist); err != nil {
				return err
			}
			if rank() != 0 {
				return nil
			}
			return save(cmd, hist, key(args[0]), opts)
		},
	}
	cmd.Flags().BoolVar(&opts.Plot, "plot", false, "save convergence plots")
	cmd.Flags().IntVarP(&opts.Workers, "workers", "w", 1, "number of in-process workers")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve prometheus metrics at this address; e.g. :9090")
	return cmd
}

// newCompareCommand returns the command comparing all convergence accelerators
func newCompareCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "compare <input.json|input.yaml>",
		Short: "run the same simulation with every convergence accelerator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, _, err := load(args[0])
			if err != nil {
				return err
			}
			types := []string{"constant", "aitken", "iqnils", "mvqn"}
			mains := make([]*fsi.Main, len(types))
			hists := make([]*out.History, len(types))
			reg := prometheus.NewRegistry()
			for k, typ := range types {
				cin := *in
				cin.Coupling.CouplingStrategy = inp.StrategyInput{Type: typ}
				set, err := inp.Resolve(cin)
				if err != nil {
					return err
				}
				hists[k] = out.NewHistory(typ, false)
				met := fsi.NewMetrics(reg, prometheus.Labels{"accelerator": typ})
				mains[k], err = newMain(&cin, set, comm.Serial{}, logger(opts, 0), met, hists[k])
				if err != nil {
					return err
				}
			}
			if err = fsi.RunEnsemble(cmd.Context(), mains); err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%12s%8s%10s%10s%14s%10s\n", "accelerator", "steps", "total it", "mean it", "non-converged", "fallbacks")
			for k, typ := range types {
				s := hists[k].Summary()
				fmt.Fprintf(w, "%12s%8d%10d%10.2f%14d%10d\n", typ, s.Steps, s.TotalIterations, s.MeanIterations, len(s.NonConverged), s.Fallbacks)
			}
			return nil
		},
	}
}

// newCheckCommand returns the command validating an input file
func newCheckCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check <input.json|input.yaml>",
		Short: "read and validate an input file and print the resolved settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, set, err := load(args[0])
			if err != nil {
				return err
			}
			if _, err = ana.NewMembrane(in, set, 0, 1); err != nil {
				return err
			}
			b, err := yaml.Marshal(set)
			if err != nil {
				return chk.Err("cannot encode settings:\n%v", err)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s", b)
			if opts.Verbose {
				fmt.Fprintf(w, "%v\ninput file %q is valid\n", in.Functions, args[0])
			}
			return nil
		},
	}
}

// auxiliary ///////////////////////////////////////////////////////////////////////////////////////

// load reads and resolves the input file
func load(fnpath string) (in *inp.Input, set inp.Settings, err error) {
	in, err = inp.ReadInput(fnpath)
	if err != nil {
		return
	}
	set, err = inp.Resolve(*in)
	return
}

// run runs the simulation on all MPI processes or on opts.Workers in-process workers
func run(ctx context.Context, in *inp.Input, set inp.Settings, opts *options, reg prometheus.Registerer, hist *out.History) error {
	if mpi.IsOn() && mpi.WorldSize() > 1 {
		c := comm.NewMPI()
		var rec fsi.Recorder
		var met *fsi.Metrics
		if c.Rank() == 0 {
			rec, met = hist, fsi.NewMetrics(reg, nil)
		}
		m, err := newMain(in, set, c, logger(opts, c.Rank()), met, rec)
		if err != nil {
			return err
		}
		return m.Run(ctx)
	}
	if opts.Workers < 1 {
		return chk.Err("number of workers must be positive. %d is invalid", opts.Workers)
	}
	comms := comm.NewLocalGroup(opts.Workers)
	mains := make([]*fsi.Main, len(comms))
	for i, c := range comms {
		var rec fsi.Recorder
		var met *fsi.Metrics
		if c.Rank() == 0 {
			rec, met = hist, fsi.NewMetrics(reg, nil)
		}
		m, err := newMain(in, set, c, logger(opts, c.Rank()), met, rec)
		if err != nil {
			return err
		}
		mains[i] = m
	}
	var g errgroup.Group
	for _, m := range mains {
		g.Go(func() error { return m.Run(ctx) })
	}
	return g.Wait()
}

// newMain allocates the benchmark solvers of worker c and the coupled driver
func newMain(in *inp.Input, set inp.Settings, c comm.Communicator, log *lgr.Logger, met *fsi.Metrics, rec fsi.Recorder) (*fsi.Main, error) {
	m, err := ana.NewMembrane(in, set, c.Rank(), c.Size())
	if err != nil {
		return nil, err
	}
	fluid, structure, mesh := m.Solvers()
	p, err := fsi.NewPartitioned(set, fluid, structure, mesh, fsi.WithCommunicator(c), fsi.WithLogger(log), fsi.WithMetrics(met))
	if err != nil {
		return nil, err
	}
	return fsi.NewMain(p, rec), nil
}

// save saves the summary and plots
func save(cmd *cobra.Command, hist *out.History, key string, opts *options) error {
	fnpath, err := hist.Save(opts.DirOut, key, opts.Enc)
	if err != nil {
		return err
	}
	s := hist.Summary()
	if opts.Verbose {
		fmt.Fprintf(cmd.OutOrStdout(), "\nrun %s: %d steps, %d iterations, %d not converged\nsummary saved to %s\n",
			s.RunId, s.Steps, s.TotalIterations, len(s.NonConverged), fnpath)
	}
	if !opts.Plot {
		return nil
	}
	if err = out.PlotResiduals(hist.Results, filepath.Join(opts.DirOut, key+"_residuals.png")); err != nil {
		return err
	}
	return out.PlotIterations(hist.Results, filepath.Join(opts.DirOut, key+"_iterations.png"))
}

// serveMetrics serves the registry at addr/metrics
func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			io.PfRed("metrics server failed: %v\n", err)
		}
	}()
	return srv
}

// logger returns the logger of worker rank
func logger(opts *options, rank int) *lgr.Logger {
	lvl, _ := level(opts.LogLevel)
	return lgr.NewText(os.Stderr, lvl, rank)
}

// level parses a log level
func level(s string) (lvl slog.Level, err error) {
	if err = lvl.UnmarshalText([]byte(s)); err != nil {
		return lvl, chk.Err("invalid log level %q: must be debug, info, warn or error", s)
	}
	return
}

// key returns the simulation key; i.e. the input file name without extension
func key(fnpath string) string {
	base := filepath.Base(fnpath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// rank returns the MPI rank or 0 if MPI is off
func rank() int {
	if mpi.IsOn() {
		return mpi.WorldRank()
	}
	return 0
}
