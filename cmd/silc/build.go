package main

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"silc/pkg/compiler"
	"silc/pkg/utils"
)

func (a *app) buildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build FILE...",
		Short: "Compile SIL files to GoCPU assembly",
		Long: `Compile each FILE to assembly written next to it with a .s extension.
Files are compiled in parallel; every failing file is reported.`,
		Args: cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return a.bindFlags(cmd, "fold", "output")
		},
		RunE: a.runBuild,
	}
	cmd.Flags().Bool("fold", false, "fold constant expressions")
	cmd.Flags().StringP("output", "o", "", "output path (single input only)")
	return cmd
}

// buildFailure is the outcome of one failed file in a build.
type buildFailure struct {
	path string
	src  string
	err  error
}

func (f *buildFailure) Error() string { return f.path + ": " + f.err.Error() }
func (f *buildFailure) Unwrap() error { return f.err }

func (a *app) runBuild(cmd *cobra.Command, args []string) error {
	output := a.v.GetString("output")
	if output != "" && len(args) > 1 {
		return errors.New("--output can only be used with a single input file")
	}

	failures := make([]*buildFailure, len(args))
	written := make([]string, len(args))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range args {
		g.Go(func() error {
			out, failure := a.buildFile(path, output)
			failures[i], written[i] = failure, out
			return nil
		})
	}
	_ = g.Wait()

	// Report in argument order so output is deterministic.
	var result *multierror.Error
	for i, failure := range failures {
		if failure == nil {
			a.reporter.Success("built", written[i])
			continue
		}
		a.reporter.Report(failure.path, failure.src, failure.err)
		result = multierror.Append(result, failure)
	}
	if err := result.ErrorOrNil(); err != nil {
		a.log.Debug().Int("failed", len(result.Errors)).Int("files", len(args)).Msg("build failed")
		return &reportedError{err}
	}
	return nil
}

// buildFile compiles path and writes the assembly to output, or next to the
// source when output is empty.
func (a *app) buildFile(path, output string) (string, *buildFailure) {
	_, src, err := utils.ReadSource(path)
	if err != nil {
		return "", &buildFailure{path: path, err: err}
	}
	res, err := compiler.Compile(src, a.compileOptions(path)...)
	if err != nil {
		return "", &buildFailure{path: path, src: src, err: err}
	}

	if output == "" {
		output, err = utils.SiblingPath(path, ".s")
		if err != nil {
			return "", &buildFailure{path: path, err: err}
		}
	}
	if err := os.WriteFile(output, []byte(res.Assembly), 0o644); err != nil {
		return "", &buildFailure{path: path, err: err}
	}
	a.log.Info().Str("file", filepath.Base(path)).Str("output", output).Int("folded", res.Folded).Msg("built")
	return output, nil
}
