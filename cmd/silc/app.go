package main

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"silc/pkg/compiler"
	"silc/pkg/report"
	"silc/pkg/utils"
)

const defaultMaxSteps = 10_000_000

// app carries the state shared by all subcommands of one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer

	v        *viper.Viper
	log      zerolog.Logger
	reporter *report.Reporter
}

// reportedError wraps an error that has already been shown to the user.
type reportedError struct{ err error }

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{
		stdout:   stdout,
		stderr:   stderr,
		v:        viper.New(),
		log:      zerolog.Nop(),
		reporter: report.New(stderr, false),
	}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var rep *reportedError
	if !errors.As(err, &rep) {
		a.reporter.Error("silc", err)
	}
	return 1
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "silc",
		Short:         "Compiler for the SIL language targeting the GoCPU machine",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.configure()
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (default ./silc.toml or ~/.config/silc/silc.toml)")
	flags.String("log-level", "warn", "log level (trace, debug, info, warn, error)")
	flags.Bool("no-color", false, "disable coloured diagnostics")
	for _, name := range []string{"config", "log-level", "no-color"} {
		_ = a.v.BindPFlag(name, flags.Lookup(name))
	}

	root.AddCommand(a.buildCmd(), a.runCmd(), a.tokensCmd(), a.astCmd())
	return root
}

// configure loads silc.toml and SILC_* environment variables, then sets up
// the logger and the diagnostics reporter.
func (a *app) configure() error {
	a.v.SetDefault("max-steps", defaultMaxSteps)

	a.v.SetEnvPrefix("SILC")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if cfgFile := a.v.GetString("config"); cfgFile != "" {
		a.v.SetConfigFile(cfgFile)
	} else {
		a.v.SetConfigName("silc")
		a.v.SetConfigType("toml")
		a.v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			a.v.AddConfigPath(filepath.Join(home, ".config", "silc"))
		}
	}
	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
	}

	noColor := a.v.GetBool("no-color")
	level, err := zerolog.ParseLevel(a.v.GetString("log-level"))
	if err != nil {
		return err
	}
	a.log = zerolog.New(zerolog.ConsoleWriter{Out: zerolog.SyncWriter(a.stderr), NoColor: noColor || !isTerminal(a.stderr)}).
		Level(level).
		With().Timestamp().Logger()

	if f, ok := a.stderr.(*os.File); ok {
		a.reporter = report.ForFile(f, noColor)
	}
	if used := a.v.ConfigFileUsed(); used != "" {
		a.log.Debug().Str("path", used).Msg("loaded config")
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && report.IsTerminal(f)
}

// bindFlags binds the named local flags of cmd to viper keys of the same name.
func (a *app) bindFlags(cmd *cobra.Command, names ...string) error {
	for _, name := range names {
		if err := a.v.BindPFlag(name, cmd.Flags().Lookup(name)); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) compileOptions(filename string) []compiler.Option {
	return []compiler.Option{
		compiler.WithLogger(a.log),
		compiler.WithFilename(filename),
		compiler.WithConstantFolding(a.v.GetBool("fold")),
	}
}

// compileFile reads and compiles one source file. Compile errors are
// rendered through the reporter before being returned.
func (a *app) compileFile(path string) (*compiler.Result, error) {
	_, src, err := utils.ReadSource(path)
	if err != nil {
		a.reporter.Error(filepath.Base(path), err)
		return nil, &reportedError{err}
	}
	res, err := compiler.Compile(src, a.compileOptions(path)...)
	if err != nil {
		a.reporter.Report(path, src, err)
		return nil, &reportedError{err}
	}
	return res, nil
}
