package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/thomasrohde/rev/pkg/config"
	"github.com/thomasrohde/rev/pkg/diagnostics"
	"github.com/thomasrohde/rev/pkg/evaluator"
	"github.com/thomasrohde/rev/pkg/runtime"
)

// Process exit codes.
const (
	exitOK      = 0
	exitUsage   = 1
	exitStatic  = 2
	exitRuntime = 4
)

// exitError carries the process exit code of a failed command whose
// message has already been written.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// options holds the flags shared by the commands that execute programs.
type options struct {
	pretty        bool
	verbose       bool
	noAnnotate    bool
	noValidate    bool
	lenientGuards bool
	maxSteps      int64
	timeout       time.Duration
	trace         string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "rev",
		Short: "Rev - a reversible programming language",
		Long: `Rev runs programs in which every statement can be undone.

Without a command, rev reads a program from standard input and runs it.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProgram(cmd, opts, "-")
		},
	}

	root.PersistentFlags().BoolVar(&opts.pretty, "pretty", false, "human-readable diagnostics")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log pipeline phases to stderr")
	addRunFlags(root, opts)

	root.AddCommand(
		newRunCmd(opts),
		newCheckCmd(opts),
		newFmtCmd(opts),
		newInvertCmd(opts),
		newTraceCmd(),
		newReplCmd(opts),
		newDocCmd(),
		newConfigCmd(),
	)
	return root
}

func addRunFlags(cmd *cobra.Command, opts *options) {
	f := cmd.Flags()
	f.BoolVar(&opts.noAnnotate, "no-annotate", false, "skip the type annotator")
	f.BoolVar(&opts.noValidate, "no-validate", false, "skip static validation before running")
	f.BoolVar(&opts.lenientGuards, "lenient-guards", false, "do not check if exit guards while running")
	f.Int64Var(&opts.maxSteps, "max-steps", 0, "statement budget (0 = unlimited)")
	f.DurationVar(&opts.timeout, "timeout", 0, "wall-clock budget, e.g. 500ms (0 = unlimited)")
	f.StringVar(&opts.trace, "trace", "", "write NDJSON trace events to this file")
}

// loadConfig reads the project or user configuration and applies the flags
// the user set on cmd.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, _, err := config.Load(cwd)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("pretty") {
		cfg.Pretty = opts.pretty
	}
	if flags.Lookup("no-annotate") != nil {
		if flags.Changed("no-annotate") {
			cfg.Annotate = !opts.noAnnotate
		}
		if flags.Changed("lenient-guards") {
			cfg.StrictGuards = !opts.lenientGuards
		}
		if flags.Changed("max-steps") {
			cfg.MaxSteps = opts.maxSteps
		}
		if flags.Changed("timeout") {
			cfg.TimeoutMs = opts.timeout.Milliseconds()
		}
		if flags.Changed("trace") {
			cfg.Trace = opts.trace
		}
	}
	return cfg, cfg.Validate()
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	if !verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// runProgram executes the program in file ("-" for standard input).
func runProgram(cmd *cobra.Command, opts *options, file string) error {
	stderr := cmd.ErrOrStderr()
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		fmt.Fprintf(stderr, "error: %s\n", err)
		return &exitError{code: exitUsage}
	}

	source, filename, err := readSource(cmd, file)
	if err != nil {
		printDiags(stderr, []diagnostics.Diagnostic{ioDiag(err)}, cfg.Pretty)
		return &exitError{code: exitUsage}
	}

	rtOpts := []runtime.Option{
		runtime.WithConfig(cfg),
		runtime.WithStdout(cmd.OutOrStdout()),
		runtime.WithStdin(cmd.InOrStdin()),
		runtime.WithValidation(!opts.noValidate),
		runtime.WithLogger(newLogger(stderr, opts.verbose)),
	}
	if cfg.Trace != "" {
		f, err := os.Create(cfg.Trace)
		if err != nil {
			printDiags(stderr, []diagnostics.Diagnostic{ioDiag(err)}, cfg.Pretty)
			return &exitError{code: exitUsage}
		}
		defer f.Close()
		enc := json.NewEncoder(f)
		rtOpts = append(rtOpts, runtime.WithTrace(func(ev evaluator.TraceEvent) {
			_ = enc.Encode(ev)
		}))
	}

	_, err = runtime.New(rtOpts...).Run(context.Background(), source, filename)
	return reportError(stderr, err, cfg.Pretty)
}

// reportError prints err as diagnostics and maps it to an exit code.
func reportError(w io.Writer, err error, pretty bool) error {
	if err == nil {
		return nil
	}
	var de *runtime.DiagnosticError
	if errors.As(err, &de) {
		printDiags(w, de.Diagnostics, pretty)
		return &exitError{code: exitStatic}
	}
	if diags := runtime.Diagnostics(err); diags != nil {
		printDiags(w, diags, pretty)
		return &exitError{code: exitRuntime}
	}
	fmt.Fprintf(w, "error: %s\n", err)
	return &exitError{code: exitRuntime}
}

// readSource reads a program from file, or from standard input for "-".
func readSource(cmd *cobra.Command, file string) (string, string, error) {
	if file == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", "", err
		}
		return string(data), "<stdin>", nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", "", err
	}
	return string(data), file, nil
}

func ioDiag(err error) diagnostics.Diagnostic {
	return diagnostics.MakeDiag(diagnostics.EIO, err.Error(), nil, "")
}
