// Package runtime provides the top-level Rev runtime orchestrator.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/thomasrohde/rev/pkg/ast"
	"github.com/thomasrohde/rev/pkg/builtins"
	"github.com/thomasrohde/rev/pkg/config"
	"github.com/thomasrohde/rev/pkg/diagnostics"
	"github.com/thomasrohde/rev/pkg/evaluator"
	"github.com/thomasrohde/rev/pkg/formatter"
	"github.com/thomasrohde/rev/pkg/inverter"
	"github.com/thomasrohde/rev/pkg/parser"
	"github.com/thomasrohde/rev/pkg/types"
	"github.com/thomasrohde/rev/pkg/validator"
)

// Result holds the outcome of a program execution.
type Result struct {
	RunID   string
	Steps   int64
	Calls   int64
	Undos   int64
	Elapsed time.Duration
}

// Runtime wires together all Rev components for program execution.
type Runtime struct {
	builtins *builtins.Registry
	config   *config.Config
	stdout   io.Writer
	stdin    io.Reader
	runID    string
	trace    func(event evaluator.TraceEvent)
	logger   *slog.Logger
	validate bool
}

// Option is a functional option for configuring the Runtime.
type Option func(*Runtime)

// WithBuiltins sets the builtin registry.
func WithBuiltins(r *builtins.Registry) Option {
	return func(rt *Runtime) {
		rt.builtins = r
	}
}

// WithConfig sets the configuration.
func WithConfig(c *config.Config) Option {
	return func(rt *Runtime) {
		rt.config = c
	}
}

// WithStdout sets the writer print writes to.
func WithStdout(w io.Writer) Option {
	return func(rt *Runtime) {
		rt.stdout = w
	}
}

// WithStdin sets the reader read consumes.
func WithStdin(r io.Reader) Option {
	return func(rt *Runtime) {
		rt.stdin = r
	}
}

// WithRunID sets the run ID for trace events. Without it every run gets a
// fresh UUID.
func WithRunID(id string) Option {
	return func(rt *Runtime) {
		rt.runID = id
	}
}

// WithTrace sets the trace callback.
func WithTrace(fn func(event evaluator.TraceEvent)) Option {
	return func(rt *Runtime) {
		rt.trace = fn
	}
}

// WithLogger sets the logger pipeline phases are reported to.
func WithLogger(l *slog.Logger) Option {
	return func(rt *Runtime) {
		rt.logger = l
	}
}

// WithValidation turns the static validation pass before execution on or off.
func WithValidation(enabled bool) Option {
	return func(rt *Runtime) {
		rt.validate = enabled
	}
}

// New creates a new Runtime with the given options.
// By default, the standard builtins are registered, the default
// configuration applies and output is discarded.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		builtins: builtins.Default(),
		config:   config.Default(),
		stdout:   io.Discard,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		validate: true,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Run parses, validates, annotates and executes a Rev program.
func (rt *Runtime) Run(ctx context.Context, source, filename string) (*Result, error) {
	runID := rt.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	log := rt.logger.With("run", runID, "file", filename)

	start := time.Now()
	program, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		log.Debug("parse failed", "code", diags[0].Code)
		return nil, &DiagnosticError{Diagnostics: diags}
	}
	log.Debug("parsed", "fns", len(program.Fns), "duration", time.Since(start))

	if rt.validate {
		start = time.Now()
		if vDiags := validator.Validate(program, rt.builtins.Arity()); len(vDiags) > 0 {
			log.Debug("validation failed", "diagnostics", len(vDiags))
			return nil, &DiagnosticError{Diagnostics: vDiags}
		}
		log.Debug("validated", "duration", time.Since(start))
	}

	if rt.config.Annotate {
		start = time.Now()
		types.AnnotateProgram(program)
		log.Debug("annotated", "duration", time.Since(start))
	}

	opts := rt.buildExecOptions(runID)
	res, err := evaluator.Execute(ctx, program, opts)
	var result *Result
	if res != nil {
		result = &Result{
			RunID:   runID,
			Steps:   res.Steps,
			Calls:   res.Calls,
			Undos:   res.Undos,
			Elapsed: res.Elapsed,
		}
		log.Debug("executed", "steps", res.Steps, "calls", res.Calls, "duration", res.Elapsed)
	}
	if err != nil {
		log.Debug("execution failed", "error", err)
		return result, err
	}
	return result, nil
}

// Check parses and validates a Rev program without executing it.
func (rt *Runtime) Check(source, filename string) []diagnostics.Diagnostic {
	program, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return diags
	}
	return validator.Validate(program, rt.builtins.Arity())
}

// Format parses and formats a Rev program.
func (rt *Runtime) Format(source, filename string) (string, error) {
	program, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return "", &DiagnosticError{Diagnostics: diags}
	}
	return formatter.Format(program), nil
}

// Invert parses a Rev program and formats it with every function body
// inverted.
func (rt *Runtime) Invert(source, filename string) (string, error) {
	program, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return "", &DiagnosticError{Diagnostics: diags}
	}
	inv := &ast.Program{Span: program.Span, Fns: make([]*ast.Fn, len(program.Fns))}
	for i, fn := range program.Fns {
		f, err := inverter.InvertFn(fn)
		if err != nil {
			return "", asDiagnosticError(err)
		}
		inv.Fns[i] = f
	}
	return formatter.Format(inv), nil
}

// buildExecOptions constructs evaluator options from the runtime's configuration.
func (rt *Runtime) buildExecOptions(runID string) evaluator.ExecOptions {
	return evaluator.ExecOptions{
		Stdout:   rt.stdout,
		Stdin:    rt.stdin,
		Builtins: rt.builtins.Map(),
		Trace:    rt.trace,
		RunID:    runID,
		Budget: evaluator.Budget{
			TimeMs:   evaluator.Limit(rt.config.TimeoutMs),
			MaxSteps: evaluator.Limit(rt.config.MaxSteps),
		},
		CheckExitGuards: rt.config.StrictGuards,
	}
}

func asDiagnosticError(err error) error {
	var ie *inverter.Error
	if errors.As(err, &ie) {
		return &DiagnosticError{Diagnostics: []diagnostics.Diagnostic{ie.Diag}}
	}
	return err
}

// DiagnosticError wraps diagnostics as an error.
type DiagnosticError struct {
	Diagnostics []diagnostics.Diagnostic
}

func (e *DiagnosticError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = fmt.Sprintf("%s: %s", d.Code, d.Message)
	}
	return strings.Join(msgs, "; ")
}
