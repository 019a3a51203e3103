package runtime

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/thomasrohde/rev/pkg/ast"
	"github.com/thomasrohde/rev/pkg/diagnostics"
	"github.com/thomasrohde/rev/pkg/evaluator"
	"github.com/thomasrohde/rev/pkg/inverter"
	"github.com/thomasrohde/rev/pkg/parser"
	"github.com/thomasrohde/rev/pkg/types"
)

// ErrNothingToUndo is returned by Undo when no statement has run.
var ErrNothingToUndo = errors.New("nothing to undo")

// Binding is one live variable of a session.
type Binding struct {
	Name  string
	Value evaluator.Value
}

// Outcome describes what one session input did.
type Outcome struct {
	// Defined lists the functions the input defined.
	Defined []string
	// Stmt is the statement the input executed, if any.
	Stmt ast.Stmt
}

type entry struct {
	stmt    ast.Stmt
	inverse ast.Stmt
	err     error
}

// Session evaluates inputs one at a time against a persistent machine and
// symbol table, remembering each statement so it can be undone.
type Session struct {
	rt      *Runtime
	m       *evaluator.Machine
	syms    *ast.Symbols
	history []entry
}

// NewSession creates an interactive session.
func (rt *Runtime) NewSession() *Session {
	runID := rt.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	opts := rt.buildExecOptions(runID)
	// The wall clock keeps running between inputs, so only the step budget
	// applies to a session.
	opts.Budget.TimeMs = nil
	return &Session{
		rt:   rt,
		m:    evaluator.NewMachine(opts),
		syms: ast.NewSymbols(),
	}
}

// Eval parses and runs one input: function definitions or a statement
// sequence. A DiagnosticError for which IsIncomplete holds means the input
// may continue on another line.
func (s *Session) Eval(ctx context.Context, input string) (*Outcome, error) {
	fns, stmt, diags := parser.ParseInput(input, "<repl>", s.syms)
	if len(diags) > 0 {
		return nil, &DiagnosticError{Diagnostics: diags}
	}

	if fns != nil {
		out := &Outcome{}
		for _, fn := range fns {
			if s.rt.config.Annotate {
				types.Annotate(fn)
			}
			if err := s.m.Define(fn); err != nil {
				return out, err
			}
			out.Defined = append(out.Defined, fn.Name)
		}
		return out, nil
	}

	if s.rt.config.Annotate {
		types.AnnotateStmt(stmt)
	}
	inv, invErr := inverter.InvertStmt(stmt)
	if err := s.m.Exec(ctx, stmt); err != nil {
		return nil, err
	}
	s.history = append(s.history, entry{stmt: stmt, inverse: inv, err: invErr})
	return &Outcome{Stmt: stmt}, nil
}

// LastInverse returns the inverse of the most recent statement still on
// the history.
func (s *Session) LastInverse() (ast.Stmt, error) {
	if len(s.history) == 0 {
		return nil, ErrNothingToUndo
	}
	e := s.history[len(s.history)-1]
	if e.err != nil {
		return nil, asDiagnosticError(e.err)
	}
	return e.inverse, nil
}

// Undo runs the inverse of the most recent statement and forgets it.
func (s *Session) Undo(ctx context.Context) (ast.Stmt, error) {
	inv, err := s.LastInverse()
	if err != nil {
		return nil, err
	}
	if err := s.m.Exec(ctx, inv); err != nil {
		return nil, err
	}
	s.history = s.history[:len(s.history)-1]
	return inv, nil
}

// Depth returns how many statements can be undone.
func (s *Session) Depth() int {
	return len(s.history)
}

// Bindings returns the live variables sorted by name.
func (s *Session) Bindings() []Binding {
	env := s.m.Env()
	snap := env.Snapshot()
	out := make([]Binding, 0, len(snap))
	for _, n := range env.Names() {
		out = append(out, Binding{Name: n, Value: snap[n]})
	}
	return out
}

// IsIncomplete reports whether err only says the input ended too early.
func IsIncomplete(err error) bool {
	var de *DiagnosticError
	return errors.As(err, &de) && parser.IsIncomplete(de.Diagnostics)
}

// Diagnostics extracts the diagnostics carried by err: static diagnostics,
// or a runtime error converted to one. It returns nil for other errors.
func Diagnostics(err error) []diagnostics.Diagnostic {
	var de *DiagnosticError
	if errors.As(err, &de) {
		return de.Diagnostics
	}
	var re *evaluator.RuntimeError
	if errors.As(err, &re) {
		return []diagnostics.Diagnostic{re.Diagnostic()}
	}
	return nil
}
