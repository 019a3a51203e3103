package evaluator

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/thomasrohde/rev/pkg/ast"
	"github.com/thomasrohde/rev/pkg/diagnostics"
	"github.com/thomasrohde/rev/pkg/inverter"
)

// TraceEventType identifies the type of a trace event.
type TraceEventType string

const (
	TraceRunStart       TraceEventType = "run_start"
	TraceRunEnd         TraceEventType = "run_end"
	TraceCallStart      TraceEventType = "call_start"
	TraceCallEnd        TraceEventType = "call_end"
	TraceUncallStart    TraceEventType = "uncall_start"
	TraceUncallEnd      TraceEventType = "uncall_end"
	TraceUndoStart      TraceEventType = "undo_start"
	TraceUndoEnd        TraceEventType = "undo_end"
	TraceLoopStart      TraceEventType = "loop_start"
	TraceLoopEnd        TraceEventType = "loop_end"
	TraceBudgetExceeded TraceEventType = "budget_exceeded"
)

// TraceEvent represents a single trace event emitted during execution.
type TraceEvent struct {
	Timestamp string         `json:"ts"`
	RunID     string         `json:"runId"`
	Event     TraceEventType `json:"event"`
	Span      *ast.Span      `json:"span,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// ExecOptions configures program execution.
type ExecOptions struct {
	Stdout   io.Writer
	Stdin    io.Reader
	Builtins map[string]*Builtin
	Trace    func(event TraceEvent)
	RunID    string
	Budget   Budget

	// CheckExitGuards makes every if verify its exit guard after the chosen
	// branch: false after then, true after else.
	CheckExitGuards bool
}

// ExecResult holds the result of a program execution.
type ExecResult struct {
	Steps   int64
	Calls   int64
	Undos   int64
	Elapsed time.Duration
}

// RuntimeError represents a runtime error during Rev execution.
type RuntimeError struct {
	Code    string
	Message string
	Span    *ast.Span
	Hint    string
}

func (e *RuntimeError) Error() string {
	return e.Message
}

// Diagnostic converts the error into a diagnostic for display.
func (e *RuntimeError) Diagnostic() diagnostics.Diagnostic {
	return diagnostics.MakeDiag(e.Code, e.Message, e.Span, e.Hint)
}

func rtErr(code string, span ast.Span, format string, args ...any) *RuntimeError {
	return &RuntimeError{Code: code, Message: fmt.Sprintf(format, args...), Span: &span}
}

// Machine executes Rev statements against a persistent environment and
// function table. It is not safe for concurrent use.
type Machine struct {
	opts     ExecOptions
	env      *Env
	stack    []Value
	fns      map[string]*ast.Fn
	inverses map[*ast.Fn]*ast.Fn
	undos    map[*ast.DoYieldUndo]ast.Stmt
	in       *bufio.Reader
	out      io.Writer
	tracker  BudgetTracker
	start    time.Time
	ctx      context.Context
}

// NewMachine creates a machine with an empty environment and function table.
func NewMachine(opts ExecOptions) *Machine {
	out := opts.Stdout
	if out == nil {
		out = io.Discard
	}
	var in *bufio.Reader
	switch r := opts.Stdin.(type) {
	case nil:
		in = bufio.NewReader(strings.NewReader(""))
	case *bufio.Reader:
		in = r
	default:
		in = bufio.NewReader(r)
	}
	now := time.Now()
	return &Machine{
		opts:     opts,
		env:      NewEnv(),
		fns:      make(map[string]*ast.Fn),
		inverses: make(map[*ast.Fn]*ast.Fn),
		undos:    make(map[*ast.DoYieldUndo]ast.Stmt),
		in:       in,
		out:      out,
		start:    now,
		tracker:  BudgetTracker{StartMs: now.UnixMilli()},
		ctx:      context.Background(),
	}
}

// Env returns the machine's environment.
func (m *Machine) Env() *Env {
	return m.env
}

// Tracker returns the resource counters accumulated so far.
func (m *Machine) Tracker() BudgetTracker {
	return m.tracker
}

// Define adds fn to the function table.
func (m *Machine) Define(fn *ast.Fn) error {
	if _, ok := m.fns[fn.Name]; ok {
		return rtErr(diagnostics.EFnDup, fn.Span, "function '%s' is already defined", fn.Name)
	}
	if _, ok := m.opts.Builtins[fn.Name]; ok {
		return rtErr(diagnostics.EFnDup, fn.Span, "function '%s' shadows a builtin", fn.Name)
	}
	m.fns[fn.Name] = fn
	return nil
}

// Function returns the user function named name.
func (m *Machine) Function(name string) (*ast.Fn, bool) {
	fn, ok := m.fns[name]
	return fn, ok
}

// Exec executes one statement.
func (m *Machine) Exec(ctx context.Context, stmt ast.Stmt) error {
	m.ctx = ctx
	return m.exec(stmt)
}

// Invoke runs the user function name forward with already evaluated arguments.
func (m *Machine) Invoke(ctx context.Context, name string, args []Value) error {
	m.ctx = ctx
	fn, ok := m.fns[name]
	if !ok {
		return rtErr(diagnostics.EUnknownFn, ast.Span{}, "unknown function '%s'", name)
	}
	return m.invoke(fn, fn.Body, args, fn.Span, false)
}

// Execute runs a Rev program: it defines every function, invokes main with
// the argument 0 and checks that no binding outlives the run.
func Execute(ctx context.Context, program *ast.Program, opts ExecOptions) (*ExecResult, error) {
	m := NewMachine(opts)
	for _, fn := range program.Fns {
		if err := m.Define(fn); err != nil {
			return nil, err
		}
	}

	span := program.Span
	main, ok := m.fns["main"]
	if !ok {
		return nil, &RuntimeError{
			Code:    diagnostics.ENoEntry,
			Message: "no function named 'main'",
			Span:    &span,
			Hint:    "define fn main(argc: int) -> () := { ... }",
		}
	}
	if len(main.Params) != 1 {
		return nil, rtErr(diagnostics.EArity, main.Span, "main must take exactly 1 parameter, has %d", len(main.Params))
	}

	m.emit(TraceRunStart, &span, nil)
	err := m.Invoke(ctx, "main", []Value{NewInt(0)})
	if err == nil && m.env.Len() > 0 {
		names := m.env.Names()
		err = &RuntimeError{
			Code:    diagnostics.EUnreleased,
			Message: fmt.Sprintf("bindings still live after main returned: %s", strings.Join(names, ", ")),
			Span:    &span,
			Hint:    "every let needs a matching unlet",
		}
	}
	result := m.result()
	m.emit(TraceRunEnd, &span, map[string]any{
		"steps": result.Steps,
		"calls": result.Calls,
		"ok":    err == nil,
	})
	if err != nil {
		return result, err
	}
	return result, nil
}

func (m *Machine) result() *ExecResult {
	return &ExecResult{
		Steps:   m.tracker.Steps,
		Calls:   m.tracker.Calls,
		Undos:   m.tracker.Undos,
		Elapsed: time.Since(m.start),
	}
}

func (m *Machine) emit(event TraceEventType, span *ast.Span, data map[string]any) {
	if m.opts.Trace != nil {
		m.opts.Trace(TraceEvent{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			RunID:     m.opts.RunID,
			Event:     event,
			Span:      span,
			Data:      data,
		})
	}
}

// step accounts for one executed statement and enforces the budget.
func (m *Machine) step(span ast.Span) error {
	if err := m.ctx.Err(); err != nil {
		return rtErr(diagnostics.ECancelled, span, "execution cancelled: %v", err)
	}
	m.tracker.Steps++
	if b := m.opts.Budget.MaxSteps; b != nil && m.tracker.Steps > *b {
		m.emit(TraceBudgetExceeded, &span, map[string]any{"budget": "maxSteps", "limit": *b})
		return rtErr(diagnostics.EBudget, span, "step budget exceeded (max %d)", *b)
	}
	if b := m.opts.Budget.TimeMs; b != nil && time.Since(m.start).Milliseconds() >= *b {
		m.emit(TraceBudgetExceeded, &span, map[string]any{"budget": "timeMs", "limit": *b})
		return rtErr(diagnostics.EBudget, span, "time budget exceeded (%dms)", *b)
	}
	return nil
}

// --- operand stack ---

func (m *Machine) push(v Value) {
	m.stack = append(m.stack, v)
}

func (m *Machine) pop() Value {
	v := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return v
}

// value evaluates e and pops its result.
func (m *Machine) value(e ast.Expr) (Value, error) {
	if err := m.eval(e); err != nil {
		return nil, err
	}
	return m.pop(), nil
}

func (m *Machine) intValue(e ast.Expr, what string) (int64, error) {
	v, err := m.value(e)
	if err != nil {
		return 0, err
	}
	i, ok := v.(Int)
	if !ok {
		return 0, rtErr(diagnostics.EType, e.NodeSpan(), "%s must be an integer, got %s", what, v)
	}
	return i.Value, nil
}

// truth evaluates a condition or guard, which must be an integer.
func (m *Machine) truth(e ast.Expr, what string) (bool, error) {
	v, err := m.value(e)
	if err != nil {
		return false, err
	}
	if _, ok := v.(Int); !ok {
		return false, rtErr(diagnostics.EType, e.NodeSpan(), "%s must be an integer, got %s", what, v)
	}
	return Truthiness(v), nil
}

func (m *Machine) lookup(v *ast.Var) (Value, error) {
	val, ok := m.env.Get(v.Name())
	if !ok {
		return nil, rtErr(diagnostics.EUnbound, v.Span, "unbound variable '%s'", v.Name())
	}
	return val, nil
}

// --- expressions ---

func (m *Machine) eval(e ast.Expr) error {
	switch n := e.(type) {
	case *ast.Unit:
		m.push(NewUnit())
	case *ast.Num:
		m.push(NewInt(n.Value))
	case *ast.Var:
		v, err := m.lookup(n)
		if err != nil {
			return err
		}
		m.push(v)
	case *ast.Cmp:
		// rhs is evaluated before lhs
		if err := m.eval(n.Right); err != nil {
			return err
		}
		if err := m.eval(n.Left); err != nil {
			return err
		}
		l, r := m.pop(), m.pop()
		li, lok := l.(Int)
		ri, rok := r.(Int)
		if !lok || !rok {
			return rtErr(diagnostics.EType, n.Span, "cannot compare %s %s %s", l, n.Op, r)
		}
		m.push(boolValue(compare(n.Op, li.Value, ri.Value)))
	default:
		return rtErr(diagnostics.EType, e.NodeSpan(), "unsupported expression %s", e.Kind())
	}
	return nil
}

func compare(op ast.CmpOp, l, r int64) bool {
	switch op {
	case ast.OpLt:
		return l < r
	case ast.OpLtEq:
		return l <= r
	case ast.OpEqual:
		return l == r
	case ast.OpNeq:
		return l != r
	case ast.OpGtEq:
		return l >= r
	case ast.OpGt:
		return l > r
	}
	return false
}

// --- statements ---

func (m *Machine) exec(s ast.Stmt) error {
	if err := m.step(s.NodeSpan()); err != nil {
		return err
	}

	switch n := s.(type) {
	case *ast.Let:
		name := n.Target.Name()
		if m.env.Has(name) {
			return rtErr(diagnostics.EAlreadyBound, n.Target.Span, "variable '%s' is already bound", name)
		}
		v, err := m.value(n.Value)
		if err != nil {
			return err
		}
		m.env.Set(name, v)

	case *ast.Unlet:
		name := n.Target.Name()
		cur, ok := m.env.Get(name)
		if !ok {
			return rtErr(diagnostics.ENotBound, n.Target.Span, "cannot unlet '%s': not bound", name)
		}
		v, err := m.value(n.Value)
		if err != nil {
			return err
		}
		if !ValuesEqual(cur, v) {
			return &RuntimeError{
				Code:    diagnostics.EUnletMismatch,
				Message: fmt.Sprintf("cannot unlet '%s': holds %s, expression gives %s", name, cur, v),
				Span:    &n.Span,
			}
		}
		m.env.Delete(name)

	case *ast.OpEq:
		return m.execOpEq(n)

	case *ast.Swap:
		a, err := m.lookup(n.Left)
		if err != nil {
			return err
		}
		b, err := m.lookup(n.Right)
		if err != nil {
			return err
		}
		m.env.Set(n.Left.Name(), b)
		m.env.Set(n.Right.Name(), a)

	case *ast.Block:
		for _, st := range n.Stmts {
			if err := m.exec(st); err != nil {
				return err
			}
		}

	case *ast.ExprStmt:
		if _, err := m.value(n.Expr); err != nil {
			return err
		}

	case *ast.If:
		return m.execIf(n)

	case *ast.Loop:
		return m.execLoop(n)

	case *ast.DoYieldUndo:
		return m.execDoYieldUndo(n)

	case *ast.Call:
		return m.call(n.Callee, n.Args, n.Span, false)

	case *ast.Uncall:
		return m.call(n.Callee, n.Args, n.Span, true)

	default:
		return rtErr(diagnostics.EType, s.NodeSpan(), "unsupported statement %s", s.Kind())
	}
	return nil
}

func (m *Machine) execOpEq(n *ast.OpEq) error {
	r, err := m.intValue(n.Value, "right-hand side of "+string(n.Op))
	if err != nil {
		return err
	}
	cur, err := m.lookup(n.Target)
	if err != nil {
		return err
	}
	ci, ok := cur.(Int)
	if !ok {
		return rtErr(diagnostics.EType, n.Target.Span, "'%s' holds %s, not an integer", n.Target.Name(), cur)
	}
	var out int64
	switch n.Op {
	case ast.OpAddEq:
		out = ci.Value + r
	case ast.OpSubEq:
		out = ci.Value - r
	case ast.OpMulEq:
		out = ci.Value * r
	case ast.OpDivEq:
		if r == 0 {
			return rtErr(diagnostics.EDivZero, n.Span, "division by zero")
		}
		out = ci.Value / r
	}
	m.env.Set(n.Target.Name(), NewInt(out))
	return nil
}

func (m *Machine) execIf(n *ast.If) error {
	c, err := m.truth(n.Cond, "if condition")
	if err != nil {
		return err
	}
	branch, took := n.Else, "else"
	if c {
		branch, took = n.Then, "then"
	}
	if err := m.exec(branch); err != nil {
		return err
	}
	// a guard the parser synthesized is only needed backward
	if !m.opts.CheckExitGuards || n.Exit == nil || n.ImplicitExit {
		return nil
	}
	exit, err := m.truth(n.Exit, "exit guard")
	if err != nil {
		return err
	}
	if exit == (took == "else") {
		return nil
	}
	return &RuntimeError{
		Code:    diagnostics.EExitGuard,
		Message: fmt.Sprintf("exit guard is %t after the %s branch", exit, took),
		Span:    &n.Span,
		Hint:    "the exit guard must be false after the then branch and true after the else branch",
	}
}

func (m *Machine) execLoop(n *ast.Loop) error {
	entry, err := m.truth(n.Entry, "loop entry guard")
	if err != nil {
		return err
	}
	if !entry {
		return nil
	}
	m.emit(TraceLoopStart, &n.Span, nil)
	iterations := 0
	for {
		if err := m.exec(n.Body); err != nil {
			return err
		}
		iterations++
		until, err := m.truth(n.Until, "loop exit guard")
		if err != nil {
			return err
		}
		if until {
			break
		}
	}
	m.emit(TraceLoopEnd, &n.Span, map[string]any{"iterations": iterations})
	return nil
}

func (m *Machine) execDoYieldUndo(n *ast.DoYieldUndo) error {
	undo, ok := m.undos[n]
	if !ok {
		inv, err := inverter.InvertUndo(n.Do)
		if err != nil {
			return invertError(err, n.Span)
		}
		undo = inv
		m.undos[n] = undo
	}
	if err := m.exec(n.Do); err != nil {
		return err
	}
	if err := m.exec(n.Yield); err != nil {
		return err
	}
	m.tracker.Undos++
	m.emit(TraceUndoStart, &n.Span, nil)
	if err := m.exec(undo); err != nil {
		return err
	}
	m.emit(TraceUndoEnd, &n.Span, nil)
	return nil
}

func invertError(err error, span ast.Span) error {
	var ie *inverter.Error
	if errors.As(err, &ie) {
		return &RuntimeError{Code: ie.Diag.Code, Message: ie.Diag.Message, Span: ie.Diag.Span, Hint: ie.Diag.Hint}
	}
	return rtErr(diagnostics.EIrreversible, span, "%v", err)
}

// --- calls ---

func (m *Machine) call(callee *ast.Var, args []ast.Expr, span ast.Span, backward bool) error {
	name := callee.Name()
	if fn, ok := m.fns[name]; ok {
		vals := make([]Value, len(args))
		for i, a := range args {
			v, err := m.value(a)
			if err != nil {
				return err
			}
			vals[i] = v
		}
		body := fn.Body
		if backward {
			inv, err := m.inverseOf(fn)
			if err != nil {
				return invertError(err, span)
			}
			body = inv.Body
		}
		return m.invoke(fn, body, vals, span, backward)
	}

	b, ok := m.opts.Builtins[name]
	if !ok {
		return rtErr(diagnostics.EUnknownFn, callee.Span, "unknown function '%s'", name)
	}
	if len(args) != b.Arity {
		return rtErr(diagnostics.EArity, span, "%s expects %d argument(s), got %d", name, b.Arity, len(args))
	}
	c := &BuiltinCall{Name: name, Args: args, Span: span, Out: m.out, In: m.in, m: m}
	if backward {
		if b.Uncall == nil {
			return &RuntimeError{
				Code:    diagnostics.EIrreversible,
				Message: fmt.Sprintf("builtin '%s' cannot be uncalled", name),
				Span:    &span,
			}
		}
		return b.Uncall(c)
	}
	return b.Call(c)
}

func (m *Machine) inverseOf(fn *ast.Fn) (*ast.Fn, error) {
	if inv, ok := m.inverses[fn]; ok {
		return inv, nil
	}
	inv, err := inverter.InvertFn(fn)
	if err != nil {
		return nil, err
	}
	m.inverses[fn] = inv
	return inv, nil
}

// invoke applies the calling discipline: parameters are bound to the
// arguments, body runs, and each parameter must hold its argument again
// before it is released.
func (m *Machine) invoke(fn *ast.Fn, body ast.Stmt, args []Value, span ast.Span, backward bool) error {
	if len(args) != len(fn.Params) {
		return rtErr(diagnostics.EArity, span, "%s expects %d argument(s), got %d", fn.Name, len(fn.Params), len(args))
	}
	start, end := TraceCallStart, TraceCallEnd
	if backward {
		start, end = TraceUncallStart, TraceUncallEnd
	}
	m.tracker.Calls++
	m.emit(start, &span, map[string]any{"fn": fn.Name})

	for i, p := range fn.Params {
		if m.env.Has(p.Name) {
			return rtErr(diagnostics.EAlreadyBound, span, "parameter '%s' of %s is already bound", p.Name, fn.Name)
		}
		m.env.Set(p.Name, args[i])
	}
	if err := m.exec(body); err != nil {
		return err
	}
	for i, p := range fn.Params {
		cur, ok := m.env.Get(p.Name)
		if !ok || !ValuesEqual(cur, args[i]) {
			got := "unbound"
			if ok {
				got = cur.String()
			}
			return &RuntimeError{
				Code:    diagnostics.EParamMutated,
				Message: fmt.Sprintf("parameter '%s' of %s changed from %s to %s", p.Name, fn.Name, args[i], got),
				Span:    &fn.Span,
				Hint:    "a function must leave its parameters as it received them",
			}
		}
		m.env.Delete(p.Name)
	}

	m.emit(end, &span, map[string]any{"fn": fn.Name})
	return nil
}
