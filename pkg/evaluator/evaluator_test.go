package evaluator_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/thomasrohde/rev/pkg/ast"
	"github.com/thomasrohde/rev/pkg/builtins"
	"github.com/thomasrohde/rev/pkg/diagnostics"
	"github.com/thomasrohde/rev/pkg/evaluator"
	"github.com/thomasrohde/rev/pkg/inverter"
	"github.com/thomasrohde/rev/pkg/parser"
)

// --- helpers ---

func defaultOpts(out *bytes.Buffer) evaluator.ExecOptions {
	return evaluator.ExecOptions{
		Stdout:          out,
		Builtins:        builtins.Default().Map(),
		CheckExitGuards: true,
	}
}

// runWith parses and executes Rev source with custom ExecOptions.
func runWith(t *testing.T, src string, opts evaluator.ExecOptions) (*evaluator.ExecResult, error) {
	t.Helper()
	prog, diags := parser.Parse(src, "test.rev")
	if len(diags) > 0 {
		t.Fatalf("parse errors: %s", diagnostics.FormatDiagnostics(diags, true))
	}
	return evaluator.Execute(context.Background(), prog, opts)
}

// run executes source and returns its stdout.
func run(t *testing.T, src string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	_, err := runWith(t, src, defaultOpts(&out))
	return out.String(), err
}

// mustRun is like run but also fails on runtime errors.
func mustRun(t *testing.T, src string) string {
	t.Helper()
	out, err := run(t, src)
	if err != nil {
		t.Fatalf("unexpected runtime error: %v", err)
	}
	return out
}

// wrapMain wraps a body in a main function.
func wrapMain(body string) string {
	return "fn main(argc: int) -> () := {\n" + body + "\n}"
}

// expectRuntimeError asserts the error is a RuntimeError with the expected code.
func expectRuntimeError(t *testing.T, err error, expectedCode string) *evaluator.RuntimeError {
	t.Helper()
	if err == nil {
		t.Fatalf("expected runtime error with code %s, got nil", expectedCode)
	}
	var rtErr *evaluator.RuntimeError
	if !errors.As(err, &rtErr) {
		t.Fatalf("expected *RuntimeError, got %T: %v", err, err)
	}
	if rtErr.Code != expectedCode {
		t.Errorf("error code = %q, want %q (message: %s)", rtErr.Code, expectedCode, rtErr.Message)
	}
	return rtErr
}

// machine wraps a Machine with the symbol table its statements are parsed in.
type machine struct {
	*evaluator.Machine
	syms *ast.Symbols
	out  *bytes.Buffer
}

func newMachine(t *testing.T) *machine {
	t.Helper()
	var out bytes.Buffer
	return &machine{
		Machine: evaluator.NewMachine(defaultOpts(&out)),
		syms:    ast.NewSymbols(),
		out:     &out,
	}
}

func (m *machine) parse(t *testing.T, src string) ast.Stmt {
	t.Helper()
	stmt, diags := parser.ParseStmt(src, "test.rev", m.syms)
	if len(diags) > 0 {
		t.Fatalf("parse errors in %q: %s", src, diagnostics.FormatDiagnostics(diags, true))
	}
	return stmt
}

func (m *machine) define(t *testing.T, src string) {
	t.Helper()
	prog, diags := parser.ParseWith(strings.NewReader(src), "test.rev", m.syms)
	if len(diags) > 0 {
		t.Fatalf("parse errors: %s", diagnostics.FormatDiagnostics(diags, true))
	}
	for _, fn := range prog.Fns {
		if err := m.Define(fn); err != nil {
			t.Fatalf("Define(%s): %v", fn.Name, err)
		}
	}
}

func (m *machine) exec(t *testing.T, src string) error {
	t.Helper()
	return m.Exec(context.Background(), m.parse(t, src))
}

func (m *machine) mustExec(t *testing.T, src string) {
	t.Helper()
	if err := m.exec(t, src); err != nil {
		t.Fatalf("exec %q: %v", src, err)
	}
}

func (m *machine) expectInt(t *testing.T, name string, want int64) {
	t.Helper()
	v, ok := m.Env().Get(name)
	if !ok {
		t.Fatalf("%s is unbound, want %d", name, want)
	}
	if !evaluator.ValuesEqual(v, evaluator.NewInt(want)) {
		t.Errorf("%s = %v, want %d", name, v, want)
	}
}

func sameBindings(a, b map[string]evaluator.Value) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		w, ok := b[k]
		if !ok || !evaluator.ValuesEqual(v, w) {
			return false
		}
	}
	return true
}

// --- 1. Example program ---

func TestExampleProgram(t *testing.T) {
	out := mustRun(t, wrapMain(`  let x := 0;
  x += 5;
  let y := x;
  unlet x := y;
  call print(y);
  unlet y := 5`))
	if out != "5\n" {
		t.Errorf("stdout = %q, want %q", out, "5\n")
	}
}

func TestExecResult(t *testing.T) {
	var out bytes.Buffer
	res, err := runWith(t, wrapMain("let x := 1; unlet x := 1"), defaultOpts(&out))
	if err != nil {
		t.Fatal(err)
	}
	// block, let, unlet
	if res.Steps != 3 {
		t.Errorf("Steps = %d, want 3", res.Steps)
	}
	if res.Calls != 1 {
		t.Errorf("Calls = %d, want 1", res.Calls)
	}
}

// --- 2. Binding discipline ---

func TestLetUnlet_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
	}{
		{"already bound", "let x := 1; let x := 2", diagnostics.EAlreadyBound},
		{"rebind parameter", "let argc := 1", diagnostics.EAlreadyBound},
		{"unlet unbound", "unlet x := 0", diagnostics.ENotBound},
		{"unlet mismatch", "let x := 1; unlet x := 2", diagnostics.EUnletMismatch},
		{"unreleased", "let x := 1", diagnostics.EUnreleased},
		{"unbound read", "let x := y", diagnostics.EUnbound},
		{"unlet unit against int", "let x := 0; unlet x := ()", diagnostics.EUnletMismatch},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := run(t, wrapMain(tc.body))
			expectRuntimeError(t, err, tc.code)
		})
	}
}

func TestUnreleasedListsNames(t *testing.T) {
	_, err := run(t, wrapMain("let b := 1; let a := 2"))
	rtErr := expectRuntimeError(t, err, diagnostics.EUnreleased)
	if !strings.Contains(rtErr.Message, "a, b") {
		t.Errorf("message %q should list a, b", rtErr.Message)
	}
}

func TestUnitBinding(t *testing.T) {
	out := mustRun(t, wrapMain("let u := (); call print(u); unlet u := ()"))
	if out != "()\n" {
		t.Errorf("stdout = %q", out)
	}
}

// --- 3. Compound assignment ---

func TestOpEq(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want int64
	}{
		{"add", "let x := 10; x += 3", 13},
		{"sub", "let x := 10; x -= 3", 7},
		{"mul", "let x := 10; x *= 3", 30},
		{"div truncates", "let x := 10; x /= 3", 3},
		{"div negative truncates toward zero", "let x := 0; x -= 7; x /= 2", -3},
		{"rhs variable", "let x := 1; let y := 4; x += y", 5},
		{"rhs comparison", "let x := 1; x += 2 > 1", 2},
		{"wraps", "let x := 9223372036854775807; x += 1", -9223372036854775808},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := newMachine(t)
			m.mustExec(t, tc.src)
			m.expectInt(t, "x", tc.want)
		})
	}
}

func TestDivisionByZeroLeavesTarget(t *testing.T) {
	m := newMachine(t)
	m.mustExec(t, "let x := 7")
	err := m.exec(t, "x /= 0")
	expectRuntimeError(t, err, diagnostics.EDivZero)
	m.expectInt(t, "x", 7)
}

func TestOpEq_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code string
	}{
		{"unbound target", "x += 1", diagnostics.EUnbound},
		{"unit rhs", "let x := 1; x += ()", diagnostics.EType},
		{"unit target", "let x := (); x += 1", diagnostics.EType},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := newMachine(t)
			expectRuntimeError(t, m.exec(t, tc.src), tc.code)
		})
	}
}

// --- 4. Comparison ---

func TestComparison(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"1 < 2", "1"},
		{"2 < 1", "0"},
		{"2 <= 2", "1"},
		{"2 = 2", "1"},
		{"2 != 2", "0"},
		{"3 >= 4", "0"},
		{"4 > 3", "1"},
		{"1 < 2 = 1", "1"},
	}
	for _, tc := range tests {
		t.Run(tc.expr, func(t *testing.T) {
			out := mustRun(t, wrapMain("call print("+tc.expr+")"))
			if out != tc.want+"\n" {
				t.Errorf("print(%s) = %q, want %q", tc.expr, out, tc.want)
			}
		})
	}
}

func TestComparison_UnitIsTypeError(t *testing.T) {
	_, err := run(t, wrapMain("call print(() < 1)"))
	expectRuntimeError(t, err, diagnostics.EType)
}

func TestExprStmt(t *testing.T) {
	m := newMachine(t)
	m.mustExec(t, "let x := 1; x = 1")
	expectRuntimeError(t, m.exec(t, "y"), diagnostics.EUnbound)
}

// --- 5. Swap ---

func TestSwap(t *testing.T) {
	m := newMachine(t)
	m.mustExec(t, "let a := 1; let b := 2; a <> b")
	m.expectInt(t, "a", 2)
	m.expectInt(t, "b", 1)
}

func TestSwap_Unbound(t *testing.T) {
	m := newMachine(t)
	m.mustExec(t, "let a := 1")
	expectRuntimeError(t, m.exec(t, "a <> b"), diagnostics.EUnbound)
	m.expectInt(t, "a", 1)
	if m.Env().Has("b") {
		t.Error("swap must not materialize b")
	}
}

// --- 6. If and exit guards ---

func TestIf(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"then", "let x := 1; if x = 1 { call print(10) } else { call print(20) }; unlet x := 1", "10\n"},
		{"else", "let x := 2; if x = 1 { call print(10) } else { call print(20) }; unlet x := 2", "20\n"},
		{"no else", "if 0 { call print(10) }; call print(1)", "1\n"},
		{"else if", "let x := 2; if x = 1 { call print(1) } else if x = 2 { call print(2) } else { call print(3) }; unlet x := 2", "2\n"},
		{"explicit guard", "let x := 1; if x = 1 { x += 1 } else { x += 2 } fi x != 2; call print(x); unlet x := 2", "2\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if out := mustRun(t, wrapMain(tc.body)); out != tc.want {
				t.Errorf("stdout = %q, want %q", out, tc.want)
			}
		})
	}
}

func TestExitGuardViolations(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"explicit true after then", "let x := 1; if x = 1 { x += 1 } fi x = 2; unlet x := 2"},
		{"explicit false after else", "let x := 0; if x = 1 { } else { x += 1 } fi x = 0; unlet x := 1"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := run(t, wrapMain(tc.body))
			rtErr := expectRuntimeError(t, err, diagnostics.EExitGuard)
			if rtErr.Hint == "" {
				t.Error("expected a hint")
			}
		})

		t.Run(tc.name+" lenient", func(t *testing.T) {
			var out bytes.Buffer
			opts := defaultOpts(&out)
			opts.CheckExitGuards = false
			if _, err := runWith(t, wrapMain(tc.body), opts); err != nil {
				t.Errorf("lenient run failed: %v", err)
			}
		})
	}
}

func TestIf_ImplicitGuardRunsForward(t *testing.T) {
	// without fi the branch may change the condition; forward only branches
	out := mustRun(t, wrapMain("let x := 0; if x = 0 { x += 1 } else { x += 2 }; call print(x); unlet x := 1"))
	if out != "1\n" {
		t.Errorf("stdout = %q, want %q", out, "1\n")
	}
}

func TestIf_ImplicitGuardHasNoInverse(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"do yield undo", wrapMain("let x := 0; do { if x = 0 { x += 1 } } yield { } undo; unlet x := 0")},
		{"uncall", `fn flip(n: int) -> () := if x = 0 { x += n } else { x -= n }
fn main(argc: int) -> () := { let x := 0; uncall flip(1); unlet x := 0 }`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := run(t, tc.src)
			rtErr := expectRuntimeError(t, err, diagnostics.EExitGuard)
			if !strings.Contains(rtErr.Hint, "fi") {
				t.Errorf("hint = %q, want a suggestion to add fi", rtErr.Hint)
			}
		})
	}
}

func TestIf_UnitCondition(t *testing.T) {
	_, err := run(t, wrapMain("if () { }"))
	expectRuntimeError(t, err, diagnostics.EType)
}

// --- 7. Loops ---

func TestLoop_EntryGuardFalse(t *testing.T) {
	out := mustRun(t, wrapMain("from 0 do { call print(1) } until 1"))
	if out != "" {
		t.Errorf("body ran: stdout = %q", out)
	}
}

func TestLoop_CountsToThree(t *testing.T) {
	var events []evaluator.TraceEvent
	var out bytes.Buffer
	opts := defaultOpts(&out)
	opts.Trace = func(ev evaluator.TraceEvent) { events = append(events, ev) }

	_, err := runWith(t, wrapMain(`let x := 0;
from 1 do { x += 1; call print(x) } until x = 3;
unlet x := 3`), opts)
	if err != nil {
		t.Fatal(err)
	}
	if out.String() != "1\n2\n3\n" {
		t.Errorf("stdout = %q", out.String())
	}

	var found bool
	for _, ev := range events {
		if ev.Event == evaluator.TraceLoopEnd {
			found = true
			if got := ev.Data["iterations"]; got != 3 {
				t.Errorf("iterations = %v, want 3", got)
			}
		}
	}
	if !found {
		t.Error("no loop_end event")
	}
}

// --- 8. Do-yield-undo ---

func TestDoYieldUndo_Transparent(t *testing.T) {
	var events []evaluator.TraceEvent
	var out bytes.Buffer
	opts := defaultOpts(&out)
	opts.Trace = func(ev evaluator.TraceEvent) { events = append(events, ev) }

	res, err := runWith(t, wrapMain(`let x := 1;
do { x += 4; let y := x; x <> y } yield call print(x) undo;
call print(x);
unlet x := 1`), opts)
	if err != nil {
		t.Fatal(err)
	}
	if out.String() != "5\n1\n" {
		t.Errorf("stdout = %q, want %q", out.String(), "5\n1\n")
	}
	if res.Undos != 1 {
		t.Errorf("Undos = %d, want 1", res.Undos)
	}

	var kinds []evaluator.TraceEventType
	for _, ev := range events {
		if ev.Event == evaluator.TraceUndoStart || ev.Event == evaluator.TraceUndoEnd {
			kinds = append(kinds, ev.Event)
		}
	}
	if len(kinds) != 2 || kinds[0] != evaluator.TraceUndoStart || kinds[1] != evaluator.TraceUndoEnd {
		t.Errorf("undo events = %v", kinds)
	}
}

func TestDoYieldUndo_InLoop(t *testing.T) {
	// the memoized undo is reused on every iteration
	out := mustRun(t, wrapMain(`let i := 0;
from 1 do { i += 1; do { let j := i; j *= 10 } yield call print(i) undo } until i = 3;
unlet i := 3`))
	if out != "1\n2\n3\n" {
		t.Errorf("stdout = %q", out)
	}
}

func TestDoYieldUndo_RollsBackCalls(t *testing.T) {
	out := mustRun(t, `fn mk(n: int) -> () := { let g := n }
fn main(argc: int) -> () := {
  do { call mk(7) } yield call print(g) undo
}`)
	if out != "7\n" {
		t.Errorf("stdout = %q", out)
	}
}

func TestDoYieldUndo_Nested(t *testing.T) {
	_, err := run(t, wrapMain("do { do { } yield { } undo } yield { } undo"))
	expectRuntimeError(t, err, diagnostics.ENestedDo)
}

// --- 9. Calls ---

func TestCall_UserFunction(t *testing.T) {
	out := mustRun(t, `fn show(a: int, b: int) -> () := { call print(a); call print(b) }
fn main(argc: int) -> () := {
  let x := 3;
  call show(x, 4);
  unlet x := 3
}`)
	if out != "3\n4\n" {
		t.Errorf("stdout = %q", out)
	}
}

func TestCall_ParameterMayChangeAndRestore(t *testing.T) {
	mustRun(t, `fn twiddle(n: int) -> () := { n += 5; n -= 5 }
fn main(argc: int) -> () := { call twiddle(argc) ; call twiddle(9) }`)
}

func TestUncall_RunsBackward(t *testing.T) {
	out := mustRun(t, `fn mk(n: int) -> () := { let g := n; g *= 2 }
fn main(argc: int) -> () := {
  call mk(4);
  call print(g);
  uncall mk(4)
}`)
	if out != "8\n" {
		t.Errorf("stdout = %q", out)
	}
}

func TestCall_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code string
	}{
		{"unknown function", wrapMain("call nope(1)"), diagnostics.EUnknownFn},
		{"user arity", "fn f(a: int) -> () := {}\n" + wrapMain("call f(1, 2)"), diagnostics.EArity},
		{"builtin arity", wrapMain("call print()"), diagnostics.EArity},
		{"parameter mutated", "fn f(a: int) -> () := { a += 1 }\n" + wrapMain("call f(1)"), diagnostics.EParamMutated},
		{"parameter released", "fn f(a: int) -> () := { unlet a := a }\n" + wrapMain("call f(1)"), diagnostics.EParamMutated},
		{"parameter already bound", "fn f(argc: int) -> () := {}\n" + wrapMain("call f(1)"), diagnostics.EAlreadyBound},
		{"argument unbound", "fn f(a: int) -> () := {}\n" + wrapMain("call f(zz)"), diagnostics.EUnbound},
		{"uncall builtin without inverse", wrapMain("uncall read(x)"), diagnostics.EIrreversible},
		{"uncall body with nested do", "fn f(a: int) -> () := do { do {} yield {} undo } yield {} undo\n" + wrapMain("uncall f(1)"), diagnostics.ENestedDo},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := run(t, tc.src)
			expectRuntimeError(t, err, tc.code)
		})
	}
}

// --- 10. Program entry ---

func TestEntry_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code string
	}{
		{"no main", "fn f(a: int) -> () := {}", diagnostics.ENoEntry},
		{"empty program", "", diagnostics.ENoEntry},
		{"main arity", "fn main(a: int, b: int) -> () := {}", diagnostics.EArity},
		{"duplicate fn", "fn main(a: int) -> () := {}\nfn main(a: int) -> () := {}", diagnostics.EFnDup},
		{"shadows builtin", "fn print(a: int) -> () := {}\n" + wrapMain(""), diagnostics.EFnDup},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := run(t, tc.src)
			expectRuntimeError(t, err, tc.code)
		})
	}
}

func TestMainReceivesZero(t *testing.T) {
	out := mustRun(t, wrapMain("call print(argc)"))
	if out != "0\n" {
		t.Errorf("stdout = %q", out)
	}
}

// --- 11. Budgets and cancellation ---

func TestBudget_MaxSteps(t *testing.T) {
	var exceeded bool
	var out bytes.Buffer
	opts := defaultOpts(&out)
	opts.Budget = evaluator.Budget{MaxSteps: evaluator.Limit(100)}
	opts.Trace = func(ev evaluator.TraceEvent) {
		if ev.Event == evaluator.TraceBudgetExceeded {
			exceeded = true
		}
	}
	_, err := runWith(t, wrapMain("let x := 0; from 1 do { x += 0 } until x = 1; unlet x := 0"), opts)
	expectRuntimeError(t, err, diagnostics.EBudget)
	if !exceeded {
		t.Error("no budget_exceeded event")
	}
}

func TestBudget_Time(t *testing.T) {
	var out bytes.Buffer
	opts := defaultOpts(&out)
	opts.Budget = evaluator.Budget{TimeMs: evaluator.Limit(20)}
	_, err := runWith(t, wrapMain("let x := 0; from 1 do { x += 0 } until x = 1; unlet x := 0"), opts)
	expectRuntimeError(t, err, diagnostics.EBudget)
}

func TestCancelled(t *testing.T) {
	prog, _ := parser.Parse(wrapMain("let x := 0; unlet x := 0"), "test.rev")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out bytes.Buffer
	_, err := evaluator.Execute(ctx, prog, defaultOpts(&out))
	expectRuntimeError(t, err, diagnostics.ECancelled)
}

// --- 12. Trace ---

func TestTrace_Order(t *testing.T) {
	var events []evaluator.TraceEvent
	var out bytes.Buffer
	opts := defaultOpts(&out)
	opts.RunID = "run-1"
	opts.Trace = func(ev evaluator.TraceEvent) { events = append(events, ev) }

	_, err := runWith(t, `fn f(a: int) -> () := {}
fn main(argc: int) -> () := { call f(1); uncall f(1) }`, opts)
	if err != nil {
		t.Fatal(err)
	}
	want := []evaluator.TraceEventType{
		evaluator.TraceRunStart,
		evaluator.TraceCallStart, // main
		evaluator.TraceCallStart,
		evaluator.TraceCallEnd,
		evaluator.TraceUncallStart,
		evaluator.TraceUncallEnd,
		evaluator.TraceCallEnd, // main
		evaluator.TraceRunEnd,
	}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d: %+v", len(events), len(want), events)
	}
	for i, ev := range events {
		if ev.Event != want[i] {
			t.Errorf("event %d = %s, want %s", i, ev.Event, want[i])
		}
		if ev.RunID != "run-1" {
			t.Errorf("event %d runId = %q", i, ev.RunID)
		}
	}
	if ok, _ := events[len(events)-1].Data["ok"].(bool); !ok {
		t.Error("run_end should report ok")
	}
}

// --- 13. Round trip: s followed by invert(s) restores the environment ---

func TestRoundTrip(t *testing.T) {
	fns := `fn mk(n: int) -> () := { let g := n; g += 1 }
fn sq(n: int) -> () := { let s := n; s *= n }`

	tests := []struct {
		name  string
		setup string
		stmt  string
	}{
		{"let", "let a := 1", "let x := a"},
		{"unlet", "let a := 1; let x := 3", "unlet x := 3"},
		{"swap", "let a := 1; let b := 2", "a <> b"},
		{"add", "let a := 5", "a += 3"},
		{"sub", "let a := 5", "a -= 9"},
		{"mul", "let a := 5", "a *= 3"},
		{"block", "let a := 5; let b := 1", "{ a += b; b *= 4; let c := a; a <> c }"},
		{"if then", "let a := 1", "if a = 1 { a += 1 } else { a += 3 } fi a = 4"},
		{"if else", "let a := 0", "if a = 1 { a += 1 } else { a += 3 } fi a = 3"},
		{"if implicit", "let a := 1; let b := 0", "if a = 1 { b += 2 } else { b -= 2 }"},
		{"loop", "let i := 0; let acc := 0", "from i = 0 do { i += 1; acc += i } until i = 4"},
		{"loop skipped", "let i := 1", "from i = 0 do { i += 1 } until i = 4"},
		{"call", "let a := 2", "call mk(a)"},
		{"uncall", "let a := 2; let g := 3", "uncall mk(a)"},
		{"nested calls", "let a := 3", "{ call sq(a); call mk(s); s -= 1 }"},
		{"do yield undo", "let a := 2", "do { a += 7 } yield { } undo"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := newMachine(t)
			m.define(t, fns)
			m.mustExec(t, tc.setup)
			before := m.Env().Snapshot()

			stmt := m.parse(t, tc.stmt)
			inv, err := inverter.InvertStmt(stmt)
			if err != nil {
				t.Fatalf("invert: %v", err)
			}
			if err := m.Exec(context.Background(), stmt); err != nil {
				t.Fatalf("forward: %v", err)
			}
			if err := m.Exec(context.Background(), inv); err != nil {
				t.Fatalf("backward: %v", err)
			}
			if after := m.Env().Snapshot(); !sameBindings(before, after) {
				t.Errorf("environment changed:\nbefore %v\nafter  %v", before, after)
			}
		})
	}
}

func TestMachine_DefineTwice(t *testing.T) {
	m := newMachine(t)
	m.define(t, "fn f(a: int) -> () := {}")
	fn, ok := m.Function("f")
	if !ok {
		t.Fatal("f not defined")
	}
	expectRuntimeError(t, m.Define(fn), diagnostics.EFnDup)
}

func TestMachine_Invoke(t *testing.T) {
	m := newMachine(t)
	m.define(t, "fn show(a: int) -> () := call print(a)")
	if err := m.Invoke(context.Background(), "show", []evaluator.Value{evaluator.NewInt(6)}); err != nil {
		t.Fatal(err)
	}
	if m.out.String() != "6\n" {
		t.Errorf("stdout = %q", m.out.String())
	}
	expectRuntimeError(t, m.Invoke(context.Background(), "nope", nil), diagnostics.EUnknownFn)
}
