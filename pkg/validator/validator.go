// Package validator implements static checks of Rev programs that catch,
// before execution, errors the interpreter would otherwise only report when
// the offending statement runs.
package validator

import (
	"fmt"

	"github.com/thomasrohde/rev/pkg/ast"
	"github.com/thomasrohde/rev/pkg/diagnostics"
)

// targetBuiltins take a variable to bind rather than a value.
var targetBuiltins = map[string]bool{
	"read": true,
}

type validator struct {
	diags    []diagnostics.Diagnostic
	fns      map[string]*ast.Fn
	builtins map[string]int
}

// Validate performs static analysis on a Rev program and returns every
// diagnostic it finds. builtinArity maps each host builtin to its parameter
// count.
func Validate(program *ast.Program, builtinArity map[string]int) []diagnostics.Diagnostic {
	v := &validator{
		fns:      make(map[string]*ast.Fn),
		builtins: builtinArity,
	}

	v.validateFns(program)
	v.validateEntry(program)
	for _, fn := range program.Fns {
		v.validateStmt(fn.Body, 0)
	}

	return v.diags
}

func (v *validator) addDiag(code, msg string, span ast.Span, hint string) {
	v.diags = append(v.diags, diagnostics.MakeDiag(code, msg, &span, hint))
}

func (v *validator) validateFns(program *ast.Program) {
	for _, fn := range program.Fns {
		if _, ok := v.fns[fn.Name]; ok {
			v.addDiag(diagnostics.EFnDup, fmt.Sprintf("duplicate function '%s'", fn.Name), fn.Span, "")
		} else if _, ok := v.builtins[fn.Name]; ok {
			v.addDiag(diagnostics.EFnDup, fmt.Sprintf("function '%s' shadows a builtin", fn.Name), fn.Span, "")
		} else {
			v.fns[fn.Name] = fn
		}

		seen := make(map[string]bool, len(fn.Params))
		for _, p := range fn.Params {
			if seen[p.Name] {
				v.addDiag(diagnostics.EDupParam,
					fmt.Sprintf("duplicate parameter '%s' in function '%s'", p.Name, fn.Name), fn.Span, "")
			}
			seen[p.Name] = true
		}
	}
}

func (v *validator) validateEntry(program *ast.Program) {
	main, ok := v.fns["main"]
	if !ok {
		v.addDiag(diagnostics.ENoEntry, "no function named 'main'", program.Span,
			"define fn main(argc: int) -> () := { ... }")
		return
	}
	if len(main.Params) != 1 {
		v.addDiag(diagnostics.EArity,
			fmt.Sprintf("main must take exactly 1 parameter, has %d", len(main.Params)), main.Span, "")
	}
}

// validateStmt walks s. depth counts the enclosing do-yield-undo constructs.
func (v *validator) validateStmt(s ast.Stmt, depth int) {
	switch n := s.(type) {
	case *ast.Block:
		for _, st := range n.Stmts {
			v.validateStmt(st, depth)
		}
	case *ast.If:
		v.validateStmt(n.Then, depth)
		v.validateStmt(n.Else, depth)
	case *ast.Loop:
		v.validateStmt(n.Body, depth)
	case *ast.DoYieldUndo:
		if depth > 0 {
			v.addDiag(diagnostics.ENestedDo, "nested do-yield-undo not allowed", n.Span,
				"move the inner do-yield-undo out of the enclosing do block")
		}
		v.validateStmt(n.Do, depth+1)
		v.validateStmt(n.Yield, depth+1)
	case *ast.OpEq:
		if mentions(n.Value, n.Target.Name()) {
			v.addDiag(diagnostics.ESelfRef,
				fmt.Sprintf("right-hand side of '%s %s' reads '%s'", n.Target.Name(), n.Op, n.Target.Name()),
				n.Span,
				fmt.Sprintf("'%s %s ...' must not read its own target, or it cannot be undone", n.Target.Name(), n.Op))
		}
	case *ast.Call:
		v.validateCall(n.Callee, n.Args, n.Span)
	case *ast.Uncall:
		v.validateCall(n.Callee, n.Args, n.Span)
	}
}

func (v *validator) validateCall(callee *ast.Var, args []ast.Expr, span ast.Span) {
	name := callee.Name()
	var arity int
	if fn, ok := v.fns[name]; ok {
		arity = len(fn.Params)
	} else if n, ok := v.builtins[name]; ok {
		arity = n
	} else {
		v.addDiag(diagnostics.EUnknownFn, fmt.Sprintf("unknown function '%s'", name), callee.Span, "")
		return
	}

	if len(args) != arity {
		v.addDiag(diagnostics.EArity,
			fmt.Sprintf("%s expects %d argument(s), got %d", name, arity, len(args)), span, "")
		return
	}
	if targetBuiltins[name] {
		for i, a := range args {
			if _, ok := a.(*ast.Var); !ok {
				v.addDiag(diagnostics.EType,
					fmt.Sprintf("argument %d of %s must be a variable", i+1, name), a.NodeSpan(), "")
			}
		}
	}
}

// mentions reports whether e reads the variable name.
func mentions(e ast.Expr, name string) bool {
	switch n := e.(type) {
	case *ast.Var:
		return n.Name() == name
	case *ast.Cmp:
		return mentions(n.Left, name) || mentions(n.Right, name)
	}
	return false
}
