// Package types holds the Rev type-name table and the type annotator.
//
// Annotation is optional: the evaluator runs unannotated trees unchanged.
// The annotator walks a function body bottom-up and tags literals, variable
// references, comparisons and let bindings with a primitive type.
package types

import (
	"github.com/thomasrohde/rev/pkg/ast"
)

// names is the table of primitive type names.
var names = map[string]*ast.Type{
	"()":  ast.VoidType(),
	"int": ast.IntType(),
	"i32": ast.IntType(),
}

// FromName resolves a primitive type name.
func FromName(name string) (*ast.Type, bool) {
	t, ok := names[name]
	return t, ok
}

// Known returns the recognised type names.
func Known() []string {
	return []string{"()", "int", "i32"}
}

// AnnotateProgram annotates every function of prog.
func AnnotateProgram(prog *ast.Program) {
	if prog == nil {
		return
	}
	for _, fn := range prog.Fns {
		Annotate(fn)
	}
}

// Annotate attaches types to the annotatable nodes of fn's body. Nodes that
// already carry a type are left as they are.
func Annotate(fn *ast.Fn) {
	if fn == nil || fn.Body == nil {
		return
	}
	params := make(map[*ast.Object]*ast.Type, len(fn.Params))
	pts := fn.ParamTypes()
	for i, p := range fn.Params {
		if i < len(pts) {
			params[p] = pts[i]
		}
	}
	a := &annotator{params: params}
	a.stmt(fn.Body)
}

// AnnotateStmt annotates a free-standing statement, as entered at the REPL.
func AnnotateStmt(s ast.Stmt) {
	a := &annotator{}
	a.stmt(s)
}

type annotator struct {
	params map[*ast.Object]*ast.Type
}

func (a *annotator) stmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.Let:
		a.expr(n.Target)
		a.expr(n.Value)
		if n.InferredType() == nil {
			n.SetType(n.Target.InferredType())
		}
	case *ast.Unlet:
		a.expr(n.Target)
		a.expr(n.Value)
	case *ast.OpEq:
		a.expr(n.Target)
		a.expr(n.Value)
	case *ast.Swap:
		a.expr(n.Left)
		a.expr(n.Right)
	case *ast.If:
		a.expr(n.Cond)
		a.stmt(n.Then)
		a.stmt(n.Else)
		a.expr(n.Exit)
	case *ast.Loop:
		a.expr(n.Entry)
		a.stmt(n.Body)
		a.expr(n.Until)
	case *ast.DoYieldUndo:
		a.stmt(n.Do)
		a.stmt(n.Yield)
	case *ast.Block:
		for _, st := range n.Stmts {
			a.stmt(st)
		}
	case *ast.Call:
		for _, arg := range n.Args {
			a.expr(arg)
		}
	case *ast.Uncall:
		for _, arg := range n.Args {
			a.expr(arg)
		}
	case *ast.ExprStmt:
		a.expr(n.Expr)
	}
}

func (a *annotator) expr(e ast.Expr) {
	switch n := e.(type) {
	case *ast.Num:
		if n.InferredType() == nil {
			n.SetType(ast.IntType())
		}
	case *ast.Var:
		if n.InferredType() != nil {
			return
		}
		if t, ok := a.params[n.Obj]; ok && t != nil {
			n.SetType(t)
			return
		}
		n.SetType(ast.IntType())
	case *ast.Cmp:
		a.expr(n.Left)
		a.expr(n.Right)
		if n.InferredType() == nil {
			n.SetType(ast.IntType())
		}
	}
}
