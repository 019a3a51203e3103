// Package inverter computes the syntactic inverse of Rev statements.
//
// Inversion is a pure tree transform: the input is never modified and the
// result shares no nodes with it, except the identifier Objects that every
// reference to a name shares anyway.
//
//	Let(x, e)           <-> Unlet(x, e)
//	Call f(a)           <-> Uncall f(a)
//	OpEq(+=, x, e)      <-> OpEq(-=, x, e), likewise *= and /=
//	Block(s1 .. sn)      -> Block(inv sn .. inv s1)
//	Loop(e1, s, e2)      -> Loop(inv e2, inv s, inv e1)
//	If(c1, s1, s2, c2)   -> If(inv c2, inv s2, inv s1, inv c1)
//	Swap(a, b)           -> Swap(a, b)
//	Stmt(e)              -> Stmt(inv e)
//	DoYieldUndo(s1, s2)  -> DoYieldUndo(s1, inv s2)
//
// A do-yield-undo nested inside another one has no inverse, and neither has
// an if without fi whose branches assign a variable of its condition.
package inverter

import (
	"fmt"

	"github.com/thomasrohde/rev/pkg/ast"
	"github.com/thomasrohde/rev/pkg/diagnostics"
)

// Error reports a node that cannot be inverted.
type Error struct {
	Diag diagnostics.Diagnostic
}

func (e *Error) Error() string {
	return e.Diag.Message
}

// Invert returns the inverse of n.
func Invert(n ast.Node) (ast.Node, error) {
	switch x := n.(type) {
	case ast.Stmt:
		return InvertStmt(x)
	case ast.Expr:
		return invertExpr(x), nil
	case *ast.Fn:
		return InvertFn(x)
	}
	return nil, fmt.Errorf("cannot invert %s", n.Kind())
}

// InvertStmt returns the inverse of s.
func InvertStmt(s ast.Stmt) (ast.Stmt, error) {
	return invertStmt(s, 0)
}

// InvertUndo inverts the do part of a do-yield-undo. It is already inside a
// do-yield-undo, so any do-yield-undo it contains is rejected.
func InvertUndo(s ast.Stmt) (ast.Stmt, error) {
	return invertStmt(s, 1)
}

// InvertFn returns a copy of fn whose body is inverted. Running the copy
// forward runs fn backward.
func InvertFn(fn *ast.Fn) (*ast.Fn, error) {
	body, err := InvertStmt(fn.Body)
	if err != nil {
		return nil, err
	}
	inv := ast.Clone(fn).(*ast.Fn)
	inv.Body = body
	return inv, nil
}

func nestedError(n *ast.DoYieldUndo) error {
	span := n.Span
	return &Error{Diag: diagnostics.MakeDiag(
		diagnostics.ENestedDo,
		"nested do-yield-undo not allowed",
		&span,
		"move the inner do-yield-undo out of the enclosing do block",
	)}
}

// implicitGuardError rejects an if whose synthesized guard cannot tell the
// branches apart after they ran.
func implicitGuardError(n *ast.If) error {
	span := n.Span
	return &Error{Diag: diagnostics.MakeDiag(
		diagnostics.EExitGuard,
		"if without fi assigns a variable of its condition and cannot be inverted",
		&span,
		"add 'fi <expr>' that is false after the then branch and true after the else branch",
	)}
}

// assignsAny reports whether s may assign a variable e mentions. The do
// part of a do-yield-undo is undone in place and does not count.
func assignsAny(s ast.Stmt, e ast.Expr) bool {
	switch n := s.(type) {
	case *ast.Let:
		return mentions(e, n.Target)
	case *ast.Unlet:
		return mentions(e, n.Target)
	case *ast.OpEq:
		return mentions(e, n.Target)
	case *ast.Swap:
		return mentions(e, n.Left) || mentions(e, n.Right)
	case *ast.Block:
		for _, st := range n.Stmts {
			if assignsAny(st, e) {
				return true
			}
		}
	case *ast.If:
		return assignsAny(n.Then, e) || assignsAny(n.Else, e)
	case *ast.Loop:
		return assignsAny(n.Body, e)
	case *ast.DoYieldUndo:
		return assignsAny(n.Yield, e)
	}
	return false
}

func mentions(e ast.Expr, v *ast.Var) bool {
	if v == nil {
		return false
	}
	switch n := e.(type) {
	case *ast.Var:
		return n.Name() == v.Name()
	case *ast.Cmp:
		return mentions(n.Left, v) || mentions(n.Right, v)
	}
	return false
}

func invertStmt(s ast.Stmt, depth int) (ast.Stmt, error) {
	switch n := s.(type) {
	case *ast.Let:
		return &ast.Unlet{Span: n.Span, Target: invertVar(n.Target), Value: invertExpr(n.Value)}, nil

	case *ast.Unlet:
		return &ast.Let{Span: n.Span, Target: invertVar(n.Target), Value: invertExpr(n.Value)}, nil

	case *ast.OpEq:
		return &ast.OpEq{Span: n.Span, Op: n.Op.Inverse(), Target: invertVar(n.Target), Value: invertExpr(n.Value)}, nil

	case *ast.Swap:
		return &ast.Swap{Span: n.Span, Left: invertVar(n.Left), Right: invertVar(n.Right)}, nil

	case *ast.Call:
		return &ast.Uncall{Span: n.Span, Callee: invertVar(n.Callee), Args: invertExprs(n.Args)}, nil

	case *ast.Uncall:
		return &ast.Call{Span: n.Span, Callee: invertVar(n.Callee), Args: invertExprs(n.Args)}, nil

	case *ast.ExprStmt:
		return &ast.ExprStmt{Span: n.Span, Expr: invertExpr(n.Expr)}, nil

	case *ast.Block:
		stmts := make([]ast.Stmt, len(n.Stmts))
		for i, st := range n.Stmts {
			inv, err := invertStmt(st, depth)
			if err != nil {
				return nil, err
			}
			stmts[len(n.Stmts)-1-i] = inv
		}
		return &ast.Block{Span: n.Span, Stmts: stmts}, nil

	case *ast.Loop:
		body, err := invertStmt(n.Body, depth)
		if err != nil {
			return nil, err
		}
		return &ast.Loop{
			Span:  n.Span,
			Entry: invertExpr(n.Until),
			Body:  body,
			Until: invertExpr(n.Entry),
		}, nil

	case *ast.If:
		if n.ImplicitExit && (assignsAny(n.Then, n.Cond) || assignsAny(n.Else, n.Cond)) {
			return nil, implicitGuardError(n)
		}
		then, err := invertStmt(n.Then, depth)
		if err != nil {
			return nil, err
		}
		els, err := invertStmt(n.Else, depth)
		if err != nil {
			return nil, err
		}
		return &ast.If{
			Span: n.Span,
			Cond: invertExpr(n.Exit),
			Then: els,
			Else: then,
			Exit: invertExpr(n.Cond),
		}, nil

	case *ast.DoYieldUndo:
		if depth > 0 {
			return nil, nestedError(n)
		}
		// The do part is undone in place, so it stays as written; it must
		// still be invertible itself.
		if _, err := invertStmt(n.Do, depth+1); err != nil {
			return nil, err
		}
		yield, err := invertStmt(n.Yield, depth+1)
		if err != nil {
			return nil, err
		}
		return &ast.DoYieldUndo{Span: n.Span, Do: ast.CloneStmt(n.Do), Yield: yield}, nil

	case nil:
		return nil, nil
	}
	return nil, fmt.Errorf("cannot invert %s", s.Kind())
}

// invertExpr inverts an expression. Expressions have no effects, so the
// result is a structural copy.
func invertExpr(e ast.Expr) ast.Expr {
	switch n := e.(type) {
	case *ast.Cmp:
		return &ast.Cmp{Typed: n.Typed, Span: n.Span, Op: n.Op, Left: invertExpr(n.Left), Right: invertExpr(n.Right)}
	default:
		return ast.CloneExpr(e)
	}
}

func invertVar(v *ast.Var) *ast.Var {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func invertExprs(es []ast.Expr) []ast.Expr {
	out := make([]ast.Expr, len(es))
	for i, e := range es {
		out[i] = invertExpr(e)
	}
	return out
}
