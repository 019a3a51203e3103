package ast

// CloneExpr returns a deep copy of e. Variable references keep their shared
// Object; annotated types are copied by reference.
func CloneExpr(e Expr) Expr {
	if e == nil {
		return nil
	}
	switch x := e.(type) {
	case *Unit:
		c := *x
		return &c
	case *Num:
		c := *x
		return &c
	case *Var:
		return cloneVar(x)
	case *Cmp:
		return &Cmp{Typed: x.Typed, Span: x.Span, Op: x.Op, Left: CloneExpr(x.Left), Right: CloneExpr(x.Right)}
	}
	return e
}

// CloneStmt returns a deep copy of s.
func CloneStmt(s Stmt) Stmt {
	if s == nil {
		return nil
	}
	switch x := s.(type) {
	case *Let:
		return &Let{Typed: x.Typed, Span: x.Span, Target: cloneVar(x.Target), Value: CloneExpr(x.Value)}
	case *Unlet:
		return &Unlet{Span: x.Span, Target: cloneVar(x.Target), Value: CloneExpr(x.Value)}
	case *OpEq:
		return &OpEq{Span: x.Span, Op: x.Op, Target: cloneVar(x.Target), Value: CloneExpr(x.Value)}
	case *Swap:
		return &Swap{Span: x.Span, Left: cloneVar(x.Left), Right: cloneVar(x.Right)}
	case *If:
		return &If{
			Span:         x.Span,
			Cond:         CloneExpr(x.Cond),
			Then:         CloneStmt(x.Then),
			Else:         CloneStmt(x.Else),
			Exit:         CloneExpr(x.Exit),
			ImplicitExit: x.ImplicitExit,
		}
	case *Loop:
		return &Loop{Span: x.Span, Entry: CloneExpr(x.Entry), Body: CloneStmt(x.Body), Until: CloneExpr(x.Until)}
	case *DoYieldUndo:
		return &DoYieldUndo{Span: x.Span, Do: CloneStmt(x.Do), Yield: CloneStmt(x.Yield)}
	case *Block:
		stmts := make([]Stmt, len(x.Stmts))
		for i, st := range x.Stmts {
			stmts[i] = CloneStmt(st)
		}
		return &Block{Span: x.Span, Stmts: stmts}
	case *Call:
		return &Call{Span: x.Span, Callee: cloneVar(x.Callee), Args: cloneExprs(x.Args)}
	case *Uncall:
		return &Uncall{Span: x.Span, Callee: cloneVar(x.Callee), Args: cloneExprs(x.Args)}
	case *ExprStmt:
		return &ExprStmt{Span: x.Span, Expr: CloneExpr(x.Expr)}
	}
	return s
}

// Clone returns a deep copy of any node.
func Clone(n Node) Node {
	switch x := n.(type) {
	case Expr:
		return CloneExpr(x)
	case Stmt:
		return CloneStmt(x)
	case *Fn:
		params := make([]*Object, len(x.Params))
		copy(params, x.Params)
		return &Fn{
			Span:     x.Span,
			Name:     x.Name,
			Exported: x.Exported,
			Imported: x.Imported,
			Params:   params,
			Body:     CloneStmt(x.Body),
			Type:     x.Type,
		}
	case *Program:
		fns := make([]*Fn, len(x.Fns))
		for i, fn := range x.Fns {
			fns[i] = Clone(fn).(*Fn)
		}
		return &Program{Span: x.Span, Fns: fns}
	}
	return n
}

func cloneVar(v *Var) *Var {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneExprs(es []Expr) []Expr {
	if es == nil {
		return nil
	}
	out := make([]Expr, len(es))
	for i, e := range es {
		out[i] = CloneExpr(e)
	}
	return out
}
