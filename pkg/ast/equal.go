package ast

// Equal reports whether a and b are structurally equal. Spans and annotated
// types are ignored. Variables compare equal when they share an Object or
// carry the same name.
func Equal(a, b Node) bool {
	if a == nil || b == nil {
		return isNil(a) && isNil(b)
	}
	if isNil(a) || isNil(b) {
		return isNil(a) && isNil(b)
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch x := a.(type) {
	case *Unit:
		return true
	case *Num:
		return x.Value == b.(*Num).Value
	case *Var:
		return sameVar(x, b.(*Var))
	case *Cmp:
		y := b.(*Cmp)
		return x.Op == y.Op && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	case *Let:
		y := b.(*Let)
		return sameVar(x.Target, y.Target) && Equal(x.Value, y.Value)
	case *Unlet:
		y := b.(*Unlet)
		return sameVar(x.Target, y.Target) && Equal(x.Value, y.Value)
	case *OpEq:
		y := b.(*OpEq)
		return x.Op == y.Op && sameVar(x.Target, y.Target) && Equal(x.Value, y.Value)
	case *Swap:
		y := b.(*Swap)
		return sameVar(x.Left, y.Left) && sameVar(x.Right, y.Right)
	case *If:
		y := b.(*If)
		return Equal(x.Cond, y.Cond) && Equal(x.Then, y.Then) &&
			Equal(x.Else, y.Else) && Equal(x.Exit, y.Exit)
	case *Loop:
		y := b.(*Loop)
		return Equal(x.Entry, y.Entry) && Equal(x.Body, y.Body) && Equal(x.Until, y.Until)
	case *DoYieldUndo:
		y := b.(*DoYieldUndo)
		return Equal(x.Do, y.Do) && Equal(x.Yield, y.Yield)
	case *Block:
		y := b.(*Block)
		if len(x.Stmts) != len(y.Stmts) {
			return false
		}
		for i := range x.Stmts {
			if !Equal(x.Stmts[i], y.Stmts[i]) {
				return false
			}
		}
		return true
	case *Call:
		y := b.(*Call)
		return sameVar(x.Callee, y.Callee) && equalExprs(x.Args, y.Args)
	case *Uncall:
		y := b.(*Uncall)
		return sameVar(x.Callee, y.Callee) && equalExprs(x.Args, y.Args)
	case *ExprStmt:
		return Equal(x.Expr, b.(*ExprStmt).Expr)
	case *Fn:
		y := b.(*Fn)
		if x.Name != y.Name || x.Exported != y.Exported || x.Imported != y.Imported ||
			len(x.Params) != len(y.Params) || !x.Type.Equal(y.Type) {
			return false
		}
		for i := range x.Params {
			if x.Params[i].Name != y.Params[i].Name {
				return false
			}
		}
		return Equal(x.Body, y.Body)
	case *Program:
		y := b.(*Program)
		if len(x.Fns) != len(y.Fns) {
			return false
		}
		for i := range x.Fns {
			if !Equal(x.Fns[i], y.Fns[i]) {
				return false
			}
		}
		return true
	}
	return false
}

func sameVar(a, b *Var) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Obj == b.Obj || a.Obj.Name == b.Obj.Name
}

func equalExprs(a, b []Expr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// isNil catches typed nil pointers stored in an interface.
func isNil(n Node) bool {
	if n == nil {
		return true
	}
	switch v := n.(type) {
	case *Unit:
		return v == nil
	case *Num:
		return v == nil
	case *Var:
		return v == nil
	case *Cmp:
		return v == nil
	case *Let:
		return v == nil
	case *Unlet:
		return v == nil
	case *OpEq:
		return v == nil
	case *Swap:
		return v == nil
	case *If:
		return v == nil
	case *Loop:
		return v == nil
	case *DoYieldUndo:
		return v == nil
	case *Block:
		return v == nil
	case *Call:
		return v == nil
	case *Uncall:
		return v == nil
	case *ExprStmt:
		return v == nil
	case *Fn:
		return v == nil
	case *Program:
		return v == nil
	}
	return false
}
