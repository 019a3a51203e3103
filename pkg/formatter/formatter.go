// Package formatter implements the Rev source code formatter.
package formatter

import (
	"strconv"
	"strings"

	"github.com/thomasrohde/rev/pkg/ast"
)

const indent = "  "

// Format pretty-prints a Rev AST back to source code.
func Format(program *ast.Program) string {
	parts := make([]string, len(program.Fns))
	for i, fn := range program.Fns {
		parts[i] = FormatFn(fn)
	}
	return strings.Join(parts, "\n\n") + "\n"
}

// FormatFn formats one function definition.
func FormatFn(fn *ast.Fn) string {
	var sb strings.Builder
	sb.WriteString("fn ")
	sb.WriteString(fn.Name)
	sb.WriteString("(")
	pts := fn.ParamTypes()
	for i, p := range fn.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.Name)
		sb.WriteString(": ")
		if i < len(pts) {
			sb.WriteString(pts[i].String())
		} else {
			sb.WriteString(p.Type.String())
		}
	}
	sb.WriteString(") -> ")
	ret := fn.ReturnType()
	if ret == nil {
		ret = ast.VoidType()
	}
	sb.WriteString(ret.String())
	sb.WriteString(" := ")
	sb.WriteString(formatStmt(fn.Body, 0))
	return sb.String()
}

// FormatStmt formats a single statement at the top indentation level.
func FormatStmt(s ast.Stmt) string {
	return formatStmt(s, 0)
}

// FormatExpr formats a single expression.
func FormatExpr(e ast.Expr) string {
	return formatExpr(e, false)
}

// HasComments checks if a source string contains Rev comments (// prefix).
func HasComments(source string) bool {
	return strings.Contains(source, "//")
}

func formatStmt(s ast.Stmt, depth int) string {
	switch n := s.(type) {
	case *ast.Let:
		return "let " + n.Target.Name() + " := " + formatExpr(n.Value, false)
	case *ast.Unlet:
		return "unlet " + n.Target.Name() + " := " + formatExpr(n.Value, false)
	case *ast.OpEq:
		return n.Target.Name() + " " + string(n.Op) + " " + formatExpr(n.Value, false)
	case *ast.Swap:
		return n.Left.Name() + " <> " + n.Right.Name()
	case *ast.Call:
		return "call " + formatCall(n.Callee, n.Args)
	case *ast.Uncall:
		return "uncall " + formatCall(n.Callee, n.Args)
	case *ast.ExprStmt:
		return formatExpr(n.Expr, false)
	case *ast.Block:
		return formatBlock(n.Stmts, depth)
	case *ast.If:
		return formatIf(n, depth)
	case *ast.Loop:
		return "from " + formatExpr(n.Entry, false) +
			" do " + formatBody(n.Body, depth) +
			" until " + formatExpr(n.Until, false)
	case *ast.DoYieldUndo:
		return "do " + formatStmt(n.Do, depth) +
			" yield " + formatStmt(n.Yield, depth) +
			" undo"
	}
	return "<?>"
}

func formatIf(n *ast.If, depth int) string {
	var sb strings.Builder
	sb.WriteString("if ")
	sb.WriteString(formatExpr(n.Cond, false))
	sb.WriteString(" ")
	sb.WriteString(formatBody(n.Then, depth))
	switch els := n.Else.(type) {
	case *ast.If:
		sb.WriteString(" else ")
		if n.ImplicitExit {
			sb.WriteString(formatIf(els, depth))
		} else {
			// a trailing fi would otherwise attach to the nested if
			sb.WriteString(formatBlock([]ast.Stmt{els}, depth))
		}
	case *ast.Block:
		if len(els.Stmts) > 0 {
			sb.WriteString(" else ")
			sb.WriteString(formatBlock(els.Stmts, depth))
		}
	case nil:
	default:
		sb.WriteString(" else ")
		sb.WriteString(formatBody(els, depth))
	}
	if !n.ImplicitExit && n.Exit != nil {
		sb.WriteString(" fi ")
		sb.WriteString(formatExpr(n.Exit, false))
	}
	return sb.String()
}

// formatBody renders a statement that the grammar requires to be a block.
func formatBody(s ast.Stmt, depth int) string {
	if b, ok := s.(*ast.Block); ok {
		return formatBlock(b.Stmts, depth)
	}
	return formatBlock([]ast.Stmt{s}, depth)
}

func formatBlock(stmts []ast.Stmt, depth int) string {
	if len(stmts) == 0 {
		return "{}"
	}
	pad := strings.Repeat(indent, depth+1)
	lines := make([]string, len(stmts))
	for i, s := range stmts {
		lines[i] = pad + formatStmt(s, depth+1)
	}
	return "{\n" + strings.Join(lines, ";\n") + "\n" + strings.Repeat(indent, depth) + "}"
}

func formatCall(callee *ast.Var, args []ast.Expr) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = formatExpr(a, false)
	}
	return callee.Name() + "(" + strings.Join(parts, ", ") + ")"
}

// formatExpr renders e. Comparisons used as operands of another comparison
// are parenthesized.
func formatExpr(e ast.Expr, nested bool) string {
	switch n := e.(type) {
	case *ast.Unit:
		return "()"
	case *ast.Num:
		return strconv.FormatInt(n.Value, 10)
	case *ast.Var:
		return n.Name()
	case *ast.Cmp:
		s := formatExpr(n.Left, true) + " " + string(n.Op) + " " + formatExpr(n.Right, true)
		if nested {
			return "(" + s + ")"
		}
		return s
	}
	return "<?>"
}
