package evaluator

import (
	"bufio"
	"fmt"
	"io"

	"github.com/thomasrohde/rev/pkg/ast"
	"github.com/thomasrohde/rev/pkg/diagnostics"
)

// Builtin defines a host function reachable through call and uncall.
// A nil Uncall marks the builtin as irreversible.
type Builtin struct {
	Name   string
	Arity  int
	Call   func(c *BuiltinCall) error
	Uncall func(c *BuiltinCall) error
}

// BuiltinCall gives a builtin access to its call site.
type BuiltinCall struct {
	Name string
	Args []ast.Expr
	Span ast.Span
	Out  io.Writer
	In   *bufio.Reader

	m *Machine
}

// Arg evaluates argument i.
func (c *BuiltinCall) Arg(i int) (Value, error) {
	return c.m.value(c.Args[i])
}

// Target returns the variable named by argument i. The argument must be a
// plain variable reference.
func (c *BuiltinCall) Target(i int) (*ast.Var, error) {
	v, ok := c.Args[i].(*ast.Var)
	if !ok {
		return nil, c.Errorf(diagnostics.EType, "argument %d of %s must be a variable", i+1, c.Name)
	}
	return v, nil
}

// Env returns the machine's environment.
func (c *BuiltinCall) Env() *Env {
	return c.m.env
}

// Bind binds name, failing if it is already bound.
func (c *BuiltinCall) Bind(name string, v Value) error {
	if c.m.env.Has(name) {
		return c.Errorf(diagnostics.EAlreadyBound, "variable '%s' is already bound", name)
	}
	c.m.env.Set(name, v)
	return nil
}

// Errorf builds a runtime error located at the call site.
func (c *BuiltinCall) Errorf(code, format string, args ...any) error {
	span := c.Span
	return &RuntimeError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Span:    &span,
	}
}
