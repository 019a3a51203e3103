package builtins

import (
	"errors"
	"fmt"
	"io"

	"github.com/thomasrohde/rev/pkg/diagnostics"
	"github.com/thomasrohde/rev/pkg/evaluator"
)

// RegisterDefaults adds the standard builtins.
func RegisterDefaults(r *Registry) {
	r.Register(evaluator.Builtin{Name: "print", Arity: 1, Call: builtinPrint, Uncall: builtinPrint})
	r.Register(evaluator.Builtin{Name: "read", Arity: 1, Call: builtinRead})
}

// builtinPrint writes its argument and a newline. Output cannot be taken
// back, so running it backward prints again.
func builtinPrint(c *evaluator.BuiltinCall) error {
	v, err := c.Arg(0)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(c.Out, v.String()); err != nil {
		return c.Errorf(diagnostics.EIO, "print: %v", err)
	}
	return nil
}

// builtinRead binds its unbound variable argument to the next integer on
// standard input.
func builtinRead(c *evaluator.BuiltinCall) error {
	target, err := c.Target(0)
	if err != nil {
		return err
	}
	if c.Env().Has(target.Name()) {
		return c.Errorf(diagnostics.EAlreadyBound, "read: variable '%s' is already bound", target.Name())
	}
	var n int64
	if _, err := fmt.Fscan(c.In, &n); err != nil {
		if errors.Is(err, io.EOF) {
			return c.Errorf(diagnostics.EIO, "read: unexpected end of input")
		}
		return c.Errorf(diagnostics.EIO, "read: expected an integer: %v", err)
	}
	return c.Bind(target.Name(), evaluator.NewInt(n))
}
