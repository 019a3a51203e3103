// Package evaluator implements the Rev reversible interpreter.
package evaluator

import "strconv"

// Value is the interface for all Rev runtime values.
// Use the sealed marker method to restrict implementations to this package.
type Value interface {
	revValue() // sealed marker
	String() string
}

// Int is a 64-bit integer value. Arithmetic wraps on overflow.
type Int struct {
	Value int64
}

func (Int) revValue() {}

func (v Int) String() string { return strconv.FormatInt(v.Value, 10) }

// MarshalJSON encodes an integer as a JSON number.
func (v Int) MarshalJSON() ([]byte, error) {
	return []byte(v.String()), nil
}

// Unit is the value of the () expression.
type Unit struct{}

func (Unit) revValue() {}

func (Unit) String() string { return "()" }

// MarshalJSON encodes unit as JSON null.
func (Unit) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// NewInt creates an integer value.
func NewInt(n int64) Value {
	return Int{Value: n}
}

// NewUnit creates a unit value.
func NewUnit() Value {
	return Unit{}
}

// Truthiness returns the boolean interpretation of an integer: non-zero is true.
func Truthiness(v Value) bool {
	i, ok := v.(Int)
	return ok && i.Value != 0
}

// ValuesEqual reports whether two values are identical.
func ValuesEqual(a, b Value) bool {
	switch x := a.(type) {
	case Int:
		y, ok := b.(Int)
		return ok && x.Value == y.Value
	case Unit:
		_, ok := b.(Unit)
		return ok
	}
	return false
}

func boolValue(b bool) Value {
	if b {
		return Int{Value: 1}
	}
	return Int{Value: 0}
}
