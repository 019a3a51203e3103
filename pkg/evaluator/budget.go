package evaluator

// Budget holds the resource limits for a program execution. Nil fields are
// unlimited.
type Budget struct {
	TimeMs   *int64
	MaxSteps *int64
}

// BudgetTracker tracks resource consumption during execution.
type BudgetTracker struct {
	Steps   int64
	Calls   int64
	Undos   int64
	StartMs int64
}

// Limit returns a pointer to n, or nil when n is not positive. It turns the
// zero-means-unlimited settings of configuration into Budget fields.
func Limit(n int64) *int64 {
	if n <= 0 {
		return nil
	}
	return &n
}
