// Package diagnostics defines Rev diagnostic types for lex/parse/validation/runtime errors.
package diagnostics

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/thomasrohde/rev/pkg/ast"
)

// Diagnostic code constants.
const (
	ELex           = "E_LEX"
	EParse         = "E_PARSE"
	EUnexpectedEOF = "E_UNEXPECTED_EOF"
	EUnknownType   = "E_UNKNOWN_TYPE"
	EUnbound       = "E_UNBOUND"
	EAlreadyBound  = "E_ALREADY_BOUND"
	ENotBound      = "E_NOT_BOUND"
	EUnletMismatch = "E_UNLET_MISMATCH"
	EParamMutated  = "E_PARAM_MUTATED"
	EDivZero       = "E_DIV_ZERO"
	EUnknownFn     = "E_UNKNOWN_FN"
	EArity         = "E_ARITY"
	ENoEntry       = "E_NO_ENTRY"
	EUnreleased    = "E_UNRELEASED"
	ENestedDo      = "E_NESTED_DO"
	EExitGuard     = "E_EXIT_GUARD"
	EIrreversible  = "E_IRREVERSIBLE"
	EType          = "E_TYPE"
	EFnDup         = "E_FN_DUP"
	EDupParam      = "E_DUP_PARAM"
	ESelfRef       = "E_SELF_REF"
	EBudget        = "E_BUDGET"
	ECancelled     = "E_CANCELLED"
	EIO            = "E_IO"
)

// names maps codes onto the language's error taxonomy.
var names = map[string]string{
	ELex:           "LexError",
	EParse:         "ParseError",
	EUnexpectedEOF: "ParseError",
	EUnknownType:   "ParseError",
	EUnbound:       "UnboundVariable",
	EAlreadyBound:  "AlreadyBound",
	ENotBound:      "NotBound",
	EUnletMismatch: "UnletMismatch",
	EParamMutated:  "ParameterMutated",
	EDivZero:       "DivisionByZero",
	EUnknownFn:     "UnknownFunction",
	EArity:         "ArityMismatch",
	ENoEntry:       "MissingEntryPoint",
	EUnreleased:    "UnreleasedBindings",
	ENestedDo:      "NestedDoYieldUndo",
	EExitGuard:     "ExitGuardViolated",
	EIrreversible:  "Irreversible",
	EType:          "TypeError",
	EFnDup:         "DuplicateFunction",
	EDupParam:      "DuplicateParameter",
	ESelfRef:       "SelfReference",
	EBudget:        "BudgetExceeded",
	ECancelled:     "Cancelled",
	EIO:            "IOError",
}

// Name returns the taxonomy name for code, or code itself when unknown.
func Name(code string) string {
	if n, ok := names[code]; ok {
		return n
	}
	return code
}

// Codes returns every known code in sorted order.
func Codes() []string {
	out := make([]string, 0, len(names))
	for c := range names {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Diagnostic represents a lex, parse, validation, or runtime diagnostic.
type Diagnostic struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Span    *ast.Span `json:"span,omitempty"`
	Hint    string    `json:"hint,omitempty"`
}

// MakeDiag creates a new Diagnostic.
func MakeDiag(code, message string, span *ast.Span, hint string) Diagnostic {
	return Diagnostic{
		Code:    code,
		Message: message,
		Span:    span,
		Hint:    hint,
	}
}

// Location renders the diagnostic's position as file:line:col.
func (d Diagnostic) Location() string {
	if d.Span == nil {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", d.Span.File, d.Span.StartLine, d.Span.StartCol)
}

// FormatDiagnostic formats a single diagnostic for display.
func FormatDiagnostic(d Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(d)
		return string(b)
	}
	out := fmt.Sprintf("error[%s]: %s\n  --> %s", d.Code, d.Message, d.Location())
	if d.Hint != "" {
		out += fmt.Sprintf("\n  hint: %s", d.Hint)
	}
	return out
}

// FormatDiagnostics formats a slice of diagnostics for display.
func FormatDiagnostics(diags []Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(diags)
		return string(b)
	}
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = FormatDiagnostic(d, true)
	}
	return strings.Join(parts, "\n\n")
}
