// Package help holds the built-in Rev language reference shown by rev doc.
package help

import (
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/thomasrohde/rev/pkg/builtins"
	"github.com/thomasrohde/rev/pkg/diagnostics"
)

// QUICKREF is the one-screen overview printed by rev doc without a topic.
const QUICKREF = `Rev v0.1 quick reference

A program is a list of functions; execution starts at main(argc: int),
called with argc = 0. Every statement has an exact inverse, and every
binding made with let must be released with unlet before main returns.

  fn name(p: int, ...) -> () := stmt
  let x := e          bind x            (inverse: unlet x := e)
  unlet x := e        release x if x = e (inverse: let x := e)
  x += e  x -= e      update x          (inverse: the opposite operator)
  x *= e  x /= e
  a <> b              swap a and b      (self-inverse)
  call f(e, ...)      run f forward     (inverse: uncall f(e, ...))
  uncall f(e, ...)    run f backward
  if c { } else { } fi g     g must be false after then, true after else
  from e1 do { } until e2    runs only if e1 holds, repeats until e2
  do { } yield stmt undo     run, observe, roll back

Expressions: integers, variables, () and comparisons < <= = != >= >.

Topics: syntax, types, reversibility, flow, builtins, diagnostics, config, examples
Run 'rev doc <topic>' for details.
`

// TopicList is the display order of the topics.
var TopicList = []string{
	"syntax",
	"types",
	"reversibility",
	"flow",
	"builtins",
	"diagnostics",
	"config",
	"examples",
}

// Topics maps a topic name to its text.
var Topics = map[string]string{
	"syntax": `Syntax

  program := fn*
  fn      := 'fn' IDENT '(' (IDENT ':' type (',' IDENT ':' type)*)? ')' '->' type ':=' stmt
  stmt    := block | let | unlet | opeq | swap | if | loop | dyu | call | uncall | expr
  block   := '{' (stmt | ';')* '}'
  let     := 'let' IDENT ':=' expr
  unlet   := 'unlet' IDENT ':=' expr
  opeq    := IDENT ('+=' | '-=' | '*=' | '/=') expr
  swap    := IDENT '<>' IDENT
  if      := 'if' expr block ('else' (if | block))? ('fi' expr)?
  loop    := 'from' expr 'do' block 'until' expr
  dyu     := 'do' stmt 'yield' stmt 'undo'
  call    := ('call' | 'uncall') IDENT '(' (expr (',' expr)*)? ')'
  expr    := prefix (cmp prefix)*
  prefix  := IDENT | NUMBER | '(' ')' | '(' expr ')'

Statements in a block are separated by ';'. Comments start with // and
run to the end of the line. Integer literals are decimal without leading
zeros. There is no arithmetic inside expressions: write x += e.
`,

	"types": `Types

  int    64-bit signed integer; arithmetic wraps on overflow
  i32    accepted as a spelling of int
  ()     the unit type; the value () compares with nothing

Parameters carry a declared type. The annotator records the type of every
expression and binding; values at runtime are integers or unit.
`,

	"reversibility": `Reversibility

Every statement S has an inverse inv(S) such that running S then inv(S)
restores the environment exactly:

  let x := e               unlet x := e
  x += e / x -= e          x -= e / x += e
  x *= e / x /= e          x /= e / x *= e
  a <> b                   a <> b
  call f(a)                uncall f(a)
  { s1; ...; sn }          { inv sn; ...; inv s1 }
  if c1 {T} else {E} fi c2 if c2 {inv E} else {inv T} fi c1
  from e1 do {S} until e2  from e2 do {inv S} until e1
  do A yield B undo        do A yield inv B undo

x op= e must not read x in e: x += x cannot be undone. Division that
truncates loses information; x /= e is only undone by x *= e when e
divided x exactly.

Functions must return their parameters unchanged. 'uncall f(a)' runs the
inverted body of f.
`,

	"flow": `Control flow

if c { T } else { E } fi g
  Runs T when c is non-zero, else E. The exit guard g must be false after
  T and true after E; the inverse uses it to pick the branch. Without fi
  the guard is (c) = 0, which only works when the branches leave c
  unchanged: such an if still runs forward, but cannot be inverted.
  With strict guards (the default) a violated fi guard stops the run.

from e1 do { S } until e2
  When e1 is zero nothing happens. Otherwise S runs, then e2 is tested;
  the loop repeats until e2 is non-zero.

do { A } yield B undo
  Runs A, then B, then the inverse of A. Only the effects of B (such as
  printing) remain. do-yield-undo cannot be nested.
`,

	"builtins": `Builtins

  print(e)   writes the value of e and a newline; uncall prints again
  read(x)    binds the unbound variable x to the next integer on stdin;
             read cannot be uncalled

Builtins are called like functions: call print(x).
`,

	"diagnostics": `Diagnostics

Static diagnostics (exit code 2) and runtime errors (exit code 4) carry a
code, a message, a source location and sometimes a hint. Use --pretty
for the human form; the default is JSON.
`,

	"config": `Configuration

rev reads the first of .rev.toml, .rev.yaml, .rev.yml in the current
directory, else ~/.rev/config.toml, else uses defaults:

  annotate = true        run the type annotator before execution
  strict_guards = true   check if exit guards while running
  max_steps = 0          statement budget, 0 = unlimited
  timeout_ms = 0         wall-clock budget, 0 = unlimited
  trace = ""             write NDJSON trace events to this file
  pretty = false         human-readable diagnostics

Flags override the file. 'rev config' prints the effective settings.
`,

	"examples": `Examples

  fn main(argc: int) -> () := {
    let x := 0;
    x += 5;
    let y := x;
    unlet x := y;
    call print(y);       // 5
    unlet y := 5
  }

  fn main(argc: int) -> () := {
    let i := 0;
    from i = 0 do { i += 1; call print(i) } until i = 3;
    unlet i := 3
  }

  fn main(argc: int) -> () := {
    let x := 1;
    do { x *= 10 } yield call print(x) undo;   // prints 10
    unlet x := 1
  }
`,
}

// MatchTopic resolves a topic name. It accepts an exact name, a unique
// prefix, or failing those the best fuzzy match.
func MatchTopic(query string) (string, string, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if content, ok := Topics[q]; ok {
		return q, content, nil
	}

	var prefixed []string
	for _, name := range TopicList {
		if q != "" && strings.HasPrefix(name, q) {
			prefixed = append(prefixed, name)
		}
	}
	switch len(prefixed) {
	case 1:
		return prefixed[0], Topics[prefixed[0]], nil
	case 0:
	default:
		return "", "", fmt.Errorf("ambiguous topic %q: %s", query, strings.Join(prefixed, ", "))
	}

	if q != "" {
		if matches := fuzzy.Find(q, TopicList); len(matches) > 0 {
			name := matches[0].Str
			return name, Topics[name], nil
		}
	}
	return "", "", fmt.Errorf("unknown topic %q; available: %s", query, strings.Join(TopicList, ", "))
}

// BuiltinIndex lists every standard builtin with its arity and whether it
// can be uncalled.
func BuiltinIndex() string {
	reg := builtins.Default()
	var sb strings.Builder
	names := reg.Names()
	for _, name := range names {
		b := reg.Get(name)
		dir := "reversible"
		if b.Uncall == nil {
			dir = "forward only"
		}
		fmt.Fprintf(&sb, "  %-8s %d arg(s)  %s\n", name, b.Arity, dir)
	}
	fmt.Fprintf(&sb, "\nTotal: %d builtins\n", len(names))
	return sb.String()
}

// CodeIndex lists every diagnostic code with its name.
func CodeIndex() string {
	codes := diagnostics.Codes()
	var sb strings.Builder
	for _, c := range codes {
		fmt.Fprintf(&sb, "  %-18s %s\n", c, diagnostics.Name(c))
	}
	return sb.String()
}
