// Package lexer implements the Rev language tokenizer.
package lexer

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/thomasrohde/rev/pkg/ast"
	"github.com/thomasrohde/rev/pkg/diagnostics"
)

// TokenType identifies the type of a lexer token.
type TokenType int

const (
	// Keywords
	TokFn TokenType = iota
	TokLet
	TokUnlet
	TokCall
	TokUncall
	TokYield
	TokDo
	TokUndo
	TokIf
	TokElse
	TokFi
	TokFrom
	TokUntil

	// Literals
	TokIntLit

	// Identifiers
	TokIdent

	// Punctuation
	TokLBrace // {
	TokRBrace // }
	TokLParen // (
	TokRParen // )
	TokColon  // :
	TokComma  // ,
	TokSemi   // ;
	TokArrow  // ->
	TokAssign // :=
	TokSwap   // <>

	// Comparison operators
	TokEq     // =
	TokBangEq // !=
	TokLt     // <
	TokLtEq   // <=
	TokGt     // >
	TokGtEq   // >=

	// Arithmetic operators
	TokPlus    // +
	TokMinus   // -
	TokStar    // *
	TokSlash   // /
	TokPlusEq  // +=
	TokMinusEq // -=
	TokStarEq  // *=
	TokSlashEq // /=

	// Special
	TokEOF
)

var tokenNames = [...]string{
	TokFn:      "fn",
	TokLet:     "let",
	TokUnlet:   "unlet",
	TokCall:    "call",
	TokUncall:  "uncall",
	TokYield:   "yield",
	TokDo:      "do",
	TokUndo:    "undo",
	TokIf:      "if",
	TokElse:    "else",
	TokFi:      "fi",
	TokFrom:    "from",
	TokUntil:   "until",
	TokIntLit:  "integer",
	TokIdent:   "identifier",
	TokLBrace:  "{",
	TokRBrace:  "}",
	TokLParen:  "(",
	TokRParen:  ")",
	TokColon:   ":",
	TokComma:   ",",
	TokSemi:    ";",
	TokArrow:   "->",
	TokAssign:  ":=",
	TokSwap:    "<>",
	TokEq:      "=",
	TokBangEq:  "!=",
	TokLt:      "<",
	TokLtEq:    "<=",
	TokGt:      ">",
	TokGtEq:    ">=",
	TokPlus:    "+",
	TokMinus:   "-",
	TokStar:    "*",
	TokSlash:   "/",
	TokPlusEq:  "+=",
	TokMinusEq: "-=",
	TokStarEq:  "*=",
	TokSlashEq: "/=",
	TokEOF:     "end of input",
}

func (t TokenType) String() string {
	if t >= 0 && int(t) < len(tokenNames) {
		return tokenNames[t]
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// IsKeyword reports whether t is a reserved word.
func (t TokenType) IsKeyword() bool {
	return t >= TokFn && t <= TokUntil
}

// Token represents a single lexer token.
type Token struct {
	Type  TokenType
	Value string
	Span  ast.Span
}

var keywords = map[string]TokenType{
	"fn":     TokFn,
	"let":    TokLet,
	"unlet":  TokUnlet,
	"call":   TokCall,
	"uncall": TokUncall,
	"yield":  TokYield,
	"do":     TokDo,
	"undo":   TokUndo,
	"if":     TokIf,
	"else":   TokElse,
	"fi":     TokFi,
	"from":   TokFrom,
	"until":  TokUntil,
}

// LexError wraps a diagnostic for lex errors.
type LexError struct {
	Diag diagnostics.Diagnostic
}

func (e *LexError) Error() string {
	return e.Diag.Message
}

// Lexer produces tokens one at a time from a line-buffered reader. Positions
// are tracked per module as 1-based row and column.
type Lexer struct {
	r      *bufio.Reader
	module string
	line   string
	pos    int
	row    int
	eof    bool
	strs   map[string]string
}

// New returns a lexer reading module source from r.
func New(r io.Reader, module string) *Lexer {
	return &Lexer{
		r:      bufio.NewReader(r),
		module: module,
		strs:   make(map[string]string),
	}
}

// NewString returns a lexer over in-memory source text.
func NewString(source, module string) *Lexer {
	return New(strings.NewReader(source), module)
}

// Module returns the module name used in spans.
func (l *Lexer) Module() string { return l.module }

// fill makes sure the line buffer has unread input, reading further lines as
// needed. At end of input the buffer is left exhausted.
func (l *Lexer) fill() error {
	for l.pos >= len(l.line) {
		if l.eof {
			return nil
		}
		s, err := l.r.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return l.errorAt(l.row, l.pos+1, fmt.Sprintf("reading %s: %v", l.module, err))
			}
			l.eof = true
		}
		l.line, l.pos = s, 0
		if s != "" {
			l.row++
		}
	}
	return nil
}

func (l *Lexer) peekAt(offset int) byte {
	p := l.pos + offset
	if p >= len(l.line) {
		return 0
	}
	return l.line[p]
}

func (l *Lexer) span(startCol int) ast.Span {
	row := l.row
	if row == 0 {
		row = 1
	}
	return ast.Span{
		File:      l.module,
		StartLine: row,
		StartCol:  startCol,
		EndLine:   row,
		EndCol:    l.pos + 1,
	}
}

func (l *Lexer) errorAt(row, col int, msg string) error {
	if row == 0 {
		row = 1
	}
	diag := diagnostics.MakeDiag(
		diagnostics.ELex,
		msg,
		&ast.Span{File: l.module, StartLine: row, StartCol: col, EndLine: row, EndCol: col + 1},
		"",
	)
	return &LexError{Diag: diag}
}

func (l *Lexer) intern(s string) string {
	if v, ok := l.strs[s]; ok {
		return v
	}
	l.strs[s] = s
	return s
}

func (l *Lexer) skipWhitespaceAndComments() error {
	for {
		if err := l.fill(); err != nil {
			return err
		}
		if l.pos >= len(l.line) {
			return nil
		}
		ch := l.line[l.pos]
		if isSpaceOrControl(ch) {
			l.pos++
			continue
		}
		if ch == '/' && l.peekAt(1) == '/' {
			l.pos = len(l.line)
			continue
		}
		return nil
	}
}

func isSpaceOrControl(ch byte) bool {
	return ch <= ' ' || ch == 0x7f
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// isDelimiter reports whether ch ends an identifier or number run.
func isDelimiter(ch byte) bool {
	switch ch {
	case ';', ',', '(', ')', '{', '}', ':', '+', '-', '*', '/', '=', '<', '>', '!':
		return true
	}
	return isSpaceOrControl(ch)
}

// Next returns the next token. After end of input it keeps returning TokEOF.
func (l *Lexer) Next() (Token, error) {
	if err := l.skipWhitespaceAndComments(); err != nil {
		return Token{}, err
	}

	if l.pos >= len(l.line) {
		return Token{Type: TokEOF, Span: l.span(l.pos + 1)}, nil
	}

	startCol := l.pos + 1
	ch := l.line[l.pos]

	single := func(t TokenType) (Token, error) {
		l.pos++
		return Token{Type: t, Value: tokenNames[t], Span: l.span(startCol)}, nil
	}
	// two returns the two-character token when the next byte is second,
	// otherwise the single-character fallback.
	two := func(second byte, long, short TokenType) (Token, error) {
		if l.peekAt(1) == second {
			l.pos += 2
			return Token{Type: long, Value: tokenNames[long], Span: l.span(startCol)}, nil
		}
		return single(short)
	}

	switch ch {
	case '{':
		return single(TokLBrace)
	case '}':
		return single(TokRBrace)
	case '(':
		return single(TokLParen)
	case ')':
		return single(TokRParen)
	case ',':
		return single(TokComma)
	case ';':
		return single(TokSemi)
	case '=':
		return single(TokEq)
	case ':':
		return two('=', TokAssign, TokColon)
	case '+':
		return two('=', TokPlusEq, TokPlus)
	case '*':
		return two('=', TokStarEq, TokStar)
	case '/':
		return two('=', TokSlashEq, TokSlash)
	case '>':
		return two('=', TokGtEq, TokGt)
	case '-':
		if l.peekAt(1) == '>' {
			l.pos += 2
			return Token{Type: TokArrow, Value: "->", Span: l.span(startCol)}, nil
		}
		return two('=', TokMinusEq, TokMinus)
	case '<':
		if l.peekAt(1) == '>' {
			l.pos += 2
			return Token{Type: TokSwap, Value: "<>", Span: l.span(startCol)}, nil
		}
		return two('=', TokLtEq, TokLt)
	case '!':
		if l.peekAt(1) == '=' {
			l.pos += 2
			return Token{Type: TokBangEq, Value: "!=", Span: l.span(startCol)}, nil
		}
		return Token{}, l.errorAt(l.row, startCol, "unexpected character '!'")
	}

	if isDigit(ch) {
		return l.scanNumber()
	}
	return l.scanIdentOrKeyword(), nil
}

func (l *Lexer) scanNumber() (Token, error) {
	startCol := l.pos + 1
	start := l.pos
	for l.pos < len(l.line) && isDigit(l.line[l.pos]) {
		l.pos++
	}
	if l.pos < len(l.line) && !isDelimiter(l.line[l.pos]) {
		for l.pos < len(l.line) && !isDelimiter(l.line[l.pos]) {
			l.pos++
		}
		return Token{}, l.errorAt(l.row, startCol, fmt.Sprintf("malformed integer literal %q", l.line[start:l.pos]))
	}
	text := l.line[start:l.pos]
	if len(text) > 1 && text[0] == '0' {
		return Token{}, l.errorAt(l.row, startCol, fmt.Sprintf("integer literal %q has a leading zero", text))
	}
	if _, err := strconv.ParseInt(text, 10, 64); err != nil {
		return Token{}, l.errorAt(l.row, startCol, fmt.Sprintf("integer literal %s exceeds %d", text, int64(math.MaxInt64)))
	}
	return Token{Type: TokIntLit, Value: l.intern(text), Span: l.span(startCol)}, nil
}

func (l *Lexer) scanIdentOrKeyword() Token {
	startCol := l.pos + 1
	start := l.pos
	for l.pos < len(l.line) && !isDelimiter(l.line[l.pos]) {
		l.pos++
	}
	text := l.intern(l.line[start:l.pos])
	if tokType, ok := keywords[text]; ok {
		return Token{Type: tokType, Value: text, Span: l.span(startCol)}
	}
	return Token{Type: TokIdent, Value: text, Span: l.span(startCol)}
}

// Tokenize breaks source code into a slice of tokens ending with TokEOF.
func Tokenize(source, filename string) ([]Token, error) {
	l := NewString(source, filename)
	var tokens []Token
	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokEOF {
			return tokens, nil
		}
	}
}
