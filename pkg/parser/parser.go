// Package parser implements the Rev language parser.
package parser

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/thomasrohde/rev/pkg/ast"
	"github.com/thomasrohde/rev/pkg/diagnostics"
	"github.com/thomasrohde/rev/pkg/lexer"
	"github.com/thomasrohde/rev/pkg/types"
)

// parser pulls tokens from the lexer on demand. It keeps the current token
// plus a two-token lookahead ring, and stops at the first error.
type parser struct {
	lex   *lexer.Lexer
	cur   lexer.Token
	prev  lexer.Token
	ring  [2]lexer.Token
	nring int
	syms  *ast.Symbols
	diags []diagnostics.Diagnostic
	dead  bool
}

// Parse tokenizes source and parses it into an AST.
func Parse(source, filename string) (*ast.Program, []diagnostics.Diagnostic) {
	return ParseWith(strings.NewReader(source), filename, ast.NewSymbols())
}

// ParseWith parses a program using syms for identifier deduplication.
func ParseWith(r io.Reader, module string, syms *ast.Symbols) (*ast.Program, []diagnostics.Diagnostic) {
	p := newParser(lexer.New(r, module), syms)
	prog := p.parseProgram()
	if len(p.diags) > 0 {
		return nil, p.diags
	}
	return prog, nil
}

// ParseStmt parses a sequence of statements separated by ';'. A single
// statement is returned as is; several are wrapped in a Block.
func ParseStmt(source, filename string, syms *ast.Symbols) (ast.Stmt, []diagnostics.Diagnostic) {
	p := newParser(lexer.NewString(source, filename), syms)
	stmt := p.parseStmtList()
	if len(p.diags) > 0 {
		return nil, p.diags
	}
	return stmt, nil
}

// ParseInput parses one interactive input: either function definitions or a
// statement sequence. Exactly one of the results is non-nil on success.
func ParseInput(source, filename string, syms *ast.Symbols) ([]*ast.Fn, ast.Stmt, []diagnostics.Diagnostic) {
	p := newParser(lexer.NewString(source, filename), syms)
	if p.peek() == lexer.TokFn {
		prog := p.parseProgram()
		if len(p.diags) > 0 {
			return nil, nil, p.diags
		}
		return prog.Fns, nil, nil
	}
	stmt := p.parseStmtList()
	if len(p.diags) > 0 {
		return nil, nil, p.diags
	}
	return nil, stmt, nil
}

// IsIncomplete reports whether diags stem only from input ending early, in
// which case more input may complete the parse.
func IsIncomplete(diags []diagnostics.Diagnostic) bool {
	return len(diags) == 1 && diags[0].Code == diagnostics.EUnexpectedEOF
}

func newParser(lex *lexer.Lexer, syms *ast.Symbols) *parser {
	if syms == nil {
		syms = ast.NewSymbols()
	}
	p := &parser{lex: lex, syms: syms}
	p.cur = p.fetch()
	return p
}

// fetch reads the next token from the lexer. A lex error is recorded and
// turned into end of input.
func (p *parser) fetch() lexer.Token {
	if p.dead {
		return lexer.Token{Type: lexer.TokEOF, Span: p.prev.Span}
	}
	tok, err := p.lex.Next()
	if err != nil {
		p.dead = true
		var le *lexer.LexError
		if errors.As(err, &le) {
			p.addDiag(le.Diag)
		} else {
			p.addDiag(diagnostics.MakeDiag(diagnostics.ELex, err.Error(), nil, ""))
		}
		return lexer.Token{Type: lexer.TokEOF, Span: p.cur.Span}
	}
	return tok
}

func (p *parser) current() lexer.Token {
	return p.cur
}

func (p *parser) peek() lexer.TokenType {
	return p.cur.Type
}

// peekAt returns the type of the token offset positions ahead; offset is 1 or 2.
func (p *parser) peekAt(offset int) lexer.TokenType {
	for p.nring < offset {
		p.ring[p.nring] = p.fetch()
		p.nring++
	}
	return p.ring[offset-1].Type
}

func (p *parser) advance() lexer.Token {
	tok := p.cur
	p.prev = tok
	if tok.Type == lexer.TokEOF {
		return tok
	}
	if p.nring > 0 {
		p.cur = p.ring[0]
		p.ring[0] = p.ring[1]
		p.nring--
	} else {
		p.cur = p.fetch()
	}
	return tok
}

func (p *parser) expect(typ lexer.TokenType) (lexer.Token, bool) {
	tok := p.current()
	if tok.Type != typ {
		p.addError(fmt.Sprintf("expected %s, got %s", tokenName(typ), describe(tok)), &tok.Span, "")
		return tok, false
	}
	return p.advance(), true
}

// addError records a parse error at span. Running out of input is reported
// with its own code so interactive callers can ask for more.
func (p *parser) addError(msg string, span *ast.Span, hint string) {
	code := diagnostics.EParse
	if p.cur.Type == lexer.TokEOF && !p.dead {
		code = diagnostics.EUnexpectedEOF
	}
	p.addDiag(diagnostics.MakeDiag(code, msg, span, hint))
}

func (p *parser) addDiag(d diagnostics.Diagnostic) {
	if len(p.diags) > 0 {
		return
	}
	p.diags = append(p.diags, d)
}

func (p *parser) failed() bool {
	return len(p.diags) > 0
}

func (p *parser) spanFrom(start ast.Span) ast.Span {
	return p.spanFromTo(start, p.prev.Span)
}

func (p *parser) spanFromTo(start, end ast.Span) ast.Span {
	return ast.Span{
		File:      start.File,
		StartLine: start.StartLine,
		StartCol:  start.StartCol,
		EndLine:   end.EndLine,
		EndCol:    end.EndCol,
	}
}

func tokenName(t lexer.TokenType) string {
	switch t {
	case lexer.TokIdent, lexer.TokIntLit, lexer.TokEOF:
		return t.String()
	default:
		return "'" + t.String() + "'"
	}
}

func describe(tok lexer.Token) string {
	switch tok.Type {
	case lexer.TokEOF:
		return "end of input"
	case lexer.TokIdent:
		return fmt.Sprintf("identifier '%s'", tok.Value)
	case lexer.TokIntLit:
		return fmt.Sprintf("integer %s", tok.Value)
	default:
		return "'" + tok.Value + "'"
	}
}

// --- Program ---

func (p *parser) parseProgram() *ast.Program {
	startSpan := p.current().Span

	var fns []*ast.Fn
	for p.peek() != lexer.TokEOF {
		fn := p.parseFn()
		if fn == nil {
			return nil
		}
		fns = append(fns, fn)
	}
	if p.failed() {
		return nil
	}

	return &ast.Program{
		Span: p.spanFrom(startSpan),
		Fns:  fns,
	}
}

// fn := 'fn' IDENT '(' (IDENT ':' type (',' IDENT ':' type)*)? ')' '->' type ':=' stmt
func (p *parser) parseFn() *ast.Fn {
	start, ok := p.expect(lexer.TokFn)
	if !ok {
		return nil
	}
	nameTok, ok := p.expect(lexer.TokIdent)
	if !ok {
		return nil
	}
	if _, ok := p.expect(lexer.TokLParen); !ok {
		return nil
	}

	var params []*ast.Object
	var paramTypes []*ast.Type
	for p.peek() != lexer.TokRParen {
		if len(params) > 0 {
			if _, ok := p.expect(lexer.TokComma); !ok {
				return nil
			}
		}
		paramTok, ok := p.expect(lexer.TokIdent)
		if !ok {
			return nil
		}
		if _, ok := p.expect(lexer.TokColon); !ok {
			return nil
		}
		typ := p.parseType()
		if typ == nil {
			return nil
		}
		obj := p.syms.Intern(paramTok.Value)
		if obj.Type == nil {
			obj.Type = typ
		}
		params = append(params, obj)
		paramTypes = append(paramTypes, typ)
	}
	if _, ok := p.expect(lexer.TokRParen); !ok {
		return nil
	}
	if _, ok := p.expect(lexer.TokArrow); !ok {
		return nil
	}
	ret := p.parseType()
	if ret == nil {
		return nil
	}
	if p.peek() == lexer.TokColon {
		tok := p.current()
		p.addError("expected ':=' before function body, got ':'", &tok.Span, "function bodies are introduced with ':=', e.g. fn main(argc: int) -> () := { ... }")
		return nil
	}
	if _, ok := p.expect(lexer.TokAssign); !ok {
		return nil
	}
	body := p.parseStmt()
	if body == nil {
		return nil
	}

	return &ast.Fn{
		Span:   p.spanFromTo(start.Span, body.NodeSpan()),
		Name:   nameTok.Value,
		Params: params,
		Body:   body,
		Type:   ast.FnType(ret, paramTypes...),
	}
}

// type := '(' ')' | '(' type ')' | IDENT
func (p *parser) parseType() *ast.Type {
	switch p.peek() {
	case lexer.TokLParen:
		p.advance()
		if p.peek() == lexer.TokRParen {
			p.advance()
			t, _ := types.FromName("()")
			return t
		}
		inner := p.parseType()
		if inner == nil {
			return nil
		}
		if _, ok := p.expect(lexer.TokRParen); !ok {
			return nil
		}
		return inner
	case lexer.TokIdent:
		tok := p.advance()
		t, ok := types.FromName(tok.Value)
		if !ok {
			p.addDiag(diagnostics.MakeDiag(
				diagnostics.EUnknownType,
				fmt.Sprintf("unknown type '%s'", tok.Value),
				&tok.Span,
				"known types: "+strings.Join(types.Known(), ", "),
			))
			return nil
		}
		return t
	default:
		tok := p.current()
		p.addError(fmt.Sprintf("expected type, got %s", describe(tok)), &tok.Span, "")
		return nil
	}
}

// --- Statements ---

func (p *parser) parseStmt() ast.Stmt {
	switch p.peek() {
	case lexer.TokLBrace:
		return nilStmt(p.parseBlock())
	case lexer.TokLet, lexer.TokUnlet:
		return p.parseLet()
	case lexer.TokDo:
		return nilStmt(p.parseDoYieldUndo())
	case lexer.TokIf:
		return nilStmt(p.parseIf())
	case lexer.TokFrom:
		return nilStmt(p.parseLoop())
	case lexer.TokCall, lexer.TokUncall:
		return p.parseCall()
	case lexer.TokIdent:
		return p.parseIdentStmt()
	case lexer.TokEOF:
		tok := p.current()
		p.addError("expected statement, got end of input", &tok.Span, "")
		return nil
	}
	if p.peek().IsKeyword() {
		tok := p.current()
		p.addError(fmt.Sprintf("unexpected keyword '%s'", tok.Value), &tok.Span, "")
		return nil
	}
	return nilStmt(p.parseExprStmt())
}

// nilStmt keeps a typed nil pointer from becoming a non-nil interface.
func nilStmt[T interface {
	ast.Stmt
	comparable
}](s T) ast.Stmt {
	var zero T
	if s == zero {
		return nil
	}
	return s
}

// parseIdentStmt disambiguates statements starting with an identifier using
// the token after it: swap, compound assignment, or expression statement.
func (p *parser) parseIdentStmt() ast.Stmt {
	switch p.peekAt(1) {
	case lexer.TokSwap:
		return nilStmt(p.parseSwap())
	case lexer.TokPlusEq, lexer.TokMinusEq, lexer.TokStarEq, lexer.TokSlashEq:
		return nilStmt(p.parseOpEq())
	case lexer.TokLParen:
		tok := p.current()
		p.addError(
			fmt.Sprintf("'%s(...)' is not a statement", tok.Value),
			&tok.Span,
			fmt.Sprintf("write 'call %s(...)' to call a function", tok.Value),
		)
		return nil
	case lexer.TokAssign:
		tok := p.current()
		p.addError(
			fmt.Sprintf("cannot assign to '%s' with ':='", tok.Value),
			&tok.Span,
			fmt.Sprintf("bind with 'let %s := ...' or update with '%s += ...'", tok.Value, tok.Value),
		)
		return nil
	}
	return nilStmt(p.parseExprStmt())
}

// block := '{' (stmt (';' stmt)*)? '}' with empty statements allowed.
func (p *parser) parseBlock() *ast.Block {
	start, ok := p.expect(lexer.TokLBrace)
	if !ok {
		return nil
	}
	stmts := p.parseSeq(lexer.TokRBrace)
	if p.failed() {
		return nil
	}
	if _, ok := p.expect(lexer.TokRBrace); !ok {
		return nil
	}
	return &ast.Block{
		Span:  p.spanFrom(start.Span),
		Stmts: stmts,
	}
}

// parseSeq parses ';'-separated statements until end is reached.
func (p *parser) parseSeq(end lexer.TokenType) []ast.Stmt {
	stmts := []ast.Stmt{}
	for {
		for p.peek() == lexer.TokSemi {
			p.advance()
		}
		if p.peek() == end {
			return stmts
		}
		stmt := p.parseStmt()
		if stmt == nil {
			return nil
		}
		stmts = append(stmts, stmt)
		if p.peek() != lexer.TokSemi && p.peek() != end {
			tok := p.current()
			p.addError(fmt.Sprintf("expected ';' or %s after statement, got %s", tokenName(end), describe(tok)), &tok.Span, "")
			return nil
		}
	}
}

func (p *parser) parseStmtList() ast.Stmt {
	start := p.current().Span
	stmts := p.parseSeq(lexer.TokEOF)
	if p.failed() {
		return nil
	}
	if len(stmts) == 1 {
		return stmts[0]
	}
	return &ast.Block{Span: p.spanFrom(start), Stmts: stmts}
}

// let := ('let' | 'unlet') IDENT ':=' expr
func (p *parser) parseLet() ast.Stmt {
	start := p.advance()
	target := p.parseVar()
	if target == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokAssign); !ok {
		return nil
	}
	value := p.parseExpr()
	if value == nil {
		return nil
	}
	span := p.spanFromTo(start.Span, value.NodeSpan())
	if start.Type == lexer.TokUnlet {
		return &ast.Unlet{Span: span, Target: target, Value: value}
	}
	return &ast.Let{Span: span, Target: target, Value: value}
}

// do_yield_undo := 'do' stmt 'yield' stmt 'undo'
func (p *parser) parseDoYieldUndo() *ast.DoYieldUndo {
	start := p.advance()
	doStmt := p.parseStmt()
	if doStmt == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokYield); !ok {
		return nil
	}
	yield := p.parseStmt()
	if yield == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokUndo); !ok {
		return nil
	}
	return &ast.DoYieldUndo{
		Span:  p.spanFrom(start.Span),
		Do:    doStmt,
		Yield: yield,
	}
}

// if := 'if' expr block ('else' (if | block))? ('fi' expr)?
//
// Without 'fi' the exit guard is (cond) = 0, which holds after the else
// branch and fails after the then branch.
func (p *parser) parseIf() *ast.If {
	start := p.advance()
	cond := p.parseExpr()
	if cond == nil {
		return nil
	}
	then := p.parseBlock()
	if then == nil {
		return nil
	}

	var els ast.Stmt = &ast.Block{Span: then.Span, Stmts: []ast.Stmt{}}
	if p.peek() == lexer.TokElse {
		p.advance()
		if p.peek() == lexer.TokIf {
			nested := p.parseIf()
			if nested == nil {
				return nil
			}
			els = nested
		} else {
			b := p.parseBlock()
			if b == nil {
				return nil
			}
			els = b
		}
	}

	n := &ast.If{Cond: cond, Then: then, Else: els}
	if p.peek() == lexer.TokFi {
		p.advance()
		exit := p.parseExpr()
		if exit == nil {
			return nil
		}
		n.Exit = exit
	} else {
		cs := cond.NodeSpan()
		n.Exit = &ast.Cmp{
			Span:  cs,
			Op:    ast.OpEqual,
			Left:  ast.CloneExpr(cond),
			Right: &ast.Num{Span: cs, Value: 0},
		}
		n.ImplicitExit = true
	}
	n.Span = p.spanFrom(start.Span)
	return n
}

// loop := 'from' expr 'do' block 'until' expr
func (p *parser) parseLoop() *ast.Loop {
	start := p.advance()
	entry := p.parseExpr()
	if entry == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokDo); !ok {
		return nil
	}
	body := p.parseBlock()
	if body == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokUntil); !ok {
		return nil
	}
	until := p.parseExpr()
	if until == nil {
		return nil
	}
	return &ast.Loop{
		Span:  p.spanFromTo(start.Span, until.NodeSpan()),
		Entry: entry,
		Body:  body,
		Until: until,
	}
}

// call_stmt := ('call' | 'uncall') IDENT '(' (expr (',' expr)*)? ')'
func (p *parser) parseCall() ast.Stmt {
	start := p.advance()
	callee := p.parseVar()
	if callee == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokLParen); !ok {
		return nil
	}
	args := []ast.Expr{}
	for p.peek() != lexer.TokRParen {
		if len(args) > 0 {
			if _, ok := p.expect(lexer.TokComma); !ok {
				return nil
			}
		}
		arg := p.parseExpr()
		if arg == nil {
			return nil
		}
		args = append(args, arg)
	}
	if _, ok := p.expect(lexer.TokRParen); !ok {
		return nil
	}
	span := p.spanFrom(start.Span)
	if start.Type == lexer.TokUncall {
		return &ast.Uncall{Span: span, Callee: callee, Args: args}
	}
	return &ast.Call{Span: span, Callee: callee, Args: args}
}

// IDENT '<>' IDENT
func (p *parser) parseSwap() *ast.Swap {
	left := p.parseVar()
	if left == nil {
		return nil
	}
	p.advance() // consume '<>'
	right := p.parseVar()
	if right == nil {
		return nil
	}
	return &ast.Swap{
		Span:  p.spanFromTo(left.Span, right.Span),
		Left:  left,
		Right: right,
	}
}

var assignOps = map[lexer.TokenType]ast.AssignOp{
	lexer.TokPlusEq:  ast.OpAddEq,
	lexer.TokMinusEq: ast.OpSubEq,
	lexer.TokStarEq:  ast.OpMulEq,
	lexer.TokSlashEq: ast.OpDivEq,
}

// IDENT compound_op expr
func (p *parser) parseOpEq() *ast.OpEq {
	target := p.parseVar()
	if target == nil {
		return nil
	}
	opTok := p.advance()
	value := p.parseExpr()
	if value == nil {
		return nil
	}
	return &ast.OpEq{
		Span:   p.spanFromTo(target.Span, value.NodeSpan()),
		Op:     assignOps[opTok.Type],
		Target: target,
		Value:  value,
	}
}

func (p *parser) parseExprStmt() *ast.ExprStmt {
	expr := p.parseExpr()
	if expr == nil {
		return nil
	}
	return &ast.ExprStmt{
		Span: expr.NodeSpan(),
		Expr: expr,
	}
}

// --- Expressions ---

var cmpOps = map[lexer.TokenType]ast.CmpOp{
	lexer.TokLt:     ast.OpLt,
	lexer.TokLtEq:   ast.OpLtEq,
	lexer.TokEq:     ast.OpEqual,
	lexer.TokBangEq: ast.OpNeq,
	lexer.TokGtEq:   ast.OpGtEq,
	lexer.TokGt:     ast.OpGt,
}

// expr := prefix (cmp_op prefix)*
//
// Comparisons are the only infix operators and share one precedence level,
// associating to the left.
func (p *parser) parseExpr() ast.Expr {
	left := p.parsePrefix()
	if left == nil {
		return nil
	}
	for {
		if p.rejectArithmetic() {
			return nil
		}
		op, ok := cmpOps[p.peek()]
		if !ok {
			return left
		}
		p.advance()
		right := p.parsePrefix()
		if right == nil {
			return nil
		}
		left = &ast.Cmp{
			Span:  p.spanFromTo(left.NodeSpan(), right.NodeSpan()),
			Op:    op,
			Left:  left,
			Right: right,
		}
	}
}

// rejectArithmetic reports an error when an arithmetic operator follows an
// operand. Arithmetic exists only as compound assignment.
func (p *parser) rejectArithmetic() bool {
	switch p.peek() {
	case lexer.TokPlus, lexer.TokMinus, lexer.TokStar, lexer.TokSlash:
		tok := p.current()
		p.addError(
			fmt.Sprintf("arithmetic operator '%s' is not allowed in expressions", tok.Value),
			&tok.Span,
			fmt.Sprintf("use compound assignment instead, e.g. x %s= e", tok.Value),
		)
		return true
	}
	return false
}

// prefix := IDENT | NUMBER | '(' ')' | '(' expr ')'
func (p *parser) parsePrefix() ast.Expr {
	switch p.peek() {
	case lexer.TokLParen:
		start := p.advance()
		if p.peek() == lexer.TokRParen {
			p.advance()
			return &ast.Unit{Span: p.spanFrom(start.Span)}
		}
		expr := p.parseExpr()
		if expr == nil {
			return nil
		}
		if _, ok := p.expect(lexer.TokRParen); !ok {
			return nil
		}
		return expr

	case lexer.TokIntLit:
		tok := p.advance()
		val, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			p.addError(fmt.Sprintf("invalid integer literal %s", tok.Value), &tok.Span, "")
			return nil
		}
		return &ast.Num{Span: tok.Span, Value: val}

	case lexer.TokIdent:
		v := p.parseVar()
		if v == nil {
			return nil
		}
		if p.peek() == lexer.TokLParen {
			p.addError(
				fmt.Sprintf("function call '%s(...)' cannot be used as a value", v.Name()),
				&v.Span,
				"calls are statements and produce no value; write 'call "+v.Name()+"(...)'",
			)
			return nil
		}
		return v

	default:
		tok := p.current()
		p.addError(fmt.Sprintf("expected expression, got %s", describe(tok)), &tok.Span, "")
		return nil
	}
}

// parseVar consumes an identifier and resolves it to its shared Object.
func (p *parser) parseVar() *ast.Var {
	tok, ok := p.expect(lexer.TokIdent)
	if !ok {
		return nil
	}
	return &ast.Var{Span: tok.Span, Obj: p.syms.Intern(tok.Value)}
}
