// Package ast defines the Rev language AST node types.
package ast

// Span represents a source location range.
type Span struct {
	File      string `json:"file"`
	StartLine int    `json:"startLine"`
	StartCol  int    `json:"startCol"`
	EndLine   int    `json:"endLine"`
	EndCol    int    `json:"endCol"`
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Kind() string
	NodeSpan() Span
}

// CmpOp represents a comparison operator.
type CmpOp string

const (
	OpLt    CmpOp = "<"
	OpLtEq  CmpOp = "<="
	OpEqual CmpOp = "="
	OpNeq   CmpOp = "!="
	OpGtEq  CmpOp = ">="
	OpGt    CmpOp = ">"
)

// AssignOp represents a compound assignment operator.
type AssignOp string

const (
	OpAddEq AssignOp = "+="
	OpSubEq AssignOp = "-="
	OpMulEq AssignOp = "*="
	OpDivEq AssignOp = "/="
)

// Inverse returns the operator that undoes op.
func (op AssignOp) Inverse() AssignOp {
	switch op {
	case OpAddEq:
		return OpSubEq
	case OpSubEq:
		return OpAddEq
	case OpMulEq:
		return OpDivEq
	case OpDivEq:
		return OpMulEq
	}
	return op
}

// --- Expr is the interface for all expression nodes ---

type Expr interface {
	Node
	exprNode() // sealed marker
}

// --- Stmt is the interface for all statement nodes ---

type Stmt interface {
	Node
	stmtNode() // sealed marker
}

// Typed holds the type attached by the annotator. It is nil until annotation runs.
type Typed struct {
	T *Type
}

func (t *Typed) InferredType() *Type { return t.T }
func (t *Typed) SetType(typ *Type)   { t.T = typ }

// Annotatable is implemented by the node kinds the annotator may tag.
type Annotatable interface {
	Node
	InferredType() *Type
	SetType(*Type)
}

// --- Expressions ---

type Unit struct {
	Span Span
}

func (n *Unit) Kind() string   { return "Unit" }
func (n *Unit) NodeSpan() Span { return n.Span }
func (n *Unit) exprNode()      {}

type Num struct {
	Typed
	Span  Span
	Value int64
}

func (n *Num) Kind() string   { return "Num" }
func (n *Num) NodeSpan() Span { return n.Span }
func (n *Num) exprNode()      {}

// Var references a variable. Obj is shared by every reference to the same name
// within one parse session.
type Var struct {
	Typed
	Span Span
	Obj  *Object
}

func (n *Var) Kind() string   { return "Var" }
func (n *Var) NodeSpan() Span { return n.Span }
func (n *Var) exprNode()      {}

// Name returns the referenced identifier.
func (n *Var) Name() string { return n.Obj.Name }

type Cmp struct {
	Typed
	Span  Span
	Op    CmpOp
	Left  Expr
	Right Expr
}

func (n *Cmp) Kind() string   { return "Cmp" }
func (n *Cmp) NodeSpan() Span { return n.Span }
func (n *Cmp) exprNode()      {}

// --- Binding statements ---

type Let struct {
	Typed
	Span   Span
	Target *Var
	Value  Expr
}

func (n *Let) Kind() string   { return "Let" }
func (n *Let) NodeSpan() Span { return n.Span }
func (n *Let) stmtNode()      {}

type Unlet struct {
	Span   Span
	Target *Var
	Value  Expr
}

func (n *Unlet) Kind() string   { return "Unlet" }
func (n *Unlet) NodeSpan() Span { return n.Span }
func (n *Unlet) stmtNode()      {}

// OpEq is a compound assignment such as x += e. It is the only construct that
// performs arithmetic.
type OpEq struct {
	Span   Span
	Op     AssignOp
	Target *Var
	Value  Expr
}

func (n *OpEq) Kind() string   { return "OpEq" }
func (n *OpEq) NodeSpan() Span { return n.Span }
func (n *OpEq) stmtNode()      {}

type Swap struct {
	Span  Span
	Left  *Var
	Right *Var
}

func (n *Swap) Kind() string   { return "Swap" }
func (n *Swap) NodeSpan() Span { return n.Span }
func (n *Swap) stmtNode()      {}

// --- Control Flow ---

// If is a reversible conditional. Exit is the exit guard consulted when the
// statement is inverted; ImplicitExit marks a guard synthesized by the parser.
type If struct {
	Span         Span
	Cond         Expr
	Then         Stmt
	Else         Stmt
	Exit         Expr
	ImplicitExit bool
}

func (n *If) Kind() string   { return "If" }
func (n *If) NodeSpan() Span { return n.Span }
func (n *If) stmtNode()      {}

// Loop is `from Entry do Body until Until`.
type Loop struct {
	Span  Span
	Entry Expr
	Body  Stmt
	Until Expr
}

func (n *Loop) Kind() string   { return "Loop" }
func (n *Loop) NodeSpan() Span { return n.Span }
func (n *Loop) stmtNode()      {}

type DoYieldUndo struct {
	Span  Span
	Do    Stmt
	Yield Stmt
}

func (n *DoYieldUndo) Kind() string   { return "DoYieldUndo" }
func (n *DoYieldUndo) NodeSpan() Span { return n.Span }
func (n *DoYieldUndo) stmtNode()      {}

type Block struct {
	Span  Span
	Stmts []Stmt
}

func (n *Block) Kind() string   { return "Block" }
func (n *Block) NodeSpan() Span { return n.Span }
func (n *Block) stmtNode()      {}

// --- Calls ---

type Call struct {
	Span   Span
	Callee *Var
	Args   []Expr
}

func (n *Call) Kind() string   { return "Call" }
func (n *Call) NodeSpan() Span { return n.Span }
func (n *Call) stmtNode()      {}

type Uncall struct {
	Span   Span
	Callee *Var
	Args   []Expr
}

func (n *Uncall) Kind() string   { return "Uncall" }
func (n *Uncall) NodeSpan() Span { return n.Span }
func (n *Uncall) stmtNode()      {}

// ExprStmt evaluates an expression and discards its value.
type ExprStmt struct {
	Span Span
	Expr Expr
}

func (n *ExprStmt) Kind() string   { return "Stmt" }
func (n *ExprStmt) NodeSpan() Span { return n.Span }
func (n *ExprStmt) stmtNode()      {}

// --- Declarations ---

// Fn is a function definition. Type is a function type whose first argument
// is the return type.
type Fn struct {
	Span     Span
	Name     string
	Exported bool
	Imported bool
	Params   []*Object
	Body     Stmt
	Type     *Type
}

func (n *Fn) Kind() string   { return "Fn" }
func (n *Fn) NodeSpan() Span { return n.Span }

// ParamTypes returns the declared parameter types.
func (n *Fn) ParamTypes() []*Type {
	if n.Type == nil {
		return nil
	}
	return n.Type.Params()
}

// ReturnType returns the declared return type.
func (n *Fn) ReturnType() *Type {
	if n.Type == nil {
		return nil
	}
	return n.Type.Ret()
}

// --- Program ---

type Program struct {
	Span Span
	Fns  []*Fn
}

func (n *Program) Kind() string   { return "Program" }
func (n *Program) NodeSpan() Span { return n.Span }

// Lookup returns the function named name, if any.
func (n *Program) Lookup(name string) *Fn {
	for _, fn := range n.Fns {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}
