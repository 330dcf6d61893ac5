// Package ast defines the typed, language-neutral tree the parser
// produces (spec.md §3). Each node uniquely owns its children: the tree
// is strictly tree-structured, with no parent pointers and no cycles, so
// destroying the root releases it (spec.md §5).
//
// A single Node carries a discriminator (Kind) and an opaque per-kind
// Data payload, in place of a class hierarchy with a virtual node-type
// getter: exhaustive switches over Kind replace string-based type checks
// (spec.md §9).
package ast

import "github.com/ccc-lang/ccc/pkg/token"

// Kind discriminates the two AST sum categories (Expression, Statement)
// plus the standalone FuncDecl node (spec.md §3). TypeNode, Parameter and
// Program are separate struct types, not Node kinds.
type Kind int

const (
	// Expressions
	Literal Kind = iota
	Variable
	Unary
	Postfix // postfix ++/--; kept distinct from Unary per spec.md §9
	Binary
	Assign // covers `=` and every compound `OP=`, lowered directly (spec.md §9)
	Call
	ArrayAccess
	MemberAccess
	Conditional

	// Statements
	ExprStmt
	Block
	VarDecl
	If
	While
	DoWhile
	For
	Return
	Break
	Continue

	// Standalone
	FuncDecl
)

// Node is a single AST node. Typ is populated by the semantic analyzer
// once a node's type has been computed; it is nil before that pass runs
// and for statement nodes, which carry no type.
type Node struct {
	Kind Kind
	Tok  token.Token
	Data interface{}
	Typ  *TypeInfo
}

// --- Per-kind data payloads ---

type UnaryData struct {
	Op      token.Token
	Operand *Node
}

type PostfixData struct {
	Op      token.Token
	Operand *Node
}

type BinaryData struct {
	Left  *Node
	Op    token.Token
	Right *Node
}

type AssignData struct {
	Op  token.Token
	Lhs *Node
	Rhs *Node
}

type CallData struct {
	Callee *Node
	Args   []*Node
}

type ArrayAccessData struct {
	Array *Node
	Index *Node
}

type MemberAccessData struct {
	Object *Node
	Op     token.Token // Dot or Arrow
	Member token.Token
}

type ConditionalData struct {
	Cond *Node
	Then *Node
	Else *Node
}

type ExprStmtData struct{ Expr *Node }

type BlockData struct{ Stmts []*Node }

type VarDeclData struct {
	Type *TypeNode
	Name token.Token
	Init *Node // nil if uninitialized
}

type IfData struct {
	Cond *Node
	Then *Node
	Else *Node // nil if no else branch
}

type WhileData struct {
	Cond *Node
	Body *Node
}

type DoWhileData struct {
	Body *Node
	Cond *Node
}

type ForData struct {
	Init *Node // VarDecl, ExprStmt, or nil
	Cond *Node // nil means "always true"
	Incr *Node // nil if absent
	Body *Node
}

type ReturnData struct{ Value *Node } // nil for bare `return;`

type FuncDeclData struct {
	ReturnType *TypeNode
	Name       token.Token
	Params     []*Parameter
	Body       *Node // nil for a prototype declaration
}

// Parameter is one entry of a function's parameter list. Name may be
// absent (HasName == false) to support prototypes (spec.md §4.2).
type Parameter struct {
	Type    *TypeNode
	Name    token.Token
	HasName bool
}

// TypeNode is the surface (syntactic) type a declaration or cast spells
// out in source: qualifiers, a base type keyword, and a pointer level
// equal to the number of `*` tokens consumed (spec.md §3).
type TypeNode struct {
	NameTok      token.Token
	IsConst      bool
	IsVolatile   bool
	PointerLevel int
}

func (t *TypeNode) IsPointer() bool { return t.PointerLevel > 0 }

// Program is the AST root: zero or more top-level declarations, each a
// FuncDecl or VarDecl node (spec.md §3).
type Program struct {
	Declarations []*Node
}

// --- Constructors ---

func NewLiteral(tok token.Token) *Node  { return &Node{Kind: Literal, Tok: tok} }
func NewVariable(tok token.Token) *Node { return &Node{Kind: Variable, Tok: tok} }

func NewUnary(tok token.Token, op token.Token, operand *Node) *Node {
	return &Node{Kind: Unary, Tok: tok, Data: UnaryData{Op: op, Operand: operand}}
}

func NewPostfix(tok token.Token, op token.Token, operand *Node) *Node {
	return &Node{Kind: Postfix, Tok: tok, Data: PostfixData{Op: op, Operand: operand}}
}

func NewBinary(tok token.Token, left *Node, op token.Token, right *Node) *Node {
	return &Node{Kind: Binary, Tok: tok, Data: BinaryData{Left: left, Op: op, Right: right}}
}

func NewAssign(tok token.Token, op token.Token, lhs, rhs *Node) *Node {
	return &Node{Kind: Assign, Tok: tok, Data: AssignData{Op: op, Lhs: lhs, Rhs: rhs}}
}

func NewCall(tok token.Token, callee *Node, args []*Node) *Node {
	return &Node{Kind: Call, Tok: tok, Data: CallData{Callee: callee, Args: args}}
}

func NewArrayAccess(tok token.Token, array, index *Node) *Node {
	return &Node{Kind: ArrayAccess, Tok: tok, Data: ArrayAccessData{Array: array, Index: index}}
}

func NewMemberAccess(tok token.Token, object *Node, op token.Token, member token.Token) *Node {
	return &Node{Kind: MemberAccess, Tok: tok, Data: MemberAccessData{Object: object, Op: op, Member: member}}
}

func NewConditional(tok token.Token, cond, then, els *Node) *Node {
	return &Node{Kind: Conditional, Tok: tok, Data: ConditionalData{Cond: cond, Then: then, Else: els}}
}

func NewExprStmt(tok token.Token, expr *Node) *Node {
	return &Node{Kind: ExprStmt, Tok: tok, Data: ExprStmtData{Expr: expr}}
}

func NewBlock(tok token.Token, stmts []*Node) *Node {
	return &Node{Kind: Block, Tok: tok, Data: BlockData{Stmts: stmts}}
}

func NewVarDecl(tok token.Token, typ *TypeNode, name token.Token, init *Node) *Node {
	return &Node{Kind: VarDecl, Tok: tok, Data: VarDeclData{Type: typ, Name: name, Init: init}}
}

func NewIf(tok token.Token, cond, then, els *Node) *Node {
	return &Node{Kind: If, Tok: tok, Data: IfData{Cond: cond, Then: then, Else: els}}
}

func NewWhile(tok token.Token, cond, body *Node) *Node {
	return &Node{Kind: While, Tok: tok, Data: WhileData{Cond: cond, Body: body}}
}

func NewDoWhile(tok token.Token, body, cond *Node) *Node {
	return &Node{Kind: DoWhile, Tok: tok, Data: DoWhileData{Body: body, Cond: cond}}
}

func NewFor(tok token.Token, init, cond, incr, body *Node) *Node {
	return &Node{Kind: For, Tok: tok, Data: ForData{Init: init, Cond: cond, Incr: incr, Body: body}}
}

func NewReturn(tok token.Token, value *Node) *Node {
	return &Node{Kind: Return, Tok: tok, Data: ReturnData{Value: value}}
}

func NewBreak(tok token.Token) *Node { return &Node{Kind: Break, Tok: tok} }

func NewContinue(tok token.Token) *Node { return &Node{Kind: Continue, Tok: tok} }

func NewFuncDecl(tok token.Token, returnType *TypeNode, name token.Token, params []*Parameter, body *Node) *Node {
	return &Node{Kind: FuncDecl, Tok: tok, Data: FuncDeclData{
		ReturnType: returnType, Name: name, Params: params, Body: body,
	}}
}

// IsLValue reports whether node denotes an assignable location — the
// parser uses this to validate the left side of `=`, `OP=`, `&`, and
// prefix/postfix `++`/`--` (spec.md §4.2).
func IsLValue(node *Node) bool {
	if node == nil {
		return false
	}
	switch node.Kind {
	case Variable, ArrayAccess, MemberAccess:
		return true
	case Unary:
		return node.Data.(UnaryData).Op.Kind == token.Star
	default:
		return false
	}
}
