// Package semantic implements the scoped symbol table and the typing
// rules of spec.md §4.3: a single top-to-bottom walk of the AST that
// resolves identifiers, computes (and attaches) a TypeInfo to every
// expression node, and reports every violation to an ErrorSink without
// mutating the tree's shape.
package semantic

import (
	"github.com/ccc-lang/ccc/pkg/ast"
	"github.com/ccc-lang/ccc/pkg/ccerr"
	"github.com/ccc-lang/ccc/pkg/lexer"
	"github.com/ccc-lang/ccc/pkg/token"
)

// SymbolKind classifies an entry in the symbol table.
type SymbolKind int

const (
	SymVariable SymbolKind = iota
	SymFunction
	SymParameter
)

// Symbol is one scope-table entry.
type Symbol struct {
	Kind       SymbolKind
	Type       *ast.TypeInfo
	ScopeLevel int
}

// scope is one frame of the symbol-table stack; level 0 is global.
type scope struct {
	symbols map[string]*Symbol
	parent  *scope
	level   int
}

func newScope(parent *scope) *scope {
	level := 0
	if parent != nil {
		level = parent.level + 1
	}
	return &scope{symbols: make(map[string]*Symbol), parent: parent, level: level}
}

// Analyzer walks a Program, maintaining the scope stack and per-function
// return-type context described in spec.md §4.3.
type Analyzer struct {
	errors *ccerr.Sink
	global *scope
	cur    *scope

	currentReturn *ast.TypeInfo
	hasReturn     bool
	loopDepth     int
}

// New returns an Analyzer reporting diagnostics to errors.
func New(errors *ccerr.Sink) *Analyzer {
	g := newScope(nil)
	return &Analyzer{errors: errors, global: g, cur: g}
}

// Analyze type-checks prog, reporting every violation to errors.
func Analyze(prog *ast.Program, errors *ccerr.Sink) {
	New(errors).AnalyzeProgram(prog)
}

// AnalyzeProgram walks every top-level declaration in source order.
func (a *Analyzer) AnalyzeProgram(prog *ast.Program) {
	for _, decl := range prog.Declarations {
		switch decl.Kind {
		case ast.FuncDecl:
			a.analyzeFuncDecl(decl)
		case ast.VarDecl:
			a.analyzeVarDecl(decl)
		}
	}
}

func (a *Analyzer) enterScope() { a.cur = newScope(a.cur) }
func (a *Analyzer) leaveScope() { a.cur = a.cur.parent }

// declare registers name in the current scope. A collision with a name
// already bound in this same scope is an error; shadowing an outer
// scope's binding is permitted (spec.md §4.3).
func (a *Analyzer) declare(tok token.Token, kind SymbolKind, typ *ast.TypeInfo) {
	if _, exists := a.cur.symbols[tok.Lexeme]; exists {
		a.errors.Error(tok, "Redeclaration of '%s' in the same scope", tok.Lexeme)
		return
	}
	a.cur.symbols[tok.Lexeme] = &Symbol{Kind: kind, Type: typ, ScopeLevel: a.cur.level}
}

// lookup resolves name against the innermost enclosing scope that binds
// it (spec.md §8 property 4).
func (a *Analyzer) lookup(name string) (*Symbol, bool) {
	for s := a.cur; s != nil; s = s.parent {
		if sym, ok := s.symbols[name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// resolveType maps a surface TypeNode to its semantic TypeInfo. The
// TypeInfo kind set has no separate short/long/signed/unsigned variants,
// so each collapses to the integer kind it actually behaves as at this
// abstraction level (spec.md §3's TypeInfo sum).
func (a *Analyzer) resolveType(tn *ast.TypeNode) *ast.TypeInfo {
	var base *ast.TypeInfo
	switch tn.NameTok.Kind {
	case token.Void:
		base = ast.Void
	case token.Char:
		base = ast.CharTy
	case token.Float:
		base = ast.FloatTy
	case token.Double:
		base = ast.DoubleTy
	default: // Short, Int, Long, Signed, Unsigned
		base = ast.IntTy
	}
	typ := base.Clone()
	typ.IsConst = tn.IsConst
	typ.IsVolatile = tn.IsVolatile
	for i := 0; i < tn.PointerLevel; i++ {
		typ = ast.NewPointer(typ)
	}
	return typ
}

func (a *Analyzer) analyzeFuncDecl(node *ast.Node) {
	data := node.Data.(ast.FuncDeclData)
	retType := a.resolveType(data.ReturnType)
	paramTypes := make([]*ast.TypeInfo, len(data.Params))
	for i, p := range data.Params {
		paramTypes[i] = a.resolveType(p.Type)
	}
	funcType := ast.NewFunction(retType, paramTypes)
	node.Typ = funcType
	a.declare(data.Name, SymFunction, funcType)

	if data.Body == nil {
		return // prototype
	}

	a.enterScope()
	for i, p := range data.Params {
		if p.HasName {
			a.declare(p.Name, SymParameter, paramTypes[i])
		}
	}

	a.currentReturn = retType
	a.hasReturn = retType.Kind == ast.KVoid
	a.loopDepth = 0

	body := data.Body.Data.(ast.BlockData)
	for _, stmt := range body.Stmts {
		a.analyzeStatement(stmt)
	}

	if retType.Kind != ast.KVoid && !a.hasReturn {
		a.errors.Warn(data.Name, "Function '%s' may not return a value on all paths", data.Name.Lexeme)
	}
	a.currentReturn = nil
	a.leaveScope()
}

func (a *Analyzer) analyzeVarDecl(node *ast.Node) {
	data := node.Data.(ast.VarDeclData)
	declType := a.resolveType(data.Type)
	node.Typ = declType
	if data.Init != nil {
		initType := a.analyzeExpr(data.Init)
		if !a.compatAssign(data.Init, initType, declType) {
			a.errors.Error(data.Name, "Cannot initialize '%s' of type %s with incompatible type %s",
				data.Name.Lexeme, declType, initType)
		}
	}
	a.declare(data.Name, SymVariable, declType)
}

// --- statements ---

func (a *Analyzer) analyzeStatement(node *ast.Node) {
	if node == nil {
		return
	}
	switch node.Kind {
	case ast.ExprStmt:
		a.analyzeExpr(node.Data.(ast.ExprStmtData).Expr)
	case ast.Block:
		a.enterScope()
		for _, s := range node.Data.(ast.BlockData).Stmts {
			a.analyzeStatement(s)
		}
		a.leaveScope()
	case ast.VarDecl:
		a.analyzeVarDecl(node)
	case ast.If:
		a.analyzeIf(node)
	case ast.While:
		a.analyzeWhile(node)
	case ast.DoWhile:
		a.analyzeDoWhile(node)
	case ast.For:
		a.analyzeFor(node)
	case ast.Return:
		a.analyzeReturn(node)
	case ast.Break:
		if a.loopDepth == 0 {
			a.errors.Error(node.Tok, "'break' outside of a loop")
		}
	case ast.Continue:
		if a.loopDepth == 0 {
			a.errors.Error(node.Tok, "'continue' outside of a loop")
		}
	}
}

func (a *Analyzer) requireScalar(tok token.Token, typ *ast.TypeInfo, context string) {
	if !typ.IsScalar() {
		a.errors.Error(tok, "%s must be scalar, got %s", context, typ)
	}
}

func (a *Analyzer) analyzeIf(node *ast.Node) {
	data := node.Data.(ast.IfData)
	cond := a.analyzeExpr(data.Cond)
	a.requireScalar(node.Tok, cond, "Condition")
	a.analyzeStatement(data.Then)
	if data.Else != nil {
		a.analyzeStatement(data.Else)
	}
}

func (a *Analyzer) analyzeWhile(node *ast.Node) {
	data := node.Data.(ast.WhileData)
	cond := a.analyzeExpr(data.Cond)
	a.requireScalar(node.Tok, cond, "Condition")
	a.loopDepth++
	a.analyzeStatement(data.Body)
	a.loopDepth--
}

func (a *Analyzer) analyzeDoWhile(node *ast.Node) {
	data := node.Data.(ast.DoWhileData)
	a.loopDepth++
	a.analyzeStatement(data.Body)
	a.loopDepth--
	cond := a.analyzeExpr(data.Cond)
	a.requireScalar(node.Tok, cond, "Condition")
}

func (a *Analyzer) analyzeFor(node *ast.Node) {
	data := node.Data.(ast.ForData)
	a.enterScope()
	if data.Init != nil {
		a.analyzeStatement(data.Init)
	}
	if data.Cond != nil {
		cond := a.analyzeExpr(data.Cond)
		a.requireScalar(node.Tok, cond, "Condition")
	}
	if data.Incr != nil {
		a.analyzeExpr(data.Incr)
	}
	a.loopDepth++
	a.analyzeStatement(data.Body)
	a.loopDepth--
	a.leaveScope()
}

func (a *Analyzer) analyzeReturn(node *ast.Node) {
	data := node.Data.(ast.ReturnData)
	if a.currentReturn == nil {
		a.errors.Error(node.Tok, "'return' outside of a function")
		if data.Value != nil {
			a.analyzeExpr(data.Value)
		}
		return
	}
	a.hasReturn = true
	if data.Value == nil {
		if a.currentReturn.Kind != ast.KVoid {
			a.errors.Error(node.Tok, "Non-void function must return a value")
		}
		return
	}
	vtype := a.analyzeExpr(data.Value)
	if a.currentReturn.Kind == ast.KVoid {
		a.errors.Error(node.Tok, "Void function should not return a value")
		return
	}
	if !a.compatAssign(data.Value, vtype, a.currentReturn) {
		a.errors.Error(node.Tok, "Return type %s is incompatible with function return type %s", vtype, a.currentReturn)
	}
}

// --- expressions ---

func (a *Analyzer) analyzeExpr(node *ast.Node) *ast.TypeInfo {
	if node == nil {
		return ast.Void
	}
	var typ *ast.TypeInfo
	switch node.Kind {
	case ast.Literal:
		typ = a.typeOfLiteral(node)
	case ast.Variable:
		typ = a.typeOfVariable(node)
	case ast.Unary:
		typ = a.typeOfUnary(node)
	case ast.Postfix:
		typ = a.typeOfPostfix(node)
	case ast.Binary:
		typ = a.typeOfBinary(node)
	case ast.Assign:
		typ = a.typeOfAssign(node)
	case ast.Call:
		typ = a.typeOfCall(node)
	case ast.ArrayAccess:
		typ = a.typeOfArrayAccess(node)
	case ast.MemberAccess:
		typ = a.typeOfMemberAccess(node)
	case ast.Conditional:
		typ = a.typeOfConditional(node)
	default:
		typ = ast.Void
	}
	node.Typ = typ
	return typ
}

func (a *Analyzer) typeOfLiteral(node *ast.Node) *ast.TypeInfo {
	switch node.Tok.Kind {
	case token.IntegerLiteral:
		return ast.IntTy
	case token.FloatLiteral:
		return ast.FloatTy
	case token.CharLiteral:
		return ast.CharTy
	case token.StringLiteral:
		decoded := lexer.UnescapeString(a.errors, node.Tok, node.Tok.Lexeme)
		return ast.NewArray(ast.CharTy, len(decoded)+1)
	default:
		return ast.Void
	}
}

func (a *Analyzer) typeOfVariable(node *ast.Node) *ast.TypeInfo {
	sym, ok := a.lookup(node.Tok.Lexeme)
	if !ok {
		a.errors.Error(node.Tok, "Undefined variable '%s'", node.Tok.Lexeme)
		return ast.Void
	}
	return sym.Type
}

func (a *Analyzer) typeOfUnary(node *ast.Node) *ast.TypeInfo {
	data := node.Data.(ast.UnaryData)
	operand := a.analyzeExpr(data.Operand)
	switch data.Op.Kind {
	case token.Plus, token.Minus:
		if !operand.IsNumeric() {
			a.errors.Error(data.Op, "Unary '%s' requires a numeric operand, got %s", data.Op.Lexeme, operand)
		}
		return operand
	case token.Bang:
		a.requireScalar(data.Op, operand, "Operand of '!'")
		return ast.IntTy
	case token.Tilde:
		if !operand.IsInteger() {
			a.errors.Error(data.Op, "Unary '~' requires an integer operand, got %s", operand)
		}
		return operand
	case token.Star:
		if operand.Kind != ast.KPointer {
			a.errors.Error(data.Op, "Cannot dereference non-pointer type %s", operand)
			return ast.Void
		}
		return operand.Elem
	case token.Amp:
		return ast.NewPointer(operand)
	case token.Inc, token.Dec:
		if !operand.IsNumeric() && operand.Kind != ast.KPointer {
			a.errors.Error(data.Op, "'%s' requires a numeric or pointer operand, got %s", data.Op.Lexeme, operand)
		}
		return operand
	default:
		return ast.Void
	}
}

func (a *Analyzer) typeOfPostfix(node *ast.Node) *ast.TypeInfo {
	data := node.Data.(ast.PostfixData)
	operand := a.analyzeExpr(data.Operand)
	if !operand.IsNumeric() && operand.Kind != ast.KPointer {
		a.errors.Error(data.Op, "'%s' requires a numeric or pointer operand, got %s", data.Op.Lexeme, operand)
	}
	return operand
}

func (a *Analyzer) typeOfBinary(node *ast.Node) *ast.TypeInfo {
	data := node.Data.(ast.BinaryData)
	left := a.analyzeExpr(data.Left)
	right := a.analyzeExpr(data.Right)
	return a.binaryResultType(data.Op, left, right)
}

// binaryResultType implements the operator table of spec.md §4.3, shared
// between plain Binary nodes and the arithmetic half of compound
// assignment.
func (a *Analyzer) binaryResultType(tok token.Token, left, right *ast.TypeInfo) *ast.TypeInfo {
	switch tok.Kind {
	case token.Plus:
		if left.IsNumeric() && right.IsNumeric() {
			return commonNum(left, right)
		}
		if left.Kind == ast.KPointer && right.IsInteger() {
			return left
		}
		if left.IsInteger() && right.Kind == ast.KPointer {
			return right
		}
		a.errors.Error(tok, "Invalid operands to '+': %s and %s", left, right)
		return ast.IntTy
	case token.Minus:
		if left.IsNumeric() && right.IsNumeric() {
			return commonNum(left, right)
		}
		if left.Kind == ast.KPointer && right.IsInteger() {
			return left
		}
		if left.Kind == ast.KPointer && right.Kind == ast.KPointer {
			return ast.IntTy
		}
		a.errors.Error(tok, "Invalid operands to '-': %s and %s", left, right)
		return ast.IntTy
	case token.Star, token.Slash:
		if left.IsNumeric() && right.IsNumeric() {
			return commonNum(left, right)
		}
		a.errors.Error(tok, "Invalid operands to '%s': %s and %s", tok.Lexeme, left, right)
		return ast.IntTy
	case token.Percent:
		if left.IsInteger() && right.IsInteger() {
			return commonNum(left, right)
		}
		a.errors.Error(tok, "'%%' requires integer operands, got %s and %s", left, right)
		return ast.IntTy
	case token.Amp, token.Pipe, token.Caret, token.Shl, token.Shr:
		if left.IsInteger() && right.IsInteger() {
			return commonNum(left, right)
		}
		a.errors.Error(tok, "Invalid operands to '%s': %s and %s", tok.Lexeme, left, right)
		return ast.IntTy
	case token.Less, token.LessEq, token.Greater, token.GreaterEq, token.EqEq, token.NotEq:
		if !compat(left, right) && !compat(right, left) {
			a.errors.Error(tok, "Incomparable types %s and %s", left, right)
		}
		return ast.IntTy
	case token.AmpAmp, token.PipePipe:
		if !left.IsScalar() || !right.IsScalar() {
			a.errors.Error(tok, "Invalid operands to '%s': %s and %s", tok.Lexeme, left, right)
		}
		return ast.IntTy
	default:
		return ast.IntTy
	}
}

func (a *Analyzer) typeOfAssign(node *ast.Node) *ast.TypeInfo {
	data := node.Data.(ast.AssignData)
	ltyp := a.analyzeExpr(data.Lhs)
	rtyp := a.analyzeExpr(data.Rhs)

	effective := rtyp
	if data.Op.Kind != token.Assign {
		effective = a.binaryResultType(token.Token{Kind: compoundBase(data.Op.Kind), Lexeme: data.Op.Lexeme,
			Filename: data.Op.Filename, Line: data.Op.Line, Column: data.Op.Column}, ltyp, rtyp)
	}
	if !a.compatAssign(data.Rhs, effective, ltyp) {
		a.errors.Error(data.Op, "Cannot assign value of type %s to '%s'", effective, ltyp)
	}
	return ltyp
}

// compoundBase maps a compound-assignment token to the arithmetic
// operator it performs before storing the result (spec.md §9: OP= is a
// distinct AST variant, lowered directly rather than desugared).
func compoundBase(k token.Type) token.Type {
	switch k {
	case token.PlusAssign:
		return token.Plus
	case token.MinusAssign:
		return token.Minus
	case token.StarAssign:
		return token.Star
	case token.SlashAssign:
		return token.Slash
	case token.PercentAssign:
		return token.Percent
	case token.AmpAssign:
		return token.Amp
	case token.PipeAssign:
		return token.Pipe
	case token.CaretAssign:
		return token.Caret
	case token.ShlAssign:
		return token.Shl
	case token.ShrAssign:
		return token.Shr
	default:
		return token.Assign
	}
}

func (a *Analyzer) typeOfCall(node *ast.Node) *ast.TypeInfo {
	data := node.Data.(ast.CallData)
	calleeType := a.analyzeExpr(data.Callee)
	if calleeType.Kind != ast.KFunction {
		a.errors.Error(node.Tok, "Called object is not a function (got %s)", calleeType)
		for _, arg := range data.Args {
			a.analyzeExpr(arg)
		}
		return ast.Void
	}
	if len(data.Args) != len(calleeType.Params) {
		a.errors.Error(node.Tok, "Expected %d argument(s), got %d", len(calleeType.Params), len(data.Args))
	}
	for i, arg := range data.Args {
		argType := a.analyzeExpr(arg)
		if i < len(calleeType.Params) && !a.compatAssign(arg, argType, calleeType.Params[i]) {
			a.errors.Error(arg.Tok, "Argument %d has type %s, incompatible with parameter type %s",
				i+1, argType, calleeType.Params[i])
		}
	}
	return calleeType.Return
}

func (a *Analyzer) typeOfArrayAccess(node *ast.Node) *ast.TypeInfo {
	data := node.Data.(ast.ArrayAccessData)
	base := a.analyzeExpr(data.Array)
	idx := a.analyzeExpr(data.Index)
	if base.Kind != ast.KArray && base.Kind != ast.KPointer {
		a.errors.Error(node.Tok, "Subscripted value is not an array or pointer (got %s)", base)
		return ast.Void
	}
	if !idx.IsInteger() {
		a.errors.Error(node.Tok, "Array index must be an integer, got %s", idx)
	}
	return base.Elem
}

// typeOfMemberAccess only validates the operator; field tables are not
// modeled since struct bodies are out of scope (spec.md §9).
func (a *Analyzer) typeOfMemberAccess(node *ast.Node) *ast.TypeInfo {
	data := node.Data.(ast.MemberAccessData)
	obj := a.analyzeExpr(data.Object)
	if data.Op.Kind == token.Dot {
		if obj.Kind != ast.KStruct {
			a.errors.Error(data.Op, "'.' requires a struct operand, got %s", obj)
		}
	} else {
		if !(obj.Kind == ast.KPointer && obj.Elem != nil && obj.Elem.Kind == ast.KStruct) {
			a.errors.Error(data.Op, "'->' requires a pointer-to-struct operand, got %s", obj)
		}
	}
	return ast.IntTy
}

func (a *Analyzer) typeOfConditional(node *ast.Node) *ast.TypeInfo {
	data := node.Data.(ast.ConditionalData)
	cond := a.analyzeExpr(data.Cond)
	a.requireScalar(node.Tok, cond, "Condition")
	thenT := a.analyzeExpr(data.Then)
	elseT := a.analyzeExpr(data.Else)
	if compat(elseT, thenT) {
		return thenT
	}
	if compat(thenT, elseT) {
		return elseT
	}
	a.errors.Error(node.Tok, "Incompatible types in conditional expression: %s and %s", thenT, elseT)
	return thenT
}

// --- shared type algebra (spec.md §4.3) ---

// commonNum implements common_num: double beats float beats the wider
// integer type, ties favoring the left operand.
func commonNum(l, r *ast.TypeInfo) *ast.TypeInfo {
	if l.Kind == ast.KDouble || r.Kind == ast.KDouble {
		return ast.DoubleTy
	}
	if l.Kind == ast.KFloat || r.Kind == ast.KFloat {
		return ast.FloatTy
	}
	if l.Size() >= r.Size() {
		return l
	}
	return r
}

// compat implements the directional assignment-compatibility predicate.
func compat(src, tgt *ast.TypeInfo) bool {
	if src == nil || tgt == nil {
		return false
	}
	if src.Kind == tgt.Kind {
		switch src.Kind {
		case ast.KPointer:
			return compat(src.Elem, tgt.Elem)
		case ast.KArray:
			return compat(src.Elem, tgt.Elem)
		case ast.KFunction:
			return src.Equal(tgt)
		case ast.KStruct:
			return src.StructTag == tgt.StructTag
		default:
			return true
		}
	}
	switch {
	case src.Kind == ast.KChar && tgt.Kind == ast.KInt:
		return true
	case src.Kind == ast.KFloat && tgt.Kind == ast.KDouble:
		return true
	case src.IsInteger() && (tgt.Kind == ast.KFloat || tgt.Kind == ast.KDouble):
		return true
	case src.Kind == ast.KArray && tgt.Kind == ast.KPointer && compat(src.Elem, tgt.Elem):
		return true
	default:
		return false
	}
}

// compatAssign is compat plus the null-pointer-constant carve-out: a
// literal integer 0 assigned to any pointer type type-checks (spec.md
// §9's Open Question, resolved in DESIGN.md).
func (a *Analyzer) compatAssign(srcNode *ast.Node, src, tgt *ast.TypeInfo) bool {
	if compat(src, tgt) {
		return true
	}
	return tgt.Kind == ast.KPointer && isNullPointerConstant(srcNode)
}

func isNullPointerConstant(node *ast.Node) bool {
	if node == nil || node.Kind != ast.Literal || node.Tok.Kind != token.IntegerLiteral {
		return false
	}
	v, err := lexer.ParseInt(node.Tok.Lexeme)
	return err == nil && v == 0
}
