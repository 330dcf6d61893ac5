// Package codegen lowers a validated AST to the IR object model
// (spec.md §4.4). It maintains the virtual-variable numbering scheme,
// the scope stack used to retire bindings, the label counter, and the
// loop stack break/continue targets.
package codegen

import (
	"fmt"

	"github.com/ccc-lang/ccc/pkg/ast"
	"github.com/ccc-lang/ccc/pkg/ccerr"
	"github.com/ccc-lang/ccc/pkg/ir"
	"github.com/ccc-lang/ccc/pkg/token"
)

type varBinding struct {
	varID uint16
	typ   ir.Type
}

type loopFrame struct {
	breakLabel    string
	continueLabel string
}

// Context carries the code generator's mutable state across the whole
// AST walk (spec.md §4.4).
type Context struct {
	obj    *ir.Object
	errors *ccerr.Sink

	nextVarID  uint16
	variables  map[string]varBinding
	scopeStack [][]string // per-scope list of bound names, for removal on exit

	labelCounter int
	loopStack    []loopFrame

	textIdx, dataIdx, bssIdx uint16
	currentFunction          string
}

// NewContext builds the three canonical sections and the opening PROC
// instruction (spec.md §4.4's Initialization step).
func NewContext(errors *ccerr.Sink) *Context {
	obj := ir.NewObject()
	c := &Context{obj: obj, errors: errors, nextVarID: 1, variables: make(map[string]varBinding)}

	textSym := obj.AddSymbol(".text", 0, 0, 0, ir.CPUTag)
	c.textIdx = obj.AddSection(textSym, ir.SecExecutable|ir.SecReadable, 0, 0, 0, 16, ir.CPUTag)

	dataSym := obj.AddSymbol(".data", 0, 0, 0, ir.CPUTag)
	c.dataIdx = obj.AddSection(dataSym, ir.SecReadable|ir.SecWritable|ir.SecInitialized, 0, 0, 0, 16, ir.CPUTag)

	bssSym := obj.AddSymbol(".bss", 0, 0, 0, ir.CPUTag)
	c.bssIdx = obj.AddSection(bssSym, ir.SecReadable|ir.SecWritable, 0, 0, 0, 16, ir.CPUTag)

	c.emit(ir.OpProc, ir.CPUTag)
	return c
}

func (c *Context) emit(op ir.Opcode, tag byte, operands ...ir.Operand) {
	c.obj.AppendInstruction(c.textIdx, op, tag, operands...)
}

func (c *Context) newVarID() uint16 {
	id := c.nextVarID
	c.nextVarID++
	return id
}

func (c *Context) newLabel(prefix string) string {
	c.labelCounter++
	return fmt.Sprintf("%s_%d", prefix, c.labelCounter)
}

func (c *Context) enterScope() { c.scopeStack = append(c.scopeStack, nil) }

func (c *Context) leaveScope() {
	top := c.scopeStack[len(c.scopeStack)-1]
	c.scopeStack = c.scopeStack[:len(c.scopeStack)-1]
	for _, name := range top {
		delete(c.variables, name)
	}
}

func (c *Context) declareLocal(name string, varID uint16, typ ir.Type) {
	c.variables[name] = varBinding{varID: varID, typ: typ}
	if n := len(c.scopeStack); n > 0 {
		c.scopeStack[n-1] = append(c.scopeStack[n-1], name)
	}
}

// Generate lowers prog to a freshly built IR object.
func Generate(prog *ast.Program, errors *ccerr.Sink) *ir.Object {
	c := NewContext(errors)

	// Function symbols are registered before any body is lowered so
	// forward and recursive calls resolve regardless of declaration
	// order (spec.md §3: "Functions are always registered at level 0").
	for _, decl := range prog.Declarations {
		if decl.Kind == ast.FuncDecl {
			data := decl.Data.(ast.FuncDeclData)
			if c.obj.FindSymbol(data.Name.Lexeme) == ir.NoSymbol {
				c.obj.AddSymbol(data.Name.Lexeme, ir.AttrGlobal|ir.AttrFunction, 0, c.textIdx, ir.CPUTag)
			}
		}
	}

	for _, decl := range prog.Declarations {
		switch decl.Kind {
		case ast.FuncDecl:
			c.genFuncDecl(decl)
		case ast.VarDecl:
			c.genGlobalVarDecl(decl)
		}
	}
	return c.obj
}

func (c *Context) mapSurfaceType(tok token.Token, t *ast.TypeInfo) ir.Type {
	if t == nil {
		return ir.TypeInt32
	}
	if t.Kind == ast.KPointer {
		return ir.TypePtr
	}
	switch t.Kind {
	case ast.KVoid:
		return ir.TypeVoid
	case ast.KChar:
		return ir.TypeInt8
	case ast.KInt:
		return ir.TypeInt32
	case ast.KFloat:
		return ir.TypeFP32
	case ast.KDouble:
		return ir.TypeFP64
	default:
		c.errors.Warn(tok, "Unknown type %s, defaulting to INT32", t)
		return ir.TypeInt32
	}
}

func (c *Context) genFuncDecl(node *ast.Node) {
	data := node.Data.(ast.FuncDeclData)
	if data.Body == nil {
		return // prototype: symbol already registered, nothing to lower
	}

	symIdx := c.obj.FindSymbol(data.Name.Lexeme)
	c.emit(ir.OpSym, ir.CPUTag, ir.SymRef(symIdx))
	c.currentFunction = data.Name.Lexeme

	c.enterScope()
	for i, p := range data.Params {
		if !p.HasName {
			continue
		}
		typ := c.mapSurfaceType(p.Name, paramType(node, i))
		varID := c.newVarID()
		c.emit(ir.OpVar, ir.CPUTag, ir.Var(varID, typ))
		c.emit(ir.OpMov, ir.CPUTag, ir.Var(varID, typ), ir.ParamABI(i))
		c.declareLocal(p.Name.Lexeme, varID, typ)
	}

	for _, stmt := range data.Body.Data.(ast.BlockData).Stmts {
		c.genStmt(stmt)
	}

	if data.Name.Lexeme == "main" {
		c.emit(ir.OpRet, ir.CPUTag, ir.RetABI(), ir.ImmInt(ir.TypeInt32, 0))
	} else {
		c.emit(ir.OpRet, ir.CPUTag, ir.RetABI())
	}
	c.leaveScope()
	c.currentFunction = ""
}

// paramType reads the semantic type the analyzer already attached to the
// function's Function-kinded TypeInfo, rather than re-resolving the
// surface TypeNode a second time.
func paramType(funcDecl *ast.Node, i int) *ast.TypeInfo {
	if funcDecl.Typ == nil || i >= len(funcDecl.Typ.Params) {
		return ast.IntTy
	}
	return funcDecl.Typ.Params[i]
}

func (c *Context) genGlobalVarDecl(node *ast.Node) {
	data := node.Data.(ast.VarDeclData)
	name := data.Name.Lexeme
	if data.Init != nil {
		c.obj.AddSymbol(name, ir.AttrGlobal|ir.AttrData, 0, c.dataIdx, ir.CPUTag)
	} else {
		c.obj.AddSymbol(name, ir.AttrGlobal|ir.AttrData, 0, c.bssIdx, ir.CPUTag)
	}
}

// --- statements ---

func (c *Context) genStmt(node *ast.Node) {
	if node == nil {
		return
	}
	switch node.Kind {
	case ast.ExprStmt:
		c.genExpr(node.Data.(ast.ExprStmtData).Expr)
	case ast.Block:
		c.genBlock(node)
	case ast.VarDecl:
		c.genLocalVarDecl(node)
	case ast.If:
		c.genIf(node)
	case ast.While:
		c.genWhile(node)
	case ast.DoWhile:
		c.genDoWhile(node)
	case ast.For:
		c.genFor(node)
	case ast.Return:
		c.genReturn(node)
	case ast.Break:
		c.genBreak(node)
	case ast.Continue:
		c.genContinue(node)
	}
}

func (c *Context) genBlock(node *ast.Node) {
	c.emit(ir.OpScopeEnter, ir.CPUTag)
	c.enterScope()
	for _, stmt := range node.Data.(ast.BlockData).Stmts {
		c.genStmt(stmt)
	}
	c.leaveScope()
	c.emit(ir.OpScopeLeave, ir.CPUTag)
}

func (c *Context) genLocalVarDecl(node *ast.Node) {
	data := node.Data.(ast.VarDeclData)
	typ := c.mapSurfaceType(data.Name, node.Typ)
	varID := c.newVarID()

	operands := []ir.Operand{ir.Var(varID, typ)}
	if data.Init != nil {
		operands = append(operands, c.genExpr(data.Init))
	}
	c.emit(ir.OpVar, ir.CPUTag, operands...)
	c.declareLocal(data.Name.Lexeme, varID, typ)
}

func (c *Context) genIf(node *ast.Node) {
	data := node.Data.(ast.IfData)
	cond := c.genExpr(data.Cond)
	elseL := c.newLabel("if_else")
	endL := c.newLabel("if_end")

	c.emit(ir.OpCmp, ir.CPUTag, cond, ir.ImmInt(cond.Type, 0))
	c.emit(ir.OpBr, ir.CPUTag, ir.LabelRef(elseL))
	c.genStmt(data.Then)
	c.emit(ir.OpBr, ir.CPUTag, ir.LabelRef(endL))
	c.emit(ir.OpLabel, ir.CPUTag, ir.LabelRef(elseL))
	if data.Else != nil {
		c.genStmt(data.Else)
	}
	c.emit(ir.OpLabel, ir.CPUTag, ir.LabelRef(endL))
}

func (c *Context) genWhile(node *ast.Node) {
	data := node.Data.(ast.WhileData)
	startL := c.newLabel("while_start")
	endL := c.newLabel("while_end")

	c.emit(ir.OpLabel, ir.CPUTag, ir.LabelRef(startL))
	cond := c.genExpr(data.Cond)
	c.emit(ir.OpCmp, ir.CPUTag, cond, ir.ImmInt(cond.Type, 0))
	c.emit(ir.OpBr, ir.CPUTag, ir.LabelRef(endL))

	c.loopStack = append(c.loopStack, loopFrame{breakLabel: endL, continueLabel: startL})
	c.genStmt(data.Body)
	c.loopStack = c.loopStack[:len(c.loopStack)-1]

	c.emit(ir.OpBr, ir.CPUTag, ir.LabelRef(startL))
	c.emit(ir.OpLabel, ir.CPUTag, ir.LabelRef(endL))
}

func (c *Context) genDoWhile(node *ast.Node) {
	data := node.Data.(ast.DoWhileData)
	startL := c.newLabel("do_start")
	condL := c.newLabel("do_cond")
	endL := c.newLabel("do_end")

	c.emit(ir.OpLabel, ir.CPUTag, ir.LabelRef(startL))
	c.loopStack = append(c.loopStack, loopFrame{breakLabel: endL, continueLabel: condL})
	c.genStmt(data.Body)
	c.loopStack = c.loopStack[:len(c.loopStack)-1]

	c.emit(ir.OpLabel, ir.CPUTag, ir.LabelRef(condL))
	cond := c.genExpr(data.Cond)
	c.emit(ir.OpCmp, ir.CPUTag, cond, ir.ImmInt(cond.Type, 0))
	c.emit(ir.OpBr, ir.CPUTag, ir.LabelRef(endL))
	c.emit(ir.OpBr, ir.CPUTag, ir.LabelRef(startL))
	c.emit(ir.OpLabel, ir.CPUTag, ir.LabelRef(endL))
}

func (c *Context) genFor(node *ast.Node) {
	data := node.Data.(ast.ForData)
	c.emit(ir.OpScopeEnter, ir.CPUTag)
	c.enterScope()
	if data.Init != nil {
		c.genStmt(data.Init)
	}

	startL := c.newLabel("for_start")
	incrL := c.newLabel("for_incr")
	endL := c.newLabel("for_end")

	c.emit(ir.OpLabel, ir.CPUTag, ir.LabelRef(startL))
	if data.Cond != nil {
		cond := c.genExpr(data.Cond)
		c.emit(ir.OpCmp, ir.CPUTag, cond, ir.ImmInt(cond.Type, 0))
		c.emit(ir.OpBr, ir.CPUTag, ir.LabelRef(endL))
	}

	c.loopStack = append(c.loopStack, loopFrame{breakLabel: endL, continueLabel: incrL})
	c.genStmt(data.Body)
	c.loopStack = c.loopStack[:len(c.loopStack)-1]

	c.emit(ir.OpLabel, ir.CPUTag, ir.LabelRef(incrL))
	if data.Incr != nil {
		c.genExpr(data.Incr)
	}
	c.emit(ir.OpBr, ir.CPUTag, ir.LabelRef(startL))
	c.emit(ir.OpLabel, ir.CPUTag, ir.LabelRef(endL))

	c.leaveScope()
	c.emit(ir.OpScopeLeave, ir.CPUTag)
}

func (c *Context) genReturn(node *ast.Node) {
	data := node.Data.(ast.ReturnData)
	if data.Value != nil {
		v := c.genExpr(data.Value)
		c.emit(ir.OpRet, ir.CPUTag, ir.RetABI(), v)
		return
	}
	c.emit(ir.OpRet, ir.CPUTag, ir.RetABI())
}

func (c *Context) genBreak(node *ast.Node) {
	if len(c.loopStack) == 0 {
		c.errors.Error(node.Tok, "'break' outside of a loop")
		return
	}
	top := c.loopStack[len(c.loopStack)-1]
	c.emit(ir.OpBr, ir.CPUTag, ir.LabelRef(top.breakLabel))
}

func (c *Context) genContinue(node *ast.Node) {
	if len(c.loopStack) == 0 {
		c.errors.Error(node.Tok, "'continue' outside of a loop")
		return
	}
	top := c.loopStack[len(c.loopStack)-1]
	c.emit(ir.OpBr, ir.CPUTag, ir.LabelRef(top.continueLabel))
}
