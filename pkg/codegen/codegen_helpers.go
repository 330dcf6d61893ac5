package codegen

import (
	"github.com/ccc-lang/ccc/pkg/ast"
	"github.com/ccc-lang/ccc/pkg/ir"
	"github.com/ccc-lang/ccc/pkg/lexer"
	"github.com/ccc-lang/ccc/pkg/token"
)

// Comparator codes packed into a relational CMP's third operand, so a
// single CMP/BR pair can express any of the six relational operators
// without six separate opcodes.
const (
	CmpEQ int64 = iota
	CmpNE
	CmpLT
	CmpLE
	CmpGT
	CmpGE
)

func comparatorCode(k token.Type) int64 {
	switch k {
	case token.EqEq:
		return CmpEQ
	case token.NotEq:
		return CmpNE
	case token.Less:
		return CmpLT
	case token.LessEq:
		return CmpLE
	case token.Greater:
		return CmpGT
	case token.GreaterEq:
		return CmpGE
	default:
		return CmpEQ
	}
}

func isRelational(k token.Type) bool {
	switch k {
	case token.EqEq, token.NotEq, token.Less, token.LessEq, token.Greater, token.GreaterEq:
		return true
	default:
		return false
	}
}

// genExpr lowers an expression node to a single operand holding its
// value, emitting whatever instructions that requires first.
func (c *Context) genExpr(node *ast.Node) ir.Operand {
	if node == nil {
		return ir.ImmInt(ir.TypeInt32, 0)
	}
	switch node.Kind {
	case ast.Literal:
		return c.genLiteral(node)
	case ast.Variable:
		return c.genVariable(node)
	case ast.Unary:
		return c.genUnary(node)
	case ast.Postfix:
		return c.genPostfix(node)
	case ast.Binary:
		return c.genBinary(node)
	case ast.Assign:
		return c.genAssign(node)
	case ast.Call:
		return c.genCall(node)
	case ast.ArrayAccess:
		return c.genArrayAccess(node)
	case ast.MemberAccess:
		return c.genMemberAccess(node)
	case ast.Conditional:
		return c.genConditional(node)
	default:
		return ir.ImmInt(ir.TypeInt32, 0)
	}
}

func (c *Context) irType(node *ast.Node) ir.Type {
	return c.mapSurfaceType(node.Tok, node.Typ)
}

func (c *Context) genLiteral(node *ast.Node) ir.Operand {
	switch node.Tok.Kind {
	case token.IntegerLiteral:
		v, err := lexer.ParseInt(node.Tok.Lexeme)
		if err != nil {
			c.errors.Error(node.Tok, "Malformed integer literal '%s'", node.Tok.Lexeme)
		}
		return ir.ImmInt(c.irType(node), v)
	case token.FloatLiteral:
		v, err := lexer.ParseFloat(node.Tok.Lexeme)
		if err != nil {
			c.errors.Error(node.Tok, "Malformed floating-point literal '%s'", node.Tok.Lexeme)
		}
		return ir.ImmFloat(c.irType(node), v)
	case token.CharLiteral:
		v := lexer.UnescapeChar(c.errors, node.Tok, node.Tok.Lexeme)
		return ir.ImmInt(ir.TypeInt8, v)
	case token.StringLiteral:
		content := lexer.UnescapeString(c.errors, node.Tok, node.Tok.Lexeme)
		idx := c.obj.InternString(c.dataIdx, content)
		return ir.SymRef(idx)
	default:
		return ir.ImmInt(ir.TypeInt32, 0)
	}
}

func (c *Context) genVariable(node *ast.Node) ir.Operand {
	name := node.Tok.Lexeme
	if b, ok := c.variables[name]; ok {
		return ir.Var(b.varID, b.typ)
	}
	if idx := c.obj.FindSymbol(name); idx != ir.NoSymbol {
		return ir.SymRef(idx)
	}
	c.errors.Error(node.Tok, "Undefined variable '%s' reached code generation", name)
	return ir.ImmInt(ir.TypeInt32, 0)
}

func (c *Context) genUnary(node *ast.Node) ir.Operand {
	data := node.Data.(ast.UnaryData)
	resultTy := c.irType(node)

	switch data.Op.Kind {
	case token.Amp:
		// No dedicated address-of opcode exists in this instruction set;
		// the best representable approximation is a move of the operand
		// variable itself (DESIGN.md records this as an acknowledged gap).
		operand := c.genExpr(data.Operand)
		dst := c.newVarID()
		c.emit(ir.OpVar, ir.CPUTag, ir.Var(dst, ir.TypePtr))
		c.emit(ir.OpMov, ir.CPUTag, ir.Var(dst, ir.TypePtr), operand)
		return ir.Var(dst, ir.TypePtr)

	case token.Star:
		operand := c.genExpr(data.Operand)
		dst := c.newVarID()
		c.emit(ir.OpVar, ir.CPUTag, ir.Var(dst, resultTy))
		c.emit(ir.OpIndex, ir.CPUTag, ir.Var(dst, resultTy), operand, ir.ImmInt(ir.TypeInt32, 0))
		return ir.Var(dst, resultTy)

	case token.Bang:
		operand := c.genExpr(data.Operand)
		// Logical NOT materializes an actual 0/1 result via two labels,
		// rather than always producing 1 (spec.md §9's fix).
		trueL := c.newLabel("not_true")
		endL := c.newLabel("not_end")
		dst := c.newVarID()
		c.emit(ir.OpVar, ir.CPUTag, ir.Var(dst, ir.TypeInt32))
		c.emit(ir.OpCmp, ir.CPUTag, operand, ir.ImmInt(operand.Type, 0))
		c.emit(ir.OpBr, ir.CPUTag, ir.LabelRef(trueL))
		c.emit(ir.OpMov, ir.CPUTag, ir.Var(dst, ir.TypeInt32), ir.ImmInt(ir.TypeInt32, 0))
		c.emit(ir.OpBr, ir.CPUTag, ir.LabelRef(endL))
		c.emit(ir.OpLabel, ir.CPUTag, ir.LabelRef(trueL))
		c.emit(ir.OpMov, ir.CPUTag, ir.Var(dst, ir.TypeInt32), ir.ImmInt(ir.TypeInt32, 1))
		c.emit(ir.OpLabel, ir.CPUTag, ir.LabelRef(endL))
		return ir.Var(dst, ir.TypeInt32)

	case token.Minus:
		operand := c.genExpr(data.Operand)
		dst := c.newVarID()
		c.emit(ir.OpVar, ir.CPUTag, ir.Var(dst, resultTy))
		c.emit(ir.OpNeg, ir.CPUTag, ir.Var(dst, resultTy), operand)
		return ir.Var(dst, resultTy)

	case token.Plus:
		return c.genExpr(data.Operand)

	case token.Tilde:
		operand := c.genExpr(data.Operand)
		dst := c.newVarID()
		c.emit(ir.OpVar, ir.CPUTag, ir.Var(dst, resultTy))
		c.emit(ir.OpNot, ir.CPUTag, ir.Var(dst, resultTy), operand)
		return ir.Var(dst, resultTy)

	case token.Inc, token.Dec:
		lv := c.genLvalueVar(data.Operand)
		op := ir.OpInc
		if data.Op.Kind == token.Dec {
			op = ir.OpDec
		}
		c.emit(op, ir.CPUTag, lv)
		return lv

	default:
		return ir.ImmInt(ir.TypeInt32, 0)
	}
}

func (c *Context) genPostfix(node *ast.Node) ir.Operand {
	data := node.Data.(ast.PostfixData)
	lv := c.genLvalueVar(data.Operand)
	resultTy := lv.Type

	saved := c.newVarID()
	c.emit(ir.OpVar, ir.CPUTag, ir.Var(saved, resultTy))
	c.emit(ir.OpMov, ir.CPUTag, ir.Var(saved, resultTy), lv)

	op := ir.OpInc
	if data.Op.Kind == token.Dec {
		op = ir.OpDec
	}
	c.emit(op, ir.CPUTag, lv)
	return ir.Var(saved, resultTy)
}

// genLvalueVar resolves node to the IR variable operand backing it.
// Only plain variables are supported as mutable targets; dereference,
// array, and member targets are reported as unsupported (DESIGN.md's
// acknowledged codegen gap, mirroring spec.md's own "string literals and
// struct fields are acknowledgement only" precedent).
func (c *Context) genLvalueVar(node *ast.Node) ir.Operand {
	if node.Kind == ast.Variable {
		return c.genVariable(node)
	}
	c.errors.Error(node.Tok, "Code generation does not support this kind of assignment target")
	return ir.ImmInt(ir.TypeInt32, 0)
}

func (c *Context) genBinary(node *ast.Node) ir.Operand {
	data := node.Data.(ast.BinaryData)

	if data.Op.Kind == token.AmpAmp || data.Op.Kind == token.PipePipe {
		return c.genShortCircuit(node)
	}

	left := c.genExpr(data.Left)
	right := c.genExpr(data.Right)
	resultTy := c.irType(node)

	if isRelational(data.Op.Kind) {
		dst := c.newVarID()
		c.emit(ir.OpVar, ir.CPUTag, ir.Var(dst, ir.TypeInt32))
		// CMP(left, right, code) followed by a materialize sequence: the
		// comparator code selects which relation the branch below tests.
		c.emit(ir.OpCmp, ir.CPUTag, left, right, ir.ImmInt(ir.TypeInt32, comparatorCode(data.Op.Kind)))
		trueL := c.newLabel("cmp_true")
		endL := c.newLabel("cmp_end")
		c.emit(ir.OpBr, ir.CPUTag, ir.LabelRef(trueL))
		c.emit(ir.OpMov, ir.CPUTag, ir.Var(dst, ir.TypeInt32), ir.ImmInt(ir.TypeInt32, 0))
		c.emit(ir.OpBr, ir.CPUTag, ir.LabelRef(endL))
		c.emit(ir.OpLabel, ir.CPUTag, ir.LabelRef(trueL))
		c.emit(ir.OpMov, ir.CPUTag, ir.Var(dst, ir.TypeInt32), ir.ImmInt(ir.TypeInt32, 1))
		c.emit(ir.OpLabel, ir.CPUTag, ir.LabelRef(endL))
		return ir.Var(dst, ir.TypeInt32)
	}

	op, ok := arithOpcode(data.Op.Kind)
	if !ok {
		c.errors.Error(data.Op, "Unsupported binary operator '%s'", data.Op.Lexeme)
		return ir.ImmInt(resultTy, 0)
	}
	dst := c.newVarID()
	c.emit(ir.OpVar, ir.CPUTag, ir.Var(dst, resultTy))
	c.emit(op, ir.CPUTag, ir.Var(dst, resultTy), left, right)
	return ir.Var(dst, resultTy)
}

func arithOpcode(k token.Type) (ir.Opcode, bool) {
	switch k {
	case token.Plus:
		return ir.OpAdd, true
	case token.Minus:
		return ir.OpSub, true
	case token.Star:
		return ir.OpMul, true
	case token.Slash:
		return ir.OpDiv, true
	case token.Percent:
		return ir.OpMod, true
	case token.Amp:
		return ir.OpAnd, true
	case token.Pipe:
		return ir.OpOr, true
	case token.Caret:
		return ir.OpXor, true
	case token.Shl:
		return ir.OpShl, true
	case token.Shr:
		return ir.OpShr, true
	default:
		return ir.OpAdd, false
	}
}

// genShortCircuit lowers && and || via the same CMP-x,0/BR-on-zero
// convention used by every other branch in this package, so the whole
// control-flow surface shares one semantic thread.
func (c *Context) genShortCircuit(node *ast.Node) ir.Operand {
	data := node.Data.(ast.BinaryData)
	dst := c.newVarID()
	c.emit(ir.OpVar, ir.CPUTag, ir.Var(dst, ir.TypeInt32))
	endL := c.newLabel("sc_end")

	if data.Op.Kind == token.AmpAmp {
		zeroL := c.newLabel("sc_false")
		left := c.genExpr(data.Left)
		c.emit(ir.OpCmp, ir.CPUTag, left, ir.ImmInt(left.Type, 0))
		c.emit(ir.OpBr, ir.CPUTag, ir.LabelRef(zeroL))
		right := c.genExpr(data.Right)
		c.emit(ir.OpCmp, ir.CPUTag, right, ir.ImmInt(right.Type, 0))
		c.emit(ir.OpBr, ir.CPUTag, ir.LabelRef(zeroL))
		c.emit(ir.OpMov, ir.CPUTag, ir.Var(dst, ir.TypeInt32), ir.ImmInt(ir.TypeInt32, 1))
		c.emit(ir.OpBr, ir.CPUTag, ir.LabelRef(endL))
		c.emit(ir.OpLabel, ir.CPUTag, ir.LabelRef(zeroL))
		c.emit(ir.OpMov, ir.CPUTag, ir.Var(dst, ir.TypeInt32), ir.ImmInt(ir.TypeInt32, 0))
		c.emit(ir.OpLabel, ir.CPUTag, ir.LabelRef(endL))
		return ir.Var(dst, ir.TypeInt32)
	}

	// ||: a nonzero left short-circuits straight to true.
	checkRightL := c.newLabel("sc_check_right")
	falseL := c.newLabel("sc_false")
	left := c.genExpr(data.Left)
	c.emit(ir.OpCmp, ir.CPUTag, left, ir.ImmInt(left.Type, 0))
	c.emit(ir.OpBr, ir.CPUTag, ir.LabelRef(checkRightL))
	c.emit(ir.OpMov, ir.CPUTag, ir.Var(dst, ir.TypeInt32), ir.ImmInt(ir.TypeInt32, 1))
	c.emit(ir.OpBr, ir.CPUTag, ir.LabelRef(endL))
	c.emit(ir.OpLabel, ir.CPUTag, ir.LabelRef(checkRightL))
	right := c.genExpr(data.Right)
	c.emit(ir.OpCmp, ir.CPUTag, right, ir.ImmInt(right.Type, 0))
	c.emit(ir.OpBr, ir.CPUTag, ir.LabelRef(falseL))
	c.emit(ir.OpMov, ir.CPUTag, ir.Var(dst, ir.TypeInt32), ir.ImmInt(ir.TypeInt32, 1))
	c.emit(ir.OpBr, ir.CPUTag, ir.LabelRef(endL))
	c.emit(ir.OpLabel, ir.CPUTag, ir.LabelRef(falseL))
	c.emit(ir.OpMov, ir.CPUTag, ir.Var(dst, ir.TypeInt32), ir.ImmInt(ir.TypeInt32, 0))
	c.emit(ir.OpLabel, ir.CPUTag, ir.LabelRef(endL))
	return ir.Var(dst, ir.TypeInt32)
}

func (c *Context) genAssign(node *ast.Node) ir.Operand {
	data := node.Data.(ast.AssignData)
	lv := c.genLvalueVar(data.Lhs)

	if data.Op.Kind == token.Assign {
		rhs := c.genExpr(data.Rhs)
		c.emit(ir.OpMov, ir.CPUTag, lv, rhs)
		return lv
	}

	rhs := c.genExpr(data.Rhs)
	op, ok := arithOpcode(compoundBaseToken(data.Op.Kind))
	if !ok {
		c.errors.Error(data.Op, "Unsupported compound assignment operator '%s'", data.Op.Lexeme)
		return lv
	}
	// The left operand is both read and written exactly once here: the
	// node carries the real compound operator rather than a desugared
	// `a = a + b` copy, so there is no double evaluation of a (spec.md §9).
	c.emit(op, ir.CPUTag, lv, lv, rhs)
	return lv
}

func compoundBaseToken(k token.Type) token.Type {
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

func (c *Context) genCall(node *ast.Node) ir.Operand {
	data := node.Data.(ast.CallData)

	args := make([]ir.Operand, 0, len(data.Args)+1)
	if data.Callee.Kind == ast.Variable {
		idx := c.obj.FindSymbol(data.Callee.Tok.Lexeme)
		if idx == ir.NoSymbol {
			c.errors.Error(data.Callee.Tok, "Call to undeclared function '%s'", data.Callee.Tok.Lexeme)
		}
		args = append(args, ir.SymRef(idx))
	} else {
		c.errors.Error(node.Tok, "Code generation only supports calling a named function, not an indirect call")
		args = append(args, ir.ImmInt(ir.TypeInt32, 0))
	}
	for _, a := range data.Args {
		args = append(args, c.genExpr(a))
	}

	resultTy := c.irType(node)
	if resultTy == ir.TypeVoid {
		c.emit(ir.OpCall, ir.CPUTag, args...)
		return ir.ImmInt(ir.TypeVoid, 0)
	}
	dst := c.newVarID()
	c.emit(ir.OpVar, ir.CPUTag, ir.Var(dst, resultTy))
	full := append([]ir.Operand{ir.Var(dst, resultTy)}, args...)
	c.emit(ir.OpCall, ir.CPUTag, full...)
	return ir.Var(dst, resultTy)
}

func (c *Context) genArrayAccess(node *ast.Node) ir.Operand {
	data := node.Data.(ast.ArrayAccessData)
	base := c.genExpr(data.Array)
	index := c.genExpr(data.Index)
	resultTy := c.irType(node)

	dst := c.newVarID()
	c.emit(ir.OpVar, ir.CPUTag, ir.Var(dst, resultTy))
	c.emit(ir.OpIndex, ir.CPUTag, ir.Var(dst, resultTy), base, index)
	return ir.Var(dst, resultTy)
}

// genMemberAccess is acknowledged-incomplete: struct bodies are not
// modeled (spec.md §1 Non-goals), so there is no field offset to lower
// against. It reports a code generation error rather than miscompiling.
func (c *Context) genMemberAccess(node *ast.Node) ir.Operand {
	c.errors.Error(node.Tok, "Code generation does not support struct member access")
	return ir.ImmInt(c.irType(node), 0)
}

func (c *Context) genConditional(node *ast.Node) ir.Operand {
	data := node.Data.(ast.ConditionalData)
	resultTy := c.irType(node)
	dst := c.newVarID()
	c.emit(ir.OpVar, ir.CPUTag, ir.Var(dst, resultTy))

	elseL := c.newLabel("cond_else")
	endL := c.newLabel("cond_end")

	cond := c.genExpr(data.Cond)
	c.emit(ir.OpCmp, ir.CPUTag, cond, ir.ImmInt(cond.Type, 0))
	c.emit(ir.OpBr, ir.CPUTag, ir.LabelRef(elseL))

	thenV := c.genExpr(data.Then)
	c.emit(ir.OpMov, ir.CPUTag, ir.Var(dst, resultTy), thenV)
	c.emit(ir.OpBr, ir.CPUTag, ir.LabelRef(endL))

	c.emit(ir.OpLabel, ir.CPUTag, ir.LabelRef(elseL))
	elseV := c.genExpr(data.Else)
	c.emit(ir.OpMov, ir.CPUTag, ir.Var(dst, resultTy), elseV)

	c.emit(ir.OpLabel, ir.CPUTag, ir.LabelRef(endL))
	return ir.Var(dst, resultTy)
}
