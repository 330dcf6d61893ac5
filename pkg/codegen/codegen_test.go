package codegen_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ccc-lang/ccc/pkg/ccerr"
	"github.com/ccc-lang/ccc/pkg/codegen"
	"github.com/ccc-lang/ccc/pkg/ir"
	"github.com/ccc-lang/ccc/pkg/lexer"
	"github.com/ccc-lang/ccc/pkg/parser"
	"github.com/ccc-lang/ccc/pkg/semantic"
)

// generate runs the full Lexer -> Parser -> Semantic -> CodeGen pipeline,
// so every test works against a fully type-checked AST rather than a
// hand-built one.
func generate(t *testing.T, source string) (*ir.Object, *ccerr.Sink) {
	t.Helper()
	errors := ccerr.New()
	toks := lexer.New(source, "<test>", errors).Tokenize()
	prog := parser.Parse(toks, errors)
	if errors.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", errors.Diagnostics())
	}
	semantic.Analyze(prog, errors)
	if errors.HasErrors() {
		t.Fatalf("unexpected semantic errors: %v", errors.Diagnostics())
	}
	obj := codegen.Generate(prog, errors)
	return obj, errors
}

func textInstructions(obj *ir.Object) []ir.Instruction {
	for _, sec := range obj.Sections {
		if sec.Name == ".text" {
			return sec.Instructions
		}
	}
	return nil
}

func countOps(instrs []ir.Instruction, op ir.Opcode) int {
	n := 0
	for _, inst := range instrs {
		if inst.Op == op {
			n++
		}
	}
	return n
}

func TestSimpleFunctionLowersToProcSymVarRet(t *testing.T) {
	obj, errors := generate(t, "int add(int a, int b) { return a + b; }")
	assert.False(t, errors.HasErrors())

	instrs := textInstructions(obj)
	assert.Equal(t, ir.OpProc, instrs[0].Op)
	assert.Equal(t, 1, countOps(instrs, ir.OpSym))
	assert.Equal(t, 1, countOps(instrs, ir.OpRet))
	assert.Equal(t, 1, countOps(instrs, ir.OpAdd))

	idx := obj.FindSymbol("add")
	assert.NotEqual(t, ir.NoSymbol, idx)
	assert.NotZero(t, obj.Symbols[idx].Attributes&ir.AttrFunction)
}

func TestMainFunctionGetsImplicitZeroReturn(t *testing.T) {
	obj, errors := generate(t, "void main() {}")
	assert.False(t, errors.HasErrors())
	instrs := textInstructions(obj)
	last := instrs[len(instrs)-1]
	assert.Equal(t, ir.OpRet, last.Op)
	assert.Len(t, last.Operands, 2, "main's implicit return carries an explicit 0 value")
}

func TestVoidFunctionGetsBareReturn(t *testing.T) {
	obj, errors := generate(t, "void f() {}")
	assert.False(t, errors.HasErrors())
	instrs := textInstructions(obj)
	last := instrs[len(instrs)-1]
	assert.Equal(t, ir.OpRet, last.Op)
	assert.Len(t, last.Operands, 1, "a void function's implicit return carries only the ABI tag")
}

func TestBreakOutsideLoopIsACodegenError(t *testing.T) {
	errors := ccerr.New()
	toks := lexer.New("void f() { break; }", "<test>", errors).Tokenize()
	prog := parser.Parse(toks, errors)
	assert.False(t, errors.HasErrors())

	semAnalysisErrors := ccerr.New()
	semantic.Analyze(prog, semAnalysisErrors)
	// semantic already catches this; codegen independently guards the
	// same invariant since it keeps its own loop stack.
	codegenErrors := ccerr.New()
	codegen.Generate(prog, codegenErrors)
	assert.True(t, codegenErrors.HasErrors())
}

func TestBreakAndContinueTargetTheEnclosingLoop(t *testing.T) {
	obj, errors := generate(t, `
	void f() {
		int i;
		for (i = 0; i < 10; i = i + 1) {
			if (i == 5) { break; }
			if (i == 2) { continue; }
		}
	}`)
	assert.False(t, errors.HasErrors())
	instrs := textInstructions(obj)
	assert.GreaterOrEqual(t, countOps(instrs, ir.OpLabel), 3, "for-loop start/incr/end labels")
	assert.GreaterOrEqual(t, countOps(instrs, ir.OpBr), 4)
}

func TestCompoundAssignmentEvaluatesLvalueOnce(t *testing.T) {
	obj, errors := generate(t, "void f() { int x; x += 1; }")
	assert.False(t, errors.HasErrors())
	instrs := textInstructions(obj)
	assert.Equal(t, 1, countOps(instrs, ir.OpAdd), "a compound assignment lowers to a single arithmetic op")
}

func TestPrefixAndPostfixIncrementLowerToIncDec(t *testing.T) {
	prefixObj, errors := generate(t, "void f() { int x; ++x; }")
	assert.False(t, errors.HasErrors())
	assert.Equal(t, 1, countOps(textInstructions(prefixObj), ir.OpInc))

	postfixObj, errors := generate(t, "void f() { int x; x++; }")
	assert.False(t, errors.HasErrors())
	instrs := textInstructions(postfixObj)
	assert.Equal(t, 1, countOps(instrs, ir.OpInc))
	// postfix additionally saves the pre-increment value to a fresh temp.
	assert.GreaterOrEqual(t, countOps(instrs, ir.OpVar), 2)
}

func TestLogicalNotMaterializesZeroOrOne(t *testing.T) {
	obj, errors := generate(t, "void f() { int x; int y = !x; }")
	assert.False(t, errors.HasErrors())
	instrs := textInstructions(obj)
	assert.GreaterOrEqual(t, countOps(instrs, ir.OpCmp), 1)
	assert.GreaterOrEqual(t, countOps(instrs, ir.OpMov), 2, "both branches of the materialize sequence assign a literal 0 or 1")
}

func TestShortCircuitAndOnlyEvaluatesRightWhenLeftIsTruthy(t *testing.T) {
	obj, errors := generate(t, "void f() { int a; int b; int c = a && b; }")
	assert.False(t, errors.HasErrors())
	instrs := textInstructions(obj)
	assert.GreaterOrEqual(t, countOps(instrs, ir.OpBr), 2, "&& needs at least one short-circuit branch plus the join branch")
}

func TestRelationalOperatorUsesComparatorCodeOperand(t *testing.T) {
	obj, errors := generate(t, "void f() { int a; int b; int c = a < b; }")
	assert.False(t, errors.HasErrors())
	instrs := textInstructions(obj)
	found := false
	for _, inst := range instrs {
		if inst.Op == ir.OpCmp && len(inst.Operands) == 3 {
			found = true
		}
	}
	assert.True(t, found, "relational comparison emits a three-operand CMP carrying the comparator code")
}

func TestAddressOfPlainVariableIsBestEffort(t *testing.T) {
	_, errors := generate(t, "void f() { int x; int *p = &x; }")
	assert.False(t, errors.HasErrors(), "address-of a plain variable is a supported, if best-effort, lowering")
}

func TestAssignThroughPointerSubscriptIsUnsupportedInCodegen(t *testing.T) {
	errors := ccerr.New()
	toks := lexer.New("void f() { int *p; p[0] = 1; }", "<test>", errors).Tokenize()
	prog := parser.Parse(toks, errors)
	assert.False(t, errors.HasErrors())
	semantic.Analyze(prog, errors)
	assert.False(t, errors.HasErrors())

	codegenErrors := ccerr.New()
	codegen.Generate(prog, codegenErrors)
	assert.True(t, codegenErrors.HasErrors(), "codegen only supports assigning to a plain variable lvalue")
}

func TestFunctionCallLoweringIncludesCalleeAndArguments(t *testing.T) {
	obj, errors := generate(t, `
	int add(int a, int b) { return a + b; }
	void main() { int x = add(1, 2); }`)
	assert.False(t, errors.HasErrors())
	instrs := textInstructions(obj)
	for _, inst := range instrs {
		if inst.Op == ir.OpCall {
			assert.GreaterOrEqual(t, len(inst.Operands), 3, "dst + callee symref + 2 args")
		}
	}
}

func TestGlobalVariableWithInitializerGoesToData(t *testing.T) {
	obj, _ := generate(t, "int g = 5; void f() {}")
	idx := obj.FindSymbol("g")
	assert.NotEqual(t, ir.NoSymbol, idx)
	secName := obj.Sections[obj.Symbols[idx].SectionIndex].Name
	assert.Equal(t, ".data", secName)
}

func TestGlobalVariableWithoutInitializerGoesToBss(t *testing.T) {
	obj, _ := generate(t, "int g; void f() {}")
	idx := obj.FindSymbol("g")
	assert.NotEqual(t, ir.NoSymbol, idx)
	secName := obj.Sections[obj.Symbols[idx].SectionIndex].Name
	assert.Equal(t, ".bss", secName)
}

func TestForwardAndRecursiveCallsResolve(t *testing.T) {
	obj, errors := generate(t, `
	int fact(int n) {
		if (n < 2) { return 1; }
		return n * fact(n - 1);
	}`)
	assert.False(t, errors.HasErrors())
	idx := obj.FindSymbol("fact")
	assert.NotEqual(t, ir.NoSymbol, idx)
}

func TestScopeExitRetiresLocalBindings(t *testing.T) {
	// Two sibling blocks each declaring a variable named x must not
	// collide (the scope stack must actually retire x between them).
	obj, errors := generate(t, `
	void f() {
		{ int x; x = 1; }
		{ int x; x = 2; }
	}`)
	assert.False(t, errors.HasErrors())
	instrs := textInstructions(obj)
	assert.Equal(t, 2, countOps(instrs, ir.OpScopeEnter))
	assert.Equal(t, 2, countOps(instrs, ir.OpScopeLeave))
}
