package semantic_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ccc-lang/ccc/pkg/ccerr"
	"github.com/ccc-lang/ccc/pkg/lexer"
	"github.com/ccc-lang/ccc/pkg/parser"
	"github.com/ccc-lang/ccc/pkg/semantic"
)

func analyze(t *testing.T, source string) *ccerr.Sink {
	t.Helper()
	errors := ccerr.New()
	toks := lexer.New(source, "<test>", errors).Tokenize()
	prog := parser.Parse(toks, errors)
	semantic.Analyze(prog, errors)
	return errors
}

func TestValidProgramHasNoErrors(t *testing.T) {
	src := `
	int add(int a, int b) { return a + b; }
	void main() { int x = add(1, 2); }`
	errors := analyze(t, src)
	assert.False(t, errors.HasErrors())
}

func TestUndefinedVariableIsReported(t *testing.T) {
	errors := analyze(t, "void f() { int x = y; }")
	assert.True(t, errors.HasErrors())
}

func TestRedeclarationInSameScopeIsReported(t *testing.T) {
	errors := analyze(t, "void f() { int x; int x; }")
	assert.True(t, errors.HasErrors())
}

func TestShadowingInNestedScopeIsAllowed(t *testing.T) {
	errors := analyze(t, "void f() { int x; { int x; } }")
	assert.False(t, errors.HasErrors())
}

func TestInnerScopeResolvesBeforeOuterScope(t *testing.T) {
	// x declared in both scopes; the assignment to the inner x must not
	// raise a type error, proving lookup found the innermost binding.
	errors := analyze(t, "void f() { int x; { float x; x = 1.5; } }")
	assert.False(t, errors.HasErrors())
}

func TestBreakOutsideLoopIsReported(t *testing.T) {
	errors := analyze(t, "void f() { break; }")
	assert.True(t, errors.HasErrors())
}

func TestContinueOutsideLoopIsReported(t *testing.T) {
	errors := analyze(t, "void f() { continue; }")
	assert.True(t, errors.HasErrors())
}

func TestBreakInsideLoopIsFine(t *testing.T) {
	errors := analyze(t, "void f() { while (1) { break; } }")
	assert.False(t, errors.HasErrors())
}

func TestReturnInsideNestedBlockIsRecognized(t *testing.T) {
	errors := analyze(t, "void f() { if (1) { return; } }")
	assert.False(t, errors.HasErrors())
}

func TestNonVoidFunctionMustReturnAValue(t *testing.T) {
	errors := analyze(t, "int f() { return; }")
	assert.True(t, errors.HasErrors())
}

func TestVoidFunctionMustNotReturnAValue(t *testing.T) {
	errors := analyze(t, "void f() { return 1; }")
	assert.True(t, errors.HasErrors())
}

func TestCallArgumentCountMismatchIsReported(t *testing.T) {
	errors := analyze(t, "int add(int a, int b) { return a + b; } void f() { add(1); }")
	assert.True(t, errors.HasErrors())
}

func TestCallingANonFunctionIsReported(t *testing.T) {
	errors := analyze(t, "void f() { int x; x(); }")
	assert.True(t, errors.HasErrors())
}

func TestIncompatibleInitializerIsReported(t *testing.T) {
	errors := analyze(t, "void f() { int *p = 1.5; }")
	assert.True(t, errors.HasErrors())
}

func TestNullPointerConstantMayInitializeAPointer(t *testing.T) {
	errors := analyze(t, "void f() { int *p = 0; }")
	assert.False(t, errors.HasErrors())
}

func TestUsualArithmeticConversionsPromoteIntAndFloat(t *testing.T) {
	errors := analyze(t, "void f() { int i; float x; float y = i + x; }")
	assert.False(t, errors.HasErrors())
}

func TestDereferencingNonPointerIsReported(t *testing.T) {
	errors := analyze(t, "void f() { int x; *x; }")
	assert.True(t, errors.HasErrors())
}

func TestArraySubscriptOnNonArrayIsReported(t *testing.T) {
	errors := analyze(t, "void f() { int x; int y; y = x[0]; }")
	assert.True(t, errors.HasErrors())
}

func TestFunctionPrototypeDoesNotRequireAReturnStatement(t *testing.T) {
	errors := analyze(t, "int add(int a, int b);")
	assert.False(t, errors.HasErrors())
}
