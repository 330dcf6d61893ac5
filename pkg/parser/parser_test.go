package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ccc-lang/ccc/pkg/ast"
	"github.com/ccc-lang/ccc/pkg/ccerr"
	"github.com/ccc-lang/ccc/pkg/lexer"
	"github.com/ccc-lang/ccc/pkg/parser"
	"github.com/ccc-lang/ccc/pkg/token"
)

func parse(t *testing.T, source string) (*ast.Program, *ccerr.Sink) {
	t.Helper()
	errors := ccerr.New()
	toks := lexer.New(source, "<test>", errors).Tokenize()
	prog := parser.Parse(toks, errors)
	return prog, errors
}

func firstExpr(t *testing.T, prog *ast.Program) *ast.Node {
	t.Helper()
	fn := prog.Declarations[0]
	body := fn.Data.(ast.FuncDeclData).Body
	stmt := body.Data.(ast.BlockData).Stmts[0]
	return stmt.Data.(ast.ExprStmtData).Expr
}

func wrapExpr(expr string) string {
	return "void f() { " + expr + "; }"
}

func TestPrecedenceClimbing(t *testing.T) {
	tests := []struct {
		expr     string
		wantKind ast.Kind
		wantOp   token.Type
	}{
		{"1 + 2 * 3", ast.Binary, token.Plus},     // '*' binds tighter, '+' is outermost
		{"1 * 2 + 3", ast.Binary, token.Plus},
		{"a = b = c", ast.Assign, token.Assign},   // right-associative
		{"a ? b : c ? d : e", ast.Conditional, 0}, // right-associative ternary
		{"1 || 2 && 3", ast.Binary, token.PipePipe},
		{"1 & 2 | 3", ast.Binary, token.Pipe},
		{"1 == 2 < 3", ast.Binary, token.EqEq},
		{"1 << 2 + 3", ast.Binary, token.Shl},
	}
	for _, test := range tests {
		prog, errors := parse(t, wrapExpr(test.expr))
		assert.False(t, errors.HasErrors(), "expr: %s", test.expr)
		expr := firstExpr(t, prog)
		assert.Equal(t, test.wantKind, expr.Kind, "expr: %s", test.expr)
		switch data := expr.Data.(type) {
		case ast.BinaryData:
			assert.Equal(t, test.wantOp, data.Op.Kind, "expr: %s", test.expr)
		case ast.AssignData:
			assert.Equal(t, test.wantOp, data.Op.Kind, "expr: %s", test.expr)
		}
	}
}

func TestParseAssignmentIsRightAssociative(t *testing.T) {
	prog, errors := parse(t, wrapExpr("a = b = 1"))
	assert.False(t, errors.HasErrors())
	expr := firstExpr(t, prog)
	assert.Equal(t, ast.Assign, expr.Kind)
	outer := expr.Data.(ast.AssignData)
	assert.Equal(t, ast.Assign, outer.Rhs.Kind, "rhs of outer assignment should itself be an assignment")
}

func TestCompoundAssignmentKeepsItsOperatorToken(t *testing.T) {
	prog, errors := parse(t, wrapExpr("a += 1"))
	assert.False(t, errors.HasErrors())
	expr := firstExpr(t, prog)
	assert.Equal(t, ast.Assign, expr.Kind)
	data := expr.Data.(ast.AssignData)
	assert.Equal(t, token.PlusAssign, data.Op.Kind, "compound assignment is not desugared into Binary+Assign")
}

func TestPrefixAndPostfixIncrementAreDistinctNodeKinds(t *testing.T) {
	prog, errors := parse(t, wrapExpr("++a"))
	assert.False(t, errors.HasErrors())
	assert.Equal(t, ast.Unary, firstExpr(t, prog).Kind)

	prog, errors = parse(t, wrapExpr("a++"))
	assert.False(t, errors.HasErrors())
	assert.Equal(t, ast.Postfix, firstExpr(t, prog).Kind)
}

func TestAssignToNonLvalueIsReported(t *testing.T) {
	_, errors := parse(t, wrapExpr("1 = 2"))
	assert.True(t, errors.HasErrors())
}

func TestAddressOfNonLvalueIsReported(t *testing.T) {
	_, errors := parse(t, wrapExpr("&1"))
	assert.True(t, errors.HasErrors())
}

func TestFunctionDeclarationWithParams(t *testing.T) {
	prog, errors := parse(t, "int add(int a, int b) { return a + b; }")
	assert.False(t, errors.HasErrors())
	assert.Len(t, prog.Declarations, 1)
	data := prog.Declarations[0].Data.(ast.FuncDeclData)
	assert.Equal(t, "add", data.Name.Lexeme)
	assert.Len(t, data.Params, 2)
	assert.True(t, data.Params[0].HasName)
	assert.Equal(t, "a", data.Params[0].Name.Lexeme)
}

func TestFunctionPrototypeHasNilBody(t *testing.T) {
	prog, errors := parse(t, "int add(int a, int b);")
	assert.False(t, errors.HasErrors())
	data := prog.Declarations[0].Data.(ast.FuncDeclData)
	assert.Nil(t, data.Body)
}

func TestGlobalVarDeclaration(t *testing.T) {
	prog, errors := parse(t, "int x = 5;")
	assert.False(t, errors.HasErrors())
	assert.Equal(t, ast.VarDecl, prog.Declarations[0].Kind)
}

func TestControlFlowStatements(t *testing.T) {
	src := `
	void f() {
		int i;
		for (i = 0; i < 10; i = i + 1) {
			if (i == 5) { break; } else { continue; }
		}
		while (i > 0) { i = i - 1; }
		do { i = i + 1; } while (i < 10);
	}`
	prog, errors := parse(t, src)
	assert.False(t, errors.HasErrors())
	assert.Len(t, prog.Declarations, 1)
}

func TestCallArrayAndMemberAccessPostfixChain(t *testing.T) {
	prog, errors := parse(t, wrapExpr("a.b[0](1, 2)->c"))
	assert.False(t, errors.HasErrors())
	expr := firstExpr(t, prog)
	assert.Equal(t, ast.MemberAccess, expr.Kind)
}

func TestMalformedDeclarationDoesNotStopTheParse(t *testing.T) {
	src := `
	int ;
	int ok() { return 1; }`
	prog, errors := parse(t, src)
	assert.True(t, errors.HasErrors(), "the first declaration is malformed")
	assert.Len(t, prog.Declarations, 1, "parsing should still recover and produce the second declaration")
	assert.Equal(t, "ok", prog.Declarations[0].Data.(ast.FuncDeclData).Name.Lexeme)
}

func TestMalformedStatementInsideABlockDoesNotHang(t *testing.T) {
	src := `void f() { ) ) ) int x = 1; }`
	prog, errors := parse(t, src)
	assert.True(t, errors.HasErrors())
	assert.Len(t, prog.Declarations, 1, "the parser must still terminate and return a Program")
}

func TestParenthesizedExpressionOverridesPrecedence(t *testing.T) {
	prog, errors := parse(t, wrapExpr("(1 + 2) * 3"))
	assert.False(t, errors.HasErrors())
	expr := firstExpr(t, prog)
	assert.Equal(t, ast.Binary, expr.Kind)
	data := expr.Data.(ast.BinaryData)
	assert.Equal(t, token.Star, data.Op.Kind)
	assert.Equal(t, ast.Binary, data.Left.Kind, "left operand is the parenthesized '+' expression")
}

func TestBareGarbageTokenAtExpressionStartNeverPanics(t *testing.T) {
	assert.NotPanics(t, func() {
		parse(t, wrapExpr(")"))
	})
}
