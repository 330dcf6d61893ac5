// Package parser implements a recursive-descent parser with
// operator-precedence climbing over the C-subset grammar (spec.md §4.2).
// Every parse error is recorded on the ErrorSink. A top-level declaration
// with a bad start, type specifier or name, a local declaration with a bad
// type specifier, and a block statement that consumes no tokens are
// followed by synchronize; other errors (a missing ';', ')' or other
// expected token, a bad expression token) are reported and parsing
// carries on from the current token without synchronizing. A single
// malformed declaration never stops the parser from producing a Program
// for the rest of the file.
package parser

import (
	"github.com/ccc-lang/ccc/pkg/ast"
	"github.com/ccc-lang/ccc/pkg/ccerr"
	"github.com/ccc-lang/ccc/pkg/token"
)

// Parser consumes a fixed token slice (already lexed in full) and builds
// a Program.
type Parser struct {
	tokens []token.Token
	pos    int
	errors *ccerr.Sink
}

// New returns a Parser over tokens, reporting diagnostics to errors.
func New(tokens []token.Token, errors *ccerr.Sink) *Parser {
	return &Parser{tokens: tokens, errors: errors}
}

// Parse returns the Program built from the token stream. It always
// returns a non-nil Program; malformed declarations are skipped via
// synchronize and reported on the sink rather than aborting the parse.
func Parse(tokens []token.Token, errors *ccerr.Sink) *ast.Program {
	p := New(tokens, errors)
	return p.ParseProgram()
}

// --- cursor primitives ---

func (p *Parser) peek() token.Token { return p.tokens[p.pos] }

func (p *Parser) peekAt(offset int) token.Token {
	i := p.pos + offset
	if i >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[i]
}

func (p *Parser) atEnd() bool { return p.peek().Kind == token.EOF }

func (p *Parser) advance() token.Token {
	tok := p.peek()
	if !p.atEnd() {
		p.pos++
	}
	return tok
}

func (p *Parser) check(kind token.Type) bool { return p.peek().Kind == kind }

func (p *Parser) match(kinds ...token.Type) bool {
	for _, k := range kinds {
		if p.check(k) {
			p.advance()
			return true
		}
	}
	return false
}

// expect consumes a token of the given kind, or reports an error at the
// current position and returns the current token without consuming it.
func (p *Parser) expect(kind token.Type, context string) token.Token {
	if p.check(kind) {
		return p.advance()
	}
	p.errors.Error(p.peek(), "Expected %s %s, found '%s'", kind, context, p.peek().Lexeme)
	return p.peek()
}

// synchronize discards tokens until a reliable resumption point: the
// token after a consumed ';', or a token that begins a statement or
// declaration (spec.md §4.2).
func (p *Parser) synchronize() {
	for !p.atEnd() {
		if p.peek().Kind == token.Semicolon {
			p.advance()
			return
		}
		switch p.peek().Kind {
		case token.If, token.While, token.For, token.Return, token.Break, token.Continue, token.Do:
			return
		}
		if p.isTypeSpecifierStart() {
			return
		}
		p.advance()
	}
}

func (p *Parser) isTypeSpecifierStart() bool {
	k := p.peek().Kind
	return k.IsQualifier() || k.IsTypeKeyword()
}

// --- top level ---

// ParseProgram parses the whole token stream into a Program.
func (p *Parser) ParseProgram() *ast.Program {
	prog := &ast.Program{}
	for !p.atEnd() {
		decl := p.parseDeclaration()
		if decl != nil {
			prog.Declarations = append(prog.Declarations, decl)
		}
	}
	return prog
}

// parseDeclaration parses one top-level function or variable declaration.
func (p *Parser) parseDeclaration() *ast.Node {
	if !p.isTypeSpecifierStart() {
		p.errors.Error(p.peek(), "Expected a declaration, found '%s'", p.peek().Lexeme)
		p.synchronize()
		return nil
	}

	startTok := p.peek()
	typ, ok := p.parseTypeSpecifier()
	if !ok {
		p.synchronize()
		return nil
	}
	if !p.check(token.Identifier) {
		p.expect(token.Identifier, "in declaration")
		p.synchronize()
		return nil
	}
	name := p.advance()

	if p.check(token.LParen) {
		return p.parseFunctionDeclaration(startTok, typ, name)
	}
	return p.parseVarDeclRest(startTok, typ, name)
}

// parseTypeSpecifier parses qualifiers (any order, duplicates coalesced),
// exactly one base type keyword, and a pointer level (spec.md §4.2).
func (p *Parser) parseTypeSpecifier() (*ast.TypeNode, bool) {
	typ := &ast.TypeNode{}
	for {
		switch p.peek().Kind {
		case token.Const:
			typ.IsConst = true
			p.advance()
			continue
		case token.Volatile:
			typ.IsVolatile = true
			p.advance()
			continue
		}
		break
	}

	if !p.peek().Kind.IsTypeKeyword() {
		p.errors.Error(p.peek(), "Expected a type specifier, found '%s'", p.peek().Lexeme)
		return nil, false
	}
	typ.NameTok = p.advance()

	for p.match(token.Star) {
		typ.PointerLevel++
	}
	return typ, true
}

func (p *Parser) parseFunctionDeclaration(startTok token.Token, returnType *ast.TypeNode, name token.Token) *ast.Node {
	p.expect(token.LParen, "after function name")
	var params []*ast.Parameter
	if !p.check(token.RParen) {
		for {
			params = append(params, p.parseParameter())
			if !p.match(token.Comma) {
				break
			}
		}
	}
	p.expect(token.RParen, "after parameter list")

	var body *ast.Node
	if p.match(token.Semicolon) {
		// prototype; no body
	} else {
		body = p.parseBlock()
	}
	return ast.NewFuncDecl(startTok, returnType, name, params, body)
}

func (p *Parser) parseParameter() *ast.Parameter {
	typ, ok := p.parseTypeSpecifier()
	if !ok {
		return &ast.Parameter{Type: &ast.TypeNode{}}
	}
	if p.check(token.Identifier) {
		name := p.advance()
		return &ast.Parameter{Type: typ, Name: name, HasName: true}
	}
	return &ast.Parameter{Type: typ}
}

// parseVarDeclRest parses the remainder of a variable declaration after
// its type and name token have already been consumed.
func (p *Parser) parseVarDeclRest(startTok token.Token, typ *ast.TypeNode, name token.Token) *ast.Node {
	var init *ast.Node
	if p.match(token.Assign) {
		init = p.parseAssignment()
	}
	p.expect(token.Semicolon, "after variable declaration")
	return ast.NewVarDecl(startTok, typ, name, init)
}

// --- statements ---

func (p *Parser) parseStatement() *ast.Node {
	switch p.peek().Kind {
	case token.LBrace:
		return p.parseBlock()
	case token.If:
		return p.parseIf()
	case token.While:
		return p.parseWhile()
	case token.Do:
		return p.parseDoWhile()
	case token.For:
		return p.parseFor()
	case token.Return:
		return p.parseReturn()
	case token.Break:
		tok := p.advance()
		p.expect(token.Semicolon, "after 'break'")
		return ast.NewBreak(tok)
	case token.Continue:
		tok := p.advance()
		p.expect(token.Semicolon, "after 'continue'")
		return ast.NewContinue(tok)
	default:
		if p.isTypeSpecifierStart() {
			return p.parseLocalVarDecl()
		}
		return p.parseExprStatement()
	}
}

func (p *Parser) parseLocalVarDecl() *ast.Node {
	startTok := p.peek()
	typ, ok := p.parseTypeSpecifier()
	if !ok {
		p.synchronize()
		return nil
	}
	name := p.expect(token.Identifier, "in variable declaration")
	return p.parseVarDeclRest(startTok, typ, name)
}

func (p *Parser) parseExprStatement() *ast.Node {
	tok := p.peek()
	expr := p.parseExpression()
	p.expect(token.Semicolon, "after expression")
	return ast.NewExprStmt(tok, expr)
}

func (p *Parser) parseBlock() *ast.Node {
	tok := p.expect(token.LBrace, "to start a block")
	var stmts []*ast.Node
	for !p.check(token.RBrace) && !p.atEnd() {
		before := p.pos
		stmt := p.parseStatement()
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
		if p.pos == before {
			// parseStatement made no progress (e.g. immediate garbage token);
			// force forward motion so the block loop always terminates.
			p.errors.Error(p.peek(), "Unexpected token '%s' in block", p.peek().Lexeme)
			p.synchronize()
		}
	}
	p.expect(token.RBrace, "to close a block")
	return ast.NewBlock(tok, stmts)
}

func (p *Parser) parseIf() *ast.Node {
	tok := p.advance()
	p.expect(token.LParen, "after 'if'")
	cond := p.parseExpression()
	p.expect(token.RParen, "after if condition")
	then := p.parseStatement()
	var els *ast.Node
	if p.match(token.Else) {
		els = p.parseStatement()
	}
	return ast.NewIf(tok, cond, then, els)
}

func (p *Parser) parseWhile() *ast.Node {
	tok := p.advance()
	p.expect(token.LParen, "after 'while'")
	cond := p.parseExpression()
	p.expect(token.RParen, "after while condition")
	body := p.parseStatement()
	return ast.NewWhile(tok, cond, body)
}

func (p *Parser) parseDoWhile() *ast.Node {
	tok := p.advance()
	body := p.parseStatement()
	p.expect(token.While, "after do-block")
	p.expect(token.LParen, "after 'while'")
	cond := p.parseExpression()
	p.expect(token.RParen, "after do-while condition")
	p.expect(token.Semicolon, "after do-while statement")
	return ast.NewDoWhile(tok, body, cond)
}

func (p *Parser) parseFor() *ast.Node {
	tok := p.advance()
	p.expect(token.LParen, "after 'for'")

	var init *ast.Node
	if p.check(token.Semicolon) {
		p.advance()
	} else if p.isTypeSpecifierStart() {
		init = p.parseLocalVarDecl()
	} else {
		init = p.parseExprStatement()
	}

	var cond *ast.Node
	if !p.check(token.Semicolon) {
		cond = p.parseExpression()
	}
	p.expect(token.Semicolon, "after for-loop condition")

	var incr *ast.Node
	if !p.check(token.RParen) {
		incr = p.parseExpression()
	}
	p.expect(token.RParen, "after for-loop clauses")

	body := p.parseStatement()
	return ast.NewFor(tok, init, cond, incr, body)
}

func (p *Parser) parseReturn() *ast.Node {
	tok := p.advance()
	var value *ast.Node
	if !p.check(token.Semicolon) {
		value = p.parseExpression()
	}
	p.expect(token.Semicolon, "after return statement")
	return ast.NewReturn(tok, value)
}

// --- expressions (precedence climbing, spec.md §4.2 table) ---

func (p *Parser) parseExpression() *ast.Node { return p.parseAssignment() }

var assignOps = []token.Type{
	token.Assign, token.PlusAssign, token.MinusAssign, token.StarAssign, token.SlashAssign,
	token.PercentAssign, token.AmpAssign, token.PipeAssign, token.CaretAssign,
	token.ShlAssign, token.ShrAssign,
}

func (p *Parser) parseAssignment() *ast.Node {
	lhs := p.parseConditional()
	if !p.check(assignOps[0]) && !matchesAny(p.peek().Kind, assignOps[1:]) {
		return lhs
	}
	op := p.advance()
	if !ast.IsLValue(lhs) {
		p.errors.Error(op, "Left-hand side of '%s' is not assignable", op.Lexeme)
	}
	rhs := p.parseAssignment() // right-associative
	return ast.NewAssign(op, op, lhs, rhs)
}

func matchesAny(k token.Type, kinds []token.Type) bool {
	for _, c := range kinds {
		if k == c {
			return true
		}
	}
	return false
}

func (p *Parser) parseConditional() *ast.Node {
	cond := p.parseLogicalOr()
	if !p.match(token.Question) {
		return cond
	}
	tok := p.tokens[p.pos-1]
	then := p.parseExpression()
	p.expect(token.Colon, "in conditional expression")
	els := p.parseConditional() // right-associative
	return ast.NewConditional(tok, cond, then, els)
}

func (p *Parser) parseLogicalOr() *ast.Node {
	left := p.parseLogicalAnd()
	for p.check(token.PipePipe) {
		op := p.advance()
		right := p.parseLogicalAnd()
		left = ast.NewBinary(op, left, op, right)
	}
	return left
}

func (p *Parser) parseLogicalAnd() *ast.Node {
	left := p.parseBitwiseOr()
	for p.check(token.AmpAmp) {
		op := p.advance()
		right := p.parseBitwiseOr()
		left = ast.NewBinary(op, left, op, right)
	}
	return left
}

func (p *Parser) parseBitwiseOr() *ast.Node {
	left := p.parseBitwiseXor()
	for p.check(token.Pipe) {
		op := p.advance()
		right := p.parseBitwiseXor()
		left = ast.NewBinary(op, left, op, right)
	}
	return left
}

func (p *Parser) parseBitwiseXor() *ast.Node {
	left := p.parseBitwiseAnd()
	for p.check(token.Caret) {
		op := p.advance()
		right := p.parseBitwiseAnd()
		left = ast.NewBinary(op, left, op, right)
	}
	return left
}

func (p *Parser) parseBitwiseAnd() *ast.Node {
	left := p.parseEquality()
	for p.check(token.Amp) {
		op := p.advance()
		right := p.parseEquality()
		left = ast.NewBinary(op, left, op, right)
	}
	return left
}

func (p *Parser) parseEquality() *ast.Node {
	left := p.parseComparison()
	for p.check(token.EqEq) || p.check(token.NotEq) {
		op := p.advance()
		right := p.parseComparison()
		left = ast.NewBinary(op, left, op, right)
	}
	return left
}

func (p *Parser) parseComparison() *ast.Node {
	left := p.parseShift()
	for p.check(token.Less) || p.check(token.LessEq) || p.check(token.Greater) || p.check(token.GreaterEq) {
		op := p.advance()
		right := p.parseShift()
		left = ast.NewBinary(op, left, op, right)
	}
	return left
}

func (p *Parser) parseShift() *ast.Node {
	left := p.parseAdditive()
	for p.check(token.Shl) || p.check(token.Shr) {
		op := p.advance()
		right := p.parseAdditive()
		left = ast.NewBinary(op, left, op, right)
	}
	return left
}

func (p *Parser) parseAdditive() *ast.Node {
	left := p.parseMultiplicative()
	for p.check(token.Plus) || p.check(token.Minus) {
		op := p.advance()
		right := p.parseMultiplicative()
		left = ast.NewBinary(op, left, op, right)
	}
	return left
}

func (p *Parser) parseMultiplicative() *ast.Node {
	left := p.parseUnary()
	for p.check(token.Star) || p.check(token.Slash) || p.check(token.Percent) {
		op := p.advance()
		right := p.parseUnary()
		left = ast.NewBinary(op, left, op, right)
	}
	return left
}

func (p *Parser) parseUnary() *ast.Node {
	switch p.peek().Kind {
	case token.Minus, token.Plus, token.Bang, token.Tilde, token.Star, token.Amp:
		op := p.advance()
		operand := p.parseUnary()
		if op.Kind == token.Amp && !ast.IsLValue(operand) {
			p.errors.Error(op, "Cannot take the address of a non-lvalue")
		}
		return ast.NewUnary(op, op, operand)
	case token.Inc, token.Dec:
		op := p.advance()
		operand := p.parseUnary()
		if !ast.IsLValue(operand) {
			p.errors.Error(op, "Operand of prefix '%s' is not assignable", op.Lexeme)
		}
		return ast.NewUnary(op, op, operand)
	default:
		return p.parsePostfix()
	}
}

func (p *Parser) parsePostfix() *ast.Node {
	expr := p.parsePrimary()
	for {
		switch p.peek().Kind {
		case token.LBracket:
			tok := p.advance()
			index := p.parseExpression()
			p.expect(token.RBracket, "after array index")
			expr = ast.NewArrayAccess(tok, expr, index)
		case token.LParen:
			tok := p.advance()
			var args []*ast.Node
			if !p.check(token.RParen) {
				for {
					args = append(args, p.parseAssignment())
					if !p.match(token.Comma) {
						break
					}
				}
			}
			p.expect(token.RParen, "after call arguments")
			expr = ast.NewCall(tok, expr, args)
		case token.Dot, token.Arrow:
			op := p.advance()
			member := p.expect(token.Identifier, "after member operator")
			expr = ast.NewMemberAccess(op, expr, op, member)
		case token.Inc, token.Dec:
			op := p.advance()
			if !ast.IsLValue(expr) {
				p.errors.Error(op, "Operand of postfix '%s' is not assignable", op.Lexeme)
			}
			expr = ast.NewPostfix(op, op, expr)
		default:
			return expr
		}
	}
}

func (p *Parser) parsePrimary() *ast.Node {
	tok := p.peek()
	switch tok.Kind {
	case token.IntegerLiteral, token.FloatLiteral, token.CharLiteral, token.StringLiteral:
		p.advance()
		return ast.NewLiteral(tok)
	case token.Identifier:
		p.advance()
		return ast.NewVariable(tok)
	case token.LParen:
		p.advance()
		expr := p.parseExpression()
		p.expect(token.RParen, "to close parenthesized expression")
		return expr
	default:
		p.errors.Error(tok, "Expected an expression, found '%s'", tok.Lexeme)
		if !p.atEnd() {
			p.advance()
		}
		return ast.NewLiteral(tok)
	}
}
