// Package lexer turns source text into a token stream (spec.md §4.1).
// Scanning never halts on error: a lexical error is reported to the
// ErrorSink and the lexer advances past the offending construct so the
// rest of the file still tokenizes.
package lexer

import (
	"strconv"
	"strings"

	"github.com/ccc-lang/ccc/pkg/ccerr"
	"github.com/ccc-lang/ccc/pkg/token"
)

// Lexer scans a single source file into a token stream.
type Lexer struct {
	source   []rune
	filename string
	errors   *ccerr.Sink

	pos    int
	line   int
	column int
}

// New returns a Lexer over source, attributing diagnostics to filename
// and reporting them to errors.
func New(source, filename string, errors *ccerr.Sink) *Lexer {
	return &Lexer{source: []rune(source), filename: filename, errors: errors, line: 1, column: 1}
}

// Tokenize scans the entire source and returns the token stream, always
// terminated by exactly one EOF token (spec.md §8 property 2).
func (l *Lexer) Tokenize() []token.Token {
	var toks []token.Token
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks
		}
	}
}

// Next scans and returns the next token.
func (l *Lexer) Next() token.Token {
	l.skipWhitespaceAndComments()
	startLine, startCol := l.line, l.column

	if l.atEnd() {
		return l.make(token.EOF, "", startLine, startCol)
	}

	ch := l.peek()

	if isIdentStart(ch) {
		return l.identifierOrKeyword(startLine, startCol)
	}
	if isDigit(ch) || (ch == '.' && isDigit(l.peekAt(1))) {
		return l.number(startLine, startCol)
	}
	if ch == '"' {
		return l.stringLiteral(startLine, startCol)
	}
	if ch == '\'' {
		return l.charLiteral(startLine, startCol)
	}

	return l.operator(startLine, startCol)
}

// --- low-level scanning ---

func (l *Lexer) atEnd() bool { return l.pos >= len(l.source) }

func (l *Lexer) peek() rune {
	if l.atEnd() {
		return 0
	}
	return l.source[l.pos]
}

func (l *Lexer) peekAt(offset int) rune {
	i := l.pos + offset
	if i >= len(l.source) {
		return 0
	}
	return l.source[i]
}

func (l *Lexer) advance() rune {
	if l.atEnd() {
		return 0
	}
	ch := l.source[l.pos]
	l.pos++
	if ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return ch
}

func (l *Lexer) match(expected rune) bool {
	if l.peek() != expected {
		return false
	}
	l.advance()
	return true
}

func (l *Lexer) make(kind token.Type, lexeme string, line, col int) token.Token {
	return token.Token{Kind: kind, Lexeme: lexeme, Filename: l.filename, Line: line, Column: col}
}

func (l *Lexer) errf(line, col int, format string, args ...interface{}) {
	l.errors.Error(token.Token{Filename: l.filename, Line: line, Column: col}, format, args...)
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch l.peek() {
		case ' ', '\t', '\r', '\n':
			l.advance()
		case '/':
			if l.peekAt(1) == '/' {
				l.lineComment()
			} else if l.peekAt(1) == '*' {
				l.blockComment()
			} else {
				return
			}
		default:
			return
		}
	}
}

func (l *Lexer) lineComment() {
	for !l.atEnd() && l.peek() != '\n' {
		l.advance()
	}
}

func (l *Lexer) blockComment() {
	startLine, startCol := l.line, l.column
	l.advance() // '/'
	l.advance() // '*'
	for {
		if l.atEnd() {
			l.errf(startLine, startCol, "Unterminated block comment")
			return
		}
		if l.peek() == '*' && l.peekAt(1) == '/' {
			l.advance()
			l.advance()
			return
		}
		l.advance()
	}
}

func isIdentStart(ch rune) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentCont(ch rune) bool { return isIdentStart(ch) || isDigit(ch) }

func isDigit(ch rune) bool { return ch >= '0' && ch <= '9' }

func (l *Lexer) identifierOrKeyword(line, col int) token.Token {
	start := l.pos
	for isIdentCont(l.peek()) {
		l.advance()
	}
	lexeme := string(l.source[start:l.pos])
	if kw, ok := token.KeywordMap[lexeme]; ok {
		return l.make(kw, lexeme, line, col)
	}
	return l.make(token.Identifier, lexeme, line, col)
}

// number scans an integer or float literal: digits, an optional `.digit+`,
// an optional exponent, then optional suffixes (spec.md §4.1).
func (l *Lexer) number(line, col int) token.Token {
	start := l.pos
	isFloat := false

	for isDigit(l.peek()) {
		l.advance()
	}
	if l.peek() == '.' && isDigit(l.peekAt(1)) {
		isFloat = true
		l.advance()
		for isDigit(l.peek()) {
			l.advance()
		}
	}

	if l.peek() == 'e' || l.peek() == 'E' {
		save := l.pos
		saveLine, saveCol := l.line, l.column
		l.advance()
		if l.peek() == '+' || l.peek() == '-' {
			l.advance()
		}
		if isDigit(l.peek()) {
			isFloat = true
			for isDigit(l.peek()) {
				l.advance()
			}
		} else {
			l.errf(saveLine, saveCol, "Malformed floating-point literal: exponent has no digits")
			l.pos, l.line, l.column = save, saveLine, saveCol
		}
	}

	// Suffixes: f/F forces float; l/L optional u/U; u/U optional l/L.
	switch l.peek() {
	case 'f', 'F':
		isFloat = true
		l.advance()
	case 'l', 'L':
		l.advance()
		if l.peek() == 'u' || l.peek() == 'U' {
			l.advance()
		}
	case 'u', 'U':
		l.advance()
		if l.peek() == 'l' || l.peek() == 'L' {
			l.advance()
		}
	}

	lexeme := string(l.source[start:l.pos])
	if isFloat {
		return l.make(token.FloatLiteral, lexeme, line, col)
	}
	return l.make(token.IntegerLiteral, lexeme, line, col)
}

func (l *Lexer) stringLiteral(line, col int) token.Token {
	start := l.pos
	l.advance() // opening quote
	for {
		if l.atEnd() {
			l.errf(line, col, "Unterminated string literal")
			return l.make(token.StringLiteral, string(l.source[start:l.pos]), line, col)
		}
		c := l.peek()
		if c == '"' {
			l.advance()
			return l.make(token.StringLiteral, string(l.source[start:l.pos]), line, col)
		}
		if c == '\\' {
			l.advance()
			if !l.atEnd() {
				l.advance()
			}
			continue
		}
		l.advance()
	}
}

func (l *Lexer) charLiteral(line, col int) token.Token {
	start := l.pos
	l.advance() // opening quote
	count := 0
	for !l.atEnd() && l.peek() != '\'' {
		if l.peek() == '\\' {
			l.advance()
			if !l.atEnd() {
				l.advance()
			}
		} else {
			l.advance()
		}
		count++
	}
	if l.atEnd() {
		l.errf(line, col, "Unterminated character literal")
		return l.make(token.CharLiteral, string(l.source[start:l.pos]), line, col)
	}
	if count == 0 {
		l.errf(line, col, "Empty character literal")
	} else if count > 1 {
		l.errf(line, col, "Multi-character character literal is not supported")
	}
	l.advance() // closing quote
	return l.make(token.CharLiteral, string(l.source[start:l.pos]), line, col)
}

// DecodeEscape interprets the escape sequence whose backslash was already
// consumed, given the character that followed it (spec.md §4.1's escape
// set). An unknown escape reports an error and returns the literal
// character unchanged.
func DecodeEscape(errors *ccerr.Sink, tok token.Token, c rune) rune {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case '0':
		return 0
	case '\\':
		return '\\'
	case '\'':
		return '\''
	case '"':
		return '"'
	case 'a':
		return '\a'
	case 'b':
		return '\b'
	case 'f':
		return '\f'
	case 'v':
		return '\v'
	case '?':
		return '?'
	default:
		errors.Error(tok, "Unknown escape sequence '\\%c'", c)
		return c
	}
}

// UnescapeString decodes every escape sequence in a string-literal lexeme
// (including its surrounding quotes), per spec.md §4.1.
func UnescapeString(errors *ccerr.Sink, tok token.Token, lexeme string) string {
	if len(lexeme) < 2 {
		return ""
	}
	body := []rune(lexeme[1 : len(lexeme)-1])
	var sb strings.Builder
	for i := 0; i < len(body); i++ {
		if body[i] == '\\' && i+1 < len(body) {
			i++
			sb.WriteRune(DecodeEscape(errors, tok, body[i]))
			continue
		}
		sb.WriteRune(body[i])
	}
	return sb.String()
}

// UnescapeChar decodes a char-literal lexeme (including its quotes) to its
// integer value.
func UnescapeChar(errors *ccerr.Sink, tok token.Token, lexeme string) int64 {
	if len(lexeme) < 2 {
		return 0
	}
	body := []rune(lexeme[1 : len(lexeme)-1])
	if len(body) == 0 {
		return 0
	}
	if body[0] == '\\' && len(body) > 1 {
		return int64(DecodeEscape(errors, tok, body[1]))
	}
	return int64(body[0])
}

// ParseInt parses an INTEGER_LITERAL lexeme, stripping any trailing
// u/U/l/L suffix characters.
func ParseInt(lexeme string) (int64, error) {
	end := len(lexeme)
	for end > 0 && strings.ContainsRune("uUlL", rune(lexeme[end-1])) {
		end--
	}
	return strconv.ParseInt(lexeme[:end], 10, 64)
}

// ParseFloat parses a FLOAT_LITERAL lexeme, stripping any trailing f/F
// suffix character.
func ParseFloat(lexeme string) (float64, error) {
	end := len(lexeme)
	if end > 0 && (lexeme[end-1] == 'f' || lexeme[end-1] == 'F') {
		end--
	}
	return strconv.ParseFloat(lexeme[:end], 64)
}

// --- operator maximal munch (spec.md §4.1) ---

func (l *Lexer) operator(line, col int) token.Token {
	ch := l.advance()
	switch ch {
	case '(':
		return l.make(token.LParen, "(", line, col)
	case ')':
		return l.make(token.RParen, ")", line, col)
	case '{':
		return l.make(token.LBrace, "{", line, col)
	case '}':
		return l.make(token.RBrace, "}", line, col)
	case '[':
		return l.make(token.LBracket, "[", line, col)
	case ']':
		return l.make(token.RBracket, "]", line, col)
	case ';':
		return l.make(token.Semicolon, ";", line, col)
	case ',':
		return l.make(token.Comma, ",", line, col)
	case '?':
		return l.make(token.Question, "?", line, col)
	case '~':
		return l.make(token.Tilde, "~", line, col)
	case ':':
		return l.make(token.Colon, ":", line, col)
	case '.':
		if l.peek() == '.' && l.peekAt(1) == '.' {
			l.advance()
			l.advance()
			return l.make(token.Ellipsis, "...", line, col)
		}
		return l.make(token.Dot, ".", line, col)
	case '+':
		if l.match('+') {
			return l.make(token.Inc, "++", line, col)
		}
		if l.match('=') {
			return l.make(token.PlusAssign, "+=", line, col)
		}
		return l.make(token.Plus, "+", line, col)
	case '-':
		if l.match('>') {
			return l.make(token.Arrow, "->", line, col)
		}
		if l.match('-') {
			return l.make(token.Dec, "--", line, col)
		}
		if l.match('=') {
			return l.make(token.MinusAssign, "-=", line, col)
		}
		return l.make(token.Minus, "-", line, col)
	case '*':
		if l.match('=') {
			return l.make(token.StarAssign, "*=", line, col)
		}
		return l.make(token.Star, "*", line, col)
	case '/':
		if l.match('=') {
			return l.make(token.SlashAssign, "/=", line, col)
		}
		return l.make(token.Slash, "/", line, col)
	case '%':
		if l.match('=') {
			return l.make(token.PercentAssign, "%=", line, col)
		}
		return l.make(token.Percent, "%", line, col)
	case '&':
		if l.match('&') {
			return l.make(token.AmpAmp, "&&", line, col)
		}
		if l.match('=') {
			return l.make(token.AmpAssign, "&=", line, col)
		}
		return l.make(token.Amp, "&", line, col)
	case '|':
		if l.match('|') {
			return l.make(token.PipePipe, "||", line, col)
		}
		if l.match('=') {
			return l.make(token.PipeAssign, "|=", line, col)
		}
		return l.make(token.Pipe, "|", line, col)
	case '^':
		if l.match('=') {
			return l.make(token.CaretAssign, "^=", line, col)
		}
		return l.make(token.Caret, "^", line, col)
	case '=':
		if l.match('=') {
			return l.make(token.EqEq, "==", line, col)
		}
		return l.make(token.Assign, "=", line, col)
	case '!':
		if l.match('=') {
			return l.make(token.NotEq, "!=", line, col)
		}
		return l.make(token.Bang, "!", line, col)
	case '<':
		if l.match('<') {
			if l.match('=') {
				return l.make(token.ShlAssign, "<<=", line, col)
			}
			return l.make(token.Shl, "<<", line, col)
		}
		if l.match('=') {
			return l.make(token.LessEq, "<=", line, col)
		}
		return l.make(token.Less, "<", line, col)
	case '>':
		if l.match('>') {
			if l.match('=') {
				return l.make(token.ShrAssign, ">>=", line, col)
			}
			return l.make(token.Shr, ">>", line, col)
		}
		if l.match('=') {
			return l.make(token.GreaterEq, ">=", line, col)
		}
		return l.make(token.Greater, ">", line, col)
	default:
		l.errf(line, col, "Unexpected character '%c'", ch)
		return l.make(token.Unknown, string(ch), line, col)
	}
}
