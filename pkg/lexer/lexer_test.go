package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ccc-lang/ccc/pkg/ccerr"
	"github.com/ccc-lang/ccc/pkg/lexer"
	"github.com/ccc-lang/ccc/pkg/token"
)

type tokenizeTest struct {
	source   string
	expected []token.Type
}

var tokenizeTests = []tokenizeTest{
	{"", []token.Type{token.EOF}},
	{"  \t\n  ", []token.Type{token.EOF}},
	{"x", []token.Type{token.Identifier, token.EOF}},
	{"123", []token.Type{token.IntegerLiteral, token.EOF}},
	{"1.5", []token.Type{token.FloatLiteral, token.EOF}},
	{"1.5e3", []token.Type{token.FloatLiteral, token.EOF}},
	{"'a'", []token.Type{token.CharLiteral, token.EOF}},
	{`"abc"`, []token.Type{token.StringLiteral, token.EOF}},
	{"int x;", []token.Type{token.Int, token.Identifier, token.Semicolon, token.EOF}},
	{"a+=1", []token.Type{token.Identifier, token.PlusAssign, token.IntegerLiteral, token.EOF}},
	{"a<<=1", []token.Type{token.Identifier, token.ShlAssign, token.IntegerLiteral, token.EOF}},
	{"a<<1", []token.Type{token.Identifier, token.Shl, token.IntegerLiteral, token.EOF}},
	{"a<1", []token.Type{token.Identifier, token.Less, token.IntegerLiteral, token.EOF}},
	{"a&&b", []token.Type{token.Identifier, token.AmpAmp, token.Identifier, token.EOF}},
	{"a->b", []token.Type{token.Identifier, token.Arrow, token.Identifier, token.EOF}},
	{"a++ ++a", []token.Type{token.Identifier, token.Inc, token.Inc, token.Identifier, token.EOF}},
	{"// comment\nx", []token.Type{token.Identifier, token.EOF}},
	{"/* block */x", []token.Type{token.Identifier, token.EOF}},
}

func TestTokenize(t *testing.T) {
	for _, test := range tokenizeTests {
		errors := ccerr.New()
		toks := lexer.New(test.source, "<test>", errors).Tokenize()
		var kinds []token.Type
		for _, tok := range toks {
			kinds = append(kinds, tok.Kind)
		}
		assert.Equal(t, test.expected, kinds, "source: %q", test.source)
		assert.Equal(t, token.EOF, toks[len(toks)-1].Kind, "last token must be EOF")
	}
}

func TestTokenize_NeverHaltsOnError(t *testing.T) {
	errors := ccerr.New()
	toks := lexer.New(`"unterminated`, "<test>", errors).Tokenize()
	assert.True(t, errors.HasErrors())
	assert.Equal(t, token.EOF, toks[len(toks)-1].Kind)
}

func TestTokenize_UnterminatedBlockComment(t *testing.T) {
	errors := ccerr.New()
	toks := lexer.New("/* never closes", "<test>", errors).Tokenize()
	assert.True(t, errors.HasErrors())
	assert.Equal(t, token.EOF, toks[len(toks)-1].Kind)
}

func TestTokenize_EscapesAreNotDecodedDuringScanning(t *testing.T) {
	// Escape decoding happens later, in UnescapeString/UnescapeChar; the
	// lexer itself only needs to find the closing quote.
	errors := ccerr.New()
	toks := lexer.New(`"a\qb"`, "<test>", errors).Tokenize()
	assert.False(t, errors.HasErrors())
	assert.Equal(t, []token.Type{token.StringLiteral, token.EOF}, kindsOf(toks))
}

func TestUnescapeString_UnknownEscapeIsReportedNotFatal(t *testing.T) {
	errors := ccerr.New()
	got := lexer.UnescapeString(errors, token.Token{}, `"a\qb"`)
	assert.True(t, errors.HasErrors())
	assert.Equal(t, "aqb", got)
}

func kindsOf(toks []token.Token) []token.Type {
	kinds := make([]token.Type, len(toks))
	for i, tok := range toks {
		kinds[i] = tok.Kind
	}
	return kinds
}

func TestParseInt(t *testing.T) {
	v, err := lexer.ParseInt("42")
	assert.NoError(t, err)
	assert.Equal(t, int64(42), v)

	v, err = lexer.ParseInt("42UL")
	assert.NoError(t, err)
	assert.Equal(t, int64(42), v)
}

func TestParseFloat(t *testing.T) {
	v, err := lexer.ParseFloat("1.5f")
	assert.NoError(t, err)
	assert.InDelta(t, 1.5, v, 0.0001)
}

func TestUnescapeString(t *testing.T) {
	errors := ccerr.New()
	got := lexer.UnescapeString(errors, token.Token{}, `"a\nb"`)
	assert.Equal(t, "a\nb", got)
	assert.False(t, errors.HasErrors())
}
