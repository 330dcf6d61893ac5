// Package token defines the token kinds produced by the lexer and shared
// by every later stage of the pipeline.
package token

// Type is the closed set of lexical categories the lexer can produce.
type Type int

const (
	EOF Type = iota
	Unknown

	// Literal classes
	IntegerLiteral
	FloatLiteral
	CharLiteral
	StringLiteral
	Identifier

	// Keywords (C89 keyword set, spec.md §3)
	Auto
	Break
	Case
	Char
	Const
	Continue
	Default
	Do
	Double
	Else
	Enum
	Extern
	Float
	For
	Goto
	If
	Int
	Long
	Register
	Return
	Short
	Signed
	Sizeof
	Static
	Struct
	Switch
	Typedef
	Union
	Unsigned
	Void
	Volatile
	While

	// Punctuation / operators
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Semicolon
	Comma
	Colon
	Question
	Dot
	Arrow
	Ellipsis

	Assign
	PlusAssign
	MinusAssign
	StarAssign
	SlashAssign
	PercentAssign
	AmpAssign
	PipeAssign
	CaretAssign
	ShlAssign
	ShrAssign

	Plus
	Minus
	Star
	Slash
	Percent

	Amp
	Pipe
	Caret
	Tilde
	Shl
	Shr

	EqEq
	NotEq
	Less
	LessEq
	Greater
	GreaterEq

	AmpAmp
	PipePipe
	Bang

	Inc
	Dec
)

// KeywordMap is the exact 32-entry C89 keyword table (spec.md §3).
var KeywordMap = map[string]Type{
	"auto":     Auto,
	"break":    Break,
	"case":     Case,
	"char":     Char,
	"const":    Const,
	"continue": Continue,
	"default":  Default,
	"do":       Do,
	"double":   Double,
	"else":     Else,
	"enum":     Enum,
	"extern":   Extern,
	"float":    Float,
	"for":      For,
	"goto":     Goto,
	"if":       If,
	"int":      Int,
	"long":     Long,
	"register": Register,
	"return":   Return,
	"short":    Short,
	"signed":   Signed,
	"sizeof":   Sizeof,
	"static":   Static,
	"struct":   Struct,
	"switch":   Switch,
	"typedef":  Typedef,
	"union":    Union,
	"unsigned": Unsigned,
	"void":     Void,
	"volatile": Volatile,
	"while":    While,
}

// names mirrors KeywordMap for diagnostics plus the non-keyword kinds.
var names = map[Type]string{
	EOF: "EOF", Unknown: "unknown",
	IntegerLiteral: "integer literal", FloatLiteral: "float literal",
	CharLiteral: "char literal", StringLiteral: "string literal",
	Identifier: "identifier",
	LParen:     "(", RParen: ")", LBrace: "{", RBrace: "}",
	LBracket: "[", RBracket: "]", Semicolon: ";", Comma: ",",
	Colon: ":", Question: "?", Dot: ".", Arrow: "->", Ellipsis: "...",
	Assign: "=", PlusAssign: "+=", MinusAssign: "-=", StarAssign: "*=",
	SlashAssign: "/=", PercentAssign: "%=", AmpAssign: "&=", PipeAssign: "|=",
	CaretAssign: "^=", ShlAssign: "<<=", ShrAssign: ">>=",
	Plus: "+", Minus: "-", Star: "*", Slash: "/", Percent: "%",
	Amp: "&", Pipe: "|", Caret: "^", Tilde: "~", Shl: "<<", Shr: ">>",
	EqEq: "==", NotEq: "!=", Less: "<", LessEq: "<=", Greater: ">", GreaterEq: ">=",
	AmpAmp: "&&", PipePipe: "||", Bang: "!",
	Inc: "++", Dec: "--",
}

func init() {
	for kw, t := range KeywordMap {
		names[t] = kw
	}
}

// String returns a human-readable name for diagnostics.
func (t Type) String() string {
	if s, ok := names[t]; ok {
		return s
	}
	return "?"
}

// IsTypeKeyword reports whether t can begin a type specifier (spec.md §4.2).
func (t Type) IsTypeKeyword() bool {
	switch t {
	case Void, Char, Short, Int, Long, Float, Double, Signed, Unsigned:
		return true
	default:
		return false
	}
}

// IsQualifier reports whether t is a type qualifier keyword.
func (t Type) IsQualifier() bool {
	return t == Const || t == Volatile
}

// Token is a single lexical unit: a kind, its source lexeme, and the
// position of its first character (1-based line/column).
type Token struct {
	Kind     Type
	Lexeme   string
	Filename string
	Line     int
	Column   int
}
