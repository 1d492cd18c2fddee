package fx

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// lexerDefinition holds the token rules. The first rule matching at the
// current offset wins, so the catch-all Error rule must stay last.
var lexerDefinition = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `//[^\n]*|/\*(?:[^*]|\*+[^*/])*\*+/`},
	{Name: "Preprocessor", Pattern: `#[^\n]*`},
	{Name: "Newline", Pattern: `\r?\n`},
	{Name: "Whitespace", Pattern: `[ \t\r\f\v]+`},
	{Name: "Hexa", Pattern: `0[xX][0-9a-fA-F]+`},
	{Name: "Number", Pattern: `-?(?:[0-9]+\.[0-9]*|\.[0-9]+|[0-9]+)(?:[eE][+-]?[0-9]+)?[fFhHlL]?`},
	{Name: "Identifier", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "String", Pattern: `"(?:\\.|[^"\\\n])*"`},
	{Name: "DoubleColon", Pattern: `::`},
	{Name: "Punct", Pattern: `[()\[\]{}=,;<>.]`},
	{Name: "Error", Pattern: `.`},
})

var (
	symbols = lexerDefinition.Symbols()

	skipTypes = map[lexer.TokenType]bool{
		symbols["Comment"]:    true,
		symbols["Whitespace"]: true,
	}

	kindByType = map[lexer.TokenType]TokenKind{
		symbols["Preprocessor"]: TokenPreprocessor,
		symbols["Newline"]:      TokenNewline,
		symbols["Hexa"]:         TokenHexa,
		symbols["Number"]:       TokenNumber,
		symbols["Identifier"]:   TokenIdentifier,
		symbols["String"]:       TokenString,
		symbols["DoubleColon"]:  TokenDoubleColon,
		symbols["Error"]:        TokenError,
	}

	kindByPunct = map[string]TokenKind{
		"(": TokenLeftParent,
		")": TokenRightParent,
		"[": TokenLeftBracket,
		"]": TokenRightBracket,
		"{": TokenLeftCurlyBrace,
		"}": TokenRightCurlyBrace,
		"=": TokenEqual,
		",": TokenComma,
		";": TokenSemiColon,
		"<": TokenLessThan,
		">": TokenGreaterThan,
		".": TokenDot,
	}
)

// Tokenizer produces tokens lazily in a single forward pass.
// Once EndOfFile has been returned every further call returns it again.
type Tokenizer struct {
	lex  lexer.Lexer
	file string
	eof  *Token
}

// NewTokenizer creates a tokenizer over source. file names the source in spans.
func NewTokenizer(source, file string) *Tokenizer {
	t := &Tokenizer{file: file}
	lex, err := lexerDefinition.Lex(file, strings.NewReader(source))
	if err != nil {
		// Reading from a strings.Reader cannot fail; keep the
		// tokenizer usable anyway.
		t.eof = &Token{Kind: TokenEndOfFile, Span: Span{File: file, Line: 1, Column: 1}}
		return t
	}
	t.lex = lex
	return t
}

// Next returns the next token. Unrecognized input yields a TokenError token
// covering the offending character; tokenizing continues after it.
func (t *Tokenizer) Next() Token {
	if t.eof != nil {
		return *t.eof
	}
	for {
		tok, err := t.lex.Next()
		if err != nil {
			t.eof = &Token{Kind: TokenEndOfFile, Span: Span{File: t.file}}
			return Token{Kind: TokenError, Value: err.Error(), Span: Span{File: t.file}}
		}
		if tok.EOF() {
			t.eof = &Token{Kind: TokenEndOfFile, Span: t.span(tok.Pos, 0)}
			return *t.eof
		}
		if skipTypes[tok.Type] {
			continue
		}
		kind, ok := kindByType[tok.Type]
		if !ok {
			kind = kindByPunct[tok.Value]
		}
		return Token{Kind: kind, Value: tok.Value, Span: t.span(tok.Pos, len(tok.Value))}
	}
}

func (t *Tokenizer) span(pos lexer.Position, length int) Span {
	return Span{
		File:   t.file,
		Line:   pos.Line,
		Column: pos.Column,
		Offset: pos.Offset,
		Length: length,
	}
}

// Tokenize returns all tokens of source, including Newline tokens, ending
// with a single EndOfFile token.
func Tokenize(source, file string) []Token {
	t := NewTokenizer(source, file)
	tokens := make([]Token, 0, len(source)/4+1)
	for {
		tok := t.Next()
		tokens = append(tokens, tok)
		if tok.Kind == TokenEndOfFile {
			return tokens
		}
	}
}

// Unquote strips the quotes of a String token and decodes the escape
// sequences \r, \n, \t, \\ and \". Unknown escapes are kept verbatim.
func Unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			sb.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'r':
			sb.WriteByte('\r')
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case '\\':
			sb.WriteByte('\\')
		case '"':
			sb.WriteByte('"')
		default:
			sb.WriteByte('\\')
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}
