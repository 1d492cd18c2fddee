// Package fx provides parsing of the toolkit effect (.fx) language.
package fx

import "fmt"

// TokenKind represents the type of token.
type TokenKind uint8

const (
	TokenEndOfFile TokenKind = iota
	TokenError

	// Literals
	TokenIdentifier
	TokenNumber
	TokenHexa
	TokenString

	// Layout
	TokenNewline
	TokenPreprocessor

	// Punctuation
	TokenLeftParent      // (
	TokenRightParent     // )
	TokenLeftBracket     // [
	TokenRightBracket    // ]
	TokenLeftCurlyBrace  // {
	TokenRightCurlyBrace // }
	TokenEqual           // =
	TokenComma           // ,
	TokenSemiColon       // ;
	TokenLessThan        // <
	TokenGreaterThan     // >
	TokenDoubleColon     // ::
	TokenDot             // .
)

// String returns the string representation of the token kind.
func (k TokenKind) String() string {
	switch k {
	case TokenEndOfFile:
		return "EOF"
	case TokenError:
		return "Error"
	case TokenIdentifier:
		return "Identifier"
	case TokenNumber:
		return "Number"
	case TokenHexa:
		return "Hexa"
	case TokenString:
		return "String"
	case TokenNewline:
		return "Newline"
	case TokenPreprocessor:
		return "Preprocessor"
	case TokenLeftParent:
		return "("
	case TokenRightParent:
		return ")"
	case TokenLeftBracket:
		return "["
	case TokenRightBracket:
		return "]"
	case TokenLeftCurlyBrace:
		return "{"
	case TokenRightCurlyBrace:
		return "}"
	case TokenEqual:
		return "="
	case TokenComma:
		return ","
	case TokenSemiColon:
		return ";"
	case TokenLessThan:
		return "<"
	case TokenGreaterThan:
		return ">"
	case TokenDoubleColon:
		return "::"
	case TokenDot:
		return "."
	default:
		return "Unknown"
	}
}

// Token represents a lexical token.
type Token struct {
	Kind  TokenKind
	Value string
	Span  Span
}

// String formats the token for diagnostics.
func (t Token) String() string {
	if t.Kind == TokenEndOfFile {
		return "end of file"
	}
	return fmt.Sprintf("%s %q", t.Kind, t.Value)
}

// Span locates a token in source. It never affects semantics.
type Span struct {
	File   string
	Line   int
	Column int
	Offset int
	Length int
}

// String formats the span as file(line,column), the usual HLSL tool layout.
func (s Span) String() string {
	if s.Line == 0 {
		return s.File
	}
	return fmt.Sprintf("%s(%d,%d)", s.File, s.Line, s.Column)
}
