package fx

import (
	"strconv"
	"strings"

	"github.com/dlclark/regexp2"
)

// ParseResult holds the AST and the diagnostics of one parse. Shader is
// never nil; callers check Diagnostics.HasErrors before using it.
type ParseResult struct {
	Shader      *Shader
	Diagnostics Diagnostics
}

type bracketKind uint8

const (
	bracketParen bracketKind = iota
	bracketSquare
	bracketCurly
	bracketKinds
)

// bracketState counts open brackets of one kind and remembers the last
// opening token for the unmatched-bracket diagnostic.
type bracketState struct {
	depth int
	last  Token
}

// Parser parses effect source into an AST.
//
// Tokens are pulled lazily from a Tokenizer into a lookahead buffer.
// Newline tokens are dropped, #line directives are applied to the spans of
// the tokens that follow them.
type Parser struct {
	tz       *Tokenizer
	buf      []Token
	diags    Diagnostics
	file     string
	lineFix  int
	brackets [bracketKinds]bracketState
}

// NewParser creates a parser for preprocessed source. file names the
// source until a #line directive says otherwise.
func NewParser(source, file string) *Parser {
	return &Parser{
		tz:   NewTokenizer(source, file),
		file: file,
	}
}

// Parse parses preprocessed effect source.
func Parse(source, file string) *ParseResult {
	return NewParser(source, file).Parse()
}

// Parse scans the whole input and returns the techniques found at brace
// depth zero. Everything else at top level is skipped.
func (p *Parser) Parse() *ParseResult {
	shader := &Shader{}

	for !p.isAtEnd() {
		tok := p.peek()
		if tok.Kind == TokenIdentifier && p.brackets[bracketCurly].depth == 0 && isTechniqueKeyword(tok.Value) {
			if tech := p.technique(); tech != nil {
				shader.Techniques = append(shader.Techniques, tech)
			}
			continue
		}
		p.advance()
	}

	p.checkBalance()

	return &ParseResult{Shader: shader, Diagnostics: p.diags}
}

func isTechniqueKeyword(s string) bool {
	return s == "technique" || s == "technique10" || s == "technique11"
}

// technique parses: 'technique' name? annotations? '{' pass* '}'
func (p *Parser) technique() *Technique {
	start := p.advance()
	tech := &Technique{Span: start.Span}

	if p.check(TokenIdentifier) {
		tech.Name = p.advance().Value
	}
	p.annotations()

	depth := p.curlyDepth()
	if err := p.expect(TokenLeftCurlyBrace, "to open technique"); err != nil {
		p.diags.Add(err)
		return nil
	}

	for !p.check(TokenRightCurlyBrace) && !p.isAtEnd() {
		if p.checkIdent("pass") {
			if pass := p.pass(); pass != nil {
				tech.Passes = append(tech.Passes, pass)
			}
			continue
		}
		p.diags.Add(p.errorAt(p.peek(), "unexpected %s in technique, expected 'pass'", p.peek()))
		p.skipBlock(depth)
		return nil
	}

	if err := p.expect(TokenRightCurlyBrace, "to close technique"); err != nil {
		p.diags.Add(err)
		return nil
	}
	return tech
}

// pass parses: 'pass' name? annotations? '{' statement* '}'
func (p *Parser) pass() *Pass {
	start := p.advance()
	pass := &Pass{Span: start.Span}

	if p.check(TokenIdentifier) {
		pass.Name = p.advance().Value
	}
	p.annotations()

	if err := p.expect(TokenLeftCurlyBrace, "to open pass"); err != nil {
		p.diags.Add(err)
		return nil
	}
	depth := p.curlyDepth()

	for !p.check(TokenRightCurlyBrace) && !p.isAtEnd() {
		stmt, err := p.statement()
		if err != nil {
			p.diags.Add(err)
			p.recoverStatement(depth)
			continue
		}
		pass.Statements = append(pass.Statements, stmt)
	}

	if err := p.expect(TokenRightCurlyBrace, "to close pass"); err != nil {
		p.diags.Add(err)
		return nil
	}
	return pass
}

// annotations skips an optional <...> annotation block.
func (p *Parser) annotations() {
	if !p.check(TokenLessThan) {
		return
	}
	p.advance()
	nesting := 1
	for nesting > 0 && !p.isAtEnd() {
		switch p.advance().Kind {
		case TokenLessThan:
			nesting++
		case TokenGreaterThan:
			nesting--
		}
	}
}

// statement parses: expression ';'
func (p *Parser) statement() (*Statement, *Diagnostic) {
	start := p.peek()
	expr, err := p.expression()
	if err != nil {
		return nil, err
	}
	if err := p.expect(TokenSemiColon, "after statement"); err != nil {
		return nil, err
	}
	return &Statement{Expr: expr, Span: start.Span}, nil
}

// expression parses any expression allowed in statement or value position.
func (p *Parser) expression() (Expr, *Diagnostic) {
	tok := p.peek()

	switch tok.Kind {
	case TokenIdentifier:
		switch tok.Value {
		case "compile":
			return p.compileExpr()
		case "true", "TRUE":
			p.advance()
			return &LiteralExpr{Value: Literal{Kind: LiteralBool, Bool: true}, Span: tok.Span}, nil
		case "false", "FALSE":
			p.advance()
			return &LiteralExpr{Value: Literal{Kind: LiteralBool}, Span: tok.Span}, nil
		case "null", "NULL":
			p.advance()
			return &LiteralExpr{Value: Literal{Kind: LiteralNull}, Span: tok.Span}, nil
		}
		return p.identifierExpr()

	case TokenNumber:
		p.advance()
		lit, ok := parseNumber(tok.Value)
		if !ok {
			return nil, p.errorAt(tok, "invalid number %q", tok.Value)
		}
		return &LiteralExpr{Value: lit, Span: tok.Span}, nil

	case TokenHexa:
		p.advance()
		v, err := strconv.ParseUint(tok.Value[2:], 16, 64)
		if err != nil {
			return nil, p.errorAt(tok, "invalid hexadecimal number %q", tok.Value)
		}
		return &LiteralExpr{Value: Literal{Kind: LiteralInt, Int: int64(v)}, Span: tok.Span}, nil

	case TokenString:
		p.advance()
		return &LiteralExpr{Value: Literal{Kind: LiteralString, String: Unquote(tok.Value)}, Span: tok.Span}, nil

	case TokenLeftParent, TokenLeftCurlyBrace:
		return p.arrayInitializer()

	case TokenLessThan:
		return nil, p.errorAt(tok, "indirect reference <...> is only allowed as a method argument")

	case TokenError:
		return nil, p.errorAt(tok, "unrecognized character %q", tok.Value)

	default:
		return nil, p.errorAt(tok, "unexpected %s, expected expression", tok)
	}
}

// identifierExpr parses a name and decides between reference, indexed
// reference, method call and assignment from the token that follows.
func (p *Parser) identifierExpr() (Expr, *Diagnostic) {
	start := p.peek()
	name, err := p.qualifiedName()
	if err != nil {
		return nil, err
	}

	index := -1
	if p.check(TokenLeftBracket) {
		index, err = p.index()
		if err != nil {
			return nil, err
		}
	}

	switch {
	case p.check(TokenLeftParent):
		if index >= 0 {
			return nil, p.errorAt(p.peek(), "indexed name %s[%d] cannot be called", name, index)
		}
		return p.methodExpr(name, start)

	case p.check(TokenEqual):
		p.advance()
		value, err := p.expression()
		if err != nil {
			return nil, err
		}
		return &AssignExpr{Name: name, Index: index, Value: value, Span: start.Span}, nil
	}

	if index >= 0 {
		return &IndexedIdentifierExpr{Name: name, Index: index, Span: start.Span}, nil
	}
	return &IdentifierExpr{Name: name, Span: start.Span}, nil
}

// qualifiedName parses: name (sep name)* where every sep is the same
// token kind, either '::' or '.'.
func (p *Parser) qualifiedName() (string, *Diagnostic) {
	first := p.advance()
	if first.Kind != TokenIdentifier {
		return "", p.errorAt(first, "expected identifier, got %s", first)
	}

	var sb strings.Builder
	sb.WriteString(first.Value)
	sep := TokenEndOfFile
	for p.check(TokenDoubleColon) || p.check(TokenDot) {
		s := p.advance()
		if sep != TokenEndOfFile && s.Kind != sep {
			return "", p.errorAt(s, "mixed separators '%s' and '%s' in qualified name %s", sep, s.Kind, sb.String())
		}
		sep = s.Kind
		if !p.check(TokenIdentifier) {
			return "", p.errorAt(p.peek(), "expected identifier after '%s', got %s", s.Value, p.peek())
		}
		sb.WriteString(s.Value)
		sb.WriteString(p.advance().Value)
	}
	return sb.String(), nil
}

// index parses: '[' integerLiteral ']'
func (p *Parser) index() (int, *Diagnostic) {
	p.advance()
	tok := p.peek()
	if tok.Kind != TokenNumber {
		return -1, p.errorAt(tok, "array index must be a non-negative integer literal, got %s", tok)
	}
	v, err := strconv.Atoi(tok.Value)
	if err != nil || v < 0 {
		return -1, p.errorAt(tok, "array index must be a non-negative integer literal, got %q", tok.Value)
	}
	p.advance()
	if err := p.expect(TokenRightBracket, "to close index"); err != nil {
		return -1, err
	}
	return v, nil
}

// methodExpr parses: '(' (argument (',' argument)*)? ')'
func (p *Parser) methodExpr(name string, start Token) (Expr, *Diagnostic) {
	p.advance()

	var args []Expr
	if !p.check(TokenRightParent) {
		for {
			arg, err := p.argument()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if !p.match(TokenComma) {
				break
			}
		}
	}

	if err := p.expect(TokenRightParent, "to close argument list of "+name); err != nil {
		return nil, err
	}
	return &MethodExpr{Name: name, Args: args, Span: start.Span}, nil
}

// argument parses a method argument, the one place where the indirect
// <name> form is legal.
func (p *Parser) argument() (Expr, *Diagnostic) {
	if !p.check(TokenLessThan) {
		return p.expression()
	}
	open := p.advance()
	if !p.check(TokenIdentifier) {
		return nil, p.errorAt(p.peek(), "expected identifier after '<', got %s", p.peek())
	}
	name, err := p.qualifiedName()
	if err != nil {
		return nil, err
	}
	if err := p.expect(TokenGreaterThan, "to close indirect reference"); err != nil {
		return nil, err
	}
	return &IdentifierExpr{Name: name, Indirect: true, Span: open.Span}, nil
}

// arrayInitializer parses: ('(' | '{') (expression (',' expression)*)? (')' | '}')
func (p *Parser) arrayInitializer() (Expr, *Diagnostic) {
	open := p.advance()
	closing := TokenRightParent
	if open.Kind == TokenLeftCurlyBrace {
		closing = TokenRightCurlyBrace
	}

	var values []Expr
	for !p.check(closing) {
		value, err := p.expression()
		if err != nil {
			return nil, err
		}
		values = append(values, value)
		if !p.match(TokenComma) {
			break
		}
	}

	if err := p.expect(closing, "to close array initializer"); err != nil {
		return nil, err
	}
	return &ArrayInitializerExpr{Values: values, Span: open.Span}, nil
}

// compileExpr parses: 'compile' profile expression
func (p *Parser) compileExpr() (Expr, *Diagnostic) {
	start := p.advance()
	if !p.check(TokenIdentifier) {
		return nil, p.errorAt(p.peek(), "expected shader profile after 'compile', got %s", p.peek())
	}
	profile := p.advance().Value

	method, err := p.expression()
	if err != nil {
		return nil, err
	}
	return &CompileExpr{Profile: profile, Method: method, Span: start.Span}, nil
}

// parseNumber converts a Number token to an int or float literal.
// An f/h suffix forces a float; an l suffix is dropped.
func parseNumber(text string) (Literal, bool) {
	forceFloat := false
	switch text[len(text)-1] {
	case 'f', 'F', 'h', 'H':
		forceFloat = true
		text = text[:len(text)-1]
	case 'l', 'L':
		text = text[:len(text)-1]
	}

	if !forceFloat && !strings.ContainsAny(text, ".eE") {
		if v, err := strconv.ParseInt(text, 10, 64); err == nil {
			return Literal{Kind: LiteralInt, Int: v}, true
		}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Literal{}, false
	}
	return Literal{Kind: LiteralFloat, Float: f}, true
}

// recoverStatement skips to the ';' ending the current statement, or stops
// in front of the '}' closing the pass at depth.
func (p *Parser) recoverStatement(depth int) {
	for !p.isAtEnd() {
		if p.curlyDepth() == depth {
			if p.check(TokenSemiColon) {
				p.advance()
				return
			}
			if p.check(TokenRightCurlyBrace) {
				return
			}
		}
		if p.curlyDepth() < depth {
			return
		}
		p.advance()
	}
}

// skipBlock consumes tokens until the curly brace depth drops back to depth.
func (p *Parser) skipBlock(depth int) {
	for !p.isAtEnd() {
		tok := p.advance()
		if tok.Kind == TokenRightCurlyBrace && p.curlyDepth() <= depth {
			return
		}
	}
}

// checkBalance reports one diagnostic per bracket kind left open at EOF.
func (p *Parser) checkBalance() {
	for _, s := range p.brackets {
		if s.depth > 0 {
			p.diags.Errorf(s.last.Span, "unmatched '%s': %d opening token(s) not closed at end of file", s.last.Value, s.depth)
		}
	}
}

func (p *Parser) curlyDepth() int {
	return p.brackets[bracketCurly].depth
}

// track updates bracket counters for a consumed token.
func (p *Parser) track(tok Token) {
	switch tok.Kind {
	case TokenLeftParent:
		p.open(bracketParen, tok)
	case TokenLeftBracket:
		p.open(bracketSquare, tok)
	case TokenLeftCurlyBrace:
		p.open(bracketCurly, tok)
	case TokenRightParent:
		p.close(bracketParen, tok)
	case TokenRightBracket:
		p.close(bracketSquare, tok)
	case TokenRightCurlyBrace:
		p.close(bracketCurly, tok)
	}
}

func (p *Parser) open(kind bracketKind, tok Token) {
	s := &p.brackets[kind]
	s.depth++
	s.last = tok
}

func (p *Parser) close(kind bracketKind, tok Token) {
	s := &p.brackets[kind]
	if s.depth == 0 {
		p.diags.Errorf(tok.Span, "unexpected '%s' without matching opening token", tok.Value)
		return
	}
	s.depth--
}

// peek returns the next token without consuming it.
func (p *Parser) peek() Token {
	if len(p.buf) == 0 {
		p.buf = append(p.buf, p.read())
	}
	return p.buf[0]
}

// advance consumes and returns the next token. At end of input it keeps
// returning EndOfFile.
func (p *Parser) advance() Token {
	tok := p.peek()
	if tok.Kind == TokenEndOfFile {
		return tok
	}
	p.buf = p.buf[1:]
	p.track(tok)
	return tok
}

// read pulls the next parser-visible token from the tokenizer.
func (p *Parser) read() Token {
	for {
		tok := p.tz.Next()
		switch tok.Kind {
		case TokenNewline:
			continue
		case TokenPreprocessor:
			p.directive(tok)
			continue
		}
		return p.remap(tok)
	}
}

// remap applies the active #line state to a physical token span.
func (p *Parser) remap(tok Token) Token {
	tok.Span.File = p.file
	if tok.Span.Line > 0 {
		tok.Span.Line += p.lineFix
	}
	return tok
}

// directive handles a preprocessor line. #line updates the span mapping,
// #pragma is left for the shader compiler, anything else is an error.
func (p *Parser) directive(tok Token) {
	if line, file, ok := ParseLineDirective(tok.Value); ok {
		p.lineFix = line - (tok.Span.Line + 1)
		if file != "" {
			p.file = file
		}
		return
	}
	name := DirectiveName(tok.Value)
	if name == "pragma" {
		return
	}
	p.diags.Errorf(p.remap(tok).Span, "unexpected preprocessor directive #%s, only #line is allowed after preprocessing", name)
}

func (p *Parser) isAtEnd() bool {
	return p.peek().Kind == TokenEndOfFile
}

func (p *Parser) check(kind TokenKind) bool {
	return p.peek().Kind == kind
}

func (p *Parser) checkIdent(name string) bool {
	tok := p.peek()
	return tok.Kind == TokenIdentifier && tok.Value == name
}

func (p *Parser) match(kind TokenKind) bool {
	if p.check(kind) {
		p.advance()
		return true
	}
	return false
}

// expect consumes a token of the given kind or returns a diagnostic.
func (p *Parser) expect(kind TokenKind, context string) *Diagnostic {
	if p.check(kind) {
		p.advance()
		return nil
	}
	return p.errorAt(p.peek(), "expected '%s' %s, got %s", kind, context, p.peek())
}

func (p *Parser) errorAt(tok Token, format string, args ...interface{}) *Diagnostic {
	var dl Diagnostics
	dl.Errorf(tok.Span, format, args...)
	return dl[0]
}

var lineDirective = regexp2.MustCompile(`^#\s*line\s+(?<line>\d+)(?:\s+"(?<file>(?:\\.|[^"\\])*)")?\s*$`, regexp2.None)

// ParseLineDirective parses `#line N "file"`. file is empty when the
// directive omits it.
func ParseLineDirective(text string) (line int, file string, ok bool) {
	m, err := lineDirective.FindStringMatch(strings.TrimSpace(text))
	if err != nil || m == nil {
		return 0, "", false
	}
	line, err = strconv.Atoi(m.GroupByName("line").String())
	if err != nil {
		return 0, "", false
	}
	return line, Unquote(`"` + m.GroupByName("file").String() + `"`), true
}

// DirectiveName returns the directive keyword of a preprocessor line,
// e.g. "include" for `#  include "a.fxh"`.
func DirectiveName(text string) string {
	text = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), "#"))
	end := strings.IndexFunc(text, func(r rune) bool {
		return !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	})
	if end < 0 {
		return text
	}
	return text[:end]
}
