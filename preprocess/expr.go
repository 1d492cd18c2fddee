package preprocess

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// condLexer tokenizes #if / #elif expressions after macro expansion.
var condLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[ \t\r\f\v]+`},
	{Name: "Number", Pattern: `0[xX][0-9a-fA-F]+[uUlL]*|[0-9]+[uUlL]*`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Op", Pattern: `&&|\|\||<<|>>|<=|>=|==|!=|[-+*/%<>!~&|^?:()]`},
})

var condWhitespace = condLexer.Symbols()["Whitespace"]

type condToken struct {
	kind  string
	value string
}

// evalCondition evaluates a fully macro-expanded #if expression. Remaining
// identifiers evaluate to 0.
func evalCondition(expr string) (int64, error) {
	toks, err := lexCondition(expr)
	if err != nil {
		return 0, err
	}
	if len(toks) == 0 {
		return 0, errors.New("#if with no expression")
	}
	e := &condEval{toks: toks}
	v, err := e.ternary()
	if err != nil {
		return 0, err
	}
	if e.pos < len(e.toks) {
		return 0, fmt.Errorf("unexpected %q in expression", e.toks[e.pos].value)
	}
	return v, nil
}

func lexCondition(expr string) ([]condToken, error) {
	lex, err := condLexer.Lex("", strings.NewReader(expr))
	if err != nil {
		return nil, err
	}
	symbols := condLexer.Symbols()
	names := make(map[lexer.TokenType]string, len(symbols))
	for name, typ := range symbols {
		names[typ] = name
	}

	var toks []condToken
	for {
		tok, err := lex.Next()
		if err != nil {
			return nil, fmt.Errorf("invalid character in expression: %w", err)
		}
		if tok.EOF() {
			return toks, nil
		}
		if tok.Type == condWhitespace {
			continue
		}
		toks = append(toks, condToken{kind: names[tok.Type], value: tok.Value})
	}
}

// condEval is a precedence-climbing evaluator over C integer expressions.
type condEval struct {
	toks []condToken
	pos  int
}

func (e *condEval) peekOp(op string) bool {
	return e.pos < len(e.toks) && e.toks[e.pos].kind == "Op" && e.toks[e.pos].value == op
}

func (e *condEval) acceptOp(ops ...string) (string, bool) {
	for _, op := range ops {
		if e.peekOp(op) {
			e.pos++
			return op, true
		}
	}
	return "", false
}

func (e *condEval) ternary() (int64, error) {
	cond, err := e.binary(0)
	if err != nil {
		return 0, err
	}
	if _, ok := e.acceptOp("?"); !ok {
		return cond, nil
	}
	a, err := e.ternary()
	if err != nil {
		return 0, err
	}
	if _, ok := e.acceptOp(":"); !ok {
		return 0, errors.New("expected ':' in conditional expression")
	}
	b, err := e.ternary()
	if err != nil {
		return 0, err
	}
	if cond != 0 {
		return a, nil
	}
	return b, nil
}

var binaryLevels = [][]string{
	{"||"},
	{"&&"},
	{"|"},
	{"^"},
	{"&"},
	{"==", "!="},
	{"<", ">", "<=", ">="},
	{"<<", ">>"},
	{"+", "-"},
	{"*", "/", "%"},
}

func (e *condEval) binary(level int) (int64, error) {
	if level == len(binaryLevels) {
		return e.unary()
	}
	lhs, err := e.binary(level + 1)
	if err != nil {
		return 0, err
	}
	for {
		op, ok := e.acceptOp(binaryLevels[level]...)
		if !ok {
			return lhs, nil
		}
		rhs, err := e.binary(level + 1)
		if err != nil {
			return 0, err
		}
		lhs, err = applyBinary(op, lhs, rhs)
		if err != nil {
			return 0, err
		}
	}
}

func applyBinary(op string, a, b int64) (int64, error) {
	switch op {
	case "||":
		return boolInt(a != 0 || b != 0), nil
	case "&&":
		return boolInt(a != 0 && b != 0), nil
	case "|":
		return a | b, nil
	case "^":
		return a ^ b, nil
	case "&":
		return a & b, nil
	case "==":
		return boolInt(a == b), nil
	case "!=":
		return boolInt(a != b), nil
	case "<":
		return boolInt(a < b), nil
	case ">":
		return boolInt(a > b), nil
	case "<=":
		return boolInt(a <= b), nil
	case ">=":
		return boolInt(a >= b), nil
	case "<<":
		return a << uint64(b&63), nil
	case ">>":
		return a >> uint64(b&63), nil
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	case "/", "%":
		if b == 0 {
			return 0, errors.New("division by zero in expression")
		}
		if op == "/" {
			return a / b, nil
		}
		return a % b, nil
	}
	return 0, fmt.Errorf("unknown operator %q", op)
}

func (e *condEval) unary() (int64, error) {
	if op, ok := e.acceptOp("!", "~", "-", "+"); ok {
		v, err := e.unary()
		if err != nil {
			return 0, err
		}
		switch op {
		case "!":
			return boolInt(v == 0), nil
		case "~":
			return ^v, nil
		case "-":
			return -v, nil
		}
		return v, nil
	}
	return e.primary()
}

func (e *condEval) primary() (int64, error) {
	if e.pos >= len(e.toks) {
		return 0, errors.New("unexpected end of expression")
	}
	tok := e.toks[e.pos]
	e.pos++

	switch tok.kind {
	case "Number":
		return parseCondNumber(tok.value)
	case "Ident":
		return 0, nil
	case "Op":
		if tok.value == "(" {
			v, err := e.ternary()
			if err != nil {
				return 0, err
			}
			if _, ok := e.acceptOp(")"); !ok {
				return 0, errors.New("missing ')' in expression")
			}
			return v, nil
		}
	}
	return 0, fmt.Errorf("unexpected %q in expression", tok.value)
}

func parseCondNumber(s string) (int64, error) {
	s = strings.TrimRight(s, "uUlL")
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q in expression", s)
	}
	return int64(v), nil
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
