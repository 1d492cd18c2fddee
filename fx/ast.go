package fx

import "strconv"

// Shader is the root of a parsed effect file: its technique blocks.
// HLSL code outside techniques is not represented.
type Shader struct {
	Techniques []*Technique
}

// Technique represents a technique block.
type Technique struct {
	Name   string // empty when anonymous
	Passes []*Pass
	Span   Span
}

// Pass represents a pass block inside a technique.
type Pass struct {
	Name       string // empty when anonymous
	Statements []*Statement
	Span       Span
}

// Statement is a single expression terminated by ';'.
type Statement struct {
	Expr Expr
	Span Span
}

// Node is the base interface for all AST nodes.
type Node interface {
	Pos() Span
}

// Expr is the interface for expressions.
type Expr interface {
	Node
	exprNode()
}

// LiteralKind identifies the type held by a Literal.
type LiteralKind uint8

const (
	LiteralNull LiteralKind = iota
	LiteralBool
	LiteralInt
	LiteralFloat
	LiteralString
)

// Literal is a constant value: bool, int, float, string or null.
type Literal struct {
	Kind   LiteralKind
	Bool   bool
	Int    int64
	Float  float64
	String string
}

// Text returns the literal formatted as source text.
func (l Literal) Text() string {
	switch l.Kind {
	case LiteralBool:
		return strconv.FormatBool(l.Bool)
	case LiteralInt:
		return strconv.FormatInt(l.Int, 10)
	case LiteralFloat:
		return strconv.FormatFloat(l.Float, 'g', -1, 64)
	case LiteralString:
		return strconv.Quote(l.String)
	default:
		return "null"
	}
}

// IsZero reports whether the literal is null or the integer 0, the two
// spellings of "no shader".
func (l Literal) IsZero() bool {
	return l.Kind == LiteralNull || (l.Kind == LiteralInt && l.Int == 0)
}

// LiteralExpr represents a literal value.
type LiteralExpr struct {
	Value Literal
	Span  Span
}

func (e *LiteralExpr) Pos() Span { return e.Span }
func (e *LiteralExpr) exprNode() {}

// IdentifierExpr represents a possibly qualified name (a::b::c).
// Indirect is set for the <name> form resolved later against exports.
type IdentifierExpr struct {
	Name     string
	Indirect bool
	Span     Span
}

func (e *IdentifierExpr) Pos() Span { return e.Span }
func (e *IdentifierExpr) exprNode() {}

// IndexedIdentifierExpr represents name[index].
type IndexedIdentifierExpr struct {
	Name  string
	Index int
	Span  Span
}

func (e *IndexedIdentifierExpr) Pos() Span { return e.Span }
func (e *IndexedIdentifierExpr) exprNode() {}

// ArrayInitializerExpr represents (a, b, c) or {a, b, c}.
type ArrayInitializerExpr struct {
	Values []Expr
	Span   Span
}

func (e *ArrayInitializerExpr) Pos() Span { return e.Span }
func (e *ArrayInitializerExpr) exprNode() {}

// MethodExpr represents name(args...).
type MethodExpr struct {
	Name string
	Args []Expr
	Span Span
}

func (e *MethodExpr) Pos() Span { return e.Span }
func (e *MethodExpr) exprNode() {}

// AssignExpr represents name = value or name[index] = value.
// Index is -1 when the target is not indexed.
type AssignExpr struct {
	Name  string
	Index int
	Value Expr
	Span  Span
}

func (e *AssignExpr) Pos() Span { return e.Span }
func (e *AssignExpr) exprNode() {}

// Target returns the assigned name including its index, e.g. "BlendEnable[1]".
func (e *AssignExpr) Target() string {
	if e.Index < 0 {
		return e.Name
	}
	return e.Name + "[" + strconv.Itoa(e.Index) + "]"
}

// CompileExpr represents compile <profile> <method>.
type CompileExpr struct {
	Profile string
	Method  Expr
	Span    Span
}

func (e *CompileExpr) Pos() Span { return e.Span }
func (e *CompileExpr) exprNode() {}
