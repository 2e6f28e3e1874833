package filter

import "time"

// Expr is a node of a parsed filter expression.
type Expr interface {
	isExpr()
}

// CompareOp is a comparison operator.
type CompareOp string

const (
	OpEq CompareOp = "eq"
	OpNe CompareOp = "ne"
	OpGt CompareOp = "gt"
	OpGe CompareOp = "ge"
	OpLt CompareOp = "lt"
	OpLe CompareOp = "le"
)

// LogicalOp is a boolean connective.
type LogicalOp string

const (
	OpAnd LogicalOp = "and"
	OpOr  LogicalOp = "or"
)

// Comparison compares the value at Field with Literal.
type Comparison struct {
	Field   string
	Op      CompareOp
	Literal Literal
}

func (Comparison) isExpr() {}

// Logical combines two expressions.
type Logical struct {
	Op    LogicalOp
	Left  Expr
	Right Expr
}

func (Logical) isExpr() {}

// Not negates an expression.
type Not struct {
	Inner Expr
}

func (Not) isExpr() {}

// Call is a string function: contains, startswith or endswith.
type Call struct {
	Name string
	Args []Operand
}

func (Call) isExpr() {}

// Operand is a function argument.
type Operand interface {
	isOperand()
}

// FieldRef is a dot-separated path into the document.
type FieldRef struct {
	Path string
}

func (FieldRef) isOperand() {}

// LiteralKind is the type of a literal.
type LiteralKind int

const (
	LitString LiteralKind = iota
	LitNumber
	LitBool
	LitNull
	LitTime
)

func (k LiteralKind) String() string {
	switch k {
	case LitString:
		return "string"
	case LitNumber:
		return "number"
	case LitBool:
		return "boolean"
	case LitNull:
		return "null"
	case LitTime:
		return "datetime"
	default:
		return "unknown"
	}
}

// Literal is a constant value.
type Literal struct {
	Kind LiteralKind
	Str  string
	Num  float64
	Bool bool
	Time time.Time
}

func (Literal) isOperand() {}

// functions holds the supported function names and their arity.
var functions = map[string]int{
	"contains":   2,
	"startswith": 2,
	"endswith":   2,
}
