package filter

import (
	"strings"
	"time"

	"github.com/sharethrift/searchindex/internal/schema"
)

// Filter is a compiled filter expression.
type Filter struct {
	source string
	expr   Expr
}

// Compile parses src into a Filter.
func Compile(src string) (*Filter, error) {
	expr, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return &Filter{source: src, expr: expr}, nil
}

// String returns the source expression.
func (f *Filter) String() string {
	return f.source
}

// Match reports whether doc satisfies the filter.
func (f *Filter) Match(doc map[string]any) bool {
	return Evaluate(f.expr, doc)
}

// Evaluate reports whether doc satisfies expr.
// Comparisons between values of different types are false.
// A comparison against a collection holds if it holds for any element.
func Evaluate(expr Expr, doc map[string]any) bool {
	switch e := expr.(type) {
	case Logical:
		if e.Op == OpAnd {
			return Evaluate(e.Left, doc) && Evaluate(e.Right, doc)
		}
		return Evaluate(e.Left, doc) || Evaluate(e.Right, doc)

	case Not:
		return !Evaluate(e.Inner, doc)

	case Comparison:
		v, found := schema.ResolvePath(doc, e.Field)
		if e.Literal.Kind == LitNull {
			isNull := !found || v == nil
			if e.Op == OpEq {
				return isNull
			}
			return !isNull
		}
		if !found || v == nil {
			return false
		}
		return anyElement(v, func(item any) bool {
			return compare(item, e.Op, e.Literal)
		})

	case Call:
		field := e.Args[0].(FieldRef)
		lit := e.Args[1].(Literal)
		v, found := schema.ResolvePath(doc, field.Path)
		if !found {
			return false
		}
		return anyElement(v, func(item any) bool {
			s, ok := item.(string)
			if !ok {
				return false
			}
			switch e.Name {
			case "contains":
				return strings.Contains(s, lit.Str)
			case "startswith":
				return strings.HasPrefix(s, lit.Str)
			case "endswith":
				return strings.HasSuffix(s, lit.Str)
			}
			return false
		})
	}

	return false
}

func anyElement(v any, pred func(any) bool) bool {
	items, ok := schema.AsSlice(v)
	if !ok {
		return pred(v)
	}
	for _, item := range items {
		if item != nil && pred(item) {
			return true
		}
	}
	return false
}

// compare applies op to value and lit. Type mismatches are false.
func compare(value any, op CompareOp, lit Literal) bool {
	switch lit.Kind {
	case LitString:
		if s, ok := value.(string); ok {
			return ordered(strings.Compare(s, lit.Str), op)
		}
		if t, ok := value.(time.Time); ok {
			if lt, ok := schema.ParseTime(lit.Str); ok {
				return ordered(t.Compare(lt), op)
			}
		}
		return false

	case LitNumber:
		n, ok := schema.ToFloat64(value)
		if !ok {
			return false
		}
		switch {
		case n < lit.Num:
			return ordered(-1, op)
		case n > lit.Num:
			return ordered(1, op)
		default:
			return ordered(0, op)
		}

	case LitBool:
		b, ok := value.(bool)
		if !ok {
			return false
		}
		switch op {
		case OpEq:
			return b == lit.Bool
		case OpNe:
			return b != lit.Bool
		}
		return false

	case LitTime:
		t, ok := schema.ToTime(value)
		if !ok {
			return false
		}
		return ordered(t.Compare(lit.Time), op)
	}

	return false
}

func ordered(c int, op CompareOp) bool {
	switch op {
	case OpEq:
		return c == 0
	case OpNe:
		return c != 0
	case OpGt:
		return c > 0
	case OpGe:
		return c >= 0
	case OpLt:
		return c < 0
	case OpLe:
		return c <= 0
	}
	return false
}
