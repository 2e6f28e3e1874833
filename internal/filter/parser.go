// Package filter parses and evaluates OData-style boolean filter expressions
// such as "category eq 'tools' and price lt 50".
package filter

import (
	"fmt"
	"strings"

	serrors "github.com/sharethrift/searchindex/internal/errors"
)

// Parse parses a filter string into an expression tree.
// Errors carry code ERR_404_MALFORMED_FILTER.
func Parse(input string) (Expr, error) {
	tokens, err := Lex(input)
	if err != nil {
		return nil, malformed(input, err.Error())
	}

	p := &parser{input: input, tokens: tokens}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.match(TokEOF) {
		return nil, p.errorf("unexpected %s at position %d", p.current(), p.current().Pos)
	}
	return expr, nil
}

func malformed(input, msg string) error {
	return serrors.New(serrors.ErrCodeMalformedFilter, "malformed filter: "+msg, nil).
		WithDetail("filter", input)
}

type parser struct {
	input  string
	tokens []Token
	pos    int
}

func (p *parser) errorf(format string, args ...any) error {
	return malformed(p.input, fmt.Sprintf(format, args...))
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.matchKeyword("or") {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = Logical{Op: OpOr, Left: left, Right: right}
	}

	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}

	for p.matchKeyword("and") {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = Logical{Op: OpAnd, Left: left, Right: right}
	}

	return left, nil
}

func (p *parser) parseNot() (Expr, error) {
	if p.matchKeyword("not") {
		p.advance()
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return Not{Inner: inner}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, error) {
	tok := p.current()

	switch tok.Kind {
	case TokLParen:
		p.advance()
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if !p.match(TokRParen) {
			return nil, p.errorf("expected ')' at position %d, got %s", p.current().Pos, p.current())
		}
		p.advance()
		return expr, nil

	case TokIdent:
		if isReserved(tok.Value) {
			return nil, p.errorf("unexpected keyword %s at position %d", tok, tok.Pos)
		}
		p.advance()
		if p.match(TokLParen) {
			return p.parseCall(tok)
		}
		return p.parseComparison(tok)

	case TokEOF:
		return nil, p.errorf("unexpected end of filter")

	default:
		return nil, p.errorf("expected field or function at position %d, got %s", tok.Pos, tok)
	}
}

func (p *parser) parseComparison(field Token) (Expr, error) {
	opTok := p.current()
	if opTok.Kind != TokIdent {
		return nil, p.errorf("expected comparison operator after %s, got %s", field, opTok)
	}
	op := CompareOp(strings.ToLower(opTok.Value))
	switch op {
	case OpEq, OpNe, OpGt, OpGe, OpLt, OpLe:
	default:
		return nil, p.errorf("unknown operator %s at position %d", opTok, opTok.Pos)
	}
	p.advance()

	lit, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}
	if lit.Kind == LitNull && op != OpEq && op != OpNe {
		return nil, p.errorf("null can only be compared with eq or ne")
	}

	return Comparison{Field: normalizePath(field.Value), Op: op, Literal: lit}, nil
}

func (p *parser) parseCall(name Token) (Expr, error) {
	fn := strings.ToLower(name.Value)
	arity, ok := functions[fn]
	if !ok {
		return nil, p.errorf("unknown function %s at position %d", name, name.Pos)
	}
	p.advance() // (

	var args []Operand
	for !p.match(TokRParen) {
		if len(args) > 0 {
			if !p.match(TokComma) {
				return nil, p.errorf("expected ',' or ')' in %s(), got %s", fn, p.current())
			}
			p.advance()
		}
		arg, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	p.advance() // )

	if len(args) != arity {
		return nil, p.errorf("%s() takes %d arguments, got %d", fn, arity, len(args))
	}
	if _, ok := args[0].(FieldRef); !ok {
		return nil, p.errorf("%s() first argument must be a field", fn)
	}
	if lit, ok := args[1].(Literal); !ok || lit.Kind != LitString {
		return nil, p.errorf("%s() second argument must be a string literal", fn)
	}

	return Call{Name: fn, Args: args}, nil
}

func (p *parser) parseOperand() (Operand, error) {
	tok := p.current()
	if tok.Kind == TokIdent && !isLiteralKeyword(tok.Value) {
		if isReserved(tok.Value) {
			return nil, p.errorf("unexpected keyword %s at position %d", tok, tok.Pos)
		}
		p.advance()
		return FieldRef{Path: normalizePath(tok.Value)}, nil
	}
	return p.parseLiteral()
}

func (p *parser) parseLiteral() (Literal, error) {
	tok := p.current()

	switch tok.Kind {
	case TokString:
		p.advance()
		return Literal{Kind: LitString, Str: tok.Value}, nil
	case TokNumber:
		p.advance()
		return Literal{Kind: LitNumber, Num: tok.Num}, nil
	case TokTime:
		p.advance()
		return Literal{Kind: LitTime, Time: tok.Time}, nil
	case TokIdent:
		switch strings.ToLower(tok.Value) {
		case "true":
			p.advance()
			return Literal{Kind: LitBool, Bool: true}, nil
		case "false":
			p.advance()
			return Literal{Kind: LitBool, Bool: false}, nil
		case "null":
			p.advance()
			return Literal{Kind: LitNull}, nil
		}
	case TokEOF:
		return Literal{}, p.errorf("expected literal, got end of filter")
	}

	return Literal{}, p.errorf("expected literal at position %d, got %s", tok.Pos, tok)
}

func (p *parser) current() Token {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return Token{Kind: TokEOF}
}

func (p *parser) advance() {
	if p.pos < len(p.tokens) {
		p.pos++
	}
}

func (p *parser) match(kind TokenKind) bool {
	return p.current().Kind == kind
}

func (p *parser) matchKeyword(kw string) bool {
	tok := p.current()
	return tok.Kind == TokIdent && strings.EqualFold(tok.Value, kw)
}

func isLiteralKeyword(s string) bool {
	switch strings.ToLower(s) {
	case "true", "false", "null":
		return true
	}
	return false
}

func isReserved(s string) bool {
	switch strings.ToLower(s) {
	case "and", "or", "not", "eq", "ne", "gt", "ge", "lt", "le", "true", "false", "null":
		return true
	}
	return false
}

// normalizePath accepts "/" as a path separator.
func normalizePath(path string) string {
	return strings.ReplaceAll(path, "/", ".")
}
