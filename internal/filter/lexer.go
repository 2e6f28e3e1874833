package filter

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/sharethrift/searchindex/internal/schema"
)

// Token represents a lexical token.
type Token struct {
	Kind  TokenKind
	Value string
	Num   float64
	Time  time.Time
	Pos   int
}

// TokenKind is the type of token.
type TokenKind int

const (
	TokIdent TokenKind = iota
	TokString
	TokNumber
	TokTime
	TokLParen
	TokRParen
	TokComma
	TokEOF
)

func (k TokenKind) String() string {
	switch k {
	case TokIdent:
		return "Ident"
	case TokString:
		return "String"
	case TokNumber:
		return "Number"
	case TokTime:
		return "Time"
	case TokLParen:
		return "LParen"
	case TokRParen:
		return "RParen"
	case TokComma:
		return "Comma"
	case TokEOF:
		return "EOF"
	default:
		return "Unknown"
	}
}

func (t Token) String() string {
	switch t.Kind {
	case TokEOF:
		return "end of filter"
	case TokString:
		return fmt.Sprintf("'%s'", t.Value)
	default:
		return fmt.Sprintf("%q", t.Value)
	}
}

type lexer struct {
	input []rune
	pos   int
}

// Lex tokenizes the entire filter expression.
func Lex(input string) ([]Token, error) {
	l := &lexer{input: []rune(input)}
	var tokens []Token

	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Kind == TokEOF {
			return tokens, nil
		}
	}
}

func (l *lexer) next() (Token, error) {
	for l.pos < len(l.input) && unicode.IsSpace(l.input[l.pos]) {
		l.pos++
	}
	start := l.pos

	if l.pos >= len(l.input) {
		return Token{Kind: TokEOF, Pos: start}, nil
	}

	ch := l.input[l.pos]
	switch ch {
	case '(':
		l.pos++
		return Token{Kind: TokLParen, Value: "(", Pos: start}, nil
	case ')':
		l.pos++
		return Token{Kind: TokRParen, Value: ")", Pos: start}, nil
	case ',':
		l.pos++
		return Token{Kind: TokComma, Value: ",", Pos: start}, nil
	case '\'':
		return l.scanString()
	}

	if unicode.IsDigit(ch) || (ch == '-' && unicode.IsDigit(l.peek(1))) {
		return l.scanNumberOrTime()
	}

	if isIdentStart(ch) {
		for l.pos < len(l.input) && isIdentChar(l.input[l.pos]) {
			l.pos++
		}
		return Token{Kind: TokIdent, Value: string(l.input[start:l.pos]), Pos: start}, nil
	}

	return Token{}, fmt.Errorf("unexpected character %q at position %d", ch, start)
}

func (l *lexer) peek(offset int) rune {
	if p := l.pos + offset; p < len(l.input) {
		return l.input[p]
	}
	return 0
}

// scanString reads a single-quoted literal. Two quotes in a row stand for one.
func (l *lexer) scanString() (Token, error) {
	start := l.pos
	l.pos++
	var sb strings.Builder

	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == '\'' {
			if l.peek(1) == '\'' {
				sb.WriteRune('\'')
				l.pos += 2
				continue
			}
			l.pos++
			return Token{Kind: TokString, Value: sb.String(), Pos: start}, nil
		}
		sb.WriteRune(ch)
		l.pos++
	}

	return Token{}, fmt.Errorf("unterminated string starting at position %d", start)
}

// scanNumberOrTime reads a numeric literal or an unquoted date / RFC 3339 timestamp.
func (l *lexer) scanNumberOrTime() (Token, error) {
	start := l.pos
	l.pos++
	for l.pos < len(l.input) && isLiteralChar(l.input[l.pos]) {
		l.pos++
	}
	text := string(l.input[start:l.pos])

	if n, err := strconv.ParseFloat(text, 64); err == nil {
		return Token{Kind: TokNumber, Value: text, Num: n, Pos: start}, nil
	}
	if t, ok := schema.ParseTime(text); ok {
		return Token{Kind: TokTime, Value: text, Time: t, Pos: start}, nil
	}
	return Token{}, fmt.Errorf("invalid literal %q at position %d", text, start)
}

func isIdentStart(ch rune) bool {
	return unicode.IsLetter(ch) || ch == '_'
}

func isIdentChar(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_' || ch == '.' || ch == '/'
}

func isLiteralChar(ch rune) bool {
	return unicode.IsDigit(ch) || unicode.IsLetter(ch) || ch == '.' || ch == '-' || ch == '+' || ch == ':'
}
