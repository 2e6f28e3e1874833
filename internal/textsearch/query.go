package textsearch

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Occur says how a clause takes part in matching.
type Occur int

const (
	// Should clauses contribute to the score; in "all" mode they must match.
	Should Occur = iota
	// Must clauses are required ("+term").
	Must
	// MustNot clauses exclude matching documents ("-term").
	MustNot
)

// MatchKind is the way a clause is matched against index terms.
type MatchKind int

const (
	MatchExact MatchKind = iota
	MatchPrefix
	MatchFuzzy
)

// Clause is one term of a parsed query.
type Clause struct {
	// Raw is the lowercased term as typed, without markers.
	Raw string
	// Terms are the analysed index terms matched exactly. For a prefix
	// clause over a compound word they hold the leading parts.
	Terms []string
	// Stem is the analysed form of Raw used as a second prefix candidate.
	Stem      string
	Kind      MatchKind
	Fuzziness int
	Occur     Occur
	// Field restricts the clause to one searchable field. Empty means all.
	Field string
	Boost float64
}

// Query is a parsed free-text query.
type Query struct {
	Clauses []Clause
}

// positive reports whether the query has any clause that is not MustNot.
func (q Query) positive() bool {
	for _, c := range q.Clauses {
		if c.Occur != MustNot {
			return true
		}
	}
	return false
}

// MalformedQueryError describes why a query could not be parsed.
type MalformedQueryError struct {
	Query  string
	Token  string
	Reason string
}

func (e *MalformedQueryError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("malformed query %q: %s", e.Query, e.Reason)
	}
	return fmt.Sprintf("malformed query %q: %s in %q", e.Query, e.Reason, e.Token)
}

// ShouldAutoPrefix reports whether text gets an implicit trailing "*".
func ShouldAutoPrefix(text string) bool {
	return !strings.ContainsAny(text, "*~")
}

type queryParser struct {
	text          string
	analyzer      *Analyzer
	searchable    map[string]bool
	fuzzyDistance int
}

// ParseQuery parses text. searchable lists the fields a "field:" scope may
// name. When autoPrefix is set the last term becomes a prefix term.
func ParseQuery(text string, analyzer *Analyzer, searchable map[string]bool, fuzzyDistance int, autoPrefix bool) (Query, error) {
	p := &queryParser{
		text:          text,
		analyzer:      analyzer,
		searchable:    searchable,
		fuzzyDistance: fuzzyDistance,
	}

	tokens := strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || r == '"'
	})

	var q Query
	for i, tok := range tokens {
		clause, keep, err := p.parseClause(tok, autoPrefix && i == len(tokens)-1)
		if err != nil {
			return Query{}, err
		}
		if keep {
			q.Clauses = append(q.Clauses, clause)
		}
	}
	return q, nil
}

func (p *queryParser) fail(tok, reason string) error {
	return &MalformedQueryError{Query: p.text, Token: tok, Reason: reason}
}

// parseClause parses [+|-][field:]term[*|~N][^boost]. keep is false for a
// clause whose term analyses to nothing (a stop word). A prefix term that
// tokenizes into several parts matches the leading parts exactly and the
// last part as a prefix.
func (p *queryParser) parseClause(tok string, forcePrefix bool) (Clause, bool, error) {
	c := Clause{Boost: 1}
	rest := tok

	switch rest[0] {
	case '+':
		c.Occur = Must
		rest = rest[1:]
	case '-':
		c.Occur = MustNot
		rest = rest[1:]
	}
	if rest == "" {
		return c, false, p.fail(tok, "dangling operator")
	}

	if i := strings.IndexByte(rest, ':'); i >= 0 {
		field := rest[:i]
		rest = rest[i+1:]
		if field == "" {
			return c, false, p.fail(tok, "empty field scope")
		}
		if rest == "" {
			return c, false, p.fail(tok, "dangling field scope")
		}
		if !p.searchable[field] {
			return c, false, p.fail(tok, fmt.Sprintf("field %q is not searchable", field))
		}
		c.Field = field
	}

	if i := strings.LastIndexByte(rest, '^'); i >= 0 {
		boost, err := strconv.ParseFloat(rest[i+1:], 64)
		if err != nil || boost <= 0 {
			return c, false, p.fail(tok, "invalid boost")
		}
		c.Boost = boost
		rest = rest[:i]
	}

	if i := strings.LastIndexByte(rest, '~'); i >= 0 {
		c.Kind = MatchFuzzy
		c.Fuzziness = p.fuzzyDistance
		if n := rest[i+1:]; n != "" {
			d, err := strconv.Atoi(n)
			if err != nil || d < 0 || d > 2 {
				return c, false, p.fail(tok, "fuzzy distance must be 0, 1 or 2")
			}
			c.Fuzziness = d
		}
		rest = rest[:i]
	} else if strings.HasSuffix(rest, "*") || forcePrefix {
		c.Kind = MatchPrefix
		rest = strings.TrimRight(rest, "*")
	}

	if strings.ContainsAny(rest, "*~^") {
		return c, false, p.fail(tok, "misplaced operator")
	}
	if !strings.ContainsFunc(rest, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }) {
		return c, false, p.fail(tok, "term has no letters or digits")
	}

	c.Raw = strings.ToLower(rest)
	switch c.Kind {
	case MatchExact:
		c.Terms = p.analyzer.Terms(rest)
		if len(c.Terms) == 0 {
			return c, false, nil
		}
	case MatchPrefix:
		return p.prefixClause(c, rest)
	}

	return c, true, nil
}

func (p *queryParser) prefixClause(c Clause, term string) (Clause, bool, error) {
	parts := p.analyzer.Tokens(term)
	if len(parts) == 0 {
		return c, false, nil
	}
	last := parts[len(parts)-1]
	for _, part := range parts[:len(parts)-1] {
		c.Terms = append(c.Terms, p.analyzer.Terms(part)...)
	}

	if len(p.analyzer.Terms(last)) == 0 {
		// Trailing stop word: keep only the exact leading parts.
		if len(c.Terms) == 0 {
			return c, false, nil
		}
		c.Kind = MatchExact
		c.Raw = strings.Join(parts[:len(parts)-1], " ")
		return c, true, nil
	}

	c.Raw = last
	c.Stem = p.analyzer.Stem(last)
	return c, true, nil
}
