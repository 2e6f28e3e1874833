package textsearch

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/registry"
)

// Analyzer turns text into index terms using bleve's English chain:
// unicode tokenizer, possessive filter, lowercase, English stop words and
// the snowball stemmer.
type Analyzer struct {
	chain     analysis.Analyzer
	tokenizer analysis.Tokenizer
}

// NewAnalyzer builds the English analyzer from the bleve registry.
func NewAnalyzer() (*Analyzer, error) {
	cache := registry.NewCache()
	chain, err := cache.AnalyzerNamed(en.AnalyzerName)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s analyzer: %w", en.AnalyzerName, err)
	}
	tokenizer, err := cache.TokenizerNamed(unicode.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s tokenizer: %w", unicode.Name, err)
	}
	return &Analyzer{chain: chain, tokenizer: tokenizer}, nil
}

// Tokens splits text the way the analyzer does, lowercased but without
// stop word removal or stemming. "E-Bike" gives "e" and "bike".
func (a *Analyzer) Tokens(text string) []string {
	stream := a.tokenizer.Tokenize([]byte(text))
	out := make([]string, 0, len(stream))
	for _, tok := range stream {
		if len(tok.Term) > 0 {
			out = append(out, strings.ToLower(string(tok.Term)))
		}
	}
	return out
}

// Terms returns the index terms of text in order. Stop words are dropped.
func (a *Analyzer) Terms(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	stream := a.chain.Analyze([]byte(text))
	terms := make([]string, 0, len(stream))
	for _, tok := range stream {
		if len(tok.Term) > 0 {
			terms = append(terms, string(tok.Term))
		}
	}
	return terms
}

// Stem returns the single index term for word, or "" if word is a stop word
// or analyses to more than one term.
func (a *Analyzer) Stem(word string) string {
	terms := a.Terms(word)
	if len(terms) != 1 {
		return ""
	}
	return terms[0]
}
