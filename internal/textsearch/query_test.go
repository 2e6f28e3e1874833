package textsearch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuery_Clauses(t *testing.T) {
	a, err := NewAnalyzer()
	require.NoError(t, err)
	searchable := map[string]bool{"title": true, "description": true}

	q, err := ParseQuery(`+title:Bikes^2 -road tent~ lamp* "camp"`, a, searchable, 1, false)
	require.NoError(t, err)
	require.Len(t, q.Clauses, 5)

	assert.Equal(t, Clause{Raw: "bikes", Terms: []string{"bike"}, Kind: MatchExact, Occur: Must, Field: "title", Boost: 2}, q.Clauses[0])
	assert.Equal(t, MustNot, q.Clauses[1].Occur)
	assert.Equal(t, MatchFuzzy, q.Clauses[2].Kind)
	assert.Equal(t, 1, q.Clauses[2].Fuzziness)
	assert.Equal(t, "tent", q.Clauses[2].Raw)
	assert.Equal(t, MatchPrefix, q.Clauses[3].Kind)
	assert.Equal(t, "lamp", q.Clauses[3].Stem)
	assert.Equal(t, []string{"camp"}, q.Clauses[4].Terms)
}

func TestParseQuery_AutoPrefixOnlyLastTerm(t *testing.T) {
	a, err := NewAnalyzer()
	require.NoError(t, err)

	q, err := ParseQuery("mountain bik", a, nil, 1, ShouldAutoPrefix("mountain bik"))
	require.NoError(t, err)

	require.Len(t, q.Clauses, 2)
	assert.Equal(t, MatchExact, q.Clauses[0].Kind)
	assert.Equal(t, MatchPrefix, q.Clauses[1].Kind)
	assert.Equal(t, "bik", q.Clauses[1].Raw)
}

func TestShouldAutoPrefix(t *testing.T) {
	assert.True(t, ShouldAutoPrefix("bike"))
	assert.False(t, ShouldAutoPrefix("bike*"))
	assert.False(t, ShouldAutoPrefix("bike~1"))
}

func TestParseQuery_MalformedError(t *testing.T) {
	a, err := NewAnalyzer()
	require.NoError(t, err)

	_, err = ParseQuery("bike~9", a, nil, 1, false)

	var mqe *MalformedQueryError
	require.True(t, errors.As(err, &mqe))
	assert.Equal(t, "bike~9", mqe.Token)
	assert.Contains(t, err.Error(), "fuzzy distance")
}

func TestParseQuery_CompoundPrefix(t *testing.T) {
	a, err := NewAnalyzer()
	require.NoError(t, err)

	tests := []struct {
		name  string
		text  string
		want  []Clause
		empty bool
	}{
		{
			name: "hyphenated last term",
			text: "E-Bike",
			want: []Clause{{Raw: "bike", Stem: "bike", Terms: []string{"e"}, Kind: MatchPrefix, Boost: 1}},
		},
		{
			name: "single part",
			text: "tents",
			want: []Clause{{Raw: "tents", Stem: "tent", Kind: MatchPrefix, Boost: 1}},
		},
		{
			name: "trailing stop word",
			text: "tent-the",
			want: []Clause{{Raw: "tent", Terms: []string{"tent"}, Kind: MatchExact, Boost: 1}},
		},
		{
			name:  "stop word only",
			text:  "the",
			empty: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := ParseQuery(tt.text, a, nil, 1, true)
			require.NoError(t, err)

			if tt.empty {
				assert.Empty(t, q.Clauses)
				return
			}
			assert.Equal(t, tt.want, q.Clauses)
		})
	}
}

func TestAnalyzer_Tokens(t *testing.T) {
	a, err := NewAnalyzer()
	require.NoError(t, err)

	assert.Equal(t, []string{"e", "bike"}, a.Tokens("E-Bike"))
	assert.Equal(t, []string{"the", "bikes"}, a.Tokens("The bikes"))
}
