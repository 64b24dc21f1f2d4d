package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Query
	}{
		{"match all", "*:*", MatchAll{}},
		{"term", "title:A", Term{Field: "title", Value: "A"}},
		{"quoted term", `title:"hello world"`, Term{Field: "title", Value: "hello world"}},
		{"range", "id:[10 TO 20]", Range{Field: "id", Lo: "10", Hi: "20"}},
		{"open range", "id:[* TO 20]", Range{Field: "id", Hi: "20"}},
		{"conjunction", "title:A AND id:[10 TO *]", And{
			Term{Field: "title", Value: "A"},
			Range{Field: "id", Lo: "10"},
		}},
		{"ampersand", "title:A && title:B", And{
			Term{Field: "title", Value: "A"},
			Term{Field: "title", Value: "B"},
		}},
		{"surrounding space", "  *:*  ", MatchAll{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, in := range []string{
		"",
		"   ",
		"title",
		"title:",
		":A",
		"id:[10 20]",
		"id:[10 TO 20",
		`title:"open`,
		"title:A OR title:B",
		"title:A AND",
	} {
		t.Run(in, func(t *testing.T) {
			_, err := Parse(in)
			assert.ErrorIs(t, err, ErrInvalidQuery)
		})
	}
}

func TestQueryStringRoundTrip(t *testing.T) {
	for _, in := range []string{
		"*:*",
		"title:A",
		`title:"hello world"`,
		"id:[10 TO *]",
		"title:A AND id:[* TO 5]",
	} {
		q, err := Parse(in)
		require.NoError(t, err)
		again, err := Parse(q.String())
		require.NoError(t, err)
		assert.Equal(t, q, again)
	}
}

func TestValidate(t *testing.T) {
	schema := testSchema

	assert.NoError(t, Term{Field: "id", Value: "10"}.Validate(schema))
	assert.ErrorIs(t, Term{Field: "id", Value: "ten"}.Validate(schema), ErrInvalidQuery)
	assert.ErrorIs(t, Term{Field: "missing", Value: "x"}.Validate(schema), ErrInvalidQuery)
	assert.ErrorIs(t, Range{Field: "score", Lo: "x"}.Validate(schema), ErrInvalidQuery)
	assert.ErrorIs(t, And{MatchAll{}, Term{Field: "nope", Value: "1"}}.Validate(schema), ErrInvalidQuery)
}
