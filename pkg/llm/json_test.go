package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{
			name:     "bare object",
			input:    `{"sql": "SELECT 1"}`,
			expected: `{"sql": "SELECT 1"}`,
		},
		{
			name:     "fenced json block",
			input:    "```json\n{\"sql\": \"SELECT 1\"}\n```",
			expected: `{"sql": "SELECT 1"}`,
		},
		{
			name:     "fence without language tag",
			input:    "```\n{\"sql\": \"SELECT 1\"}\n```",
			expected: `{"sql": "SELECT 1"}`,
		},
		{
			name:     "object surrounded by prose",
			input:    "Here is the query:\n{\"sql\": \"SELECT 1\"}\nHope it helps!",
			expected: `{"sql": "SELECT 1"}`,
		},
		{
			name:     "nested object with braces in string",
			input:    `{"sql": "SELECT '{' FROM t", "alternativa": null}`,
			expected: `{"sql": "SELECT '{' FROM t", "alternativa": null}`,
		},
		{
			name:     "array",
			input:    `[1, 2, 3]`,
			expected: `[1, 2, 3]`,
		},
		{
			name:    "no json at all",
			input:   "I cannot generate a query for that.",
			wantErr: true,
		},
		{
			name:    "unbalanced object",
			input:   `{"sql": "SELECT 1"`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrNoJSON))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseJSONResponse(t *testing.T) {
	type sqlResponse struct {
		SQL         string `json:"sql"`
		Alternativa string `json:"alternativa"`
	}

	resp, err := ParseJSONResponse[sqlResponse]("```json\n{\"sql\": \"SELECT 1\", \"alternativa\": \"SELECT 2\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", resp.SQL)
	assert.Equal(t, "SELECT 2", resp.Alternativa)

	_, err = ParseJSONResponse[sqlResponse]("not json")
	assert.ErrorIs(t, err, ErrNoJSON)
}
