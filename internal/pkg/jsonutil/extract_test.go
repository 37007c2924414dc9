package jsonutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractObjectFromFencedBlock(t *testing.T) {
	raw := "Here is my answer:\n```json\n{\"action\": \"HOLD\"}\n```\nhope that helps"
	block, ok := ExtractObject(raw)
	require.True(t, ok)
	assert.JSONEq(t, `{"action":"HOLD"}`, block)
}

func TestExtractObjectFromProse(t *testing.T) {
	raw := `Thinking about it... {"focus_symbols": ["AAPL"], "note": "a \"quoted\" word"} trailing text {"second": true}`
	block, ok := ExtractObject(raw)
	require.True(t, ok)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(block), &doc))
	assert.Contains(t, doc, "focus_symbols")
	assert.NotContains(t, doc, "second", "only the first balanced object is extracted")
}

func TestExtractObjectNestedBraces(t *testing.T) {
	raw := `{"outer": {"inner": {"deep": 1}}, "brace_in_string": "}{"}`
	block, ok := ExtractObject(raw)
	require.True(t, ok)
	assert.Equal(t, raw, block)
}

func TestExtractObjectNoObject(t *testing.T) {
	_, ok := ExtractObject("no json here, just prose")
	assert.False(t, ok)

	_, ok = ExtractObject("unbalanced {\"a\": 1")
	assert.False(t, ok)
}

func TestMarshalIndentStableIsDeterministic(t *testing.T) {
	doc := map[string]any{"b": 2, "a": 1, "c": []string{"x"}}
	first, err := MarshalIndentStable(doc)
	require.NoError(t, err)
	second, err := MarshalIndentStable(doc)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, byte('\n'), first[len(first)-1])
}
