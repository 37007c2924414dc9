package symbol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "AAPL", Normalize(" aapl "))
	assert.Equal(t, "TSLA", Normalize("$tsla"))
	assert.Equal(t, "BRK.B", Normalize("brk.b"))

	assert.Empty(t, Normalize(""))
	assert.Empty(t, Normalize("9GAG"), "first byte must be a letter")
	assert.Empty(t, Normalize("AAPL."), "no trailing dot")
	assert.Empty(t, Normalize("TOOLONGSYMBOL"))
	assert.Empty(t, Normalize("AA PL"))
}

func TestNormalizeListDedupesAndKeepsOrder(t *testing.T) {
	got := NormalizeList([]string{"msft", "$AAPL", "not a ticker!", "MSFT", "nvda"})
	assert.Equal(t, []string{"MSFT", "AAPL", "NVDA"}, got)

	assert.Nil(t, NormalizeList(nil))
}

func TestSubsequence(t *testing.T) {
	candidates := []string{"AAPL", "MSFT", "NVDA", "TSLA"}

	got := Subsequence([]string{"NVDA", "GOOG", "AAPL"}, candidates, 0)
	assert.Equal(t, []string{"NVDA", "AAPL"}, got, "out-of-list symbols are dropped, order preserved")

	got = Subsequence([]string{"AAPL", "MSFT", "NVDA"}, candidates, 2)
	assert.Equal(t, []string{"AAPL", "MSFT"}, got, "cap applies after filtering")

	assert.Empty(t, Subsequence(nil, candidates, 3))
}
