package financial

import (
	"context"
	"fmt"
	"testing"
	"time"

	"marketpipe/internal/contracts"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyProvider struct {
	quotes  map[string]contracts.SymbolQuote
	failFor map[string]error
}

func (p *flakyProvider) Source() string { return "flaky_test" }

func (p *flakyProvider) Quote(ctx context.Context, sym string) (contracts.SymbolQuote, error) {
	if err := p.failFor[sym]; err != nil {
		return contracts.SymbolQuote{}, err
	}
	q, ok := p.quotes[sym]
	if !ok {
		return contracts.SymbolQuote{}, fmt.Errorf("unknown symbol %s", sym)
	}
	return q, nil
}

func TestEnrichPartitionsSymbols(t *testing.T) {
	p := &flakyProvider{
		quotes: map[string]contracts.SymbolQuote{
			"AAPL": {LastPrice: 190, Change1DPct: 1.2, AsOf: time.Now()},
		},
		failFor: map[string]error{"MSFT": fmt.Errorf("upstream timeout")},
	}

	snap := Enrich(context.Background(), p, []string{"aapl", "MSFT", "AAPL"})
	assert.Equal(t, "flaky_test", snap.Source)

	// Every requested symbol lands in exactly one partition.
	assert.Contains(t, snap.SymbolsData, "AAPL")
	assert.NotContains(t, snap.Errors, "AAPL")
	assert.Contains(t, snap.Errors, "MSFT")
	assert.NotContains(t, snap.SymbolsData, "MSFT")
	assert.Equal(t, "upstream timeout", snap.Errors["MSFT"])
	assert.Len(t, snap.Symbols(), 2, "duplicates collapse before lookup")
}

func TestEnrichEmptyInput(t *testing.T) {
	snap := Enrich(context.Background(), &flakyProvider{}, nil)
	assert.NotNil(t, snap.SymbolsData)
	assert.NotNil(t, snap.Errors)
	assert.Empty(t, snap.Symbols())
}

func TestEnrichFillsMissingAsOf(t *testing.T) {
	p := &flakyProvider{quotes: map[string]contracts.SymbolQuote{"AAPL": {LastPrice: 190}}}
	snap := Enrich(context.Background(), p, []string{"AAPL"})
	require.Contains(t, snap.SymbolsData, "AAPL")
	assert.False(t, snap.SymbolsData["AAPL"].AsOf.IsZero())
}

func TestStaticProviderNormalizesKeys(t *testing.T) {
	p := NewStaticProvider(map[string]contracts.SymbolQuote{
		"aapl": {LastPrice: 190},
	})
	q, err := p.Quote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 190.0, q.LastPrice)

	_, err = p.Quote(context.Background(), "TSLA")
	assert.Error(t, err)
}
