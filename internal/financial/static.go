package financial

import (
	"context"
	"fmt"
	"strings"
	"time"

	"marketpipe/internal/contracts"
	"marketpipe/internal/pkg/symbol"

	"github.com/spf13/viper"
)

// StaticProvider serves quotes from an in-memory mapping. Used for offline
// and deterministic runs; it satisfies the same QuoteProvider capability as
// the live provider.
type StaticProvider struct {
	name   string
	quotes map[string]contracts.SymbolQuote
}

func NewStaticProvider(quotes map[string]contracts.SymbolQuote) *StaticProvider {
	normalized := make(map[string]contracts.SymbolQuote, len(quotes))
	for sym, q := range quotes {
		if norm := symbol.Normalize(sym); norm != "" {
			normalized[norm] = q
		}
	}
	return &StaticProvider{name: "static_mock", quotes: normalized}
}

// LoadStaticProvider reads the mock mapping from a yaml/json file:
//
//	AAPL:
//	  last_price: 190.0
//	  change_1d_pct: 1.2
//	  change_5d_pct: 3.4
func LoadStaticProvider(path string) (*StaticProvider, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("static provider requires mock_file path")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading mock file failed (%s): %w", path, err)
	}
	quotes := make(map[string]contracts.SymbolQuote)
	for _, key := range v.AllKeys() {
		// keys come flattened as "aapl.last_price"; collect per symbol once
		sym := strings.SplitN(key, ".", 2)[0]
		if _, ok := quotes[strings.ToUpper(sym)]; ok {
			continue
		}
		sub := v.Sub(sym)
		if sub == nil {
			continue
		}
		quotes[strings.ToUpper(sym)] = contracts.SymbolQuote{
			LastPrice:   sub.GetFloat64("last_price"),
			Change1DPct: sub.GetFloat64("change_1d_pct"),
			Change5DPct: sub.GetFloat64("change_5d_pct"),
			AsOf:        time.Now().UTC(),
		}
	}
	p := NewStaticProvider(quotes)
	p.name = "static_mock:" + path
	return p, nil
}

func (p *StaticProvider) Source() string { return p.name }

func (p *StaticProvider) Quote(ctx context.Context, sym string) (contracts.SymbolQuote, error) {
	quote, ok := p.quotes[strings.ToUpper(strings.TrimSpace(sym))]
	if !ok {
		return contracts.SymbolQuote{}, fmt.Errorf("symbol not present in mock data")
	}
	return quote, nil
}
