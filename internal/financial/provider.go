package financial

import (
	"context"
	"time"

	"marketpipe/internal/contracts"
	"marketpipe/internal/logger"
	"marketpipe/internal/pkg/symbol"
)

// QuoteProvider resolves one symbol to its pricing fields. Implementations:
// live Yahoo-chart provider and the deterministic static provider.
type QuoteProvider interface {
	Source() string
	Quote(ctx context.Context, sym string) (contracts.SymbolQuote, error)
}

// Enrich maps the requested symbols to a FinancialSnapshot via the provider.
// Per-symbol failures are isolated: a failed lookup lands in Errors[sym] and
// never blocks the remaining symbols. Each symbol ends up in exactly one of
// SymbolsData or Errors.
func Enrich(ctx context.Context, p QuoteProvider, symbols []string) contracts.FinancialSnapshot {
	snap := contracts.NewFinancialSnapshot(p.Source())
	for _, raw := range symbol.NormalizeList(symbols) {
		quote, err := p.Quote(ctx, raw)
		if err != nil {
			snap.Errors[raw] = err.Error()
			logger.Stage("financial").Warnf("quote failed symbol=%s err=%v", raw, err)
			continue
		}
		if quote.AsOf.IsZero() {
			quote.AsOf = time.Now().UTC()
		}
		snap.SymbolsData[raw] = quote
	}
	return snap
}
