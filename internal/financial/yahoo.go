package financial

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"marketpipe/internal/config"
	"marketpipe/internal/contracts"
)

// 中文说明：
// YahooChartProvider 通过 Yahoo chart 端点取最近 5 个交易日收盘价，
// 由收盘序列计算 1 日 / 5 日涨跌幅。单个 symbol 的失败只影响它自己。

type YahooChartProvider struct {
	baseURL string
	httpc   *http.Client
}

func NewYahooChartProvider(cfg config.FinancialConfig) *YahooChartProvider {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &YahooChartProvider{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
	}
}

func (p *YahooChartProvider) Source() string { return "yahoo_chart" }

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				RegularMarketTime  int64   `json:"regularMarketTime"`
			} `json:"meta"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (p *YahooChartProvider) Quote(ctx context.Context, sym string) (contracts.SymbolQuote, error) {
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?range=5d&interval=1d", p.baseURL, url.PathEscape(sym))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return contracts.SymbolQuote{}, err
	}
	req.Header.Set("User-Agent", "marketpipe/1.0")

	resp, err := p.httpc.Do(req)
	if err != nil {
		return contracts.SymbolQuote{}, fmt.Errorf("chart request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return contracts.SymbolQuote{}, fmt.Errorf("chart status=%d", resp.StatusCode)
	}

	var decoded chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return contracts.SymbolQuote{}, fmt.Errorf("chart decode failed: %w", err)
	}
	if decoded.Chart.Error != nil {
		return contracts.SymbolQuote{}, fmt.Errorf("chart error: %s", decoded.Chart.Error.Description)
	}
	if len(decoded.Chart.Result) == 0 || len(decoded.Chart.Result[0].Indicators.Quote) == 0 {
		return contracts.SymbolQuote{}, fmt.Errorf("no chart data")
	}

	result := decoded.Chart.Result[0]
	closes := compactCloses(result.Indicators.Quote[0].Close)
	if len(closes) == 0 {
		return contracts.SymbolQuote{}, fmt.Errorf("no close prices")
	}

	last := closes[len(closes)-1]
	if result.Meta.RegularMarketPrice > 0 {
		last = result.Meta.RegularMarketPrice
	}
	quote := contracts.SymbolQuote{
		LastPrice: last,
		AsOf:      time.Unix(result.Meta.RegularMarketTime, 0).UTC(),
	}
	if quote.AsOf.Unix() <= 0 {
		quote.AsOf = time.Now().UTC()
	}
	if len(closes) >= 2 {
		prev := closes[len(closes)-2]
		if prev != 0 {
			quote.Change1DPct = (last - prev) / prev * 100
		}
	}
	first := closes[0]
	if len(closes) >= 5 {
		first = closes[len(closes)-5]
	}
	if len(closes) >= 2 && first != 0 {
		quote.Change5DPct = (last - first) / first * 100
	}
	return quote, nil
}

func compactCloses(raw []*float64) []float64 {
	out := make([]float64, 0, len(raw))
	for _, v := range raw {
		if v == nil {
			continue
		}
		out = append(out, *v)
	}
	return out
}
