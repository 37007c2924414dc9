package config

import (
	"fmt"
	"strings"
)

// validate 对配置进行基础校验。密钥是否缺失在组件构建时再检查，
// 这里只拦截明显不合法的组合。
func validate(c *Config) error {
	if c.Pipeline.IntervalSeconds <= 0 {
		return fmt.Errorf("pipeline.interval_seconds must be > 0")
	}
	if c.Pipeline.MaxCandidateSymbols <= 0 {
		return fmt.Errorf("pipeline.max_candidate_symbols must be > 0")
	}
	if c.Pipeline.MaxFocusSymbols <= 0 {
		return fmt.Errorf("pipeline.max_focus_symbols must be > 0")
	}
	if c.Pipeline.MaxFocusSymbols > c.Pipeline.MaxCandidateSymbols {
		return fmt.Errorf("pipeline.max_focus_symbols cannot exceed max_candidate_symbols")
	}
	if c.Pipeline.OrderQty <= 0 {
		return fmt.Errorf("pipeline.order_qty must be > 0")
	}
	if c.Web.MaxResults < 0 || c.Web.MaxResults > 20 {
		return fmt.Errorf("web.max_results must be within 0..20")
	}
	switch strings.ToLower(c.Financial.Provider) {
	case "yahoo", "mock":
	default:
		return fmt.Errorf("financial.provider must be yahoo or mock, got %q", c.Financial.Provider)
	}
	if c.Pipeline.ExecuteOrders && c.Broker.BaseURL == "" {
		return fmt.Errorf("broker.base_url required when pipeline.execute_orders is enabled")
	}
	if c.Pipeline.StopIfMarketClosed && (c.Broker.APIKey == "" || c.Broker.APISecret == "") {
		return fmt.Errorf("pipeline.stop_if_market_closed requires broker credentials")
	}
	return nil
}
