package reasoning

import (
	"context"
	"fmt"
	"strings"

	"marketpipe/internal/contracts"
	"marketpipe/internal/logger"
	"marketpipe/internal/pkg/symbol"
	"marketpipe/internal/prompt"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// FinalStage turns the enriched context into a trading decision.
// 解析是 fail-closed 的：action 非法或缺失直接判为 MalformedOutput，
// 绝不默认成 HOLD —— 静默 HOLD 会掩盖模型回归。
type FinalStage struct {
	harness  *Harness
	orderQty decimal.Decimal
}

func NewFinalStage(h *Harness, orderQty float64) *FinalStage {
	return &FinalStage{harness: h, orderQty: decimal.NewFromFloat(orderQty)}
}

func (s *FinalStage) Run(
	ctx context.Context,
	pre contracts.PreAnalysisResult,
	focus contracts.FocusSelection,
	fin contracts.FinancialSnapshot,
	snap contracts.FreshSnapshot,
) (contracts.FinalDecision, error) {
	payload := map[string]any{
		"task": "final_decision",
		"pre_analysis": map[string]any{
			"candidate_symbols": pre.CandidateSymbols,
			"rationale":         pre.Rationale,
		},
		"focus_selection": map[string]any{
			"focus_symbols":  focus.FocusSymbols,
			"open_questions": focus.OpenQuestions,
		},
		"financial_snapshot": map[string]any{
			"source":       fin.Source,
			"symbols_data": fin.SymbolsData,
			"errors":       fin.Errors,
		},
		"fresh_snapshot": snapshotPayload(snap),
		"limits": map[string]any{
			"default_order_qty": s.orderQty,
		},
	}
	out, err := s.harness.run(ctx, prompt.StageFinal, payload)
	if err != nil {
		return contracts.FinalDecision{}, err
	}

	parsed := gjson.Parse(out.Block)
	action := contracts.Action(strings.ToUpper(strings.TrimSpace(parsed.Get("action").String())))
	if !action.Valid() {
		return contracts.FinalDecision{}, contracts.NewMalformedError(
			prompt.StageFinal, out.Raw, fmt.Errorf("action %q is not LONG/SHORT/HOLD", parsed.Get("action").String()))
	}
	conclusion := strings.TrimSpace(parsed.Get("conclusion").String())
	if conclusion == "" {
		return contracts.FinalDecision{}, contracts.NewMalformedError(
			prompt.StageFinal, out.Raw, fmt.Errorf("conclusion is empty"))
	}

	decision := contracts.FinalDecision{
		Action:     action,
		Orders:     []contracts.ProposedOrder{},
		Conclusion: conclusion,
	}

	focusSet := make(map[string]struct{}, len(focus.FocusSymbols))
	for _, sym := range focus.FocusSymbols {
		focusSet[sym] = struct{}{}
	}

	parsed.Get("orders").ForEach(func(_, node gjson.Result) bool {
		order, note := s.decodeOrder(node, focusSet)
		if note != "" {
			decision.Notes = append(decision.Notes, note)
		}
		if order != nil {
			decision.Orders = append(decision.Orders, *order)
		}
		return true
	})

	// 不变量：HOLD 不携带任何订单。模型给了也丢弃并在 artifact 留痕。
	if decision.Action == contracts.ActionHold && len(decision.Orders) > 0 {
		logger.Stage("final-decision").Warnf("model returned %d orders with HOLD, dropping", len(decision.Orders))
		decision.Notes = append(decision.Notes,
			fmt.Sprintf("dropped %d orders: action is HOLD", len(decision.Orders)))
		decision.Orders = []contracts.ProposedOrder{}
	}
	return decision, nil
}

// decodeOrder tolerates the JSON shapes models actually produce (buy/sell
// aliases, string quantities) while rejecting anything outside the focus
// shortlist. Skipped orders and tolerated fallbacks yield a note, never
// an error.
func (s *FinalStage) decodeOrder(node gjson.Result, focusSet map[string]struct{}) (*contracts.ProposedOrder, string) {
	sym := symbol.Normalize(node.Get("symbol").String())
	if sym == "" {
		return nil, fmt.Sprintf("dropped order with invalid symbol %q", node.Get("symbol").String())
	}
	if _, ok := focusSet[sym]; !ok {
		return nil, fmt.Sprintf("dropped order for %s: outside focus shortlist", sym)
	}

	side := normalizeSide(node.Get("side").String())
	if side == "" {
		return nil, fmt.Sprintf("dropped order for %s: unknown side %q", sym, node.Get("side").String())
	}

	qty := s.orderQty
	var note string
	if raw := strings.TrimSpace(node.Get("quantity").String()); raw != "" {
		parsedQty, err := decimal.NewFromString(raw)
		if err == nil && parsedQty.IsPositive() {
			qty = parsedQty
		} else {
			note = fmt.Sprintf("order for %s: quantity %q invalid, using default %s", sym, raw, s.orderQty)
		}
	}

	order := contracts.ProposedOrder{
		Symbol:   sym,
		Side:     side,
		Quantity: qty,
		Type:     contracts.OrderMarket,
	}
	if t := strings.ToUpper(strings.TrimSpace(node.Get("order_type").String())); t == string(contracts.OrderLimit) {
		price := node.Get("limit_price")
		limit, err := decimal.NewFromString(strings.TrimSpace(price.String()))
		if !price.Exists() || err != nil || !limit.IsPositive() {
			return nil, fmt.Sprintf("dropped LIMIT order for %s: missing or invalid limit_price", sym)
		}
		order.Type = contracts.OrderLimit
		order.LimitPrice = &limit
	}
	return &order, note
}

func normalizeSide(raw string) contracts.OrderSide {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "LONG", "BUY":
		return contracts.SideLong
	case "SHORT", "SELL":
		return contracts.SideShort
	case "CLOSE", "FLAT":
		return contracts.SideClose
	}
	return ""
}
