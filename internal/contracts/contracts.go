package contracts

import (
	"time"

	"github.com/shopspring/decimal"
)

// 中文说明：
// 本文件定义流水线各阶段之间传递的数据结构。所有类型都是每个 cycle
// 生成一次的不可变记录：下一个 cycle 产生新实例，绝不原地修改。

// WebItem is a single fresh web signal.
type WebItem struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Summary     string `json:"summary"`
	PublishedAt string `json:"published_at,omitempty"`
}

// SocialItem is a single fresh social signal.
type SocialItem struct {
	Source    string `json:"source"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp,omitempty"`
}

// FreshSnapshot aggregates both collectors' output for one cycle.
// WebItems and SocialItems are never nil: a collector that failed or
// returned nothing contributes an empty slice plus Partial=true and a note.
type FreshSnapshot struct {
	CollectedAt time.Time    `json:"collected_at"`
	WebItems    []WebItem    `json:"web_items"`
	SocialItems []SocialItem `json:"social_items"`
	Partial     bool         `json:"partial"`
	Notes       []string     `json:"notes,omitempty"`
}

// NewFreshSnapshot returns a snapshot with non-nil item slices.
func NewFreshSnapshot(at time.Time) FreshSnapshot {
	return FreshSnapshot{
		CollectedAt: at,
		WebItems:    []WebItem{},
		SocialItems: []SocialItem{},
	}
}

// PreAnalysisResult is the first reasoning stage's output. CandidateSymbols
// are deduplicated, upper-cased and grammar-checked; invalid tickers were
// dropped, never fatal. FollowUpQueries optionally request one extra round
// of web collection before the stage is re-run.
type PreAnalysisResult struct {
	CandidateSymbols []string `json:"candidate_symbols"`
	Rationale        string   `json:"rationale"`
	FollowUpQueries  []string `json:"follow_up_queries,omitempty"`
}

// FocusSelection narrows the candidates to the symbols worth enriching.
// FocusSymbols is always a subsequence of the candidate list.
type FocusSelection struct {
	FocusSymbols  []string `json:"focus_symbols"`
	OpenQuestions []string `json:"open_questions"`
}

// SymbolQuote is one enriched symbol's pricing fields.
type SymbolQuote struct {
	LastPrice   float64   `json:"last_price"`
	Change1DPct float64   `json:"change_1d_pct"`
	Change5DPct float64   `json:"change_5d_pct"`
	AsOf        time.Time `json:"as_of"`
}

// FinancialSnapshot partitions the requested symbols: each appears in
// exactly one of SymbolsData or Errors.
type FinancialSnapshot struct {
	Source      string                 `json:"source"`
	SymbolsData map[string]SymbolQuote `json:"symbols_data"`
	Errors      map[string]string      `json:"errors"`
}

// NewFinancialSnapshot returns a snapshot with non-nil maps.
func NewFinancialSnapshot(source string) FinancialSnapshot {
	return FinancialSnapshot{
		Source:      source,
		SymbolsData: make(map[string]SymbolQuote),
		Errors:      make(map[string]string),
	}
}

// Symbols returns the union of enriched and failed symbols.
func (s FinancialSnapshot) Symbols() []string {
	out := make([]string, 0, len(s.SymbolsData)+len(s.Errors))
	for sym := range s.SymbolsData {
		out = append(out, sym)
	}
	for sym := range s.Errors {
		out = append(out, sym)
	}
	return out
}

type OrderSide string

const (
	SideLong  OrderSide = "LONG"
	SideShort OrderSide = "SHORT"
	SideClose OrderSide = "CLOSE"
)

func (s OrderSide) Valid() bool {
	switch s {
	case SideLong, SideShort, SideClose:
		return true
	}
	return false
}

type OrderType string

const (
	OrderMarket OrderType = "MARKET"
	OrderLimit  OrderType = "LIMIT"
)

func (t OrderType) Valid() bool {
	return t == OrderMarket || t == OrderLimit
}

// ProposedOrder is one order the final stage wants placed.
// LimitPrice is set iff Type == LIMIT.
type ProposedOrder struct {
	Symbol     string           `json:"symbol"`
	Side       OrderSide        `json:"side"`
	Quantity   decimal.Decimal  `json:"quantity"`
	Type       OrderType        `json:"order_type"`
	LimitPrice *decimal.Decimal `json:"limit_price,omitempty"`
}

type Action string

const (
	ActionLong  Action = "LONG"
	ActionShort Action = "SHORT"
	ActionHold  Action = "HOLD"
)

func (a Action) Valid() bool {
	switch a {
	case ActionLong, ActionShort, ActionHold:
		return true
	}
	return false
}

// FinalDecision is the last reasoning stage's output.
// Invariant: Action == HOLD implies len(Orders) == 0.
type FinalDecision struct {
	Action     Action          `json:"action"`
	Orders     []ProposedOrder `json:"orders"`
	Conclusion string          `json:"conclusion"`
	Notes      []string        `json:"notes,omitempty"`
}

type OutcomeStatus string

const (
	OutcomeSubmitted OutcomeStatus = "SUBMITTED"
	OutcomeSkipped   OutcomeStatus = "SKIPPED"
	OutcomeRejected  OutcomeStatus = "REJECTED"
	OutcomeError     OutcomeStatus = "ERROR"
)

// ExecutionOutcome is the per-order result; BrokerOrderID is present iff
// the order was actually submitted.
type ExecutionOutcome struct {
	Symbol        string        `json:"symbol"`
	Status        OutcomeStatus `json:"status"`
	BrokerOrderID string        `json:"broker_order_id,omitempty"`
	Message       string        `json:"message"`
}

type ExecMode string

const (
	ModeDryRun ExecMode = "DRY_RUN"
	ModeLive   ExecMode = "LIVE"
)

type ConfirmationKind string

const (
	ConfirmAuto        ConfirmationKind = "AUTO"
	ConfirmInteractive ConfirmationKind = "INTERACTIVE"
	ConfirmNotRequired ConfirmationKind = "NOT_REQUIRED"
)

// ExecutionReport collects per-order outcomes; never short-circuited by a
// single order's failure.
type ExecutionReport struct {
	Mode         ExecMode           `json:"mode"`
	Confirmation ConfirmationKind   `json:"confirmation"`
	Rejected     bool               `json:"rejected,omitempty"`
	RejectReason string             `json:"reject_reason,omitempty"`
	Outcomes     []ExecutionOutcome `json:"outcomes"`
}

// Position is one open brokerage position.
type Position struct {
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
	Side     string  `json:"side"`
}

// AccountSnapshot is a best-effort post-execution account reading.
type AccountSnapshot struct {
	Equity    float64    `json:"equity"`
	Positions []Position `json:"positions"`
	AsOf      time.Time  `json:"as_of"`
}
