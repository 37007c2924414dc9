package reasoning

import (
	"context"
	"fmt"
	"testing"
	"time"

	"marketpipe/internal/contracts"
	"marketpipe/internal/gateway/provider"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProvider replays canned responses in order.
type stubProvider struct {
	responses []string
	err       error
	calls     int
}

func (p *stubProvider) ID() string { return "stub" }

func (p *stubProvider) Complete(ctx context.Context, payload provider.ChatPayload) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	if p.calls >= len(p.responses) {
		return "", fmt.Errorf("stub exhausted after %d calls", p.calls)
	}
	resp := p.responses[p.calls]
	p.calls++
	return resp, nil
}

func harnessWith(responses ...string) *Harness {
	return NewHarness(&stubProvider{responses: responses}, nil)
}

func freshSnap() contracts.FreshSnapshot {
	snap := contracts.NewFreshSnapshot(time.Now())
	snap.WebItems = append(snap.WebItems, contracts.WebItem{
		Title: "Chip rally continues", URL: "https://example.com/a", Summary: "semis up",
	})
	return snap
}

func TestPreAnalysisParsesProseWrappedJSON(t *testing.T) {
	h := harnessWith(`Sure, here's my analysis:
{"candidate_symbols": ["nvda", "$AAPL", "NVDA", "bad ticker"], "rationale": "semis momentum", "follow_up_queries": [" NVDA earnings date ", ""]}
Let me know if you need more.`)
	stage := NewPreAnalysisStage(h, 12)

	got, err := stage.Run(context.Background(), freshSnap())
	require.NoError(t, err)
	assert.Equal(t, []string{"NVDA", "AAPL"}, got.CandidateSymbols)
	assert.Equal(t, "semis momentum", got.Rationale)
	assert.Equal(t, []string{"NVDA earnings date"}, got.FollowUpQueries)
}

func TestPreAnalysisCapsCandidates(t *testing.T) {
	h := harnessWith(`{"candidate_symbols": ["A","B","C","D"], "rationale": "broad"}`)
	stage := NewPreAnalysisStage(h, 2)

	got, err := stage.Run(context.Background(), freshSnap())
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, got.CandidateSymbols)
}

func TestPreAnalysisNoJSONIsMalformed(t *testing.T) {
	h := harnessWith(`I cannot answer in JSON today.`)
	stage := NewPreAnalysisStage(h, 12)

	_, err := stage.Run(context.Background(), freshSnap())
	se, ok := contracts.AsStageError(err)
	require.True(t, ok)
	assert.Equal(t, contracts.KindMalformedOutput, se.Kind)
	assert.Contains(t, se.Raw, "cannot answer")
}

func TestPreAnalysisEmptyRationaleIsMalformed(t *testing.T) {
	h := harnessWith(`{"candidate_symbols": ["AAPL"], "rationale": "   "}`)
	stage := NewPreAnalysisStage(h, 12)

	_, err := stage.Run(context.Background(), freshSnap())
	se, ok := contracts.AsStageError(err)
	require.True(t, ok)
	assert.Equal(t, contracts.KindMalformedOutput, se.Kind)
}

func TestPreAnalysisServiceFailure(t *testing.T) {
	h := NewHarness(&stubProvider{err: fmt.Errorf("429 rate limited")}, nil)
	stage := NewPreAnalysisStage(h, 12)

	_, err := stage.Run(context.Background(), freshSnap())
	se, ok := contracts.AsStageError(err)
	require.True(t, ok)
	assert.Equal(t, contracts.KindServiceUnavailable, se.Kind)
}

func TestFocusEnforcesSubsequence(t *testing.T) {
	h := harnessWith(`{"focus_symbols": ["TSLA", "MSFT", "AAPL"], "open_questions": ["guidance?"]}`)
	stage := NewFocusStage(h, 2)

	pre := contracts.PreAnalysisResult{
		CandidateSymbols: []string{"AAPL", "MSFT", "NVDA"},
		Rationale:        "tech strength",
	}
	got, err := stage.Run(context.Background(), pre, freshSnap())
	require.NoError(t, err)
	// TSLA is outside the candidate list, the cap then keeps two.
	assert.Equal(t, []string{"MSFT", "AAPL"}, got.FocusSymbols)
	assert.Equal(t, []string{"guidance?"}, got.OpenQuestions)
}

func TestFocusEmptySelectionIsValid(t *testing.T) {
	h := harnessWith(`{"focus_symbols": [], "open_questions": []}`)
	stage := NewFocusStage(h, 5)

	got, err := stage.Run(context.Background(), contracts.PreAnalysisResult{
		CandidateSymbols: []string{"AAPL"}, Rationale: "meh",
	}, freshSnap())
	require.NoError(t, err)
	assert.Empty(t, got.FocusSymbols)
	assert.NotNil(t, got.OpenQuestions)
}

func finalInputs() (contracts.PreAnalysisResult, contracts.FocusSelection, contracts.FinancialSnapshot) {
	pre := contracts.PreAnalysisResult{CandidateSymbols: []string{"AAPL", "MSFT"}, Rationale: "tech"}
	focus := contracts.FocusSelection{FocusSymbols: []string{"AAPL"}, OpenQuestions: []string{}}
	fin := contracts.NewFinancialSnapshot("static_mock")
	fin.SymbolsData["AAPL"] = contracts.SymbolQuote{LastPrice: 190, AsOf: time.Now()}
	return pre, focus, fin
}

func TestFinalDecisionLongOrder(t *testing.T) {
	h := harnessWith(`{"action": "LONG", "orders": [{"symbol": "AAPL", "side": "buy", "quantity": "2"}], "conclusion": "momentum long"}`)
	stage := NewFinalStage(h, 1)
	pre, focus, fin := finalInputs()

	got, err := stage.Run(context.Background(), pre, focus, fin, freshSnap())
	require.NoError(t, err)
	assert.Equal(t, contracts.ActionLong, got.Action)
	require.Len(t, got.Orders, 1)
	assert.Equal(t, "AAPL", got.Orders[0].Symbol)
	assert.Equal(t, contracts.SideLong, got.Orders[0].Side, "buy alias maps to LONG")
	assert.Equal(t, "2", got.Orders[0].Quantity.String())
	assert.Equal(t, contracts.OrderMarket, got.Orders[0].Type)
}

func TestFinalDecisionHoldDropsOrders(t *testing.T) {
	h := harnessWith(`{"action": "HOLD", "orders": [{"symbol": "AAPL", "side": "LONG", "quantity": 1}], "conclusion": "wait for CPI"}`)
	stage := NewFinalStage(h, 1)
	pre, focus, fin := finalInputs()

	got, err := stage.Run(context.Background(), pre, focus, fin, freshSnap())
	require.NoError(t, err)
	assert.Equal(t, contracts.ActionHold, got.Action)
	assert.Empty(t, got.Orders)
	assert.NotEmpty(t, got.Notes, "dropped orders leave a trace")
}

func TestFinalDecisionInvalidQuantityFallsBackWithNote(t *testing.T) {
	h := harnessWith(`{"action": "LONG", "orders": [{"symbol": "AAPL", "side": "LONG", "quantity": "-3"}], "conclusion": "sized wrong"}`)
	stage := NewFinalStage(h, 1)
	pre, focus, fin := finalInputs()

	got, err := stage.Run(context.Background(), pre, focus, fin, freshSnap())
	require.NoError(t, err)
	require.Len(t, got.Orders, 1)
	assert.Equal(t, "1", got.Orders[0].Quantity.String(), "falls back to the configured default")
	assert.Contains(t, got.Notes, `order for AAPL: quantity "-3" invalid, using default 1`)
}

func TestFinalDecisionRejectsSymbolsOutsideFocus(t *testing.T) {
	h := harnessWith(`{"action": "LONG", "orders": [{"symbol": "TSLA", "side": "LONG", "quantity": 1}, {"symbol": "AAPL", "side": "LONG", "quantity": 1}], "conclusion": "mixed"}`)
	stage := NewFinalStage(h, 1)
	pre, focus, fin := finalInputs()

	got, err := stage.Run(context.Background(), pre, focus, fin, freshSnap())
	require.NoError(t, err)
	require.Len(t, got.Orders, 1)
	assert.Equal(t, "AAPL", got.Orders[0].Symbol)
	assert.NotEmpty(t, got.Notes)
}

func TestFinalDecisionLimitRequiresPrice(t *testing.T) {
	h := harnessWith(`{"action": "LONG", "orders": [{"symbol": "AAPL", "side": "LONG", "quantity": 1, "order_type": "LIMIT"}], "conclusion": "limit entry"}`)
	stage := NewFinalStage(h, 1)
	pre, focus, fin := finalInputs()

	got, err := stage.Run(context.Background(), pre, focus, fin, freshSnap())
	require.NoError(t, err)
	assert.Empty(t, got.Orders, "LIMIT without limit_price is dropped")
	assert.NotEmpty(t, got.Notes)
}

func TestFinalDecisionInvalidActionFailsClosed(t *testing.T) {
	h := harnessWith(`{"action": "MAYBE", "orders": [], "conclusion": "unsure"}`)
	stage := NewFinalStage(h, 1)
	pre, focus, fin := finalInputs()

	_, err := stage.Run(context.Background(), pre, focus, fin, freshSnap())
	se, ok := contracts.AsStageError(err)
	require.True(t, ok)
	assert.Equal(t, contracts.KindMalformedOutput, se.Kind, "never defaults to HOLD")
}
