package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"marketpipe/internal/artifact"
	"marketpipe/internal/collector"
	"marketpipe/internal/contracts"
	"marketpipe/internal/executor"
	"marketpipe/internal/financial"
	"marketpipe/internal/gateway/broker"
	"marketpipe/internal/gateway/provider"
	"marketpipe/internal/reasoning"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedModel replays one canned response per stage call.
type scriptedModel struct {
	responses []string
	calls     int
}

func (m *scriptedModel) ID() string { return "scripted" }

func (m *scriptedModel) Complete(ctx context.Context, payload provider.ChatPayload) (string, error) {
	if m.calls >= len(m.responses) {
		return "", fmt.Errorf("scripted model exhausted after %d calls", m.calls)
	}
	resp := m.responses[m.calls]
	m.calls++
	return resp, nil
}

type fixedWeb struct{ items []contracts.WebItem }

func (f *fixedWeb) Collect(ctx context.Context, query string) (collector.WebResult, error) {
	return collector.WebResult{Items: f.items}, nil
}

type recordingBroker struct {
	submitted []contracts.ProposedOrder
}

func (b *recordingBroker) Submit(ctx context.Context, order contracts.ProposedOrder) (string, error) {
	b.submitted = append(b.submitted, order)
	return "ord-1", nil
}

func (b *recordingBroker) GetClock(ctx context.Context) (broker.Clock, error) {
	return broker.Clock{IsOpen: true, AsOf: time.Now()}, nil
}

func (b *recordingBroker) GetAccountSnapshot(ctx context.Context) (contracts.AccountSnapshot, error) {
	return contracts.AccountSnapshot{Equity: 50000, AsOf: time.Now()}, nil
}

func newTestOrchestrator(t *testing.T, model *scriptedModel, mode contracts.ExecMode) (*Orchestrator, *recordingBroker, *artifact.FileStore) {
	t.Helper()
	store, err := artifact.NewFileStore(t.TempDir(), 0)
	require.NoError(t, err)

	harness := reasoning.NewHarness(model, nil)
	brk := &recordingBroker{}
	quotes := financial.NewStaticProvider(map[string]contracts.SymbolQuote{
		"AAPL": {LastPrice: 190, Change1DPct: 1.1, AsOf: time.Now()},
		"MSFT": {LastPrice: 410, Change1DPct: -0.4, AsOf: time.Now()},
	})

	orch := NewOrchestrator(Options{
		Hub: collector.NewHub(&fixedWeb{items: []contracts.WebItem{
			{Title: "Apple demand strong", URL: "https://example.com/aapl", Summary: "iPhone sales beat"},
		}}, nil),
		PreAnalysis:   reasoning.NewPreAnalysisStage(harness, 12),
		Focus:         reasoning.NewFocusStage(harness, 6),
		Final:         reasoning.NewFinalStage(harness, 1),
		Quotes:        quotes,
		Gate:          executor.NewGate(executor.GateAuto, nil),
		Executor:      executor.New(brk, mode),
		ArtifactStore: store,
		Brokerage:     brk,
	})
	return orch, brk, store
}

func TestCycleEndToEndDryRun(t *testing.T) {
	model := &scriptedModel{responses: []string{
		`{"candidate_symbols": ["AAPL", "MSFT"], "rationale": "strong consumer tech signals"}`,
		`{"focus_symbols": ["AAPL"], "open_questions": []}`,
		`{"action": "LONG", "orders": [{"symbol": "AAPL", "side": "LONG", "quantity": 1}], "conclusion": "demand momentum"}`,
	}}
	orch, brk, store := newTestOrchestrator(t, model, contracts.ModeDryRun)

	res, err := orch.RunCycle(context.Background(), "tech demand today")
	require.NoError(t, err)
	art := res.Artifact
	require.NotNil(t, art)

	// All five stage fields are populated.
	require.NotNil(t, art.FreshSnapshot)
	require.NotNil(t, art.PreAnalysis)
	require.NotNil(t, art.FocusSelection)
	require.NotNil(t, art.FinancialSnapshot)
	require.NotNil(t, art.FinalDecision)
	require.NotNil(t, art.ExecutionReport)

	assert.Equal(t, []string{"AAPL", "MSFT"}, art.PreAnalysis.CandidateSymbols)
	assert.Equal(t, []string{"AAPL"}, art.FocusSelection.FocusSymbols)
	assert.Contains(t, art.FinancialSnapshot.SymbolsData, "AAPL")
	assert.Equal(t, contracts.ActionLong, art.FinalDecision.Action)

	require.Len(t, art.ExecutionReport.Outcomes, 1)
	assert.Equal(t, contracts.OutcomeSkipped, art.ExecutionReport.Outcomes[0].Status)
	assert.Empty(t, brk.submitted, "dry run never reaches the brokerage")

	require.NotNil(t, art.Account, "account snapshot is best-effort attached")

	// Artifact persisted exactly once and loadable.
	saved, err := store.Load(art.CycleID)
	require.NoError(t, err)
	assert.Equal(t, art.CycleID, saved.CycleID)
	assert.False(t, saved.Failed())
	assert.NotEmpty(t, res.Summary)
}

func TestCycleFollowUpRoundRerunsPreAnalysisOnce(t *testing.T) {
	model := &scriptedModel{responses: []string{
		`{"candidate_symbols": ["AAPL"], "rationale": "thin signal", "follow_up_queries": ["AAPL supplier checks"]}`,
		`{"candidate_symbols": ["AAPL", "MSFT"], "rationale": "second pass", "follow_up_queries": ["ignored on second pass"]}`,
		`{"focus_symbols": ["MSFT"], "open_questions": []}`,
		`{"action": "HOLD", "orders": [], "conclusion": "not enough conviction"}`,
	}}
	orch, _, _ := newTestOrchestrator(t, model, contracts.ModeDryRun)

	res, err := orch.RunCycle(context.Background(), "q")
	require.NoError(t, err)
	art := res.Artifact

	assert.Equal(t, 4, model.calls, "exactly one extra pre-analysis round")
	assert.Equal(t, []string{"AAPL supplier checks"}, art.FollowUpQueries)
	assert.Equal(t, "second pass", art.PreAnalysis.Rationale)
	assert.Equal(t, contracts.ActionHold, art.FinalDecision.Action)
	assert.Empty(t, art.FinalDecision.Orders)
}

func TestCycleFailurePersistsPartialArtifact(t *testing.T) {
	model := &scriptedModel{responses: []string{
		`{"candidate_symbols": ["AAPL"], "rationale": "ok"}`,
		`no json at all in this focus response`,
	}}
	orch, _, store := newTestOrchestrator(t, model, contracts.ModeDryRun)

	res, err := orch.RunCycle(context.Background(), "q")
	require.Error(t, err)
	art := res.Artifact

	require.True(t, art.Failed())
	assert.Equal(t, StageFocus, art.Error.Stage)
	assert.Equal(t, string(contracts.KindMalformedOutput), art.Error.Kind)
	assert.Contains(t, art.Error.Raw, "no json")

	// Completed stages survive in the persisted artifact.
	saved, err := store.Load(art.CycleID)
	require.NoError(t, err)
	require.NotNil(t, saved.PreAnalysis)
	assert.Nil(t, saved.FocusSelection)
	assert.Nil(t, saved.FinalDecision)
}

func TestCycleLiveSubmitsThroughBroker(t *testing.T) {
	model := &scriptedModel{responses: []string{
		`{"candidate_symbols": ["AAPL"], "rationale": "clear long"}`,
		`{"focus_symbols": ["AAPL"], "open_questions": []}`,
		`{"action": "LONG", "orders": [{"symbol": "AAPL", "side": "LONG", "quantity": 3}], "conclusion": "go"}`,
	}}
	orch, brk, _ := newTestOrchestrator(t, model, contracts.ModeLive)

	res, err := orch.RunCycle(context.Background(), "q")
	require.NoError(t, err)

	require.Len(t, brk.submitted, 1)
	assert.Equal(t, "AAPL", brk.submitted[0].Symbol)
	require.Len(t, res.Artifact.ExecutionReport.Outcomes, 1)
	assert.Equal(t, contracts.OutcomeSubmitted, res.Artifact.ExecutionReport.Outcomes[0].Status)
	assert.Equal(t, "ord-1", res.Artifact.ExecutionReport.Outcomes[0].BrokerOrderID)
}

func TestSummarizeFailedCycle(t *testing.T) {
	art := contracts.NewCycleArtifact("2026-01-02_10-00-00_aaaa", "q", time.Now())
	art.FinishedAt = art.StartedAt.Add(time.Second)
	art.Fail(StagePreAnalysis, contracts.NewServiceError(StagePreAnalysis, fmt.Errorf("model down")))

	s := Summarize(art, "/tmp/a.json")
	assert.Contains(t, s, "FAILED at pre_analysis")
	assert.Contains(t, s, "/tmp/a.json")
}
