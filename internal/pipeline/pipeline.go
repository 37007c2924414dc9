// Package pipeline 串联一个完整的决策 cycle：采集 → 预分析 → 聚焦 →
// 行情补全 → 最终决策 → 确认 → 执行 → 产物落盘。阶段严格顺序执行，
// 任何阶段失败都会中止 cycle，但产物仍然会持久化一次。
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"marketpipe/internal/artifact"
	"marketpipe/internal/collector"
	"marketpipe/internal/contracts"
	"marketpipe/internal/executor"
	"marketpipe/internal/financial"
	"marketpipe/internal/gateway/broker"
	"marketpipe/internal/logger"
	"marketpipe/internal/reasoning"
)

// Stage names as they appear in artifact durations and error descriptors.
const (
	StageFreshData   = "fresh_data"
	StagePreAnalysis = "pre_analysis"
	StageFocus       = "focus_selection"
	StageFinancial   = "financial_enrichment"
	StageFinal       = "final_decision"
	StageExecution   = "execution"
	StagePersist     = "persist"
)

// Orchestrator owns one cycle at a time. It is not safe for concurrent use;
// the scheduler guarantees cycles never overlap.
type Orchestrator struct {
	hub       *collector.Hub
	pre       *reasoning.PreAnalysisStage
	focus     *reasoning.FocusStage
	final     *reasoning.FinalStage
	quotes    financial.QuoteProvider
	gate      *executor.Gate
	exec      *executor.Executor
	store     *artifact.FileStore
	cycleLog  *artifact.CycleLog
	brokerage broker.Brokerage

	nowFn func() time.Time
	log   logger.StageLogger
}

type Options struct {
	Hub           *collector.Hub
	PreAnalysis   *reasoning.PreAnalysisStage
	Focus         *reasoning.FocusStage
	Final         *reasoning.FinalStage
	Quotes        financial.QuoteProvider
	Gate          *executor.Gate
	Executor      *executor.Executor
	ArtifactStore *artifact.FileStore
	CycleLog      *artifact.CycleLog
	Brokerage     broker.Brokerage
}

func NewOrchestrator(opts Options) *Orchestrator {
	return &Orchestrator{
		hub:       opts.Hub,
		pre:       opts.PreAnalysis,
		focus:     opts.Focus,
		final:     opts.Final,
		quotes:    opts.Quotes,
		gate:      opts.Gate,
		exec:      opts.Executor,
		store:     opts.ArtifactStore,
		cycleLog:  opts.CycleLog,
		brokerage: opts.Brokerage,
		nowFn:     time.Now,
		log:       logger.Stage("cycle"),
	}
}

// Result is what the caller gets back after a cycle, finished or aborted.
type Result struct {
	Artifact     *contracts.CycleArtifact
	ArtifactPath string
	Summary      string
}

// RunCycle executes one full cycle for the configured query. The returned
// error reflects the cycle outcome; the artifact is persisted either way.
func (o *Orchestrator) RunCycle(ctx context.Context, query string) (Result, error) {
	started := o.nowFn()
	art := contracts.NewCycleArtifact(artifact.NewCycleID(started), query, started)
	o.log.Infof("cycle %s started, query=%q", art.CycleID, query)

	err := o.runStages(ctx, art)
	art.FinishedAt = o.nowFn()
	if err != nil {
		o.log.Errorf("cycle %s aborted: %v", art.CycleID, err)
	}

	path := o.finalize(ctx, art)
	res := Result{
		Artifact:     art,
		ArtifactPath: path,
		Summary:      Summarize(art, path),
	}
	return res, err
}

func (o *Orchestrator) runStages(ctx context.Context, art *contracts.CycleArtifact) error {
	// 1. Fresh data. Collector failures degrade to a partial snapshot and
	// never abort the cycle.
	snap := o.timedCollect(ctx, art)
	art.FreshSnapshot = &snap

	// 2. Pre-analysis, with at most one follow-up web round.
	pre, snap, err := o.timedPreAnalysis(ctx, art, snap)
	if err != nil {
		art.Fail(StagePreAnalysis, err)
		return err
	}
	art.PreAnalysis = &pre
	art.FreshSnapshot = &snap

	// 3. Focus selection.
	focusStart := o.nowFn()
	focus, err := o.focus.Run(ctx, pre, snap)
	art.RecordDuration(StageFocus, o.nowFn().Sub(focusStart))
	if err != nil {
		art.Fail(StageFocus, err)
		return err
	}
	art.FocusSelection = &focus
	o.log.Infof("focus symbols: %s", strings.Join(focus.FocusSymbols, ", "))

	// 4. Financial enrichment. Per-symbol failures land in the snapshot's
	// error partition; the stage itself does not abort.
	finStart := o.nowFn()
	fin := financial.Enrich(ctx, o.quotes, focus.FocusSymbols)
	art.RecordDuration(StageFinancial, o.nowFn().Sub(finStart))
	art.FinancialSnapshot = &fin

	// 5. Final decision.
	finalStart := o.nowFn()
	decision, err := o.final.Run(ctx, pre, focus, fin, snap)
	art.RecordDuration(StageFinal, o.nowFn().Sub(finalStart))
	if err != nil {
		art.Fail(StageFinal, err)
		return err
	}
	art.FinalDecision = &decision
	o.log.Infof("decision: action=%s orders=%d", decision.Action, len(decision.Orders))

	// 6. Confirmation + execution. A gate rejection is a normal terminal
	// state recorded in the report, not a cycle failure.
	execStart := o.nowFn()
	gateResult := o.gate.Review(ctx, decision)
	report := o.exec.Execute(ctx, gateResult)
	art.RecordDuration(StageExecution, o.nowFn().Sub(execStart))
	art.ExecutionReport = &report

	// 7. Account snapshot, best effort.
	if o.brokerage != nil {
		if acct, err := o.brokerage.GetAccountSnapshot(ctx); err != nil {
			o.log.Warnf("account snapshot unavailable: %v", err)
		} else {
			art.Account = &acct
		}
	}
	return nil
}

func (o *Orchestrator) timedCollect(ctx context.Context, art *contracts.CycleArtifact) contracts.FreshSnapshot {
	start := o.nowFn()
	snap := o.hub.Collect(ctx, art.Query)
	art.RecordDuration(StageFreshData, o.nowFn().Sub(start))
	return snap
}

// timedPreAnalysis runs pre-analysis and, if the model asked for follow-up
// web queries, collects the extra round into the snapshot and re-runs the
// stage exactly once. Follow-ups from the second run are recorded but not
// acted on.
func (o *Orchestrator) timedPreAnalysis(
	ctx context.Context,
	art *contracts.CycleArtifact,
	snap contracts.FreshSnapshot,
) (contracts.PreAnalysisResult, contracts.FreshSnapshot, error) {
	start := o.nowFn()
	defer func() {
		art.RecordDuration(StagePreAnalysis, o.nowFn().Sub(start))
	}()

	pre, err := o.pre.Run(ctx, snap)
	if err != nil {
		return contracts.PreAnalysisResult{}, snap, err
	}
	if len(pre.FollowUpQueries) == 0 {
		return pre, snap, nil
	}

	o.log.Infof("pre-analysis requested %d follow-up queries", len(pre.FollowUpQueries))
	art.FollowUpQueries = pre.FollowUpQueries
	extra := o.hub.CollectAdditionalWeb(ctx, pre.FollowUpQueries)
	if len(extra.Items) == 0 {
		return pre, snap, nil
	}
	snap.WebItems = collector.MergeWebItems(snap.WebItems, extra.Items)
	snap.Notes = append(snap.Notes, extra.Notes...)

	second, err := o.pre.Run(ctx, snap)
	if err != nil {
		return contracts.PreAnalysisResult{}, snap, err
	}
	return second, snap, nil
}

// finalize persists the artifact exactly once, to the file store and the
// sqlite cycle log. Persistence failures are logged, never raised: losing a
// record must not break the loop.
func (o *Orchestrator) finalize(ctx context.Context, art *contracts.CycleArtifact) string {
	path, err := o.store.Save(art)
	if err != nil {
		o.log.Errorf("persist artifact %s: %v", art.CycleID, err)
	}
	if o.cycleLog != nil {
		if err := o.cycleLog.Append(ctx, art); err != nil {
			o.log.Warnf("cycle log append %s: %v", art.CycleID, err)
		}
	}
	return path
}

// Summarize renders the end-of-cycle console summary.
func Summarize(art *contracts.CycleArtifact, path string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "cycle %s finished in %s\n", art.CycleID, art.FinishedAt.Sub(art.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(&b, "  query: %s\n", art.Query)
	if art.Failed() {
		fmt.Fprintf(&b, "  FAILED at %s (%s): %s\n", art.Error.Stage, art.Error.Kind, art.Error.Message)
	}
	if art.FocusSelection != nil {
		fmt.Fprintf(&b, "  focus: %s\n", joinOrDash(art.FocusSelection.FocusSymbols))
	}
	if art.FinalDecision != nil {
		fmt.Fprintf(&b, "  action: %s (%d orders)\n", art.FinalDecision.Action, len(art.FinalDecision.Orders))
	}
	if rep := art.ExecutionReport; rep != nil {
		if rep.Rejected {
			fmt.Fprintf(&b, "  execution: rejected (%s)\n", rep.RejectReason)
		} else {
			for _, out := range rep.Outcomes {
				fmt.Fprintf(&b, "  execution: %s %s: %s\n", out.Symbol, out.Status, out.Message)
			}
			if len(rep.Outcomes) == 0 {
				fmt.Fprintf(&b, "  execution: no orders\n")
			}
		}
	}
	if path != "" {
		fmt.Fprintf(&b, "  artifact: %s", path)
	}
	return b.String()
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
