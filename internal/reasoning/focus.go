package reasoning

import (
	"context"
	"strings"

	"marketpipe/internal/contracts"
	"marketpipe/internal/logger"
	"marketpipe/internal/pkg/symbol"
	"marketpipe/internal/prompt"

	"github.com/tidwall/gjson"
)

// FocusStage narrows the candidate list to the symbols worth enriching.
type FocusStage struct {
	harness  *Harness
	maxFocus int
}

func NewFocusStage(h *Harness, maxFocus int) *FocusStage {
	return &FocusStage{harness: h, maxFocus: maxFocus}
}

func (s *FocusStage) Run(ctx context.Context, pre contracts.PreAnalysisResult, snap contracts.FreshSnapshot) (contracts.FocusSelection, error) {
	payload := map[string]any{
		"task": "focus_selection",
		"pre_analysis": map[string]any{
			"candidate_symbols": pre.CandidateSymbols,
			"rationale":         pre.Rationale,
		},
		"fresh_snapshot": snapshotPayload(snap),
		"limits": map[string]any{
			"max_focus_symbols": s.maxFocus,
		},
	}
	out, err := s.harness.run(ctx, prompt.StageFocus, payload)
	if err != nil {
		return contracts.FocusSelection{}, err
	}

	parsed := gjson.Parse(out.Block)
	requested := symbol.NormalizeList(stringList(parsed.Get("focus_symbols")))
	// focus 必须是候选列表的子序列；越界的 symbol 丢弃并告警，不致命。
	focus := symbol.Subsequence(requested, pre.CandidateSymbols, s.maxFocus)
	if dropped := len(requested) - len(focus); dropped > 0 {
		logger.Stage("focus-selection").Warnf("dropped %d symbols outside candidate list", dropped)
	}

	questions := []string{}
	for _, q := range stringList(parsed.Get("open_questions")) {
		if q = strings.TrimSpace(q); q != "" {
			questions = append(questions, q)
		}
	}

	return contracts.FocusSelection{
		FocusSymbols:  focus,
		OpenQuestions: questions,
	}, nil
}
