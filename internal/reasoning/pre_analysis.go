package reasoning

import (
	"context"
	"fmt"
	"strings"

	"marketpipe/internal/contracts"
	"marketpipe/internal/pkg/symbol"
	"marketpipe/internal/prompt"

	"github.com/tidwall/gjson"
)

// payload caps keep the prompt inside the token budget even on busy days.
const (
	maxPayloadWebItems    = 12
	maxPayloadSocialItems = 12
	maxSummaryChars       = 400
)

// PreAnalysisStage reads the fresh snapshot and proposes candidate symbols.
type PreAnalysisStage struct {
	harness       *Harness
	maxCandidates int
}

func NewPreAnalysisStage(h *Harness, maxCandidates int) *PreAnalysisStage {
	return &PreAnalysisStage{harness: h, maxCandidates: maxCandidates}
}

func (s *PreAnalysisStage) Run(ctx context.Context, snap contracts.FreshSnapshot) (contracts.PreAnalysisResult, error) {
	payload := map[string]any{
		"task":           "pre_analysis",
		"fresh_snapshot": snapshotPayload(snap),
		"limits": map[string]any{
			"max_candidate_symbols": s.maxCandidates,
		},
	}
	out, err := s.harness.run(ctx, prompt.StagePreAnalysis, payload)
	if err != nil {
		return contracts.PreAnalysisResult{}, err
	}

	parsed := gjson.Parse(out.Block)
	rationale := strings.TrimSpace(parsed.Get("rationale").String())
	if rationale == "" {
		return contracts.PreAnalysisResult{}, contracts.NewMalformedError(
			prompt.StagePreAnalysis, out.Raw, fmt.Errorf("rationale is empty"))
	}

	candidates := symbol.NormalizeList(stringList(parsed.Get("candidate_symbols")))
	if len(candidates) > s.maxCandidates {
		candidates = candidates[:s.maxCandidates]
	}
	if candidates == nil {
		candidates = []string{}
	}

	var followUps []string
	for _, q := range stringList(parsed.Get("follow_up_queries")) {
		if q = strings.TrimSpace(q); q != "" {
			followUps = append(followUps, q)
		}
	}

	return contracts.PreAnalysisResult{
		CandidateSymbols: candidates,
		Rationale:        rationale,
		FollowUpQueries:  followUps,
	}, nil
}

func snapshotPayload(snap contracts.FreshSnapshot) map[string]any {
	web := make([]map[string]string, 0, len(snap.WebItems))
	for i, item := range snap.WebItems {
		if i >= maxPayloadWebItems {
			break
		}
		web = append(web, map[string]string{
			"title":   item.Title,
			"summary": clip(item.Summary, maxSummaryChars),
			"url":     item.URL,
		})
	}
	social := make([]map[string]string, 0, len(snap.SocialItems))
	for i, item := range snap.SocialItems {
		if i >= maxPayloadSocialItems {
			break
		}
		social = append(social, map[string]string{
			"source": item.Source,
			"text":   clip(item.Text, maxSummaryChars),
		})
	}
	return map[string]any{
		"collected_at": snap.CollectedAt,
		"partial":      snap.Partial,
		"web_items":    web,
		"social_items": social,
		"notes":        snap.Notes,
	}
}

func stringList(res gjson.Result) []string {
	if !res.IsArray() {
		return nil
	}
	var out []string
	res.ForEach(func(_, v gjson.Result) bool {
		out = append(out, v.String())
		return true
	})
	return out
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
