package prompt

// Builtin templates act as fallback when stages.yaml does not define a
// stage. They carry the same contract the file-based templates do, so the
// pipeline can run (and be tested) without any prompt file on disk.

const (
	StagePreAnalysis = "pre_analysis"
	StageFocus       = "focus_selection"
	StageFinal       = "final_decision"
)

var builtinTemplates = map[string]StageTemplate{
	StagePreAnalysis: normalizeTemplate(StagePreAnalysis, StageTemplate{
		System: "You are a market pre-analysis assistant. Read the fresh web and social " +
			"signals and extract the tradable story. Respond with a single JSON object: " +
			`{"candidate_symbols": ["TICKER", ...], "rationale": "...", "follow_up_queries": ["...", ...]}. ` +
			"candidate_symbols are US tickers only, most relevant first. follow_up_queries " +
			"is optional and lists extra web searches that would materially improve the analysis.",
		MaxTokens: 2048,
		Schema: map[string]interface{}{
			"type":     "object",
			"required": []interface{}{"candidate_symbols", "rationale"},
			"properties": map[string]interface{}{
				"candidate_symbols": map[string]interface{}{
					"type":  "array",
					"items": map[string]interface{}{"type": "string"},
				},
				"rationale": map[string]interface{}{"type": "string"},
				"follow_up_queries": map[string]interface{}{
					"type":  "array",
					"items": map[string]interface{}{"type": "string"},
				},
			},
		},
	}),
	StageFocus: normalizeTemplate(StageFocus, StageTemplate{
		System: "You are a focus-selection assistant. From the candidate symbols and the " +
			"fresh signals, pick the few symbols most worth a deeper financial look. Respond " +
			`with a single JSON object: {"focus_symbols": ["TICKER", ...], "open_questions": ["...", ...]}. ` +
			"focus_symbols must be a subset of the candidates, ordered by priority.",
		MaxTokens: 1024,
		Schema: map[string]interface{}{
			"type":     "object",
			"required": []interface{}{"focus_symbols"},
			"properties": map[string]interface{}{
				"focus_symbols": map[string]interface{}{
					"type":  "array",
					"items": map[string]interface{}{"type": "string"},
				},
				"open_questions": map[string]interface{}{
					"type":  "array",
					"items": map[string]interface{}{"type": "string"},
				},
			},
		},
	}),
	StageFinal: normalizeTemplate(StageFinal, StageTemplate{
		System: "You are the final trading decision maker. Given the pre-analysis, the focus " +
			"shortlist and the financial snapshot, decide LONG, SHORT or HOLD. Respond with a " +
			`single JSON object: {"action": "LONG|SHORT|HOLD", "orders": [{"symbol": "TICKER", ` +
			`"side": "LONG|SHORT|CLOSE", "quantity": 1, "order_type": "MARKET|LIMIT", "limit_price": 0}], ` +
			`"conclusion": "..."}. When action is HOLD, orders must be empty. Never invent symbols ` +
			"outside the focus shortlist.",
		MaxTokens: 2048,
		Schema: map[string]interface{}{
			"type":     "object",
			"required": []interface{}{"action", "orders", "conclusion"},
			"properties": map[string]interface{}{
				"action": map[string]interface{}{
					"type": "string",
					"enum": []interface{}{"LONG", "SHORT", "HOLD"},
				},
				"orders": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type":     "object",
						"required": []interface{}{"symbol", "side", "quantity"},
					},
				},
				"conclusion": map[string]interface{}{"type": "string"},
			},
		},
	}),
}

// Builtin returns the built-in template for a stage id.
func Builtin(id string) (StageTemplate, bool) {
	tpl, ok := builtinTemplates[id]
	return tpl, ok
}

// Resolve prefers the registry's template and falls back to the builtin.
// A nil registry is allowed.
func Resolve(r *Registry, id string) (StageTemplate, bool) {
	if r != nil {
		if tpl, ok := r.Template(id); ok {
			return tpl, true
		}
	}
	return Builtin(id)
}
