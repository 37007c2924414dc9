package reasoning

import (
	"context"
	"encoding/json"
	"fmt"

	"marketpipe/internal/contracts"
	"marketpipe/internal/gateway/provider"
	"marketpipe/internal/logger"
	"marketpipe/internal/pkg/jsonutil"
	"marketpipe/internal/prompt"
)

// 中文说明：
// Harness 是三个 reasoning stage 共用的执行骨架：
// 渲染 user payload → 调用模型（限定 token 预算）→ 从自由文本中提取首个
// 平衡大括号 JSON 对象 → JSON Schema 校验。任何一步失败都以 StageError
// 形式上抛：服务失败归为 ServiceUnavailable，解析/校验失败归为
// MalformedOutput 并保留原始输出供事后排查。不允许静默兜底。

type Harness struct {
	Provider provider.ModelProvider
	Registry *prompt.Registry
}

func NewHarness(p provider.ModelProvider, r *prompt.Registry) *Harness {
	return &Harness{Provider: p, Registry: r}
}

// stageOutput carries the extracted JSON block plus the full raw response.
type stageOutput struct {
	Block string
	Raw   string
	Doc   map[string]any
}

func (h *Harness) run(ctx context.Context, stageID string, payload any) (stageOutput, error) {
	tpl, ok := prompt.Resolve(h.Registry, stageID)
	if !ok {
		return stageOutput{}, contracts.NewServiceError(stageID, fmt.Errorf("no template for stage"))
	}
	userJSON, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return stageOutput{}, contracts.NewServiceError(stageID, fmt.Errorf("payload marshal: %w", err))
	}

	logger.LogLLMRequest(stageID, tpl.System, string(userJSON))
	raw, err := h.Provider.Complete(ctx, provider.ChatPayload{
		System:    tpl.System,
		User:      string(userJSON),
		MaxTokens: tpl.MaxTokens,
	})
	if err != nil {
		return stageOutput{}, contracts.NewServiceError(stageID, err)
	}
	logger.LogLLMResponse(stageID, raw)

	block, ok := jsonutil.ExtractObject(raw)
	if !ok {
		return stageOutput{}, contracts.NewMalformedError(stageID, raw, fmt.Errorf("no balanced JSON object in response"))
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(block), &doc); err != nil {
		return stageOutput{}, contracts.NewMalformedError(stageID, raw, fmt.Errorf("extracted block is not valid JSON: %w", err))
	}
	if err := tpl.Validate(doc); err != nil {
		return stageOutput{}, contracts.NewMalformedError(stageID, raw, fmt.Errorf("schema validation: %w", err))
	}
	return stageOutput{Block: block, Raw: raw, Doc: doc}, nil
}
