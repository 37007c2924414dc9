package logger

import (
	"io"
	"log"
	"strings"
	"sync"
)

// 中文说明：
// 独立的 LLM 对话日志：完整记录每个 reasoning stage 的 system/user 提示词
// 与模型原始输出，便于排查解析失败（MalformedOutput）时的现场。

var (
	llmMu  sync.Mutex
	llmLog *log.Logger
)

func SetLLMWriter(w io.Writer) {
	llmMu.Lock()
	defer llmMu.Unlock()
	if w == nil {
		llmLog = nil
		return
	}
	llmLog = log.New(w, "", log.LstdFlags)
}

type llmSection struct {
	Title string
	Body  string
}

func logLLM(kind, stage string, sections []llmSection) {
	llmMu.Lock()
	logger := llmLog
	llmMu.Unlock()
	if logger == nil {
		return
	}
	var b strings.Builder
	b.WriteString("[LLM][")
	b.WriteString(kind)
	b.WriteString("]")
	if stage != "" {
		b.WriteString("[")
		b.WriteString(stage)
		b.WriteString("]")
	}
	b.WriteString("\n")
	for _, sec := range sections {
		t := strings.TrimSpace(sec.Title)
		if t == "" {
			t = "CONTENT"
		}
		b.WriteString("--- ")
		b.WriteString(t)
		b.WriteString(" ---\n")
		b.WriteString(sec.Body)
		if !strings.HasSuffix(sec.Body, "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString("=====\n")
	logger.Print(b.String())
}

func LogLLMRequest(stage, systemPrompt, userPrompt string) {
	logLLM("request", stage, []llmSection{
		{Title: "SYSTEM", Body: systemPrompt},
		{Title: "USER", Body: userPrompt},
	})
}

func LogLLMResponse(stage, raw string) {
	logLLM("response", stage, []llmSection{{Title: "RAW", Body: raw}})
}
