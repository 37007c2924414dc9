package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"marketpipe/internal/logger"
)

// 中文说明：
// OpenAIChatClient：兼容 OpenAI / xAI（grok）的聊天补全接口（/v1/chat/completions）。
// 对 429/5xx 做有限重试；每次调用都有超时上限，超时等同服务不可用。

type OpenAIChatClient struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	// 若为 0 则默认重试 2 次
	MaxRetries int

	httpc *http.Client
}

func NewOpenAIChatClient(baseURL, apiKey, model string, timeout time.Duration, maxRetries int) *OpenAIChatClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if maxRetries <= 0 {
		maxRetries = 2
	}
	return &OpenAIChatClient{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		Model:      model,
		Timeout:    timeout,
		MaxRetries: maxRetries,
		httpc:      &http.Client{Timeout: timeout},
	}
}

func (c *OpenAIChatClient) ID() string { return c.Model }

func (c *OpenAIChatClient) Complete(ctx context.Context, payload ChatPayload) (string, error) {
	url := c.endpoint()

	messages := []map[string]string{}
	if payload.System != "" {
		messages = append(messages, map[string]string{"role": "system", "content": payload.System})
	}
	messages = append(messages, map[string]string{"role": "user", "content": payload.User})

	body := map[string]any{"model": c.Model, "messages": messages, "temperature": 0.3}
	if payload.MaxTokens > 0 {
		body["max_tokens"] = payload.MaxTokens
	}
	b, _ := json.Marshal(body)

	var lastErr error
	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt == 0 {
			logger.Debugf("[AI] request: POST %s model=%s key=%s", url, c.Model, maskKey(c.APIKey))
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.APIKey)
		}

		resp, err := c.httpc.Do(req)
		if err != nil {
			lastErr = err
			break
		}
		if resp.StatusCode/100 == 2 {
			var r struct {
				Choices []struct {
					Message struct {
						Content string `json:"content"`
					} `json:"message"`
				} `json:"choices"`
			}
			derr := json.NewDecoder(resp.Body).Decode(&r)
			resp.Body.Close()
			if derr != nil {
				lastErr = derr
				break
			}
			if len(r.Choices) == 0 {
				lastErr = fmt.Errorf("empty choices")
				break
			}
			return r.Choices[0].Message.Content, nil
		}

		var eresp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&eresp)
		resp.Body.Close()
		msg := strings.TrimSpace(eresp.Error.Message)
		if msg == "" {
			msg = resp.Status
		}
		lastErr = fmt.Errorf("status=%d: %s", resp.StatusCode, msg)
		if !retryableStatus(resp.StatusCode) || attempt >= c.MaxRetries {
			break
		}
		wait := retryWait(resp.Header.Get("Retry-After"), attempt)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
	}
	return "", lastErr
}

func (c *OpenAIChatClient) endpoint() string {
	url := c.BaseURL
	if url == "" {
		url = "https://api.openai.com/v1"
	}
	url = strings.TrimRight(url, "/")
	// 容忍配置里写了完整路径的情况
	url = strings.TrimSuffix(url, "/chat/completions")
	return url + "/chat/completions"
}

func retryableStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	}
	return false
}

func retryWait(retryAfter string, attempt int) time.Duration {
	if retryAfter != "" {
		if secs, err := strconv.Atoi(retryAfter); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	// 指数退避：0.8s, 1.6s, 3.2s ...
	wait := 800 * time.Millisecond << attempt
	if wait > 8*time.Second {
		wait = 8 * time.Second
	}
	return wait
}

func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}
