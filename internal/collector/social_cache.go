package collector

import (
	"context"
	"fmt"
	"os"
	"strings"

	"marketpipe/internal/contracts"

	"github.com/tidwall/gjson"
)

// SocialCacheCollector 从本地 JSON 缓存读取社交信号。
// 未配置缓存文件时返回显式的空结果加说明（placeholder 行为），
// 并置 Degraded，让快照标记 partial 而不是悄悄缺字段。
type SocialCacheCollector struct {
	cacheFile string
}

func NewSocialCacheCollector(cacheFile string) *SocialCacheCollector {
	return &SocialCacheCollector{cacheFile: strings.TrimSpace(cacheFile)}
}

func (c *SocialCacheCollector) Collect(ctx context.Context, query string) (SocialResult, error) {
	if c.cacheFile == "" {
		return SocialResult{
			Items:    []contracts.SocialItem{},
			Notes:    []string{"social collector not wired live yet (placeholder active)"},
			Degraded: true,
		}, nil
	}

	raw, err := os.ReadFile(c.cacheFile)
	if err != nil {
		return SocialResult{}, fmt.Errorf("social cache file unreadable: %w", err)
	}
	parsed := gjson.ParseBytes(raw)
	if !parsed.IsArray() {
		return SocialResult{}, fmt.Errorf("social cache invalid: JSON array expected")
	}

	var out SocialResult
	parsed.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			return true
		}
		text := strings.TrimSpace(item.Get("text").String())
		if text == "" {
			text = strings.TrimSpace(item.Get("title").String())
		}
		if text == "" {
			return true
		}
		source := strings.TrimSpace(item.Get("source").String())
		if source == "" {
			source = "x_cache"
		}
		out.Items = append(out.Items, contracts.SocialItem{
			Source:    source,
			Text:      text,
			Timestamp: strings.TrimSpace(item.Get("timestamp").String()),
		})
		return true
	})
	out.Notes = append(out.Notes, fmt.Sprintf("social cache loaded: %d signals from %s", len(out.Items), c.cacheFile))
	return out, nil
}
