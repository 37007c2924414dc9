package collector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"marketpipe/internal/contracts"
	"marketpipe/internal/logger"

	"golang.org/x/sync/errgroup"
)

// 中文说明：
// FreshDataHub 同时调用 web 与 social 两个采集器并合并为一个快照。
// 任何一侧失败都不会中断 cycle：结果标记 partial=true 并附上说明。
// 本层不做重试，重试（若有）属于各采集器客户端自身。

type Hub struct {
	web    WebCollector
	social SocialCollector
	nowFn  func() time.Time
}

func NewHub(web WebCollector, social SocialCollector) *Hub {
	return &Hub{web: web, social: social, nowFn: time.Now}
}

// Collect runs both collectors concurrently; they are mutually independent.
func (h *Hub) Collect(ctx context.Context, query string) contracts.FreshSnapshot {
	snap := contracts.NewFreshSnapshot(h.nowFn().UTC())

	var webRes WebResult
	var socialRes SocialResult
	var webErr, socialErr error

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		webRes, webErr = h.collectWeb(gctx, query)
		return nil
	})
	group.Go(func() error {
		socialRes, socialErr = h.collectSocial(gctx, query)
		return nil
	})
	_ = group.Wait()

	if webErr != nil {
		snap.Partial = true
		snap.Notes = append(snap.Notes, fmt.Sprintf("web collector failed: %v", webErr))
		logger.Stage("fresh-data").Warnf("web collector failed: %v", webErr)
	} else {
		snap.WebItems = append(snap.WebItems, webRes.Items...)
		snap.Notes = append(snap.Notes, webRes.Notes...)
		if webRes.Degraded {
			snap.Partial = true
		}
	}
	if socialErr != nil {
		snap.Partial = true
		snap.Notes = append(snap.Notes, fmt.Sprintf("social collector failed: %v", socialErr))
		logger.Stage("fresh-data").Warnf("social collector failed: %v", socialErr)
	} else {
		snap.SocialItems = append(snap.SocialItems, socialRes.Items...)
		snap.Notes = append(snap.Notes, socialRes.Notes...)
		if socialRes.Degraded {
			snap.Partial = true
		}
	}

	snap.Notes = append([]string{
		fmt.Sprintf("web signals: %d", len(snap.WebItems)),
		fmt.Sprintf("social signals: %d", len(snap.SocialItems)),
	}, snap.Notes...)
	return snap
}

func (h *Hub) collectWeb(ctx context.Context, query string) (WebResult, error) {
	if h.web == nil {
		return WebResult{Notes: []string{"web collector not configured"}, Degraded: true}, nil
	}
	return h.web.Collect(ctx, query)
}

func (h *Hub) collectSocial(ctx context.Context, query string) (SocialResult, error) {
	if h.social == nil {
		return SocialResult{Notes: []string{"social collector not configured"}, Degraded: true}, nil
	}
	return h.social.Collect(ctx, query)
}

// CollectAdditionalWeb runs follow-up web queries requested by the
// pre-analysis stage and merges the unique-by-URL signals.
func (h *Hub) CollectAdditionalWeb(ctx context.Context, queries []string) WebResult {
	if h.web == nil || len(queries) == 0 {
		return WebResult{Notes: []string{"no additional web queries requested"}}
	}
	var merged WebResult
	seen := make(map[string]struct{})
	executed := 0
	for _, query := range queries {
		q := strings.TrimSpace(query)
		if q == "" {
			continue
		}
		res, err := h.web.Collect(ctx, q)
		executed++
		if err != nil {
			merged.Notes = append(merged.Notes, fmt.Sprintf("follow-up query %q failed: %v", q, err))
			continue
		}
		merged.Notes = append(merged.Notes, res.Notes...)
		for _, item := range res.Items {
			key := urlKey(item.URL)
			if key != "" {
				if _, ok := seen[key]; ok {
					continue
				}
				seen[key] = struct{}{}
			}
			merged.Items = append(merged.Items, item)
		}
	}
	merged.Notes = append(merged.Notes,
		fmt.Sprintf("follow-up web queries executed: %d, unique signals: %d", executed, len(merged.Items)))
	return merged
}

// MergeWebItems appends extras into base, deduplicating by normalized URL
// (falling back to title+summary when the URL is empty).
func MergeWebItems(base, extra []contracts.WebItem) []contracts.WebItem {
	merged := make([]contracts.WebItem, 0, len(base)+len(extra))
	seen := make(map[string]struct{}, len(base)+len(extra))
	for _, item := range append(append([]contracts.WebItem{}, base...), extra...) {
		key := urlKey(item.URL)
		if key == "" {
			key = strings.ToLower(strings.TrimSpace(item.Title)) + "::" + strings.ToLower(strings.TrimSpace(item.Summary))
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, item)
	}
	return merged
}

func urlKey(raw string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(raw), "/"))
}
