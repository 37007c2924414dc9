package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"marketpipe/internal/config"
	"marketpipe/internal/contracts"
)

// TavilyWebCollector 调用 Tavily 风格的搜索 API（POST /search）。
type TavilyWebCollector struct {
	baseURL        string
	apiKey         string
	topic          string
	searchDepth    string
	timeRange      string
	maxResults     int
	includeDomains []string
	excludeDomains []string

	httpc *http.Client
}

func NewTavilyWebCollector(cfg config.WebConfig) *TavilyWebCollector {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &TavilyWebCollector{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:         cfg.APIKey,
		topic:          cfg.Topic,
		searchDepth:    cfg.SearchDepth,
		timeRange:      cfg.TimeRange,
		maxResults:     cfg.MaxResults,
		includeDomains: cfg.IncludeDomains,
		excludeDomains: cfg.ExcludeDomains,
		httpc:          &http.Client{Timeout: timeout},
	}
}

type tavilyResult struct {
	Title        string  `json:"title"`
	URL          string  `json:"url"`
	Content      string  `json:"content"`
	PublishedAt  string  `json:"published_date"`
	Score        float64 `json:"score"`
	RawContent   string  `json:"raw_content"`
	ResponseTime float64 `json:"-"`
}

type tavilyResponse struct {
	Results      []tavilyResult `json:"results"`
	Answer       string         `json:"answer"`
	ResponseTime float64        `json:"response_time"`
}

func (c *TavilyWebCollector) Collect(ctx context.Context, query string) (WebResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return WebResult{}, fmt.Errorf("empty query")
	}
	payload := map[string]any{
		"query":          query,
		"topic":          c.topic,
		"search_depth":   c.searchDepth,
		"max_results":    c.maxResults,
		"include_answer": false,
	}
	if c.timeRange != "" && c.timeRange != "none" {
		payload["time_range"] = c.timeRange
	}
	if len(c.includeDomains) > 0 {
		payload["include_domains"] = c.includeDomains
	}
	if len(c.excludeDomains) > 0 {
		payload["exclude_domains"] = c.excludeDomains
	}
	b, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(b))
	if err != nil {
		return WebResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return WebResult{}, fmt.Errorf("tavily request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return WebResult{}, fmt.Errorf("tavily status=%d", resp.StatusCode)
	}

	var decoded tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return WebResult{}, fmt.Errorf("tavily response decode failed: %w", err)
	}

	var out WebResult
	for _, item := range decoded.Results {
		title := strings.TrimSpace(item.Title)
		url := strings.TrimSpace(item.URL)
		if title == "" || url == "" {
			continue
		}
		summary := strings.TrimSpace(item.Content)
		if summary == "" && item.RawContent != "" {
			summary = truncate(item.RawContent, 500)
		}
		out.Items = append(out.Items, contracts.WebItem{
			Title:       title,
			URL:         url,
			Summary:     summary,
			PublishedAt: strings.TrimSpace(item.PublishedAt),
		})
	}
	if decoded.ResponseTime > 0 {
		out.Notes = append(out.Notes, fmt.Sprintf("tavily response_time: %.2fs", decoded.ResponseTime))
	}
	return out, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
