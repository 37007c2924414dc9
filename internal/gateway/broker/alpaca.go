package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"marketpipe/internal/config"
	"marketpipe/internal/contracts"
)

// 中文说明：
// AlpacaClient 封装 Alpaca 风格的 REST 券商接口：下单、市场时钟、账户。
// LONG 映射 buy，SHORT/CLOSE 映射 sell；time_in_force 固定 day。

type AlpacaClient struct {
	baseURL   string
	apiKey    string
	apiSecret string
	httpc     *http.Client
}

func NewAlpacaClient(cfg config.BrokerConfig) *AlpacaClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &AlpacaClient{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		httpc:     &http.Client{Timeout: timeout},
	}
}

func (c *AlpacaClient) do(ctx context.Context, method, path string, body any, out any) error {
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("APCA-API-KEY-ID", c.apiKey)
	req.Header.Set("APCA-API-SECRET-KEY", c.apiSecret)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("broker request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		var eresp struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&eresp)
		msg := strings.TrimSpace(eresp.Message)
		if msg == "" {
			msg = resp.Status
		}
		return fmt.Errorf("broker status=%d: %s", resp.StatusCode, msg)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *AlpacaClient) Submit(ctx context.Context, order contracts.ProposedOrder) (string, error) {
	side := "buy"
	if order.Side == contracts.SideShort || order.Side == contracts.SideClose {
		side = "sell"
	}
	body := map[string]any{
		"symbol":        order.Symbol,
		"qty":           order.Quantity.String(),
		"side":          side,
		"type":          strings.ToLower(string(order.Type)),
		"time_in_force": "day",
	}
	if order.Type == contracts.OrderLimit && order.LimitPrice != nil {
		body["limit_price"] = order.LimitPrice.String()
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/v2/orders", body, &created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", fmt.Errorf("broker returned no order id")
	}
	return created.ID, nil
}

func (c *AlpacaClient) GetClock(ctx context.Context) (Clock, error) {
	var decoded struct {
		IsOpen    bool      `json:"is_open"`
		NextOpen  time.Time `json:"next_open"`
		Timestamp time.Time `json:"timestamp"`
	}
	if err := c.do(ctx, http.MethodGet, "/v2/clock", nil, &decoded); err != nil {
		return Clock{}, err
	}
	return Clock{IsOpen: decoded.IsOpen, NextOpen: decoded.NextOpen, AsOf: decoded.Timestamp}, nil
}

func (c *AlpacaClient) GetAccountSnapshot(ctx context.Context) (contracts.AccountSnapshot, error) {
	var account struct {
		Equity string `json:"equity"`
	}
	if err := c.do(ctx, http.MethodGet, "/v2/account", nil, &account); err != nil {
		return contracts.AccountSnapshot{}, err
	}
	var positions []struct {
		Symbol string `json:"symbol"`
		Qty    string `json:"qty"`
		Side   string `json:"side"`
	}
	if err := c.do(ctx, http.MethodGet, "/v2/positions", nil, &positions); err != nil {
		return contracts.AccountSnapshot{}, err
	}
	snap := contracts.AccountSnapshot{AsOf: time.Now().UTC()}
	snap.Equity, _ = strconv.ParseFloat(account.Equity, 64)
	for _, p := range positions {
		pos := contracts.Position{Symbol: p.Symbol, Side: p.Side}
		pos.Quantity, _ = strconv.ParseFloat(p.Qty, 64)
		snap.Positions = append(snap.Positions, pos)
	}
	return snap, nil
}
