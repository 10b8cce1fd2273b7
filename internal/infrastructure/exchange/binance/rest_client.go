package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fundwatch/internal/application/port"
	"fundwatch/internal/domain/model"
)

const (
	defaultSpotURL    = "https://api.binance.com"
	defaultFuturesURL = "https://fapi.binance.com"
)

// Client Binance 行情 REST 客户端（现货 + U 本位合约）
// Implements port.MarketData. Every failure wraps port.ErrUnavailable so the
// core treats it as a skippable cycle or a fallback field, never as fatal.
type Client struct {
	spotURL    string
	futuresURL string
	http       *http.Client
}

func NewClient(spotURL, futuresURL string) *Client {
	if spotURL == "" {
		spotURL = defaultSpotURL
	}
	if futuresURL == "" {
		futuresURL = defaultFuturesURL
	}
	return &Client{
		spotURL:    strings.TrimRight(spotURL, "/"),
		futuresURL: strings.TrimRight(futuresURL, "/"),
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// ---- universe ----

type exchangeInfoResp struct {
	Symbols []struct {
		Symbol       string `json:"symbol"`
		Status       string `json:"status"`
		ContractType string `json:"contractType"`
	} `json:"symbols"`
}

// PerpetualSymbols 列出所有交易中的 USDT 永续合约
func (c *Client) PerpetualSymbols(ctx context.Context) ([]string, error) {
	var info exchangeInfoResp
	if err := c.getJSON(ctx, c.futuresURL+"/fapi/v1/exchangeInfo", nil, &info); err != nil {
		return nil, err
	}
	symbols := make([]string, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		if strings.HasSuffix(s.Symbol, "USDT") && s.Status == "TRADING" && s.ContractType == "PERPETUAL" {
			symbols = append(symbols, s.Symbol)
		}
	}
	return symbols, nil
}

type premiumIndexResp struct {
	Symbol          string `json:"symbol"`
	LastFundingRate string `json:"lastFundingRate"`
}

// FundingRates 获取全市场 USDT 合约的当前资金费率
func (c *Client) FundingRates(ctx context.Context) (model.FundingSnapshot, error) {
	var items []premiumIndexResp
	if err := c.getJSON(ctx, c.futuresURL+"/fapi/v1/premiumIndex", nil, &items); err != nil {
		return nil, err
	}
	rates := make(model.FundingSnapshot, len(items))
	for _, it := range items {
		if !strings.HasSuffix(it.Symbol, "USDT") {
			continue
		}
		rate, err := strconv.ParseFloat(it.LastFundingRate, 64)
		if err != nil {
			continue
		}
		rates[it.Symbol] = rate
	}
	return rates, nil
}

// ---- current per-symbol fields ----

type tickerPriceResp struct {
	Price string `json:"price"`
}

func (c *Client) SpotPrice(ctx context.Context, symbol string) (float64, error) {
	var t tickerPriceResp
	if err := c.getJSON(ctx, c.spotURL+"/api/v3/ticker/price", url.Values{"symbol": {symbol}}, &t); err != nil {
		return 0, err
	}
	return parsePrice(t.Price)
}

func (c *Client) FuturesPrice(ctx context.Context, symbol string) (float64, error) {
	var t tickerPriceResp
	if err := c.getJSON(ctx, c.futuresURL+"/fapi/v1/ticker/price", url.Values{"symbol": {symbol}}, &t); err != nil {
		return 0, err
	}
	return parsePrice(t.Price)
}

func (c *Client) FundingRate(ctx context.Context, symbol string) (float64, error) {
	var p premiumIndexResp
	if err := c.getJSON(ctx, c.futuresURL+"/fapi/v1/premiumIndex", url.Values{"symbol": {symbol}}, &p); err != nil {
		return 0, err
	}
	return parsePrice(p.LastFundingRate)
}

type openInterestResp struct {
	OpenInterest string `json:"openInterest"`
}

func (c *Client) OpenInterest(ctx context.Context, symbol string) (float64, error) {
	var o openInterestResp
	if err := c.getJSON(ctx, c.futuresURL+"/fapi/v1/openInterest", url.Values{"symbol": {symbol}}, &o); err != nil {
		return 0, err
	}
	return parsePrice(o.OpenInterest)
}

// ---- historical sources ----

func (c *Client) SpotCloses(ctx context.Context, symbol, interval string, start, end time.Time, limit int) ([]model.Point, error) {
	return c.klineCloses(ctx, c.spotURL+"/api/v3/klines", symbol, interval, start, end, limit)
}

func (c *Client) FuturesCloses(ctx context.Context, symbol, interval string, start, end time.Time, limit int) ([]model.Point, error) {
	return c.klineCloses(ctx, c.futuresURL+"/fapi/v1/klines", symbol, interval, start, end, limit)
}

// klineCloses parses the Binance-style mixed array rows:
// [0] openTime(ms), [4] close(string), rest ignored.
func (c *Client) klineCloses(ctx context.Context, endpoint, symbol, interval string, start, end time.Time, limit int) ([]model.Point, error) {
	params := url.Values{
		"symbol":    {symbol},
		"interval":  {interval},
		"startTime": {strconv.FormatInt(start.UnixMilli(), 10)},
		"endTime":   {strconv.FormatInt(end.UnixMilli(), 10)},
		"limit":     {strconv.Itoa(limit)},
	}
	var raw [][]any
	if err := c.getJSON(ctx, endpoint, params, &raw); err != nil {
		return nil, err
	}

	out := make([]model.Point, 0, len(raw))
	for _, row := range raw {
		if len(row) < 5 {
			continue
		}
		openTime, ok := row[0].(float64)
		if !ok {
			continue
		}
		closeStr, ok := row[4].(string)
		if !ok {
			continue
		}
		closePx, err := strconv.ParseFloat(closeStr, 64)
		if err != nil {
			continue
		}
		out = append(out, model.Point{Time: time.UnixMilli(int64(openTime)).UTC(), Value: closePx})
	}
	return out, nil
}

type fundingHistResp struct {
	FundingTime int64  `json:"fundingTime"`
	FundingRate string `json:"fundingRate"`
}

func (c *Client) FundingRateHistory(ctx context.Context, symbol string, start, end time.Time, limit int) ([]model.Point, error) {
	params := url.Values{
		"symbol":    {symbol},
		"startTime": {strconv.FormatInt(start.UnixMilli(), 10)},
		"endTime":   {strconv.FormatInt(end.UnixMilli(), 10)},
		"limit":     {strconv.Itoa(limit)},
	}
	var items []fundingHistResp
	if err := c.getJSON(ctx, c.futuresURL+"/fapi/v1/fundingRate", params, &items); err != nil {
		return nil, err
	}
	out := make([]model.Point, 0, len(items))
	for _, it := range items {
		rate, err := strconv.ParseFloat(it.FundingRate, 64)
		if err != nil {
			continue
		}
		out = append(out, model.Point{Time: time.UnixMilli(it.FundingTime).UTC(), Value: rate})
	}
	return out, nil
}

type openInterestHistResp struct {
	Timestamp       int64  `json:"timestamp"`
	SumOpenInterest string `json:"sumOpenInterest"`
}

func (c *Client) OpenInterestHistory(ctx context.Context, symbol, period string, start, end time.Time, limit int) ([]model.Point, error) {
	params := url.Values{
		"symbol":    {symbol},
		"period":    {period},
		"startTime": {strconv.FormatInt(start.UnixMilli(), 10)},
		"endTime":   {strconv.FormatInt(end.UnixMilli(), 10)},
		"limit":     {strconv.Itoa(limit)},
	}
	var items []openInterestHistResp
	if err := c.getJSON(ctx, c.futuresURL+"/futures/data/openInterestHist", params, &items); err != nil {
		return nil, err
	}
	out := make([]model.Point, 0, len(items))
	for _, it := range items {
		qty, err := strconv.ParseFloat(it.SumOpenInterest, 64)
		if err != nil {
			continue
		}
		out = append(out, model.Point{Time: time.UnixMilli(it.Timestamp).UTC(), Value: qty})
	}
	return out, nil
}

// ---- helpers ----

func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, target any) error {
	u := endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", port.ErrUnavailable, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", port.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: binance api error: %d %s", port.ErrUnavailable, resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("%w: decode: %v", port.ErrUnavailable, err)
	}
	return nil
}

func parsePrice(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: parse %q: %v", port.ErrUnavailable, s, err)
	}
	return v, nil
}

var _ port.MarketData = (*Client)(nil)
