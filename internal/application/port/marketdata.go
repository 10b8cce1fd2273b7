package port

import (
	"context"
	"errors"
	"time"

	"fundwatch/internal/domain/model"
)

// ErrUnavailable 行情源不可用（网络失败、HTTP 错误、解析失败、超时）
// Cycle- or field-scoped failures wrap this; nothing in the core treats it
// as fatal.
var ErrUnavailable = errors.New("market data unavailable")

// MarketData is the provider boundary for everything the core samples.
// Implementations must bound every call with a timeout; on timeout they
// return an error wrapping ErrUnavailable.
type MarketData interface {
	// PerpetualSymbols lists the tradable USDT-margined perpetual universe.
	PerpetualSymbols(ctx context.Context) ([]string, error)

	// FundingRates returns the current funding rate for the whole universe.
	FundingRates(ctx context.Context) (model.FundingSnapshot, error)

	SpotPrice(ctx context.Context, symbol string) (float64, error)
	FuturesPrice(ctx context.Context, symbol string) (float64, error)
	FundingRate(ctx context.Context, symbol string) (float64, error)
	OpenInterest(ctx context.Context, symbol string) (float64, error)

	// Historical sources for backfill. Closes carry the kline open time and
	// the close price.
	SpotCloses(ctx context.Context, symbol, interval string, start, end time.Time, limit int) ([]model.Point, error)
	FuturesCloses(ctx context.Context, symbol, interval string, start, end time.Time, limit int) ([]model.Point, error)
	FundingRateHistory(ctx context.Context, symbol string, start, end time.Time, limit int) ([]model.Point, error)
	OpenInterestHistory(ctx context.Context, symbol, period string, start, end time.Time, limit int) ([]model.Point, error)
}
