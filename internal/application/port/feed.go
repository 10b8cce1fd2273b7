package port

import "context"

// FundingTick 资金费率推送（mark price 流）
type FundingTick struct {
	Symbol      string
	MarkPrice   float64
	FundingRate float64 // fraction, not percent
	Ts          int64   // unix ms
}

// FundingFeed pushes live funding rates for the tracked symbols so the
// poll loop's last-known fallback never goes stale between REST polls.
type FundingFeed interface {
	Name() string
	Subscribe(ctx context.Context, symbols []string) (<-chan FundingTick, error)
}
