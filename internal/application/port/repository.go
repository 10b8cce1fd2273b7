package port

import (
	"context"

	"fundwatch/internal/domain/model"
)

// ReportStore is the durable latest-state record the presentation layer
// reads; exactly one report lives there at a time.
type ReportStore interface {
	// Save atomically replaces the persisted report.
	Save(report *model.RankingReport) error
	// Load returns the persisted report, or (nil, nil) when none exists yet.
	Load() (*model.RankingReport, error)
}

// ReportSink receives a copy of every produced report; optional history
// backends (sqlite, postgres, redis) implement it.
type ReportSink interface {
	// InsertReport appends one report. ts is unix ms, payload the JSON body.
	InsertReport(ctx context.Context, ts int64, payload string) error

	// UpsertLatestRates replaces the latest known funding rate per symbol.
	UpsertLatestRates(ctx context.Context, ts int64, rates model.FundingSnapshot) error

	Close() error
}
