package composite

import (
	"context"

	"fundwatch/internal/application/port"
	"fundwatch/internal/domain/model"
)

type Repo struct {
	sinks []port.ReportSink
}

func New(sinks ...port.ReportSink) *Repo {
	// nil sinks are allowed and skipped
	out := make([]port.ReportSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return &Repo{sinks: out}
}

func (r *Repo) Empty() bool { return len(r.sinks) == 0 }

func (r *Repo) InsertReport(ctx context.Context, ts int64, payload string) error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.InsertReport(ctx, ts, payload); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Repo) UpsertLatestRates(ctx context.Context, ts int64, rates model.FundingSnapshot) error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.UpsertLatestRates(ctx, ts, rates); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Repo) Close() error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ port.ReportSink = (*Repo)(nil)
