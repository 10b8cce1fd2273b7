package redis

import (
	"context"
	"strings"
	"time"

	"fundwatch/internal/application/port"
	"fundwatch/internal/domain/model"

	"github.com/redis/go-redis/v9"
)

type Repo struct {
	rdb        *redis.Client
	prefix     string
	ttl        time.Duration
	keyReport  string // prefix + ":report" latest report JSON
	keyRates   string // prefix + ":rates" hash symbol -> rate
	reportChan string // pub/sub channel for new reports
}

func New(rdb *redis.Client, prefix string, ttl time.Duration, reportChan string) *Repo {
	if strings.TrimSpace(prefix) == "" {
		prefix = "fundwatch"
	}
	if strings.TrimSpace(reportChan) == "" {
		reportChan = prefix + ":reports:pub"
	}
	return &Repo{
		rdb:        rdb,
		prefix:     prefix,
		ttl:        ttl,
		keyReport:  prefix + ":report",
		keyRates:   prefix + ":rates",
		reportChan: reportChan,
	}
}

// InsertReport caches the latest report and publishes it for external
// consumers (dashboards, alert bots).
func (r *Repo) InsertReport(ctx context.Context, ts int64, payload string) error {
	pipe := r.rdb.Pipeline()
	pipe.Set(ctx, r.keyReport, payload, r.ttl)
	pipe.Publish(ctx, r.reportChan, payload)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *Repo) UpsertLatestRates(ctx context.Context, ts int64, rates model.FundingSnapshot) error {
	if len(rates) == 0 {
		return nil
	}
	fields := make(map[string]any, len(rates))
	for symbol, rate := range rates {
		fields[symbol] = rate
	}
	pipe := r.rdb.Pipeline()
	pipe.HSet(ctx, r.keyRates, fields)
	if r.ttl > 0 {
		pipe.Expire(ctx, r.keyRates, r.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *Repo) Close() error { return nil } // client lifetime owned by the service context

var _ port.ReportSink = (*Repo)(nil)
