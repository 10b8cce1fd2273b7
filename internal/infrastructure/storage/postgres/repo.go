package postgres

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"

	"fundwatch/internal/application/port"
	"fundwatch/internal/domain/model"
)

type Repo struct {
	db *sql.DB
}

func New(dsn string) (*Repo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS reports (
  id BIGSERIAL PRIMARY KEY,
  ts_ms BIGINT NOT NULL,
  payload TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reports_ts ON reports(ts_ms);

CREATE TABLE IF NOT EXISTS latest_rates (
  symbol TEXT PRIMARY KEY,
  rate DOUBLE PRECISION NOT NULL,
  ts_ms BIGINT NOT NULL
);
`)
	return err
}

func (r *Repo) InsertReport(ctx context.Context, ts int64, payload string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO reports(ts_ms, payload) VALUES($1, $2)`, ts, payload)
	return err
}

func (r *Repo) UpsertLatestRates(ctx context.Context, ts int64, rates model.FundingSnapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for symbol, rate := range rates {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO latest_rates(symbol, rate, ts_ms)
			VALUES($1, $2, $3)
			ON CONFLICT(symbol) DO UPDATE SET
			rate=excluded.rate, ts_ms=excluded.ts_ms
		`, symbol, rate, ts)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

var _ port.ReportSink = (*Repo)(nil)
