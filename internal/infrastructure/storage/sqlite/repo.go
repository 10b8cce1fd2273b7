package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"fundwatch/internal/application/port"
	"fundwatch/internal/domain/model"
)

type Repo struct {
	db *sql.DB
}

func New(path string) (*Repo, error) {
	// ensure directory exists
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) GetDB() *sql.DB {
	return r.db
}

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS reports (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  ts_ms INTEGER NOT NULL,
  payload TEXT NOT NULL,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reports_ts ON reports(ts_ms);

CREATE TABLE IF NOT EXISTS latest_rates (
  symbol TEXT PRIMARY KEY,
  rate REAL NOT NULL,
  ts_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_latest_rates_ts ON latest_rates(ts_ms);
`)
	return err
}

func (r *Repo) InsertReport(ctx context.Context, ts int64, payload string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO reports(ts_ms, payload, created_at) VALUES(?, ?, ?)`, ts, payload, ts)
	return err
}

func (r *Repo) UpsertLatestRates(ctx context.Context, ts int64, rates model.FundingSnapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO latest_rates(symbol, rate, ts_ms)
		VALUES(?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
		rate=excluded.rate, ts_ms=excluded.ts_ms
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for symbol, rate := range rates {
		if _, err := stmt.ExecContext(ctx, symbol, rate, ts); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListReports returns the most recent report payloads, newest first.
func (r *Repo) ListReports(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `SELECT payload FROM reports ORDER BY ts_ms DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payloads []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		payloads = append(payloads, p)
	}
	return payloads, rows.Err()
}

// GetLatestRate returns the last persisted funding rate for one symbol.
func (r *Repo) GetLatestRate(ctx context.Context, symbol string) (rate float64, ts int64, err error) {
	err = r.db.QueryRowContext(ctx, `SELECT rate, ts_ms FROM latest_rates WHERE symbol=?`, symbol).
		Scan(&rate, &ts)
	return
}

var _ port.ReportSink = (*Repo)(nil)
