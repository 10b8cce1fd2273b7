package config

import (
	"errors"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	App struct {
		RankingEveryMin int `toml:"ranking_every_min"`
		LivePollSec     int `toml:"live_poll_sec"`
		ReportRereadSec int `toml:"report_reread_sec"`
	} `toml:"app"`

	Tracking struct {
		Slots         int      `toml:"slots"`
		Symbols       []string `toml:"symbols"` // initial symbols, at most one per slot
		HorizonHours  int      `toml:"horizon_hours"`
		MaxPoints     int      `toml:"max_points"`
		KlineInterval string   `toml:"kline_interval"`
		OIPeriod      string   `toml:"oi_period"`
	} `toml:"tracking"`

	Binance struct {
		SpotURL    string `toml:"spot_url"`
		FuturesURL string `toml:"futures_url"`
		WsURL      string `toml:"ws_url"` // e.g. wss://fstream.binance.com
		WsEnabled  bool   `toml:"ws_enabled"`
	} `toml:"binance"`

	Report struct {
		Path string `toml:"path"`
	} `toml:"report"`

	SQLite struct {
		Enabled bool   `toml:"enabled"`
		Path    string `toml:"path"`
	} `toml:"sqlite"`

	Redis struct {
		Enabled       bool   `toml:"enabled"`
		Addr          string `toml:"addr"`
		Password      string `toml:"password"`
		DB            int    `toml:"db"`
		Prefix        string `toml:"prefix"`
		TTLSeconds    int    `toml:"ttl_seconds"`
		ReportChannel string `toml:"report_channel"`
	} `toml:"redis"`

	Postgres struct {
		Enabled bool   `toml:"enabled"`
		DSN     string `toml:"dsn"`
	} `toml:"postgres"`
}

func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.RankingEveryMin <= 0 {
		cfg.App.RankingEveryMin = 5
	}
	if cfg.App.LivePollSec <= 0 {
		cfg.App.LivePollSec = 10
	}
	if cfg.App.ReportRereadSec <= 0 {
		cfg.App.ReportRereadSec = 60
	}
	if cfg.Tracking.Slots <= 0 {
		cfg.Tracking.Slots = 2
	}
	if cfg.Tracking.HorizonHours <= 0 {
		cfg.Tracking.HorizonHours = 4
	}
	if cfg.Tracking.MaxPoints <= 0 {
		cfg.Tracking.MaxPoints = 240
	}
	if cfg.Tracking.KlineInterval == "" {
		cfg.Tracking.KlineInterval = "1m"
	}
	if cfg.Tracking.OIPeriod == "" {
		cfg.Tracking.OIPeriod = "5m"
	}
	if cfg.Report.Path == "" {
		cfg.Report.Path = "data/funding_rates_stats.json"
	}
	if cfg.Redis.Prefix == "" {
		cfg.Redis.Prefix = "fundwatch"
	}
}

func validate(cfg *Config) error {
	cfg.Tracking.Symbols = normalizeSymbols(cfg.Tracking.Symbols)
	if len(cfg.Tracking.Symbols) > cfg.Tracking.Slots {
		return errors.New("tracking.symbols exceeds tracking.slots")
	}

	if cfg.Binance.WsEnabled && strings.TrimSpace(cfg.Binance.WsURL) == "" {
		return errors.New("binance.ws_url empty but ws enabled")
	}
	if cfg.SQLite.Enabled && strings.TrimSpace(cfg.SQLite.Path) == "" {
		return errors.New("sqlite.path empty but sqlite enabled")
	}
	if cfg.Redis.Enabled && strings.TrimSpace(cfg.Redis.Addr) == "" {
		return errors.New("redis.addr empty but redis enabled")
	}
	if cfg.Postgres.Enabled && strings.TrimSpace(cfg.Postgres.DSN) == "" {
		return errors.New("postgres.dsn empty but postgres enabled")
	}
	return nil
}

func normalizeSymbols(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, s := range in {
		u := strings.ToUpper(strings.TrimSpace(s))
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
