package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ``))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.App.RankingEveryMin != 5 || cfg.App.LivePollSec != 10 || cfg.App.ReportRereadSec != 60 {
		t.Errorf("app defaults mismatch: %+v", cfg.App)
	}
	if cfg.Tracking.Slots != 2 || cfg.Tracking.HorizonHours != 4 || cfg.Tracking.MaxPoints != 240 {
		t.Errorf("tracking defaults mismatch: %+v", cfg.Tracking)
	}
	if cfg.Tracking.KlineInterval != "1m" || cfg.Tracking.OIPeriod != "5m" {
		t.Errorf("interval defaults mismatch: %+v", cfg.Tracking)
	}
	if cfg.Report.Path != "data/funding_rates_stats.json" {
		t.Errorf("report path default mismatch: %q", cfg.Report.Path)
	}
}

func TestLoadNormalizesSymbols(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
[tracking]
slots = 3
symbols = [" btcusdt ", "ETHUSDT", "btcusdt", ""]
`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := []string{"BTCUSDT", "ETHUSDT"}
	if !reflect.DeepEqual(cfg.Tracking.Symbols, want) {
		t.Fatalf("got %v want %v", cfg.Tracking.Symbols, want)
	}
}

func TestLoadRejectsTooManySymbols(t *testing.T) {
	_, err := Load(writeConfig(t, `
[tracking]
slots = 1
symbols = ["BTCUSDT", "ETHUSDT"]
`))
	if err == nil {
		t.Fatal("expected error when symbols exceed slots")
	}
}

func TestLoadRejectsIncompleteBackends(t *testing.T) {
	cases := map[string]string{
		"ws":       "[binance]\nws_enabled = true\n",
		"sqlite":   "[sqlite]\nenabled = true\n",
		"redis":    "[redis]\nenabled = true\n",
		"postgres": "[postgres]\nenabled = true\n",
	}
	for name, body := range cases {
		if _, err := Load(writeConfig(t, body)); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}
