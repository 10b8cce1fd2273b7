package binance

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fundwatch/internal/application/port"
)

func newTestClient(spot, futures http.Handler) (*Client, func()) {
	spotSrv := httptest.NewServer(spot)
	futSrv := httptest.NewServer(futures)
	c := NewClient(spotSrv.URL, futSrv.URL)
	return c, func() {
		spotSrv.Close()
		futSrv.Close()
	}
}

func jsonHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	})
}

func TestPerpetualSymbolsFiltersUniverse(t *testing.T) {
	futures := jsonHandler(`{"symbols":[
		{"symbol":"BTCUSDT","status":"TRADING","contractType":"PERPETUAL"},
		{"symbol":"ETHBUSD","status":"TRADING","contractType":"PERPETUAL"},
		{"symbol":"XRPUSDT","status":"BREAK","contractType":"PERPETUAL"},
		{"symbol":"BTCUSDT_250926","status":"TRADING","contractType":"CURRENT_QUARTER"},
		{"symbol":"SOLUSDT","status":"TRADING","contractType":"PERPETUAL"}
	]}`)
	c, done := newTestClient(jsonHandler(`{}`), futures)
	defer done()

	symbols, err := c.PerpetualSymbols(context.Background())
	if err != nil {
		t.Fatalf("PerpetualSymbols failed: %v", err)
	}
	want := []string{"BTCUSDT", "SOLUSDT"}
	if len(symbols) != len(want) {
		t.Fatalf("got %v, want %v", symbols, want)
	}
	for i := range want {
		if symbols[i] != want[i] {
			t.Fatalf("got %v, want %v", symbols, want)
		}
	}
}

func TestFundingRatesKeepsOnlyUSDTPairs(t *testing.T) {
	futures := jsonHandler(`[
		{"symbol":"BTCUSDT","lastFundingRate":"0.00010000"},
		{"symbol":"ETHUSDC","lastFundingRate":"0.00050000"},
		{"symbol":"DOGEUSDT","lastFundingRate":"-0.00020000"},
		{"symbol":"BADUSDT","lastFundingRate":"oops"}
	]`)
	c, done := newTestClient(jsonHandler(`{}`), futures)
	defer done()

	rates, err := c.FundingRates(context.Background())
	if err != nil {
		t.Fatalf("FundingRates failed: %v", err)
	}
	if len(rates) != 2 {
		t.Fatalf("expected 2 rates, got %v", rates)
	}
	if rates["BTCUSDT"] != 0.0001 || rates["DOGEUSDT"] != -0.0002 {
		t.Fatalf("rate values mismatch: %v", rates)
	}
}

func TestSpotPrice(t *testing.T) {
	spot := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("symbol"); got != "BTCUSDT" {
			t.Errorf("unexpected symbol param %q", got)
		}
		_, _ = w.Write([]byte(`{"symbol":"BTCUSDT","price":"65000.10"}`))
	})
	c, done := newTestClient(spot, jsonHandler(`{}`))
	defer done()

	px, err := c.SpotPrice(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("SpotPrice failed: %v", err)
	}
	if px != 65000.10 {
		t.Fatalf("got %v", px)
	}
}

func TestErrorStatusWrapsUnavailable(t *testing.T) {
	failing := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":-1121,"msg":"Invalid symbol."}`, http.StatusBadRequest)
	})
	c, done := newTestClient(failing, failing)
	defer done()

	if _, err := c.SpotPrice(context.Background(), "NOPE"); !errors.Is(err, port.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if _, err := c.FundingRates(context.Background()); !errors.Is(err, port.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestConnectionFailureWrapsUnavailable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "http://127.0.0.1:1")
	if _, err := c.FuturesPrice(context.Background(), "BTCUSDT"); !errors.Is(err, port.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestSpotClosesParsesKlineRows(t *testing.T) {
	// Binance kline rows mix numbers and strings in one array.
	spot := jsonHandler(`[
		[1741953600000,"100.0","101.0","99.0","100.5","12.3",1741953659999,"0",10,"0","0","0"],
		[1741953660000,"100.5","102.0","100.0","101.5","9.1",1741953719999,"0",8,"0","0","0"]
	]`)
	c, done := newTestClient(spot, jsonHandler(`{}`))
	defer done()

	pts, err := c.SpotCloses(context.Background(), "BTCUSDT", "1m",
		time.UnixMilli(1741953600000), time.UnixMilli(1741953720000), 240)
	if err != nil {
		t.Fatalf("SpotCloses failed: %v", err)
	}
	if len(pts) != 2 {
		t.Fatalf("expected 2 points, got %d", len(pts))
	}
	if !pts[0].Time.Equal(time.UnixMilli(1741953600000)) || pts[0].Value != 100.5 {
		t.Fatalf("first point mismatch: %+v", pts[0])
	}
	if pts[1].Value != 101.5 {
		t.Fatalf("second point mismatch: %+v", pts[1])
	}
}

func TestKlineClosesSkipsMalformedRows(t *testing.T) {
	spot := jsonHandler(`[
		[1741953600000,"x","x","x","not-a-number","x",0,"0",0,"0","0","0"],
		["bad-open-time","x","x","x","100.5","x",0,"0",0,"0","0","0"],
		[1741953660000,"x","x","x","101.5","x",0,"0",0,"0","0","0"]
	]`)
	c, done := newTestClient(spot, jsonHandler(`{}`))
	defer done()

	pts, err := c.SpotCloses(context.Background(), "BTCUSDT", "1m", time.Now().Add(-time.Hour), time.Now(), 240)
	if err != nil {
		t.Fatalf("SpotCloses failed: %v", err)
	}
	if len(pts) != 1 || pts[0].Value != 101.5 {
		t.Fatalf("expected only the valid row, got %+v", pts)
	}
}

func TestFundingRateHistory(t *testing.T) {
	futures := jsonHandler(`[
		{"symbol":"BTCUSDT","fundingTime":1741953600000,"fundingRate":"0.00010000"},
		{"symbol":"BTCUSDT","fundingTime":1741982400000,"fundingRate":"-0.00020000"}
	]`)
	c, done := newTestClient(jsonHandler(`{}`), futures)
	defer done()

	pts, err := c.FundingRateHistory(context.Background(), "BTCUSDT", time.Now().Add(-4*time.Hour), time.Now(), 240)
	if err != nil {
		t.Fatalf("FundingRateHistory failed: %v", err)
	}
	if len(pts) != 2 {
		t.Fatalf("expected 2 points, got %d", len(pts))
	}
	if pts[0].Value != 0.0001 || pts[1].Value != -0.0002 {
		t.Fatalf("values mismatch: %+v", pts)
	}
}

func TestOpenInterestHistory(t *testing.T) {
	futures := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("period"); got != "5m" {
			t.Errorf("unexpected period param %q", got)
		}
		_, _ = w.Write([]byte(`[
			{"symbol":"BTCUSDT","sumOpenInterest":"81000.5","timestamp":1741953600000}
		]`))
	})
	c, done := newTestClient(jsonHandler(`{}`), futures)
	defer done()

	pts, err := c.OpenInterestHistory(context.Background(), "BTCUSDT", "5m", time.Now().Add(-4*time.Hour), time.Now(), 240)
	if err != nil {
		t.Fatalf("OpenInterestHistory failed: %v", err)
	}
	if len(pts) != 1 || pts[0].Value != 81000.5 {
		t.Fatalf("points mismatch: %+v", pts)
	}
}
