package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fundwatch/internal/application/port"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// MarkPriceFeed Binance 合约 mark price 推送（含资金费率）
// Combined-stream subscription to <symbol>@markPrice; each event carries the
// current mark price and funding rate, pushed every few seconds.
type MarkPriceFeed struct {
	wsURL string // e.g. wss://fstream.binance.com
}

func NewMarkPriceFeed(wsURL string) *MarkPriceFeed {
	return &MarkPriceFeed{wsURL: strings.TrimSpace(wsURL)}
}

func (f *MarkPriceFeed) Name() string { return "BINANCE" }

type markPriceCombined struct {
	Stream string       `json:"stream"`
	Data   markPriceMsg `json:"data"`
}

type markPriceMsg struct {
	EventTime   int64  `json:"E"`
	Symbol      string `json:"s"`
	MarkPrice   string `json:"p"`
	FundingRate string `json:"r"`
}

func (f *MarkPriceFeed) Subscribe(ctx context.Context, symbols []string) (<-chan port.FundingTick, error) {
	wsURL, err := buildCombinedURL(f.wsURL, symbols)
	if err != nil {
		return nil, err
	}

	out := make(chan port.FundingTick, 256)
	go f.run(ctx, wsURL, out)
	return out, nil
}

func buildCombinedURL(base string, symbols []string) (string, error) {
	if base == "" {
		return "", errors.New("binance ws url empty")
	}

	streams := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		streams = append(streams, fmt.Sprintf("%s@markPrice", s))
	}
	if len(streams) == 0 {
		return "", errors.New("no valid symbols")
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	u.Path = "/stream"
	u.RawQuery = "streams=" + strings.Join(streams, "/")
	return u.String(), nil
}

func (f *MarkPriceFeed) run(ctx context.Context, wsURL string, out chan<- port.FundingTick) {
	defer close(out)

	backoff := 500 * time.Millisecond
	maxBackoff := 10 * time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		conn, _, err := websocket.DefaultDialer.DialContext(cctx, wsURL, nil)
		cancel()
		if err != nil {
			log.Error().Str("feed", f.Name()).Err(err).Msg("ws dial failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = minDur(backoff*2, maxBackoff)
			continue
		}

		backoff = 500 * time.Millisecond
		log.Info().Str("feed", f.Name()).Msg("ws connected")

		err = readLoop(ctx, conn, func(b []byte) {
			var msg markPriceCombined
			if err := json.Unmarshal(b, &msg); err != nil {
				return
			}
			price, err := strconv.ParseFloat(msg.Data.MarkPrice, 64)
			if err != nil {
				return
			}
			rate, err := strconv.ParseFloat(msg.Data.FundingRate, 64)
			if err != nil {
				return
			}
			tick := port.FundingTick{
				Symbol:      msg.Data.Symbol,
				MarkPrice:   price,
				FundingRate: rate,
				Ts:          msg.Data.EventTime,
			}
			select {
			case out <- tick:
			default:
				// slow consumer; drop rather than block the read loop
			}
		})
		_ = conn.Close()

		if ctx.Err() != nil {
			return
		}
		log.Warn().Str("feed", f.Name()).Err(err).Msg("ws read loop ended, reconnecting")
	}
}

// readLoop pumps messages until the context ends or the connection breaks.
func readLoop(ctx context.Context, conn *websocket.Conn, handle func([]byte)) error {
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		handle(data)
	}
}

func minDur(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

var _ port.FundingFeed = (*MarkPriceFeed)(nil)
