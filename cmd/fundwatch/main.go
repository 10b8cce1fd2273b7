package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fundwatch/internal/application/service"
	"fundwatch/internal/application/usecase/tracker"
	"fundwatch/internal/infrastructure/config"
	"fundwatch/internal/infrastructure/logger"
	"fundwatch/internal/infrastructure/svc"
	"fundwatch/presentation"

	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "configs/config.toml", "path to config.toml")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	logger.Setup(*debug)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sc, err := svc.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("service context init failed")
	}
	defer sc.Close()

	// ranking engine: immediate first cycle, then fixed cadence
	ranking := service.NewRankingService(service.RankingServiceDeps{
		Provider: sc.Provider,
		Store:    sc.ReportStore,
		Sink:     sc.ReportSink,
		Interval: time.Duration(cfg.App.RankingEveryMin) * time.Minute,
	})
	ranking.Start(ctx)

	// tracker: backfill the configured symbols, then poll live
	trk := tracker.NewService(tracker.ServiceDeps{
		Provider:      sc.Provider,
		Feed:          sc.Feed,
		Slots:         cfg.Tracking.Slots,
		Horizon:       time.Duration(cfg.Tracking.HorizonHours) * time.Hour,
		MaxPoints:     cfg.Tracking.MaxPoints,
		KlineInterval: cfg.Tracking.KlineInterval,
		OIPeriod:      cfg.Tracking.OIPeriod,
		PollInterval:  time.Duration(cfg.App.LivePollSec) * time.Second,
	})
	for i, sym := range cfg.Tracking.Symbols {
		go func(slot int, symbol string) {
			if err := trk.Start(ctx, slot, symbol); err != nil {
				log.Error().Int("slot", slot).Str("symbol", symbol).Err(err).Msg("start tracking failed")
			}
		}(i, sym)
	}
	go func() {
		if err := trk.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("tracker exited")
		}
	}()

	renderer := presentation.NewRenderer()

	// report display loop: the persisted file is the only hand-off from the
	// ranking engine, so re-read it and print when it changes
	go func() {
		ticker := time.NewTicker(time.Duration(cfg.App.ReportRereadSec) * time.Second)
		defer ticker.Stop()
		var lastShown string
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				report, err := sc.ReportStore.Load()
				if err != nil {
					log.Warn().Err(err).Msg("report reread failed")
					continue
				}
				if report == nil || report.Timestamp == lastShown {
					continue
				}
				lastShown = report.Timestamp
				_ = sc.Sink.WriteReport(time.Now(), renderer.RenderReport(report))
			}
		}
	}()

	// live line redraw
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				views := make([]presentation.LiveView, 0, cfg.Tracking.Slots)
				for _, st := range trk.Statuses() {
					v := presentation.LiveView{Symbol: st.Symbol, Phase: st.Phase.String()}
					if samples, err := trk.Series(st.Slot); err == nil && len(samples) > 0 {
						v.Sample = samples[len(samples)-1]
						v.Has = true
					}
					views = append(views, v)
				}
				_ = sc.Sink.WriteLive(renderer.RenderLive(views))
			}
		}
	}()

	log.Info().
		Str("config", *configPath).
		Int("slots", cfg.Tracking.Slots).
		Int("ranking_every_min", cfg.App.RankingEveryMin).
		Int("live_poll_sec", cfg.App.LivePollSec).
		Msg("fundwatch started")

	<-ctx.Done()
	_ = sc.Sink.NewLine()
	log.Warn().Msg("exit")
}
