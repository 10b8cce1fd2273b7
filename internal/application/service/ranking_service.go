package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"fundwatch/internal/application/port"
	"fundwatch/internal/domain/model"

	"github.com/rs/zerolog/log"
)

// RankingServiceDeps 排名引擎依赖
type RankingServiceDeps struct {
	Provider port.MarketData
	Store    port.ReportStore
	Sink     port.ReportSink // optional history backends, may be nil
	Interval time.Duration
	Now      func() time.Time
}

// RankingService 资金费率排名引擎
// Each cycle it pulls a full-universe funding snapshot, ranks it against the
// retained previous snapshot and persists the report.
type RankingService struct {
	deps RankingServiceDeps

	mu       sync.Mutex // at most one cycle runs at a time
	previous model.FundingSnapshot
}

// NewRankingService creates the engine and reloads the previous cycle's
// snapshot from the store, so deltas survive a process restart.
func NewRankingService(deps RankingServiceDeps) *RankingService {
	if deps.Interval <= 0 {
		deps.Interval = 5 * time.Minute
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	s := &RankingService{deps: deps}

	if deps.Store != nil {
		report, err := deps.Store.Load()
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("loading previous ranking state failed")
		case report != nil && len(report.PreviousRates) > 0:
			s.previous = report.PreviousRates
			log.Info().Int("symbols", len(s.previous)).Msg("restored previous funding rates")
		}
	}
	return s
}

// Start 启动后台排名任务：立即执行一次，之后按固定周期执行
func (s *RankingService) Start(ctx context.Context) {
	s.runOnce(ctx)

	go func() {
		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()
}

func (s *RankingService) runOnce(ctx context.Context) {
	if err := s.RunCycle(ctx); err != nil {
		log.Warn().Err(err).Msg("ranking cycle skipped")
	}
}

// RunCycle executes one ranking cycle. A failed or empty universe fetch skips
// the cycle entirely: no report, no state change, previous snapshot retained.
// An overrunning cycle makes the next invocation a no-op instead of queueing.
func (s *RankingService) RunCycle(ctx context.Context) error {
	if !s.mu.TryLock() {
		log.Warn().Msg("previous ranking cycle still running, tick skipped")
		return nil
	}
	defer s.mu.Unlock()

	rates, err := s.deps.Provider.FundingRates(ctx)
	if err != nil {
		return fmt.Errorf("fetch funding rates: %w", err)
	}
	if len(rates) == 0 {
		return fmt.Errorf("fetch funding rates: empty universe: %w", port.ErrUnavailable)
	}

	now := s.deps.Now()
	report := model.BuildReport(now, rates, s.previous)

	if err := s.deps.Store.Save(report); err != nil {
		log.Error().Err(err).Msg("persisting ranking report failed")
	}

	if s.deps.Sink != nil {
		s.publish(ctx, now, report, rates)
	}

	// current becomes the baseline for the next cycle
	s.previous = rates

	log.Info().
		Int("symbols", len(rates)).
		Int("increases", len(report.BiggestIncreases)).
		Int("decreases", len(report.BiggestDecreases)).
		Msg("ranking report produced")
	return nil
}

// Previous returns the retained baseline snapshot (test hook).
func (s *RankingService) Previous() model.FundingSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.previous
}

func (s *RankingService) publish(ctx context.Context, now time.Time, report *model.RankingReport, rates model.FundingSnapshot) {
	payload, err := json.Marshal(report)
	if err != nil {
		log.Error().Err(err).Msg("marshal ranking report failed")
		return
	}
	ts := now.UnixMilli()
	if err := s.deps.Sink.InsertReport(ctx, ts, string(payload)); err != nil {
		log.Warn().Err(err).Msg("report sink insert failed")
	}
	if err := s.deps.Sink.UpsertLatestRates(ctx, ts, rates); err != nil {
		log.Warn().Err(err).Msg("report sink latest-rates upsert failed")
	}
}
