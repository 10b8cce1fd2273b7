package tracker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fundwatch/internal/application/port"
	"fundwatch/internal/domain/model"

	"github.com/rs/zerolog/log"
)

type ServiceDeps struct {
	Provider      port.MarketData
	Feed          port.FundingFeed // optional mark-price push, may be nil
	Slots         int
	Horizon       time.Duration
	MaxPoints     int
	KlineInterval string
	OIPeriod      string
	PollInterval  time.Duration
	FetchTimeout  time.Duration
	Now           func() time.Time
}

// Service 多槽位行情追踪器
// Each slot tracks one instrument through Idle -> Backfilling -> Live and
// owns its rolling sample window. Slots never block each other.
type Service struct {
	deps  ServiceDeps
	slots []*slot
}

func NewService(deps ServiceDeps) *Service {
	if deps.Slots <= 0 {
		deps.Slots = 2
	}
	if deps.Horizon <= 0 {
		deps.Horizon = 4 * time.Hour
	}
	if deps.MaxPoints <= 0 {
		deps.MaxPoints = 240
	}
	if deps.KlineInterval == "" {
		deps.KlineInterval = "1m"
	}
	if deps.OIPeriod == "" {
		deps.OIPeriod = "5m"
	}
	if deps.PollInterval <= 0 {
		deps.PollInterval = 10 * time.Second
	}
	if deps.FetchTimeout <= 0 {
		deps.FetchTimeout = 10 * time.Second
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	slots := make([]*slot, deps.Slots)
	for i := range slots {
		slots[i] = &slot{}
	}
	return &Service{deps: deps, slots: slots}
}

// Start 开始追踪：重置槽位、回填历史、进入 Live
// A slot already Live or Backfilling is reset first, so switching symbols
// always begins from a fresh empty series. Blocks until backfill finishes.
func (s *Service) Start(ctx context.Context, idx int, symbol string) error {
	sl, err := s.slot(idx)
	if err != nil {
		return err
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return fmt.Errorf("empty symbol")
	}

	sl.mu.Lock()
	sl.reset()
	sl.symbol = symbol
	sl.phase = PhaseBackfilling
	sl.series = model.NewSeries(s.deps.Horizon)
	gen := sl.gen
	sl.mu.Unlock()

	log.Info().Int("slot", idx).Str("symbol", symbol).Msg("backfilling history")
	res, err := s.backfill(ctx, symbol)

	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.gen != gen {
		// stopped or re-targeted while backfilling; result is stale
		return nil
	}
	if err != nil {
		sl.reset()
		return fmt.Errorf("backfill %s: %w", symbol, err)
	}

	sl.series.Reset(res.samples)
	if res.hasFR {
		sl.lastFunding = res.funding
		sl.hasFunding = true
		sl.series.SetLast(func(sm *model.Sample) { sm.FundingRate = res.funding * 100 })
	}
	if res.hasOI {
		sl.lastOI = res.openInterest
		sl.hasOI = true
		sl.series.SetLast(func(sm *model.Sample) { sm.OpenInterest = res.openInterest })
	}
	sl.phase = PhaseLive
	s.subscribeFeedLocked(ctx, sl, symbol, gen)

	log.Info().Int("slot", idx).Str("symbol", symbol).Int("points", sl.series.Len()).Msg("tracking live")
	return nil
}

// Stop 停止追踪并丢弃序列
// Takes effect before the next scheduled append: the generation bump makes
// any in-flight fetch result a no-op.
func (s *Service) Stop(idx int) error {
	sl, err := s.slot(idx)
	if err != nil {
		return err
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.phase != PhaseIdle {
		log.Info().Int("slot", idx).Str("symbol", sl.symbol).Msg("tracking stopped")
	}
	sl.reset()
	return nil
}

// Series returns a copy of the slot's current sample window; empty before
// backfill completes.
func (s *Service) Series(idx int) ([]model.Sample, error) {
	sl, err := s.slot(idx)
	if err != nil {
		return nil, err
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.series == nil {
		return nil, nil
	}
	return sl.series.Samples(), nil
}

// Status reports the slot's symbol, phase and point count.
func (s *Service) Status(idx int) (SlotStatus, error) {
	sl, err := s.slot(idx)
	if err != nil {
		return SlotStatus{}, err
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	st := SlotStatus{Slot: idx, Symbol: sl.symbol, Phase: sl.phase}
	if sl.series != nil {
		st.Points = sl.series.Len()
	}
	return st, nil
}

// Statuses returns the status of every slot.
func (s *Service) Statuses() []SlotStatus {
	out := make([]SlotStatus, len(s.slots))
	for i := range s.slots {
		out[i], _ = s.Status(i)
	}
	return out
}

// Run drives the live poll loop until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.deps.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.pollAll(ctx)
		}
	}
}

// pollAll launches one append per live slot. A slot still busy with its
// previous append skips this tick; other slots are unaffected.
func (s *Service) pollAll(ctx context.Context) {
	for i, sl := range s.slots {
		symbol, phase, gen := sl.meta()
		if phase != PhaseLive {
			continue
		}
		if !sl.polling.CompareAndSwap(false, true) {
			log.Debug().Int("slot", i).Str("symbol", symbol).Msg("previous append still running, tick skipped")
			continue
		}
		go func(sl *slot, symbol string, gen uint64) {
			defer sl.polling.Store(false)
			s.appendLive(ctx, sl, symbol, gen)
		}(sl, symbol, gen)
	}
}

// appendLive fetches the four live fields and appends one sample. Missing
// price legs make the whole tick a no-op; missing funding/OI fall back to the
// last recorded value, then zero.
func (s *Service) appendLive(ctx context.Context, sl *slot, symbol string, gen uint64) {
	spot, spotErr := s.fetchPrice(ctx, symbol, s.deps.Provider.SpotPrice)
	futures, futErr := s.fetchPrice(ctx, symbol, s.deps.Provider.FuturesPrice)
	if spotErr != nil || futErr != nil {
		log.Warn().Str("symbol", symbol).AnErr("spot", spotErr).AnErr("futures", futErr).
			Msg("price legs unavailable, sample dropped")
		return
	}

	funding, frErr := s.fetchPrice(ctx, symbol, s.deps.Provider.FundingRate)
	oi, oiErr := s.fetchPrice(ctx, symbol, s.deps.Provider.OpenInterest)
	now := s.deps.Now()

	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.gen != gen || sl.phase != PhaseLive {
		// stopped between fetch and append
		return
	}

	sm := model.Sample{
		Time:    now,
		Spot:    spot,
		Futures: futures,
		Premium: model.Premium(spot, futures),
	}

	switch {
	case frErr == nil:
		sm.FundingRate = funding * 100
		sl.lastFunding = funding
		sl.hasFunding = true
	case sl.hasFunding:
		sm.FundingRate = sl.lastFunding * 100
	default:
		if last, ok := sl.series.Last(); ok {
			sm.FundingRate = last.FundingRate
		}
	}

	switch {
	case oiErr == nil:
		sm.OpenInterest = oi
		sl.lastOI = oi
		sl.hasOI = true
	case sl.hasOI:
		sm.OpenInterest = sl.lastOI
	default:
		if last, ok := sl.series.Last(); ok {
			sm.OpenInterest = last.OpenInterest
		}
	}

	sl.series.Append(sm)
}

type backfillResult struct {
	samples      []model.Sample
	funding      float64
	hasFR        bool
	openInterest float64
	hasOI        bool
}

// backfill 拉取三路独立历史并对齐到 K 线网格
// Spot/futures closes build the primary grid (paired by index, zipped to the
// shorter leg). Funding and open-interest history join by nearest timestamp;
// an empty or failing secondary source yields zeros.
func (s *Service) backfill(ctx context.Context, symbol string) (backfillResult, error) {
	var res backfillResult

	end := s.deps.Now()
	start := end.Add(-s.deps.Horizon)

	spot, err := s.deps.Provider.SpotCloses(ctx, symbol, s.deps.KlineInterval, start, end, s.deps.MaxPoints)
	if err != nil {
		return res, fmt.Errorf("spot klines: %w", err)
	}
	futures, err := s.deps.Provider.FuturesCloses(ctx, symbol, s.deps.KlineInterval, start, end, s.deps.MaxPoints)
	if err != nil {
		return res, fmt.Errorf("futures klines: %w", err)
	}

	n := len(spot)
	if len(futures) < n {
		n = len(futures)
	}
	if n == 0 {
		return res, ErrNoHistory
	}

	grid := make([]time.Time, n)
	for i := 0; i < n; i++ {
		grid[i] = spot[i].Time
	}

	frHist, err := s.deps.Provider.FundingRateHistory(ctx, symbol, start, end, s.deps.MaxPoints)
	if err != nil {
		log.Warn().Str("symbol", symbol).Err(err).Msg("funding history unavailable, filling zeros")
		frHist = nil
	}
	for i := range frHist {
		frHist[i].Value *= 100 // fraction -> percent
	}
	fundingPct := model.AlignNearest(grid, frHist)

	oiHist, err := s.deps.Provider.OpenInterestHistory(ctx, symbol, s.deps.OIPeriod, start, end, s.deps.MaxPoints)
	if err != nil {
		log.Warn().Str("symbol", symbol).Err(err).Msg("open-interest history unavailable, filling zeros")
		oiHist = nil
	}
	openInterest := model.AlignNearest(grid, oiHist)

	res.samples = make([]model.Sample, n)
	for i := 0; i < n; i++ {
		res.samples[i] = model.Sample{
			Time:         grid[i],
			Spot:         spot[i].Value,
			Futures:      futures[i].Value,
			Premium:      model.Premium(spot[i].Value, futures[i].Value),
			FundingRate:  fundingPct[i],
			OpenInterest: openInterest[i],
		}
	}

	// freshest live values overwrite only the most recent grid point
	if fr, err := s.fetchPrice(ctx, symbol, s.deps.Provider.FundingRate); err == nil {
		res.funding = fr
		res.hasFR = true
	}
	if oi, err := s.fetchPrice(ctx, symbol, s.deps.Provider.OpenInterest); err == nil {
		res.openInterest = oi
		res.hasOI = true
	}
	return res, nil
}

// subscribeFeedLocked attaches the optional funding feed to a freshly live
// slot. Caller holds sl.mu.
func (s *Service) subscribeFeedLocked(ctx context.Context, sl *slot, symbol string, gen uint64) {
	if s.deps.Feed == nil {
		return
	}
	fctx, cancel := context.WithCancel(ctx)
	ch, err := s.deps.Feed.Subscribe(fctx, []string{symbol})
	if err != nil {
		cancel()
		log.Warn().Str("feed", s.deps.Feed.Name()).Str("symbol", symbol).Err(err).Msg("funding feed subscribe failed")
		return
	}
	sl.feedCancel = cancel
	go func() {
		for tick := range ch {
			if tick.Symbol == symbol {
				sl.updateFunding(gen, tick.FundingRate)
			}
		}
	}()
}

func (s *Service) slot(idx int) (*slot, error) {
	if idx < 0 || idx >= len(s.slots) {
		return nil, fmt.Errorf("%w: %d", ErrBadSlot, idx)
	}
	return s.slots[idx], nil
}

// fetchPrice bounds a single-field provider call with the configured timeout.
func (s *Service) fetchPrice(ctx context.Context, symbol string, fn func(context.Context, string) (float64, error)) (float64, error) {
	cctx, cancel := context.WithTimeout(ctx, s.deps.FetchTimeout)
	defer cancel()
	return fn(cctx, symbol)
}
