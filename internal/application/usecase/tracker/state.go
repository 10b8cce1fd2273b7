package tracker

import (
	"context"
	"sync"
	"sync/atomic"

	"fundwatch/internal/domain/model"
)

// slot 单个追踪槽位的独占状态
// Owned by its own update cycle; every cross-goroutine touch goes through mu,
// and gen invalidates whatever was in flight when the user stopped or
// switched symbols.
type slot struct {
	mu sync.Mutex

	symbol string
	phase  Phase
	gen    uint64 // bumped on every stop/start
	series *model.Series

	// last-known-value fallbacks (fractions for funding, contracts for OI)
	lastFunding float64
	hasFunding  bool
	lastOI      float64
	hasOI       bool

	// cancel for the per-slot funding feed subscription, nil when none
	feedCancel context.CancelFunc

	// one append in flight at a time; a slow fetch skips ticks instead of
	// piling up goroutines
	polling atomic.Bool
}

// reset discards the series and invalidates in-flight work. Caller holds mu.
func (sl *slot) reset() {
	sl.gen++
	sl.symbol = ""
	sl.phase = PhaseIdle
	sl.series = nil
	sl.lastFunding = 0
	sl.hasFunding = false
	sl.lastOI = 0
	sl.hasOI = false
	if sl.feedCancel != nil {
		sl.feedCancel()
		sl.feedCancel = nil
	}
}

// meta returns the fields the poll loop needs without holding the lock
// across a network call.
func (sl *slot) meta() (symbol string, phase Phase, gen uint64) {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.symbol, sl.phase, sl.gen
}

// updateFunding refreshes the fallback funding rate if the slot still runs
// the same generation.
func (sl *slot) updateFunding(gen uint64, rate float64) {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.gen != gen {
		return
	}
	sl.lastFunding = rate
	sl.hasFunding = true
}
