package model

import (
	"sort"
	"time"
)

// ========== Funding Rate Models ==========

// FundingSnapshot 全市场资金费率快照 (symbol -> rate)
// Captured once per ranking cycle; never mutated after capture.
type FundingSnapshot map[string]float64

// RateEntry is one row of the highest/lowest ranking lists.
type RateEntry struct {
	Symbol string  `json:"symbol"`
	Rate   float64 `json:"rate"`
}

// ChangeEntry is one row of the biggest increase/decrease lists.
type ChangeEntry struct {
	Symbol string  `json:"symbol"`
	Change float64 `json:"change"` // current - previous
}

// RankingReport 资金费率统计报告
// PreviousRates carries the full snapshot and becomes the next cycle's baseline.
type RankingReport struct {
	Timestamp        string          `json:"timestamp"` // local time, YYYY-MM-DD HH:MM:SS
	HighestRates     []RateEntry     `json:"highest_rates"`
	LowestRates      []RateEntry     `json:"lowest_rates"`
	BiggestIncreases []ChangeEntry   `json:"biggest_increases"`
	BiggestDecreases []ChangeEntry   `json:"biggest_decreases"`
	PreviousRates    FundingSnapshot `json:"previous_rates"`
}

// ReportTimeFormat is the human-readable timestamp the report carries.
const ReportTimeFormat = "2006-01-02 15:04:05"

// TopN is how many symbols each ranking list keeps.
const TopN = 5

// TopRates 返回费率最高/最低的 n 个交易对
// Ties keep map-enumeration order of the sorted input (stable sort over a
// deterministic symbol ordering).
func TopRates(snap FundingSnapshot, n int, descending bool) []RateEntry {
	entries := make([]RateEntry, 0, len(snap))
	for _, sym := range sortedSymbols(snap) {
		entries = append(entries, RateEntry{Symbol: sym, Rate: snap[sym]})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if descending {
			return entries[i].Rate > entries[j].Rate
		}
		return entries[i].Rate < entries[j].Rate
	})

	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// BiggestChanges 返回费率变化最大的 n 个交易对
// Only symbols present in both snapshots count, and only deltas with the
// required sign: strictly positive when increasing, strictly negative otherwise.
// Increases sort descending by delta; decreases sort most-negative first.
func BiggestChanges(current, previous FundingSnapshot, n int, increasing bool) []ChangeEntry {
	if len(previous) == 0 {
		return []ChangeEntry{}
	}

	changes := make([]ChangeEntry, 0)
	for _, sym := range sortedSymbols(current) {
		prev, ok := previous[sym]
		if !ok {
			continue
		}
		delta := current[sym] - prev
		if (increasing && delta > 0) || (!increasing && delta < 0) {
			changes = append(changes, ChangeEntry{Symbol: sym, Change: delta})
		}
	}

	sort.SliceStable(changes, func(i, j int) bool {
		if increasing {
			return changes[i].Change > changes[j].Change
		}
		return changes[i].Change < changes[j].Change
	})

	if len(changes) > n {
		changes = changes[:n]
	}
	return changes
}

// BuildReport assembles the full ranking report for one cycle.
// With no previous snapshot both delta lists are empty.
func BuildReport(now time.Time, current, previous FundingSnapshot) *RankingReport {
	return &RankingReport{
		Timestamp:        now.Format(ReportTimeFormat),
		HighestRates:     TopRates(current, TopN, true),
		LowestRates:      TopRates(current, TopN, false),
		BiggestIncreases: BiggestChanges(current, previous, TopN, true),
		BiggestDecreases: BiggestChanges(current, previous, TopN, false),
		PreviousRates:    current,
	}
}

// sortedSymbols fixes the enumeration order before any stable sort so
// tie-breaking is deterministic across runs.
func sortedSymbols(snap FundingSnapshot) []string {
	syms := make([]string, 0, len(snap))
	for s := range snap {
		syms = append(syms, s)
	}
	sort.Strings(syms)
	return syms
}
