package model

import "time"

// ========== Tracked Series Models ==========

// Sample 单个采样点：现货价、合约价、溢价率、资金费率、持仓量
type Sample struct {
	Time         time.Time `json:"time"`
	Spot         float64   `json:"spot"`
	Futures      float64   `json:"futures"`
	Premium      float64   `json:"premium"`       // percent
	FundingRate  float64   `json:"funding_rate"`  // percent
	OpenInterest float64   `json:"open_interest"` // contracts
}

// Point is one timestamped value of an independently sampled source
// (funding-rate events, open-interest history).
type Point struct {
	Time  time.Time
	Value float64
}

// Series holds the rolling window of samples for one tracked instrument.
// Samples are ordered by non-decreasing timestamp; the window is never
// trimmed to empty once populated.
type Series struct {
	samples []Sample
	horizon time.Duration
}

// NewSeries creates an empty window with the given retention horizon.
func NewSeries(horizon time.Duration) *Series {
	return &Series{horizon: horizon}
}

// Reset replaces the whole window with backfilled history.
func (s *Series) Reset(samples []Sample) {
	s.samples = samples
}

// Append adds one live sample and applies retention trimming.
func (s *Series) Append(sm Sample) {
	s.samples = append(s.samples, sm)
	s.trim(sm.Time)
}

// trim 批量丢弃超出保留窗口的前缀
// Only fires once the oldest sample has actually aged out, and always leaves
// at least one sample. Short histories accumulate untouched until they span
// the horizon.
func (s *Series) trim(now time.Time) {
	if len(s.samples) < 2 {
		return
	}
	cutoff := now.Add(-s.horizon)
	if !s.samples[0].Time.Before(cutoff) {
		return
	}
	// keep the newest sample even when the whole window is stale
	start := len(s.samples) - 1
	for i, sm := range s.samples {
		if !sm.Time.Before(cutoff) {
			start = i
			break
		}
	}
	s.samples = s.samples[start:]
}

// Len returns the number of samples in the window.
func (s *Series) Len() int { return len(s.samples) }

// Last returns the most recent sample.
func (s *Series) Last() (Sample, bool) {
	if len(s.samples) == 0 {
		return Sample{}, false
	}
	return s.samples[len(s.samples)-1], true
}

// Samples returns a copy of the window for rendering; callers may hold it
// across updates without racing the poll loop.
func (s *Series) Samples() []Sample {
	out := make([]Sample, len(s.samples))
	copy(out, s.samples)
	return out
}

// SetLast overwrites fields of the most recent sample in place.
// Used after backfill so the freshest funding rate / open interest replaces
// the last grid point.
func (s *Series) SetLast(mutate func(*Sample)) {
	if len(s.samples) == 0 {
		return
	}
	mutate(&s.samples[len(s.samples)-1])
}

// AlignNearest 最近时间戳对齐：为主网格的每个时间戳选取时间差最小的采样值
// Linear scan; on an exact tie the earliest-index point wins. An empty source
// yields zeros for every grid point.
func AlignNearest(grid []time.Time, points []Point) []float64 {
	out := make([]float64, len(grid))
	if len(points) == 0 {
		return out
	}
	for i, ts := range grid {
		best := 0
		bestDiff := absDuration(ts.Sub(points[0].Time))
		for j := 1; j < len(points); j++ {
			d := absDuration(ts.Sub(points[j].Time))
			if d < bestDiff {
				bestDiff = d
				best = j
			}
		}
		out[i] = points[best].Value
	}
	return out
}

// Premium computes the futures-over-spot premium in percent. A zero spot
// price is a degenerate provider response; it yields 0 rather than Inf.
func Premium(spot, futures float64) float64 {
	if spot == 0 {
		return 0
	}
	return (futures - spot) / spot * 100
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
