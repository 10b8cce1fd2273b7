package model

import (
	"testing"
	"time"
)

var base = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func TestAlignNearestClosestWins(t *testing.T) {
	grid := []time.Time{base, base.Add(time.Minute), base.Add(2 * time.Minute)}
	points := []Point{
		{Time: base.Add(time.Second), Value: 1.5},
		{Time: base.Add(5 * time.Minute), Value: 9},
	}

	got := AlignNearest(grid, points)
	for i, v := range got {
		if v != 1.5 {
			t.Fatalf("grid point %d: expected nearest value 1.5, got %v", i, v)
		}
	}
}

func TestAlignNearestPicksPerPoint(t *testing.T) {
	grid := []time.Time{base, base.Add(10 * time.Minute)}
	points := []Point{
		{Time: base.Add(time.Minute), Value: 1},
		{Time: base.Add(9 * time.Minute), Value: 2},
	}

	got := AlignNearest(grid, points)
	if got[0] != 1 || got[1] != 2 {
		t.Fatalf("expected [1 2], got %v", got)
	}
}

func TestAlignNearestTieEarliestWins(t *testing.T) {
	grid := []time.Time{base}
	points := []Point{
		{Time: base.Add(-time.Second), Value: 7},
		{Time: base.Add(time.Second), Value: 8},
	}

	if got := AlignNearest(grid, points); got[0] != 7 {
		t.Fatalf("equidistant tie must keep the earliest point, got %v", got[0])
	}
}

func TestAlignNearestEmptySourceYieldsZeros(t *testing.T) {
	grid := []time.Time{base, base.Add(time.Minute)}
	got := AlignNearest(grid, nil)
	if len(got) != 2 || got[0] != 0 || got[1] != 0 {
		t.Fatalf("expected zero fill, got %v", got)
	}
}

func TestSeriesTrimDropsStalePrefix(t *testing.T) {
	s := NewSeries(4 * time.Hour)

	// 5 hours of history at 30-minute spacing
	samples := make([]Sample, 0, 11)
	for i := 0; i <= 10; i++ {
		samples = append(samples, Sample{Time: base.Add(time.Duration(i) * 30 * time.Minute), Spot: float64(i)})
	}
	s.Reset(samples)

	now := base.Add(5 * time.Hour)
	s.Append(Sample{Time: now, Spot: 99})

	if s.Len() == 0 {
		t.Fatal("series must never trim to empty")
	}
	got := s.Samples()
	cutoff := now.Add(-4 * time.Hour)
	if got[0].Time.Before(cutoff) {
		t.Fatalf("stale prefix not dropped: first sample at %v, cutoff %v", got[0].Time, cutoff)
	}
	// samples at 1h..5h survive, plus the new one = 10 points
	if s.Len() != 10 {
		t.Errorf("expected 10 samples after batch trim, got %d", s.Len())
	}
}

func TestSeriesShortHistoryNotTrimmed(t *testing.T) {
	s := NewSeries(4 * time.Hour)
	for i := 0; i < 4; i++ {
		s.Append(Sample{Time: base.Add(time.Duration(i) * 30 * time.Minute)})
	}
	if s.Len() != 4 {
		t.Fatalf("2h of history inside a 4h horizon must accumulate, got %d samples", s.Len())
	}
}

func TestSeriesAllStaleKeepsNewest(t *testing.T) {
	s := NewSeries(time.Hour)
	s.Reset([]Sample{
		{Time: base, Spot: 1},
		{Time: base.Add(time.Minute), Spot: 2},
	})
	s.Append(Sample{Time: base.Add(10 * time.Hour), Spot: 3})

	got := s.Samples()
	if len(got) != 1 || got[0].Spot != 3 {
		t.Fatalf("expected only the newest sample to survive, got %+v", got)
	}
}

func TestSeriesSetLast(t *testing.T) {
	s := NewSeries(time.Hour)
	s.Reset([]Sample{{Time: base, FundingRate: 1}, {Time: base.Add(time.Minute), FundingRate: 2}})
	s.SetLast(func(sm *Sample) { sm.FundingRate = 42 })

	got := s.Samples()
	if got[0].FundingRate != 1 || got[1].FundingRate != 42 {
		t.Fatalf("SetLast must touch only the last sample, got %+v", got)
	}
}

func TestSeriesSamplesReturnsCopy(t *testing.T) {
	s := NewSeries(time.Hour)
	s.Append(Sample{Time: base, Spot: 1})

	snap := s.Samples()
	snap[0].Spot = 777
	if got, _ := s.Last(); got.Spot != 1 {
		t.Fatalf("mutating the snapshot leaked into the series: %+v", got)
	}
}

func TestPremium(t *testing.T) {
	if got := Premium(100, 101); got != 1 {
		t.Errorf("expected 1%%, got %v", got)
	}
	if got := Premium(200, 199); got != -0.5 {
		t.Errorf("expected -0.5%%, got %v", got)
	}
	if got := Premium(0, 101); got != 0 {
		t.Errorf("zero spot must yield 0, not Inf, got %v", got)
	}
}
