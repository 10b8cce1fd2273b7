package presentation

import (
	"fmt"
	"strings"

	"fundwatch/internal/domain/model"
)

// ANSI color codes
const (
	ansiReset    = "\033[0m"
	ansiRed      = "\033[31m"
	ansiGreen    = "\033[32m"
	ansiYellow   = "\033[33m"
	ansiDim      = "\033[2m"
	ansiClearEOL = "\033[K"
)

// Colorize applies ANSI color to a string
func Colorize(s, color string) string {
	return color + s + ansiReset
}

// LiveView is one tracked instrument's latest state for the live line.
type LiveView struct {
	Symbol string
	Phase  string
	Sample model.Sample
	Has    bool
}

// Renderer formats ranking reports and live tracking lines for the terminal
type Renderer struct{}

func NewRenderer() *Renderer { return &Renderer{} }

// RenderReport renders the four ranking lists as a statistics block.
func (r *Renderer) RenderReport(rep *model.RankingReport) string {
	var sb strings.Builder

	sb.WriteString("===== Funding Rate Statistics =====\n")

	sb.WriteString("\nHighest Funding Rates:\n")
	for _, e := range rep.HighestRates {
		sb.WriteString(fmt.Sprintf("%s: %s\n", e.Symbol, colorRate(e.Rate)))
	}

	sb.WriteString("\nLowest Funding Rates:\n")
	for _, e := range rep.LowestRates {
		sb.WriteString(fmt.Sprintf("%s: %s\n", e.Symbol, colorRate(e.Rate)))
	}

	if len(rep.BiggestIncreases) > 0 {
		sb.WriteString("\nBiggest Increases:\n")
		for _, e := range rep.BiggestIncreases {
			sb.WriteString(fmt.Sprintf("%s: %s\n", e.Symbol, Colorize(fmt.Sprintf("%+.6f", e.Change), ansiGreen)))
		}
	}

	if len(rep.BiggestDecreases) > 0 {
		sb.WriteString("\nBiggest Decreases:\n")
		for _, e := range rep.BiggestDecreases {
			sb.WriteString(fmt.Sprintf("%s: %s\n", e.Symbol, Colorize(fmt.Sprintf("%.6f", e.Change), ansiRed)))
		}
	}

	sb.WriteString("\n================================")
	return sb.String()
}

// RenderLive renders one overwritable line with every tracked instrument's
// freshest sample.
func (r *Renderer) RenderLive(views []LiveView) string {
	var sb strings.Builder
	sb.WriteString("\r")
	sb.WriteString(Colorize("[FUNDWATCH] ", ansiDim))

	for i, v := range views {
		if i > 0 {
			sb.WriteString(Colorize("  ||  ", ansiDim))
		}
		if v.Symbol == "" {
			sb.WriteString(Colorize("(idle)", ansiDim))
			continue
		}
		sb.WriteString(v.Symbol)
		if !v.Has {
			sb.WriteString(" " + Colorize(v.Phase+"...", ansiYellow))
			continue
		}

		pCol := ansiYellow
		if v.Sample.Premium > 0 {
			pCol = ansiGreen
		} else if v.Sample.Premium < 0 {
			pCol = ansiRed
		}

		sb.WriteString(fmt.Sprintf(" S:%s F:%s ", formatPrice(v.Sample.Spot), formatPrice(v.Sample.Futures)))
		sb.WriteString(Colorize(fmt.Sprintf("P:%+.4f%%", v.Sample.Premium), pCol))
		sb.WriteString(" ")
		sb.WriteString(colorRatePct(v.Sample.FundingRate))
		sb.WriteString(fmt.Sprintf(" OI:%.0f", v.Sample.OpenInterest))
	}

	sb.WriteString(ansiClearEOL)
	return sb.String()
}

func colorRate(rate float64) string {
	s := fmt.Sprintf("%.6f", rate)
	switch {
	case rate > 0:
		return Colorize(s, ansiGreen)
	case rate < 0:
		return Colorize(s, ansiRed)
	default:
		return Colorize(s, ansiYellow)
	}
}

func colorRatePct(pct float64) string {
	s := fmt.Sprintf("FR:%+.4f%%", pct)
	switch {
	case pct > 0:
		return Colorize(s, ansiGreen)
	case pct < 0:
		return Colorize(s, ansiRed)
	default:
		return Colorize(s, ansiYellow)
	}
}

// formatPrice picks a precision that fits the magnitude, so sub-cent symbols
// stay readable next to BTC.
func formatPrice(p float64) string {
	abs := p
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= 1000:
		return fmt.Sprintf("%.0f", p)
	case abs >= 100:
		return fmt.Sprintf("%.2f", p)
	case abs >= 1:
		return fmt.Sprintf("%.3f", p)
	case abs >= 0.01:
		return fmt.Sprintf("%.5f", p)
	default:
		return fmt.Sprintf("%.8f", p)
	}
}
