// Package report renders the per-round summary printed to the terminal.
package report

import (
	"fmt"
	"strings"

	"ore-miner-bot-go/internal/models"
)

// ANSI escape sequences used by the report.
const (
	Green  = "\x1b[32m"
	Red    = "\x1b[31m"
	Yellow = "\x1b[33m"
	Cyan   = "\x1b[36m"
	Reset  = "\x1b[0m"
)

const (
	frameTop    = "┌─────────────────────────────────────────────────────┐"
	frameMiddle = "├─────────────────────────────────────────────────────┤"
	frameBottom = "└─────────────────────────────────────────────────────┘"
)

// StatsSource provides the cumulative statistics shown in the history section.
type StatsSource interface {
	CurrentHistoryStats() models.HistoryStats
}

// RoundFigures are the raw readings the caller took around the finished round.
// RoundID is the round that has just started; the report covers RoundID-1.
type RoundFigures struct {
	RoundID           uint64
	DeployedSol       float64
	PreviousRewardSol float64
	CurrentRewardSol  float64
	PreviousRewardOre float64
	CurrentRewardOre  float64
}

// GainedSol is the change of the primary reward over the round.
func (f RoundFigures) GainedSol() float64 {
	return f.CurrentRewardSol - f.PreviousRewardSol
}

// GainedOre is the change of the secondary reward over the round.
func (f RoundFigures) GainedOre() float64 {
	return f.CurrentRewardOre - f.PreviousRewardOre
}

// ReportedRound is the id of the round the report describes.
func (f RoundFigures) ReportedRound() uint64 {
	if f.RoundID == 0 {
		return 0
	}
	return f.RoundID - 1
}

// Render builds the framed summary of the last round followed by the ledger history.
func Render(stats StatsSource, f RoundFigures) string {
	gainedSol := f.GainedSol()
	gainedOre := f.GainedOre()

	var sb strings.Builder
	sb.WriteString("\n")
	line(&sb, frameTop)
	line(&sb, fmt.Sprintf("│ 📊 Last round (Round #%d)", f.ReportedRound()))
	line(&sb, frameMiddle)

	if f.DeployedSol > 0 {
		resultColor, resultText := Red, "Failure"
		if gainedSol > 0 {
			resultColor, resultText = Green, "Success"
		}
		line(&sb, fmt.Sprintf("│ Status: %sDeployed%s", Green, Reset))
		line(&sb, fmt.Sprintf("│ Result: %s%s%s (SOL%+.6f, ORE%+.2f)", resultColor, resultText, Reset, gainedSol, gainedOre))
		line(&sb, fmt.Sprintf("│ Deployed: %.6f SOL", f.DeployedSol))
		line(&sb, fmt.Sprintf("│ Gained: %.6f SOL, %.2f ORE", gainedSol, gainedOre))
	} else {
		line(&sb, fmt.Sprintf("│ Status: %sSkipped%s", Yellow, Reset))
	}
	line(&sb, frameMiddle)

	history := stats.CurrentHistoryStats()
	line(&sb, "│ 📈 History")
	line(&sb, frameMiddle)
	line(&sb, fmt.Sprintf("│ Win rate: %.2f%%", history.WinRate))
	line(&sb, fmt.Sprintf("│ Total ORE gained: %.2f", history.TotalOre))
	line(&sb, fmt.Sprintf("│ Total SOL deployed: %.6f", history.TotalDeployedSol))
	line(&sb, fmt.Sprintf("│ Total SOL gained: %.6f", history.TotalGainedSol))
	line(&sb, fmt.Sprintf("│ Profit/loss: %s ORE/SOL", signed(history.ProfitLossRatio)))
	line(&sb, frameBottom)

	return sb.String()
}

// signed colors a ratio green when non-negative and red otherwise.
func signed(v float64) string {
	if v >= 0 {
		return fmt.Sprintf("%s+%.4f%s", Green, v, Reset)
	}
	return fmt.Sprintf("%s%.4f%s", Red, v, Reset)
}

func line(sb *strings.Builder, text string) {
	sb.WriteString(Cyan)
	sb.WriteString(text)
	sb.WriteString(Reset)
	sb.WriteString("\n")
}
