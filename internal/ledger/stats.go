package ledger

import (
	"math"

	"ore-miner-bot-go/internal/models"
)

// Aggregate computes HistoryStats over the deployed records, optionally folding in
// a round that has not been stored yet. Skipped records never contribute.
//
// The in-flight round counts when its deployed amount is positive and wins when its
// primary gain is positive; stored records win on their persisted result.
func Aggregate(records []models.RoundRecord, inflight *models.RoundInput) models.HistoryStats {
	var (
		totalOre, totalDeployed, totalGained float64
		winCount, totalCount                 int
	)

	for _, r := range records {
		if !r.IsDeployed() {
			continue
		}
		totalOre += r.GainedOre
		totalDeployed += r.DeployedSol
		totalGained += r.GainedSol
		totalCount++
		if r.Result == models.ResultSuccess {
			winCount++
		}
	}

	if inflight != nil && inflight.DeployedSol > 0 {
		totalOre += inflight.GainedOre
		totalDeployed += inflight.DeployedSol
		totalGained += inflight.GainedSol
		totalCount++
		if inflight.GainedSol > 0 {
			winCount++
		}
	}

	stats := models.HistoryStats{
		TotalOre:         totalOre,
		TotalDeployedSol: totalDeployed,
		TotalGainedSol:   totalGained,
	}
	if totalCount > 0 {
		stats.WinRate = float64(winCount) / float64(totalCount) * 100
	}
	stats.ProfitLossRatio = profitLossRatio(totalOre, totalDeployed-totalGained)
	return stats
}

// profitLossRatio returns ore earned per unit of net cost, or 0 when there is no net cost.
func profitLossRatio(ore, netCost float64) float64 {
	if !(netCost > 0) {
		return 0
	}
	ratio := ore / netCost
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return 0
	}
	return ratio
}
