package models

import "gorm.io/gorm"

// RoundRow is the archived copy of a RoundRecord in the sqlite database.
// There is at most one row per round id.
type RoundRow struct {
	gorm.Model
	RoundID     uint64  `gorm:"uniqueIndex;not null" json:"round_id"`
	Timestamp   string  `json:"timestamp"`
	Status      string  `gorm:"index" json:"status"`
	DeployedSol float64 `json:"deployed_sol"`
	GainedSol   float64 `json:"gained_sol"`
	GainedOre   float64 `json:"gained_ore"`
	Result      string  `json:"result"`

	WinRate          float64 `json:"win_rate"`
	TotalOre         float64 `json:"total_ore"`
	TotalDeployedSol float64 `json:"total_deployed_sol"`
	TotalGainedSol   float64 `json:"total_gained_sol"`
	ProfitLossRatio  float64 `json:"profit_loss_ratio"`
}

// NewRoundRow flattens a ledger record into its archive row.
func NewRoundRow(r RoundRecord) RoundRow {
	return RoundRow{
		RoundID:          r.RoundID,
		Timestamp:        r.Timestamp,
		Status:           string(r.Status),
		DeployedSol:      r.DeployedSol,
		GainedSol:        r.GainedSol,
		GainedOre:        r.GainedOre,
		Result:           string(r.Result),
		WinRate:          r.History.WinRate,
		TotalOre:         r.History.TotalOre,
		TotalDeployedSol: r.History.TotalDeployedSol,
		TotalGainedSol:   r.History.TotalGainedSol,
		ProfitLossRatio:  r.History.ProfitLossRatio,
	}
}

// Record converts the row back into a ledger record.
func (r RoundRow) Record() RoundRecord {
	return RoundRecord{
		RoundID:     r.RoundID,
		Timestamp:   r.Timestamp,
		Status:      RoundStatus(r.Status),
		DeployedSol: r.DeployedSol,
		GainedSol:   r.GainedSol,
		GainedOre:   r.GainedOre,
		Result:      RoundResult(r.Result),
		History: HistoryStats{
			WinRate:          r.WinRate,
			TotalOre:         r.TotalOre,
			TotalDeployedSol: r.TotalDeployedSol,
			TotalGainedSol:   r.TotalGainedSol,
			ProfitLossRatio:  r.ProfitLossRatio,
		},
	}
}
