package models

// RoundStatus tells whether a stake was placed in a round.
type RoundStatus string

const (
	StatusDeployed RoundStatus = "deployed"
	StatusSkipped  RoundStatus = "skipped"
)

// RoundResult is the outcome recorded for a round.
type RoundResult string

const (
	ResultSuccess RoundResult = "success"
	ResultFailure RoundResult = "failure"
	ResultSkipped RoundResult = "skipped"
)

// HistoryStats holds the aggregate statistics over all deployed rounds considered.
type HistoryStats struct {
	WinRate          float64 `json:"win_rate"`           // percentage, 0-100
	TotalOre         float64 `json:"total_ore"`          // secondary reward earned
	TotalDeployedSol float64 `json:"total_deployed_sol"` // stake placed
	TotalGainedSol   float64 `json:"total_gained_sol"`   // primary reward recovered
	ProfitLossRatio  float64 `json:"profit_loss_ratio"`  // ore / (deployed - gained)
}

// RoundRecord is one persisted row of the ledger.
// History is the point-in-time snapshot computed when the round was written.
type RoundRecord struct {
	RoundID     uint64       `json:"round_id"`
	Timestamp   string       `json:"timestamp"`
	Status      RoundStatus  `json:"status"`
	DeployedSol float64      `json:"deployed_sol"`
	GainedSol   float64      `json:"gained_sol"`
	GainedOre   float64      `json:"gained_ore"`
	Result      RoundResult  `json:"result"`
	History     HistoryStats `json:"history"`
}

// IsDeployed reports whether the record takes part in aggregate statistics.
func (r RoundRecord) IsDeployed() bool {
	return r.Status == StatusDeployed
}

// RoundInput carries the figures of a round about to be upserted into the ledger.
type RoundInput struct {
	RoundID     uint64
	Timestamp   string
	Status      RoundStatus
	DeployedSol float64
	GainedSol   float64
	GainedOre   float64
	Result      RoundResult
}

// StatusFor classifies a round by its deployed amount.
func StatusFor(deployed float64) RoundStatus {
	if deployed > 0 {
		return StatusDeployed
	}
	return StatusSkipped
}

// ResultFor classifies a round: skipped when nothing was deployed,
// success when the primary reward grew, failure otherwise.
func ResultFor(deployed, gainedSol float64) RoundResult {
	switch {
	case deployed <= 0:
		return ResultSkipped
	case gainedSol > 0:
		return ResultSuccess
	default:
		return ResultFailure
	}
}
