package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"ore-miner-bot-go/internal/models"
)

// RoundsRecorded counts rounds written to the ledger by status and result.
var RoundsRecorded = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "ore_miner",
		Subsystem: "ledger",
		Name:      "rounds_recorded_total",
		Help:      "Rounds written to the ledger",
	},
	[]string{"status", "result"},
)

// LedgerSaveFailures counts failed writes of the ledger file.
var LedgerSaveFailures = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "ore_miner",
		Subsystem: "ledger",
		Name:      "save_failures_total",
		Help:      "Failed ledger file writes",
	},
)

// ArchiveFailures counts rounds that could not be mirrored into the archive.
var ArchiveFailures = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "ore_miner",
		Subsystem: "archive",
		Name:      "failures_total",
		Help:      "Rounds that failed to be archived",
	},
)

// History exposes the current aggregate statistics.
var History = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "ore_miner",
		Subsystem: "ledger",
		Name:      "history",
		Help:      "Aggregate statistics over all deployed rounds",
	},
	[]string{"stat"},
)

// CurrentRound is the latest round id observed on the miner.
var CurrentRound = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "ore_miner",
		Subsystem: "tracker",
		Name:      "current_round",
		Help:      "Latest round id observed",
	},
)

// ObserveRound records a written round and the statistics after it.
func ObserveRound(record models.RoundRecord, stats models.HistoryStats) {
	RoundsRecorded.WithLabelValues(string(record.Status), string(record.Result)).Inc()
	SetHistory(stats)
}

// SetHistory publishes the aggregate statistics.
func SetHistory(stats models.HistoryStats) {
	History.WithLabelValues("win_rate").Set(stats.WinRate)
	History.WithLabelValues("total_ore").Set(stats.TotalOre)
	History.WithLabelValues("total_deployed_sol").Set(stats.TotalDeployedSol)
	History.WithLabelValues("total_gained_sol").Set(stats.TotalGainedSol)
	History.WithLabelValues("profit_loss_ratio").Set(stats.ProfitLossRatio)
}
