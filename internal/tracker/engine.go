package tracker

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ore-miner-bot-go/internal/config"
	"ore-miner-bot-go/internal/ledger"
	"ore-miner-bot-go/internal/miner"
	"ore-miner-bot-go/internal/models"
	"ore-miner-bot-go/internal/observability"
	"ore-miner-bot-go/internal/report"
)

// Archiver receives every round written to the ledger.
type Archiver interface {
	SaveRound(ctx context.Context, record models.RoundRecord) error
}

// roundBaseline holds the readings taken while a round is in progress.
type roundBaseline struct {
	RoundID   uint64
	RewardSol decimal.Decimal
	RewardOre decimal.Decimal
	Deployed  decimal.Decimal
}

// Tracker follows the miner round by round and records every finished round in the ledger.
type Tracker struct {
	UUID      string
	StartTime time.Time

	logger  *zap.Logger
	cfg     *config.Config
	client  miner.Client
	ledger  *ledger.Ledger
	archive Archiver
	out     io.Writer
	now     func() time.Time

	mu      sync.RWMutex
	current *roundBaseline
}

// NewTracker creates a new tracker. archive may be nil.
func NewTracker(logger *zap.Logger, cfg *config.Config, client miner.Client, lg *ledger.Ledger, archive Archiver, out io.Writer) *Tracker {
	return &Tracker{
		UUID:      uuid.NewString(),
		StartTime: time.Now(),
		logger:    logger.Named("tracker"),
		cfg:       cfg,
		client:    client,
		ledger:    lg,
		archive:   archive,
		out:       out,
		now:       time.Now,
	}
}

// Ledger returns the ledger the tracker writes to.
func (t *Tracker) Ledger() *ledger.Ledger {
	return t.ledger
}

// CurrentRound returns the round being observed, if any.
func (t *Tracker) CurrentRound() (uint64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.current == nil {
		return 0, false
	}
	return t.current.RoundID, true
}

// Run polls the miner until ctx is cancelled, then flushes the ledger.
func (t *Tracker) Run(ctx context.Context) {
	interval := time.Duration(t.cfg.Miner.PollInterval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	observability.SetHistory(t.ledger.CurrentHistoryStats())
	t.logger.Info("Starting round tracker",
		zap.String("authority", t.cfg.Miner.Authority),
		zap.Duration("interval", interval),
		zap.Int("known_rounds", t.ledger.Len()))

	for {
		if err := t.Poll(ctx); err != nil && ctx.Err() == nil {
			t.logger.Error("Poll failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			t.logger.Info("Stopping round tracker...")
			if err := t.ledger.Save(t.cfg.Ledger.Path); err != nil {
				observability.LedgerSaveFailures.Inc()
				t.logger.Error("Failed to save ledger on shutdown", zap.Error(err))
			}
			return
		case <-ticker.C:
		}
	}
}

// Poll reads the miner once. When the round id has advanced, the previous round is
// recorded and the new round becomes the baseline.
func (t *Tracker) Poll(ctx context.Context) error {
	state, err := t.client.GetMinerState(ctx, t.cfg.Miner.Authority)
	if err != nil {
		return fmt.Errorf("could not get miner state: %w", err)
	}
	observed, err := readBaseline(state)
	if err != nil {
		return err
	}
	observability.CurrentRound.Set(float64(observed.RoundID))

	t.mu.Lock()
	defer t.mu.Unlock()

	prev := t.current
	switch {
	case prev == nil:
		t.current = observed
		t.logger.Info("Tracking round", zap.Uint64("round_id", observed.RoundID))
		return nil
	case observed.RoundID == prev.RoundID:
		prev.Deployed = observed.Deployed
		return nil
	case observed.RoundID < prev.RoundID:
		t.logger.Warn("Miner reported an older round, ignoring",
			zap.Uint64("round_id", observed.RoundID), zap.Uint64("tracked_round_id", prev.RoundID))
		return nil
	}

	t.current = observed
	return t.completeRound(ctx, prev, observed)
}

// completeRound reports and records prev using the readings taken at the start of next.
func (t *Tracker) completeRound(ctx context.Context, prev, next *roundBaseline) error {
	figures := report.RoundFigures{
		RoundID:           prev.RoundID + 1,
		DeployedSol:       prev.Deployed.InexactFloat64(),
		PreviousRewardSol: prev.RewardSol.InexactFloat64(),
		CurrentRewardSol:  next.RewardSol.InexactFloat64(),
		PreviousRewardOre: prev.RewardOre.InexactFloat64(),
		CurrentRewardOre:  next.RewardOre.InexactFloat64(),
	}
	if t.cfg.Ledger.Report && t.out != nil {
		fmt.Fprint(t.out, report.Render(t.ledger, figures))
	}

	gainedSol := next.RewardSol.Sub(prev.RewardSol).InexactFloat64()
	gainedOre := next.RewardOre.Sub(prev.RewardOre).InexactFloat64()

	record := t.ledger.UpsertRound(models.RoundInput{
		RoundID:     prev.RoundID,
		Timestamp:   t.now().UTC().Format(time.RFC3339),
		Status:      models.StatusFor(figures.DeployedSol),
		DeployedSol: figures.DeployedSol,
		GainedSol:   gainedSol,
		GainedOre:   gainedOre,
		Result:      models.ResultFor(figures.DeployedSol, gainedSol),
	})
	observability.ObserveRound(record, t.ledger.CurrentHistoryStats())

	l := t.logger.With(
		zap.Uint64("round_id", record.RoundID),
		zap.String("status", string(record.Status)),
		zap.String("result", string(record.Result)),
	)
	l.Info("Round recorded",
		zap.Float64("deployed_sol", record.DeployedSol),
		zap.Float64("gained_sol", record.GainedSol),
		zap.Float64("gained_ore", record.GainedOre))

	if t.archive != nil {
		if err := t.archive.SaveRound(ctx, record); err != nil {
			observability.ArchiveFailures.Inc()
			l.Warn("Failed to archive round", zap.Error(err))
		}
	}

	if err := t.ledger.Save(t.cfg.Ledger.Path); err != nil {
		observability.LedgerSaveFailures.Inc()
		return fmt.Errorf("failed to save ledger after round %d: %w", record.RoundID, err)
	}
	return nil
}

func readBaseline(state *miner.MinerState) (*roundBaseline, error) {
	sol, err := state.RewardSol()
	if err != nil {
		return nil, err
	}
	ore, err := state.RewardOre()
	if err != nil {
		return nil, err
	}
	deployed, err := state.Deployed()
	if err != nil {
		return nil, err
	}
	return &roundBaseline{RoundID: state.RoundID, RewardSol: sol, RewardOre: ore, Deployed: deployed}, nil
}
