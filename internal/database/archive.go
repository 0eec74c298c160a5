package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ore-miner-bot-go/internal/ledger"
	"ore-miner-bot-go/internal/models"
)

// RoundArchive mirrors ledger records into sqlite so they can be queried by the UI.
// The ledger file stays the source of truth.
type RoundArchive struct {
	db *gorm.DB
}

// NewRoundArchive wraps an opened and migrated database.
func NewRoundArchive(db *gorm.DB) *RoundArchive {
	return &RoundArchive{db: db}
}

// SaveRound inserts the record or replaces the archived row for the same round.
func (a *RoundArchive) SaveRound(ctx context.Context, record models.RoundRecord) error {
	row := models.NewRoundRow(record)
	err := a.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "round_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"updated_at", "timestamp", "status", "deployed_sol", "gained_sol", "gained_ore", "result",
			"win_rate", "total_ore", "total_deployed_sol", "total_gained_sol", "profit_loss_ratio",
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to archive round %d: %w", record.RoundID, err)
	}
	return nil
}

// Backfill archives every record, typically the ledger contents at startup.
func (a *RoundArchive) Backfill(ctx context.Context, records []models.RoundRecord) error {
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txArchive := &RoundArchive{db: tx}
		for _, r := range records {
			if err := txArchive.SaveRound(ctx, r); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListRounds returns archived rounds, newest first. A non-positive limit returns all.
func (a *RoundArchive) ListRounds(ctx context.Context, limit int) ([]models.RoundRecord, error) {
	var rows []models.RoundRow
	q := a.db.WithContext(ctx).Order("round_id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list rounds: %w", err)
	}

	records := make([]models.RoundRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.Record())
	}
	return records, nil
}

// LastRound returns the archived round with the greatest id.
func (a *RoundArchive) LastRound(ctx context.Context) (models.RoundRecord, bool, error) {
	var row models.RoundRow
	err := a.db.WithContext(ctx).Order("round_id desc").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.RoundRecord{}, false, nil
	}
	if err != nil {
		return models.RoundRecord{}, false, fmt.Errorf("failed to get last round: %w", err)
	}
	return row.Record(), true, nil
}

// Statistics recomputes the history over archived rounds.
func (a *RoundArchive) Statistics(ctx context.Context) (models.HistoryStats, error) {
	records, err := a.deployedRounds(ctx, "")
	if err != nil {
		return models.HistoryStats{}, err
	}
	return ledger.Aggregate(records, nil), nil
}

// StatisticsSince recomputes the history over rounds whose timestamp sorts at or after
// since. Timestamps are compared as strings, which orders ISO-8601 values correctly.
func (a *RoundArchive) StatisticsSince(ctx context.Context, since string) (models.HistoryStats, error) {
	records, err := a.deployedRounds(ctx, since)
	if err != nil {
		return models.HistoryStats{}, err
	}
	return ledger.Aggregate(records, nil), nil
}

func (a *RoundArchive) deployedRounds(ctx context.Context, since string) ([]models.RoundRecord, error) {
	var rows []models.RoundRow
	q := a.db.WithContext(ctx).Where("status = ?", string(models.StatusDeployed)).Order("round_id asc")
	if since != "" {
		q = q.Where("timestamp >= ?", since)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load deployed rounds: %w", err)
	}

	records := make([]models.RoundRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.Record())
	}
	return records, nil
}
