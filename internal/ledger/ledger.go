// Package ledger keeps the persisted history of mining rounds and derives the
// running statistics shown after every round.
package ledger

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"ore-miner-bot-go/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const keyPrefix = "round_"

// fileFormat is the on-disk shape of the ledger.
type fileFormat struct {
	Rounds map[string]models.RoundRecord `json:"rounds"`
}

// Ledger maps round ids to their records. It is safe to read from other goroutines
// while the single round processor writes to it.
type Ledger struct {
	mu     sync.RWMutex
	rounds map[uint64]models.RoundRecord
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{rounds: make(map[uint64]models.RoundRecord)}
}

// LoadOrCreate reads the ledger stored at path. A missing, unreadable or malformed
// file is logged and yields an empty ledger; it never fails the caller.
func LoadOrCreate(path string, log *zap.Logger) *Ledger {
	l := log.With(zap.String("path", path))

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			l.Info("No ledger file found, starting with empty history")
		} else {
			l.Error("Failed to read ledger file, starting with empty history", zap.Error(err))
		}
		return New()
	}

	var file fileFormat
	if err := json.Unmarshal(content, &file); err != nil {
		l.Error("Failed to parse ledger file, starting with empty history", zap.Error(err))
		return New()
	}

	ledger := New()
	for key, record := range file.Rounds {
		if id, err := parseRoundKey(key); err != nil || id != record.RoundID {
			l.Warn("Ledger key does not match its round id, keying by round id",
				zap.String("key", key), zap.Uint64("round_id", record.RoundID))
		}
		ledger.rounds[record.RoundID] = record
	}
	l.Info("Ledger loaded", zap.Int("rounds", len(ledger.rounds)))
	return ledger
}

// Save overwrites the file at path with the whole ledger. The content is written to a
// temporary file in the same directory and renamed into place.
func (lg *Ledger) Save(path string) error {
	lg.mu.RLock()
	file := fileFormat{Rounds: make(map[string]models.RoundRecord, len(lg.rounds))}
	for id, record := range lg.rounds {
		file.Rounds[roundKey(id)] = record
	}
	lg.mu.RUnlock()

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode ledger: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".ledger-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary ledger file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write ledger: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to set ledger permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace ledger file %s: %w", path, err)
	}
	return nil
}

// UpsertRound stores the round, replacing any previous record with the same id.
// The embedded history snapshot covers every other stored round plus this one.
func (lg *Ledger) UpsertRound(in models.RoundInput) models.RoundRecord {
	lg.mu.Lock()
	defer lg.mu.Unlock()

	others := make([]models.RoundRecord, 0, len(lg.rounds))
	for _, r := range lg.sortedLocked() {
		if r.RoundID != in.RoundID {
			others = append(others, r)
		}
	}

	record := models.RoundRecord{
		RoundID:     in.RoundID,
		Timestamp:   in.Timestamp,
		Status:      in.Status,
		DeployedSol: in.DeployedSol,
		GainedSol:   in.GainedSol,
		GainedOre:   in.GainedOre,
		Result:      in.Result,
		History:     Aggregate(others, &in),
	}
	lg.rounds[in.RoundID] = record
	return record
}

// CurrentHistoryStats aggregates the stored rounds only.
func (lg *Ledger) CurrentHistoryStats() models.HistoryStats {
	lg.mu.RLock()
	defer lg.mu.RUnlock()
	return Aggregate(lg.sortedLocked(), nil)
}

// MostRecentRound returns the record with the greatest round id.
func (lg *Ledger) MostRecentRound() (models.RoundRecord, bool) {
	lg.mu.RLock()
	defer lg.mu.RUnlock()

	var (
		latest models.RoundRecord
		found  bool
	)
	for id, r := range lg.rounds {
		if !found || id > latest.RoundID {
			latest, found = r, true
		}
	}
	return latest, found
}

// Round looks up a single round.
func (lg *Ledger) Round(id uint64) (models.RoundRecord, bool) {
	lg.mu.RLock()
	defer lg.mu.RUnlock()
	r, ok := lg.rounds[id]
	return r, ok
}

// Records returns all rounds ordered by round id.
func (lg *Ledger) Records() []models.RoundRecord {
	lg.mu.RLock()
	defer lg.mu.RUnlock()
	return lg.sortedLocked()
}

// Len returns the number of stored rounds.
func (lg *Ledger) Len() int {
	lg.mu.RLock()
	defer lg.mu.RUnlock()
	return len(lg.rounds)
}

// sortedLocked orders records by id so that float sums do not depend on map order.
func (lg *Ledger) sortedLocked() []models.RoundRecord {
	records := make([]models.RoundRecord, 0, len(lg.rounds))
	for _, r := range lg.rounds {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].RoundID < records[j].RoundID })
	return records
}

func roundKey(id uint64) string {
	return keyPrefix + strconv.FormatUint(id, 10)
}

func parseRoundKey(key string) (uint64, error) {
	if !strings.HasPrefix(key, keyPrefix) {
		return 0, fmt.Errorf("invalid round key %q", key)
	}
	id, err := strconv.ParseUint(strings.TrimPrefix(key, keyPrefix), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid round key %q: %w", key, err)
	}
	return id, nil
}
