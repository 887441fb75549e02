// Package snapshot persists engine checkpoints. A checkpoint bounds
// recovery: state is restored from the file and only WAL records past
// its sequence are replayed, which in turn lets old segments be
// truncated.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"njord/domain/market"
	"njord/engine"
)

const fileName = "checkpoint.json"

// MarketState is one market's slice of a checkpoint.
type MarketState struct {
	Symbol string        `json:"symbol"`
	Params market.Params `json:"params"`
	Engine engine.State  `json:"engine"`
}

// Checkpoint is a consistent cut across all markets: every operation
// journaled at or below WalSeq is reflected in the states, nothing
// after it is.
type Checkpoint struct {
	WalSeq  uint64        `json:"wal_seq"`
	TakenAt int64         `json:"taken_at"`
	Markets []MarketState `json:"markets"`
}

// Write persists the checkpoint atomically: a temp file is fsynced and
// renamed over the previous one, so a crash mid-write keeps the old
// checkpoint intact.
func Write(dir string, cp Checkpoint) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("snapshot: mkdir: %w", err)
	}

	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("snapshot: encode: %w", err)
	}

	tmp := filepath.Join(dir, fileName+".tmp")
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("snapshot: open temp: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("snapshot: write: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("snapshot: sync: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("snapshot: close: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, fileName)); err != nil {
		return fmt.Errorf("snapshot: rename: %w", err)
	}
	return nil
}

// Load reads the checkpoint if one exists. The boolean reports whether
// a checkpoint was found.
func Load(dir string) (Checkpoint, bool, error) {
	data, err := os.ReadFile(filepath.Join(dir, fileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Checkpoint{}, false, nil
		}
		return Checkpoint{}, false, fmt.Errorf("snapshot: read: %w", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, false, fmt.Errorf("snapshot: decode: %w", err)
	}
	return cp, true, nil
}
