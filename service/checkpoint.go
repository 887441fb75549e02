package service

import (
	"fmt"
	"log"
	"sort"
	"time"

	"njord/infra/snapshot"
)

// Checkpoint cuts a consistent snapshot across every market, persists
// it, and truncates WAL segments the snapshot made redundant. All
// market locks are held for the cut, so the saved states and the saved
// WAL sequence agree exactly. A service without a snapshot directory
// recovers from the full log instead.
func (s *OrderService) Checkpoint() error {
	if s.snapDir == "" {
		return nil
	}

	s.mu.RLock()
	symbols := make([]string, 0, len(s.engines))
	for sym := range s.engines {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	slots := make([]*marketSlot, len(symbols))
	for i, sym := range symbols {
		slots[i] = s.engines[sym]
	}
	s.mu.RUnlock()

	for _, slot := range slots {
		slot.mu.Lock()
	}
	defer func() {
		for _, slot := range slots {
			slot.mu.Unlock()
		}
	}()

	cp := snapshot.Checkpoint{
		WalSeq:  s.walSeq.Current(),
		TakenAt: time.Now().UnixNano(),
	}
	for i, sym := range symbols {
		cp.Markets = append(cp.Markets, snapshot.MarketState{
			Symbol: sym,
			Params: slots[i].eng.Params(),
			Engine: slots[i].eng.Snapshot(),
		})
	}

	if err := snapshot.Write(s.snapDir, cp); err != nil {
		return fmt.Errorf("service: checkpoint: %w", err)
	}
	if s.wal != nil {
		if err := s.wal.TruncateBefore(cp.WalSeq); err != nil {
			log.Printf("[service] wal truncate: %v", err)
		}
	}
	log.Printf("[service] checkpoint at seq %d across %d markets", cp.WalSeq, len(cp.Markets))
	return nil
}
