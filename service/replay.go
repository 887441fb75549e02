package service

import (
	"fmt"
	"log"

	"njord/domain/book"
	"njord/domain/ledger"
	"njord/domain/market"
	"njord/engine"
	"njord/infra/snapshot"
	"njord/infra/wal"
)

// Recover rebuilds all market state from the latest checkpoint plus
// the WAL tail. Markets must be registered before calling it, and it
// must finish before the service accepts traffic. Replay applies the
// same operations in the same order against the same starting state,
// so ids come out identical to the original run; events are suppressed
// and fills re-persist idempotently.
func (s *OrderService) Recover(walDir string) error {
	s.replaying = true
	defer func() { s.replaying = false }()

	var floor uint64
	if s.snapDir != "" {
		cp, ok, err := snapshot.Load(s.snapDir)
		if err != nil {
			return err
		}
		if ok {
			for _, m := range cp.Markets {
				slot, err := s.slot(m.Symbol)
				if err != nil {
					return fmt.Errorf("service: checkpoint market %s: %w", m.Symbol, err)
				}
				if err := slot.eng.Restore(m.Engine); err != nil {
					return fmt.Errorf("service: restore market %s: %w", m.Symbol, err)
				}
				if err := slot.eng.SetParams(m.Params); err != nil {
					return fmt.Errorf("service: restore params %s: %w", m.Symbol, err)
				}
			}
			floor = cp.WalSeq
			log.Printf("[service] checkpoint restored at seq %d", floor)
		}
	}

	lastSeq, err := wal.Replay(walDir, func(rec *wal.Record) error {
		if rec.Seq <= floor {
			// already reflected in the checkpoint
			return nil
		}
		switch rec.Type {
		case wal.RecordPlace:
			var p wal.PlacePayload
			if err := p.Decode(rec.Data); err != nil {
				return err
			}
			return s.replayPlace(p)
		case wal.RecordCancel:
			var p wal.CancelPayload
			if err := p.Decode(rec.Data); err != nil {
				return err
			}
			return s.replayCancel(p)
		case wal.RecordMatch:
			var p wal.MatchPayload
			if err := p.Decode(rec.Data); err != nil {
				return err
			}
			return s.replayMatch(p)
		case wal.RecordParams:
			var p wal.ParamsPayload
			if err := p.Decode(rec.Data); err != nil {
				return err
			}
			return s.replayParams(p)
		case wal.RecordDeposit, wal.RecordWithdraw:
			var p wal.FlowPayload
			if err := p.Decode(rec.Data); err != nil {
				return err
			}
			return s.replayFlow(rec.Type, p)
		default:
			return fmt.Errorf("service: unknown wal record type %d", rec.Type)
		}
	})
	if err != nil {
		return fmt.Errorf("service: wal replay: %w", err)
	}

	if lastSeq < floor {
		lastSeq = floor
	}
	s.walSeq.Reset(lastSeq)
	log.Printf("[service] wal replay complete, last seq %d", lastSeq)
	return nil
}

func (s *OrderService) replayPlace(p wal.PlacePayload) error {
	slot, err := s.slot(p.Market)
	if err != nil {
		return err
	}
	_, err = slot.eng.PlaceOrder(engine.OrderParams{
		Trader: p.Trader,
		Side:   book.Side(p.Side),
		Price:  p.Price,
		Size:   p.Size,
		TIF:    book.TimeInForce(p.TIF),
	})
	if err != nil {
		// the op was journaled only after it succeeded live
		return fmt.Errorf("service: replay place diverged: %w", err)
	}
	return nil
}

func (s *OrderService) replayCancel(p wal.CancelPayload) error {
	slot, err := s.slot(p.Market)
	if err != nil {
		return err
	}
	if err := slot.eng.CancelOrder(p.Trader, p.OrderID); err != nil {
		return fmt.Errorf("service: replay cancel diverged: %w", err)
	}
	return nil
}

func (s *OrderService) replayMatch(p wal.MatchPayload) error {
	slot, err := s.slot(p.Market)
	if err != nil {
		return err
	}
	fills, _, err := slot.eng.Match(p.MaxIterations)
	if err != nil {
		return fmt.Errorf("service: replay match diverged: %w", err)
	}
	if s.fills != nil {
		for _, f := range fills {
			if err := s.fills.Put(f); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *OrderService) replayParams(p wal.ParamsPayload) error {
	slot, err := s.slot(p.Market)
	if err != nil {
		return err
	}
	if err := slot.eng.SetParams(market.Params{
		Symbol:      p.Market,
		BaseAsset:   p.BaseAsset,
		QuoteAsset:  p.QuoteAsset,
		TickSize:    p.TickSize,
		LotSize:     p.LotSize,
		MakerFeeBps: p.MakerFeeBps,
		TakerFeeBps: p.TakerFeeBps,
		Paused:      p.Paused,
	}); err != nil {
		return fmt.Errorf("service: replay params diverged: %w", err)
	}
	return nil
}

func (s *OrderService) replayFlow(t wal.RecordType, p wal.FlowPayload) error {
	slot, err := s.slot(p.Market)
	if err != nil {
		return err
	}
	if t == wal.RecordDeposit {
		return slot.eng.Deposit(p.Trader, ledger.Asset(p.Asset), p.Amount)
	}
	if err := slot.eng.Withdraw(p.Trader, ledger.Asset(p.Asset), p.Amount); err != nil {
		return fmt.Errorf("service: replay withdraw diverged: %w", err)
	}
	return nil
}
