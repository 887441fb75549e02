package snapshot

import (
	"testing"

	"njord/domain/book"
	"njord/domain/ledger"
	"njord/domain/market"
	"njord/engine"
)

func TestCheckpoint_WriteLoadRoundtrip(t *testing.T) {
	dir := t.TempDir()

	cp := Checkpoint{
		WalSeq:  42,
		TakenAt: 1_700_000_000,
		Markets: []MarketState{{
			Symbol: "SOL-USDC",
			Params: market.Params{Symbol: "SOL-USDC", TickSize: 1, LotSize: 1},
			Engine: engine.State{
				Orders: []book.Order{
					{ID: 1, Trader: 7, Side: book.Bid, Price: 100, Size: 5, Filled: 2, Seq: 1},
				},
				Accounts: []ledger.Account{
					{Trader: 7, QuoteAvailable: 10, QuoteLocked: 300},
				},
				OrderSeq:    1,
				FillSeq:     3,
				TotalVolume: 200,
			},
		}},
	}
	if err := Write(dir, cp); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, ok, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !ok {
		t.Fatal("expected a checkpoint")
	}
	if got.WalSeq != 42 || len(got.Markets) != 1 {
		t.Fatalf("checkpoint: %+v", got)
	}
	st := got.Markets[0].Engine
	if len(st.Orders) != 1 || st.Orders[0].Filled != 2 || st.FillSeq != 3 {
		t.Fatalf("engine state diverged: %+v", st)
	}
}

func TestCheckpoint_LoadMissing(t *testing.T) {
	_, ok, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ok {
		t.Fatal("empty dir must not report a checkpoint")
	}
}

// A rewrite replaces the previous checkpoint in place.
func TestCheckpoint_Overwrite(t *testing.T) {
	dir := t.TempDir()
	if err := Write(dir, Checkpoint{WalSeq: 1}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := Write(dir, Checkpoint{WalSeq: 2}); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	got, _, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.WalSeq != 2 {
		t.Fatalf("expected latest checkpoint, got seq %d", got.WalSeq)
	}
}
