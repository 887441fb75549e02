package service

import (
	"errors"
	"path/filepath"
	"testing"

	"njord/domain/book"
	"njord/domain/ledger"
	"njord/domain/market"
	"njord/engine"
	"njord/infra/fillstore"
	"njord/infra/wal"
)

const sym = "SOL-USDC"

func testMarket() market.Params {
	return market.Params{
		Symbol:     sym,
		BaseAsset:  "SOL",
		QuoteAsset: "USDC",
		TickSize:   1,
		LotSize:    1,
	}
}

type fixture struct {
	svc     *OrderService
	wal     *wal.WAL
	fills   *fillstore.Store
	walDir  string
	snapDir string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	walDir := filepath.Join(root, "wal")
	snapDir := filepath.Join(root, "snapshots")

	w, err := wal.Open(wal.Config{Dir: walDir})
	if err != nil {
		t.Fatalf("open wal: %v", err)
	}
	fills, err := fillstore.Open(filepath.Join(root, "fills"))
	if err != nil {
		t.Fatalf("open fillstore: %v", err)
	}
	t.Cleanup(func() { _ = fills.Close() })

	svc := New(Config{WAL: w, Fills: fills, SnapshotDir: snapDir})
	if err := svc.CreateMarket(testMarket(), 16, 0); err != nil {
		t.Fatalf("create market: %v", err)
	}
	return &fixture{svc: svc, wal: w, fills: fills, walDir: walDir, snapDir: snapDir}
}

func (fx *fixture) fund(t *testing.T, trader uint64, asset ledger.Asset, amount int64) {
	t.Helper()
	if err := fx.svc.Deposit(sym, trader, asset, amount); err != nil {
		t.Fatalf("deposit: %v", err)
	}
}

// recovered builds a second service over the same durable state, the
// way a restarted process would.
func (fx *fixture) recovered(t *testing.T) *OrderService {
	t.Helper()
	_ = fx.wal.Close()

	svc2 := New(Config{Fills: fx.fills, SnapshotDir: fx.snapDir})
	if err := svc2.CreateMarket(testMarket(), 16, 0); err != nil {
		t.Fatalf("create market: %v", err)
	}
	if err := svc2.Recover(fx.walDir); err != nil {
		t.Fatalf("recover: %v", err)
	}
	return svc2
}

func TestService_PlaceMatchPersistsFills(t *testing.T) {
	fx := newFixture(t)
	fx.fund(t, 1, ledger.Quote, 1000)
	fx.fund(t, 2, ledger.Base, 10)

	if _, _, err := fx.svc.PlaceOrder(sym, engine.OrderParams{
		Trader: 2, Side: book.Ask, Price: 100, Size: 10,
	}); err != nil {
		t.Fatalf("place ask: %v", err)
	}
	if _, _, err := fx.svc.PlaceOrder(sym, engine.OrderParams{
		Trader: 1, Side: book.Bid, Price: 100, Size: 4,
	}); err != nil {
		t.Fatalf("place bid: %v", err)
	}

	fills, more, err := fx.svc.Match(sym, 10)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if len(fills) != 1 || fills[0].Size != 4 || more {
		t.Fatalf("fills=%+v more=%v", fills, more)
	}

	// the fill is durable before Match returns
	stored, _, err := fx.fills.Get(fills[0].ID)
	if err != nil {
		t.Fatalf("fill not persisted: %v", err)
	}
	if stored != fills[0] {
		t.Fatalf("stored fill diverged: %+v vs %+v", stored, fills[0])
	}
}

func TestService_IOCCancelsRemainder(t *testing.T) {
	fx := newFixture(t)
	fx.fund(t, 1, ledger.Quote, 80)
	fx.fund(t, 2, ledger.Base, 5)

	if _, _, err := fx.svc.PlaceOrder(sym, engine.OrderParams{
		Trader: 2, Side: book.Ask, Price: 10, Size: 5,
	}); err != nil {
		t.Fatalf("place ask: %v", err)
	}

	_, fills, err := fx.svc.PlaceOrder(sym, engine.OrderParams{
		Trader: 1, Side: book.Bid, Price: 10, Size: 8, TIF: book.IOC,
	})
	if err != nil {
		t.Fatalf("place ioc: %v", err)
	}
	if len(fills) != 1 || fills[0].Size != 5 {
		t.Fatalf("expected one fill of 5, got %+v", fills)
	}

	// the unfilled 3 never rests
	depth, err := fx.svc.Depth(sym, 0)
	if err != nil {
		t.Fatalf("depth: %v", err)
	}
	if depth.Orders != 0 {
		t.Fatalf("expected empty book after IOC, got %+v", depth)
	}

	acc, err := fx.svc.Balance(sym, 1)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if acc.BaseAvailable != 5 || acc.QuoteAvailable != 30 || acc.QuoteLocked != 0 {
		t.Fatalf("taker balances after IOC: %+v", acc)
	}
}

func TestService_FOKRejectsWithoutLiquidity(t *testing.T) {
	fx := newFixture(t)
	fx.fund(t, 1, ledger.Quote, 1000)
	fx.fund(t, 2, ledger.Base, 5)

	if _, _, err := fx.svc.PlaceOrder(sym, engine.OrderParams{
		Trader: 2, Side: book.Ask, Price: 10, Size: 5,
	}); err != nil {
		t.Fatalf("place ask: %v", err)
	}

	_, _, err := fx.svc.PlaceOrder(sym, engine.OrderParams{
		Trader: 1, Side: book.Bid, Price: 10, Size: 6, TIF: book.FOK,
	})
	if !errors.Is(err, engine.ErrInsufficientLiquidity) {
		t.Fatalf("expected ErrInsufficientLiquidity, got %v", err)
	}

	// the full amount fills in one shot
	_, fills, err := fx.svc.PlaceOrder(sym, engine.OrderParams{
		Trader: 1, Side: book.Bid, Price: 10, Size: 5, TIF: book.FOK,
	})
	if err != nil {
		t.Fatalf("place fok: %v", err)
	}
	if len(fills) != 1 || fills[0].Size != 5 {
		t.Fatalf("expected full fill, got %+v", fills)
	}
}

func TestService_CancelUnknownMarket(t *testing.T) {
	fx := newFixture(t)
	if err := fx.svc.CancelOrder("NOPE", 1, 1); !errors.Is(err, ErrMarketNotFound) {
		t.Fatalf("expected ErrMarketNotFound, got %v", err)
	}
	if err := fx.svc.CreateMarket(testMarket(), 16, 0); !errors.Is(err, ErrMarketExists) {
		t.Fatalf("expected ErrMarketExists, got %v", err)
	}
}

func TestService_RecoverRebuildsState(t *testing.T) {
	fx := newFixture(t)
	fx.fund(t, 1, ledger.Quote, 1000)
	fx.fund(t, 2, ledger.Base, 10)

	if _, _, err := fx.svc.PlaceOrder(sym, engine.OrderParams{
		Trader: 2, Side: book.Ask, Price: 100, Size: 10,
	}); err != nil {
		t.Fatalf("place ask: %v", err)
	}
	if _, _, err := fx.svc.PlaceOrder(sym, engine.OrderParams{
		Trader: 1, Side: book.Bid, Price: 100, Size: 4,
	}); err != nil {
		t.Fatalf("place bid: %v", err)
	}
	liveFills, _, err := fx.svc.Match(sym, 10)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if err := fx.svc.Withdraw(sym, 1, ledger.Quote, 100); err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	svc2 := fx.recovered(t)

	for _, trader := range []uint64{1, 2} {
		want, _ := fx.svc.Balance(sym, trader)
		got, err := svc2.Balance(sym, trader)
		if err != nil {
			t.Fatalf("balance: %v", err)
		}
		if got != want {
			t.Fatalf("trader %d diverged after recovery: got %+v want %+v", trader, got, want)
		}
	}

	wantDepth, _ := fx.svc.Depth(sym, 0)
	gotDepth, _ := svc2.Depth(sym, 0)
	if gotDepth.BestAsk != wantDepth.BestAsk || gotDepth.Orders != wantDepth.Orders ||
		gotDepth.TotalVolume != wantDepth.TotalVolume {
		t.Fatalf("depth diverged: got %+v want %+v", gotDepth, wantDepth)
	}

	// replay regenerated the very same fill ids
	if len(liveFills) != 1 {
		t.Fatalf("expected one live fill, got %d", len(liveFills))
	}
	if _, _, err := fx.fills.Get(liveFills[0].ID); err != nil {
		t.Fatalf("fill lost in recovery: %v", err)
	}
}

// A fee change between two matches must survive recovery: the second
// match replays under the raised bps, not the ones from market
// creation.
func TestService_RecoverAppliesFeeChange(t *testing.T) {
	fx := newFixture(t)
	fx.fund(t, 1, ledger.Quote, 10_000)
	fx.fund(t, 2, ledger.Base, 20)

	if _, _, err := fx.svc.PlaceOrder(sym, engine.OrderParams{
		Trader: 2, Side: book.Ask, Price: 100, Size: 10,
	}); err != nil {
		t.Fatalf("place ask: %v", err)
	}
	if _, _, err := fx.svc.PlaceOrder(sym, engine.OrderParams{
		Trader: 1, Side: book.Bid, Price: 100, Size: 5,
	}); err != nil {
		t.Fatalf("place bid: %v", err)
	}
	if _, _, err := fx.svc.Match(sym, 10); err != nil {
		t.Fatalf("match: %v", err)
	}

	p := testMarket()
	p.MakerFeeBps, p.TakerFeeBps = 25, 75
	if err := fx.svc.UpdateParams(sym, p); err != nil {
		t.Fatalf("update params: %v", err)
	}

	// second trade pays the raised fees
	if _, _, err := fx.svc.PlaceOrder(sym, engine.OrderParams{
		Trader: 1, Side: book.Bid, Price: 100, Size: 5,
	}); err != nil {
		t.Fatalf("place bid: %v", err)
	}
	if _, _, err := fx.svc.Match(sym, 10); err != nil {
		t.Fatalf("match: %v", err)
	}

	liveEng, _ := fx.svc.Engine(sym)
	if fees := liveEng.FeeBalance(); fees.QuoteAvailable != 1 {
		t.Fatalf("expected 1 quote of maker fee live, got %+v", fees)
	}

	svc2 := fx.recovered(t)

	recEng, err := svc2.Engine(sym)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	if got, want := recEng.FeeBalance(), liveEng.FeeBalance(); got != want {
		t.Fatalf("fee account diverged after recovery: got %+v want %+v", got, want)
	}
	if got, want := recEng.Params(), liveEng.Params(); got != want {
		t.Fatalf("params diverged after recovery: got %+v want %+v", got, want)
	}
	for _, trader := range []uint64{1, 2} {
		want, _ := fx.svc.Balance(sym, trader)
		got, _ := svc2.Balance(sym, trader)
		if got != want {
			t.Fatalf("trader %d diverged after recovery: got %+v want %+v", trader, got, want)
		}
	}
}

func TestService_CheckpointBoundsReplay(t *testing.T) {
	fx := newFixture(t)
	fx.fund(t, 1, ledger.Quote, 1000)
	fx.fund(t, 2, ledger.Base, 10)

	if _, _, err := fx.svc.PlaceOrder(sym, engine.OrderParams{
		Trader: 2, Side: book.Ask, Price: 100, Size: 10,
	}); err != nil {
		t.Fatalf("place ask: %v", err)
	}

	if err := fx.svc.Checkpoint(); err != nil {
		t.Fatalf("checkpoint: %v", err)
	}

	// operations after the checkpoint live only in the WAL tail
	if _, _, err := fx.svc.PlaceOrder(sym, engine.OrderParams{
		Trader: 1, Side: book.Bid, Price: 100, Size: 4,
	}); err != nil {
		t.Fatalf("place bid: %v", err)
	}
	if _, _, err := fx.svc.Match(sym, 10); err != nil {
		t.Fatalf("match: %v", err)
	}

	svc2 := fx.recovered(t)

	for _, trader := range []uint64{1, 2} {
		want, _ := fx.svc.Balance(sym, trader)
		got, _ := svc2.Balance(sym, trader)
		if got != want {
			t.Fatalf("trader %d diverged after checkpointed recovery: got %+v want %+v", trader, got, want)
		}
	}
	wantDepth, _ := fx.svc.Depth(sym, 0)
	gotDepth, _ := svc2.Depth(sym, 0)
	if gotDepth.Orders != wantDepth.Orders || gotDepth.TotalVolume != wantDepth.TotalVolume {
		t.Fatalf("depth diverged: got %+v want %+v", gotDepth, wantDepth)
	}
}
