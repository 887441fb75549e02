package service

import (
	"errors"
	"log"
	"sync"

	"njord/domain/book"
	"njord/domain/ledger"
	"njord/domain/market"
	"njord/engine"
	"njord/infra/fillstore"
	"njord/infra/sequence"
	"njord/infra/wal"
)

var ErrMarketNotFound = errors.New("service: market not found")
var ErrMarketExists = errors.New("service: market already exists")

// Custodian is the external token-transfer primitive. The engine never
// moves real funds itself: deposits are mirrored into the ledger after
// TransferIn succeeds, withdrawals debited before TransferOut runs.
type Custodian interface {
	TransferIn(marketSym string, trader uint64, asset ledger.Asset, amount int64) error
	TransferOut(marketSym string, trader uint64, asset ledger.Asset, amount int64) error
}

// NopCustodian accepts every transfer. Used in tests and local runs
// where custody lives elsewhere.
type NopCustodian struct{}

func (NopCustodian) TransferIn(string, uint64, ledger.Asset, int64) error  { return nil }
func (NopCustodian) TransferOut(string, uint64, ledger.Asset, int64) error { return nil }

// OrderService is the only write entry point into the system. It owns
// the market registry and, per call: journals the intent to the WAL,
// drives the market's engine, persists fills, and fans events out to
// the broadcaster. Compound orchestrations (IOC, FOK) hold the
// market's service lock so no foreign operation lands between their
// steps.
type OrderService struct {
	mu      sync.RWMutex
	engines map[string]*marketSlot

	wal       *wal.WAL
	walSeq    *sequence.Sequencer
	fills     *fillstore.Store
	custodian Custodian
	snapDir   string

	events    chan engine.Event
	replaying bool

	// iteration budget for the inline matching pass behind IOC/FOK
	inlineBudget uint32
}

type marketSlot struct {
	mu  sync.Mutex
	eng *engine.Engine
}

// Config wires the service's collaborators.
type Config struct {
	WAL          *wal.WAL
	Fills        *fillstore.Store
	Custodian    Custodian
	SnapshotDir  string
	EventBuffer  int
	InlineBudget uint32
}

// New builds an empty service; markets are added with CreateMarket.
func New(cfg Config) *OrderService {
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 4096
	}
	if cfg.InlineBudget == 0 {
		cfg.InlineBudget = 64
	}
	if cfg.Custodian == nil {
		cfg.Custodian = NopCustodian{}
	}
	return &OrderService{
		engines:      make(map[string]*marketSlot),
		wal:          cfg.WAL,
		walSeq:       sequence.New(0),
		fills:        cfg.Fills,
		custodian:    cfg.Custodian,
		snapDir:      cfg.SnapshotDir,
		events:       make(chan engine.Event, cfg.EventBuffer),
		inlineBudget: cfg.InlineBudget,
	}
}

// Events is the observability stream consumed by the broadcaster.
// Events are best-effort: fills are durable in the fill store, the
// stream only exists to rebuild external views.
func (s *OrderService) Events() <-chan engine.Event { return s.events }

// CreateMarket registers a new engine for the given configuration.
func (s *OrderService) CreateMarket(p market.Params, bookCapacity int, feeRecipient uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.engines[p.Symbol]; ok {
		return ErrMarketExists
	}
	eng, err := engine.New(engine.Config{
		Params:       p,
		BookCapacity: bookCapacity,
		FeeRecipient: feeRecipient,
		Sink:         s.sink,
	})
	if err != nil {
		return err
	}
	s.engines[p.Symbol] = &marketSlot{eng: eng}
	log.Printf("[service] market %s created tick=%d lot=%d", p.Symbol, p.TickSize, p.LotSize)
	return nil
}

func (s *OrderService) slot(symbol string) (*marketSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slot, ok := s.engines[symbol]
	if !ok {
		return nil, ErrMarketNotFound
	}
	return slot, nil
}

// Engine exposes a market's engine for queries.
func (s *OrderService) Engine(symbol string) (*engine.Engine, error) {
	slot, err := s.slot(symbol)
	if err != nil {
		return nil, err
	}
	return slot.eng, nil
}

func (s *OrderService) sink(ev engine.Event) {
	if s.replaying {
		return
	}
	if _, ok := ev.(engine.FillCreated); ok {
		// fills take the durable outbox path through the fill store
		return
	}
	select {
	case s.events <- ev:
	default:
		// observability stream full; state is durable elsewhere
		log.Printf("[service] event dropped: %s", ev.Kind())
	}
}

func (s *OrderService) journal(t wal.RecordType, data []byte) {
	if s.replaying || s.wal == nil {
		return
	}
	if err := s.wal.Append(wal.NewRecord(t, s.walSeq.Next(), data)); err != nil {
		log.Printf("[service] wal append failed: %v", err)
	}
}

// PlaceOrder validates and rests an order, orchestrating time-in-force
// policy around the engine's primitive operations: IOC matches then
// cancels the remainder, FOK requires full fillability up front and
// then matches, GTC and PostOnly simply rest.
func (s *OrderService) PlaceOrder(symbol string, p engine.OrderParams) (uint64, []engine.Fill, error) {
	slot, err := s.slot(symbol)
	if err != nil {
		return 0, nil, err
	}
	slot.mu.Lock()
	defer slot.mu.Unlock()

	id, err := slot.eng.PlaceOrder(p)
	if err != nil {
		return 0, nil, err
	}
	s.journal(wal.RecordPlace, (&wal.PlacePayload{
		Market: symbol,
		Trader: p.Trader,
		Side:   uint8(p.Side),
		Price:  p.Price,
		Size:   p.Size,
		TIF:    uint8(p.TIF),
	}).Encode())

	if p.TIF != book.IOC && p.TIF != book.FOK {
		return id, nil, nil
	}

	fills, _, err := s.matchLocked(slot, symbol, s.inlineBudget)
	if err != nil {
		return id, fills, err
	}
	if p.TIF == book.IOC {
		if err := s.cancelLocked(slot, symbol, p.Trader, id); err != nil &&
			!errors.Is(err, book.ErrOrderNotFound) {
			return id, fills, err
		}
	}
	return id, fills, nil
}

// CancelOrder removes a live order owned by trader.
func (s *OrderService) CancelOrder(symbol string, trader, orderID uint64) error {
	slot, err := s.slot(symbol)
	if err != nil {
		return err
	}
	slot.mu.Lock()
	defer slot.mu.Unlock()
	return s.cancelLocked(slot, symbol, trader, orderID)
}

func (s *OrderService) cancelLocked(slot *marketSlot, symbol string, trader, orderID uint64) error {
	if err := slot.eng.CancelOrder(trader, orderID); err != nil {
		return err
	}
	s.journal(wal.RecordCancel, (&wal.CancelPayload{
		Market:  symbol,
		Trader:  trader,
		OrderID: orderID,
	}).Encode())
	return nil
}

// Match drives one bounded matching pass. Any caller may crank it; the
// returned flag signals whether another pass would produce more fills.
func (s *OrderService) Match(symbol string, maxIterations uint32) ([]engine.Fill, bool, error) {
	slot, err := s.slot(symbol)
	if err != nil {
		return nil, false, err
	}
	slot.mu.Lock()
	defer slot.mu.Unlock()

	return s.matchLocked(slot, symbol, maxIterations)
}

func (s *OrderService) matchLocked(slot *marketSlot, symbol string, budget uint32) ([]engine.Fill, bool, error) {
	// an uncrossed book makes the pass a no-op; skip the journal so an
	// idle matching crank does not grow the log
	effective := slot.eng.Crossed()

	fills, more, err := slot.eng.Match(budget)
	if err != nil {
		return nil, false, err
	}
	if effective {
		s.journal(wal.RecordMatch, (&wal.MatchPayload{
			Market:        symbol,
			MaxIterations: budget,
		}).Encode())
	}
	if s.fills != nil {
		for _, f := range fills {
			if err := s.fills.Put(f); err != nil {
				log.Printf("[service] fill %d not persisted: %v", f.ID, err)
			}
		}
	}
	return fills, more, nil
}

// Deposit mirrors an external custody transfer into the ledger.
func (s *OrderService) Deposit(symbol string, trader uint64, asset ledger.Asset, amount int64) error {
	slot, err := s.slot(symbol)
	if err != nil {
		return err
	}
	slot.mu.Lock()
	defer slot.mu.Unlock()

	if err := s.custodian.TransferIn(symbol, trader, asset, amount); err != nil {
		return err
	}
	if err := slot.eng.Deposit(trader, asset, amount); err != nil {
		return err
	}
	s.journal(wal.RecordDeposit, (&wal.FlowPayload{
		Market: symbol,
		Trader: trader,
		Asset:  uint8(asset),
		Amount: amount,
	}).Encode())
	return nil
}

// Withdraw debits the ledger, then hands the funds to the custodian.
func (s *OrderService) Withdraw(symbol string, trader uint64, asset ledger.Asset, amount int64) error {
	slot, err := s.slot(symbol)
	if err != nil {
		return err
	}
	slot.mu.Lock()
	defer slot.mu.Unlock()

	if err := slot.eng.Withdraw(trader, asset, amount); err != nil {
		return err
	}
	s.journal(wal.RecordWithdraw, (&wal.FlowPayload{
		Market: symbol,
		Trader: trader,
		Asset:  uint8(asset),
		Amount: amount,
	}).Encode())
	if err := s.custodian.TransferOut(symbol, trader, asset, amount); err != nil {
		// funds stay debited; the settlement operator reconciles
		log.Printf("[service] custody transfer out failed: %v", err)
	}
	return nil
}

// Depth returns an aggregated book view.
func (s *OrderService) Depth(symbol string, maxLevels int) (engine.DepthSnapshot, error) {
	slot, err := s.slot(symbol)
	if err != nil {
		return engine.DepthSnapshot{}, err
	}
	return slot.eng.Depth(maxLevels), nil
}

// Balance returns a trader's account copy.
func (s *OrderService) Balance(symbol string, trader uint64) (ledger.Account, error) {
	slot, err := s.slot(symbol)
	if err != nil {
		return ledger.Account{}, err
	}
	return slot.eng.Balance(trader), nil
}

// PauseMarket stops placements and matching; cancels keep working.
func (s *OrderService) PauseMarket(symbol string) error {
	slot, err := s.slot(symbol)
	if err != nil {
		return err
	}
	slot.mu.Lock()
	defer slot.mu.Unlock()
	slot.eng.Pause()
	s.journalParams(slot, symbol)
	log.Printf("[service] market %s paused", symbol)
	return nil
}

// ResumeMarket re-enables placements and matching.
func (s *OrderService) ResumeMarket(symbol string) error {
	slot, err := s.slot(symbol)
	if err != nil {
		return err
	}
	slot.mu.Lock()
	defer slot.mu.Unlock()
	slot.eng.Resume()
	s.journalParams(slot, symbol)
	log.Printf("[service] market %s resumed", symbol)
	return nil
}

// UpdateParams swaps a market's configuration; the change applies to
// the next operation, never retroactively.
func (s *OrderService) UpdateParams(symbol string, p market.Params) error {
	slot, err := s.slot(symbol)
	if err != nil {
		return err
	}
	slot.mu.Lock()
	defer slot.mu.Unlock()
	if err := slot.eng.SetParams(p); err != nil {
		return err
	}
	s.journalParams(slot, symbol)
	return nil
}

// journalParams records the market's full configuration. Fee bps feed
// the match arithmetic, so journaled matches after a config change
// must replay under the same params that were in force live.
func (s *OrderService) journalParams(slot *marketSlot, symbol string) {
	p := slot.eng.Params()
	s.journal(wal.RecordParams, (&wal.ParamsPayload{
		Market:      symbol,
		BaseAsset:   p.BaseAsset,
		QuoteAsset:  p.QuoteAsset,
		TickSize:    p.TickSize,
		LotSize:     p.LotSize,
		MakerFeeBps: p.MakerFeeBps,
		TakerFeeBps: p.TakerFeeBps,
		Paused:      p.Paused,
	}).Encode())
}
