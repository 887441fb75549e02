package engine

import (
	"math"
	"sync"
	"time"

	"njord/domain/book"
	"njord/domain/ledger"
	"njord/domain/market"
	"njord/infra/sequence"
)

// Engine is one market's matching engine. All mutating operations are
// serialized under a single mutex: the book and ledger invariants are
// not safe under interleaved partial updates. Different markets run
// fully independent engines.
type Engine struct {
	mu sync.Mutex

	params   market.Params
	book     *book.Book
	ledger   *ledger.Ledger
	capacity int

	orderSeq *sequence.Sequencer
	fillSeq  *sequence.Sequencer

	totalVolume int64
	sink        Sink
}

// Config carries engine construction parameters.
type Config struct {
	Params       market.Params
	BookCapacity int
	FeeRecipient uint64
	Sink         Sink
}

// New builds an engine for one market.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Params.Validate(); err != nil {
		return nil, err
	}
	if cfg.BookCapacity <= 0 {
		cfg.BookCapacity = 1000
	}
	return &Engine{
		params:   cfg.Params,
		book:     book.New(cfg.BookCapacity),
		ledger:   ledger.New(cfg.FeeRecipient),
		capacity: cfg.BookCapacity,
		orderSeq: sequence.New(0),
		fillSeq:  sequence.New(0),
		sink:     cfg.Sink,
	}, nil
}

// OrderParams describes a placement request.
type OrderParams struct {
	Trader uint64
	Side   book.Side
	Price  int64
	Size   int64
	TIF    book.TimeInForce
}

// emit forwards an event if a sink is attached.
func (e *Engine) emit(ev Event) {
	if e.sink != nil {
		e.sink(ev)
	}
}

// PlaceOrder validates the request, locks the backing funds and rests
// the order in the book. It does not run a matching pass; the caller
// drives matching explicitly (and orchestrates IOC/FOK semantics).
// Every failure path leaves book and ledger untouched.
func (e *Engine) PlaceOrder(p OrderParams) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg := e.params
	if cfg.Paused {
		return 0, ErrMarketPaused
	}
	if p.Side != book.Bid && p.Side != book.Ask {
		return 0, ErrInvalidSide
	}
	if p.TIF > book.PostOnly {
		return 0, ErrInvalidTimeInForce
	}
	if err := cfg.CheckTick(p.Price); err != nil {
		return 0, err
	}
	if err := cfg.CheckLot(p.Size); err != nil {
		return 0, err
	}
	// Tick and lot checks leave both factors positive, so the quote
	// reservation overflows exactly when price exceeds MaxInt64/size.
	if p.Side == book.Bid && p.Price > math.MaxInt64/p.Size {
		return 0, ErrAmountOverflow
	}
	if p.TIF == book.PostOnly && e.wouldCross(p.Side, p.Price) {
		return 0, ErrPostOnlyWouldCross
	}
	if p.TIF == book.FOK {
		if err := e.checkFillable(p); err != nil {
			return 0, err
		}
	}
	// Reserve the slot check before locking funds so a pool-exhausted
	// placement leaves the ledger untouched.
	if e.book.Full() {
		return 0, book.ErrPoolExhausted
	}

	asset, amount := reserveFor(p.Side, p.Price, p.Size)
	if err := e.ledger.Lock(p.Trader, asset, amount); err != nil {
		return 0, err
	}

	id := e.orderSeq.Next()
	o := book.Order{
		ID:     id,
		Trader: p.Trader,
		Side:   p.Side,
		Price:  p.Price,
		Size:   p.Size,
		TIF:    p.TIF,
		Seq:    id,
	}
	if _, err := e.book.Insert(o); err != nil {
		// Full() was checked above; Insert cannot fail here.
		panic("engine: insert after capacity check failed")
	}

	e.emit(OrderPlaced{
		Market:  cfg.Symbol,
		OrderID: id,
		Trader:  p.Trader,
		Side:    p.Side,
		Price:   p.Price,
		Size:    p.Size,
		TIF:     p.TIF,
		Seq:     id,
		Time:    time.Now().UnixNano(),
	})
	return id, nil
}

// CancelOrder removes a live order and releases exactly the reserved
// remainder back to available. Cancellation stays allowed while the
// market is paused.
func (e *Engine) CancelOrder(trader, orderID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	o, err := e.book.Lookup(orderID)
	if err != nil {
		return err
	}
	if o.Trader != trader {
		return ErrNotOwner
	}
	e.cancelLocked(o, "cancelled")
	return nil
}

// cancelLocked releases the order's remaining reservation and frees
// it. Caller holds the engine mutex.
func (e *Engine) cancelLocked(o *book.Order, reason string) {
	asset, amount := reserveFor(o.Side, o.Price, o.Remaining())
	e.ledger.Unlock(o.Trader, asset, amount)

	ev := OrderCancelled{
		Market:    e.params.Symbol,
		OrderID:   o.ID,
		Trader:    o.Trader,
		Remaining: o.Remaining(),
		Reason:    reason,
		Time:      time.Now().UnixNano(),
	}
	e.book.Remove(o)
	e.emit(ev)
}

// Deposit credits available funds after the external custody transfer
// completed. Allowed while paused.
func (e *Engine) Deposit(trader uint64, asset ledger.Asset, amount int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if amount <= 0 {
		return ErrInvalidAmount
	}
	e.ledger.Deposit(trader, asset, amount)
	return nil
}

// Withdraw debits available funds ahead of the external custody
// transfer. Fails if the unlocked balance does not cover it.
func (e *Engine) Withdraw(trader uint64, asset ledger.Asset, amount int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return e.ledger.Withdraw(trader, asset, amount)
}

// Balance returns a copy of the trader's account.
func (e *Engine) Balance(trader uint64) ledger.Account {
	e.mu.Lock()
	defer e.mu.Unlock()
	return *e.ledger.Account(trader)
}

// FeeBalance returns a copy of the protocol fee account.
func (e *Engine) FeeBalance() ledger.Account {
	e.mu.Lock()
	defer e.mu.Unlock()
	return *e.ledger.FeeRecipient()
}

// Crossed reports whether the best bid meets or beats the best ask,
// i.e. a matching pass would do work.
func (e *Engine) Crossed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.Crossed()
}

// Params returns the market configuration as of now.
func (e *Engine) Params() market.Params {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.params
}

// SetParams swaps the configuration. Takes effect on the next
// operation, never retroactively.
func (e *Engine) SetParams(p market.Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.params = p
	return nil
}

// Pause stops placements and matching; cancels, deposits and
// withdrawals continue to work.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.params.Paused = true
}

// Resume re-enables placements and matching.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.params.Paused = false
}

// wouldCross reports whether a resting order at price would
// immediately match the opposite side.
func (e *Engine) wouldCross(side book.Side, price int64) bool {
	if side == book.Bid {
		if ask := e.book.BestAsk(); ask != nil {
			return price >= ask.Price
		}
		return false
	}
	if bid := e.book.BestBid(); bid != nil {
		return price <= bid.Price
	}
	return false
}

// checkFillable verifies a fill-or-kill order can be fully matched
// right now out of other traders' resting liquidity. An own order
// inside the crossing range blocks the FOK outright: the self-trade
// policy would otherwise cancel the newer order mid-fill.
func (e *Engine) checkFillable(p OrderParams) error {
	opp := e.book.Asks
	crosses := func(lvlPrice int64) bool { return lvlPrice <= p.Price }
	if p.Side == book.Ask {
		opp = e.book.Bids
		crosses = func(lvlPrice int64) bool { return lvlPrice >= p.Price }
	}

	need := p.Size
	selfBlocked := false
	opp.Walk(func(lvl *book.Level) bool {
		if !crosses(lvl.Price) || need <= 0 {
			return false
		}
		for o := lvl.Head(); o != nil; o = o.Next() {
			if o.Trader == p.Trader {
				selfBlocked = true
				return false
			}
			need -= o.Remaining()
			if need <= 0 {
				return false
			}
		}
		return true
	})
	if selfBlocked {
		return ErrSelfTradeBlocked
	}
	if need > 0 {
		return ErrInsufficientLiquidity
	}
	return nil
}

// reserveFor computes the asset and amount backing an order: quote
// price*size for a bid, base size for an ask. Bid notionals are
// bounded at placement, so the product cannot overflow.
func reserveFor(side book.Side, price, size int64) (ledger.Asset, int64) {
	if side == book.Bid {
		return ledger.Quote, price * size
	}
	return ledger.Base, size
}
