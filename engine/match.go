package engine

import (
	"time"

	"njord/domain/book"
	"njord/domain/ledger"
)

// Match runs the bounded matching loop: at most maxIterations match
// events against the crossed top of book. It returns the fills
// produced and whether crossing orders remain — exhausting the budget
// is not an error, it just means the caller should drive Match again.
// Every iteration leaves the book and ledger fully consistent, so a
// retry after any bound is safe.
func (e *Engine) Match(maxIterations uint32) ([]Fill, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg := e.params
	if cfg.Paused {
		return nil, false, ErrMarketPaused
	}

	var fills []Fill
	for it := uint32(0); it < maxIterations; it++ {
		bid, ask := e.book.BestBid(), e.book.BestAsk()
		if bid == nil || ask == nil || bid.Price < ask.Price {
			return fills, false, nil
		}

		// Self-trade prevention precedes any balance mutation: the
		// newer of the two orders is cancelled, never executed.
		if bid.Trader == ask.Trader {
			newer := bid
			if ask.Seq > bid.Seq {
				newer = ask
			}
			e.cancelLocked(newer, "self-trade")
			continue
		}

		// The older order is the maker and its resting price is the
		// execution price; price improvement goes to the taker.
		bidIsMaker := bid.Seq < ask.Seq
		execPrice := ask.Price
		if bidIsMaker {
			execPrice = bid.Price
		}

		fillSize := bid.Remaining()
		if ask.Remaining() < fillSize {
			fillSize = ask.Remaining()
		}
		// execPrice never exceeds bid.Price and fillSize never exceeds
		// the bid's size, so the product stays inside the notional bound
		// checked at placement.
		quote := execPrice * fillSize

		// A taker bid reserved quote at its own limit; the part not
		// spent at the better execution price is released, not lost.
		if !bidIsMaker && bid.Price > execPrice {
			e.ledger.Unlock(bid.Trader, ledger.Quote, (bid.Price-execPrice)*fillSize)
		}

		// Fees are charged on the received asset, truncating integer
		// division so rounding always favors the protocol.
		bidBps, askBps := cfg.TakerFeeBps, cfg.MakerFeeBps
		if bidIsMaker {
			bidBps, askBps = cfg.MakerFeeBps, cfg.TakerFeeBps
		}
		bidFee := feeOn(fillSize, bidBps)
		askFee := feeOn(quote, askBps)

		e.book.Bids.Reduce(bid, fillSize)
		e.book.Asks.Reduce(ask, fillSize)
		bid.Filled += fillSize
		ask.Filled += fillSize

		e.ledger.SettleFill(bid.Trader, ledger.Quote, quote, fillSize, bidFee)
		e.ledger.SettleFill(ask.Trader, ledger.Base, fillSize, quote, askFee)
		e.totalVolume += quote

		makerFee, takerFee := askFee, bidFee
		taker := book.Bid
		if bidIsMaker {
			makerFee, takerFee = bidFee, askFee
			taker = book.Ask
		}

		now := time.Now().UnixNano()
		fill := Fill{
			ID:          e.fillSeq.Next(),
			Market:      cfg.Symbol,
			BidOrderID:  bid.ID,
			AskOrderID:  ask.ID,
			BidTrader:   bid.Trader,
			AskTrader:   ask.Trader,
			Taker:       taker,
			Price:       execPrice,
			Size:        fillSize,
			QuoteAmount: quote,
			MakerFee:    makerFee,
			TakerFee:    takerFee,
			Time:        now,
		}

		e.removeIfFilled(bid, now)
		e.removeIfFilled(ask, now)

		e.emit(FillCreated{Market: cfg.Symbol, Fill: fill, Time: now})
		fills = append(fills, fill)
	}

	return fills, e.book.Crossed(), nil
}

// feeOn charges bps on amount, truncating toward zero exactly like
// amount*bps/10_000 but without the intermediate product overflowing:
// params validation bounds bps below 10_000, so both partial products
// fit in an int64 for any valid amount.
func feeOn(amount, bps int64) int64 {
	return amount/10_000*bps + amount%10_000*bps/10_000
}

func (e *Engine) removeIfFilled(o *book.Order, now int64) {
	if o.Remaining() != 0 {
		return
	}
	ev := OrderFilled{
		Market:  e.params.Symbol,
		OrderID: o.ID,
		Trader:  o.Trader,
		Size:    o.Size,
		Time:    now,
	}
	e.book.Remove(o)
	e.emit(ev)
}
