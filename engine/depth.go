package engine

import "njord/domain/book"

// DepthLevel is one aggregated price level in a depth snapshot.
type DepthLevel struct {
	Price  int64 `json:"price"`
	Qty    int64 `json:"qty"`
	Orders int   `json:"orders"`
}

// DepthSnapshot is a read-only aggregated view of the book.
type DepthSnapshot struct {
	Market      string       `json:"market"`
	BestBid     int64        `json:"best_bid"`
	BestAsk     int64        `json:"best_ask"`
	TotalVolume int64        `json:"total_volume"`
	Orders      int          `json:"orders"`
	Bids        []DepthLevel `json:"bids"`
	Asks        []DepthLevel `json:"asks"`
}

// Depth aggregates up to maxLevels price levels per side, best first.
// A non-positive maxLevels returns every level.
func (e *Engine) Depth(maxLevels int) DepthSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := DepthSnapshot{
		Market:      e.params.Symbol,
		TotalVolume: e.totalVolume,
		Orders:      e.book.Len(),
	}
	if bid := e.book.BestBid(); bid != nil {
		snap.BestBid = bid.Price
	}
	if ask := e.book.BestAsk(); ask != nil {
		snap.BestAsk = ask.Price
	}
	snap.Bids = collect(e.book.Bids, maxLevels)
	snap.Asks = collect(e.book.Asks, maxLevels)
	return snap
}

func collect(ix *book.PriceIndex, maxLevels int) []DepthLevel {
	var out []DepthLevel
	ix.Walk(func(lvl *book.Level) bool {
		out = append(out, DepthLevel{Price: lvl.Price, Qty: lvl.TotalQty, Orders: lvl.Count})
		return maxLevels <= 0 || len(out) < maxLevels
	})
	return out
}
