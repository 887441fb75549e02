package book

import (
	rbt "github.com/emirpasic/gods/v2/trees/redblacktree"
)

// PriceIndex is one side's price-sorted traversal structure: a
// red-black tree of price levels with a side-aware comparator, so the
// leftmost node is always the best price. A cached best pointer keeps
// the hot-path read O(1).
type PriceIndex struct {
	side   Side
	levels *rbt.Tree[int64, *Level]
	best   *Level
}

// NewPriceIndex builds an empty index for the given side. Bids sort
// descending, asks ascending; within a level, FIFO realizes time
// priority.
func NewPriceIndex(side Side) *PriceIndex {
	cmp := func(a, b int64) int {
		if a < b {
			return -1
		} else if a > b {
			return 1
		}
		return 0
	}
	if side == Bid {
		asc := cmp
		cmp = func(a, b int64) int { return -asc(a, b) }
	}
	return &PriceIndex{
		side:   side,
		levels: rbt.NewWith[int64, *Level](cmp),
	}
}

// Insert links an order into its price level, creating the level if
// needed, and refreshes the cached best.
func (ix *PriceIndex) Insert(o *Order) {
	lvl, found := ix.levels.Get(o.Price)
	if !found {
		lvl = &Level{Price: o.Price}
		ix.levels.Put(o.Price, lvl)
	}
	lvl.enqueue(o)
	if ix.best == nil || ix.better(o.Price, ix.best.Price) {
		ix.best = lvl
	}
}

// Remove unlinks an order from its level; empty levels are dropped
// from the tree and the cached best is recomputed when it was hit.
func (ix *PriceIndex) Remove(o *Order) {
	lvl, found := ix.levels.Get(o.Price)
	if !found {
		panic("book: remove from missing price level")
	}
	lvl.unlink(o)
	if lvl.Count == 0 {
		ix.levels.Remove(o.Price)
		if ix.best == lvl {
			ix.best = ix.leftmost()
		}
	}
}

// Best returns the oldest order at the best price, or nil if the side
// is empty.
func (ix *PriceIndex) Best() *Order {
	if ix.best == nil {
		return nil
	}
	return ix.best.head
}

// BestLevel returns the best price level, or nil.
func (ix *PriceIndex) BestLevel() *Level { return ix.best }

// NextAfter returns the first level strictly worse than price in this
// side's ordering, or nil.
func (ix *PriceIndex) NextAfter(price int64) *Level {
	var next *Level
	ix.walkFrom(price, func(lvl *Level) bool {
		if lvl.Price == price {
			return true
		}
		next = lvl
		return false
	})
	return next
}

// Reduce lowers the outstanding quantity of the order's level after a
// partial fill. Must be called before the order's Filled advances.
func (ix *PriceIndex) Reduce(o *Order, qty int64) {
	lvl, found := ix.levels.Get(o.Price)
	if !found {
		panic("book: reduce on missing price level")
	}
	lvl.reduce(qty)
}

// Walk visits levels best-first until fn returns false.
func (ix *PriceIndex) Walk(fn func(*Level) bool) {
	it := ix.levels.Iterator()
	for it.Next() {
		if !fn(it.Value()) {
			return
		}
	}
}

func (ix *PriceIndex) walkFrom(price int64, fn func(*Level) bool) {
	it := ix.levels.Iterator()
	for it.Next() {
		lvl := it.Value()
		if ix.better(lvl.Price, price) {
			continue
		}
		if !fn(lvl) {
			return
		}
	}
}

// Levels returns the number of distinct prices on this side.
func (ix *PriceIndex) Levels() int { return ix.levels.Size() }

// Empty reports whether the side holds no orders.
func (ix *PriceIndex) Empty() bool { return ix.best == nil }

func (ix *PriceIndex) leftmost() *Level {
	node := ix.levels.Left()
	if node == nil {
		return nil
	}
	return node.Value
}

// better reports whether price a beats price b on this side.
func (ix *PriceIndex) better(a, b int64) bool {
	if ix.side == Bid {
		return a > b
	}
	return a < b
}
