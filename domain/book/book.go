package book

import (
	"errors"
	"sort"
)

// ErrOrderNotFound is returned when an order id does not resolve to a
// live order.
var ErrOrderNotFound = errors.New("book: order not found")

// Book is one market's order store: the slab pool plus both price
// indexes and an id lookup table. Every live order sits in exactly one
// side's index; the pool and indexes never disagree.
type Book struct {
	Bids *PriceIndex
	Asks *PriceIndex

	pool    *OrderPool
	byID    map[uint64]Handle
	lastSeq uint64
}

// New creates an empty book backed by a slab of the given capacity.
func New(capacity int) *Book {
	return &Book{
		Bids: NewPriceIndex(Bid),
		Asks: NewPriceIndex(Ask),
		pool: NewOrderPool(capacity),
		byID: make(map[uint64]Handle, capacity),
	}
}

// Full reports whether the next Insert would exhaust the pool.
func (b *Book) Full() bool { return b.pool.Full() }

// Len returns the number of live orders.
func (b *Book) Len() int { return b.pool.Live() }

// LastSeq returns the highest sequence inserted so far.
func (b *Book) LastSeq() uint64 { return b.lastSeq }

// Insert allocates a slot, copies the order into it and links it into
// its side's index. The order must carry a fresh unique ID and Seq.
func (b *Book) Insert(o Order) (*Order, error) {
	h, rec, err := b.pool.Alloc()
	if err != nil {
		return nil, err
	}
	*rec = o
	rec.Status = Active
	b.byID[o.ID] = h
	b.side(o.Side).Insert(rec)
	if o.Seq > b.lastSeq {
		b.lastSeq = o.Seq
	}
	return rec, nil
}

// Lookup resolves an order id to its live record.
func (b *Book) Lookup(id uint64) (*Order, error) {
	h, ok := b.byID[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	o := b.pool.Get(h)
	if o == nil {
		panic("book: id table references freed slot")
	}
	return o, nil
}

// Remove unlinks an order from its index and frees its slot. The
// record is invalid after this call.
func (b *Book) Remove(o *Order) {
	h, ok := b.byID[o.ID]
	if !ok {
		panic("book: remove of untracked order")
	}
	o.Status = Inactive
	b.side(o.Side).Remove(o)
	delete(b.byID, o.ID)
	b.pool.Free(h)
}

// BestBid returns the oldest order at the highest bid, or nil.
func (b *Book) BestBid() *Order { return b.Bids.Best() }

// BestAsk returns the oldest order at the lowest ask, or nil.
func (b *Book) BestAsk() *Order { return b.Asks.Best() }

// Crossed reports whether the best bid and ask overlap.
func (b *Book) Crossed() bool {
	bid, ask := b.BestBid(), b.BestAsk()
	return bid != nil && ask != nil && bid.Price >= ask.Price
}

// Orders returns detached copies of every live order, oldest first.
// Re-inserting them into an empty book reproduces the exact price-time
// queue order.
func (b *Book) Orders() []Order {
	out := make([]Order, 0, len(b.byID))
	for _, h := range b.byID {
		o := b.pool.Get(h)
		if o == nil {
			panic("book: id table references freed slot")
		}
		c := *o
		c.next, c.prev = nil, nil
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

func (b *Book) side(s Side) *PriceIndex {
	if s == Bid {
		return b.Bids
	}
	return b.Asks
}
