package book

import "errors"

// ErrPoolExhausted is returned when every slot in the slab is live.
var ErrPoolExhausted = errors.New("book: order pool exhausted")

const noSlot = ^uint32(0)

// Handle is a weak reference to a pooled order. The generation field
// detects reuse: a handle taken before a free/reallocate cycle no
// longer resolves.
type Handle struct {
	slot uint32
	gen  uint32
}

type slot struct {
	order    Order
	gen      uint32
	live     bool
	nextFree uint32
}

// OrderPool is a fixed-capacity slab of order records with an
// intrusive free-list. Allocation and free are O(1); the pool never
// grows — exhaustion is surfaced to the caller as a capacity error.
type OrderPool struct {
	slots    []slot
	freeHead uint32
	liveN    int
}

// NewOrderPool allocates a slab with the given capacity.
func NewOrderPool(capacity int) *OrderPool {
	p := &OrderPool{
		slots:    make([]slot, capacity),
		freeHead: 0,
	}
	for i := range p.slots {
		p.slots[i].nextFree = uint32(i + 1)
	}
	p.slots[capacity-1].nextFree = noSlot
	return p
}

// Alloc pops a slot off the free-list and returns a handle plus the
// order record to fill in. The record is zeroed.
func (p *OrderPool) Alloc() (Handle, *Order, error) {
	if p.freeHead == noSlot {
		return Handle{}, nil, ErrPoolExhausted
	}
	idx := p.freeHead
	s := &p.slots[idx]
	p.freeHead = s.nextFree
	s.live = true
	s.order = Order{}
	p.liveN++
	return Handle{slot: idx, gen: s.gen}, &s.order, nil
}

// Free clears a slot and pushes it back on the free-list. Freeing a
// stale or already-free handle is an invariant violation.
func (p *OrderPool) Free(h Handle) {
	s := &p.slots[h.slot]
	if !s.live || s.gen != h.gen {
		panic("book: free of stale order handle")
	}
	s.order = Order{}
	s.live = false
	s.gen++
	s.nextFree = p.freeHead
	p.freeHead = h.slot
	p.liveN--
}

// Get resolves a handle to its order, or nil if the handle is stale.
func (p *OrderPool) Get(h Handle) *Order {
	if int(h.slot) >= len(p.slots) {
		return nil
	}
	s := &p.slots[h.slot]
	if !s.live || s.gen != h.gen {
		return nil
	}
	return &s.order
}

// Full reports whether the next Alloc would fail.
func (p *OrderPool) Full() bool { return p.freeHead == noSlot }

// Live returns the number of allocated orders.
func (p *OrderPool) Live() int { return p.liveN }

// Cap returns the fixed slab capacity.
func (p *OrderPool) Cap() int { return len(p.slots) }
