package book

type Side uint8
type TimeInForce uint8
type Status uint8

const (
	Bid Side = iota
	Ask
)

const (
	GTC TimeInForce = iota
	IOC
	FOK
	PostOnly
)

const (
	Active Status = iota
	Inactive
)

func (s Side) String() string {
	if s == Ask {
		return "ask"
	}
	return "bid"
}

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	if s == Bid {
		return Ask
	}
	return Bid
}

// Order is one resting instruction to trade. Orders live inside the
// pool's slab; everything outside the book package refers to them by
// Handle, never by slot position.
type Order struct {
	ID     uint64
	Trader uint64
	Side   Side
	Price  int64
	Size   int64
	Filled int64
	Seq    uint64
	TIF    TimeInForce
	Status Status

	// intrusive FIFO links within a price level
	next *Order
	prev *Order
}

// Remaining reports the unfilled part of the order.
func (o *Order) Remaining() int64 { return o.Size - o.Filled }

// Next returns the order behind this one in its price level queue.
func (o *Order) Next() *Order { return o.next }
