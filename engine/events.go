package engine

import "njord/domain/book"

// Event is an outbound observability record. Each variant carries
// enough identifying fields to reconstruct book state from a log.
type Event interface {
	Kind() string
}

// Sink receives events synchronously inside the operation that
// produced them. Implementations must not block; the service fans
// events out to the broadcaster off the hot path.
type Sink func(Event)

type OrderPlaced struct {
	Market  string           `json:"market"`
	OrderID uint64           `json:"order_id"`
	Trader  uint64           `json:"trader"`
	Side    book.Side        `json:"side"`
	Price   int64            `json:"price"`
	Size    int64            `json:"size"`
	TIF     book.TimeInForce `json:"tif"`
	Seq     uint64           `json:"seq"`
	Time    int64            `json:"time"`
}

type OrderCancelled struct {
	Market    string `json:"market"`
	OrderID   uint64 `json:"order_id"`
	Trader    uint64 `json:"trader"`
	Remaining int64  `json:"remaining"`
	Reason    string `json:"reason"`
	Time      int64  `json:"time"`
}

type OrderFilled struct {
	Market  string `json:"market"`
	OrderID uint64 `json:"order_id"`
	Trader  uint64 `json:"trader"`
	Size    int64  `json:"size"`
	Time    int64  `json:"time"`
}

type FillCreated struct {
	Market string `json:"market"`
	Fill   Fill   `json:"fill"`
	Time   int64  `json:"time"`
}

func (OrderPlaced) Kind() string    { return "order_placed" }
func (OrderCancelled) Kind() string { return "order_cancelled" }
func (OrderFilled) Kind() string    { return "order_filled" }
func (FillCreated) Kind() string    { return "fill_created" }
