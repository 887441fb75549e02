package engine

import "njord/domain/book"

// Fill is the immutable result of one match event. The engine creates
// it with Settled=false; the settlement collaborator moves custody and
// flips the flag exactly once. Fees are denominated in the asset the
// charged side receives: base for the buyer, quote for the seller.
type Fill struct {
	ID          uint64    `json:"id"`
	Market      string    `json:"market"`
	BidOrderID  uint64    `json:"bid_order_id"`
	AskOrderID  uint64    `json:"ask_order_id"`
	BidTrader   uint64    `json:"bid_trader"`
	AskTrader   uint64    `json:"ask_trader"`
	Taker       book.Side `json:"taker"`
	Price       int64     `json:"price"`
	Size        int64     `json:"size"`
	QuoteAmount int64     `json:"quote_amount"`
	MakerFee    int64     `json:"maker_fee"`
	TakerFee    int64     `json:"taker_fee"`
	Settled     bool      `json:"settled"`
	Time        int64     `json:"time"`
}
