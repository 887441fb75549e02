// Package pb holds the wire messages for the order gRPC API. They are
// hand-maintained protobuf messages encoded with protowire instead of
// generated code: the schema is small and the custom codec keeps the
// build free of a protoc step. Field numbers are frozen; add, never
// renumber.
package pb

import (
	"errors"

	"google.golang.org/protobuf/encoding/protowire"
)

var ErrBadMessage = errors.New("pb: malformed message")

type PlaceOrderRequest struct {
	Market string
	Trader uint64
	Side   uint32
	Price  int64
	Size   int64
	Tif    uint32
}

type PlaceOrderResponse struct {
	OrderId uint64
	Fills   []*Fill
}

type CancelOrderRequest struct {
	Market  string
	Trader  uint64
	OrderId uint64
}

type CancelOrderResponse struct{}

type MatchRequest struct {
	Market        string
	MaxIterations uint32
}

type MatchResponse struct {
	Fills []*Fill
	More  bool
}

type DepositRequest struct {
	Market string
	Trader uint64
	Asset  uint32
	Amount int64
}

type DepositResponse struct{}

type WithdrawRequest struct {
	Market string
	Trader uint64
	Asset  uint32
	Amount int64
}

type WithdrawResponse struct{}

type BalanceRequest struct {
	Market string
	Trader uint64
}

type BalanceResponse struct {
	BaseAvailable  int64
	BaseLocked     int64
	QuoteAvailable int64
	QuoteLocked    int64
}

type DepthRequest struct {
	Market    string
	MaxLevels uint32
}

type DepthLevel struct {
	Price  int64
	Qty    int64
	Orders uint32
}

type DepthResponse struct {
	BestBid     int64
	BestAsk     int64
	TotalVolume int64
	Orders      uint32
	Bids        []*DepthLevel
	Asks        []*DepthLevel
}

type Fill struct {
	Id          uint64
	Market      string
	BidOrderId  uint64
	AskOrderId  uint64
	BidTrader   uint64
	AskTrader   uint64
	Taker       uint32
	Price       int64
	Size        int64
	QuoteAmount int64
	MakerFee    int64
	TakerFee    int64
	Time        int64
}

func (m *PlaceOrderRequest) Marshal() []byte {
	var b []byte
	b = putString(b, 1, m.Market)
	b = putUint(b, 2, m.Trader)
	b = putUint(b, 3, uint64(m.Side))
	b = putSint(b, 4, m.Price)
	b = putSint(b, 5, m.Size)
	b = putUint(b, 6, uint64(m.Tif))
	return b
}

func (m *PlaceOrderRequest) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, uval uint64, bval []byte) error {
		switch num {
		case 1:
			m.Market = string(bval)
		case 2:
			m.Trader = uval
		case 3:
			m.Side = uint32(uval)
		case 4:
			m.Price = protowire.DecodeZigZag(uval)
		case 5:
			m.Size = protowire.DecodeZigZag(uval)
		case 6:
			m.Tif = uint32(uval)
		}
		return nil
	})
}

func (m *PlaceOrderResponse) Marshal() []byte {
	var b []byte
	b = putUint(b, 1, m.OrderId)
	for _, f := range m.Fills {
		b = putBytes(b, 2, f.Marshal())
	}
	return b
}

func (m *PlaceOrderResponse) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, uval uint64, bval []byte) error {
		switch num {
		case 1:
			m.OrderId = uval
		case 2:
			f := new(Fill)
			if err := f.Unmarshal(bval); err != nil {
				return err
			}
			m.Fills = append(m.Fills, f)
		}
		return nil
	})
}

func (m *CancelOrderRequest) Marshal() []byte {
	var b []byte
	b = putString(b, 1, m.Market)
	b = putUint(b, 2, m.Trader)
	b = putUint(b, 3, m.OrderId)
	return b
}

func (m *CancelOrderRequest) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, uval uint64, bval []byte) error {
		switch num {
		case 1:
			m.Market = string(bval)
		case 2:
			m.Trader = uval
		case 3:
			m.OrderId = uval
		}
		return nil
	})
}

func (m *CancelOrderResponse) Marshal() []byte { return nil }
func (m *CancelOrderResponse) Unmarshal(b []byte) error {
	return walk(b, func(protowire.Number, uint64, []byte) error { return nil })
}

func (m *MatchRequest) Marshal() []byte {
	var b []byte
	b = putString(b, 1, m.Market)
	b = putUint(b, 2, uint64(m.MaxIterations))
	return b
}

func (m *MatchRequest) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, uval uint64, bval []byte) error {
		switch num {
		case 1:
			m.Market = string(bval)
		case 2:
			m.MaxIterations = uint32(uval)
		}
		return nil
	})
}

func (m *MatchResponse) Marshal() []byte {
	var b []byte
	for _, f := range m.Fills {
		b = putBytes(b, 1, f.Marshal())
	}
	if m.More {
		b = putUint(b, 2, 1)
	}
	return b
}

func (m *MatchResponse) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, uval uint64, bval []byte) error {
		switch num {
		case 1:
			f := new(Fill)
			if err := f.Unmarshal(bval); err != nil {
				return err
			}
			m.Fills = append(m.Fills, f)
		case 2:
			m.More = uval != 0
		}
		return nil
	})
}

func (m *DepositRequest) Marshal() []byte {
	var b []byte
	b = putString(b, 1, m.Market)
	b = putUint(b, 2, m.Trader)
	b = putUint(b, 3, uint64(m.Asset))
	b = putSint(b, 4, m.Amount)
	return b
}

func (m *DepositRequest) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, uval uint64, bval []byte) error {
		switch num {
		case 1:
			m.Market = string(bval)
		case 2:
			m.Trader = uval
		case 3:
			m.Asset = uint32(uval)
		case 4:
			m.Amount = protowire.DecodeZigZag(uval)
		}
		return nil
	})
}

func (m *DepositResponse) Marshal() []byte { return nil }
func (m *DepositResponse) Unmarshal(b []byte) error {
	return walk(b, func(protowire.Number, uint64, []byte) error { return nil })
}

func (m *WithdrawRequest) Marshal() []byte {
	var b []byte
	b = putString(b, 1, m.Market)
	b = putUint(b, 2, m.Trader)
	b = putUint(b, 3, uint64(m.Asset))
	b = putSint(b, 4, m.Amount)
	return b
}

func (m *WithdrawRequest) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, uval uint64, bval []byte) error {
		switch num {
		case 1:
			m.Market = string(bval)
		case 2:
			m.Trader = uval
		case 3:
			m.Asset = uint32(uval)
		case 4:
			m.Amount = protowire.DecodeZigZag(uval)
		}
		return nil
	})
}

func (m *WithdrawResponse) Marshal() []byte { return nil }
func (m *WithdrawResponse) Unmarshal(b []byte) error {
	return walk(b, func(protowire.Number, uint64, []byte) error { return nil })
}

func (m *BalanceRequest) Marshal() []byte {
	var b []byte
	b = putString(b, 1, m.Market)
	b = putUint(b, 2, m.Trader)
	return b
}

func (m *BalanceRequest) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, uval uint64, bval []byte) error {
		switch num {
		case 1:
			m.Market = string(bval)
		case 2:
			m.Trader = uval
		}
		return nil
	})
}

func (m *BalanceResponse) Marshal() []byte {
	var b []byte
	b = putSint(b, 1, m.BaseAvailable)
	b = putSint(b, 2, m.BaseLocked)
	b = putSint(b, 3, m.QuoteAvailable)
	b = putSint(b, 4, m.QuoteLocked)
	return b
}

func (m *BalanceResponse) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, uval uint64, bval []byte) error {
		switch num {
		case 1:
			m.BaseAvailable = protowire.DecodeZigZag(uval)
		case 2:
			m.BaseLocked = protowire.DecodeZigZag(uval)
		case 3:
			m.QuoteAvailable = protowire.DecodeZigZag(uval)
		case 4:
			m.QuoteLocked = protowire.DecodeZigZag(uval)
		}
		return nil
	})
}

func (m *DepthRequest) Marshal() []byte {
	var b []byte
	b = putString(b, 1, m.Market)
	b = putUint(b, 2, uint64(m.MaxLevels))
	return b
}

func (m *DepthRequest) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, uval uint64, bval []byte) error {
		switch num {
		case 1:
			m.Market = string(bval)
		case 2:
			m.MaxLevels = uint32(uval)
		}
		return nil
	})
}

func (m *DepthLevel) Marshal() []byte {
	var b []byte
	b = putSint(b, 1, m.Price)
	b = putSint(b, 2, m.Qty)
	b = putUint(b, 3, uint64(m.Orders))
	return b
}

func (m *DepthLevel) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, uval uint64, bval []byte) error {
		switch num {
		case 1:
			m.Price = protowire.DecodeZigZag(uval)
		case 2:
			m.Qty = protowire.DecodeZigZag(uval)
		case 3:
			m.Orders = uint32(uval)
		}
		return nil
	})
}

func (m *DepthResponse) Marshal() []byte {
	var b []byte
	b = putSint(b, 1, m.BestBid)
	b = putSint(b, 2, m.BestAsk)
	b = putSint(b, 3, m.TotalVolume)
	b = putUint(b, 4, uint64(m.Orders))
	for _, l := range m.Bids {
		b = putBytes(b, 5, l.Marshal())
	}
	for _, l := range m.Asks {
		b = putBytes(b, 6, l.Marshal())
	}
	return b
}

func (m *DepthResponse) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, uval uint64, bval []byte) error {
		switch num {
		case 1:
			m.BestBid = protowire.DecodeZigZag(uval)
		case 2:
			m.BestAsk = protowire.DecodeZigZag(uval)
		case 3:
			m.TotalVolume = protowire.DecodeZigZag(uval)
		case 4:
			m.Orders = uint32(uval)
		case 5:
			l := new(DepthLevel)
			if err := l.Unmarshal(bval); err != nil {
				return err
			}
			m.Bids = append(m.Bids, l)
		case 6:
			l := new(DepthLevel)
			if err := l.Unmarshal(bval); err != nil {
				return err
			}
			m.Asks = append(m.Asks, l)
		}
		return nil
	})
}

func (m *Fill) Marshal() []byte {
	var b []byte
	b = putUint(b, 1, m.Id)
	b = putString(b, 2, m.Market)
	b = putUint(b, 3, m.BidOrderId)
	b = putUint(b, 4, m.AskOrderId)
	b = putUint(b, 5, m.BidTrader)
	b = putUint(b, 6, m.AskTrader)
	b = putUint(b, 7, uint64(m.Taker))
	b = putSint(b, 8, m.Price)
	b = putSint(b, 9, m.Size)
	b = putSint(b, 10, m.QuoteAmount)
	b = putSint(b, 11, m.MakerFee)
	b = putSint(b, 12, m.TakerFee)
	b = putSint(b, 13, m.Time)
	return b
}

func (m *Fill) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, uval uint64, bval []byte) error {
		switch num {
		case 1:
			m.Id = uval
		case 2:
			m.Market = string(bval)
		case 3:
			m.BidOrderId = uval
		case 4:
			m.AskOrderId = uval
		case 5:
			m.BidTrader = uval
		case 6:
			m.AskTrader = uval
		case 7:
			m.Taker = uint32(uval)
		case 8:
			m.Price = protowire.DecodeZigZag(uval)
		case 9:
			m.Size = protowire.DecodeZigZag(uval)
		case 10:
			m.QuoteAmount = protowire.DecodeZigZag(uval)
		case 11:
			m.MakerFee = protowire.DecodeZigZag(uval)
		case 12:
			m.TakerFee = protowire.DecodeZigZag(uval)
		case 13:
			m.Time = protowire.DecodeZigZag(uval)
		}
		return nil
	})
}

func putUint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func putSint(b []byte, num protowire.Number, v int64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeZigZag(v))
}

func putString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func putBytes(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

// walk dispatches each field: varints arrive in uval, length-delimited
// fields in bval. Unknown fields and wire types are skipped so old
// binaries read new logs.
func walk(b []byte, fn func(num protowire.Number, uval uint64, bval []byte) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return ErrBadMessage
		}
		b = b[n:]
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return ErrBadMessage
			}
			if err := fn(num, v, nil); err != nil {
				return err
			}
			b = b[n:]
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return ErrBadMessage
			}
			if err := fn(num, 0, v); err != nil {
				return err
			}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return ErrBadMessage
			}
			b = b[n:]
		}
	}
	return nil
}
