package wal

import (
	"errors"

	"google.golang.org/protobuf/encoding/protowire"
)

// Payload codecs. Records carry protobuf-wire-encoded bodies so the
// log stays forward-compatible: unknown fields are skipped on decode.
// Messages are hand-maintained rather than generated; the framing is
// plain proto2/proto3 wire format via protowire.

var ErrBadPayload = errors.New("wal: malformed payload")

// PlacePayload journals an accepted order placement.
type PlacePayload struct {
	Market string
	Trader uint64
	Side   uint8
	Price  int64
	Size   int64
	TIF    uint8
}

// CancelPayload journals an accepted cancellation.
type CancelPayload struct {
	Market  string
	Trader  uint64
	OrderID uint64
}

// FlowPayload journals a deposit or withdrawal.
type FlowPayload struct {
	Market string
	Trader uint64
	Asset  uint8
	Amount int64
}

func (p *PlacePayload) Encode() []byte {
	var b []byte
	b = appendString(b, 1, p.Market)
	b = appendUint(b, 2, p.Trader)
	b = appendUint(b, 3, uint64(p.Side))
	b = appendSint(b, 4, p.Price)
	b = appendSint(b, 5, p.Size)
	b = appendUint(b, 6, uint64(p.TIF))
	return b
}

func (p *PlacePayload) Decode(b []byte) error {
	return walk(b, func(num protowire.Number, uval uint64, sval string) {
		switch num {
		case 1:
			p.Market = sval
		case 2:
			p.Trader = uval
		case 3:
			p.Side = uint8(uval)
		case 4:
			p.Price = protowire.DecodeZigZag(uval)
		case 5:
			p.Size = protowire.DecodeZigZag(uval)
		case 6:
			p.TIF = uint8(uval)
		}
	})
}

func (p *CancelPayload) Encode() []byte {
	var b []byte
	b = appendString(b, 1, p.Market)
	b = appendUint(b, 2, p.Trader)
	b = appendUint(b, 3, p.OrderID)
	return b
}

func (p *CancelPayload) Decode(b []byte) error {
	return walk(b, func(num protowire.Number, uval uint64, sval string) {
		switch num {
		case 1:
			p.Market = sval
		case 2:
			p.Trader = uval
		case 3:
			p.OrderID = uval
		}
	})
}

func (p *FlowPayload) Encode() []byte {
	var b []byte
	b = appendString(b, 1, p.Market)
	b = appendUint(b, 2, p.Trader)
	b = appendUint(b, 3, uint64(p.Asset))
	b = appendSint(b, 4, p.Amount)
	return b
}

func (p *FlowPayload) Decode(b []byte) error {
	return walk(b, func(num protowire.Number, uval uint64, sval string) {
		switch num {
		case 1:
			p.Market = sval
		case 2:
			p.Trader = uval
		case 3:
			p.Asset = uint8(uval)
		case 4:
			p.Amount = protowire.DecodeZigZag(uval)
		}
	})
}

// MatchPayload journals a matching pass so replay re-runs it with the
// same budget against the same book state.
type MatchPayload struct {
	Market        string
	MaxIterations uint32
}

func (p *MatchPayload) Encode() []byte {
	var b []byte
	b = appendString(b, 1, p.Market)
	b = appendUint(b, 2, uint64(p.MaxIterations))
	return b
}

func (p *MatchPayload) Decode(b []byte) error {
	return walk(b, func(num protowire.Number, uval uint64, sval string) {
		switch num {
		case 1:
			p.Market = sval
		case 2:
			p.MaxIterations = uint32(uval)
		}
	})
}

// ParamsPayload journals a market configuration change. Fees feed the
// match arithmetic, so replayed matches must run under the params that
// were in force when the pass was journaled.
type ParamsPayload struct {
	Market      string
	BaseAsset   string
	QuoteAsset  string
	TickSize    int64
	LotSize     int64
	MakerFeeBps int64
	TakerFeeBps int64
	Paused      bool
}

func (p *ParamsPayload) Encode() []byte {
	var b []byte
	b = appendString(b, 1, p.Market)
	b = appendString(b, 2, p.BaseAsset)
	b = appendString(b, 3, p.QuoteAsset)
	b = appendSint(b, 4, p.TickSize)
	b = appendSint(b, 5, p.LotSize)
	b = appendSint(b, 6, p.MakerFeeBps)
	b = appendSint(b, 7, p.TakerFeeBps)
	var paused uint64
	if p.Paused {
		paused = 1
	}
	b = appendUint(b, 8, paused)
	return b
}

func (p *ParamsPayload) Decode(b []byte) error {
	return walk(b, func(num protowire.Number, uval uint64, sval string) {
		switch num {
		case 1:
			p.Market = sval
		case 2:
			p.BaseAsset = sval
		case 3:
			p.QuoteAsset = sval
		case 4:
			p.TickSize = protowire.DecodeZigZag(uval)
		case 5:
			p.LotSize = protowire.DecodeZigZag(uval)
		case 6:
			p.MakerFeeBps = protowire.DecodeZigZag(uval)
		case 7:
			p.TakerFeeBps = protowire.DecodeZigZag(uval)
		case 8:
			p.Paused = uval != 0
		}
	})
}

func appendUint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendSint(b []byte, num protowire.Number, v int64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeZigZag(v))
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

// walk dispatches each field to fn: varints arrive in uval, length-
// delimited fields in sval. Unknown fields and wire types are skipped.
func walk(b []byte, fn func(num protowire.Number, uval uint64, sval string)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return ErrBadPayload
		}
		b = b[n:]
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return ErrBadPayload
			}
			fn(num, v, "")
			b = b[n:]
		case protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return ErrBadPayload
			}
			fn(num, 0, v)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return ErrBadPayload
			}
			b = b[n:]
		}
	}
	return nil
}
