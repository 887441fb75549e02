// Package market defines per-market configuration consumed, not
// owned, by the engine. Params are read at the start of each operation
// and copied by value, so a concurrent update never takes effect
// mid-call.
package market

import "errors"

var (
	ErrInvalidTick   = errors.New("market: price not a multiple of tick size")
	ErrInvalidLot    = errors.New("market: size not a multiple of lot size")
	ErrInvalidParams = errors.New("market: invalid parameters")
)

// Params is one market's configuration surface.
type Params struct {
	Symbol      string
	BaseAsset   string
	QuoteAsset  string
	TickSize    int64
	LotSize     int64
	MakerFeeBps int64
	TakerFeeBps int64
	Paused      bool
}

// Validate checks the structural invariants of the configuration.
func (p Params) Validate() error {
	if p.Symbol == "" || p.TickSize <= 0 || p.LotSize <= 0 {
		return ErrInvalidParams
	}
	if p.MakerFeeBps < 0 || p.TakerFeeBps < 0 ||
		p.MakerFeeBps >= 10_000 || p.TakerFeeBps >= 10_000 {
		return ErrInvalidParams
	}
	return nil
}

// CheckTick rejects prices off the tick grid.
func (p Params) CheckTick(price int64) error {
	if price < p.TickSize || price%p.TickSize != 0 {
		return ErrInvalidTick
	}
	return nil
}

// CheckLot rejects sizes off the lot grid.
func (p Params) CheckLot(size int64) error {
	if size < p.LotSize || size%p.LotSize != 0 {
		return ErrInvalidLot
	}
	return nil
}
