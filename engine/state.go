package engine

import (
	"njord/domain/book"
	"njord/domain/ledger"
)

// State is a point-in-time copy of everything an engine needs to come
// back after a restart: live orders in queue order, all accounts, the
// id generators and the volume counter. It pairs with the checkpoint
// file so recovery replays only the log tail.
type State struct {
	Orders      []book.Order     `json:"orders"`
	Accounts    []ledger.Account `json:"accounts"`
	OrderSeq    uint64           `json:"order_seq"`
	FillSeq     uint64           `json:"fill_seq"`
	TotalVolume int64            `json:"total_volume"`
}

// Snapshot captures the engine's state under the writer lock.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State{
		Orders:      e.book.Orders(),
		Accounts:    e.ledger.Snapshot(),
		OrderSeq:    e.orderSeq.Current(),
		FillSeq:     e.fillSeq.Current(),
		TotalVolume: e.totalVolume,
	}
}

// Restore replaces the engine's state with a snapshot. Orders arrive
// oldest first, so re-inserting them reproduces price-time order
// exactly.
func (e *Engine) Restore(st State) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	b := book.New(e.capacity)
	for _, o := range st.Orders {
		if _, err := b.Insert(o); err != nil {
			return err
		}
	}
	e.book = b
	e.ledger.Load(st.Accounts)
	e.orderSeq.Reset(st.OrderSeq)
	e.fillSeq.Reset(st.FillSeq)
	e.totalVolume = st.TotalVolume
	return nil
}
