// Package settler finalizes fills against external custody. It scans
// the fill store for unsettled records, asks the custodian to move the
// real tokens, flips the terminal flag and publishes a confirmation on
// the settlement topic. Every step is idempotent or keyed, so the job
// can crash and restart at any point.
package settler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"njord/engine"
	"njord/infra/fillstore"
	"njord/infra/kafka"
)

// Custodian performs the on-chain (or bank-side) leg of a fill. It
// must be idempotent per fill id: the settler retries after partial
// failures.
type Custodian interface {
	SettleFill(ctx context.Context, f engine.Fill) error
}

// NopCustodian settles everything instantly. Used when custody is
// reconciled out of band.
type NopCustodian struct{}

func (NopCustodian) SettleFill(context.Context, engine.Fill) error { return nil }

type Settler struct {
	fills     *fillstore.Store
	custodian Custodian
	producer  *kafka.Producer
	interval  time.Duration
}

// confirmation is the published settlement record.
type confirmation struct {
	V         int    `json:"v"`
	FillID    uint64 `json:"fill_id"`
	Market    string `json:"market"`
	Price     int64  `json:"price"`
	Size      int64  `json:"size"`
	BidTrader uint64 `json:"bid_trader"`
	AskTrader uint64 `json:"ask_trader"`
	SettledAt int64  `json:"settled_at"`
}

func New(fills *fillstore.Store, custodian Custodian, producer *kafka.Producer) *Settler {
	if custodian == nil {
		custodian = NopCustodian{}
	}
	return &Settler{
		fills:     fills,
		custodian: custodian,
		producer:  producer,
		interval:  time.Second,
	}
}

func (s *Settler) Start(ctx context.Context) {
	log.Println("[settler] started")

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.settleOnce(ctx)
			}
		}
	}()
}

func (s *Settler) settleOnce(ctx context.Context) {
	err := s.fills.ScanUnsettled(func(f engine.Fill) error {
		if err := s.custodian.SettleFill(ctx, f); err != nil {
			log.Printf("[settler] fill %d custody: %v", f.ID, err)
			return nil // retry next pass
		}
		if err := s.fills.MarkSettled(f.ID); err != nil {
			if errors.Is(err, fillstore.ErrAlreadySettled) {
				return nil
			}
			return err
		}
		s.confirm(ctx, f)
		return nil
	})
	if err != nil {
		log.Printf("[settler] scan: %v", err)
	}
}

// confirm is best-effort: the flag in the fill store is the source of
// truth, the topic only notifies downstream consumers.
func (s *Settler) confirm(ctx context.Context, f engine.Fill) {
	if s.producer == nil {
		return
	}
	payload, err := json.Marshal(confirmation{
		V:         1,
		FillID:    f.ID,
		Market:    f.Market,
		Price:     f.Price,
		Size:      f.Size,
		BidTrader: f.BidTrader,
		AskTrader: f.AskTrader,
		SettledAt: time.Now().UnixNano(),
	})
	if err != nil {
		log.Printf("[settler] encode fill %d: %v", f.ID, err)
		return
	}
	if err := s.producer.SendFillSettled(ctx, f.ID, payload); err != nil {
		log.Printf("[settler] confirm fill %d: %v", f.ID, err)
	}
}
