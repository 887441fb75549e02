// Package fillstore persists fill records in a pebble keyspace. A
// fill is written before the matching call returns and then advances
// through two independent flags: Published (the broadcaster shipped
// its event) and Settled (the settlement job moved custody). Each flag
// flips exactly once; a settled fill is terminal.
package fillstore

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"

	"njord/domain/book"
	"njord/engine"
)

var (
	ErrNotFound       = errors.New("fillstore: fill not found")
	ErrAlreadySettled = errors.New("fillstore: fill already settled")
)

const keyPrefix = "fill/"

// Store wraps a pebble database holding fill records. Writes are
// read-modify-write on whole records, and the broadcaster and settler
// flip their flags from separate goroutines, so mu serializes every
// mutation.
type Store struct {
	mu sync.Mutex
	db *pebble.DB
}

// Open opens (or creates) the store under dir.
func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{
		DisableWAL: false,
	})
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Put inserts a fresh fill, unpublished and unsettled. WAL replay may
// re-offer a fill that is already stored; the existing record and its
// flags win.
func (s *Store) Put(f engine.Fill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _, err := s.Get(f.ID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}
	return s.db.Set(keyFor(f.ID), encode(f, false), pebble.Sync)
}

// Get returns one fill and whether its event was published.
func (s *Store) Get(id uint64) (engine.Fill, bool, error) {
	val, closer, err := s.db.Get(keyFor(id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return engine.Fill{}, false, ErrNotFound
		}
		return engine.Fill{}, false, err
	}
	defer closer.Close()
	return decode(val)
}

// MarkPublished records that the fill's event reached the broker.
// Idempotent: republishing an already-published fill is harmless.
func (s *Store) MarkPublished(id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, _, err := s.Get(id)
	if err != nil {
		return err
	}
	return s.db.Set(keyFor(id), encode(f, true), pebble.Sync)
}

// MarkSettled flips the terminal flag. A fill settles exactly once.
func (s *Store) MarkSettled(id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, published, err := s.Get(id)
	if err != nil {
		return err
	}
	if f.Settled {
		return ErrAlreadySettled
	}
	f.Settled = true
	return s.db.Set(keyFor(id), encode(f, published), pebble.Sync)
}

// ScanUnpublished visits fills whose event has not reached the broker.
func (s *Store) ScanUnpublished(fn func(engine.Fill) error) error {
	return s.scan(func(f engine.Fill, published bool) error {
		if published {
			return nil
		}
		return fn(f)
	})
}

// ScanUnsettled visits fills awaiting the settlement collaborator.
func (s *Store) ScanUnsettled(fn func(engine.Fill) error) error {
	return s.scan(func(f engine.Fill, published bool) error {
		if f.Settled {
			return nil
		}
		return fn(f)
	})
}

func (s *Store) scan(fn func(engine.Fill, bool) error) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte(keyPrefix + "~"),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		f, published, err := decode(iter.Value())
		if err != nil {
			return err
		}
		if err := fn(f, published); err != nil {
			return err
		}
	}
	return iter.Error()
}

// Delete removes a terminal record after retention expires.
func (s *Store) Delete(id uint64) error {
	return s.db.Delete(keyFor(id), pebble.Sync)
}

func keyFor(id uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", keyPrefix, id))
}

const (
	flagSettled   = 1 << 0
	flagPublished = 1 << 1
)

// binary layout:
// [flags:1][id:8][bidOrder:8][askOrder:8][bidTrader:8][askTrader:8]
// [taker:1][price:8][size:8][quote:8][makerFee:8][takerFee:8][time:8]
// [marketLen:2][market]
func encode(f engine.Fill, published bool) []byte {
	buf := make([]byte, 0, 90+len(f.Market))
	var flags byte
	if f.Settled {
		flags |= flagSettled
	}
	if published {
		flags |= flagPublished
	}
	buf = append(buf, flags)
	buf = appendU64(buf, f.ID)
	buf = appendU64(buf, f.BidOrderID)
	buf = appendU64(buf, f.AskOrderID)
	buf = appendU64(buf, f.BidTrader)
	buf = appendU64(buf, f.AskTrader)
	buf = append(buf, byte(f.Taker))
	buf = appendU64(buf, uint64(f.Price))
	buf = appendU64(buf, uint64(f.Size))
	buf = appendU64(buf, uint64(f.QuoteAmount))
	buf = appendU64(buf, uint64(f.MakerFee))
	buf = appendU64(buf, uint64(f.TakerFee))
	buf = appendU64(buf, uint64(f.Time))
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(f.Market)))
	buf = append(buf, f.Market...)
	return buf
}

func decode(b []byte) (engine.Fill, bool, error) {
	if len(b) < 90 {
		return engine.Fill{}, false, errors.New("fillstore: short record")
	}
	r := bytes.NewReader(b)
	flags, _ := r.ReadByte()

	var f engine.Fill
	f.Settled = flags&flagSettled != 0
	published := flags&flagPublished != 0

	f.ID = readU64(r)
	f.BidOrderID = readU64(r)
	f.AskOrderID = readU64(r)
	f.BidTrader = readU64(r)
	f.AskTrader = readU64(r)
	taker, _ := r.ReadByte()
	f.Taker = book.Side(taker)
	f.Price = int64(readU64(r))
	f.Size = int64(readU64(r))
	f.QuoteAmount = int64(readU64(r))
	f.MakerFee = int64(readU64(r))
	f.TakerFee = int64(readU64(r))
	f.Time = int64(readU64(r))

	var mlen uint16
	if err := binary.Read(r, binary.BigEndian, &mlen); err != nil {
		return engine.Fill{}, false, err
	}
	market := make([]byte, mlen)
	if _, err := r.Read(market); err != nil && mlen > 0 {
		return engine.Fill{}, false, err
	}
	f.Market = string(market)
	return f, published, nil
}

func appendU64(b []byte, v uint64) []byte {
	return binary.BigEndian.AppendUint64(b, v)
}

func readU64(r *bytes.Reader) uint64 {
	var buf [8]byte
	_, _ = r.Read(buf[:])
	return binary.BigEndian.Uint64(buf[:])
}
