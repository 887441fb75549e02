package ledger

import (
	"errors"
	"sort"
)

// ErrInsufficientBalance is returned when a lock or withdrawal exceeds
// the trader's available balance.
var ErrInsufficientBalance = errors.New("ledger: insufficient balance")

// Asset selects which leg of an account an operation touches.
type Asset uint8

const (
	Base Asset = iota
	Quote
)

func (a Asset) String() string {
	if a == Quote {
		return "quote"
	}
	return "base"
}

// Account is one trader's custodied balances in one market. The
// standing invariant is that Available+Locked equals exactly what the
// trader deposited minus withdrawals minus net fees paid; Locked never
// exceeds what is backing open orders.
type Account struct {
	Trader         uint64
	BaseAvailable  int64
	BaseLocked     int64
	QuoteAvailable int64
	QuoteLocked    int64
}

// Total returns available+locked for one asset.
func (a *Account) Total(asset Asset) int64 {
	if asset == Base {
		return a.BaseAvailable + a.BaseLocked
	}
	return a.QuoteAvailable + a.QuoteLocked
}

// Ledger tracks per-trader balances for one market plus the protocol
// fee recipient's account. All mutations happen under the market's
// writer lock, so each operation is atomic with respect to observers.
type Ledger struct {
	accounts     map[uint64]*Account
	feeRecipient uint64
}

// New creates an empty ledger routing fees to the given recipient.
func New(feeRecipient uint64) *Ledger {
	l := &Ledger{
		accounts:     make(map[uint64]*Account),
		feeRecipient: feeRecipient,
	}
	l.account(feeRecipient)
	return l
}

// Account returns the trader's account, creating it on first use.
func (l *Ledger) Account(trader uint64) *Account { return l.account(trader) }

// FeeRecipient returns the protocol fee account.
func (l *Ledger) FeeRecipient() *Account { return l.account(l.feeRecipient) }

func (l *Ledger) account(trader uint64) *Account {
	acc, ok := l.accounts[trader]
	if !ok {
		acc = &Account{Trader: trader}
		l.accounts[trader] = acc
	}
	return acc
}

// Snapshot returns copies of every account, ordered by trader id.
func (l *Ledger) Snapshot() []Account {
	out := make([]Account, 0, len(l.accounts))
	for _, acc := range l.accounts {
		out = append(out, *acc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Trader < out[j].Trader })
	return out
}

// Load replaces all accounts with the given snapshot. The fee
// recipient id is part of the ledger's identity and survives a load.
func (l *Ledger) Load(accounts []Account) {
	l.accounts = make(map[uint64]*Account, len(accounts))
	for _, a := range accounts {
		c := a
		l.accounts[a.Trader] = &c
	}
	l.account(l.feeRecipient)
}

// Deposit credits available funds. The custody transfer itself happens
// outside the engine; the ledger only mirrors it.
func (l *Ledger) Deposit(trader uint64, asset Asset, amount int64) {
	acc := l.account(trader)
	if asset == Base {
		acc.BaseAvailable += amount
	} else {
		acc.QuoteAvailable += amount
	}
}

// Withdraw debits available funds, failing if the trader does not have
// enough unlocked balance.
func (l *Ledger) Withdraw(trader uint64, asset Asset, amount int64) error {
	acc := l.account(trader)
	if asset == Base {
		if acc.BaseAvailable < amount {
			return ErrInsufficientBalance
		}
		acc.BaseAvailable -= amount
	} else {
		if acc.QuoteAvailable < amount {
			return ErrInsufficientBalance
		}
		acc.QuoteAvailable -= amount
	}
	return nil
}

// Lock moves amount from available to locked, backing a new order.
func (l *Ledger) Lock(trader uint64, asset Asset, amount int64) error {
	acc := l.account(trader)
	if asset == Base {
		if acc.BaseAvailable < amount {
			return ErrInsufficientBalance
		}
		acc.BaseAvailable -= amount
		acc.BaseLocked += amount
	} else {
		if acc.QuoteAvailable < amount {
			return ErrInsufficientBalance
		}
		acc.QuoteAvailable -= amount
		acc.QuoteLocked += amount
	}
	return nil
}

// Unlock moves amount from locked back to available. Unlocking more
// than is locked means the engine reserved or released the wrong
// amount somewhere — that is a bug, not a user error.
func (l *Ledger) Unlock(trader uint64, asset Asset, amount int64) {
	acc := l.account(trader)
	if asset == Base {
		if acc.BaseLocked < amount {
			panic("ledger: unlock exceeds locked base")
		}
		acc.BaseLocked -= amount
		acc.BaseAvailable += amount
	} else {
		if acc.QuoteLocked < amount {
			panic("ledger: unlock exceeds locked quote")
		}
		acc.QuoteLocked -= amount
		acc.QuoteAvailable += amount
	}
}

// SettleFill applies one leg of a match: the filled side is debited
// from locked funds, the received side credited net of fee, and the
// fee routed to the protocol account in the received asset.
func (l *Ledger) SettleFill(trader uint64, pay Asset, payAmount, recvAmount, fee int64) {
	acc := l.account(trader)
	rec := l.FeeRecipient()
	if pay == Quote {
		if acc.QuoteLocked < payAmount {
			panic("ledger: settle exceeds locked quote")
		}
		acc.QuoteLocked -= payAmount
		acc.BaseAvailable += recvAmount - fee
		rec.BaseAvailable += fee
	} else {
		if acc.BaseLocked < payAmount {
			panic("ledger: settle exceeds locked base")
		}
		acc.BaseLocked -= payAmount
		acc.QuoteAvailable += recvAmount - fee
		rec.QuoteAvailable += fee
	}
}
