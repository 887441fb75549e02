package ledger

import (
	"errors"
	"testing"
)

const feeRecipient = uint64(0)

func TestLedger_DepositWithdraw(t *testing.T) {
	l := New(feeRecipient)
	l.Deposit(1, Quote, 1000)

	if err := l.Withdraw(1, Quote, 400); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if got := l.Account(1).QuoteAvailable; got != 600 {
		t.Fatalf("expected 600 available, got %d", got)
	}
	if err := l.Withdraw(1, Quote, 601); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if err := l.Withdraw(1, Base, 1); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance on empty base, got %v", err)
	}
}

func TestLedger_LockUnlock(t *testing.T) {
	l := New(feeRecipient)
	l.Deposit(1, Base, 10)

	if err := l.Lock(1, Base, 11); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected lock to fail, got %v", err)
	}
	if err := l.Lock(1, Base, 10); err != nil {
		t.Fatalf("lock: %v", err)
	}

	acc := l.Account(1)
	if acc.BaseAvailable != 0 || acc.BaseLocked != 10 {
		t.Fatalf("after lock: %+v", acc)
	}

	// locked funds cannot be withdrawn
	if err := l.Withdraw(1, Base, 1); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("withdraw of locked funds must fail, got %v", err)
	}

	l.Unlock(1, Base, 10)
	if acc.BaseAvailable != 10 || acc.BaseLocked != 0 {
		t.Fatalf("after unlock: %+v", acc)
	}
}

func TestLedger_UnlockTooMuchPanics(t *testing.T) {
	l := New(feeRecipient)
	l.Deposit(1, Quote, 5)
	_ = l.Lock(1, Quote, 5)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on over-unlock")
		}
	}()
	l.Unlock(1, Quote, 6)
}

// Both legs of a fill settle and the books balance: every unit that
// leaves one account lands in another, fees included.
func TestLedger_SettleFillConservation(t *testing.T) {
	l := New(feeRecipient)
	l.Deposit(1, Quote, 1000) // buyer
	l.Deposit(2, Base, 10)    // seller

	// price 50, size 10, buyer pays 500 quote for 10 base
	if err := l.Lock(1, Quote, 500); err != nil {
		t.Fatalf("lock quote: %v", err)
	}
	if err := l.Lock(2, Base, 10); err != nil {
		t.Fatalf("lock base: %v", err)
	}

	l.SettleFill(1, Quote, 500, 10, 1) // buyer receives base, 1 base fee
	l.SettleFill(2, Base, 10, 500, 5)  // seller receives quote, 5 quote fee

	buyer, seller, fees := l.Account(1), l.Account(2), l.FeeRecipient()

	if buyer.BaseAvailable != 9 || buyer.QuoteLocked != 0 || buyer.QuoteAvailable != 500 {
		t.Fatalf("buyer: %+v", buyer)
	}
	if seller.QuoteAvailable != 495 || seller.BaseLocked != 0 || seller.BaseAvailable != 0 {
		t.Fatalf("seller: %+v", seller)
	}
	if fees.BaseAvailable != 1 || fees.QuoteAvailable != 5 {
		t.Fatalf("fee account: %+v", fees)
	}

	totalBase := buyer.Total(Base) + seller.Total(Base) + fees.Total(Base)
	totalQuote := buyer.Total(Quote) + seller.Total(Quote) + fees.Total(Quote)
	if totalBase != 10 || totalQuote != 1000 {
		t.Fatalf("conservation broken: base=%d quote=%d", totalBase, totalQuote)
	}
}

func TestLedger_SnapshotLoad(t *testing.T) {
	l := New(feeRecipient)
	l.Deposit(5, Base, 7)
	l.Deposit(3, Quote, 11)
	_ = l.Lock(3, Quote, 4)

	snap := l.Snapshot()

	l2 := New(feeRecipient)
	l2.Load(snap)
	if acc := l2.Account(3); acc.QuoteAvailable != 7 || acc.QuoteLocked != 4 {
		t.Fatalf("loaded account diverged: %+v", acc)
	}
	if acc := l2.Account(5); acc.BaseAvailable != 7 {
		t.Fatalf("loaded account diverged: %+v", acc)
	}
}
