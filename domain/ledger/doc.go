// Package ledger holds per-trader available/locked balances for one
// market. It is the safety boundary of the engine: no sequence of
// place, cancel or match calls can make a trader's claimable balance
// exceed what they deposited.
package ledger
