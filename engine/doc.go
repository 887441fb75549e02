// Package engine implements the matching core for one market: order
// placement with balance locking, the bounded price-time matching
// loop, self-trade prevention, fee attribution and fill emission.
//
// The engine is a single-writer system: one mutex serializes all
// mutations against a market, and every public operation either runs
// to completion or fails without partial mutation. Matching is
// explicitly bounded by an iteration budget and reports whether work
// remains, so callers drive it in resumable units.
package engine
