// Package book implements the in-memory order store for one market:
// a fixed-capacity slab of order records with O(1) allocate/free, and
// per-side red-black price indexes with FIFO levels realizing
// price-time priority. The package holds no balances and performs no
// matching; it is consumed by the engine under the market's writer
// lock.
package book
