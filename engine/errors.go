package engine

import "errors"

// User input and resource errors surfaced to callers. Invariant
// violations are not listed here — those panic, because a correct
// engine never produces them.
var (
	ErrMarketPaused          = errors.New("engine: market is paused")
	ErrNotOwner              = errors.New("engine: caller does not own order")
	ErrPostOnlyWouldCross    = errors.New("engine: post-only order would cross")
	ErrInsufficientLiquidity = errors.New("engine: insufficient liquidity for fill-or-kill")
	ErrSelfTradeBlocked      = errors.New("engine: order would trade against own resting order")
	ErrInvalidSide           = errors.New("engine: invalid order side")
	ErrInvalidTimeInForce    = errors.New("engine: invalid time-in-force")
	ErrInvalidAmount         = errors.New("engine: amount must be positive")
	ErrAmountOverflow        = errors.New("engine: order notional overflows")
)
