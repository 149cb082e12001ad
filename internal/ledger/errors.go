package ledger

import "errors"

// Business-rule failures surfaced to the caller before any write happens.
var (
	// ErrInvalidInput rejects a malformed transaction: non-positive units,
	// negative price, or a symbol that canonicalizes to nothing.
	ErrInvalidInput = errors.New("invalid transaction input")

	// ErrInsufficientUnits rejects a sell larger than the current holding.
	ErrInsufficientUnits = errors.New("insufficient units")
)
