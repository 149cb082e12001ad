// Package scraper fetches the exchange's live-trading table and drives the
// periodic market sync cycle.
package scraper

import (
	"context"
	"errors"

	"github.com/nepfolio/nepfolio/internal/quote"
)

// ErrUpstreamUnavailable marks a transient fetch or parse failure. The cycle
// that hits it performs zero writes; the previous market table stands until
// the next successful cycle.
var ErrUpstreamUnavailable = errors.New("market source unavailable")

// Source produces one batch of raw market rows per call.
type Source interface {
	Fetch(ctx context.Context) ([]quote.RawRow, error)
}
