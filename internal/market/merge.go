// Package market owns the process-wide quote table: merging scraped batches
// into it and deriving read-side views (single quotes, top movers).
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nepfolio/nepfolio/internal/kvstore"
	"github.com/nepfolio/nepfolio/internal/models"
)

// Engine merges normalized quote batches into the persisted market table.
// It is the sole scrape-side writer of the table; one Merge call is one
// atomic write.
type Engine struct {
	store  kvstore.Store
	logger *logrus.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewEngine creates a merge engine on top of the given store.
func NewEngine(store kvstore.Store, logger *logrus.Logger) *Engine {
	return &Engine{store: store, logger: logger, now: time.Now}
}

// Merge applies a batch of normalized quotes over the existing table and
// commits the whole write-set in a single atomic update. Fields absent from
// the batch (static fields, symbols not in the batch) are preserved; the
// table only grows or updates through this path, never shrinks.
//
// Returns the number of symbols written. An empty batch performs zero writes.
func (e *Engine) Merge(ctx context.Context, batch []models.Quote) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	existing, err := e.store.List(ctx, kvstore.MarketPrefix)
	if err != nil {
		return 0, fmt.Errorf("read market table: %w", err)
	}

	now := e.now()
	writes := make(map[string]any, len(batch))
	for _, q := range batch {
		writes[kvstore.MarketPath(q.Symbol)] = MergeQuote(decodeQuote(existing[q.Symbol]), q, now)
	}

	if err := e.store.Update(ctx, writes); err != nil {
		return 0, fmt.Errorf("commit market batch: %w", err)
	}

	e.logger.WithField("symbols", len(writes)).Info("Market table merged")
	return len(writes), nil
}

// MergeQuote lays the incoming scraped fields over the existing record.
// Scraped fields overwrite; static fields and the symbol survive verbatim;
// lastUpdated is stamped. existing may be nil on first sighting.
func MergeQuote(existing *models.Quote, incoming models.Quote, now time.Time) models.Quote {
	merged := incoming
	merged.LastUpdated = now
	if existing != nil {
		merged.Static = mergeStatic(existing.Static, incoming.Static)
	}
	return merged
}

// TradeQuote folds a user's own trade into the market record: the trade price
// becomes the last traded price and the display name is refreshed, while the
// scraped day-change fields and static fields are preserved. A trade is a
// market data point, but it says nothing about the day's change.
func TradeQuote(existing *models.Quote, symbol, name string, price float64, now time.Time) models.Quote {
	q := models.Quote{
		Symbol:      symbol,
		Name:        name,
		LTP:         price,
		LastUpdated: now,
	}
	if existing != nil {
		q.PercentChange = existing.PercentChange
		q.PreviousClose = existing.PreviousClose
		q.PointChange = existing.PointChange
		q.Static = mergeStatic(existing.Static, nil)
	}
	return q
}

// mergeStatic keeps every existing static field, letting incoming entries
// overwrite on key collision.
func mergeStatic(existing, incoming map[string]any) map[string]any {
	if len(existing) == 0 && len(incoming) == 0 {
		return nil
	}
	out := make(map[string]any, len(existing)+len(incoming))
	for k, v := range existing {
		out[k] = v
	}
	for k, v := range incoming {
		out[k] = v
	}
	return out
}

// decodeQuote parses a stored market leaf. Unreadable or missing records are
// treated as absent so a corrupt row cannot wedge the whole merge.
func decodeQuote(raw json.RawMessage) *models.Quote {
	if raw == nil {
		return nil
	}
	var q models.Quote
	if err := json.Unmarshal(raw, &q); err != nil {
		return nil
	}
	return &q
}

// DecodeTable parses a market snapshot into symbol-keyed quotes.
func DecodeTable(snap kvstore.Snapshot) map[string]models.Quote {
	table := make(map[string]models.Quote, len(snap))
	for symbol, raw := range snap {
		var q models.Quote
		if err := json.Unmarshal(raw, &q); err != nil {
			continue
		}
		table[symbol] = q
	}
	return table
}
