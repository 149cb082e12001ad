package market

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nepfolio/nepfolio/internal/kvstore"
	"github.com/nepfolio/nepfolio/internal/models"
)

var mergeTime = time.Date(2025, 6, 15, 11, 0, 0, 0, time.UTC)

func testEngine(t *testing.T) (*Engine, *kvstore.MemoryStore) {
	t.Helper()
	store := kvstore.NewMemoryStore()
	t.Cleanup(func() { store.Close() })
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	e := NewEngine(store, logger)
	e.now = func() time.Time { return mergeTime }
	return e, store
}

func TestMergeEmptyBatchWritesNothing(t *testing.T) {
	e, store := testEngine(t)
	n, err := e.Merge(context.Background(), nil)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if n != 0 {
		t.Errorf("wrote %d symbols, want 0", n)
	}
	snap, err := store.List(context.Background(), kvstore.MarketPrefix)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(snap) != 0 {
		t.Errorf("table has %d entries, want 0", len(snap))
	}
}

func TestMergeInsertsAndUpdates(t *testing.T) {
	e, store := testEngine(t)
	ctx := context.Background()

	if _, err := e.Merge(ctx, []models.Quote{
		{Symbol: "NABIL", Name: "Nabil Bank", LTP: 500, PercentChange: 1.5},
		{Symbol: "HIDCL", Name: "Hydro", LTP: 220},
	}); err != nil {
		t.Fatalf("first Merge: %v", err)
	}

	n, err := e.Merge(ctx, []models.Quote{
		{Symbol: "NABIL", Name: "Nabil Bank", LTP: 510, PercentChange: 2.0},
	})
	if err != nil {
		t.Fatalf("second Merge: %v", err)
	}
	if n != 1 {
		t.Errorf("wrote %d symbols, want 1", n)
	}

	snap, err := store.List(ctx, kvstore.MarketPrefix)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	table := DecodeTable(snap)
	if len(table) != 2 {
		t.Fatalf("table has %d symbols, want 2", len(table))
	}
	if table["NABIL"].LTP != 510 {
		t.Errorf("NABIL LTP = %v, want 510", table["NABIL"].LTP)
	}
	// The symbol absent from the batch is untouched.
	if table["HIDCL"].LTP != 220 {
		t.Errorf("HIDCL LTP = %v, want 220", table["HIDCL"].LTP)
	}
}

func TestMergeQuotePreservesStaticFields(t *testing.T) {
	existing := &models.Quote{
		Symbol: "NABIL",
		LTP:    500,
		Static: map[string]any{"sector": "bank", "listedShares": 1000.0},
	}
	incoming := models.Quote{
		Symbol:        "NABIL",
		Name:          "Nabil Bank",
		LTP:           510,
		PercentChange: 2.0,
		Static:        map[string]any{"sector": "commercial bank"},
	}

	merged := MergeQuote(existing, incoming, mergeTime)
	if merged.LTP != 510 {
		t.Errorf("LTP = %v, want the incoming value", merged.LTP)
	}
	// Incoming static entries win on collision; the rest survive.
	if merged.Static["sector"] != "commercial bank" {
		t.Errorf("sector = %v, want the incoming value", merged.Static["sector"])
	}
	if merged.Static["listedShares"] != 1000.0 {
		t.Errorf("listedShares = %v, want the existing value", merged.Static["listedShares"])
	}
	if !merged.LastUpdated.Equal(mergeTime) {
		t.Errorf("LastUpdated = %v, want %v", merged.LastUpdated, mergeTime)
	}
}

func TestMergeQuoteFirstSighting(t *testing.T) {
	incoming := models.Quote{Symbol: "NEW", Name: "Newco", LTP: 100}
	merged := MergeQuote(nil, incoming, mergeTime)
	if merged.Symbol != "NEW" || merged.LTP != 100 {
		t.Errorf("unexpected merged quote %+v", merged)
	}
	if !merged.LastUpdated.Equal(mergeTime) {
		t.Errorf("LastUpdated not stamped")
	}
}

func TestMergeRoundTripKeepsStaticThroughStore(t *testing.T) {
	e, store := testEngine(t)
	ctx := context.Background()

	// Seed a record carrying static fields, as a detail scrape would.
	if _, err := e.Merge(ctx, []models.Quote{{
		Symbol: "NABIL",
		Name:   "Nabil Bank",
		LTP:    500,
		Static: map[string]any{"sector": "bank"},
	}}); err != nil {
		t.Fatalf("seed Merge: %v", err)
	}

	// A later price-only batch must not erase them.
	if _, err := e.Merge(ctx, []models.Quote{
		{Symbol: "NABIL", Name: "Nabil Bank", LTP: 505},
	}); err != nil {
		t.Fatalf("update Merge: %v", err)
	}

	snap, err := store.List(ctx, kvstore.MarketPrefix)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	table := DecodeTable(snap)
	if table["NABIL"].Static["sector"] != "bank" {
		t.Errorf("static field lost across merges: %+v", table["NABIL"].Static)
	}
	if table["NABIL"].LTP != 505 {
		t.Errorf("LTP = %v, want 505", table["NABIL"].LTP)
	}
}

func TestTradeQuoteWithoutMarketRecord(t *testing.T) {
	q := TradeQuote(nil, "NABIL", "Nabil Bank", 520, mergeTime)
	if q.LTP != 520 || q.Symbol != "NABIL" || q.Name != "Nabil Bank" {
		t.Errorf("unexpected quote %+v", q)
	}
	if q.PercentChange != 0 || q.PreviousClose != 0 {
		t.Errorf("day-change fields should be zero on first sighting: %+v", q)
	}
}

func TestTopMovers(t *testing.T) {
	table := map[string]models.Quote{
		"AAA": {Symbol: "AAA", PercentChange: 5.0},
		"BBB": {Symbol: "BBB", PercentChange: 3.2},
		"CCC": {Symbol: "CCC", PercentChange: 0},
		"DDD": {Symbol: "DDD", PercentChange: -1.1},
		"EEE": {Symbol: "EEE", PercentChange: -6.4},
		"FFF": {Symbol: "FFF", PercentChange: 1.0},
	}

	m := TopMovers(table, 2)
	if len(m.Gainers) != 2 || m.Gainers[0].Symbol != "AAA" || m.Gainers[1].Symbol != "BBB" {
		t.Errorf("gainers = %+v", m.Gainers)
	}
	if len(m.Losers) != 2 || m.Losers[0].Symbol != "EEE" || m.Losers[1].Symbol != "DDD" {
		t.Errorf("losers = %+v", m.Losers)
	}
}

func TestTopMoversZeroChangeExcluded(t *testing.T) {
	table := map[string]models.Quote{
		"CCC": {Symbol: "CCC", PercentChange: 0},
	}
	m := TopMovers(table, 5)
	if len(m.Gainers) != 0 || len(m.Losers) != 0 {
		t.Errorf("zero-change symbol should appear in neither list: %+v", m)
	}
}
