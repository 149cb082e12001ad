package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestQuoteJSONFlattensStatic(t *testing.T) {
	q := Quote{
		Symbol:        "NABIL",
		Name:          "Nabil Bank",
		LTP:           500,
		PercentChange: 1.5,
		PreviousClose: 492.5,
		PointChange:   7.5,
		LastUpdated:   time.Date(2025, 6, 15, 11, 0, 0, 0, time.UTC),
		Static: map[string]any{
			"sector": "bank",
			"symbol": "HACK", // colliding key must not shadow the named field
		},
	}

	data, err := json.Marshal(q)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		t.Fatalf("Unmarshal flat: %v", err)
	}
	if flat["symbol"] != "NABIL" {
		t.Errorf("symbol = %v, the named field must win", flat["symbol"])
	}
	if flat["sector"] != "bank" {
		t.Errorf("sector = %v, static field should sit at top level", flat["sector"])
	}
	if flat["ltp"] != 500.0 {
		t.Errorf("ltp = %v", flat["ltp"])
	}
}

func TestQuoteJSONRoundTrip(t *testing.T) {
	in := Quote{
		Symbol:      "NABIL",
		Name:        "Nabil Bank",
		LTP:         500,
		LastUpdated: time.Date(2025, 6, 15, 11, 0, 0, 0, time.UTC),
		Static:      map[string]any{"sector": "bank", "listedShares": 1000.0},
	}

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var out Quote
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out.Symbol != "NABIL" || out.LTP != 500 {
		t.Errorf("named fields lost: %+v", out)
	}
	if out.Static["sector"] != "bank" {
		t.Errorf("static sector lost: %+v", out.Static)
	}
	if out.Static["listedShares"] != 1000.0 {
		t.Errorf("static listedShares lost: %+v", out.Static)
	}
	if !out.LastUpdated.Equal(in.LastUpdated) {
		t.Errorf("lastUpdated = %v, want %v", out.LastUpdated, in.LastUpdated)
	}
}

func TestQuoteUnmarshalRoutesUnknownKeys(t *testing.T) {
	data := []byte(`{"symbol":"NABIL","ltp":500,"sector":"bank","isin":"NPE001"}`)
	var q Quote
	if err := json.Unmarshal(data, &q); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if q.Symbol != "NABIL" || q.LTP != 500 {
		t.Errorf("named fields = %+v", q)
	}
	if q.Static["sector"] != "bank" || q.Static["isin"] != "NPE001" {
		t.Errorf("static = %+v", q.Static)
	}
}

func TestQuoteWithoutStaticStaysFlat(t *testing.T) {
	q := Quote{Symbol: "NABIL", LTP: 500}
	data, err := json.Marshal(q)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var out Quote
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out.Static != nil {
		t.Errorf("Static = %+v, want nil", out.Static)
	}
}

func TestTransactionTypeValid(t *testing.T) {
	if !TransactionBuy.Valid() || !TransactionSell.Valid() {
		t.Error("BUY and SELL must be valid")
	}
	if TransactionType("").Valid() || TransactionType("HOLD").Valid() {
		t.Error("unknown types must be invalid")
	}
}
