// Package quote turns raw scraped market rows into canonical Quote records.
// Symbol casing, numeric parsing and derived fields are all resolved here so
// the rest of the system only ever sees normalized data.
package quote

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/nepfolio/nepfolio/internal/models"
)

// headerToken is the literal text of the symbol column header. The upstream
// table repeats it as a data row, so it must be skipped.
const headerToken = "SYMBOL"

// RawRow is one scraped table row, exactly as the upstream source renders it.
// All values are untrimmed display text.
type RawRow struct {
	SymbolText        string
	TitleText         string
	LastPriceText     string
	PercentChangeText string
	PrevCloseText     string
}

// NormalizeSymbol canonicalizes a scraped symbol cell: trimmed and uppercased.
// Example: "nabil " -> "NABIL".
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// CanonicalSymbol canonicalizes a user-supplied symbol: every non-alphanumeric
// rune is stripped, the rest uppercased. Idempotent.
// Example: "nabil-p " -> "NABILP".
func CanonicalSymbol(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - 'a' + 'A')
		case (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Normalize converts one raw row into a Quote. The second return value is
// false when the row must be skipped (empty symbol or the header row).
//
// Unparsable numeric cells default to 0: partial data is acceptable, losing
// the whole row is not.
func Normalize(row RawRow) (models.Quote, bool) {
	symbol := NormalizeSymbol(row.SymbolText)
	if symbol == "" || symbol == headerToken {
		return models.Quote{}, false
	}

	name := strings.TrimSpace(row.TitleText)
	if name == "" {
		name = symbol
	}

	ltp := parsePrice(row.LastPriceText)
	prevClose := parsePrice(row.PrevCloseText)

	return models.Quote{
		Symbol:        symbol,
		Name:          name,
		LTP:           ltp,
		PercentChange: parsePrice(row.PercentChangeText),
		PreviousClose: prevClose,
		PointChange:   Round2(ltp - prevClose),
	}, true
}

// NormalizeBatch normalizes every row, silently dropping the skippable ones.
func NormalizeBatch(rows []RawRow) []models.Quote {
	quotes := make([]models.Quote, 0, len(rows))
	for _, row := range rows {
		if q, ok := Normalize(row); ok {
			quotes = append(quotes, q)
		}
	}
	return quotes
}

// Round2 rounds a price value to 2 decimal places.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// parsePrice parses a numeric cell, stripping thousands separators and a
// trailing percent sign. Anything unparsable is 0.
func parsePrice(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	if s == "" {
		return 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}
