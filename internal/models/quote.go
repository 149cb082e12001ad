// Package models defines the records the tracker persists: market quotes,
// user holdings and the transaction log.
package models

import (
	"encoding/json"
	"time"
)

// Quote is the latest known state of one traded instrument.
//
// The scraper only ever produces the named fields below. Anything else that
// ends up on a market record (a manually curated sector tag, an ISIN added by
// an operator) lives in Static and must survive every merge untouched.
type Quote struct {
	// Symbol is the canonical uppercase ticker. Immutable once created.
	Symbol string `json:"symbol"`

	// Name is the best-known full company name.
	Name string `json:"name"`

	// LTP is the last traded price.
	LTP float64 `json:"ltp"`

	// PercentChange is the day change in percent units (e.g. 1.25 for +1.25%).
	PercentChange float64 `json:"percentChange"`

	// PreviousClose is the previous session's closing price.
	PreviousClose float64 `json:"previousClose"`

	// PointChange is LTP - PreviousClose, rounded to 2 decimals.
	PointChange float64 `json:"pointChange"`

	// LastUpdated is stamped on every merge or trade that touches the record.
	LastUpdated time.Time `json:"lastUpdated"`

	// Static holds fields not produced by scraping. Serialized flat, next to
	// the named fields, so the persisted shape stays a single JSON object.
	Static map[string]any `json:"-"`
}

// quoteKnownKeys are the JSON keys owned by the named Quote fields.
var quoteKnownKeys = map[string]bool{
	"symbol":        true,
	"name":          true,
	"ltp":           true,
	"percentChange": true,
	"previousClose": true,
	"pointChange":   true,
	"lastUpdated":   true,
}

type quoteAlias Quote

// MarshalJSON flattens Static into the top-level object.
func (q Quote) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(quoteAlias(q))
	if err != nil {
		return nil, err
	}
	if len(q.Static) == 0 {
		return base, nil
	}

	var flat map[string]any
	if err := json.Unmarshal(base, &flat); err != nil {
		return nil, err
	}
	for k, v := range q.Static {
		if !quoteKnownKeys[k] {
			flat[k] = v
		}
	}
	return json.Marshal(flat)
}

// UnmarshalJSON routes unknown keys into Static.
func (q *Quote) UnmarshalJSON(data []byte) error {
	var alias quoteAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	*q = Quote(alias)

	var flat map[string]json.RawMessage
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	for k, raw := range flat {
		if quoteKnownKeys[k] {
			continue
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		if q.Static == nil {
			q.Static = make(map[string]any)
		}
		q.Static[k] = v
	}
	return nil
}
