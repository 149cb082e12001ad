package models

import "time"

// Holding is one user's position in one symbol.
//
// A holding with zero units is never persisted: the record is deleted when a
// sell closes the position.
type Holding struct {
	Symbol      string `json:"symbol"`
	CompanyName string `json:"companyName"`

	// Units currently held. Always > 0 for a persisted record.
	Units int64 `json:"units"`

	// AverageCost is the weighted average price paid per currently-held unit,
	// rounded to 2 decimals. Buys move it, sells never do.
	AverageCost float64 `json:"averageCost"`

	LastUpdated time.Time `json:"lastUpdated"`
}
