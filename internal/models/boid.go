package models

import "time"

// BOIDStatusUnchecked is the status of a freshly registered BOID before any
// allotment check has run against it.
const BOIDStatusUnchecked = "Not Checked"

// BOID is one registered beneficiary owner ID on a user's account. Status
// holds the checker's message verbatim after a successful allotment check.
type BOID struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Number string `json:"boid"`
	Status string `json:"status"`

	LastUpdated time.Time `json:"lastUpdated"`
}
