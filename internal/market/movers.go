package market

import (
	"sort"

	"github.com/nepfolio/nepfolio/internal/models"
)

// Movers is the day's top gainers and losers by percent change.
type Movers struct {
	Gainers []models.Quote `json:"gainers"`
	Losers  []models.Quote `json:"losers"`
}

// TopMovers ranks the table by percent change and returns up to n gainers
// (positive change, descending) and n losers (negative change, ascending).
// Symbols with zero change appear in neither list.
func TopMovers(table map[string]models.Quote, n int) Movers {
	quotes := make([]models.Quote, 0, len(table))
	for _, q := range table {
		quotes = append(quotes, q)
	}
	sort.Slice(quotes, func(i, j int) bool {
		if quotes[i].PercentChange != quotes[j].PercentChange {
			return quotes[i].PercentChange > quotes[j].PercentChange
		}
		return quotes[i].Symbol < quotes[j].Symbol
	})

	var m Movers
	for _, q := range quotes {
		if q.PercentChange > 0 && len(m.Gainers) < n {
			m.Gainers = append(m.Gainers, q)
		}
	}
	for i := len(quotes) - 1; i >= 0; i-- {
		if quotes[i].PercentChange < 0 && len(m.Losers) < n {
			m.Losers = append(m.Losers, quotes[i])
		}
	}
	return m
}
