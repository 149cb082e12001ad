// Package ledger implements the portfolio accounting rules: applying a
// BUY/SELL to a holding with weighted-average-cost arithmetic, and the
// retention policy bounding each user's transaction history.
package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nepfolio/nepfolio/internal/market"
	"github.com/nepfolio/nepfolio/internal/models"
	"github.com/nepfolio/nepfolio/internal/quote"
)

// Request is one user-initiated transaction before accounting.
type Request struct {
	Symbol      string                 `json:"symbol"`
	CompanyName string                 `json:"companyName"`
	Type        models.TransactionType `json:"type"`
	Units       int64                  `json:"units"`
	Price       float64                `json:"price"`
}

// Result is the write-set produced by one successful application. All three
// deltas must be committed together.
type Result struct {
	// Quote is the market-table delta: the user's own trade is a market data
	// point when no fresher scrape exists.
	Quote models.Quote

	// Holding is the new position, or nil when the sell closed it.
	Holding *models.Holding

	// Transaction is the immutable log entry.
	Transaction models.Transaction
}

// Apply computes the holding, market and transaction-log deltas for one
// request against the caller's snapshot of state. It is pure: nothing is
// written here, and a returned error guarantees an empty write-set.
//
// holdings and marketTable are keyed by canonical symbol. txID becomes the
// transaction's ID; seq is the per-user insertion counter.
func Apply(req Request, holdings map[string]models.Holding, marketTable map[string]models.Quote,
	txID string, seq int64, now time.Time) (Result, error) {

	symbol := quote.CanonicalSymbol(req.Symbol)
	if symbol == "" {
		return Result{}, fmt.Errorf("%w: empty symbol", ErrInvalidInput)
	}
	if req.Units <= 0 {
		return Result{}, fmt.Errorf("%w: units must be a positive integer", ErrInvalidInput)
	}
	if req.Price < 0 {
		return Result{}, fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}
	if !req.Type.Valid() {
		return Result{}, fmt.Errorf("%w: unknown transaction type %q", ErrInvalidInput, req.Type)
	}

	current := holdings[symbol]
	marketQuote, quoted := marketTable[symbol]
	name := resolveName(req, marketQuote, current, symbol)

	var newUnits int64
	var newAverageCost float64
	switch req.Type {
	case models.TransactionBuy:
		newUnits = current.Units + req.Units
		newAverageCost = weightedAverageCost(current.Units, current.AverageCost, req.Units, req.Price)
	case models.TransactionSell:
		if req.Units > current.Units {
			return Result{}, fmt.Errorf("%w: sell %d exceeds held %d %s",
				ErrInsufficientUnits, req.Units, current.Units, symbol)
		}
		newUnits = current.Units - req.Units
		newAverageCost = current.AverageCost
	}

	var existingQuote *models.Quote
	if quoted {
		existingQuote = &marketQuote
	}

	res := Result{
		Quote: market.TradeQuote(existingQuote, symbol, name, req.Price, now),
		Transaction: models.Transaction{
			ID:          txID,
			Symbol:      symbol,
			CompanyName: name,
			Type:        req.Type,
			Units:       req.Units,
			Price:       req.Price,
			Timestamp:   now.UnixMilli(),
			Seq:         seq,
		},
	}
	if newUnits > 0 {
		res.Holding = &models.Holding{
			Symbol:      symbol,
			CompanyName: name,
			Units:       newUnits,
			AverageCost: newAverageCost,
			LastUpdated: now,
		}
	}
	return res, nil
}

// weightedAverageCost recomputes the average price paid per unit after a buy,
// rounded to 2 decimals. Defined for currentUnits == 0 (the result is the buy
// price).
func weightedAverageCost(currentUnits int64, currentAvg float64, buyUnits int64, buyPrice float64) float64 {
	held := decimal.NewFromInt(currentUnits).Mul(decimal.NewFromFloat(currentAvg))
	bought := decimal.NewFromInt(buyUnits).Mul(decimal.NewFromFloat(buyPrice))
	total := decimal.NewFromInt(currentUnits + buyUnits)
	return held.Add(bought).Div(total).Round(2).InexactFloat64()
}

// resolveName picks the display name from the first non-empty source:
// explicit request name, market table, existing holding, the symbol itself.
// Guarantees a name even on a symbol's very first transaction.
func resolveName(req Request, q models.Quote, h models.Holding, symbol string) string {
	if req.CompanyName != "" {
		return req.CompanyName
	}
	if q.Name != "" {
		return q.Name
	}
	if h.CompanyName != "" {
		return h.CompanyName
	}
	return symbol
}
