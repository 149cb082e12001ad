package ledger

import (
	"sort"

	"github.com/nepfolio/nepfolio/internal/models"
)

// Retention bounds for one user's transaction history.
const (
	// MaxKeptTotal is the global cap on retained transactions per user.
	MaxKeptTotal = 20

	// MaxKeptPerSymbol caps retained transactions per symbol.
	MaxKeptPerSymbol = 2
)

// Prune decides which transactions to delete from one user's full history.
//
// The history is walked newest-to-oldest; a transaction is kept only while
// fewer than MaxKeptTotal have been kept overall and fewer than
// MaxKeptPerSymbol have been kept for its symbol. Everything else is returned
// as IDs to delete. Equal timestamps are ordered by Seq descending, so the
// later insertion always wins the tie.
func Prune(history []models.Transaction) []string {
	txs := make([]models.Transaction, len(history))
	copy(txs, history)
	sort.Slice(txs, func(i, j int) bool {
		if txs[i].Timestamp != txs[j].Timestamp {
			return txs[i].Timestamp > txs[j].Timestamp
		}
		return txs[i].Seq > txs[j].Seq
	})

	var deletes []string
	kept := 0
	keptPerSymbol := make(map[string]int)
	for _, tx := range txs {
		if kept < MaxKeptTotal && keptPerSymbol[tx.Symbol] < MaxKeptPerSymbol {
			kept++
			keptPerSymbol[tx.Symbol]++
			continue
		}
		deletes = append(deletes, tx.ID)
	}
	return deletes
}
