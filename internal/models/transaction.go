package models

// TransactionType is the direction of an accounting event.
type TransactionType string

const (
	TransactionBuy  TransactionType = "BUY"
	TransactionSell TransactionType = "SELL"
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	return t == TransactionBuy || t == TransactionSell
}

// Transaction is an immutable log entry of one accounting event. Records are
// only ever created and deleted (by retention pruning), never mutated.
type Transaction struct {
	ID          string          `json:"id"`
	Symbol      string          `json:"symbol"`
	CompanyName string          `json:"companyName"`
	Type        TransactionType `json:"type"`
	Units       int64           `json:"units"`
	Price       float64         `json:"price"`

	// Timestamp is unix milliseconds, monotonically non-decreasing per user.
	// It is the primary sort key for retention.
	Timestamp int64 `json:"timestamp"`

	// Seq is a per-user insertion counter. It breaks retention ties between
	// transactions created in the same millisecond.
	Seq int64 `json:"seq"`
}
