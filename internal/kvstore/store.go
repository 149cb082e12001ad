// Package kvstore is the persistence boundary of the tracker: a path-keyed
// store offering point reads, prefix reads, an atomic multi-key write and
// change subscriptions with immediate replay.
//
// Every multi-field mutation the ledger performs is expressed as exactly one
// Update call; that single discipline is what keeps the market table and the
// per-user ledger consistent without explicit locks around readers.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when no value exists at the path.
var ErrNotFound = errors.New("kvstore: key not found")

// ErrClosed is returned by Subscribe once the store has been closed.
var ErrClosed = errors.New("kvstore: store closed")

// Snapshot is the full settled value under a subscribed prefix: relative
// path -> raw JSON leaf.
type Snapshot map[string]json.RawMessage

// Store is the persistence interface the engines write through.
//
// Update applies every entry of writes as one indivisible operation: a nil
// value deletes the key, anything else is JSON-marshaled and stored. Either
// all keys take their new value or none do; readers and subscribers never
// observe a partial batch.
//
// Subscribe invokes fn with the current Snapshot under prefix immediately,
// then again after every committed Update touching the prefix. Snapshots are
// always post-commit states. The returned cancel func stops delivery without
// affecting other subscribers.
type Store interface {
	Get(ctx context.Context, path string) (json.RawMessage, error)
	List(ctx context.Context, prefix string) (Snapshot, error)
	Update(ctx context.Context, writes map[string]any) error
	Subscribe(prefix string, fn func(Snapshot)) (cancel func(), err error)
	Close() error
}

// Keyspace layout used by the core.
const MarketPrefix = "market"

// MarketPath is the key of one symbol's Quote.
func MarketPath(symbol string) string {
	return MarketPrefix + "/" + symbol
}

// HoldingsPrefix is the collection of one user's holdings.
func HoldingsPrefix(userID string) string {
	return "users/" + userID + "/holdings"
}

// HoldingPath is the key of one user's position in one symbol.
func HoldingPath(userID, symbol string) string {
	return HoldingsPrefix(userID) + "/" + symbol
}

// TransactionsPrefix is the collection of one user's transaction log.
func TransactionsPrefix(userID string) string {
	return "users/" + userID + "/transactions"
}

// TransactionPath is the key of one transaction record.
func TransactionPath(userID, txID string) string {
	return TransactionsPrefix(userID) + "/" + txID
}

// BOIDsPrefix is the collection of one user's registered BOIDs.
func BOIDsPrefix(userID string) string {
	return "users/" + userID + "/boids"
}

// BOIDPath is the key of one registered BOID record.
func BOIDPath(userID, id string) string {
	return BOIDsPrefix(userID) + "/" + id
}

// marshalWrites converts an Update batch to raw JSON before anything is
// touched, so an unmarshalable value fails the whole batch up front.
// nil values stay nil and mean delete.
func marshalWrites(writes map[string]any) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(writes))
	for path, v := range writes {
		if path == "" {
			return nil, fmt.Errorf("kvstore: empty path in write batch")
		}
		if v == nil {
			out[path] = nil
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("kvstore: marshal %q: %w", path, err)
		}
		out[path] = raw
	}
	return out, nil
}
