// Package portfolio wires the accounting and retention engines to the store:
// one entry point per user-initiated transaction, plus the read side of a
// user's ledger.
package portfolio

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/nepfolio/nepfolio/internal/kvstore"
	"github.com/nepfolio/nepfolio/internal/ledger"
	"github.com/nepfolio/nepfolio/internal/market"
	"github.com/nepfolio/nepfolio/internal/models"
)

// Archiver records committed transactions in long-term storage before
// retention pruning ever removes them. Implementations must tolerate being
// called concurrently.
type Archiver interface {
	ArchiveTransaction(ctx context.Context, userID string, tx models.Transaction) error
}

// Service applies transactions for users. Same-user requests are serialized
// by a per-user lock so two concurrent edits cannot both read the same
// holding snapshot and clobber each other; different users proceed in
// parallel.
type Service struct {
	store    kvstore.Store
	logger   *logrus.Logger
	archiver Archiver // optional

	now   func() time.Time
	newID func() string

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

// NewService creates a portfolio service. archiver may be nil.
func NewService(store kvstore.Store, logger *logrus.Logger, archiver Archiver) *Service {
	return &Service{
		store:     store,
		logger:    logger,
		archiver:  archiver,
		now:       time.Now,
		newID:     uuid.NewString,
		userLocks: make(map[string]*sync.Mutex),
	}
}

// ApplyTransaction runs the full accounting cycle for one request: read the
// user's snapshot, compute the deltas, commit them atomically, archive the
// transaction and prune the history. Archive and prune failures are
// non-fatal; the committed transaction stands and pruning retries on the
// next transaction.
func (s *Service) ApplyTransaction(ctx context.Context, userID string, req ledger.Request) (ledger.Result, error) {
	if userID == "" {
		return ledger.Result{}, fmt.Errorf("%w: empty user id", ledger.ErrInvalidInput)
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	holdings, err := s.Holdings(ctx, userID)
	if err != nil {
		return ledger.Result{}, fmt.Errorf("read holdings: %w", err)
	}
	marketSnap, err := s.store.List(ctx, kvstore.MarketPrefix)
	if err != nil {
		return ledger.Result{}, fmt.Errorf("read market table: %w", err)
	}
	history, err := s.Transactions(ctx, userID)
	if err != nil {
		return ledger.Result{}, fmt.Errorf("read transactions: %w", err)
	}

	res, err := ledger.Apply(req, holdings, market.DecodeTable(marketSnap),
		s.newID(), nextSeq(history), s.now())
	if err != nil {
		return ledger.Result{}, err
	}

	writes := map[string]any{
		kvstore.MarketPath(res.Quote.Symbol):                res.Quote,
		kvstore.TransactionPath(userID, res.Transaction.ID): res.Transaction,
		kvstore.HoldingPath(userID, res.Transaction.Symbol): nil,
	}
	if res.Holding != nil {
		writes[kvstore.HoldingPath(userID, res.Holding.Symbol)] = res.Holding
	}
	if err := s.store.Update(ctx, writes); err != nil {
		return ledger.Result{}, fmt.Errorf("commit transaction: %w", err)
	}

	if s.archiver != nil {
		if err := s.archiver.ArchiveTransaction(ctx, userID, res.Transaction); err != nil {
			s.logger.WithField("user", userID).WithError(err).Warn("Transaction archive failed")
		}
	}

	s.prune(ctx, userID, append(history, res.Transaction))
	return res, nil
}

// Holdings returns the user's current positions keyed by symbol.
func (s *Service) Holdings(ctx context.Context, userID string) (map[string]models.Holding, error) {
	snap, err := s.store.List(ctx, kvstore.HoldingsPrefix(userID))
	if err != nil {
		return nil, err
	}
	holdings := make(map[string]models.Holding, len(snap))
	for symbol, raw := range snap {
		var h models.Holding
		if err := json.Unmarshal(raw, &h); err != nil {
			continue
		}
		holdings[symbol] = h
	}
	return holdings, nil
}

// Transactions returns the user's retained history, newest first.
func (s *Service) Transactions(ctx context.Context, userID string) ([]models.Transaction, error) {
	snap, err := s.store.List(ctx, kvstore.TransactionsPrefix(userID))
	if err != nil {
		return nil, err
	}
	txs := make([]models.Transaction, 0, len(snap))
	for _, raw := range snap {
		var tx models.Transaction
		if err := json.Unmarshal(raw, &tx); err != nil {
			continue
		}
		txs = append(txs, tx)
	}
	sort.Slice(txs, func(i, j int) bool {
		if txs[i].Timestamp != txs[j].Timestamp {
			return txs[i].Timestamp > txs[j].Timestamp
		}
		return txs[i].Seq > txs[j].Seq
	})
	return txs, nil
}

// prune enforces the retention policy over the given history. Failure to
// delete is logged and left for the next transaction to retry.
func (s *Service) prune(ctx context.Context, userID string, history []models.Transaction) {
	deletes := ledger.Prune(history)
	if len(deletes) == 0 {
		return
	}
	writes := make(map[string]any, len(deletes))
	for _, id := range deletes {
		writes[kvstore.TransactionPath(userID, id)] = nil
	}
	if err := s.store.Update(ctx, writes); err != nil {
		s.logger.WithField("user", userID).WithError(err).Warn("Transaction pruning failed")
		return
	}
	s.logger.WithFields(logrus.Fields{"user": userID, "pruned": len(deletes)}).Debug("Transaction history pruned")
}

// userLock returns the serialization point for one user's ledger.
func (s *Service) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.userLocks[userID] = lock
	}
	return lock
}

// nextSeq returns the insertion counter for the next transaction.
func nextSeq(history []models.Transaction) int64 {
	var max int64
	for _, tx := range history {
		if tx.Seq > max {
			max = tx.Seq
		}
	}
	return max + 1
}
