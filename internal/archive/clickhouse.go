// Package archive provides the long-term transaction sink. The live ledger
// keeps a bounded history per user; the archive records every committed
// transaction before retention pruning removes it.
package archive

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/nepfolio/nepfolio/internal/models"
)

// ClickHouseArchive appends transactions to ClickHouse.
type ClickHouseArchive struct {
	conn driver.Conn
}

// NewClickHouseArchive parses the DSN, opens a connection and verifies it
// with a ping within 5 seconds.
func NewClickHouseArchive(dsn string) (*ClickHouseArchive, error) {
	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Ping(ctx); err != nil {
		return nil, err
	}

	return &ClickHouseArchive{conn: conn}, nil
}

// ArchiveTransaction inserts one committed transaction.
func (a *ClickHouseArchive) ArchiveTransaction(ctx context.Context, userID string, tx models.Transaction) error {
	batch, err := a.conn.PrepareBatch(ctx, `
		INSERT INTO transaction_archive (
			id, user_id, symbol, company_name, type,
			units, price, event_time, inserted_at
		)
	`)
	if err != nil {
		return err
	}

	err = batch.Append(
		tx.ID,
		userID,
		tx.Symbol,
		tx.CompanyName,
		string(tx.Type),
		tx.Units,
		tx.Price,
		time.UnixMilli(tx.Timestamp),
		time.Now(),
	)
	if err != nil {
		return err
	}

	return batch.Send()
}

// Close releases the connection.
func (a *ClickHouseArchive) Close() error {
	return a.conn.Close()
}
