package cache

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/sirupsen/logrus"

	"github.com/p2p-org/p2p-wallet-web-sub001/internal/models"
)

// ClickHouseStore persists executed swap records.
type ClickHouseStore struct {
	conn   driver.Conn
	logger *logrus.Logger
}

// ClickHouseConfig carries the connection settings.
type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
	Logger   *logrus.Logger
}

func NewClickHouseStore(cfg ClickHouseConfig) (*ClickHouseStore, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	cfg.Logger.WithField("addr", cfg.Addr).Info("connected to ClickHouse")

	return &ClickHouseStore{conn: conn, logger: cfg.Logger}, nil
}

func (c *ClickHouseStore) InsertSwap(ctx context.Context, swap *models.SwapRecord) error {
	query := `
		INSERT INTO swaps (
			transaction_id, timestamp, owner, source_mint, destination_mint,
			route, amount_in, minimum_amount_out, transitive, simulation,
			new_wallet_address, fee_transaction, fee_account_balances, fee_deposit
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := c.conn.Exec(ctx, query,
		swap.TransactionID,
		swap.Timestamp,
		swap.Owner,
		swap.SourceMint,
		swap.DestinationMint,
		swap.Route,
		swap.AmountIn,
		swap.MinimumAmountOut,
		swap.Transitive,
		swap.Simulation,
		swap.NewWalletAddress,
		swap.FeeTransaction,
		swap.FeeAccountBalances,
		swap.FeeDeposit,
	)
	if err != nil {
		return fmt.Errorf("failed to insert swap: %w", err)
	}
	return nil
}

func (c *ClickHouseStore) ListSwapsByOwner(ctx context.Context, owner string, limit int64) ([]*models.SwapRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT
			transaction_id, timestamp, owner, source_mint, destination_mint,
			route, amount_in, minimum_amount_out, transitive, simulation,
			new_wallet_address, fee_transaction, fee_account_balances, fee_deposit
		FROM swaps
		WHERE owner = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`

	rows, err := c.conn.Query(ctx, query, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query swaps: %w", err)
	}
	defer rows.Close()

	var out []*models.SwapRecord
	for rows.Next() {
		var rec models.SwapRecord
		if err := rows.Scan(
			&rec.TransactionID,
			&rec.Timestamp,
			&rec.Owner,
			&rec.SourceMint,
			&rec.DestinationMint,
			&rec.Route,
			&rec.AmountIn,
			&rec.MinimumAmountOut,
			&rec.Transitive,
			&rec.Simulation,
			&rec.NewWalletAddress,
			&rec.FeeTransaction,
			&rec.FeeAccountBalances,
			&rec.FeeDeposit,
		); err != nil {
			return nil, fmt.Errorf("failed to scan swap row: %w", err)
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

func (c *ClickHouseStore) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *ClickHouseStore) Close() error {
	return c.conn.Close()
}
