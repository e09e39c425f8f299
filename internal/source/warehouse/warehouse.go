// Package warehouse runs statements through database/sql against the engine
// configured for the pipeline: a Databricks SQL warehouse in production, or
// MySQL, Postgres and SQLite stand-ins.
package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/databricks/databricks-sql-go"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/alexanderjulianmartinez/dlt-inspect/internal/config"
	"github.com/alexanderjulianmartinez/dlt-inspect/internal/source"
	"github.com/alexanderjulianmartinez/dlt-inspect/pkg/types"
)

// Client executes read-only statements and returns complete result sets.
type Client struct {
	db      *sql.DB
	timeout time.Duration
	logger  *slog.Logger
}

var _ source.Querier = (*Client)(nil)

// Open prepares a connection pool for cfg. No connection is made until the
// first statement runs, so a stopped warehouse is not started by commands
// that only list storage.
func Open(cfg config.WarehouseConfig, logger *slog.Logger) (*Client, error) {
	if cfg.DSN == "" {
		return nil, errors.New("warehouse.dsn is required")
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s warehouse: %w", cfg.Driver, err)
	}

	return New(db, cfg.TimeoutDuration(), logger.With("driver", cfg.Driver)), nil
}

// New wraps an existing pool. A zero timeout leaves statements bounded only
// by the caller's context.
func New(db *sql.DB, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{db: db, timeout: timeout, logger: logger}
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Client) Query(ctx context.Context, statement string) (*types.ResultSet, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	rows, err := c.db.QueryContext(ctx, statement)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	rs := &types.ResultSet{Statement: statement, Columns: cols}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		rs.Rows = append(rs.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	c.logger.Debug("query complete", "statement", statement, "rows", len(rs.Rows), "elapsed", time.Since(start))
	return rs, nil
}

func (c *Client) Count(ctx context.Context, table string) (int64, error) {
	query, err := source.CountStatement(table)
	if err != nil {
		return 0, err
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var count int64
	if err := c.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
