package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/alexanderjulianmartinez/dlt-inspect/internal/config"
	"github.com/alexanderjulianmartinez/dlt-inspect/internal/source"
)

// goldDB returns an in-memory engine with the bookstore gold tables attached
// under their pipeline database name.
func goldDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	// ATTACH is per connection.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	stmts := []string{
		`ATTACH DATABASE ':memory:' AS demo_bookstore_dlt_db`,
		`CREATE TABLE demo_bookstore_dlt_db.cn_daily_customer_books (customer_id TEXT, f_name TEXT, l_name TEXT, order_timestamp TEXT, books_counts INTEGER)`,
		`INSERT INTO demo_bookstore_dlt_db.cn_daily_customer_books VALUES ('C00001', 'Ada', 'Li', '2022-07-01', 2)`,
		`INSERT INTO demo_bookstore_dlt_db.cn_daily_customer_books VALUES ('C00002', 'Wei', 'Zhang', '2022-07-01', 1)`,
		`INSERT INTO demo_bookstore_dlt_db.cn_daily_customer_books VALUES ('C00003', 'Mei', NULL, '2022-07-02', 3)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("%s: %v", s, err)
		}
	}
	return db
}

func newClient(t *testing.T) *Client {
	return New(goldDB(t), time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestQuery_ReturnsAllRows(t *testing.T) {
	c := newClient(t)

	rs, err := c.Query(context.Background(), "SELECT * FROM demo_bookstore_dlt_db.cn_daily_customer_books")
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	wantCols := []string{"customer_id", "f_name", "l_name", "order_timestamp", "books_counts"}
	if diff := cmp.Diff(wantCols, rs.Columns); diff != "" {
		t.Errorf("columns (-want +got):\n%s", diff)
	}
	if len(rs.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rs.Rows))
	}
	if rs.Rows[0][0] != "C00001" {
		t.Errorf("first customer: got %v", rs.Rows[0][0])
	}
	if rs.Rows[2][2] != nil {
		t.Errorf("expected NULL l_name, got %v", rs.Rows[2][2])
	}
	if rs.Statement != "SELECT * FROM demo_bookstore_dlt_db.cn_daily_customer_books" {
		t.Errorf("statement not preserved: %q", rs.Statement)
	}
}

func TestCount_MatchesSelect(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	n, err := c.Count(ctx, "demo_bookstore_dlt_db.cn_daily_customer_books")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	rs, err := c.Query(ctx, "SELECT * FROM demo_bookstore_dlt_db.cn_daily_customer_books")
	if err != nil {
		t.Fatal(err)
	}
	if n != int64(len(rs.Rows)) {
		t.Errorf("count %d does not match %d selected rows", n, len(rs.Rows))
	}
}

func TestQuery_MissingTableFails(t *testing.T) {
	c := newClient(t)

	rs, err := c.Query(context.Background(), "SELECT * FROM demo_bookstore_dlt_db.fr_daily_customer_books")
	if err == nil {
		t.Fatalf("expected error, got %d rows", len(rs.Rows))
	}
	if !source.IsTableNotFound(err) {
		t.Errorf("expected table not found, got %v", err)
	}
}

func TestCount_RejectsBadTable(t *testing.T) {
	_, err := newClient(t).Count(context.Background(), "")
	if !errors.Is(err, source.ErrEmptyTable) {
		t.Fatalf("expected ErrEmptyTable, got %v", err)
	}
}

func TestOpen_RequiresDSN(t *testing.T) {
	_, err := Open(config.WarehouseConfig{Driver: "databricks"}, slog.Default())
	if err == nil {
		t.Fatal("expected error for empty dsn")
	}
}

func TestOpen_SQLite(t *testing.T) {
	c, err := Open(config.WarehouseConfig{Driver: "sqlite", DSN: ":memory:", Timeout: "1s"}, slog.Default())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer c.Close()

	rs, err := c.Query(context.Background(), "SELECT 1 AS one")
	if err != nil {
		t.Fatal(err)
	}
	if len(rs.Rows) != 1 || rs.Rows[0][0] != int64(1) {
		t.Errorf("unexpected result: %+v", rs.Rows)
	}
}
