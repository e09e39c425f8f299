// Package source describes the SQL engine the pipeline tables are read from.
package source

import (
	"context"

	"github.com/alexanderjulianmartinez/dlt-inspect/pkg/types"
)

// Querier runs read-only statements against the engine hosting the
// pipeline's Delta tables and metastore.
type Querier interface {
	// Query runs statement unmodified and returns every row.
	Query(ctx context.Context, statement string) (*types.ResultSet, error)
	// Count runs an independent SELECT COUNT(*) against table.
	Count(ctx context.Context, table string) (int64, error)
}
