// Package db provides shared database helpers for bulk append operations.
package db

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// CopyAppend bulk-appends rows to a warehouse table using the PostgreSQL
// COPY protocol. The table name may be schema-qualified ("pulse.map_user").
// Empty batches are a no-op so loaders can hand over whatever a snapshot
// walk produced.
func CopyAppend(ctx context.Context, pool Pool, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	ident := pgx.Identifier{table}
	if schema, bare, ok := strings.Cut(table, "."); ok {
		ident = pgx.Identifier{schema, bare}
	}

	n, err := pool.CopyFrom(ctx, ident, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "db: COPY INTO %s", table)
	}

	return n, nil
}
