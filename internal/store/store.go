// Package store provides the warehouse sinks the ETL engine writes to:
// Postgres for real deployments and SQLite for local development. Both
// satisfy the engine's append contract, so the loader code never knows
// which backend it is talking to.
package store

import "context"

// Store is a warehouse backend. Append is the hot path: one call per
// dataset per run, carrying the full normalized batch. A batch lands
// atomically or not at all.
type Store interface {
	Append(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
