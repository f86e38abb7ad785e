package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/pulse-cli/internal/db"
	"github.com/sells-group/pulse-cli/internal/store"
)

var etlCmd = &cobra.Command{
	Use:   "etl",
	Short: "Warehouse ingestion pipeline",
	Long:  "Walks the scraped snapshot tree, normalizes the nine document feeds and appends them to the pulse.* warehouse tables.",
}

func init() {
	rootCmd.AddCommand(etlCmd)
}

// pulsePool creates a pgxpool.Pool from the configured database URL.
func pulsePool(ctx context.Context) (*pgxpool.Pool, error) {
	dsn := cfg.Store.DatabaseURL
	if dsn == "" {
		return nil, eris.New("etl: no database_url configured (set store.database_url or PULSE_STORE_DATABASE_URL)")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, eris.Wrap(err, "etl: create connection pool")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "etl: ping database")
	}

	return pool, nil
}

// openStore builds the configured warehouse sink. The returned pool is
// non-nil only for the postgres driver; the sqlite sink has no load-log or
// analytics surface.
func openStore(ctx context.Context) (store.Store, db.Pool, error) {
	switch cfg.Store.Driver {
	case "postgres", "":
		pool, err := pulsePool(ctx)
		if err != nil {
			return nil, nil, err
		}
		return store.NewPostgresFromPool(pool), pool, nil
	case "sqlite":
		st, err := store.NewSQLite(cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return st, nil, nil
	default:
		return nil, nil, eris.Errorf("etl: unknown store driver %q", cfg.Store.Driver)
	}
}
