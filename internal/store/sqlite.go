package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite. It is the local
// development sink: same tables as Postgres, minus the schema prefix, which
// Append strips from incoming table names.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	sdb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := sdb.Exec(pragma); err != nil {
			sdb.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: sdb}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS aggr_transaction (
	year         INTEGER NOT NULL,
	quarter      INTEGER NOT NULL,
	state        TEXT    NOT NULL,
	trans_type   TEXT    NOT NULL DEFAULT '',
	trans_count  INTEGER NOT NULL DEFAULT 0,
	trans_amount REAL    NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS aggr_user (
	year              INTEGER NOT NULL,
	quarter           INTEGER NOT NULL,
	state             TEXT    NOT NULL,
	registered_user   INTEGER NOT NULL DEFAULT 0,
	app_opens         INTEGER NOT NULL DEFAULT 0,
	device_brand      TEXT    NOT NULL DEFAULT '',
	device_count      INTEGER NOT NULL DEFAULT 0,
	device_percentage REAL    NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS aggr_insurance (
	year             INTEGER NOT NULL,
	quarter          INTEGER NOT NULL,
	state            TEXT    NOT NULL,
	insurance_type   TEXT    NOT NULL DEFAULT '',
	insurance_count  INTEGER NOT NULL DEFAULT 0,
	insurance_amount REAL    NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS map_transaction (
	year         INTEGER NOT NULL,
	quarter      INTEGER NOT NULL,
	state        TEXT    NOT NULL,
	district     TEXT    NOT NULL DEFAULT '',
	trans_type   TEXT    NOT NULL DEFAULT '',
	trans_count  INTEGER NOT NULL DEFAULT 0,
	trans_amount REAL    NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS map_user (
	year            INTEGER NOT NULL,
	quarter         INTEGER NOT NULL,
	state           TEXT    NOT NULL,
	district        TEXT    NOT NULL DEFAULT '',
	registered_user INTEGER NOT NULL DEFAULT 0,
	app_opens       INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS map_insurance (
	year             INTEGER NOT NULL,
	quarter          INTEGER NOT NULL,
	state            TEXT    NOT NULL,
	insurance_type   TEXT    NOT NULL DEFAULT '',
	insurance_count  INTEGER NOT NULL DEFAULT 0,
	insurance_amount REAL    NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS top_transaction (
	year         INTEGER NOT NULL,
	quarter      INTEGER NOT NULL,
	state        TEXT    NOT NULL,
	district     TEXT    NOT NULL DEFAULT '',
	pincode      TEXT    NOT NULL DEFAULT '',
	trans_type   TEXT    NOT NULL DEFAULT '',
	trans_count  INTEGER NOT NULL DEFAULT 0,
	trans_amount REAL    NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS top_user (
	year            INTEGER NOT NULL,
	quarter         INTEGER NOT NULL,
	state           TEXT    NOT NULL,
	district        TEXT    NOT NULL DEFAULT '',
	pincode         TEXT    NOT NULL DEFAULT '',
	registered_user INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS top_insurance (
	year             INTEGER NOT NULL,
	quarter          INTEGER NOT NULL,
	state            TEXT    NOT NULL,
	district         TEXT    NOT NULL DEFAULT '',
	pincode          TEXT    NOT NULL DEFAULT '',
	insurance_type   TEXT    NOT NULL DEFAULT '',
	insurance_count  INTEGER NOT NULL DEFAULT 0,
	insurance_amount REAL    NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_aggr_transaction_year_quarter ON aggr_transaction(year, quarter);
CREATE INDEX IF NOT EXISTS idx_map_transaction_year_quarter ON map_transaction(year, quarter);
CREATE INDEX IF NOT EXISTS idx_map_user_year_quarter ON map_user(year, quarter);
CREATE INDEX IF NOT EXISTS idx_top_transaction_year_quarter ON top_transaction(year, quarter);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Append batch-inserts rows inside a single transaction. Schema-qualified
// table names are flattened to their bare form.
func (s *SQLiteStore) Append(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	if _, bare, ok := strings.Cut(table, "."); ok {
		table = bare
	}

	placeholders := make([]string, len(columns))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	query := "INSERT INTO " + table + " (" + strings.Join(columns, ", ") + ") VALUES (" + strings.Join(placeholders, ", ") + ")"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: begin append to %s", table)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: prepare append to %s", table)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert into %s", table)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrapf(err, "sqlite: commit append to %s", table)
	}
	return int64(len(rows)), nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
