package etl

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/pulse-cli/internal/db"
)

// LoadEntry represents a row in pulse.load_log.
type LoadEntry struct {
	ID          int64          `json:"id"`
	RunID       string         `json:"run_id"`
	Dataset     string         `json:"dataset"`
	Status      string         `json:"status"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	RowsLoaded  int64          `json:"rows_loaded"`
	Error       string         `json:"error,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// LoadResult holds the outcome of a dataset load, passed to Complete().
type LoadResult struct {
	RowsLoaded int64          `json:"rows_loaded"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// LoadLog provides read/write access to the pulse.load_log table.
type LoadLog struct {
	pool db.Pool
}

// NewLoadLog creates a new LoadLog backed by the given connection pool.
func NewLoadLog(pool db.Pool) *LoadLog {
	return &LoadLog{pool: pool}
}

// LastSuccess returns the started_at time of the most recent successful load for a dataset.
// Returns nil if the dataset has never been loaded successfully.
func (l *LoadLog) LastSuccess(ctx context.Context, dataset string) (*time.Time, error) {
	var t time.Time
	err := l.pool.QueryRow(ctx,
		`SELECT started_at FROM pulse.load_log
		 WHERE dataset = $1 AND status = 'complete'
		 ORDER BY started_at DESC LIMIT 1`,
		dataset,
	).Scan(&t)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "loadlog: last success for %s", dataset)
	}
	return &t, nil
}

// Start records the beginning of a dataset load and returns its ID.
func (l *LoadLog) Start(ctx context.Context, runID, dataset string) (int64, error) {
	var id int64
	err := l.pool.QueryRow(ctx,
		`INSERT INTO pulse.load_log (run_id, dataset, status, started_at)
		 VALUES ($1, $2, 'running', now()) RETURNING id`,
		runID, dataset,
	).Scan(&id)
	if err != nil {
		return 0, eris.Wrapf(err, "loadlog: start load for %s", dataset)
	}
	return id, nil
}

// Complete marks a dataset load as successfully completed.
func (l *LoadLog) Complete(ctx context.Context, loadID int64, result *LoadResult) error {
	var metaJSON any
	if result != nil && result.Metadata != nil {
		b, err := json.Marshal(result.Metadata)
		if err != nil {
			return eris.Wrap(err, "loadlog: marshal metadata")
		}
		metaJSON = b
	}

	rowsLoaded := int64(0)
	if result != nil {
		rowsLoaded = result.RowsLoaded
	}

	_, err := l.pool.Exec(ctx,
		`UPDATE pulse.load_log
		 SET status = 'complete', completed_at = now(), rows_loaded = $1, metadata = $2
		 WHERE id = $3`,
		rowsLoaded, metaJSON, loadID,
	)
	if err != nil {
		return eris.Wrapf(err, "loadlog: complete load %d", loadID)
	}
	return nil
}

// Fail marks a dataset load as failed with an error message.
func (l *LoadLog) Fail(ctx context.Context, loadID int64, errMsg string) error {
	_, err := l.pool.Exec(ctx,
		`UPDATE pulse.load_log
		 SET status = 'failed', completed_at = now(), error = $1
		 WHERE id = $2`,
		errMsg, loadID,
	)
	if err != nil {
		return eris.Wrapf(err, "loadlog: fail load %d", loadID)
	}
	return nil
}

// ListAll returns all load log entries ordered by most recent first.
func (l *LoadLog) ListAll(ctx context.Context) ([]LoadEntry, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT id, run_id, dataset, status, started_at, completed_at, rows_loaded, error, metadata
		 FROM pulse.load_log ORDER BY started_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "loadlog: list all")
	}
	defer rows.Close()

	var entries []LoadEntry
	for rows.Next() {
		var e LoadEntry
		var completedAt *time.Time
		var errStr *string
		var metaJSON []byte
		if err := rows.Scan(&e.ID, &e.RunID, &e.Dataset, &e.Status, &e.StartedAt, &completedAt, &e.RowsLoaded, &errStr, &metaJSON); err != nil {
			return nil, eris.Wrap(err, "loadlog: scan entry")
		}
		e.CompletedAt = completedAt
		if errStr != nil {
			e.Error = *errStr
		}
		if metaJSON != nil {
			_ = json.Unmarshal(metaJSON, &e.Metadata)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
