package etl

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadResult_Defaults(t *testing.T) {
	r := &LoadResult{}
	assert.Equal(t, int64(0), r.RowsLoaded)
	assert.Nil(t, r.Metadata)
}

func TestLoadLog_StartComplete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("INSERT INTO pulse.load_log").
		WithArgs("run-1", "aggr_transaction").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))

	mock.ExpectExec("UPDATE pulse.load_log").
		WithArgs(int64(42), nil, int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ll := NewLoadLog(mock)
	id, err := ll.Start(context.Background(), "run-1", "aggr_transaction")
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	require.NoError(t, ll.Complete(context.Background(), id, &LoadResult{RowsLoaded: 42}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadLog_Fail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("UPDATE pulse.load_log").
		WithArgs("walk source tree: bad quarter", int64(3)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ll := NewLoadLog(mock)
	require.NoError(t, ll.Fail(context.Background(), 3, "walk source tree: bad quarter"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadLog_LastSuccess_NeverLoaded(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT started_at FROM pulse.load_log").
		WithArgs("top_user").
		WillReturnRows(pgxmock.NewRows([]string{"started_at"}))

	ll := NewLoadLog(mock)
	ts, err := ll.LastSuccess(context.Background(), "top_user")
	require.NoError(t, err)
	assert.Nil(t, ts)
}

func TestLoadLog_ListAll(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	started := time.Date(2026, time.August, 30, 10, 0, 0, 0, time.UTC)
	completed := started.Add(40 * time.Second)
	errMsg := "COPY INTO pulse.map_user failed"

	rows := pgxmock.NewRows([]string{"id", "run_id", "dataset", "status", "started_at", "completed_at", "rows_loaded", "error", "metadata"}).
		AddRow(int64(2), "run-9", "map_user", "failed", started, &completed, int64(0), &errMsg, []byte(nil)).
		AddRow(int64(1), "run-9", "aggr_user", "complete", started, &completed, int64(120), (*string)(nil), []byte(`{"leaves":12}`))

	mock.ExpectQuery("SELECT id, run_id, dataset, status").WillReturnRows(rows)

	ll := NewLoadLog(mock)
	entries, err := ll.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "map_user", entries[0].Dataset)
	assert.Equal(t, "failed", entries[0].Status)
	assert.Equal(t, errMsg, entries[0].Error)

	assert.Equal(t, "aggr_user", entries[1].Dataset)
	assert.Equal(t, int64(120), entries[1].RowsLoaded)
	assert.Equal(t, float64(12), entries[1].Metadata["leaves"])
}
