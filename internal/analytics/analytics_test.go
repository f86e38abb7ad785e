package analytics

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestFetchTable_RejectsUnknownTable(t *testing.T) {
	mock := newMock(t)
	svc := New(mock)

	for _, table := range []string{
		"runs",
		"aggr_transaction; DROP TABLE pulse.aggr_user",
		"pulse.aggr_transaction", // already qualified, not a bare name
		"",
	} {
		_, err := svc.FetchTable(context.Background(), table, Filter{})
		require.Error(t, err, table)
		assert.Contains(t, err.Error(), "invalid table name")
	}

	// No query must ever have been issued.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchTable_FiltersAreBound(t *testing.T) {
	mock := newMock(t)

	rows := pgxmock.NewRows([]string{"year", "quarter", "state", "trans_type", "trans_count", "trans_amount"}).
		AddRow(2021, 2, "karnataka", "Recharge & bill payments", int64(500), 1000000.0)

	mock.ExpectQuery(`SELECT \* FROM pulse\.aggr_transaction WHERE year = \$1 AND quarter = \$2`).
		WithArgs(2021, 2).
		WillReturnRows(rows)

	svc := New(mock)
	data, err := svc.FetchTable(context.Background(), "aggr_transaction", Filter{Year: 2021, Quarter: 2})
	require.NoError(t, err)

	assert.Equal(t, []string{"year", "quarter", "state", "trans_type", "trans_count", "trans_amount"}, data.Columns)
	require.Len(t, data.Rows, 1)
	assert.Equal(t, "karnataka", data.Rows[0][2])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFilter_WhereClause(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		where, args := Filter{}.whereClause(true)
		assert.Empty(t, where)
		assert.Nil(t, args)
	})

	t.Run("year and quarter", func(t *testing.T) {
		where, args := Filter{Year: 2021, Quarter: 3}.whereClause(false)
		assert.Equal(t, " WHERE year = $1 AND quarter = $2", where)
		assert.Equal(t, []any{2021, 3}, args)
	})

	t.Run("state only when enabled", func(t *testing.T) {
		where, args := Filter{State: "goa"}.whereClause(false)
		assert.Empty(t, where)
		assert.Nil(t, args)

		where, args = Filter{State: "goa"}.whereClause(true)
		assert.Equal(t, " WHERE state = $1", where)
		assert.Equal(t, []any{"goa"}, args)
	})
}

func TestExecutiveSummary(t *testing.T) {
	mock := newMock(t)

	mock.MatchExpectationsInOrder(false)
	mock.ExpectQuery("FROM pulse.aggr_transaction").
		WithArgs(2021).
		WillReturnRows(pgxmock.NewRows([]string{"a", "c", "v", "s"}).
			AddRow(5000000.0, int64(2500), 2000.0, int64(36)))
	mock.ExpectQuery("FROM pulse.aggr_user").
		WithArgs(2021).
		WillReturnRows(pgxmock.NewRows([]string{"u", "o", "e"}).
			AddRow(int64(900000), int64(4500000), 5.0))
	mock.ExpectQuery("FROM pulse.aggr_insurance").
		WithArgs(2021).
		WillReturnRows(pgxmock.NewRows([]string{"a", "p"}).
			AddRow(120000.0, int64(340)))

	svc := New(mock)
	sum, err := svc.ExecutiveSummary(context.Background(), Filter{Year: 2021})
	require.NoError(t, err)

	assert.Equal(t, 5000000.0, sum.TotalTransactionAmount)
	assert.Equal(t, int64(2500), sum.TotalTransactions)
	assert.Equal(t, int64(36), sum.ActiveStates)
	assert.Equal(t, int64(900000), sum.TotalUsers)
	assert.Equal(t, 5.0, sum.AvgEngagement)
	assert.Equal(t, 120000.0, sum.TotalInsuranceAmount)
	assert.Equal(t, int64(340), sum.TotalPolicies)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecutiveSummary_DedupesUserRows(t *testing.T) {
	mock := newMock(t)

	mock.MatchExpectationsInOrder(false)
	mock.ExpectQuery("FROM pulse.aggr_transaction").
		WillReturnRows(pgxmock.NewRows([]string{"a", "c", "v", "s"}).AddRow(0.0, int64(0), 0.0, int64(0)))
	// The user read must go through the DISTINCT subquery.
	mock.ExpectQuery(`SELECT DISTINCT year, quarter, state, registered_user, app_opens\s+FROM pulse\.aggr_user`).
		WillReturnRows(pgxmock.NewRows([]string{"u", "o", "e"}).AddRow(int64(1000), int64(5000), 5.0))
	mock.ExpectQuery("FROM pulse.aggr_insurance").
		WillReturnRows(pgxmock.NewRows([]string{"a", "p"}).AddRow(0.0, int64(0)))

	svc := New(mock)
	sum, err := svc.ExecutiveSummary(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), sum.TotalUsers)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopStatesByTransactionAmount(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`GROUP BY state ORDER BY 2 DESC LIMIT \$2`).
		WithArgs(2021, 3).
		WillReturnRows(pgxmock.NewRows([]string{"state", "amount", "count"}).
			AddRow("maharashtra", 900000.0, int64(450)).
			AddRow("karnataka", 800000.0, int64(400)).
			AddRow("telangana", 700000.0, int64(350)))

	svc := New(mock)
	out, err := svc.TopStatesByTransactionAmount(context.Background(), Filter{Year: 2021, Limit: 3})
	require.NoError(t, err)

	require.Len(t, out, 3)
	assert.Equal(t, "maharashtra", out[0].State)
	assert.Equal(t, 900000.0, out[0].TransAmount)
	assert.True(t, out[0].TransAmount >= out[1].TransAmount && out[1].TransAmount >= out[2].TransAmount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopStatesByTransactionAmount_DefaultLimit(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`LIMIT \$1`).
		WithArgs(10).
		WillReturnRows(pgxmock.NewRows([]string{"state", "amount", "count"}))

	svc := New(mock)
	out, err := svc.TopStatesByTransactionAmount(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionTypeDistribution(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery("GROUP BY trans_type ORDER BY 2 DESC").
		WillReturnRows(pgxmock.NewRows([]string{"type", "amount", "count", "avg"}).
			AddRow("Peer-to-peer payments", 500000.0, int64(200), 2500.0).
			AddRow("Recharge & bill payments", 100000.0, int64(500), 200.0))

	svc := New(mock)
	out, err := svc.TransactionTypeDistribution(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "Peer-to-peer payments", out[0].TransType)
	assert.Equal(t, 2500.0, out[0].AvgTransactionValue)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuarterlyTrends(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`WHERE year = \$1`).
		WithArgs(2022).
		WillReturnRows(pgxmock.NewRows([]string{"quarter", "amount", "count", "states"}).
			AddRow(1, 100.0, int64(10), int64(30)).
			AddRow(2, 200.0, int64(20), int64(32)))

	svc := New(mock)
	out, err := svc.QuarterlyTrends(context.Background(), 2022)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 1, out[0].Quarter)
	assert.Equal(t, int64(32), out[1].ActiveStates)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopDistrictsByTransaction_StateScoped(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`FROM pulse\.map_transaction WHERE year = \$1 AND state = \$2`).
		WithArgs(2021, "karnataka", 10).
		WillReturnRows(pgxmock.NewRows([]string{"state", "district", "amount", "count"}).
			AddRow("karnataka", "Bengaluru Urban", 1000000.0, int64(500)))

	svc := New(mock)
	out, err := svc.TopDistrictsByTransaction(context.Background(), Filter{Year: 2021, State: "karnataka"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Bengaluru Urban", out[0].District)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserEngagement_UsesDistinctSubquery(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`SELECT DISTINCT year, quarter, state, registered_user, app_opens`).
		WillReturnRows(pgxmock.NewRows([]string{"state", "users", "opens", "avg"}).
			AddRow("goa", int64(1000), int64(5000), 5.0))

	svc := New(mock)
	out, err := svc.UserEngagement(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, int64(1000), out[0].TotalUsers)
	assert.Equal(t, 5.0, out[0].AvgOpensPerUser)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeviceBrandPopularity_ExcludesBlankBrands(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`WHERE device_brand != '' AND year = \$1 GROUP BY device_brand ORDER BY 2 DESC LIMIT \$2`).
		WithArgs(2021, 15).
		WillReturnRows(pgxmock.NewRows([]string{"brand", "devices", "pct"}).
			AddRow("Xiaomi", int64(400), 0.4).
			AddRow("Samsung", int64(300), 0.3))

	svc := New(mock)
	out, err := svc.DeviceBrandPopularity(context.Background(), Filter{Year: 2021})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "Xiaomi", out[0].DeviceBrand)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserGrowth(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`GROUP BY year, quarter ORDER BY year, quarter`).
		WillReturnRows(pgxmock.NewRows([]string{"year", "quarter", "users", "opens"}).
			AddRow(2020, 4, int64(800), int64(4000)).
			AddRow(2021, 1, int64(1000), int64(5000)))

	svc := New(mock)
	out, err := svc.UserGrowth(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 2020, out[0].Year)
	assert.Equal(t, int64(1000), out[1].TotalUsers)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsuranceAdoptionByState(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`FROM pulse\.aggr_insurance WHERE year = \$1`).
		WithArgs(2022).
		WillReturnRows(pgxmock.NewRows([]string{"state", "amount", "policies", "avg"}).
			AddRow("kerala", 99000.0, int64(44), 2250.0))

	svc := New(mock)
	out, err := svc.InsuranceAdoptionByState(context.Background(), Filter{Year: 2022})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "kerala", out[0].State)
	assert.Equal(t, int64(44), out[0].TotalPolicies)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestYearOverYearGrowth(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`LAG\(SUM\(trans_amount\)`).
		WillReturnRows(pgxmock.NewRows([]string{"year", "amount", "count", "prev_amount", "prev_count"}).
			AddRow(2020, 100000.0, int64(1000), (*float64)(nil), (*int64)(nil)).
			AddRow(2021, 150000.0, int64(1300), float64Ptr(100000.0), int64Ptr(1000)))

	svc := New(mock)
	out, err := svc.YearOverYearGrowth(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Nil(t, out[0].AmountGrowth)
	assert.Nil(t, out[0].CountGrowth)

	require.NotNil(t, out[1].AmountGrowth)
	assert.InDelta(t, 50.0, *out[1].AmountGrowth, 0.001)
	require.NotNil(t, out[1].CountGrowth)
	assert.InDelta(t, 30.0, *out[1].CountGrowth, 0.001)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 33.33, round2(33.3333))
	assert.Equal(t, -12.5, round2(-12.499))
	assert.Equal(t, 0.0, round2(0))
}

func float64Ptr(v float64) *float64 { return &v }
func int64Ptr(v int64) *int64       { return &v }
