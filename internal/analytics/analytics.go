// Package analytics is the parameterized read service over the warehouse
// tables. Every filter value is a bound parameter; the only dynamic SQL
// fragment is a table name validated against the fixed nine-table
// allow-list before any query is built.
package analytics

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/pulse-cli/internal/db"
)

// missingData is a placeholder literal that appears in some pre-populated
// top-level source rows alongside the ETL's '' sentinel. Region slices
// filter both; nothing ever unifies them in storage.
const missingData = "-- Missing Data --"

// allowedTables is the fixed set of warehouse table names accepted by
// FetchTable. Anything else is rejected before query construction.
var allowedTables = map[string]bool{
	"aggr_transaction": true, "aggr_user": true, "aggr_insurance": true,
	"map_transaction": true, "map_user": true, "map_insurance": true,
	"top_transaction": true, "top_user": true, "top_insurance": true,
}

// Service issues read-only queries against the pulse schema.
type Service struct {
	pool db.Pool
}

// New creates an analytics service on the given pool.
func New(pool db.Pool) *Service {
	return &Service{pool: pool}
}

// Filter narrows a query by period and, where supported, state. Zero values
// mean "no filter". Limit <= 0 falls back to the caller-supplied default.
type Filter struct {
	Year    int
	Quarter int
	State   string
	Limit   int
}

// whereClause builds "WHERE year = $1 AND ..." from the set filters,
// returning the clause and its bound arguments. State is only included when
// withState is true since not every table carries a state filter call site.
func (f Filter) whereClause(withState bool) (string, []any) {
	var conds []string
	var args []any

	add := func(cond string, val any) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Year != 0 {
		add("year = $%d", f.Year)
	}
	if f.Quarter != 0 {
		add("quarter = $%d", f.Quarter)
	}
	if withState && f.State != "" {
		add("state = $%d", f.State)
	}

	if len(conds) == 0 {
		return "", nil
	}
	clause := " WHERE " + conds[0]
	for _, c := range conds[1:] {
		clause += " AND " + c
	}
	return clause, args
}

func (f Filter) limitOr(def int) int {
	if f.Limit > 0 {
		return f.Limit
	}
	return def
}

// TableData is a raw table slice: column names plus row values in column
// order, the shape the query CLI and the HTTP API both render directly.
type TableData struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// FetchTable returns rows of one warehouse table, optionally filtered by
// year and quarter. The table name must be one of the nine known tables.
func (s *Service) FetchTable(ctx context.Context, table string, f Filter) (*TableData, error) {
	if !allowedTables[table] {
		return nil, eris.Errorf("analytics: invalid table name %q", table)
	}

	where, args := f.whereClause(false)
	query := "SELECT * FROM pulse." + table + where

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "analytics: fetch %s", table)
	}
	defer rows.Close()

	var data TableData
	for _, fd := range rows.FieldDescriptions() {
		data.Columns = append(data.Columns, fd.Name)
	}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, eris.Wrapf(err, "analytics: read %s row", table)
		}
		data.Rows = append(data.Rows, vals)
	}
	return &data, eris.Wrapf(rows.Err(), "analytics: fetch %s iterate", table)
}

// Summary is the executive dashboard headline block.
type Summary struct {
	TotalTransactionAmount float64 `json:"total_transaction_amount"`
	TotalTransactions      int64   `json:"total_transactions"`
	AvgTransactionValue    float64 `json:"avg_transaction_value"`
	ActiveStates           int64   `json:"active_states"`
	TotalUsers             int64   `json:"total_users"`
	TotalAppOpens          int64   `json:"total_app_opens"`
	AvgEngagement          float64 `json:"avg_engagement"`
	TotalInsuranceAmount   float64 `json:"total_insurance_amount"`
	TotalPolicies          int64   `json:"total_policies"`
}

// ExecutiveSummary aggregates the three domain tables into one headline
// block. The three reads are independent, so they run concurrently. User
// totals go through a DISTINCT subquery: registered_user and app_opens are
// denormalized onto every device row and would otherwise be multiplied by
// the brand count.
func (s *Service) ExecutiveSummary(ctx context.Context, f Filter) (*Summary, error) {
	where, args := f.whereClause(false)
	var sum Summary

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := s.pool.QueryRow(ctx, `
			SELECT
				COALESCE(SUM(trans_amount), 0)::double precision,
				COALESCE(SUM(trans_count), 0)::bigint,
				COALESCE(AVG(trans_amount / NULLIF(trans_count, 0)), 0)::double precision,
				COUNT(DISTINCT state)::bigint
			FROM pulse.aggr_transaction`+where, args...,
		).Scan(&sum.TotalTransactionAmount, &sum.TotalTransactions, &sum.AvgTransactionValue, &sum.ActiveStates)
		return eris.Wrap(err, "analytics: summary transactions")
	})

	g.Go(func() error {
		err := s.pool.QueryRow(ctx, `
			SELECT
				COALESCE(SUM(registered_user), 0)::bigint,
				COALESCE(SUM(app_opens), 0)::bigint,
				COALESCE(AVG(app_opens::double precision / NULLIF(registered_user, 0)), 0)::double precision
			FROM (
				SELECT DISTINCT year, quarter, state, registered_user, app_opens
				FROM pulse.aggr_user`+where+`
			) u`, args...,
		).Scan(&sum.TotalUsers, &sum.TotalAppOpens, &sum.AvgEngagement)
		return eris.Wrap(err, "analytics: summary users")
	})

	g.Go(func() error {
		err := s.pool.QueryRow(ctx, `
			SELECT
				COALESCE(SUM(insurance_amount), 0)::double precision,
				COALESCE(SUM(insurance_count), 0)::bigint
			FROM pulse.aggr_insurance`+where, args...,
		).Scan(&sum.TotalInsuranceAmount, &sum.TotalPolicies)
		return eris.Wrap(err, "analytics: summary insurance")
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &sum, nil
}

// StateTotals is one state's summed transaction volume.
type StateTotals struct {
	State       string  `json:"state"`
	TransAmount float64 `json:"trans_amount"`
	TransCount  int64   `json:"trans_count"`
}

// TopStatesByTransactionAmount returns states ranked by summed transaction
// amount, descending.
func (s *Service) TopStatesByTransactionAmount(ctx context.Context, f Filter) ([]StateTotals, error) {
	where, args := f.whereClause(false)
	args = append(args, f.limitOr(10))

	query := fmt.Sprintf(`
		SELECT state, SUM(trans_amount)::double precision, SUM(trans_count)::bigint
		FROM pulse.aggr_transaction%s
		GROUP BY state ORDER BY 2 DESC LIMIT $%d`, where, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "analytics: top states")
	}
	defer rows.Close()

	var out []StateTotals
	for rows.Next() {
		var st StateTotals
		if err := rows.Scan(&st.State, &st.TransAmount, &st.TransCount); err != nil {
			return nil, eris.Wrap(err, "analytics: scan top states")
		}
		out = append(out, st)
	}
	return out, eris.Wrap(rows.Err(), "analytics: top states iterate")
}

// TypeDistribution is one transaction category's share.
type TypeDistribution struct {
	TransType           string  `json:"trans_type"`
	TransAmount         float64 `json:"trans_amount"`
	TransCount          int64   `json:"trans_count"`
	AvgTransactionValue float64 `json:"avg_transaction_value"`
}

// TransactionTypeDistribution breaks transaction volume down by category.
func (s *Service) TransactionTypeDistribution(ctx context.Context, f Filter) ([]TypeDistribution, error) {
	where, args := f.whereClause(false)

	rows, err := s.pool.Query(ctx, `
		SELECT trans_type,
			SUM(trans_amount)::double precision,
			SUM(trans_count)::bigint,
			COALESCE(AVG(trans_amount / NULLIF(trans_count, 0)), 0)::double precision
		FROM pulse.aggr_transaction`+where+`
		GROUP BY trans_type ORDER BY 2 DESC`, args...)
	if err != nil {
		return nil, eris.Wrap(err, "analytics: type distribution")
	}
	defer rows.Close()

	var out []TypeDistribution
	for rows.Next() {
		var td TypeDistribution
		if err := rows.Scan(&td.TransType, &td.TransAmount, &td.TransCount, &td.AvgTransactionValue); err != nil {
			return nil, eris.Wrap(err, "analytics: scan type distribution")
		}
		out = append(out, td)
	}
	return out, eris.Wrap(rows.Err(), "analytics: type distribution iterate")
}

// QuarterTrend is one quarter's transaction totals within a year.
type QuarterTrend struct {
	Quarter      int     `json:"quarter"`
	TransAmount  float64 `json:"trans_amount"`
	TransCount   int64   `json:"trans_count"`
	ActiveStates int64   `json:"active_states"`
}

// QuarterlyTrends returns per-quarter transaction totals for one year.
func (s *Service) QuarterlyTrends(ctx context.Context, year int) ([]QuarterTrend, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT quarter,
			SUM(trans_amount)::double precision,
			SUM(trans_count)::bigint,
			COUNT(DISTINCT state)::bigint
		FROM pulse.aggr_transaction
		WHERE year = $1
		GROUP BY quarter ORDER BY quarter`, year)
	if err != nil {
		return nil, eris.Wrapf(err, "analytics: quarterly trends %d", year)
	}
	defer rows.Close()

	var out []QuarterTrend
	for rows.Next() {
		var qt QuarterTrend
		if err := rows.Scan(&qt.Quarter, &qt.TransAmount, &qt.TransCount, &qt.ActiveStates); err != nil {
			return nil, eris.Wrap(err, "analytics: scan quarterly trends")
		}
		out = append(out, qt)
	}
	return out, eris.Wrap(rows.Err(), "analytics: quarterly trends iterate")
}

// DistrictTotals is one district's summed transaction volume.
type DistrictTotals struct {
	State       string  `json:"state"`
	District    string  `json:"district"`
	TransAmount float64 `json:"trans_amount"`
	TransCount  int64   `json:"trans_count"`
}

// TopDistrictsByTransaction ranks districts from the map tables by summed
// transaction amount, optionally scoped to one state and year.
func (s *Service) TopDistrictsByTransaction(ctx context.Context, f Filter) ([]DistrictTotals, error) {
	where, args := f.whereClause(true)
	args = append(args, f.limitOr(10))

	query := fmt.Sprintf(`
		SELECT state, district, SUM(trans_amount)::double precision, SUM(trans_count)::bigint
		FROM pulse.map_transaction%s
		GROUP BY state, district ORDER BY 3 DESC LIMIT $%d`, where, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "analytics: top districts")
	}
	defer rows.Close()

	var out []DistrictTotals
	for rows.Next() {
		var dt DistrictTotals
		if err := rows.Scan(&dt.State, &dt.District, &dt.TransAmount, &dt.TransCount); err != nil {
			return nil, eris.Wrap(err, "analytics: scan top districts")
		}
		out = append(out, dt)
	}
	return out, eris.Wrap(rows.Err(), "analytics: top districts iterate")
}

// StateEngagement is one state's user totals and engagement ratio.
type StateEngagement struct {
	State           string  `json:"state"`
	TotalUsers      int64   `json:"total_users"`
	TotalAppOpens   int64   `json:"total_app_opens"`
	AvgOpensPerUser float64 `json:"avg_opens_per_user"`
}

// UserEngagement returns per-state user totals. Sums run over a DISTINCT
// subquery so the per-device denormalization of registered_user/app_opens
// is not multiplied by the number of brand rows.
func (s *Service) UserEngagement(ctx context.Context, f Filter) ([]StateEngagement, error) {
	where, args := f.whereClause(false)

	rows, err := s.pool.Query(ctx, `
		SELECT state,
			SUM(registered_user)::bigint,
			SUM(app_opens)::bigint,
			COALESCE(AVG(app_opens::double precision / NULLIF(registered_user, 0)), 0)::double precision
		FROM (
			SELECT DISTINCT year, quarter, state, registered_user, app_opens
			FROM pulse.aggr_user`+where+`
		) u
		GROUP BY state ORDER BY 2 DESC`, args...)
	if err != nil {
		return nil, eris.Wrap(err, "analytics: user engagement")
	}
	defer rows.Close()

	var out []StateEngagement
	for rows.Next() {
		var se StateEngagement
		if err := rows.Scan(&se.State, &se.TotalUsers, &se.TotalAppOpens, &se.AvgOpensPerUser); err != nil {
			return nil, eris.Wrap(err, "analytics: scan user engagement")
		}
		out = append(out, se)
	}
	return out, eris.Wrap(rows.Err(), "analytics: user engagement iterate")
}

// DeviceBrand is one brand's device share.
type DeviceBrand struct {
	DeviceBrand   string  `json:"device_brand"`
	TotalDevices  int64   `json:"total_devices"`
	AvgPercentage float64 `json:"avg_percentage"`
}

// DeviceBrandPopularity ranks device brands by total device count. Blank
// brands (leaves with no device breakdown) are excluded.
func (s *Service) DeviceBrandPopularity(ctx context.Context, f Filter) ([]DeviceBrand, error) {
	query := `
		SELECT device_brand, SUM(device_count)::bigint, AVG(device_percentage)::double precision
		FROM pulse.aggr_user
		WHERE device_brand != ''`
	var args []any
	if f.Year != 0 {
		args = append(args, f.Year)
		query += fmt.Sprintf(" AND year = $%d", len(args))
	}
	args = append(args, f.limitOr(15))
	query += fmt.Sprintf(" GROUP BY device_brand ORDER BY 2 DESC LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "analytics: device brands")
	}
	defer rows.Close()

	var out []DeviceBrand
	for rows.Next() {
		var dbr DeviceBrand
		if err := rows.Scan(&dbr.DeviceBrand, &dbr.TotalDevices, &dbr.AvgPercentage); err != nil {
			return nil, eris.Wrap(err, "analytics: scan device brands")
		}
		out = append(out, dbr)
	}
	return out, eris.Wrap(rows.Err(), "analytics: device brands iterate")
}

// GrowthPoint is one (year, quarter) point on the user growth series.
type GrowthPoint struct {
	Year          int   `json:"year"`
	Quarter       int   `json:"quarter"`
	TotalUsers    int64 `json:"total_users"`
	TotalAppOpens int64 `json:"total_app_opens"`
}

// UserGrowth returns the full user growth series ordered by period, with
// the same DISTINCT dedup as UserEngagement.
func (s *Service) UserGrowth(ctx context.Context) ([]GrowthPoint, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT year, quarter, SUM(registered_user)::bigint, SUM(app_opens)::bigint
		FROM (
			SELECT DISTINCT year, quarter, state, registered_user, app_opens
			FROM pulse.aggr_user
		) u
		GROUP BY year, quarter ORDER BY year, quarter`)
	if err != nil {
		return nil, eris.Wrap(err, "analytics: user growth")
	}
	defer rows.Close()

	var out []GrowthPoint
	for rows.Next() {
		var gp GrowthPoint
		if err := rows.Scan(&gp.Year, &gp.Quarter, &gp.TotalUsers, &gp.TotalAppOpens); err != nil {
			return nil, eris.Wrap(err, "analytics: scan user growth")
		}
		out = append(out, gp)
	}
	return out, eris.Wrap(rows.Err(), "analytics: user growth iterate")
}

// InsuranceAdoption is one state's insurance uptake.
type InsuranceAdoption struct {
	State          string  `json:"state"`
	InsurAmount    float64 `json:"insur_amount"`
	TotalPolicies  int64   `json:"total_policies"`
	AvgPolicyValue float64 `json:"avg_policy_value"`
}

// InsuranceAdoptionByState ranks states by summed insurance amount.
func (s *Service) InsuranceAdoptionByState(ctx context.Context, f Filter) ([]InsuranceAdoption, error) {
	where, args := f.whereClause(false)

	rows, err := s.pool.Query(ctx, `
		SELECT state,
			SUM(insurance_amount)::double precision,
			SUM(insurance_count)::bigint,
			COALESCE(AVG(insurance_amount / NULLIF(insurance_count, 0)), 0)::double precision
		FROM pulse.aggr_insurance`+where+`
		GROUP BY state ORDER BY 2 DESC`, args...)
	if err != nil {
		return nil, eris.Wrap(err, "analytics: insurance adoption")
	}
	defer rows.Close()

	var out []InsuranceAdoption
	for rows.Next() {
		var ia InsuranceAdoption
		if err := rows.Scan(&ia.State, &ia.InsurAmount, &ia.TotalPolicies, &ia.AvgPolicyValue); err != nil {
			return nil, eris.Wrap(err, "analytics: scan insurance adoption")
		}
		out = append(out, ia)
	}
	return out, eris.Wrap(rows.Err(), "analytics: insurance adoption iterate")
}

// YearGrowth is one year's transaction totals compared with the prior year.
// Growth percentages are nil for the first year on record.
type YearGrowth struct {
	Year         int      `json:"year"`
	TransAmount  float64  `json:"trans_amount"`
	TransCount   int64    `json:"trans_count"`
	AmountGrowth *float64 `json:"amount_growth,omitempty"`
	CountGrowth  *float64 `json:"count_growth,omitempty"`
}

// YearOverYearGrowth returns yearly transaction totals with growth
// percentages against the previous year. The LAG window supplies the prior
// value; the percentage is computed here rather than in SQL.
func (s *Service) YearOverYearGrowth(ctx context.Context) ([]YearGrowth, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT year,
			SUM(trans_amount)::double precision,
			SUM(trans_count)::bigint,
			LAG(SUM(trans_amount)::double precision) OVER (ORDER BY year),
			LAG(SUM(trans_count)::bigint) OVER (ORDER BY year)
		FROM pulse.aggr_transaction
		GROUP BY year ORDER BY year`)
	if err != nil {
		return nil, eris.Wrap(err, "analytics: year over year growth")
	}
	defer rows.Close()

	var out []YearGrowth
	for rows.Next() {
		var yg YearGrowth
		var prevAmount *float64
		var prevCount *int64
		if err := rows.Scan(&yg.Year, &yg.TransAmount, &yg.TransCount, &prevAmount, &prevCount); err != nil {
			return nil, eris.Wrap(err, "analytics: scan year over year growth")
		}
		if prevAmount != nil && *prevAmount != 0 {
			pct := round2((yg.TransAmount - *prevAmount) / *prevAmount * 100)
			yg.AmountGrowth = &pct
		}
		if prevCount != nil && *prevCount != 0 {
			pct := round2(float64(yg.TransCount-*prevCount) / float64(*prevCount) * 100)
			yg.CountGrowth = &pct
		}
		out = append(out, yg)
	}
	return out, eris.Wrap(rows.Err(), "analytics: year over year growth iterate")
}

func round2(v float64) float64 {
	if v < 0 {
		return float64(int64(v*100-0.5)) / 100
	}
	return float64(int64(v*100+0.5)) / 100
}
