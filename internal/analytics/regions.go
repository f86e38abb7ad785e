package analytics

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
)

// RegionDim selects which ranked-entity dimension a Top-table slice groups
// by. Records at the other dimension carry '' there, so filtering on the
// grouped column also drops them.
type RegionDim string

const (
	ByDistrict RegionDim = "district"
	ByPincode  RegionDim = "pincode"
)

// RankedRegion is one district or pincode row from a Top-table slice.
// Amount is zero for the user domain, which ranks by registered users only.
type RankedRegion struct {
	State  string  `json:"state"`
	Name   string  `json:"name"`
	Count  int64   `json:"count"`
	Amount float64 `json:"amount"`
}

// topSlice holds the per-domain column mapping for Top-table region slices.
type topSlice struct {
	table      string
	countExpr  string
	amountExpr string
	orderCol   int // 1-based select position to rank by
}

var topSlices = map[string]topSlice{
	"transaction": {"pulse.top_transaction", "SUM(trans_count)::bigint", "SUM(trans_amount)::double precision", 4},
	"user":        {"pulse.top_user", "SUM(registered_user)::bigint", "0::double precision", 3},
	"insurance":   {"pulse.top_insurance", "SUM(insurance_count)::bigint", "SUM(insurance_amount)::double precision", 4},
}

// TopRegions slices a Top table by district or pincode for one domain.
// Rows whose grouped column holds either the '' sentinel or the source's
// missing-data placeholder are excluded.
func (s *Service) TopRegions(ctx context.Context, domain string, dim RegionDim, f Filter) ([]RankedRegion, error) {
	slice, ok := topSlices[domain]
	if !ok {
		return nil, eris.Errorf("analytics: unknown domain %q", domain)
	}
	if dim != ByDistrict && dim != ByPincode {
		return nil, eris.Errorf("analytics: unknown region dimension %q", dim)
	}

	args := []any{missingData}
	where := fmt.Sprintf(" WHERE %s != '' AND %s != $1", dim, dim)
	if f.Year != 0 {
		args = append(args, f.Year)
		where += fmt.Sprintf(" AND year = $%d", len(args))
	}
	if f.Quarter != 0 {
		args = append(args, f.Quarter)
		where += fmt.Sprintf(" AND quarter = $%d", len(args))
	}
	args = append(args, f.limitOr(10))

	query := fmt.Sprintf(`
		SELECT state, %s, %s, %s
		FROM %s%s
		GROUP BY state, %s ORDER BY %d DESC LIMIT $%d`,
		dim, slice.countExpr, slice.amountExpr, slice.table, where, dim, slice.orderCol, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "analytics: top %s by %s", domain, dim)
	}
	defer rows.Close()

	var out []RankedRegion
	for rows.Next() {
		var rr RankedRegion
		if err := rows.Scan(&rr.State, &rr.Name, &rr.Count, &rr.Amount); err != nil {
			return nil, eris.Wrapf(err, "analytics: scan top %s by %s", domain, dim)
		}
		out = append(out, rr)
	}
	return out, eris.Wrapf(rows.Err(), "analytics: top %s by %s iterate", domain, dim)
}
