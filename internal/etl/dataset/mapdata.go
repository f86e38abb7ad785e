package dataset

import (
	"context"
	"encoding/json"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/sells-group/pulse-cli/internal/model"
)

// MapTransaction loads district-level transaction totals from hover documents.
type MapTransaction struct{}

func (d *MapTransaction) Name() string             { return "map_transaction" }
func (d *MapTransaction) Table() string            { return "pulse.map_transaction" }
func (d *MapTransaction) Granularity() Granularity { return Map }
func (d *MapTransaction) Domain() Domain           { return Transaction }

func (d *MapTransaction) SourcePath() string {
	return filepath.Join("map", "transaction", "hover", "country", "india", "state")
}

func (d *MapTransaction) Load(ctx context.Context, sink Sink, dataRoot string) (*LoadResult, error) {
	var rows [][]any
	var leaves int

	err := Walk(filepath.Join(dataRoot, d.SourcePath()), func(leaf Leaf, raw []byte) error {
		var doc hoverDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			return eris.Wrapf(err, "map_transaction: parse %s", leaf.Path)
		}
		for _, rec := range normalizeMapTransaction(leaf, doc) {
			rows = append(rows, rec.Row())
		}
		leaves++
		return nil
	})
	if err != nil {
		return nil, err
	}

	n, err := sink.Append(ctx, d.Table(), model.MapTransactionColumns, rows)
	if err != nil {
		return nil, eris.Wrap(err, "map_transaction: append batch")
	}

	return &LoadResult{RowsLoaded: n, Metadata: map[string]any{"leaves": leaves}}, nil
}

// normalizeMapTransaction emits one record per hover entry; the entry name is
// the district, the state comes from the directory path.
func normalizeMapTransaction(leaf Leaf, doc hoverDoc) []model.MapTransaction {
	recs := make([]model.MapTransaction, 0, len(doc.Data.HoverDataList))
	for _, entry := range doc.Data.HoverDataList {
		m := firstMetric(entry.Metric)
		recs = append(recs, model.MapTransaction{
			Year:        leaf.Year,
			Quarter:     leaf.Quarter,
			State:       leaf.State,
			District:    entry.Name,
			TransType:   m.Type,
			TransCount:  m.Count,
			TransAmount: m.Amount,
		})
	}
	return recs
}

// MapUser loads district-level user totals. Unlike the other hover feeds this
// document keys a mapping by region name instead of carrying a list.
type MapUser struct{}

func (d *MapUser) Name() string             { return "map_user" }
func (d *MapUser) Table() string            { return "pulse.map_user" }
func (d *MapUser) Granularity() Granularity { return Map }
func (d *MapUser) Domain() Domain           { return User }

func (d *MapUser) SourcePath() string {
	return filepath.Join("map", "user", "hover", "country", "india", "state")
}

func (d *MapUser) Load(ctx context.Context, sink Sink, dataRoot string) (*LoadResult, error) {
	var rows [][]any
	var leaves int

	err := Walk(filepath.Join(dataRoot, d.SourcePath()), func(leaf Leaf, raw []byte) error {
		var doc mapUserDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			return eris.Wrapf(err, "map_user: parse %s", leaf.Path)
		}
		for _, rec := range normalizeMapUser(leaf, doc) {
			rows = append(rows, rec.Row())
		}
		leaves++
		return nil
	})
	if err != nil {
		return nil, err
	}

	n, err := sink.Append(ctx, d.Table(), model.MapUserColumns, rows)
	if err != nil {
		return nil, eris.Wrap(err, "map_user: append batch")
	}

	return &LoadResult{RowsLoaded: n, Metadata: map[string]any{"leaves": leaves}}, nil
}

// normalizeMapUser emits one record per region key, in sorted key order.
func normalizeMapUser(leaf Leaf, doc mapUserDoc) []model.MapUser {
	regions := doc.Data.HoverData
	recs := make([]model.MapUser, 0, len(regions))
	for _, name := range sortedRegions(regions) {
		r := regions[name]
		recs = append(recs, model.MapUser{
			Year:           leaf.Year,
			Quarter:        leaf.Quarter,
			State:          leaf.State,
			District:       name,
			RegisteredUser: r.RegisteredUsers,
			AppOpens:       r.AppOpens,
		})
	}
	return recs
}

// MapInsurance loads insurance hover totals. At this endpoint the feed's
// entry name identifies the STATE, not the district, so the record takes its
// state from the document payload and the directory-derived state is unused.
// Preserved as-is from the upstream contract; see DESIGN.md before "fixing".
type MapInsurance struct{}

func (d *MapInsurance) Name() string             { return "map_insurance" }
func (d *MapInsurance) Table() string            { return "pulse.map_insurance" }
func (d *MapInsurance) Granularity() Granularity { return Map }
func (d *MapInsurance) Domain() Domain           { return Insurance }

func (d *MapInsurance) SourcePath() string {
	return filepath.Join("map", "insurance", "hover", "country", "india", "state")
}

func (d *MapInsurance) Load(ctx context.Context, sink Sink, dataRoot string) (*LoadResult, error) {
	var rows [][]any
	var leaves int

	err := Walk(filepath.Join(dataRoot, d.SourcePath()), func(leaf Leaf, raw []byte) error {
		var doc hoverDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			return eris.Wrapf(err, "map_insurance: parse %s", leaf.Path)
		}
		for _, rec := range normalizeMapInsurance(leaf, doc) {
			rows = append(rows, rec.Row())
		}
		leaves++
		return nil
	})
	if err != nil {
		return nil, err
	}

	n, err := sink.Append(ctx, d.Table(), model.MapInsuranceColumns, rows)
	if err != nil {
		return nil, eris.Wrap(err, "map_insurance: append batch")
	}

	return &LoadResult{RowsLoaded: n, Metadata: map[string]any{"leaves": leaves}}, nil
}

func normalizeMapInsurance(leaf Leaf, doc hoverDoc) []model.MapInsurance {
	recs := make([]model.MapInsurance, 0, len(doc.Data.HoverDataList))
	for _, entry := range doc.Data.HoverDataList {
		m := firstMetric(entry.Metric)
		recs = append(recs, model.MapInsurance{
			Year:            leaf.Year,
			Quarter:         leaf.Quarter,
			State:           entry.Name,
			InsuranceType:   m.Type,
			InsuranceCount:  m.Count,
			InsuranceAmount: m.Amount,
		})
	}
	return recs
}
