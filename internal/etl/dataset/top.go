package dataset

import (
	"context"
	"encoding/json"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/sells-group/pulse-cli/internal/model"
)

// Top documents carry up to three independent ranked lists: states,
// districts, and pincodes. Each list is processed unconditionally (a missing
// list is empty, never an error) and each produces its own sentinel pattern:
//
//   - states entries take their state from the entry's own entityName,
//     overriding the directory-derived state; district and pincode stay "".
//   - districts entries keep the directory-derived state; entityName becomes
//     the district; pincode stays "".
//   - pincodes entries keep the directory-derived state; entityName becomes
//     the pincode; district stays "".
//
// By construction no record ever has both district and pincode non-empty.

// TopTransaction loads ranked transaction totals.
type TopTransaction struct{}

func (d *TopTransaction) Name() string             { return "top_transaction" }
func (d *TopTransaction) Table() string            { return "pulse.top_transaction" }
func (d *TopTransaction) Granularity() Granularity { return Top }
func (d *TopTransaction) Domain() Domain           { return Transaction }

func (d *TopTransaction) SourcePath() string {
	return filepath.Join("top", "transaction", "country", "india", "state")
}

func (d *TopTransaction) Load(ctx context.Context, sink Sink, dataRoot string) (*LoadResult, error) {
	var rows [][]any
	var leaves int

	err := Walk(filepath.Join(dataRoot, d.SourcePath()), func(leaf Leaf, raw []byte) error {
		var doc topDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			return eris.Wrapf(err, "top_transaction: parse %s", leaf.Path)
		}
		for _, rec := range normalizeTopTransaction(leaf, doc) {
			rows = append(rows, rec.Row())
		}
		leaves++
		return nil
	})
	if err != nil {
		return nil, err
	}

	n, err := sink.Append(ctx, d.Table(), model.TopTransactionColumns, rows)
	if err != nil {
		return nil, eris.Wrap(err, "top_transaction: append batch")
	}

	return &LoadResult{RowsLoaded: n, Metadata: map[string]any{"leaves": leaves}}, nil
}

func normalizeTopTransaction(leaf Leaf, doc topDoc) []model.TopTransaction {
	recs := make([]model.TopTransaction, 0, len(doc.Data.States)+len(doc.Data.Districts)+len(doc.Data.Pincodes))

	for _, entry := range doc.Data.States {
		recs = append(recs, model.TopTransaction{
			Year:        leaf.Year,
			Quarter:     leaf.Quarter,
			State:       entry.EntityName,
			TransType:   entry.Metric.Type,
			TransCount:  entry.Metric.Count,
			TransAmount: entry.Metric.Amount,
		})
	}
	for _, entry := range doc.Data.Districts {
		recs = append(recs, model.TopTransaction{
			Year:        leaf.Year,
			Quarter:     leaf.Quarter,
			State:       leaf.State,
			District:    entry.EntityName,
			TransType:   entry.Metric.Type,
			TransCount:  entry.Metric.Count,
			TransAmount: entry.Metric.Amount,
		})
	}
	for _, entry := range doc.Data.Pincodes {
		recs = append(recs, model.TopTransaction{
			Year:        leaf.Year,
			Quarter:     leaf.Quarter,
			State:       leaf.State,
			Pincode:     entry.EntityName,
			TransType:   entry.Metric.Type,
			TransCount:  entry.Metric.Count,
			TransAmount: entry.Metric.Amount,
		})
	}

	return recs
}

// TopUser loads ranked registered-user counts.
type TopUser struct{}

func (d *TopUser) Name() string             { return "top_user" }
func (d *TopUser) Table() string            { return "pulse.top_user" }
func (d *TopUser) Granularity() Granularity { return Top }
func (d *TopUser) Domain() Domain           { return User }

func (d *TopUser) SourcePath() string {
	return filepath.Join("top", "user", "country", "india", "state")
}

func (d *TopUser) Load(ctx context.Context, sink Sink, dataRoot string) (*LoadResult, error) {
	var rows [][]any
	var leaves int

	err := Walk(filepath.Join(dataRoot, d.SourcePath()), func(leaf Leaf, raw []byte) error {
		var doc topDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			return eris.Wrapf(err, "top_user: parse %s", leaf.Path)
		}
		for _, rec := range normalizeTopUser(leaf, doc) {
			rows = append(rows, rec.Row())
		}
		leaves++
		return nil
	})
	if err != nil {
		return nil, err
	}

	n, err := sink.Append(ctx, d.Table(), model.TopUserColumns, rows)
	if err != nil {
		return nil, eris.Wrap(err, "top_user: append batch")
	}

	return &LoadResult{RowsLoaded: n, Metadata: map[string]any{"leaves": leaves}}, nil
}

func normalizeTopUser(leaf Leaf, doc topDoc) []model.TopUser {
	recs := make([]model.TopUser, 0, len(doc.Data.States)+len(doc.Data.Districts)+len(doc.Data.Pincodes))

	for _, entry := range doc.Data.States {
		recs = append(recs, model.TopUser{
			Year:           leaf.Year,
			Quarter:        leaf.Quarter,
			State:          entry.EntityName,
			RegisteredUser: entry.RegisteredUsers,
		})
	}
	for _, entry := range doc.Data.Districts {
		recs = append(recs, model.TopUser{
			Year:           leaf.Year,
			Quarter:        leaf.Quarter,
			State:          leaf.State,
			District:       entry.EntityName,
			RegisteredUser: entry.RegisteredUsers,
		})
	}
	for _, entry := range doc.Data.Pincodes {
		recs = append(recs, model.TopUser{
			Year:           leaf.Year,
			Quarter:        leaf.Quarter,
			State:          leaf.State,
			Pincode:        entry.EntityName,
			RegisteredUser: entry.RegisteredUsers,
		})
	}

	return recs
}

// TopInsurance loads ranked insurance totals.
type TopInsurance struct{}

func (d *TopInsurance) Name() string             { return "top_insurance" }
func (d *TopInsurance) Table() string            { return "pulse.top_insurance" }
func (d *TopInsurance) Granularity() Granularity { return Top }
func (d *TopInsurance) Domain() Domain           { return Insurance }

func (d *TopInsurance) SourcePath() string {
	return filepath.Join("top", "insurance", "country", "india", "state")
}

func (d *TopInsurance) Load(ctx context.Context, sink Sink, dataRoot string) (*LoadResult, error) {
	var rows [][]any
	var leaves int

	err := Walk(filepath.Join(dataRoot, d.SourcePath()), func(leaf Leaf, raw []byte) error {
		var doc topDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			return eris.Wrapf(err, "top_insurance: parse %s", leaf.Path)
		}
		for _, rec := range normalizeTopInsurance(leaf, doc) {
			rows = append(rows, rec.Row())
		}
		leaves++
		return nil
	})
	if err != nil {
		return nil, err
	}

	n, err := sink.Append(ctx, d.Table(), model.TopInsuranceColumns, rows)
	if err != nil {
		return nil, eris.Wrap(err, "top_insurance: append batch")
	}

	return &LoadResult{RowsLoaded: n, Metadata: map[string]any{"leaves": leaves}}, nil
}

func normalizeTopInsurance(leaf Leaf, doc topDoc) []model.TopInsurance {
	recs := make([]model.TopInsurance, 0, len(doc.Data.States)+len(doc.Data.Districts)+len(doc.Data.Pincodes))

	for _, entry := range doc.Data.States {
		recs = append(recs, model.TopInsurance{
			Year:            leaf.Year,
			Quarter:         leaf.Quarter,
			State:           entry.EntityName,
			InsuranceType:   entry.Metric.Type,
			InsuranceCount:  entry.Metric.Count,
			InsuranceAmount: entry.Metric.Amount,
		})
	}
	for _, entry := range doc.Data.Districts {
		recs = append(recs, model.TopInsurance{
			Year:            leaf.Year,
			Quarter:         leaf.Quarter,
			State:           leaf.State,
			District:        entry.EntityName,
			InsuranceType:   entry.Metric.Type,
			InsuranceCount:  entry.Metric.Count,
			InsuranceAmount: entry.Metric.Amount,
		})
	}
	for _, entry := range doc.Data.Pincodes {
		recs = append(recs, model.TopInsurance{
			Year:            leaf.Year,
			Quarter:         leaf.Quarter,
			State:           leaf.State,
			Pincode:         entry.EntityName,
			InsuranceType:   entry.Metric.Type,
			InsuranceCount:  entry.Metric.Count,
			InsuranceAmount: entry.Metric.Amount,
		})
	}

	return recs
}
