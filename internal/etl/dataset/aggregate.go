package dataset

import (
	"context"
	"encoding/json"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/sells-group/pulse-cli/internal/model"
)

// AggTransaction loads state-level transaction totals by category.
type AggTransaction struct{}

func (d *AggTransaction) Name() string             { return "aggr_transaction" }
func (d *AggTransaction) Table() string            { return "pulse.aggr_transaction" }
func (d *AggTransaction) Granularity() Granularity { return Aggregated }
func (d *AggTransaction) Domain() Domain           { return Transaction }

func (d *AggTransaction) SourcePath() string {
	return filepath.Join("aggregated", "transaction", "country", "india", "state")
}

func (d *AggTransaction) Load(ctx context.Context, sink Sink, dataRoot string) (*LoadResult, error) {
	var rows [][]any
	var leaves int

	err := Walk(filepath.Join(dataRoot, d.SourcePath()), func(leaf Leaf, raw []byte) error {
		var doc aggTransactionDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			return eris.Wrapf(err, "aggr_transaction: parse %s", leaf.Path)
		}
		for _, rec := range normalizeAggTransaction(leaf, doc) {
			rows = append(rows, rec.Row())
		}
		leaves++
		return nil
	})
	if err != nil {
		return nil, err
	}

	n, err := sink.Append(ctx, d.Table(), model.AggTransactionColumns, rows)
	if err != nil {
		return nil, eris.Wrap(err, "aggr_transaction: append batch")
	}

	return &LoadResult{RowsLoaded: n, Metadata: map[string]any{"leaves": leaves}}, nil
}

// normalizeAggTransaction emits one record per category entry.
func normalizeAggTransaction(leaf Leaf, doc aggTransactionDoc) []model.AggTransaction {
	recs := make([]model.AggTransaction, 0, len(doc.Data.TransactionData))
	for _, entry := range doc.Data.TransactionData {
		inst := firstMetric(entry.PaymentInstruments)
		recs = append(recs, model.AggTransaction{
			Year:        leaf.Year,
			Quarter:     leaf.Quarter,
			State:       leaf.State,
			TransType:   entry.Name,
			TransCount:  inst.Count,
			TransAmount: inst.Amount,
		})
	}
	return recs
}

// AggUser loads state-level user totals with a per-device-brand breakdown.
type AggUser struct{}

func (d *AggUser) Name() string             { return "aggr_user" }
func (d *AggUser) Table() string            { return "pulse.aggr_user" }
func (d *AggUser) Granularity() Granularity { return Aggregated }
func (d *AggUser) Domain() Domain           { return User }

func (d *AggUser) SourcePath() string {
	return filepath.Join("aggregated", "user", "country", "india", "state")
}

func (d *AggUser) Load(ctx context.Context, sink Sink, dataRoot string) (*LoadResult, error) {
	var rows [][]any
	var leaves int

	err := Walk(filepath.Join(dataRoot, d.SourcePath()), func(leaf Leaf, raw []byte) error {
		var doc aggUserDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			return eris.Wrapf(err, "aggr_user: parse %s", leaf.Path)
		}
		for _, rec := range normalizeAggUser(leaf, doc) {
			rows = append(rows, rec.Row())
		}
		leaves++
		return nil
	})
	if err != nil {
		return nil, err
	}

	n, err := sink.Append(ctx, d.Table(), model.AggUserColumns, rows)
	if err != nil {
		return nil, eris.Wrap(err, "aggr_user: append batch")
	}

	return &LoadResult{RowsLoaded: n, Metadata: map[string]any{"leaves": leaves}}, nil
}

// normalizeAggUser emits one record per device entry. The state-level
// registeredUsers/appOpens totals are denormalized onto every device row; a
// document with no usersByDevice list yields zero records, totals included.
func normalizeAggUser(leaf Leaf, doc aggUserDoc) []model.AggUser {
	agg := doc.Data.Aggregated
	recs := make([]model.AggUser, 0, len(doc.Data.UsersByDevice))
	for _, dev := range doc.Data.UsersByDevice {
		recs = append(recs, model.AggUser{
			Year:             leaf.Year,
			Quarter:          leaf.Quarter,
			State:            leaf.State,
			RegisteredUser:   agg.RegisteredUsers,
			AppOpens:         agg.AppOpens,
			DeviceBrand:      dev.Brand,
			DeviceCount:      dev.Count,
			DevicePercentage: dev.Percentage,
		})
	}
	return recs
}

// AggInsurance loads state-level insurance totals by policy category. The
// upstream feed serves insurance documents under the same transactionData key
// as transactions; that overlap is part of the data contract, not a bug.
type AggInsurance struct{}

func (d *AggInsurance) Name() string             { return "aggr_insurance" }
func (d *AggInsurance) Table() string            { return "pulse.aggr_insurance" }
func (d *AggInsurance) Granularity() Granularity { return Aggregated }
func (d *AggInsurance) Domain() Domain           { return Insurance }

func (d *AggInsurance) SourcePath() string {
	return filepath.Join("aggregated", "insurance", "country", "india", "state")
}

func (d *AggInsurance) Load(ctx context.Context, sink Sink, dataRoot string) (*LoadResult, error) {
	var rows [][]any
	var leaves int

	err := Walk(filepath.Join(dataRoot, d.SourcePath()), func(leaf Leaf, raw []byte) error {
		var doc aggTransactionDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			return eris.Wrapf(err, "aggr_insurance: parse %s", leaf.Path)
		}
		for _, rec := range normalizeAggInsurance(leaf, doc) {
			rows = append(rows, rec.Row())
		}
		leaves++
		return nil
	})
	if err != nil {
		return nil, err
	}

	n, err := sink.Append(ctx, d.Table(), model.AggInsuranceColumns, rows)
	if err != nil {
		return nil, eris.Wrap(err, "aggr_insurance: append batch")
	}

	return &LoadResult{RowsLoaded: n, Metadata: map[string]any{"leaves": leaves}}, nil
}

func normalizeAggInsurance(leaf Leaf, doc aggTransactionDoc) []model.AggInsurance {
	recs := make([]model.AggInsurance, 0, len(doc.Data.TransactionData))
	for _, entry := range doc.Data.TransactionData {
		inst := firstMetric(entry.PaymentInstruments)
		recs = append(recs, model.AggInsurance{
			Year:            leaf.Year,
			Quarter:         leaf.Quarter,
			State:           leaf.State,
			InsuranceType:   entry.Name,
			InsuranceCount:  inst.Count,
			InsuranceAmount: inst.Amount,
		})
	}
	return recs
}
