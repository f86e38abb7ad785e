package dataset

import (
	"context"

	"github.com/rotisserie/eris"
)

// Granularity identifies one of the three source document families.
type Granularity int

const (
	Aggregated Granularity = iota + 1 // state x time totals by category
	Map                               // adds district, sourced from hover documents
	Top                               // ranked state/district/pincode entities
)

// String returns the granularity's source-tree directory name.
func (g Granularity) String() string {
	switch g {
	case Aggregated:
		return "aggregated"
	case Map:
		return "map"
	case Top:
		return "top"
	default:
		return "unknown"
	}
}

// ParseGranularity converts a string like "aggregated", "map", "top" into a Granularity.
func ParseGranularity(s string) (Granularity, error) {
	switch s {
	case "aggregated", "aggr":
		return Aggregated, nil
	case "map":
		return Map, nil
	case "top":
		return Top, nil
	default:
		return 0, eris.Errorf("unknown granularity: %q (valid: aggregated, map, top)", s)
	}
}

// Domain identifies the business domain of a dataset.
type Domain string

const (
	Transaction Domain = "transaction"
	User        Domain = "user"
	Insurance   Domain = "insurance"
)

// LoadResult holds the outcome of a dataset load.
type LoadResult struct {
	RowsLoaded int64          `json:"rows_loaded"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Sink receives one normalized batch per destination table. The append must
// be atomic: either every row lands or none do.
type Sink interface {
	Append(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)
}

// Dataset defines the interface each (granularity, domain) pair must implement.
type Dataset interface {
	// Name returns the unique identifier for this dataset (e.g., "aggr_transaction").
	Name() string

	// Table returns the destination table (e.g., "pulse.aggr_transaction").
	Table() string

	// Granularity returns which document family this dataset reads.
	Granularity() Granularity

	// Domain returns the business domain (transaction, user, insurance).
	Domain() Domain

	// SourcePath returns the fixed path of this dataset's state tree
	// relative to the data root.
	SourcePath() string

	// Load walks the source tree, normalizes every document, and appends
	// the full record set to the destination table as one batch.
	Load(ctx context.Context, sink Sink, dataRoot string) (*LoadResult, error)
}
