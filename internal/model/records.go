// Package model defines the flat warehouse record shapes produced by the ETL.
//
// Each source document family (aggregated, map, top) crossed with each domain
// (transaction, user, insurance) normalizes into exactly one of these types.
// Counts default to 0, amounts to 0.0, and text dimensions to "" when the
// source key is absent. District and pincode use "" as the "not applicable at
// this granularity" sentinel, never NULL; downstream filters depend on it.
package model

// AggTransaction is one category row in aggr_transaction.
type AggTransaction struct {
	Year        int
	Quarter     int
	State       string
	TransType   string
	TransCount  int64
	TransAmount float64
}

// AggTransactionColumns lists insert columns in row order.
var AggTransactionColumns = []string{"year", "quarter", "state", "trans_type", "trans_count", "trans_amount"}

// Row returns positional values aligned to AggTransactionColumns.
func (r AggTransaction) Row() []any {
	return []any{r.Year, r.Quarter, r.State, r.TransType, r.TransCount, r.TransAmount}
}

// AggUser is one device-brand row in aggr_user. RegisteredUser and AppOpens
// are state-level totals denormalized onto every device row; readers must
// de-duplicate before summing them across brands.
type AggUser struct {
	Year             int
	Quarter          int
	State            string
	RegisteredUser   int64
	AppOpens         int64
	DeviceBrand      string
	DeviceCount      int64
	DevicePercentage float64
}

var AggUserColumns = []string{"year", "quarter", "state", "registered_user", "app_opens", "device_brand", "device_count", "device_percentage"}

func (r AggUser) Row() []any {
	return []any{r.Year, r.Quarter, r.State, r.RegisteredUser, r.AppOpens, r.DeviceBrand, r.DeviceCount, r.DevicePercentage}
}

// AggInsurance is one policy-category row in aggr_insurance.
type AggInsurance struct {
	Year            int
	Quarter         int
	State           string
	InsuranceType   string
	InsuranceCount  int64
	InsuranceAmount float64
}

var AggInsuranceColumns = []string{"year", "quarter", "state", "insurance_type", "insurance_count", "insurance_amount"}

func (r AggInsurance) Row() []any {
	return []any{r.Year, r.Quarter, r.State, r.InsuranceType, r.InsuranceCount, r.InsuranceAmount}
}

// MapTransaction is one district hover row in map_transaction.
type MapTransaction struct {
	Year        int
	Quarter     int
	State       string
	District    string
	TransType   string
	TransCount  int64
	TransAmount float64
}

var MapTransactionColumns = []string{"year", "quarter", "state", "district", "trans_type", "trans_count", "trans_amount"}

func (r MapTransaction) Row() []any {
	return []any{r.Year, r.Quarter, r.State, r.District, r.TransType, r.TransCount, r.TransAmount}
}

// MapUser is one region hover row in map_user.
type MapUser struct {
	Year           int
	Quarter        int
	State          string
	District       string
	RegisteredUser int64
	AppOpens       int64
}

var MapUserColumns = []string{"year", "quarter", "state", "district", "registered_user", "app_opens"}

func (r MapUser) Row() []any {
	return []any{r.Year, r.Quarter, r.State, r.District, r.RegisteredUser, r.AppOpens}
}

// MapInsurance is one hover row in map_insurance. The upstream feed puts the
// entity name in the state column at this endpoint, so the table carries no
// district column.
type MapInsurance struct {
	Year            int
	Quarter         int
	State           string
	InsuranceType   string
	InsuranceCount  int64
	InsuranceAmount float64
}

var MapInsuranceColumns = []string{"year", "quarter", "state", "insurance_type", "insurance_count", "insurance_amount"}

func (r MapInsurance) Row() []any {
	return []any{r.Year, r.Quarter, r.State, r.InsuranceType, r.InsuranceCount, r.InsuranceAmount}
}

// TopTransaction is one ranked-entity row in top_transaction. Exactly one of
// District and Pincode is populated, or neither for state-level entries.
type TopTransaction struct {
	Year        int
	Quarter     int
	State       string
	District    string
	Pincode     string
	TransType   string
	TransCount  int64
	TransAmount float64
}

var TopTransactionColumns = []string{"year", "quarter", "state", "district", "pincode", "trans_type", "trans_count", "trans_amount"}

func (r TopTransaction) Row() []any {
	return []any{r.Year, r.Quarter, r.State, r.District, r.Pincode, r.TransType, r.TransCount, r.TransAmount}
}

// TopUser is one ranked-entity row in top_user.
type TopUser struct {
	Year           int
	Quarter        int
	State          string
	District       string
	Pincode        string
	RegisteredUser int64
}

var TopUserColumns = []string{"year", "quarter", "state", "district", "pincode", "registered_user"}

func (r TopUser) Row() []any {
	return []any{r.Year, r.Quarter, r.State, r.District, r.Pincode, r.RegisteredUser}
}

// TopInsurance is one ranked-entity row in top_insurance.
type TopInsurance struct {
	Year            int
	Quarter         int
	State           string
	District        string
	Pincode         string
	InsuranceType   string
	InsuranceCount  int64
	InsuranceAmount float64
}

var TopInsuranceColumns = []string{"year", "quarter", "state", "district", "pincode", "insurance_type", "insurance_count", "insurance_amount"}

func (r TopInsurance) Row() []any {
	return []any{r.Year, r.Quarter, r.State, r.District, r.Pincode, r.InsuranceType, r.InsuranceCount, r.InsuranceAmount}
}
