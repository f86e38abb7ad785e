package dataset

// Source document shapes. The feed is irregular: any container key may be
// absent or null, which typed decoding turns into empty slices and
// zero-valued structs, matching the defaulting rules (0 counts, 0.0 amounts,
// "" text). Decoders must not reject a document for a missing key.

// metricEntry is the shared {type, count, amount} leaf used by payment
// instruments, hover metrics, and top-entity metrics.
type metricEntry struct {
	Type   string  `json:"type"`
	Count  int64   `json:"count"`
	Amount float64 `json:"amount"`
}

// aggTransactionDoc is the aggregated transaction document. The aggregated
// insurance feed reuses the same transactionData key, so it decodes into this
// shape too.
type aggTransactionDoc struct {
	Data struct {
		TransactionData []categoryEntry `json:"transactionData"`
	} `json:"data"`
}

// categoryEntry is one category with its payment instrument list. Documents
// carry exactly one instrument per category; only index 0 is consumed.
type categoryEntry struct {
	Name               string        `json:"name"`
	PaymentInstruments []metricEntry `json:"paymentInstruments"`
}

// aggUserDoc is the aggregated user document: state-level totals plus a
// per-device-brand breakdown.
type aggUserDoc struct {
	Data struct {
		Aggregated struct {
			RegisteredUsers int64 `json:"registeredUsers"`
			AppOpens        int64 `json:"appOpens"`
		} `json:"aggregated"`
		UsersByDevice []deviceEntry `json:"usersByDevice"`
	} `json:"data"`
}

type deviceEntry struct {
	Brand      string  `json:"brand"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

// hoverDoc is the map transaction/insurance document: a list of named
// entries, each holding a single-element metric list.
type hoverDoc struct {
	Data struct {
		HoverDataList []hoverEntry `json:"hoverDataList"`
	} `json:"data"`
}

type hoverEntry struct {
	Name   string        `json:"name"`
	Metric []metricEntry `json:"metric"`
}

// mapUserDoc is the map user document: a mapping keyed by region name rather
// than a list.
type mapUserDoc struct {
	Data struct {
		HoverData map[string]regionUsers `json:"hoverData"`
	} `json:"data"`
}

type regionUsers struct {
	RegisteredUsers int64 `json:"registeredUsers"`
	AppOpens        int64 `json:"appOpens"`
}

// topDoc is the ranked-entity document: up to three independent lists, each
// processed separately. Unlike hover entries, the metric here is a single
// object, not a list.
type topDoc struct {
	Data struct {
		States    []topEntry `json:"states"`
		Districts []topEntry `json:"districts"`
		Pincodes  []topEntry `json:"pincodes"`
	} `json:"data"`
}

type topEntry struct {
	EntityName      string      `json:"entityName"`
	Metric          metricEntry `json:"metric"`
	RegisteredUsers int64       `json:"registeredUsers"`
}
