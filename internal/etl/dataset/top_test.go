package dataset

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/pulse-cli/internal/model"
)

func decodeTop(t *testing.T, raw string) topDoc {
	t.Helper()
	var doc topDoc
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	return doc
}

func TestTopTransaction_Metadata(t *testing.T) {
	ds := &TopTransaction{}
	assert.Equal(t, "top_transaction", ds.Name())
	assert.Equal(t, "pulse.top_transaction", ds.Table())
	assert.Equal(t, Top, ds.Granularity())
	assert.Equal(t, Transaction, ds.Domain())
	assert.Equal(t, "top/transaction/country/india/state", ds.SourcePath())
}

func TestNormalizeTopTransaction_ThreeWayPartition(t *testing.T) {
	doc := decodeTop(t, `{"data":{
		"states":[{"entityName":"puducherry","metric":{"type":"TOTAL","count":10,"amount":5000}}],
		"districts":[{"entityName":"south goa","metric":{"type":"TOTAL","count":20,"amount":9000}}],
		"pincodes":[{"entityName":"403601","metric":{"type":"TOTAL","count":5,"amount":1200}}]
	}}`)

	recs := normalizeTopTransaction(Leaf{State: "goa", Year: 2022, Quarter: 4}, doc)
	require.Len(t, recs, 3)

	// States entries carry their own state and neither district nor pincode.
	assert.Equal(t, model.TopTransaction{
		Year: 2022, Quarter: 4, State: "puducherry",
		TransType: "TOTAL", TransCount: 10, TransAmount: 5000,
	}, recs[0])

	// Districts entries keep the directory state.
	assert.Equal(t, model.TopTransaction{
		Year: 2022, Quarter: 4, State: "goa", District: "south goa",
		TransType: "TOTAL", TransCount: 20, TransAmount: 9000,
	}, recs[1])

	// Pincodes entries keep the directory state.
	assert.Equal(t, model.TopTransaction{
		Year: 2022, Quarter: 4, State: "goa", Pincode: "403601",
		TransType: "TOTAL", TransCount: 5, TransAmount: 1200,
	}, recs[2])
}

func TestNormalizeTopTransaction_NeverBothDistrictAndPincode(t *testing.T) {
	doc := decodeTop(t, `{"data":{
		"states":[{"entityName":"s1","metric":{}},{"entityName":"s2","metric":{}}],
		"districts":[{"entityName":"d1","metric":{}},{"entityName":"d2","metric":{}}],
		"pincodes":[{"entityName":"110001","metric":{}},{"entityName":"110002","metric":{}}]
	}}`)

	for _, rec := range normalizeTopTransaction(Leaf{State: "delhi", Year: 2021, Quarter: 1}, doc) {
		assert.False(t, rec.District != "" && rec.Pincode != "",
			"record %+v has both district and pincode set", rec)
	}
}

func TestNormalizeTopTransaction_MissingListsAreEmpty(t *testing.T) {
	doc := decodeTop(t, `{"data":{"districts":[{"entityName":"jaipur","metric":{"type":"TOTAL","count":7,"amount":300}}]}}`)

	recs := normalizeTopTransaction(Leaf{State: "rajasthan", Year: 2020, Quarter: 2}, doc)
	require.Len(t, recs, 1)
	assert.Equal(t, "jaipur", recs[0].District)
}

func TestTopUser_Metadata(t *testing.T) {
	ds := &TopUser{}
	assert.Equal(t, "top_user", ds.Name())
	assert.Equal(t, "pulse.top_user", ds.Table())
	assert.Equal(t, Top, ds.Granularity())
	assert.Equal(t, User, ds.Domain())
}

func TestNormalizeTopUser_ReadsRegisteredUsersScalar(t *testing.T) {
	doc := decodeTop(t, `{"data":{
		"states":[{"entityName":"maharashtra","registeredUsers":900000}],
		"districts":[{"entityName":"pune","registeredUsers":120000}],
		"pincodes":[{"entityName":"411001","registeredUsers":8000}]
	}}`)

	recs := normalizeTopUser(Leaf{State: "maharashtra", Year: 2023, Quarter: 1}, doc)
	require.Len(t, recs, 3)

	assert.Equal(t, model.TopUser{Year: 2023, Quarter: 1, State: "maharashtra", RegisteredUser: 900000}, recs[0])
	assert.Equal(t, model.TopUser{Year: 2023, Quarter: 1, State: "maharashtra", District: "pune", RegisteredUser: 120000}, recs[1])
	assert.Equal(t, model.TopUser{Year: 2023, Quarter: 1, State: "maharashtra", Pincode: "411001", RegisteredUser: 8000}, recs[2])
}

func TestTopInsurance_Metadata(t *testing.T) {
	ds := &TopInsurance{}
	assert.Equal(t, "top_insurance", ds.Name())
	assert.Equal(t, "pulse.top_insurance", ds.Table())
	assert.Equal(t, Top, ds.Granularity())
	assert.Equal(t, Insurance, ds.Domain())
}

func TestNormalizeTopInsurance_StateEntryOverridesDirectoryState(t *testing.T) {
	doc := decodeTop(t, `{"data":{
		"states":[{"entityName":"kerala","metric":{"type":"TOTAL","count":44,"amount":99000}}]
	}}`)

	recs := normalizeTopInsurance(Leaf{State: "goa", Year: 2022, Quarter: 3}, doc)
	require.Len(t, recs, 1)
	assert.Equal(t, "kerala", recs[0].State)
	assert.Equal(t, "", recs[0].District)
	assert.Equal(t, "", recs[0].Pincode)
	assert.Equal(t, int64(44), recs[0].InsuranceCount)
}

func TestTopTransaction_Load_EndToEnd(t *testing.T) {
	root := t.TempDir()
	ds := &TopTransaction{}
	writeLeaf(t, root+"/"+ds.SourcePath(), "goa", "2022", "4", `{"data":{
		"states":[{"entityName":"puducherry","metric":{"type":"TOTAL","count":10,"amount":5000}}],
		"pincodes":[{"entityName":"403601","metric":{"type":"TOTAL","count":5,"amount":1200}}]
	}}`)

	sink := &memSink{}
	result, err := ds.Load(context.Background(), sink, root)
	require.NoError(t, err)

	assert.Equal(t, int64(2), result.RowsLoaded)
	require.Len(t, sink.batches, 1)
	assert.Equal(t, "pulse.top_transaction", sink.batches[0].table)
	assert.Equal(t, model.TopTransactionColumns, sink.batches[0].columns)
}

func TestTopUser_Load_MalformedDocumentFails(t *testing.T) {
	root := t.TempDir()
	ds := &TopUser{}
	writeLeaf(t, root+"/"+ds.SourcePath(), "goa", "2022", "1", `{not json`)

	sink := &memSink{}
	_, err := ds.Load(context.Background(), sink, root)
	require.Error(t, err)
	assert.Empty(t, sink.batches)
}
