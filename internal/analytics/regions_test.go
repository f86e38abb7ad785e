package analytics

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopRegions_RejectsUnknownDomainOrDim(t *testing.T) {
	mock := newMock(t)
	svc := New(mock)

	_, err := svc.TopRegions(context.Background(), "merchant", ByDistrict, Filter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown domain")

	_, err = svc.TopRegions(context.Background(), "transaction", RegionDim("village"), Filter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown region dimension")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopRegions_TransactionDistricts(t *testing.T) {
	mock := newMock(t)

	// Both the '' sentinel and the missing-data placeholder are filtered out.
	mock.ExpectQuery(`FROM pulse\.top_transaction WHERE district != '' AND district != \$1 AND year = \$2`).
		WithArgs("-- Missing Data --", 2021, 10).
		WillReturnRows(pgxmock.NewRows([]string{"state", "district", "count", "amount"}).
			AddRow("karnataka", "bengaluru urban", int64(500), 1000000.0))

	svc := New(mock)
	out, err := svc.TopRegions(context.Background(), "transaction", ByDistrict, Filter{Year: 2021})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "bengaluru urban", out[0].Name)
	assert.Equal(t, 1000000.0, out[0].Amount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopRegions_UserPincodes(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`FROM pulse\.top_user WHERE pincode != '' AND pincode != \$1`).
		WithArgs("-- Missing Data --", 5).
		WillReturnRows(pgxmock.NewRows([]string{"state", "pincode", "count", "amount"}).
			AddRow("maharashtra", "411001", int64(8000), 0.0))

	svc := New(mock)
	out, err := svc.TopRegions(context.Background(), "user", ByPincode, Filter{Limit: 5})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "411001", out[0].Name)
	assert.Equal(t, int64(8000), out[0].Count)
	assert.Zero(t, out[0].Amount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopRegions_InsuranceDistrictsWithQuarter(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`FROM pulse\.top_insurance WHERE district != '' AND district != \$1 AND year = \$2 AND quarter = \$3`).
		WithArgs("-- Missing Data --", 2022, 3, 10).
		WillReturnRows(pgxmock.NewRows([]string{"state", "district", "count", "amount"}))

	svc := New(mock)
	out, err := svc.TopRegions(context.Background(), "insurance", ByDistrict, Filter{Year: 2022, Quarter: 3})
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}
