package transform

import (
	"context"
	"fmt"
	"testing"

	common_models "go-viz/internal/common/models"

	"github.com/stretchr/testify/require"
)

var (
	colDate    = common_models.Column{ID: "date", Name: "Date", Type: common_models.FieldTypeDate, DateFormat: "2006-01-02"}
	colRegion  = common_models.Column{ID: "region", Name: "Region", Type: common_models.FieldTypeText}
	colSales   = common_models.Column{ID: "sales", Name: "Sales", Type: common_models.FieldTypeNumber}
	colCountry = common_models.Column{ID: "country", Name: "Country", Type: common_models.FieldTypeText}
	colRevenue = common_models.Column{ID: "revenue", Name: "Revenue", Type: common_models.FieldTypeNumber}
)

func testCatalog() *common_models.Catalog {
	return common_models.NewCatalog([]common_models.Column{colDate, colRegion, colSales, colCountry, colRevenue})
}

// seqIDs returns a deterministic id generator: id-1, id-2, ...
func seqIDs() IDGenerator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

type recordingListener struct {
	calls []*PivotConfig
}

func (r *recordingListener) PivotChanged(_ context.Context, pivot *PivotConfig) {
	r.calls = append(r.calls, pivot)
}

func newTestSession(t *testing.T, opts ...SessionOption) *Session {
	t.Helper()
	opts = append([]SessionOption{WithIDGenerator(seqIDs())}, opts...)
	return NewSession(testCatalog(), nil, opts...)
}

// requireInvariants checks every store invariant after a mutation sequence.
func requireInvariants(t *testing.T, s *Store) {
	t.Helper()
	require.NoError(t, Validate(s))
}
