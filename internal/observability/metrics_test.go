package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soulverse-ledger/internal/domain"
	"soulverse-ledger/internal/ledgererr"
)

func TestRecordOperation(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())

	m.RecordOperation("transfer", nil)
	m.RecordOperation("transfer", ledgererr.ErrRecipientBlacklisted)
	m.RecordOperation("transfer", errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("transfer", ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("transfer", ResultRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("transfer", ResultError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RejectionsTotal.WithLabelValues("transfer", "RECIPIENT_BLACKLISTED")))
}

func TestUpdateSupply(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())

	m.UpdateSupply(domain.Tokens(20_999_999_900), domain.Tokens(100))

	assert.InDelta(t, 20_999_999_900, testutil.ToFloat64(m.CirculatingSupply), 1)
	assert.InDelta(t, 100, testutil.ToFloat64(m.TotalBurned), 0.0001)
}

func TestRecordCheckpointAndJournal(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())

	m.RecordCheckpoint(1717243200, nil)
	m.RecordCheckpoint(1717243300, errors.New("db down"))
	m.RecordJournalError("postgres")
	m.RecordDBQuery("postgres", "journal_insert", 0.01, errors.New("db down"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CheckpointsTotal.WithLabelValues(ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CheckpointsTotal.WithLabelValues(ResultError)))
	assert.Equal(t, 1717243200.0, testutil.ToFloat64(m.LastCheckpoint))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JournalErrors.WithLabelValues("postgres")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DBQueryErrors.WithLabelValues("postgres", "journal_insert")))
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)
	m.RecordOperation("burn", nil)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `test_ledger_operations_total{op="burn",result="ok"} 1`))
}
