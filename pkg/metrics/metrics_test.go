package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordTransaction(t *testing.T) {
	m := New(nil)

	m.RecordTransaction("session", OutcomeConfirmed, 2*time.Second)
	m.RecordTransaction("session", OutcomeConfirmed, time.Second)
	m.RecordTransaction("owner", OutcomeReverted, time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transactionsTotal.WithLabelValues("session", OutcomeConfirmed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transactionsTotal.WithLabelValues("owner", OutcomeReverted)))
	assert.Equal(t, 2, testutil.CollectAndCount(m.transactionDuration))
}

func TestRecordSignatureAndPolls(t *testing.T) {
	m := New(nil)

	m.RecordSignature("session", "placeholder")
	m.RecordSignature("session", "final")
	m.RecordPoll(true)
	m.RecordPoll(false)
	m.RecordPoll(false)
	m.SetActiveSessions(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.signaturesTotal.WithLabelValues("session", "final")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.sessionPollsTotal.WithLabelValues("error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.sessionsActive))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	m.RecordTransaction("session", OutcomeFailed, time.Second)
	m.RecordSignature("session", "final")
	m.RecordPoll(true)
	m.SetActiveSessions(1)

	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 404, rec.Code)
}

func TestHandler(t *testing.T) {
	m := New(nil)
	m.RecordTransaction("session", OutcomeConfirmed, time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "sso_session_transactions_total"))
}
