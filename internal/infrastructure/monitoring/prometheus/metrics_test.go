package prometheus

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewAppMetrics_RecordsEverything(t *testing.T) {
	c := newTestCollector(t)
	m := NewAppMetrics(c)

	m.RecordHTTPRequest("POST", "/api/v1/signature", 200, 15*time.Millisecond)
	m.RecordSignature("onesided", 120, 3*time.Millisecond, nil)
	m.RecordSignature("differential", 0, 0, errors.New("x"))
	m.RecordMatch("differential", 14, time.Millisecond, nil)
	m.RecordSessionLookup(true)
	m.RecordSessionLookup(false)
	m.RecordStructure(87, time.Second, nil)
	m.RecordStructure(0, 0, errors.New("parse"))
	m.RecordFetchAttempt("retry")
	m.RecordMessage("publish", "interactions.computed", nil)
	m.RecordMessage("consume", "interactions.requested", errors.New("bad"))

	out := scrape(t, c)
	assert.Contains(t, out, `test_unit_http_requests_total{method="POST",path="/api/v1/signature",status_code="200"} 1`)
	assert.Contains(t, out, `test_unit_signature_computations_total{kind="onesided",status="ok"} 1`)
	assert.Contains(t, out, `test_unit_signature_computations_total{kind="differential",status="error"} 1`)
	assert.Contains(t, out, `test_unit_session_lookups_total{result="hit"} 1`)
	assert.Contains(t, out, `test_unit_session_lookups_total{result="miss"} 1`)
	assert.Contains(t, out, `test_unit_structures_processed_total{status="error"} 1`)
	assert.Contains(t, out, `test_unit_fetch_attempts_total{outcome="retry"} 1`)
	assert.Contains(t, out, `test_unit_messages_published_total{status="ok",topic="interactions.computed"} 1`)
	assert.Contains(t, out, `test_unit_messages_consumed_total{status="error",topic="interactions.requested"} 1`)
}

func TestNewNopAppMetrics_NoPanics(t *testing.T) {
	m := NewNopAppMetrics()
	assert.NotPanics(t, func() {
		m.RecordHTTPRequest("GET", "/", 200, 0)
		m.RecordSignature("onesided", 1, 0, nil)
		m.RecordMatch("onesided", 1, 0, nil)
		m.RecordSessionLookup(false)
		m.RecordStructure(1, 0, nil)
		m.RecordFetchAttempt("ok")
		m.RecordMessage("consume", "t", nil)
		m.WorkerBusy.WithLabelValues("p").Inc()
		m.HTTPActiveRequests.WithLabelValues("GET").Dec()
	})
}
