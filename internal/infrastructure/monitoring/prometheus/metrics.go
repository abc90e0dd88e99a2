package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds every metric the service records.
type AppMetrics struct {
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	SignatureComputations CounterVec
	SignatureDuration     HistogramVec
	SignaturePositions    HistogramVec
	MatchComputations     CounterVec
	MatchDuration         HistogramVec
	MatchCandidates       HistogramVec

	SessionLookups CounterVec

	StructuresProcessed CounterVec
	StructureDuration   HistogramVec
	ContactsFound       HistogramVec
	WorkerBusy          GaugeVec

	FetchAttempts CounterVec

	MessagesConsumed  CounterVec
	MessagesPublished CounterVec
}

var (
	DefaultHTTPDurationBuckets    = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultComputeDurationBuckets = []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10, 30}
	DefaultCountBuckets           = []float64{1, 5, 10, 50, 100, 250, 500, 1000, 5000}
)

// NewAppMetrics registers all metrics on collector.
func NewAppMetrics(c MetricsCollector) *AppMetrics {
	return &AppMetrics{
		HTTPRequestsTotal:   c.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code"),
		HTTPRequestDuration: c.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path"),
		HTTPActiveRequests:  c.RegisterGauge("http_active_requests", "In-flight HTTP requests", "method"),

		SignatureComputations: c.RegisterCounter("signature_computations_total", "Signature computations", "kind", "status"),
		SignatureDuration:     c.RegisterHistogram("signature_duration_seconds", "Signature computation duration", DefaultComputeDurationBuckets, "kind"),
		SignaturePositions:    c.RegisterHistogram("signature_positions", "Positions in computed signatures", DefaultCountBuckets, "kind"),
		MatchComputations:     c.RegisterCounter("match_computations_total", "Signature match computations", "mode", "status"),
		MatchDuration:         c.RegisterHistogram("match_duration_seconds", "Signature match duration", DefaultComputeDurationBuckets, "mode"),
		MatchCandidates:       c.RegisterHistogram("match_candidates", "Candidate receptors per match", DefaultCountBuckets, "mode"),

		SessionLookups: c.RegisterCounter("session_lookups_total", "Session store lookups", "result"),

		StructuresProcessed: c.RegisterCounter("structures_processed_total", "Complex structures processed", "status"),
		StructureDuration:   c.RegisterHistogram("structure_duration_seconds", "Per-structure interaction computation", DefaultComputeDurationBuckets),
		ContactsFound:       c.RegisterHistogram("structure_contacts", "Interface contacts per structure", DefaultCountBuckets),
		WorkerBusy:          c.RegisterGauge("worker_busy", "Workers currently computing a structure", "pool"),

		FetchAttempts: c.RegisterCounter("fetch_attempts_total", "Remote fetch attempts", "outcome"),

		MessagesConsumed:  c.RegisterCounter("messages_consumed_total", "Kafka messages consumed", "topic", "status"),
		MessagesPublished: c.RegisterCounter("messages_published_total", "Kafka messages published", "topic", "status"),
	}
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *AppMetrics) RecordHTTPRequest(method, path string, status int, d time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// RecordSignature records a signature computation; kind is "onesided" or
// "differential".
func (m *AppMetrics) RecordSignature(kind string, positions int, d time.Duration, err error) {
	m.SignatureComputations.WithLabelValues(kind, statusLabel(err)).Inc()
	if err == nil {
		m.SignatureDuration.WithLabelValues(kind).Observe(d.Seconds())
		m.SignaturePositions.WithLabelValues(kind).Observe(float64(positions))
	}
}

func (m *AppMetrics) RecordMatch(mode string, candidates int, d time.Duration, err error) {
	m.MatchComputations.WithLabelValues(mode, statusLabel(err)).Inc()
	if err == nil {
		m.MatchDuration.WithLabelValues(mode).Observe(d.Seconds())
		m.MatchCandidates.WithLabelValues(mode).Observe(float64(candidates))
	}
}

// RecordSessionLookup records a hit or miss on the session store.
func (m *AppMetrics) RecordSessionLookup(hit bool) {
	if hit {
		m.SessionLookups.WithLabelValues("hit").Inc()
		return
	}
	m.SessionLookups.WithLabelValues("miss").Inc()
}

func (m *AppMetrics) RecordStructure(contacts int, d time.Duration, err error) {
	m.StructuresProcessed.WithLabelValues(statusLabel(err)).Inc()
	if err == nil {
		m.StructureDuration.WithLabelValues().Observe(d.Seconds())
		m.ContactsFound.WithLabelValues().Observe(float64(contacts))
	}
}

// RecordFetchAttempt records one remote fetch attempt; outcome is one of
// ok, missing, retry, exhausted.
func (m *AppMetrics) RecordFetchAttempt(outcome string) {
	m.FetchAttempts.WithLabelValues(outcome).Inc()
}

func (m *AppMetrics) RecordMessage(direction, topic string, err error) {
	if direction == "publish" {
		m.MessagesPublished.WithLabelValues(topic, statusLabel(err)).Inc()
		return
	}
	m.MessagesConsumed.WithLabelValues(topic, statusLabel(err)).Inc()
}

// NewNopAppMetrics returns metrics that record nothing.
func NewNopAppMetrics() *AppMetrics {
	return &AppMetrics{
		HTTPRequestsTotal:     noopCounterVec{},
		HTTPRequestDuration:   noopHistogramVec{},
		HTTPActiveRequests:    noopGaugeVec{},
		SignatureComputations: noopCounterVec{},
		SignatureDuration:     noopHistogramVec{},
		SignaturePositions:    noopHistogramVec{},
		MatchComputations:     noopCounterVec{},
		MatchDuration:         noopHistogramVec{},
		MatchCandidates:       noopHistogramVec{},
		SessionLookups:        noopCounterVec{},
		StructuresProcessed:   noopCounterVec{},
		StructureDuration:     noopHistogramVec{},
		ContactsFound:         noopHistogramVec{},
		WorkerBusy:            noopGaugeVec{},
		FetchAttempts:         noopCounterVec{},
		MessagesConsumed:      noopCounterVec{},
		MessagesPublished:     noopCounterVec{},
	}
}
