package mosaic

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors updated by connectors. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	queries  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	polls    prometheus.Histogram
	bytes    prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg when reg is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mosaic_queries_total",
			Help: "Queries issued, by backend, result kind and outcome.",
		}, []string{"backend", "kind", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mosaic_query_duration_seconds",
			Help:    "Query latency, by backend and result kind.",
			Buckets: prometheus.DefBuckets,
		}, []string{"backend", "kind"}),
		polls: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mosaic_poll_attempts",
			Help:    "Poll calls issued per remote statement.",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
		}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mosaic_accumulated_bytes_total",
			Help: "Bytes accumulated from remote result streams.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.queries, m.duration, m.polls, m.bytes)
	}
	return m
}

func (m *Metrics) observeQuery(backend string, kind ResultKind, start time.Time, err error) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(backend, string(kind), outcome(err)).Inc()
	m.duration.WithLabelValues(backend, string(kind)).Observe(time.Since(start).Seconds())
}

func (m *Metrics) observePolls(n int) {
	if m == nil {
		return
	}
	m.polls.Observe(float64(n))
}

func (m *Metrics) addBytes(n int) {
	if m == nil {
		return
	}
	m.bytes.Add(float64(n))
}

func outcome(err error) string {
	var (
		timeoutErr     *TimeoutError
		formatErr      *FormatError
		unsupportedErr *UnsupportedOperationError
		protocolErr    *ProtocolViolationError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &timeoutErr):
		return "timeout"
	case errors.As(err, &formatErr):
		return "format"
	case errors.As(err, &unsupportedErr):
		return "unsupported"
	case errors.As(err, &protocolErr):
		return "protocol"
	default:
		return "error"
	}
}
