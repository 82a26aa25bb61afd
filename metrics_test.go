package mosaic

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecordQueries(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	conn, err := OpenLocal(context.Background(), ":memory:", WithMetrics(m))
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Query(context.Background(), Query{SQL: "SELECT 1", Kind: ResultKindJSON})
	require.NoError(t, err)
	_, err = conn.Query(context.Background(), Query{SQL: "SELEC 1", Kind: ResultKindJSON})
	require.Error(t, err)

	require.Equal(t, 1.0, testutil.ToFloat64(m.queries.WithLabelValues(BackendLocal, "json", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.queries.WithLabelValues(BackendLocal, "json", "error")))
	require.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestMetricsNilIsNoop(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.observePolls(3)
		m.addBytes(10)
		m.observeQuery(BackendRemote, ResultKindArrow, time.Now(), nil)
	})
}

func TestMetricsUnregistered(t *testing.T) {
	m := NewMetrics(nil)
	m.addBytes(10)
	require.Equal(t, 10.0, testutil.ToFloat64(m.bytes))
}

func TestOutcome(t *testing.T) {
	for want, err := range map[string]error{
		"ok":          nil,
		"timeout":     &TimeoutError{},
		"format":      fmt.Errorf("decode: %w", &FormatError{Err: errors.New("eof")}),
		"unsupported": &UnsupportedOperationError{},
		"protocol":    &ProtocolViolationError{},
		"error":       errors.New("boom"),
	} {
		require.Equal(t, want, outcome(err))
	}
}
