package eventhub

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/provider"
)

// listenerMetrics instruments a Listener.
type listenerMetrics struct {
	sessions    metrics.Counter
	receives    metrics.Counter
	empty       metrics.Counter
	delivered   metrics.Counter
	errors      metrics.Counter
	subscribers metrics.Gauge
	batchSize   metrics.Histogram
}

func newListenerMetrics(p provider.Provider) *listenerMetrics {
	return &listenerMetrics{
		sessions:    p.NewCounter("eventhub_sessions_opened"),
		receives:    p.NewCounter("eventhub_receives"),
		empty:       p.NewCounter("eventhub_empty_receives"),
		delivered:   p.NewCounter("eventhub_records_delivered"),
		errors:      p.NewCounter("eventhub_stream_errors"),
		subscribers: p.NewGauge("eventhub_subscribers"),
		batchSize:   p.NewHistogram("eventhub_receive_batch_size", 50),
	}
}

// sinkMetrics instruments a Sink.
type sinkMetrics struct {
	sent   metrics.Counter
	failed metrics.Counter
}

func newSinkMetrics(p provider.Provider) *sinkMetrics {
	return &sinkMetrics{
		sent:   p.NewCounter("eventhub_records_sent"),
		failed: p.NewCounter("eventhub_send_errors"),
	}
}
