// Package metrics wires the reader's observability events to
// Prometheus, using promauto the way the rest of the retrieved fleet of
// indexer/sync services registers its gauges and counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"sequencer-reader/internal/block"
)

// Recorder implements reader.Metrics against a registered set of
// Prometheus collectors.
type Recorder struct {
	blocksDelivered   prometheus.Counter
	blocksCached      prometheus.Gauge
	cacheRejectTotal  *prometheus.CounterVec
	fetchRetriesTotal prometheus.Counter
	latestObserved    prometheus.Gauge
	nextExpected      prometheus.Gauge
	pendingSendActive prometheus.Gauge
}

// New registers the reader's metric collectors against the default
// Prometheus registry.
func New() *Recorder {
	return &Recorder{
		blocksDelivered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reader_blocks_delivered_total",
			Help: "Filtered blocks forwarded to the executor.",
		}),
		blocksCached: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "reader_blocks_cached",
			Help: "Blocks currently buffered in the sequential cache.",
		}),
		cacheRejectTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "reader_cache_reject_total",
			Help: "Cache insert rejections by reason.",
		}, []string{"reason"}),
		fetchRetriesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reader_fetch_retries_total",
			Help: "Single-block fetches that required at least one retry.",
		}),
		latestObserved: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "reader_latest_observed_height",
			Help: "Latest sequencer height observed by the poller.",
		}),
		nextExpected: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "reader_next_expected_height",
			Help: "Current cache cursor / range-stream floor.",
		}),
		pendingSendActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "reader_pending_send_active",
			Help: "1 while a backpressured send to the executor is in flight, else 0.",
		}),
	}
}

func (r *Recorder) BlockDelivered(h block.Height) {
	r.blocksDelivered.Inc()
	r.nextExpected.Set(float64(h + 1))
}

func (r *Recorder) CacheRejected(reason string) {
	r.cacheRejectTotal.WithLabelValues(reason).Inc()
}

func (r *Recorder) FetchRetried() {
	r.fetchRetriesTotal.Inc()
}

func (r *Recorder) HeightsObserved(latestObserved, nextExpected block.Height) {
	r.latestObserved.Set(float64(latestObserved))
	r.nextExpected.Set(float64(nextExpected))
}

func (r *Recorder) PendingSendActive(active bool) {
	if active {
		r.pendingSendActive.Set(1)
		return
	}
	r.pendingSendActive.Set(0)
}

func (r *Recorder) CacheSize(n int) {
	r.blocksCached.Set(float64(n))
}
