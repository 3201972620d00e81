package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var queryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "accounts_store_query_duration_seconds",
	Help:    "Store query latency, by driver and operation.",
	Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
}, []string{"driver", "op"})

// ObserveQuery starts a timer for one store operation. Call the returned
// func when it finishes:
//
//	defer store.ObserveQuery("sqlite", "list_users")()
func ObserveQuery(driver, op string) func() {
	timer := prometheus.NewTimer(queryDuration.WithLabelValues(driver, op))
	return func() { timer.ObserveDuration() }
}
